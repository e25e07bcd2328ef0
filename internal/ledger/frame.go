package ledger

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

const (
	// FrameSize is the length of every request frame: tag + two int32 arguments.
	FrameSize = 9
	// ResponseSize is the length of a query response.
	ResponseSize = 4

	TagInsert byte = 'I'
	TagQuery  byte = 'Q'
)

// ErrUnknownTag is returned for a frame whose tag is neither 'I' nor 'Q'.
// The connection must be closed; the protocol has no error frame.
var ErrUnknownTag = errors.New("unknown message tag")

// Frame is a decoded request.
//
//	insert: Arg1 = timestamp, Arg2 = price
//	query:  Arg1 = min time,  Arg2 = max time
type Frame struct {
	Tag  byte
	Arg1 int32
	Arg2 int32
}

func InsertFrame(timestamp, price int32) Frame {
	return Frame{Tag: TagInsert, Arg1: timestamp, Arg2: price}
}

func QueryFrame(minTime, maxTime int32) Frame {
	return Frame{Tag: TagQuery, Arg1: minTime, Arg2: maxTime}
}

// DecodeFrame parses raw bytes into a Frame. Both arguments are big-endian
// two's-complement integers.
func DecodeFrame(raw [FrameSize]byte) (Frame, error) {
	switch raw[0] {
	case TagInsert, TagQuery:
	default:
		return Frame{}, fmt.Errorf("%w: 0x%02x", ErrUnknownTag, raw[0])
	}

	return Frame{
		Tag:  raw[0],
		Arg1: int32(binary.BigEndian.Uint32(raw[1:5])),
		Arg2: int32(binary.BigEndian.Uint32(raw[5:9])),
	}, nil
}

// ReadFrame reads exactly one frame from r.
// A stream that ends on a frame boundary yields io.EOF, one that ends
// mid-frame yields io.ErrUnexpectedEOF.
func ReadFrame(r io.Reader) (Frame, error) {
	var raw [FrameSize]byte
	if _, err := io.ReadFull(r, raw[:]); err != nil {
		return Frame{}, err
	}
	return DecodeFrame(raw)
}

// Encode renders the frame in wire format.
func (f Frame) Encode() [FrameSize]byte {
	var raw [FrameSize]byte
	raw[0] = f.Tag
	binary.BigEndian.PutUint32(raw[1:5], uint32(f.Arg1))
	binary.BigEndian.PutUint32(raw[5:9], uint32(f.Arg2))
	return raw
}

func EncodeResponse(mean int32) [ResponseSize]byte {
	var raw [ResponseSize]byte
	binary.BigEndian.PutUint32(raw[:], uint32(mean))
	return raw
}

func DecodeResponse(raw [ResponseSize]byte) int32 {
	return int32(binary.BigEndian.Uint32(raw[:]))
}
