package ledger

import (
	"bytes"
	"errors"
	"io"
	"math"
	"testing"
)

// go test -v --run TestDecodeFrame
func TestDecodeFrame(t *testing.T) {
	raw := [FrameSize]byte{0x49, 0x00, 0x00, 0x30, 0x39, 0x00, 0x00, 0x00, 0x65}

	f, err := DecodeFrame(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if f.Tag != TagInsert || f.Arg1 != 12345 || f.Arg2 != 101 {
		t.Errorf("unexpected frame: %+v", f)
	}

	// negative arguments are two's complement
	raw = [FrameSize]byte{0x51, 0xff, 0xff, 0xff, 0xff, 0x80, 0x00, 0x00, 0x00}
	f, err = DecodeFrame(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if f.Tag != TagQuery || f.Arg1 != -1 || f.Arg2 != math.MinInt32 {
		t.Errorf("unexpected frame: %+v", f)
	}
}

// go test -v --run TestDecodeFrameUnknownTag
func TestDecodeFrameUnknownTag(t *testing.T) {
	for _, tag := range []byte{0x00, 'i', 'q', 'X', 0xff} {
		raw := [FrameSize]byte{tag}
		if _, err := DecodeFrame(raw); !errors.Is(err, ErrUnknownTag) {
			t.Errorf("tag 0x%02x: expected ErrUnknownTag, got %v", tag, err)
		}
	}
}

// go test -v --run TestFrameEncodeDecode
func TestFrameEncodeDecode(t *testing.T) {
	in := QueryFrame(math.MinInt32, math.MaxInt32)
	out, err := DecodeFrame(in.Encode())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != in {
		t.Errorf("expected %+v, got %+v", in, out)
	}
}

// go test -v --run TestReadFrame
func TestReadFrame(t *testing.T) {
	a := InsertFrame(1, 2).Encode()
	b := QueryFrame(0, 5).Encode()

	var buf bytes.Buffer
	buf.Write(a[:])
	buf.Write(b[:])
	buf.Write(a[:4]) // truncated trailer

	f, err := ReadFrame(&buf)
	if err != nil || f != InsertFrame(1, 2) {
		t.Fatalf("first frame: got %+v, %v", f, err)
	}
	f, err = ReadFrame(&buf)
	if err != nil || f != QueryFrame(0, 5) {
		t.Fatalf("second frame: got %+v, %v", f, err)
	}
	if _, err = ReadFrame(&buf); !errors.Is(err, io.ErrUnexpectedEOF) {
		t.Fatalf("expected io.ErrUnexpectedEOF on short read, got %v", err)
	}
	if _, err = ReadFrame(&buf); !errors.Is(err, io.EOF) {
		t.Fatalf("expected io.EOF on drained stream, got %v", err)
	}
}

// go test -v --run TestEncodeResponse
func TestEncodeResponse(t *testing.T) {
	tests := []struct {
		in   int32
		want [ResponseSize]byte
	}{
		{0, [ResponseSize]byte{0, 0, 0, 0}},
		{200, [ResponseSize]byte{0, 0, 0, 0xc8}},
		{-1, [ResponseSize]byte{0xff, 0xff, 0xff, 0xff}},
		{math.MinInt32, [ResponseSize]byte{0x80, 0, 0, 0}},
	}

	for _, tt := range tests {
		got := EncodeResponse(tt.in)
		if got != tt.want {
			t.Errorf("EncodeResponse(%d) = % x, want % x", tt.in, got, tt.want)
		}
		if back := DecodeResponse(got); back != tt.in {
			t.Errorf("DecodeResponse(% x) = %d, want %d", got, back, tt.in)
		}
	}
}
