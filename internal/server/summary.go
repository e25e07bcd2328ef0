package server

import (
	"context"
	"errors"
	"io"
	"time"

	"priceledger/internal/ledger"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	TransportTCP   = "tcp"
	TransportWS    = "ws"
	TransportEcho  = "echo"
	TransportPrime = "prime"
)

// Reasons a session ended.
const (
	ReasonEOF           = "eof"
	ReasonProtocolError = "protocol_error"
	ReasonIOError       = "io_error"
	ReasonShutdown      = "shutdown"
)

// ErrMalformedMessage is returned when a WebSocket message does not carry
// whole frames or a prime request line is not a valid request.
var ErrMalformedMessage = errors.New("malformed message")

// Summary describes a finished session. It never carries price data.
type Summary struct {
	ID        string
	Transport string
	Remote    string
	StartedAt time.Time
	EndedAt   time.Time
	Inserts   uint64
	Queries   uint64
	Entries   int
	Reason    string
}

func newSummary(transport, remote string) Summary {
	return Summary{
		ID:        uuid.NewString(),
		Transport: transport,
		Remote:    remote,
		StartedAt: time.Now().UTC(),
	}
}

func (s *Summary) complete(stats ledger.Stats, reason string) {
	s.EndedAt = time.Now().UTC()
	s.Inserts = stats.Inserts
	s.Queries = stats.Queries
	s.Entries = stats.Entries
	s.Reason = reason
}

// Recorder receives the summary of every finished session.
type Recorder interface {
	RecordSession(ctx context.Context, s Summary) error
}

// Recorders fans a summary out to every recorder and joins their errors.
type Recorders []Recorder

func (rs Recorders) RecordSession(ctx context.Context, s Summary) error {
	var errs []error
	for _, r := range rs {
		if err := r.RecordSession(ctx, s); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// reasonFor classifies the error that ended a session.
func reasonFor(ctx context.Context, err error) string {
	var closeErr *websocket.CloseError

	switch {
	case ctx.Err() != nil:
		return ReasonShutdown
	case errors.Is(err, ledger.ErrUnknownTag), errors.Is(err, ErrMalformedMessage),
		errors.Is(err, websocket.ErrReadLimit):
		return ReasonProtocolError
	case errors.Is(err, io.EOF), errors.Is(err, io.ErrUnexpectedEOF):
		return ReasonEOF
	case errors.As(err, &closeErr):
		switch closeErr.Code {
		case websocket.CloseNormalClosure, websocket.CloseGoingAway,
			websocket.CloseNoStatusReceived, websocket.CloseAbnormalClosure:
			return ReasonEOF
		}
		return ReasonIOError
	default:
		return ReasonIOError
	}
}
