package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"testing"

	"priceledger/internal/ledger"

	"github.com/gorilla/websocket"
)

// go test -v --run TestReasonFor
func TestReasonFor(t *testing.T) {
	live := context.Background()
	cancelled, cancel := context.WithCancel(context.Background())
	cancel()

	tests := []struct {
		name string
		ctx  context.Context
		err  error
		want string
	}{
		{"clean eof", live, fmt.Errorf("read frame: %w", io.EOF), ReasonEOF},
		{"short read", live, fmt.Errorf("read frame: %w", io.ErrUnexpectedEOF), ReasonEOF},
		{"unknown tag", live, fmt.Errorf("%w: 0x58", ledger.ErrUnknownTag), ReasonProtocolError},
		{"malformed ws", live, fmt.Errorf("%w: text", ErrMalformedMessage), ReasonProtocolError},
		{"ws oversized", live, fmt.Errorf("read message: %w", websocket.ErrReadLimit), ReasonProtocolError},
		{"reset", live, fmt.Errorf("write response: %w", net.ErrClosed), ReasonIOError},
		{"ws normal close", live, fmt.Errorf("read message: %w", &websocket.CloseError{Code: websocket.CloseNormalClosure}), ReasonEOF},
		{"ws odd close", live, &websocket.CloseError{Code: websocket.CloseInternalServerErr}, ReasonIOError},
		{"shutdown wins", cancelled, io.EOF, ReasonShutdown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := reasonFor(tt.ctx, tt.err); got != tt.want {
				t.Errorf("reasonFor(%v) = %q, want %q", tt.err, got, tt.want)
			}
		})
	}
}

type stubRecorder struct {
	calls int
	err   error
}

func (r *stubRecorder) RecordSession(context.Context, Summary) error {
	r.calls++
	return r.err
}

// go test -v --run TestRecordersFanOut
func TestRecordersFanOut(t *testing.T) {
	boom := errors.New("boom")
	a := &stubRecorder{err: boom}
	b := &stubRecorder{}

	err := Recorders{a, b}.RecordSession(context.Background(), Summary{ID: "x"})
	if !errors.Is(err, boom) {
		t.Fatalf("expected joined error to wrap boom, got %v", err)
	}
	if a.calls != 1 || b.calls != 1 {
		t.Errorf("expected every recorder to be called once, got %d and %d", a.calls, b.calls)
	}
}
