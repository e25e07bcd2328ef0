package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"time"

	"priceledger/internal/ledger"

	"go.uber.org/zap"
)

// recordTimeout bounds how long a finished session may spend in recorders.
const recordTimeout = 5 * time.Second

// DefaultWSReadLimit caps a single WebSocket message at 128 frames.
const DefaultWSReadLimit = 128 * ledger.FrameSize

// Server accepts connections and runs one independent session per connection.
// The same Server can serve the ledger protocol over TCP and WebSocket as well
// as the echo and prime handlers; one cancellation stops all of them.
type Server struct {
	logger      *zap.Logger
	recorders   Recorders
	wsReadLimit int64

	mu        sync.Mutex
	closing   bool
	listeners map[net.Listener]struct{}
	conns     map[net.Conn]struct{}
	wg        sync.WaitGroup
}

func New(logger *zap.Logger, recorders ...Recorder) *Server {
	return &Server{
		logger:      logger,
		recorders:   recorders,
		wsReadLimit: DefaultWSReadLimit,
		listeners:   make(map[net.Listener]struct{}),
		conns:       make(map[net.Conn]struct{}),
	}
}

// SetWSReadLimit sets the largest WebSocket message accepted, in bytes.
// Non-positive values keep the default.
func (s *Server) SetWSReadLimit(n int64) {
	if n > 0 {
		s.wsReadLimit = n
	}
}

// ListenAndServe listens on addr and serves the ledger protocol until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	ln, err := listen(addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve runs ledger sessions for connections accepted from ln. On cancellation
// every listener and live connection of the Server is closed, and Serve returns
// once all sessions have finished.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	return s.serve(ctx, ln, "price ledger", s.handleConn)
}

func listen(addr string) (net.Listener, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("listen on %s: %w", addr, err)
	}
	return ln, nil
}

func (s *Server) serve(ctx context.Context, ln net.Listener, name string, handle func(context.Context, net.Conn)) error {
	s.mu.Lock()
	if s.closing {
		s.mu.Unlock()
		return ln.Close()
	}
	s.listeners[ln] = struct{}{}
	s.mu.Unlock()

	stop := context.AfterFunc(ctx, s.shutdown)
	defer stop()

	s.logger.Info(name+" listening", zap.String("addr", ln.Addr().String()))

	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				s.wg.Wait()
				s.logger.Info(name+" stopped", zap.String("addr", ln.Addr().String()))
				return nil
			}
			return fmt.Errorf("accept: %w", err)
		}

		if !s.track(conn) {
			conn.Close()
			continue
		}

		go func() {
			defer s.untrack(conn)
			handle(ctx, conn)
		}()
	}
}

func (s *Server) handleConn(ctx context.Context, conn net.Conn) {
	summary := newSummary(TransportTCP, conn.RemoteAddr().String())
	sess := ledger.NewSession()

	err := serveStream(conn, sess)
	s.finish(ctx, summary, sess.Stats(), err)
}

// serveStream runs the read, apply, respond loop until the stream ends or
// a frame is rejected. One frame is fully handled before the next is read.
func serveStream(rw io.ReadWriter, sess *ledger.Session) error {
	for {
		f, err := ledger.ReadFrame(rw)
		if err != nil {
			return fmt.Errorf("read frame: %w", err)
		}

		resp, err := sess.Apply(f)
		if err != nil {
			return err
		}

		if resp != nil {
			if _, err := rw.Write(resp); err != nil {
				return fmt.Errorf("write response: %w", err)
			}
		}
	}
}

// finish logs the end of a session and hands its summary to the recorders.
func (s *Server) finish(ctx context.Context, summary Summary, stats ledger.Stats, err error) {
	summary.complete(stats, reasonFor(ctx, err))

	fields := []zap.Field{
		zap.String("session", summary.ID),
		zap.String("transport", summary.Transport),
		zap.String("remote", summary.Remote),
		zap.String("reason", summary.Reason),
		zap.Uint64("inserts", summary.Inserts),
		zap.Uint64("queries", summary.Queries),
		zap.Int("entries", summary.Entries),
		zap.Duration("duration", summary.EndedAt.Sub(summary.StartedAt)),
	}

	switch summary.Reason {
	case ReasonProtocolError, ReasonIOError:
		s.logger.Warn("session terminated", append(fields, zap.Error(err))...)
	default:
		s.logger.Info("session closed", fields...)
	}

	if len(s.recorders) == 0 {
		return
	}

	recCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), recordTimeout)
	defer cancel()
	if err := s.recorders.RecordSession(recCtx, summary); err != nil {
		s.logger.Warn("failed to record session", zap.String("session", summary.ID), zap.Error(err))
	}
}

// track registers a live connection. It reports false once shutdown has begun.
func (s *Server) track(conn net.Conn) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closing {
		return false
	}
	s.conns[conn] = struct{}{}
	s.wg.Add(1)
	return true
}

func (s *Server) untrack(conn net.Conn) {
	s.mu.Lock()
	delete(s.conns, conn)
	s.mu.Unlock()

	conn.Close()
	s.wg.Done()
}

// shutdown closes every listener and live connection. Safe to call more than once.
func (s *Server) shutdown() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closing {
		return
	}
	s.closing = true

	for ln := range s.listeners {
		ln.Close()
	}
	for conn := range s.conns {
		conn.Close()
	}
}
