package server

import (
	"context"
	"fmt"
	"io"
	"net"

	"priceledger/internal/ledger"
)

// ListenAndServeEcho listens on addr and echoes every byte back until ctx is cancelled.
func (s *Server) ListenAndServeEcho(ctx context.Context, addr string) error {
	ln, err := listen(addr)
	if err != nil {
		return err
	}
	return s.ServeEcho(ctx, ln)
}

// ServeEcho writes back whatever each client sends, unchanged, until the
// client closes its side.
func (s *Server) ServeEcho(ctx context.Context, ln net.Listener) error {
	return s.serve(ctx, ln, "echo", s.handleEcho)
}

func (s *Server) handleEcho(ctx context.Context, conn net.Conn) {
	summary := newSummary(TransportEcho, conn.RemoteAddr().String())

	err := echo(conn)
	s.finish(ctx, summary, ledger.Stats{}, err)
}

// echo copies each chunk back as soon as it is read. It returns io.EOF once
// the client has closed its side.
func echo(rw io.ReadWriter) error {
	buf := make([]byte, 1024)
	for {
		n, err := rw.Read(buf)
		if n > 0 {
			if _, werr := rw.Write(buf[:n]); werr != nil {
				return fmt.Errorf("write echo: %w", werr)
			}
		}
		if err != nil {
			return fmt.Errorf("read echo: %w", err)
		}
	}
}
