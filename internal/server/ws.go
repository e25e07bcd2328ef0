package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"priceledger/internal/ledger"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// WSPath is where the WebSocket transport is mounted.
const WSPath = "/ws"

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// ListenAndServeWS listens on addr and serves the WebSocket transport until ctx is cancelled.
func (s *Server) ListenAndServeWS(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", addr, err)
	}
	return s.ServeWS(ctx, ln)
}

// ServeWS serves ledger sessions over WebSocket. Each binary message carries
// one or more whole frames; each query answer is sent as its own 4-byte
// binary message. Messages larger than the read limit end the session
// with a 1009 close.
func (s *Server) ServeWS(ctx context.Context, ln net.Listener) error {
	mux := http.NewServeMux()
	mux.HandleFunc(WSPath, s.handleWS(ctx))

	httpServer := &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	stop := context.AfterFunc(ctx, func() {
		s.shutdown()
		httpServer.Close()
	})
	defer stop()

	s.logger.Info("price ledger websocket listening", zap.String("addr", ln.Addr().String()), zap.String("path", WSPath))

	if err := httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("serve websocket: %w", err)
	}

	s.wg.Wait()
	return nil
}

func (s *Server) handleWS(ctx context.Context) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			// Upgrade has already replied with an HTTP error
			s.logger.Warn("websocket upgrade failed", zap.String("remote", r.RemoteAddr), zap.Error(err))
			return
		}

		conn.SetReadLimit(s.wsReadLimit)

		netConn := conn.NetConn()
		if !s.track(netConn) {
			conn.Close()
			return
		}
		defer s.untrack(netConn)

		summary := newSummary(TransportWS, r.RemoteAddr)
		sess := ledger.NewSession()

		err = serveMessages(conn, sess)
		if errors.Is(err, ledger.ErrUnknownTag) || errors.Is(err, ErrMalformedMessage) {
			deadline := time.Now().Add(time.Second)
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseProtocolError, ""), deadline)
		}

		s.finish(ctx, summary, sess.Stats(), err)
	}
}

// serveMessages is the WebSocket counterpart of serveStream.
func serveMessages(conn *websocket.Conn, sess *ledger.Session) error {
	for {
		kind, payload, err := conn.ReadMessage()
		if err != nil {
			return fmt.Errorf("read message: %w", err)
		}

		if kind != websocket.BinaryMessage {
			return fmt.Errorf("%w: non-binary message", ErrMalformedMessage)
		}
		if len(payload) == 0 || len(payload)%ledger.FrameSize != 0 {
			return fmt.Errorf("%w: %d bytes is not a whole number of frames", ErrMalformedMessage, len(payload))
		}

		for off := 0; off < len(payload); off += ledger.FrameSize {
			resp, err := sess.OnFrame([ledger.FrameSize]byte(payload[off : off+ledger.FrameSize]))
			if err != nil {
				return err
			}

			if resp != nil {
				if err := conn.WriteMessage(websocket.BinaryMessage, resp); err != nil {
					return fmt.Errorf("write response: %w", err)
				}
			}
		}
	}
}
