package server

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/big"
	"net"
	"strconv"

	"priceledger/internal/ledger"
)

const (
	primeMethod = "isPrime"

	// maxPrimeLine bounds a single request line.
	maxPrimeLine = 64 * 1024
)

// invalidPrimeReply is sent, without a newline, before closing on a malformed request.
var invalidPrimeReply = []byte("Invalid request")

type primeRequest struct {
	Method *string         `json:"method"`
	Number json.RawMessage `json:"number"`
}

type primeResponse struct {
	Method string `json:"method"`
	Prime  bool   `json:"prime"`
}

// ListenAndServePrime listens on addr and answers primality requests until ctx is cancelled.
func (s *Server) ListenAndServePrime(ctx context.Context, addr string) error {
	ln, err := listen(addr)
	if err != nil {
		return err
	}
	return s.ServePrime(ctx, ln)
}

// ServePrime answers newline-delimited JSON requests of the form
// {"method":"isPrime","number":N} with {"method":"isPrime","prime":B}.
// A malformed request is answered with "Invalid request" and the
// connection is closed.
func (s *Server) ServePrime(ctx context.Context, ln net.Listener) error {
	return s.serve(ctx, ln, "prime", s.handlePrime)
}

func (s *Server) handlePrime(ctx context.Context, conn net.Conn) {
	summary := newSummary(TransportPrime, conn.RemoteAddr().String())

	answered, err := servePrime(conn)
	if errors.Is(err, ErrMalformedMessage) {
		_, _ = conn.Write(invalidPrimeReply)
	}
	s.finish(ctx, summary, ledger.Stats{Queries: answered}, err)
}

// servePrime answers one request per line and reports how many it answered.
func servePrime(rw io.ReadWriter) (uint64, error) {
	var answered uint64

	scanner := bufio.NewScanner(rw)
	scanner.Buffer(make([]byte, 0, 1024), maxPrimeLine)

	for scanner.Scan() {
		prime, err := parsePrimeRequest(scanner.Bytes())
		if err != nil {
			return answered, err
		}

		line, err := json.Marshal(primeResponse{Method: primeMethod, Prime: prime})
		if err != nil {
			return answered, fmt.Errorf("encode response: %w", err)
		}
		if _, err := rw.Write(append(line, '\n')); err != nil {
			return answered, fmt.Errorf("write response: %w", err)
		}
		answered++
	}

	switch err := scanner.Err(); {
	case errors.Is(err, bufio.ErrTooLong):
		return answered, fmt.Errorf("%w: request line exceeds %d bytes", ErrMalformedMessage, maxPrimeLine)
	case err != nil:
		return answered, fmt.Errorf("read request: %w", err)
	default:
		return answered, io.EOF
	}
}

// parsePrimeRequest validates one request line and reports whether its number
// is prime. Numbers that are negative, fractional or beyond uint64 are never prime.
func parsePrimeRequest(line []byte) (bool, error) {
	var req primeRequest
	if err := json.Unmarshal(line, &req); err != nil {
		return false, fmt.Errorf("%w: %v", ErrMalformedMessage, err)
	}
	if req.Method == nil || *req.Method != primeMethod {
		return false, fmt.Errorf("%w: method must be %q", ErrMalformedMessage, primeMethod)
	}

	num := bytes.TrimSpace(req.Number)
	if len(num) == 0 || (num[0] != '-' && (num[0] < '0' || num[0] > '9')) {
		return false, fmt.Errorf("%w: number is missing or not numeric", ErrMalformedMessage)
	}

	if bytes.ContainsAny(num, ".eE") {
		return false, nil
	}
	n, err := strconv.ParseUint(string(num), 10, 64)
	if err != nil {
		return false, nil
	}
	return new(big.Int).SetUint64(n).ProbablyPrime(0), nil
}
