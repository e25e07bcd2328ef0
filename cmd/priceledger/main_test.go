package main

import (
	"bytes"
	"context"
	"errors"
	"net"
	"strings"
	"testing"
	"time"

	"priceledger/internal/ledger"
	"priceledger/internal/server"
	"priceledger/pkg/storage/postgres"

	"go.uber.org/zap"
)

// go test -v --run TestParseFrame
func TestParseFrame(t *testing.T) {
	tests := []struct {
		in      string
		want    ledger.Frame
		wantErr bool
	}{
		{"I,1000,100", ledger.InsertFrame(1000, 100), false},
		{"q, -5 ,2147483647", ledger.QueryFrame(-5, 2147483647), false},
		{"I,1,2147483648", ledger.Frame{}, true},
		{"X,1,2", ledger.Frame{}, true},
		{"I,1", ledger.Frame{}, true},
		{"Q,a,b", ledger.Frame{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := parseFrame(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("parseFrame(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("parseFrame(%q) = %+v, want %+v", tt.in, got, tt.want)
			}
		})
	}
}

// go test -v --run TestRunSend
func TestRunSend(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen failed: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- server.New(zap.NewNop()).Serve(ctx, ln) }()
	defer func() {
		cancel()
		if err := <-errCh; err != nil {
			t.Errorf("Serve returned error: %v", err)
		}
	}()

	opts, err := parseSendFlags([]string{
		"--addr", ln.Addr().String(),
		"I,1000,100", "I,1010,200", "I,1020,300",
		"Q,1000,1020", "Q,2000,1000",
	})
	if err != nil {
		t.Fatalf("parse flags failed: %v", err)
	}

	var out bytes.Buffer
	if err := runSend(opts, &out); err != nil {
		t.Fatalf("runSend failed: %v", err)
	}

	want := "Q 1000 1020 = 200\nQ 2000 1000 = 0\n"
	if out.String() != want {
		t.Errorf("output = %q, want %q", out.String(), want)
	}
}

// go test -v --run TestParseSendFlagsNeedsFrames
func TestParseSendFlagsNeedsFrames(t *testing.T) {
	if _, err := parseSendFlags([]string{"--addr", "localhost:1"}); err == nil {
		t.Fatal("expected an error when no frames are given")
	}
}

type fakeStore struct {
	records []postgres.SessionRecord
	since   time.Time
}

func (f *fakeStore) GetSession(_ context.Context, id string) (*postgres.SessionRecord, error) {
	for i := range f.records {
		if f.records[i].SessionID == id {
			return &f.records[i], nil
		}
	}
	return nil, errors.New("record not found")
}

func (f *fakeStore) ListSessions(_ context.Context, since time.Time) ([]postgres.SessionRecord, error) {
	f.since = since
	return f.records, nil
}

// go test -v --run TestListSessions
func TestListSessions(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	store := &fakeStore{records: []postgres.SessionRecord{
		{SessionID: "a", Transport: "tcp", Remote: "10.0.0.1:5000", Reason: "eof",
			StartedAt: now.Add(-time.Hour), EndedAt: now.Add(-time.Hour + 1500*time.Millisecond), Inserts: 3, Queries: 1, Entries: 3},
		{SessionID: "b", Transport: "ws", Remote: "10.0.0.2:5001", Reason: "shutdown",
			StartedAt: now.Add(-time.Minute), EndedAt: now, Queries: 2},
	}}

	opts, err := parseSessionsFlags([]string{"--since", "2h"})
	if err != nil {
		t.Fatalf("parse flags failed: %v", err)
	}

	var out bytes.Buffer
	if err := listSessions(context.Background(), store, opts, now, &out); err != nil {
		t.Fatalf("listSessions failed: %v", err)
	}

	if !store.since.Equal(now.Add(-2 * time.Hour)) {
		t.Errorf("expected cutoff %v, got %v", now.Add(-2*time.Hour), store.since)
	}

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected header and 2 rows, got:\n%s", out.String())
	}
	if fields := strings.Fields(lines[1]); fields[0] != "a" || fields[4] != "1.5s" || fields[8] != "eof" {
		t.Errorf("unexpected row: %q", lines[1])
	}

	out.Reset()
	if err := listSessions(context.Background(), store, sessionsOptions{id: "b", since: time.Hour}, now, &out); err != nil {
		t.Fatalf("listSessions by id failed: %v", err)
	}
	if !strings.Contains(out.String(), "shutdown") || strings.Contains(out.String(), "10.0.0.1") {
		t.Errorf("expected only session b, got:\n%s", out.String())
	}

	if err := listSessions(context.Background(), store, sessionsOptions{id: "missing", since: time.Hour}, now, &out); err == nil {
		t.Error("expected an error for an unknown session ID")
	}
}
