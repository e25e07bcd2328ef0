package main

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"priceledger/config"
	"priceledger/pkg/storage/postgres"

	"github.com/spf13/pflag"
)

// sessionStore is the read side of the session archive.
type sessionStore interface {
	GetSession(ctx context.Context, sessionID string) (*postgres.SessionRecord, error)
	ListSessions(ctx context.Context, since time.Time) ([]postgres.SessionRecord, error)
}

type sessionsOptions struct {
	since time.Duration
	id    string
}

func parseSessionsFlags(args []string) (sessionsOptions, error) {
	var opts sessionsOptions

	fs := pflag.NewFlagSet("sessions", pflag.ContinueOnError)
	fs.DurationVar(&opts.since, "since", 24*time.Hour, "list sessions started within this window")
	fs.StringVar(&opts.id, "id", "", "show a single session by ID")

	if err := fs.Parse(args); err != nil {
		return opts, err
	}
	if opts.since <= 0 {
		return opts, fmt.Errorf("--since must be positive, got %s", opts.since)
	}
	return opts, nil
}

func sessionsCommand(args []string, out io.Writer) error {
	opts, err := parseSessionsFlags(args)
	if err != nil {
		return err
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	client, err := postgres.NewClient(cfg.Postgres.DSN(cfg.Log.Environment))
	if err != nil {
		return err
	}
	defer client.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	return listSessions(ctx, client, opts, time.Now().UTC(), out)
}

// listSessions prints either one session or every session started after now-since.
func listSessions(ctx context.Context, store sessionStore, opts sessionsOptions, now time.Time, out io.Writer) error {
	var records []postgres.SessionRecord

	if opts.id != "" {
		record, err := store.GetSession(ctx, opts.id)
		if err != nil {
			return fmt.Errorf("get session %s: %w", opts.id, err)
		}
		records = append(records, *record)
	} else {
		var err error
		records, err = store.ListSessions(ctx, now.Add(-opts.since))
		if err != nil {
			return fmt.Errorf("list sessions: %w", err)
		}
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "SESSION\tTRANSPORT\tREMOTE\tSTARTED\tDURATION\tINSERTS\tQUERIES\tENTRIES\tREASON")
	for _, r := range records {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%d\t%d\t%d\t%s\n",
			r.SessionID, r.Transport, r.Remote,
			r.StartedAt.UTC().Format(time.RFC3339),
			r.EndedAt.Sub(r.StartedAt).Round(time.Millisecond),
			r.Inserts, r.Queries, r.Entries, r.Reason)
	}
	return w.Flush()
}
