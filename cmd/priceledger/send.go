package main

import (
	"errors"
	"fmt"
	"io"
	"net"
	"strconv"
	"strings"
	"time"

	"priceledger/internal/ledger"

	"github.com/spf13/pflag"
)

type sendOptions struct {
	addr    string
	timeout time.Duration
	frames  []ledger.Frame
}

func parseSendFlags(args []string) (sendOptions, error) {
	var opts sendOptions

	fs := pflag.NewFlagSet("send", pflag.ContinueOnError)
	fs.StringVarP(&opts.addr, "addr", "a", "127.0.0.1:8000", "ledger server address")
	fs.DurationVar(&opts.timeout, "timeout", 10*time.Second, "deadline for the whole exchange")

	if err := fs.Parse(args); err != nil {
		return opts, err
	}
	if fs.NArg() == 0 {
		return opts, errors.New("no frames given, expected I,<ts>,<price> or Q,<min>,<max>")
	}

	for _, arg := range fs.Args() {
		f, err := parseFrame(arg)
		if err != nil {
			return opts, err
		}
		opts.frames = append(opts.frames, f)
	}
	return opts, nil
}

// parseFrame reads "I,<timestamp>,<price>" or "Q,<min>,<max>".
func parseFrame(s string) (ledger.Frame, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 3 {
		return ledger.Frame{}, fmt.Errorf("frame %q: expected 3 comma separated fields", s)
	}

	var args [2]int32
	for i, p := range parts[1:] {
		n, err := strconv.ParseInt(strings.TrimSpace(p), 10, 32)
		if err != nil {
			return ledger.Frame{}, fmt.Errorf("frame %q: %w", s, err)
		}
		args[i] = int32(n)
	}

	switch strings.ToUpper(strings.TrimSpace(parts[0])) {
	case "I":
		return ledger.InsertFrame(args[0], args[1]), nil
	case "Q":
		return ledger.QueryFrame(args[0], args[1]), nil
	default:
		return ledger.Frame{}, fmt.Errorf("frame %q: tag must be I or Q", s)
	}
}

func sendCommand(args []string, out io.Writer) error {
	opts, err := parseSendFlags(args)
	if err != nil {
		return err
	}
	return runSend(opts, out)
}

// runSend opens one session, sends every frame in order and prints one line
// per query answer.
func runSend(opts sendOptions, out io.Writer) error {
	conn, err := net.DialTimeout("tcp", opts.addr, opts.timeout)
	if err != nil {
		return fmt.Errorf("dial %s: %w", opts.addr, err)
	}
	defer conn.Close()

	if err := conn.SetDeadline(time.Now().Add(opts.timeout)); err != nil {
		return err
	}

	client := ledger.NewClient(conn)
	for _, f := range opts.frames {
		if f.Tag != ledger.TagQuery {
			if err := client.Insert(f.Arg1, f.Arg2); err != nil {
				return err
			}
			continue
		}

		mean, err := client.Query(f.Arg1, f.Arg2)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "Q %d %d = %d\n", f.Arg1, f.Arg2, mean)
	}
	return nil
}
