package redis

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"priceledger/config"
	"priceledger/internal/server"

	"github.com/redis/go-redis/v9"
)

// Hash fields. Per-reason and per-transport counters are prefixed.
const (
	fieldSessions        = "sessions"
	fieldInserts         = "inserts"
	fieldQueries         = "queries"
	fieldReasonPrefix    = "reason:"
	fieldTransportPrefix = "transport:"
)

// Totals are running counters across every session the service has handled.
type Totals struct {
	Sessions   int64
	Inserts    int64
	Queries    int64
	Reasons    map[string]int64
	Transports map[string]int64
}

// StatsClient keeps session totals in a single Redis hash.
type StatsClient struct {
	rdb *redis.Client
	key string
}

func NewClient(cfg config.RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
}

func NewStatsClient(rdb *redis.Client, key string) *StatsClient {
	return &StatsClient{rdb: rdb, key: key}
}

// RecordSession adds a finished session to the totals. It satisfies server.Recorder.
func (c *StatsClient) RecordSession(ctx context.Context, s server.Summary) error {
	pipe := c.rdb.TxPipeline()
	pipe.HIncrBy(ctx, c.key, fieldSessions, 1)
	pipe.HIncrBy(ctx, c.key, fieldInserts, int64(s.Inserts))
	pipe.HIncrBy(ctx, c.key, fieldQueries, int64(s.Queries))
	pipe.HIncrBy(ctx, c.key, fieldReasonPrefix+s.Reason, 1)
	pipe.HIncrBy(ctx, c.key, fieldTransportPrefix+s.Transport, 1)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("record session totals: %w", err)
	}
	return nil
}

func (c *StatsClient) Totals(ctx context.Context) (Totals, error) {
	raw, err := c.rdb.HGetAll(ctx, c.key).Result()
	if err != nil {
		return Totals{}, fmt.Errorf("read session totals: %w", err)
	}

	t := Totals{
		Reasons:    make(map[string]int64),
		Transports: make(map[string]int64),
	}
	for field, val := range raw {
		n, err := strconv.ParseInt(val, 10, 64)
		if err != nil {
			return Totals{}, fmt.Errorf("parse %s=%q: %w", field, val, err)
		}

		switch {
		case field == fieldSessions:
			t.Sessions = n
		case field == fieldInserts:
			t.Inserts = n
		case field == fieldQueries:
			t.Queries = n
		case strings.HasPrefix(field, fieldReasonPrefix):
			t.Reasons[strings.TrimPrefix(field, fieldReasonPrefix)] = n
		case strings.HasPrefix(field, fieldTransportPrefix):
			t.Transports[strings.TrimPrefix(field, fieldTransportPrefix)] = n
		}
	}
	return t, nil
}

func (c *StatsClient) IsHealthy(ctx context.Context) bool {
	return c.rdb.Ping(ctx).Err() == nil
}

func (c *StatsClient) Close() error {
	return c.rdb.Close()
}
