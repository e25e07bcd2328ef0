package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"priceledger/config"
	"priceledger/internal/retention"
	"priceledger/internal/server"
	"priceledger/logger"
	"priceledger/pkg/storage/postgres"
	"priceledger/pkg/storage/redis"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const usage = `usage: priceledger [command] [flags]

commands:
  serve      run the listeners (default)
  sessions   list archived sessions (--since, --id)
  send       send frames to a running server (--addr I,ts,price Q,min,max ...)
`

func main() {
	cmd, args := "serve", os.Args[1:]
	if len(args) > 0 && !strings.HasPrefix(args[0], "-") {
		cmd, args = args[0], args[1:]
	}

	switch cmd {
	case "serve":
		serve()
	case "sessions":
		if err := sessionsCommand(args, os.Stdout); err != nil {
			fmt.Fprintln(os.Stderr, "sessions:", err)
			os.Exit(1)
		}
	case "send":
		if err := sendCommand(args, os.Stdout); err != nil {
			fmt.Fprintln(os.Stderr, "send:", err)
			os.Exit(1)
		}
	default:
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}
}

func serve() {
	// viper config
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	// zap logger
	log, err := logger.New(cfg.Log)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Fatal("price ledger failed", zap.Error(err))
	}
	log.Info("shutdown complete")
}

func run(ctx context.Context, cfg *config.Config, log *zap.Logger) error {
	g, ctx := errgroup.WithContext(ctx)

	var recorders []server.Recorder

	// Session archive in Postgres, pruned daily
	if cfg.Postgres.Enabled {
		postgresClient, err := postgres.InitializeAndMigrateSessionRecord(cfg.Postgres, cfg.Log.Environment, true)
		if err != nil {
			return fmt.Errorf("failed to connect to DB: %w", err)
		}
		defer postgresClient.Close()
		recorders = append(recorders, postgresClient)

		scheduler := &retention.Scheduler{
			Pruner: postgresClient,
			MaxAge: cfg.Retention.MaxAge,
			Logger: log.Named("retention"),
		}
		g.Go(func() error {
			scheduler.Run(ctx)
			return nil
		})
	}

	// Running totals in Redis
	if cfg.Redis.Enabled {
		stats := redis.NewStatsClient(redis.NewClient(cfg.Redis), cfg.Redis.Key)
		defer stats.Close()

		if !stats.IsHealthy(ctx) {
			log.Warn("redis not reachable, session totals may be lost", zap.String("addr", cfg.Redis.Addr))
		}
		recorders = append(recorders, stats)
	}

	srv := server.New(log, recorders...)
	srv.SetWSReadLimit(cfg.Server.WSMaxMessage)

	g.Go(func() error {
		return srv.ListenAndServe(ctx, cfg.Server.Addr)
	})

	if cfg.Server.WSAddr != "" {
		g.Go(func() error {
			return srv.ListenAndServeWS(ctx, cfg.Server.WSAddr)
		})
	}

	if cfg.Server.EchoAddr != "" {
		g.Go(func() error {
			return srv.ListenAndServeEcho(ctx, cfg.Server.EchoAddr)
		})
	}

	if cfg.Server.PrimeAddr != "" {
		g.Go(func() error {
			return srv.ListenAndServePrime(ctx, cfg.Server.PrimeAddr)
		})
	}

	return g.Wait()
}
