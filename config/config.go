package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Log       LogConfig       `mapstructure:"log"`
	Postgres  PostgresConfig  `mapstructure:"postgres"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Retention RetentionConfig `mapstructure:"retention"`
}

type ServerConfig struct {
	Addr         string `mapstructure:"addr"`           // TCP listen address for the binary protocol
	WSAddr       string `mapstructure:"ws_addr"`        // WebSocket listen address; empty disables it
	WSMaxMessage int64  `mapstructure:"ws_max_message"` // largest WebSocket message accepted, in bytes
	EchoAddr     string `mapstructure:"echo_addr"`      // echo listen address; empty disables it
	PrimeAddr    string `mapstructure:"prime_addr"`     // isPrime listen address; empty disables it
}

// LogConfig defines the logger configuration options.
type LogConfig struct {
	Level       string `mapstructure:"level"`       // log level: "debug", "info", "warn", "error"
	Format      string `mapstructure:"format"`      // log format: "json" or "console"
	OutputFile  string `mapstructure:"output_file"` // file path to store logs (optional)
	Environment string `mapstructure:"environment"` // environment: "dev" or "prod"
}

type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	Key      string `mapstructure:"key"` // hash holding running session totals
}

type RetentionConfig struct {
	MaxAge time.Duration `mapstructure:"max_age"` // archived sessions older than this are pruned
}

// Load loads application configuration using Viper.
// It reads config.yaml from the given directories (or the default locations
// when none are given) and overrides with environment variables. A missing
// config file is not an error; defaults apply.
func Load(paths ...string) (*Config, error) {
	// .env is optional; real environment variables take precedence
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)

	v.SetConfigName("config") // config.yaml
	v.SetConfigType("yaml")

	if len(paths) == 0 {
		paths = defaultPaths()
	}
	for _, p := range paths {
		v.AddConfigPath(p)
	}

	// Support environment variables with dot notation (e.g., SERVER_ADDR)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if cfg.Server.Addr == "" {
		return nil, errors.New("server.addr cannot be empty")
	}
	if cfg.Server.WSMaxMessage < 9 {
		return nil, fmt.Errorf("server.ws_max_message must hold at least one frame, got %d", cfg.Server.WSMaxMessage)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.addr", ":8000")
	v.SetDefault("server.ws_addr", "")
	v.SetDefault("server.ws_max_message", 128*9)
	v.SetDefault("server.echo_addr", "")
	v.SetDefault("server.prime_addr", "")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("log.output_file", "")
	v.SetDefault("log.environment", "dev")

	v.SetDefault("postgres.enabled", false)
	v.SetDefault("postgres.host", "localhost")
	v.SetDefault("postgres.port", 5432)
	v.SetDefault("postgres.user", "postgres")
	v.SetDefault("postgres.password", "")
	v.SetDefault("postgres.dbname", "priceledger")
	v.SetDefault("postgres.sslmode", "disable")
	v.SetDefault("postgres.timezone", "UTC")
	v.SetDefault("postgres.max_open_conns", 10)
	v.SetDefault("postgres.max_idle_conns", 5)
	v.SetDefault("postgres.conn_max_lifetime", time.Hour)

	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.key", "priceledger:sessions")

	v.SetDefault("retention.max_age", 30*24*time.Hour)
}

// defaultPaths mirrors the repository layout: ../config relative to the
// binary, or ../../config when run through `go run`.
func defaultPaths() []string {
	ex, err := os.Executable()
	if err != nil {
		return []string{"config"}
	}

	if strings.Contains(ex, "go-build") {
		pwd, _ := os.Getwd()
		return []string{filepath.Join(pwd, "../../config"), "config"}
	}
	return []string{filepath.Join(filepath.Dir(ex), "../config"), "config"}
}
