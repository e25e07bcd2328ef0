package postgres_test

import (
	"os"
	"testing"
	"time"

	"priceledger/config"
)

// testConfig points at a local Postgres. Tests needing a live database are
// skipped unless PRICELEDGER_TEST_POSTGRES_HOST is set.
func testConfig(t *testing.T, dbName string) config.PostgresConfig {
	t.Helper()

	host := os.Getenv("PRICELEDGER_TEST_POSTGRES_HOST")
	if host == "" {
		t.Skip("PRICELEDGER_TEST_POSTGRES_HOST not set")
	}

	return config.PostgresConfig{
		Host:     host,
		Port:     5432,
		User:     "postgres",
		Password: os.Getenv("PRICELEDGER_TEST_POSTGRES_PASSWORD"),
		DBName:   dbName,
		SSLMode:  "disable",
		TimeZone: "UTC",

		MaxOpenConns:    10,
		MaxIdleConns:    5,
		ConnMaxLifetime: 1 * time.Hour,
	}
}
