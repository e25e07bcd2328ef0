package postgres_test

import (
	"testing"

	"priceledger/pkg/storage/postgres"
)

// go test -v --run TestCreateDatabase
func TestCreateDatabase(t *testing.T) {
	cfg := testConfig(t, "priceledger_create_test")

	if err := postgres.CreateDatabase(cfg, "dev"); err != nil {
		t.Fatalf("failed to create database: %v", err)
	}

	// second call must be a no-op
	if err := postgres.CreateDatabase(cfg, "dev"); err != nil {
		t.Fatalf("second create failed: %v", err)
	}
}
