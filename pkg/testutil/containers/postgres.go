//go:build integration

package containers

import (
	"context"
	"database/sql"
	"testing"

	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"

	"mintpress/internal/platform/config"
	"mintpress/internal/platform/postgres"
)

// PostgresContainer wraps a migrated PostgreSQL instance.
type PostgresContainer struct {
	Container *tcpostgres.PostgresContainer
	URL       string
	DB        *sql.DB
}

// NewPostgresContainer starts PostgreSQL, applies the ledger migrations and
// returns an open handle. Everything is torn down with the test.
func NewPostgresContainer(t *testing.T) *PostgresContainer {
	t.Helper()
	ctx := context.Background()

	container, err := tcpostgres.Run(ctx, "postgres:16-alpine",
		tcpostgres.WithDatabase("mintpress"),
		tcpostgres.WithUsername("mintpress"),
		tcpostgres.WithPassword("mintpress"),
		tcpostgres.BasicWaitStrategies(),
	)
	if err != nil {
		t.Fatalf("failed to start postgres container: %v", err)
	}
	testcontainers.CleanupContainer(t, container)

	url, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("failed to get postgres connection string: %v", err)
	}
	db, err := postgres.Open(ctx, config.Database{URL: url, MaxOpenConns: 10})
	if err != nil {
		t.Fatalf("failed to open postgres: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	if err := postgres.Migrate(ctx, db); err != nil {
		t.Fatalf("failed to migrate postgres: %v", err)
	}
	return &PostgresContainer{Container: container, URL: url, DB: db}
}

// Reset truncates ledger tables and rewinds the counters.
func (p *PostgresContainer) Reset(ctx context.Context) error {
	_, err := p.DB.ExecContext(ctx, `
		TRUNCATE ledger_events, posts, profiles, credentials, wallet_balances;
		UPDATE ledger_counters SET value = 0;
	`)
	return err
}
