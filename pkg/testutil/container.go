// Package testutil provides testing utilities for Brauwerk backend services.
// It includes testcontainers for PostgreSQL, tenant context helpers,
// mock factories, and common test fixtures.
package testutil

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

// PostgresContainer wraps a testcontainers PostgreSQL instance
type PostgresContainer struct {
	*postgres.PostgresContainer
	DSN string
}

// PostgresContainerConfig configures the test PostgreSQL container
type PostgresContainerConfig struct {
	Database string
	Username string
	Password string
	Image    string // Optional: defaults to postgres:15-alpine
}

// DefaultPostgresConfig returns sensible defaults for test containers
func DefaultPostgresConfig() PostgresContainerConfig {
	return PostgresContainerConfig{
		Database: "brauwerk_test",
		Username: "test",
		Password: "test",
		Image:    "postgres:15-alpine",
	}
}

// NewPostgresContainer creates a new PostgreSQL test container.
//
// Usage:
//
//	func TestMain(m *testing.M) {
//	    ctx := context.Background()
//	    container, err := testutil.NewPostgresContainer(ctx, testutil.DefaultPostgresConfig())
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//	    defer container.Terminate(ctx)
//
//	    // Run tests
//	    code := m.Run()
//	    os.Exit(code)
//	}
func NewPostgresContainer(ctx context.Context, cfg PostgresContainerConfig) (*PostgresContainer, error) {
	if cfg.Image == "" {
		cfg.Image = "postgres:15-alpine"
	}
	if cfg.Database == "" {
		cfg.Database = "brauwerk_test"
	}
	if cfg.Username == "" {
		cfg.Username = "test"
	}
	if cfg.Password == "" {
		cfg.Password = "test"
	}

	container, err := postgres.RunContainer(ctx,
		testcontainers.WithImage(cfg.Image),
		postgres.WithDatabase(cfg.Database),
		postgres.WithUsername(cfg.Username),
		postgres.WithPassword(cfg.Password),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to start postgres container: %w", err)
	}

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		container.Terminate(ctx)
		return nil, fmt.Errorf("failed to get connection string: %w", err)
	}

	return &PostgresContainer{
		PostgresContainer: container,
		DSN:               dsn,
	}, nil
}

// Connect returns a sqlx.DB connection to the container
func (c *PostgresContainer) Connect(ctx context.Context) (*sqlx.DB, error) {
	db, err := sqlx.ConnectContext(ctx, "postgres", c.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to test database: %w", err)
	}
	return db, nil
}

// Terminate stops and removes the container
func (c *PostgresContainer) Terminate(ctx context.Context) error {
	return c.PostgresContainer.Terminate(ctx)
}

// CreateProductionSchema creates the production service tables. All tables
// carry a tenant_id column; isolation is by filtering, not by schema.
func (c *PostgresContainer) CreateProductionSchema(ctx context.Context, db *sqlx.DB) error {
	schema := `
		CREATE TABLE IF NOT EXISTS inventory_items (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			tenant_id UUID NOT NULL,
			sku VARCHAR(100) NOT NULL,
			name VARCHAR(255) NOT NULL,
			category VARCHAR(50) NOT NULL,
			unit VARCHAR(20) NOT NULL,
			cached_balance NUMERIC(18,4) NOT NULL DEFAULT 0,
			reorder_point NUMERIC(18,4),
			cost_per_unit NUMERIC(18,4),
			supplier VARCHAR(255),
			is_active BOOLEAN NOT NULL DEFAULT TRUE,
			balance_updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			CONSTRAINT inventory_items_tenant_sku_key UNIQUE (tenant_id, sku),
			CONSTRAINT inventory_items_balance_nonnegative CHECK (cached_balance >= 0)
		);

		CREATE TABLE IF NOT EXISTS ledger_entries (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			tenant_id UUID NOT NULL,
			item_id UUID NOT NULL REFERENCES inventory_items(id),
			quantity NUMERIC(18,4) NOT NULL,
			entry_type VARCHAR(30) NOT NULL,
			batch_id UUID,
			notes TEXT,
			created_by UUID NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			CONSTRAINT ledger_entries_quantity_nonzero CHECK (quantity <> 0)
		);
		CREATE INDEX IF NOT EXISTS idx_ledger_entries_item
			ON ledger_entries (tenant_id, item_id, created_at DESC);

		CREATE TABLE IF NOT EXISTS batches (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			tenant_id UUID NOT NULL,
			batch_number VARCHAR(100) NOT NULL,
			recipe_id UUID NOT NULL,
			tank_id UUID,
			status VARCHAR(30) NOT NULL DEFAULT 'PLANNED',
			volume NUMERIC(18,4) NOT NULL DEFAULT 0,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			CONSTRAINT batches_tenant_number_key UNIQUE (tenant_id, batch_number),
			CONSTRAINT batches_status_valid CHECK (status IN
				('PLANNED','FERMENTING','CONDITIONING','READY','PACKAGING','COMPLETED','CANCELLED'))
		);

		CREATE TABLE IF NOT EXISTS lots (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			tenant_id UUID NOT NULL,
			lot_code VARCHAR(100) NOT NULL,
			phase VARCHAR(30) NOT NULL,
			status VARCHAR(30) NOT NULL DEFAULT 'PLANNED',
			parent_lot_id UUID REFERENCES lots(id),
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			CONSTRAINT lots_tenant_code_key UNIQUE (tenant_id, lot_code),
			CONSTRAINT lots_phase_valid CHECK (phase IN
				('FERMENTATION','CONDITIONING','PACKAGING')),
			CONSTRAINT lots_status_valid CHECK (status IN
				('PLANNED','ACTIVE','COMPLETED'))
		);

		CREATE TABLE IF NOT EXISTS lot_batches (
			tenant_id UUID NOT NULL,
			lot_id UUID NOT NULL REFERENCES lots(id),
			batch_id UUID NOT NULL REFERENCES batches(id),
			volume_contribution NUMERIC(18,4) NOT NULL,
			PRIMARY KEY (lot_id, batch_id)
		);

		CREATE TABLE IF NOT EXISTS tank_assignments (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			tenant_id UUID NOT NULL,
			lot_id UUID NOT NULL REFERENCES lots(id),
			equipment_id UUID NOT NULL,
			phase VARCHAR(30) NOT NULL,
			status VARCHAR(30) NOT NULL DEFAULT 'PLANNED',
			capacity NUMERIC(18,4) NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);

		CREATE TABLE IF NOT EXISTS batch_timeline_events (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			tenant_id UUID NOT NULL,
			batch_id UUID NOT NULL REFERENCES batches(id),
			event_type VARCHAR(50) NOT NULL,
			description TEXT NOT NULL,
			payload JSONB,
			created_by UUID NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		CREATE INDEX IF NOT EXISTS idx_timeline_batch
			ON batch_timeline_events (tenant_id, batch_id, created_at DESC);
	`

	_, err := db.ExecContext(ctx, schema)
	if err != nil {
		return fmt.Errorf("failed to create production schema: %w", err)
	}

	return nil
}
