package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"github.com/brauwerk/brauwerk-backend/pkg/database"
	"github.com/brauwerk/brauwerk-backend/pkg/errors"
	"github.com/brauwerk/brauwerk-backend/pkg/tenant"
)

// BatchStatus is the lifecycle state of a brewing run
type BatchStatus string

const (
	BatchPlanned      BatchStatus = "PLANNED"
	BatchFermenting   BatchStatus = "FERMENTING"
	BatchConditioning BatchStatus = "CONDITIONING"
	BatchReady        BatchStatus = "READY"
	BatchPackaging    BatchStatus = "PACKAGING"
	BatchCompleted    BatchStatus = "COMPLETED"
	BatchCancelled    BatchStatus = "CANCELLED"
)

// Valid reports whether the status is a known variant
func (s BatchStatus) Valid() bool {
	switch s {
	case BatchPlanned, BatchFermenting, BatchConditioning, BatchReady,
		BatchPackaging, BatchCompleted, BatchCancelled:
		return true
	}
	return false
}

// Terminal reports whether the status permits no further transitions
func (s BatchStatus) Terminal() bool {
	return s == BatchCompleted || s == BatchCancelled
}

// Batch represents one brewing run
type Batch struct {
	ID          string          `db:"id" json:"id"`
	TenantID    string          `db:"tenant_id" json:"-"`
	BatchNumber string          `db:"batch_number" json:"batch_number"`
	RecipeID    string          `db:"recipe_id" json:"recipe_id"`
	TankID      *string         `db:"tank_id" json:"tank_id,omitempty"`
	Status      BatchStatus     `db:"status" json:"status"`
	Volume      decimal.Decimal `db:"volume" json:"volume"`
	CreatedAt   time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time       `db:"updated_at" json:"updated_at"`
}

// BatchRepository handles batch persistence
type BatchRepository struct {
	db *database.DB
}

// NewBatchRepository creates a new batch repository
func NewBatchRepository(db *database.DB) *BatchRepository {
	return &BatchRepository{db: db}
}

// Create creates a new batch
func (r *BatchRepository) Create(ctx context.Context, batch *Batch) error {
	tenantID, err := tenant.TenantID(ctx)
	if err != nil {
		return err
	}

	if batch.ID == "" {
		batch.ID = uuid.New().String()
	}
	if batch.Status == "" {
		batch.Status = BatchPlanned
	}
	batch.TenantID = tenantID

	query := `
		INSERT INTO batches (
			id, tenant_id, batch_number, recipe_id, tank_id, status, volume
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at, updated_at
	`

	err = r.db.QueryRowxContext(ctx, query,
		batch.ID, tenantID, batch.BatchNumber, batch.RecipeID, batch.TankID,
		batch.Status, batch.Volume,
	).Scan(&batch.CreatedAt, &batch.UpdatedAt)
	if err != nil {
		if appErr := database.MapPQError(err); appErr != nil {
			return appErr
		}
		return err
	}
	return nil
}

// GetByID gets a batch by ID
func (r *BatchRepository) GetByID(ctx context.Context, id string) (*Batch, error) {
	tenantID, err := tenant.TenantID(ctx)
	if err != nil {
		return nil, err
	}

	var batch Batch
	query := `SELECT * FROM batches WHERE id = $1 AND tenant_id = $2`
	if err := r.db.GetContext(ctx, &batch, query, id, tenantID); err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.NotFound("batch")
		}
		return nil, err
	}
	return &batch, nil
}

// GetByIDForUpdate gets a batch by ID and takes a row lock on it. Must be
// called inside a transaction.
func (r *BatchRepository) GetByIDForUpdate(ctx context.Context, id string) (*Batch, error) {
	tenantID, err := tenant.TenantID(ctx)
	if err != nil {
		return nil, err
	}

	var batch Batch
	query := `SELECT * FROM batches WHERE id = $1 AND tenant_id = $2 FOR UPDATE`
	if err := r.db.GetContext(ctx, &batch, query, id, tenantID); err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.NotFound("batch")
		}
		return nil, err
	}
	return &batch, nil
}

// ListByIDs lists batches by their IDs
func (r *BatchRepository) ListByIDs(ctx context.Context, ids []string) ([]*Batch, error) {
	tenantID, err := tenant.TenantID(ctx)
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, nil
	}

	var batches []*Batch
	query := `
		SELECT * FROM batches
		WHERE id = ANY($1) AND tenant_id = $2
		ORDER BY batch_number
	`
	if err := r.db.SelectContext(ctx, &batches, query, pq.Array(ids), tenantID); err != nil {
		return nil, err
	}
	return batches, nil
}

// UpdateStatus sets the status of every given batch. Returns the number of
// rows updated so the caller can detect a partial match.
func (r *BatchRepository) UpdateStatus(ctx context.Context, ids []string, status BatchStatus) (int64, error) {
	tenantID, err := tenant.TenantID(ctx)
	if err != nil {
		return 0, err
	}
	if len(ids) == 0 {
		return 0, nil
	}

	query := `
		UPDATE batches
		SET status = $3, updated_at = NOW()
		WHERE id = ANY($1) AND tenant_id = $2
	`
	result, err := r.db.ExecContext(ctx, query, pq.Array(ids), tenantID, status)
	if err != nil {
		if appErr := database.MapPQError(err); appErr != nil {
			return 0, appErr
		}
		return 0, err
	}
	return result.RowsAffected()
}
