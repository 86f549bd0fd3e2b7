package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/brauwerk/brauwerk-backend/pkg/database"
	"github.com/brauwerk/brauwerk-backend/pkg/errors"
	"github.com/brauwerk/brauwerk-backend/pkg/tenant"
)

// LotPhase is the production phase a lot currently represents
type LotPhase string

const (
	PhaseFermentation LotPhase = "FERMENTATION"
	PhaseConditioning LotPhase = "CONDITIONING"
	PhasePackaging    LotPhase = "PACKAGING"
)

// Valid reports whether the phase is a known variant
func (p LotPhase) Valid() bool {
	switch p {
	case PhaseFermentation, PhaseConditioning, PhasePackaging:
		return true
	}
	return false
}

// LotStatus is the lifecycle state of a lot
type LotStatus string

const (
	LotPlanned   LotStatus = "PLANNED"
	LotActive    LotStatus = "ACTIVE"
	LotCompleted LotStatus = "COMPLETED"
)

// Valid reports whether the status is a known variant
func (s LotStatus) Valid() bool {
	switch s {
	case LotPlanned, LotActive, LotCompleted:
		return true
	}
	return false
}

// Lot is a blending container aggregating volume from one or more batches
// sharing a tank assignment. A lot with more than one member batch is a blend:
// its batches must always be transitioned together.
type Lot struct {
	ID          string    `db:"id" json:"id"`
	TenantID    string    `db:"tenant_id" json:"-"`
	LotCode     string    `db:"lot_code" json:"lot_code"`
	Phase       LotPhase  `db:"phase" json:"phase"`
	Status      LotStatus `db:"status" json:"status"`
	ParentLotID *string   `db:"parent_lot_id" json:"parent_lot_id,omitempty"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

// LotMember is a lot membership row joined with the member batch's current
// state. VolumeContribution is fixed at blend time. BatchStatus is nil when
// the underlying batch row no longer exists.
type LotMember struct {
	LotID              string          `db:"lot_id" json:"lot_id"`
	BatchID            string          `db:"batch_id" json:"batch_id"`
	VolumeContribution decimal.Decimal `db:"volume_contribution" json:"volume_contribution"`
	BatchStatus        *BatchStatus    `db:"batch_status" json:"batch_status,omitempty"`
}

// LotRepository handles lot and lot membership persistence
type LotRepository struct {
	db *database.DB
}

// NewLotRepository creates a new lot repository
func NewLotRepository(db *database.DB) *LotRepository {
	return &LotRepository{db: db}
}

// Create creates a new lot
func (r *LotRepository) Create(ctx context.Context, lot *Lot) error {
	tenantID, err := tenant.TenantID(ctx)
	if err != nil {
		return err
	}

	if lot.ID == "" {
		lot.ID = uuid.New().String()
	}
	if lot.Status == "" {
		lot.Status = LotPlanned
	}
	lot.TenantID = tenantID

	query := `
		INSERT INTO lots (
			id, tenant_id, lot_code, phase, status, parent_lot_id
		) VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at, updated_at
	`

	err = r.db.QueryRowxContext(ctx, query,
		lot.ID, tenantID, lot.LotCode, lot.Phase, lot.Status, lot.ParentLotID,
	).Scan(&lot.CreatedAt, &lot.UpdatedAt)
	if err != nil {
		if appErr := database.MapPQError(err); appErr != nil {
			return appErr
		}
		return err
	}
	return nil
}

// AddBatch registers a batch as a member of a lot with its fixed volume
// contribution
func (r *LotRepository) AddBatch(ctx context.Context, lotID, batchID string, volumeContribution decimal.Decimal) error {
	tenantID, err := tenant.TenantID(ctx)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO lot_batches (tenant_id, lot_id, batch_id, volume_contribution)
		VALUES ($1, $2, $3, $4)
	`
	if _, err := r.db.ExecContext(ctx, query, tenantID, lotID, batchID, volumeContribution); err != nil {
		if appErr := database.MapPQError(err); appErr != nil {
			return appErr
		}
		return err
	}
	return nil
}

// FindActiveByBatch returns the non-completed lot the batch belongs to, or
// NotFound when the batch is not a member of any active lot. A batch may
// belong to at most one non-completed lot at a time.
func (r *LotRepository) FindActiveByBatch(ctx context.Context, batchID string) (*Lot, error) {
	tenantID, err := tenant.TenantID(ctx)
	if err != nil {
		return nil, err
	}

	var lot Lot
	query := `
		SELECT l.* FROM lots l
		JOIN lot_batches lb ON lb.lot_id = l.id
		WHERE lb.batch_id = $1 AND l.tenant_id = $2 AND l.status != 'COMPLETED'
		ORDER BY l.created_at DESC
		LIMIT 1
	`
	if err := r.db.GetContext(ctx, &lot, query, batchID, tenantID); err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.NotFound("lot")
		}
		return nil, err
	}
	return &lot, nil
}

// ListMembers lists the lot's memberships joined with each member batch's
// current status
func (r *LotRepository) ListMembers(ctx context.Context, lotID string) ([]*LotMember, error) {
	tenantID, err := tenant.TenantID(ctx)
	if err != nil {
		return nil, err
	}

	var members []*LotMember
	query := `
		SELECT lb.lot_id, lb.batch_id, lb.volume_contribution, b.status AS batch_status
		FROM lot_batches lb
		LEFT JOIN batches b ON b.id = lb.batch_id AND b.tenant_id = lb.tenant_id
		WHERE lb.lot_id = $1 AND lb.tenant_id = $2
		ORDER BY lb.batch_id
	`
	if err := r.db.SelectContext(ctx, &members, query, lotID, tenantID); err != nil {
		return nil, err
	}
	return members, nil
}

// UpdatePhaseStatus sets the lot's phase and status
func (r *LotRepository) UpdatePhaseStatus(ctx context.Context, lotID string, phase LotPhase, status LotStatus) error {
	tenantID, err := tenant.TenantID(ctx)
	if err != nil {
		return err
	}

	query := `
		UPDATE lots
		SET phase = $3, status = $4, updated_at = NOW()
		WHERE id = $1 AND tenant_id = $2
	`
	result, err := r.db.ExecContext(ctx, query, lotID, tenantID, phase, status)
	if err != nil {
		if appErr := database.MapPQError(err); appErr != nil {
			return appErr
		}
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return errors.NotFound("lot")
	}
	return nil
}

// ListActiveTopLevel lists top-level lots (no parent) in the given phase with
// status PLANNED or ACTIVE and at least one member batch
func (r *LotRepository) ListActiveTopLevel(ctx context.Context, phase LotPhase) ([]*Lot, error) {
	tenantID, err := tenant.TenantID(ctx)
	if err != nil {
		return nil, err
	}

	var lots []*Lot
	query := `
		SELECT l.* FROM lots l
		WHERE l.tenant_id = $1
		  AND l.parent_lot_id IS NULL
		  AND l.phase = $2
		  AND l.status IN ('PLANNED', 'ACTIVE')
		  AND EXISTS (SELECT 1 FROM lot_batches lb WHERE lb.lot_id = l.id)
		ORDER BY l.created_at DESC
	`
	if err := r.db.SelectContext(ctx, &lots, query, tenantID, phase); err != nil {
		return nil, err
	}
	return lots, nil
}
