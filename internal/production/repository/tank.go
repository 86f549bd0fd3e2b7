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

// AssignmentStatus is the lifecycle state of a tank assignment
type AssignmentStatus string

const (
	AssignmentPlanned   AssignmentStatus = "PLANNED"
	AssignmentActive    AssignmentStatus = "ACTIVE"
	AssignmentCompleted AssignmentStatus = "COMPLETED"
)

// Valid reports whether the status is a known variant
func (s AssignmentStatus) Valid() bool {
	switch s {
	case AssignmentPlanned, AssignmentActive, AssignmentCompleted:
		return true
	}
	return false
}

// TankAssignment records which physical vessel a lot currently occupies and in
// which phase. Capacity is captured from the equipment at assignment time.
// Exactly one non-completed assignment should exist per active lot; completed
// assignments are retained for audit.
type TankAssignment struct {
	ID          string           `db:"id" json:"id"`
	TenantID    string           `db:"tenant_id" json:"-"`
	LotID       string           `db:"lot_id" json:"lot_id"`
	EquipmentID string           `db:"equipment_id" json:"equipment_id"`
	Phase       LotPhase         `db:"phase" json:"phase"`
	Status      AssignmentStatus `db:"status" json:"status"`
	Capacity    decimal.Decimal  `db:"capacity" json:"capacity"`
	CreatedAt   time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time        `db:"updated_at" json:"updated_at"`
}

// TankRepository handles tank assignment persistence
type TankRepository struct {
	db *database.DB
}

// NewTankRepository creates a new tank repository
func NewTankRepository(db *database.DB) *TankRepository {
	return &TankRepository{db: db}
}

// Create creates a new tank assignment
func (r *TankRepository) Create(ctx context.Context, assignment *TankAssignment) error {
	tenantID, err := tenant.TenantID(ctx)
	if err != nil {
		return err
	}

	if assignment.ID == "" {
		assignment.ID = uuid.New().String()
	}
	if assignment.Status == "" {
		assignment.Status = AssignmentPlanned
	}
	assignment.TenantID = tenantID

	query := `
		INSERT INTO tank_assignments (
			id, tenant_id, lot_id, equipment_id, phase, status, capacity
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at, updated_at
	`

	err = r.db.QueryRowxContext(ctx, query,
		assignment.ID, tenantID, assignment.LotID, assignment.EquipmentID,
		assignment.Phase, assignment.Status, assignment.Capacity,
	).Scan(&assignment.CreatedAt, &assignment.UpdatedAt)
	if err != nil {
		if appErr := database.MapPQError(err); appErr != nil {
			return appErr
		}
		return err
	}
	return nil
}

// ActiveByLot returns the most recent non-completed tank assignment for a lot,
// or NotFound when the lot has no active assignment
func (r *TankRepository) ActiveByLot(ctx context.Context, lotID string) (*TankAssignment, error) {
	tenantID, err := tenant.TenantID(ctx)
	if err != nil {
		return nil, err
	}

	var assignment TankAssignment
	query := `
		SELECT * FROM tank_assignments
		WHERE lot_id = $1 AND tenant_id = $2 AND status != 'COMPLETED'
		ORDER BY created_at DESC
		LIMIT 1
	`
	if err := r.db.GetContext(ctx, &assignment, query, lotID, tenantID); err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.NotFound("tank assignment")
		}
		return nil, err
	}
	return &assignment, nil
}

// UpdateActiveForLot sets phase and status on every non-completed assignment
// of the lot. Returns the number of assignments updated.
func (r *TankRepository) UpdateActiveForLot(ctx context.Context, lotID string, phase LotPhase, status AssignmentStatus) (int64, error) {
	tenantID, err := tenant.TenantID(ctx)
	if err != nil {
		return 0, err
	}

	query := `
		UPDATE tank_assignments
		SET phase = $3, status = $4, updated_at = NOW()
		WHERE lot_id = $1 AND tenant_id = $2 AND status != 'COMPLETED'
	`
	result, err := r.db.ExecContext(ctx, query, lotID, tenantID, phase, status)
	if err != nil {
		if appErr := database.MapPQError(err); appErr != nil {
			return 0, appErr
		}
		return 0, err
	}
	return result.RowsAffected()
}
