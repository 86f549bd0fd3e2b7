package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx/types"

	"github.com/brauwerk/brauwerk-backend/pkg/database"
	"github.com/brauwerk/brauwerk-backend/pkg/tenant"
)

// Timeline event types
const (
	TimelinePackagingStarted = "PACKAGING_STARTED"
)

// TimelineEvent is an audit record appended when a batch changes state. The
// payload carries operation-specific structured data (e.g. package type and
// quantity for a packaging start).
type TimelineEvent struct {
	ID          string         `db:"id" json:"id"`
	TenantID    string         `db:"tenant_id" json:"-"`
	BatchID     string         `db:"batch_id" json:"batch_id"`
	EventType   string         `db:"event_type" json:"event_type"`
	Description string         `db:"description" json:"description"`
	Payload     types.JSONText `db:"payload" json:"payload,omitempty"`
	CreatedBy   string         `db:"created_by" json:"created_by"`
	CreatedAt   time.Time      `db:"created_at" json:"created_at"`
}

// TimelineRepository handles batch timeline persistence. Timeline events are
// append-only.
type TimelineRepository struct {
	db *database.DB
}

// NewTimelineRepository creates a new timeline repository
func NewTimelineRepository(db *database.DB) *TimelineRepository {
	return &TimelineRepository{db: db}
}

// Insert appends a timeline event
func (r *TimelineRepository) Insert(ctx context.Context, event *TimelineEvent) error {
	tenantID, err := tenant.TenantID(ctx)
	if err != nil {
		return err
	}

	if event.ID == "" {
		event.ID = uuid.New().String()
	}
	event.TenantID = tenantID

	query := `
		INSERT INTO batch_timeline_events (
			id, tenant_id, batch_id, event_type, description, payload, created_by
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at
	`

	err = r.db.QueryRowxContext(ctx, query,
		event.ID, tenantID, event.BatchID, event.EventType, event.Description,
		event.Payload, event.CreatedBy,
	).Scan(&event.CreatedAt)
	if err != nil {
		if appErr := database.MapPQError(err); appErr != nil {
			return appErr
		}
		return err
	}
	return nil
}

// ListByBatch lists timeline events for a batch, most recent first
func (r *TimelineRepository) ListByBatch(ctx context.Context, batchID string, limit int) ([]*TimelineEvent, error) {
	tenantID, err := tenant.TenantID(ctx)
	if err != nil {
		return nil, err
	}

	var events []*TimelineEvent
	query := `
		SELECT * FROM batch_timeline_events
		WHERE batch_id = $1 AND tenant_id = $2
		ORDER BY created_at DESC
		LIMIT $3
	`
	if err := r.db.SelectContext(ctx, &events, query, batchID, tenantID, limit); err != nil {
		return nil, err
	}
	return events, nil
}
