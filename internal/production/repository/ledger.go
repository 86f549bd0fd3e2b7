package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/brauwerk/brauwerk-backend/pkg/database"
	"github.com/brauwerk/brauwerk-backend/pkg/tenant"
)

// LedgerEntryType classifies a signed quantity movement
type LedgerEntryType string

const (
	EntryPurchase         LedgerEntryType = "PURCHASE"
	EntryConsumption      LedgerEntryType = "CONSUMPTION"
	EntryAdjustmentAdd    LedgerEntryType = "ADJUSTMENT_ADD"
	EntryAdjustmentRemove LedgerEntryType = "ADJUSTMENT_REMOVE"
	EntryReturn           LedgerEntryType = "RETURN"
	EntryProduction       LedgerEntryType = "PRODUCTION"
)

// Valid reports whether the entry type is a known variant
func (t LedgerEntryType) Valid() bool {
	switch t {
	case EntryPurchase, EntryConsumption, EntryAdjustmentAdd,
		EntryAdjustmentRemove, EntryReturn, EntryProduction:
		return true
	}
	return false
}

// Decreases reports whether this movement type takes stock out. Decrease-type
// movements are checked against the available balance before being written.
func (t LedgerEntryType) Decreases() bool {
	switch t {
	case EntryConsumption, EntryAdjustmentRemove:
		return true
	}
	return false
}

// LedgerEntry is an immutable signed quantity movement for one inventory item.
// Entries are never updated or deleted; corrections are made by appending an
// offsetting entry.
type LedgerEntry struct {
	ID        string          `db:"id" json:"id"`
	TenantID  string          `db:"tenant_id" json:"-"`
	ItemID    string          `db:"item_id" json:"item_id"`
	Quantity  decimal.Decimal `db:"quantity" json:"quantity"`
	EntryType LedgerEntryType `db:"entry_type" json:"entry_type"`
	BatchID   *string         `db:"batch_id" json:"batch_id,omitempty"`
	Notes     *string         `db:"notes" json:"notes,omitempty"`
	CreatedBy string          `db:"created_by" json:"created_by"`
	CreatedAt time.Time       `db:"created_at" json:"created_at"`
}

// LedgerRepository handles ledger entry persistence. The table is append-only:
// there is deliberately no Update or Delete here.
type LedgerRepository struct {
	db *database.DB
}

// NewLedgerRepository creates a new ledger repository
func NewLedgerRepository(db *database.DB) *LedgerRepository {
	return &LedgerRepository{db: db}
}

// Insert appends a ledger entry
func (r *LedgerRepository) Insert(ctx context.Context, entry *LedgerEntry) error {
	tenantID, err := tenant.TenantID(ctx)
	if err != nil {
		return err
	}

	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}
	entry.TenantID = tenantID

	query := `
		INSERT INTO ledger_entries (
			id, tenant_id, item_id, quantity, entry_type, batch_id, notes, created_by
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at
	`

	err = r.db.QueryRowxContext(ctx, query,
		entry.ID, tenantID, entry.ItemID, entry.Quantity, entry.EntryType,
		entry.BatchID, entry.Notes, entry.CreatedBy,
	).Scan(&entry.CreatedAt)
	if err != nil {
		if appErr := database.MapPQError(err); appErr != nil {
			return appErr
		}
		return err
	}
	return nil
}

// ListByItem lists ledger entries for an item, most recent first. The offset
// makes the listing restartable for paging through long histories.
func (r *LedgerRepository) ListByItem(ctx context.Context, itemID string, limit, offset int) ([]*LedgerEntry, error) {
	tenantID, err := tenant.TenantID(ctx)
	if err != nil {
		return nil, err
	}

	var entries []*LedgerEntry
	query := `
		SELECT * FROM ledger_entries
		WHERE item_id = $1 AND tenant_id = $2
		ORDER BY created_at DESC, id DESC
		LIMIT $3 OFFSET $4
	`
	if err := r.db.SelectContext(ctx, &entries, query, itemID, tenantID, limit, offset); err != nil {
		return nil, err
	}
	return entries, nil
}

// SumByItem returns the sum of all ledger entry quantities for an item. After
// any committed write this must equal the item's cached balance; used by
// consistency checks and tests.
func (r *LedgerRepository) SumByItem(ctx context.Context, itemID string) (decimal.Decimal, error) {
	tenantID, err := tenant.TenantID(ctx)
	if err != nil {
		return decimal.Zero, err
	}

	var sum decimal.Decimal
	query := `
		SELECT COALESCE(SUM(quantity), 0) FROM ledger_entries
		WHERE item_id = $1 AND tenant_id = $2
	`
	if err := r.db.QueryRowxContext(ctx, query, itemID, tenantID).Scan(&sum); err != nil {
		return decimal.Zero, err
	}
	return sum, nil
}
