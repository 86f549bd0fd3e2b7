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

// ItemCategory classifies an inventory item
type ItemCategory string

const (
	CategoryRawMaterial ItemCategory = "RAW_MATERIAL"
	CategoryPackaging   ItemCategory = "PACKAGING"
	CategoryConsumable  ItemCategory = "CONSUMABLE"
	CategoryMerchandise ItemCategory = "MERCHANDISE"
)

// Valid reports whether the category is a known variant
func (c ItemCategory) Valid() bool {
	switch c {
	case CategoryRawMaterial, CategoryPackaging, CategoryConsumable, CategoryMerchandise:
		return true
	}
	return false
}

// InventoryItem represents an inventory item. CachedBalance is a materialized
// running total of the item's ledger entries and is only ever mutated together
// with a ledger insert, inside the same transaction.
type InventoryItem struct {
	ID               string              `db:"id" json:"id"`
	TenantID         string              `db:"tenant_id" json:"-"`
	SKU              string              `db:"sku" json:"sku"`
	Name             string              `db:"name" json:"name"`
	Category         ItemCategory        `db:"category" json:"category"`
	Unit             string              `db:"unit" json:"unit"`
	CachedBalance    decimal.Decimal     `db:"cached_balance" json:"cached_balance"`
	ReorderPoint     decimal.NullDecimal `db:"reorder_point" json:"reorder_point,omitempty"`
	CostPerUnit      decimal.NullDecimal `db:"cost_per_unit" json:"cost_per_unit,omitempty"`
	Supplier         *string             `db:"supplier" json:"supplier,omitempty"`
	IsActive         bool                `db:"is_active" json:"is_active"`
	BalanceUpdatedAt time.Time           `db:"balance_updated_at" json:"balance_updated_at"`
	CreatedAt        time.Time           `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time           `db:"updated_at" json:"updated_at"`
}

// ItemRepository handles inventory item persistence
type ItemRepository struct {
	db *database.DB
}

// NewItemRepository creates a new item repository
func NewItemRepository(db *database.DB) *ItemRepository {
	return &ItemRepository{db: db}
}

// Create creates a new inventory item
func (r *ItemRepository) Create(ctx context.Context, item *InventoryItem) error {
	tenantID, err := tenant.TenantID(ctx)
	if err != nil {
		return err
	}

	if item.ID == "" {
		item.ID = uuid.New().String()
	}
	item.TenantID = tenantID

	query := `
		INSERT INTO inventory_items (
			id, tenant_id, sku, name, category, unit, cached_balance,
			reorder_point, cost_per_unit, supplier, is_active, balance_updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, NOW())
		RETURNING balance_updated_at, created_at, updated_at
	`

	err = r.db.QueryRowxContext(ctx, query,
		item.ID, tenantID, item.SKU, item.Name, item.Category, item.Unit,
		item.CachedBalance, item.ReorderPoint, item.CostPerUnit, item.Supplier,
		item.IsActive,
	).Scan(&item.BalanceUpdatedAt, &item.CreatedAt, &item.UpdatedAt)
	if err != nil {
		if appErr := database.MapPQError(err); appErr != nil {
			return appErr
		}
		return err
	}
	return nil
}

// GetByID gets an item by ID
func (r *ItemRepository) GetByID(ctx context.Context, id string) (*InventoryItem, error) {
	tenantID, err := tenant.TenantID(ctx)
	if err != nil {
		return nil, err
	}

	var item InventoryItem
	query := `SELECT * FROM inventory_items WHERE id = $1 AND tenant_id = $2`
	if err := r.db.GetContext(ctx, &item, query, id, tenantID); err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.NotFound("inventory item")
		}
		return nil, err
	}
	return &item, nil
}

// GetByIDForUpdate gets an item by ID and takes a row lock on it. Must be
// called inside a transaction; the lock serializes concurrent balance checks
// against the same item until commit.
func (r *ItemRepository) GetByIDForUpdate(ctx context.Context, id string) (*InventoryItem, error) {
	tenantID, err := tenant.TenantID(ctx)
	if err != nil {
		return nil, err
	}

	var item InventoryItem
	query := `SELECT * FROM inventory_items WHERE id = $1 AND tenant_id = $2 FOR UPDATE`
	if err := r.db.GetContext(ctx, &item, query, id, tenantID); err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.NotFound("inventory item")
		}
		return nil, err
	}
	return &item, nil
}

// FindActiveByExactName finds an active item of the given category whose name
// matches exactly
func (r *ItemRepository) FindActiveByExactName(ctx context.Context, category ItemCategory, name string) (*InventoryItem, error) {
	tenantID, err := tenant.TenantID(ctx)
	if err != nil {
		return nil, err
	}

	var item InventoryItem
	query := `
		SELECT * FROM inventory_items
		WHERE tenant_id = $1 AND category = $2 AND name = $3 AND is_active = true
		ORDER BY created_at
		LIMIT 1
	`
	if err := r.db.GetContext(ctx, &item, query, tenantID, category, name); err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.NotFound("inventory item")
		}
		return nil, err
	}
	return &item, nil
}

// FindActiveByNameKeywords finds an active item of the given category whose
// name contains any of the keywords (case-insensitive). Ordering by name keeps
// the fallback deterministic.
func (r *ItemRepository) FindActiveByNameKeywords(ctx context.Context, category ItemCategory, keywords []string) (*InventoryItem, error) {
	tenantID, err := tenant.TenantID(ctx)
	if err != nil {
		return nil, err
	}
	if len(keywords) == 0 {
		return nil, errors.NotFound("inventory item")
	}

	patterns := make([]string, len(keywords))
	for i, kw := range keywords {
		patterns[i] = "%" + kw + "%"
	}

	var item InventoryItem
	query := `
		SELECT * FROM inventory_items
		WHERE tenant_id = $1 AND category = $2 AND is_active = true
		  AND name ILIKE ANY($3)
		ORDER BY name
		LIMIT 1
	`
	if err := r.db.GetContext(ctx, &item, query, tenantID, category, pq.Array(patterns)); err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.NotFound("inventory item")
		}
		return nil, err
	}
	return &item, nil
}

// FirstActiveByCategory returns the oldest active item of the given category
func (r *ItemRepository) FirstActiveByCategory(ctx context.Context, category ItemCategory) (*InventoryItem, error) {
	tenantID, err := tenant.TenantID(ctx)
	if err != nil {
		return nil, err
	}

	var item InventoryItem
	query := `
		SELECT * FROM inventory_items
		WHERE tenant_id = $1 AND category = $2 AND is_active = true
		ORDER BY created_at
		LIMIT 1
	`
	if err := r.db.GetContext(ctx, &item, query, tenantID, category); err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.NotFound("inventory item")
		}
		return nil, err
	}
	return &item, nil
}

// ApplyBalanceDelta adjusts the cached balance of an item and stamps
// balance_updated_at. Only the ledger append path may call this, inside the
// same transaction as the ledger insert.
func (r *ItemRepository) ApplyBalanceDelta(ctx context.Context, itemID string, delta decimal.Decimal) (decimal.Decimal, error) {
	tenantID, err := tenant.TenantID(ctx)
	if err != nil {
		return decimal.Zero, err
	}

	var newBalance decimal.Decimal
	query := `
		UPDATE inventory_items
		SET cached_balance = cached_balance + $3, balance_updated_at = NOW(), updated_at = NOW()
		WHERE id = $1 AND tenant_id = $2
		RETURNING cached_balance
	`
	if err := r.db.QueryRowxContext(ctx, query, itemID, tenantID, delta).Scan(&newBalance); err != nil {
		if err == sql.ErrNoRows {
			return decimal.Zero, errors.NotFound("inventory item")
		}
		if appErr := database.MapPQError(err); appErr != nil {
			return decimal.Zero, appErr
		}
		return decimal.Zero, err
	}
	return newBalance, nil
}
