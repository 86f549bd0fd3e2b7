package testutil

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ItemFixture represents test inventory item data
type ItemFixture struct {
	ID            string
	SKU           string
	Name          string
	Category      string
	Unit          string
	CachedBalance decimal.Decimal
	ReorderPoint  *decimal.Decimal
	IsActive      bool
	CreatedAt     time.Time
}

// BatchFixture represents test batch data
type BatchFixture struct {
	ID          string
	BatchNumber string
	RecipeID    string
	Status      string
	Volume      decimal.Decimal
	CreatedAt   time.Time
}

// LotFixture represents test lot data
type LotFixture struct {
	ID        string
	LotCode   string
	Phase     string
	Status    string
	CreatedAt time.Time
}

// TankFixture represents test tank assignment data
type TankFixture struct {
	ID          string
	LotID       string
	EquipmentID string
	Phase       string
	Status      string
	Capacity    decimal.Decimal
	CreatedAt   time.Time
}

// FixtureFactory creates test fixtures with sensible defaults
type FixtureFactory struct {
	sequence int
}

// NewFixtureFactory creates a new fixture factory
func NewFixtureFactory() *FixtureFactory {
	return &FixtureFactory{sequence: 0}
}

// nextSeq returns the next sequence number for unique values
func (f *FixtureFactory) nextSeq() int {
	f.sequence++
	return f.sequence
}

// Item creates an inventory item fixture with defaults
func (f *FixtureFactory) Item(opts ...func(*ItemFixture)) ItemFixture {
	seq := f.nextSeq()

	item := ItemFixture{
		ID:            uuid.New().String(),
		SKU:           fmt.Sprintf("SKU-%04d", seq),
		Name:          fmt.Sprintf("Test Item %d", seq),
		Category:      "PACKAGING",
		Unit:          "pcs",
		CachedBalance: decimal.NewFromInt(1000),
		IsActive:      true,
		CreatedAt:     time.Now(),
	}

	for _, opt := range opts {
		opt(&item)
	}

	return item
}

// WithBalance sets the item's cached balance
func WithBalance(balance decimal.Decimal) func(*ItemFixture) {
	return func(i *ItemFixture) {
		i.CachedBalance = balance
	}
}

// WithItemName sets the item name
func WithItemName(name string) func(*ItemFixture) {
	return func(i *ItemFixture) {
		i.Name = name
	}
}

// WithCategory sets the item category
func WithCategory(category string) func(*ItemFixture) {
	return func(i *ItemFixture) {
		i.Category = category
	}
}

// WithReorderPoint sets the item's reorder point
func WithReorderPoint(point decimal.Decimal) func(*ItemFixture) {
	return func(i *ItemFixture) {
		i.ReorderPoint = &point
	}
}

// Batch creates a batch fixture with defaults
func (f *FixtureFactory) Batch(opts ...func(*BatchFixture)) BatchFixture {
	seq := f.nextSeq()

	batch := BatchFixture{
		ID:          uuid.New().String(),
		BatchNumber: fmt.Sprintf("B-2026-%04d", seq),
		RecipeID:    uuid.New().String(),
		Status:      "READY",
		Volume:      decimal.NewFromInt(1000),
		CreatedAt:   time.Now(),
	}

	for _, opt := range opts {
		opt(&batch)
	}

	return batch
}

// WithBatchStatus sets the batch status
func WithBatchStatus(status string) func(*BatchFixture) {
	return func(b *BatchFixture) {
		b.Status = status
	}
}

// WithVolume sets the batch volume
func WithVolume(volume decimal.Decimal) func(*BatchFixture) {
	return func(b *BatchFixture) {
		b.Volume = volume
	}
}

// Lot creates a lot fixture with defaults
func (f *FixtureFactory) Lot(opts ...func(*LotFixture)) LotFixture {
	seq := f.nextSeq()

	lot := LotFixture{
		ID:        uuid.New().String(),
		LotCode:   fmt.Sprintf("L-2026-%04d", seq),
		Phase:     "FERMENTATION",
		Status:    "ACTIVE",
		CreatedAt: time.Now(),
	}

	for _, opt := range opts {
		opt(&lot)
	}

	return lot
}

// WithLotPhase sets the lot phase
func WithLotPhase(phase string) func(*LotFixture) {
	return func(l *LotFixture) {
		l.Phase = phase
	}
}

// Tank creates a tank assignment fixture for the given lot
func (f *FixtureFactory) Tank(lotID string, opts ...func(*TankFixture)) TankFixture {
	tank := TankFixture{
		ID:          uuid.New().String(),
		LotID:       lotID,
		EquipmentID: uuid.New().String(),
		Phase:       "FERMENTATION",
		Status:      "ACTIVE",
		Capacity:    decimal.NewFromInt(2000),
		CreatedAt:   time.Now(),
	}

	for _, opt := range opts {
		opt(&tank)
	}

	return tank
}

// WithCapacity sets the tank capacity
func WithCapacity(capacity decimal.Decimal) func(*TankFixture) {
	return func(t *TankFixture) {
		t.Capacity = capacity
	}
}
