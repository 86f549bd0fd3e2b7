package messaging

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Event types
const (
	// Production events
	EventLedgerRecorded   = "production.ledger.recorded"
	EventStockDeducted    = "production.stock.deducted"
	EventStockLow         = "production.stock.low"
	EventPackagingStarted = "production.packaging.started"
)

// Exchange names
const (
	ExchangeProductionEvents = "production.events"
)

// Event is the base event structure
type Event struct {
	ID            string          `json:"id"`
	Type          string          `json:"type"`
	Source        string          `json:"source"`
	Timestamp     time.Time       `json:"timestamp"`
	CorrelationID string          `json:"correlation_id"`
	Data          json.RawMessage `json:"data"`
}

// NewEvent creates a new event with the given type and data
func NewEvent(eventType, source, correlationID string, data interface{}) (*Event, error) {
	dataBytes, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}

	return &Event{
		ID:            uuid.New().String(),
		Type:          eventType,
		Source:        source,
		Timestamp:     time.Now().UTC(),
		CorrelationID: correlationID,
		Data:          dataBytes,
	}, nil
}

// UnmarshalData unmarshals the event data into the provided struct
func (e *Event) UnmarshalData(v interface{}) error {
	return json.Unmarshal(e.Data, v)
}

// LedgerRecordedEvent is published after a ledger entry has been committed.
type LedgerRecordedEvent struct {
	TenantID   string          `json:"tenant_id"`
	EntryID    string          `json:"entry_id"`
	ItemID     string          `json:"item_id"`
	Quantity   decimal.Decimal `json:"quantity"`
	EntryType  string          `json:"entry_type"`
	BatchID    *string         `json:"batch_id,omitempty"`
	NewBalance decimal.Decimal `json:"new_balance"`
	CreatedBy  string          `json:"created_by"`
}

// StockDeductedEvent is published after a committed deduction.
type StockDeductedEvent struct {
	TenantID        string          `json:"tenant_id"`
	ItemID          string          `json:"item_id"`
	ItemName        string          `json:"item_name"`
	Quantity        decimal.Decimal `json:"quantity"`
	PreviousBalance decimal.Decimal `json:"previous_balance"`
	NewBalance      decimal.Decimal `json:"new_balance"`
	BatchID         *string         `json:"batch_id,omitempty"`
}

// StockLowEvent is published when a committed deduction drops an item balance
// to or below its reorder point.
type StockLowEvent struct {
	TenantID     string          `json:"tenant_id"`
	ItemID       string          `json:"item_id"`
	ItemName     string          `json:"item_name"`
	Balance      decimal.Decimal `json:"balance"`
	ReorderPoint decimal.Decimal `json:"reorder_point"`
}

// PackagingStartedEvent is published once per committed packaging transition,
// keyed by the batch the caller named; BlendedBatches counts the full
// transition set including blend siblings.
type PackagingStartedEvent struct {
	TenantID       string  `json:"tenant_id"`
	BatchID        string  `json:"batch_id"`
	BatchNumber    string  `json:"batch_number"`
	LotID          *string `json:"lot_id,omitempty"`
	PackageType    string  `json:"package_type,omitempty"`
	BlendedBatches int     `json:"blended_batches"`
}
