package events

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/brauwerk/brauwerk-backend/internal/production/repository"
	"github.com/brauwerk/brauwerk-backend/pkg/logger"
	"github.com/brauwerk/brauwerk-backend/pkg/messaging"
	"github.com/brauwerk/brauwerk-backend/pkg/tenant"
)

// ProductionEventPublisher publishes production-related events. Publishing is
// best-effort and happens after commit: a broker failure is logged and never
// fails the business operation.
type ProductionEventPublisher struct {
	publisher *messaging.Publisher
	logger    *logger.Logger
}

// NewProductionEventPublisher creates a new production event publisher
func NewProductionEventPublisher(rmq *messaging.RabbitMQ, log *logger.Logger) (*ProductionEventPublisher, error) {
	publisher, err := messaging.NewPublisher(rmq, messaging.ExchangeProductionEvents, "production-service", log)
	if err != nil {
		return nil, err
	}

	return &ProductionEventPublisher{
		publisher: publisher,
		logger:    log,
	}, nil
}

// PublishLedgerRecorded publishes a ledger recorded event
func (p *ProductionEventPublisher) PublishLedgerRecorded(ctx context.Context, entry *repository.LedgerEntry, newBalance decimal.Decimal) {
	if p == nil {
		return
	}

	tenantID, _ := tenant.TenantID(ctx)
	data := messaging.LedgerRecordedEvent{
		TenantID:   tenantID,
		EntryID:    entry.ID,
		ItemID:     entry.ItemID,
		Quantity:   entry.Quantity,
		EntryType:  string(entry.EntryType),
		BatchID:    entry.BatchID,
		NewBalance: newBalance,
		CreatedBy:  entry.CreatedBy,
	}

	if err := p.publisher.Publish(ctx, messaging.EventLedgerRecorded, data); err != nil {
		p.logger.Error().Err(err).Str("item_id", entry.ItemID).Msg("failed to publish ledger recorded event")
	}
}

// PublishStockDeducted publishes a stock deducted event
func (p *ProductionEventPublisher) PublishStockDeducted(ctx context.Context, item *repository.InventoryItem, quantity, previousBalance, newBalance decimal.Decimal, batchID *string) {
	if p == nil {
		return
	}

	tenantID, _ := tenant.TenantID(ctx)
	data := messaging.StockDeductedEvent{
		TenantID:        tenantID,
		ItemID:          item.ID,
		ItemName:        item.Name,
		Quantity:        quantity,
		PreviousBalance: previousBalance,
		NewBalance:      newBalance,
		BatchID:         batchID,
	}

	if err := p.publisher.Publish(ctx, messaging.EventStockDeducted, data); err != nil {
		p.logger.Error().Err(err).Str("item_id", item.ID).Msg("failed to publish stock deducted event")
	}
}

// PublishStockLow publishes a low stock event when a balance drops to or below
// the item's reorder point
func (p *ProductionEventPublisher) PublishStockLow(ctx context.Context, item *repository.InventoryItem, balance decimal.Decimal) {
	if p == nil {
		return
	}
	if !item.ReorderPoint.Valid {
		return
	}

	tenantID, _ := tenant.TenantID(ctx)
	data := messaging.StockLowEvent{
		TenantID:     tenantID,
		ItemID:       item.ID,
		ItemName:     item.Name,
		Balance:      balance,
		ReorderPoint: item.ReorderPoint.Decimal,
	}

	if err := p.publisher.Publish(ctx, messaging.EventStockLow, data); err != nil {
		p.logger.Error().Err(err).Str("item_id", item.ID).Msg("failed to publish stock low event")
	}
}

// PublishPackagingStarted publishes a packaging started event for one batch in
// the transition set
func (p *ProductionEventPublisher) PublishPackagingStarted(ctx context.Context, batch *repository.Batch, lotID *string, packageType string, blendedBatches int) {
	if p == nil {
		return
	}

	tenantID, _ := tenant.TenantID(ctx)
	data := messaging.PackagingStartedEvent{
		TenantID:       tenantID,
		BatchID:        batch.ID,
		BatchNumber:    batch.BatchNumber,
		LotID:          lotID,
		PackageType:    packageType,
		BlendedBatches: blendedBatches,
	}

	if err := p.publisher.Publish(ctx, messaging.EventPackagingStarted, data); err != nil {
		p.logger.Error().Err(err).Str("batch_id", batch.ID).Msg("failed to publish packaging started event")
	}
}
