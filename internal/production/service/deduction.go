package service

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/brauwerk/brauwerk-backend/internal/production/events"
	"github.com/brauwerk/brauwerk-backend/internal/production/repository"
	"github.com/brauwerk/brauwerk-backend/pkg/database"
	"github.com/brauwerk/brauwerk-backend/pkg/errors"
	"github.com/brauwerk/brauwerk-backend/pkg/logger"
)

// adjustmentTypes are the movement types accepted by Adjust
var adjustmentTypes = map[repository.LedgerEntryType]bool{
	repository.EntryPurchase:         true,
	repository.EntryReturn:           true,
	repository.EntryAdjustmentAdd:    true,
	repository.EntryAdjustmentRemove: true,
}

// DeductionService is the only writer of decrease-type ledger entries. It
// enforces the non-negative balance rule: the balance read, the check and the
// ledger append all happen inside one transaction, with the item row locked,
// so two concurrent deductions cannot both pass the check against the same
// stale balance.
type DeductionService struct {
	db        *database.DB
	resolver  *ItemResolver
	itemRepo  *repository.ItemRepository
	ledger    *LedgerService
	publisher *events.ProductionEventPublisher
	logger    *logger.Logger
}

// NewDeductionService creates a new deduction service
func NewDeductionService(
	db *database.DB,
	resolver *ItemResolver,
	itemRepo *repository.ItemRepository,
	ledger *LedgerService,
	publisher *events.ProductionEventPublisher,
	log *logger.Logger,
) *DeductionService {
	return &DeductionService{
		db:        db,
		resolver:  resolver,
		itemRepo:  itemRepo,
		ledger:    ledger,
		publisher: publisher,
		logger:    log,
	}
}

// DeductInput describes a stock deduction. Quantity is always a magnitude;
// the service negates it internally.
type DeductInput struct {
	ItemID   *string
	Category repository.ItemCategory
	TypeHint string
	Quantity decimal.Decimal
	BatchID  *string
	Notes    *string
}

// DeductionResult is the outcome of a committed deduction
type DeductionResult struct {
	Item            *repository.InventoryItem `json:"item"`
	PreviousBalance decimal.Decimal           `json:"previous_balance"`
	NewBalance      decimal.Decimal           `json:"new_balance"`
	Entry           *repository.LedgerEntry   `json:"ledger_entry"`
}

// Deduct resolves the item and removes the given quantity from stock. A
// deduction that would drive the balance negative is rejected with
// InsufficientStock and writes nothing.
func (s *DeductionService) Deduct(ctx context.Context, in DeductInput) (*DeductionResult, error) {
	if !in.Quantity.IsPositive() {
		return nil, errors.Validation(map[string]string{"quantity": "must be greater than zero"})
	}

	var result *DeductionResult
	err := s.db.Transaction(ctx, func(ctx context.Context) error {
		// Resolve inside the transaction so the balance check below runs
		// against the same row the resolver picked.
		resolved, err := s.resolver.Resolve(ctx, ResolveRequest{
			ItemID:   in.ItemID,
			Category: in.Category,
			TypeHint: in.TypeHint,
		})
		if err != nil {
			return err
		}

		item, err := s.itemRepo.GetByIDForUpdate(ctx, resolved.ID)
		if err != nil {
			return err
		}

		newBalance := item.CachedBalance.Sub(in.Quantity)
		if newBalance.IsNegative() {
			return errors.InsufficientStock(item.CachedBalance.String(), in.Quantity.String())
		}

		appended, err := s.ledger.append(ctx, AppendEntryInput{
			ItemID:    item.ID,
			Quantity:  in.Quantity.Neg(),
			EntryType: repository.EntryConsumption,
			BatchID:   in.BatchID,
			Notes:     in.Notes,
		})
		if err != nil {
			return err
		}

		result = &DeductionResult{
			Item:            item,
			PreviousBalance: appended.PreviousBalance,
			NewBalance:      appended.NewBalance,
			Entry:           appended.Entry,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publisher.PublishStockDeducted(ctx, result.Item, in.Quantity, result.PreviousBalance, result.NewBalance, in.BatchID)
	if result.Item.ReorderPoint.Valid && result.NewBalance.LessThanOrEqual(result.Item.ReorderPoint.Decimal) {
		s.publisher.PublishStockLow(ctx, result.Item, result.NewBalance)
	}

	return result, nil
}

// AdjustInput describes a stock adjustment. Quantity is always a magnitude;
// the sign is derived from the entry type.
type AdjustInput struct {
	ItemID    string
	Quantity  decimal.Decimal
	EntryType repository.LedgerEntryType
	Notes     *string
}

// Adjust records a non-consumption stock movement (purchase, return, manual
// correction). Decrease-type movements are checked against the available
// balance; increase-type movements are not.
func (s *DeductionService) Adjust(ctx context.Context, in AdjustInput) (*DeductionResult, error) {
	if !in.Quantity.IsPositive() {
		return nil, errors.Validation(map[string]string{"quantity": "must be greater than zero"})
	}
	if !adjustmentTypes[in.EntryType] {
		return nil, errors.Validation(map[string]string{"entry_type": "must be one of: PURCHASE, RETURN, ADJUSTMENT_ADD, ADJUSTMENT_REMOVE"})
	}

	quantity := in.Quantity
	if in.EntryType.Decreases() {
		quantity = quantity.Neg()
	}

	var result *DeductionResult
	err := s.db.Transaction(ctx, func(ctx context.Context) error {
		item, err := s.itemRepo.GetByIDForUpdate(ctx, in.ItemID)
		if err != nil {
			return err
		}

		if in.EntryType.Decreases() && item.CachedBalance.Sub(in.Quantity).IsNegative() {
			return errors.InsufficientStock(item.CachedBalance.String(), in.Quantity.String())
		}

		appended, err := s.ledger.append(ctx, AppendEntryInput{
			ItemID:    item.ID,
			Quantity:  quantity,
			EntryType: in.EntryType,
			Notes:     in.Notes,
		})
		if err != nil {
			return err
		}

		result = &DeductionResult{
			Item:            item,
			PreviousBalance: appended.PreviousBalance,
			NewBalance:      appended.NewBalance,
			Entry:           appended.Entry,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publisher.PublishLedgerRecorded(ctx, result.Entry, result.NewBalance)
	return result, nil
}
