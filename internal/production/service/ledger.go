package service

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/brauwerk/brauwerk-backend/internal/production/events"
	"github.com/brauwerk/brauwerk-backend/internal/production/repository"
	"github.com/brauwerk/brauwerk-backend/pkg/actor"
	"github.com/brauwerk/brauwerk-backend/pkg/database"
	"github.com/brauwerk/brauwerk-backend/pkg/errors"
	"github.com/brauwerk/brauwerk-backend/pkg/logger"
)

const (
	defaultHistoryLimit = 50
	maxHistoryLimit     = 200
)

// LedgerService owns the append-only ledger and its materialized balance
// cache. Every append inserts the immutable entry and adjusts the item's
// cached balance in one transaction, so the invariant
//
//	cached_balance == SUM(ledger entries' quantity)
//
// holds after every committed write. The service applies no sign policy:
// positive and negative quantities are both accepted here, and positivity
// rules belong to DeductionService.
type LedgerService struct {
	db         *database.DB
	itemRepo   *repository.ItemRepository
	ledgerRepo *repository.LedgerRepository
	publisher  *events.ProductionEventPublisher
	logger     *logger.Logger
}

// NewLedgerService creates a new ledger service
func NewLedgerService(
	db *database.DB,
	itemRepo *repository.ItemRepository,
	ledgerRepo *repository.LedgerRepository,
	publisher *events.ProductionEventPublisher,
	log *logger.Logger,
) *LedgerService {
	return &LedgerService{
		db:         db,
		itemRepo:   itemRepo,
		ledgerRepo: ledgerRepo,
		publisher:  publisher,
		logger:     log,
	}
}

// AppendEntryInput describes a ledger append
type AppendEntryInput struct {
	ItemID    string
	Quantity  decimal.Decimal
	EntryType repository.LedgerEntryType
	BatchID   *string
	Notes     *string
}

// AppendResult is the outcome of a committed ledger append
type AppendResult struct {
	Entry           *repository.LedgerEntry `json:"entry"`
	PreviousBalance decimal.Decimal         `json:"previous_balance"`
	NewBalance      decimal.Decimal         `json:"new_balance"`
}

// Append records a signed quantity movement and updates the cached balance
// atomically. The quantity must be non-zero and the entry type must be a known
// variant; the item must exist within the caller's tenant.
func (s *LedgerService) Append(ctx context.Context, in AppendEntryInput) (*AppendResult, error) {
	if in.Quantity.IsZero() {
		return nil, errors.Validation(map[string]string{"quantity": "must not be zero"})
	}
	if !in.EntryType.Valid() {
		return nil, errors.Validation(map[string]string{"entry_type": "is not a recognized entry type"})
	}

	var result *AppendResult
	err := s.db.Transaction(ctx, func(ctx context.Context) error {
		r, err := s.append(ctx, in)
		if err != nil {
			return err
		}
		result = r
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publisher.PublishLedgerRecorded(ctx, result.Entry, result.NewBalance)
	return result, nil
}

// append performs the locked insert + balance update. It requires an ambient
// transaction: the row lock taken here must live until the caller commits.
func (s *LedgerService) append(ctx context.Context, in AppendEntryInput) (*AppendResult, error) {
	item, err := s.itemRepo.GetByIDForUpdate(ctx, in.ItemID)
	if err != nil {
		return nil, err
	}

	entry := &repository.LedgerEntry{
		ItemID:    item.ID,
		Quantity:  in.Quantity,
		EntryType: in.EntryType,
		BatchID:   in.BatchID,
		Notes:     in.Notes,
		CreatedBy: actor.ActorID(ctx),
	}
	if err := s.ledgerRepo.Insert(ctx, entry); err != nil {
		return nil, err
	}

	newBalance, err := s.itemRepo.ApplyBalanceDelta(ctx, item.ID, in.Quantity)
	if err != nil {
		return nil, err
	}

	return &AppendResult{
		Entry:           entry,
		PreviousBalance: item.CachedBalance,
		NewBalance:      newBalance,
	}, nil
}

// GetBalance returns the item's cached balance. This is an O(1) read of the
// materialized value, not a ledger scan.
func (s *LedgerService) GetBalance(ctx context.Context, itemID string) (decimal.Decimal, error) {
	item, err := s.itemRepo.GetByID(ctx, itemID)
	if err != nil {
		return decimal.Zero, err
	}
	return item.CachedBalance, nil
}

// GetHistory lists the item's ledger entries, most recent first
func (s *LedgerService) GetHistory(ctx context.Context, itemID string, limit, offset int) ([]*repository.LedgerEntry, error) {
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	if limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}
	if offset < 0 {
		offset = 0
	}

	// Existence check so a bad item ID reports NotFound instead of an empty list
	if _, err := s.itemRepo.GetByID(ctx, itemID); err != nil {
		return nil, err
	}

	return s.ledgerRepo.ListByItem(ctx, itemID, limit, offset)
}
