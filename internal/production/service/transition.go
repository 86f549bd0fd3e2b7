package service

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jmoiron/sqlx/types"
	"github.com/shopspring/decimal"

	"github.com/brauwerk/brauwerk-backend/internal/production/events"
	"github.com/brauwerk/brauwerk-backend/internal/production/repository"
	"github.com/brauwerk/brauwerk-backend/pkg/actor"
	"github.com/brauwerk/brauwerk-backend/pkg/database"
	"github.com/brauwerk/brauwerk-backend/pkg/errors"
	"github.com/brauwerk/brauwerk-backend/pkg/logger"
)

// TransitionService moves batches between production stages. Transitions on a
// blended batch fan out to every batch in the lot: a blend is physically one
// liquid, so its members can never be in different stages.
type TransitionService struct {
	db           *database.DB
	batchRepo    *repository.BatchRepository
	lotRepo      *repository.LotRepository
	tankRepo     *repository.TankRepository
	timelineRepo *repository.TimelineRepository
	publisher    *events.ProductionEventPublisher
	logger       *logger.Logger
}

// NewTransitionService creates a new transition service
func NewTransitionService(
	db *database.DB,
	batchRepo *repository.BatchRepository,
	lotRepo *repository.LotRepository,
	tankRepo *repository.TankRepository,
	timelineRepo *repository.TimelineRepository,
	publisher *events.ProductionEventPublisher,
	log *logger.Logger,
) *TransitionService {
	return &TransitionService{
		db:           db,
		batchRepo:    batchRepo,
		lotRepo:      lotRepo,
		tankRepo:     tankRepo,
		timelineRepo: timelineRepo,
		publisher:    publisher,
		logger:       log,
	}
}

// StartPackagingInput describes a packaging start request
type StartPackagingInput struct {
	BatchID     string
	PackageType string
	Quantity    *decimal.Decimal
	Notes       *string
}

// StartPackagingResult is the outcome of a committed packaging transition.
// Batches holds the full transition set as persisted, blend siblings included.
type StartPackagingResult struct {
	BatchID               string              `json:"batch_id"`
	Batch                 *repository.Batch   `json:"batch"`
	Batches               []*repository.Batch `json:"batches"`
	LotID                 *string             `json:"lot_id,omitempty"`
	BlendedBatchesUpdated int                 `json:"blended_batches_updated"`
}

type packagingPayload struct {
	PackageType string           `json:"package_type"`
	Quantity    *decimal.Decimal `json:"quantity,omitempty"`
	Notes       *string          `json:"notes,omitempty"`
	LotID       *string          `json:"lot_id,omitempty"`
}

// StartPackaging transitions the batch, every sibling in its blend lot, the
// lot itself and the lot's active tank assignment to the packaging stage in a
// single transaction. The batch must be READY; siblings already in a terminal
// state (COMPLETED, CANCELLED) are left alone. A batch with no active lot
// transitions by itself.
func (s *TransitionService) StartPackaging(ctx context.Context, in StartPackagingInput) (*StartPackagingResult, error) {
	if in.PackageType == "" {
		return nil, errors.Validation(map[string]string{"package_type": "is required"})
	}
	if in.Quantity != nil && !in.Quantity.IsPositive() {
		return nil, errors.Validation(map[string]string{"quantity": "must be greater than zero"})
	}

	var result *StartPackagingResult
	err := s.db.Transaction(ctx, func(ctx context.Context) error {
		// Lock the target batch first; concurrent transitions on the same
		// batch or blend serialize here.
		batch, err := s.batchRepo.GetByIDForUpdate(ctx, in.BatchID)
		if err != nil {
			return err
		}
		if batch.Status != repository.BatchReady {
			return errors.InvalidState("batch", string(batch.Status), string(repository.BatchReady))
		}

		batchIDs := []string{batch.ID}
		var lot *repository.Lot

		lot, err = s.lotRepo.FindActiveByBatch(ctx, batch.ID)
		switch {
		case err == nil:
			members, err := s.lotRepo.ListMembers(ctx, lot.ID)
			if err != nil {
				return err
			}
			batchIDs = batchIDs[:0]
			for _, m := range members {
				// Rows whose batch is gone or already in a terminal state
				// stay out of the transition set.
				if m.BatchStatus == nil || m.BatchStatus.Terminal() {
					continue
				}
				batchIDs = append(batchIDs, m.BatchID)
			}
		case errors.Is(err, errors.ErrNotFound):
			lot = nil
		default:
			return err
		}

		updated, err := s.batchRepo.UpdateStatus(ctx, batchIDs, repository.BatchPackaging)
		if err != nil {
			return err
		}
		if updated != int64(len(batchIDs)) {
			return errors.PersistenceFailure(fmt.Errorf("expected %d batch updates, got %d", len(batchIDs), updated))
		}

		batches, err := s.batchRepo.ListByIDs(ctx, batchIDs)
		if err != nil {
			return err
		}

		var lotID *string
		if lot != nil {
			if err := s.lotRepo.UpdatePhaseStatus(ctx, lot.ID, repository.PhasePackaging, repository.LotActive); err != nil {
				return err
			}
			if _, err := s.tankRepo.UpdateActiveForLot(ctx, lot.ID, repository.PhasePackaging, repository.AssignmentActive); err != nil {
				return err
			}
			lotID = &lot.ID
		}

		payload, err := json.Marshal(packagingPayload{
			PackageType: in.PackageType,
			Quantity:    in.Quantity,
			Notes:       in.Notes,
			LotID:       lotID,
		})
		if err != nil {
			return errors.Internal("failed to encode timeline payload")
		}

		for _, id := range batchIDs {
			event := &repository.TimelineEvent{
				BatchID:     id,
				EventType:   repository.TimelinePackagingStarted,
				Description: fmt.Sprintf("Packaging started (%s)", in.PackageType),
				Payload:     types.JSONText(payload),
				CreatedBy:   actor.ActorID(ctx),
			}
			if err := s.timelineRepo.Insert(ctx, event); err != nil {
				return err
			}
		}

		batch.Status = repository.BatchPackaging
		result = &StartPackagingResult{
			BatchID:               batch.ID,
			Batch:                 batch,
			Batches:               batches,
			LotID:                 lotID,
			BlendedBatchesUpdated: len(batchIDs),
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publisher.PublishPackagingStarted(ctx, result.Batch, result.LotID, in.PackageType, result.BlendedBatchesUpdated)

	s.logger.WithComponent("transition").Info().
		Str("batch_id", result.BatchID).
		Int("blended_batches", result.BlendedBatchesUpdated).
		Msg("packaging started")

	return result, nil
}

// GetTimeline lists a batch's timeline events, most recent first
func (s *TransitionService) GetTimeline(ctx context.Context, batchID string, limit int) ([]*repository.TimelineEvent, error) {
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	if limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}

	if _, err := s.batchRepo.GetByID(ctx, batchID); err != nil {
		return nil, err
	}

	return s.timelineRepo.ListByBatch(ctx, batchID, limit)
}
