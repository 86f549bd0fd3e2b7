package service

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/brauwerk/brauwerk-backend/internal/production/repository"
	"github.com/brauwerk/brauwerk-backend/pkg/errors"
	"github.com/brauwerk/brauwerk-backend/pkg/logger"
)

// LotQueryService answers read queries over active blend lots
type LotQueryService struct {
	lotRepo  *repository.LotRepository
	tankRepo *repository.TankRepository
	logger   *logger.Logger
}

// NewLotQueryService creates a new lot query service
func NewLotQueryService(lotRepo *repository.LotRepository, tankRepo *repository.TankRepository, log *logger.Logger) *LotQueryService {
	return &LotQueryService{
		lotRepo:  lotRepo,
		tankRepo: tankRepo,
		logger:   log,
	}
}

// LotSummary is the dashboard view of one active lot
type LotSummary struct {
	Lot               *repository.Lot            `json:"lot"`
	Members           []*repository.LotMember    `json:"members"`
	TotalVolume       decimal.Decimal            `json:"total_volume"`
	Tank              *repository.TankAssignment `json:"tank"`
	RemainingCapacity decimal.Decimal            `json:"remaining_capacity"`
}

// ListActiveLots returns the lots currently holding liquid in the given
// phase, with their blend composition and tank occupancy. Lots with no live
// member batches, zero volume or no active tank assignment are operationally
// empty and are omitted rather than reported as errors.
func (s *LotQueryService) ListActiveLots(ctx context.Context, phase repository.LotPhase) ([]*LotSummary, error) {
	if !phase.Valid() {
		return nil, errors.Validation(map[string]string{"phase": "must be one of: FERMENTATION, CONDITIONING, PACKAGING"})
	}

	lots, err := s.lotRepo.ListActiveTopLevel(ctx, phase)
	if err != nil {
		return nil, err
	}

	summaries := make([]*LotSummary, 0, len(lots))
	for _, lot := range lots {
		members, err := s.lotRepo.ListMembers(ctx, lot.ID)
		if err != nil {
			return nil, err
		}

		live := make([]*repository.LotMember, 0, len(members))
		total := decimal.Zero
		for _, m := range members {
			if m.BatchStatus == nil || m.BatchStatus.Terminal() {
				continue
			}
			live = append(live, m)
			total = total.Add(m.VolumeContribution)
		}
		if len(live) == 0 || !total.IsPositive() {
			continue
		}

		tank, err := s.tankRepo.ActiveByLot(ctx, lot.ID)
		if err != nil {
			if errors.Is(err, errors.ErrNotFound) {
				s.logger.WithComponent("lots").Warn().
					Str("lot_id", lot.ID).
					Msg("active lot has no tank assignment, skipping")
				continue
			}
			return nil, err
		}

		summaries = append(summaries, &LotSummary{
			Lot:               lot,
			Members:           live,
			TotalVolume:       total,
			Tank:              tank,
			RemainingCapacity: tank.Capacity.Sub(total),
		})
	}

	return summaries, nil
}
