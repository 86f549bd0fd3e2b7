package repository_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brauwerk/brauwerk-backend/internal/production/repository"
	"github.com/brauwerk/brauwerk-backend/pkg/errors"
	"github.com/brauwerk/brauwerk-backend/pkg/testutil"
)

func TestTankActiveByLot(t *testing.T) {
	if testing.Short() {
		t.Skip("integration test requires PostgreSQL")
	}

	ctx := suite.TenantContext(t)
	lotRepo := repository.NewLotRepository(suite.DB)
	tankRepo := repository.NewTankRepository(suite.DB)

	lot := createTestLot(t, ctx, lotRepo, repository.PhaseFermentation, repository.LotActive)

	f := suite.Fixtures.Tank(lot.ID, testutil.WithCapacity(decimal.NewFromInt(5000)))
	assignment := &repository.TankAssignment{
		LotID:       f.LotID,
		EquipmentID: f.EquipmentID,
		Phase:       repository.PhaseFermentation,
		Status:      repository.AssignmentActive,
		Capacity:    f.Capacity,
	}
	require.NoError(t, tankRepo.Create(ctx, assignment))

	got, err := tankRepo.ActiveByLot(ctx, lot.ID)
	require.NoError(t, err)
	assert.Equal(t, assignment.ID, got.ID)
	assert.True(t, got.Capacity.Equal(decimal.NewFromInt(5000)))
}

func TestTankActiveByLot_SkipsCompleted(t *testing.T) {
	if testing.Short() {
		t.Skip("integration test requires PostgreSQL")
	}

	ctx := suite.TenantContext(t)
	lotRepo := repository.NewLotRepository(suite.DB)
	tankRepo := repository.NewTankRepository(suite.DB)

	lot := createTestLot(t, ctx, lotRepo, repository.PhaseFermentation, repository.LotActive)

	f := suite.Fixtures.Tank(lot.ID)
	assignment := &repository.TankAssignment{
		LotID:       f.LotID,
		EquipmentID: f.EquipmentID,
		Phase:       repository.PhaseFermentation,
		Status:      repository.AssignmentCompleted,
		Capacity:    f.Capacity,
	}
	require.NoError(t, tankRepo.Create(ctx, assignment))

	_, err := tankRepo.ActiveByLot(ctx, lot.ID)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrNotFound))
}

func TestTankUpdateActiveForLot(t *testing.T) {
	if testing.Short() {
		t.Skip("integration test requires PostgreSQL")
	}

	ctx := suite.TenantContext(t)
	lotRepo := repository.NewLotRepository(suite.DB)
	tankRepo := repository.NewTankRepository(suite.DB)

	lot := createTestLot(t, ctx, lotRepo, repository.PhaseConditioning, repository.LotActive)

	f := suite.Fixtures.Tank(lot.ID, testutil.WithCapacity(decimal.NewFromInt(1200)))
	assignment := &repository.TankAssignment{
		LotID:       f.LotID,
		EquipmentID: f.EquipmentID,
		Phase:       repository.PhaseConditioning,
		Status:      repository.AssignmentActive,
		Capacity:    f.Capacity,
	}
	require.NoError(t, tankRepo.Create(ctx, assignment))

	updated, err := tankRepo.UpdateActiveForLot(ctx, lot.ID, repository.PhasePackaging, repository.AssignmentActive)
	require.NoError(t, err)
	assert.Equal(t, int64(1), updated)

	got, err := tankRepo.ActiveByLot(ctx, lot.ID)
	require.NoError(t, err)
	assert.Equal(t, repository.PhasePackaging, got.Phase)
	assert.True(t, got.Capacity.Equal(decimal.NewFromInt(1200)))
}
