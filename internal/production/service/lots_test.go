package service_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brauwerk/brauwerk-backend/internal/production/repository"
	"github.com/brauwerk/brauwerk-backend/pkg/errors"
	"github.com/brauwerk/brauwerk-backend/pkg/testutil"
)

func tankColumns() []string {
	return []string{"id", "tenant_id", "lot_id", "equipment_id", "phase", "status", "capacity"}
}

func TestListActiveLots_ComputesVolumeAndRemainingCapacity(t *testing.T) {
	env := newTestEnv(t)
	svc := env.newLotQueryService()

	env.MockDB.ExpectQuery("SELECT l.* FROM lots l").
		WithArgs(testTenantID, repository.PhaseFermentation).
		WillReturnRows(testutil.MockRows(lotColumns()...).
			AddRow(testLotID, testTenantID, "L-2026-0001", "FERMENTATION", "ACTIVE"))
	// The COMPLETED member contributes neither volume nor membership
	env.MockDB.ExpectQuery("SELECT lb.lot_id, lb.batch_id, lb.volume_contribution").
		WithArgs(testLotID, testTenantID).
		WillReturnRows(testutil.MockRows(memberColumns()...).
			AddRow(testLotID, testBatchID, "600", "FERMENTING").
			AddRow(testLotID, siblingBatchID, "400", "COMPLETED"))
	env.MockDB.ExpectQuery("SELECT * FROM tank_assignments").
		WithArgs(testLotID, testTenantID).
		WillReturnRows(testutil.MockRows(tankColumns()...).
			AddRow(testTankID, testTenantID, testLotID, testItemID, "FERMENTATION", "ACTIVE", "2000"))

	summaries, err := svc.ListActiveLots(env.Ctx, repository.PhaseFermentation)
	require.NoError(t, err)
	require.Len(t, summaries, 1)

	s := summaries[0]
	assert.Len(t, s.Members, 1)
	assert.True(t, s.TotalVolume.Equal(decimal.NewFromInt(600)))
	assert.True(t, s.RemainingCapacity.Equal(decimal.NewFromInt(1400)))
	assert.Equal(t, testTankID, s.Tank.ID)
}

func TestListActiveLots_SkipsLotWithOnlyCompletedMembers(t *testing.T) {
	env := newTestEnv(t)
	svc := env.newLotQueryService()

	env.MockDB.ExpectQuery("SELECT l.* FROM lots l").
		WillReturnRows(testutil.MockRows(lotColumns()...).
			AddRow(testLotID, testTenantID, "L-2026-0001", "FERMENTATION", "ACTIVE"))
	env.MockDB.ExpectQuery("SELECT lb.lot_id, lb.batch_id, lb.volume_contribution").
		WillReturnRows(testutil.MockRows(memberColumns()...).
			AddRow(testLotID, testBatchID, "600", "COMPLETED"))
	// No tank query for an operationally empty lot

	summaries, err := svc.ListActiveLots(env.Ctx, repository.PhaseFermentation)
	require.NoError(t, err)
	assert.Empty(t, summaries)
}

func TestListActiveLots_SkipsLotWithoutTank(t *testing.T) {
	env := newTestEnv(t)
	svc := env.newLotQueryService()

	env.MockDB.ExpectQuery("SELECT l.* FROM lots l").
		WillReturnRows(testutil.MockRows(lotColumns()...).
			AddRow(testLotID, testTenantID, "L-2026-0001", "PACKAGING", "ACTIVE"))
	env.MockDB.ExpectQuery("SELECT lb.lot_id, lb.batch_id, lb.volume_contribution").
		WillReturnRows(testutil.MockRows(memberColumns()...).
			AddRow(testLotID, testBatchID, "600", "PACKAGING"))
	env.MockDB.ExpectQuery("SELECT * FROM tank_assignments").
		WillReturnRows(testutil.MockRows(tankColumns()...))

	summaries, err := svc.ListActiveLots(env.Ctx, repository.PhasePackaging)
	require.NoError(t, err)
	assert.Empty(t, summaries)
}

func TestListActiveLots_RejectsUnknownPhase(t *testing.T) {
	env := newTestEnv(t)
	svc := env.newLotQueryService()

	_, err := svc.ListActiveLots(env.Ctx, repository.LotPhase("BOILING"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrValidation))
}
