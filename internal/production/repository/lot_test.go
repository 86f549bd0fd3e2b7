package repository_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brauwerk/brauwerk-backend/internal/production/repository"
	"github.com/brauwerk/brauwerk-backend/pkg/errors"
)

func TestFindActiveByBatch(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	ctx := suite.TenantContext(t)
	batchRepo := repository.NewBatchRepository(suite.DB)
	lotRepo := repository.NewLotRepository(suite.DB)

	batch := createTestBatch(t, ctx, batchRepo, repository.BatchReady)
	lot := createTestLot(t, ctx, lotRepo, repository.PhaseConditioning, repository.LotActive)
	require.NoError(t, lotRepo.AddBatch(ctx, lot.ID, batch.ID, decimal.NewFromInt(600)))

	found, err := lotRepo.FindActiveByBatch(ctx, batch.ID)
	require.NoError(t, err)
	assert.Equal(t, lot.ID, found.ID)
}

func TestFindActiveByBatch_IgnoresCompletedLots(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	ctx := suite.TenantContext(t)
	batchRepo := repository.NewBatchRepository(suite.DB)
	lotRepo := repository.NewLotRepository(suite.DB)

	batch := createTestBatch(t, ctx, batchRepo, repository.BatchReady)
	lot := createTestLot(t, ctx, lotRepo, repository.PhaseConditioning, repository.LotCompleted)
	require.NoError(t, lotRepo.AddBatch(ctx, lot.ID, batch.ID, decimal.NewFromInt(600)))

	found, err := lotRepo.FindActiveByBatch(ctx, batch.ID)
	assert.Nil(t, found)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrNotFound))
}

func TestListMembers_JoinsBatchStatus(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	ctx := suite.TenantContext(t)
	batchRepo := repository.NewBatchRepository(suite.DB)
	lotRepo := repository.NewLotRepository(suite.DB)

	readyBatch := createTestBatch(t, ctx, batchRepo, repository.BatchReady)
	doneBatch := createTestBatch(t, ctx, batchRepo, repository.BatchCompleted)
	lot := createTestLot(t, ctx, lotRepo, repository.PhaseConditioning, repository.LotActive)
	require.NoError(t, lotRepo.AddBatch(ctx, lot.ID, readyBatch.ID, decimal.NewFromInt(600)))
	require.NoError(t, lotRepo.AddBatch(ctx, lot.ID, doneBatch.ID, decimal.NewFromInt(400)))

	members, err := lotRepo.ListMembers(ctx, lot.ID)
	require.NoError(t, err)
	require.Len(t, members, 2)

	statuses := map[string]repository.BatchStatus{}
	for _, m := range members {
		require.NotNil(t, m.BatchStatus)
		statuses[m.BatchID] = *m.BatchStatus
	}
	assert.Equal(t, repository.BatchReady, statuses[readyBatch.ID])
	assert.Equal(t, repository.BatchCompleted, statuses[doneBatch.ID])
}

func TestListActiveTopLevel_FiltersCorrectly(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	ctx := suite.TenantContext(t)
	batchRepo := repository.NewBatchRepository(suite.DB)
	lotRepo := repository.NewLotRepository(suite.DB)

	batch := createTestBatch(t, ctx, batchRepo, repository.BatchFermenting)

	active := createTestLot(t, ctx, lotRepo, repository.PhaseFermentation, repository.LotActive)
	require.NoError(t, lotRepo.AddBatch(ctx, active.ID, batch.ID, decimal.NewFromInt(600)))

	// Wrong phase, completed, and memberless lots don't show up
	createTestLot(t, ctx, lotRepo, repository.PhasePackaging, repository.LotActive)
	createTestLot(t, ctx, lotRepo, repository.PhaseFermentation, repository.LotCompleted)
	createTestLot(t, ctx, lotRepo, repository.PhaseFermentation, repository.LotActive)

	lots, err := lotRepo.ListActiveTopLevel(ctx, repository.PhaseFermentation)
	require.NoError(t, err)
	require.Len(t, lots, 1)
	assert.Equal(t, active.ID, lots[0].ID)
}

func TestBatchUpdateStatus_CountsRows(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	ctx := suite.TenantContext(t)
	batchRepo := repository.NewBatchRepository(suite.DB)

	b1 := createTestBatch(t, ctx, batchRepo, repository.BatchReady)
	b2 := createTestBatch(t, ctx, batchRepo, repository.BatchReady)

	count, err := batchRepo.UpdateStatus(ctx, []string{b1.ID, b2.ID}, repository.BatchPackaging)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)

	found, err := batchRepo.GetByID(ctx, b1.ID)
	require.NoError(t, err)
	assert.Equal(t, repository.BatchPackaging, found.Status)
}
