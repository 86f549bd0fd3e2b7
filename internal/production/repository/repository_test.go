package repository_test

import (
	"context"
	"flag"
	"log"
	"os"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/brauwerk/brauwerk-backend/internal/production/repository"
	"github.com/brauwerk/brauwerk-backend/pkg/testutil"
)

var suite *testutil.IntegrationSuite

func TestMain(m *testing.M) {
	flag.Parse()
	if testing.Short() {
		os.Exit(m.Run())
	}

	ctx := context.Background()

	var err error
	suite, err = testutil.NewIntegrationSuite(ctx)
	if err != nil {
		log.Fatalf("failed to create integration suite: %v", err)
	}

	code := m.Run()
	testutil.TerminateContainer(ctx)
	os.Exit(code)
}

// Helper to create an item for tests that need one
func createTestItem(t *testing.T, ctx context.Context, repo *repository.ItemRepository, name string, balance decimal.Decimal) *repository.InventoryItem {
	t.Helper()
	f := suite.Fixtures.Item(testutil.WithItemName(name), testutil.WithBalance(balance))
	item := &repository.InventoryItem{
		SKU:           f.SKU,
		Name:          f.Name,
		Category:      repository.ItemCategory(f.Category),
		Unit:          f.Unit,
		CachedBalance: f.CachedBalance,
		IsActive:      true,
	}
	err := repo.Create(ctx, item)
	require.NoError(t, err)
	return item
}

func createTestBatch(t *testing.T, ctx context.Context, repo *repository.BatchRepository, status repository.BatchStatus) *repository.Batch {
	t.Helper()
	f := suite.Fixtures.Batch(testutil.WithBatchStatus(string(status)))
	batch := &repository.Batch{
		BatchNumber: f.BatchNumber,
		RecipeID:    f.RecipeID,
		Status:      status,
		Volume:      f.Volume,
	}
	err := repo.Create(ctx, batch)
	require.NoError(t, err)
	return batch
}

func createTestLot(t *testing.T, ctx context.Context, repo *repository.LotRepository, phase repository.LotPhase, status repository.LotStatus) *repository.Lot {
	t.Helper()
	f := suite.Fixtures.Lot(testutil.WithLotPhase(string(phase)))
	lot := &repository.Lot{
		LotCode: f.LotCode,
		Phase:   phase,
		Status:  status,
	}
	err := repo.Create(ctx, lot)
	require.NoError(t, err)
	return lot
}
