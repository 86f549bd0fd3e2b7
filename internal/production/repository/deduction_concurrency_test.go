package repository_test

import (
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brauwerk/brauwerk-backend/internal/production/repository"
	"github.com/brauwerk/brauwerk-backend/internal/production/service"
	"github.com/brauwerk/brauwerk-backend/pkg/errors"
)

// Concurrent deductions against the same item must serialize on the row lock:
// with balance B and per-call quantity q, exactly floor(B/q) calls may
// succeed, whatever the interleaving, and the cached balance must still equal
// the ledger sum afterwards.
func TestDeduct_ConcurrentCallsNeverOverdraw(t *testing.T) {
	if testing.Short() {
		t.Skip("integration test requires PostgreSQL")
	}

	ctx := suite.TenantContext(t)

	itemRepo := repository.NewItemRepository(suite.DB)
	ledgerRepo := repository.NewLedgerRepository(suite.DB)
	resolver := service.NewItemResolver(itemRepo, suite.Logger)
	ledger := service.NewLedgerService(suite.DB, itemRepo, ledgerRepo, nil, suite.Logger)
	deduction := service.NewDeductionService(suite.DB, resolver, itemRepo, ledger, nil, suite.Logger)

	item := createTestItem(t, ctx, itemRepo, "Kronkorken 26mm silber", decimal.Zero)

	// Seed the opening stock through the ledger so the cached balance and
	// the entry sum agree from the start.
	opening := decimal.NewFromInt(500)
	_, err := deduction.Adjust(ctx, service.AdjustInput{
		ItemID:    item.ID,
		Quantity:  opening,
		EntryType: repository.EntryPurchase,
	})
	require.NoError(t, err)

	quantity := decimal.NewFromInt(120)
	const workers = 8 // 500 / 120 admits exactly 4 of these

	results := make([]error, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := deduction.Deduct(ctx, service.DeductInput{
				ItemID:   &item.ID,
				Quantity: quantity,
			})
			results[i] = err
		}(i)
	}
	wg.Wait()

	succeeded, rejected := 0, 0
	for _, err := range results {
		switch {
		case err == nil:
			succeeded++
		case errors.Is(err, errors.ErrInsufficientStock):
			rejected++
		default:
			t.Fatalf("unexpected deduction error: %v", err)
		}
	}
	assert.Equal(t, 4, succeeded)
	assert.Equal(t, workers-4, rejected)

	reloaded, err := itemRepo.GetByID(ctx, item.ID)
	require.NoError(t, err)
	assert.True(t, reloaded.CachedBalance.Equal(decimal.NewFromInt(20)),
		"expected balance 20, got %s", reloaded.CachedBalance)

	sum, err := ledgerRepo.SumByItem(ctx, item.ID)
	require.NoError(t, err)
	assert.True(t, reloaded.CachedBalance.Equal(sum),
		"cached balance %s diverged from ledger sum %s", reloaded.CachedBalance, sum)
}
