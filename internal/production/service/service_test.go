package service_test

import (
	"context"
	"testing"

	"github.com/brauwerk/brauwerk-backend/internal/production/repository"
	"github.com/brauwerk/brauwerk-backend/internal/production/service"
	"github.com/brauwerk/brauwerk-backend/pkg/actor"
	"github.com/brauwerk/brauwerk-backend/pkg/database"
	"github.com/brauwerk/brauwerk-backend/pkg/logger"
	"github.com/brauwerk/brauwerk-backend/pkg/tenant"
	"github.com/brauwerk/brauwerk-backend/pkg/testutil"
)

const (
	testTenantID = "11111111-1111-1111-1111-111111111111"
	testActorID  = "22222222-2222-2222-2222-222222222222"
	testItemID   = "33333333-3333-3333-3333-333333333333"
	testBatchID  = "44444444-4444-4444-4444-444444444444"
	testLotID    = "55555555-5555-5555-5555-555555555555"
	testTankID   = "66666666-6666-6666-6666-666666666666"
)

// testEnv wires sqlmock behind the database wrapper with a tenant and actor
// already in context. Event publishers are nil; publishing is best-effort and
// nil-safe, so services work without a broker.
type testEnv struct {
	MockDB *testutil.MockDB
	DB     *database.DB
	Ctx    context.Context
	Logger *logger.Logger
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	mockDB := testutil.NewMockDB(t)
	t.Cleanup(func() {
		mockDB.ExpectationsWereMet(t)
		mockDB.Close()
	})

	log := logger.New("test", "test")
	ctx := tenant.WithTenantID(context.Background(), testTenantID)
	ctx = actor.WithActor(ctx, &actor.Actor{
		ID:       testActorID,
		Name:     "Test Brewer",
		TenantID: testTenantID,
	})

	return &testEnv{
		MockDB: mockDB,
		DB:     database.NewFromSqlx(mockDB.DB, log),
		Ctx:    ctx,
		Logger: log,
	}
}

func (e *testEnv) newLedgerService() (*service.LedgerService, *repository.ItemRepository) {
	itemRepo := repository.NewItemRepository(e.DB)
	ledgerRepo := repository.NewLedgerRepository(e.DB)
	return service.NewLedgerService(e.DB, itemRepo, ledgerRepo, nil, e.Logger), itemRepo
}

func (e *testEnv) newDeductionService() *service.DeductionService {
	itemRepo := repository.NewItemRepository(e.DB)
	ledger, _ := e.newLedgerService()
	resolver := service.NewItemResolver(itemRepo, e.Logger)
	return service.NewDeductionService(e.DB, resolver, itemRepo, ledger, nil, e.Logger)
}

func (e *testEnv) newTransitionService() *service.TransitionService {
	return service.NewTransitionService(
		e.DB,
		repository.NewBatchRepository(e.DB),
		repository.NewLotRepository(e.DB),
		repository.NewTankRepository(e.DB),
		repository.NewTimelineRepository(e.DB),
		nil,
		e.Logger,
	)
}

func (e *testEnv) newLotQueryService() *service.LotQueryService {
	return service.NewLotQueryService(
		repository.NewLotRepository(e.DB),
		repository.NewTankRepository(e.DB),
		e.Logger,
	)
}

// itemColumns is the subset of inventory_items columns the tests return.
// sqlx maps returned columns by name, so the fixtures can omit the rest.
func itemColumns() []string {
	return []string{
		"id", "tenant_id", "sku", "name", "category", "unit",
		"cached_balance", "reorder_point", "is_active",
	}
}
