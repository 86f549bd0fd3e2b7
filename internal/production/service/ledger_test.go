package service_test

import (
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brauwerk/brauwerk-backend/internal/production/repository"
	"github.com/brauwerk/brauwerk-backend/internal/production/service"
	"github.com/brauwerk/brauwerk-backend/pkg/errors"
	"github.com/brauwerk/brauwerk-backend/pkg/testutil"
)

func TestLedgerAppend_UpdatesCachedBalance(t *testing.T) {
	env := newTestEnv(t)
	svc, _ := env.newLedgerService()

	env.MockDB.ExpectBegin()
	env.MockDB.ExpectQuery("SELECT * FROM inventory_items").
		WithArgs(testItemID, testTenantID).
		WillReturnRows(testutil.MockRows(itemColumns()...).
			AddRow(testItemID, testTenantID, "SKU-0001", "Bottle 0.5L", "PACKAGING", "pcs", "1000", nil, true))
	env.MockDB.ExpectQuery("INSERT INTO ledger_entries").
		WithArgs(testutil.AnyUUID{}, testTenantID, testItemID, decimal.NewFromInt(250),
			repository.EntryPurchase, nil, nil, testActorID).
		WillReturnRows(testutil.MockRows("created_at").AddRow(time.Now()))
	env.MockDB.ExpectQuery("UPDATE inventory_items").
		WithArgs(testItemID, testTenantID, decimal.NewFromInt(250)).
		WillReturnRows(testutil.MockRows("cached_balance").AddRow("1250"))
	env.MockDB.ExpectCommit()

	result, err := svc.Append(env.Ctx, service.AppendEntryInput{
		ItemID:    testItemID,
		Quantity:  decimal.NewFromInt(250),
		EntryType: repository.EntryPurchase,
	})
	require.NoError(t, err)
	assert.True(t, result.PreviousBalance.Equal(decimal.NewFromInt(1000)))
	assert.True(t, result.NewBalance.Equal(decimal.NewFromInt(1250)))
	assert.Equal(t, testActorID, result.Entry.CreatedBy)
	assert.NotEmpty(t, result.Entry.ID)
}

func TestLedgerAppend_RejectsZeroQuantity(t *testing.T) {
	env := newTestEnv(t)
	svc, _ := env.newLedgerService()

	_, err := svc.Append(env.Ctx, service.AppendEntryInput{
		ItemID:    testItemID,
		Quantity:  decimal.Zero,
		EntryType: repository.EntryPurchase,
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrValidation))
}

func TestLedgerAppend_RejectsUnknownEntryType(t *testing.T) {
	env := newTestEnv(t)
	svc, _ := env.newLedgerService()

	_, err := svc.Append(env.Ctx, service.AppendEntryInput{
		ItemID:    testItemID,
		Quantity:  decimal.NewFromInt(10),
		EntryType: repository.LedgerEntryType("DONATION"),
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrValidation))
}

func TestLedgerAppend_UnknownItem(t *testing.T) {
	env := newTestEnv(t)
	svc, _ := env.newLedgerService()

	env.MockDB.ExpectBegin()
	env.MockDB.ExpectQuery("SELECT * FROM inventory_items").
		WithArgs(testItemID, testTenantID).
		WillReturnRows(testutil.MockRows(itemColumns()...))
	env.MockDB.ExpectRollback()

	_, err := svc.Append(env.Ctx, service.AppendEntryInput{
		ItemID:    testItemID,
		Quantity:  decimal.NewFromInt(10),
		EntryType: repository.EntryPurchase,
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrNotFound))
}

func TestLedgerAppend_RollsBackWhenInsertFails(t *testing.T) {
	env := newTestEnv(t)
	svc, _ := env.newLedgerService()

	env.MockDB.ExpectBegin()
	env.MockDB.ExpectQuery("SELECT * FROM inventory_items").
		WithArgs(testItemID, testTenantID).
		WillReturnRows(testutil.MockRows(itemColumns()...).
			AddRow(testItemID, testTenantID, "SKU-0001", "Bottle 0.5L", "PACKAGING", "pcs", "1000", nil, true))
	env.MockDB.ExpectQuery("INSERT INTO ledger_entries").
		WillReturnError(fmt.Errorf("connection reset"))
	env.MockDB.ExpectRollback()

	_, err := svc.Append(env.Ctx, service.AppendEntryInput{
		ItemID:    testItemID,
		Quantity:  decimal.NewFromInt(10),
		EntryType: repository.EntryPurchase,
	})
	require.Error(t, err)
}

func TestGetBalance_ReadsCachedValue(t *testing.T) {
	env := newTestEnv(t)
	svc, _ := env.newLedgerService()

	// Plain read, no transaction and no ledger scan
	env.MockDB.ExpectQuery("SELECT * FROM inventory_items").
		WithArgs(testItemID, testTenantID).
		WillReturnRows(testutil.MockRows(itemColumns()...).
			AddRow(testItemID, testTenantID, "SKU-0001", "Bottle 0.5L", "PACKAGING", "pcs", "473.5", nil, true))

	balance, err := svc.GetBalance(env.Ctx, testItemID)
	require.NoError(t, err)
	assert.True(t, balance.Equal(decimal.RequireFromString("473.5")))
}

func TestGetHistory_UnknownItem(t *testing.T) {
	env := newTestEnv(t)
	svc, _ := env.newLedgerService()

	env.MockDB.ExpectQuery("SELECT * FROM inventory_items").
		WithArgs(testItemID, testTenantID).
		WillReturnRows(testutil.MockRows(itemColumns()...))

	_, err := svc.GetHistory(env.Ctx, testItemID, 10, 0)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrNotFound))
}

func TestGetHistory_ClampsLimit(t *testing.T) {
	env := newTestEnv(t)
	svc, _ := env.newLedgerService()

	env.MockDB.ExpectQuery("SELECT * FROM inventory_items").
		WithArgs(testItemID, testTenantID).
		WillReturnRows(testutil.MockRows(itemColumns()...).
			AddRow(testItemID, testTenantID, "SKU-0001", "Bottle 0.5L", "PACKAGING", "pcs", "100", nil, true))
	env.MockDB.ExpectQuery("SELECT * FROM ledger_entries").
		WithArgs(testItemID, testTenantID, 200, 0).
		WillReturnRows(testutil.MockRows("id", "tenant_id", "item_id", "quantity", "entry_type", "created_by"))

	_, err := svc.GetHistory(env.Ctx, testItemID, 10000, -5)
	require.NoError(t, err)
}
