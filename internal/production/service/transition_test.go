package service_test

import (
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brauwerk/brauwerk-backend/internal/production/repository"
	"github.com/brauwerk/brauwerk-backend/internal/production/service"
	"github.com/brauwerk/brauwerk-backend/pkg/errors"
	"github.com/brauwerk/brauwerk-backend/pkg/testutil"
)

const (
	siblingBatchID   = "77777777-7777-7777-7777-777777777777"
	cancelledBatchID = "88888888-8888-8888-8888-888888888888"
)

func batchColumns() []string {
	return []string{"id", "tenant_id", "batch_number", "recipe_id", "status", "volume"}
}

func lotColumns() []string {
	return []string{"id", "tenant_id", "lot_code", "phase", "status"}
}

func memberColumns() []string {
	return []string{"lot_id", "batch_id", "volume_contribution", "batch_status"}
}

func TestStartPackaging_BlendTransitionsAllMembers(t *testing.T) {
	env := newTestEnv(t)
	svc := env.newTransitionService()

	env.MockDB.ExpectBegin()
	env.MockDB.ExpectQuery("SELECT * FROM batches").
		WithArgs(testBatchID, testTenantID).
		WillReturnRows(testutil.MockRows(batchColumns()...).
			AddRow(testBatchID, testTenantID, "B-2026-0001", testItemID, "READY", "600"))
	env.MockDB.ExpectQuery("SELECT l.* FROM lots l").
		WithArgs(testBatchID, testTenantID).
		WillReturnRows(testutil.MockRows(lotColumns()...).
			AddRow(testLotID, testTenantID, "L-2026-0001", "CONDITIONING", "ACTIVE"))
	env.MockDB.ExpectQuery("SELECT lb.lot_id, lb.batch_id, lb.volume_contribution").
		WithArgs(testLotID, testTenantID).
		WillReturnRows(testutil.MockRows(memberColumns()...).
			AddRow(testLotID, testBatchID, "600", "READY").
			AddRow(testLotID, siblingBatchID, "400", "READY"))
	env.MockDB.ExpectExec("UPDATE batches").
		WillReturnResult(sqlmock.NewResult(0, 2))
	env.MockDB.ExpectQuery("SELECT * FROM batches").
		WillReturnRows(testutil.MockRows(batchColumns()...).
			AddRow(testBatchID, testTenantID, "B-2026-0001", testItemID, "PACKAGING", "600").
			AddRow(siblingBatchID, testTenantID, "B-2026-0002", testItemID, "PACKAGING", "400"))
	env.MockDB.ExpectExec("UPDATE lots").
		WillReturnResult(sqlmock.NewResult(0, 1))
	env.MockDB.ExpectExec("UPDATE tank_assignments").
		WillReturnResult(sqlmock.NewResult(0, 1))
	env.MockDB.ExpectQuery("INSERT INTO batch_timeline_events").
		WillReturnRows(testutil.MockRows("created_at").AddRow(time.Now()))
	env.MockDB.ExpectQuery("INSERT INTO batch_timeline_events").
		WillReturnRows(testutil.MockRows("created_at").AddRow(time.Now()))
	env.MockDB.ExpectCommit()

	result, err := svc.StartPackaging(env.Ctx, service.StartPackagingInput{
		BatchID:     testBatchID,
		PackageType: "bottle_500ml",
	})
	require.NoError(t, err)
	assert.Equal(t, 2, result.BlendedBatchesUpdated)
	assert.Equal(t, repository.BatchPackaging, result.Batch.Status)
	require.Len(t, result.Batches, 2)
	for _, b := range result.Batches {
		assert.Equal(t, repository.BatchPackaging, b.Status)
	}
	require.NotNil(t, result.LotID)
	assert.Equal(t, testLotID, *result.LotID)
}

func TestStartPackaging_ExcludesTerminalSiblings(t *testing.T) {
	env := newTestEnv(t)
	svc := env.newTransitionService()

	env.MockDB.ExpectBegin()
	env.MockDB.ExpectQuery("SELECT * FROM batches").
		WillReturnRows(testutil.MockRows(batchColumns()...).
			AddRow(testBatchID, testTenantID, "B-2026-0001", testItemID, "READY", "600"))
	env.MockDB.ExpectQuery("SELECT l.* FROM lots l").
		WillReturnRows(testutil.MockRows(lotColumns()...).
			AddRow(testLotID, testTenantID, "L-2026-0001", "CONDITIONING", "ACTIVE"))
	// One sibling COMPLETED, one CANCELLED, one whose batch row is gone
	env.MockDB.ExpectQuery("SELECT lb.lot_id, lb.batch_id, lb.volume_contribution").
		WillReturnRows(testutil.MockRows(memberColumns()...).
			AddRow(testLotID, testBatchID, "600", "READY").
			AddRow(testLotID, siblingBatchID, "400", "COMPLETED").
			AddRow(testLotID, cancelledBatchID, "200", "CANCELLED").
			AddRow(testLotID, testTankID, "100", nil))
	env.MockDB.ExpectExec("UPDATE batches").
		WillReturnResult(sqlmock.NewResult(0, 1))
	env.MockDB.ExpectQuery("SELECT * FROM batches").
		WillReturnRows(testutil.MockRows(batchColumns()...).
			AddRow(testBatchID, testTenantID, "B-2026-0001", testItemID, "PACKAGING", "600"))
	env.MockDB.ExpectExec("UPDATE lots").
		WillReturnResult(sqlmock.NewResult(0, 1))
	env.MockDB.ExpectExec("UPDATE tank_assignments").
		WillReturnResult(sqlmock.NewResult(0, 1))
	env.MockDB.ExpectQuery("INSERT INTO batch_timeline_events").
		WillReturnRows(testutil.MockRows("created_at").AddRow(time.Now()))
	env.MockDB.ExpectCommit()

	result, err := svc.StartPackaging(env.Ctx, service.StartPackagingInput{
		BatchID:     testBatchID,
		PackageType: "keg_50l",
	})
	require.NoError(t, err)
	assert.Equal(t, 1, result.BlendedBatchesUpdated)
	require.Len(t, result.Batches, 1)
	assert.Equal(t, testBatchID, result.Batches[0].ID)
}

func TestStartPackaging_SoloBatchWithoutLot(t *testing.T) {
	env := newTestEnv(t)
	svc := env.newTransitionService()

	env.MockDB.ExpectBegin()
	env.MockDB.ExpectQuery("SELECT * FROM batches").
		WillReturnRows(testutil.MockRows(batchColumns()...).
			AddRow(testBatchID, testTenantID, "B-2026-0001", testItemID, "READY", "600"))
	env.MockDB.ExpectQuery("SELECT l.* FROM lots l").
		WillReturnRows(testutil.MockRows(lotColumns()...))
	env.MockDB.ExpectExec("UPDATE batches").
		WillReturnResult(sqlmock.NewResult(0, 1))
	env.MockDB.ExpectQuery("SELECT * FROM batches").
		WillReturnRows(testutil.MockRows(batchColumns()...).
			AddRow(testBatchID, testTenantID, "B-2026-0001", testItemID, "PACKAGING", "600"))
	// No lot and no tank updates for a solo batch
	env.MockDB.ExpectQuery("INSERT INTO batch_timeline_events").
		WillReturnRows(testutil.MockRows("created_at").AddRow(time.Now()))
	env.MockDB.ExpectCommit()

	result, err := svc.StartPackaging(env.Ctx, service.StartPackagingInput{
		BatchID:     testBatchID,
		PackageType: "can_330ml",
	})
	require.NoError(t, err)
	assert.Equal(t, 1, result.BlendedBatchesUpdated)
	assert.Nil(t, result.LotID)
}

func TestStartPackaging_RejectsWrongState(t *testing.T) {
	env := newTestEnv(t)
	svc := env.newTransitionService()

	env.MockDB.ExpectBegin()
	env.MockDB.ExpectQuery("SELECT * FROM batches").
		WillReturnRows(testutil.MockRows(batchColumns()...).
			AddRow(testBatchID, testTenantID, "B-2026-0001", testItemID, "FERMENTING", "600"))
	env.MockDB.ExpectRollback()

	_, err := svc.StartPackaging(env.Ctx, service.StartPackagingInput{
		BatchID:     testBatchID,
		PackageType: "bottle_500ml",
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrInvalidState))

	var appErr *errors.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, "FERMENTING", appErr.Details["current_status"])
	assert.Equal(t, "READY", appErr.Details["required_status"])
}

func TestStartPackaging_UnknownBatch(t *testing.T) {
	env := newTestEnv(t)
	svc := env.newTransitionService()

	env.MockDB.ExpectBegin()
	env.MockDB.ExpectQuery("SELECT * FROM batches").
		WillReturnRows(testutil.MockRows(batchColumns()...))
	env.MockDB.ExpectRollback()

	_, err := svc.StartPackaging(env.Ctx, service.StartPackagingInput{
		BatchID:     testBatchID,
		PackageType: "bottle_500ml",
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrNotFound))
}

func TestStartPackaging_PartialUpdateRollsBack(t *testing.T) {
	env := newTestEnv(t)
	svc := env.newTransitionService()

	env.MockDB.ExpectBegin()
	env.MockDB.ExpectQuery("SELECT * FROM batches").
		WillReturnRows(testutil.MockRows(batchColumns()...).
			AddRow(testBatchID, testTenantID, "B-2026-0001", testItemID, "READY", "600"))
	env.MockDB.ExpectQuery("SELECT l.* FROM lots l").
		WillReturnRows(testutil.MockRows(lotColumns()...).
			AddRow(testLotID, testTenantID, "L-2026-0001", "CONDITIONING", "ACTIVE"))
	env.MockDB.ExpectQuery("SELECT lb.lot_id, lb.batch_id, lb.volume_contribution").
		WillReturnRows(testutil.MockRows(memberColumns()...).
			AddRow(testLotID, testBatchID, "600", "READY").
			AddRow(testLotID, siblingBatchID, "400", "READY"))
	// Only one of the two expected rows was updated
	env.MockDB.ExpectExec("UPDATE batches").
		WillReturnResult(sqlmock.NewResult(0, 1))
	env.MockDB.ExpectRollback()

	_, err := svc.StartPackaging(env.Ctx, service.StartPackagingInput{
		BatchID:     testBatchID,
		PackageType: "bottle_500ml",
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrPersistenceFailure))
}

func TestStartPackaging_RequiresPackageType(t *testing.T) {
	env := newTestEnv(t)
	svc := env.newTransitionService()

	_, err := svc.StartPackaging(env.Ctx, service.StartPackagingInput{
		BatchID: testBatchID,
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrValidation))
}
