package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vendstock/vendstock-backend/internal/inventory/repository"
	"github.com/vendstock/vendstock-backend/pkg/database"
	"github.com/vendstock/vendstock-backend/pkg/errors"
	"github.com/vendstock/vendstock-backend/pkg/logger"
	"github.com/vendstock/vendstock-backend/pkg/metrics"
	"github.com/vendstock/vendstock-backend/pkg/testutil"
)

var productCols = []string{
	"id", "title", "unit_price_cents", "unit", "category", "stock", "initial_stock",
	"sales", "daily_sales", "slot", "slot_distance", "created_at", "updated_at",
}

func productRow(id int64, title string, stock int) *sqlmock.Rows {
	now := time.Now()
	return testutil.MockRows(productCols...).
		AddRow(id, title, 1500, "unit", nil, stock, stock, 0, 0, nil, nil, now, now)
}

func newTestInventoryService(t *testing.T) (*InventoryService, *testutil.MockDB) {
	t.Helper()

	mockDB := testutil.NewMockDB(t)
	log := logger.New("test", "test")
	db := database.FromSqlx(mockDB.DB, log)

	svc := NewInventoryService(
		db,
		repository.NewProductRepository(db),
		repository.NewBatchRepository(db),
		repository.NewAdjustmentRepository(db),
		nil, // no broker in unit tests
		metrics.NewNop(),
		log,
	)
	return svc, mockDB
}

func TestAdjustStockRestock(t *testing.T) {
	svc, mockDB := newTestInventoryService(t)
	defer mockDB.Close()

	mockDB.ExpectBegin()
	mockDB.ExpectQuery("FROM products WHERE id = $1 FOR UPDATE").
		WithArgs(int64(1)).
		WillReturnRows(productRow(1, "Harina", 50))
	mockDB.ExpectExec("UPDATE products SET stock = $2").
		WithArgs(int64(1), 60).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mockDB.ExpectQuery("INSERT INTO stock_adjustments").
		WithArgs(int64(1), repository.AdjustmentRestock, 50, 60, 10, "weekly restock", nil, nil, int64(5)).
		WillReturnRows(testutil.MockRows("id", "created_at").AddRow(int64(101), time.Now()))
	mockDB.ExpectCommit()

	product, err := svc.AdjustStock(context.Background(), 1, 10, repository.AdjustmentRestock, "weekly restock", AuditRef{}, 5)
	require.NoError(t, err)
	assert.Equal(t, 60, product.Stock)

	mockDB.ExpectationsWereMet(t)
}

func TestAdjustStockSaleBumpsCounters(t *testing.T) {
	svc, mockDB := newTestInventoryService(t)
	defer mockDB.Close()

	mockDB.ExpectBegin()
	mockDB.ExpectQuery("FROM products WHERE id = $1 FOR UPDATE").
		WithArgs(int64(1)).
		WillReturnRows(productRow(1, "Harina", 10))
	mockDB.ExpectExec("UPDATE products SET stock = $2").
		WithArgs(int64(1), 7).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mockDB.ExpectExec("UPDATE products SET sales = sales + $2").
		WithArgs(int64(1), 3).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mockDB.ExpectQuery("INSERT INTO stock_adjustments").
		WithArgs(int64(1), repository.AdjustmentSale, 10, 7, -3, "", nil, nil, int64(0)).
		WillReturnRows(testutil.MockRows("id", "created_at").AddRow(int64(102), time.Now()))
	mockDB.ExpectCommit()

	product, err := svc.AdjustStock(context.Background(), 1, -3, repository.AdjustmentSale, "", AuditRef{}, 0)
	require.NoError(t, err)
	assert.Equal(t, 7, product.Stock)
	assert.Equal(t, 3, product.Sales)
	assert.Equal(t, 3, product.DailySales)

	mockDB.ExpectationsWereMet(t)
}

func TestAdjustStockInsufficientRollsBack(t *testing.T) {
	svc, mockDB := newTestInventoryService(t)
	defer mockDB.Close()

	mockDB.ExpectBegin()
	mockDB.ExpectQuery("FROM products WHERE id = $1 FOR UPDATE").
		WithArgs(int64(1)).
		WillReturnRows(productRow(1, "Harina", 5))
	mockDB.ExpectRollback()

	_, err := svc.AdjustStock(context.Background(), 1, -10, repository.AdjustmentSale, "", AuditRef{}, 0)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrInsufficientStock))

	var appErr *errors.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, 409, appErr.StatusCode)
	assert.Equal(t, "5", appErr.Details["available"])
	assert.Equal(t, "10", appErr.Details["requested"])

	mockDB.ExpectationsWereMet(t)
}

func TestAdjustStockProductNotFound(t *testing.T) {
	svc, mockDB := newTestInventoryService(t)
	defer mockDB.Close()

	mockDB.ExpectBegin()
	mockDB.ExpectQuery("FROM products WHERE id = $1 FOR UPDATE").
		WithArgs(int64(99)).
		WillReturnRows(testutil.MockRows(productCols...))
	mockDB.ExpectRollback()

	_, err := svc.AdjustStock(context.Background(), 99, 10, repository.AdjustmentRestock, "", AuditRef{}, 0)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrNotFound))

	mockDB.ExpectationsWereMet(t)
}

func TestCreateBatchAddsToStock(t *testing.T) {
	svc, mockDB := newTestInventoryService(t)
	defer mockDB.Close()

	expiry := time.Now().Add(30 * 24 * time.Hour)

	mockDB.ExpectBegin()
	mockDB.ExpectQuery("FROM products WHERE id = $1 FOR UPDATE").
		WithArgs(int64(1)).
		WillReturnRows(productRow(1, "Aceite el cocinero", 10))
	mockDB.ExpectQuery("SELECT COUNT(*) FROM batches WHERE product_id = $1").
		WithArgs(int64(1)).
		WillReturnRows(testutil.MockRows("count").AddRow(2))
	mockDB.ExpectQuery("INSERT INTO batches").
		WithArgs(int64(1), sqlmock.AnyArg(), 20, expiry).
		WillReturnRows(testutil.MockRows("id", "created_at").AddRow(int64(7), time.Now()))
	mockDB.ExpectExec("UPDATE products SET stock = $2").
		WithArgs(int64(1), 30).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mockDB.ExpectQuery("INSERT INTO stock_adjustments").
		WithArgs(int64(1), repository.AdjustmentBatchCreated, 10, 30, 20, "delivery", nil, sqlmock.AnyArg(), int64(5)).
		WillReturnRows(testutil.MockRows("id", "created_at").AddRow(int64(103), time.Now()))
	mockDB.ExpectCommit()

	batch, err := svc.CreateBatch(context.Background(), 1, 20, expiry, true, "delivery", 5)
	require.NoError(t, err)
	assert.Equal(t, int64(7), batch.ID)
	assert.Equal(t, 20, batch.Quantity)
	// Third lot of a three-word title.
	assert.True(t, strings.HasPrefix(batch.BatchCode, "AcElCo-3-"), "unexpected batch code %q", batch.BatchCode)

	mockDB.ExpectationsWereMet(t)
}

func TestCreateBatchWithoutStockChange(t *testing.T) {
	svc, mockDB := newTestInventoryService(t)
	defer mockDB.Close()

	expiry := time.Now().Add(24 * time.Hour)

	mockDB.ExpectBegin()
	mockDB.ExpectQuery("FROM products WHERE id = $1 FOR UPDATE").
		WithArgs(int64(1)).
		WillReturnRows(productRow(1, "Harina", 40))
	mockDB.ExpectQuery("SELECT COUNT(*) FROM batches WHERE product_id = $1").
		WithArgs(int64(1)).
		WillReturnRows(testutil.MockRows("count").AddRow(0))
	mockDB.ExpectQuery("INSERT INTO batches").
		WithArgs(int64(1), sqlmock.AnyArg(), 15, expiry).
		WillReturnRows(testutil.MockRows("id", "created_at").AddRow(int64(8), time.Now()))
	mockDB.ExpectCommit()

	batch, err := svc.CreateBatch(context.Background(), 1, 15, expiry, false, "", 0)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(batch.BatchCode, "Ha-1-"))

	mockDB.ExpectationsWereMet(t)
}

func TestCreateBatchValidation(t *testing.T) {
	svc, mockDB := newTestInventoryService(t)
	defer mockDB.Close()

	_, err := svc.CreateBatch(context.Background(), 1, 0, time.Now().Add(time.Hour), false, "", 0)
	assert.True(t, errors.Is(err, errors.ErrInvalidBatch))

	_, err = svc.CreateBatch(context.Background(), 1, 5, time.Now().Add(-time.Hour), false, "", 0)
	assert.True(t, errors.Is(err, errors.ErrInvalidBatch))

	mockDB.ExpectationsWereMet(t)
}

func TestCorrectBatch(t *testing.T) {
	svc, mockDB := newTestInventoryService(t)
	defer mockDB.Close()

	now := time.Now()

	mockDB.ExpectBegin()
	mockDB.ExpectQuery("FROM batches WHERE id = $1 FOR UPDATE").
		WithArgs(int64(7)).
		WillReturnRows(testutil.MockRows(batchCols...).
			AddRow(int64(7), int64(1), "Ha-1-01012026", 10, now.Add(48*time.Hour), now))
	mockDB.ExpectExec("UPDATE batches SET quantity = $2 WHERE id = $1").
		WithArgs(int64(7), 6).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mockDB.ExpectQuery("FROM products WHERE id = $1 FOR UPDATE").
		WithArgs(int64(1)).
		WillReturnRows(productRow(1, "Harina", 50))
	mockDB.ExpectExec("UPDATE products SET stock = $2").
		WithArgs(int64(1), 46).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mockDB.ExpectQuery("INSERT INTO stock_adjustments").
		WithArgs(int64(1), repository.AdjustmentCorrection, 50, 46, -4, "damaged units", nil, "Ha-1-01012026", int64(5)).
		WillReturnRows(testutil.MockRows("id", "created_at").AddRow(int64(104), now))
	mockDB.ExpectCommit()

	batch, err := svc.CorrectBatch(context.Background(), 7, 6, "damaged units", 5)
	require.NoError(t, err)
	assert.Equal(t, 6, batch.Quantity)

	mockDB.ExpectationsWereMet(t)
}

func TestCorrectBatchNoChange(t *testing.T) {
	svc, mockDB := newTestInventoryService(t)
	defer mockDB.Close()

	now := time.Now()

	mockDB.ExpectBegin()
	mockDB.ExpectQuery("FROM batches WHERE id = $1 FOR UPDATE").
		WithArgs(int64(7)).
		WillReturnRows(testutil.MockRows(batchCols...).
			AddRow(int64(7), int64(1), "Ha-1-01012026", 10, now.Add(48*time.Hour), now))
	mockDB.ExpectCommit()

	batch, err := svc.CorrectBatch(context.Background(), 7, 10, "recount", 5)
	require.NoError(t, err)
	assert.Equal(t, 10, batch.Quantity)

	mockDB.ExpectationsWereMet(t)
}

func TestDeleteBatchInUse(t *testing.T) {
	svc, mockDB := newTestInventoryService(t)
	defer mockDB.Close()

	now := time.Now()

	mockDB.ExpectBegin()
	mockDB.ExpectQuery("FROM batches WHERE id = $1 FOR UPDATE").
		WithArgs(int64(7)).
		WillReturnRows(testutil.MockRows(batchCols...).
			AddRow(int64(7), int64(1), "Ha-1-01012026", 4, now.Add(48*time.Hour), now))
	mockDB.ExpectRollback()

	err := svc.DeleteBatch(context.Background(), 7)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrBatchInUse))

	mockDB.ExpectationsWereMet(t)
}

func TestDeleteBatchEmpty(t *testing.T) {
	svc, mockDB := newTestInventoryService(t)
	defer mockDB.Close()

	now := time.Now()

	mockDB.ExpectBegin()
	mockDB.ExpectQuery("FROM batches WHERE id = $1 FOR UPDATE").
		WithArgs(int64(7)).
		WillReturnRows(testutil.MockRows(batchCols...).
			AddRow(int64(7), int64(1), "Ha-1-01012026", 0, now.Add(48*time.Hour), now))
	mockDB.ExpectExec("DELETE FROM batches WHERE id = $1").
		WithArgs(int64(7)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mockDB.ExpectCommit()

	err := svc.DeleteBatch(context.Background(), 7)
	require.NoError(t, err)

	mockDB.ExpectationsWereMet(t)
}
