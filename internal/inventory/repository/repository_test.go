package repository_test

import (
	"context"
	"flag"
	"log"
	"os"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vendstock/vendstock-backend/internal/inventory/repository"
	"github.com/vendstock/vendstock-backend/pkg/errors"
	"github.com/vendstock/vendstock-backend/pkg/testutil"
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
	defer testutil.TerminateContainer(ctx)

	os.Exit(m.Run())
}

func createTestProduct(t *testing.T, ctx context.Context, repo *repository.ProductRepository, title string, stock int) *repository.Product {
	t.Helper()

	product := &repository.Product{
		Title:          title,
		UnitPriceCents: 1200,
		Unit:           "unit",
		Stock:          stock,
		InitialStock:   stock,
	}
	err := suite.DB.Transaction(ctx, func(tx *sqlx.Tx) error {
		return repo.CreateTx(ctx, tx, product)
	})
	require.NoError(t, err)
	return product
}

func TestProductRepository_CreateAndGet(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	ctx := context.Background()
	suite.Reset(t, ctx)

	repo := repository.NewProductRepository(suite.DB)
	product := createTestProduct(t, ctx, repo, "Harina 000", 25)

	found, err := repo.GetByID(ctx, product.ID)
	require.NoError(t, err)
	assert.Equal(t, "Harina 000", found.Title)
	assert.Equal(t, 25, found.Stock)
	assert.Equal(t, 25, found.InitialStock)
}

func TestProductRepository_GetNotFound(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	ctx := context.Background()
	suite.Reset(t, ctx)

	repo := repository.NewProductRepository(suite.DB)

	_, err := repo.GetByID(ctx, 999999)
	require.Error(t, err)

	var appErr *errors.AppError
	require.True(t, errors.As(err, &appErr), "expected AppError, got %T", err)
	assert.Equal(t, "NOT_FOUND", appErr.Code)
}

func TestProductRepository_LowStockOrdering(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	ctx := context.Background()
	suite.Reset(t, ctx)

	repo := repository.NewProductRepository(suite.DB)
	createTestProduct(t, ctx, repo, "A", 8)
	createTestProduct(t, ctx, repo, "B", 0) // zero stock is excluded
	createTestProduct(t, ctx, repo, "C", 3)
	createTestProduct(t, ctx, repo, "D", 11) // above threshold

	low, err := repo.LowStock(ctx, 10)
	require.NoError(t, err)
	require.Len(t, low, 2)
	assert.Equal(t, "C", low[0].Title)
	assert.Equal(t, "A", low[1].Title)
}

func TestBatchRepository_ListByProductExpiryOrder(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	ctx := context.Background()
	suite.Reset(t, ctx)

	productRepo := repository.NewProductRepository(suite.DB)
	batchRepo := repository.NewBatchRepository(suite.DB)
	product := createTestProduct(t, ctx, productRepo, "Leche entera", 0)

	now := time.Now().UTC().Truncate(time.Second)
	err := suite.DB.Transaction(ctx, func(tx *sqlx.Tx) error {
		for i, offset := range []time.Duration{72 * time.Hour, 24 * time.Hour, 48 * time.Hour} {
			b := &repository.Batch{
				ProductID:  product.ID,
				BatchCode:  []string{"LE-1", "LE-2", "LE-3"}[i],
				Quantity:   10,
				ExpiryDate: now.Add(offset),
			}
			if err := batchRepo.CreateTx(ctx, tx, b); err != nil {
				return err
			}
		}
		return nil
	})
	require.NoError(t, err)

	batches, err := batchRepo.ListByProduct(ctx, product.ID)
	require.NoError(t, err)
	require.Len(t, batches, 3)
	assert.Equal(t, "LE-2", batches[0].BatchCode)
	assert.Equal(t, "LE-3", batches[1].BatchCode)
	assert.Equal(t, "LE-1", batches[2].BatchCode)
}

func TestBatchRepository_AllocatableEqualExpiryAscendingID(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	ctx := context.Background()
	suite.Reset(t, ctx)

	productRepo := repository.NewProductRepository(suite.DB)
	batchRepo := repository.NewBatchRepository(suite.DB)
	product := createTestProduct(t, ctx, productRepo, "Queso cremoso", 0)

	now := time.Now().UTC().Truncate(time.Second)
	later := now.Add(96 * time.Hour)

	// Two batches share an expiry date; a third expires sooner but is
	// inserted last, so it carries the highest id.
	err := suite.DB.Transaction(ctx, func(tx *sqlx.Tx) error {
		for _, b := range []*repository.Batch{
			{ProductID: product.ID, BatchCode: "QC-1", Quantity: 5, ExpiryDate: later},
			{ProductID: product.ID, BatchCode: "QC-2", Quantity: 5, ExpiryDate: later},
			{ProductID: product.ID, BatchCode: "QC-3", Quantity: 5, ExpiryDate: now.Add(24 * time.Hour)},
		} {
			if err := batchRepo.CreateTx(ctx, tx, b); err != nil {
				return err
			}
		}
		return nil
	})
	require.NoError(t, err)

	err = suite.DB.Transaction(ctx, func(tx *sqlx.Tx) error {
		batches, err := batchRepo.ListAllocatableTx(ctx, tx, product.ID)
		require.NoError(t, err)
		require.Len(t, batches, 3)

		// earliest expiry wins regardless of insertion order
		assert.Equal(t, "QC-3", batches[0].BatchCode)
		// equal expiry dates tie-break on ascending id
		assert.Equal(t, "QC-1", batches[1].BatchCode)
		assert.Equal(t, "QC-2", batches[2].BatchCode)
		assert.Less(t, batches[1].ID, batches[2].ID)
		return nil
	})
	require.NoError(t, err)
}

func TestBatchRepository_DuplicateCodeRejected(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	ctx := context.Background()
	suite.Reset(t, ctx)

	productRepo := repository.NewProductRepository(suite.DB)
	batchRepo := repository.NewBatchRepository(suite.DB)
	product := createTestProduct(t, ctx, productRepo, "Pan lactal", 0)

	expiry := time.Now().Add(72 * time.Hour)
	err := suite.DB.Transaction(ctx, func(tx *sqlx.Tx) error {
		return batchRepo.CreateTx(ctx, tx, &repository.Batch{
			ProductID: product.ID, BatchCode: "PA-1", Quantity: 5, ExpiryDate: expiry,
		})
	})
	require.NoError(t, err)

	err = suite.DB.Transaction(ctx, func(tx *sqlx.Tx) error {
		return batchRepo.CreateTx(ctx, tx, &repository.Batch{
			ProductID: product.ID, BatchCode: "PA-1", Quantity: 3, ExpiryDate: expiry,
		})
	})
	require.Error(t, err)
}

func TestAdjustmentRepository_AppendAndListByOrder(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	ctx := context.Background()
	suite.Reset(t, ctx)

	productRepo := repository.NewProductRepository(suite.DB)
	adjRepo := repository.NewAdjustmentRepository(suite.DB)
	product := createTestProduct(t, ctx, productRepo, "Arroz", 20)

	orderID := "ORD-77"
	err := suite.DB.Transaction(ctx, func(tx *sqlx.Tx) error {
		return adjRepo.AppendTx(ctx, tx, &repository.StockAdjustment{
			ProductID:      product.ID,
			AdjustmentType: repository.AdjustmentOrderSale,
			QuantityBefore: 20,
			QuantityAfter:  15,
			Difference:     -5,
			RelatedOrderID: &orderID,
			UserID:         0,
		})
	})
	require.NoError(t, err)

	byOrder, err := adjRepo.ListByOrder(ctx, orderID)
	require.NoError(t, err)
	require.Len(t, byOrder, 1)
	assert.Equal(t, -5, byOrder[0].Difference)

	byProduct, total, err := adjRepo.ListByProduct(ctx, product.ID, 1, 50)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, byProduct, 1)
	assert.Equal(t, repository.AdjustmentOrderSale, byProduct[0].AdjustmentType)
}

func TestSchemaRejectsNegativeStock(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	ctx := context.Background()
	suite.Reset(t, ctx)

	productRepo := repository.NewProductRepository(suite.DB)
	product := createTestProduct(t, ctx, productRepo, "Yerba", 5)

	// The check constraint is the backstop behind the service-level guard.
	err := suite.DB.Transaction(ctx, func(tx *sqlx.Tx) error {
		return productRepo.SetStockTx(ctx, tx, product.ID, -1)
	})
	require.Error(t, err)
}
