//go:build integration
// +build integration

// To enable gopls support for this file, add the following to your VSCode settings.json:
// "gopls": {
//   "buildFlags": ["-tags=integration"]
// }

package postgres

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	catalogpostgres "github.com/averos/fleamarket/internal/domains/catalog/adapters/persistence/postgres"
	catalogdomain "github.com/averos/fleamarket/internal/domains/catalog/domain"
	"github.com/averos/fleamarket/internal/domains/orders/domain"
	"github.com/averos/fleamarket/internal/domains/orders/ports"
	"github.com/averos/fleamarket/internal/platform/migrations"
)

func setupPostgresContainer(t *testing.T) (*gorm.DB, func()) {
	ctx := context.Background()

	pgContainer, err := tcpostgres.RunContainer(ctx,
		testcontainers.WithImage("postgres:15-alpine"),
		tcpostgres.WithDatabase("fleamarket_test"),
		tcpostgres.WithUsername("test"),
		tcpostgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	require.NoError(t, err)

	dsn, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	require.NoError(t, err)

	err = migrations.Run(db)
	require.NoError(t, err)

	cleanup := func() {
		sqlDB, _ := db.DB()
		if sqlDB != nil {
			sqlDB.Close()
		}
		pgContainer.Terminate(ctx)
	}

	return db, cleanup
}

func seedProduct(t *testing.T, db *gorm.DB, price string, stock int32) *catalogdomain.Product {
	t.Helper()
	product, err := catalogdomain.NewProduct(
		int64(gofakeit.Number(1, 1000)),
		gofakeit.ProductName(),
		gofakeit.Sentence(8),
		decimal.RequireFromString(price),
		stock,
		[]string{gofakeit.URL()},
	)
	require.NoError(t, err)
	saved, err := catalogpostgres.NewRepository(db).Save(context.Background(), product)
	require.NoError(t, err)
	return saved
}

func newPendingOrder(t *testing.T, userID, productID int64, quantity int32) *domain.Order {
	t.Helper()
	order, err := domain.NewOrder(userID, productID, quantity, gofakeit.Address().Address, "sandbox")
	require.NoError(t, err)
	return order
}

func productStock(t *testing.T, db *gorm.DB, id int64) int32 {
	t.Helper()
	var stock int32
	require.NoError(t, db.Table("products").Where("id = ?", id).Select("stock").Scan(&stock).Error)
	return stock
}

func TestCreateReserved_SnapshotsPriceAndDecrementsStock(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	db, cleanup := setupPostgresContainer(t)
	defer cleanup()

	repo := NewRepository(db)
	ctx := context.Background()
	product := seedProduct(t, db, "120.50", 5)

	created, err := repo.CreateReserved(ctx, newPendingOrder(t, 7, product.ID, 2))
	require.NoError(t, err)

	assert.NotZero(t, created.ID)
	assert.Equal(t, domain.StatusPending, created.Status)
	assert.True(t, created.UnitPrice.Equal(decimal.RequireFromString("120.50")))
	assert.True(t, created.TotalPrice.Equal(decimal.RequireFromString("241.00")))
	assert.Equal(t, int32(3), productStock(t, db, product.ID))

	reloaded, err := repo.GetByOrderNo(ctx, created.OrderNo)
	require.NoError(t, err)
	assert.Equal(t, created.ID, reloaded.ID)
}

func TestCreateReserved_InsufficientStockRollsBack(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	db, cleanup := setupPostgresContainer(t)
	defer cleanup()

	repo := NewRepository(db)
	ctx := context.Background()
	product := seedProduct(t, db, "10.00", 1)

	_, err := repo.CreateReserved(ctx, newPendingOrder(t, 7, product.ID, 3))
	require.ErrorIs(t, err, ports.ErrInsufficientStock)

	assert.Equal(t, int32(1), productStock(t, db, product.ID))
	orders, err := repo.ListByUser(ctx, 7)
	require.NoError(t, err)
	assert.Empty(t, orders)
}

func TestCreateReserved_UnknownProduct(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	db, cleanup := setupPostgresContainer(t)
	defer cleanup()

	repo := NewRepository(db)

	_, err := repo.CreateReserved(context.Background(), newPendingOrder(t, 7, 999999, 1))
	require.ErrorIs(t, err, ports.ErrProductNotFound)
}

// Concurrent reservations against the same row must serialize on the lock and
// never drive stock negative.
func TestCreateReserved_ConcurrentNeverOversells(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	db, cleanup := setupPostgresContainer(t)
	defer cleanup()

	repo := NewRepository(db)
	ctx := context.Background()
	const stock = 5
	const buyers = 20
	product := seedProduct(t, db, "15.00", stock)

	var wg sync.WaitGroup
	results := make(chan error, buyers)
	for i := 0; i < buyers; i++ {
		wg.Add(1)
		go func(userID int64) {
			defer wg.Done()
			_, err := repo.CreateReserved(ctx, newPendingOrder(t, userID, product.ID, 1))
			results <- err
		}(int64(i + 1))
	}
	wg.Wait()
	close(results)

	succeeded := 0
	for err := range results {
		if err == nil {
			succeeded++
		} else {
			require.ErrorIs(t, err, ports.ErrInsufficientStock)
		}
	}
	assert.Equal(t, stock, succeeded)
	assert.Equal(t, int32(0), productStock(t, db, product.ID))
}

// A listing update saved from a snapshot taken before a reservation must not
// write the stale stock value back over the decrement.
func TestCreateReserved_SurvivesStaleListingUpdate(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	db, cleanup := setupPostgresContainer(t)
	defer cleanup()

	repo := NewRepository(db)
	catalogRepo := catalogpostgres.NewRepository(db)
	ctx := context.Background()
	product := seedProduct(t, db, "100.00", 1)

	snapshot, err := catalogRepo.GetByID(ctx, product.ID)
	require.NoError(t, err)

	_, err = repo.CreateReserved(ctx, newPendingOrder(t, 7, product.ID, 1))
	require.NoError(t, err)
	require.Equal(t, int32(0), productStock(t, db, product.ID))

	require.NoError(t, snapshot.Reprice(decimal.RequireFromString("80.00")))
	updated, err := catalogRepo.Save(ctx, snapshot)
	require.NoError(t, err)

	assert.True(t, updated.Price.Equal(decimal.RequireFromString("80.00")))
	assert.Equal(t, int32(0), productStock(t, db, product.ID))
}

func TestCancelAndRestock(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	db, cleanup := setupPostgresContainer(t)
	defer cleanup()

	repo := NewRepository(db)
	ctx := context.Background()
	product := seedProduct(t, db, "10.00", 5)

	created, err := repo.CreateReserved(ctx, newPendingOrder(t, 7, product.ID, 2))
	require.NoError(t, err)
	require.Equal(t, int32(3), productStock(t, db, product.ID))

	cancelled, err := repo.CancelAndRestock(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCancelled, cancelled.Status)
	assert.NotNil(t, cancelled.CancelledAt)
	assert.Equal(t, int32(5), productStock(t, db, product.ID))

	// A second cancellation finds the order already finalized.
	_, err = repo.CancelAndRestock(ctx, created.ID)
	require.ErrorIs(t, err, domain.ErrInvalidState)
	assert.Equal(t, int32(5), productStock(t, db, product.ID))
}

func TestConfirmPayment_IdempotentAndGuarded(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	db, cleanup := setupPostgresContainer(t)
	defer cleanup()

	repo := NewRepository(db)
	ctx := context.Background()
	product := seedProduct(t, db, "10.00", 5)

	created, err := repo.CreateReserved(ctx, newPendingOrder(t, 7, product.ID, 1))
	require.NoError(t, err)

	first, err := repo.ConfirmPayment(ctx, created.ID)
	require.NoError(t, err)
	require.Equal(t, domain.StatusPaid, first.Status)
	require.NotNil(t, first.PaidAt)

	second, err := repo.ConfirmPayment(ctx, created.ID)
	require.NoError(t, err)
	assert.True(t, first.PaidAt.Equal(*second.PaidAt))

	// Paying a cancelled order is rejected.
	other, err := repo.CreateReserved(ctx, newPendingOrder(t, 7, product.ID, 1))
	require.NoError(t, err)
	_, err = repo.CancelAndRestock(ctx, other.ID)
	require.NoError(t, err)
	_, err = repo.ConfirmPayment(ctx, other.ID)
	require.ErrorIs(t, err, domain.ErrInvalidState)
}

func TestFindExpiredPending(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	db, cleanup := setupPostgresContainer(t)
	defer cleanup()

	repo := NewRepository(db)
	ctx := context.Background()
	product := seedProduct(t, db, "10.00", 10)

	stale, err := repo.CreateReserved(ctx, newPendingOrder(t, 7, product.ID, 1))
	require.NoError(t, err)
	paid, err := repo.CreateReserved(ctx, newPendingOrder(t, 7, product.ID, 1))
	require.NoError(t, err)
	_, err = repo.ConfirmPayment(ctx, paid.ID)
	require.NoError(t, err)

	// Age the pending orders past the cutoff.
	backdated := time.Now().Add(-time.Hour)
	require.NoError(t, db.Table("orders").
		Where("id IN ?", []int64{stale.ID, paid.ID}).
		Update("created_at", backdated).Error)

	expired, err := repo.FindExpiredPending(ctx, time.Now().Add(-30*time.Minute))
	require.NoError(t, err)
	require.Len(t, expired, 1)
	assert.Equal(t, stale.ID, expired[0].ID)
}
