package repositories

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prudhvinik1/possync/internal/models"
)

// TestRemoteRepository_UpsertTwice verifies a replayed push leaves one row.
func TestRemoteRepository_UpsertTwice(t *testing.T) {
	// ARRANGE
	pool := getTestPool(t)
	repo := NewPostgresRemoteRepository(pool)
	ctx := context.Background()
	shopID := newTestShop(t, ctx, repo)
	defer cleanupTestShop(t, ctx, pool, shopID)

	row := models.ProductToRow(models.Product{
		ID: uuid.NewString(), ShopID: shopID, Name: "Rice", Price: 5000, Quantity: 4,
	})

	// ACT
	require.NoError(t, repo.Upsert(ctx, "products", row))
	require.NoError(t, repo.Upsert(ctx, "products", row))

	// ASSERT
	rows, err := repo.List(ctx, "products", shopID, OrderBy{Column: "name"})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	product, err := models.ProductFromRow(rows[0])
	require.NoError(t, err)
	assert.Equal(t, int64(5000), product.Price)
	assert.False(t, product.CreatedAt.IsZero(), "CreatedAt should come from the column default")
}

func TestRemoteRepository_UpsertForeignRecord(t *testing.T) {
	pool := getTestPool(t)
	repo := NewPostgresRemoteRepository(pool)
	ctx := context.Background()
	shopA := newTestShop(t, ctx, repo)
	shopB := newTestShop(t, ctx, repo)
	defer cleanupTestShop(t, ctx, pool, shopA)
	defer cleanupTestShop(t, ctx, pool, shopB)

	id := uuid.NewString()
	require.NoError(t, repo.Upsert(ctx, "products", models.ProductToRow(models.Product{ID: id, ShopID: shopA, Name: "Rice"})))

	err := repo.Upsert(ctx, "products", models.ProductToRow(models.Product{ID: id, ShopID: shopB, Name: "Stolen"}))

	assert.ErrorIs(t, err, ErrForeignRecord)
}

func TestRemoteRepository_SalesJSONBAndOrdering(t *testing.T) {
	// ARRANGE
	pool := getTestPool(t)
	repo := NewPostgresRemoteRepository(pool)
	ctx := context.Background()
	shopID := newTestShop(t, ctx, repo)
	defer cleanupTestShop(t, ctx, pool, shopID)

	older := models.Sale{
		ID: uuid.NewString(), ShopID: shopID, Total: 5000,
		Items:     []models.LineItem{{ProductID: "p1", Name: "Rice", Quantity: 1, UnitPrice: 5000}},
		CreatedAt: time.Now().Add(-time.Hour).UTC(),
	}
	newer := models.Sale{ID: uuid.NewString(), ShopID: shopID, Total: 100, CreatedAt: time.Now().UTC()}
	require.NoError(t, repo.Upsert(ctx, "sales", models.SaleToRow(older)))
	require.NoError(t, repo.Upsert(ctx, "sales", models.SaleToRow(newer)))

	// ACT
	rows, err := repo.List(ctx, "sales", shopID, OrderBy{Column: "created_at", Descending: true})

	// ASSERT
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, newer.ID, rows[0].ID())
	sale, err := models.SaleFromRow(rows[1])
	require.NoError(t, err)
	assert.Equal(t, older.Items, sale.Items)
}

func TestRemoteRepository_DeleteScopedToShop(t *testing.T) {
	pool := getTestPool(t)
	repo := NewPostgresRemoteRepository(pool)
	ctx := context.Background()
	shopID := newTestShop(t, ctx, repo)
	defer cleanupTestShop(t, ctx, pool, shopID)

	id := uuid.NewString()
	require.NoError(t, repo.Upsert(ctx, "orders", models.OrderToRow(models.Order{ID: id, ShopID: shopID, Status: models.OrderStatusPending})))

	// Wrong owner leaves the row alone
	require.NoError(t, repo.Delete(ctx, "orders", id, "someone-else"))
	rows, err := repo.List(ctx, "orders", shopID, OrderBy{})
	require.NoError(t, err)
	assert.Len(t, rows, 1)

	require.NoError(t, repo.Delete(ctx, "orders", id, shopID))
	require.NoError(t, repo.Delete(ctx, "orders", id, shopID), "deleting twice should succeed")
	rows, err = repo.List(ctx, "orders", shopID, OrderBy{})
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestRemoteRepository_GetShop(t *testing.T) {
	pool := getTestPool(t)
	repo := NewPostgresRemoteRepository(pool)
	ctx := context.Background()
	shopID := newTestShop(t, ctx, repo)
	defer cleanupTestShop(t, ctx, pool, shopID)

	row, err := repo.GetShop(ctx, shopID)
	require.NoError(t, err)
	profile, err := models.ShopProfileFromRow(row)
	require.NoError(t, err)
	assert.Equal(t, "Test Shop", profile.Name)

	_, err = repo.GetShop(ctx, uuid.NewString())
	assert.ErrorIs(t, err, ErrNotFound)
}

// getTestPool connects to TEST_DATABASE_URL or skips the test.
func getTestPool(t *testing.T) *pgxpool.Pool {
	t.Helper()
	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	pool, err := pgxpool.New(context.Background(), url)
	require.NoError(t, err, "Failed to connect to test database")
	t.Cleanup(pool.Close)

	require.NoError(t, NewPostgresRemoteRepository(pool).EnsureSchema(context.Background()))
	return pool
}

func newTestShop(t *testing.T, ctx context.Context, repo *PostgresRemoteRepository) string {
	t.Helper()
	shopID := "test-" + uuid.NewString()
	err := repo.Upsert(ctx, models.ShopsTable, models.ShopProfileToRow(models.ShopProfile{
		ID: shopID, Name: "Test Shop", Currency: "NGN",
	}))
	require.NoError(t, err, "Failed to create test shop")
	return shopID
}

// cleanupTestShop removes every row owned by the shop
func cleanupTestShop(t *testing.T, ctx context.Context, pool *pgxpool.Pool, shopID string) {
	for _, table := range []string{"products", "sales", "orders", "payments"} {
		if _, err := pool.Exec(ctx, "DELETE FROM "+table+" WHERE shop_id = $1", shopID); err != nil {
			t.Logf("Warning: failed to cleanup %s: %v", table, err)
		}
	}
	if _, err := pool.Exec(ctx, "DELETE FROM shops WHERE id = $1", shopID); err != nil {
		t.Logf("Warning: failed to cleanup shop: %v", err)
	}
}
