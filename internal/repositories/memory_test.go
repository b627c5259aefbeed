package repositories

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prudhvinik1/possync/internal/models"
)

func TestMemoryKeyValueStore_SetErr(t *testing.T) {
	store := NewMemoryKeyValueStore()
	store.SetErr = errors.New("disk full")

	err := store.Set(context.Background(), "queue", []byte("[]"))

	assert.EqualError(t, err, "disk full")
	_, err = store.Get(context.Background(), "queue")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryRemoteStore_UpsertIsIdempotent(t *testing.T) {
	// ARRANGE
	remote := NewMemoryRemoteStore()
	ctx := context.Background()
	row := models.RemoteRow{"id": "p1", "shop_id": "shop-1", "name": "Rice", "price": int64(5000)}

	// ACT
	require.NoError(t, remote.Upsert(ctx, "products", row))
	require.NoError(t, remote.Upsert(ctx, "products", row))

	// ASSERT
	rows := remote.Rows("products")
	require.Len(t, rows, 1)
	assert.Equal(t, "Rice", rows[0]["name"])
}

func TestMemoryRemoteStore_ForeignRecord(t *testing.T) {
	remote := NewMemoryRemoteStore()
	ctx := context.Background()
	require.NoError(t, remote.Upsert(ctx, "products", models.RemoteRow{"id": "p1", "shop_id": "shop-1"}))

	err := remote.Upsert(ctx, "products", models.RemoteRow{"id": "p1", "shop_id": "shop-2"})

	assert.ErrorIs(t, err, ErrForeignRecord)
}

func TestMemoryRemoteStore_DeleteScopedToShop(t *testing.T) {
	remote := NewMemoryRemoteStore()
	ctx := context.Background()
	require.NoError(t, remote.Upsert(ctx, "orders", models.RemoteRow{"id": "o1", "shop_id": "shop-1"}))

	require.NoError(t, remote.Delete(ctx, "orders", "o1", "shop-2"))
	assert.Len(t, remote.Rows("orders"), 1)

	require.NoError(t, remote.Delete(ctx, "orders", "o1", "shop-1"))
	assert.Empty(t, remote.Rows("orders"))
}

func TestMemoryRemoteStore_ListOrdering(t *testing.T) {
	// ARRANGE
	remote := NewMemoryRemoteStore()
	ctx := context.Background()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, id := range []string{"s1", "s2", "s3"} {
		require.NoError(t, remote.Upsert(ctx, "sales", models.RemoteRow{
			"id": id, "shop_id": "shop-1", "created_at": base.Add(time.Duration(i) * time.Hour),
		}))
	}
	require.NoError(t, remote.Upsert(ctx, "sales", models.RemoteRow{"id": "x", "shop_id": "shop-2"}))

	// ACT
	rows, err := remote.List(ctx, "sales", "shop-1", OrderBy{Column: "created_at", Descending: true})

	// ASSERT
	require.NoError(t, err)
	ids := make([]string, 0, len(rows))
	for _, r := range rows {
		ids = append(ids, r.ID())
	}
	assert.Equal(t, []string{"s3", "s2", "s1"}, ids)
}

func TestMemoryPresenceRepository_DefaultsOffline(t *testing.T) {
	repo := NewMemoryPresenceRepository()
	ctx := context.Background()

	p, err := repo.GetPresence(ctx, "shop-1", "till-1")
	require.NoError(t, err)
	assert.Equal(t, string(models.StatusOffline), p.Status)

	require.NoError(t, repo.SetPresence(ctx, &models.Presence{ShopID: "shop-1", DeviceID: "till-1", Status: string(models.StatusOnline)}))
	bulk, err := repo.GetBulkPresence(ctx, "shop-1", []string{"till-1", "till-2"})
	require.NoError(t, err)
	assert.Equal(t, string(models.StatusOnline), bulk["till-1"].Status)
	assert.Equal(t, string(models.StatusOffline), bulk["till-2"].Status)
}
