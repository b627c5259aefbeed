package services

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prudhvinik1/possync/internal/models"
	"github.com/prudhvinik1/possync/internal/repositories"
)

func TestLocalStore_EmptyViews(t *testing.T) {
	store := NewLocalStore(repositories.NewMemoryKeyValueStore())
	ctx := context.Background()

	products, err := store.Products(ctx)
	require.NoError(t, err)
	assert.NotNil(t, products)
	assert.Empty(t, products)

	_, ok, err := store.ShopProfile(ctx)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestLocalStore_DroppedListIsBounded(t *testing.T) {
	// ARRANGE
	store := NewLocalStore(repositories.NewMemoryKeyValueStore())
	ctx := context.Background()

	// ACT
	for i := 0; i < maxDroppedItems+5; i++ {
		item := models.DroppedItem{Item: models.QueueItem{ID: fmt.Sprintf("q%d", i)}, Reason: "boom"}
		require.NoError(t, store.AppendDropped(ctx, item))
	}

	// ASSERT
	dropped, err := store.Dropped(ctx)
	require.NoError(t, err)
	require.Len(t, dropped, maxDroppedItems)
	assert.Equal(t, "q5", dropped[0].Item.ID)
	assert.Equal(t, fmt.Sprintf("q%d", maxDroppedItems+4), dropped[len(dropped)-1].Item.ID)
}

func TestLocalStore_LastSyncRoundTrip(t *testing.T) {
	store := NewLocalStore(repositories.NewMemoryKeyValueStore())
	ctx := context.Background()
	at := time.Date(2024, 5, 1, 9, 30, 0, 123, time.UTC)

	require.NoError(t, store.SetLastSyncAt(ctx, at))
	got, err := store.LastSyncAt(ctx)

	require.NoError(t, err)
	require.NotNil(t, got)
	assert.True(t, at.Equal(*got))
}

func TestLocalStore_Clear(t *testing.T) {
	kv := repositories.NewMemoryKeyValueStore()
	store := NewLocalStore(kv)
	ctx := context.Background()
	require.NoError(t, store.SetProducts(ctx, []models.Product{{ID: "p1"}}))
	require.NoError(t, store.SetLastSyncAt(ctx, time.Now()))

	require.NoError(t, store.Clear(ctx))

	for _, key := range allKeys {
		_, err := kv.Get(ctx, key)
		assert.ErrorIs(t, err, repositories.ErrNotFound, key)
	}
}
