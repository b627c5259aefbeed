package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/prudhvinik1/possync/internal/models"
	"github.com/prudhvinik1/possync/internal/repositories"
)

func TestSessionManager_OpenIsIdempotentPerShop(t *testing.T) {
	defer goleak.VerifyNone(t)

	// ARRANGE
	h := newHarness(t, false)
	m := NewSessionManager(h.engine, nil, SessionConfig{}, nil)
	defer m.Close()
	ctx := context.Background()

	// ACT
	first, err := m.Open(ctx, testShopID, "till-1")
	require.NoError(t, err)
	again, err := m.Open(ctx, testShopID, "till-1")
	require.NoError(t, err)
	_, conflict := m.Open(ctx, "shop-2", "till-1")

	// ASSERT
	assert.Same(t, first, again)
	assert.ErrorIs(t, conflict, ErrSessionConflict)
	active, err := m.Active()
	require.NoError(t, err)
	assert.Equal(t, testShopID, active.ShopID)
}

func TestSessionManager_SignOutClearsLocalData(t *testing.T) {
	defer goleak.VerifyNone(t)

	// ARRANGE
	h := newHarness(t, false)
	m := NewSessionManager(h.engine, nil, SessionConfig{}, nil)
	ctx := context.Background()
	_, err := m.Open(ctx, testShopID, "till-1")
	require.NoError(t, err)
	_, err = h.engine.SaveProduct(ctx, product("p1", "Rice", 5000))
	require.NoError(t, err)
	require.NoError(t, h.engine.Store().SetLastSyncAt(ctx, h.clock.Now()))

	// ACT
	err = m.SignOut(ctx)

	// ASSERT
	require.NoError(t, err)
	assert.Empty(t, h.queue(t))
	products, err := h.engine.Store().Products(ctx)
	require.NoError(t, err)
	assert.Empty(t, products)
	last, err := h.engine.LastSyncAt(ctx)
	require.NoError(t, err)
	assert.Nil(t, last)

	_, err = m.Active()
	assert.ErrorIs(t, err, ErrNoSession)
	assert.ErrorIs(t, m.SignOut(ctx), ErrNoSession)

	// Another shop may now sign in
	_, err = m.Open(ctx, "shop-2", "till-1")
	require.NoError(t, err)
	m.Close()
}

func TestSessionManager_CloseKeepsLocalData(t *testing.T) {
	defer goleak.VerifyNone(t)

	h := newHarness(t, false)
	m := NewSessionManager(h.engine, nil, SessionConfig{}, nil)
	ctx := context.Background()
	_, err := m.Open(ctx, testShopID, "till-1")
	require.NoError(t, err)
	_, err = h.engine.SaveProduct(ctx, product("p1", "Rice", 5000))
	require.NoError(t, err)

	m.Close()

	assert.Len(t, h.queue(t), 1)
	_, err = m.Active()
	assert.ErrorIs(t, err, ErrNoSession)
}

func TestSessionManager_RejectsBadSchedule(t *testing.T) {
	defer goleak.VerifyNone(t)

	h := newHarness(t, false)
	m := NewSessionManager(h.engine, nil, SessionConfig{SyncSchedule: "every so often"}, nil)

	_, err := m.Open(context.Background(), testShopID, "till-1")

	assert.Error(t, err)
	_, err = m.Active()
	assert.ErrorIs(t, err, ErrNoSession)
}

func TestSessionManager_HeartbeatPublishesPresence(t *testing.T) {
	defer goleak.VerifyNone(t)

	// ARRANGE
	h := newHarness(t, true)
	presence := repositories.NewMemoryPresenceRepository()
	m := NewSessionManager(h.engine, presence, SessionConfig{HeartbeatInterval: 10 * time.Millisecond}, nil)
	ctx := context.Background()

	// ACT
	_, err := m.Open(ctx, testShopID, "till-1")
	require.NoError(t, err)

	// ASSERT
	require.Eventually(t, func() bool {
		p, err := presence.GetPresence(ctx, testShopID, "till-1")
		return err == nil && p.Status == string(models.StatusOnline)
	}, time.Second, 5*time.Millisecond)

	require.NoError(t, m.SignOut(ctx))
	p, err := presence.GetPresence(ctx, testShopID, "till-1")
	require.NoError(t, err)
	assert.Equal(t, string(models.StatusOffline), p.Status)
}

func TestSessionManager_OpenFlushesWhenAlreadyOnline(t *testing.T) {
	defer goleak.VerifyNone(t)

	h := newHarness(t, true)
	ctx := context.Background()
	_, err := h.engine.Enqueue(ctx, models.CollectionProducts, models.OperationInsert, product("p1", "Rice", 5000))
	require.NoError(t, err)
	m := NewSessionManager(h.engine, nil, SessionConfig{}, nil)

	_, err = m.Open(ctx, testShopID, "till-1")
	require.NoError(t, err)
	m.Close()

	assert.Empty(t, h.queue(t))
	assert.Len(t, h.remote.Rows("products"), 1)
}

// hangingConnectivity blocks reachability checks made with a cancellable
// context until that context is done.
type hangingConnectivity struct {
	entered chan struct{}
	once    sync.Once
}

func (c *hangingConnectivity) Reachable(ctx context.Context) bool {
	if ctx.Done() == nil {
		return false
	}
	c.once.Do(func() { close(c.entered) })
	<-ctx.Done()
	return false
}

func (c *hangingConnectivity) Subscribe(func(bool)) func() {
	return func() {}
}

func TestSessionManager_SignOutInterruptsScheduledSync(t *testing.T) {
	defer goleak.VerifyNone(t)

	// ARRANGE
	conn := &hangingConnectivity{entered: make(chan struct{})}
	engine := NewEngine(repositories.NewMemoryKeyValueStore(), repositories.NewMemoryRemoteStore(), conn)
	m := NewSessionManager(engine, nil, SessionConfig{SyncSchedule: "@every 1s"}, nil)
	_, err := m.Open(context.Background(), testShopID, "till-1")
	require.NoError(t, err)

	select {
	case <-conn.entered:
	case <-time.After(3 * time.Second):
		t.Fatal("scheduled sync never started")
	}

	// ACT
	done := make(chan error, 1)
	go func() { done <- m.SignOut(context.Background()) }()

	// ASSERT
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("sign-out blocked on the scheduled sync")
	}
}
