package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/prudhvinik1/possync/internal/connectivity"
	"github.com/prudhvinik1/possync/internal/models"
	"github.com/prudhvinik1/possync/internal/repositories"
)

const testShopID = "shop-1"

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type harness struct {
	kv      *repositories.MemoryKeyValueStore
	remote  *repositories.MemoryRemoteStore
	monitor *connectivity.Monitor
	clock   *fakeClock
	engine  *Engine
}

func newHarness(t *testing.T, online bool, opts ...Option) *harness {
	t.Helper()
	h := &harness{
		kv:     repositories.NewMemoryKeyValueStore(),
		remote: repositories.NewMemoryRemoteStore(),
		clock:  newFakeClock(),
	}
	h.monitor = connectivity.NewMonitor(h.remote, time.Second, nil)
	h.monitor.Set(online)

	opts = append([]Option{WithClock(h.clock.Now)}, opts...)
	h.engine = NewEngine(h.kv, h.remote, h.monitor, opts...)
	return h
}

func (h *harness) queue(t *testing.T) []models.QueueItem {
	t.Helper()
	items, err := h.engine.Queue().Items(context.Background())
	require.NoError(t, err)
	return items
}

func (h *harness) seedRemote(t *testing.T, table string, rows ...models.RemoteRow) {
	t.Helper()
	for _, row := range rows {
		require.NoError(t, h.remote.Upsert(context.Background(), table, row))
	}
}

func product(id, name string, price int64) models.Product {
	return models.Product{ID: id, Name: name, Price: price, Quantity: 10}
}
