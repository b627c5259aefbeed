package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/prudhvinik1/possync/internal/models"
	"github.com/prudhvinik1/possync/internal/repositories"
)

// Connectivity is the engine's view of the connectivity monitor.
type Connectivity interface {
	Reachable(ctx context.Context) bool
	Subscribe(fn func(reachable bool)) (unsubscribe func())
}

// Engine owns the local store, the mutation queue and the reconcilers for
// one device.
type Engine struct {
	store  *LocalStore
	queue  *MutationQueue
	remote repositories.RemoteStore
	conn   Connectivity
	retry  RetryPolicy
	log    *zap.Logger
	now    func() time.Time

	// viewMu serializes read-modify-write of the collection views.
	viewMu sync.Mutex

	flushMu    sync.Mutex
	flushLocks map[string]*sync.Mutex
}

type Option func(*Engine)

func WithLogger(log *zap.Logger) Option {
	return func(e *Engine) {
		if log != nil {
			e.log = log
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

func WithRetryPolicy(p RetryPolicy) Option {
	return func(e *Engine) { e.retry = p }
}

func NewEngine(kv repositories.KeyValueStore, remote repositories.RemoteStore, conn Connectivity, opts ...Option) *Engine {
	e := &Engine{
		remote:     remote,
		conn:       conn,
		retry:      DefaultRetryPolicy(),
		log:        zap.NewNop(),
		now:        time.Now,
		flushLocks: make(map[string]*sync.Mutex),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.store = NewLocalStore(kv)
	e.queue = NewMutationQueue(e.store, e.now)
	return e
}

func (e *Engine) Store() *LocalStore {
	return e.store
}

func (e *Engine) Queue() *MutationQueue {
	return e.queue
}

// Enqueue records a raw mutation without touching the views.
func (e *Engine) Enqueue(ctx context.Context, c models.Collection, op models.Operation, record any) (models.QueueItem, error) {
	return e.queue.Enqueue(ctx, c, op, record)
}

// SyncAll pushes pending mutations and then refreshes the views from the
// remote store. It never panics; every problem is reported in the result.
func (e *Engine) SyncAll(ctx context.Context, shopID string) (result models.SyncResult) {
	defer func() {
		if r := recover(); r != nil {
			e.log.Error("Sync panicked", zap.String("shop_id", shopID), zap.Any("panic", r))
			result = models.SyncFailure(fmt.Sprint(r))
		}
	}()

	if !e.conn.Reachable(ctx) {
		return models.SyncFailure(models.ReasonNoConnectivity)
	}

	report, err := e.Flush(ctx, shopID)
	if err != nil {
		e.log.Error("Flush failed", zap.String("shop_id", shopID), zap.Error(err))
		return models.SyncFailure(err.Error())
	}
	if report.Skipped {
		return models.SyncFailure(models.ReasonNoConnectivity)
	}

	if err := e.Pull(ctx, shopID); err != nil {
		e.log.Error("Pull failed", zap.String("shop_id", shopID), zap.Error(err))
		failure := models.SyncFailure(models.ReasonPullFailed)
		failure.Pushed = report.Pushed
		failure.Dropped = report.Dropped
		failure.Remaining = report.Remaining
		return failure
	}

	now := e.now()
	if err := e.store.SetLastSyncAt(ctx, now); err != nil {
		return models.SyncFailure(err.Error())
	}

	e.log.Info("Sync completed",
		zap.String("shop_id", shopID),
		zap.Int("pushed", report.Pushed),
		zap.Int("dropped", report.Dropped),
		zap.Int("remaining", report.Remaining),
	)
	return models.SyncResult{
		Success:   true,
		Pushed:    report.Pushed,
		Dropped:   report.Dropped,
		Remaining: report.Remaining,
		SyncedAt:  &now,
	}
}

// LastSyncAt returns the time of the last successful SyncAll, or nil.
func (e *Engine) LastSyncAt(ctx context.Context) (*time.Time, error) {
	return e.store.LastSyncAt(ctx)
}

func (e *Engine) Status(ctx context.Context, shopID string) (models.SyncStatus, error) {
	pending, err := e.queue.Len(ctx)
	if err != nil {
		return models.SyncStatus{}, err
	}
	dropped, err := e.store.Dropped(ctx)
	if err != nil {
		return models.SyncStatus{}, err
	}
	last, err := e.store.LastSyncAt(ctx)
	if err != nil {
		return models.SyncStatus{}, err
	}
	return models.SyncStatus{
		ShopID:     shopID,
		Reachable:  e.conn.Reachable(ctx),
		Pending:    pending,
		Dropped:    len(dropped),
		LastSyncAt: last,
	}, nil
}

// Reset discards the queue, views and sync bookkeeping. Used on sign-out.
// It waits for a flush of shopID in progress so that flush cannot write its
// carried items back afterwards.
func (e *Engine) Reset(ctx context.Context, shopID string) error {
	lock := e.shopLock(shopID)
	lock.Lock()
	defer lock.Unlock()

	e.viewMu.Lock()
	defer e.viewMu.Unlock()

	if err := e.queue.Clear(ctx); err != nil {
		return err
	}
	return e.store.Clear(ctx)
}

// WatchConnectivity flushes the queue for shopID whenever the remote store
// becomes reachable, and once right away if it already is. Errors are
// logged. The returned func detaches and waits for running flushes.
func (e *Engine) WatchConnectivity(shopID string) (unsubscribe func()) {
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		stopped bool
	)

	trigger := func(reason string, probe bool) {
		mu.Lock()
		defer mu.Unlock()
		if stopped {
			return
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			ctx := context.Background()
			if probe && !e.conn.Reachable(ctx) {
				return
			}
			report, err := e.Flush(ctx, shopID)
			if err != nil {
				e.log.Error("Auto-flush failed", zap.String("shop_id", shopID), zap.Error(err))
				return
			}
			if report.Attempted > 0 {
				e.log.Info("Auto-flush completed",
					zap.String("shop_id", shopID),
					zap.String("trigger", reason),
					zap.Int("pushed", report.Pushed),
					zap.Int("remaining", report.Remaining),
				)
			}
		}()
	}

	detach := e.conn.Subscribe(func(reachable bool) {
		if reachable {
			trigger("reconnect", false)
		}
	})
	trigger("startup", true)

	var once sync.Once
	return func() {
		once.Do(func() {
			detach()
			mu.Lock()
			stopped = true
			mu.Unlock()
			wg.Wait()
		})
	}
}

func (e *Engine) shopLock(shopID string) *sync.Mutex {
	e.flushMu.Lock()
	defer e.flushMu.Unlock()

	l, ok := e.flushLocks[shopID]
	if !ok {
		l = &sync.Mutex{}
		e.flushLocks[shopID] = l
	}
	return l
}
