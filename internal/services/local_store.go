package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/prudhvinik1/possync/internal/models"
	"github.com/prudhvinik1/possync/internal/repositories"
)

const (
	keyProducts    = "view:products"
	keySales       = "view:sales"
	keyOrders      = "view:orders"
	keyPayments    = "view:payments"
	keyShopProfile = "view:shop_profile"
	keyQueue       = "queue"
	keyDropped     = "queue:dropped"
	keyLastSync    = "sync:last_success_at"

	maxDroppedItems = 100
)

var allKeys = []string{keyProducts, keySales, keyOrders, keyPayments, keyShopProfile, keyQueue, keyDropped, keyLastSync}

// LocalStore holds the materialized collection views and sync bookkeeping
// on top of a KeyValueStore. Each key is one JSON document rewritten whole.
// There is no schema versioning of the stored documents.
type LocalStore struct {
	kv repositories.KeyValueStore
}

func NewLocalStore(kv repositories.KeyValueStore) *LocalStore {
	return &LocalStore{kv: kv}
}

func loadJSON(ctx context.Context, kv repositories.KeyValueStore, key string, v any) (bool, error) {
	data, err := kv.Get(ctx, key)
	if errors.Is(err, repositories.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to read %s: %w", key, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return false, fmt.Errorf("failed to decode %s: %w", key, err)
	}
	return true, nil
}

func saveJSON(ctx context.Context, kv repositories.KeyValueStore, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", key, err)
	}
	if err := kv.Set(ctx, key, data); err != nil {
		return fmt.Errorf("failed to write %s: %w", key, err)
	}
	return nil
}

func loadList[T any](ctx context.Context, kv repositories.KeyValueStore, key string) ([]T, error) {
	var items []T
	if _, err := loadJSON(ctx, kv, key, &items); err != nil {
		return nil, err
	}
	if items == nil {
		items = []T{}
	}
	return items, nil
}

func saveList[T any](ctx context.Context, kv repositories.KeyValueStore, key string, items []T) error {
	if items == nil {
		items = []T{}
	}
	return saveJSON(ctx, kv, key, items)
}

func (s *LocalStore) Products(ctx context.Context) ([]models.Product, error) {
	return loadList[models.Product](ctx, s.kv, keyProducts)
}

func (s *LocalStore) SetProducts(ctx context.Context, products []models.Product) error {
	return saveList(ctx, s.kv, keyProducts, products)
}

func (s *LocalStore) Sales(ctx context.Context) ([]models.Sale, error) {
	return loadList[models.Sale](ctx, s.kv, keySales)
}

func (s *LocalStore) SetSales(ctx context.Context, sales []models.Sale) error {
	return saveList(ctx, s.kv, keySales, sales)
}

func (s *LocalStore) Orders(ctx context.Context) ([]models.Order, error) {
	return loadList[models.Order](ctx, s.kv, keyOrders)
}

func (s *LocalStore) SetOrders(ctx context.Context, orders []models.Order) error {
	return saveList(ctx, s.kv, keyOrders, orders)
}

// Payments is local only; pulls never replace it.
func (s *LocalStore) Payments(ctx context.Context) ([]models.Payment, error) {
	return loadList[models.Payment](ctx, s.kv, keyPayments)
}

func (s *LocalStore) SetPayments(ctx context.Context, payments []models.Payment) error {
	return saveList(ctx, s.kv, keyPayments, payments)
}

// ShopProfile reports false when no profile has been stored yet.
func (s *LocalStore) ShopProfile(ctx context.Context) (models.ShopProfile, bool, error) {
	var profile models.ShopProfile
	ok, err := loadJSON(ctx, s.kv, keyShopProfile, &profile)
	return profile, ok, err
}

func (s *LocalStore) SetShopProfile(ctx context.Context, profile models.ShopProfile) error {
	return saveJSON(ctx, s.kv, keyShopProfile, profile)
}

func (s *LocalStore) loadQueue(ctx context.Context) ([]models.QueueItem, error) {
	return loadList[models.QueueItem](ctx, s.kv, keyQueue)
}

func (s *LocalStore) saveQueue(ctx context.Context, items []models.QueueItem) error {
	return saveList(ctx, s.kv, keyQueue, items)
}

func (s *LocalStore) Dropped(ctx context.Context) ([]models.DroppedItem, error) {
	return loadList[models.DroppedItem](ctx, s.kv, keyDropped)
}

// AppendDropped adds to the dead-letter list, keeping only the newest entries.
func (s *LocalStore) AppendDropped(ctx context.Context, items ...models.DroppedItem) error {
	if len(items) == 0 {
		return nil
	}
	current, err := s.Dropped(ctx)
	if err != nil {
		return err
	}
	current = append(current, items...)
	if len(current) > maxDroppedItems {
		current = current[len(current)-maxDroppedItems:]
	}
	return saveList(ctx, s.kv, keyDropped, current)
}

// LastSyncAt returns nil when no sync has succeeded yet.
func (s *LocalStore) LastSyncAt(ctx context.Context) (*time.Time, error) {
	data, err := s.kv.Get(ctx, keyLastSync)
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", keyLastSync, err)
	}
	t, err := time.Parse(time.RFC3339Nano, string(data))
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", keyLastSync, err)
	}
	return &t, nil
}

func (s *LocalStore) SetLastSyncAt(ctx context.Context, t time.Time) error {
	if err := s.kv.Set(ctx, keyLastSync, []byte(t.UTC().Format(time.RFC3339Nano))); err != nil {
		return fmt.Errorf("failed to write %s: %w", keyLastSync, err)
	}
	return nil
}

// Clear removes every view, the queue and all sync bookkeeping.
func (s *LocalStore) Clear(ctx context.Context) error {
	var errs []error
	for _, key := range allKeys {
		if err := s.kv.Delete(ctx, key); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
