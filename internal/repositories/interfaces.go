package repositories

import (
	"context"
	"errors"

	"github.com/prudhvinik1/possync/internal/models"
)

var ErrNotFound = errors.New("not found")

// KeyValueStore is the durable on-device store. Writes are synchronous.
type KeyValueStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}

// OrderBy selects the column and direction of a remote read.
type OrderBy struct {
	Column     string
	Descending bool
}

// RemoteStore is the shared source of truth. Every operation except GetShop
// is scoped to one shop.
type RemoteStore interface {
	Upsert(ctx context.Context, table string, row models.RemoteRow) error
	Delete(ctx context.Context, table, id, shopID string) error
	List(ctx context.Context, table, shopID string, order OrderBy) ([]models.RemoteRow, error)
	GetShop(ctx context.Context, shopID string) (models.RemoteRow, error)
	Ping(ctx context.Context) error
}

type PresenceRepository interface {
	SetPresence(ctx context.Context, presence *models.Presence) error
	GetPresence(ctx context.Context, shopID, deviceID string) (*models.Presence, error)
	DeletePresence(ctx context.Context, shopID, deviceID string) error
	GetBulkPresence(ctx context.Context, shopID string, deviceIDs []string) (map[string]models.Presence, error)
}
