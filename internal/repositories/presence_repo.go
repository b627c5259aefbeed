package repositories

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/prudhvinik1/possync/internal/models"
	"github.com/redis/go-redis/v9"
)

const (
	presenceKeyPrefix = "presence:"
	presenceTTL       = 90 * time.Second // Presence expires without a heartbeat
)

type RedisPresenceRepository struct {
	client *redis.Client
}

func NewRedisPresenceRepository(client *redis.Client) *RedisPresenceRepository {
	return &RedisPresenceRepository{client: client}
}

// SetPresence sets or updates the presence for a terminal with automatic TTL.
// The session heartbeat refreshes it while the remote store is reachable.
func (r *RedisPresenceRepository) SetPresence(ctx context.Context, presence *models.Presence) error {
	presence.LastSeen = time.Now()

	data, err := json.Marshal(presence)
	if err != nil {
		return fmt.Errorf("failed to marshal presence: %w", err)
	}

	err = r.client.Set(ctx, presenceKey(presence.ShopID, presence.DeviceID), data, presenceTTL).Err()
	if err != nil {
		return fmt.Errorf("failed to set presence: %w", err)
	}
	return nil
}

func (r *RedisPresenceRepository) GetPresence(ctx context.Context, shopID, deviceID string) (*models.Presence, error) {
	data, err := r.client.Get(ctx, presenceKey(shopID, deviceID)).Result()
	if errors.Is(err, redis.Nil) {
		// No presence = terminal is offline
		return offlinePresence(shopID, deviceID), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get presence: %w", err)
	}

	var presence models.Presence
	if err := json.Unmarshal([]byte(data), &presence); err != nil {
		return nil, fmt.Errorf("failed to unmarshal presence: %w", err)
	}
	return &presence, nil
}

func (r *RedisPresenceRepository) DeletePresence(ctx context.Context, shopID, deviceID string) error {
	if err := r.client.Del(ctx, presenceKey(shopID, deviceID)).Err(); err != nil {
		return fmt.Errorf("failed to delete presence: %w", err)
	}
	return nil
}

// GetBulkPresence retrieves presence for several terminals of one shop in a
// single round trip.
func (r *RedisPresenceRepository) GetBulkPresence(ctx context.Context, shopID string, deviceIDs []string) (map[string]models.Presence, error) {
	presenceMap := make(map[string]models.Presence, len(deviceIDs))
	if len(deviceIDs) == 0 {
		return presenceMap, nil
	}

	keys := make([]string, len(deviceIDs))
	for i, id := range deviceIDs {
		keys[i] = presenceKey(shopID, id)
	}

	results, err := r.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get bulk presence: %w", err)
	}

	for i, result := range results {
		deviceID := deviceIDs[i]

		data, ok := result.(string)
		if !ok {
			presenceMap[deviceID] = *offlinePresence(shopID, deviceID)
			continue
		}

		var presence models.Presence
		if err := json.Unmarshal([]byte(data), &presence); err != nil {
			// If we can't unmarshal, treat as offline
			presenceMap[deviceID] = *offlinePresence(shopID, deviceID)
			continue
		}
		presenceMap[deviceID] = presence
	}

	return presenceMap, nil
}

func offlinePresence(shopID, deviceID string) *models.Presence {
	return &models.Presence{
		ShopID:   shopID,
		DeviceID: deviceID,
		Status:   string(models.StatusOffline),
	}
}

func presenceKey(shopID, deviceID string) string {
	return presenceKeyPrefix + shopID + ":" + deviceID
}
