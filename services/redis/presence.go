package redis

import (
	redis_models "Arena/models/redis"
	redis_utils "Arena/services/redis/utils"
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// SetPresence stores a player's presence
// Key format: "presence:{playerId}"
// TTL: 24 hours
func (rc *RedisClient) SetPresence(ctx context.Context, presence redis_models.PlayerPresence) error {
	key := redis_utils.FormatPresenceKey(presence.PlayerID)
	data, err := json.Marshal(presence)
	if err != nil {
		return fmt.Errorf("error marshaling presence: %w", err)
	}
	if err := rc.client.Set(ctx, key, data, PresenceTTL).Err(); err != nil {
		return fmt.Errorf("error saving presence for %s: %w", presence.PlayerID, err)
	}
	return nil
}

// GetPresence returns a player's presence. Players never seen are offline.
func (rc *RedisClient) GetPresence(ctx context.Context, playerID string) (*redis_models.PlayerPresence, error) {
	key := redis_utils.FormatPresenceKey(playerID)
	data, err := rc.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return &redis_models.PlayerPresence{PlayerID: playerID, Status: redis_models.PresenceOffline}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("error getting presence for %s: %w", playerID, err)
	}

	var presence redis_models.PlayerPresence
	if err := json.Unmarshal(data, &presence); err != nil {
		return nil, fmt.Errorf("error unmarshaling presence: %w", err)
	}
	return &presence, nil
}
