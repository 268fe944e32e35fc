package redis

import (
	"Arena/services/game"
	redis_utils "Arena/services/redis/utils"
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

var ErrSummaryNotCached = errors.New("game summary not cached")

// CacheGameSummary stores a finished game's summary
// Key format: "game:{id}:summary"
// TTL: 24 hours
func (rc *RedisClient) CacheGameSummary(ctx context.Context, summary game.Summary) error {
	key := redis_utils.FormatGameSummaryKey(summary.SessionID)
	data, err := json.Marshal(summary)
	if err != nil {
		return fmt.Errorf("error marshaling summary: %w", err)
	}
	if err := rc.client.Set(ctx, key, data, SummaryTTL).Err(); err != nil {
		return fmt.Errorf("error caching summary %s: %w", summary.SessionID, err)
	}
	return nil
}

// GetGameSummary returns ErrSummaryNotCached once the entry has expired.
func (rc *RedisClient) GetGameSummary(ctx context.Context, gameID string) (*game.Summary, error) {
	key := redis_utils.FormatGameSummaryKey(gameID)
	data, err := rc.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrSummaryNotCached
	}
	if err != nil {
		return nil, fmt.Errorf("error getting summary %s: %w", gameID, err)
	}

	var summary game.Summary
	if err := json.Unmarshal(data, &summary); err != nil {
		return nil, fmt.Errorf("error unmarshaling summary: %w", err)
	}
	return &summary, nil
}
