package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultMetricsTTL bounds how long a cached metric bag is served without
// hitting the datastore. The cache is disposable; everything in it can be
// rebuilt from player_game_logs.
const DefaultMetricsTTL = 5 * time.Minute

// RedisWriter serves recently computed per-game metric bags
type RedisWriter struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisWriter creates a cache writer with the given TTL. A zero TTL
// falls back to the default.
func NewRedisWriter(client *redis.Client, ttl time.Duration) *RedisWriter {
	if ttl <= 0 {
		ttl = DefaultMetricsTTL
	}
	return &RedisWriter{client: client, ttl: ttl}
}

// WriteGameMetrics stores the playerID -> metric bag mapping for a game
func (w *RedisWriter) WriteGameMetrics(ctx context.Context, gameID string, metrics map[string]map[string]interface{}) error {
	key := metricsKey(gameID)

	data, err := json.Marshal(metrics)
	if err != nil {
		return fmt.Errorf("marshaling game metrics: %w", err)
	}

	return w.client.Set(ctx, key, data, w.ttl).Err()
}

// ReadGameMetrics retrieves the cached mapping for a game. Returns nil
// without error on a cache miss.
func (w *RedisWriter) ReadGameMetrics(ctx context.Context, gameID string) (map[string]map[string]interface{}, error) {
	data, err := w.client.Get(ctx, metricsKey(gameID)).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, err
	}

	var metrics map[string]map[string]interface{}
	if err := json.Unmarshal([]byte(data), &metrics); err != nil {
		return nil, fmt.Errorf("unmarshaling game metrics: %w", err)
	}
	return metrics, nil
}

func metricsKey(gameID string) string {
	return fmt.Sprintf("game:%s:metrics", gameID)
}
