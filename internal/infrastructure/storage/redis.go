package storage

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"NewsScanner/internal/ports"
)

const seenKeyPrefix = "newsscanner:seen:"

// RedisHistory keeps the fetch history in one set per source.
type RedisHistory struct {
	client redis.UniversalClient
}

var _ ports.HistoryStore = (*RedisHistory)(nil)

// NewRedisHistory wraps a connected client.
func NewRedisHistory(client redis.UniversalClient) *RedisHistory {
	return &RedisHistory{client: client}
}

// ConnectRedis builds a client and pings it.
func ConnectRedis(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{Addr: addr, Password: password, DB: db})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis %s: %w", addr, err)
	}
	return client, nil
}

func seenKey(source string) string {
	return seenKeyPrefix + source
}

// RecordSeenURL adds url to the source's set.
func (h *RedisHistory) RecordSeenURL(ctx context.Context, url, source string) error {
	if err := h.client.SAdd(ctx, seenKey(source), url).Err(); err != nil {
		return fmt.Errorf("redis sadd: %w", err)
	}
	return nil
}

// SeenURLs returns every URL recorded for source, in no particular order.
func (h *RedisHistory) SeenURLs(ctx context.Context, source string) ([]string, error) {
	urls, err := h.client.SMembers(ctx, seenKey(source)).Result()
	if err != nil {
		return nil, fmt.Errorf("redis smembers: %w", err)
	}
	return urls, nil
}
