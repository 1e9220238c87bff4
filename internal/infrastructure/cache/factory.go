package cache

import (
	"fmt"

	"github.com/freightbid/backend/internal/domain/shared"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// NewIdempotencyStore picks the Redis store when a client is available.
// Without one it falls back to the in-memory store if allowed.
func NewIdempotencyStore(client *redis.Client, allowInMemoryFallback bool, logger *zap.Logger) (shared.IdempotencyStore, error) {
	if client != nil {
		logger.Info("using Redis idempotency store")
		return NewRedisIdempotencyStore(client, ""), nil
	}
	if !allowInMemoryFallback {
		return nil, fmt.Errorf("redis is required for notification idempotency but is not configured")
	}
	logger.Warn("redis unavailable, using in-memory idempotency store; " +
		"notifications may repeat across instances")
	return NewInMemoryIdempotencyStore(), nil
}
