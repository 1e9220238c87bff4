package main

import (
	"testing"

	"github.com/freightbid/backend/internal/application/auction"
	"github.com/freightbid/backend/internal/infrastructure/cache"
	"github.com/freightbid/backend/internal/infrastructure/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNotificationRelay_DisabledNeedsNoRedis(t *testing.T) {
	cfg := config.NotificationConfig{Enabled: false, IdempotencyBackend: "redis"}

	relay, store, err := notificationRelay(cfg, nil, nil, zap.NewNop())
	require.NoError(t, err)
	assert.Nil(t, relay)
	assert.Nil(t, store)
}

func TestNotificationRelay_EnabledWithoutRedis(t *testing.T) {
	cfg := config.NotificationConfig{Enabled: true, IdempotencyBackend: "redis"}
	_, _, err := notificationRelay(cfg, nil, nil, zap.NewNop())
	require.Error(t, err)

	cfg.IdempotencyBackend = "memory"
	relay, store, err := notificationRelay(cfg, nil, nil, zap.NewNop())
	require.NoError(t, err)
	require.NotNil(t, relay)
	assert.ElementsMatch(t, auction.NewNotificationHandler(nil, nil, zap.NewNop()).EventTypes(), relay.EventTypes())

	mem, ok := store.(*cache.InMemoryIdempotencyStore)
	require.True(t, ok)
	assert.NoError(t, mem.Close())
}
