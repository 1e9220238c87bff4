// Package notification delivers user notifications over Redis pub/sub.
// Each user has a channel named by prefix + user ID; gateways holding a user's
// connection subscribe to it.
package notification

import (
	"context"
	"encoding/json"
	"fmt"

	appauction "github.com/freightbid/backend/internal/application/auction"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// DefaultChannelPrefix is used when no prefix is configured
const DefaultChannelPrefix = "notifications:user:"

// Publisher is the slice of the Redis client the notifier needs
type Publisher interface {
	Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd
}

// RedisNotifier publishes notifications as JSON to per-user channels
type RedisNotifier struct {
	client Publisher
	prefix string
	logger *zap.Logger
}

// NewRedisNotifier creates a new RedisNotifier
func NewRedisNotifier(client Publisher, prefix string, logger *zap.Logger) *RedisNotifier {
	if prefix == "" {
		prefix = DefaultChannelPrefix
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisNotifier{client: client, prefix: prefix, logger: logger}
}

// Channel returns the pub/sub channel of a user
func (n *RedisNotifier) Channel(userID uuid.UUID) string {
	return n.prefix + userID.String()
}

// Notify publishes n to its recipient's channel. Having no subscriber is not
// an error; pub/sub delivery is best effort.
func (n *RedisNotifier) Notify(ctx context.Context, notification appauction.Notification) error {
	payload, err := json.Marshal(notification)
	if err != nil {
		return fmt.Errorf("failed to marshal notification: %w", err)
	}
	channel := n.Channel(notification.RecipientID)
	receivers, err := n.client.Publish(ctx, channel, payload).Result()
	if err != nil {
		return fmt.Errorf("failed to publish to %s: %w", channel, err)
	}
	n.logger.Debug("notification published",
		zap.String("channel", channel),
		zap.String("type", notification.Type),
		zap.Int64("receivers", receivers),
	)
	return nil
}

// Subscribe forwards a user's notifications to onMsg until ctx is done.
// It returns once the subscription is confirmed by the server.
func Subscribe(ctx context.Context, client *redis.Client, channel string, onMsg func(appauction.Notification), logger *zap.Logger) error {
	sub := client.Subscribe(ctx, channel)
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return fmt.Errorf("redis subscribe: %w", err)
	}

	go func() {
		defer sub.Close()
		ch := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case m, ok := <-ch:
				if !ok {
					return
				}
				var n appauction.Notification
				if err := json.Unmarshal([]byte(m.Payload), &n); err != nil {
					logger.Warn("bad notification payload", zap.String("channel", m.Channel), zap.Error(err))
					continue
				}
				onMsg(n)
			}
		}
	}()
	return nil
}

// Ensure RedisNotifier implements Notifier
var _ appauction.Notifier = (*RedisNotifier)(nil)
