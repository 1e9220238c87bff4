package notification

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	appauction "github.com/freightbid/backend/internal/application/auction"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type publishedMessage struct {
	channel string
	payload []byte
}

type fakePublisher struct {
	published []publishedMessage
	err       error
}

func (f *fakePublisher) Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd {
	cmd := redis.NewIntCmd(ctx, "publish", channel, message)
	if f.err != nil {
		cmd.SetErr(f.err)
		return cmd
	}
	f.published = append(f.published, publishedMessage{channel: channel, payload: message.([]byte)})
	cmd.SetVal(1)
	return cmd
}

func TestRedisNotifier_Notify(t *testing.T) {
	pub := &fakePublisher{}
	n := NewRedisNotifier(pub, "", nil)

	recipient := uuid.New()
	sent := appauction.Notification{
		EventID:     uuid.New(),
		Type:        appauction.NotificationOutbid,
		RecipientID: recipient,
		AuctionID:   uuid.New(),
		Data:        map[string]string{"new_bid_amount": "16000"},
		OccurredAt:  time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC),
	}
	require.NoError(t, n.Notify(context.Background(), sent))

	require.Len(t, pub.published, 1)
	assert.Equal(t, "notifications:user:"+recipient.String(), pub.published[0].channel)

	var got appauction.Notification
	require.NoError(t, json.Unmarshal(pub.published[0].payload, &got))
	assert.Equal(t, sent, got)
}

func TestRedisNotifier_CustomPrefix(t *testing.T) {
	n := NewRedisNotifier(&fakePublisher{}, "fb:n:", nil)
	id := uuid.New()
	assert.Equal(t, "fb:n:"+id.String(), n.Channel(id))
}

func TestRedisNotifier_PublishError(t *testing.T) {
	n := NewRedisNotifier(&fakePublisher{err: errors.New("connection refused")}, "", nil)
	err := n.Notify(context.Background(), appauction.Notification{RecipientID: uuid.New()})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection refused")
}
