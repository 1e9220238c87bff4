package event

import (
	"testing"
	"time"

	"github.com/freightbid/backend/internal/domain/auction"
	"github.com/freightbid/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventSerializer_RoundTripsAuctionEvents(t *testing.T) {
	serializer := NewEventSerializer()
	RegisterAuctionEvents(serializer)

	original := &auction.OutbidNotificationEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(auction.EventTypeOutbidNotification, auction.AggregateTypeAuction, uuid.New(), eventTestTime),
		RecipientID:     uuid.New(),
		AuctionID:       uuid.New(),
		OutbidBidID:     uuid.New(),
		NewBidAmount:    "10600",
	}

	data, err := serializer.Serialize(original)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"recipient_id"`)

	decoded, err := serializer.Deserialize(auction.EventTypeOutbidNotification, data)
	require.NoError(t, err)
	outbid, ok := decoded.(*auction.OutbidNotificationEvent)
	require.True(t, ok)
	assert.Equal(t, original.EventID(), outbid.EventID())
	assert.Equal(t, original.RecipientID, outbid.RecipientID)
	assert.Equal(t, "10600", outbid.NewBidAmount)
	assert.True(t, eventTestTime.Equal(outbid.OccurredAt()))
	assert.Equal(t, auction.EventTypeOutbidNotification, outbid.EventType())
}

func TestEventSerializer_StatusEventsKeepTheirType(t *testing.T) {
	serializer := NewEventSerializer()
	RegisterAuctionEvents(serializer)

	original := &auction.AuctionStartedEvent{}
	original.BaseDomainEvent = shared.NewBaseDomainEvent(auction.EventTypeAuctionStarted, auction.AggregateTypeAuction, uuid.New(), eventTestTime)
	original.EndTime = eventTestTime.Add(time.Hour)

	data, err := serializer.Serialize(original)
	require.NoError(t, err)

	decoded, err := serializer.Deserialize(auction.EventTypeAuctionStarted, data)
	require.NoError(t, err)
	assert.IsType(t, &auction.AuctionStartedEvent{}, decoded)
	assert.Equal(t, auction.EventTypeAuctionStarted, decoded.EventType())
}

func TestEventSerializer_UnknownType(t *testing.T) {
	serializer := NewEventSerializer()
	_, err := serializer.Deserialize("no_such_event", []byte(`{}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown event type")
}

func TestEventSerializer_MalformedPayload(t *testing.T) {
	serializer := NewEventSerializer()
	RegisterAuctionEvents(serializer)
	_, err := serializer.Deserialize(auction.EventTypeBidPlaced, []byte(`{"bid_id":`))
	assert.Error(t, err)
}

func TestRegisterAuctionEvents(t *testing.T) {
	serializer := NewEventSerializer()
	RegisterAuctionEvents(serializer)

	assert.Equal(t, []string{
		auction.EventTypeAuctionCancelled,
		auction.EventTypeAuctionCreated,
		auction.EventTypeAuctionFailed,
		auction.EventTypeAuctionPaused,
		auction.EventTypeAuctionPublished,
		auction.EventTypeAuctionResumed,
		auction.EventTypeAuctionStarted,
		auction.EventTypeAuctionUpdated,
		auction.EventTypeAuctionWon,
		auction.EventTypeBidPlaced,
		auction.EventTypeOutbidNotification,
	}, serializer.RegisteredTypes())
}
