package auction

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/freightbid/backend/internal/domain/auction"
	"github.com/freightbid/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

var (
	testNHAuctionID = uuid.New()
	testNHSellerID  = uuid.New()
	testNHBidderID  = uuid.New()
	testNHAt        = time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)
)

func newTestBidPlacedEvent(sealed bool) *auction.BidPlacedEvent {
	return &auction.BidPlacedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(auction.EventTypeBidPlaced, auction.AggregateTypeAuction, testNHAuctionID, testNHAt),
		BidID:           uuid.New(),
		AuctionID:       testNHAuctionID,
		BidderID:        testNHBidderID,
		SellerID:        testNHSellerID,
		Amount:          "16000",
		NewCurrentPrice: "16000",
		Sealed:          sealed,
	}
}

func watcher(userID uuid.UUID, onBid, onEnding bool) auction.Watcher {
	return auction.Watcher{ID: uuid.New(), AuctionID: testNHAuctionID, UserID: userID, NotifyOnBid: onBid, NotifyOnEnding: onEnding}
}

// recipients collects who was notified with which notification type
func recipients(n *MockNotifier) map[uuid.UUID]string {
	out := make(map[uuid.UUID]string)
	for _, call := range n.Calls {
		sent := call.Arguments.Get(1).(Notification)
		out[sent.RecipientID] = sent.Type
	}
	return out
}

func TestNotificationHandler_EventTypes(t *testing.T) {
	h := NewNotificationHandler(nil, nil, zap.NewNop())
	assert.ElementsMatch(t, []string{
		auction.EventTypeBidPlaced,
		auction.EventTypeOutbidNotification,
		auction.EventTypeAuctionWon,
		auction.EventTypeAuctionFailed,
		auction.EventTypeAuctionCancelled,
	}, h.EventTypes())
	assert.Equal(t, "auction_notification", h.Name())
}

func TestNotificationHandler_BidPlaced(t *testing.T) {
	ctx := context.Background()
	watchers := new(MockWatcherRepository)
	notifier := new(MockNotifier)
	h := NewNotificationHandler(watchers, notifier, zap.NewNop())

	bidWatcher, endWatcher := uuid.New(), uuid.New()
	watchers.On("ListByAuction", ctx, testNHAuctionID).Return([]auction.Watcher{
		watcher(bidWatcher, true, false),
		watcher(endWatcher, false, true),
		watcher(testNHBidderID, true, true),
		watcher(testNHSellerID, true, true),
	}, nil)
	notifier.On("Notify", ctx, mock.Anything).Return(nil)

	event := newTestBidPlacedEvent(false)
	require.NoError(t, h.Handle(ctx, event))

	assert.Equal(t, map[uuid.UUID]string{
		testNHSellerID: NotificationNewBid,
		bidWatcher:     NotificationWatchedBid,
	}, recipients(notifier))

	sent := notifier.Calls[0].Arguments.Get(1).(Notification)
	assert.Equal(t, event.EventID(), sent.EventID)
	assert.Equal(t, testNHAuctionID, sent.AuctionID)
	assert.Equal(t, "16000", sent.Data["amount"])
	assert.Equal(t, testNHAt, sent.OccurredAt)
}

func TestNotificationHandler_BidPlaced_SealedHidesAmount(t *testing.T) {
	ctx := context.Background()
	watchers := new(MockWatcherRepository)
	notifier := new(MockNotifier)
	h := NewNotificationHandler(watchers, notifier, zap.NewNop())

	watchers.On("ListByAuction", ctx, testNHAuctionID).Return([]auction.Watcher{}, nil)
	notifier.On("Notify", ctx, mock.MatchedBy(func(n Notification) bool {
		_, hasAmount := n.Data["amount"]
		return n.Type == NotificationNewBid && !hasAmount
	})).Return(nil).Once()

	require.NoError(t, h.Handle(ctx, newTestBidPlacedEvent(true)))
	notifier.AssertExpectations(t)
}

func TestNotificationHandler_Outbid(t *testing.T) {
	ctx := context.Background()
	watchers := new(MockWatcherRepository)
	notifier := new(MockNotifier)
	h := NewNotificationHandler(watchers, notifier, zap.NewNop())

	outbid := uuid.New()
	event := &auction.OutbidNotificationEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(auction.EventTypeOutbidNotification, auction.AggregateTypeAuction, testNHAuctionID, testNHAt),
		RecipientID:     outbid,
		AuctionID:       testNHAuctionID,
		NewBidAmount:    "16000",
	}
	notifier.On("Notify", ctx, mock.MatchedBy(func(n Notification) bool {
		return n.RecipientID == outbid && n.Type == NotificationOutbid && n.Data["new_bid_amount"] == "16000"
	})).Return(nil).Once()

	require.NoError(t, h.Handle(ctx, event))
	notifier.AssertExpectations(t)
	watchers.AssertNotCalled(t, "ListByAuction", mock.Anything, mock.Anything)
}

func TestNotificationHandler_AuctionWon(t *testing.T) {
	ctx := context.Background()
	watchers := new(MockWatcherRepository)
	notifier := new(MockNotifier)
	h := NewNotificationHandler(watchers, notifier, zap.NewNop())

	winner, endWatcher, bidOnly := uuid.New(), uuid.New(), uuid.New()
	watchers.On("ListByAuction", ctx, testNHAuctionID).Return([]auction.Watcher{
		watcher(endWatcher, false, true),
		watcher(bidOnly, true, false),
		watcher(winner, true, true),
	}, nil)
	notifier.On("Notify", ctx, mock.Anything).Return(nil)

	event := &auction.AuctionWonEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(auction.EventTypeAuctionWon, auction.AggregateTypeAuction, testNHAuctionID, testNHAt),
		AuctionID:       testNHAuctionID,
		SellerID:        testNHSellerID,
		WinnerID:        winner,
		WinningBidID:    uuid.New(),
		WinningAmount:   "16000",
	}
	require.NoError(t, h.Handle(ctx, event))

	assert.Equal(t, map[uuid.UUID]string{
		winner:         NotificationAuctionWon,
		testNHSellerID: NotificationAuctionSold,
		endWatcher:     NotificationAuctionEnded,
	}, recipients(notifier))
}

func TestNotificationHandler_AuctionFailedAndCancelled(t *testing.T) {
	ctx := context.Background()
	endWatcher := uuid.New()

	tests := []struct {
		name  string
		event shared.DomainEvent
		want  map[uuid.UUID]string
	}{
		{
			name: "failed",
			event: &auction.AuctionFailedEvent{
				BaseDomainEvent: shared.NewBaseDomainEvent(auction.EventTypeAuctionFailed, auction.AggregateTypeAuction, testNHAuctionID, testNHAt),
				AuctionID:       testNHAuctionID,
				SellerID:        testNHSellerID,
				FinalPrice:      "12000",
			},
			want: map[uuid.UUID]string{
				testNHSellerID: NotificationAuctionFailed,
				endWatcher:     NotificationAuctionEnded,
			},
		},
		{
			name: "cancelled",
			event: &auction.AuctionCancelledEvent{
				BaseDomainEvent: shared.NewBaseDomainEvent(auction.EventTypeAuctionCancelled, auction.AggregateTypeAuction, testNHAuctionID, testNHAt),
				SellerID:        testNHSellerID,
				Reason:          "truck broke down",
			},
			want: map[uuid.UUID]string{endWatcher: NotificationAuctionEnded},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			watchers := new(MockWatcherRepository)
			notifier := new(MockNotifier)
			h := NewNotificationHandler(watchers, notifier, zap.NewNop())
			watchers.On("ListByAuction", ctx, testNHAuctionID).Return([]auction.Watcher{
				watcher(endWatcher, false, true),
				watcher(uuid.New(), true, false),
			}, nil)
			notifier.On("Notify", ctx, mock.Anything).Return(nil)

			require.NoError(t, h.Handle(ctx, tt.event))
			assert.Equal(t, tt.want, recipients(notifier))
		})
	}
}

func TestNotificationHandler_DeliveryFailureIsLogged(t *testing.T) {
	ctx := context.Background()
	watchers := new(MockWatcherRepository)
	notifier := new(MockNotifier)
	core, logs := observer.New(zap.ErrorLevel)
	h := NewNotificationHandler(watchers, notifier, zap.New(core))

	watchers.On("ListByAuction", ctx, testNHAuctionID).Return([]auction.Watcher{}, nil)
	notifier.On("Notify", ctx, mock.Anything).Return(errors.New("redis down"))

	require.NoError(t, h.Handle(ctx, newTestBidPlacedEvent(false)))
	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "failed to deliver notification", logs.All()[0].Message)
}

func TestNotificationHandler_WatcherLookupFails(t *testing.T) {
	ctx := context.Background()
	watchers := new(MockWatcherRepository)
	notifier := new(MockNotifier)
	h := NewNotificationHandler(watchers, notifier, zap.NewNop())

	watchers.On("ListByAuction", ctx, testNHAuctionID).Return(nil, errors.New("db gone"))
	notifier.On("Notify", ctx, mock.Anything).Return(nil)

	err := h.Handle(ctx, newTestBidPlacedEvent(false))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to list watchers")
}

func TestNotificationHandler_UnexpectedEvent(t *testing.T) {
	h := NewNotificationHandler(nil, new(MockNotifier), zap.NewNop())
	event := auction.NewAuctionStartedEvent(&auction.Auction{Status: auction.AuctionStatusActive}, testNHAt)
	assert.Error(t, h.Handle(context.Background(), event))
}

func TestLoggingNotifier(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	n := NewLoggingNotifier(zap.New(core))

	require.NoError(t, n.Notify(context.Background(), Notification{Type: NotificationOutbid, RecipientID: uuid.New()}))
	require.Equal(t, 1, logs.Len())
	assert.Equal(t, NotificationOutbid, logs.All()[0].ContextMap()["type"])
}
