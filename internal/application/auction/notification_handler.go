package auction

import (
	"context"
	"fmt"
	"time"

	"github.com/freightbid/backend/internal/domain/auction"
	"github.com/freightbid/backend/internal/domain/shared"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Notification types delivered to users
const (
	NotificationNewBid        = "new_bid_notification"
	NotificationOutbid        = "outbid_notification"
	NotificationWatchedBid    = "watched_auction_bid"
	NotificationAuctionWon    = "auction_won"
	NotificationAuctionSold   = "auction_sold"
	NotificationAuctionFailed = "auction_failed"
	NotificationAuctionEnded  = "watched_auction_ended"
)

// Notification is one message addressed to one user
type Notification struct {
	EventID     uuid.UUID         `json:"event_id"`
	Type        string            `json:"type"`
	RecipientID uuid.UUID         `json:"recipient_id"`
	AuctionID   uuid.UUID         `json:"auction_id"`
	Data        map[string]string `json:"data,omitempty"`
	OccurredAt  time.Time         `json:"occurred_at"`
}

// Notifier delivers user notifications
type Notifier interface {
	Notify(ctx context.Context, n Notification) error
}

// NotificationHandler turns auction events into user notifications: the
// outbid bidder, the seller on every bid and at close, and watchers according
// to their preferences. It runs after the state change committed, so a
// delivery failure is logged and never affects the auction.
type NotificationHandler struct {
	watchers auction.WatcherRepository
	notifier Notifier
	logger   *zap.Logger
}

// NewNotificationHandler creates a new NotificationHandler
func NewNotificationHandler(watchers auction.WatcherRepository, notifier Notifier, logger *zap.Logger) *NotificationHandler {
	return &NotificationHandler{watchers: watchers, notifier: notifier, logger: logger}
}

// Name scopes idempotency keys to this handler
func (h *NotificationHandler) Name() string {
	return "auction_notification"
}

// EventTypes returns the event types this handler is interested in
func (h *NotificationHandler) EventTypes() []string {
	return []string{
		auction.EventTypeBidPlaced,
		auction.EventTypeOutbidNotification,
		auction.EventTypeAuctionWon,
		auction.EventTypeAuctionFailed,
		auction.EventTypeAuctionCancelled,
	}
}

// Handle fans the event out to its recipients
func (h *NotificationHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	var (
		direct  []Notification
		watched string
		exclude []uuid.UUID
		data    map[string]string
	)

	switch e := event.(type) {
	case *auction.BidPlacedEvent:
		data = map[string]string{"bid_id": e.BidID.String(), "current_price": e.NewCurrentPrice}
		if !e.Sealed {
			data["amount"] = e.Amount
		}
		direct = append(direct, h.notification(event, NotificationNewBid, e.SellerID, data))
		watched = NotificationWatchedBid
		exclude = []uuid.UUID{e.SellerID, e.BidderID}
	case *auction.OutbidNotificationEvent:
		direct = append(direct, h.notification(event, NotificationOutbid, e.RecipientID,
			map[string]string{"new_bid_amount": e.NewBidAmount}))
	case *auction.AuctionWonEvent:
		data = map[string]string{"winning_amount": e.WinningAmount, "outcome": "won"}
		direct = append(direct,
			h.notification(event, NotificationAuctionWon, e.WinnerID, data),
			h.notification(event, NotificationAuctionSold, e.SellerID, data),
		)
		watched = NotificationAuctionEnded
		exclude = []uuid.UUID{e.WinnerID, e.SellerID}
	case *auction.AuctionFailedEvent:
		data = map[string]string{"final_price": e.FinalPrice, "outcome": "failed"}
		direct = append(direct, h.notification(event, NotificationAuctionFailed, e.SellerID, data))
		watched = NotificationAuctionEnded
		exclude = []uuid.UUID{e.SellerID}
	case *auction.AuctionCancelledEvent:
		data = map[string]string{"outcome": "cancelled", "reason": e.Reason}
		watched = NotificationAuctionEnded
		exclude = []uuid.UUID{e.SellerID}
	default:
		return fmt.Errorf("unexpected event type: %s", event.EventType())
	}

	for _, n := range direct {
		h.send(ctx, n)
	}
	if watched == "" || h.watchers == nil {
		return nil
	}

	watchers, err := h.watchers.ListByAuction(ctx, event.AggregateID())
	if err != nil {
		return fmt.Errorf("failed to list watchers: %w", err)
	}
	skip := make(map[uuid.UUID]bool, len(exclude))
	for _, id := range exclude {
		skip[id] = true
	}
	for i := range watchers {
		w := &watchers[i]
		if skip[w.UserID] || !w.Wants(event.EventType()) {
			continue
		}
		h.send(ctx, h.notification(event, watched, w.UserID, data))
	}
	return nil
}

func (h *NotificationHandler) notification(event shared.DomainEvent, kind string, recipient uuid.UUID, data map[string]string) Notification {
	return Notification{
		EventID:     event.EventID(),
		Type:        kind,
		RecipientID: recipient,
		AuctionID:   event.AggregateID(),
		Data:        data,
		OccurredAt:  event.OccurredAt(),
	}
}

func (h *NotificationHandler) send(ctx context.Context, n Notification) {
	if n.RecipientID == uuid.Nil {
		return
	}
	if err := h.notifier.Notify(ctx, n); err != nil {
		h.logger.Error("failed to deliver notification",
			zap.String("type", n.Type),
			zap.String("recipient_id", n.RecipientID.String()),
			zap.String("auction_id", n.AuctionID.String()),
			zap.Error(err),
		)
		return
	}
	h.logger.Debug("notification delivered",
		zap.String("type", n.Type),
		zap.String("recipient_id", n.RecipientID.String()),
	)
}

// LoggingNotifier logs notifications instead of delivering them. Used when
// the Redis relay is disabled.
type LoggingNotifier struct {
	logger *zap.Logger
}

// NewLoggingNotifier creates a new logging notifier
func NewLoggingNotifier(logger *zap.Logger) *LoggingNotifier {
	return &LoggingNotifier{logger: logger}
}

// Notify logs the notification
func (n *LoggingNotifier) Notify(_ context.Context, notification Notification) error {
	n.logger.Info("notification",
		zap.String("type", notification.Type),
		zap.String("recipient_id", notification.RecipientID.String()),
		zap.String("auction_id", notification.AuctionID.String()),
	)
	return nil
}

var (
	_ shared.EventHandler = (*NotificationHandler)(nil)
	_ Notifier            = (*LoggingNotifier)(nil)
)
