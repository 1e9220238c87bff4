package auction

import (
	"time"

	"github.com/freightbid/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// Watcher is a user subscribed to notifications about one auction.
// Watchers do not take part in bidding invariants.
type Watcher struct {
	ID             uuid.UUID
	AuctionID      uuid.UUID
	UserID         uuid.UUID
	NotifyOnBid    bool
	NotifyOnEnding bool
	CreatedAt      time.Time
}

// NewWatcher creates a watcher subscription
func NewWatcher(auctionID, userID uuid.UUID, notifyOnBid, notifyOnEnding bool, now time.Time) (*Watcher, error) {
	if auctionID == uuid.Nil {
		return nil, shared.NewValidationError("Auction ID cannot be empty")
	}
	if userID == uuid.Nil {
		return nil, shared.NewValidationError("User ID cannot be empty")
	}
	if !notifyOnBid && !notifyOnEnding {
		return nil, shared.NewValidationError("Watcher must subscribe to at least one notification")
	}
	return &Watcher{
		ID:             uuid.New(),
		AuctionID:      auctionID,
		UserID:         userID,
		NotifyOnBid:    notifyOnBid,
		NotifyOnEnding: notifyOnEnding,
		CreatedAt:      now,
	}, nil
}

// Wants reports whether the watcher subscribed to the given event type
func (w *Watcher) Wants(eventType string) bool {
	switch eventType {
	case EventTypeBidPlaced:
		return w.NotifyOnBid
	case EventTypeAuctionWon, EventTypeAuctionFailed, EventTypeAuctionCancelled:
		return w.NotifyOnEnding
	default:
		return false
	}
}
