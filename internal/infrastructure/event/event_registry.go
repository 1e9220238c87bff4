package event

import (
	"github.com/freightbid/backend/internal/domain/auction"
)

// RegisterAuctionEvents registers every auction event with the serializer.
// The outbox processor cannot deliver an event type that is missing here.
func RegisterAuctionEvents(serializer *EventSerializer) {
	serializer.Register(auction.EventTypeAuctionCreated, &auction.AuctionCreatedEvent{})
	serializer.Register(auction.EventTypeAuctionUpdated, &auction.AuctionUpdatedEvent{})
	serializer.Register(auction.EventTypeAuctionPublished, &auction.AuctionPublishedEvent{})
	serializer.Register(auction.EventTypeAuctionStarted, &auction.AuctionStartedEvent{})
	serializer.Register(auction.EventTypeAuctionPaused, &auction.AuctionPausedEvent{})
	serializer.Register(auction.EventTypeAuctionResumed, &auction.AuctionResumedEvent{})
	serializer.Register(auction.EventTypeAuctionCancelled, &auction.AuctionCancelledEvent{})
	serializer.Register(auction.EventTypeBidPlaced, &auction.BidPlacedEvent{})
	serializer.Register(auction.EventTypeOutbidNotification, &auction.OutbidNotificationEvent{})
	serializer.Register(auction.EventTypeAuctionWon, &auction.AuctionWonEvent{})
	serializer.Register(auction.EventTypeAuctionFailed, &auction.AuctionFailedEvent{})
}
