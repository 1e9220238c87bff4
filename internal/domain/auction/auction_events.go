package auction

import (
	"time"

	"github.com/freightbid/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// Aggregate type constant
const AggregateTypeAuction = "Auction"

// Event type constants. These strings are the wire names seen by subscribers.
const (
	EventTypeAuctionCreated     = "auction_created"
	EventTypeAuctionUpdated     = "auction_updated"
	EventTypeAuctionPublished   = "auction_published"
	EventTypeAuctionStarted     = "auction_started"
	EventTypeAuctionPaused      = "auction_paused"
	EventTypeAuctionResumed     = "auction_resumed"
	EventTypeAuctionCancelled   = "auction_cancelled"
	EventTypeBidPlaced          = "bid_placed"
	EventTypeOutbidNotification = "outbid_notification"
	EventTypeAuctionWon         = "auction_won"
	EventTypeAuctionFailed      = "auction_failed"
)

// AuctionCreatedEvent is raised when an auction is created
type AuctionCreatedEvent struct {
	shared.BaseDomainEvent
	AuctionID     uuid.UUID `json:"auction_id"`
	SellerID      uuid.UUID `json:"seller_id"`
	VehicleID     uuid.UUID `json:"vehicle_id"`
	AuctionType   string    `json:"auction_type"`
	Status        string    `json:"status"`
	StartingPrice string    `json:"starting_price"`
	StartTime     time.Time `json:"start_time"`
	EndTime       time.Time `json:"end_time"`
}

// NewAuctionCreatedEvent creates a new AuctionCreatedEvent
func NewAuctionCreatedEvent(a *Auction) *AuctionCreatedEvent {
	return &AuctionCreatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeAuctionCreated, AggregateTypeAuction, a.ID, a.CreatedAt),
		AuctionID:       a.ID,
		SellerID:        a.SellerID,
		VehicleID:       a.VehicleID,
		AuctionType:     string(a.Type),
		Status:          string(a.Status),
		StartingPrice:   a.StartingPrice.String(),
		StartTime:       a.StartTime,
		EndTime:         a.EndTime,
	}
}

// EventType returns the event type name
func (e *AuctionCreatedEvent) EventType() string {
	return EventTypeAuctionCreated
}

// AuctionUpdatedEvent is raised when the seller edits the terms before start
type AuctionUpdatedEvent struct {
	shared.BaseDomainEvent
	AuctionID     uuid.UUID `json:"auction_id"`
	Title         string    `json:"title"`
	StartingPrice string    `json:"starting_price"`
	StartTime     time.Time `json:"start_time"`
	EndTime       time.Time `json:"end_time"`
}

// NewAuctionUpdatedEvent creates a new AuctionUpdatedEvent
func NewAuctionUpdatedEvent(a *Auction, at time.Time) *AuctionUpdatedEvent {
	return &AuctionUpdatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeAuctionUpdated, AggregateTypeAuction, a.ID, at),
		AuctionID:       a.ID,
		Title:           a.Title,
		StartingPrice:   a.StartingPrice.String(),
		StartTime:       a.StartTime,
		EndTime:         a.EndTime,
	}
}

// EventType returns the event type name
func (e *AuctionUpdatedEvent) EventType() string {
	return EventTypeAuctionUpdated
}

// AuctionStatusEvent is shared by the plain lifecycle transitions
// (published, started, paused, resumed)
type AuctionStatusEvent struct {
	shared.BaseDomainEvent
	AuctionID uuid.UUID `json:"auction_id"`
	SellerID  uuid.UUID `json:"seller_id"`
	Status    string    `json:"status"`
	EndTime   time.Time `json:"end_time"`
}

func newAuctionStatusEvent(eventType string, a *Auction, at time.Time) *AuctionStatusEvent {
	return &AuctionStatusEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(eventType, AggregateTypeAuction, a.ID, at),
		AuctionID:       a.ID,
		SellerID:        a.SellerID,
		Status:          string(a.Status),
		EndTime:         a.EndTime,
	}
}

// AuctionPublishedEvent is raised on DRAFT -> PUBLISHED
type AuctionPublishedEvent struct{ AuctionStatusEvent }

// NewAuctionPublishedEvent creates a new AuctionPublishedEvent
func NewAuctionPublishedEvent(a *Auction, at time.Time) *AuctionPublishedEvent {
	return &AuctionPublishedEvent{*newAuctionStatusEvent(EventTypeAuctionPublished, a, at)}
}

// EventType returns the event type name
func (e *AuctionPublishedEvent) EventType() string { return EventTypeAuctionPublished }

// AuctionStartedEvent is raised on PUBLISHED -> ACTIVE
type AuctionStartedEvent struct{ AuctionStatusEvent }

// NewAuctionStartedEvent creates a new AuctionStartedEvent
func NewAuctionStartedEvent(a *Auction, at time.Time) *AuctionStartedEvent {
	return &AuctionStartedEvent{*newAuctionStatusEvent(EventTypeAuctionStarted, a, at)}
}

// EventType returns the event type name
func (e *AuctionStartedEvent) EventType() string { return EventTypeAuctionStarted }

// AuctionPausedEvent is raised on ACTIVE -> PAUSED
type AuctionPausedEvent struct{ AuctionStatusEvent }

// NewAuctionPausedEvent creates a new AuctionPausedEvent
func NewAuctionPausedEvent(a *Auction, at time.Time) *AuctionPausedEvent {
	return &AuctionPausedEvent{*newAuctionStatusEvent(EventTypeAuctionPaused, a, at)}
}

// EventType returns the event type name
func (e *AuctionPausedEvent) EventType() string { return EventTypeAuctionPaused }

// AuctionResumedEvent is raised on PAUSED -> ACTIVE
type AuctionResumedEvent struct{ AuctionStatusEvent }

// NewAuctionResumedEvent creates a new AuctionResumedEvent
func NewAuctionResumedEvent(a *Auction, at time.Time) *AuctionResumedEvent {
	return &AuctionResumedEvent{*newAuctionStatusEvent(EventTypeAuctionResumed, a, at)}
}

// EventType returns the event type name
func (e *AuctionResumedEvent) EventType() string { return EventTypeAuctionResumed }

// AuctionCancelledEvent is raised when an auction is cancelled
type AuctionCancelledEvent struct {
	shared.BaseDomainEvent
	AuctionID      uuid.UUID `json:"auction_id"`
	SellerID       uuid.UUID `json:"seller_id"`
	PreviousStatus string    `json:"previous_status"`
	Reason         string    `json:"reason,omitempty"`
}

// NewAuctionCancelledEvent creates a new AuctionCancelledEvent
func NewAuctionCancelledEvent(a *Auction, previous AuctionStatus, at time.Time) *AuctionCancelledEvent {
	return &AuctionCancelledEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeAuctionCancelled, AggregateTypeAuction, a.ID, at),
		AuctionID:       a.ID,
		SellerID:        a.SellerID,
		PreviousStatus:  string(previous),
		Reason:          a.CancelReason,
	}
}

// EventType returns the event type name
func (e *AuctionCancelledEvent) EventType() string {
	return EventTypeAuctionCancelled
}

// BidPlacedEvent is raised when a bid is accepted (or recorded, for sealed auctions)
type BidPlacedEvent struct {
	shared.BaseDomainEvent
	BidID           uuid.UUID `json:"bid_id"`
	AuctionID       uuid.UUID `json:"auction_id"`
	BidderID        uuid.UUID `json:"bidder_id"`
	SellerID        uuid.UUID `json:"seller_id"`
	Amount          string    `json:"amount"`
	NewCurrentPrice string    `json:"new_current_price"`
	Sealed          bool      `json:"sealed,omitempty"`
	EndTime         time.Time `json:"end_time"`
}

// NewBidPlacedEvent creates a new BidPlacedEvent
func NewBidPlacedEvent(a *Auction, b *Bid, at time.Time) *BidPlacedEvent {
	return &BidPlacedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeBidPlaced, AggregateTypeAuction, a.ID, at),
		BidID:           b.ID,
		AuctionID:       a.ID,
		BidderID:        b.BidderID,
		SellerID:        a.SellerID,
		Amount:          b.Amount.String(),
		NewCurrentPrice: a.CurrentPrice().String(),
		Sealed:          a.Type == AuctionTypeSealed,
		EndTime:         a.EndTime,
	}
}

// EventType returns the event type name
func (e *BidPlacedEvent) EventType() string {
	return EventTypeBidPlaced
}

// OutbidNotificationEvent tells the previous standing bidder they were outbid
type OutbidNotificationEvent struct {
	shared.BaseDomainEvent
	RecipientID  uuid.UUID `json:"recipient_id"`
	AuctionID    uuid.UUID `json:"auction_id"`
	OutbidBidID  uuid.UUID `json:"outbid_bid_id"`
	NewBidAmount string    `json:"new_bid_amount"`
}

// NewOutbidNotificationEvent creates a new OutbidNotificationEvent
func NewOutbidNotificationEvent(a *Auction, previous, current *Bid, at time.Time) *OutbidNotificationEvent {
	return &OutbidNotificationEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeOutbidNotification, AggregateTypeAuction, a.ID, at),
		RecipientID:     previous.BidderID,
		AuctionID:       a.ID,
		OutbidBidID:     previous.ID,
		NewBidAmount:    current.Amount.String(),
	}
}

// EventType returns the event type name
func (e *OutbidNotificationEvent) EventType() string {
	return EventTypeOutbidNotification
}

// AuctionWonEvent is raised when an auction completes with a winner
type AuctionWonEvent struct {
	shared.BaseDomainEvent
	AuctionID     uuid.UUID `json:"auction_id"`
	SellerID      uuid.UUID `json:"seller_id"`
	WinnerID      uuid.UUID `json:"winner_id"`
	WinningBidID  uuid.UUID `json:"winning_bid_id"`
	WinningAmount string    `json:"winning_amount"`
}

// NewAuctionWonEvent creates a new AuctionWonEvent
func NewAuctionWonEvent(a *Auction, winner *Bid, at time.Time) *AuctionWonEvent {
	return &AuctionWonEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeAuctionWon, AggregateTypeAuction, a.ID, at),
		AuctionID:       a.ID,
		SellerID:        a.SellerID,
		WinnerID:        winner.BidderID,
		WinningBidID:    winner.ID,
		WinningAmount:   winner.Amount.String(),
	}
}

// EventType returns the event type name
func (e *AuctionWonEvent) EventType() string {
	return EventTypeAuctionWon
}

// AuctionFailedEvent is raised when an auction closes without a qualifying bid
type AuctionFailedEvent struct {
	shared.BaseDomainEvent
	AuctionID  uuid.UUID `json:"auction_id"`
	SellerID   uuid.UUID `json:"seller_id"`
	FinalPrice string    `json:"final_price"`
	HadBids    bool      `json:"had_bids"`
}

// NewAuctionFailedEvent creates a new AuctionFailedEvent
func NewAuctionFailedEvent(a *Auction, at time.Time) *AuctionFailedEvent {
	return &AuctionFailedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeAuctionFailed, AggregateTypeAuction, a.ID, at),
		AuctionID:       a.ID,
		SellerID:        a.SellerID,
		FinalPrice:      a.CurrentPrice().String(),
		HadBids:         a.TotalBids > 0,
	}
}

// EventType returns the event type name
func (e *AuctionFailedEvent) EventType() string {
	return EventTypeAuctionFailed
}
