package auction

import (
	"fmt"
	"strings"
	"time"

	"github.com/freightbid/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var _ shared.AggregateRoot = (*Auction)(nil)

// Auction is the aggregate root governing one sale process.
// All mutation goes through its methods; each method either fully applies
// or leaves the aggregate untouched.
type Auction struct {
	shared.BaseAggregateRoot
	Title             string
	Description       string
	SellerID          uuid.UUID
	VehicleID         uuid.UUID
	Type              AuctionType
	Status            AuctionStatus
	StartingPrice     decimal.Decimal
	ReservePrice      *decimal.Decimal
	CurrentHighestBid decimal.Decimal
	CurrentLowestBid  decimal.Decimal
	WinnerBidID       *uuid.UUID
	StartTime         time.Time
	EndTime           time.Time
	AutoExtendMinutes int
	BidIncrement      decimal.Decimal
	PriceStepInterval time.Duration
	Shipment          ShipmentDetails
	Requirements      *Requirements
	TotalBids         int
	CancelReason      string
	// Bids in submission order
	Bids []Bid
}

// NewAuctionParams carries everything needed to create an auction
type NewAuctionParams struct {
	Title             string
	Description       string
	SellerID          uuid.UUID
	VehicleID         uuid.UUID
	Type              AuctionType
	StartingPrice     decimal.Decimal
	ReservePrice      *decimal.Decimal
	StartTime         time.Time
	EndTime           time.Time
	AutoExtendMinutes int
	BidIncrement      decimal.Decimal
	PriceStepInterval time.Duration
	Shipment          ShipmentDetails
	Requirements      *Requirements
	// Publish creates the auction directly in PUBLISHED instead of DRAFT
	Publish bool
}

// NewAuction validates params and creates an auction in DRAFT or PUBLISHED
func NewAuction(p NewAuctionParams, now time.Time) (*Auction, error) {
	if p.SellerID == uuid.Nil {
		return nil, shared.NewValidationError("Seller ID cannot be empty")
	}
	if p.VehicleID == uuid.Nil {
		return nil, shared.NewValidationError("Vehicle ID cannot be empty")
	}
	if !p.Type.IsValid() {
		return nil, shared.NewValidationError(fmt.Sprintf("Invalid auction type: %s", p.Type))
	}
	if err := p.Shipment.Validate(); err != nil {
		return nil, err
	}
	if err := p.Requirements.Validate(); err != nil {
		return nil, err
	}

	a := &Auction{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(now),
		SellerID:          p.SellerID,
		VehicleID:         p.VehicleID,
		Type:              p.Type,
		Status:            AuctionStatusDraft,
		Shipment:          p.Shipment,
		Requirements:      p.Requirements,
		Bids:              make([]Bid, 0),
	}
	terms := AuctionTerms{
		Title:             p.Title,
		Description:       p.Description,
		StartingPrice:     p.StartingPrice,
		ReservePrice:      p.ReservePrice,
		StartTime:         p.StartTime,
		EndTime:           p.EndTime,
		AutoExtendMinutes: p.AutoExtendMinutes,
		BidIncrement:      p.BidIncrement,
		PriceStepInterval: p.PriceStepInterval,
	}
	if err := a.applyTerms(terms, now); err != nil {
		return nil, err
	}
	if p.Publish {
		a.Status = AuctionStatusPublished
	}

	a.AddDomainEvent(NewAuctionCreatedEvent(a))
	return a, nil
}

// AuctionTerms are the seller-editable parts of an auction
type AuctionTerms struct {
	Title             string
	Description       string
	StartingPrice     decimal.Decimal
	ReservePrice      *decimal.Decimal
	StartTime         time.Time
	EndTime           time.Time
	AutoExtendMinutes int
	BidIncrement      decimal.Decimal
	PriceStepInterval time.Duration
}

// Terms returns the current editable terms
func (a *Auction) Terms() AuctionTerms {
	return AuctionTerms{
		Title:             a.Title,
		Description:       a.Description,
		StartingPrice:     a.StartingPrice,
		ReservePrice:      a.ReservePrice,
		StartTime:         a.StartTime,
		EndTime:           a.EndTime,
		AutoExtendMinutes: a.AutoExtendMinutes,
		BidIncrement:      a.BidIncrement,
		PriceStepInterval: a.PriceStepInterval,
	}
}

func (a *Auction) applyTerms(t AuctionTerms, now time.Time) error {
	title := strings.TrimSpace(t.Title)
	if title == "" {
		return shared.NewValidationError("Auction title cannot be empty")
	}
	if len(title) > 200 {
		return shared.NewValidationError("Auction title cannot exceed 200 characters")
	}
	if !t.StartingPrice.IsPositive() {
		return shared.NewValidationError("Starting price must be greater than 0")
	}
	if err := checkScale("Starting price", t.StartingPrice, MoneyScale); err != nil {
		return err
	}
	if err := checkScale("Bid increment", t.BidIncrement, MoneyScale); err != nil {
		return err
	}
	if t.ReservePrice != nil {
		if err := checkScale("Reserve price", *t.ReservePrice, MoneyScale); err != nil {
			return err
		}
		if a.Type.Descending() && t.ReservePrice.GreaterThan(t.StartingPrice) {
			return shared.NewValidationError("Reserve price must be less than or equal to the starting price")
		}
		if !a.Type.Descending() && t.ReservePrice.LessThan(t.StartingPrice) {
			return shared.NewValidationError("Reserve price must be greater than or equal to the starting price")
		}
	}
	if !t.StartTime.After(now) {
		return shared.NewValidationError("Start time must be in the future")
	}
	if !t.EndTime.After(t.StartTime) {
		return shared.NewValidationError("End time must be after start time")
	}
	if t.AutoExtendMinutes < 0 {
		return shared.NewValidationError("Auto-extend minutes cannot be negative")
	}
	if t.BidIncrement.IsNegative() {
		return shared.NewValidationError("Bid increment cannot be negative")
	}
	if a.Type == AuctionTypeDutch && !t.BidIncrement.IsPositive() {
		return shared.NewValidationError("Dutch auctions require a positive bid increment")
	}
	if t.PriceStepInterval < 0 {
		return shared.NewValidationError("Price step interval cannot be negative")
	}

	a.Title = title
	a.Description = strings.TrimSpace(t.Description)
	a.StartingPrice = t.StartingPrice
	a.ReservePrice = t.ReservePrice
	a.CurrentHighestBid = t.StartingPrice
	a.CurrentLowestBid = t.StartingPrice
	a.StartTime = t.StartTime
	a.EndTime = t.EndTime
	a.AutoExtendMinutes = t.AutoExtendMinutes
	a.BidIncrement = t.BidIncrement
	a.PriceStepInterval = t.PriceStepInterval
	if a.Type == AuctionTypeDutch && a.PriceStepInterval == 0 {
		a.PriceStepInterval = DefaultPriceStepInterval
	}
	a.Touch(now)
	return nil
}

// Update replaces the editable terms. Only the seller may update, and only
// before the auction starts.
func (a *Auction) Update(actorID uuid.UUID, terms AuctionTerms, now time.Time) error {
	if actorID != a.SellerID {
		return shared.NewValidationError("Only the seller can modify this auction")
	}
	if a.Status != AuctionStatusDraft && a.Status != AuctionStatusPublished {
		return shared.NewInvalidStateError(fmt.Sprintf("Cannot update auction in %s status", a.Status))
	}

	// Validate on a copy so a failure leaves the aggregate untouched
	draft := *a
	if err := draft.applyTerms(terms, now); err != nil {
		return err
	}
	a.Title = draft.Title
	a.Description = draft.Description
	a.StartingPrice = draft.StartingPrice
	a.ReservePrice = draft.ReservePrice
	a.CurrentHighestBid = draft.CurrentHighestBid
	a.CurrentLowestBid = draft.CurrentLowestBid
	a.StartTime = draft.StartTime
	a.EndTime = draft.EndTime
	a.AutoExtendMinutes = draft.AutoExtendMinutes
	a.BidIncrement = draft.BidIncrement
	a.PriceStepInterval = draft.PriceStepInterval
	a.Touch(now)

	a.AddDomainEvent(NewAuctionUpdatedEvent(a, now))
	return nil
}

func (a *Auction) transitionTo(target AuctionStatus, now time.Time) error {
	if !a.Status.CanTransitionTo(target) {
		return shared.NewInvalidStateError(fmt.Sprintf("Cannot move auction from %s to %s", a.Status, target))
	}
	a.Status = target
	a.Touch(now)
	return nil
}

// Publish makes a draft auction visible so the sweeper can start it
func (a *Auction) Publish(actorID uuid.UUID, now time.Time) error {
	if actorID != a.SellerID {
		return shared.NewValidationError("Only the seller can publish this auction")
	}
	if a.Status != AuctionStatusDraft {
		return shared.NewInvalidStateError(fmt.Sprintf("Cannot publish auction in %s status", a.Status))
	}
	if !a.StartTime.After(now) {
		return shared.NewValidationError("Start time must be in the future")
	}
	if err := a.transitionTo(AuctionStatusPublished, now); err != nil {
		return err
	}
	a.AddDomainEvent(NewAuctionPublishedEvent(a, now))
	return nil
}

// Start opens bidding. Requires PUBLISHED and now at or past StartTime.
func (a *Auction) Start(now time.Time) error {
	if a.Status != AuctionStatusPublished {
		return shared.NewInvalidStateError(fmt.Sprintf("Cannot start auction in %s status", a.Status))
	}
	if now.Before(a.StartTime) {
		return shared.NewInvalidStateError(fmt.Sprintf("Auction cannot start before %s", a.StartTime.Format(time.RFC3339)))
	}
	if err := a.transitionTo(AuctionStatusActive, now); err != nil {
		return err
	}
	a.AddDomainEvent(NewAuctionStartedEvent(a, now))
	return nil
}

// Pause suspends bidding on an active auction
func (a *Auction) Pause(actorID uuid.UUID, now time.Time) error {
	if actorID != a.SellerID {
		return shared.NewValidationError("Only the seller can pause this auction")
	}
	if a.Status != AuctionStatusActive {
		return shared.NewInvalidStateError(fmt.Sprintf("Cannot pause auction in %s status", a.Status))
	}
	if err := a.transitionTo(AuctionStatusPaused, now); err != nil {
		return err
	}
	a.AddDomainEvent(NewAuctionPausedEvent(a, now))
	return nil
}

// Resume reopens bidding on a paused auction
func (a *Auction) Resume(actorID uuid.UUID, now time.Time) error {
	if actorID != a.SellerID {
		return shared.NewValidationError("Only the seller can resume this auction")
	}
	if a.Status != AuctionStatusPaused {
		return shared.NewInvalidStateError(fmt.Sprintf("Cannot resume auction in %s status", a.Status))
	}
	if now.After(a.EndTime) {
		return shared.NewInvalidStateError("Cannot resume an auction past its end time")
	}
	if err := a.transitionTo(AuctionStatusActive, now); err != nil {
		return err
	}
	a.AddDomainEvent(NewAuctionResumedEvent(a, now))
	return nil
}

// Cancel ends the auction without a winner. Allowed from any non-terminal status.
func (a *Auction) Cancel(reason string, now time.Time) error {
	if a.Status.IsTerminal() {
		return shared.NewInvalidStateError(fmt.Sprintf("Cannot cancel auction in %s status", a.Status))
	}
	previous := a.Status
	if err := a.transitionTo(AuctionStatusCancelled, now); err != nil {
		return err
	}
	a.CancelReason = strings.TrimSpace(reason)
	a.AddDomainEvent(NewAuctionCancelledEvent(a, previous, now))
	return nil
}

// checkBidWindow verifies status, time window and bidder identity
func (a *Auction) checkBidWindow(bidderID uuid.UUID, now time.Time) error {
	if a.Status != AuctionStatusActive {
		return shared.NewInvalidStateError(fmt.Sprintf("Cannot bid on auction in %s status", a.Status))
	}
	if now.Before(a.StartTime) || now.After(a.EndTime) {
		return shared.NewInvalidStateError("Auction is not accepting bids at this time")
	}
	if bidderID == a.SellerID {
		return shared.NewValidationError("Cannot bid on your own auction")
	}
	return nil
}

// CanPlaceBid reports whether bidderID may bid at now, ignoring the amount
func (a *Auction) CanPlaceBid(bidderID uuid.UUID, now time.Time) bool {
	return a.checkBidWindow(bidderID, now) == nil
}

// CurrentBid returns the standing ACCEPTED bid, or nil
func (a *Auction) CurrentBid() *Bid {
	for i := range a.Bids {
		if a.Bids[i].Status == BidStatusAccepted {
			return &a.Bids[i]
		}
	}
	return nil
}

// PlaceBid validates and records a bid. A rejected bid returns an error and
// leaves the aggregate unchanged. On acceptance the previous standing bid is
// outbid, prices move, and EndTime is extended when the bid lands inside the
// auto-extend window. Dutch acceptance closes the auction immediately.
func (a *Auction) PlaceBid(bid *Bid, now time.Time) error {
	if err := bid.ValidateAgainst(a, now); err != nil {
		return err
	}
	if bid.Status != BidStatusPending {
		return shared.NewInvalidStateError(fmt.Sprintf("Cannot place bid in %s status", bid.Status))
	}

	if a.Type == AuctionTypeSealed {
		a.Bids = append(a.Bids, *bid)
		a.TotalBids++
		a.extendIfClosing(now)
		a.Touch(now)
		a.AddDomainEvent(NewBidPlacedEvent(a, bid, now))
		return nil
	}

	previous := a.CurrentBid()
	var outbidBidder uuid.UUID
	if previous != nil {
		if err := previous.outbid(now); err != nil {
			return err
		}
		outbidBidder = previous.BidderID
	}
	if a.Type == AuctionTypeDutch {
		// the taker pays the clock price, not their offer
		bid.Amount = a.DisplayedPrice(now)
	}
	if err := bid.accept(now); err != nil {
		return err
	}

	a.Bids = append(a.Bids, *bid)
	a.TotalBids++
	if a.Type == AuctionTypeReverse {
		a.CurrentLowestBid = bid.Amount
	} else {
		a.CurrentHighestBid = bid.Amount
	}
	if a.Type != AuctionTypeDutch {
		a.extendIfClosing(now)
	}
	a.Touch(now)

	a.AddDomainEvent(NewBidPlacedEvent(a, bid, now))
	if previous != nil && outbidBidder != bid.BidderID {
		a.AddDomainEvent(NewOutbidNotificationEvent(a, previous, bid, now))
	}

	if a.Type == AuctionTypeDutch {
		return a.End(now)
	}
	return nil
}

// extendIfClosing pushes EndTime out by AutoExtendMinutes when fewer than
// AutoExtendMinutes remain. EndTime never moves earlier.
func (a *Auction) extendIfClosing(now time.Time) {
	if a.AutoExtendMinutes <= 0 {
		return
	}
	window := time.Duration(a.AutoExtendMinutes) * time.Minute
	if a.EndTime.Sub(now) < window {
		a.EndTime = a.EndTime.Add(window)
	}
}

// End closes an active auction. The best standing bid wins if it meets the
// reserve; otherwise the auction fails without a winner. Calling End on an
// already closed auction is an INVALID_STATE error.
func (a *Auction) End(now time.Time) error {
	if a.Status != AuctionStatusActive {
		return shared.NewInvalidStateError(fmt.Sprintf("Cannot end auction in %s status", a.Status))
	}

	if a.Type == AuctionTypeSealed {
		a.revealSealedBids(now)
	}

	winner := a.GetWinningBid()
	if winner != nil && a.MeetsReservePrice() {
		if err := winner.win(now); err != nil {
			return err
		}
		id := winner.ID
		a.WinnerBidID = &id
		a.Status = AuctionStatusCompleted
		a.Touch(now)
		a.AddDomainEvent(NewAuctionWonEvent(a, winner, now))
		return nil
	}

	a.Status = AuctionStatusFailed
	a.Touch(now)
	a.AddDomainEvent(NewAuctionFailedEvent(a, now))
	return nil
}

// revealSealedBids accepts the best sealed bid and rejects the rest
func (a *Auction) revealSealedBids(now time.Time) {
	var best *Bid
	for i := range a.Bids {
		b := &a.Bids[i]
		if b.Status != BidStatusPending {
			continue
		}
		if best == nil || a.Type.better(b, best) {
			best = b
		}
	}
	if best == nil {
		return
	}
	for i := range a.Bids {
		b := &a.Bids[i]
		if b.Status != BidStatusPending {
			continue
		}
		if b.ID == best.ID {
			_ = b.accept(now)
		} else {
			_ = b.reject(now)
		}
	}
	a.CurrentHighestBid = best.Amount
}

// AcceptedBidCount returns how many bids are currently ACCEPTED
func (a *Auction) AcceptedBidCount() int {
	n := 0
	for i := range a.Bids {
		if a.Bids[i].Status == BidStatusAccepted {
			n++
		}
	}
	return n
}

// FindBid returns the bid with the given ID, or nil
func (a *Auction) FindBid(id uuid.UUID) *Bid {
	for i := range a.Bids {
		if a.Bids[i].ID == id {
			return &a.Bids[i]
		}
	}
	return nil
}

// HasReserve reports whether a reserve price is set
func (a *Auction) HasReserve() bool {
	return a.ReservePrice != nil
}

// TimeRemaining returns the time left before EndTime, zero once passed
func (a *Auction) TimeRemaining(now time.Time) time.Duration {
	if now.After(a.EndTime) {
		return 0
	}
	return a.EndTime.Sub(now)
}
