package auction

import (
	"fmt"
	"strings"
	"time"

	"github.com/freightbid/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Bid is one offer submitted against an auction
type Bid struct {
	shared.BaseEntity
	AuctionID   uuid.UUID
	BidderID    uuid.UUID
	Amount      decimal.Decimal
	SubmittedAt time.Time
	Status      BidStatus
	IsAutomatic bool
	Notes       string
}

// NewBid creates a pending bid
func NewBid(auctionID, bidderID uuid.UUID, amount decimal.Decimal, submittedAt time.Time, isAutomatic bool, notes string) (*Bid, error) {
	if bidderID == uuid.Nil {
		return nil, shared.NewValidationError("Bidder ID cannot be empty")
	}
	if !amount.IsPositive() {
		return nil, shared.NewValidationError("Bid amount must be positive")
	}
	if err := checkScale("Bid amount", amount, MoneyScale); err != nil {
		return nil, err
	}
	if len(notes) > 500 {
		return nil, shared.NewValidationError("Bid notes cannot exceed 500 characters")
	}

	return &Bid{
		BaseEntity:  shared.NewBaseEntity(submittedAt),
		AuctionID:   auctionID,
		BidderID:    bidderID,
		Amount:      amount,
		SubmittedAt: submittedAt,
		Status:      BidStatusPending,
		IsAutomatic: isAutomatic,
		Notes:       strings.TrimSpace(notes),
	}, nil
}

// ValidateAgainst checks this bid against the auction's current state without
// mutating either side. The returned error is a DomainError of kind
// INVALID_STATE or VALIDATION_ERROR.
func (b *Bid) ValidateAgainst(a *Auction, now time.Time) error {
	if b.AuctionID != a.ID {
		return shared.NewValidationError("Bid does not belong to this auction")
	}
	if err := a.checkBidWindow(b.BidderID, now); err != nil {
		return err
	}
	return a.Type.evaluate(a, b.Amount, now)
}

func (b *Bid) transition(target BidStatus, at time.Time) error {
	if !b.Status.CanTransitionTo(target) {
		return shared.NewInvalidStateError(fmt.Sprintf("Cannot move bid from %s to %s", b.Status, target))
	}
	b.Status = target
	b.Touch(at)
	return nil
}

// accept moves a pending bid to ACCEPTED
func (b *Bid) accept(at time.Time) error {
	return b.transition(BidStatusAccepted, at)
}

// reject moves a pending bid to REJECTED
func (b *Bid) reject(at time.Time) error {
	return b.transition(BidStatusRejected, at)
}

// outbid demotes the standing bid when a better one is accepted
func (b *Bid) outbid(at time.Time) error {
	return b.transition(BidStatusOutbid, at)
}

// win promotes the standing bid to WINNING at auction close
func (b *Bid) win(at time.Time) error {
	return b.transition(BidStatusWinning, at)
}
