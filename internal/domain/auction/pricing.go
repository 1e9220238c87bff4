package auction

import (
	"fmt"
	"time"

	"github.com/freightbid/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// DefaultPriceStepInterval is how often a Dutch clock drops by one increment
const DefaultPriceStepInterval = time.Minute

// MinimumBidAmount is the smallest amount a descending auction can reach
var MinimumBidAmount = decimal.RequireFromString("0.01")

// Stored decimal places: prices are DECIMAL(18,2), shipment quantities DECIMAL(12,3)
const (
	MoneyScale    = 2
	QuantityScale = 3
)

// checkScale rejects values that storage would round
func checkScale(field string, d decimal.Decimal, places int32) error {
	if !d.Equal(d.Truncate(places)) {
		return shared.NewValidationError(fmt.Sprintf("%s cannot have more than %d decimal places", field, places))
	}
	return nil
}

// evaluate checks amount against the pricing rule of the auction type
func (t AuctionType) evaluate(a *Auction, amount decimal.Decimal, now time.Time) error {
	switch t {
	case AuctionTypeForward:
		if !amount.GreaterThan(a.CurrentHighestBid) {
			return shared.NewValidationError(fmt.Sprintf("Bid must be greater than the current highest bid of %s", a.CurrentHighestBid))
		}
		if next := a.CalculateNextBidAmount(now); a.BidIncrement.IsPositive() && amount.LessThan(next) {
			return shared.NewValidationError(fmt.Sprintf("Bid is below the minimum increment, next acceptable amount is %s", next))
		}
	case AuctionTypeReverse:
		if !amount.LessThan(a.CurrentLowestBid) {
			return shared.NewValidationError(fmt.Sprintf("Bid must be lower than the current lowest bid of %s", a.CurrentLowestBid))
		}
		if next := a.CalculateNextBidAmount(now); a.BidIncrement.IsPositive() && amount.GreaterThan(next) {
			return shared.NewValidationError(fmt.Sprintf("Bid is below the minimum decrement, next acceptable amount is %s", next))
		}
	case AuctionTypeSealed:
		if amount.LessThan(a.StartingPrice) {
			return shared.NewValidationError(fmt.Sprintf("Sealed bid cannot be below the starting price of %s", a.StartingPrice))
		}
	case AuctionTypeDutch:
		if price := a.DisplayedPrice(now); amount.LessThan(price) {
			return shared.NewValidationError(fmt.Sprintf("Bid is below the current price of %s", price))
		}
	default:
		return shared.NewValidationError(fmt.Sprintf("Unsupported auction type %s", t))
	}
	return nil
}

// better reports whether x beats y under the auction type's ordering.
// Equal amounts fall back to the earlier submission.
func (t AuctionType) better(x, y *Bid) bool {
	cmp := x.Amount.Cmp(y.Amount)
	if t == AuctionTypeReverse {
		cmp = -cmp
	}
	if cmp != 0 {
		return cmp > 0
	}
	return x.SubmittedAt.Before(y.SubmittedAt)
}

// CurrentPrice returns the publicly visible price: the lowest bid for Reverse
// auctions and the highest bid otherwise. Sealed auctions expose the starting
// price until bids are revealed at close.
func (a *Auction) CurrentPrice() decimal.Decimal {
	if a.Type == AuctionTypeReverse {
		return a.CurrentLowestBid
	}
	return a.CurrentHighestBid
}

// CalculateNextBidAmount returns the least favourable amount that would still be accepted
func (a *Auction) CalculateNextBidAmount(now time.Time) decimal.Decimal {
	switch a.Type {
	case AuctionTypeReverse:
		return decimal.Max(MinimumBidAmount, a.CurrentLowestBid.Sub(a.BidIncrement))
	case AuctionTypeSealed:
		return a.StartingPrice
	case AuctionTypeDutch:
		return a.DisplayedPrice(now)
	default:
		return a.CurrentHighestBid.Add(a.BidIncrement)
	}
}

// DisplayedPrice returns the Dutch clock price at now. The clock starts at the
// starting price and drops one bid increment per PriceStepInterval. It stops at
// the reserve, or at one increment when there is no reserve, and never goes
// below MinimumBidAmount. For other auction types it returns CurrentPrice.
func (a *Auction) DisplayedPrice(now time.Time) decimal.Decimal {
	if a.Type != AuctionTypeDutch {
		return a.CurrentPrice()
	}
	floor := a.BidIncrement
	if a.ReservePrice != nil {
		floor = *a.ReservePrice
	}
	floor = decimal.Max(MinimumBidAmount, floor)
	interval := a.PriceStepInterval
	if interval <= 0 {
		interval = DefaultPriceStepInterval
	}
	var steps int64
	if now.After(a.StartTime) {
		steps = int64(now.Sub(a.StartTime) / interval)
	}
	price := a.StartingPrice.Sub(a.BidIncrement.Mul(decimal.NewFromInt(steps)))
	return decimal.Max(floor, price)
}

// MeetsReservePrice reports whether the current price satisfies the reserve.
// Auctions without a reserve always meet it.
func (a *Auction) MeetsReservePrice() bool {
	if a.ReservePrice == nil {
		return true
	}
	if a.Type == AuctionTypeReverse {
		return a.CurrentLowestBid.LessThanOrEqual(*a.ReservePrice)
	}
	return a.CurrentHighestBid.GreaterThanOrEqual(*a.ReservePrice)
}

// GetWinningBid returns the best standing bid, or nil if there is none.
// Only ACCEPTED bids (and the WINNING bid after close) are candidates.
func (a *Auction) GetWinningBid() *Bid {
	var best *Bid
	for i := range a.Bids {
		b := &a.Bids[i]
		if b.Status != BidStatusAccepted && b.Status != BidStatusWinning {
			continue
		}
		if best == nil || a.Type.better(b, best) {
			best = b
		}
	}
	return best
}
