package auction

import (
	"context"
	"time"

	"github.com/freightbid/backend/internal/domain/auction"
	"github.com/freightbid/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// GetAuction retrieves an auction by ID
func (s *BiddingService) GetAuction(ctx context.Context, auctionID uuid.UUID) (*AuctionResponse, error) {
	a, err := s.auctions.GetByID(ctx, auctionID)
	if err != nil {
		return nil, err
	}
	resp := ToAuctionResponse(a, s.now())
	return &resp, nil
}

// GetBidHistory returns the auction's bids, newest first. Sealed amounts stay
// hidden until the auction is closed.
func (s *BiddingService) GetBidHistory(ctx context.Context, auctionID uuid.UUID) ([]BidResponse, error) {
	a, err := s.auctions.GetByID(ctx, auctionID)
	if err != nil {
		return nil, err
	}
	bids, err := s.auctions.ListBids(ctx, auctionID)
	if err != nil {
		return nil, err
	}
	sealed := a.Type == auction.AuctionTypeSealed && !a.Status.IsTerminal()
	out := make([]BidResponse, len(bids))
	for i := range bids {
		out[i] = ToBidResponse(&bids[i], sealed)
	}
	return out, nil
}

// ListActiveAuctions returns ACTIVE auctions, newest first
func (s *BiddingService) ListActiveAuctions(ctx context.Context, q ListQuery) (*shared.Paginated[AuctionResponse], error) {
	if err := validateRequest(s.validate, q); err != nil {
		return nil, err
	}
	filter := q.filter()
	auctions, total, err := s.auctions.ListActive(ctx, filter)
	if err != nil {
		return nil, err
	}
	page := shared.NewPaginated(ToAuctionResponses(auctions, s.now()), total, filter.Page, filter.PageSize)
	return &page, nil
}

// ListSellerAuctions returns every auction created by sellerID
func (s *BiddingService) ListSellerAuctions(ctx context.Context, sellerID uuid.UUID, q ListQuery) (*shared.Paginated[AuctionResponse], error) {
	if err := validateRequest(s.validate, q); err != nil {
		return nil, err
	}
	filter := q.filter()
	auctions, total, err := s.auctions.ListBySeller(ctx, sellerID, filter)
	if err != nil {
		return nil, err
	}
	page := shared.NewPaginated(ToAuctionResponses(auctions, s.now()), total, filter.Page, filter.PageSize)
	return &page, nil
}

// ListEndingSoon returns ACTIVE auctions closing within the window, soonest
// first. A zero window uses the configured default.
func (s *BiddingService) ListEndingSoon(ctx context.Context, within time.Duration, limit int) ([]AuctionResponse, error) {
	if within <= 0 {
		within = s.config.EndingSoonWindow
	}
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	now := s.now()
	auctions, err := s.auctions.ListEndingSoon(ctx, now, within, limit)
	if err != nil {
		return nil, err
	}
	return ToAuctionResponses(auctions, now), nil
}

// ListBidderBids returns a bidder's bids across auctions, newest first.
// The bidder always sees their own amounts.
func (s *BiddingService) ListBidderBids(ctx context.Context, bidderID uuid.UUID, q ListQuery) (*shared.Paginated[BidResponse], error) {
	if err := validateRequest(s.validate, q); err != nil {
		return nil, err
	}
	filter := q.filter()
	bids, total, err := s.auctions.ListBidsByBidder(ctx, bidderID, filter)
	if err != nil {
		return nil, err
	}
	out := make([]BidResponse, len(bids))
	for i := range bids {
		out[i] = ToBidResponse(&bids[i], false)
	}
	page := shared.NewPaginated(out, total, filter.Page, filter.PageSize)
	return &page, nil
}

// WatchAuction subscribes a user to bid and closing notifications. Watching
// again replaces the previous preferences.
func (s *BiddingService) WatchAuction(ctx context.Context, auctionID uuid.UUID, req WatchRequest) error {
	if err := validateRequest(s.validate, req); err != nil {
		return err
	}
	a, err := s.auctions.GetByID(ctx, auctionID)
	if err != nil {
		return err
	}
	if a.Status.IsTerminal() {
		return shared.NewInvalidStateError("Cannot watch a closed auction")
	}
	w, err := auction.NewWatcher(auctionID, req.UserID, req.NotifyOnBid, req.NotifyOnEnding, s.now())
	if err != nil {
		return err
	}
	return s.watchers.Save(ctx, w)
}

// UnwatchAuction removes a subscription. NOT_FOUND when the user was not watching.
func (s *BiddingService) UnwatchAuction(ctx context.Context, auctionID, userID uuid.UUID) error {
	return s.watchers.Delete(ctx, auctionID, userID)
}
