package auction

import (
	"context"
	"time"

	"github.com/freightbid/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// AuctionRepository persists Auction aggregates together with their bids
type AuctionRepository interface {
	// GetByID loads the full aggregate including bids in submission order.
	// Returns shared.ErrNotFound when missing.
	GetByID(ctx context.Context, id uuid.UUID) (*Auction, error)

	// Save upserts the aggregate and its bids in one transaction and writes the
	// aggregate's pending domain events to the outbox in that same transaction.
	// Updates are guarded by the loaded Version; a stale version returns
	// shared.ErrConcurrencyConflict and persists nothing.
	Save(ctx context.Context, a *Auction) error

	// ListDueToStart returns PUBLISHED auctions whose StartTime is at or before now.
	// Bids are not loaded.
	ListDueToStart(ctx context.Context, now time.Time, limit int) ([]*Auction, error)

	// ListDueToEnd returns ACTIVE auctions whose EndTime is at or before now.
	// Bids are not loaded.
	ListDueToEnd(ctx context.Context, now time.Time, limit int) ([]*Auction, error)

	// ListBids returns the auction's bids, newest first
	ListBids(ctx context.Context, auctionID uuid.UUID) ([]Bid, error)

	// ExistsOpenForVehicle reports whether another PUBLISHED, ACTIVE or PAUSED
	// auction references the vehicle. excludeID may be uuid.Nil.
	ExistsOpenForVehicle(ctx context.Context, vehicleID, excludeID uuid.UUID) (bool, error)

	ListActive(ctx context.Context, filter shared.Filter) ([]*Auction, int64, error)
	ListBySeller(ctx context.Context, sellerID uuid.UUID, filter shared.Filter) ([]*Auction, int64, error)

	// ListEndingSoon returns ACTIVE auctions ending within the window, soonest first
	ListEndingSoon(ctx context.Context, now time.Time, within time.Duration, limit int) ([]*Auction, error)

	// ListBidsByBidder returns a bidder's bids across auctions, newest first
	ListBidsByBidder(ctx context.Context, bidderID uuid.UUID, filter shared.Filter) ([]Bid, int64, error)
}

// WatcherRepository persists watcher subscriptions
type WatcherRepository interface {
	// Save upserts by (AuctionID, UserID)
	Save(ctx context.Context, w *Watcher) error
	Delete(ctx context.Context, auctionID, userID uuid.UUID) error
	ListByAuction(ctx context.Context, auctionID uuid.UUID) ([]Watcher, error)
}

// ResourceOwnershipChecker verifies that the referenced vehicle exists and
// belongs to the seller. It returns shared.ErrNotFound for a missing vehicle
// and a VALIDATION_ERROR when it belongs to someone else.
type ResourceOwnershipChecker interface {
	VerifyOwnership(ctx context.Context, vehicleID, ownerID uuid.UUID) error
}
