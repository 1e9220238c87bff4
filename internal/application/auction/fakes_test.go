package auction

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/freightbid/backend/internal/domain/auction"
	"github.com/freightbid/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

// memAuctionRepository is a versioned in-memory AuctionRepository. Aggregates
// are copied on the way in and out so callers never share state, which makes
// concurrent writers observe version conflicts the way the database does.
type memAuctionRepository struct {
	mu       sync.Mutex
	auctions map[uuid.UUID]*auction.Auction
	events   []shared.DomainEvent
	saves    int

	// conflicts forces the next n updates to fail with a version conflict
	conflicts int
	// saveErr fails every save when set
	saveErr error
}

func newMemAuctionRepository() *memAuctionRepository {
	return &memAuctionRepository{auctions: make(map[uuid.UUID]*auction.Auction)}
}

func cloneAuction(a *auction.Auction) *auction.Auction {
	cp := *a
	cp.ClearDomainEvents()
	cp.Bids = append([]auction.Bid(nil), a.Bids...)
	if a.ReservePrice != nil {
		r := *a.ReservePrice
		cp.ReservePrice = &r
	}
	if a.WinnerBidID != nil {
		id := *a.WinnerBidID
		cp.WinnerBidID = &id
	}
	if a.Requirements != nil {
		req := *a.Requirements
		req.Certifications = append([]string(nil), a.Requirements.Certifications...)
		cp.Requirements = &req
	}
	return &cp
}

func (r *memAuctionRepository) GetByID(_ context.Context, id uuid.UUID) (*auction.Auction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.auctions[id]
	if !ok {
		return nil, shared.NewNotFoundError("auction", id)
	}
	return cloneAuction(a), nil
}

func (r *memAuctionRepository) Save(_ context.Context, a *auction.Auction) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.saveErr != nil {
		return r.saveErr
	}
	if stored, ok := r.auctions[a.ID]; ok {
		if r.conflicts > 0 {
			r.conflicts--
			return shared.ErrConcurrencyConflict
		}
		if stored.Version != a.Version {
			return shared.ErrConcurrencyConflict
		}
		a.IncrementVersion()
	}
	r.saves++
	r.events = append(r.events, a.GetDomainEvents()...)
	r.auctions[a.ID] = cloneAuction(a)
	return nil
}

func (r *memAuctionRepository) get(id uuid.UUID) *auction.Auction {
	r.mu.Lock()
	defer r.mu.Unlock()
	return cloneAuction(r.auctions[id])
}

func (r *memAuctionRepository) eventTypes() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.events))
	for i, e := range r.events {
		out[i] = e.EventType()
	}
	return out
}

func (r *memAuctionRepository) filter(keep func(a *auction.Auction) bool) []*auction.Auction {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*auction.Auction
	for _, a := range r.auctions {
		if keep(a) {
			out = append(out, cloneAuction(a))
		}
	}
	return out
}

func (r *memAuctionRepository) ListDueToStart(_ context.Context, now time.Time, limit int) ([]*auction.Auction, error) {
	out := r.filter(func(a *auction.Auction) bool {
		return a.Status == auction.AuctionStatusPublished && !a.StartTime.After(now)
	})
	return head(out, limit), nil
}

func (r *memAuctionRepository) ListDueToEnd(_ context.Context, now time.Time, limit int) ([]*auction.Auction, error) {
	out := r.filter(func(a *auction.Auction) bool {
		return a.Status == auction.AuctionStatusActive && !a.EndTime.After(now)
	})
	return head(out, limit), nil
}

func (r *memAuctionRepository) ListBids(_ context.Context, auctionID uuid.UUID) ([]auction.Bid, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.auctions[auctionID]
	if !ok {
		return nil, nil
	}
	bids := append([]auction.Bid(nil), a.Bids...)
	sort.SliceStable(bids, func(i, j int) bool { return bids[i].SubmittedAt.After(bids[j].SubmittedAt) })
	return bids, nil
}

func (r *memAuctionRepository) ExistsOpenForVehicle(_ context.Context, vehicleID, excludeID uuid.UUID) (bool, error) {
	out := r.filter(func(a *auction.Auction) bool {
		return a.VehicleID == vehicleID && a.ID != excludeID && a.Status.IsOpen()
	})
	return len(out) > 0, nil
}

func (r *memAuctionRepository) ListActive(_ context.Context, filter shared.Filter) ([]*auction.Auction, int64, error) {
	out := r.filter(func(a *auction.Auction) bool { return a.Status == auction.AuctionStatusActive })
	return page(out, filter), int64(len(out)), nil
}

func (r *memAuctionRepository) ListBySeller(_ context.Context, sellerID uuid.UUID, filter shared.Filter) ([]*auction.Auction, int64, error) {
	out := r.filter(func(a *auction.Auction) bool { return a.SellerID == sellerID })
	return page(out, filter), int64(len(out)), nil
}

func (r *memAuctionRepository) ListEndingSoon(_ context.Context, now time.Time, within time.Duration, limit int) ([]*auction.Auction, error) {
	out := r.filter(func(a *auction.Auction) bool {
		return a.Status == auction.AuctionStatusActive && a.EndTime.After(now) && !a.EndTime.After(now.Add(within))
	})
	sort.Slice(out, func(i, j int) bool { return out[i].EndTime.Before(out[j].EndTime) })
	return head(out, limit), nil
}

func (r *memAuctionRepository) ListBidsByBidder(_ context.Context, bidderID uuid.UUID, filter shared.Filter) ([]auction.Bid, int64, error) {
	r.mu.Lock()
	var bids []auction.Bid
	for _, a := range r.auctions {
		for _, b := range a.Bids {
			if b.BidderID == bidderID {
				bids = append(bids, b)
			}
		}
	}
	r.mu.Unlock()
	sort.SliceStable(bids, func(i, j int) bool { return bids[i].SubmittedAt.After(bids[j].SubmittedAt) })
	total := int64(len(bids))
	start := min(filter.Offset(), len(bids))
	end := min(start+filter.PageSize, len(bids))
	return bids[start:end], total, nil
}

func head(in []*auction.Auction, limit int) []*auction.Auction {
	if limit > 0 && len(in) > limit {
		return in[:limit]
	}
	return in
}

func page(in []*auction.Auction, filter shared.Filter) []*auction.Auction {
	sort.Slice(in, func(i, j int) bool { return in[i].CreatedAt.After(in[j].CreatedAt) })
	start := min(filter.Offset(), len(in))
	end := min(start+filter.PageSize, len(in))
	return in[start:end]
}

// MockWatcherRepository is a mock implementation of auction.WatcherRepository
type MockWatcherRepository struct {
	mock.Mock
}

func (m *MockWatcherRepository) Save(ctx context.Context, w *auction.Watcher) error {
	args := m.Called(ctx, w)
	return args.Error(0)
}

func (m *MockWatcherRepository) Delete(ctx context.Context, auctionID, userID uuid.UUID) error {
	args := m.Called(ctx, auctionID, userID)
	return args.Error(0)
}

func (m *MockWatcherRepository) ListByAuction(ctx context.Context, auctionID uuid.UUID) ([]auction.Watcher, error) {
	args := m.Called(ctx, auctionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]auction.Watcher), args.Error(1)
}

// MockOwnershipChecker is a mock implementation of auction.ResourceOwnershipChecker
type MockOwnershipChecker struct {
	mock.Mock
}

func (m *MockOwnershipChecker) VerifyOwnership(ctx context.Context, vehicleID, ownerID uuid.UUID) error {
	args := m.Called(ctx, vehicleID, ownerID)
	return args.Error(0)
}

// MockNotifier is a mock implementation of Notifier
type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) Notify(ctx context.Context, n Notification) error {
	args := m.Called(ctx, n)
	return args.Error(0)
}

// testClock is a settable clock shared by the service under test
type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

var (
	_ auction.AuctionRepository        = (*memAuctionRepository)(nil)
	_ auction.WatcherRepository        = (*MockWatcherRepository)(nil)
	_ auction.ResourceOwnershipChecker = (*MockOwnershipChecker)(nil)
	_ Notifier                         = (*MockNotifier)(nil)
)
