package auction

import (
	"context"
	"testing"
	"time"

	"github.com/freightbid/backend/internal/domain/auction"
	"github.com/freightbid/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestGetAuction_NotFound(t *testing.T) {
	f := newServiceFixture(t)
	_, err := f.svc.GetAuction(context.Background(), uuid.New())
	requireCode(t, err, shared.CodeNotFound)
}

func TestGetBidHistory_NewestFirst(t *testing.T) {
	f := newServiceFixture(t)
	req := f.createRequest("FORWARD")
	id := f.activeAuction(t, req)

	for i, amount := range []int64{11000, 12000, 13000} {
		f.clock.Set(req.StartTime.Add(time.Duration(i+2) * time.Minute))
		_, err := f.bid(t, id, amount)
		require.NoError(t, err)
	}

	history, err := f.svc.GetBidHistory(context.Background(), id)
	require.NoError(t, err)
	require.Len(t, history, 3)
	assert.Equal(t, "13000", history[0].Amount)
	assert.Equal(t, "ACCEPTED", history[0].Status)
	assert.Equal(t, "11000", history[2].Amount)
	assert.Equal(t, "OUTBID", history[2].Status)
}

func TestListActiveAuctions(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()
	req := f.createRequest("FORWARD")
	active := f.activeAuction(t, req)

	other := f.createRequest("REVERSE")
	other.VehicleID = uuid.New()
	other.StartTime = f.clock.Now().Add(time.Hour)
	other.EndTime = other.StartTime.Add(time.Hour)
	_, err := f.svc.CreateAuction(ctx, other)
	require.NoError(t, err)

	page, err := f.svc.ListActiveAuctions(ctx, ListQuery{})
	require.NoError(t, err)
	assert.Equal(t, int64(1), page.Total)
	require.Len(t, page.Items, 1)
	assert.Equal(t, active, page.Items[0].ID)
	assert.Equal(t, "10500", page.Items[0].NextBidAmount)

	_, err = f.svc.ListActiveAuctions(ctx, ListQuery{PageSize: 500})
	requireCode(t, err, shared.CodeValidation)
}

func TestListSellerAuctions(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		req := f.createRequest("FORWARD")
		req.VehicleID = uuid.New()
		req.Publish = false
		_, err := f.svc.CreateAuction(ctx, req)
		require.NoError(t, err)
	}

	page, err := f.svc.ListSellerAuctions(ctx, f.sellerID, ListQuery{Page: 2, PageSize: 2})
	require.NoError(t, err)
	assert.Equal(t, int64(3), page.Total)
	assert.Len(t, page.Items, 1)

	page, err = f.svc.ListSellerAuctions(ctx, uuid.New(), ListQuery{})
	require.NoError(t, err)
	assert.Zero(t, page.Total)
	assert.Empty(t, page.Items)
}

func TestListEndingSoon(t *testing.T) {
	f := newServiceFixture(t)
	req := f.createRequest("FORWARD")
	id := f.activeAuction(t, req)

	soon, err := f.svc.ListEndingSoon(context.Background(), 0, 0)
	require.NoError(t, err)
	assert.Empty(t, soon)

	f.clock.Set(req.EndTime.Add(-10 * time.Minute))
	soon, err = f.svc.ListEndingSoon(context.Background(), 0, 0)
	require.NoError(t, err)
	require.Len(t, soon, 1)
	assert.Equal(t, id, soon[0].ID)
	assert.Equal(t, int64(600), soon[0].TimeRemainingSecs)

	soon, err = f.svc.ListEndingSoon(context.Background(), 5*time.Minute, 10)
	require.NoError(t, err)
	assert.Empty(t, soon)
}

func TestListBidderBids(t *testing.T) {
	f := newServiceFixture(t)
	req := f.createRequest("SEALED")
	id := f.activeAuction(t, req)
	bidder := uuid.New()

	_, err := f.svc.PlaceBid(context.Background(), id, PlaceBidRequest{BidderID: bidder, Amount: decimal.NewFromInt(12000)})
	require.NoError(t, err)
	_, err = f.bid(t, id, 13000)
	require.NoError(t, err)

	page, err := f.svc.ListBidderBids(context.Background(), bidder, ListQuery{})
	require.NoError(t, err)
	assert.Equal(t, int64(1), page.Total)
	require.Len(t, page.Items, 1)
	// bidders always see their own sealed amounts
	assert.Equal(t, "12000", page.Items[0].Amount)
}

func TestWatchAuction(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()
	created, err := f.svc.CreateAuction(ctx, f.createRequest("FORWARD"))
	require.NoError(t, err)
	userID := uuid.New()

	f.watchers.On("Save", ctx, mock.MatchedBy(func(w *auction.Watcher) bool {
		return w.AuctionID == created.ID && w.UserID == userID && w.NotifyOnBid && !w.NotifyOnEnding
	})).Return(nil).Once()

	err = f.svc.WatchAuction(ctx, created.ID, WatchRequest{UserID: userID, NotifyOnBid: true})
	require.NoError(t, err)
	f.watchers.AssertExpectations(t)
}

func TestWatchAuction_Errors(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()
	created, err := f.svc.CreateAuction(ctx, f.createRequest("FORWARD"))
	require.NoError(t, err)

	err = f.svc.WatchAuction(ctx, created.ID, WatchRequest{})
	requireCode(t, err, shared.CodeValidation)

	err = f.svc.WatchAuction(ctx, created.ID, WatchRequest{UserID: uuid.New()})
	requireCode(t, err, shared.CodeValidation)
	assert.Contains(t, err.Error(), "at least one notification")

	err = f.svc.WatchAuction(ctx, uuid.New(), WatchRequest{UserID: uuid.New(), NotifyOnBid: true})
	requireCode(t, err, shared.CodeNotFound)

	_, err = f.svc.CancelAuction(ctx, created.ID, f.sellerID, "")
	require.NoError(t, err)
	err = f.svc.WatchAuction(ctx, created.ID, WatchRequest{UserID: uuid.New(), NotifyOnEnding: true})
	requireCode(t, err, shared.CodeInvalidState)

	f.watchers.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
}

func TestUnwatchAuction(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()
	auctionID, userID := uuid.New(), uuid.New()

	f.watchers.On("Delete", ctx, auctionID, userID).Return(shared.ErrNotFound).Once()
	err := f.svc.UnwatchAuction(ctx, auctionID, userID)
	assert.ErrorIs(t, err, shared.ErrNotFound)
	f.watchers.AssertExpectations(t)
}
