package event

import (
	"context"
	"testing"
	"time"

	"github.com/freightbid/backend/internal/domain/auction"
	"github.com/freightbid/backend/internal/domain/shared"
	"github.com/freightbid/backend/internal/infrastructure/persistence"
	"github.com/freightbid/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestOutboxPublisher_SaveEventsRequiresTx(t *testing.T) {
	serializer := NewEventSerializer()
	serializer.Register("bid_placed", &testEvent{})
	publisher := NewOutboxPublisher(serializer)

	err := publisher.SaveEvents(context.Background(), "not a tx", newTestEvent("bid_placed"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "*gorm.DB")

	assert.NoError(t, publisher.SaveEvents(context.Background(), "ignored when empty"))
}

func TestOutboxPublisher_RejectsUnregisteredEvents(t *testing.T) {
	db := setupOutboxTestDB(t)
	publisher := NewOutboxPublisher(NewEventSerializer())

	err := db.Transaction(func(tx *gorm.DB) error {
		return publisher.SaveEvents(context.Background(), tx, newTestEvent("mystery"))
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not registered")
}

// The auction row and its events commit together
func TestOutboxPublisher_WithAuctionRepository(t *testing.T) {
	db := setupOutboxTestDB(t)
	require.NoError(t, db.AutoMigrate(&models.AuctionModel{}, &models.BidModel{}))

	serializer := NewEventSerializer()
	RegisterAuctionEvents(serializer)
	repo := persistence.NewGormAuctionRepository(db)
	repo.SetOutboxEventSaver(NewOutboxPublisher(serializer))
	outbox := NewGormOutboxRepository(db)
	ctx := context.Background()

	a, err := auction.NewAuction(auction.NewAuctionParams{
		Title:         "Pallets MAD-LIS",
		SellerID:      uuid.New(),
		VehicleID:     uuid.New(),
		Type:          auction.AuctionTypeForward,
		StartingPrice: decimal.NewFromInt(2000),
		StartTime:     eventTestTime.Add(time.Hour),
		EndTime:       eventTestTime.Add(3 * time.Hour),
		BidIncrement:  decimal.NewFromInt(50),
		Shipment: auction.ShipmentDetails{
			WeightKg:     decimal.NewFromInt(900),
			VolumeM3:     decimal.NewFromInt(6),
			Origin:       "Madrid",
			Destination:  "Lisbon",
			PickupDate:   eventTestTime.Add(24 * time.Hour),
			DeliveryDate: eventTestTime.Add(36 * time.Hour),
		},
		Publish: true,
	}, eventTestTime)
	require.NoError(t, err)
	require.NoError(t, repo.Save(ctx, a))
	a.ClearDomainEvents()

	a, err = repo.GetByID(ctx, a.ID)
	require.NoError(t, err)
	require.NoError(t, a.Start(a.StartTime))
	bidAt := a.StartTime.Add(time.Minute)
	bid, err := auction.NewBid(a.ID, uuid.New(), decimal.NewFromInt(2050), bidAt, false, "")
	require.NoError(t, err)
	require.NoError(t, a.PlaceBid(bid, bidAt))
	require.NoError(t, repo.Save(ctx, a))

	pending, err := outbox.FindPending(ctx, 10)
	require.NoError(t, err)
	types := make([]string, 0, len(pending))
	for _, e := range pending {
		types = append(types, e.EventType)
		assert.Equal(t, a.ID, e.AggregateID)
		assert.Equal(t, auction.AggregateTypeAuction, e.AggregateType)
	}
	assert.ElementsMatch(t, []string{
		auction.EventTypeAuctionCreated,
		auction.EventTypeAuctionStarted,
		auction.EventTypeBidPlaced,
	}, types)

	for _, e := range pending {
		decoded, err := serializer.Deserialize(e.EventType, e.Payload)
		require.NoError(t, err)
		assert.Equal(t, e.EventID, decoded.EventID())
	}

	counts, err := outbox.CountByStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), counts[shared.OutboxStatusPending])
}
