package models

import (
	"time"

	"github.com/freightbid/backend/internal/domain/auction"
	"github.com/google/uuid"
)

// AuctionWatcherModel is the persistence model for a watcher subscription
type AuctionWatcherModel struct {
	ID             uuid.UUID `gorm:"type:uuid;primaryKey"`
	AuctionID      uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_watchers_auction_user,priority:1"`
	UserID         uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_watchers_auction_user,priority:2"`
	NotifyOnBid    bool      `gorm:"not null;default:true"`
	NotifyOnEnding bool      `gorm:"not null;default:true"`
	CreatedAt      time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (AuctionWatcherModel) TableName() string {
	return "auction_watchers"
}

// ToDomain converts the persistence model to a domain Watcher
func (m *AuctionWatcherModel) ToDomain() auction.Watcher {
	return auction.Watcher{
		ID:             m.ID,
		AuctionID:      m.AuctionID,
		UserID:         m.UserID,
		NotifyOnBid:    m.NotifyOnBid,
		NotifyOnEnding: m.NotifyOnEnding,
		CreatedAt:      m.CreatedAt,
	}
}

// AuctionWatcherModelFromDomain creates a new persistence model from a domain Watcher
func AuctionWatcherModelFromDomain(w *auction.Watcher) *AuctionWatcherModel {
	return &AuctionWatcherModel{
		ID:             w.ID,
		AuctionID:      w.AuctionID,
		UserID:         w.UserID,
		NotifyOnBid:    w.NotifyOnBid,
		NotifyOnEnding: w.NotifyOnEnding,
		CreatedAt:      w.CreatedAt,
	}
}

// VehicleModel is the read-only projection of the fleet's vehicles table
// used to verify ownership when an auction is created
type VehicleModel struct {
	BaseModel
	OwnerID      uuid.UUID `gorm:"type:uuid;not null;index"`
	LicensePlate string    `gorm:"type:varchar(20);not null"`
	IsActive     bool      `gorm:"not null;default:true"`
}

// TableName returns the table name for GORM
func (VehicleModel) TableName() string {
	return "vehicles"
}
