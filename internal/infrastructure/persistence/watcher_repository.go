package persistence

import (
	"context"

	"github.com/freightbid/backend/internal/domain/auction"
	"github.com/freightbid/backend/internal/domain/shared"
	"github.com/freightbid/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormWatcherRepository implements auction.WatcherRepository using GORM
type GormWatcherRepository struct {
	db *gorm.DB
}

// NewGormWatcherRepository creates a new GormWatcherRepository
func NewGormWatcherRepository(db *gorm.DB) *GormWatcherRepository {
	return &GormWatcherRepository{db: db}
}

// Save creates the subscription or updates its preferences
func (r *GormWatcherRepository) Save(ctx context.Context, w *auction.Watcher) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "auction_id"}, {Name: "user_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"notify_on_bid", "notify_on_ending"}),
		}).
		Create(models.AuctionWatcherModelFromDomain(w)).Error
}

// Delete removes a subscription
func (r *GormWatcherRepository) Delete(ctx context.Context, auctionID, userID uuid.UUID) error {
	result := r.db.WithContext(ctx).
		Where("auction_id = ? AND user_id = ?", auctionID, userID).
		Delete(&models.AuctionWatcherModel{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// ListByAuction returns every watcher of an auction, oldest first
func (r *GormWatcherRepository) ListByAuction(ctx context.Context, auctionID uuid.UUID) ([]auction.Watcher, error) {
	var watcherModels []models.AuctionWatcherModel
	if err := r.db.WithContext(ctx).
		Where("auction_id = ?", auctionID).
		Order("created_at ASC").
		Find(&watcherModels).Error; err != nil {
		return nil, err
	}
	watchers := make([]auction.Watcher, 0, len(watcherModels))
	for i := range watcherModels {
		watchers = append(watchers, watcherModels[i].ToDomain())
	}
	return watchers, nil
}

// Ensure GormWatcherRepository implements WatcherRepository
var _ auction.WatcherRepository = (*GormWatcherRepository)(nil)
