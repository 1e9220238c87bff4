package persistence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/freightbid/backend/internal/domain/auction"
	"github.com/freightbid/backend/internal/domain/shared"
	"github.com/freightbid/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormAuctionRepository implements auction.AuctionRepository using GORM
type GormAuctionRepository struct {
	db          *gorm.DB
	outboxSaver shared.OutboxEventSaver // optional, for transactional outbox pattern
}

// NewGormAuctionRepository creates a new GormAuctionRepository
func NewGormAuctionRepository(db *gorm.DB) *GormAuctionRepository {
	return &GormAuctionRepository{db: db}
}

// SetOutboxEventSaver sets the outbox event saver for transactional event publishing
func (r *GormAuctionRepository) SetOutboxEventSaver(saver shared.OutboxEventSaver) {
	r.outboxSaver = saver
}

// GetByID loads an auction with its bids in submission order
func (r *GormAuctionRepository) GetByID(ctx context.Context, id uuid.UUID) (*auction.Auction, error) {
	var model models.AuctionModel
	if err := r.db.WithContext(ctx).
		Preload("Bids", func(db *gorm.DB) *gorm.DB {
			return db.Order("submitted_at ASC, id ASC")
		}).
		First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.NewNotFoundError("auction", id)
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// Save upserts the auction, its bids and its pending events in one transaction.
// Existing rows are updated only if the stored version still matches the loaded one.
func (r *GormAuctionRepository) Save(ctx context.Context, a *auction.Auction) error {
	events := a.GetDomainEvents()
	expected := a.Version

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.AuctionModel{}).Where("id = ?", a.ID).Count(&count).Error; err != nil {
			return err
		}

		if count == 0 {
			if err := tx.Omit(clause.Associations).Create(models.AuctionModelFromDomain(a)).Error; err != nil {
				return err
			}
		} else {
			a.IncrementVersion()
			model := models.AuctionModelFromDomain(a)
			result := tx.Model(&models.AuctionModel{}).
				Where("id = ? AND version = ?", a.ID, expected).
				Updates(auctionUpdateColumns(model))
			if result.Error != nil {
				return result.Error
			}
			if result.RowsAffected == 0 {
				return shared.ErrConcurrencyConflict
			}
		}

		if err := r.upsertBids(tx, a); err != nil {
			return err
		}

		if r.outboxSaver != nil && len(events) > 0 {
			if err := r.outboxSaver.SaveEvents(ctx, tx, events...); err != nil {
				return fmt.Errorf("failed to save events to outbox: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		a.Version = expected
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			// uq_auctions_open_vehicle lost a race with another publish
			return shared.NewValidationError("Vehicle already has an open auction")
		}
		return err
	}
	return nil
}

// upsertBids inserts new bids and refreshes the status of existing ones.
// Amount and submission time never change once a bid is stored.
func (r *GormAuctionRepository) upsertBids(tx *gorm.DB, a *auction.Auction) error {
	if len(a.Bids) == 0 {
		return nil
	}
	bids := make([]models.BidModel, 0, len(a.Bids))
	for i := range a.Bids {
		bids = append(bids, *models.BidModelFromDomain(&a.Bids[i]))
	}
	return tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"status", "updated_at"}),
	}).Create(&bids).Error
}

func auctionUpdateColumns(m *models.AuctionModel) map[string]interface{} {
	return map[string]interface{}{
		"title":               m.Title,
		"description":         m.Description,
		"status":              m.Status,
		"starting_price":      m.StartingPrice,
		"reserve_price":       m.ReservePrice,
		"current_highest_bid": m.CurrentHighestBid,
		"current_lowest_bid":  m.CurrentLowestBid,
		"winner_bid_id":       m.WinnerBidID,
		"start_time":          m.StartTime,
		"end_time":            m.EndTime,
		"auto_extend_minutes": m.AutoExtendMinutes,
		"bid_increment":       m.BidIncrement,
		"price_step_seconds":  m.PriceStepSeconds,
		"total_bids":          m.TotalBids,
		"cancel_reason":       m.CancelReason,
		"version":             m.Version,
		"updated_at":          m.UpdatedAt,
	}
}

// ListDueToStart finds published auctions whose start time has passed
func (r *GormAuctionRepository) ListDueToStart(ctx context.Context, now time.Time, limit int) ([]*auction.Auction, error) {
	return r.findAuctions(r.db.WithContext(ctx).
		Where("status = ? AND start_time <= ?", string(auction.AuctionStatusPublished), now.UTC()).
		Order("start_time ASC").
		Limit(limit))
}

// ListDueToEnd finds active auctions whose end time has passed
func (r *GormAuctionRepository) ListDueToEnd(ctx context.Context, now time.Time, limit int) ([]*auction.Auction, error) {
	return r.findAuctions(r.db.WithContext(ctx).
		Where("status = ? AND end_time <= ?", string(auction.AuctionStatusActive), now.UTC()).
		Order("end_time ASC").
		Limit(limit))
}

// ListEndingSoon finds active auctions closing within the given window
func (r *GormAuctionRepository) ListEndingSoon(ctx context.Context, now time.Time, within time.Duration, limit int) ([]*auction.Auction, error) {
	return r.findAuctions(r.db.WithContext(ctx).
		Where("status = ? AND end_time > ? AND end_time <= ?",
			string(auction.AuctionStatusActive), now.UTC(), now.Add(within).UTC()).
		Order("end_time ASC").
		Limit(limit))
}

// ListActive lists active auctions
func (r *GormAuctionRepository) ListActive(ctx context.Context, filter shared.Filter) ([]*auction.Auction, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.AuctionModel{}).
		Where("status = ?", string(auction.AuctionStatusActive))
	return r.pageAuctions(query, filter)
}

// ListBySeller lists every auction owned by the seller
func (r *GormAuctionRepository) ListBySeller(ctx context.Context, sellerID uuid.UUID, filter shared.Filter) ([]*auction.Auction, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.AuctionModel{}).
		Where("seller_id = ?", sellerID)
	return r.pageAuctions(query, filter)
}

// ExistsOpenForVehicle reports whether the vehicle is already committed to an open auction
func (r *GormAuctionRepository) ExistsOpenForVehicle(ctx context.Context, vehicleID, excludeID uuid.UUID) (bool, error) {
	statuses := make([]string, 0, len(auction.OpenStatuses()))
	for _, s := range auction.OpenStatuses() {
		statuses = append(statuses, string(s))
	}
	query := r.db.WithContext(ctx).Model(&models.AuctionModel{}).
		Where("vehicle_id = ? AND status IN ?", vehicleID, statuses)
	if excludeID != uuid.Nil {
		query = query.Where("id <> ?", excludeID)
	}
	var count int64
	if err := query.Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// ListBids returns an auction's bids, newest first
func (r *GormAuctionRepository) ListBids(ctx context.Context, auctionID uuid.UUID) ([]auction.Bid, error) {
	var bidModels []models.BidModel
	if err := r.db.WithContext(ctx).
		Where("auction_id = ?", auctionID).
		Order("submitted_at DESC, id DESC").
		Find(&bidModels).Error; err != nil {
		return nil, err
	}
	return toDomainBids(bidModels), nil
}

// ListBidsByBidder returns a bidder's bids across auctions
func (r *GormAuctionRepository) ListBidsByBidder(ctx context.Context, bidderID uuid.UUID, filter shared.Filter) ([]auction.Bid, int64, error) {
	filter = filter.Normalize()
	query := r.db.WithContext(ctx).Model(&models.BidModel{}).Where("bidder_id = ?", bidderID)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	orderBy := ValidateSortField(filter.OrderBy, BidSortFields, "submitted_at")
	var bidModels []models.BidModel
	if err := query.
		Order(orderBy + " " + ValidateSortOrder(filter.OrderDir)).
		Offset(filter.Offset()).
		Limit(filter.PageSize).
		Find(&bidModels).Error; err != nil {
		return nil, 0, err
	}
	return toDomainBids(bidModels), total, nil
}

func (r *GormAuctionRepository) pageAuctions(query *gorm.DB, filter shared.Filter) ([]*auction.Auction, int64, error) {
	filter = filter.Normalize()

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	orderBy := ValidateSortField(filter.OrderBy, AuctionSortFields, "end_time")
	auctions, err := r.findAuctions(query.
		Order(orderBy + " " + ValidateSortOrder(filter.OrderDir)).
		Offset(filter.Offset()).
		Limit(filter.PageSize))
	if err != nil {
		return nil, 0, err
	}
	return auctions, total, nil
}

func (r *GormAuctionRepository) findAuctions(query *gorm.DB) ([]*auction.Auction, error) {
	var auctionModels []models.AuctionModel
	if err := query.Find(&auctionModels).Error; err != nil {
		return nil, err
	}
	auctions := make([]*auction.Auction, 0, len(auctionModels))
	for i := range auctionModels {
		auctions = append(auctions, auctionModels[i].ToDomain())
	}
	return auctions, nil
}

func toDomainBids(bidModels []models.BidModel) []auction.Bid {
	bids := make([]auction.Bid, 0, len(bidModels))
	for i := range bidModels {
		bids = append(bids, *bidModels[i].ToDomain())
	}
	return bids
}

// Ensure GormAuctionRepository implements AuctionRepository
var _ auction.AuctionRepository = (*GormAuctionRepository)(nil)
