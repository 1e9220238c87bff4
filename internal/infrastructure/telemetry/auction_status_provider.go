package telemetry

import (
	"context"

	"gorm.io/gorm"
)

// GormAuctionStatusProvider counts auctions per status straight from the
// auctions table.
type GormAuctionStatusProvider struct {
	db *gorm.DB
}

func NewGormAuctionStatusProvider(db *gorm.DB) *GormAuctionStatusProvider {
	return &GormAuctionStatusProvider{db: db}
}

// CountByStatus implements AuctionStatusCounter.
func (p *GormAuctionStatusProvider) CountByStatus(ctx context.Context) (map[string]int64, error) {
	type row struct {
		Status string `gorm:"column:status"`
		Total  int64  `gorm:"column:total"`
	}

	var rows []row
	if err := p.db.WithContext(ctx).
		Table("auctions").
		Select("status, COUNT(*) AS total").
		Group("status").
		Find(&rows).Error; err != nil {
		return nil, err
	}

	counts := make(map[string]int64, len(rows))
	for _, r := range rows {
		counts[r.Status] = r.Total
	}
	return counts, nil
}
