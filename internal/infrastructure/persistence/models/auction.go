package models

import (
	"time"

	"github.com/freightbid/backend/internal/domain/auction"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AuctionModel is the persistence model for the Auction aggregate
type AuctionModel struct {
	AggregateModel
	Title             string              `gorm:"type:varchar(200);not null"`
	Description       string              `gorm:"type:text"`
	SellerID          uuid.UUID           `gorm:"type:uuid;not null;index"`
	VehicleID         uuid.UUID           `gorm:"type:uuid;not null;index"`
	AuctionType       string              `gorm:"type:varchar(20);not null"`
	Status            string              `gorm:"type:varchar(20);not null;index:idx_auctions_status_start,priority:1;index:idx_auctions_status_end,priority:1"`
	StartingPrice     decimal.Decimal     `gorm:"type:decimal(18,2);not null"`
	ReservePrice      decimal.NullDecimal `gorm:"type:decimal(18,2)"`
	CurrentHighestBid decimal.Decimal     `gorm:"type:decimal(18,2);not null"`
	CurrentLowestBid  decimal.Decimal     `gorm:"type:decimal(18,2);not null"`
	WinnerBidID       *uuid.UUID          `gorm:"type:uuid"`
	StartTime         time.Time           `gorm:"not null;index:idx_auctions_status_start,priority:2"`
	EndTime           time.Time           `gorm:"not null;index:idx_auctions_status_end,priority:2"`
	AutoExtendMinutes int                 `gorm:"not null;default:0"`
	BidIncrement      decimal.Decimal     `gorm:"type:decimal(18,2);not null"`
	PriceStepSeconds  int64               `gorm:"not null;default:0"`
	WeightKg          decimal.Decimal     `gorm:"type:decimal(12,3);not null"`
	VolumeM3          decimal.Decimal     `gorm:"type:decimal(12,3);not null"`
	Origin            string              `gorm:"type:varchar(255)"`
	Destination       string              `gorm:"type:varchar(255)"`
	PickupDate        time.Time           `gorm:"not null"`
	DeliveryDate      time.Time           `gorm:"not null"`
	MinCapacityKg     decimal.NullDecimal `gorm:"type:decimal(12,3)"`
	Certifications    []string            `gorm:"type:jsonb;serializer:json"`
	TotalBids         int                 `gorm:"not null;default:0"`
	CancelReason      string              `gorm:"type:text"`
	Bids              []BidModel          `gorm:"foreignKey:AuctionID"`
}

// TableName returns the table name for GORM
func (AuctionModel) TableName() string {
	return "auctions"
}

// ToDomain converts the persistence model to a domain Auction.
// Bids are included only if they were preloaded.
func (m *AuctionModel) ToDomain() *auction.Auction {
	a := &auction.Auction{
		BaseAggregateRoot: m.AggregateModel.ToDomainAggregateRoot(),
		Title:             m.Title,
		Description:       m.Description,
		SellerID:          m.SellerID,
		VehicleID:         m.VehicleID,
		Type:              auction.AuctionType(m.AuctionType),
		Status:            auction.AuctionStatus(m.Status),
		StartingPrice:     m.StartingPrice,
		CurrentHighestBid: m.CurrentHighestBid,
		CurrentLowestBid:  m.CurrentLowestBid,
		WinnerBidID:       m.WinnerBidID,
		StartTime:         m.StartTime,
		EndTime:           m.EndTime,
		AutoExtendMinutes: m.AutoExtendMinutes,
		BidIncrement:      m.BidIncrement,
		PriceStepInterval: time.Duration(m.PriceStepSeconds) * time.Second,
		Shipment: auction.ShipmentDetails{
			WeightKg:     m.WeightKg,
			VolumeM3:     m.VolumeM3,
			Origin:       m.Origin,
			Destination:  m.Destination,
			PickupDate:   m.PickupDate,
			DeliveryDate: m.DeliveryDate,
		},
		TotalBids:    m.TotalBids,
		CancelReason: m.CancelReason,
		Bids:         make([]auction.Bid, 0, len(m.Bids)),
	}
	if m.ReservePrice.Valid {
		reserve := m.ReservePrice.Decimal
		a.ReservePrice = &reserve
	}
	if m.MinCapacityKg.Valid || len(m.Certifications) > 0 {
		a.Requirements = &auction.Requirements{
			MinCapacityKg:  m.MinCapacityKg.Decimal,
			Certifications: m.Certifications,
		}
	}
	for i := range m.Bids {
		a.Bids = append(a.Bids, *m.Bids[i].ToDomain())
	}
	return a
}

// FromDomain populates the persistence model from a domain Auction, bids included
func (m *AuctionModel) FromDomain(a *auction.Auction) {
	m.FromDomainAggregateRoot(a.BaseAggregateRoot)
	m.Title = a.Title
	m.Description = a.Description
	m.SellerID = a.SellerID
	m.VehicleID = a.VehicleID
	m.AuctionType = string(a.Type)
	m.Status = string(a.Status)
	m.StartingPrice = a.StartingPrice
	m.ReservePrice = decimal.NullDecimal{}
	if a.ReservePrice != nil {
		m.ReservePrice = decimal.NewNullDecimal(*a.ReservePrice)
	}
	m.CurrentHighestBid = a.CurrentHighestBid
	m.CurrentLowestBid = a.CurrentLowestBid
	m.WinnerBidID = a.WinnerBidID
	m.StartTime = a.StartTime
	m.EndTime = a.EndTime
	m.AutoExtendMinutes = a.AutoExtendMinutes
	m.BidIncrement = a.BidIncrement
	m.PriceStepSeconds = int64(a.PriceStepInterval / time.Second)
	m.WeightKg = a.Shipment.WeightKg
	m.VolumeM3 = a.Shipment.VolumeM3
	m.Origin = a.Shipment.Origin
	m.Destination = a.Shipment.Destination
	m.PickupDate = a.Shipment.PickupDate
	m.DeliveryDate = a.Shipment.DeliveryDate
	m.MinCapacityKg = decimal.NullDecimal{}
	m.Certifications = nil
	if a.Requirements != nil {
		m.MinCapacityKg = decimal.NewNullDecimal(a.Requirements.MinCapacityKg)
		m.Certifications = a.Requirements.Certifications
	}
	m.TotalBids = a.TotalBids
	m.CancelReason = a.CancelReason
	m.Bids = make([]BidModel, 0, len(a.Bids))
	for i := range a.Bids {
		m.Bids = append(m.Bids, *BidModelFromDomain(&a.Bids[i]))
	}
}

// AuctionModelFromDomain creates a new persistence model from a domain Auction
func AuctionModelFromDomain(a *auction.Auction) *AuctionModel {
	m := &AuctionModel{}
	m.FromDomain(a)
	return m
}

// BidModel is the persistence model for a Bid
type BidModel struct {
	BaseModel
	AuctionID   uuid.UUID       `gorm:"type:uuid;not null;index:idx_bids_auction_submitted,priority:1"`
	BidderID    uuid.UUID       `gorm:"type:uuid;not null;index:idx_bids_bidder_submitted,priority:1"`
	Amount      decimal.Decimal `gorm:"type:decimal(18,2);not null"`
	SubmittedAt time.Time       `gorm:"not null;index:idx_bids_auction_submitted,priority:2;index:idx_bids_bidder_submitted,priority:2"`
	Status      string          `gorm:"type:varchar(20);not null"`
	IsAutomatic bool            `gorm:"not null;default:false"`
	Notes       string          `gorm:"type:text"`
}

// TableName returns the table name for GORM
func (BidModel) TableName() string {
	return "bids"
}

// ToDomain converts the persistence model to a domain Bid
func (m *BidModel) ToDomain() *auction.Bid {
	return &auction.Bid{
		BaseEntity:  m.BaseModel.ToDomain(),
		AuctionID:   m.AuctionID,
		BidderID:    m.BidderID,
		Amount:      m.Amount,
		SubmittedAt: m.SubmittedAt,
		Status:      auction.BidStatus(m.Status),
		IsAutomatic: m.IsAutomatic,
		Notes:       m.Notes,
	}
}

// BidModelFromDomain creates a new persistence model from a domain Bid
func BidModelFromDomain(b *auction.Bid) *BidModel {
	m := &BidModel{
		AuctionID:   b.AuctionID,
		BidderID:    b.BidderID,
		Amount:      b.Amount,
		SubmittedAt: b.SubmittedAt,
		Status:      string(b.Status),
		IsAutomatic: b.IsAutomatic,
		Notes:       b.Notes,
	}
	m.FromDomainBaseEntity(b.BaseEntity)
	return m
}
