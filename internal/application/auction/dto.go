package auction

import (
	"time"

	"github.com/freightbid/backend/internal/domain/auction"
	"github.com/freightbid/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ShipmentInput describes the load in a create request
type ShipmentInput struct {
	WeightKg     decimal.Decimal `json:"weight_kg" validate:"gt=0"`
	VolumeM3     decimal.Decimal `json:"volume_m3" validate:"gt=0"`
	Origin       string          `json:"origin" validate:"required,max=200"`
	Destination  string          `json:"destination" validate:"required,max=200"`
	PickupDate   time.Time       `json:"pickup_date" validate:"required"`
	DeliveryDate time.Time       `json:"delivery_date" validate:"required"`
}

// RequirementsInput lists carrier constraints in a create request
type RequirementsInput struct {
	MinCapacityKg  decimal.Decimal `json:"min_capacity_kg" validate:"gte=0"`
	Certifications []string        `json:"certifications" validate:"max=20,dive,required,max=100"`
}

// CreateAuctionRequest represents a request to create an auction
type CreateAuctionRequest struct {
	SellerID      uuid.UUID        `json:"seller_id" validate:"required"`
	VehicleID     uuid.UUID        `json:"vehicle_id" validate:"required"`
	Title         string           `json:"title" validate:"required,min=1,max=200"`
	Description   string           `json:"description" validate:"max=5000"`
	Type          string           `json:"type" validate:"required,oneof=FORWARD REVERSE SEALED DUTCH"`
	StartingPrice decimal.Decimal  `json:"starting_price" validate:"gt=0"`
	ReservePrice  *decimal.Decimal `json:"reserve_price,omitempty" validate:"omitempty,gt=0"`
	StartTime     time.Time        `json:"start_time" validate:"required"`
	EndTime       time.Time        `json:"end_time" validate:"required"`
	// AutoExtendMinutes falls back to the configured default when nil
	AutoExtendMinutes *int               `json:"auto_extend_minutes,omitempty" validate:"omitempty,gte=0,lte=120"`
	BidIncrement      decimal.Decimal    `json:"bid_increment" validate:"gte=0"`
	PriceStepSeconds  int                `json:"price_step_seconds" validate:"gte=0"`
	Shipment          ShipmentInput      `json:"shipment"`
	Requirements      *RequirementsInput `json:"requirements,omitempty"`
	Publish           bool               `json:"publish"`
}

// UpdateAuctionRequest patches the editable terms. Nil fields keep their value.
type UpdateAuctionRequest struct {
	Title             *string          `json:"title,omitempty" validate:"omitempty,min=1,max=200"`
	Description       *string          `json:"description,omitempty" validate:"omitempty,max=5000"`
	ReservePrice      *decimal.Decimal `json:"reserve_price,omitempty" validate:"omitempty,gt=0"`
	ClearReserve      bool             `json:"clear_reserve"`
	StartTime         *time.Time       `json:"start_time,omitempty"`
	EndTime           *time.Time       `json:"end_time,omitempty"`
	BidIncrement      *decimal.Decimal `json:"bid_increment,omitempty" validate:"omitempty,gte=0"`
	AutoExtendMinutes *int             `json:"auto_extend_minutes,omitempty" validate:"omitempty,gte=0,lte=120"`
}

// PlaceBidRequest represents a bid submission
type PlaceBidRequest struct {
	BidderID    uuid.UUID       `json:"bidder_id" validate:"required"`
	Amount      decimal.Decimal `json:"amount" validate:"gt=0"`
	IsAutomatic bool            `json:"is_automatic"`
	Notes       string          `json:"notes" validate:"max=500"`
}

// WatchRequest subscribes a user to an auction
type WatchRequest struct {
	UserID         uuid.UUID `json:"user_id" validate:"required"`
	NotifyOnBid    bool      `json:"notify_on_bid"`
	NotifyOnEnding bool      `json:"notify_on_ending"`
}

// ListQuery carries paging for list endpoints
type ListQuery struct {
	Page     int `json:"page" validate:"gte=0"`
	PageSize int `json:"page_size" validate:"gte=0,lte=100"`
}

func (q ListQuery) filter() shared.Filter {
	f := shared.DefaultFilter()
	if q.Page > 0 {
		f.Page = q.Page
	}
	if q.PageSize > 0 {
		f.PageSize = q.PageSize
	}
	return f.Normalize()
}

// AuctionResponse is the read model of an auction. The reserve amount is
// never exposed, only whether one exists and whether it has been met.
type AuctionResponse struct {
	ID                uuid.UUID  `json:"id"`
	Title             string     `json:"title"`
	Description       string     `json:"description"`
	SellerID          uuid.UUID  `json:"seller_id"`
	VehicleID         uuid.UUID  `json:"vehicle_id"`
	Type              string     `json:"type"`
	Status            string     `json:"status"`
	StartingPrice     string     `json:"starting_price"`
	CurrentPrice      string     `json:"current_price"`
	NextBidAmount     string     `json:"next_bid_amount,omitempty"`
	HasReserve        bool       `json:"has_reserve"`
	ReserveMet        bool       `json:"reserve_met"`
	BidIncrement      string     `json:"bid_increment"`
	StartTime         time.Time  `json:"start_time"`
	EndTime           time.Time  `json:"end_time"`
	TimeRemainingSecs int64      `json:"time_remaining_seconds"`
	AutoExtendMinutes int        `json:"auto_extend_minutes"`
	TotalBids         int        `json:"total_bids"`
	WinnerBidID       *uuid.UUID `json:"winner_bid_id,omitempty"`
	CancelReason      string     `json:"cancel_reason,omitempty"`
	Origin            string     `json:"origin"`
	Destination       string     `json:"destination"`
	WeightKg          string     `json:"weight_kg"`
	Version           int        `json:"version"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
}

// BidResponse is the read model of a bid. Amount is blank for sealed bids
// until the auction closes.
type BidResponse struct {
	ID          uuid.UUID `json:"id"`
	AuctionID   uuid.UUID `json:"auction_id"`
	BidderID    uuid.UUID `json:"bidder_id"`
	Amount      string    `json:"amount,omitempty"`
	Status      string    `json:"status"`
	IsAutomatic bool      `json:"is_automatic"`
	SubmittedAt time.Time `json:"submitted_at"`
}

// ToAuctionResponse converts a domain Auction to AuctionResponse
func ToAuctionResponse(a *auction.Auction, now time.Time) AuctionResponse {
	resp := AuctionResponse{
		ID:                a.ID,
		Title:             a.Title,
		Description:       a.Description,
		SellerID:          a.SellerID,
		VehicleID:         a.VehicleID,
		Type:              string(a.Type),
		Status:            string(a.Status),
		StartingPrice:     a.StartingPrice.String(),
		CurrentPrice:      a.DisplayedPrice(now).String(),
		HasReserve:        a.HasReserve(),
		BidIncrement:      a.BidIncrement.String(),
		StartTime:         a.StartTime,
		EndTime:           a.EndTime,
		TimeRemainingSecs: int64(a.TimeRemaining(now).Seconds()),
		AutoExtendMinutes: a.AutoExtendMinutes,
		TotalBids:         a.TotalBids,
		WinnerBidID:       a.WinnerBidID,
		CancelReason:      a.CancelReason,
		Origin:            a.Shipment.Origin,
		Destination:       a.Shipment.Destination,
		WeightKg:          a.Shipment.WeightKg.String(),
		Version:           a.Version,
		CreatedAt:         a.CreatedAt,
		UpdatedAt:         a.UpdatedAt,
	}
	switch {
	case !a.HasReserve():
		resp.ReserveMet = true
	case a.Type == auction.AuctionTypeSealed && !a.Status.IsTerminal():
		// undisclosed until the bids are revealed
	default:
		resp.ReserveMet = a.TotalBids > 0 && a.MeetsReservePrice()
	}
	if a.Status == auction.AuctionStatusActive {
		resp.NextBidAmount = a.CalculateNextBidAmount(now).String()
	}
	return resp
}

// ToAuctionResponses converts a slice of auctions
func ToAuctionResponses(auctions []*auction.Auction, now time.Time) []AuctionResponse {
	out := make([]AuctionResponse, len(auctions))
	for i, a := range auctions {
		out[i] = ToAuctionResponse(a, now)
	}
	return out
}

// ToBidResponse converts a domain Bid. Pass sealed=true to hide the amount.
func ToBidResponse(b *auction.Bid, sealed bool) BidResponse {
	resp := BidResponse{
		ID:          b.ID,
		AuctionID:   b.AuctionID,
		BidderID:    b.BidderID,
		Status:      string(b.Status),
		IsAutomatic: b.IsAutomatic,
		SubmittedAt: b.SubmittedAt,
	}
	if !sealed {
		resp.Amount = b.Amount.String()
	}
	return resp
}
