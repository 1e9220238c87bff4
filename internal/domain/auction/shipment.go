package auction

import (
	"strings"
	"time"

	"github.com/freightbid/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// ShipmentDetails describes the load being auctioned
type ShipmentDetails struct {
	WeightKg     decimal.Decimal
	VolumeM3     decimal.Decimal
	Origin       string
	Destination  string
	PickupDate   time.Time
	DeliveryDate time.Time
}

// Validate checks that weight and volume are positive and delivery follows pickup
func (s ShipmentDetails) Validate() error {
	if !s.WeightKg.IsPositive() {
		return shared.NewValidationError("Shipment weight must be positive")
	}
	if !s.VolumeM3.IsPositive() {
		return shared.NewValidationError("Shipment volume must be positive")
	}
	if err := checkScale("Shipment weight", s.WeightKg, QuantityScale); err != nil {
		return err
	}
	if err := checkScale("Shipment volume", s.VolumeM3, QuantityScale); err != nil {
		return err
	}
	if s.PickupDate.IsZero() || s.DeliveryDate.IsZero() {
		return shared.NewValidationError("Shipment pickup and delivery dates are required")
	}
	if !s.DeliveryDate.After(s.PickupDate) {
		return shared.NewValidationError("Shipment delivery date must be after pickup date")
	}
	return nil
}

// Requirements lists optional carrier constraints
type Requirements struct {
	MinCapacityKg  decimal.Decimal
	Certifications []string
}

// Validate checks capacity is not negative and certifications are non-blank
func (r *Requirements) Validate() error {
	if r == nil {
		return nil
	}
	if r.MinCapacityKg.IsNegative() {
		return shared.NewValidationError("Required capacity cannot be negative")
	}
	if err := checkScale("Required capacity", r.MinCapacityKg, QuantityScale); err != nil {
		return err
	}
	for _, c := range r.Certifications {
		if strings.TrimSpace(c) == "" {
			return shared.NewValidationError("Certification names cannot be blank")
		}
	}
	return nil
}
