package persistence

import (
	"context"
	"errors"

	"github.com/freightbid/backend/internal/domain/auction"
	"github.com/freightbid/backend/internal/domain/shared"
	"github.com/freightbid/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormVehicleOwnershipChecker verifies vehicle ownership against the vehicles table
type GormVehicleOwnershipChecker struct {
	db *gorm.DB
}

// NewGormVehicleOwnershipChecker creates a new GormVehicleOwnershipChecker
func NewGormVehicleOwnershipChecker(db *gorm.DB) *GormVehicleOwnershipChecker {
	return &GormVehicleOwnershipChecker{db: db}
}

// VerifyOwnership fails unless the vehicle exists, is active and belongs to ownerID
func (c *GormVehicleOwnershipChecker) VerifyOwnership(ctx context.Context, vehicleID, ownerID uuid.UUID) error {
	var vehicle models.VehicleModel
	if err := c.db.WithContext(ctx).
		Select("id", "owner_id", "is_active").
		First(&vehicle, "id = ?", vehicleID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return shared.NewNotFoundError("vehicle", vehicleID)
		}
		return err
	}
	if vehicle.OwnerID != ownerID {
		return shared.NewValidationError("vehicle does not belong to the seller")
	}
	if !vehicle.IsActive {
		return shared.NewValidationError("vehicle is not active")
	}
	return nil
}

// Ensure GormVehicleOwnershipChecker implements ResourceOwnershipChecker
var _ auction.ResourceOwnershipChecker = (*GormVehicleOwnershipChecker)(nil)
