package repositories

import (
	"errors"

	"davie-supply/models"

	"gorm.io/gorm"
)

type PurchaseRepository struct {
	db *gorm.DB
}

func NewPurchaseRepository(db *gorm.DB) *PurchaseRepository {
	return &PurchaseRepository{db: db}
}

var ErrPurchaseNotFound = errors.New("import purchase not found")

// GetPurchaseWithItems loads a purchase and its items. The purchasing schema
// is owned elsewhere; receiving only reads it.
func (r *PurchaseRepository) GetPurchaseWithItems(id int64) (*models.ImportPurchase, error) {
	var purchase models.ImportPurchase
	err := r.db.Preload("Items").First(&purchase, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPurchaseNotFound
		}
		return nil, err
	}
	return &purchase, nil
}

// GetInstructionsForItems returns delivery instructions attached to any of
// the given purchase items.
func (r *PurchaseRepository) GetInstructionsForItems(itemIDs []int64) ([]models.DeliveryInstruction, error) {
	if len(itemIDs) == 0 {
		return []models.DeliveryInstruction{}, nil
	}

	var instructions []models.DeliveryInstruction
	if err := r.db.Where("purchase_item_id IN ?", itemIDs).Find(&instructions).Error; err != nil {
		return nil, err
	}
	return instructions, nil
}
