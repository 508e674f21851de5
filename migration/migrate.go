package migration

import (
	"davie-supply/models"

	"gorm.io/gorm"
)

func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.ImportPurchase{},
		&models.PurchaseItem{},
		&models.DeliveryInstruction{},
		&models.DeliveryReceipt{},
		&models.DeliveryReceiptLine{},
		&models.ParcelScan{},
		&models.LandedCostBatch{},
		&models.StockMovement{},
	)
}
