package database

import (
	"errors"
	"log"

	"davie-supply/models"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// RunSeeders fills the upstream purchasing tables with demo data so the
// receiving flow can be exercised locally. Production reads the real
// purchasing schema.
func RunSeeders(db *gorm.DB) {
	SeedImportPurchases(db)
}

func SeedImportPurchases(db *gorm.DB) {
	purchases := []models.ImportPurchase{
		{
			PurchaseNumber:  "IP-2026-0141",
			Supplier:        "Shenzhen Huaqiang Trading",
			Carrier:         "DHL",
			ExpectedParcels: 3,
			Eta:             "2026-09-04",
			Status:          "ordered",
			Items: []models.PurchaseItem{
				{
					SkuCode:         "DS-CBL-USBC-2M",
					Name:            "USB-C cable 2m",
					Quantity:        200,
					UnitWeightKg:    decimal.NewFromFloat(0.06),
					UnitVolumeL:     decimal.NewFromFloat(0.12),
					UnitValue:       decimal.NewFromFloat(38.5),
					RuleGroup:       "count",
					PrimaryLocation: "A-03-12",
				},
				{
					SkuCode:         "DS-PWR-65W",
					Name:            "GaN charger 65W",
					Quantity:        80,
					UnitWeightKg:    decimal.NewFromFloat(0.21),
					UnitVolumeL:     decimal.NewFromFloat(0.3),
					UnitValue:       decimal.NewFromFloat(310),
					RuleGroup:       "value",
					PrimaryLocation: "A-04-02",
				},
			},
		},
		{
			PurchaseNumber:  "IP-2026-0142",
			Supplier:        "Ningbo Homeware Co.",
			Carrier:         "PPL",
			ExpectedParcels: 12,
			Eta:             "2026-09-08",
			Status:          "ordered",
			Items: []models.PurchaseItem{
				{
					SkuCode:         "DS-KET-GLASS-17",
					Name:            "Glass kettle 1.7l",
					Quantity:        120,
					UnitWeightKg:    decimal.NewFromFloat(1.15),
					UnitVolumeL:     decimal.NewFromFloat(4.8),
					UnitValue:       decimal.NewFromFloat(185),
					RuleGroup:       "weight",
					PrimaryLocation: "C-11-01",
				},
			},
		},
	}

	for _, p := range purchases {
		var existing models.ImportPurchase
		if err := db.Where("purchase_number = ?", p.PurchaseNumber).First(&existing).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				if err := db.Create(&p).Error; err != nil {
					log.Printf("Failed to seed purchase %s: %v", p.PurchaseNumber, err)
					continue
				}
				seedInstructions(db, &p)
			}
		}
	}
}

func seedInstructions(db *gorm.DB, p *models.ImportPurchase) {
	for _, item := range p.Items {
		if item.SkuCode != "DS-KET-GLASS-17" {
			continue
		}
		instruction := models.DeliveryInstruction{
			PurchaseItemId: item.ID,
			Instruction:    "Fragile, unpack cartons on the soft table and check for glass breakage",
		}
		if err := db.Create(&instruction).Error; err != nil {
			log.Printf("Failed to seed instruction for %s: %v", item.SkuCode, err)
		}
	}
}
