package models

import (
	"davie-supply/controllers/idgen"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ImportPurchase is the expected purchase order a delivery is reconciled
// against. The purchasing subsystem owns this schema; the receiving core only
// reads it.
type ImportPurchase struct {
	gorm.Model
	ID              int64  `json:"id" gorm:"primary_key"`
	PurchaseNumber  string `json:"purchase_number" gorm:"unique"`
	Supplier        string `json:"supplier"`
	Carrier         string `json:"carrier"`
	ExpectedParcels int    `json:"expected_parcels"`
	Eta             string `json:"eta" gorm:"type:date"`
	Status          string `json:"status" gorm:"default:'ordered'"`
	CreatedBy       int
	UpdatedBy       int

	Items []PurchaseItem `gorm:"foreignKey:ImportPurchaseId;references:ID;constraint:OnDelete:CASCADE" json:"items"`
}

func (p *ImportPurchase) BeforeCreate(tx *gorm.DB) (err error) {
	if p.ID == 0 {
		p.ID = idgen.GenerateID()
	}
	return
}

type PurchaseItem struct {
	gorm.Model
	ID               int64           `json:"id" gorm:"primary_key"`
	ImportPurchaseId int64           `json:"import_purchase_id" gorm:"index"`
	SkuCode          string          `json:"sku_code"`
	Name             string          `json:"name"`
	Quantity         int             `json:"quantity"`
	UnitWeightKg     decimal.Decimal `json:"unit_weight_kg" gorm:"type:decimal(20,4)"`
	UnitVolumeL      decimal.Decimal `json:"unit_volume_l" gorm:"type:decimal(20,4)"`
	UnitValue        decimal.Decimal `json:"unit_value" gorm:"type:decimal(20,4)"`
	RuleGroup        string          `json:"rule_group"`
	PrimaryLocation  string          `json:"primary_location"`
	CreatedBy        int
	UpdatedBy        int
}

func (p *PurchaseItem) BeforeCreate(tx *gorm.DB) (err error) {
	if p.ID == 0 {
		p.ID = idgen.GenerateID()
	}
	return
}
