package models

import (
	"davie-supply/controllers/idgen"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// StockMovement is the inbound inventory movement created when a receipt is
// posted: one row per line with good units, carrying the unit landed cost so
// downstream valuation never recomputes it.
type StockMovement struct {
	gorm.Model
	ID             int64           `json:"id" gorm:"primary_key"`
	ReceiptId      int64           `json:"receipt_id" gorm:"index"`
	ReceiptLineId  int64           `json:"receipt_line_id"`
	PurchaseItemId int64           `json:"purchase_item_id"`
	SkuCode        string          `json:"sku_code" gorm:"index"`
	MovementType   string          `json:"movement_type" gorm:"default:'inbound_receipt'"`
	Quantity       int             `json:"quantity"`
	UnitLandedCost decimal.Decimal `json:"unit_landed_cost" gorm:"type:decimal(20,4)"`
	Location       string          `json:"location"`
	CreatedBy      int
	UpdatedBy      int
}

func (m *StockMovement) BeforeCreate(tx *gorm.DB) (err error) {
	if m.ID == 0 {
		m.ID = idgen.GenerateID()
	}
	return
}
