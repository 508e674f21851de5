package models

import (
	"time"

	"davie-supply/controllers/idgen"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// DeliveryReceipt is one physical delivery event being reconciled against an
// expected import purchase. ClaimedParcels and ClaimedCartons are what the
// clerk declared at the dock; ScannedParcels counts SSCC scans actually made.
type DeliveryReceipt struct {
	gorm.Model
	ID               int64      `json:"id" gorm:"primary_key"`
	ImportPurchaseId int64      `json:"import_purchase_id" gorm:"index"`
	Carrier          string     `json:"carrier"`
	ClaimedParcels   int        `json:"claimed_parcels"`
	ClaimedCartons   int        `json:"claimed_cartons"`
	ScannedParcels   int        `json:"scanned_parcels"`
	DockCode         string     `json:"dock_code"`
	EmployeeId       int64      `json:"employee_id"`
	FounderId        int64      `json:"founder_id"`
	Status           string     `json:"status" gorm:"default:'draft';index"`
	SubmittedAt      *time.Time `json:"submitted_at"`
	ConfirmedAt      *time.Time `json:"confirmed_at"`
	PostedAt         *time.Time `json:"posted_at"`
	CancelledAt      *time.Time `json:"cancelled_at"`
	CreatedBy        int
	UpdatedBy        int

	// Relations
	Lines           []DeliveryReceiptLine `gorm:"foreignKey:ReceiptId;references:ID;constraint:OnDelete:CASCADE" json:"lines"`
	Scans           []ParcelScan          `gorm:"foreignKey:ReceiptId;references:ID;constraint:OnDelete:CASCADE" json:"scans"`
	LandedCostBatch *LandedCostBatch      `gorm:"foreignKey:ReceiptId;references:ID;constraint:OnDelete:CASCADE" json:"landed_cost_batch"`
}

func (r *DeliveryReceipt) BeforeCreate(tx *gorm.DB) (err error) {
	if r.ID == 0 {
		r.ID = idgen.GenerateID()
	}
	return
}

// DeliveryReceiptLine tracks one SKU's expected vs received vs damaged
// quantities within a receipt. LandedCostShare is written exactly once, when
// the receipt is confirmed.
type DeliveryReceiptLine struct {
	gorm.Model
	ID              int64            `json:"id" gorm:"primary_key"`
	ReceiptId       int64            `json:"receipt_id" gorm:"index"`
	PurchaseItemId  int64            `json:"purchase_item_id"`
	SkuCode         string           `json:"sku_code" gorm:"index"`
	Name            string           `json:"name"`
	ExpectedQty     int              `json:"expected_qty"`
	ReceivedQty     int              `json:"received_qty"`
	DamagedQty      int              `json:"damaged_qty"`
	UnitWeightKg    decimal.Decimal  `json:"unit_weight_kg" gorm:"type:decimal(20,4)"`
	UnitVolumeL     decimal.Decimal  `json:"unit_volume_l" gorm:"type:decimal(20,4)"`
	UnitValue       decimal.Decimal  `json:"unit_value" gorm:"type:decimal(20,4)"`
	RuleGroup       string           `json:"rule_group"`
	PrimaryLocation string           `json:"primary_location"`
	ExtraLocation   string           `json:"extra_location"`
	Note            string           `json:"note"`
	LandedCostShare *decimal.Decimal `json:"landed_cost_share" gorm:"type:decimal(20,4)"`
	CreatedBy       int
	UpdatedBy       int
}

func (l *DeliveryReceiptLine) BeforeCreate(tx *gorm.DB) (err error) {
	if l.ID == 0 {
		l.ID = idgen.GenerateID()
	}
	return
}

// ParcelScan is the append-only audit log of every scanned code. Rows are
// never updated or deleted.
type ParcelScan struct {
	gorm.Model
	ID        int64  `json:"id" gorm:"primary_key"`
	ReceiptId int64  `json:"receipt_id" gorm:"index"`
	Code      string `json:"code"`
	Kind      string `json:"kind"`
	ByUser    int64  `json:"by_user"`
}

func (s *ParcelScan) BeforeCreate(tx *gorm.DB) (err error) {
	if s.ID == 0 {
		s.ID = idgen.GenerateID()
	}
	return
}

// LandedCostBatch records one cost-allocation run for a confirmed receipt.
// The unique index on ReceiptId backs the one-batch-per-receipt guarantee.
type LandedCostBatch struct {
	gorm.Model
	ID              int64           `json:"id" gorm:"primary_key"`
	ReceiptId       int64           `json:"receipt_id" gorm:"uniqueIndex"`
	Method          string          `json:"method"`
	TotalCostNative decimal.Decimal `json:"total_cost_native" gorm:"type:decimal(20,4)"`
	NativeCurrency  string          `json:"native_currency"`
	CzkRate         decimal.Decimal `json:"czk_rate" gorm:"type:decimal(20,6)"`
	TotalCostCzk    decimal.Decimal `json:"total_cost_czk" gorm:"type:decimal(20,4)"`
	Notes           string          `json:"notes"`
	CreatedBy       int
	UpdatedBy       int
}

func (b *LandedCostBatch) BeforeCreate(tx *gorm.DB) (err error) {
	if b.ID == 0 {
		b.ID = idgen.GenerateID()
	}
	return
}

// DeliveryInstruction is a handling note tied to a purchase item, surfaced
// read-only to the clerk when a receipt is started.
type DeliveryInstruction struct {
	gorm.Model
	ID             int64  `json:"id" gorm:"primary_key"`
	PurchaseItemId int64  `json:"purchase_item_id" gorm:"index"`
	Instruction    string `json:"instruction"`
	CreatedBy      int
	UpdatedBy      int
}

func (d *DeliveryInstruction) BeforeCreate(tx *gorm.DB) (err error) {
	if d.ID == 0 {
		d.ID = idgen.GenerateID()
	}
	return
}
