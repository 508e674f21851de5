package repositories

import (
	"errors"
	"strings"

	"davie-supply/models"
	"davie-supply/services"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ReceivingRepository struct {
	db *gorm.DB
}

func NewReceivingRepository(db *gorm.DB) *ReceivingRepository {
	return &ReceivingRepository{db: db}
}

// ListReceipt is the row shape of the receipt list screen.
type ListReceipt struct {
	ID             int64  `json:"id"`
	PurchaseNumber string `json:"purchase_number"`
	Supplier       string `json:"supplier"`
	Carrier        string `json:"carrier"`
	DockCode       string `json:"dock_code"`
	Status         string `json:"status"`
	ClaimedParcels int    `json:"claimed_parcels"`
	ClaimedCartons int    `json:"claimed_cartons"`
	ScannedParcels int    `json:"scanned_parcels"`
	TotalLine      int    `json:"total_line"`
	TotalExpected  int    `json:"total_expected"`
	TotalReceived  int    `json:"total_received"`
	TotalScan      int    `json:"total_scan"`
	CreatedAt      string `json:"created_at"`
}

// CandidatePurchase is one search hit when matching a delivery at the dock
// against open import purchases.
type CandidatePurchase struct {
	ID              int64  `json:"id"`
	PurchaseNumber  string `json:"purchase_number"`
	Supplier        string `json:"supplier"`
	Carrier         string `json:"carrier"`
	ExpectedParcels int    `json:"expected_parcels"`
	Eta             string `json:"eta"`
	ItemCount       int    `json:"item_count"`
	ProbableMatch   bool   `json:"probable_match"`
}

var ErrReceiptNotFound = errors.New("receipt not found")
var ErrLineNotFound = errors.New("receipt line not found")

// GetReceiptByID loads a bare receipt without relations.
func (r *ReceivingRepository) GetReceiptByID(id int64) (*models.DeliveryReceipt, error) {
	var receipt models.DeliveryReceipt
	if err := r.db.First(&receipt, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrReceiptNotFound
		}
		return nil, err
	}
	return &receipt, nil
}

// GetReceiptForUpdate loads a receipt holding a row lock, serializing
// concurrent scans and transitions against the same receipt.
func (r *ReceivingRepository) GetReceiptForUpdate(id int64) (*models.DeliveryReceipt, error) {
	var receipt models.DeliveryReceipt
	err := r.db.Clauses(clause.Locking{Strength: "UPDATE"}).First(&receipt, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrReceiptNotFound
		}
		return nil, err
	}
	return &receipt, nil
}

// GetSnapshot loads a receipt with lines, scans and cost batch, the shape the
// frontend re-renders after every mutation.
func (r *ReceivingRepository) GetSnapshot(id int64) (*models.DeliveryReceipt, error) {
	var receipt models.DeliveryReceipt
	err := r.db.
		Preload("Lines", func(db *gorm.DB) *gorm.DB { return db.Order("delivery_receipt_lines.id ASC") }).
		Preload("Scans", func(db *gorm.DB) *gorm.DB { return db.Order("parcel_scans.created_at ASC") }).
		Preload("LandedCostBatch").
		First(&receipt, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrReceiptNotFound
		}
		return nil, err
	}
	return &receipt, nil
}

// GetLinesByReceiptID returns the receipt's lines in creation order.
func (r *ReceivingRepository) GetLinesByReceiptID(receiptID int64) ([]models.DeliveryReceiptLine, error) {
	var lines []models.DeliveryReceiptLine
	if err := r.db.Where("receipt_id = ?", receiptID).Order("id ASC").Find(&lines).Error; err != nil {
		return nil, err
	}
	return lines, nil
}

// GetLineByID loads one line scoped to its receipt.
func (r *ReceivingRepository) GetLineByID(receiptID, lineID int64) (*models.DeliveryReceiptLine, error) {
	var line models.DeliveryReceiptLine
	err := r.db.First(&line, "id = ? AND receipt_id = ?", lineID, receiptID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrLineNotFound
		}
		return nil, err
	}
	return &line, nil
}

// FindOpenReceiptByPurchaseID returns the non-terminal receipt for a purchase
// if one exists. At most one may be open at a time.
func (r *ReceivingRepository) FindOpenReceiptByPurchaseID(purchaseID int64) (*models.DeliveryReceipt, error) {
	var receipt models.DeliveryReceipt
	err := r.db.
		Where("import_purchase_id = ? AND status NOT IN ?", purchaseID,
			[]string{services.StatusPostedToInventory, services.StatusCancelled}).
		First(&receipt).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &receipt, nil
}

// ListReceipts returns the receipt list, optionally filtered by status.
func (r *ReceivingRepository) ListReceipts(status string) ([]ListReceipt, error) {
	var result []ListReceipt

	query := r.db.Table("delivery_receipts AS dr").
		Select(`dr.id,
			ip.purchase_number,
			ip.supplier,
			dr.carrier,
			dr.dock_code,
			dr.status,
			dr.claimed_parcels,
			dr.claimed_cartons,
			dr.scanned_parcels,
			COUNT(DISTINCT drl.id) AS total_line,
			COALESCE(SUM(drl.expected_qty), 0) AS total_expected,
			COALESCE(SUM(drl.received_qty), 0) AS total_received,
			COUNT(DISTINCT ps.id) AS total_scan,
			dr.created_at`).
		Joins("LEFT JOIN import_purchases ip ON ip.id = dr.import_purchase_id").
		Joins("LEFT JOIN delivery_receipt_lines drl ON drl.receipt_id = dr.id AND drl.deleted_at IS NULL").
		Joins("LEFT JOIN parcel_scans ps ON ps.receipt_id = dr.id AND ps.deleted_at IS NULL").
		Where("dr.deleted_at IS NULL").
		Group("dr.id, ip.purchase_number, ip.supplier, dr.carrier, dr.dock_code, dr.status, dr.claimed_parcels, dr.claimed_cartons, dr.scanned_parcels, dr.created_at").
		Order("dr.created_at DESC")

	if status != "" {
		query = query.Where("dr.status = ?", status)
	}

	if err := query.Scan(&result).Error; err != nil {
		return nil, err
	}
	return result, nil
}

// SearchCandidatePurchases finds open purchases a dock delivery could belong
// to. A hit is a probable match when the carrier matches and the declared
// parcel count equals the purchase's expectation.
func (r *ReceivingRepository) SearchCandidatePurchases(carrier string, parcels int) ([]CandidatePurchase, error) {
	var purchases []models.ImportPurchase
	err := r.db.Preload("Items").
		Where("status NOT IN ?", []string{"received", "closed"}).
		Order("eta ASC").
		Find(&purchases).Error
	if err != nil {
		return nil, err
	}

	result := make([]CandidatePurchase, 0, len(purchases))
	for _, p := range purchases {
		probable := carrier != "" && strings.EqualFold(p.Carrier, carrier) &&
			parcels > 0 && p.ExpectedParcels == parcels
		result = append(result, CandidatePurchase{
			ID:              p.ID,
			PurchaseNumber:  p.PurchaseNumber,
			Supplier:        p.Supplier,
			Carrier:         p.Carrier,
			ExpectedParcels: p.ExpectedParcels,
			Eta:             p.Eta,
			ItemCount:       len(p.Items),
			ProbableMatch:   probable,
		})
	}
	return result, nil
}

// IncrementScannedParcels bumps the SSCC scan counter with an atomic update,
// not a read-modify-write.
func (r *ReceivingRepository) IncrementScannedParcels(receiptID int64) error {
	return r.db.Model(&models.DeliveryReceipt{}).
		Where("id = ?", receiptID).
		UpdateColumn("scanned_parcels", gorm.Expr("scanned_parcels + 1")).Error
}

// IncrementLineReceivedQty bumps a line's received quantity atomically.
func (r *ReceivingRepository) IncrementLineReceivedQty(lineID int64) error {
	return r.db.Model(&models.DeliveryReceiptLine{}).
		Where("id = ?", lineID).
		UpdateColumn("received_qty", gorm.Expr("received_qty + 1")).Error
}

// AppendScan inserts one audit row. Scans are append-only.
func (r *ReceivingRepository) AppendScan(scan *models.ParcelScan) error {
	return r.db.Create(scan).Error
}

// CountBatchesByReceiptID counts landed cost batches for a receipt.
func (r *ReceivingRepository) CountBatchesByReceiptID(receiptID int64) (int64, error) {
	var count int64
	err := r.db.Model(&models.LandedCostBatch{}).Where("receipt_id = ?", receiptID).Count(&count).Error
	return count, err
}

// CreateBatch inserts the landed cost batch for a confirmed receipt.
func (r *ReceivingRepository) CreateBatch(batch *models.LandedCostBatch) error {
	return r.db.Create(batch).Error
}

// WriteLineShare writes a line's landed cost share at confirmation.
func (r *ReceivingRepository) WriteLineShare(lineID int64, share decimal.Decimal, userID int64) error {
	return r.db.Model(&models.DeliveryReceiptLine{}).
		Where("id = ?", lineID).
		Updates(map[string]interface{}{
			"landed_cost_share": share,
			"updated_by":        int(userID),
		}).Error
}
