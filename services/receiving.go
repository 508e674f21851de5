package services

import (
	"errors"
	"fmt"
	"time"

	"davie-supply/models"

	"github.com/shopspring/decimal"
)

// ScanStore is the slice of the receiving repository the scan workflow needs.
type ScanStore interface {
	GetLinesByReceiptID(receiptID int64) ([]models.DeliveryReceiptLine, error)
	IncrementScannedParcels(receiptID int64) error
	IncrementLineReceivedQty(lineID int64) error
	AppendScan(scan *models.ParcelScan) error
}

// ConfirmStore is the slice of the receiving repository the confirmation
// workflow needs.
type ConfirmStore interface {
	GetLinesByReceiptID(receiptID int64) ([]models.DeliveryReceiptLine, error)
	CountBatchesByReceiptID(receiptID int64) (int64, error)
	CreateBatch(batch *models.LandedCostBatch) error
	WriteLineShare(lineID int64, share decimal.Decimal, userID int64) error
}

var ErrScanClosed = errors.New("receipt is not in draft, scanning is closed")
var ErrBatchExists = errors.New("receipt already has a landed cost batch")

// SeedReceiptLines builds one draft line per purchase item: expected quantity
// copied from the item, nothing received or damaged yet.
func SeedReceiptLines(receiptID int64, items []models.PurchaseItem, userID int64) []models.DeliveryReceiptLine {
	lines := make([]models.DeliveryReceiptLine, len(items))
	for i, item := range items {
		lines[i] = models.DeliveryReceiptLine{
			ReceiptId:       receiptID,
			PurchaseItemId:  item.ID,
			SkuCode:         item.SkuCode,
			Name:            item.Name,
			ExpectedQty:     item.Quantity,
			ReceivedQty:     0,
			DamagedQty:      0,
			UnitWeightKg:    item.UnitWeightKg,
			UnitVolumeL:     item.UnitVolumeL,
			UnitValue:       item.UnitValue,
			RuleGroup:       item.RuleGroup,
			PrimaryLocation: item.PrimaryLocation,
			CreatedBy:       int(userID),
			UpdatedBy:       int(userID),
		}
	}
	return lines
}

// RecordScan classifies one scanned code against the receipt's lines, applies
// the counter side effect, and appends exactly one audit row whatever the
// code classified as. The caller owns the transaction and the receipt lock.
func RecordScan(store ScanStore, receipt *models.DeliveryReceipt, code string, byUser int64) (*models.ParcelScan, error) {
	if receipt.Status != StatusDraft {
		return nil, ErrScanClosed
	}

	lines, err := store.GetLinesByReceiptID(receipt.ID)
	if err != nil {
		return nil, err
	}

	kind, lineIndex := ClassifyScan(code, lines)

	switch kind {
	case ScanKindParcel:
		if err := store.IncrementScannedParcels(receipt.ID); err != nil {
			return nil, err
		}
	case ScanKindSku:
		if err := store.IncrementLineReceivedQty(lines[lineIndex].ID); err != nil {
			return nil, err
		}
	}

	scan := &models.ParcelScan{
		ReceiptId: receipt.ID,
		Code:      code,
		Kind:      kind,
		ByUser:    byUser,
	}
	if err := store.AppendScan(scan); err != nil {
		return nil, err
	}
	return scan, nil
}

// ConfirmParams are the supervisor's inputs to the confirmation transition.
type ConfirmParams struct {
	Method          string
	TotalCostNative decimal.Decimal
	NativeCurrency  string
	CzkRate         decimal.Decimal
	Notes           string
}

// ConfirmReceipt runs the supervisor confirmation against a locked receipt:
// guards the transition, persists the landed cost batch, allocates the CZK
// total across the lines and stamps the receipt struct. The caller owns the
// transaction; on error the whole confirmation must roll back, the status
// change included.
func ConfirmReceipt(store ConfirmStore, receipt *models.DeliveryReceipt, params ConfirmParams, userID int64, now time.Time) (*models.LandedCostBatch, []AllocationResult, error) {
	if err := CheckTransition(receipt.Status, StatusFounderConfirmed); err != nil {
		return nil, nil, err
	}
	if !IsValidMethod(params.Method) {
		return nil, nil, fmt.Errorf("unknown allocation method: %s", params.Method)
	}

	// The status guard already blocks a second confirm; this check and the
	// unique index on receipt_id close the race window.
	existing, err := store.CountBatchesByReceiptID(receipt.ID)
	if err != nil {
		return nil, nil, err
	}
	if existing > 0 {
		return nil, nil, ErrBatchExists
	}

	lines, err := store.GetLinesByReceiptID(receipt.ID)
	if err != nil {
		return nil, nil, err
	}

	allocationLines := make([]AllocationLine, len(lines))
	for i, line := range lines {
		allocationLines[i] = AllocationLine{
			LineId:       line.ID,
			SkuCode:      line.SkuCode,
			ReceivedQty:  line.ReceivedQty,
			DamagedQty:   line.DamagedQty,
			UnitWeightKg: line.UnitWeightKg,
			UnitVolumeL:  line.UnitVolumeL,
			UnitValue:    line.UnitValue,
			RuleGroup:    line.RuleGroup,
		}
	}

	totalCostCzk := params.TotalCostNative.Mul(params.CzkRate).Round(4)

	allocation, err := AllocateLandedCost(allocationLines, params.Method, totalCostCzk)
	if err != nil {
		return nil, nil, err
	}

	batch := &models.LandedCostBatch{
		ReceiptId:       receipt.ID,
		Method:          params.Method,
		TotalCostNative: params.TotalCostNative,
		NativeCurrency:  params.NativeCurrency,
		CzkRate:         params.CzkRate,
		TotalCostCzk:    totalCostCzk,
		Notes:           params.Notes,
		CreatedBy:       int(userID),
		UpdatedBy:       int(userID),
	}
	if err := store.CreateBatch(batch); err != nil {
		return nil, nil, err
	}

	for _, result := range allocation {
		if err := store.WriteLineShare(result.LineId, result.CostShare, userID); err != nil {
			return nil, nil, err
		}
	}

	receipt.Status = StatusFounderConfirmed
	receipt.ConfirmedAt = &now
	receipt.FounderId = userID
	receipt.UpdatedBy = int(userID)

	return batch, allocation, nil
}
