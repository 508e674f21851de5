package services

import (
	"errors"
	"testing"
	"time"

	"davie-supply/models"

	"github.com/shopspring/decimal"
)

// memoryReceivingStore is an in-memory stand-in for the receiving repository,
// implementing both ScanStore and ConfirmStore.
type memoryReceivingStore struct {
	lines          []models.DeliveryReceiptLine
	scans          []models.ParcelScan
	batches        []models.LandedCostBatch
	scannedParcels map[int64]int
}

func newMemoryReceivingStore(lines ...models.DeliveryReceiptLine) *memoryReceivingStore {
	return &memoryReceivingStore{
		lines:          lines,
		scannedParcels: make(map[int64]int),
	}
}

func (s *memoryReceivingStore) GetLinesByReceiptID(receiptID int64) ([]models.DeliveryReceiptLine, error) {
	var result []models.DeliveryReceiptLine
	for _, line := range s.lines {
		if line.ReceiptId == receiptID {
			result = append(result, line)
		}
	}
	return result, nil
}

func (s *memoryReceivingStore) IncrementScannedParcels(receiptID int64) error {
	s.scannedParcels[receiptID]++
	return nil
}

func (s *memoryReceivingStore) IncrementLineReceivedQty(lineID int64) error {
	for i := range s.lines {
		if s.lines[i].ID == lineID {
			s.lines[i].ReceivedQty++
			return nil
		}
	}
	return errors.New("line not found")
}

func (s *memoryReceivingStore) AppendScan(scan *models.ParcelScan) error {
	s.scans = append(s.scans, *scan)
	return nil
}

func (s *memoryReceivingStore) CountBatchesByReceiptID(receiptID int64) (int64, error) {
	var count int64
	for _, b := range s.batches {
		if b.ReceiptId == receiptID {
			count++
		}
	}
	return count, nil
}

func (s *memoryReceivingStore) CreateBatch(batch *models.LandedCostBatch) error {
	s.batches = append(s.batches, *batch)
	return nil
}

func (s *memoryReceivingStore) WriteLineShare(lineID int64, share decimal.Decimal, userID int64) error {
	for i := range s.lines {
		if s.lines[i].ID == lineID {
			v := share
			s.lines[i].LandedCostShare = &v
			return nil
		}
	}
	return errors.New("line not found")
}

func draftReceipt(id int64) *models.DeliveryReceipt {
	return &models.DeliveryReceipt{ID: id, Status: StatusDraft}
}

func TestSeedReceiptLines_OneLinePerItem(t *testing.T) {
	items := []models.PurchaseItem{
		{ID: 11, SkuCode: "DS-CBL-USBC-2M", Name: "USB-C cable 2m", Quantity: 200, UnitWeightKg: d("0.06")},
		{ID: 12, SkuCode: "DS-PWR-65W", Name: "GaN charger 65W", Quantity: 80, UnitValue: d("310")},
		{ID: 13, SkuCode: "DS-KET-GLASS-17", Name: "Glass kettle 1.7l", Quantity: 120, RuleGroup: RuleGroupWeight},
	}

	lines := SeedReceiptLines(77, items, 5)

	if len(lines) != len(items) {
		t.Fatalf("seeded %d lines, want %d", len(lines), len(items))
	}
	for i, line := range lines {
		if line.ReceiptId != 77 {
			t.Errorf("line %d receipt id = %d, want 77", i, line.ReceiptId)
		}
		if line.PurchaseItemId != items[i].ID {
			t.Errorf("line %d purchase item id = %d, want %d", i, line.PurchaseItemId, items[i].ID)
		}
		if line.ExpectedQty != items[i].Quantity {
			t.Errorf("line %d expected qty = %d, want %d", i, line.ExpectedQty, items[i].Quantity)
		}
		if line.ReceivedQty != 0 || line.DamagedQty != 0 {
			t.Errorf("line %d starts with received=%d damaged=%d, want 0/0", i, line.ReceivedQty, line.DamagedQty)
		}
		if line.SkuCode != items[i].SkuCode {
			t.Errorf("line %d sku = %s, want %s", i, line.SkuCode, items[i].SkuCode)
		}
	}
}

func TestRecordScan_EveryScanAppendsExactlyOneRow(t *testing.T) {
	store := newMemoryReceivingStore(
		models.DeliveryReceiptLine{ID: 1, ReceiptId: 77, SkuCode: "DS-PWR-65W"},
	)
	receipt := draftReceipt(77)

	codes := []string{
		"003401234567890128", // PARCEL
		"DS-PWR-65W",         // SKU
		"JD0123456789",       // OTHER
	}
	for i, code := range codes {
		if _, err := RecordScan(store, receipt, code, 5); err != nil {
			t.Fatalf("RecordScan(%q) failed: %v", code, err)
		}
		if len(store.scans) != i+1 {
			t.Fatalf("after %d scans the log holds %d rows", i+1, len(store.scans))
		}
	}

	wantKinds := []string{ScanKindParcel, ScanKindSku, ScanKindOther}
	for i, want := range wantKinds {
		if store.scans[i].Kind != want {
			t.Errorf("scan %d kind = %s, want %s", i, store.scans[i].Kind, want)
		}
		if store.scans[i].ReceiptId != 77 {
			t.Errorf("scan %d receipt id = %d, want 77", i, store.scans[i].ReceiptId)
		}
	}
}

func TestRecordScan_ParcelIncrementsScannedParcels(t *testing.T) {
	// An SSCC that also matches a SKU counts as a parcel: the counter moves,
	// the line does not.
	store := newMemoryReceivingStore(
		models.DeliveryReceiptLine{ID: 1, ReceiptId: 77, SkuCode: "123456789012345678"},
	)
	receipt := draftReceipt(77)

	scan, err := RecordScan(store, receipt, "123456789012345678", 5)
	if err != nil {
		t.Fatalf("RecordScan failed: %v", err)
	}

	if scan.Kind != ScanKindParcel {
		t.Errorf("kind = %s, want PARCEL", scan.Kind)
	}
	if store.scannedParcels[77] != 1 {
		t.Errorf("scanned parcels = %d, want 1", store.scannedParcels[77])
	}
	if store.lines[0].ReceivedQty != 0 {
		t.Errorf("line received qty = %d, want 0 for a parcel scan", store.lines[0].ReceivedQty)
	}
}

func TestRecordScan_SkuIncrementsMatchedLine(t *testing.T) {
	store := newMemoryReceivingStore(
		models.DeliveryReceiptLine{ID: 1, ReceiptId: 77, SkuCode: "DS-CBL-USBC-2M"},
		models.DeliveryReceiptLine{ID: 2, ReceiptId: 77, SkuCode: "DS-PWR-65W"},
	)
	receipt := draftReceipt(77)

	scan, err := RecordScan(store, receipt, "DS-PWR-65W", 5)
	if err != nil {
		t.Fatalf("RecordScan failed: %v", err)
	}

	if scan.Kind != ScanKindSku {
		t.Errorf("kind = %s, want SKU", scan.Kind)
	}
	if store.lines[1].ReceivedQty != 1 {
		t.Errorf("matched line received qty = %d, want 1", store.lines[1].ReceivedQty)
	}
	if store.lines[0].ReceivedQty != 0 {
		t.Errorf("other line received qty = %d, want 0", store.lines[0].ReceivedQty)
	}
	if store.scannedParcels[77] != 0 {
		t.Errorf("scanned parcels = %d, want 0 for a SKU scan", store.scannedParcels[77])
	}
}

func TestRecordScan_ClosedOutsideDraft(t *testing.T) {
	store := newMemoryReceivingStore()
	receipt := &models.DeliveryReceipt{ID: 77, Status: StatusEmployeeSubmitted}

	_, err := RecordScan(store, receipt, "003401234567890128", 5)
	if !errors.Is(err, ErrScanClosed) {
		t.Fatalf("err = %v, want ErrScanClosed", err)
	}
	if len(store.scans) != 0 {
		t.Errorf("rejected scan still appended %d rows", len(store.scans))
	}
}

func confirmFixture() (*memoryReceivingStore, *models.DeliveryReceipt, ConfirmParams) {
	store := newMemoryReceivingStore(
		models.DeliveryReceiptLine{ID: 1, ReceiptId: 77, SkuCode: "A", ReceivedQty: 5, UnitWeightKg: d("2")},
		models.DeliveryReceiptLine{ID: 2, ReceiptId: 77, SkuCode: "B", ReceivedQty: 0, UnitWeightKg: d("1")},
	)
	receipt := &models.DeliveryReceipt{ID: 77, Status: StatusEmployeeSubmitted}
	params := ConfirmParams{
		Method:          MethodByWeight,
		TotalCostNative: d("150"),
		NativeCurrency:  "EUR",
		CzkRate:         d("1"),
	}
	return store, receipt, params
}

func TestConfirmReceipt_AllocatesAndStamps(t *testing.T) {
	store, receipt, params := confirmFixture()
	now := time.Now()

	batch, allocation, err := ConfirmReceipt(store, receipt, params, 9, now)
	if err != nil {
		t.Fatalf("ConfirmReceipt failed: %v", err)
	}

	if receipt.Status != StatusFounderConfirmed {
		t.Errorf("status = %s, want founder_confirmed", receipt.Status)
	}
	if receipt.ConfirmedAt == nil || !receipt.ConfirmedAt.Equal(now) {
		t.Error("confirmed_at not stamped")
	}
	if receipt.FounderId != 9 {
		t.Errorf("founder id = %d, want 9", receipt.FounderId)
	}
	if !batch.TotalCostCzk.Equal(d("150")) {
		t.Errorf("total cost czk = %s, want 150", batch.TotalCostCzk)
	}
	if len(allocation) != 2 {
		t.Fatalf("allocation has %d results, want 2", len(allocation))
	}
	if store.lines[0].LandedCostShare == nil || !store.lines[0].LandedCostShare.Equal(d("150")) {
		t.Errorf("line A share = %v, want 150.0000", store.lines[0].LandedCostShare)
	}
	if store.lines[1].LandedCostShare == nil || !store.lines[1].LandedCostShare.IsZero() {
		t.Errorf("line B share = %v, want 0.0000", store.lines[1].LandedCostShare)
	}
}

func TestConfirmReceipt_SecondConfirmRejected(t *testing.T) {
	store, receipt, params := confirmFixture()

	if _, _, err := ConfirmReceipt(store, receipt, params, 9, time.Now()); err != nil {
		t.Fatalf("first confirm failed: %v", err)
	}

	_, _, err := ConfirmReceipt(store, receipt, params, 9, time.Now())
	var invalid *InvalidTransitionError
	if !errors.As(err, &invalid) {
		t.Fatalf("second confirm: err = %v, want InvalidTransitionError", err)
	}

	count, _ := store.CountBatchesByReceiptID(77)
	if count != 1 {
		t.Errorf("receipt holds %d batches after double confirm, want 1", count)
	}
}

func TestConfirmReceipt_ExistingBatchBlocksConfirm(t *testing.T) {
	// Even with the status somehow rewound, a present batch blocks a rerun.
	store, receipt, params := confirmFixture()
	store.batches = append(store.batches, models.LandedCostBatch{ReceiptId: 77, Method: MethodByCount})

	_, _, err := ConfirmReceipt(store, receipt, params, 9, time.Now())
	if !errors.Is(err, ErrBatchExists) {
		t.Fatalf("err = %v, want ErrBatchExists", err)
	}

	count, _ := store.CountBatchesByReceiptID(77)
	if count != 1 {
		t.Errorf("receipt holds %d batches, want the original 1", count)
	}
}

func TestConfirmReceipt_FromDraftRejected(t *testing.T) {
	store, receipt, params := confirmFixture()
	receipt.Status = StatusDraft

	_, _, err := ConfirmReceipt(store, receipt, params, 9, time.Now())
	var invalid *InvalidTransitionError
	if !errors.As(err, &invalid) {
		t.Fatalf("err = %v, want InvalidTransitionError for draft confirm", err)
	}
	if receipt.Status != StatusDraft {
		t.Errorf("status changed to %s on rejected confirm", receipt.Status)
	}
	if len(store.batches) != 0 {
		t.Errorf("rejected confirm created %d batches", len(store.batches))
	}
}

func TestConfirmReceipt_UnknownMethodRejected(t *testing.T) {
	store, receipt, params := confirmFixture()
	params.Method = "by_vibes"

	if _, _, err := ConfirmReceipt(store, receipt, params, 9, time.Now()); err == nil {
		t.Fatal("expected an error for an unknown method")
	}
	if receipt.Status != StatusEmployeeSubmitted {
		t.Errorf("status changed to %s on rejected confirm", receipt.Status)
	}
}
