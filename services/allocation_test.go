package services

import (
	"testing"

	"github.com/shopspring/decimal"
)

func d(v string) decimal.Decimal {
	dec, err := decimal.NewFromString(v)
	if err != nil {
		panic(err)
	}
	return dec
}

func TestAllocateLandedCost_ByWeightWorkedExample(t *testing.T) {
	// Item A: expected 10, unit weight 2, received 5. Item B: expected 5,
	// unit weight 1, nothing received. All the cost lands on A.
	lines := []AllocationLine{
		{LineId: 1, SkuCode: "A", ReceivedQty: 5, DamagedQty: 0, UnitWeightKg: d("2")},
		{LineId: 2, SkuCode: "B", ReceivedQty: 0, DamagedQty: 0, UnitWeightKg: d("1")},
	}

	results, err := AllocateLandedCost(lines, MethodByWeight, d("150"))
	if err != nil {
		t.Fatalf("AllocateLandedCost failed: %v", err)
	}

	if !results[0].CostShare.Equal(d("150")) {
		t.Errorf("line A cost share = %s, want 150.0000", results[0].CostShare)
	}
	if !results[1].CostShare.Equal(d("0")) {
		t.Errorf("line B cost share = %s, want 0.0000", results[1].CostShare)
	}
}

func TestAllocateLandedCost_SumWithinTolerance(t *testing.T) {
	// Three equal lines splitting 100 produce 33.3333 each; the rounded sum
	// may drift from the total by at most lines * 0.0001.
	lines := []AllocationLine{
		{LineId: 1, SkuCode: "A", ReceivedQty: 3, UnitWeightKg: d("1.7"), UnitVolumeL: d("0.9"), UnitValue: d("12.35")},
		{LineId: 2, SkuCode: "B", ReceivedQty: 3, UnitWeightKg: d("1.7"), UnitVolumeL: d("0.9"), UnitValue: d("12.35")},
		{LineId: 3, SkuCode: "C", ReceivedQty: 3, UnitWeightKg: d("1.7"), UnitVolumeL: d("0.9"), UnitValue: d("12.35")},
	}

	total := d("100")
	tolerance := d("0.0001").Mul(decimal.NewFromInt(int64(len(lines))))

	for _, method := range []string{MethodByWeight, MethodByVolume, MethodByValue, MethodByCount} {
		results, err := AllocateLandedCost(lines, method, total)
		if err != nil {
			t.Fatalf("method %s failed: %v", method, err)
		}

		sum := decimal.Zero
		for _, r := range results {
			sum = sum.Add(r.CostShare)
		}

		drift := total.Sub(sum).Abs()
		if drift.GreaterThan(tolerance) {
			t.Errorf("method %s: sum %s drifts %s from total %s, tolerance %s",
				method, sum, drift, total, tolerance)
		}
	}
}

func TestAllocateLandedCost_ZeroTotalWeight(t *testing.T) {
	lines := []AllocationLine{
		{LineId: 1, SkuCode: "A", ReceivedQty: 0, UnitWeightKg: d("2")},
		{LineId: 2, SkuCode: "B", ReceivedQty: 0, UnitWeightKg: d("1")},
	}

	results, err := AllocateLandedCost(lines, MethodByWeight, d("500"))
	if err != nil {
		t.Fatalf("AllocateLandedCost failed: %v", err)
	}

	for _, r := range results {
		if !r.CostShare.IsZero() {
			t.Errorf("line %s cost share = %s, want 0 when total weight is 0", r.SkuCode, r.CostShare)
		}
		if !r.Fraction.IsZero() {
			t.Errorf("line %s fraction = %s, want 0 when total weight is 0", r.SkuCode, r.Fraction)
		}
	}
}

func TestAllocateLandedCost_MixedRules(t *testing.T) {
	// One line weighs in by physical weight, one by declared value, the
	// third has no group and falls back to count.
	// Weights come out as 10, 25 and 5.
	lines := []AllocationLine{
		{LineId: 1, SkuCode: "HEAVY", ReceivedQty: 2, UnitWeightKg: d("5"), RuleGroup: RuleGroupWeight},
		{LineId: 2, SkuCode: "PRICEY", ReceivedQty: 1, UnitValue: d("25"), RuleGroup: RuleGroupValue},
		{LineId: 3, SkuCode: "PLAIN", ReceivedQty: 5, UnitWeightKg: d("99"), UnitValue: d("99")},
	}

	results, err := AllocateLandedCost(lines, MethodMixedRules, d("400"))
	if err != nil {
		t.Fatalf("AllocateLandedCost failed: %v", err)
	}

	// Total weight 40: shares 100 / 250 / 50.
	want := []string{"100", "250", "50"}
	for i, w := range want {
		if !results[i].CostShare.Equal(d(w)) {
			t.Errorf("line %s cost share = %s, want %s", results[i].SkuCode, results[i].CostShare, w)
		}
	}
}

func TestAllocateLandedCost_DamagedReducesGoodQty(t *testing.T) {
	// Good quantities are 6 and 2.
	lines := []AllocationLine{
		{LineId: 1, SkuCode: "A", ReceivedQty: 10, DamagedQty: 4, UnitWeightKg: d("1")},
		{LineId: 2, SkuCode: "B", ReceivedQty: 2, DamagedQty: 0, UnitWeightKg: d("1")},
	}

	results, err := AllocateLandedCost(lines, MethodByWeight, d("80"))
	if err != nil {
		t.Fatalf("AllocateLandedCost failed: %v", err)
	}

	if !results[0].CostShare.Equal(d("60")) {
		t.Errorf("line A cost share = %s, want 60", results[0].CostShare)
	}
	if !results[1].CostShare.Equal(d("20")) {
		t.Errorf("line B cost share = %s, want 20", results[1].CostShare)
	}
}

func TestAllocationLine_GoodQtyFlooredAtZero(t *testing.T) {
	line := AllocationLine{ReceivedQty: 1, DamagedQty: 3}
	if got := line.GoodQty(); got != 0 {
		t.Errorf("GoodQty = %d, want 0 when damaged exceeds received", got)
	}
}

func TestAllocateLandedCost_NegativeGoodQtyDoesNotPoisonBatch(t *testing.T) {
	// A data-entry error on one line must not subtract weight from the rest.
	lines := []AllocationLine{
		{LineId: 1, SkuCode: "BAD", ReceivedQty: 1, DamagedQty: 5, UnitWeightKg: d("2")},
		{LineId: 2, SkuCode: "OK", ReceivedQty: 4, DamagedQty: 0, UnitWeightKg: d("2")},
	}

	results, err := AllocateLandedCost(lines, MethodByWeight, d("100"))
	if err != nil {
		t.Fatalf("AllocateLandedCost failed: %v", err)
	}

	if !results[0].CostShare.IsZero() {
		t.Errorf("bad line cost share = %s, want 0", results[0].CostShare)
	}
	if !results[1].CostShare.Equal(d("100")) {
		t.Errorf("ok line cost share = %s, want 100", results[1].CostShare)
	}
}

func TestAllocateLandedCost_UnknownMethod(t *testing.T) {
	_, err := AllocateLandedCost(nil, "by_vibes", d("10"))
	if err == nil {
		t.Fatal("expected an error for an unknown method")
	}
}

func TestAllocateLandedCost_RoundsToFourDecimals(t *testing.T) {
	lines := []AllocationLine{
		{LineId: 1, SkuCode: "A", ReceivedQty: 1, UnitWeightKg: d("1")},
		{LineId: 2, SkuCode: "B", ReceivedQty: 2, UnitWeightKg: d("1")},
	}

	results, err := AllocateLandedCost(lines, MethodByWeight, d("100"))
	if err != nil {
		t.Fatalf("AllocateLandedCost failed: %v", err)
	}

	if !results[0].CostShare.Equal(d("33.3333")) {
		t.Errorf("line A cost share = %s, want 33.3333", results[0].CostShare)
	}
	if !results[1].CostShare.Equal(d("66.6667")) {
		t.Errorf("line B cost share = %s, want 66.6667", results[1].CostShare)
	}
}
