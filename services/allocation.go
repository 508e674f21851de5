package services

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Landed-cost allocation methods.
const (
	MethodByWeight   = "by_weight"
	MethodByVolume   = "by_volume"
	MethodByValue    = "by_value"
	MethodByCount    = "by_count"
	MethodMixedRules = "mixed_rules"
)

// Per-line sub-rules selected by RuleGroup under mixed_rules.
const (
	RuleGroupWeight = "weight"
	RuleGroupValue  = "value"
	RuleGroupCount  = "count"
)

// AllocationLine is one receipt line as seen by the allocation engine.
type AllocationLine struct {
	LineId       int64
	SkuCode      string
	ReceivedQty  int
	DamagedQty   int
	UnitWeightKg decimal.Decimal
	UnitVolumeL  decimal.Decimal
	UnitValue    decimal.Decimal
	RuleGroup    string
}

// GoodQty is the number of usable units: received minus damaged, floored at
// zero so a data-entry error can never produce a negative weight.
func (l AllocationLine) GoodQty() int {
	qty := l.ReceivedQty - l.DamagedQty
	if qty < 0 {
		return 0
	}
	return qty
}

// AllocationResult is the computed cost share for one line.
type AllocationResult struct {
	LineId    int64           `json:"line_id"`
	SkuCode   string          `json:"sku_code"`
	Weight    decimal.Decimal `json:"weight"`
	Fraction  decimal.Decimal `json:"fraction"`
	CostShare decimal.Decimal `json:"cost_share"`
}

// IsValidMethod reports whether m is a known allocation method.
func IsValidMethod(m string) bool {
	switch m {
	case MethodByWeight, MethodByVolume, MethodByValue, MethodByCount, MethodMixedRules:
		return true
	}
	return false
}

// AllocateLandedCost distributes totalCost across lines proportionally to the
// weight value the chosen method assigns each line. Shares are rounded to 4
// decimal places and NOT reconciled afterwards: the sum may drift from
// totalCost by at most len(lines) * 0.00005.
//
// When every line weighs zero the whole batch degenerates to zero shares
// rather than dividing by zero.
func AllocateLandedCost(lines []AllocationLine, method string, totalCost decimal.Decimal) ([]AllocationResult, error) {
	if !IsValidMethod(method) {
		return nil, fmt.Errorf("unknown allocation method: %s", method)
	}

	results := make([]AllocationResult, len(lines))
	totalWeight := decimal.Zero

	for i, line := range lines {
		w := lineWeight(line, method)
		results[i] = AllocationResult{
			LineId:  line.LineId,
			SkuCode: line.SkuCode,
			Weight:  w,
		}
		totalWeight = totalWeight.Add(w)
	}

	for i := range results {
		if totalWeight.IsZero() {
			results[i].Fraction = decimal.Zero
			results[i].CostShare = decimal.Zero.Round(4)
			continue
		}
		fraction := results[i].Weight.Div(totalWeight)
		results[i].Fraction = fraction
		results[i].CostShare = totalCost.Mul(fraction).Round(4)
	}

	return results, nil
}

func lineWeight(line AllocationLine, method string) decimal.Decimal {
	qty := decimal.NewFromInt(int64(line.GoodQty()))

	switch method {
	case MethodByWeight:
		return line.UnitWeightKg.Mul(qty)
	case MethodByVolume:
		return line.UnitVolumeL.Mul(qty)
	case MethodByValue:
		return line.UnitValue.Mul(qty)
	case MethodByCount:
		return qty
	case MethodMixedRules:
		switch line.RuleGroup {
		case RuleGroupWeight:
			return line.UnitWeightKg.Mul(qty)
		case RuleGroupValue:
			return line.UnitValue.Mul(qty)
		default:
			return qty
		}
	}
	return decimal.Zero
}
