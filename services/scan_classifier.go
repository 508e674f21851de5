package services

import (
	"regexp"

	"davie-supply/models"
)

// Scan classification kinds.
const (
	ScanKindParcel = "PARCEL"
	ScanKindCarton = "CARTON"
	ScanKindSku    = "SKU"
	ScanKindOther  = "OTHER"
)

// ssccPattern matches an 18-digit Serial Shipping Container Code.
var ssccPattern = regexp.MustCompile(`^\d{18}$`)

// IsSSCC reports whether code is an 18-digit SSCC parcel code.
func IsSSCC(code string) bool {
	return ssccPattern.MatchString(code)
}

// ClassifyScan decides what a scanned code is, first match wins:
// an 18-digit SSCC is a PARCEL even when it also equals a line's SKU;
// otherwise an exact SKU match among the receipt's lines is a SKU and the
// matched line index is returned; anything else is OTHER. Unknown codes are
// not an error, physical receiving must never be blocked by a bad label.
func ClassifyScan(code string, lines []models.DeliveryReceiptLine) (kind string, lineIndex int) {
	if IsSSCC(code) {
		return ScanKindParcel, -1
	}

	for i, line := range lines {
		if line.SkuCode == code {
			return ScanKindSku, i
		}
	}

	return ScanKindOther, -1
}
