// Package features derives the fixed per-pair feature vector that the
// classifier and the decision policy both consume. Computation is total:
// every input produces a row, missing values fall back to documented
// defaults, and no code path returns an error.
package features

import (
	"math"
	"strings"

	"invoice-reconciliation-service/internal/models"
)

// Thresholds for the boolean tolerance features.
const (
	VendorMatchThreshold = 0.8
	AmountToleranceAbs   = 100.0
	AmountTolerancePct   = 0.05
	InvoiceBeforePODays  = -2.0
	InvoiceTooLateDays   = 120.0
	InvoiceBeforeGRNDays = -3.0
)

// CanonicalFeatures is the fixed training column order. Artifacts written
// before the feature list became a required field are read with this list.
var CanonicalFeatures = []string{
	"vendor_match",
	"vendor_similarity",
	"has_grn",
	"amount_delta_abs",
	"amount_delta_pct",
	"amount_over_tolerance",
	"amount_pct_over_tolerance",
	"days_delta",
	"days_since_grn",
	"invoice_before_po",
	"invoice_too_late",
	"invoice_before_grn",
	"po_missing",
	"currency_match",
}

// FeatureRow is the feature vector for one invoice/PO pair. Boolean features
// are stored as 0/1 float64 so the whole row feeds the model uniformly.
type FeatureRow struct {
	InvoiceID  string `json:"invoice_id"`
	PONumber   string `json:"po_number"`
	VendorName string `json:"vendor_name"`

	VendorMatch            float64 `json:"vendor_match"`
	VendorSimilarity       float64 `json:"vendor_similarity"`
	HasGRN                 float64 `json:"has_grn"`
	AmountDelta            float64 `json:"amount_delta"`
	AmountDeltaAbs         float64 `json:"amount_delta_abs"`
	AmountDeltaPct         float64 `json:"amount_delta_pct"`
	AmountOverTolerance    float64 `json:"amount_over_tolerance"`
	AmountPctOverTolerance float64 `json:"amount_pct_over_tolerance"`
	DaysDelta              float64 `json:"days_delta"`
	DaysSinceGRN           float64 `json:"days_since_grn"`
	InvoiceBeforePO        float64 `json:"invoice_before_po"`
	InvoiceTooLate         float64 `json:"invoice_too_late"`
	InvoiceBeforeGRN       float64 `json:"invoice_before_grn"`
	POMissing              float64 `json:"po_missing"`
	CurrencyMatch          float64 `json:"currency_match"`
}

// Value returns the named feature, or 0 for an unknown name. Unknown names
// happen when an older artifact carries a feature this build no longer
// computes; treating them as 0 keeps scoring total.
func (r *FeatureRow) Value(name string) float64 {
	switch name {
	case "vendor_match":
		return r.VendorMatch
	case "vendor_similarity":
		return r.VendorSimilarity
	case "has_grn":
		return r.HasGRN
	case "amount_delta":
		return r.AmountDelta
	case "amount_delta_abs":
		return r.AmountDeltaAbs
	case "amount_delta_pct":
		return r.AmountDeltaPct
	case "amount_over_tolerance":
		return r.AmountOverTolerance
	case "amount_pct_over_tolerance":
		return r.AmountPctOverTolerance
	case "days_delta":
		return r.DaysDelta
	case "days_since_grn":
		return r.DaysSinceGRN
	case "invoice_before_po":
		return r.InvoiceBeforePO
	case "invoice_too_late":
		return r.InvoiceTooLate
	case "invoice_before_grn":
		return r.InvoiceBeforeGRN
	case "po_missing":
		return r.POMissing
	case "currency_match":
		return r.CurrencyMatch
	default:
		return 0
	}
}

// Compute derives the feature row for one linked pair. Missing PO, missing
// totals and missing dates all degrade to defaults rather than failing.
func Compute(pair *models.LinkedPair) *FeatureRow {
	inv := pair.Invoice
	row := &FeatureRow{
		InvoiceID:  inv.InvoiceID,
		PONumber:   pair.CandidatePO,
		VendorName: inv.VendorName,
	}

	if pair.POMissing() {
		row.POMissing = 1
		// No PO to compare against: currency consistency holds vacuously.
		row.CurrencyMatch = 1
		return sanitize(row)
	}

	po := pair.PO
	row.PONumber = po.PONumber

	row.VendorSimilarity = vendorSimilarity(inv.VendorName, po.VendorName)
	row.VendorMatch = boolFeature(row.VendorSimilarity > VendorMatchThreshold)
	row.HasGRN = boolFeature(po.HasGRN())
	row.CurrencyMatch = boolFeature(strings.EqualFold(strings.TrimSpace(inv.Currency), strings.TrimSpace(po.Currency)))

	if po.HasPOTotal {
		poTotal, _ := po.POTotal.Float64()
		invTotal, _ := inv.InvoiceTotal.Float64()
		row.AmountDelta = invTotal - poTotal
		row.AmountDeltaAbs = math.Abs(row.AmountDelta)
		if poTotal != 0 {
			row.AmountDeltaPct = clip(row.AmountDelta/poTotal, -1, 1)
		}
		row.AmountOverTolerance = boolFeature(row.AmountDeltaAbs > AmountToleranceAbs)
		row.AmountPctOverTolerance = boolFeature(math.Abs(row.AmountDeltaPct) > AmountTolerancePct)
	}

	row.DaysDelta = models.DaysBetween(inv.InvoiceDate, po.PODate)
	row.DaysSinceGRN = models.DaysBetween(inv.InvoiceDate, po.GRNDate)
	if inv.InvoiceDate != nil && po.PODate != nil {
		row.InvoiceBeforePO = boolFeature(row.DaysDelta < InvoiceBeforePODays)
		row.InvoiceTooLate = boolFeature(row.DaysDelta > InvoiceTooLateDays)
	}
	if inv.InvoiceDate != nil && po.GRNDate != nil {
		row.InvoiceBeforeGRN = boolFeature(row.DaysSinceGRN < InvoiceBeforeGRNDays)
	}

	return sanitize(row)
}

// ComputeAll derives feature rows for every pair, in input order.
func ComputeAll(pairs []*models.LinkedPair) []*FeatureRow {
	rows := make([]*FeatureRow, 0, len(pairs))
	for _, pair := range pairs {
		rows = append(rows, Compute(pair))
	}
	return rows
}

// vendorSimilarity is the token-set Jaccard similarity of two vendor names,
// case-insensitive over whitespace-separated tokens. Either name missing
// yields 0.
func vendorSimilarity(a, b string) float64 {
	tokensA := tokenSet(a)
	tokensB := tokenSet(b)
	if len(tokensA) == 0 || len(tokensB) == 0 {
		return 0
	}

	intersection := 0
	for token := range tokensA {
		if _, ok := tokensB[token]; ok {
			intersection++
		}
	}
	union := len(tokensA) + len(tokensB) - intersection
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}

func tokenSet(s string) map[string]struct{} {
	fields := strings.Fields(strings.ToLower(strings.TrimSpace(s)))
	set := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		set[f] = struct{}{}
	}
	return set
}

func boolFeature(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

func clip(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// sanitize replaces any NaN or infinite value with 0 so the row is always
// safe to feed downstream.
func sanitize(row *FeatureRow) *FeatureRow {
	for _, p := range []*float64{
		&row.VendorMatch, &row.VendorSimilarity, &row.HasGRN,
		&row.AmountDelta, &row.AmountDeltaAbs, &row.AmountDeltaPct,
		&row.AmountOverTolerance, &row.AmountPctOverTolerance,
		&row.DaysDelta, &row.DaysSinceGRN,
		&row.InvoiceBeforePO, &row.InvoiceTooLate, &row.InvoiceBeforeGRN,
		&row.POMissing, &row.CurrencyMatch,
	} {
		if math.IsNaN(*p) || math.IsInf(*p, 0) {
			*p = 0
		}
	}
	return row
}
