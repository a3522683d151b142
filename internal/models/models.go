package models

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// RawInvoiceLine is a single invoice line item as it appears in the input.
// Amounts that failed to parse are zero; dates that failed to parse are nil.
type RawInvoiceLine struct {
	InvoiceID      string          `json:"invoice_id" csv:"invoice_id"`
	VendorID       string          `json:"vendor_id" csv:"vendor_id"`
	VendorName     string          `json:"vendor_name" csv:"vendor_name"`
	Currency       string          `json:"currency" csv:"currency"`
	LineItemNumber int             `json:"line_item_number" csv:"line_item_number"`
	Quantity       decimal.Decimal `json:"quantity" csv:"quantity"`
	UnitPrice      decimal.Decimal `json:"unit_price" csv:"unit_price"`
	LineTotal      decimal.Decimal `json:"line_total" csv:"line_total"`
	InvoiceDate    *time.Time      `json:"invoice_date" csv:"invoice_date"`
}

// AggregatedInvoice is one invoice rolled up from its line items, keyed by
// (InvoiceID, VendorID, VendorName, Currency). Immutable once produced.
type AggregatedInvoice struct {
	InvoiceID    string          `json:"invoice_id"`
	VendorID     string          `json:"vendor_id"`
	VendorName   string          `json:"vendor_name"`
	Currency     string          `json:"currency"`
	InvoiceTotal decimal.Decimal `json:"invoice_total"`
	LineCount    int             `json:"line_count"`
	MaxQty       decimal.Decimal `json:"max_qty"`
	AvgUnitPrice decimal.Decimal `json:"avg_unit_price"`
	InvoiceDate  *time.Time      `json:"invoice_date"`
}

// Key returns the aggregation key for the invoice.
func (a *AggregatedInvoice) Key() string {
	return a.InvoiceID + "\x1f" + a.VendorID + "\x1f" + a.VendorName + "\x1f" + a.Currency
}

// PurchaseOrderRecord is a combined purchase-order / goods-receipt record.
// GRNNumber is empty and GRNDate nil when no goods receipt exists.
type PurchaseOrderRecord struct {
	PONumber   string          `json:"po_number" csv:"po_number"`
	VendorID   string          `json:"vendor_id" csv:"vendor_id"`
	VendorName string          `json:"vendor_name" csv:"vendor_name"`
	Currency   string          `json:"currency" csv:"currency"`
	POTotal    decimal.Decimal `json:"po_total" csv:"po_total"`
	HasPOTotal bool            `json:"has_po_total"`
	PODate     *time.Time      `json:"po_date" csv:"po_date"`
	GRNNumber  string          `json:"grn_number" csv:"grn_number"`
	GRNDate    *time.Time      `json:"grn_date" csv:"grn_date"`
}

// HasGRN reports whether a goods-receipt reference is present.
func (p *PurchaseOrderRecord) HasGRN() bool {
	return strings.TrimSpace(p.GRNNumber) != ""
}

// MismatchRecord is a historical labelled mismatch used as ground truth.
type MismatchRecord struct {
	InvoiceID    string `json:"invoice_id" csv:"invoice_id"`
	PONumber     string `json:"po_number" csv:"po_number"`
	MismatchType string `json:"mismatch_type" csv:"mismatch_type"`
	Difference   string `json:"difference" csv:"difference"`
}

// Recognized mismatch types in the historical record.
const (
	MismatchMissingPO     = "MISSING_PO"
	MismatchPriceVariance = "PRICE_VARIANCE"
	MismatchTaxMiscode    = "TAX_MISCODE"
)

// LinkedPair joins an aggregated invoice with its candidate purchase order.
// PO is nil when the join found no match; all PO-derived values are absent
// together, never partially.
type LinkedPair struct {
	Invoice     AggregatedInvoice    `json:"invoice"`
	CandidatePO string               `json:"candidate_po"`
	PO          *PurchaseOrderRecord `json:"po,omitempty"`
}

// POMissing reports whether the pair has no linked purchase order.
func (lp *LinkedPair) POMissing() bool {
	return lp.PO == nil
}

// ParseDecimalLenient parses a monetary amount, tolerating currency symbols
// and thousand separators. Empty or malformed input degrades to (zero, false)
// rather than failing the record.
func ParseDecimalLenient(s string) (decimal.Decimal, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, false
	}

	s = strings.ReplaceAll(s, "$", "")
	s = strings.ReplaceAll(s, "€", "")
	s = strings.ReplaceAll(s, ",", "")
	s = strings.TrimSpace(s)

	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}

// dateLayouts are tried in order. Day-first layouts come before their
// month-first twins so that ambiguous dates like 03/04/2025 resolve to
// 3 April, matching how the upstream documents are written.
var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
	"02/01/2006",
	"2/1/2006",
	"02-01-2006",
	"2-1-2006",
	"02.01.2006",
	"2006/01/02",
	"01/02/2006",
	"2 January 2006",
	"2 Jan 2006",
	"02 Jan 2006",
	"Jan 2, 2006",
	"January 2, 2006",
	"2006-01-02 15:04",
}

var dateTokenPattern = regexp.MustCompile(`\d{1,4}[-/.]\d{1,2}[-/.]\d{1,4}`)

// ParseDateLenient parses a date string with a day-first bias and a fuzzy
// recovery pass that extracts a date-shaped token from surrounding text.
// Unparseable input returns (zero, false); callers store nil instead of
// aborting the batch.
func ParseDateLenient(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}

	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}

	// Fuzzy recovery: pull the first date-shaped token out of noisy input
	// like "invoiced on 12/03/2025 net30".
	if token := dateTokenPattern.FindString(s); token != "" && token != s {
		for _, layout := range dateLayouts {
			if t, err := time.Parse(layout, token); err == nil {
				return t, true
			}
		}
	}

	return time.Time{}, false
}

// DaysBetween returns the whole-day difference a − b. Either date missing
// yields 0, which downstream feature logic treats as "no timing signal".
func DaysBetween(a, b *time.Time) float64 {
	if a == nil || b == nil {
		return 0
	}
	return float64(int(a.Sub(*b).Hours() / 24))
}

// FormatDate renders a nullable date for reports.
func FormatDate(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format("2006-01-02")
}

// String returns a compact representation for logging.
func (a *AggregatedInvoice) String() string {
	return fmt.Sprintf("AggregatedInvoice{ID: %s, Vendor: %s, Total: %s, Lines: %d}",
		a.InvoiceID, a.VendorID, a.InvoiceTotal.String(), a.LineCount)
}

func (p *PurchaseOrderRecord) String() string {
	return fmt.Sprintf("PurchaseOrder{Number: %s, Vendor: %s, Total: %s, GRN: %q}",
		p.PONumber, p.VendorID, p.POTotal.String(), p.GRNNumber)
}
