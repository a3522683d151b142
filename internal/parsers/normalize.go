package parsers

import (
	"github.com/shopspring/decimal"

	"invoice-reconciliation-service/internal/models"
)

// AggregateInvoices rolls invoice line items up into one AggregatedInvoice
// per (invoice_id, vendor_id, vendor_name, currency) key: line totals are
// summed, lines counted, quantity maxed, unit price averaged, and the first
// seen invoice date kept. Output preserves first-seen order so the pipeline
// stays deterministic for a given input file.
func AggregateInvoices(lines []*models.RawInvoiceLine) []*models.AggregatedInvoice {
	type accumulator struct {
		invoice   *models.AggregatedInvoice
		priceSum  decimal.Decimal
		lineCount int
	}

	byKey := make(map[string]*accumulator)
	var order []string

	for _, line := range lines {
		inv := models.AggregatedInvoice{
			InvoiceID:  line.InvoiceID,
			VendorID:   line.VendorID,
			VendorName: line.VendorName,
			Currency:   line.Currency,
		}
		key := inv.Key()

		acc, ok := byKey[key]
		if !ok {
			acc = &accumulator{
				invoice: &models.AggregatedInvoice{
					InvoiceID:   line.InvoiceID,
					VendorID:    line.VendorID,
					VendorName:  line.VendorName,
					Currency:    line.Currency,
					InvoiceDate: line.InvoiceDate,
				},
			}
			byKey[key] = acc
			order = append(order, key)
		}

		acc.invoice.InvoiceTotal = acc.invoice.InvoiceTotal.Add(line.LineTotal)
		if line.Quantity.GreaterThan(acc.invoice.MaxQty) {
			acc.invoice.MaxQty = line.Quantity
		}
		acc.priceSum = acc.priceSum.Add(line.UnitPrice)
		acc.lineCount++
	}

	result := make([]*models.AggregatedInvoice, 0, len(order))
	for _, key := range order {
		acc := byKey[key]
		acc.invoice.LineCount = acc.lineCount
		if acc.lineCount > 0 {
			acc.invoice.AvgUnitPrice = acc.priceSum.Div(decimal.NewFromInt(int64(acc.lineCount)))
		}
		result = append(result, acc.invoice)
	}
	return result
}
