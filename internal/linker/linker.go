// Package linker proposes a candidate purchase order for each aggregated
// invoice and joins the two catalogs on an exact key.
//
// Linking is a pure function of the two catalogs. Synthetic perturbation of
// links (marking a fraction as missing for evaluation datasets) lives in the
// testdata generator, never here.
package linker

import (
	"strings"

	"invoice-reconciliation-service/internal/models"
	"invoice-reconciliation-service/pkg/logger"
)

// invoicePrefix and poPrefix encode the documented candidate rule: an
// invoice number carrying the recognized invoice prefix maps onto the same
// number under the purchase-order prefix. Anything else passes through
// unchanged.
const (
	invoicePrefix = "INV"
	poPrefix      = "PO"
)

// CandidatePONumber derives the candidate purchase-order number for an
// invoice id: "INV0012" -> "PO0012"; unrecognized prefixes pass through.
// Pure function of the invoice id.
func CandidatePONumber(invoiceID string) string {
	if strings.HasPrefix(invoiceID, invoicePrefix) {
		return poPrefix + invoiceID[len(invoicePrefix):]
	}
	return invoiceID
}

type joinKey struct {
	poNumber string
	vendorID string
	currency string
}

// Link joins each aggregated invoice to the purchase order matching its
// candidate PO number with exact vendor and currency equality. Invoices with
// no match produce a pair whose PO is nil, so every PO-derived value is
// absent together. Output order follows the invoice catalog.
func Link(invoices []*models.AggregatedInvoice, pos []*models.PurchaseOrderRecord) []*models.LinkedPair {
	log := logger.GetGlobalLogger().WithComponent("linker")

	index := make(map[joinKey]*models.PurchaseOrderRecord, len(pos))
	for _, po := range pos {
		index[joinKey{po.PONumber, po.VendorID, po.Currency}] = po
	}

	pairs := make([]*models.LinkedPair, 0, len(invoices))
	linked := 0
	for _, inv := range invoices {
		candidate := CandidatePONumber(inv.InvoiceID)
		pair := &models.LinkedPair{
			Invoice:     *inv,
			CandidatePO: candidate,
		}
		if po, ok := index[joinKey{candidate, inv.VendorID, inv.Currency}]; ok {
			pair.PO = po
			linked++
		}
		pairs = append(pairs, pair)
	}

	log.WithFields(logger.Fields{
		"invoices": len(invoices),
		"linked":   linked,
		"missing":  len(invoices) - linked,
	}).Info("Linked invoices to purchase orders")

	return pairs
}
