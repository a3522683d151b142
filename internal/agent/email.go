package agent

import (
	"fmt"
	"math"
	"strings"

	"invoice-reconciliation-service/internal/policy"
)

// DraftEmail renders the follow-up email for one reconciled task. Tone,
// deadline and payment-hold wording follow the match status; the issue
// bullets mirror the decision-policy explanation; the summary block at the
// bottom is fixed.
func DraftEmail(task *Task) string {
	result := task.Result
	var b strings.Builder

	vendor := task.VendorName
	if vendor == "" {
		vendor = "Supplier"
	}

	switch result.Status {
	case policy.StatusMismatch:
		fmt.Fprintf(&b, "Subject: URGENT: Invoice %s reconciliation mismatch\n\n", task.InvoiceID)
		fmt.Fprintf(&b, "Dear %s,\n\n", vendor)
		fmt.Fprintf(&b, "Our reconciliation of invoice %s against purchase order %s has identified discrepancies that require your immediate attention:\n\n", task.InvoiceID, task.PONumber)
		writeIssueBullets(&b, result.Facts)
		b.WriteString("\nPayment of this invoice is on hold until these discrepancies are resolved. ")
		b.WriteString("Please respond within 5 business days with supporting documentation.\n")
	case policy.StatusPartial:
		fmt.Fprintf(&b, "Subject: Review Required: Invoice %s\n\n", task.InvoiceID)
		fmt.Fprintf(&b, "Dear %s,\n\n", vendor)
		fmt.Fprintf(&b, "Invoice %s against purchase order %s could not be fully reconciled and needs review:\n\n", task.InvoiceID, task.PONumber)
		writeIssueBullets(&b, result.Facts)
		b.WriteString("\nPlease confirm the details above within 7 days so we can complete processing.\n")
	default:
		fmt.Fprintf(&b, "Subject: Clarification Requested: Invoice %s\n\n", task.InvoiceID)
		fmt.Fprintf(&b, "Dear %s,\n\n", vendor)
		fmt.Fprintf(&b, "Invoice %s against purchase order %s reconciled, but with lower confidence than our review threshold. ", task.InvoiceID, task.PONumber)
		b.WriteString("No action is required on payment; we would appreciate confirmation of the details below at your convenience.\n")
	}

	writeSummaryBlock(&b, task)
	b.WriteString("\nRegards,\nAccounts Payable\n")
	return b.String()
}

func writeIssueBullets(b *strings.Builder, facts policy.Facts) {
	if facts.POMissing {
		b.WriteString("  - The referenced purchase order was not found in our records\n")
	}
	if !facts.VendorMatch {
		b.WriteString("  - The vendor name on the invoice does not match the purchase order\n")
	}
	if math.Abs(facts.AmountDelta) > policy.AmountDeltaMaterial {
		fmt.Fprintf(b, "  - The invoice amount differs from the purchase order by %.2f\n", math.Abs(facts.AmountDelta))
	}
	if !facts.HasGRN {
		b.WriteString("  - No goods receipt has been recorded for this order\n")
	}
	if math.Abs(facts.DaysDelta) > 30 {
		fmt.Fprintf(b, "  - The invoice date is %.0f days away from the purchase order date\n", math.Abs(facts.DaysDelta))
	}
}

func writeSummaryBlock(b *strings.Builder, task *Task) {
	facts := task.Result.Facts
	b.WriteString("\n----------------------------------------\n")
	fmt.Fprintf(b, "Invoice:       %s\n", task.InvoiceID)
	fmt.Fprintf(b, "PO Number:     %s\n", task.PONumber)
	fmt.Fprintf(b, "Amount Delta:  %.2f\n", facts.AmountDelta)
	fmt.Fprintf(b, "Vendor Match:  %t\n", facts.VendorMatch)
	fmt.Fprintf(b, "GRN Received:  %t\n", facts.HasGRN)
	fmt.Fprintf(b, "PO Found:      %t\n", !facts.POMissing)
	b.WriteString("----------------------------------------\n")
}
