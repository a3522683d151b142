package features

import (
	"invoice-reconciliation-service/internal/models"
	"invoice-reconciliation-service/pkg/logger"
)

// LabelledExample is a feature row joined with its historical ground truth.
// IsMismatch is 0/1 float64 to match the feature encoding.
type LabelledExample struct {
	Row          *FeatureRow `json:"row"`
	IsMismatch   float64     `json:"is_mismatch"`
	MismatchType string      `json:"mismatch_type,omitempty"`
	Difference   string      `json:"difference,omitempty"`
}

type labelKey struct {
	invoiceID string
	poNumber  string
}

// AttachLabels left-joins historical mismatch records onto feature rows by
// (invoice_id, po_number). Rows with no historical record are labelled as
// non-mismatches; the history is the only source of positive labels.
func AttachLabels(rows []*FeatureRow, mismatches []*models.MismatchRecord) []*LabelledExample {
	log := logger.GetGlobalLogger().WithComponent("labels")

	index := make(map[labelKey]*models.MismatchRecord, len(mismatches))
	for _, m := range mismatches {
		index[labelKey{m.InvoiceID, m.PONumber}] = m
	}

	examples := make([]*LabelledExample, 0, len(rows))
	positives := 0
	for _, row := range rows {
		example := &LabelledExample{Row: row}
		if m, ok := index[labelKey{row.InvoiceID, row.PONumber}]; ok {
			example.IsMismatch = 1
			example.MismatchType = m.MismatchType
			example.Difference = m.Difference
			positives++
		}
		examples = append(examples, example)
	}

	log.WithFields(logger.Fields{
		"examples":  len(examples),
		"positives": positives,
	}).Info("Attached historical labels")

	return examples
}
