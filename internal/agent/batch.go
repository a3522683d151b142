package agent

import (
	"context"
	"io"

	"invoice-reconciliation-service/internal/parsers"
	"invoice-reconciliation-service/pkg/errors"
)

// batchColumns are the canonical column names of a batch file. vendor_name
// is optional.
var batchColumns = []string{"invoice_id", "po_number"}

var batchAliases = map[string]string{
	"invoice": "invoice_id",
	"inv_id":  "invoice_id",
	"po":      "po_number",
	"po_id":   "po_number",
	"vendor":  "vendor_name",
	"name":    "vendor_name",
}

// LoadBatch reads the batch CSV listing the pairs to reconcile. Rows missing
// either identifier are skipped.
func LoadBatch(ctx context.Context, path string) ([]*BatchItem, error) {
	bp := parsers.NewBaseParser(parsers.DefaultParseConfig(), batchAliases)

	file, reader, err := bp.OpenFile(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	parseCtx := parsers.NewParseContext(ctx)
	if err := bp.ReadHeaders(reader, parseCtx, batchColumns); err != nil {
		return nil, errors.ParseError(errors.CodeMissingColumn, path, parseCtx.LineNumber, "headers", "", err)
	}

	var items []*BatchItem
	for {
		record, err := bp.ReadRecord(reader, parseCtx)
		if err != nil {
			if err == io.EOF {
				break
			}
			continue
		}

		item := &BatchItem{
			InvoiceID:  bp.FieldValue(record, parseCtx, "invoice_id"),
			PONumber:   bp.FieldValue(record, parseCtx, "po_number"),
			VendorName: bp.FieldValue(record, parseCtx, "vendor_name"),
		}
		if item.InvoiceID == "" || item.PONumber == "" {
			continue
		}
		items = append(items, item)
	}
	return items, nil
}
