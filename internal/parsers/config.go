package parsers

// InvoiceColumns are the canonical column names of the invoice line file.
var InvoiceColumns = []string{
	"invoice_id", "vendor_id", "vendor_name", "currency",
	"line_item_number", "quantity", "unit_price", "line_total", "invoice_date",
}

// PurchaseOrderColumns are the canonical column names of the combined
// purchase-order / goods-receipt file. The GRN columns are nullable and not
// required in the header.
var PurchaseOrderColumns = []string{
	"po_number", "vendor_id", "vendor_name", "currency", "po_total", "po_date",
}

// MismatchColumns are the canonical column names of the historical labelled
// mismatch file.
var MismatchColumns = []string{
	"invoice_id", "po_number", "mismatch_type", "difference",
}

// invoiceAliases maps header spellings seen in vendor exports onto the
// canonical invoice column names.
var invoiceAliases = map[string]string{
	"inv_id":      "invoice_id",
	"invoice":     "invoice_id",
	"supplier_id": "vendor_id",
	"supplier":    "vendor_name",
	"ccy":         "currency",
	"line_no":     "line_item_number",
	"qty":         "quantity",
	"price":       "unit_price",
	"amount":      "line_total",
	"total":       "line_total",
	"date":        "invoice_date",
	"inv_date":    "invoice_date",
}

// purchaseOrderAliases maps header spellings onto the canonical PO columns.
var purchaseOrderAliases = map[string]string{
	"po":          "po_number",
	"po_id":       "po_number",
	"supplier_id": "vendor_id",
	"supplier":    "vendor_name",
	"ccy":         "currency",
	"amount":      "po_total",
	"total":       "po_total",
	"date":        "po_date",
	"grn":         "grn_number",
	"receipt":     "grn_number",
	"grn_dt":      "grn_date",
	"receipt_date": "grn_date",
}

// mismatchAliases maps header spellings onto the canonical mismatch columns.
var mismatchAliases = map[string]string{
	"inv_id": "invoice_id",
	"po":     "po_number",
	"type":   "mismatch_type",
	"reason": "mismatch_type",
	"delta":  "difference",
}

// LoaderConfig names the three input files inside a data directory and
// carries the shared CSV options.
type LoaderConfig struct {
	InvoiceFile       string
	PurchaseOrderFile string
	MismatchFile      string
	Parse             *ParseConfig
}

// DefaultLoaderConfig returns the standard file layout within a data
// directory.
func DefaultLoaderConfig() *LoaderConfig {
	return &LoaderConfig{
		InvoiceFile:       "invoices.csv",
		PurchaseOrderFile: "po_grn.csv",
		MismatchFile:      "labelled_mismatches.csv",
		Parse:             DefaultParseConfig(),
	}
}

// Validate checks the loader configuration.
func (c *LoaderConfig) Validate() error {
	if c.InvoiceFile == "" || c.PurchaseOrderFile == "" || c.MismatchFile == "" {
		return errInvalidLoaderConfig
	}
	return nil
}

var errInvalidLoaderConfig = configError("loader config requires invoice, purchase-order and mismatch file names")

type configError string

func (e configError) Error() string { return string(e) }
