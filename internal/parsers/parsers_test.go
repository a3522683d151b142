package parsers

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"invoice-reconciliation-service/internal/models"
	"invoice-reconciliation-service/pkg/errors"
)

func writeTestFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write test file: %v", err)
	}
	return path
}

func writeTestDataset(t *testing.T, dir string) {
	t.Helper()
	writeTestFile(t, dir, "invoices.csv",
		`invoice_id,vendor_id,vendor_name,currency,line_item_number,quantity,unit_price,line_total,invoice_date
INV0012,V001,Acme Supplies Ltd,USD,1,10,12.50,125.00,03/04/2025
INV0012,V001,Acme Supplies Ltd,USD,2,4,25.00,100.00,03/04/2025
INV0099,V002,Globex Inc,EUR,1,2,50.00,100.00,2025-04-10
`)
	writeTestFile(t, dir, "po_grn.csv",
		`po_number,vendor_id,vendor_name,currency,po_total,po_date,grn_number,grn_date
PO0012,V001,Acme Supplies Ltd,USD,225.00,2025-04-01,GRN0012,2025-04-02
PO0099,V002,Globex Inc,EUR,100.00,2025-04-05,,
`)
	writeTestFile(t, dir, "labelled_mismatches.csv",
		`invoice_id,po_number,mismatch_type,difference
INV0099,PO0099,PRICE_VARIANCE,15.00
`)
}

func TestLoadDataset(t *testing.T) {
	dir := t.TempDir()
	writeTestDataset(t, dir)

	loader, err := NewLoader(nil)
	if err != nil {
		t.Fatalf("Failed to create loader: %v", err)
	}

	ds, err := loader.LoadDataset(context.Background(), dir)
	if err != nil {
		t.Fatalf("LoadDataset failed: %v", err)
	}

	if len(ds.InvoiceLines) != 3 {
		t.Errorf("Expected 3 invoice lines, got %d", len(ds.InvoiceLines))
	}
	if len(ds.PurchaseOrders) != 2 {
		t.Errorf("Expected 2 purchase orders, got %d", len(ds.PurchaseOrders))
	}
	if len(ds.Mismatches) != 1 {
		t.Errorf("Expected 1 mismatch record, got %d", len(ds.Mismatches))
	}

	po := ds.PurchaseOrders[0]
	if !po.HasGRN() {
		t.Error("Expected PO0012 to have a GRN")
	}
	if ds.PurchaseOrders[1].HasGRN() {
		t.Error("Expected PO0099 to have no GRN")
	}
}

func TestLoadDatasetMissingFileIsFatal(t *testing.T) {
	dir := t.TempDir()
	// Only invoices present; po_grn.csv missing.
	writeTestFile(t, dir, "invoices.csv",
		"invoice_id,vendor_id,vendor_name,currency,line_item_number,quantity,unit_price,line_total,invoice_date\n")

	loader, _ := NewLoader(nil)
	_, err := loader.LoadDataset(context.Background(), dir)
	if err == nil {
		t.Fatal("Expected missing input file to be fatal")
	}
	if !errors.IsConfigurationError(err) {
		t.Errorf("Expected ConfigurationError, got %v", err)
	}
}

func TestMalformedFieldsDegradeToNulls(t *testing.T) {
	dir := t.TempDir()
	writeTestFile(t, dir, "invoices.csv",
		`invoice_id,vendor_id,vendor_name,currency,line_item_number,quantity,unit_price,line_total,invoice_date
INV0001,V001,Acme,USD,1,abc,not-a-price,50.00,garbage-date
`)

	loader, _ := NewLoader(nil)
	lines, stats, err := loader.ParseInvoiceLines(context.Background(), filepath.Join(dir, "invoices.csv"))
	if err != nil {
		t.Fatalf("Malformed fields must not abort the batch: %v", err)
	}

	if len(lines) != 1 {
		t.Fatalf("Expected row to survive with degraded fields, got %d rows", len(lines))
	}
	line := lines[0]
	if !line.Quantity.IsZero() {
		t.Errorf("Expected malformed quantity to degrade to zero, got %s", line.Quantity)
	}
	if line.InvoiceDate != nil {
		t.Error("Expected malformed date to degrade to nil")
	}
	if !line.LineTotal.Equal(decimal.NewFromFloat(50.00)) {
		t.Errorf("Expected valid line_total preserved, got %s", line.LineTotal)
	}
	if len(stats.Errors) == 0 {
		t.Error("Expected degraded fields recorded in parse stats")
	}
}

func TestHeaderAliasResolution(t *testing.T) {
	dir := t.TempDir()
	writeTestFile(t, dir, "invoices.csv",
		`invoice_id,supplier_id,supplier,ccy,line_no,qty,price,amount,inv_date
INV0001,V001,Acme,USD,1,3,10.00,30.00,2025-04-01
`)

	loader, _ := NewLoader(nil)
	lines, _, err := loader.ParseInvoiceLines(context.Background(), filepath.Join(dir, "invoices.csv"))
	if err != nil {
		t.Fatalf("Aliased headers must parse: %v", err)
	}
	if len(lines) != 1 {
		t.Fatalf("Expected 1 line, got %d", len(lines))
	}
	if lines[0].VendorID != "V001" || lines[0].VendorName != "Acme" {
		t.Errorf("Alias resolution failed: %+v", lines[0])
	}
}

func TestAggregateInvoices(t *testing.T) {
	d1 := time.Date(2025, 4, 3, 0, 0, 0, 0, time.UTC)
	d2 := time.Date(2025, 4, 4, 0, 0, 0, 0, time.UTC)

	lines := []*models.RawInvoiceLine{
		{InvoiceID: "INV0012", VendorID: "V001", VendorName: "Acme", Currency: "USD",
			LineItemNumber: 1, Quantity: decimal.NewFromInt(10), UnitPrice: decimal.NewFromFloat(12.50),
			LineTotal: decimal.NewFromFloat(125.00), InvoiceDate: &d1},
		{InvoiceID: "INV0012", VendorID: "V001", VendorName: "Acme", Currency: "USD",
			LineItemNumber: 2, Quantity: decimal.NewFromInt(4), UnitPrice: decimal.NewFromFloat(25.00),
			LineTotal: decimal.NewFromFloat(100.00), InvoiceDate: &d2},
		{InvoiceID: "INV0099", VendorID: "V002", VendorName: "Globex", Currency: "EUR",
			LineItemNumber: 1, Quantity: decimal.NewFromInt(2), UnitPrice: decimal.NewFromFloat(50.00),
			LineTotal: decimal.NewFromFloat(100.00)},
	}

	aggregated := AggregateInvoices(lines)
	if len(aggregated) != 2 {
		t.Fatalf("Expected 2 aggregated invoices, got %d", len(aggregated))
	}

	first := aggregated[0]
	if first.InvoiceID != "INV0012" {
		t.Errorf("Expected first-seen order preserved, got %s first", first.InvoiceID)
	}
	if !first.InvoiceTotal.Equal(decimal.NewFromFloat(225.00)) {
		t.Errorf("Expected invoice total 225.00, got %s", first.InvoiceTotal)
	}
	if first.LineCount != 2 {
		t.Errorf("Expected 2 lines, got %d", first.LineCount)
	}
	if !first.MaxQty.Equal(decimal.NewFromInt(10)) {
		t.Errorf("Expected max qty 10, got %s", first.MaxQty)
	}
	if !first.AvgUnitPrice.Equal(decimal.NewFromFloat(18.75)) {
		t.Errorf("Expected avg unit price 18.75, got %s", first.AvgUnitPrice)
	}
	if first.InvoiceDate == nil || !first.InvoiceDate.Equal(d1) {
		t.Errorf("Expected first occurrence date %s, got %v", d1, first.InvoiceDate)
	}
}

func TestAggregateInvoicesImmutableInput(t *testing.T) {
	d1 := time.Date(2025, 4, 3, 0, 0, 0, 0, time.UTC)
	line := &models.RawInvoiceLine{
		InvoiceID: "INV0001", VendorID: "V001", VendorName: "Acme", Currency: "USD",
		Quantity: decimal.NewFromInt(1), UnitPrice: decimal.NewFromFloat(10),
		LineTotal: decimal.NewFromFloat(10), InvoiceDate: &d1,
	}
	before := *line

	AggregateInvoices([]*models.RawInvoiceLine{line})

	if line.InvoiceID != before.InvoiceID || !line.LineTotal.Equal(before.LineTotal) {
		t.Error("Aggregation must not mutate its input")
	}
}
