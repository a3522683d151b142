package models

import (
	"testing"
	"time"
)

func TestParseDecimalLenient(t *testing.T) {
	cases := []struct {
		input string
		want  string
		ok    bool
	}{
		{"123.45", "123.45", true},
		{"$1,234.50", "1234.5", true},
		{" 99 ", "99", true},
		{"", "0", false},
		{"abc", "0", false},
		{"-42.10", "-42.1", true},
	}

	for _, tc := range cases {
		got, ok := ParseDecimalLenient(tc.input)
		if ok != tc.ok {
			t.Errorf("ParseDecimalLenient(%q): expected ok=%v, got %v", tc.input, tc.ok, ok)
			continue
		}
		if got.String() != tc.want {
			t.Errorf("ParseDecimalLenient(%q): expected %s, got %s", tc.input, tc.want, got.String())
		}
	}
}

func TestParseDateLenientDayFirst(t *testing.T) {
	// 03/04/2025 must resolve day-first: 3 April 2025.
	got, ok := ParseDateLenient("03/04/2025")
	if !ok {
		t.Fatal("Expected 03/04/2025 to parse")
	}
	if got.Day() != 3 || got.Month() != time.April || got.Year() != 2025 {
		t.Errorf("Expected 2025-04-03, got %s", got.Format("2006-01-02"))
	}
}

func TestParseDateLenientFormats(t *testing.T) {
	cases := []struct {
		input string
		want  string
	}{
		{"2025-04-03", "2025-04-03"},
		{"3/4/2025", "2025-04-03"},
		{"03-04-2025", "2025-04-03"},
		{"3 April 2025", "2025-04-03"},
		{"2025-04-03T10:30:00Z", "2025-04-03"},
	}

	for _, tc := range cases {
		got, ok := ParseDateLenient(tc.input)
		if !ok {
			t.Errorf("ParseDateLenient(%q): expected success", tc.input)
			continue
		}
		if got.Format("2006-01-02") != tc.want {
			t.Errorf("ParseDateLenient(%q): expected %s, got %s", tc.input, tc.want, got.Format("2006-01-02"))
		}
	}
}

func TestParseDateLenientFuzzyRecovery(t *testing.T) {
	got, ok := ParseDateLenient("invoiced on 03/04/2025 net30")
	if !ok {
		t.Fatal("Expected fuzzy recovery to find the embedded date")
	}
	if got.Format("2006-01-02") != "2025-04-03" {
		t.Errorf("Expected 2025-04-03, got %s", got.Format("2006-01-02"))
	}
}

func TestParseDateLenientFailure(t *testing.T) {
	if _, ok := ParseDateLenient("not a date"); ok {
		t.Error("Expected unparseable input to return ok=false")
	}
	if _, ok := ParseDateLenient(""); ok {
		t.Error("Expected empty input to return ok=false")
	}
}

func TestDaysBetween(t *testing.T) {
	a := time.Date(2025, 4, 10, 0, 0, 0, 0, time.UTC)
	b := time.Date(2025, 4, 3, 0, 0, 0, 0, time.UTC)

	if got := DaysBetween(&a, &b); got != 7 {
		t.Errorf("Expected 7 days, got %v", got)
	}
	if got := DaysBetween(&b, &a); got != -7 {
		t.Errorf("Expected -7 days, got %v", got)
	}
	if got := DaysBetween(nil, &b); got != 0 {
		t.Errorf("Expected 0 for missing date, got %v", got)
	}
	if got := DaysBetween(&a, nil); got != 0 {
		t.Errorf("Expected 0 for missing date, got %v", got)
	}
}

func TestPurchaseOrderHasGRN(t *testing.T) {
	po := &PurchaseOrderRecord{GRNNumber: "GRN0001"}
	if !po.HasGRN() {
		t.Error("Expected HasGRN true")
	}

	po.GRNNumber = "  "
	if po.HasGRN() {
		t.Error("Expected HasGRN false for whitespace")
	}
}

func TestLinkedPairPOMissing(t *testing.T) {
	pair := &LinkedPair{Invoice: AggregatedInvoice{InvoiceID: "INV1"}}
	if !pair.POMissing() {
		t.Error("Expected POMissing true when PO is nil")
	}

	pair.PO = &PurchaseOrderRecord{PONumber: "PO1"}
	if pair.POMissing() {
		t.Error("Expected POMissing false when PO is set")
	}
}
