// Package generator produces synthetic reconciliation datasets for offline
// evaluation. Base data and corruption are driven by separate seeds so the
// anomaly stream can be varied without regenerating the clean ledger.
package generator

import (
	"encoding/csv"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"time"

	"github.com/shopspring/decimal"

	"invoice-reconciliation-service/internal/models"
	"invoice-reconciliation-service/pkg/errors"
	"invoice-reconciliation-service/pkg/logger"
)

// Config controls dataset generation.
type Config struct {
	Invoices int
	// Seed drives the clean ledger; CorruptionSeed drives the injected
	// anomalies. Keeping them independent lets one vary without the other.
	Seed           int64
	CorruptionSeed int64

	// Anomaly rates over the invoice population.
	MissingPORate  float64
	MissingGRNRate float64
	CurrencyRate   float64
	PriceRate      float64
}

// DefaultConfig returns the standard generation rates.
func DefaultConfig() *Config {
	return &Config{
		Invoices:       200,
		Seed:           7,
		CorruptionSeed: 99,
		MissingPORate:  0.15,
		MissingGRNRate: 0.15,
		CurrencyRate:   0.05,
		PriceRate:      0.10,
	}
}

var vendors = []struct {
	id   string
	name string
}{
	{"V001", "Acme Supplies Ltd"},
	{"V002", "Globex Inc"},
	{"V003", "Initech Solutions"},
	{"V004", "Umbrella Logistics"},
	{"V005", "Stark Industrial"},
	{"V006", "Wayne Materials Co"},
}

var currencies = []string{"USD", "EUR", "GBP"}

// Generate writes invoices.csv, po_grn.csv and labelled_mismatches.csv into
// outDir. Output is deterministic for a fixed config.
func Generate(cfg *Config, outDir string) error {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if cfg.Invoices <= 0 {
		return errors.ConfigurationError(errors.CodeInvalidConfig, "invoice count must be positive", nil)
	}
	if err := os.MkdirAll(outDir, 0755); err != nil {
		return errors.FileError(errors.CodeFileWrite, outDir, err)
	}

	rng := rand.New(rand.NewSource(cfg.Seed))
	crng := rand.New(rand.NewSource(cfg.CorruptionSeed))
	log := logger.GetGlobalLogger().WithComponent("generator")

	var invoiceRows, poRows, mismatchRows [][]string
	baseDate := time.Date(2025, 1, 6, 0, 0, 0, 0, time.UTC)

	mismatches := 0
	for i := 1; i <= cfg.Invoices; i++ {
		invoiceID := fmt.Sprintf("INV%04d", i)
		poNumber := fmt.Sprintf("PO%04d", i)
		vendor := vendors[rng.Intn(len(vendors))]
		currency := currencies[rng.Intn(len(currencies))]

		poDate := baseDate.AddDate(0, 0, rng.Intn(300))
		grnDate := poDate.AddDate(0, 0, 1+rng.Intn(5))
		invoiceDate := grnDate.AddDate(0, 0, rng.Intn(20))

		lineCount := 1 + rng.Intn(3)
		total := decimal.Zero
		for line := 1; line <= lineCount; line++ {
			qty := decimal.NewFromInt(int64(1 + rng.Intn(20)))
			unitPrice := decimal.NewFromFloat(float64(rng.Intn(20000)+100) / 100)
			lineTotal := qty.Mul(unitPrice)
			total = total.Add(lineTotal)

			invoiceRows = append(invoiceRows, []string{
				invoiceID, vendor.id, vendor.name, currency,
				fmt.Sprintf("%d", line),
				qty.String(), unitPrice.StringFixed(2), lineTotal.StringFixed(2),
				invoiceDate.Format("02/01/2006"),
			})
		}

		poTotal := total
		poCurrency := currency
		grnNumber := fmt.Sprintf("GRN%04d", i)
		grnDateStr := grnDate.Format("2006-01-02")
		dropPO := false

		// Corruption decisions come from the corruption stream only.
		switch {
		case crng.Float64() < cfg.MissingPORate:
			dropPO = true
			mismatchRows = append(mismatchRows, []string{
				invoiceID, poNumber, models.MismatchMissingPO, "",
			})
			mismatches++
		case crng.Float64() < cfg.PriceRate:
			variance := decimal.NewFromFloat(float64(crng.Intn(40000)+10000) / 100)
			poTotal = total.Sub(variance)
			mismatchRows = append(mismatchRows, []string{
				invoiceID, poNumber, models.MismatchPriceVariance, variance.StringFixed(2),
			})
			mismatches++
		case crng.Float64() < cfg.CurrencyRate:
			poCurrency = currencies[(indexOfCurrency(currency)+1)%len(currencies)]
			mismatchRows = append(mismatchRows, []string{
				invoiceID, poNumber, models.MismatchTaxMiscode, "",
			})
			mismatches++
		}

		if crng.Float64() < cfg.MissingGRNRate {
			grnNumber = ""
			grnDateStr = ""
		}

		if !dropPO {
			poRows = append(poRows, []string{
				poNumber, vendor.id, vendor.name, poCurrency,
				poTotal.StringFixed(2), poDate.Format("2006-01-02"),
				grnNumber, grnDateStr,
			})
		}
	}

	if err := writeCSV(filepath.Join(outDir, "invoices.csv"),
		[]string{"invoice_id", "vendor_id", "vendor_name", "currency", "line_item_number", "quantity", "unit_price", "line_total", "invoice_date"},
		invoiceRows); err != nil {
		return err
	}
	if err := writeCSV(filepath.Join(outDir, "po_grn.csv"),
		[]string{"po_number", "vendor_id", "vendor_name", "currency", "po_total", "po_date", "grn_number", "grn_date"},
		poRows); err != nil {
		return err
	}
	if err := writeCSV(filepath.Join(outDir, "labelled_mismatches.csv"),
		[]string{"invoice_id", "po_number", "mismatch_type", "difference"},
		mismatchRows); err != nil {
		return err
	}

	log.WithFields(logger.Fields{
		"invoices":   cfg.Invoices,
		"mismatches": mismatches,
		"out_dir":    outDir,
	}).Info("Synthetic dataset generated")
	return nil
}

func indexOfCurrency(c string) int {
	for i, cur := range currencies {
		if cur == c {
			return i
		}
	}
	return 0
}

func writeCSV(path string, header []string, rows [][]string) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.FileError(errors.CodeFileWrite, path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(header); err != nil {
		return errors.FileError(errors.CodeFileWrite, path, err)
	}
	for _, row := range rows {
		if err := w.Write(row); err != nil {
			return errors.FileError(errors.CodeFileWrite, path, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return errors.FileError(errors.CodeFileWrite, path, err)
	}
	return nil
}
