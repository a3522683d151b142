// Package reporter renders reconciliation run results and training reports.
// Console output goes through an io.Writer so tests can capture it; file
// outputs cover JSON, XLSX and the labelled feature table as CSV.
package reporter

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"github.com/xuri/excelize/v2"

	"invoice-reconciliation-service/internal/agent"
	"invoice-reconciliation-service/internal/classifier"
	"invoice-reconciliation-service/internal/features"
	"invoice-reconciliation-service/pkg/errors"
	"invoice-reconciliation-service/pkg/logger"
)

// Format selects the run report output format.
type Format string

const (
	FormatConsole Format = "console"
	FormatJSON    Format = "json"
	FormatXLSX    Format = "xlsx"
)

// ReportConfig controls run report rendering.
type ReportConfig struct {
	Format Format
	// OutputFile is required for the xlsx format and optional otherwise;
	// console and json fall back to Writer when it is empty.
	OutputFile string
	Writer     io.Writer
}

// DefaultReportConfig renders a console report to stdout.
func DefaultReportConfig() *ReportConfig {
	return &ReportConfig{Format: FormatConsole, Writer: os.Stdout}
}

// ReportGenerator renders run states in the configured format.
type ReportGenerator struct {
	config *ReportConfig
	logger logger.Logger
}

// NewReportGenerator validates the configuration and builds a generator.
func NewReportGenerator(config *ReportConfig) (*ReportGenerator, error) {
	if config == nil {
		config = DefaultReportConfig()
	}
	switch config.Format {
	case FormatConsole, FormatJSON, FormatXLSX:
	default:
		return nil, errors.ConfigurationError(errors.CodeInvalidConfig,
			fmt.Sprintf("unknown report format %q", config.Format), nil)
	}
	if config.Format == FormatXLSX && config.OutputFile == "" {
		return nil, errors.ConfigurationError(errors.CodeInvalidConfig,
			"xlsx reports require an output file", nil)
	}
	if config.Writer == nil {
		config.Writer = os.Stdout
	}
	return &ReportGenerator{
		config: config,
		logger: logger.GetGlobalLogger().WithComponent("reporter"),
	}, nil
}

// GenerateRunReport renders the outcome of an orchestration run.
func (g *ReportGenerator) GenerateRunReport(state *agent.RunState) error {
	switch g.config.Format {
	case FormatJSON:
		return g.writeJSON(state)
	case FormatXLSX:
		return g.writeXLSX(state)
	default:
		return g.writeConsole(state)
	}
}

func (g *ReportGenerator) writeConsole(state *agent.RunState) error {
	w, closeFn, err := g.outputWriter()
	if err != nil {
		return err
	}
	defer closeFn()

	fmt.Fprintf(w, "Reconciliation Run: %s\n", state.Status)
	fmt.Fprintln(w, "========================================")
	for _, task := range state.Tasks {
		fmt.Fprintf(w, "\n%s / %s", task.InvoiceID, task.PONumber)
		if task.VendorName != "" {
			fmt.Fprintf(w, " (%s)", task.VendorName)
		}
		fmt.Fprintln(w)
		if task.Error != "" {
			fmt.Fprintf(w, "  FAILED: %s\n", task.Error)
			continue
		}
		if task.Result != nil {
			fmt.Fprintf(w, "  Status:     %s (confidence %.2f)\n", task.Result.Status, task.Result.Confidence)
			fmt.Fprintf(w, "  Explanation: %s\n", task.Result.Explanation)
		}
		if task.NeedsEmail {
			fmt.Fprintf(w, "  Email:      needed (%s)\n", task.EmailReason)
		}
	}

	if s := state.Summary; s != nil {
		fmt.Fprintln(w, "\n========================================")
		fmt.Fprintf(w, "Total:           %d\n", s.Total)
		fmt.Fprintf(w, "Clean matches:   %d\n", s.CleanMatches)
		fmt.Fprintf(w, "Partial matches: %d\n", s.PartialMatches)
		fmt.Fprintf(w, "Mismatches:      %d\n", s.Mismatches)
		fmt.Fprintf(w, "Emails to send:  %d\n", s.EmailsToSend)
		if s.Failed > 0 {
			fmt.Fprintf(w, "Failed tasks:    %d\n", s.Failed)
		}
		if s.ApprovalRequired {
			fmt.Fprintln(w, "\nHuman approval required before any email is sent.")
		}
	}
	return nil
}

func (g *ReportGenerator) writeJSON(state *agent.RunState) error {
	w, closeFn, err := g.outputWriter()
	if err != nil {
		return err
	}
	defer closeFn()

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(state); err != nil {
		return errors.Wrap(err, errors.CategoryInternal, errors.CodeUnexpectedError, "failed to encode run report")
	}
	return nil
}

func (g *ReportGenerator) writeXLSX(state *agent.RunState) error {
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)

	headers := []string{
		"invoice_id", "po_number", "vendor_name", "status", "confidence",
		"needs_email", "email_reason", "explanation", "error",
	}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheet, cell, h)
	}

	for i, task := range state.Tasks {
		r := i + 2
		set := func(col int, value interface{}) {
			cell, _ := excelize.CoordinatesToCellName(col, r)
			_ = f.SetCellValue(sheet, cell, value)
		}

		set(1, task.InvoiceID)
		set(2, task.PONumber)
		set(3, task.VendorName)
		if task.Result != nil {
			set(4, string(task.Result.Status))
			set(5, task.Result.Confidence)
			set(8, task.Result.Explanation)
		}
		set(6, task.NeedsEmail)
		set(7, task.EmailReason)
		set(9, task.Error)
	}

	if err := os.MkdirAll(filepath.Dir(g.config.OutputFile), 0755); err != nil {
		return errors.FileError(errors.CodeFileWrite, g.config.OutputFile, err)
	}
	if err := f.SaveAs(g.config.OutputFile); err != nil {
		return errors.FileError(errors.CodeFileWrite, g.config.OutputFile, err)
	}

	g.logger.WithField("path", g.config.OutputFile).Info("XLSX run report written")
	return nil
}

func (g *ReportGenerator) outputWriter() (io.Writer, func(), error) {
	if g.config.OutputFile == "" {
		return g.config.Writer, func() {}, nil
	}
	if err := os.MkdirAll(filepath.Dir(g.config.OutputFile), 0755); err != nil {
		return nil, nil, errors.FileError(errors.CodeFileWrite, g.config.OutputFile, err)
	}
	f, err := os.Create(g.config.OutputFile)
	if err != nil {
		return nil, nil, errors.FileError(errors.CodeFileWrite, g.config.OutputFile, err)
	}
	return f, func() { f.Close() }, nil
}

// WriteTrainingReport writes the evaluation metrics as JSON and a short
// console summary.
func WriteTrainingReport(report *classifier.EvalReport, path string, w io.Writer) error {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return errors.Wrap(err, errors.CategoryInternal, errors.CodeUnexpectedError, "failed to encode metrics")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return errors.FileError(errors.CodeFileWrite, path, err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return errors.FileError(errors.CodeFileWrite, path, err)
	}

	if w != nil {
		fmt.Fprintln(w, "Training Report")
		fmt.Fprintln(w, "========================================")
		fmt.Fprintf(w, "Accuracy:   %.3f\n", report.Accuracy)
		fmt.Fprintf(w, "Precision:  %.3f\n", report.Precision)
		fmt.Fprintf(w, "Recall:     %.3f\n", report.Recall)
		fmt.Fprintf(w, "F1:         %.3f\n", report.F1)
		fmt.Fprintf(w, "Features:   %d selected\n", len(report.SelectedFeatures))
		fmt.Fprintln(w, "\nTop feature weights:")
		for i, imp := range report.FeatureImportances {
			if i >= 5 {
				break
			}
			fmt.Fprintf(w, "  %-26s %+.4f\n", imp.Feature, imp.Weight)
		}
	}
	return nil
}

// WriteFeatureTable writes the labelled training examples as a CSV feature
// table, one column per canonical feature plus identity and label columns.
func WriteFeatureTable(examples []*features.LabelledExample, path string) error {
	n := len(examples)
	invoiceIDs := make([]string, n)
	poNumbers := make([]string, n)
	labels := make([]float64, n)
	columns := make(map[string][]float64, len(features.CanonicalFeatures))
	for _, name := range features.CanonicalFeatures {
		columns[name] = make([]float64, n)
	}

	for i, ex := range examples {
		invoiceIDs[i] = ex.Row.InvoiceID
		poNumbers[i] = ex.Row.PONumber
		labels[i] = ex.IsMismatch
		for _, name := range features.CanonicalFeatures {
			columns[name][i] = ex.Row.Value(name)
		}
	}

	cols := []series.Series{
		series.New(invoiceIDs, series.String, "invoice_id"),
		series.New(poNumbers, series.String, "po_number"),
	}
	for _, name := range features.CanonicalFeatures {
		cols = append(cols, series.New(columns[name], series.Float, name))
	}
	cols = append(cols, series.New(labels, series.Float, "is_mismatch"))

	df := dataframe.New(cols...)
	if df.Err != nil {
		return errors.Wrap(df.Err, errors.CategoryInternal, errors.CodeUnexpectedError, "failed to build feature table")
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return errors.FileError(errors.CodeFileWrite, path, err)
	}
	f, err := os.Create(path)
	if err != nil {
		return errors.FileError(errors.CodeFileWrite, path, err)
	}
	defer f.Close()

	if err := df.WriteCSV(f); err != nil {
		return errors.FileError(errors.CodeFileWrite, path, err)
	}
	return nil
}
