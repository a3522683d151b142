package parsers

import (
	"context"
	"io"
	"path/filepath"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"invoice-reconciliation-service/internal/models"
	"invoice-reconciliation-service/pkg/errors"
	"invoice-reconciliation-service/pkg/logger"
)

// Dataset holds the three record sets loaded from a data directory.
type Dataset struct {
	InvoiceLines   []*models.RawInvoiceLine
	PurchaseOrders []*models.PurchaseOrderRecord
	Mismatches     []*models.MismatchRecord

	InvoiceStats  *ParseStats
	POStats       *ParseStats
	MismatchStats *ParseStats
}

// Loader reads the three reconciliation record sets from a data directory.
type Loader struct {
	config *LoaderConfig
	logger logger.Logger
}

// NewLoader creates a Loader with the given configuration.
func NewLoader(config *LoaderConfig) (*Loader, error) {
	if config == nil {
		config = DefaultLoaderConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, errors.ConfigurationError(errors.CodeInvalidConfig, "loader", err)
	}
	return &Loader{
		config: config,
		logger: logger.GetGlobalLogger().WithComponent("loader"),
	}, nil
}

// LoadDataset loads invoices, purchase orders and historical mismatches from
// dataDir. A missing file is a fatal ConfigurationError; malformed fields
// inside a file degrade to nulls and are reported in the per-file ParseStats.
func (l *Loader) LoadDataset(ctx context.Context, dataDir string) (*Dataset, error) {
	l.logger.WithField("data_dir", dataDir).Info("Loading reconciliation dataset")

	invoices, invStats, err := l.ParseInvoiceLines(ctx, filepath.Join(dataDir, l.config.InvoiceFile))
	if err != nil {
		return nil, errors.ConfigurationError(errors.CodeMissingDataset, l.config.InvoiceFile, err)
	}

	pos, poStats, err := l.ParsePurchaseOrders(ctx, filepath.Join(dataDir, l.config.PurchaseOrderFile))
	if err != nil {
		return nil, errors.ConfigurationError(errors.CodeMissingDataset, l.config.PurchaseOrderFile, err)
	}

	mismatches, mmStats, err := l.ParseMismatches(ctx, filepath.Join(dataDir, l.config.MismatchFile))
	if err != nil {
		return nil, errors.ConfigurationError(errors.CodeMissingDataset, l.config.MismatchFile, err)
	}

	l.logger.WithFields(logger.Fields{
		"invoice_lines":   len(invoices),
		"purchase_orders": len(pos),
		"mismatches":      len(mismatches),
	}).Info("Dataset loaded")

	return &Dataset{
		InvoiceLines:   invoices,
		PurchaseOrders: pos,
		Mismatches:     mismatches,
		InvoiceStats:   invStats,
		POStats:        poStats,
		MismatchStats:  mmStats,
	}, nil
}

// ParseInvoiceLines parses the invoice line-item file.
func (l *Loader) ParseInvoiceLines(ctx context.Context, filePath string) ([]*models.RawInvoiceLine, *ParseStats, error) {
	bp := NewBaseParser(l.config.Parse, invoiceAliases)
	stats := NewParseStats()

	file, reader, err := bp.OpenFile(filePath)
	if err != nil {
		return nil, stats, err
	}
	defer file.Close()

	parseCtx := NewParseContext(ctx)
	if err := bp.ReadHeaders(reader, parseCtx, InvoiceColumns); err != nil {
		return nil, stats, errors.ParseError(errors.CodeMissingColumn, filePath, parseCtx.LineNumber, "headers", "", err)
	}

	var lines []*models.RawInvoiceLine
	for {
		record, err := bp.ReadRecord(reader, parseCtx)
		if err != nil {
			if err == io.EOF {
				break
			}
			stats.AddError(&ParseError{Line: parseCtx.LineNumber, Message: "unreadable record", Err: err})
			continue
		}
		stats.RecordsParsed++

		line := l.invoiceLineFromRecord(bp, record, parseCtx, stats)
		if line == nil {
			continue
		}
		lines = append(lines, line)
		stats.RecordsValid++
	}
	stats.TotalLines = parseCtx.LineNumber

	l.logParseSummary(filePath, stats)
	return lines, stats, nil
}

func (l *Loader) invoiceLineFromRecord(bp *BaseParser, record []string, parseCtx *ParseContext, stats *ParseStats) *models.RawInvoiceLine {
	invoiceID := bp.FieldValue(record, parseCtx, "invoice_id")
	vendorID := bp.FieldValue(record, parseCtx, "vendor_id")
	if invoiceID == "" || vendorID == "" {
		stats.AddError(&ParseError{
			Line:    parseCtx.LineNumber,
			Field:   "invoice_id",
			Message: "row without invoice or vendor identity skipped",
		})
		return nil
	}

	line := &models.RawInvoiceLine{
		InvoiceID:  invoiceID,
		VendorID:   vendorID,
		VendorName: bp.FieldValue(record, parseCtx, "vendor_name"),
		Currency:   bp.FieldValue(record, parseCtx, "currency"),
	}

	if n, err := strconv.Atoi(bp.FieldValue(record, parseCtx, "line_item_number")); err == nil {
		line.LineItemNumber = n
	}

	line.Quantity = l.decimalField(bp, record, parseCtx, "quantity", stats)
	line.UnitPrice = l.decimalField(bp, record, parseCtx, "unit_price", stats)
	line.LineTotal = l.decimalField(bp, record, parseCtx, "line_total", stats)
	line.InvoiceDate = l.dateField(bp, record, parseCtx, "invoice_date", stats)

	return line
}

// ParsePurchaseOrders parses the combined PO/GRN file.
func (l *Loader) ParsePurchaseOrders(ctx context.Context, filePath string) ([]*models.PurchaseOrderRecord, *ParseStats, error) {
	bp := NewBaseParser(l.config.Parse, purchaseOrderAliases)
	stats := NewParseStats()

	file, reader, err := bp.OpenFile(filePath)
	if err != nil {
		return nil, stats, err
	}
	defer file.Close()

	parseCtx := NewParseContext(ctx)
	if err := bp.ReadHeaders(reader, parseCtx, PurchaseOrderColumns); err != nil {
		return nil, stats, errors.ParseError(errors.CodeMissingColumn, filePath, parseCtx.LineNumber, "headers", "", err)
	}

	var pos []*models.PurchaseOrderRecord
	for {
		record, err := bp.ReadRecord(reader, parseCtx)
		if err != nil {
			if err == io.EOF {
				break
			}
			stats.AddError(&ParseError{Line: parseCtx.LineNumber, Message: "unreadable record", Err: err})
			continue
		}
		stats.RecordsParsed++

		poNumber := bp.FieldValue(record, parseCtx, "po_number")
		if poNumber == "" {
			stats.AddError(&ParseError{
				Line:    parseCtx.LineNumber,
				Field:   "po_number",
				Message: "row without PO number skipped",
			})
			continue
		}

		po := &models.PurchaseOrderRecord{
			PONumber:   poNumber,
			VendorID:   bp.FieldValue(record, parseCtx, "vendor_id"),
			VendorName: bp.FieldValue(record, parseCtx, "vendor_name"),
			Currency:   bp.FieldValue(record, parseCtx, "currency"),
			GRNNumber:  bp.FieldValue(record, parseCtx, "grn_number"),
		}

		if raw := bp.FieldValue(record, parseCtx, "po_total"); raw != "" {
			if total, ok := models.ParseDecimalLenient(raw); ok {
				po.POTotal = total
				po.HasPOTotal = true
			} else {
				stats.AddError(&ParseError{
					Line: parseCtx.LineNumber, Field: "po_total", Value: raw,
					Message: "malformed amount degraded to null",
				})
			}
		}

		po.PODate = l.dateField(bp, record, parseCtx, "po_date", stats)
		po.GRNDate = l.dateField(bp, record, parseCtx, "grn_date", stats)

		pos = append(pos, po)
		stats.RecordsValid++
	}
	stats.TotalLines = parseCtx.LineNumber

	l.logParseSummary(filePath, stats)
	return pos, stats, nil
}

// ParseMismatches parses the historical labelled mismatch file.
func (l *Loader) ParseMismatches(ctx context.Context, filePath string) ([]*models.MismatchRecord, *ParseStats, error) {
	bp := NewBaseParser(l.config.Parse, mismatchAliases)
	stats := NewParseStats()

	file, reader, err := bp.OpenFile(filePath)
	if err != nil {
		return nil, stats, err
	}
	defer file.Close()

	parseCtx := NewParseContext(ctx)
	if err := bp.ReadHeaders(reader, parseCtx, MismatchColumns); err != nil {
		return nil, stats, errors.ParseError(errors.CodeMissingColumn, filePath, parseCtx.LineNumber, "headers", "", err)
	}

	var records []*models.MismatchRecord
	for {
		record, err := bp.ReadRecord(reader, parseCtx)
		if err != nil {
			if err == io.EOF {
				break
			}
			stats.AddError(&ParseError{Line: parseCtx.LineNumber, Message: "unreadable record", Err: err})
			continue
		}
		stats.RecordsParsed++

		invoiceID := bp.FieldValue(record, parseCtx, "invoice_id")
		if invoiceID == "" {
			stats.AddError(&ParseError{
				Line:    parseCtx.LineNumber,
				Field:   "invoice_id",
				Message: "mismatch row without invoice id skipped",
			})
			continue
		}

		records = append(records, &models.MismatchRecord{
			InvoiceID:    invoiceID,
			PONumber:     bp.FieldValue(record, parseCtx, "po_number"),
			MismatchType: bp.FieldValue(record, parseCtx, "mismatch_type"),
			Difference:   bp.FieldValue(record, parseCtx, "difference"),
		})
		stats.RecordsValid++
	}
	stats.TotalLines = parseCtx.LineNumber

	l.logParseSummary(filePath, stats)
	return records, stats, nil
}

func (l *Loader) decimalField(bp *BaseParser, record []string, parseCtx *ParseContext, column string, stats *ParseStats) decimal.Decimal {
	raw := bp.FieldValue(record, parseCtx, column)
	if raw == "" {
		return decimal.Zero
	}
	parsed, ok := models.ParseDecimalLenient(raw)
	if !ok {
		stats.AddError(&ParseError{
			Line: parseCtx.LineNumber, Field: column, Value: raw,
			Message: "malformed amount degraded to zero",
		})
		return decimal.Zero
	}
	return parsed
}

func (l *Loader) dateField(bp *BaseParser, record []string, parseCtx *ParseContext, column string, stats *ParseStats) *time.Time {
	raw := bp.FieldValue(record, parseCtx, column)
	if raw == "" {
		return nil
	}
	t, ok := models.ParseDateLenient(raw)
	if !ok {
		stats.AddError(&ParseError{
			Line: parseCtx.LineNumber, Field: column, Value: raw,
			Message: "unparseable date degraded to null",
		})
		return nil
	}
	return &t
}

func (l *Loader) logParseSummary(filePath string, stats *ParseStats) {
	log := l.logger.WithFields(logger.Fields{
		"file":           filePath,
		"records_parsed": stats.RecordsParsed,
		"records_valid":  stats.RecordsValid,
		"error_count":    len(stats.Errors),
	})
	log.Info("Parse completed")
	if len(stats.Errors) > 0 {
		log.WithField("sample_errors", stats.GetSampleErrors(3)).Warn("Some fields degraded during parsing")
	}
}
