// Package parsers loads the three reconciliation record sets from CSV:
// invoice line items, combined purchase-order/goods-receipt records, and
// historical labelled mismatches.
//
// Parsing is tolerant by design: malformed individual fields degrade to
// nulls (nil dates, zero amounts) and are counted in ParseStats, never
// aborting the batch. Only a missing input file is fatal.
package parsers

import (
	"bufio"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"

	"invoice-reconciliation-service/pkg/errors"
	"invoice-reconciliation-service/pkg/logger"
)

// ParseError records a single degraded field or skipped row.
type ParseError struct {
	Line    int
	Field   string
	Value   string
	Message string
	Err     error
}

func (e *ParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("parse error at line %d (%s='%s'): %s: %v",
			e.Line, e.Field, e.Value, e.Message, e.Err)
	}
	return fmt.Sprintf("parse error at line %d (%s='%s'): %s",
		e.Line, e.Field, e.Value, e.Message)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// ParseConfig holds CSV parsing options shared by all record parsers.
type ParseConfig struct {
	HasHeader        bool
	Delimiter        rune
	TrimLeadingSpace bool
	SkipEmptyRows    bool
}

// DefaultParseConfig returns sensible defaults for the reconciliation CSVs.
func DefaultParseConfig() *ParseConfig {
	return &ParseConfig{
		HasHeader:        true,
		Delimiter:        ',',
		TrimLeadingSpace: true,
		SkipEmptyRows:    true,
	}
}

// ParseStats summarizes a parse run.
type ParseStats struct {
	TotalLines    int
	RecordsParsed int
	RecordsValid  int
	Errors        []*ParseError
}

// NewParseStats creates empty parse statistics.
func NewParseStats() *ParseStats {
	return &ParseStats{Errors: make([]*ParseError, 0)}
}

// AddError appends a degraded-field record to the statistics.
func (s *ParseStats) AddError(err *ParseError) {
	s.Errors = append(s.Errors, err)
}

// GetSampleErrors returns up to n errors for log output.
func (s *ParseStats) GetSampleErrors(n int) []*ParseError {
	if len(s.Errors) <= n {
		return s.Errors
	}
	return s.Errors[:n]
}

// ParseContext holds per-file state during a parse run.
type ParseContext struct {
	LineNumber int
	Headers    []string
	HeaderMap  map[string]int
	ctx        context.Context
}

// NewParseContext creates a parsing context bound to ctx.
func NewParseContext(ctx context.Context) *ParseContext {
	if ctx == nil {
		ctx = context.Background()
	}
	return &ParseContext{
		HeaderMap: make(map[string]int),
		ctx:       ctx,
	}
}

// IsCancelled reports whether the surrounding context was cancelled.
func (pc *ParseContext) IsCancelled() bool {
	select {
	case <-pc.ctx.Done():
		return true
	default:
		return false
	}
}

// BaseParser provides the shared CSV machinery: file opening, header
// validation with alias resolution, and field access by logical column name.
type BaseParser struct {
	config  *ParseConfig
	aliases map[string]string
	logger  logger.Logger
}

// NewBaseParser creates a BaseParser. The aliases map resolves alternative
// header spellings onto canonical column names.
func NewBaseParser(config *ParseConfig, aliases map[string]string) *BaseParser {
	if config == nil {
		config = DefaultParseConfig()
	}
	return &BaseParser{
		config:  config,
		aliases: aliases,
		logger:  logger.GetGlobalLogger().WithComponent("csv_parser"),
	}
}

// OpenFile opens a CSV file for reading. A missing file is fatal for the
// whole load (ConfigurationError at the caller).
func (bp *BaseParser) OpenFile(filePath string) (*os.File, *csv.Reader, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, nil, errors.FileError(errors.CodeFileNotFound, filePath, err)
	}

	reader := csv.NewReader(bufio.NewReader(file))
	reader.Comma = bp.config.Delimiter
	reader.TrimLeadingSpace = bp.config.TrimLeadingSpace
	reader.FieldsPerRecord = -1

	return file, reader, nil
}

// ReadHeaders reads the header row and validates the required columns are
// present, applying alias resolution.
func (bp *BaseParser) ReadHeaders(reader *csv.Reader, parseCtx *ParseContext, required []string) error {
	if !bp.config.HasHeader {
		return fmt.Errorf("header row is required for reconciliation files")
	}

	headers, err := reader.Read()
	if err != nil {
		return fmt.Errorf("failed to read header row: %w", err)
	}
	parseCtx.LineNumber++

	parseCtx.Headers = headers
	for i, h := range headers {
		name := bp.canonicalName(h)
		parseCtx.HeaderMap[name] = i
	}

	var missing []string
	for _, col := range required {
		if _, ok := parseCtx.HeaderMap[col]; !ok {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required columns: %s", strings.Join(missing, ", "))
	}

	return nil
}

func (bp *BaseParser) canonicalName(header string) string {
	name := strings.ToLower(strings.TrimSpace(header))
	if alias, ok := bp.aliases[name]; ok {
		return alias
	}
	return name
}

// ReadRecord reads the next data row, skipping empties when configured.
func (bp *BaseParser) ReadRecord(reader *csv.Reader, parseCtx *ParseContext) ([]string, error) {
	for {
		if parseCtx.IsCancelled() {
			return nil, context.Canceled
		}

		record, err := reader.Read()
		if err != nil {
			if err == io.EOF {
				return nil, io.EOF
			}
			parseCtx.LineNumber++
			return nil, err
		}
		parseCtx.LineNumber++

		if bp.config.SkipEmptyRows && isEmptyRecord(record) {
			continue
		}
		return record, nil
	}
}

// FieldValue returns the value of the named column in the record, or ""
// when the column is absent from this row.
func (bp *BaseParser) FieldValue(record []string, parseCtx *ParseContext, column string) string {
	idx, ok := parseCtx.HeaderMap[column]
	if !ok || idx >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[idx])
}

func isEmptyRecord(record []string) bool {
	for _, field := range record {
		if strings.TrimSpace(field) != "" {
			return false
		}
	}
	return true
}
