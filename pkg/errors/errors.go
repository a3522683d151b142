package errors

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

// ErrorCategory groups errors by the subsystem that raised them.
type ErrorCategory string

const (
	CategoryFile          ErrorCategory = "file"
	CategoryParse         ErrorCategory = "parse"
	CategoryValidation    ErrorCategory = "validation"
	CategoryConfiguration ErrorCategory = "configuration"
	CategoryData          ErrorCategory = "data"
	CategoryTool          ErrorCategory = "tool"
	CategoryModel         ErrorCategory = "model"
	CategoryInternal      ErrorCategory = "internal"
)

// ErrorCode identifies a specific error condition within a category.
type ErrorCode string

const (
	// File errors
	CodeFileNotFound ErrorCode = "file_not_found"
	CodeFileRead     ErrorCode = "file_read"
	CodeFileWrite    ErrorCode = "file_write"

	// Parse errors
	CodeInvalidFormat ErrorCode = "invalid_format"
	CodeMissingColumn ErrorCode = "missing_column"
	CodeInvalidData   ErrorCode = "invalid_data"

	// Validation errors
	CodeInvalidAmount ErrorCode = "invalid_amount"
	CodeInvalidDate   ErrorCode = "invalid_date"
	CodeMissingField  ErrorCode = "missing_field"
	CodeOutOfRange    ErrorCode = "out_of_range"

	// Configuration errors
	CodeMissingDataset  ErrorCode = "missing_dataset"
	CodeMissingArtifact ErrorCode = "missing_artifact"
	CodeInvalidConfig   ErrorCode = "invalid_config"

	// Data errors
	CodePairNotFound ErrorCode = "pair_not_found"

	// Tool errors
	CodeToolNotPermitted ErrorCode = "tool_not_permitted"
	CodeToolArgument     ErrorCode = "tool_argument"
	CodeToolExecution    ErrorCode = "tool_execution"

	// Model errors
	CodeNoUsableFeatures ErrorCode = "no_usable_features"
	CodeTrainingFailed   ErrorCode = "training_failed"
	CodeArtifactCorrupt  ErrorCode = "artifact_corrupt"

	// Internal errors
	CodeUnexpectedError ErrorCode = "unexpected_error"
)

// ReconcilerError is the base error type for all application errors.
type ReconcilerError struct {
	Category   ErrorCategory     `json:"category"`
	Code       ErrorCode         `json:"code"`
	Message    string            `json:"message"`
	Suggestion string            `json:"suggestion,omitempty"`
	Context    Context           `json:"context,omitempty"`
	Cause      error             `json:"-"`
	StackTrace errors.StackTrace `json:"-"`
}

// Context carries additional structured information about the error.
type Context map[string]interface{}

func (e *ReconcilerError) Error() string {
	if e.Suggestion != "" {
		return fmt.Sprintf("%s (suggestion: %s)", e.Message, e.Suggestion)
	}
	return e.Message
}

// Unwrap returns the underlying cause error.
func (e *ReconcilerError) Unwrap() error {
	return e.Cause
}

// GetExitCode maps the error category onto a process exit code.
func (e *ReconcilerError) GetExitCode() int {
	switch e.Category {
	case CategoryFile:
		return 2
	case CategoryParse, CategoryValidation:
		return 3
	case CategoryConfiguration:
		return 4
	case CategoryModel, CategoryInternal:
		return 5
	case CategoryTool:
		return 6
	default:
		return 1
	}
}

// WithContext attaches a key/value pair to the error context.
func (e *ReconcilerError) WithContext(key string, value interface{}) *ReconcilerError {
	if e.Context == nil {
		e.Context = make(Context)
	}
	e.Context[key] = value
	return e
}

// WithSuggestion attaches a remediation hint to the error.
func (e *ReconcilerError) WithSuggestion(suggestion string) *ReconcilerError {
	e.Suggestion = suggestion
	return e
}

// New creates a new ReconcilerError.
func New(category ErrorCategory, code ErrorCode, message string) *ReconcilerError {
	return &ReconcilerError{
		Category:   category,
		Code:       code,
		Message:    message,
		StackTrace: errors.New("").(stackTracer).StackTrace(),
	}
}

// Wrap wraps an existing error with ReconcilerError context.
func Wrap(err error, category ErrorCategory, code ErrorCode, message string) *ReconcilerError {
	if err == nil {
		return nil
	}
	return &ReconcilerError{
		Category:   category,
		Code:       code,
		Message:    message,
		Cause:      err,
		StackTrace: errors.WithStack(err).(stackTracer).StackTrace(),
	}
}

type stackTracer interface {
	StackTrace() errors.StackTrace
}

// ConfigurationError reports a missing or invalid prerequisite (dataset file,
// model artifact, config value). Fatal: nothing is scored after one of these.
func ConfigurationError(code ErrorCode, subject string, err error) *ReconcilerError {
	var message, suggestion string

	switch code {
	case CodeMissingDataset:
		message = fmt.Sprintf("required dataset is missing: %s", subject)
		suggestion = "check the data directory path and that all three CSV files exist"
	case CodeMissingArtifact:
		message = fmt.Sprintf("model artifact not found: %s", subject)
		suggestion = "run 'reconciler train' first to produce a model artifact"
	case CodeInvalidConfig:
		message = fmt.Sprintf("invalid configuration: %s", subject)
		suggestion = "check the configuration values and flags"
	default:
		message = fmt.Sprintf("configuration error: %s", subject)
		suggestion = "check your configuration and try again"
	}

	var result *ReconcilerError
	if err != nil {
		result = Wrap(err, CategoryConfiguration, code, message)
	} else {
		result = New(CategoryConfiguration, code, message)
	}
	return result.WithSuggestion(suggestion).WithContext("subject", subject)
}

// DataNotFoundError reports that no feature row exists for a requested
// (invoice, purchase order) pair. Recoverable: callers surface it as
// found=false rather than failing the batch.
func DataNotFoundError(invoiceID, poNumber string) *ReconcilerError {
	return New(
		CategoryData,
		CodePairNotFound,
		fmt.Sprintf("no feature row for invoice %s / PO %s", invoiceID, poNumber),
	).
		WithContext("invoice_id", invoiceID).
		WithContext("po_number", poNumber)
}

// ToolNotPermittedError reports a capability name outside the guardrail
// allow-list. Fatal.
func ToolNotPermittedError(capability string, allowed []string) *ReconcilerError {
	return New(
		CategoryTool,
		CodeToolNotPermitted,
		fmt.Sprintf("capability '%s' is not permitted", capability),
	).
		WithSuggestion(fmt.Sprintf("allowed capabilities: %s", strings.Join(allowed, ", "))).
		WithContext("capability", capability)
}

// ToolArgumentError reports an invalid argument shape at the guardrail,
// raised before any dispatch happens. Fatal.
func ToolArgumentError(capability, detail string) *ReconcilerError {
	return New(
		CategoryTool,
		CodeToolArgument,
		fmt.Sprintf("invalid arguments for capability '%s': %s", capability, detail),
	).WithContext("capability", capability)
}

// ToolExecutionError wraps a failure raised inside a dispatched capability,
// preserving the original message and the capability name.
func ToolExecutionError(capability string, err error) *ReconcilerError {
	return Wrap(
		err,
		CategoryTool,
		CodeToolExecution,
		fmt.Sprintf("capability '%s' execution failed: %v", capability, err),
	).WithContext("capability", capability)
}

// FileError creates a file-related error.
func FileError(code ErrorCode, path string, err error) *ReconcilerError {
	var message, suggestion string

	switch code {
	case CodeFileNotFound:
		message = fmt.Sprintf("file not found: %s", path)
		suggestion = "check if the file path is correct and the file exists"
	case CodeFileRead:
		message = fmt.Sprintf("failed to read file: %s", path)
		suggestion = "check file permissions and ensure you have read access"
	case CodeFileWrite:
		message = fmt.Sprintf("failed to write file: %s", path)
		suggestion = "ensure the output directory exists and is writable"
	default:
		message = fmt.Sprintf("file error: %s", path)
		suggestion = "check the file and try again"
	}

	var result *ReconcilerError
	if err != nil {
		result = Wrap(err, CategoryFile, code, message)
	} else {
		result = New(CategoryFile, code, message)
	}
	return result.WithSuggestion(suggestion).WithContext("file_path", path)
}

// ParseError creates a parsing-related error tied to a file location.
func ParseError(code ErrorCode, file string, line int, column, value string, err error) *ReconcilerError {
	var message, suggestion string

	switch code {
	case CodeMissingColumn:
		message = fmt.Sprintf("missing required column '%s' in file %s", column, file)
		suggestion = "verify the file has all required columns with correct headers"
	case CodeInvalidData:
		message = fmt.Sprintf("invalid data in file %s at line %d, column '%s': '%s'", file, line, column, value)
		suggestion = "correct the data format or remove the invalid entry"
	default:
		message = fmt.Sprintf("parse error in file %s at line %d", file, line)
		suggestion = "check the file format and data integrity"
	}

	var result *ReconcilerError
	if err != nil {
		result = Wrap(err, CategoryParse, code, message)
	} else {
		result = New(CategoryParse, code, message)
	}
	return result.
		WithSuggestion(suggestion).
		WithContext("file", file).
		WithContext("line", line).
		WithContext("column", column)
}

// ModelError creates a classifier training or artifact error.
func ModelError(code ErrorCode, operation string, err error) *ReconcilerError {
	var message, suggestion string

	switch code {
	case CodeNoUsableFeatures:
		message = fmt.Sprintf("no usable features during %s: all candidate columns are constant", operation)
		suggestion = "check that the training data has variation across feature columns"
	case CodeTrainingFailed:
		message = fmt.Sprintf("model training failed during %s", operation)
		suggestion = "check label balance and feature values in the training set"
	case CodeArtifactCorrupt:
		message = fmt.Sprintf("model artifact is corrupt or unreadable (%s)", operation)
		suggestion = "retrain the model to regenerate the artifact"
	default:
		message = fmt.Sprintf("model error during %s", operation)
		suggestion = "review the training data and configuration"
	}

	var result *ReconcilerError
	if err != nil {
		result = Wrap(err, CategoryModel, code, message)
	} else {
		result = New(CategoryModel, code, message)
	}
	return result.WithSuggestion(suggestion).WithContext("operation", operation)
}

// Predicates

// IsConfigurationError reports whether err is fatal configuration trouble.
func IsConfigurationError(err error) bool {
	re, ok := AsReconcilerError(err)
	return ok && re.Category == CategoryConfiguration
}

// IsDataNotFound reports whether err signals an absent feature row.
func IsDataNotFound(err error) bool {
	re, ok := AsReconcilerError(err)
	return ok && re.Code == CodePairNotFound
}

// IsToolNotPermitted reports whether err is a guardrail allow-list rejection.
func IsToolNotPermitted(err error) bool {
	re, ok := AsReconcilerError(err)
	return ok && re.Code == CodeToolNotPermitted
}

// IsToolArgument reports whether err is a guardrail argument rejection.
func IsToolArgument(err error) bool {
	re, ok := AsReconcilerError(err)
	return ok && re.Code == CodeToolArgument
}

// IsToolExecution reports whether err wraps a capability failure.
func IsToolExecution(err error) bool {
	re, ok := AsReconcilerError(err)
	return ok && re.Code == CodeToolExecution
}

// AsReconcilerError extracts a ReconcilerError from an error chain.
func AsReconcilerError(err error) (*ReconcilerError, bool) {
	var reconcilerErr *ReconcilerError
	if errors.As(err, &reconcilerErr) {
		return reconcilerErr, true
	}
	return nil, false
}

// WrapIfNeeded wraps an error if it's not already a ReconcilerError.
func WrapIfNeeded(err error, category ErrorCategory, code ErrorCode, message string) *ReconcilerError {
	if err == nil {
		return nil
	}
	if reconcilerErr, ok := AsReconcilerError(err); ok {
		return reconcilerErr
	}
	return Wrap(err, category, code, message)
}
