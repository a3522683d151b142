// Package config builds component configurations from CLI flag values.
package config

import (
	"os"

	"invoice-reconciliation-service/internal/classifier"
	"invoice-reconciliation-service/internal/reporter"
	"invoice-reconciliation-service/pkg/errors"
)

// CreateTrainConfig builds the classifier hyperparameters from CLI flags.
func CreateTrainConfig(testSize float64, seed int64) (*classifier.TrainConfig, error) {
	if testSize <= 0 || testSize >= 1 {
		return nil, errors.ConfigurationError(errors.CodeInvalidConfig,
			"test-size must be between 0 and 1 exclusive", nil)
	}
	cfg := classifier.DefaultTrainConfig()
	cfg.TestSize = testSize
	cfg.Seed = seed
	return cfg, nil
}

// CreateReportConfig builds the report configuration from CLI flags.
func CreateReportConfig(format, outputFile string) (*reporter.ReportConfig, error) {
	cfg := &reporter.ReportConfig{
		Format:     reporter.Format(format),
		OutputFile: outputFile,
		Writer:     os.Stdout,
	}
	switch cfg.Format {
	case reporter.FormatConsole, reporter.FormatJSON, reporter.FormatXLSX:
		return cfg, nil
	default:
		return nil, errors.ConfigurationError(errors.CodeInvalidConfig,
			"output-format must be console, json or xlsx", nil)
	}
}

// ValidateDataDir checks that the data directory exists before any parsing
// starts, so the error points at the directory instead of the first file.
func ValidateDataDir(dataDir string) error {
	info, err := os.Stat(dataDir)
	if err != nil {
		return errors.ConfigurationError(errors.CodeMissingDataset, dataDir, err)
	}
	if !info.IsDir() {
		return errors.ConfigurationError(errors.CodeInvalidConfig, dataDir+" is not a directory", nil)
	}
	return nil
}
