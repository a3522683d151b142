package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"invoice-reconciliation-service/cmd/reconciler/config"
	"invoice-reconciliation-service/internal/classifier"
	"invoice-reconciliation-service/internal/features"
	"invoice-reconciliation-service/internal/linker"
	"invoice-reconciliation-service/internal/parsers"
	"invoice-reconciliation-service/internal/reporter"
)

// Flags for the train command
var (
	trainDataDir        string
	trainOutDir         string
	trainTestSize       float64
	trainSeed           int64
	trainSyntheticNoise bool
	trainCorruptionSeed int64
)

// trainCmd represents the train command
var trainCmd = &cobra.Command{
	Use:   "train",
	Short: "Train the mismatch classifier on historical reconciliation data",
	Long: `Train loads the dataset, builds the labelled feature table, fits the
mismatch classifier on a stratified split, and writes three artifacts to the
output directory: features.csv, metrics.json and model.json.

Examples:
  reconciler train --data-dir ./data --out-dir ./artifacts
  reconciler train --data-dir ./data --out-dir ./artifacts --test-size 0.3 --seed 7
  reconciler train --data-dir ./data --out-dir ./artifacts --synthetic-noise --corruption-seed 99`,

	PreRunE: validateTrainFlags,
	RunE:    runTrain,
}

func init() {
	rootCmd.AddCommand(trainCmd)

	trainCmd.Flags().StringVarP(&trainDataDir, "data-dir", "d", "", "directory with invoices.csv, po_grn.csv, labelled_mismatches.csv (required)")
	trainCmd.Flags().StringVarP(&trainOutDir, "out-dir", "o", "", "output directory for artifacts (required)")
	trainCmd.Flags().Float64Var(&trainTestSize, "test-size", 0.2, "held-out fraction of the stratified split")
	trainCmd.Flags().Int64Var(&trainSeed, "seed", 42, "random seed for the train/test split")
	trainCmd.Flags().BoolVar(&trainSyntheticNoise, "synthetic-noise", false, "apply synthetic corruption for offline evaluation datasets")
	trainCmd.Flags().Int64Var(&trainCorruptionSeed, "corruption-seed", 99, "seed for synthetic corruption (independent of --seed)")

	trainCmd.MarkFlagRequired("data-dir")
	trainCmd.MarkFlagRequired("out-dir")

	viper.BindPFlag("train.test-size", trainCmd.Flags().Lookup("test-size"))
	viper.BindPFlag("train.seed", trainCmd.Flags().Lookup("seed"))
}

func validateTrainFlags(cmd *cobra.Command, args []string) error {
	if trainDataDir == "" {
		return fmt.Errorf("data-dir is required")
	}
	if trainOutDir == "" {
		return fmt.Errorf("out-dir is required")
	}
	return config.ValidateDataDir(trainDataDir)
}

func runTrain(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	trainCfg, err := config.CreateTrainConfig(trainTestSize, trainSeed)
	if err != nil {
		return err
	}

	loader, err := parsers.NewLoader(nil)
	if err != nil {
		return err
	}
	ds, err := loader.LoadDataset(ctx, trainDataDir)
	if err != nil {
		return err
	}

	invoices := parsers.AggregateInvoices(ds.InvoiceLines)
	pairs := linker.Link(invoices, ds.PurchaseOrders)
	rows := features.ComputeAll(pairs)
	examples := features.AttachLabels(rows, ds.Mismatches)

	if trainSyntheticNoise {
		examples = features.CorruptExamples(examples, features.DefaultCorruptionConfig(trainCorruptionSeed))
		fmt.Fprintf(os.Stderr, "Applied synthetic corruption (seed %d)\n", trainCorruptionSeed)
	}

	model, report, err := classifier.Fit(examples, trainCfg)
	if err != nil {
		return err
	}

	if err := reporter.WriteFeatureTable(examples, filepath.Join(trainOutDir, "features.csv")); err != nil {
		return err
	}
	if err := reporter.WriteTrainingReport(report, filepath.Join(trainOutDir, "metrics.json"), os.Stdout); err != nil {
		return err
	}
	if err := classifier.SaveModel(model, filepath.Join(trainOutDir, "model.json")); err != nil {
		return err
	}

	fmt.Printf("\nArtifacts written to %s\n", trainOutDir)
	return nil
}
