package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"invoice-reconciliation-service/internal/generator"
)

// Flags for the generate-testdata command
var (
	genOutDir         string
	genInvoices       int
	genSeed           int64
	genCorruptionSeed int64
)

// generateTestdataCmd represents the generate-testdata command
var generateTestdataCmd = &cobra.Command{
	Use:   "generate-testdata",
	Short: "Generate a synthetic reconciliation dataset",
	Long: `Generate-testdata writes a synthetic invoices.csv, po_grn.csv and
labelled_mismatches.csv for offline evaluation. The clean ledger and the
injected anomalies use independent seeds, so either can be varied alone.

Examples:
  reconciler generate-testdata --out-dir ./data
  reconciler generate-testdata --out-dir ./data --invoices 500 --seed 7 --corruption-seed 99`,

	RunE: runGenerateTestdata,
}

func init() {
	rootCmd.AddCommand(generateTestdataCmd)

	generateTestdataCmd.Flags().StringVarP(&genOutDir, "out-dir", "o", "", "output directory (required)")
	generateTestdataCmd.Flags().IntVar(&genInvoices, "invoices", 200, "number of invoices to generate")
	generateTestdataCmd.Flags().Int64Var(&genSeed, "seed", 7, "seed for the clean ledger")
	generateTestdataCmd.Flags().Int64Var(&genCorruptionSeed, "corruption-seed", 99, "seed for injected anomalies")

	generateTestdataCmd.MarkFlagRequired("out-dir")
}

func runGenerateTestdata(cmd *cobra.Command, args []string) error {
	cfg := generator.DefaultConfig()
	cfg.Invoices = genInvoices
	cfg.Seed = genSeed
	cfg.CorruptionSeed = genCorruptionSeed

	if err := generator.Generate(cfg, genOutDir); err != nil {
		return err
	}

	fmt.Printf("Synthetic dataset written to %s\n", genOutDir)
	return nil
}
