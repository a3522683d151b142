package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"invoice-reconciliation-service/cmd/reconciler/config"
	"invoice-reconciliation-service/internal/agent"
	"invoice-reconciliation-service/internal/classifier"
	"invoice-reconciliation-service/internal/reporter"
	"invoice-reconciliation-service/internal/scorer"
)

// Flags for the run command
var (
	runDataDir      string
	runModelPath    string
	runBatchFile    string
	runMinConf      float64
	runOutputFormat string
	runOutputFile   string
	runShowProgress bool
)

// runCmd represents the run command
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Reconcile a batch of invoice/PO pairs and draft follow-up emails",
	Long: `Run executes the full reconciliation workflow over a batch file:
plan the tasks, score and decide each pair, draft follow-up emails where
needed, and stop at the approval checkpoint. No email is ever sent; drafts
are included in the report for human review.

The batch file is a CSV with invoice_id, po_number and optional vendor_name
columns.

Examples:
  reconciler run --data-dir ./data --model ./artifacts/model.json --batch batch.csv
  reconciler run --data-dir ./data --model ./artifacts/model.json --batch batch.csv \
    --output-format xlsx --output-file report.xlsx
  reconciler run --data-dir ./data --model ./artifacts/model.json --batch batch.csv --min-conf 0.9`,

	PreRunE: validateRunFlags,
	RunE:    runRun,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVarP(&runDataDir, "data-dir", "d", "", "data directory (required)")
	runCmd.Flags().StringVarP(&runModelPath, "model", "m", "", "path to the model artifact (required)")
	runCmd.Flags().StringVarP(&runBatchFile, "batch", "b", "", "batch CSV listing pairs to reconcile (required)")
	runCmd.Flags().Float64Var(&runMinConf, "min-conf", agent.DefaultMinConfidence, "confidence floor below which a match still gets an email")
	runCmd.Flags().StringVarP(&runOutputFormat, "output-format", "f", "console", "output format: console, json, xlsx")
	runCmd.Flags().StringVarP(&runOutputFile, "output-file", "o", "", "output file path (required for xlsx)")
	runCmd.Flags().BoolVar(&runShowProgress, "progress", false, "show progress indicators")

	runCmd.MarkFlagRequired("data-dir")
	runCmd.MarkFlagRequired("model")
	runCmd.MarkFlagRequired("batch")
}

func validateRunFlags(cmd *cobra.Command, args []string) error {
	if runMinConf <= 0 || runMinConf > 1 {
		return fmt.Errorf("min-conf must be within (0, 1]")
	}
	if _, err := os.Stat(runBatchFile); err != nil {
		return fmt.Errorf("batch file is not readable: %w", err)
	}
	return config.ValidateDataDir(runDataDir)
}

func runRun(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	reportCfg, err := config.CreateReportConfig(runOutputFormat, runOutputFile)
	if err != nil {
		return err
	}
	generator, err := reporter.NewReportGenerator(reportCfg)
	if err != nil {
		return err
	}

	model, err := classifier.LoadModel(runModelPath)
	if err != nil {
		return err
	}
	s, err := scorer.NewScorer(model)
	if err != nil {
		return err
	}

	items, err := agent.LoadBatch(ctx, runBatchFile)
	if err != nil {
		return err
	}
	if len(items) == 0 {
		return fmt.Errorf("batch file %s contains no usable rows", runBatchFile)
	}

	orchestrator := agent.NewOrchestrator(agent.NewGuardrail(s), runDataDir, runMinConf)
	if runShowProgress {
		orchestrator.SetProgress(func(completed, total int, task *agent.Task) {
			fmt.Fprintf(os.Stderr, "\r[%d/%d] %s", completed, total, task.InvoiceID)
			if completed == total {
				fmt.Fprintln(os.Stderr)
			}
		})
	}

	state, err := orchestrator.Run(ctx, items)
	if err != nil {
		return err
	}

	return generator.GenerateRunReport(state)
}
