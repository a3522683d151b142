package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"invoice-reconciliation-service/cmd/reconciler/config"
	"invoice-reconciliation-service/internal/classifier"
	"invoice-reconciliation-service/internal/policy"
	"invoice-reconciliation-service/internal/scorer"
)

// Flags for the score command
var (
	scoreDataDir   string
	scoreModelPath string
	scoreInvoiceID string
	scorePONumber  string
)

// scoreCmd represents the score command
var scoreCmd = &cobra.Command{
	Use:   "score",
	Short: "Score a single invoice/PO pair against a trained model",
	Long: `Score loads the trained model artifact, rebuilds the reconciliation
pipeline for the dataset, and reports the decision for one invoice/PO pair
as JSON. A pair absent from the dataset reports found=false rather than
failing.

Examples:
  reconciler score --data-dir ./data --model ./artifacts/model.json \
    --invoice-id INV0012 --po-number PO0012`,

	PreRunE: validateScoreFlags,
	RunE:    runScore,
}

func init() {
	rootCmd.AddCommand(scoreCmd)

	scoreCmd.Flags().StringVarP(&scoreDataDir, "data-dir", "d", "", "data directory (required)")
	scoreCmd.Flags().StringVarP(&scoreModelPath, "model", "m", "", "path to the model artifact (required)")
	scoreCmd.Flags().StringVarP(&scoreInvoiceID, "invoice-id", "i", "", "invoice id to score (required)")
	scoreCmd.Flags().StringVarP(&scorePONumber, "po-number", "p", "", "purchase order number to score (required)")

	scoreCmd.MarkFlagRequired("data-dir")
	scoreCmd.MarkFlagRequired("model")
	scoreCmd.MarkFlagRequired("invoice-id")
	scoreCmd.MarkFlagRequired("po-number")
}

func validateScoreFlags(cmd *cobra.Command, args []string) error {
	if scoreInvoiceID == "" || scorePONumber == "" {
		return fmt.Errorf("invoice-id and po-number are required")
	}
	return config.ValidateDataDir(scoreDataDir)
}

// scoreOutput is the JSON shape printed by the score command.
type scoreOutput struct {
	Found       bool          `json:"found"`
	InvoiceID   string        `json:"invoice_id"`
	PONumber    string        `json:"po_number"`
	Status      policy.Status `json:"status,omitempty"`
	Confidence  float64       `json:"confidence,omitempty"`
	Facts       *policy.Facts `json:"facts,omitempty"`
	Explanation string        `json:"explanation,omitempty"`
}

func runScore(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	model, err := classifier.LoadModel(scoreModelPath)
	if err != nil {
		return err
	}
	s, err := scorer.NewScorer(model)
	if err != nil {
		return err
	}

	result, err := s.Score(ctx, scoreDataDir, scoreInvoiceID, scorePONumber)
	if err != nil {
		return err
	}

	out := scoreOutput{
		Found:     result.Found,
		InvoiceID: result.InvoiceID,
		PONumber:  result.PONumber,
	}
	if result.Found {
		decision := policy.Decide(result.Probability, result.Facts)
		out.Status = decision.Status
		out.Confidence = decision.Confidence
		out.Facts = &decision.Facts
		out.Explanation = decision.Explanation
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
