package classifier

import (
	"os"
	"path/filepath"
	"testing"

	"invoice-reconciliation-service/internal/features"
	"invoice-reconciliation-service/pkg/errors"
)

// createTestExamples builds a small separable dataset: clean pairs and
// missing-PO mismatches.
func createTestExamples(clean, mismatched int) []*features.LabelledExample {
	var examples []*features.LabelledExample
	for i := 0; i < clean; i++ {
		examples = append(examples, &features.LabelledExample{
			Row: &features.FeatureRow{
				VendorMatch: 1, VendorSimilarity: 1, HasGRN: 1,
				CurrencyMatch: 1, DaysDelta: float64(i % 10),
			},
		})
	}
	for i := 0; i < mismatched; i++ {
		examples = append(examples, &features.LabelledExample{
			Row: &features.FeatureRow{
				POMissing: 1, CurrencyMatch: 1, DaysDelta: float64(i % 7),
				AmountDeltaAbs: 150, AmountOverTolerance: 1,
			},
			IsMismatch: 1,
		})
	}
	return examples
}

func TestFitSeparatesClasses(t *testing.T) {
	examples := createTestExamples(40, 20)

	model, report, err := Fit(examples, nil)
	if err != nil {
		t.Fatalf("Fit failed: %v", err)
	}

	cleanProba := model.PredictProba(examples[0].Row)
	mismatchProba := model.PredictProba(examples[45].Row)
	if cleanProba >= mismatchProba {
		t.Errorf("Expected mismatch probability above clean probability, got %f vs %f", mismatchProba, cleanProba)
	}
	if cleanProba < 0 || cleanProba > 1 || mismatchProba < 0 || mismatchProba > 1 {
		t.Error("Probabilities must stay within [0, 1]")
	}

	if report.F1 < 0.9 {
		t.Errorf("Expected near-perfect F1 on a separable set, got %f", report.F1)
	}
	if report.ClassDistribution["mismatch"] != 20 {
		t.Errorf("Expected 20 mismatches in distribution, got %d", report.ClassDistribution["mismatch"])
	}
}

func TestFitDeterministicForSeed(t *testing.T) {
	examples := createTestExamples(30, 15)
	cfg := DefaultTrainConfig()

	a, _, err := Fit(examples, cfg)
	if err != nil {
		t.Fatalf("Fit failed: %v", err)
	}
	b, _, err := Fit(examples, cfg)
	if err != nil {
		t.Fatalf("Fit failed: %v", err)
	}

	if a.Bias != b.Bias {
		t.Errorf("Expected identical bias for identical seed, got %f vs %f", a.Bias, b.Bias)
	}
	for i := range a.Weights {
		if a.Weights[i] != b.Weights[i] {
			t.Errorf("Weight %d differs across runs: %f vs %f", i, a.Weights[i], b.Weights[i])
		}
	}
}

func TestFitDropsConstantFeatures(t *testing.T) {
	examples := createTestExamples(20, 10)

	_, report, err := Fit(examples, nil)
	if err != nil {
		t.Fatalf("Fit failed: %v", err)
	}

	// currency_match is 1 everywhere in the test set.
	for _, name := range report.SelectedFeatures {
		if name == "currency_match" {
			t.Error("Expected constant currency_match dropped from selection")
		}
	}
}

func TestFitNoUsableFeatures(t *testing.T) {
	// Every row identical: no column varies.
	examples := createTestExamples(10, 0)
	for _, ex := range examples {
		ex.Row.DaysDelta = 0
	}

	_, _, err := Fit(examples, nil)
	if err == nil {
		t.Fatal("Expected training on constant columns to fail")
	}
	re, ok := errors.AsReconcilerError(err)
	if !ok || re.Code != errors.CodeNoUsableFeatures {
		t.Errorf("Expected no_usable_features error, got %v", err)
	}
}

func TestFeatureImportancesSorted(t *testing.T) {
	examples := createTestExamples(40, 20)
	_, report, err := Fit(examples, nil)
	if err != nil {
		t.Fatalf("Fit failed: %v", err)
	}

	for i := 1; i < len(report.FeatureImportances); i++ {
		prev := report.FeatureImportances[i-1].Weight
		cur := report.FeatureImportances[i].Weight
		if abs(prev) < abs(cur) {
			t.Errorf("Importances not sorted by |weight|: %f before %f", prev, cur)
		}
	}
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}

func TestArtifactRoundTrip(t *testing.T) {
	examples := createTestExamples(30, 15)
	model, _, err := Fit(examples, nil)
	if err != nil {
		t.Fatalf("Fit failed: %v", err)
	}

	path := filepath.Join(t.TempDir(), "model.json")
	if err := SaveModel(model, path); err != nil {
		t.Fatalf("SaveModel failed: %v", err)
	}

	loaded, err := LoadModel(path)
	if err != nil {
		t.Fatalf("LoadModel failed: %v", err)
	}

	row := examples[0].Row
	if model.PredictProba(row) != loaded.PredictProba(row) {
		t.Error("Loaded model disagrees with the fitted model")
	}
}

func TestLoadModelMissingArtifact(t *testing.T) {
	_, err := LoadModel(filepath.Join(t.TempDir(), "absent.json"))
	if !errors.IsConfigurationError(err) {
		t.Errorf("Expected ConfigurationError for a missing artifact, got %v", err)
	}
}

func TestLoadModelLegacyArtifactGetsDefaultFeatures(t *testing.T) {
	path := filepath.Join(t.TempDir(), "legacy.json")
	legacy := `{"weights": [0.1, -0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.8, 0.9, 1.0, 1.1, 1.2, 1.3, 1.4], "bias": 0.05}`
	if err := os.WriteFile(path, []byte(legacy), 0644); err != nil {
		t.Fatalf("Failed to write legacy artifact: %v", err)
	}

	model, err := LoadModel(path)
	if err != nil {
		t.Fatalf("LoadModel failed on legacy artifact: %v", err)
	}
	if len(model.Features) != len(features.CanonicalFeatures) {
		t.Errorf("Expected canonical default feature list, got %d features", len(model.Features))
	}
	if model.Features[0] != "vendor_match" {
		t.Errorf("Expected canonical order, got first feature %s", model.Features[0])
	}
}

func TestLoadModelCorruptArtifact(t *testing.T) {
	path := filepath.Join(t.TempDir(), "corrupt.json")
	if err := os.WriteFile(path, []byte("{not json"), 0644); err != nil {
		t.Fatalf("Failed to write corrupt artifact: %v", err)
	}

	_, err := LoadModel(path)
	re, ok := errors.AsReconcilerError(err)
	if !ok || re.Code != errors.CodeArtifactCorrupt {
		t.Errorf("Expected artifact_corrupt error, got %v", err)
	}
}

func TestLoadModelFeatureWeightMismatch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "short.json")
	artifact := `{"schema_version": 1, "features": ["po_missing"], "weights": [0.1, 0.2]}`
	if err := os.WriteFile(path, []byte(artifact), 0644); err != nil {
		t.Fatalf("Failed to write artifact: %v", err)
	}

	_, err := LoadModel(path)
	re, ok := errors.AsReconcilerError(err)
	if !ok || re.Code != errors.CodeArtifactCorrupt {
		t.Errorf("Expected artifact_corrupt for length disagreement, got %v", err)
	}
}
