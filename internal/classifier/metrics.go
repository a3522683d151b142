package classifier

import "invoice-reconciliation-service/internal/features"

// decisionThreshold is the probability cut used for evaluation metrics.
const decisionThreshold = 0.5

// ClassMetrics holds per-class evaluation numbers.
type ClassMetrics struct {
	Precision float64 `json:"precision"`
	Recall    float64 `json:"recall"`
	F1        float64 `json:"f1"`
	Support   int     `json:"support"`
}

// FeatureImportance pairs a feature with its fitted weight.
type FeatureImportance struct {
	Feature string  `json:"feature"`
	Weight  float64 `json:"weight"`
}

// EvalReport summarizes model quality on the held-out split. The top-level
// precision/recall/F1 describe the positive (mismatch) class.
type EvalReport struct {
	Accuracy  float64 `json:"accuracy"`
	Precision float64 `json:"precision"`
	Recall    float64 `json:"recall"`
	F1        float64 `json:"f1"`

	PerClass           map[string]ClassMetrics `json:"per_class"`
	FeatureImportances []FeatureImportance     `json:"feature_importances"`
	SelectedFeatures   []string                `json:"selected_features"`
	ClassDistribution  map[string]int          `json:"class_distribution"`
	TestExamples       int                     `json:"test_examples"`
}

// Evaluate scores the model on a labelled set at the 0.5 threshold.
func Evaluate(model *Model, testSet []*features.LabelledExample) *EvalReport {
	var tp, fp, tn, fn int
	for _, ex := range testSet {
		predicted := model.PredictProba(ex.Row) >= decisionThreshold
		actual := ex.IsMismatch == 1
		switch {
		case predicted && actual:
			tp++
		case predicted && !actual:
			fp++
		case !predicted && actual:
			fn++
		default:
			tn++
		}
	}

	report := &EvalReport{
		Precision:    ratio(tp, tp+fp),
		Recall:       ratio(tp, tp+fn),
		TestExamples: len(testSet),
		PerClass:     make(map[string]ClassMetrics),
	}
	report.F1 = f1(report.Precision, report.Recall)
	if len(testSet) > 0 {
		report.Accuracy = float64(tp+tn) / float64(len(testSet))
	}

	report.PerClass["mismatch"] = ClassMetrics{
		Precision: report.Precision,
		Recall:    report.Recall,
		F1:        report.F1,
		Support:   tp + fn,
	}
	negPrecision := ratio(tn, tn+fn)
	negRecall := ratio(tn, tn+fp)
	report.PerClass["match"] = ClassMetrics{
		Precision: negPrecision,
		Recall:    negRecall,
		F1:        f1(negPrecision, negRecall),
		Support:   tn + fp,
	}

	return report
}

func ratio(num, den int) float64 {
	if den == 0 {
		return 0
	}
	return float64(num) / float64(den)
}

func f1(precision, recall float64) float64 {
	if precision+recall == 0 {
		return 0
	}
	return 2 * precision * recall / (precision + recall)
}
