// Package classifier trains and applies the binary mismatch model. The model
// is an L2-regularized logistic regression fitted by full-batch gradient
// descent on gonum matrices; everything is deterministic for a fixed seed.
package classifier

import (
	"math"
	"math/rand"
	"sort"

	"gonum.org/v1/gonum/mat"

	"invoice-reconciliation-service/internal/features"
	"invoice-reconciliation-service/pkg/errors"
	"invoice-reconciliation-service/pkg/logger"
)

// TrainConfig holds the training hyperparameters.
type TrainConfig struct {
	// TestSize is the held-out fraction of the stratified split.
	TestSize float64
	// Seed drives the split shuffle. Same seed, same split, same model.
	Seed int64
	// LearningRate and Iterations control the gradient descent.
	LearningRate float64
	Iterations   int
	// L2Penalty is the regularization strength applied to the weights.
	L2Penalty float64
	// PositiveWeight scales the loss on mismatch examples. Mismatches are
	// the minority class in real ledgers, so they count double by default.
	PositiveWeight float64
}

// DefaultTrainConfig returns the standard hyperparameters.
func DefaultTrainConfig() *TrainConfig {
	return &TrainConfig{
		TestSize:       0.2,
		Seed:           42,
		LearningRate:   0.1,
		Iterations:     2000,
		L2Penalty:      0.01,
		PositiveWeight: 2.0,
	}
}

// Model is a fitted logistic regression over a selected feature subset.
// Weights, Means and Stds are aligned with Features.
type Model struct {
	Features []string  `json:"features"`
	Weights  []float64 `json:"weights"`
	Bias     float64   `json:"bias"`
	Means    []float64 `json:"means"`
	Stds     []float64 `json:"stds"`
}

// PredictProba returns the mismatch probability for one feature row,
// always within [0, 1].
func (m *Model) PredictProba(row *features.FeatureRow) float64 {
	z := m.Bias
	for i, name := range m.Features {
		z += m.Weights[i] * m.standardize(i, row.Value(name))
	}
	return sigmoid(z)
}

func (m *Model) standardize(i int, v float64) float64 {
	if i < len(m.Means) && i < len(m.Stds) && m.Stds[i] != 0 {
		return (v - m.Means[i]) / m.Stds[i]
	}
	return v
}

// Fit trains a model on labelled examples and evaluates it on a held-out
// stratified split. Candidate features with no variation across the dataset
// are dropped before training; if nothing survives, training fails.
func Fit(examples []*features.LabelledExample, cfg *TrainConfig) (*Model, *EvalReport, error) {
	if cfg == nil {
		cfg = DefaultTrainConfig()
	}
	log := logger.GetGlobalLogger().WithComponent("classifier")

	if len(examples) == 0 {
		return nil, nil, errors.ModelError(errors.CodeTrainingFailed, "fit", nil).
			WithContext("reason", "no training examples")
	}

	selected := selectFeatures(examples)
	if len(selected) == 0 {
		return nil, nil, errors.ModelError(errors.CodeNoUsableFeatures, "feature selection", nil)
	}
	log.WithFields(logger.Fields{
		"candidates": len(features.CanonicalFeatures),
		"selected":   len(selected),
	}).Info("Selected training features")

	trainSet, testSet := stratifiedSplit(examples, cfg.TestSize, cfg.Seed)

	model := fitLogistic(trainSet, selected, cfg)
	report := Evaluate(model, testSet)
	report.SelectedFeatures = selected
	report.ClassDistribution = classDistribution(examples)
	report.FeatureImportances = importances(model)

	log.WithFields(logger.Fields{
		"train_examples": len(trainSet),
		"test_examples":  len(testSet),
		"precision":      report.Precision,
		"recall":         report.Recall,
		"f1":             report.F1,
	}).Info("Model trained")

	return model, report, nil
}

// selectFeatures keeps every canonical feature with at least two distinct
// values across the dataset.
func selectFeatures(examples []*features.LabelledExample) []string {
	var selected []string
	for _, name := range features.CanonicalFeatures {
		first := examples[0].Row.Value(name)
		for _, ex := range examples[1:] {
			if ex.Row.Value(name) != first {
				selected = append(selected, name)
				break
			}
		}
	}
	return selected
}

// stratifiedSplit shuffles each label class with the seeded source and holds
// out testSize of each, so both splits keep the overall class balance.
func stratifiedSplit(examples []*features.LabelledExample, testSize float64, seed int64) (train, test []*features.LabelledExample) {
	rng := rand.New(rand.NewSource(seed))

	var positives, negatives []*features.LabelledExample
	for _, ex := range examples {
		if ex.IsMismatch == 1 {
			positives = append(positives, ex)
		} else {
			negatives = append(negatives, ex)
		}
	}

	for _, class := range [][]*features.LabelledExample{negatives, positives} {
		class := class
		rng.Shuffle(len(class), func(i, j int) { class[i], class[j] = class[j], class[i] })
		held := int(math.Round(float64(len(class)) * testSize))
		if held >= len(class) && len(class) > 1 {
			held = len(class) - 1
		}
		test = append(test, class[:held]...)
		train = append(train, class[held:]...)
	}
	return train, test
}

// fitLogistic runs full-batch gradient descent on the standardized training
// matrix.
func fitLogistic(trainSet []*features.LabelledExample, selected []string, cfg *TrainConfig) *Model {
	n := len(trainSet)
	d := len(selected)

	means := make([]float64, d)
	stds := make([]float64, d)
	for j, name := range selected {
		var sum float64
		for _, ex := range trainSet {
			sum += ex.Row.Value(name)
		}
		means[j] = sum / float64(n)
		var sq float64
		for _, ex := range trainSet {
			diff := ex.Row.Value(name) - means[j]
			sq += diff * diff
		}
		stds[j] = math.Sqrt(sq / float64(n))
		if stds[j] == 0 {
			stds[j] = 1
		}
	}

	X := mat.NewDense(n, d, nil)
	y := make([]float64, n)
	sampleWeight := make([]float64, n)
	for i, ex := range trainSet {
		for j, name := range selected {
			X.Set(i, j, (ex.Row.Value(name)-means[j])/stds[j])
		}
		y[i] = ex.IsMismatch
		if ex.IsMismatch == 1 {
			sampleWeight[i] = cfg.PositiveWeight
		} else {
			sampleWeight[i] = 1
		}
	}

	w := mat.NewVecDense(d, nil)
	bias := 0.0
	z := mat.NewVecDense(n, nil)
	grad := mat.NewVecDense(d, nil)
	residual := mat.NewVecDense(n, nil)

	for iter := 0; iter < cfg.Iterations; iter++ {
		z.MulVec(X, w)
		var biasGrad float64
		for i := 0; i < n; i++ {
			p := sigmoid(z.AtVec(i) + bias)
			r := sampleWeight[i] * (p - y[i])
			residual.SetVec(i, r)
			biasGrad += r
		}

		grad.MulVec(X.T(), residual)
		for j := 0; j < d; j++ {
			g := grad.AtVec(j)/float64(n) + cfg.L2Penalty*w.AtVec(j)
			w.SetVec(j, w.AtVec(j)-cfg.LearningRate*g)
		}
		bias -= cfg.LearningRate * biasGrad / float64(n)
	}

	weights := make([]float64, d)
	for j := 0; j < d; j++ {
		weights[j] = w.AtVec(j)
	}

	return &Model{
		Features: selected,
		Weights:  weights,
		Bias:     bias,
		Means:    means,
		Stds:     stds,
	}
}

func classDistribution(examples []*features.LabelledExample) map[string]int {
	dist := map[string]int{"match": 0, "mismatch": 0}
	for _, ex := range examples {
		if ex.IsMismatch == 1 {
			dist["mismatch"]++
		} else {
			dist["match"]++
		}
	}
	return dist
}

func importances(model *Model) []FeatureImportance {
	out := make([]FeatureImportance, len(model.Features))
	for i, name := range model.Features {
		out[i] = FeatureImportance{Feature: name, Weight: model.Weights[i]}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return math.Abs(out[i].Weight) > math.Abs(out[j].Weight)
	})
	return out
}

func sigmoid(z float64) float64 {
	// Clamp to keep math.Exp well away from overflow.
	if z > 35 {
		return 1
	}
	if z < -35 {
		return 0
	}
	return 1 / (1 + math.Exp(-z))
}
