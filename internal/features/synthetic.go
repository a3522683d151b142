package features

import (
	"math"
	"math/rand"

	"invoice-reconciliation-service/internal/models"
)

// CorruptionConfig controls the synthetic anomaly injection used to build
// offline evaluation datasets. It carries its own seed so the perturbation
// stream is independent of the training split seed. Nothing on the inference
// path ever calls into this file.
type CorruptionConfig struct {
	Seed int64

	// AnomalyRate caps the fraction of unlabelled rows that receive a
	// random vendor, currency or date anomaly.
	AnomalyRate float64
}

// DefaultCorruptionConfig matches the rates used by the bundled test data.
func DefaultCorruptionConfig(seed int64) *CorruptionConfig {
	return &CorruptionConfig{Seed: seed, AnomalyRate: 0.05}
}

// CorruptExamples perturbs labelled examples so their feature values reflect
// the mismatch their label records. Labelled rows are made consistent with
// their mismatch type; a capped random share of unlabelled rows receives a
// mild anomaly to keep the negative class from being trivially separable.
// The input slice is not modified.
func CorruptExamples(examples []*LabelledExample, cfg *CorruptionConfig) []*LabelledExample {
	if cfg == nil {
		cfg = DefaultCorruptionConfig(0)
	}
	rng := rand.New(rand.NewSource(cfg.Seed))

	out := make([]*LabelledExample, 0, len(examples))
	for _, ex := range examples {
		row := *ex.Row
		clone := &LabelledExample{
			Row:          &row,
			IsMismatch:   ex.IsMismatch,
			MismatchType: ex.MismatchType,
			Difference:   ex.Difference,
		}

		switch clone.MismatchType {
		case models.MismatchMissingPO:
			row.POMissing = 1
			row.HasGRN = 0
			row.AmountDelta = 0
			row.AmountDeltaAbs = 0
			row.AmountDeltaPct = 0
			row.AmountOverTolerance = 0
			row.AmountPctOverTolerance = 0
		case models.MismatchPriceVariance:
			if delta, ok := models.ParseDecimalLenient(clone.Difference); ok {
				d, _ := delta.Float64()
				row.AmountDelta = d
				row.AmountDeltaAbs = math.Abs(d)
				row.AmountOverTolerance = boolFeature(row.AmountDeltaAbs > AmountToleranceAbs)
			}
		case "":
			if rng.Float64() < cfg.AnomalyRate {
				applyRandomAnomaly(&row, rng)
			}
		}

		out = append(out, clone)
	}
	return out
}

// applyRandomAnomaly injects one of three mild perturbations: a degraded
// vendor similarity, a currency inconsistency, or a shifted invoice date.
func applyRandomAnomaly(row *FeatureRow, rng *rand.Rand) {
	switch rng.Intn(3) {
	case 0:
		row.VendorSimilarity = rng.Float64() * VendorMatchThreshold
		row.VendorMatch = 0
	case 1:
		row.CurrencyMatch = 0
	case 2:
		row.DaysDelta += float64(rng.Intn(60) - 30)
		row.InvoiceBeforePO = boolFeature(row.DaysDelta < InvoiceBeforePODays)
		row.InvoiceTooLate = boolFeature(row.DaysDelta > InvoiceTooLateDays)
	}
}
