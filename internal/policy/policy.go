// Package policy turns a mismatch probability and a set of reconciliation
// facts into a final match decision with a human-readable explanation.
// Everything in this package is a pure function of its inputs.
package policy

import (
	"fmt"
	"math"
	"strings"
)

// Status is the reconciliation outcome for one invoice/PO pair.
type Status string

const (
	StatusMatch    Status = "match"
	StatusPartial  Status = "partial"
	StatusMismatch Status = "mismatch"
)

// Probability cuts for the model-driven rules. The material-issue rule runs
// first and ignores them.
const (
	MismatchProbabilityThreshold = 0.8
	PartialProbabilityThreshold  = 0.6
)

// AmountDeltaMaterial is the absolute amount difference above which a pair
// is a material issue regardless of the model.
const AmountDeltaMaterial = 0.01

// timingConcernDays is the day delta beyond which the explanation mentions
// invoice timing.
const timingConcernDays = 30.0

// Facts are the reconciliation facts the rules and templates consume.
// A zero value is not neutral here; use DefaultFacts for absent data.
type Facts struct {
	AmountDelta float64 `json:"amount_delta"`
	VendorMatch bool    `json:"vendor_match"`
	POMissing   bool    `json:"po_missing"`
	HasGRN      bool    `json:"has_grn"`
	DaysDelta   float64 `json:"days_delta"`
}

// DefaultFacts returns the benign defaults used when a fact source has no
// data for a pair.
func DefaultFacts() Facts {
	return Facts{
		AmountDelta: 0,
		VendorMatch: true,
		POMissing:   false,
		HasGRN:      true,
		DaysDelta:   0,
	}
}

// MatchResult is the policy outcome.
type MatchResult struct {
	Status      Status  `json:"status"`
	Confidence  float64 `json:"confidence"`
	Facts       Facts   `json:"facts"`
	Explanation string  `json:"explanation"`
}

// Decide applies the ordered decision rules.
//
//  1. Any material issue (missing PO, vendor mismatch, amount delta, missing
//     GRN) forces a mismatch, with the model probability as confidence.
//  2. Probability at or above 0.8 is a mismatch.
//  3. Probability at or above 0.6 is a partial match.
//  4. Otherwise a match, with confidence 1 - probability.
func Decide(probability float64, facts Facts) MatchResult {
	var result MatchResult
	result.Facts = facts

	switch {
	case facts.POMissing || !facts.VendorMatch || math.Abs(facts.AmountDelta) > AmountDeltaMaterial || !facts.HasGRN:
		result.Status = StatusMismatch
		result.Confidence = probability
	case probability >= MismatchProbabilityThreshold:
		result.Status = StatusMismatch
		result.Confidence = probability
	case probability >= PartialProbabilityThreshold:
		result.Status = StatusPartial
		result.Confidence = probability
	default:
		result.Status = StatusMatch
		result.Confidence = 1 - probability
	}

	result.Explanation = BuildExplanation(result.Status, result.Confidence, facts)
	return result
}

// BuildExplanation renders the deterministic explanation text. Same status,
// confidence and facts always produce the same string.
func BuildExplanation(status Status, confidence float64, facts Facts) string {
	var issues []string
	if facts.POMissing {
		issues = append(issues, "the PO reference was not found")
	}
	if !facts.VendorMatch {
		issues = append(issues, "the vendor name does not match the purchase order")
	}
	if math.Abs(facts.AmountDelta) > AmountDeltaMaterial {
		issues = append(issues, fmt.Sprintf("there is an amount discrepancy of %.2f", math.Abs(facts.AmountDelta)))
	}
	if !facts.HasGRN {
		issues = append(issues, "no goods receipt has been recorded")
	}
	if math.Abs(facts.DaysDelta) > timingConcernDays {
		issues = append(issues, fmt.Sprintf("the invoice date is %.0f days away from the PO date", math.Abs(facts.DaysDelta)))
	}

	joined := joinIssues(issues)
	switch status {
	case StatusMismatch:
		if joined == "" {
			return fmt.Sprintf("This pair was flagged as a mismatch with probability %.2f.", confidence)
		}
		return fmt.Sprintf("This pair was flagged as a mismatch because %s.", joined)
	case StatusPartial:
		if joined == "" {
			return fmt.Sprintf("This pair is a partial match (confidence %.2f) and needs manual review.", confidence)
		}
		return fmt.Sprintf("This pair is a partial match and needs manual review because %s.", joined)
	default:
		if joined == "" {
			return fmt.Sprintf("This pair reconciles cleanly with confidence %.2f.", confidence)
		}
		return fmt.Sprintf("This pair reconciles with confidence %.2f, although %s.", confidence, joined)
	}
}

func joinIssues(issues []string) string {
	switch len(issues) {
	case 0:
		return ""
	case 1:
		return issues[0]
	default:
		return strings.Join(issues[:len(issues)-1], ", ") + " and " + issues[len(issues)-1]
	}
}
