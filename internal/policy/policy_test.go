package policy

import (
	"strings"
	"testing"
)

func cleanFacts() Facts {
	return DefaultFacts()
}

func TestDecideMaterialIssueOverridesLowProbability(t *testing.T) {
	facts := cleanFacts()
	facts.POMissing = true

	result := Decide(0.1, facts)
	if result.Status != StatusMismatch {
		t.Errorf("Expected mismatch for missing PO regardless of probability, got %s", result.Status)
	}
	if result.Confidence != 0.1 {
		t.Errorf("Expected confidence to carry the model probability, got %f", result.Confidence)
	}
}

func TestDecideMaterialIssueRules(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Facts)
	}{
		{"vendor mismatch", func(f *Facts) { f.VendorMatch = false }},
		{"amount delta", func(f *Facts) { f.AmountDelta = 0.02 }},
		{"negative amount delta", func(f *Facts) { f.AmountDelta = -5.00 }},
		{"missing grn", func(f *Facts) { f.HasGRN = false }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			facts := cleanFacts()
			tt.mutate(&facts)
			if result := Decide(0.05, facts); result.Status != StatusMismatch {
				t.Errorf("Expected mismatch, got %s", result.Status)
			}
		})
	}
}

func TestDecideProbabilityBands(t *testing.T) {
	tests := []struct {
		probability        float64
		expectedStatus     Status
		expectedConfidence float64
	}{
		{0.95, StatusMismatch, 0.95},
		{0.80, StatusMismatch, 0.80},
		{0.70, StatusPartial, 0.70},
		{0.60, StatusPartial, 0.60},
		{0.20, StatusMatch, 0.80},
		{0.00, StatusMatch, 1.00},
	}

	for _, tt := range tests {
		result := Decide(tt.probability, cleanFacts())
		if result.Status != tt.expectedStatus {
			t.Errorf("p=%.2f: expected %s, got %s", tt.probability, tt.expectedStatus, result.Status)
		}
		if result.Confidence != tt.expectedConfidence {
			t.Errorf("p=%.2f: expected confidence %.2f, got %.2f", tt.probability, tt.expectedConfidence, result.Confidence)
		}
	}
}

func TestDecideEndToEndMatch(t *testing.T) {
	result := Decide(0.2, cleanFacts())
	if result.Status != StatusMatch {
		t.Errorf("Expected match, got %s", result.Status)
	}
	if result.Confidence != 0.8 {
		t.Errorf("Expected confidence 0.8, got %f", result.Confidence)
	}
}

func TestBuildExplanationDeterministic(t *testing.T) {
	facts := cleanFacts()
	facts.POMissing = true
	facts.HasGRN = false
	facts.AmountDelta = -42.5

	a := BuildExplanation(StatusMismatch, 0.9, facts)
	b := BuildExplanation(StatusMismatch, 0.9, facts)
	if a != b {
		t.Error("Expected identical inputs to produce identical explanations")
	}
}

func TestBuildExplanationEnumeratesIssues(t *testing.T) {
	facts := cleanFacts()
	facts.POMissing = true
	facts.VendorMatch = false
	facts.AmountDelta = 175.00
	facts.HasGRN = false
	facts.DaysDelta = 90

	text := BuildExplanation(StatusMismatch, 0.9, facts)
	for _, fragment := range []string{
		"PO reference was not found",
		"vendor name does not match",
		"amount discrepancy of 175.00",
		"no goods receipt",
		"90 days",
	} {
		if !containsFragment(text, fragment) {
			t.Errorf("Expected explanation to mention %q, got: %s", fragment, text)
		}
	}
}

func TestBuildExplanationTimingThreshold(t *testing.T) {
	facts := cleanFacts()
	facts.DaysDelta = 30

	if containsFragment(BuildExplanation(StatusMatch, 0.9, facts), "days") {
		t.Error("Expected no timing concern at exactly 30 days")
	}

	facts.DaysDelta = -31
	if !containsFragment(BuildExplanation(StatusMatch, 0.9, facts), "31 days") {
		t.Error("Expected timing concern past 30 days in either direction")
	}
}

func TestBuildExplanationStatusVariants(t *testing.T) {
	facts := cleanFacts()

	if !containsFragment(BuildExplanation(StatusMatch, 0.8, facts), "reconciles cleanly") {
		t.Error("Expected clean-match wording")
	}
	if !containsFragment(BuildExplanation(StatusPartial, 0.7, facts), "manual review") {
		t.Error("Expected partial wording to ask for review")
	}
	if !containsFragment(BuildExplanation(StatusMismatch, 0.9, facts), "mismatch") {
		t.Error("Expected mismatch wording")
	}
}

func containsFragment(s, fragment string) bool {
	return strings.Contains(s, fragment)
}
