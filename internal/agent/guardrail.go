// Package agent orchestrates a reconciliation run over a batch of invoice/PO
// pairs: plan, reconcile, draft follow-up emails, then stop at a hard
// human-approval checkpoint. Every capability the orchestrator can invoke
// goes through a guardrail gate with a closed allow-list.
package agent

import (
	"context"

	"invoice-reconciliation-service/internal/policy"
	"invoice-reconciliation-service/internal/scorer"
	"invoice-reconciliation-service/pkg/errors"
	"invoice-reconciliation-service/pkg/logger"
)

// Capability names one of the callable tools behind the guardrail.
type Capability string

const (
	CapabilityMatcher      Capability = "matcher"
	CapabilityEmailDrafter Capability = "email_drafter"
)

// AllowedCapabilities is the complete guardrail allow-list.
var AllowedCapabilities = []string{
	string(CapabilityMatcher),
	string(CapabilityEmailDrafter),
}

// Request is a typed capability invocation. The closed set of implementations
// in this package is the allow-list; there is no string-keyed dispatch to
// widen by accident.
type Request interface {
	Capability() Capability
	Validate() error
}

// MatcherRequest asks the matcher capability to score and decide one pair.
type MatcherRequest struct {
	DataDir   string
	InvoiceID string
	PONumber  string
}

func (r *MatcherRequest) Capability() Capability { return CapabilityMatcher }

// Validate checks the argument shape before any dispatch happens.
func (r *MatcherRequest) Validate() error {
	if r.DataDir == "" {
		return errors.ToolArgumentError(string(r.Capability()), "data directory is required")
	}
	if r.InvoiceID == "" {
		return errors.ToolArgumentError(string(r.Capability()), "invoice id is required")
	}
	if r.PONumber == "" {
		return errors.ToolArgumentError(string(r.Capability()), "po number is required")
	}
	return nil
}

// MatchOutcome is the matcher capability result.
type MatchOutcome struct {
	Found  bool
	Result policy.MatchResult
}

// EmailDraftRequest asks the email drafter to render a follow-up email for
// a reconciled task.
type EmailDraftRequest struct {
	Task *Task
}

func (r *EmailDraftRequest) Capability() Capability { return CapabilityEmailDrafter }

func (r *EmailDraftRequest) Validate() error {
	if r.Task == nil {
		return errors.ToolArgumentError(string(r.Capability()), "task is required")
	}
	if r.Task.Result == nil {
		return errors.ToolArgumentError(string(r.Capability()), "task has no match result to draft from")
	}
	return nil
}

// Guardrail dispatches validated capability requests. Unknown request types
// are rejected, invalid arguments are rejected before dispatch, and any
// failure inside a capability is wrapped with the capability name.
type Guardrail struct {
	scorer *scorer.Scorer
	logger logger.Logger
}

// NewGuardrail creates the gate around the two permitted capabilities.
func NewGuardrail(s *scorer.Scorer) *Guardrail {
	return &Guardrail{
		scorer: s,
		logger: logger.GetGlobalLogger().WithComponent("guardrail"),
	}
}

// Dispatch runs one capability request through the gate.
func (g *Guardrail) Dispatch(ctx context.Context, req Request) (interface{}, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	g.logger.WithField("capability", string(req.Capability())).Debug("Dispatching capability")

	switch r := req.(type) {
	case *MatcherRequest:
		outcome, err := g.runMatcher(ctx, r)
		if err != nil {
			return nil, errors.ToolExecutionError(string(r.Capability()), err)
		}
		return outcome, nil
	case *EmailDraftRequest:
		return DraftEmail(r.Task), nil
	default:
		return nil, errors.ToolNotPermittedError(string(req.Capability()), AllowedCapabilities)
	}
}

func (g *Guardrail) runMatcher(ctx context.Context, req *MatcherRequest) (*MatchOutcome, error) {
	scored, err := g.scorer.Score(ctx, req.DataDir, req.InvoiceID, req.PONumber)
	if err != nil {
		return nil, err
	}
	if !scored.Found {
		return &MatchOutcome{Found: false}, nil
	}
	return &MatchOutcome{
		Found:  true,
		Result: policy.Decide(scored.Probability, scored.Facts),
	}, nil
}
