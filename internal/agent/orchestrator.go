package agent

import (
	"context"
	"fmt"

	"invoice-reconciliation-service/internal/policy"
	"invoice-reconciliation-service/pkg/logger"
)

// RunStatus is the orchestration workflow state.
type RunStatus string

const (
	RunPlanning         RunStatus = "PLANNING"
	RunReconciling      RunStatus = "RECONCILING"
	RunDrafting         RunStatus = "DRAFTING"
	RunAwaitingApproval RunStatus = "AWAITING_APPROVAL"
	RunCompleted        RunStatus = "COMPLETED"
)

// DefaultMinConfidence is the confidence floor below which a clean match
// still gets a clarification email.
const DefaultMinConfidence = 0.75

// BatchItem is one requested reconciliation in the input batch.
type BatchItem struct {
	InvoiceID  string `json:"invoice_id"`
	PONumber   string `json:"po_number"`
	VendorName string `json:"vendor_name"`
}

// Task is the per-pair unit of work. A capability failure is captured on the
// task so the rest of the batch keeps going.
type Task struct {
	InvoiceID  string              `json:"invoice_id"`
	PONumber   string              `json:"po_number"`
	VendorName string              `json:"vendor_name"`
	Found      bool                `json:"found"`
	Result     *policy.MatchResult `json:"result,omitempty"`

	NeedsEmail  bool   `json:"needs_email"`
	EmailReason string `json:"email_reason,omitempty"`
	EmailDraft  string `json:"email_draft,omitempty"`
	Error       string `json:"error,omitempty"`
}

// Summary aggregates the batch outcome for the approval checkpoint.
type Summary struct {
	Total            int  `json:"total"`
	CleanMatches     int  `json:"clean_matches"`
	PartialMatches   int  `json:"partial_matches"`
	Mismatches       int  `json:"mismatches"`
	EmailsToSend     int  `json:"emails_to_send"`
	Failed           int  `json:"failed"`
	ApprovalRequired bool `json:"approval_required"`
}

// RunState is the workflow state. Stages never mutate the state they are
// given; each returns a fresh state with copied tasks.
type RunState struct {
	Status  RunStatus `json:"status"`
	Tasks   []*Task   `json:"tasks"`
	Summary *Summary  `json:"summary,omitempty"`
}

func (s *RunState) clone(status RunStatus) *RunState {
	tasks := make([]*Task, len(s.Tasks))
	for i, t := range s.Tasks {
		copied := *t
		tasks[i] = &copied
	}
	next := &RunState{Status: status, Tasks: tasks}
	if s.Summary != nil {
		summary := *s.Summary
		next.Summary = &summary
	}
	return next
}

// ProgressFunc reports per-task completion during the reconcile stage.
type ProgressFunc func(completed, total int, task *Task)

// Orchestrator drives the reconciliation workflow. All capability calls go
// through the guardrail.
type Orchestrator struct {
	guardrail *Guardrail
	dataDir   string
	minConf   float64
	progress  ProgressFunc
	logger    logger.Logger
}

// NewOrchestrator creates an orchestrator over the given data directory.
// minConf at or below zero selects the default confidence floor.
func NewOrchestrator(guardrail *Guardrail, dataDir string, minConf float64) *Orchestrator {
	if minConf <= 0 {
		minConf = DefaultMinConfidence
	}
	return &Orchestrator{
		guardrail: guardrail,
		dataDir:   dataDir,
		minConf:   minConf,
		logger:    logger.GetGlobalLogger().WithComponent("orchestrator"),
	}
}

// SetProgress installs a per-task progress callback.
func (o *Orchestrator) SetProgress(fn ProgressFunc) {
	o.progress = fn
}

// Run executes the full workflow: plan, reconcile, draft, approve.
func (o *Orchestrator) Run(ctx context.Context, items []*BatchItem) (*RunState, error) {
	state := o.Plan(items)
	state = o.Reconcile(ctx, state)
	state = o.Draft(ctx, state)
	state = o.Approve(state)
	return state, nil
}

// Plan expands the batch into task items.
func (o *Orchestrator) Plan(items []*BatchItem) *RunState {
	tasks := make([]*Task, 0, len(items))
	for _, item := range items {
		tasks = append(tasks, &Task{
			InvoiceID:  item.InvoiceID,
			PONumber:   item.PONumber,
			VendorName: item.VendorName,
		})
	}
	o.logger.WithField("tasks", len(tasks)).Info("Planned reconciliation batch")
	return &RunState{Status: RunPlanning, Tasks: tasks}
}

// Reconcile scores and decides every task through the guardrail. A failing
// capability marks its task and the batch continues.
func (o *Orchestrator) Reconcile(ctx context.Context, state *RunState) *RunState {
	next := state.clone(RunReconciling)

	for i, task := range next.Tasks {
		raw, err := o.guardrail.Dispatch(ctx, &MatcherRequest{
			DataDir:   o.dataDir,
			InvoiceID: task.InvoiceID,
			PONumber:  task.PONumber,
		})
		if err != nil {
			task.Error = err.Error()
			o.logger.WithError(err).WithField("invoice_id", task.InvoiceID).
				Warn("Task failed during reconcile, continuing batch")
		} else {
			outcome := raw.(*MatchOutcome)
			o.applyOutcome(task, outcome)
		}

		if o.progress != nil {
			o.progress(i+1, len(next.Tasks), task)
		}
	}
	return next
}

// applyOutcome records the match decision and the email need on the task.
// A pair absent from the dataset is treated as a low-confidence partial
// signal, not a rejection.
func (o *Orchestrator) applyOutcome(task *Task, outcome *MatchOutcome) {
	if !outcome.Found {
		facts := policy.DefaultFacts()
		task.Result = &policy.MatchResult{
			Status:      policy.StatusPartial,
			Confidence:  0,
			Facts:       facts,
			Explanation: fmt.Sprintf("No reconciliation data was found for invoice %s against %s.", task.InvoiceID, task.PONumber),
		}
		task.NeedsEmail = true
		task.EmailReason = "pair not found in dataset"
		return
	}

	task.Found = true
	result := outcome.Result
	task.Result = &result

	switch {
	case result.Status == policy.StatusMismatch:
		task.NeedsEmail = true
		task.EmailReason = "reconciliation mismatch"
	case result.Status == policy.StatusPartial:
		task.NeedsEmail = true
		task.EmailReason = "partial match needs review"
	case result.Confidence < o.minConf:
		task.NeedsEmail = true
		task.EmailReason = fmt.Sprintf("confidence %.2f below floor %.2f", result.Confidence, o.minConf)
	}
}

// Draft renders an email for every task that needs one.
func (o *Orchestrator) Draft(ctx context.Context, state *RunState) *RunState {
	next := state.clone(RunDrafting)

	drafted := 0
	for _, task := range next.Tasks {
		if !task.NeedsEmail || task.Error != "" {
			continue
		}
		raw, err := o.guardrail.Dispatch(ctx, &EmailDraftRequest{Task: task})
		if err != nil {
			task.Error = err.Error()
			o.logger.WithError(err).WithField("invoice_id", task.InvoiceID).
				Warn("Email drafting failed, continuing batch")
			continue
		}
		task.EmailDraft = raw.(string)
		drafted++
	}

	o.logger.WithField("drafted", drafted).Info("Drafted follow-up emails")
	return next
}

// Approve aggregates counts and parks the run at the human checkpoint.
// Nothing automated happens past this stage.
func (o *Orchestrator) Approve(state *RunState) *RunState {
	summary := &Summary{Total: len(state.Tasks)}
	for _, task := range state.Tasks {
		if task.Error != "" {
			summary.Failed++
			continue
		}
		if task.NeedsEmail {
			summary.EmailsToSend++
		}
		if task.Result == nil {
			continue
		}
		switch task.Result.Status {
		case policy.StatusMatch:
			summary.CleanMatches++
		case policy.StatusPartial:
			summary.PartialMatches++
		case policy.StatusMismatch:
			summary.Mismatches++
		}
	}
	summary.ApprovalRequired = summary.EmailsToSend > 0 || summary.Mismatches > 0

	status := RunCompleted
	if summary.ApprovalRequired {
		status = RunAwaitingApproval
	}

	next := state.clone(status)
	next.Summary = summary

	o.logger.WithFields(logger.Fields{
		"status":     string(status),
		"matches":    summary.CleanMatches,
		"partials":   summary.PartialMatches,
		"mismatches": summary.Mismatches,
		"emails":     summary.EmailsToSend,
		"failed":     summary.Failed,
	}).Info("Reconciliation run finished")

	return next
}
