package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/gmaiocc/itic-website-sub000/pkg/monitoring"
)

// Step is one action of a Workflow. Undo reverses a completed Do and may be
// nil when there is nothing to reverse.
type Step struct {
	Name string
	Do   func(ctx context.Context) error
	Undo func(ctx context.Context) error
}

// Workflow runs steps in order. When a step fails, the Undo of every
// completed step runs in reverse order before the error is returned.
type Workflow struct {
	Name  string
	Steps []Step
}

// WorkflowError reports the failed step and the outcome of compensation
type WorkflowError struct {
	Workflow           string
	Step               string
	Err                error
	Compensated        []string
	CompensationErrors []error
}

func (e *WorkflowError) Error() string {
	msg := fmt.Sprintf("workflow %s failed at step %s: %v", e.Workflow, e.Step, e.Err)
	if len(e.CompensationErrors) > 0 {
		msg += fmt.Sprintf("; compensation failed: %v", errors.Join(e.CompensationErrors...))
	}
	return msg
}

func (e *WorkflowError) Unwrap() error {
	return e.Err
}

// FullyCompensated reports whether every completed step was reversed
func (e *WorkflowError) FullyCompensated() bool {
	return len(e.CompensationErrors) == 0
}

// Run executes the workflow
func (w *Workflow) Run(ctx context.Context) error {
	start := time.Now()
	monitoring.WorkflowInFlightAdd(ctx, w.Name, 1)
	defer monitoring.WorkflowInFlightAdd(ctx, w.Name, -1)

	completed := make([]Step, 0, len(w.Steps))
	for _, step := range w.Steps {
		if err := step.Do(ctx); err != nil {
			wfErr := &WorkflowError{Workflow: w.Name, Step: step.Name, Err: err}
			slog.Warn("Workflow step failed",
				"workflow", w.Name,
				"step", step.Name,
				"error", err,
				"completedSteps", stepNames(completed))
			w.compensate(ctx, completed, wfErr)
			monitoring.RecordWorkflowDuration(ctx, w.Name, time.Since(start), false)
			return wfErr
		}
		completed = append(completed, step)
	}

	monitoring.RecordWorkflowDuration(ctx, w.Name, time.Since(start), true)
	return nil
}

// compensate undoes completed steps newest first. It ignores cancellation of
// the request so a client disconnect cannot leave half a pair behind.
func (w *Workflow) compensate(ctx context.Context, completed []Step, wfErr *WorkflowError) {
	undoCtx := context.WithoutCancel(ctx)
	for i := len(completed) - 1; i >= 0; i-- {
		step := completed[i]
		if step.Undo == nil {
			continue
		}
		err := step.Undo(undoCtx)
		monitoring.RecordCompensation(ctx, w.Name, step.Name, err)
		if err != nil {
			slog.Error("Compensating action failed, manual cleanup required",
				"workflow", w.Name,
				"step", step.Name,
				"error", err)
			wfErr.CompensationErrors = append(wfErr.CompensationErrors, fmt.Errorf("undo %s: %w", step.Name, err))
			continue
		}
		slog.Info("Compensating action completed", "workflow", w.Name, "step", step.Name)
		wfErr.Compensated = append(wfErr.Compensated, step.Name)
	}
}

func stepNames(steps []Step) string {
	names := make([]string, len(steps))
	for i, s := range steps {
		names[i] = s.Name
	}
	return strings.Join(names, ",")
}
