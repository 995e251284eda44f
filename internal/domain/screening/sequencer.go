package screening

import (
	"fmt"
	"time"
)

// NextStepType returns the step that follows the current one in the
// configured order. ok is false when the current step is the last.
func (a *Aggregate) NextStepType() (StepType, bool) {
	steps := a.Process.ConfiguredStepTypes
	for i, t := range steps {
		if t == a.Process.CurrentStepType {
			if i+1 < len(steps) {
				return steps[i+1], true
			}
			return "", false
		}
	}
	return "", false
}

// stepCompletionErr reports why the given step cannot complete yet, or nil.
func (a *Aggregate) stepCompletionErr(t StepType) error {
	switch t {
	case StepDocumentUpload:
		for _, d := range a.RequiredDocuments() {
			if d.Status.Satisfied() {
				continue
			}
			// A rejected instance is terminal; a satisfied replacement of
			// the same type stands in for it.
			if d.Status == DocRejected && a.typeSatisfied(d.DocumentTypeID) {
				continue
			}
			return fmt.Errorf("%w: required document %s is %s", ErrInvalidStepTransition, d.ID, d.Status)
		}
		return nil
	case StepDocumentReview:
		for _, d := range a.Documents {
			if d.Status == DocPendingReview || d.Status == DocAlert {
				return fmt.Errorf("%w: document %s is %s", ErrInvalidStepTransition, d.ID, d.Status)
			}
		}
		return nil
	default:
		step := a.StepByType(t)
		if step == nil || !step.Completed {
			return fmt.Errorf("%w: step %s not completed", ErrInvalidStepTransition, t)
		}
		return nil
	}
}

// AdvanceStep moves the process pointer to the next configured step, or
// finalizes the process as APPROVED when the completed step was the last one.
// The current step's completion condition must hold.
func (a *Aggregate) AdvanceStep(now time.Time) error {
	if err := a.requireActive(); err != nil {
		return err
	}
	if err := a.stepCompletionErr(a.Process.CurrentStepType); err != nil {
		return err
	}

	if step := a.CurrentStep(); step != nil && !step.Completed {
		step.Completed = true
		t := now
		step.CompletedAt = &t
		step.UpdatedAt = now
	}

	next, ok := a.NextStepType()
	if !ok {
		// Last configured step: the pointer freezes on it.
		a.Process.Status = StatusApproved
		a.Process.UpdatedAt = now
		return nil
	}

	a.Process.CurrentStepType = next
	a.Process.UpdatedAt = now
	return nil
}

// SubmitStepData records the caller-supplied payload for the current step.
// For step types whose completion is externally declared the step is marked
// complete; document-driven steps derive completion from document state.
func (a *Aggregate) SubmitStepData(t StepType, payload []byte, now time.Time) error {
	if err := a.requireActive(); err != nil {
		return err
	}
	if t != a.Process.CurrentStepType {
		return fmt.Errorf("%w: %s is not the current step (%s)", ErrInvalidStepTransition, t, a.Process.CurrentStepType)
	}

	step := a.StepByType(t)
	if step == nil {
		return fmt.Errorf("%w: step %s not configured", ErrInvalidStepTransition, t)
	}

	step.Data = payload
	if t.externallyCompleted() {
		step.Completed = true
		ts := now
		step.CompletedAt = &ts
	}
	step.UpdatedAt = now
	a.Process.UpdatedAt = now
	return nil
}

// requireActive rejects events on terminal processes and gates progress
// while a supervisor alert is pending.
func (a *Aggregate) requireActive() error {
	if a.Process.Status.Terminal() {
		return fmt.Errorf("%w: status is %s", ErrProcessFinalized, a.Process.Status)
	}
	if a.Process.Status == StatusPendingSupervisor {
		return fmt.Errorf("%w: supervisor alert pending", ErrInvalidStepTransition)
	}
	return nil
}
