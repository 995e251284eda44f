package screening

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Cancel finalizes the process as CANCELLED, recording who cancelled it and
// why. Cancellation is legal from IN_PROGRESS and PENDING_SUPERVISOR and is
// distinct from rejection: it does not touch the alert path.
func (a *Aggregate) Cancel(actor uuid.UUID, reason string, now time.Time) error {
	if a.Process.Status.Terminal() {
		return fmt.Errorf("%w: status is %s", ErrProcessFinalized, a.Process.Status)
	}
	if reason == "" {
		return fmt.Errorf("cancellation reason is required")
	}

	a.Process.Status = StatusCancelled
	t := now
	a.Process.CancelledAt = &t
	by := actor
	a.Process.CancelledBy = &by
	r := reason
	a.Process.CancellationReason = &r
	a.Process.UpdatedAt = now

	return nil
}

// Expire finalizes an overdue process as EXPIRED. Only IN_PROGRESS processes
// expire; escalated processes wait for their supervisor.
func (a *Aggregate) Expire(now time.Time) error {
	if a.Process.Status.Terminal() {
		return fmt.Errorf("%w: status is %s", ErrProcessFinalized, a.Process.Status)
	}
	if a.Process.Status != StatusInProgress {
		return fmt.Errorf("%w: cannot expire while %s", ErrInvalidStepTransition, a.Process.Status)
	}
	if a.Process.ExpiresAt == nil || now.Before(*a.Process.ExpiresAt) {
		return fmt.Errorf("%w: process has not reached its expiry deadline", ErrInvalidStepTransition)
	}

	a.Process.Status = StatusExpired
	a.Process.UpdatedAt = now
	return nil
}

// Validate checks the aggregate's structural invariants. It is consulted
// before persisting mutations.
func (a *Aggregate) Validate() error {
	if len(a.Process.ConfiguredStepTypes) == 0 {
		return fmt.Errorf("process %s has no configured steps", a.Process.ID)
	}
	seen := map[StepType]bool{}
	for _, t := range a.Process.ConfiguredStepTypes {
		if !validStepTypes[t] {
			return fmt.Errorf("process %s: unknown step type %s", a.Process.ID, t)
		}
		if seen[t] {
			return fmt.Errorf("process %s: duplicate step type %s", a.Process.ID, t)
		}
		seen[t] = true
	}
	if !seen[a.Process.CurrentStepType] {
		return fmt.Errorf("process %s: current step %s not in configured steps", a.Process.ID, a.Process.CurrentStepType)
	}

	open := 0
	for _, al := range a.Alerts {
		if !al.IsResolved {
			open++
		}
	}
	if open > 1 {
		return fmt.Errorf("process %s: %d unresolved alerts", a.Process.ID, open)
	}
	if a.Process.Status == StatusPendingSupervisor && open == 0 {
		return fmt.Errorf("process %s: pending supervisor without an open alert", a.Process.ID)
	}

	return nil
}
