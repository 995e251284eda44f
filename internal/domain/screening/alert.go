package screening

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// RaiseAlert opens a supervisor escalation and moves the process to
// PENDING_SUPERVISOR. At most one unresolved alert may exist per process.
func (a *Aggregate) RaiseAlert(reason string, category AlertCategory, actor uuid.UUID, now time.Time) (*Alert, error) {
	if a.Process.Status.Terminal() {
		return nil, fmt.Errorf("%w: status is %s", ErrProcessFinalized, a.Process.Status)
	}
	if a.UnresolvedAlert() != nil {
		return nil, ErrAlertConflict
	}
	if !validAlertCategories[category] {
		return nil, fmt.Errorf("invalid alert category: %s", category)
	}
	if reason == "" {
		return nil, fmt.Errorf("alert reason is required")
	}

	alert := &Alert{
		ID:           uuid.New(),
		ProcessID:    a.Process.ID,
		Reason:       reason,
		Category:     category,
		RaisedAtStep: a.Process.CurrentStepType,
		Notes:        []ReviewNote{newNote(reason, actionAlertRaised, actor, now)},
		CreatedAt:    now,
	}
	a.Alerts = append(a.Alerts, alert)

	// SupervisorID stays as assigned at creation, or empty until a
	// supervisor resolves the alert. The raising actor is a reviewer, not
	// the supervisor.
	a.Process.Status = StatusPendingSupervisor
	a.Process.UpdatedAt = now

	return alert, nil
}

// ResolveAlert closes an open alert. A non-rejecting resolution returns the
// process to IN_PROGRESS at the step the alert was raised on and reopens any
// document parked in ALERT for review; a rejecting resolution finalizes the
// process as REJECTED.
func (a *Aggregate) ResolveAlert(alertID uuid.UUID, resolution string, rejecting bool, actor uuid.UUID, now time.Time) error {
	if a.Process.Status.Terminal() {
		return fmt.Errorf("%w: status is %s", ErrProcessFinalized, a.Process.Status)
	}

	alert := a.AlertByID(alertID)
	if alert == nil {
		return fmt.Errorf("%w: alert %s", ErrNotFound, alertID)
	}
	if alert.IsResolved {
		return ErrAlertResolved
	}

	alert.IsResolved = true
	res := resolution
	alert.Resolution = &res
	resolvedBy := actor
	alert.ResolvedBy = &resolvedBy
	t := now
	alert.ResolvedAt = &t
	alert.Notes = append(alert.Notes, newNote(resolution, actionAlertResolved, actor, now))

	// The acting supervisor becomes the process's supervisor of record.
	if a.Process.SupervisorID == nil && actor != uuid.Nil {
		supervisor := actor
		a.Process.SupervisorID = &supervisor
	}

	if rejecting {
		a.Process.Status = StatusRejected
		a.Process.UpdatedAt = now
		return nil
	}

	if a.UnresolvedAlert() == nil {
		a.Process.Status = StatusInProgress
		a.Process.CurrentStepType = alert.RaisedAtStep
		for _, doc := range a.Documents {
			if doc.Status == DocAlert {
				doc.Status = DocPendingReview
				doc.ReviewNotes = append(doc.ReviewNotes, newNote(resolution, actionReviewReopened, actor, now))
				doc.UpdatedAt = now
			}
		}
	}
	a.Process.UpdatedAt = now

	return nil
}
