package screening

import "errors"

// Error taxonomy surfaced to callers. All transitions are all-or-nothing
// within the owning transaction; on any of these the aggregate is unchanged.
var (
	// ErrInvalidStepTransition means a guard failed; the caller may retry
	// after satisfying the completion condition.
	ErrInvalidStepTransition = errors.New("invalid step transition")

	// ErrInvalidDocumentTransition means the document's current status does
	// not permit the requested transition.
	ErrInvalidDocumentTransition = errors.New("invalid document transition")

	// ErrProcessFinalized means the process is in a terminal status and
	// rejects every further event.
	ErrProcessFinalized = errors.New("process already finalized")

	// ErrAlertConflict means an unresolved alert already exists for the
	// process; it must be resolved before another can be raised.
	ErrAlertConflict = errors.New("unresolved alert already exists for process")

	// ErrAlertResolved means the targeted alert was already resolved.
	ErrAlertResolved = errors.New("alert already resolved")

	// ErrNotFound is returned for unknown processes, documents and alerts.
	ErrNotFound = errors.New("not found")

	// ErrInvalidTemplate means the organization's configured step template
	// cannot produce a runnable process.
	ErrInvalidTemplate = errors.New("invalid step template")
)
