package screening

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Audit log action labels. Every document status transition appends exactly
// one note per transition.
const (
	actionCreated          = "created"
	actionUploaded         = "uploaded"
	actionPendingReview    = "pending_review"
	actionApproved         = "approved"
	actionRejected         = "rejected"
	actionCorrectionNeeded = "correction_needed"
	actionAlertRaised      = "alert_raised"
	actionAlertResolved    = "alert_resolved"
	actionReviewReopened   = "review_reopened"
	actionReused           = "reused"
)

func newNote(text, action string, actor uuid.UUID, at time.Time) ReviewNote {
	return ReviewNote{
		ID:        uuid.New(),
		Text:      text,
		Action:    action,
		ActorID:   actor,
		CreatedAt: at,
	}
}

// UploadDocument records a submitted artifact for the document and moves it
// to PENDING_REVIEW. Permitted from PENDING_UPLOAD, CORRECTION_NEEDED and
// UPLOADED (re-submission before review).
func (a *Aggregate) UploadDocument(docID uuid.UUID, artifactRef string, actor uuid.UUID, now time.Time) (*Document, error) {
	if err := a.requireActive(); err != nil {
		return nil, err
	}

	doc := a.DocumentByID(docID)
	if doc == nil {
		return nil, fmt.Errorf("%w: document %s", ErrNotFound, docID)
	}

	switch doc.Status {
	case DocPendingUpload, DocCorrectionNeeded, DocUploaded:
	default:
		return nil, fmt.Errorf("%w: cannot upload while %s", ErrInvalidDocumentTransition, doc.Status)
	}

	ref := artifactRef
	doc.ArtifactRef = &ref
	doc.Status = DocUploaded
	doc.ReviewNotes = append(doc.ReviewNotes, newNote(artifactRef, actionUploaded, actor, now))

	// Upload is immediately queued for review.
	doc.Status = DocPendingReview
	doc.ReviewNotes = append(doc.ReviewNotes, newNote("", actionPendingReview, actor, now))
	doc.UpdatedAt = now
	a.Process.UpdatedAt = now

	return doc, nil
}

// ReviewDocument applies a reviewer decision to a document pending review.
// An ALERT decision additionally raises a supervisor alert, failing with
// ErrAlertConflict when one is already open.
func (a *Aggregate) ReviewDocument(docID uuid.UUID, decision ReviewDecision, noteText string, actor uuid.UUID, now time.Time) (*Document, error) {
	if err := a.requireActive(); err != nil {
		return nil, err
	}
	if !validDecisions[decision] {
		return nil, fmt.Errorf("%w: unknown decision %q", ErrInvalidDocumentTransition, decision)
	}

	doc := a.DocumentByID(docID)
	if doc == nil {
		return nil, fmt.Errorf("%w: document %s", ErrNotFound, docID)
	}
	if doc.Status != DocPendingReview {
		return nil, fmt.Errorf("%w: cannot review while %s", ErrInvalidDocumentTransition, doc.Status)
	}

	switch decision {
	case DecisionApprove:
		doc.Status = DocApproved
		doc.ReviewNotes = append(doc.ReviewNotes, newNote(noteText, actionApproved, actor, now))
	case DecisionReject:
		// Terminal for this document instance.
		doc.Status = DocRejected
		doc.ReviewNotes = append(doc.ReviewNotes, newNote(noteText, actionRejected, actor, now))
	case DecisionCorrection:
		doc.Status = DocCorrectionNeeded
		doc.ReviewNotes = append(doc.ReviewNotes, newNote(noteText, actionCorrectionNeeded, actor, now))
	case DecisionAlert:
		reason := noteText
		if reason == "" {
			reason = fmt.Sprintf("document %s flagged during review", doc.ID)
		}
		// Check the alert rule before mutating the document so a conflict
		// leaves the aggregate untouched.
		if _, err := a.RaiseAlert(reason, AlertDocument, actor, now); err != nil {
			return nil, err
		}
		doc.Status = DocAlert
		doc.ReviewNotes = append(doc.ReviewNotes, newNote(noteText, actionAlertRaised, actor, now))
	}

	doc.UpdatedAt = now
	a.Process.UpdatedAt = now
	return doc, nil
}

// ReuseDocument attaches a previously approved document from an earlier
// process as a REUSED document instance, bypassing upload and review. Into
// an empty PENDING_UPLOAD slot the slot itself becomes REUSED; for a
// REJECTED document, which is terminal, a replacement instance of the same
// type is created alongside it.
func (a *Aggregate) ReuseDocument(docID uuid.UUID, source *Document, actor uuid.UUID, now time.Time) (*Document, error) {
	if err := a.requireActive(); err != nil {
		return nil, err
	}

	doc := a.DocumentByID(docID)
	if doc == nil {
		return nil, fmt.Errorf("%w: document %s", ErrNotFound, docID)
	}
	if doc.Status != DocPendingUpload && doc.Status != DocRejected {
		return nil, fmt.Errorf("%w: cannot reuse into status %s", ErrInvalidDocumentTransition, doc.Status)
	}
	if source == nil || source.Status != DocApproved {
		return nil, fmt.Errorf("%w: source document is not approved", ErrInvalidDocumentTransition)
	}
	if source.DocumentTypeID != doc.DocumentTypeID {
		return nil, fmt.Errorf("%w: source document type mismatch", ErrInvalidDocumentTransition)
	}

	reuseNote := newNote(fmt.Sprintf("reused from process %s", source.ProcessID), actionReused, actor, now)

	if doc.Status == DocRejected {
		// The rejected instance stays on record; a fresh instance of the
		// same type carries the reused artifact.
		replacement := &Document{
			ID:             uuid.New(),
			ProcessID:      a.Process.ID,
			UploadStepID:   doc.UploadStepID,
			DocumentTypeID: doc.DocumentTypeID,
			IsRequired:     doc.IsRequired,
			Position:       doc.Position,
			Status:         DocReused,
			ArtifactRef:    source.ArtifactRef,
			ReviewNotes:    []ReviewNote{reuseNote},
			CreatedAt:      now,
			UpdatedAt:      now,
		}
		a.Documents = append(a.Documents, replacement)
		a.Process.UpdatedAt = now
		return replacement, nil
	}

	doc.Status = DocReused
	doc.ArtifactRef = source.ArtifactRef
	doc.ReviewNotes = append(doc.ReviewNotes, reuseNote)
	doc.UpdatedAt = now
	a.Process.UpdatedAt = now

	return doc, nil
}
