package screening

import (
	"errors"
	"testing"

	"github.com/google/uuid"
)

func TestUploadDocumentQueuesForReview(t *testing.T) {
	agg := newTestAggregate(StepDocumentUpload, StepClientValidation)
	doc := addDocument(agg, true, DocPendingUpload)
	actor := uuid.New()

	got, err := agg.UploadDocument(doc.ID, "s3://bucket/cv.pdf", actor, testTime)
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	if got.Status != DocPendingReview {
		t.Errorf("expected PENDING_REVIEW, got %s", got.Status)
	}
	if got.ArtifactRef == nil || *got.ArtifactRef != "s3://bucket/cv.pdf" {
		t.Error("artifact ref not recorded")
	}
	if len(got.ReviewNotes) != 2 {
		t.Fatalf("expected upload and pending_review notes, got %d", len(got.ReviewNotes))
	}
	if got.ReviewNotes[0].Action != actionUploaded || got.ReviewNotes[1].Action != actionPendingReview {
		t.Errorf("unexpected note actions: %s, %s", got.ReviewNotes[0].Action, got.ReviewNotes[1].Action)
	}
}

func TestUploadDocumentAfterCorrection(t *testing.T) {
	agg := newTestAggregate(StepDocumentUpload, StepClientValidation)
	doc := addDocument(agg, true, DocCorrectionNeeded)

	if _, err := agg.UploadDocument(doc.ID, "s3://bucket/cv-v2.pdf", uuid.New(), testTime); err != nil {
		t.Fatalf("re-upload after correction: %v", err)
	}
	if doc.Status != DocPendingReview {
		t.Errorf("expected PENDING_REVIEW, got %s", doc.Status)
	}
}

func TestUploadDocumentRejectsBadStates(t *testing.T) {
	for _, status := range []DocumentStatus{DocPendingReview, DocApproved, DocRejected, DocAlert, DocReused} {
		agg := newTestAggregate(StepDocumentUpload, StepClientValidation)
		doc := addDocument(agg, true, status)

		_, err := agg.UploadDocument(doc.ID, "s3://bucket/x.pdf", uuid.New(), testTime)
		if !errors.Is(err, ErrInvalidDocumentTransition) {
			t.Errorf("%s: expected ErrInvalidDocumentTransition, got %v", status, err)
		}
	}
}

func TestUploadDocumentUnknownID(t *testing.T) {
	agg := newTestAggregate(StepDocumentUpload, StepClientValidation)
	addDocument(agg, true, DocPendingUpload)

	_, err := agg.UploadDocument(uuid.New(), "s3://bucket/x.pdf", uuid.New(), testTime)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestReviewDocumentDecisions(t *testing.T) {
	cases := []struct {
		decision ReviewDecision
		want     DocumentStatus
		action   string
	}{
		{DecisionApprove, DocApproved, actionApproved},
		{DecisionReject, DocRejected, actionRejected},
		{DecisionCorrection, DocCorrectionNeeded, actionCorrectionNeeded},
	}
	for _, tc := range cases {
		agg := newTestAggregate(StepDocumentUpload, StepClientValidation)
		doc := addDocument(agg, true, DocPendingReview)

		got, err := agg.ReviewDocument(doc.ID, tc.decision, "looked at it", uuid.New(), testTime)
		if err != nil {
			t.Fatalf("%s: review: %v", tc.decision, err)
		}
		if got.Status != tc.want {
			t.Errorf("%s: expected %s, got %s", tc.decision, tc.want, got.Status)
		}
		last := got.ReviewNotes[len(got.ReviewNotes)-1]
		if last.Action != tc.action || last.Text != "looked at it" {
			t.Errorf("%s: unexpected audit note %q/%q", tc.decision, last.Action, last.Text)
		}
	}
}

func TestReviewDocumentOnlyFromPendingReview(t *testing.T) {
	agg := newTestAggregate(StepDocumentUpload, StepClientValidation)
	doc := addDocument(agg, true, DocPendingUpload)

	_, err := agg.ReviewDocument(doc.ID, DecisionApprove, "", uuid.New(), testTime)
	if !errors.Is(err, ErrInvalidDocumentTransition) {
		t.Fatalf("expected ErrInvalidDocumentTransition, got %v", err)
	}
}

func TestReviewDecisionAlertEscalatesProcess(t *testing.T) {
	agg := newTestAggregate(StepDocumentUpload, StepClientValidation)
	doc := addDocument(agg, true, DocPendingReview)
	supervisor := uuid.New()

	got, err := agg.ReviewDocument(doc.ID, DecisionAlert, "signature looks forged", supervisor, testTime)
	if err != nil {
		t.Fatalf("review: %v", err)
	}
	if got.Status != DocAlert {
		t.Errorf("expected ALERT, got %s", got.Status)
	}
	if agg.Process.Status != StatusPendingSupervisor {
		t.Errorf("expected PENDING_SUPERVISOR, got %s", agg.Process.Status)
	}

	alert := agg.UnresolvedAlert()
	if alert == nil {
		t.Fatal("expected an open alert")
	}
	if alert.Category != AlertDocument {
		t.Errorf("expected DOCUMENT category, got %s", alert.Category)
	}
	if alert.Reason != "signature looks forged" {
		t.Errorf("unexpected alert reason %q", alert.Reason)
	}
	if alert.RaisedAtStep != StepDocumentUpload {
		t.Errorf("expected alert raised at DOCUMENT_UPLOAD, got %s", alert.RaisedAtStep)
	}
}

func TestReviewDecisionAlertWithOpenAlertLeavesDocumentUntouched(t *testing.T) {
	agg := newTestAggregate(StepDocumentUpload, StepClientValidation)
	doc := addDocument(agg, true, DocPendingReview)
	if _, err := agg.RaiseAlert("prior issue", AlertData, uuid.New(), testTime); err != nil {
		t.Fatalf("raise: %v", err)
	}
	agg.Process.Status = StatusInProgress // reviewing resumed work with a stale open alert

	_, err := agg.ReviewDocument(doc.ID, DecisionAlert, "another issue", uuid.New(), testTime)
	if !errors.Is(err, ErrAlertConflict) {
		t.Fatalf("expected ErrAlertConflict, got %v", err)
	}
	if doc.Status != DocPendingReview {
		t.Errorf("conflict must not mutate the document, got %s", doc.Status)
	}
	if len(doc.ReviewNotes) != 0 {
		t.Error("conflict must not append audit notes")
	}
}

func TestReuseDocument(t *testing.T) {
	agg := newTestAggregate(StepDocumentUpload, StepClientValidation)
	doc := addDocument(agg, true, DocPendingUpload)

	ref := "s3://bucket/old-license.pdf"
	source := &Document{
		ID:             uuid.New(),
		ProcessID:      uuid.New(),
		DocumentTypeID: doc.DocumentTypeID,
		Status:         DocApproved,
		ArtifactRef:    &ref,
	}

	got, err := agg.ReuseDocument(doc.ID, source, uuid.New(), testTime)
	if err != nil {
		t.Fatalf("reuse: %v", err)
	}
	if got.Status != DocReused {
		t.Errorf("expected REUSED, got %s", got.Status)
	}
	if got.ArtifactRef == nil || *got.ArtifactRef != ref {
		t.Error("reuse must carry over the source artifact")
	}
	if !got.Status.Satisfied() {
		t.Error("reused documents must satisfy the upload gate")
	}
}

func TestReuseReplacesRejectedDocument(t *testing.T) {
	agg := newTestAggregate(StepDocumentUpload, StepClientValidation)
	doc := addDocument(agg, true, DocPendingReview)

	if _, err := agg.ReviewDocument(doc.ID, DecisionReject, "illegible scan", uuid.New(), testTime); err != nil {
		t.Fatalf("reject: %v", err)
	}

	// Rejection is terminal for the instance: no re-upload, no advancing.
	if _, err := agg.UploadDocument(doc.ID, "s3://b/retry.pdf", uuid.New(), testTime); !errors.Is(err, ErrInvalidDocumentTransition) {
		t.Fatalf("re-upload after rejection: expected ErrInvalidDocumentTransition, got %v", err)
	}
	if err := agg.AdvanceStep(testTime); !errors.Is(err, ErrInvalidStepTransition) {
		t.Fatalf("advance with rejected required doc: expected ErrInvalidStepTransition, got %v", err)
	}

	ref := "s3://bucket/prior-license.pdf"
	source := &Document{
		ID:             uuid.New(),
		ProcessID:      uuid.New(),
		DocumentTypeID: doc.DocumentTypeID,
		Status:         DocApproved,
		ArtifactRef:    &ref,
	}
	replacement, err := agg.ReuseDocument(doc.ID, source, uuid.New(), testTime)
	if err != nil {
		t.Fatalf("reuse after rejection: %v", err)
	}
	if replacement.ID == doc.ID {
		t.Error("expected a fresh document instance, not a mutation of the rejected one")
	}
	if replacement.Status != DocReused {
		t.Errorf("expected REUSED, got %s", replacement.Status)
	}
	if doc.Status != DocRejected {
		t.Errorf("rejected instance must stay on record, got %s", doc.Status)
	}
	if len(agg.Documents) != 2 {
		t.Fatalf("expected 2 documents, got %d", len(agg.Documents))
	}

	// The replacement satisfies the upload gate for the rejected type.
	if err := agg.AdvanceStep(testTime); err != nil {
		t.Fatalf("advance after replacement: %v", err)
	}
	if agg.Process.CurrentStepType != StepClientValidation {
		t.Errorf("expected pointer on CLIENT_VALIDATION, got %s", agg.Process.CurrentStepType)
	}
}

func TestReuseDocumentGuards(t *testing.T) {
	agg := newTestAggregate(StepDocumentUpload, StepClientValidation)
	doc := addDocument(agg, true, DocPendingUpload)

	// Source of a different document type.
	source := &Document{ID: uuid.New(), DocumentTypeID: uuid.New(), Status: DocApproved}
	if _, err := agg.ReuseDocument(doc.ID, source, uuid.New(), testTime); !errors.Is(err, ErrInvalidDocumentTransition) {
		t.Errorf("type mismatch: expected ErrInvalidDocumentTransition, got %v", err)
	}

	// Source not approved.
	source = &Document{ID: uuid.New(), DocumentTypeID: doc.DocumentTypeID, Status: DocRejected}
	if _, err := agg.ReuseDocument(doc.ID, source, uuid.New(), testTime); !errors.Is(err, ErrInvalidDocumentTransition) {
		t.Errorf("unapproved source: expected ErrInvalidDocumentTransition, got %v", err)
	}

	// Target already uploaded.
	doc.Status = DocPendingReview
	source = &Document{ID: uuid.New(), DocumentTypeID: doc.DocumentTypeID, Status: DocApproved}
	if _, err := agg.ReuseDocument(doc.ID, source, uuid.New(), testTime); !errors.Is(err, ErrInvalidDocumentTransition) {
		t.Errorf("bad target state: expected ErrInvalidDocumentTransition, got %v", err)
	}
}
