package screening

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
)

var testTime = time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)

// newTestAggregate builds an in-progress process with the given step order
// and no documents.
func newTestAggregate(types ...StepType) *Aggregate {
	p := &Process{
		ID:                  uuid.New(),
		OrganizationID:      uuid.New(),
		ProfessionalID:      uuid.New(),
		Status:              StatusInProgress,
		CurrentStepType:     types[0],
		ConfiguredStepTypes: types,
		CreatedAt:           testTime,
		UpdatedAt:           testTime,
	}
	agg := &Aggregate{Process: p}
	for i, t := range types {
		agg.Steps = append(agg.Steps, &Step{
			ID:        uuid.New(),
			ProcessID: p.ID,
			StepType:  t,
			Position:  i,
			CreatedAt: testTime,
			UpdatedAt: testTime,
		})
	}
	return agg
}

// addDocument attaches a document slot to the upload step.
func addDocument(agg *Aggregate, required bool, status DocumentStatus) *Document {
	upload := agg.StepByType(StepDocumentUpload)
	d := &Document{
		ID:             uuid.New(),
		ProcessID:      agg.Process.ID,
		UploadStepID:   upload.ID,
		DocumentTypeID: uuid.New(),
		IsRequired:     required,
		Position:       len(agg.Documents),
		Status:         status,
		CreatedAt:      testTime,
		UpdatedAt:      testTime,
	}
	agg.Documents = append(agg.Documents, d)
	return d
}

func TestNextStepType(t *testing.T) {
	agg := newTestAggregate(StepConversation, StepProfessionalData, StepClientValidation)

	next, ok := agg.NextStepType()
	if !ok || next != StepProfessionalData {
		t.Fatalf("expected PROFESSIONAL_DATA next, got %s ok=%v", next, ok)
	}

	agg.Process.CurrentStepType = StepClientValidation
	if _, ok := agg.NextStepType(); ok {
		t.Fatal("expected no next step after the last one")
	}
}

func TestSubmitStepDataMarksExternalStepsComplete(t *testing.T) {
	agg := newTestAggregate(StepConversation, StepClientValidation)

	if err := agg.SubmitStepData(StepConversation, []byte(`{"notes":"ok"}`), testTime); err != nil {
		t.Fatalf("submit: %v", err)
	}

	step := agg.StepByType(StepConversation)
	if !step.Completed {
		t.Error("conversation step should complete on submission")
	}
	if step.CompletedAt == nil {
		t.Error("completed_at should be set")
	}
	if string(step.Data) != `{"notes":"ok"}` {
		t.Errorf("unexpected step data: %s", step.Data)
	}
}

func TestSubmitStepDataDoesNotCompleteDocumentSteps(t *testing.T) {
	agg := newTestAggregate(StepDocumentUpload, StepClientValidation)
	addDocument(agg, true, DocPendingUpload)

	if err := agg.SubmitStepData(StepDocumentUpload, []byte(`{}`), testTime); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if agg.StepByType(StepDocumentUpload).Completed {
		t.Error("document upload step must derive completion from documents")
	}
}

func TestSubmitStepDataRejectsNonCurrentStep(t *testing.T) {
	agg := newTestAggregate(StepConversation, StepProfessionalData)

	err := agg.SubmitStepData(StepProfessionalData, []byte(`{}`), testTime)
	if !errors.Is(err, ErrInvalidStepTransition) {
		t.Fatalf("expected ErrInvalidStepTransition, got %v", err)
	}
}

func TestAdvanceStepRequiresCompletion(t *testing.T) {
	agg := newTestAggregate(StepConversation, StepProfessionalData)

	err := agg.AdvanceStep(testTime)
	if !errors.Is(err, ErrInvalidStepTransition) {
		t.Fatalf("expected ErrInvalidStepTransition, got %v", err)
	}
	if agg.Process.CurrentStepType != StepConversation {
		t.Error("failed advance must not move the pointer")
	}
}

func TestAdvanceStepMovesPointer(t *testing.T) {
	agg := newTestAggregate(StepConversation, StepProfessionalData)
	if err := agg.SubmitStepData(StepConversation, []byte(`{}`), testTime); err != nil {
		t.Fatalf("submit: %v", err)
	}

	if err := agg.AdvanceStep(testTime); err != nil {
		t.Fatalf("advance: %v", err)
	}
	if agg.Process.CurrentStepType != StepProfessionalData {
		t.Errorf("expected pointer on PROFESSIONAL_DATA, got %s", agg.Process.CurrentStepType)
	}
	if agg.Process.Status != StatusInProgress {
		t.Errorf("expected IN_PROGRESS, got %s", agg.Process.Status)
	}
}

func TestAdvancePastFinalStepApproves(t *testing.T) {
	agg := newTestAggregate(StepConversation, StepClientValidation)
	if err := agg.SubmitStepData(StepConversation, []byte(`{}`), testTime); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if err := agg.AdvanceStep(testTime); err != nil {
		t.Fatalf("advance: %v", err)
	}
	if err := agg.SubmitStepData(StepClientValidation, []byte(`{}`), testTime); err != nil {
		t.Fatalf("submit: %v", err)
	}

	if err := agg.AdvanceStep(testTime); err != nil {
		t.Fatalf("final advance: %v", err)
	}
	if agg.Process.Status != StatusApproved {
		t.Errorf("expected APPROVED, got %s", agg.Process.Status)
	}
	if agg.Process.CurrentStepType != StepClientValidation {
		t.Error("pointer must freeze on the last step")
	}
}

func TestAdvanceUploadStepGatedOnRequiredDocuments(t *testing.T) {
	agg := newTestAggregate(StepDocumentUpload, StepClientValidation)
	required := addDocument(agg, true, DocPendingUpload)
	addDocument(agg, false, DocPendingUpload)

	err := agg.AdvanceStep(testTime)
	if !errors.Is(err, ErrInvalidStepTransition) {
		t.Fatalf("expected gate on pending required document, got %v", err)
	}

	// Optional documents never gate; satisfying the required one unblocks.
	required.Status = DocApproved
	if err := agg.AdvanceStep(testTime); err != nil {
		t.Fatalf("advance after approval: %v", err)
	}
	if agg.Process.CurrentStepType != StepClientValidation {
		t.Errorf("expected pointer on CLIENT_VALIDATION, got %s", agg.Process.CurrentStepType)
	}
}

func TestAdvanceUploadStepAcceptsReusedDocuments(t *testing.T) {
	agg := newTestAggregate(StepDocumentUpload, StepClientValidation)
	doc := addDocument(agg, true, DocReused)

	if err := agg.AdvanceStep(testTime); err != nil {
		t.Fatalf("advance with reused document %s: %v", doc.ID, err)
	}
}

func TestAdvanceReviewStepGatedOnPendingReviews(t *testing.T) {
	agg := newTestAggregate(StepDocumentUpload, StepDocumentReview, StepClientValidation)
	doc := addDocument(agg, true, DocPendingReview)
	agg.Process.CurrentStepType = StepDocumentReview

	err := agg.AdvanceStep(testTime)
	if !errors.Is(err, ErrInvalidStepTransition) {
		t.Fatalf("expected gate on pending review, got %v", err)
	}

	doc.Status = DocApproved
	if err := agg.AdvanceStep(testTime); err != nil {
		t.Fatalf("advance after review: %v", err)
	}
}

func TestTerminalProcessRejectsEvents(t *testing.T) {
	for _, status := range []ProcessStatus{StatusApproved, StatusRejected, StatusExpired, StatusCancelled} {
		agg := newTestAggregate(StepConversation)
		agg.Process.Status = status

		if err := agg.AdvanceStep(testTime); !errors.Is(err, ErrProcessFinalized) {
			t.Errorf("%s: advance: expected ErrProcessFinalized, got %v", status, err)
		}
		if err := agg.SubmitStepData(StepConversation, nil, testTime); !errors.Is(err, ErrProcessFinalized) {
			t.Errorf("%s: submit: expected ErrProcessFinalized, got %v", status, err)
		}
	}
}

func TestPendingSupervisorGatesProgress(t *testing.T) {
	agg := newTestAggregate(StepConversation, StepClientValidation)
	agg.Process.Status = StatusPendingSupervisor

	if err := agg.AdvanceStep(testTime); !errors.Is(err, ErrInvalidStepTransition) {
		t.Errorf("advance: expected ErrInvalidStepTransition, got %v", err)
	}
	if err := agg.SubmitStepData(StepConversation, nil, testTime); !errors.Is(err, ErrInvalidStepTransition) {
		t.Errorf("submit: expected ErrInvalidStepTransition, got %v", err)
	}
}
