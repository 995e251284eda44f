package screening

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// StepType names a phase of the screening workflow.
type StepType string

const (
	StepConversation     StepType = "CONVERSATION"
	StepProfessionalData StepType = "PROFESSIONAL_DATA"
	StepDocumentUpload   StepType = "DOCUMENT_UPLOAD"
	StepDocumentReview   StepType = "DOCUMENT_REVIEW"
	StepPaymentInfo      StepType = "PAYMENT_INFO"
	StepClientValidation StepType = "CLIENT_VALIDATION"
)

var validStepTypes = map[StepType]bool{
	StepConversation:     true,
	StepProfessionalData: true,
	StepDocumentUpload:   true,
	StepDocumentReview:   true,
	StepPaymentInfo:      true,
	StepClientValidation: true,
}

// IsValidStepType reports whether t names a known step type.
func IsValidStepType(t string) bool {
	return validStepTypes[StepType(t)]
}

// externallyCompleted reports whether the step's completion is declared by
// the caller rather than derived from document state.
func (t StepType) externallyCompleted() bool {
	return t != StepDocumentUpload && t != StepDocumentReview
}

// ProcessStatus is the overall status of a screening process.
type ProcessStatus string

const (
	StatusInProgress        ProcessStatus = "IN_PROGRESS"
	StatusPendingSupervisor ProcessStatus = "PENDING_SUPERVISOR"
	StatusApproved          ProcessStatus = "APPROVED"
	StatusRejected          ProcessStatus = "REJECTED"
	StatusExpired           ProcessStatus = "EXPIRED"
	StatusCancelled         ProcessStatus = "CANCELLED"
)

// Terminal reports whether the status permits no further transitions.
func (s ProcessStatus) Terminal() bool {
	switch s {
	case StatusApproved, StatusRejected, StatusExpired, StatusCancelled:
		return true
	}
	return false
}

// DocumentStatus is the review state of a single screening document.
type DocumentStatus string

const (
	DocPendingUpload    DocumentStatus = "PENDING_UPLOAD"
	DocUploaded         DocumentStatus = "UPLOADED"
	DocPendingReview    DocumentStatus = "PENDING_REVIEW"
	DocApproved         DocumentStatus = "APPROVED"
	DocRejected         DocumentStatus = "REJECTED"
	DocCorrectionNeeded DocumentStatus = "CORRECTION_NEEDED"
	DocAlert            DocumentStatus = "ALERT"
	DocReused           DocumentStatus = "REUSED"
)

// Satisfied reports whether the document counts toward completing its upload
// step.
func (s DocumentStatus) Satisfied() bool {
	return s == DocApproved || s == DocReused
}

// ReviewDecision is a reviewer's verdict on a document pending review.
type ReviewDecision string

const (
	DecisionApprove    ReviewDecision = "APPROVED"
	DecisionReject     ReviewDecision = "REJECTED"
	DecisionCorrection ReviewDecision = "CORRECTION_NEEDED"
	DecisionAlert      ReviewDecision = "ALERT"
)

var validDecisions = map[ReviewDecision]bool{
	DecisionApprove:    true,
	DecisionReject:     true,
	DecisionCorrection: true,
	DecisionAlert:      true,
}

// AlertCategory classifies a supervisor escalation.
type AlertCategory string

const (
	AlertDocument      AlertCategory = "DOCUMENT"
	AlertData          AlertCategory = "DATA"
	AlertBehavior      AlertCategory = "BEHAVIOR"
	AlertCompliance    AlertCategory = "COMPLIANCE"
	AlertQualification AlertCategory = "QUALIFICATION"
	AlertOther         AlertCategory = "OTHER"
)

var validAlertCategories = map[AlertCategory]bool{
	AlertDocument:      true,
	AlertData:          true,
	AlertBehavior:      true,
	AlertCompliance:    true,
	AlertQualification: true,
	AlertOther:         true,
}

// IsValidAlertCategory reports whether c names a known alert category.
func IsValidAlertCategory(c string) bool {
	return validAlertCategories[AlertCategory(c)]
}

// Process maps to the screening_process table.
type Process struct {
	ID                  uuid.UUID     `db:"id" json:"id"`
	OrganizationID      uuid.UUID     `db:"organization_id" json:"organization_id"`
	ProfessionalID      uuid.UUID     `db:"professional_id" json:"professional_id"`
	Status              ProcessStatus `db:"status" json:"status"`
	CurrentStepType     StepType      `db:"current_step_type" json:"current_step_type"`
	ConfiguredStepTypes []StepType    `db:"configured_step_types" json:"configured_step_types"`
	SupervisorID        *uuid.UUID    `db:"supervisor_id" json:"supervisor_id,omitempty"`
	CancelledAt         *time.Time    `db:"cancelled_at" json:"cancelled_at,omitempty"`
	CancelledBy         *uuid.UUID    `db:"cancelled_by" json:"cancelled_by,omitempty"`
	CancellationReason  *string       `db:"cancellation_reason" json:"cancellation_reason,omitempty"`
	ComplianceReportURL *string       `db:"compliance_report_url" json:"compliance_report_url,omitempty"`
	ExpiresAt           *time.Time    `db:"expires_at" json:"expires_at,omitempty"`
	CreatedAt           time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt           time.Time     `db:"updated_at" json:"updated_at"`
}

// Step maps to the screening_step table: one row per configured step holding
// its auxiliary state.
type Step struct {
	ID          uuid.UUID       `db:"id" json:"id"`
	ProcessID   uuid.UUID       `db:"process_id" json:"process_id"`
	StepType    StepType        `db:"step_type" json:"step_type"`
	Position    int             `db:"position" json:"position"`
	Completed   bool            `db:"completed" json:"completed"`
	CompletedAt *time.Time      `db:"completed_at" json:"completed_at,omitempty"`
	Data        json.RawMessage `db:"data" json:"data,omitempty"`
	CreatedAt   time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time       `db:"updated_at" json:"updated_at"`
}

// ReviewNote is one entry in an append-only audit log. Notes are inserted and
// never updated or deleted.
type ReviewNote struct {
	ID        uuid.UUID `db:"id" json:"id"`
	Text      string    `db:"text" json:"text"`
	Action    string    `db:"action" json:"action"`
	ActorID   uuid.UUID `db:"actor_id" json:"actor_id"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// Document maps to the screening_document table.
type Document struct {
	ID             uuid.UUID      `db:"id" json:"id"`
	ProcessID      uuid.UUID      `db:"process_id" json:"process_id"`
	UploadStepID   uuid.UUID      `db:"upload_step_id" json:"upload_step_id"`
	DocumentTypeID uuid.UUID      `db:"document_type_id" json:"document_type_id"`
	IsRequired     bool           `db:"is_required" json:"is_required"`
	Position       int            `db:"position" json:"position"`
	Status         DocumentStatus `db:"status" json:"status"`
	ArtifactRef    *string        `db:"artifact_ref" json:"artifact_ref,omitempty"`
	ReviewNotes    []ReviewNote   `json:"review_notes,omitempty"`
	CreatedAt      time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time      `db:"updated_at" json:"updated_at"`
}

// Alert maps to the screening_alert table.
type Alert struct {
	ID           uuid.UUID     `db:"id" json:"id"`
	ProcessID    uuid.UUID     `db:"process_id" json:"process_id"`
	Reason       string        `db:"reason" json:"reason"`
	Category     AlertCategory `db:"category" json:"category"`
	RaisedAtStep StepType      `db:"raised_at_step" json:"raised_at_step"`
	Notes        []ReviewNote  `json:"notes,omitempty"`
	IsResolved   bool          `db:"is_resolved" json:"is_resolved"`
	Resolution   *string       `db:"resolution" json:"resolution,omitempty"`
	ResolvedAt   *time.Time    `db:"resolved_at" json:"resolved_at,omitempty"`
	ResolvedBy   *uuid.UUID    `db:"resolved_by" json:"resolved_by,omitempty"`
	CreatedAt    time.Time     `db:"created_at" json:"created_at"`
}

// Aggregate is a process and everything it owns, loaded and saved as one
// unit inside a single transaction.
type Aggregate struct {
	Process   *Process    `json:"process"`
	Steps     []*Step     `json:"steps"`
	Documents []*Document `json:"documents"`
	Alerts    []*Alert    `json:"alerts"`
}

// StepByType returns the step row for the given type, or nil.
func (a *Aggregate) StepByType(t StepType) *Step {
	for _, s := range a.Steps {
		if s.StepType == t {
			return s
		}
	}
	return nil
}

// CurrentStep returns the step row the process pointer is on, or nil.
func (a *Aggregate) CurrentStep() *Step {
	return a.StepByType(a.Process.CurrentStepType)
}

// DocumentByID returns the owned document with the given id, or nil.
func (a *Aggregate) DocumentByID(id uuid.UUID) *Document {
	for _, d := range a.Documents {
		if d.ID == id {
			return d
		}
	}
	return nil
}

// AlertByID returns the owned alert with the given id, or nil.
func (a *Aggregate) AlertByID(id uuid.UUID) *Alert {
	for _, al := range a.Alerts {
		if al.ID == id {
			return al
		}
	}
	return nil
}

// UnresolvedAlert returns the open alert for the process, or nil. The engine
// maintains at most one.
func (a *Aggregate) UnresolvedAlert() *Alert {
	for _, al := range a.Alerts {
		if !al.IsResolved {
			return al
		}
	}
	return nil
}

// typeSatisfied reports whether any document of the given type is APPROVED
// or REUSED, e.g. a replacement created after a rejection.
func (a *Aggregate) typeSatisfied(typeID uuid.UUID) bool {
	for _, d := range a.Documents {
		if d.DocumentTypeID == typeID && d.Status.Satisfied() {
			return true
		}
	}
	return false
}

// RequiredDocuments returns the documents that must be satisfied before the
// upload step can complete.
func (a *Aggregate) RequiredDocuments() []*Document {
	var out []*Document
	for _, d := range a.Documents {
		if d.IsRequired {
			out = append(out, d)
		}
	}
	return out
}
