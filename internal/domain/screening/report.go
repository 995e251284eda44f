package screening

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/medscreen/medscreen/internal/platform/blobstore"
)

// complianceReport is the JSON document published when a process is approved.
// It snapshots the full audit trail so downstream compliance checks do not
// need database access.
type complianceReport struct {
	ProcessID      string           `json:"process_id"`
	OrganizationID string           `json:"organization_id"`
	ProfessionalID string           `json:"professional_id"`
	ApprovedAt     time.Time        `json:"approved_at"`
	Steps          []reportStep     `json:"steps"`
	Documents      []reportDocument `json:"documents"`
	Alerts         []reportAlert    `json:"alerts,omitempty"`
}

type reportStep struct {
	StepType    StepType   `json:"step_type"`
	Position    int        `json:"position"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

type reportDocument struct {
	DocumentTypeID string         `json:"document_type_id"`
	Status         DocumentStatus `json:"status"`
	ArtifactRef    *string        `json:"artifact_ref,omitempty"`
	Notes          []ReviewNote   `json:"notes,omitempty"`
}

type reportAlert struct {
	Category   AlertCategory `json:"category"`
	Reason     string        `json:"reason"`
	Resolution *string       `json:"resolution,omitempty"`
	ResolvedAt *time.Time    `json:"resolved_at,omitempty"`
}

// BlobReportPublisher renders compliance reports and persists them in the
// artifact store.
type BlobReportPublisher struct {
	store blobstore.Store
	now   func() time.Time
}

func NewBlobReportPublisher(store blobstore.Store) *BlobReportPublisher {
	return &BlobReportPublisher{store: store, now: time.Now}
}

func (p *BlobReportPublisher) PublishComplianceReport(ctx context.Context, agg *Aggregate) (string, error) {
	report := complianceReport{
		ProcessID:      agg.Process.ID.String(),
		OrganizationID: agg.Process.OrganizationID.String(),
		ProfessionalID: agg.Process.ProfessionalID.String(),
		ApprovedAt:     p.now().UTC(),
	}
	for _, s := range agg.Steps {
		report.Steps = append(report.Steps, reportStep{
			StepType:    s.StepType,
			Position:    s.Position,
			CompletedAt: s.CompletedAt,
		})
	}
	for _, d := range agg.Documents {
		report.Documents = append(report.Documents, reportDocument{
			DocumentTypeID: d.DocumentTypeID.String(),
			Status:         d.Status,
			ArtifactRef:    d.ArtifactRef,
			Notes:          d.ReviewNotes,
		})
	}
	for _, al := range agg.Alerts {
		report.Alerts = append(report.Alerts, reportAlert{
			Category:   al.Category,
			Reason:     al.Reason,
			Resolution: al.Resolution,
			ResolvedAt: al.ResolvedAt,
		})
	}

	payload, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode compliance report: %w", err)
	}

	key := fmt.Sprintf("screenings/%s/compliance-report.json", agg.Process.ID)
	art, err := p.store.Put(ctx, key, "application/json", payload)
	if err != nil {
		return "", err
	}
	return art.Ref, nil
}
