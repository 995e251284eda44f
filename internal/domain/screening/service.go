package screening

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/medscreen/medscreen/internal/platform/blobstore"
	"github.com/medscreen/medscreen/internal/platform/notification"
)

// TxRunner runs fn atomically. Production wiring runs fn inside a
// serializable database transaction; tests substitute a passthrough.
type TxRunner func(ctx context.Context, fn func(ctx context.Context) error) error

// OrgConfig is the slice of organization configuration the screening engine
// needs to start a process.
type OrgConfig struct {
	StepTemplate     []string
	ScreeningTTLDays int
}

// OrgConfigSource resolves organization screening configuration. Implemented
// by an adapter over the organization service to avoid a package cycle.
type OrgConfigSource interface {
	ScreeningConfig(ctx context.Context, orgID uuid.UUID) (*OrgConfig, error)
}

// ProfessionalInfo is the directory record for a screened professional.
type ProfessionalInfo struct {
	ID               uuid.UUID
	OrganizationID   uuid.UUID
	ProfessionalType string
	FullName         string
	Email            string
}

// ProfessionalDirectory looks up professionals under screening.
type ProfessionalDirectory interface {
	Professional(ctx context.Context, id uuid.UUID) (*ProfessionalInfo, error)
}

// DocumentRequirement is one document type a process must collect.
type DocumentRequirement struct {
	DocumentTypeID uuid.UUID
	Required       bool
}

// RequirementSource resolves which document types apply to a professional of
// the given type within an organization.
type RequirementSource interface {
	RequirementsFor(ctx context.Context, orgID uuid.UUID, professionalType string) ([]DocumentRequirement, error)
}

// ReportPublisher renders and stores the compliance report for an approved
// process and returns its stable URL.
type ReportPublisher interface {
	PublishComplianceReport(ctx context.Context, agg *Aggregate) (string, error)
}

// Service coordinates the screening engine: it loads an aggregate, applies a
// single transition and persists the result, all inside one transaction.
type Service struct {
	repo         Repository
	runTx        TxRunner
	orgs         OrgConfigSource
	directory    ProfessionalDirectory
	requirements RequirementSource
	reports      ReportPublisher
	artifacts    blobstore.Store
	notifier     notification.Notifier
	logger       zerolog.Logger
	now          func() time.Time
}

func NewService(repo Repository, runTx TxRunner, orgs OrgConfigSource, directory ProfessionalDirectory,
	requirements RequirementSource, reports ReportPublisher, artifacts blobstore.Store,
	notifier notification.Notifier, logger zerolog.Logger) *Service {
	return &Service{
		repo:         repo,
		runTx:        runTx,
		orgs:         orgs,
		directory:    directory,
		requirements: requirements,
		reports:      reports,
		artifacts:    artifacts,
		notifier:     notifier,
		logger:       logger.With().Str("component", "screening").Logger(),
		now:          time.Now,
	}
}

// CreateProcess starts a screening process for a professional using the
// organization's step template. Document slots are pre-created from the
// document type requirements matching the professional's type.
func (s *Service) CreateProcess(ctx context.Context, orgID, professionalID uuid.UUID, supervisorID *uuid.UUID) (*Aggregate, error) {
	prof, err := s.directory.Professional(ctx, professionalID)
	if err != nil {
		return nil, fmt.Errorf("resolve professional: %w", err)
	}
	if prof.OrganizationID != orgID {
		return nil, fmt.Errorf("professional %s: %w", professionalID, ErrNotFound)
	}

	cfg, err := s.orgs.ScreeningConfig(ctx, orgID)
	if err != nil {
		return nil, fmt.Errorf("resolve organization config: %w", err)
	}
	if len(cfg.StepTemplate) == 0 {
		return nil, fmt.Errorf("organization %s has no steps configured: %w", orgID, ErrInvalidTemplate)
	}

	now := s.now()
	types := make([]StepType, 0, len(cfg.StepTemplate))
	seen := make(map[StepType]bool, len(cfg.StepTemplate))
	for _, raw := range cfg.StepTemplate {
		if !IsValidStepType(raw) {
			return nil, fmt.Errorf("unknown step type %q: %w", raw, ErrInvalidTemplate)
		}
		t := StepType(raw)
		if seen[t] {
			return nil, fmt.Errorf("duplicate step type %q: %w", raw, ErrInvalidTemplate)
		}
		seen[t] = true
		types = append(types, t)
	}

	p := &Process{
		ID:                  uuid.New(),
		OrganizationID:      orgID,
		ProfessionalID:      professionalID,
		Status:              StatusInProgress,
		CurrentStepType:     types[0],
		ConfiguredStepTypes: types,
		SupervisorID:        supervisorID,
		CreatedAt:           now,
		UpdatedAt:           now,
	}
	if cfg.ScreeningTTLDays > 0 {
		exp := now.AddDate(0, 0, cfg.ScreeningTTLDays)
		p.ExpiresAt = &exp
	}

	agg := &Aggregate{Process: p}
	for i, t := range types {
		agg.Steps = append(agg.Steps, &Step{
			ID:        uuid.New(),
			ProcessID: p.ID,
			StepType:  t,
			Position:  i,
			CreatedAt: now,
			UpdatedAt: now,
		})
	}

	if upload := agg.StepByType(StepDocumentUpload); upload != nil {
		reqs, err := s.requirements.RequirementsFor(ctx, orgID, prof.ProfessionalType)
		if err != nil {
			return nil, fmt.Errorf("resolve document requirements: %w", err)
		}
		for i, req := range reqs {
			agg.Documents = append(agg.Documents, &Document{
				ID:             uuid.New(),
				ProcessID:      p.ID,
				UploadStepID:   upload.ID,
				DocumentTypeID: req.DocumentTypeID,
				IsRequired:     req.Required,
				Position:       i,
				Status:         DocPendingUpload,
				CreatedAt:      now,
				UpdatedAt:      now,
			})
		}
	}

	if err := agg.Validate(); err != nil {
		return nil, err
	}

	err = s.runTx(ctx, func(ctx context.Context) error {
		return s.repo.CreateAggregate(ctx, agg)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("process_id", p.ID.String()).
		Str("professional_id", professionalID.String()).
		Int("steps", len(agg.Steps)).
		Int("documents", len(agg.Documents)).
		Msg("screening process created")
	return agg, nil
}

// Get loads a process with its steps, documents and alerts.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Aggregate, error) {
	return s.repo.GetAggregate(ctx, id)
}

// List returns processes for an organization, newest first. An empty status
// matches all statuses.
func (s *Service) List(ctx context.Context, orgID uuid.UUID, status ProcessStatus, limit, offset int) ([]*Process, int, error) {
	return s.repo.ListByOrganization(ctx, orgID, status, limit, offset)
}

// mutate loads the aggregate, applies fn and saves, all in one transaction.
func (s *Service) mutate(ctx context.Context, processID uuid.UUID, fn func(agg *Aggregate) error) (*Aggregate, error) {
	var agg *Aggregate
	err := s.runTx(ctx, func(ctx context.Context) error {
		var err error
		agg, err = s.repo.GetAggregate(ctx, processID)
		if err != nil {
			return err
		}
		if err := fn(agg); err != nil {
			return err
		}
		return s.repo.SaveAggregate(ctx, agg)
	})
	if err != nil {
		return nil, err
	}
	return agg, nil
}

// SubmitStepData records payload for the current step, marking it completed
// when the step type completes on submission.
func (s *Service) SubmitStepData(ctx context.Context, processID uuid.UUID, stepType StepType, payload []byte) (*Aggregate, error) {
	return s.mutate(ctx, processID, func(agg *Aggregate) error {
		return agg.SubmitStepData(stepType, payload, s.now())
	})
}

// AdvanceStep moves the process to its next step. Advancing past the final
// step approves the process and publishes its compliance report.
func (s *Service) AdvanceStep(ctx context.Context, processID uuid.UUID) (*Aggregate, error) {
	agg, err := s.mutate(ctx, processID, func(agg *Aggregate) error {
		if err := agg.AdvanceStep(s.now()); err != nil {
			return err
		}
		if agg.Process.Status != StatusApproved {
			return nil
		}
		url, err := s.reports.PublishComplianceReport(ctx, agg)
		if err != nil {
			return fmt.Errorf("publish compliance report: %w", err)
		}
		agg.Process.ComplianceReportURL = &url
		return nil
	})
	if err != nil {
		return nil, err
	}

	if agg.Process.Status == StatusApproved {
		s.logger.Info().
			Str("process_id", processID.String()).
			Msg("screening process approved")
	}
	return agg, nil
}

// UploadDocument stores the file in the artifact store and transitions the
// document. The blob write happens before the transaction; an orphaned
// artifact on a failed transition is harmless.
func (s *Service) UploadDocument(ctx context.Context, processID, docID uuid.UUID, filename, contentType string, data []byte, actor uuid.UUID) (*Document, error) {
	key := fmt.Sprintf("screenings/%s/documents/%s/%s", processID, docID, filename)
	art, err := s.artifacts.Put(ctx, key, contentType, data)
	if err != nil {
		return nil, fmt.Errorf("store artifact: %w", err)
	}

	var doc *Document
	_, err = s.mutate(ctx, processID, func(agg *Aggregate) error {
		var err error
		doc, err = agg.UploadDocument(docID, art.Ref, actor, s.now())
		return err
	})
	if err != nil {
		return nil, err
	}
	return doc, nil
}

// ReviewDocument applies a reviewer decision. An ALERT decision escalates the
// whole process; the supervisor is notified after the transaction commits.
func (s *Service) ReviewDocument(ctx context.Context, processID, docID uuid.UUID, decision ReviewDecision, noteText string, actor uuid.UUID) (*Document, error) {
	var doc *Document
	agg, err := s.mutate(ctx, processID, func(agg *Aggregate) error {
		var err error
		doc, err = agg.ReviewDocument(docID, decision, noteText, actor, s.now())
		return err
	})
	if err != nil {
		return nil, err
	}

	if decision == DecisionAlert {
		s.notifyEscalation(ctx, agg)
	}
	return doc, nil
}

// ReuseDocument satisfies a pending document slot with the professional's
// most recent approved document of the same type.
func (s *Service) ReuseDocument(ctx context.Context, processID, docID uuid.UUID, actor uuid.UUID) (*Document, error) {
	var doc *Document
	_, err := s.mutate(ctx, processID, func(agg *Aggregate) error {
		target := agg.DocumentByID(docID)
		if target == nil {
			return fmt.Errorf("document %s: %w", docID, ErrNotFound)
		}
		source, err := s.repo.FindReusableDocument(ctx, agg.Process.ProfessionalID, target.DocumentTypeID)
		if err != nil {
			return fmt.Errorf("find reusable document: %w", err)
		}
		doc, err = agg.ReuseDocument(docID, source, actor, s.now())
		return err
	})
	if err != nil {
		return nil, err
	}
	return doc, nil
}

// artifactURLTTL bounds how long a presigned document link stays valid.
const artifactURLTTL = 15 * time.Minute

// DocumentURL returns a time-limited download link for a document's stored
// artifact. The bytes are served by the artifact store, not the API server.
func (s *Service) DocumentURL(ctx context.Context, processID, docID uuid.UUID) (string, error) {
	agg, err := s.repo.GetAggregate(ctx, processID)
	if err != nil {
		return "", err
	}
	doc := agg.DocumentByID(docID)
	if doc == nil {
		return "", fmt.Errorf("document %s: %w", docID, ErrNotFound)
	}
	if doc.ArtifactRef == nil {
		return "", fmt.Errorf("document %s has no artifact: %w", docID, ErrNotFound)
	}

	url, err := s.artifacts.Presign(ctx, *doc.ArtifactRef, artifactURLTTL)
	if err != nil {
		return "", fmt.Errorf("presign artifact: %w", err)
	}
	return url, nil
}

// RaiseAlert escalates the process to the supervisor directly, outside of a
// document review.
func (s *Service) RaiseAlert(ctx context.Context, processID uuid.UUID, reason string, category AlertCategory, actor uuid.UUID) (*Alert, error) {
	var alert *Alert
	agg, err := s.mutate(ctx, processID, func(agg *Aggregate) error {
		var err error
		alert, err = agg.RaiseAlert(reason, category, actor, s.now())
		return err
	})
	if err != nil {
		return nil, err
	}

	s.notifyEscalation(ctx, agg)
	return alert, nil
}

// ResolveAlert closes an open alert. With rejecting set the process is
// finalized as rejected; otherwise it resumes at the step where the alert was
// raised.
func (s *Service) ResolveAlert(ctx context.Context, processID, alertID uuid.UUID, resolution string, rejecting bool, actor uuid.UUID) (*Aggregate, error) {
	return s.mutate(ctx, processID, func(agg *Aggregate) error {
		return agg.ResolveAlert(alertID, resolution, rejecting, actor, s.now())
	})
}

// Cancel abandons an in-flight process, recording who cancelled it and why.
func (s *Service) Cancel(ctx context.Context, processID uuid.UUID, reason string, actor uuid.UUID) (*Aggregate, error) {
	return s.mutate(ctx, processID, func(agg *Aggregate) error {
		return agg.Cancel(actor, reason, s.now())
	})
}

// ExpireOverdue finalizes in-progress processes whose deadline has passed.
// Each process expires in its own transaction so one conflict cannot block
// the rest of the batch. Returns the number of processes expired.
func (s *Service) ExpireOverdue(ctx context.Context, batchLimit int) (int, error) {
	now := s.now()
	ids, err := s.repo.ListExpired(ctx, now, batchLimit)
	if err != nil {
		return 0, fmt.Errorf("list expired: %w", err)
	}

	expired := 0
	for _, id := range ids {
		_, err := s.mutate(ctx, id, func(agg *Aggregate) error {
			return agg.Expire(now)
		})
		if err != nil {
			// Raced with another writer; the next sweep picks it up.
			s.logger.Warn().Err(err).Str("process_id", id.String()).Msg("expiry skipped")
			continue
		}
		expired++
	}

	if expired > 0 {
		s.logger.Info().Int("expired", expired).Msg("expiry sweep finished")
	}
	return expired, nil
}

// notifyEscalation tells the supervisor about an open alert. Delivery is best
// effort; the transition has already committed.
func (s *Service) notifyEscalation(ctx context.Context, agg *Aggregate) {
	alert := agg.UnresolvedAlert()
	if alert == nil {
		return
	}

	recipient := ""
	if agg.Process.SupervisorID != nil {
		recipient = agg.Process.SupervisorID.String()
	}
	msg := notification.Message{
		Recipient: recipient,
		Subject:   fmt.Sprintf("Screening alert: %s", alert.Category),
		Body:      alert.Reason,
		Category:  "screening_alert",
	}
	if err := s.notifier.Send(ctx, msg); err != nil {
		s.logger.Warn().Err(err).
			Str("process_id", agg.Process.ID.String()).
			Msg("alert notification failed")
	}
}
