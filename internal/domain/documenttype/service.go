package documenttype

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/medscreen/medscreen/internal/domain/screening"
)

// FamilyResolver expands an organization into its family for configuration
// visibility. Satisfied by the organization service.
type FamilyResolver interface {
	FamilyIDs(ctx context.Context, id uuid.UUID) ([]uuid.UUID, error)
}

type Service struct {
	repo     Repository
	families FamilyResolver
	logger   zerolog.Logger
}

func NewService(repo Repository, families FamilyResolver, logger zerolog.Logger) *Service {
	return &Service{
		repo:     repo,
		families: families,
		logger:   logger.With().Str("component", "documenttype").Logger(),
	}
}

func validate(d *DocumentType) error {
	if d.OrganizationID == uuid.Nil {
		return fmt.Errorf("organization_id is required")
	}
	if strings.TrimSpace(d.Name) == "" {
		return fmt.Errorf("document type name is required")
	}
	return nil
}

func (s *Service) Create(ctx context.Context, d *DocumentType) error {
	if err := validate(d); err != nil {
		return err
	}
	d.Active = true
	if err := s.repo.Create(ctx, d); err != nil {
		return err
	}
	s.logger.Info().Str("document_type_id", d.ID.String()).Str("name", d.Name).Msg("document type created")
	return nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*DocumentType, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) Update(ctx context.Context, d *DocumentType) error {
	if err := validate(d); err != nil {
		return err
	}
	return s.repo.Update(ctx, d)
}

// Delete soft-deletes a document type unless screening documents still
// reference it.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	n, err := s.repo.ReferenceCount(ctx, id)
	if err != nil {
		return err
	}
	if n > 0 {
		return fmt.Errorf("%w: %d references", ErrInUse, n)
	}
	return s.repo.SoftDelete(ctx, id)
}

// ListVisible returns the document types an organization can use: its own and
// those of every organization in its family.
func (s *Service) ListVisible(ctx context.Context, orgID uuid.UUID, includeDeleted bool, limit, offset int) ([]*DocumentType, int, error) {
	family, err := s.families.FamilyIDs(ctx, orgID)
	if err != nil {
		return nil, 0, fmt.Errorf("resolve organization family: %w", err)
	}
	return s.repo.ListByOrganizations(ctx, family, includeDeleted, limit, offset)
}

// RequirementsFor resolves the document slots a new screening process needs,
// satisfying screening.RequirementSource. Inactive types and types that do
// not apply to the professional's type are skipped.
func (s *Service) RequirementsFor(ctx context.Context, orgID uuid.UUID, professionalType string) ([]screening.DocumentRequirement, error) {
	family, err := s.families.FamilyIDs(ctx, orgID)
	if err != nil {
		return nil, fmt.Errorf("resolve organization family: %w", err)
	}

	// Requirements are configuration-sized; no pagination needed.
	types, _, err := s.repo.ListByOrganizations(ctx, family, false, 1000, 0)
	if err != nil {
		return nil, err
	}

	var reqs []screening.DocumentRequirement
	for _, d := range types {
		if !d.Active || !d.Matches(professionalType) {
			continue
		}
		reqs = append(reqs, screening.DocumentRequirement{
			DocumentTypeID: d.ID,
			Required:       d.Required,
		})
	}
	return reqs, nil
}
