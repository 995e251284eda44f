package organization

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/medscreen/medscreen/internal/domain/screening"
)

var slugPattern = regexp.MustCompile(`^[a-z0-9]+(-[a-z0-9]+)*$`)

// DefaultTTLDays is applied when an organization does not set its own
// screening deadline.
const DefaultTTLDays = 90

type Service struct {
	repo   Repository
	logger zerolog.Logger
}

func NewService(repo Repository, logger zerolog.Logger) *Service {
	return &Service{repo: repo, logger: logger.With().Str("component", "organization").Logger()}
}

func (s *Service) validate(ctx context.Context, o *Organization) error {
	if strings.TrimSpace(o.Name) == "" {
		return fmt.Errorf("organization name is required")
	}
	if !slugPattern.MatchString(o.Slug) {
		return fmt.Errorf("invalid slug %q", o.Slug)
	}
	if len(o.StepTemplate) == 0 {
		return fmt.Errorf("step template is required")
	}
	seen := make(map[string]bool, len(o.StepTemplate))
	for _, t := range o.StepTemplate {
		if !screening.IsValidStepType(t) {
			return fmt.Errorf("unknown step type %q", t)
		}
		if seen[t] {
			return fmt.Errorf("duplicate step type %q", t)
		}
		seen[t] = true
	}
	if o.ScreeningTTLDays < 0 {
		return fmt.Errorf("screening ttl must not be negative")
	}

	if o.ParentOrganizationID != nil {
		if *o.ParentOrganizationID == o.ID {
			return fmt.Errorf("%w: organization cannot be its own parent", ErrInvalidParent)
		}
		if _, err := s.repo.GetByID(ctx, *o.ParentOrganizationID); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidParent, err)
		}
	}
	return nil
}

func (s *Service) Create(ctx context.Context, o *Organization) error {
	if o.ScreeningTTLDays == 0 {
		o.ScreeningTTLDays = DefaultTTLDays
	}
	o.Active = true
	if err := s.validate(ctx, o); err != nil {
		return err
	}
	if err := s.repo.Create(ctx, o); err != nil {
		return err
	}
	s.logger.Info().Str("organization_id", o.ID.String()).Str("slug", o.Slug).Msg("organization created")
	return nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Organization, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) GetBySlug(ctx context.Context, slug string) (*Organization, error) {
	return s.repo.GetBySlug(ctx, slug)
}

func (s *Service) Update(ctx context.Context, o *Organization) error {
	if err := s.validate(ctx, o); err != nil {
		return err
	}
	return s.repo.Update(ctx, o)
}

func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	return s.repo.SoftDelete(ctx, id)
}

func (s *Service) List(ctx context.Context, includeDeleted bool, limit, offset int) ([]*Organization, int, error) {
	return s.repo.List(ctx, includeDeleted, limit, offset)
}

func (s *Service) FamilyIDs(ctx context.Context, id uuid.UUID) ([]uuid.UUID, error) {
	return s.repo.FamilyIDs(ctx, id)
}

// ScreeningConfig exposes the slice of configuration the screening engine
// needs, satisfying screening.OrgConfigSource.
func (s *Service) ScreeningConfig(ctx context.Context, orgID uuid.UUID) (*screening.OrgConfig, error) {
	o, err := s.repo.GetByID(ctx, orgID)
	if err != nil {
		return nil, err
	}
	return &screening.OrgConfig{
		StepTemplate:     o.StepTemplate,
		ScreeningTTLDays: o.ScreeningTTLDays,
	}, nil
}
