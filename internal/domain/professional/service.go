package professional

import (
	"context"
	"fmt"
	"net/mail"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/medscreen/medscreen/internal/domain/screening"
)

type Service struct {
	repo   Repository
	logger zerolog.Logger
}

func NewService(repo Repository, logger zerolog.Logger) *Service {
	return &Service{repo: repo, logger: logger.With().Str("component", "professional").Logger()}
}

func validate(p *Professional) error {
	if p.OrganizationID == uuid.Nil {
		return fmt.Errorf("organization_id is required")
	}
	if strings.TrimSpace(p.FullName) == "" {
		return fmt.Errorf("full name is required")
	}
	if _, err := mail.ParseAddress(p.Email); err != nil {
		return fmt.Errorf("invalid email %q", p.Email)
	}
	if strings.TrimSpace(p.ProfessionalType) == "" {
		return fmt.Errorf("professional type is required")
	}
	return nil
}

func (s *Service) Create(ctx context.Context, p *Professional) error {
	if err := validate(p); err != nil {
		return err
	}
	p.Active = true
	if err := s.repo.Create(ctx, p); err != nil {
		return err
	}
	s.logger.Info().Str("professional_id", p.ID.String()).Msg("professional registered")
	return nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Professional, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) Update(ctx context.Context, p *Professional) error {
	if err := validate(p); err != nil {
		return err
	}
	return s.repo.Update(ctx, p)
}

func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	return s.repo.SoftDelete(ctx, id)
}

func (s *Service) ListByOrganization(ctx context.Context, orgID uuid.UUID, includeDeleted bool, limit, offset int) ([]*Professional, int, error) {
	return s.repo.ListByOrganization(ctx, orgID, includeDeleted, limit, offset)
}

// Professional adapts the directory for the screening engine, satisfying
// screening.ProfessionalDirectory.
func (s *Service) Professional(ctx context.Context, id uuid.UUID) (*screening.ProfessionalInfo, error) {
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return &screening.ProfessionalInfo{
		ID:               p.ID,
		OrganizationID:   p.OrganizationID,
		ProfessionalType: p.ProfessionalType,
		FullName:         p.FullName,
		Email:            p.Email,
	}, nil
}
