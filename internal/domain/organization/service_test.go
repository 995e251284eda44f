package organization

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type mockRepo struct {
	orgs map[uuid.UUID]*Organization
}

func newMockRepo() *mockRepo {
	return &mockRepo{orgs: make(map[uuid.UUID]*Organization)}
}

func (m *mockRepo) Create(_ context.Context, o *Organization) error {
	for _, existing := range m.orgs {
		if existing.Slug == o.Slug && existing.DeletedAt == nil {
			return ErrSlugTaken
		}
	}
	o.ID = uuid.New()
	o.CreatedAt = time.Now()
	o.UpdatedAt = time.Now()
	m.orgs[o.ID] = o
	return nil
}

func (m *mockRepo) GetByID(_ context.Context, id uuid.UUID) (*Organization, error) {
	o, ok := m.orgs[id]
	if !ok || o.DeletedAt != nil {
		return nil, ErrNotFound
	}
	return o, nil
}

func (m *mockRepo) GetBySlug(_ context.Context, slug string) (*Organization, error) {
	for _, o := range m.orgs {
		if o.Slug == slug && o.DeletedAt == nil {
			return o, nil
		}
	}
	return nil, ErrNotFound
}

func (m *mockRepo) Update(_ context.Context, o *Organization) error {
	if _, ok := m.orgs[o.ID]; !ok {
		return ErrNotFound
	}
	m.orgs[o.ID] = o
	return nil
}

func (m *mockRepo) SoftDelete(_ context.Context, id uuid.UUID) error {
	o, ok := m.orgs[id]
	if !ok || o.DeletedAt != nil {
		return ErrNotFound
	}
	now := time.Now()
	o.DeletedAt = &now
	return nil
}

func (m *mockRepo) List(_ context.Context, includeDeleted bool, _, _ int) ([]*Organization, int, error) {
	var out []*Organization
	for _, o := range m.orgs {
		if o.DeletedAt != nil && !includeDeleted {
			continue
		}
		out = append(out, o)
	}
	return out, len(out), nil
}

func (m *mockRepo) FamilyIDs(_ context.Context, id uuid.UUID) ([]uuid.UUID, error) {
	if _, ok := m.orgs[id]; !ok {
		return nil, ErrNotFound
	}
	return []uuid.UUID{id}, nil
}

func validOrg() *Organization {
	return &Organization{
		Name:         "Acme Clinics",
		Slug:         "acme-clinics",
		StepTemplate: []string{"CONVERSATION", "DOCUMENT_UPLOAD", "DOCUMENT_REVIEW", "CLIENT_VALIDATION"},
	}
}

func TestCreateOrganization(t *testing.T) {
	svc := NewService(newMockRepo(), zerolog.Nop())

	o := validOrg()
	if err := svc.Create(context.Background(), o); err != nil {
		t.Fatalf("create: %v", err)
	}
	if o.ScreeningTTLDays != DefaultTTLDays {
		t.Errorf("expected default TTL %d, got %d", DefaultTTLDays, o.ScreeningTTLDays)
	}
	if !o.Active {
		t.Error("new organizations should be active")
	}
}

func TestCreateOrganizationValidation(t *testing.T) {
	svc := NewService(newMockRepo(), zerolog.Nop())

	cases := []struct {
		name   string
		mutate func(o *Organization)
	}{
		{"empty name", func(o *Organization) { o.Name = " " }},
		{"bad slug", func(o *Organization) { o.Slug = "Not A Slug" }},
		{"empty template", func(o *Organization) { o.StepTemplate = nil }},
		{"unknown step", func(o *Organization) { o.StepTemplate = []string{"CONVERSATION", "PALM_READING"} }},
		{"duplicate step", func(o *Organization) { o.StepTemplate = []string{"CONVERSATION", "CONVERSATION"} }},
		{"negative ttl", func(o *Organization) { o.ScreeningTTLDays = -1 }},
	}
	for _, tc := range cases {
		o := validOrg()
		tc.mutate(o)
		if err := svc.Create(context.Background(), o); err == nil {
			t.Errorf("%s: expected validation error", tc.name)
		}
	}
}

func TestCreateOrganizationSlugTaken(t *testing.T) {
	repo := newMockRepo()
	svc := NewService(repo, zerolog.Nop())

	if err := svc.Create(context.Background(), validOrg()); err != nil {
		t.Fatalf("create: %v", err)
	}
	err := svc.Create(context.Background(), validOrg())
	if !errors.Is(err, ErrSlugTaken) {
		t.Fatalf("expected ErrSlugTaken, got %v", err)
	}
}

func TestCreateOrganizationUnknownParent(t *testing.T) {
	svc := NewService(newMockRepo(), zerolog.Nop())

	o := validOrg()
	parent := uuid.New()
	o.ParentOrganizationID = &parent
	err := svc.Create(context.Background(), o)
	if !errors.Is(err, ErrInvalidParent) {
		t.Fatalf("expected ErrInvalidParent, got %v", err)
	}
}

func TestCreateChildOrganization(t *testing.T) {
	repo := newMockRepo()
	svc := NewService(repo, zerolog.Nop())

	parent := validOrg()
	if err := svc.Create(context.Background(), parent); err != nil {
		t.Fatalf("create parent: %v", err)
	}

	child := validOrg()
	child.Slug = "acme-clinics-north"
	child.ParentOrganizationID = &parent.ID
	if err := svc.Create(context.Background(), child); err != nil {
		t.Fatalf("create child: %v", err)
	}
}

func TestScreeningConfig(t *testing.T) {
	repo := newMockRepo()
	svc := NewService(repo, zerolog.Nop())

	o := validOrg()
	o.ScreeningTTLDays = 45
	if err := svc.Create(context.Background(), o); err != nil {
		t.Fatalf("create: %v", err)
	}

	cfg, err := svc.ScreeningConfig(context.Background(), o.ID)
	if err != nil {
		t.Fatalf("config: %v", err)
	}
	if cfg.ScreeningTTLDays != 45 {
		t.Errorf("expected TTL 45, got %d", cfg.ScreeningTTLDays)
	}
	if len(cfg.StepTemplate) != 4 {
		t.Errorf("expected 4 template steps, got %d", len(cfg.StepTemplate))
	}

	if _, err := svc.ScreeningConfig(context.Background(), uuid.New()); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestSoftDeleteHidesOrganization(t *testing.T) {
	repo := newMockRepo()
	svc := NewService(repo, zerolog.Nop())

	o := validOrg()
	svc.Create(context.Background(), o)
	if err := svc.Delete(context.Background(), o.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}

	if _, err := svc.Get(context.Background(), o.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound after delete, got %v", err)
	}

	visible, _, _ := svc.List(context.Background(), false, 20, 0)
	if len(visible) != 0 {
		t.Errorf("deleted organization should be hidden, got %d", len(visible))
	}
	all, _, _ := svc.List(context.Background(), true, 20, 0)
	if len(all) != 1 {
		t.Errorf("include_deleted should surface it, got %d", len(all))
	}
}
