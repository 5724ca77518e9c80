package businesses

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/bizhub-io/bizhub/internal/shared"
	"github.com/bizhub-io/bizhub/internal/users"
)

// RepositoryPort defines data access methods for businesses.
type RepositoryPort interface {
	Create(ctx context.Context, b Business) (Business, error)
	FindByID(ctx context.Context, id uuid.UUID, includeDeleted bool) (Business, error)
	List(ctx context.Context, page shared.Page) ([]Business, int, error)
	ListByFounder(ctx context.Context, founderID uuid.UUID) ([]Business, error)
	Update(ctx context.Context, b Business) (Business, error)
	SoftDelete(ctx context.Context, id uuid.UUID, at time.Time) (Business, error)
	Restore(ctx context.Context, id uuid.UUID, at time.Time) (Business, error)
}

// FounderDirectory resolves live persons.
type FounderDirectory interface {
	Get(ctx context.Context, id uuid.UUID) (users.Person, error)
}

// Service handles business logic for businesses.
type Service struct {
	repo     RepositoryPort
	founders FounderDirectory
	logger   *slog.Logger
	now      func() time.Time
}

// NewService builds Service instance.
func NewService(repo RepositoryPort, founders FounderDirectory, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Service{
		repo:     repo,
		founders: founders,
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Create registers a business owned by a live founder.
func (s *Service) Create(ctx context.Context, in CreateInput) (Business, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return Business{}, shared.Validationf("name is required")
	}
	if in.FounderID == uuid.Nil {
		return Business{}, shared.Validationf("founderId is required")
	}
	if err := s.ensureFounder(ctx, in.FounderID); err != nil {
		return Business{}, err
	}
	id := in.ID
	if id == uuid.Nil {
		id = uuid.New()
	}
	business, err := s.repo.Create(ctx, Business{
		ID:           id,
		Type:         TypeLocalBusiness,
		Name:         name,
		Description:  strings.TrimSpace(in.Description),
		Address:      normalizeAddress(in.Address),
		Telephone:    strings.TrimSpace(in.Telephone),
		Email:        users.NormalizeEmail(in.Email),
		URL:          strings.TrimSpace(in.URL),
		SameAs:       in.SameAs,
		OpeningHours: in.OpeningHours,
		FounderID:    in.FounderID,
		CreatedAt:    s.now(),
	})
	if err != nil {
		return Business{}, err
	}
	s.logger.Info("business created",
		slog.String("business_id", business.ID.String()),
		slog.String("founder_id", business.FounderID.String()))
	return business, nil
}

// List returns a page of live businesses.
func (s *Service) List(ctx context.Context, page shared.Page) (ListResult, error) {
	page = shared.NormalizePage(page.Page, page.Limit)
	items, total, err := s.repo.List(ctx, page)
	if err != nil {
		return ListResult{}, err
	}
	return ListResult{Items: items, Total: total}, nil
}

// Get returns a live business by id.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (Business, error) {
	return s.repo.FindByID(ctx, id, false)
}

// ListByFounder returns the live businesses owned by founderID.
func (s *Service) ListByFounder(ctx context.Context, founderID uuid.UUID) ([]Business, error) {
	return s.repo.ListByFounder(ctx, founderID)
}

// Update applies a partial update to a live business.
func (s *Service) Update(ctx context.Context, id uuid.UUID, in UpdateInput) (Business, error) {
	current, err := s.repo.FindByID(ctx, id, false)
	if err != nil {
		return Business{}, err
	}
	next := current
	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name == "" {
			return Business{}, shared.Validationf("name must not be empty")
		}
		next.Name = name
	}
	if in.Description != nil {
		next.Description = strings.TrimSpace(*in.Description)
	}
	if in.Address != nil {
		next.Address = normalizeAddress(in.Address)
	}
	if in.Telephone != nil {
		next.Telephone = strings.TrimSpace(*in.Telephone)
	}
	if in.Email != nil {
		next.Email = users.NormalizeEmail(*in.Email)
	}
	if in.URL != nil {
		next.URL = strings.TrimSpace(*in.URL)
	}
	if in.SameAs != nil {
		next.SameAs = *in.SameAs
	}
	if in.OpeningHours != nil {
		next.OpeningHours = *in.OpeningHours
	}
	if in.FounderID != nil && *in.FounderID != current.FounderID {
		if err := s.ensureFounder(ctx, *in.FounderID); err != nil {
			return Business{}, err
		}
		next.FounderID = *in.FounderID
	}
	next.UpdatedAt = s.now()
	updated, err := s.repo.Update(ctx, next)
	if err != nil {
		return Business{}, err
	}
	s.logger.Info("business updated", slog.String("business_id", id.String()))
	return updated, nil
}

// Remove soft-deletes a live business.
func (s *Service) Remove(ctx context.Context, id uuid.UUID) (Business, error) {
	business, err := s.repo.SoftDelete(ctx, id, s.now())
	if err != nil {
		return Business{}, err
	}
	s.logger.Info("business deleted", slog.String("business_id", id.String()))
	return business, nil
}

// Restore brings back a soft-deleted business. Restoring a live business
// returns it unchanged.
func (s *Service) Restore(ctx context.Context, id uuid.UUID) (Business, error) {
	current, err := s.repo.FindByID(ctx, id, true)
	if err != nil {
		return Business{}, err
	}
	if !current.IsDeleted {
		s.logger.Warn("business restore on live record", slog.String("business_id", id.String()))
		return current, nil
	}
	business, err := s.repo.Restore(ctx, id, s.now())
	if err != nil {
		return Business{}, err
	}
	s.logger.Info("business restored", slog.String("business_id", id.String()))
	return business, nil
}

func (s *Service) ensureFounder(ctx context.Context, id uuid.UUID) error {
	if _, err := s.founders.Get(ctx, id); err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return shared.Validationf("founder with id %s not found", id)
		}
		return err
	}
	return nil
}

func normalizeAddress(a *PostalAddress) *PostalAddress {
	if a == nil {
		return nil
	}
	out := PostalAddress{
		StreetAddress:   strings.TrimSpace(a.StreetAddress),
		AddressLocality: strings.TrimSpace(a.AddressLocality),
		AddressRegion:   strings.TrimSpace(a.AddressRegion),
		PostalCode:      strings.TrimSpace(a.PostalCode),
		AddressCountry:  strings.TrimSpace(a.AddressCountry),
	}
	if out.IsZero() {
		return nil
	}
	return &out
}
