package users

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/bizhub-io/bizhub/internal/roles"
	"github.com/bizhub-io/bizhub/internal/shared"
)

const minPasswordLength = 8

// RepositoryPort defines data access methods for persons.
type RepositoryPort interface {
	FindByEmail(ctx context.Context, email string, includeDeleted bool) (Person, error)
	FindByID(ctx context.Context, id uuid.UUID, includeDeleted bool) (Person, error)
	List(ctx context.Context, page shared.Page) ([]Person, int, error)
	Create(ctx context.Context, p Person) (Person, error)
	Update(ctx context.Context, p Person) (Person, error)
	SoftDelete(ctx context.Context, id uuid.UUID, at time.Time) (Person, error)
	Restore(ctx context.Context, id uuid.UUID, at time.Time) (Person, error)
}

// PasswordHasher hashes and verifies passwords.
type PasswordHasher interface {
	Hash(plain string) (string, error)
	Compare(hash, plain string) bool
}

// RoleLookup resolves live roles.
type RoleLookup interface {
	Get(ctx context.Context, id uuid.UUID) (roles.Role, error)
}

// Service handles person business logic.
type Service struct {
	repo   RepositoryPort
	hasher PasswordHasher
	roles  RoleLookup
	logger *slog.Logger
	now    func() time.Time

	// dummyHash is compared against when no person matches so that unknown
	// emails cost the same as wrong passwords.
	dummyHash string
}

// NewService builds Service instance.
func NewService(repo RepositoryPort, hasher PasswordHasher, roleLookup RoleLookup, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	dummy, err := hasher.Hash("bizhub-timing-equaliser")
	if err != nil {
		logger.Warn("prepare dummy hash", slog.Any("error", err))
	}
	return &Service{
		repo:      repo,
		hasher:    hasher,
		roles:     roleLookup,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
		dummyHash: dummy,
	}
}

// Create registers a new person with a hashed password and a live role.
func (s *Service) Create(ctx context.Context, in CreateInput) (Person, error) {
	in.Email = NormalizeEmail(in.Email)
	if err := validateCreate(in); err != nil {
		return Person{}, err
	}
	if in.Status == "" {
		in.Status = StatusActive
	}
	if _, err := s.repo.FindByEmail(ctx, in.Email, false); err == nil {
		return Person{}, shared.Conflictf("email already exists")
	} else if !errors.Is(err, shared.ErrNotFound) {
		return Person{}, err
	}
	if err := s.ensureRole(ctx, in.RoleID); err != nil {
		return Person{}, err
	}
	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return Person{}, fmt.Errorf("users: hash password: %w", err)
	}
	id := in.ID
	if id == uuid.Nil {
		id = uuid.New()
	}
	person, err := s.repo.Create(ctx, Person{
		ID:           id,
		GivenName:    strings.TrimSpace(in.GivenName),
		FamilyName:   strings.TrimSpace(in.FamilyName),
		Email:        in.Email,
		Telephone:    strings.TrimSpace(in.Telephone),
		PasswordHash: hash,
		Status:       in.Status,
		RoleID:       in.RoleID,
		CreatedAt:    s.now(),
	})
	if err != nil {
		return Person{}, err
	}
	s.logger.Info("person created", slog.String("person_id", person.ID.String()))
	return person, nil
}

// List returns a page of live persons.
func (s *Service) List(ctx context.Context, page shared.Page) (ListResult, error) {
	page = shared.NormalizePage(page.Page, page.Limit)
	items, total, err := s.repo.List(ctx, page)
	if err != nil {
		return ListResult{}, err
	}
	return ListResult{Items: items, Total: total}, nil
}

// Get returns a live person by id.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (Person, error) {
	return s.repo.FindByID(ctx, id, false)
}

// FindByEmail returns the live person with email.
func (s *Service) FindByEmail(ctx context.Context, email string) (Person, error) {
	return s.repo.FindByEmail(ctx, NormalizeEmail(email), false)
}

// Update applies a partial update to a live person.
func (s *Service) Update(ctx context.Context, id uuid.UUID, in UpdateInput) (Person, error) {
	current, err := s.repo.FindByID(ctx, id, false)
	if err != nil {
		return Person{}, err
	}
	next := current
	if in.GivenName != nil {
		if strings.TrimSpace(*in.GivenName) == "" {
			return Person{}, shared.Validationf("givenName must not be empty")
		}
		next.GivenName = strings.TrimSpace(*in.GivenName)
	}
	if in.FamilyName != nil {
		if strings.TrimSpace(*in.FamilyName) == "" {
			return Person{}, shared.Validationf("familyName must not be empty")
		}
		next.FamilyName = strings.TrimSpace(*in.FamilyName)
	}
	if in.Telephone != nil {
		next.Telephone = strings.TrimSpace(*in.Telephone)
	}
	if in.Status != nil {
		if !in.Status.Valid() {
			return Person{}, shared.Validationf("unknown status %q", *in.Status)
		}
		next.Status = *in.Status
	}
	if in.Email != nil {
		email := NormalizeEmail(*in.Email)
		if email == "" {
			return Person{}, shared.Validationf("email must not be empty")
		}
		if email != current.Email {
			existing, err := s.repo.FindByEmail(ctx, email, false)
			switch {
			case err == nil && existing.ID != id:
				return Person{}, shared.Conflictf("email already exists")
			case err != nil && !errors.Is(err, shared.ErrNotFound):
				return Person{}, err
			}
		}
		next.Email = email
	}
	if in.RoleID != nil && *in.RoleID != current.RoleID {
		if err := s.ensureRole(ctx, *in.RoleID); err != nil {
			return Person{}, err
		}
		next.RoleID = *in.RoleID
	}
	if in.Password != nil {
		if len(*in.Password) < minPasswordLength {
			return Person{}, shared.Validationf("password must be at least %d characters long", minPasswordLength)
		}
		hash, err := s.hasher.Hash(*in.Password)
		if err != nil {
			return Person{}, fmt.Errorf("users: hash password: %w", err)
		}
		next.PasswordHash = hash
	}
	next.UpdatedAt = s.now()
	updated, err := s.repo.Update(ctx, next)
	if err != nil {
		return Person{}, err
	}
	s.logger.Info("person updated", slog.String("person_id", id.String()))
	return updated, nil
}

// Remove soft-deletes a live person.
func (s *Service) Remove(ctx context.Context, id uuid.UUID) (Person, error) {
	person, err := s.repo.SoftDelete(ctx, id, s.now())
	if err != nil {
		return Person{}, err
	}
	s.logger.Info("person deleted", slog.String("person_id", id.String()))
	return person, nil
}

// Restore brings back a soft-deleted person. Restoring a live person returns
// it unchanged.
func (s *Service) Restore(ctx context.Context, id uuid.UUID) (Person, error) {
	current, err := s.repo.FindByID(ctx, id, true)
	if err != nil {
		return Person{}, err
	}
	if !current.IsDeleted {
		s.logger.Warn("person restore on live record", slog.String("person_id", id.String()))
		return current, nil
	}
	person, err := s.repo.Restore(ctx, id, s.now())
	if err != nil {
		return Person{}, err
	}
	s.logger.Info("person restored", slog.String("person_id", id.String()))
	return person, nil
}

// VerifyPassword returns the live, active person owning email when password
// matches. Every failure is shared.ErrInvalidCredentials.
func (s *Service) VerifyPassword(ctx context.Context, email, password string) (Person, error) {
	person, err := s.repo.FindByEmail(ctx, NormalizeEmail(email), false)
	if err != nil {
		if !errors.Is(err, shared.ErrNotFound) {
			s.logger.Error("verify password lookup", slog.Any("error", err))
		}
		s.hasher.Compare(s.dummyHash, password)
		return Person{}, shared.ErrInvalidCredentials
	}
	if !s.hasher.Compare(person.PasswordHash, password) {
		return Person{}, shared.ErrInvalidCredentials
	}
	if !person.CanAuthenticate() {
		return Person{}, shared.ErrInvalidCredentials
	}
	return person, nil
}

func (s *Service) ensureRole(ctx context.Context, id uuid.UUID) error {
	if _, err := s.roles.Get(ctx, id); err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return shared.Validationf("role with id %s not found", id)
		}
		return err
	}
	return nil
}

func validateCreate(in CreateInput) error {
	switch {
	case strings.TrimSpace(in.GivenName) == "":
		return shared.Validationf("givenName is required")
	case strings.TrimSpace(in.FamilyName) == "":
		return shared.Validationf("familyName is required")
	case in.Email == "":
		return shared.Validationf("email is required")
	case len(in.Password) < minPasswordLength:
		return shared.Validationf("password must be at least %d characters long", minPasswordLength)
	case in.RoleID == uuid.Nil:
		return shared.Validationf("roleId is required")
	case in.Status != "" && !in.Status.Valid():
		return shared.Validationf("unknown status %q", in.Status)
	}
	return nil
}
