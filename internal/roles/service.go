package roles

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/bizhub-io/bizhub/internal/shared"
)

// RepositoryPort defines data access methods for roles.
type RepositoryPort interface {
	Create(ctx context.Context, role Role) (Role, error)
	FindByID(ctx context.Context, id uuid.UUID, includeDeleted bool) (Role, error)
	FindByName(ctx context.Context, name Name, includeDeleted bool) (Role, error)
	List(ctx context.Context, page shared.Page) ([]Role, int, error)
	Update(ctx context.Context, role Role) (Role, error)
	SoftDelete(ctx context.Context, id uuid.UUID, at time.Time) (Role, error)
	Restore(ctx context.Context, id uuid.UUID, at time.Time) (Role, error)
}

// Service handles role business logic.
type Service struct {
	repo   RepositoryPort
	cache  *Cache
	logger *slog.Logger
	now    func() time.Time
}

// NewService builds Service instance. cache may be nil.
func NewService(repo RepositoryPort, cache *Cache, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Service{repo: repo, cache: cache, logger: logger, now: func() time.Time { return time.Now().UTC() }}
}

// Create stores a new role. Without explicit permissions the defaults for the
// name are used; an explicit list is stored as given.
func (s *Service) Create(ctx context.Context, in CreateInput) (Role, error) {
	if !in.Name.Valid() {
		return Role{}, shared.Validationf("unknown role name %q", in.Name)
	}
	for _, p := range in.Permissions {
		if !p.Valid() {
			return Role{}, shared.Validationf("unknown permission %q", p)
		}
	}
	if _, err := s.repo.FindByName(ctx, in.Name, false); err == nil {
		return Role{}, conflictName(in.Name)
	} else if !errors.Is(err, shared.ErrNotFound) {
		return Role{}, err
	}

	perms := slices.Clone(in.Permissions)
	if len(perms) == 0 {
		perms = DefaultPermissions(in.Name)
	}
	id := in.ID
	if id == uuid.Nil {
		id = uuid.New()
	}
	role, err := s.repo.Create(ctx, Role{ID: id, Name: in.Name, Permissions: perms, CreatedAt: s.now()})
	if err != nil {
		return Role{}, err
	}
	s.cache.InvalidateRole(ctx, role)
	s.logger.Info("role created", slog.String("role_id", role.ID.String()), slog.String("role_name", string(role.Name)))
	return role, nil
}

// List returns a page of live roles.
func (s *Service) List(ctx context.Context, page shared.Page) (ListResult, error) {
	page = shared.NormalizePage(page.Page, page.Limit)
	return fetch(ctx, s.cache, listKey(page), func(ctx context.Context) (ListResult, error) {
		items, total, err := s.repo.List(ctx, page)
		if err != nil {
			return ListResult{}, err
		}
		if items == nil {
			items = []Role{}
		}
		return ListResult{Items: items, Total: total}, nil
	})
}

// Get returns a live role by id.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (Role, error) {
	return fetch(ctx, s.cache, idKey(id), func(ctx context.Context) (Role, error) {
		return s.repo.FindByID(ctx, id, false)
	})
}

// FindByName returns the live role with name.
func (s *Service) FindByName(ctx context.Context, name Name) (Role, error) {
	return fetch(ctx, s.cache, nameKey(name), func(ctx context.Context) (Role, error) {
		return s.repo.FindByName(ctx, name, false)
	})
}

// Update applies a partial update to a live role. An explicit empty
// permission list is rejected.
func (s *Service) Update(ctx context.Context, id uuid.UUID, in UpdateInput) (Role, error) {
	current, err := s.repo.FindByID(ctx, id, false)
	if err != nil {
		return Role{}, err
	}
	next := current
	if in.Name != nil && *in.Name != current.Name {
		if !in.Name.Valid() {
			return Role{}, shared.Validationf("unknown role name %q", *in.Name)
		}
		existing, err := s.repo.FindByName(ctx, *in.Name, false)
		switch {
		case err == nil && existing.ID != id:
			return Role{}, conflictName(*in.Name)
		case err != nil && !errors.Is(err, shared.ErrNotFound):
			return Role{}, err
		}
		next.Name = *in.Name
	}
	if in.Permissions != nil {
		if len(*in.Permissions) == 0 {
			return Role{}, shared.Validationf("permissions must not be empty")
		}
		for _, p := range *in.Permissions {
			if !p.Valid() {
				return Role{}, shared.Validationf("unknown permission %q", p)
			}
		}
		next.Permissions = slices.Clone(*in.Permissions)
	}
	next.UpdatedAt = s.now()
	updated, err := s.repo.Update(ctx, next)
	if err != nil {
		return Role{}, err
	}
	s.cache.InvalidateRole(ctx, current, updated)
	s.logger.Info("role updated", slog.String("role_id", id.String()))
	return updated, nil
}

// Remove soft-deletes a live role.
func (s *Service) Remove(ctx context.Context, id uuid.UUID) (Role, error) {
	role, err := s.repo.SoftDelete(ctx, id, s.now())
	if err != nil {
		return Role{}, err
	}
	s.cache.InvalidateRole(ctx, role)
	s.logger.Info("role deleted", slog.String("role_id", id.String()))
	return role, nil
}

// Restore brings back a soft-deleted role. Restoring a live role returns it
// unchanged.
func (s *Service) Restore(ctx context.Context, id uuid.UUID) (Role, error) {
	current, err := s.repo.FindByID(ctx, id, true)
	if err != nil {
		return Role{}, err
	}
	if !current.IsDeleted {
		s.logger.Warn("role restore on live record", slog.String("role_id", id.String()))
		return current, nil
	}
	if live, err := s.repo.FindByName(ctx, current.Name, false); err == nil && live.ID != id {
		return Role{}, conflictName(current.Name)
	}
	role, err := s.repo.Restore(ctx, id, s.now())
	if err != nil {
		return Role{}, err
	}
	s.cache.InvalidateRole(ctx, role)
	s.logger.Info("role restored", slog.String("role_id", id.String()))
	return role, nil
}
