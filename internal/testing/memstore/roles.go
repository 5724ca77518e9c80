package memstore

import (
	"context"
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/bizhub-io/bizhub/internal/roles"
	"github.com/bizhub-io/bizhub/internal/shared"
)

type roleRow = roles.Role

// RoleRepo implements roles.RepositoryPort.
type RoleRepo struct{ s *Store }

// Roles returns the roles table.
func (s *Store) Roles() *RoleRepo { return &RoleRepo{s: s} }

var _ roles.RepositoryPort = (*RoleRepo)(nil)

func (r *RoleRepo) nameTaken(name roles.Name, except uuid.UUID) bool {
	for _, row := range r.s.roles {
		if row.Name == name && !row.IsDeleted && row.ID != except {
			return true
		}
	}
	return false
}

func roleConflict(name roles.Name) error {
	return shared.Conflictf("role with name '%s' already exists", name)
}

func cloneRole(role roles.Role) roles.Role {
	role.Permissions = slices.Clone(role.Permissions)
	return role
}

// Create inserts a role.
func (r *RoleRepo) Create(ctx context.Context, role roles.Role) (roles.Role, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.takeFailure("roles.Create"); err != nil {
		return roles.Role{}, err
	}
	if _, ok := r.s.roles[role.ID]; ok {
		return roles.Role{}, shared.Conflictf("role with id %s already exists", role.ID)
	}
	if r.nameTaken(role.Name, uuid.Nil) {
		return roles.Role{}, roleConflict(role.Name)
	}
	role.UpdatedAt = role.CreatedAt
	r.s.roles[role.ID] = cloneRole(role)
	return cloneRole(role), nil
}

// FindByID loads a role.
func (r *RoleRepo) FindByID(ctx context.Context, id uuid.UUID, includeDeleted bool) (roles.Role, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.takeFailure("roles.FindByID"); err != nil {
		return roles.Role{}, err
	}
	row, ok := r.s.roles[id]
	if !ok || (row.IsDeleted && !includeDeleted) {
		return roles.Role{}, shared.NotFoundf("role with id %s not found", id)
	}
	return cloneRole(row), nil
}

// FindByName loads a role by name, preferring live records.
func (r *RoleRepo) FindByName(ctx context.Context, name roles.Name, includeDeleted bool) (roles.Role, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.takeFailure("roles.FindByName"); err != nil {
		return roles.Role{}, err
	}
	var deleted *roles.Role
	for _, row := range r.s.roles {
		if row.Name != name {
			continue
		}
		if !row.IsDeleted {
			return cloneRole(row), nil
		}
		if includeDeleted {
			c := cloneRole(row)
			deleted = &c
		}
	}
	if deleted != nil {
		return *deleted, nil
	}
	return roles.Role{}, shared.NotFoundf("role with name '%s' not found", name)
}

// List returns live roles ordered by creation.
func (r *RoleRepo) List(ctx context.Context, p shared.Page) ([]roles.Role, int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var live []roles.Role
	for _, row := range r.s.roles {
		if !row.IsDeleted {
			live = append(live, cloneRole(row))
		}
	}
	sortByCreated(live, func(x roles.Role) int64 { return x.CreatedAt.UnixNano() }, func(x roles.Role) string { return x.ID.String() })
	return page(live, p.Offset(), p.Limit), len(live), nil
}

// Update persists name and permissions.
func (r *RoleRepo) Update(ctx context.Context, role roles.Role) (roles.Role, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	row, ok := r.s.roles[role.ID]
	if !ok || row.IsDeleted {
		return roles.Role{}, shared.NotFoundf("role with id %s not found", role.ID)
	}
	if r.nameTaken(role.Name, role.ID) {
		return roles.Role{}, roleConflict(role.Name)
	}
	row.Name = role.Name
	row.Permissions = slices.Clone(role.Permissions)
	row.UpdatedAt = role.UpdatedAt
	r.s.roles[role.ID] = row
	return cloneRole(row), nil
}

// SoftDelete flags a live role.
func (r *RoleRepo) SoftDelete(ctx context.Context, id uuid.UUID, at time.Time) (roles.Role, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	row, ok := r.s.roles[id]
	if !ok || row.IsDeleted {
		return roles.Role{}, shared.NotFoundf("role with id %s not found", id)
	}
	row.IsDeleted = true
	row.DeletedAt = &at
	row.UpdatedAt = at
	r.s.roles[id] = row
	return cloneRole(row), nil
}

// Restore clears the deletion flag.
func (r *RoleRepo) Restore(ctx context.Context, id uuid.UUID, at time.Time) (roles.Role, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	row, ok := r.s.roles[id]
	if !ok {
		return roles.Role{}, shared.NotFoundf("role with id %s not found", id)
	}
	if !row.IsDeleted {
		return cloneRole(row), nil
	}
	if r.nameTaken(row.Name, id) {
		return roles.Role{}, roleConflict(row.Name)
	}
	row.IsDeleted = false
	row.DeletedAt = nil
	row.UpdatedAt = at
	r.s.roles[id] = row
	return cloneRole(row), nil
}
