package roles

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/bizhub-io/bizhub/internal/shared"
)

// memoryRepo emulates the live-name unique index of the roles table.
type memoryRepo struct {
	mu       sync.Mutex
	roles    map[uuid.UUID]Role
	findHook func(name Name) error
	idHook   func(ctx context.Context) error
	calls    map[string]int
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{roles: make(map[uuid.UUID]Role), calls: make(map[string]int)}
}

func (r *memoryRepo) liveNameTaken(name Name, except uuid.UUID) bool {
	for _, role := range r.roles {
		if role.Name == name && !role.IsDeleted && role.ID != except {
			return true
		}
	}
	return false
}

func (r *memoryRepo) Create(ctx context.Context, role Role) (Role, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls["Create"]++
	if _, ok := r.roles[role.ID]; ok {
		return Role{}, shared.Conflictf("role with id %s already exists", role.ID)
	}
	if r.liveNameTaken(role.Name, uuid.Nil) {
		return Role{}, conflictName(role.Name)
	}
	role.UpdatedAt = role.CreatedAt
	r.roles[role.ID] = role
	return role, nil
}

func (r *memoryRepo) FindByID(ctx context.Context, id uuid.UUID, includeDeleted bool) (Role, error) {
	r.mu.Lock()
	r.calls["FindByID"]++
	role, ok := r.roles[id]
	hook := r.idHook
	r.mu.Unlock()
	if !ok || (role.IsDeleted && !includeDeleted) {
		return Role{}, shared.NotFoundf("role with id %s not found", id)
	}
	if hook != nil {
		if err := hook(ctx); err != nil {
			return Role{}, err
		}
	}
	return role, nil
}

func (r *memoryRepo) setIDHook(hook func(ctx context.Context) error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.idHook = hook
}

func (r *memoryRepo) FindByName(ctx context.Context, name Name, includeDeleted bool) (Role, error) {
	r.mu.Lock()
	hook := r.findHook
	r.calls["FindByName"]++
	r.mu.Unlock()
	if hook != nil {
		if err := hook(name); err != nil {
			return Role{}, err
		}
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, role := range r.roles {
		if role.Name == name && (!role.IsDeleted || includeDeleted) {
			return role, nil
		}
	}
	return Role{}, shared.NotFoundf("role with name '%s' not found", name)
}

func (r *memoryRepo) List(ctx context.Context, page shared.Page) ([]Role, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls["List"]++
	var live []Role
	for _, role := range r.roles {
		if !role.IsDeleted {
			live = append(live, role)
		}
	}
	sort.Slice(live, func(i, j int) bool { return live[i].Name < live[j].Name })
	total := len(live)
	start := min(page.Offset(), total)
	end := min(start+page.Limit, total)
	return live[start:end], total, nil
}

func (r *memoryRepo) Update(ctx context.Context, role Role) (Role, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	current, ok := r.roles[role.ID]
	if !ok || current.IsDeleted {
		return Role{}, shared.NotFoundf("role with id %s not found", role.ID)
	}
	if r.liveNameTaken(role.Name, role.ID) {
		return Role{}, conflictName(role.Name)
	}
	current.Name = role.Name
	current.Permissions = role.Permissions
	current.UpdatedAt = role.UpdatedAt
	r.roles[role.ID] = current
	return current, nil
}

func (r *memoryRepo) SoftDelete(ctx context.Context, id uuid.UUID, at time.Time) (Role, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	role, ok := r.roles[id]
	if !ok || role.IsDeleted {
		return Role{}, shared.NotFoundf("role with id %s not found", id)
	}
	role.IsDeleted = true
	role.DeletedAt = &at
	role.UpdatedAt = at
	r.roles[id] = role
	return role, nil
}

func (r *memoryRepo) Restore(ctx context.Context, id uuid.UUID, at time.Time) (Role, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	role, ok := r.roles[id]
	if !ok {
		return Role{}, shared.NotFoundf("role with id %s not found", id)
	}
	if !role.IsDeleted {
		return role, nil
	}
	if r.liveNameTaken(role.Name, id) {
		return Role{}, conflictName(role.Name)
	}
	role.IsDeleted = false
	role.DeletedAt = nil
	role.UpdatedAt = at
	r.roles[id] = role
	return role, nil
}

func (r *memoryRepo) callCount(name string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls[name]
}
