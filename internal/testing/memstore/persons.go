package memstore

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/bizhub-io/bizhub/internal/shared"
	"github.com/bizhub-io/bizhub/internal/users"
)

type personRow = users.Person

// PersonRepo implements users.RepositoryPort. Reads join the live role the
// same way the SQL repository does.
type PersonRepo struct{ s *Store }

// Persons returns the persons table.
func (s *Store) Persons() *PersonRepo { return &PersonRepo{s: s} }

var _ users.RepositoryPort = (*PersonRepo)(nil)

func (r *PersonRepo) join(p users.Person) users.Person {
	p.Role = nil
	if role, ok := r.s.roles[p.RoleID]; ok && !role.IsDeleted {
		ref := role.Ref()
		p.Role = &ref
	}
	return p
}

func (r *PersonRepo) emailTaken(email string, except uuid.UUID) bool {
	for _, row := range r.s.persons {
		if row.Email == email && !row.IsDeleted && row.ID != except {
			return true
		}
	}
	return false
}

// FindByEmail loads a person by email, preferring live records.
func (r *PersonRepo) FindByEmail(ctx context.Context, email string, includeDeleted bool) (users.Person, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.takeFailure("persons.FindByEmail"); err != nil {
		return users.Person{}, err
	}
	var deleted *users.Person
	for _, row := range r.s.persons {
		if row.Email != email {
			continue
		}
		if !row.IsDeleted {
			return r.join(row), nil
		}
		if includeDeleted {
			p := r.join(row)
			deleted = &p
		}
	}
	if deleted != nil {
		return *deleted, nil
	}
	return users.Person{}, shared.NotFoundf("person with email %s not found", email)
}

// FindByID loads a person.
func (r *PersonRepo) FindByID(ctx context.Context, id uuid.UUID, includeDeleted bool) (users.Person, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.takeFailure("persons.FindByID"); err != nil {
		return users.Person{}, err
	}
	row, ok := r.s.persons[id]
	if !ok || (row.IsDeleted && !includeDeleted) {
		return users.Person{}, shared.NotFoundf("person with id %s not found", id)
	}
	return r.join(row), nil
}

// List returns live persons ordered by creation.
func (r *PersonRepo) List(ctx context.Context, p shared.Page) ([]users.Person, int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var live []users.Person
	for _, row := range r.s.persons {
		if !row.IsDeleted {
			live = append(live, r.join(row))
		}
	}
	sortByCreated(live, func(x users.Person) int64 { return x.CreatedAt.UnixNano() }, func(x users.Person) string { return x.ID.String() })
	return page(live, p.Offset(), p.Limit), len(live), nil
}

// Create inserts a person.
func (r *PersonRepo) Create(ctx context.Context, p users.Person) (users.Person, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.takeFailure("persons.Create"); err != nil {
		return users.Person{}, err
	}
	if _, ok := r.s.persons[p.ID]; ok {
		return users.Person{}, shared.Conflictf("person with id %s already exists", p.ID)
	}
	if r.emailTaken(p.Email, uuid.Nil) {
		return users.Person{}, shared.Conflictf("email already exists")
	}
	p.UpdatedAt = p.CreatedAt
	p.Role = nil
	r.s.persons[p.ID] = p
	return r.join(p), nil
}

// Update persists a live person.
func (r *PersonRepo) Update(ctx context.Context, p users.Person) (users.Person, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	row, ok := r.s.persons[p.ID]
	if !ok || row.IsDeleted {
		return users.Person{}, shared.NotFoundf("person with id %s not found", p.ID)
	}
	if r.emailTaken(p.Email, p.ID) {
		return users.Person{}, shared.Conflictf("email already exists")
	}
	p.IsDeleted = row.IsDeleted
	p.DeletedAt = row.DeletedAt
	p.CreatedAt = row.CreatedAt
	p.Role = nil
	r.s.persons[p.ID] = p
	return r.join(p), nil
}

// SoftDelete flags a live person.
func (r *PersonRepo) SoftDelete(ctx context.Context, id uuid.UUID, at time.Time) (users.Person, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	row, ok := r.s.persons[id]
	if !ok || row.IsDeleted {
		return users.Person{}, shared.NotFoundf("person with id %s not found", id)
	}
	row.IsDeleted = true
	row.DeletedAt = &at
	row.UpdatedAt = at
	r.s.persons[id] = row
	return r.join(row), nil
}

// Restore clears the deletion flag.
func (r *PersonRepo) Restore(ctx context.Context, id uuid.UUID, at time.Time) (users.Person, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	row, ok := r.s.persons[id]
	if !ok {
		return users.Person{}, shared.NotFoundf("person with id %s not found", id)
	}
	if !row.IsDeleted {
		return r.join(row), nil
	}
	if r.emailTaken(row.Email, id) {
		return users.Person{}, shared.Conflictf("email already exists")
	}
	row.IsDeleted = false
	row.DeletedAt = nil
	row.UpdatedAt = at
	r.s.persons[id] = row
	return r.join(row), nil
}
