package memstore

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/bizhub-io/bizhub/internal/businesses"
	"github.com/bizhub-io/bizhub/internal/shared"
)

type businessRow = businesses.Business

// BusinessRepo implements businesses.RepositoryPort with the live founder join.
type BusinessRepo struct{ s *Store }

// Businesses returns the businesses table.
func (s *Store) Businesses() *BusinessRepo { return &BusinessRepo{s: s} }

var _ businesses.RepositoryPort = (*BusinessRepo)(nil)

func (r *BusinessRepo) join(b businesses.Business) businesses.Business {
	b.Founder = nil
	if p, ok := r.s.persons[b.FounderID]; ok && !p.IsDeleted {
		b.Founder = &businesses.Founder{ID: p.ID, GivenName: p.GivenName, FamilyName: p.FamilyName, Email: p.Email}
	}
	return b
}

func (r *BusinessRepo) live(filter func(businesses.Business) bool) []businesses.Business {
	var out []businesses.Business
	for _, row := range r.s.businesses {
		if !row.IsDeleted && filter(row) {
			out = append(out, r.join(row))
		}
	}
	sortByCreated(out, func(x businesses.Business) int64 { return x.CreatedAt.UnixNano() }, func(x businesses.Business) string { return x.ID.String() })
	return out
}

// Create inserts a business.
func (r *BusinessRepo) Create(ctx context.Context, b businesses.Business) (businesses.Business, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.takeFailure("businesses.Create"); err != nil {
		return businesses.Business{}, err
	}
	if _, ok := r.s.businesses[b.ID]; ok {
		return businesses.Business{}, shared.Conflictf("business with id %s already exists", b.ID)
	}
	b.UpdatedAt = b.CreatedAt
	r.s.businesses[b.ID] = b
	return r.join(b), nil
}

// FindByID loads a business.
func (r *BusinessRepo) FindByID(ctx context.Context, id uuid.UUID, includeDeleted bool) (businesses.Business, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.takeFailure("businesses.FindByID"); err != nil {
		return businesses.Business{}, err
	}
	row, ok := r.s.businesses[id]
	if !ok || (row.IsDeleted && !includeDeleted) {
		return businesses.Business{}, shared.NotFoundf("business with id %s not found", id)
	}
	return r.join(row), nil
}

// List returns live businesses ordered by creation.
func (r *BusinessRepo) List(ctx context.Context, p shared.Page) ([]businesses.Business, int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	all := r.live(func(businesses.Business) bool { return true })
	return page(all, p.Offset(), p.Limit), len(all), nil
}

// ListByFounder returns live businesses of a founder.
func (r *BusinessRepo) ListByFounder(ctx context.Context, founderID uuid.UUID) ([]businesses.Business, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.live(func(b businesses.Business) bool { return b.FounderID == founderID }), nil
}

// Update persists a live business.
func (r *BusinessRepo) Update(ctx context.Context, b businesses.Business) (businesses.Business, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	row, ok := r.s.businesses[b.ID]
	if !ok || row.IsDeleted {
		return businesses.Business{}, shared.NotFoundf("business with id %s not found", b.ID)
	}
	b.Type = row.Type
	b.IsDeleted = row.IsDeleted
	b.DeletedAt = row.DeletedAt
	b.CreatedAt = row.CreatedAt
	r.s.businesses[b.ID] = b
	return r.join(b), nil
}

// SoftDelete flags a live business.
func (r *BusinessRepo) SoftDelete(ctx context.Context, id uuid.UUID, at time.Time) (businesses.Business, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	row, ok := r.s.businesses[id]
	if !ok || row.IsDeleted {
		return businesses.Business{}, shared.NotFoundf("business with id %s not found", id)
	}
	row.IsDeleted = true
	row.DeletedAt = &at
	row.UpdatedAt = at
	r.s.businesses[id] = row
	return r.join(row), nil
}

// Restore clears the deletion flag.
func (r *BusinessRepo) Restore(ctx context.Context, id uuid.UUID, at time.Time) (businesses.Business, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	row, ok := r.s.businesses[id]
	if !ok {
		return businesses.Business{}, shared.NotFoundf("business with id %s not found", id)
	}
	if row.IsDeleted {
		row.IsDeleted = false
		row.DeletedAt = nil
		row.UpdatedAt = at
		r.s.businesses[id] = row
	}
	return r.join(row), nil
}
