package businesses

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/bizhub-io/bizhub/internal/platform/db"
	"github.com/bizhub-io/bizhub/internal/shared"
)

const pkeyConstraint = "businesses_pkey"

const businessSelect = `
	SELECT b.id, b.type, b.name, b.description, b.address, b.telephone, b.email, b.url,
	       b.same_as, b.opening_hours, b.founder_id, b.is_deleted, b.deleted_at,
	       b.created_at, b.updated_at,
	       f.id, f.given_name, f.family_name, f.email
	FROM businesses b
	LEFT JOIN persons f ON f.id = b.founder_id AND f.is_deleted = false`

// Repository provides PostgreSQL backed persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Create inserts a business. An existing row with the same id yields
// shared.ErrConflict.
func (r *Repository) Create(ctx context.Context, b Business) (Business, error) {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO businesses (id, type, name, description, address, telephone, email, url,
		                        same_as, opening_hours, founder_id, is_deleted, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, false, $12, $12)`,
		b.ID, b.Type, b.Name, b.Description, b.Address, b.Telephone, b.Email, b.URL,
		nonNil(b.SameAs), nonNil(b.OpeningHours), b.FounderID, b.CreatedAt)
	if err != nil {
		return Business{}, mapWriteErr(err, b.ID)
	}
	return r.FindByID(ctx, b.ID, false)
}

// FindByID loads a business.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID, includeDeleted bool) (Business, error) {
	query := businessSelect + ` WHERE b.id = $1`
	if !includeDeleted {
		query += ` AND b.is_deleted = false`
	}
	b, err := scanBusiness(r.pool.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Business{}, shared.NotFoundf("business with id %s not found", id)
	}
	return b, err
}

// List returns a page of live businesses and the live total.
func (r *Repository) List(ctx context.Context, page shared.Page) ([]Business, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM businesses WHERE is_deleted = false`).Scan(&total); err != nil {
		return nil, 0, err
	}
	items, err := r.query(ctx, businessSelect+`
		WHERE b.is_deleted = false
		ORDER BY b.created_at, b.id
		LIMIT $1 OFFSET $2`, page.Limit, page.Offset())
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

// ListByFounder returns the live businesses of a founder.
func (r *Repository) ListByFounder(ctx context.Context, founderID uuid.UUID) ([]Business, error) {
	return r.query(ctx, businessSelect+`
		WHERE b.founder_id = $1 AND b.is_deleted = false
		ORDER BY b.created_at, b.id`, founderID)
}

// Update persists every mutable field of a live business.
func (r *Repository) Update(ctx context.Context, b Business) (Business, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE businesses SET name = $2, description = $3, address = $4, telephone = $5,
		       email = $6, url = $7, same_as = $8, opening_hours = $9, founder_id = $10, updated_at = $11
		WHERE id = $1 AND is_deleted = false`,
		b.ID, b.Name, b.Description, b.Address, b.Telephone, b.Email, b.URL,
		nonNil(b.SameAs), nonNil(b.OpeningHours), b.FounderID, b.UpdatedAt)
	if err != nil {
		return Business{}, err
	}
	if tag.RowsAffected() == 0 {
		return Business{}, shared.NotFoundf("business with id %s not found", b.ID)
	}
	return r.FindByID(ctx, b.ID, false)
}

// SoftDelete flags a live business as deleted.
func (r *Repository) SoftDelete(ctx context.Context, id uuid.UUID, at time.Time) (Business, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE businesses SET is_deleted = true, deleted_at = $2, updated_at = $2
		WHERE id = $1 AND is_deleted = false`, id, at)
	if err != nil {
		return Business{}, err
	}
	if tag.RowsAffected() == 0 {
		return Business{}, shared.NotFoundf("business with id %s not found", id)
	}
	return r.FindByID(ctx, id, true)
}

// Restore clears the deletion flag. Live records are left unchanged.
func (r *Repository) Restore(ctx context.Context, id uuid.UUID, at time.Time) (Business, error) {
	_, err := r.pool.Exec(ctx, `
		UPDATE businesses SET is_deleted = false, deleted_at = NULL, updated_at = $2
		WHERE id = $1 AND is_deleted = true`, id, at)
	if err != nil {
		return Business{}, err
	}
	return r.FindByID(ctx, id, true)
}

func (r *Repository) query(ctx context.Context, sql string, args ...any) ([]Business, error) {
	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Business
	for rows.Next() {
		b, err := scanBusiness(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func scanBusiness(row pgx.Row) (Business, error) {
	var (
		b          Business
		founderID  *uuid.UUID
		givenName  *string
		familyName *string
		email      *string
	)
	err := row.Scan(&b.ID, &b.Type, &b.Name, &b.Description, &b.Address, &b.Telephone, &b.Email, &b.URL,
		&b.SameAs, &b.OpeningHours, &b.FounderID, &b.IsDeleted, &b.DeletedAt,
		&b.CreatedAt, &b.UpdatedAt,
		&founderID, &givenName, &familyName, &email)
	if err != nil {
		return Business{}, err
	}
	if founderID != nil {
		b.Founder = &Founder{ID: *founderID, GivenName: deref(givenName), FamilyName: deref(familyName), Email: deref(email)}
	}
	return b, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func mapWriteErr(err error, id uuid.UUID) error {
	if db.IsUniqueViolation(err, pkeyConstraint) {
		return shared.Conflictf("business with id %s already exists", id)
	}
	return fmt.Errorf("businesses: write: %w", err)
}
