package users

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/bizhub-io/bizhub/internal/platform/db"
	"github.com/bizhub-io/bizhub/internal/roles"
	"github.com/bizhub-io/bizhub/internal/shared"
)

const (
	liveEmailConstraint = "persons_email_live_key"
	pkeyConstraint      = "persons_pkey"
)

// The role is joined live so a deleted role never reaches a principal.
const personSelect = `
	SELECT p.id, p.given_name, p.family_name, p.email, p.telephone, p.password_hash,
	       p.status, p.role_id, p.is_deleted, p.deleted_at, p.created_at, p.updated_at,
	       r.id, r.role_name, r.permissions
	FROM persons p
	LEFT JOIN roles r ON r.id = p.role_id AND r.is_deleted = false`

// Repository provides PostgreSQL backed persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// FindByEmail loads a person by normalised email. Deleted records are only
// considered when includeDeleted is set, and a live record wins over them.
func (r *Repository) FindByEmail(ctx context.Context, email string, includeDeleted bool) (Person, error) {
	query := personSelect + ` WHERE p.email = $1`
	if !includeDeleted {
		query += ` AND p.is_deleted = false`
	}
	query += ` ORDER BY p.is_deleted ASC, p.updated_at DESC LIMIT 1`
	p, err := scanPerson(r.pool.QueryRow(ctx, query, email))
	if errors.Is(err, pgx.ErrNoRows) {
		return Person{}, shared.NotFoundf("person with email %s not found", email)
	}
	return p, err
}

// FindByID loads a person by id.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID, includeDeleted bool) (Person, error) {
	query := personSelect + ` WHERE p.id = $1`
	if !includeDeleted {
		query += ` AND p.is_deleted = false`
	}
	p, err := scanPerson(r.pool.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Person{}, shared.NotFoundf("person with id %s not found", id)
	}
	return p, err
}

// List returns a page of live persons and the live total.
func (r *Repository) List(ctx context.Context, page shared.Page) ([]Person, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM persons WHERE is_deleted = false`).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.pool.Query(ctx, personSelect+`
		WHERE p.is_deleted = false
		ORDER BY p.created_at, p.id
		LIMIT $1 OFFSET $2`, page.Limit, page.Offset())
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var out []Person
	for rows.Next() {
		p, err := scanPerson(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

// Create inserts a person. A live person with the same email or an existing
// row with the same id yields shared.ErrConflict.
func (r *Repository) Create(ctx context.Context, p Person) (Person, error) {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO persons (id, given_name, family_name, email, telephone, password_hash, status, role_id, is_deleted, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, false, $9, $9)`,
		p.ID, p.GivenName, p.FamilyName, p.Email, p.Telephone, p.PasswordHash, string(p.Status), p.RoleID, p.CreatedAt)
	if err != nil {
		return Person{}, mapWriteErr(err, p.ID)
	}
	return r.FindByID(ctx, p.ID, false)
}

// Update persists every mutable field of a live person.
func (r *Repository) Update(ctx context.Context, p Person) (Person, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE persons SET given_name = $2, family_name = $3, email = $4, telephone = $5,
		       password_hash = $6, status = $7, role_id = $8, updated_at = $9
		WHERE id = $1 AND is_deleted = false`,
		p.ID, p.GivenName, p.FamilyName, p.Email, p.Telephone, p.PasswordHash, string(p.Status), p.RoleID, p.UpdatedAt)
	if err != nil {
		return Person{}, mapWriteErr(err, p.ID)
	}
	if tag.RowsAffected() == 0 {
		return Person{}, shared.NotFoundf("person with id %s not found", p.ID)
	}
	return r.FindByID(ctx, p.ID, false)
}

// SoftDelete flags a live person as deleted.
func (r *Repository) SoftDelete(ctx context.Context, id uuid.UUID, at time.Time) (Person, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE persons SET is_deleted = true, deleted_at = $2, updated_at = $2
		WHERE id = $1 AND is_deleted = false`, id, at)
	if err != nil {
		return Person{}, err
	}
	if tag.RowsAffected() == 0 {
		return Person{}, shared.NotFoundf("person with id %s not found", id)
	}
	return r.FindByID(ctx, id, true)
}

// Restore clears the deletion flag of a person. Live records are returned
// unchanged.
func (r *Repository) Restore(ctx context.Context, id uuid.UUID, at time.Time) (Person, error) {
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		var deleted bool
		err := tx.QueryRow(ctx, `SELECT is_deleted FROM persons WHERE id = $1 FOR UPDATE`, id).Scan(&deleted)
		if errors.Is(err, pgx.ErrNoRows) {
			return shared.NotFoundf("person with id %s not found", id)
		}
		if err != nil || !deleted {
			return err
		}
		_, err = tx.Exec(ctx, `
			UPDATE persons SET is_deleted = false, deleted_at = NULL, updated_at = $2
			WHERE id = $1`, id, at)
		if err != nil {
			return mapWriteErr(err, id)
		}
		return nil
	})
	if err != nil {
		return Person{}, err
	}
	return r.FindByID(ctx, id, true)
}

func scanPerson(row pgx.Row) (Person, error) {
	var (
		p         Person
		status    string
		roleID    *uuid.UUID
		roleName  *string
		rolePerms []string
	)
	err := row.Scan(&p.ID, &p.GivenName, &p.FamilyName, &p.Email, &p.Telephone, &p.PasswordHash,
		&status, &p.RoleID, &p.IsDeleted, &p.DeletedAt, &p.CreatedAt, &p.UpdatedAt,
		&roleID, &roleName, &rolePerms)
	if err != nil {
		return Person{}, err
	}
	p.Status = Status(status)
	if roleID != nil && roleName != nil {
		ref := &roles.Ref{ID: *roleID, Name: roles.Name(*roleName), Permissions: make([]roles.Permission, len(rolePerms))}
		for i, perm := range rolePerms {
			ref.Permissions[i] = roles.Permission(perm)
		}
		p.Role = ref
	}
	return p, nil
}

func mapWriteErr(err error, id uuid.UUID) error {
	switch {
	case db.IsUniqueViolation(err, liveEmailConstraint):
		return shared.Conflictf("email already exists")
	case db.IsUniqueViolation(err, pkeyConstraint):
		return shared.Conflictf("person with id %s already exists", id)
	}
	return fmt.Errorf("users: write: %w", err)
}
