package roles

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

const (
	liveNameConstraint = "roles_role_name_live_key"
	pkeyConstraint     = "roles_pkey"
)

const roleColumns = `id, role_name, permissions, is_deleted, deleted_at, created_at, updated_at`

// Repository provides PostgreSQL backed persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Create inserts a role. A live role with the same name or an existing row
// with the same id yields shared.ErrConflict.
func (r *Repository) Create(ctx context.Context, role Role) (Role, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO roles (id, role_name, permissions, is_deleted, created_at, updated_at)
		VALUES ($1, $2, $3, false, $4, $4)
		RETURNING `+roleColumns,
		role.ID, string(role.Name), permissionStrings(role.Permissions), role.CreatedAt)
	created, err := scanRole(row)
	if err != nil {
		return Role{}, mapWriteErr(err, role)
	}
	return created, nil
}

// FindByID loads a role by id.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID, includeDeleted bool) (Role, error) {
	query := `SELECT ` + roleColumns + ` FROM roles WHERE id = $1`
	if !includeDeleted {
		query += ` AND is_deleted = false`
	}
	role, err := scanRole(r.pool.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Role{}, shared.NotFoundf("role with id %s not found", id)
	}
	return role, err
}

// FindByName loads the live role with the given name, or the most recently
// deleted one when includeDeleted is set and no live role exists.
func (r *Repository) FindByName(ctx context.Context, name Name, includeDeleted bool) (Role, error) {
	query := `SELECT ` + roleColumns + ` FROM roles WHERE role_name = $1`
	if !includeDeleted {
		query += ` AND is_deleted = false`
	}
	query += ` ORDER BY is_deleted ASC, updated_at DESC LIMIT 1`
	role, err := scanRole(r.pool.QueryRow(ctx, query, string(name)))
	if errors.Is(err, pgx.ErrNoRows) {
		return Role{}, shared.NotFoundf("role with name '%s' not found", name)
	}
	return role, err
}

// List returns a page of live roles and the live total.
func (r *Repository) List(ctx context.Context, page shared.Page) ([]Role, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM roles WHERE is_deleted = false`).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.pool.Query(ctx, `SELECT `+roleColumns+` FROM roles
		WHERE is_deleted = false
		ORDER BY created_at, id
		LIMIT $1 OFFSET $2`, page.Limit, page.Offset())
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var out []Role
	for rows.Next() {
		role, err := scanRole(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, role)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

// Update persists name and permissions of a live role.
func (r *Repository) Update(ctx context.Context, role Role) (Role, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE roles SET role_name = $2, permissions = $3, updated_at = $4
		WHERE id = $1 AND is_deleted = false
		RETURNING `+roleColumns,
		role.ID, string(role.Name), permissionStrings(role.Permissions), role.UpdatedAt)
	updated, err := scanRole(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Role{}, shared.NotFoundf("role with id %s not found", role.ID)
	}
	if err != nil {
		return Role{}, mapWriteErr(err, role)
	}
	return updated, nil
}

// SoftDelete flags a live role as deleted.
func (r *Repository) SoftDelete(ctx context.Context, id uuid.UUID, at time.Time) (Role, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE roles SET is_deleted = true, deleted_at = $2, updated_at = $2
		WHERE id = $1 AND is_deleted = false
		RETURNING `+roleColumns, id, at)
	role, err := scanRole(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Role{}, shared.NotFoundf("role with id %s not found", id)
	}
	return role, err
}

// Restore clears the deletion flag. Restoring over a live role of the same
// name yields shared.ErrConflict.
func (r *Repository) Restore(ctx context.Context, id uuid.UUID, at time.Time) (Role, error) {
	var restored Role
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		current, err := scanRole(tx.QueryRow(ctx, `SELECT `+roleColumns+` FROM roles WHERE id = $1 FOR UPDATE`, id))
		if errors.Is(err, pgx.ErrNoRows) {
			return shared.NotFoundf("role with id %s not found", id)
		}
		if err != nil {
			return err
		}
		if !current.IsDeleted {
			restored = current
			return nil
		}
		restored, err = scanRole(tx.QueryRow(ctx, `
			UPDATE roles SET is_deleted = false, deleted_at = NULL, updated_at = $2
			WHERE id = $1
			RETURNING `+roleColumns, id, at))
		if err != nil {
			return mapWriteErr(err, current)
		}
		return nil
	})
	if err != nil {
		return Role{}, err
	}
	return restored, nil
}

func scanRole(row pgx.Row) (Role, error) {
	var (
		role  Role
		name  string
		perms []string
	)
	if err := row.Scan(&role.ID, &name, &perms, &role.IsDeleted, &role.DeletedAt, &role.CreatedAt, &role.UpdatedAt); err != nil {
		return Role{}, err
	}
	role.Name = Name(name)
	role.Permissions = make([]Permission, len(perms))
	for i, p := range perms {
		role.Permissions[i] = Permission(p)
	}
	return role, nil
}

func permissionStrings(perms []Permission) []string {
	out := make([]string, len(perms))
	for i, p := range perms {
		out[i] = string(p)
	}
	return out
}

func mapWriteErr(err error, role Role) error {
	switch {
	case db.IsUniqueViolation(err, liveNameConstraint):
		return conflictName(role.Name)
	case db.IsUniqueViolation(err, pkeyConstraint):
		return shared.Conflictf("role with id %s already exists", role.ID)
	}
	return fmt.Errorf("roles: write: %w", err)
}

func conflictName(name Name) error {
	return shared.Conflictf("role with name '%s' already exists", name)
}
