package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/bizhub-io/bizhub/internal/roles"
	"github.com/bizhub-io/bizhub/internal/shared"
	"github.com/bizhub-io/bizhub/internal/users"
)

// BootstrapAdmin creates the first Admin person when no live person owns
// email. The Admin role must already exist.
func BootstrapAdmin(ctx context.Context, c *Components, email, password string, logger *slog.Logger) (bool, error) {
	if email == "" {
		return false, nil
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if _, err := c.Users.FindByEmail(ctx, email); err == nil {
		logger.Info("bootstrap admin already present")
		return false, nil
	} else if !errors.Is(err, shared.ErrNotFound) {
		return false, fmt.Errorf("bootstrap admin: lookup: %w", err)
	}
	admin, err := c.Roles.FindByName(ctx, roles.Admin)
	if err != nil {
		return false, fmt.Errorf("bootstrap admin: admin role: %w", err)
	}
	person, err := c.Users.Create(ctx, users.CreateInput{
		GivenName:  "Bootstrap",
		FamilyName: "Admin",
		Email:      email,
		Password:   password,
		RoleID:     admin.ID,
		Status:     users.StatusActive,
	})
	if err != nil {
		return false, fmt.Errorf("bootstrap admin: create: %w", err)
	}
	logger.Info("bootstrap admin created", slog.String("person_id", person.ID.String()))
	return true, nil
}
