package roles

import (
	"context"
	"errors"
	"log/slog"

	"github.com/bizhub-io/bizhub/internal/shared"
)

// SeedTarget is the subset of Service the seeder needs.
type SeedTarget interface {
	FindByName(ctx context.Context, name Name) (Role, error)
	Create(ctx context.Context, in CreateInput) (Role, error)
}

// SeedReport summarises a seeding run.
type SeedReport struct {
	Created []Name `json:"created"`
	Skipped []Name `json:"skipped"`
	Failed  []Name `json:"failed"`
}

// Seeder makes sure every defined role exists.
type Seeder struct {
	target SeedTarget
	logger *slog.Logger
}

// NewSeeder constructs a Seeder.
func NewSeeder(target SeedTarget, logger *slog.Logger) *Seeder {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Seeder{target: target, logger: logger}
}

// SeedDefaults creates each missing role with its default permissions. A
// failure for one role is logged and does not stop the others.
func (s *Seeder) SeedDefaults(ctx context.Context) SeedReport {
	var report SeedReport
	for _, name := range Names() {
		if err := ctx.Err(); err != nil {
			s.logger.Warn("role seeding interrupted", slog.Any("error", err))
			report.Failed = append(report.Failed, name)
			continue
		}
		_, err := s.target.FindByName(ctx, name)
		if err == nil {
			report.Skipped = append(report.Skipped, name)
			continue
		}
		if !errors.Is(err, shared.ErrNotFound) {
			s.logger.Error("role seeding lookup", slog.String("role_name", string(name)), slog.Any("error", err))
			report.Failed = append(report.Failed, name)
			continue
		}
		if _, err := s.target.Create(ctx, CreateInput{Name: name}); err != nil {
			if errors.Is(err, shared.ErrConflict) {
				report.Skipped = append(report.Skipped, name)
				continue
			}
			s.logger.Error("role seeding create", slog.String("role_name", string(name)), slog.Any("error", err))
			report.Failed = append(report.Failed, name)
			continue
		}
		report.Created = append(report.Created, name)
	}
	s.logger.Info("role seeding finished",
		slog.Int("created", len(report.Created)),
		slog.Int("skipped", len(report.Skipped)),
		slog.Int("failed", len(report.Failed)))
	return report
}
