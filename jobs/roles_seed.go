package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/bizhub-io/bizhub/internal/jobs"
	"github.com/bizhub-io/bizhub/internal/roles"
)

var defaultJobMetrics = jobmetrics.NewMetrics(nil)

// RoleSeeder is satisfied by *roles.Seeder.
type RoleSeeder interface {
	SeedDefaults(ctx context.Context) roles.SeedReport
}

// RolesSeedJob runs the predefined role seeding from the queue.
type RolesSeedJob struct {
	Seeder  RoleSeeder
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
}

// NewRolesSeedJob wires dependencies for the roles:seed handler.
func NewRolesSeedJob(seeder RoleSeeder, logger *slog.Logger, metrics *jobmetrics.Metrics) *RolesSeedJob {
	return &RolesSeedJob{Seeder: seeder, Logger: logger, Metrics: metrics}
}

// Handle processes roles:seed tasks. Roles that failed to seed make the task
// fail so asynq retries it; created and skipped roles are not touched again.
func (j *RolesSeedJob) Handle(ctx context.Context, t *asynq.Task) (err error) {
	if j == nil || j.Seeder == nil {
		return errors.New("roles seed: handler not configured")
	}
	var payload RolesSeedPayload
	if uerr := json.Unmarshal(t.Payload(), &payload); uerr != nil {
		return fmt.Errorf("roles seed: decode payload: %v: %w", uerr, asynq.SkipRetry)
	}

	tracker := j.metrics().Track(TaskRolesSeed)
	defer func() { err = tracker.End(err) }()

	logger := j.logger().With(slog.String("trigger", payload.Trigger))
	start := time.Now()
	report := j.Seeder.SeedDefaults(ctx)
	j.metrics().AddSeeded("created", len(report.Created))
	j.metrics().AddSeeded("skipped", len(report.Skipped))
	j.metrics().AddSeeded("failed", len(report.Failed))

	if len(report.Failed) > 0 {
		logger.Error("roles seed incomplete", slog.Int("failed", len(report.Failed)))
		return fmt.Errorf("roles seed: failed for %s", joinNames(report.Failed))
	}
	logger.Info("roles seed completed",
		slog.Int("created", len(report.Created)),
		slog.Int("skipped", len(report.Skipped)),
		slog.Duration("duration", time.Since(start)))
	return nil
}

func (j *RolesSeedJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger.With(slog.String("job", TaskRolesSeed))
	}
	return slog.Default().With(slog.String("job", TaskRolesSeed))
}

func (j *RolesSeedJob) metrics() *jobmetrics.Metrics {
	if j.Metrics != nil {
		return j.Metrics
	}
	return defaultJobMetrics
}

func joinNames(names []roles.Name) string {
	parts := make([]string, len(names))
	for i, n := range names {
		parts[i] = string(n)
	}
	return strings.Join(parts, ", ")
}
