package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/bizhub-io/bizhub/cmd/bizhub/cli"
	"github.com/bizhub-io/bizhub/internal/app"
	"github.com/bizhub-io/bizhub/internal/auth"
	"github.com/bizhub-io/bizhub/internal/businesses"
	"github.com/bizhub-io/bizhub/internal/observability"
	"github.com/bizhub-io/bizhub/internal/platform/cache"
	"github.com/bizhub-io/bizhub/internal/platform/db"
	"github.com/bizhub-io/bizhub/internal/roles"
	"github.com/bizhub-io/bizhub/internal/users"
	"github.com/bizhub-io/bizhub/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if len(os.Args) > 1 && os.Args[1] == "jobs" {
		cliCfg, err := app.LoadCLIConfig()
		if err != nil {
			slog.Default().Error("load config", slog.Any("error", err))
			os.Exit(1)
		}
		if err := runJobsCommand(ctx, cliCfg.RedisAddr, os.Args[2:]); err != nil {
			app.NewLogger(cliCfg.Logging()).Error("jobs command", slog.Any("error", err))
			os.Exit(1)
		}
		return
	}

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}
	logger := app.NewLogger(cfg)

	if err := run(ctx, stop, cfg, logger); err != nil {
		logger.Error("bizhub", slog.Any("error", err))
		os.Exit(1)
	}
}

func run(ctx context.Context, stop context.CancelFunc, cfg *app.Config, logger *slog.Logger) error {
	pool, err := db.New(ctx, cfg.PGDSN, db.PoolOptions{MaxConns: cfg.PGMaxConns, MaxConnLifetime: cfg.PGMaxConnLifetime})
	if err != nil {
		return err
	}
	defer pool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		return err
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	redisOpts := asynq.RedisClientOpt{Addr: cfg.RedisAddr}
	inspector := asynq.NewInspector(redisOpts)
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()
	jobClient := jobs.NewClient(redisOpts)
	defer func() {
		if err := jobClient.Close(); err != nil {
			logger.Warn("job client close", slog.Any("error", err))
		}
	}()

	metrics := observability.NewMetrics()
	components := app.Build(app.Dependencies{
		Config:       cfg,
		Logger:       logger,
		Metrics:      metrics,
		RoleRepo:     roles.NewRepository(pool),
		RoleCache:    roles.NewCache(cache.NewJSON(redisClient, "roles", cfg.CacheTTL), app.Component(logger, "roles.cache")),
		PersonRepo:   users.NewRepository(pool),
		BusinessRepo: businesses.NewRepository(pool),
		Hasher:       auth.NewBcryptHasher(cfg.BcryptCost),
		Issuer:       auth.NewJWTIssuer(cfg.JWTSecret, cfg.JWTIssuer),
		Revocations:  auth.NewRedisRevocationStore(redisClient),
		Queue:        inspector,
		Enqueuer:     jobClient,
	})

	if cfg.SeedRolesOnStart {
		report := components.Seeder.SeedDefaults(ctx)
		logger.Info("roles seeded",
			slog.Int("created", len(report.Created)),
			slog.Int("skipped", len(report.Skipped)),
			slog.Int("failed", len(report.Failed)))
	}
	if _, err := app.BootstrapAdmin(ctx, components, cfg.BootstrapAdminEmail, cfg.BootstrapAdminPassword, logger); err != nil {
		return err
	}

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      components.Router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

func runJobsCommand(ctx context.Context, redisAddr string, args []string) error {
	jobsCLI := cli.NewJobsCLI(redisAddr)
	defer func() { _ = jobsCLI.Close() }()

	if len(args) == 0 {
		return fmt.Errorf("usage: bizhub jobs trigger <task> | bizhub jobs stats")
	}
	switch args[0] {
	case "trigger":
		if len(args) < 2 {
			return fmt.Errorf("usage: bizhub jobs trigger <task>")
		}
		info, err := jobsCLI.Trigger(ctx, args[1])
		if err != nil {
			return err
		}
		fmt.Printf("enqueued %s id=%s queue=%s\n", info.Type, info.ID, info.Queue)
	case "stats":
		stats, err := jobsCLI.InspectQueue(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("queue=%s pending=%d active=%d scheduled=%d retry=%d\n",
			stats.Queue, stats.Pending, stats.Active, stats.Scheduled, stats.Retry)
	default:
		return fmt.Errorf("jobs: unknown command %q", args[0])
	}
	return nil
}
