package app

import (
	"log/slog"
	"net/http"

	"github.com/bizhub-io/bizhub/internal/auth"
	"github.com/bizhub-io/bizhub/internal/businesses"
	"github.com/bizhub-io/bizhub/internal/observability"
	"github.com/bizhub-io/bizhub/internal/rbac"
	"github.com/bizhub-io/bizhub/internal/roles"
	"github.com/bizhub-io/bizhub/internal/users"
	"github.com/bizhub-io/bizhub/jobs"
)

// Dependencies are the storage-facing collaborators the API is built from.
type Dependencies struct {
	Config       *Config
	Logger       *slog.Logger
	Metrics      *observability.Metrics
	RoleRepo     roles.RepositoryPort
	RoleCache    *roles.Cache
	PersonRepo   users.RepositoryPort
	BusinessRepo businesses.RepositoryPort
	Hasher       auth.Hasher
	Issuer       auth.Issuer
	Revocations  auth.RevocationStore
	Queue        jobs.QueueInspector
	Enqueuer     jobs.Enqueuer
}

// Components exposes the wired services and the HTTP handler.
type Components struct {
	Roles      *roles.Service
	Seeder     *roles.Seeder
	Users      *users.Service
	Businesses *businesses.Service
	Auth       *auth.Service
	Router     http.Handler
}

// Build wires services, gates and handlers.
func Build(deps Dependencies) *Components {
	logger := deps.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	ttl := auth.DefaultTokenTTL
	loginLimit := 0
	if deps.Config != nil {
		ttl = auth.TokenTTL{Access: deps.Config.AccessTokenTTL, Refresh: deps.Config.RefreshTokenTTL}
		loginLimit = deps.Config.LoginRateLimit
	}

	roleSvc := roles.NewService(deps.RoleRepo, deps.RoleCache, Component(logger, "roles"))
	userSvc := users.NewService(deps.PersonRepo, deps.Hasher, roleSvc, Component(logger, "users"))
	businessSvc := businesses.NewService(deps.BusinessRepo, userSvc, Component(logger, "businesses"))
	authSvc := auth.NewService(userSvc, deps.Issuer, auth.ServiceConfig{
		TTL:         ttl,
		Revocations: deps.Revocations,
		Recorder:    deps.Metrics,
	}, Component(logger, "auth"))

	rbacLogger := Component(logger, "rbac")
	identity := rbac.NewIdentityGate(authSvc, rbacLogger, deps.Metrics)
	capability := rbac.NewCapabilityGate(DefaultPolicy(), rbacLogger, deps.Metrics)

	router := NewRouter(RouterParams{
		Logger:            Component(logger, "http"),
		Config:            deps.Config,
		Identity:          identity,
		AuthHandler:       auth.NewHandler(Component(logger, "auth"), authSvc, identity, loginLimit),
		RolesHandler:      roles.NewHandler(Component(logger, "roles"), roleSvc, capability),
		UsersHandler:      users.NewHandler(Component(logger, "users"), userSvc, capability),
		BusinessesHandler: businesses.NewHandler(Component(logger, "businesses"), businessSvc, capability),
		JobsHandler:       jobs.NewHandler(deps.Queue, deps.Enqueuer, capability, Component(logger, "jobs")),
		Metrics:           deps.Metrics,
	})

	return &Components{
		Roles:      roleSvc,
		Seeder:     roles.NewSeeder(roleSvc, Component(logger, "roles.seeder")),
		Users:      userSvc,
		Businesses: businessSvc,
		Auth:       authSvc,
		Router:     router,
	}
}
