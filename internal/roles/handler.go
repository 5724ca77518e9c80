package roles

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/bizhub-io/bizhub/internal/platform/httpx"
	"github.com/bizhub-io/bizhub/internal/shared"
)

// Route identifiers consulted by the capability gate.
const (
	RouteCreate  = "roles.create"
	RouteList    = "roles.list"
	RouteGet     = "roles.get"
	RouteUpdate  = "roles.update"
	RouteDelete  = "roles.delete"
	RouteRestore = "roles.restore"
)

// Gate guards a route by identifier.
type Gate interface {
	Require(routeID string) func(http.Handler) http.Handler
}

// Handler manages role management endpoints.
type Handler struct {
	logger  *slog.Logger
	service *Service
	gate    Gate
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service, gate Gate) *Handler {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Handler{logger: logger, service: service, gate: gate}
}

// MountRoutes registers role routes. The caller must have authenticated the
// request already.
func (h *Handler) MountRoutes(r chi.Router) {
	r.With(h.gate.Require(RouteCreate)).Post("/", h.create)
	r.With(h.gate.Require(RouteList)).Get("/", h.list)
	r.With(h.gate.Require(RouteGet)).Get("/{id}", h.get)
	r.With(h.gate.Require(RouteUpdate)).Patch("/{id}", h.update)
	r.With(h.gate.Require(RouteDelete)).Delete("/{id}", h.remove)
	r.With(h.gate.Require(RouteRestore)).Post("/{id}/restore", h.restore)
}

type createRoleRequest struct {
	ID          string   `json:"@id" validate:"omitempty,uuid4"`
	RoleName    string   `json:"roleName" validate:"required,oneof=Admin Manager Assistant"`
	Permissions []string `json:"permissions" validate:"omitempty,dive,required"`
}

type updateRoleRequest struct {
	RoleName    *string   `json:"roleName" validate:"omitempty,oneof=Admin Manager Assistant"`
	Permissions *[]string `json:"permissions"`
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req createRoleRequest
	if err := httpx.Bind(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	perms, err := ParsePermissions(req.Permissions)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	in := CreateInput{Name: Name(req.RoleName), Permissions: perms}
	if req.ID != "" {
		in.ID = uuid.MustParse(req.ID)
	}
	role, err := h.service.Create(r.Context(), in)
	if err != nil {
		h.fail(w, "create role", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, ToView(role))
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	page := shared.PageFromQuery(r.URL.Query())
	result, err := h.service.List(r.Context(), page)
	if err != nil {
		h.fail(w, "list roles", err)
		return
	}
	views := make([]View, len(result.Items))
	for i, role := range result.Items {
		views[i] = ToView(role)
	}
	httpx.JSON(w, http.StatusOK, httpx.Page[View]{Items: views, Pagination: shared.NewPagination(page, result.Total)})
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.UUIDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	role, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.fail(w, "get role", err)
		return
	}
	httpx.JSON(w, http.StatusOK, ToView(role))
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.UUIDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var req updateRoleRequest
	if err := httpx.Bind(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	var in UpdateInput
	if req.RoleName != nil {
		name := Name(*req.RoleName)
		in.Name = &name
	}
	if req.Permissions != nil {
		perms, err := ParsePermissions(*req.Permissions)
		if err != nil {
			httpx.RespondError(w, err)
			return
		}
		in.Permissions = &perms
	}
	role, err := h.service.Update(r.Context(), id, in)
	if err != nil {
		h.fail(w, "update role", err)
		return
	}
	httpx.JSON(w, http.StatusOK, ToView(role))
}

func (h *Handler) remove(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.UUIDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	if _, err := h.service.Remove(r.Context(), id); err != nil {
		h.fail(w, "delete role", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) restore(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.UUIDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	role, err := h.service.Restore(r.Context(), id)
	if err != nil {
		h.fail(w, "restore role", err)
		return
	}
	httpx.JSON(w, http.StatusOK, ToView(role))
}

func (h *Handler) fail(w http.ResponseWriter, op string, err error) {
	h.logger.Warn(op, slog.Any("error", err))
	httpx.RespondError(w, err)
}
