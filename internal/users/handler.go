package users

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
	RouteCreate  = "users.create"
	RouteList    = "users.list"
	RouteGet     = "users.get"
	RouteUpdate  = "users.update"
	RouteDelete  = "users.delete"
	RouteRestore = "users.restore"
)

// Gate guards a route by identifier.
type Gate interface {
	Require(routeID string) func(http.Handler) http.Handler
}

// Handler manages person endpoints.
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

// MountRoutes registers person routes on an authenticated router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.With(h.gate.Require(RouteCreate)).Post("/", h.create)
	r.With(h.gate.Require(RouteList)).Get("/", h.list)
	r.With(h.gate.Require(RouteGet)).Get("/{id}", h.get)
	r.With(h.gate.Require(RouteUpdate)).Patch("/{id}", h.update)
	r.With(h.gate.Require(RouteDelete)).Delete("/{id}", h.remove)
	r.With(h.gate.Require(RouteRestore)).Post("/{id}/restore", h.restore)
}

type createPersonRequest struct {
	ID         string `json:"@id" validate:"omitempty,uuid4"`
	GivenName  string `json:"givenName" validate:"required"`
	FamilyName string `json:"familyName" validate:"required"`
	Email      string `json:"email" validate:"required,email"`
	Telephone  string `json:"telephone"`
	Password   string `json:"password" validate:"required,min=8"`
	RoleID     string `json:"roleId" validate:"required,uuid"`
	Status     string `json:"status" validate:"omitempty,oneof=Active Inactive"`
}

type updatePersonRequest struct {
	GivenName  *string `json:"givenName" validate:"omitempty,min=1"`
	FamilyName *string `json:"familyName" validate:"omitempty,min=1"`
	Email      *string `json:"email" validate:"omitempty,email"`
	Telephone  *string `json:"telephone"`
	Password   *string `json:"password" validate:"omitempty,min=8"`
	RoleID     *string `json:"roleId" validate:"omitempty,uuid"`
	Status     *string `json:"status" validate:"omitempty,oneof=Active Inactive"`
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req createPersonRequest
	if err := httpx.Bind(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	in := CreateInput{
		GivenName:  req.GivenName,
		FamilyName: req.FamilyName,
		Email:      req.Email,
		Telephone:  req.Telephone,
		Password:   req.Password,
		RoleID:     uuid.MustParse(req.RoleID),
		Status:     Status(req.Status),
	}
	if req.ID != "" {
		in.ID = uuid.MustParse(req.ID)
	}
	person, err := h.service.Create(r.Context(), in)
	if err != nil {
		h.fail(w, "create person", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, ToView(person))
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	page := shared.PageFromQuery(r.URL.Query())
	result, err := h.service.List(r.Context(), page)
	if err != nil {
		h.fail(w, "list persons", err)
		return
	}
	views := make([]View, len(result.Items))
	for i, p := range result.Items {
		views[i] = ToView(p)
	}
	httpx.JSON(w, http.StatusOK, httpx.Page[View]{Items: views, Pagination: shared.NewPagination(page, result.Total)})
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.UUIDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	person, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.fail(w, "get person", err)
		return
	}
	httpx.JSON(w, http.StatusOK, ToView(person))
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.UUIDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var req updatePersonRequest
	if err := httpx.Bind(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	in := UpdateInput{
		GivenName:  req.GivenName,
		FamilyName: req.FamilyName,
		Email:      req.Email,
		Telephone:  req.Telephone,
		Password:   req.Password,
	}
	if req.RoleID != nil {
		roleID := uuid.MustParse(*req.RoleID)
		in.RoleID = &roleID
	}
	if req.Status != nil {
		status := Status(*req.Status)
		in.Status = &status
	}
	person, err := h.service.Update(r.Context(), id, in)
	if err != nil {
		h.fail(w, "update person", err)
		return
	}
	httpx.JSON(w, http.StatusOK, ToView(person))
}

func (h *Handler) remove(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.UUIDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	if _, err := h.service.Remove(r.Context(), id); err != nil {
		h.fail(w, "delete person", err)
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
	person, err := h.service.Restore(r.Context(), id)
	if err != nil {
		h.fail(w, "restore person", err)
		return
	}
	httpx.JSON(w, http.StatusOK, ToView(person))
}

func (h *Handler) fail(w http.ResponseWriter, op string, err error) {
	h.logger.Warn(op, slog.Any("error", err))
	httpx.RespondError(w, err)
}
