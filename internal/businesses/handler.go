package businesses

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
	RouteCreate    = "businesses.create"
	RouteList      = "businesses.list"
	RouteByFounder = "businesses.by_founder"
	RouteGet       = "businesses.get"
	RouteUpdate    = "businesses.update"
	RouteDelete    = "businesses.delete"
	RouteRestore   = "businesses.restore"
)

// Gate guards a route by identifier.
type Gate interface {
	Require(routeID string) func(http.Handler) http.Handler
}

// Handler manages business endpoints.
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

// MountRoutes registers business routes on an authenticated router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.With(h.gate.Require(RouteCreate)).Post("/", h.create)
	r.With(h.gate.Require(RouteList)).Get("/", h.list)
	r.With(h.gate.Require(RouteByFounder)).Get("/by-founder/{founderId}", h.byFounder)
	r.With(h.gate.Require(RouteGet)).Get("/{id}", h.get)
	r.With(h.gate.Require(RouteUpdate)).Patch("/{id}", h.update)
	r.With(h.gate.Require(RouteDelete)).Delete("/{id}", h.remove)
	r.With(h.gate.Require(RouteRestore)).Post("/{id}/restore", h.restore)
}

type addressRequest struct {
	StreetAddress   string `json:"streetAddress"`
	AddressLocality string `json:"addressLocality"`
	AddressRegion   string `json:"addressRegion"`
	PostalCode      string `json:"postalCode"`
	AddressCountry  string `json:"addressCountry"`
}

func (a *addressRequest) toAddress() *PostalAddress {
	if a == nil {
		return nil
	}
	return &PostalAddress{
		StreetAddress:   a.StreetAddress,
		AddressLocality: a.AddressLocality,
		AddressRegion:   a.AddressRegion,
		PostalCode:      a.PostalCode,
		AddressCountry:  a.AddressCountry,
	}
}

type createBusinessRequest struct {
	ID           string          `json:"@id" validate:"omitempty,uuid4"`
	Type         string          `json:"@type" validate:"omitempty,eq=LocalBusiness"`
	Name         string          `json:"name" validate:"required"`
	Description  string          `json:"description"`
	Address      *addressRequest `json:"address"`
	Telephone    string          `json:"telephone"`
	Email        string          `json:"email" validate:"omitempty,email"`
	URL          string          `json:"url" validate:"omitempty,url"`
	SameAs       []string        `json:"sameAs" validate:"omitempty,dive,url"`
	OpeningHours []string        `json:"openingHours"`
	FounderID    string          `json:"founderId" validate:"required,uuid"`
}

type updateBusinessRequest struct {
	Name         *string         `json:"name" validate:"omitempty,min=1"`
	Description  *string         `json:"description"`
	Address      *addressRequest `json:"address"`
	Telephone    *string         `json:"telephone"`
	Email        *string         `json:"email" validate:"omitempty,email"`
	URL          *string         `json:"url" validate:"omitempty,url"`
	SameAs       *[]string       `json:"sameAs" validate:"omitempty,dive,url"`
	OpeningHours *[]string       `json:"openingHours"`
	FounderID    *string         `json:"founderId" validate:"omitempty,uuid"`
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req createBusinessRequest
	if err := httpx.Bind(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	in := CreateInput{
		Name:         req.Name,
		Description:  req.Description,
		Address:      req.Address.toAddress(),
		Telephone:    req.Telephone,
		Email:        req.Email,
		URL:          req.URL,
		SameAs:       req.SameAs,
		OpeningHours: req.OpeningHours,
		FounderID:    uuid.MustParse(req.FounderID),
	}
	if req.ID != "" {
		in.ID = uuid.MustParse(req.ID)
	}
	business, err := h.service.Create(r.Context(), in)
	if err != nil {
		h.fail(w, "create business", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, ToView(business))
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	page := shared.PageFromQuery(r.URL.Query())
	result, err := h.service.List(r.Context(), page)
	if err != nil {
		h.fail(w, "list businesses", err)
		return
	}
	httpx.JSON(w, http.StatusOK, httpx.Page[View]{Items: views(result.Items), Pagination: shared.NewPagination(page, result.Total)})
}

func (h *Handler) byFounder(w http.ResponseWriter, r *http.Request) {
	founderID, err := httpx.UUIDParam(r, "founderId")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	items, err := h.service.ListByFounder(r.Context(), founderID)
	if err != nil {
		h.fail(w, "list businesses by founder", err)
		return
	}
	httpx.JSON(w, http.StatusOK, views(items))
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.UUIDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	business, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.fail(w, "get business", err)
		return
	}
	httpx.JSON(w, http.StatusOK, ToView(business))
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.UUIDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var req updateBusinessRequest
	if err := httpx.Bind(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	in := UpdateInput{
		Name:         req.Name,
		Description:  req.Description,
		Address:      req.Address.toAddress(),
		Telephone:    req.Telephone,
		Email:        req.Email,
		URL:          req.URL,
		SameAs:       req.SameAs,
		OpeningHours: req.OpeningHours,
	}
	if req.FounderID != nil {
		founderID := uuid.MustParse(*req.FounderID)
		in.FounderID = &founderID
	}
	business, err := h.service.Update(r.Context(), id, in)
	if err != nil {
		h.fail(w, "update business", err)
		return
	}
	httpx.JSON(w, http.StatusOK, ToView(business))
}

func (h *Handler) remove(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.UUIDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	if _, err := h.service.Remove(r.Context(), id); err != nil {
		h.fail(w, "delete business", err)
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
	business, err := h.service.Restore(r.Context(), id)
	if err != nil {
		h.fail(w, "restore business", err)
		return
	}
	httpx.JSON(w, http.StatusOK, ToView(business))
}

func (h *Handler) fail(w http.ResponseWriter, op string, err error) {
	h.logger.Warn(op, slog.Any("error", err))
	httpx.RespondError(w, err)
}

func views(items []Business) []View {
	out := make([]View, len(items))
	for i, b := range items {
		out[i] = ToView(b)
	}
	return out
}
