package users

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/quinisports/quinisports/internal/guard"
	"github.com/quinisports/quinisports/internal/platform/httpx"
	"github.com/quinisports/quinisports/internal/policy"
	"github.com/quinisports/quinisports/internal/shared"
)

// Handler exposes the employee and administrator APIs.
type Handler struct {
	logger  *slog.Logger
	service *Service
	guard   *guard.Guard
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service, g *guard.Guard) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service, guard: g}
}

// MountEmployeeRoutes registers /api/employee.
func (h *Handler) MountEmployeeRoutes(r chi.Router) {
	h.mount(r, KindEmployee, true)
}

// MountAdminRoutes registers /api/admin.
func (h *Handler) MountAdminRoutes(r chi.Router) {
	h.mount(r, KindAdmin, false)
}

func (h *Handler) mount(r chi.Router, kind Kind, withGet bool) {
	res := kind.Resource()
	r.With(h.guard.API(res, policy.VerbRead)).Get("/", h.list(kind))
	r.With(h.guard.API(res, policy.VerbCreate)).Post("/", h.create(kind))
	if withGet {
		r.With(h.guard.API(res, policy.VerbRead)).Get("/{id}", h.get(kind))
	}
	r.With(h.guard.API(res, policy.VerbUpdate)).Patch("/{id}", h.update(kind))
	r.With(h.guard.API(res, policy.VerbDelete)).Delete("/{id}", h.remove(kind))
}

func (h *Handler) list(kind Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		filter, err := shared.ParseListFilter(r.URL.Query())
		if err != nil {
			httpx.RespondError(w, r, h.logger, err)
			return
		}
		users, err := h.service.List(r.Context(), kind, filter)
		if err != nil {
			httpx.RespondError(w, r, h.logger, err)
			return
		}
		if users == nil {
			users = []User{}
		}
		httpx.OK(w, http.StatusOK, users)
	}
}

func (h *Handler) get(kind Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, err := h.service.Get(r.Context(), kind, chi.URLParam(r, "id"))
		if err != nil {
			httpx.RespondError(w, r, h.logger, err)
			return
		}
		httpx.OK(w, http.StatusOK, user)
	}
}

func (h *Handler) create(kind Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in CreateInput
		if err := httpx.DecodeAndValidate(w, r, &in); err != nil {
			httpx.RespondError(w, r, h.logger, err)
			return
		}
		user, err := h.service.Create(r.Context(), kind, in)
		if err != nil {
			httpx.RespondError(w, r, h.logger, err)
			return
		}
		httpx.OK(w, http.StatusCreated, user)
	}
}

func (h *Handler) update(kind Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var p Patch
		if err := httpx.DecodeAndValidate(w, r, &p); err != nil {
			httpx.RespondError(w, r, h.logger, err)
			return
		}
		user, err := h.service.Update(r.Context(), kind, chi.URLParam(r, "id"), p)
		if err != nil {
			httpx.RespondError(w, r, h.logger, err)
			return
		}
		httpx.OK(w, http.StatusOK, user)
	}
}

func (h *Handler) remove(kind Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := h.service.Delete(r.Context(), kind, chi.URLParam(r, "id")); err != nil {
			httpx.RespondError(w, r, h.logger, err)
			return
		}
		httpx.OK(w, http.StatusOK, map[string]string{"id": chi.URLParam(r, "id")})
	}
}
