package prizes

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/quinisports/quinisports/internal/guard"
	"github.com/quinisports/quinisports/internal/platform/httpx"
	"github.com/quinisports/quinisports/internal/policy"
	"github.com/quinisports/quinisports/internal/shared"
)

// Handler exposes the prize API.
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

// MountRoutes registers /api/prize.
func (h *Handler) MountRoutes(r chi.Router) {
	read := h.guard.API(policy.ResourcePrize, policy.VerbRead)
	r.With(read).Get("/", h.list)
	r.With(h.guard.API(policy.ResourcePrize, policy.VerbCreate)).Post("/", h.create)
	r.With(read).Get("/{id}", h.get)
	r.With(h.guard.API(policy.ResourcePrize, policy.VerbUpdate)).Patch("/{id}", h.patch)
	r.With(h.guard.API(policy.ResourcePrize, policy.VerbDelete)).Delete("/{id}", h.remove)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	filter, err := shared.ParseListFilter(r.URL.Query())
	if err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	list, err := h.service.List(r.Context(), filter)
	if err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	if list == nil {
		list = []Prize{}
	}
	httpx.OK(w, http.StatusOK, list)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.PathID(r, "id")
	if err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	p, err := h.service.Get(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	httpx.OK(w, http.StatusOK, p)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var in Input
	if err := httpx.DecodeAndValidate(w, r, &in); err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	p, err := h.service.Create(r.Context(), in)
	if err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	httpx.OK(w, http.StatusCreated, p)
}

func (h *Handler) patch(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.PathID(r, "id")
	if err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	var p Patch
	if err := httpx.DecodeAndValidate(w, r, &p); err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	updated, warnings, err := h.service.Update(r.Context(), id, p)
	if err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	httpx.OK(w, http.StatusOK, updated, warnings...)
}

func (h *Handler) remove(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.PathID(r, "id")
	if err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	warnings, err := h.service.Delete(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	httpx.OK(w, http.StatusOK, map[string]int64{"id": id}, warnings...)
}
