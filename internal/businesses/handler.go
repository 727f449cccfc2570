package businesses

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/quinisports/quinisports/internal/guard"
	"github.com/quinisports/quinisports/internal/platform/httpx"
	"github.com/quinisports/quinisports/internal/policy"
	"github.com/quinisports/quinisports/internal/shared"
	"github.com/quinisports/quinisports/internal/view"
)

// Handler exposes the business API and the public directory pages.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	templates *view.Engine
	guard     *guard.Guard
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service, templates *view.Engine, g *guard.Guard) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service, templates: templates, guard: g}
}

// MountRoutes registers /api/business.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/full-info/{id}", h.fullInfo)

	read := h.guard.API(policy.ResourceBusiness, policy.VerbRead)
	update := h.guard.API(policy.ResourceBusiness, policy.VerbUpdate)
	r.With(read).Get("/", h.list)
	r.With(h.guard.API(policy.ResourceBusiness, policy.VerbCreate)).Post("/", h.create)
	r.With(read).Get("/{id}", h.get)
	r.With(update).Put("/{id}", h.replace)
	r.With(update).Patch("/{id}", h.patch)
	r.With(h.guard.API(policy.ResourceBusiness, policy.VerbDelete)).Delete("/{id}", h.remove)
	r.With(read).Get("/{id}/schedule", h.schedule)
	r.With(update).Put("/{id}/schedule", h.replaceSchedule)
}

// MountPublicAPI registers the public directory endpoint.
func (h *Handler) MountPublicAPI(r chi.Router) {
	r.Get("/api/directory", h.directory)
}

// MountPublicPages registers the home page and the business pages.
func (h *Handler) MountPublicPages(r chi.Router) {
	r.Get("/", h.homePage)
	r.Get("/comercios-afiliados/{slug}", h.businessPage)
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
		list = []Business{}
	}
	httpx.OK(w, http.StatusOK, list)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.PathID(r, "id")
	if err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	b, err := h.service.Get(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	httpx.OK(w, http.StatusOK, b)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var in Input
	if err := httpx.DecodeAndValidate(w, r, &in); err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	b, err := h.service.Create(r.Context(), in)
	if err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	httpx.OK(w, http.StatusCreated, b)
}

func (h *Handler) replace(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.PathID(r, "id")
	if err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	var in Input
	if err := httpx.DecodeAndValidate(w, r, &in); err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	b, warnings, err := h.service.Replace(r.Context(), id, in)
	if err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	httpx.OK(w, http.StatusOK, b, warnings...)
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
	b, warnings, err := h.service.Update(r.Context(), id, p)
	if err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	httpx.OK(w, http.StatusOK, b, warnings...)
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

func (h *Handler) schedule(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.PathID(r, "id")
	if err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	days, err := h.service.Schedule(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	httpx.OK(w, http.StatusOK, days)
}

func (h *Handler) replaceSchedule(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.PathID(r, "id")
	if err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	var in ScheduleInput
	if err := httpx.DecodeAndValidate(w, r, &in); err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	days, err := h.service.ReplaceSchedule(r.Context(), id, in)
	if err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	httpx.OK(w, http.StatusOK, days)
}

func (h *Handler) fullInfo(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.PathID(r, "id")
	if err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	info, err := h.service.FullInfo(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	httpx.OK(w, http.StatusOK, info)
}

func (h *Handler) directory(w http.ResponseWriter, r *http.Request) {
	entries, err := h.service.Directory(r.Context())
	if err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	if entries == nil {
		entries = []DirectoryEntry{}
	}
	httpx.OK(w, http.StatusOK, entries)
}
