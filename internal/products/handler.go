package products

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/quinisports/quinisports/internal/guard"
	"github.com/quinisports/quinisports/internal/platform/httpx"
	"github.com/quinisports/quinisports/internal/policy"
	"github.com/quinisports/quinisports/internal/shared"
)

// Handler exposes the product and product type API.
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

// MountRoutes registers /api/product.
func (h *Handler) MountRoutes(r chi.Router) {
	r.With(h.guard.API(policy.ResourceProduct, policy.VerbRead)).Get("/", h.list)
	r.With(h.guard.API(policy.ResourceProduct, policy.VerbCreate)).Post("/", h.create)
	r.With(h.guard.API(policy.ResourceProduct, policy.VerbRead)).Get("/{id}", h.get)
	r.With(h.guard.API(policy.ResourceProduct, policy.VerbUpdate)).Patch("/{id}", h.patch)
	r.With(h.guard.API(policy.ResourceProduct, policy.VerbDelete)).Delete("/{id}", h.remove)
}

// MountTypeRoutes registers /api/product-type.
func (h *Handler) MountTypeRoutes(r chi.Router) {
	r.With(h.guard.API(policy.ResourceProductType, policy.VerbRead)).Get("/", h.listTypes)
	r.With(h.guard.API(policy.ResourceProductType, policy.VerbCreate)).Post("/", h.createType)
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
		list = []Product{}
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

func (h *Handler) listTypes(w http.ResponseWriter, r *http.Request) {
	types, err := h.service.Types(r.Context())
	if err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	if types == nil {
		types = []ProductType{}
	}
	httpx.OK(w, http.StatusOK, types)
}

func (h *Handler) createType(w http.ResponseWriter, r *http.Request) {
	var in TypeInput
	if err := httpx.DecodeAndValidate(w, r, &in); err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	t, err := h.service.CreateType(r.Context(), in)
	if err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	httpx.OK(w, http.StatusCreated, t)
}
