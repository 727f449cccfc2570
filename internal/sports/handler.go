package sports

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/quinisports/quinisports/internal/guard"
	"github.com/quinisports/quinisports/internal/platform/httpx"
	"github.com/quinisports/quinisports/internal/policy"
	"github.com/quinisports/quinisports/internal/shared"
)

// Handler exposes the sport and tournament API.
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

// MountSportRoutes registers /api/sport.
func (h *Handler) MountSportRoutes(r chi.Router) {
	r.With(h.guard.API(policy.ResourceSport, policy.VerbRead)).Get("/", h.listSports)
	r.With(h.guard.API(policy.ResourceSport, policy.VerbCreate)).Post("/", h.createSport)
	r.With(h.guard.API(policy.ResourceSport, policy.VerbUpdate)).Patch("/{id}", h.patchSport)
	r.With(h.guard.API(policy.ResourceSport, policy.VerbDelete)).Delete("/{id}", h.deleteSport)
}

// MountTournamentRoutes registers /api/tournament.
func (h *Handler) MountTournamentRoutes(r chi.Router) {
	r.With(h.guard.API(policy.ResourceTournament, policy.VerbRead)).Get("/", h.listTournaments)
	r.With(h.guard.API(policy.ResourceTournament, policy.VerbCreate)).Post("/", h.createTournament)
	r.With(h.guard.API(policy.ResourceTournament, policy.VerbUpdate)).Patch("/{id}", h.patchTournament)
	r.With(h.guard.API(policy.ResourceTournament, policy.VerbDelete)).Delete("/{id}", h.deleteTournament)
}

func (h *Handler) listSports(w http.ResponseWriter, r *http.Request) {
	filter, err := shared.ParseListFilter(r.URL.Query())
	if err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	list, err := h.service.Sports(r.Context(), filter)
	if err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	if list == nil {
		list = []Sport{}
	}
	httpx.OK(w, http.StatusOK, list)
}

func (h *Handler) createSport(w http.ResponseWriter, r *http.Request) {
	var in SportInput
	if err := httpx.DecodeAndValidate(w, r, &in); err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	sp, err := h.service.CreateSport(r.Context(), in)
	if err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	httpx.OK(w, http.StatusCreated, sp)
}

func (h *Handler) patchSport(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.PathID(r, "id")
	if err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	var p SportPatch
	if err := httpx.DecodeAndValidate(w, r, &p); err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	sp, warnings, err := h.service.UpdateSport(r.Context(), id, p)
	if err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	httpx.OK(w, http.StatusOK, sp, warnings...)
}

func (h *Handler) deleteSport(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.PathID(r, "id")
	if err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	warnings, err := h.service.DeleteSport(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	httpx.OK(w, http.StatusOK, map[string]int64{"id": id}, warnings...)
}

func (h *Handler) listTournaments(w http.ResponseWriter, r *http.Request) {
	filter, err := shared.ParseListFilter(r.URL.Query())
	if err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	var sportID *int64
	if raw := r.URL.Query().Get("sportId"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id <= 0 {
			httpx.RespondError(w, r, h.logger, shared.InvalidFields(map[string]string{"sportId": "must be a positive integer"}))
			return
		}
		sportID = &id
	}
	list, err := h.service.Tournaments(r.Context(), sportID, filter)
	if err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	if list == nil {
		list = []Tournament{}
	}
	httpx.OK(w, http.StatusOK, list)
}

func (h *Handler) createTournament(w http.ResponseWriter, r *http.Request) {
	var in TournamentInput
	if err := httpx.DecodeAndValidate(w, r, &in); err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	t, err := h.service.CreateTournament(r.Context(), in)
	if err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	httpx.OK(w, http.StatusCreated, t)
}

func (h *Handler) patchTournament(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.PathID(r, "id")
	if err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	var p TournamentPatch
	if err := httpx.DecodeAndValidate(w, r, &p); err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	t, warnings, err := h.service.UpdateTournament(r.Context(), id, p)
	if err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	httpx.OK(w, http.StatusOK, t, warnings...)
}

func (h *Handler) deleteTournament(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.PathID(r, "id")
	if err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	warnings, err := h.service.DeleteTournament(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	httpx.OK(w, http.StatusOK, map[string]int64{"id": id}, warnings...)
}
