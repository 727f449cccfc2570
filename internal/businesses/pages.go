package businesses

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/quinisports/quinisports/internal/shared"
	"github.com/quinisports/quinisports/internal/view"
)

func (h *Handler) homePage(w http.ResponseWriter, r *http.Request) {
	entries, err := h.service.Directory(r.Context())
	if err != nil {
		h.logger.Error("load directory", slog.Any("error", err))
		entries = nil
	}
	h.render(w, r, http.StatusOK, "pages/home.html", view.TemplateData{Title: "QuiniSports", Data: entries})
}

func (h *Handler) businessPage(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")
	id, err := ParseSlugID(slug)
	if err != nil {
		http.NotFound(w, r)
		return
	}
	info, err := h.service.FullInfo(r.Context(), id)
	if errors.Is(err, shared.ErrNotFound) {
		http.NotFound(w, r)
		return
	}
	if err != nil {
		h.logger.Error("load business page", slog.Int64("business_id", id), slog.Any("error", err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	if info.Slug != slug {
		http.Redirect(w, r, "/comercios-afiliados/"+info.Slug, http.StatusMovedPermanently)
		return
	}
	h.render(w, r, http.StatusOK, "pages/business.html", view.TemplateData{Title: info.Business.Name, Data: info})
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request, status int, name string, data view.TemplateData) {
	data.CurrentPath = r.URL.Path
	data.Session = shared.SessionFromContext(r.Context())
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := h.templates.Render(w, name, data); err != nil {
		h.logger.Error("render template", slog.String("template", name), slog.Any("error", err))
	}
}
