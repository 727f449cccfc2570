package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/quinisports/quinisports/internal/guard"
	"github.com/quinisports/quinisports/internal/policy"
	"github.com/quinisports/quinisports/internal/shared"
	"github.com/quinisports/quinisports/internal/view"
)

// adminPages renders the admin shell pages. The collections themselves are
// loaded by the browser from the section API.
type adminPages struct {
	logger    *slog.Logger
	templates *view.Engine
	csrf      *shared.CSRFManager
	guard     *guard.Guard
}

func (p *adminPages) dashboard(w http.ResponseWriter, r *http.Request) {
	p.render(w, r, http.StatusOK, "pages/admin.html", view.TemplateData{Title: "Panel"})
}

func (p *adminPages) section(w http.ResponseWriter, r *http.Request) {
	sec, ok := view.LookupSection(chi.URLParam(r, "section"))
	if !ok {
		http.NotFound(w, r)
		return
	}
	render := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p.render(w, r, http.StatusOK, "pages/admin_section.html", view.TemplateData{Title: sec.Label, Data: sec})
	})
	p.guard.Page(sec.Resource, policy.VerbRead)(render).ServeHTTP(w, r)
}

func (p *adminPages) maintenance(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Cache-Control", "no-store")
	p.render(w, r, http.StatusOK, "pages/maintenance.html", view.TemplateData{Title: "Mantenimiento"})
}

func (p *adminPages) render(w http.ResponseWriter, r *http.Request, status int, name string, data view.TemplateData) {
	sess := shared.SessionFromContext(r.Context())
	data.CurrentPath = r.URL.Path
	data.Session = sess
	if sess != nil {
		data.Sections = view.SectionsFor(sess.Role)
		if p.csrf != nil {
			token, err := p.csrf.EnsureToken(r.Context(), sess)
			if err != nil {
				p.logger.Warn("csrf token", slog.Any("error", err))
			}
			data.CSRFToken = token
		}
	}
	if p.templates == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := p.templates.Render(w, name, data); err != nil {
		p.logger.Error("render template", slog.String("template", name), slog.Any("error", err))
	}
}
