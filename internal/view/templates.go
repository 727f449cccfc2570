package view

import (
	"fmt"
	"html/template"
	"net/http"
	"time"

	"github.com/quinisports/quinisports/internal/shared"
	"github.com/quinisports/quinisports/web"
)

// Engine renders HTML templates.
type Engine struct {
	templates *template.Template
}

// TemplateData contains values shared across templates.
type TemplateData struct {
	Title       string
	CSRFToken   string
	CurrentPath string
	Session     *shared.Session
	Sections    []Section
	Errors      map[string]string
	Data        any
}

// NewEngine parses the embedded templates.
func NewEngine() (*Engine, error) {
	funcMap := template.FuncMap{
		"formatDate": func(t time.Time) string {
			if t.IsZero() {
				return ""
			}
			return t.Format("02/01/2006 15:04")
		},
		"clock": FormatMinutes,
	}
	tpl, err := template.New("root").Funcs(funcMap).ParseFS(web.Templates, "templates/layouts/*.html", "templates/pages/*.html")
	if err != nil {
		return nil, err
	}
	return &Engine{templates: tpl}, nil
}

// Render executes a named template with TemplateData.
func (e *Engine) Render(w http.ResponseWriter, name string, data TemplateData) error {
	if e == nil {
		return fmt.Errorf("template engine not initialised")
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	return e.templates.ExecuteTemplate(w, name, data)
}

// FormatMinutes renders minutes after midnight as HH:MM.
func FormatMinutes(m *int) string {
	if m == nil {
		return "-"
	}
	return fmt.Sprintf("%02d:%02d", *m/60, *m%60)
}
