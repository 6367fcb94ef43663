package view

import (
	"fmt"
	"html/template"
	"net/http"
	"time"

	"github.com/quayside-hq/quayside/internal/money"
	"github.com/quayside-hq/quayside/internal/shared"
	"github.com/quayside-hq/quayside/web"
)

// Engine renders HTML templates.
type Engine struct {
	templates *template.Template
}

// TemplateData contains values shared across templates.
type TemplateData struct {
	Title       string
	Status      *shared.Status
	CurrentPath string
	Data        any
}

// NewEngine parses the embedded templates. The money formatter backs the
// amount/qty helpers so every view shares one locale/currency pairing.
func NewEngine(formatter *money.Formatter) (*Engine, error) {
	funcMap := template.FuncMap{
		"formatDate": func(t time.Time) string {
			if t.IsZero() {
				return ""
			}
			return t.Format("02 Jan 2006")
		},
		"amount": func(v float64) string {
			if formatter == nil {
				return fmt.Sprintf("%.2f", v)
			}
			return formatter.Amount(v)
		},
		"qty": func(v float64) string {
			if formatter == nil {
				return fmt.Sprintf("%g", v)
			}
			return formatter.Quantity(v)
		},
		"add": func(a, b int) int { return a + b },
		"sub": func(a, b int) int { return a - b },
	}
	tpl, err := template.New("root").Funcs(funcMap).ParseFS(web.Templates, "templates/layouts/*.html", "templates/partials/*.html", "templates/pages/*.html")
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
