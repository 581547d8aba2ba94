package web

import (
	"database/sql"
	"fmt"
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/erazemk/pregled/internal/auth"
	"github.com/erazemk/pregled/internal/model"
	"github.com/erazemk/pregled/internal/qc"
	"github.com/erazemk/pregled/internal/store"
	webembed "github.com/erazemk/pregled/web"
)

// Templates holds parsed HTML templates.
type Templates struct {
	templates map[string]*template.Template
}

// FuncMap returns the template function map.
func FuncMap() template.FuncMap {
	return template.FuncMap{
		"roleAtLeast": model.RoleAtLeast,
		"roleName": func(role string) string {
			switch role {
			case model.RoleAdmin:
				return "Administrator"
			case model.RoleManager:
				return "Vodja"
			case model.RoleInspector:
				return "Kontrolor"
			default:
				return role
			}
		},
		"statusName": func(status string) string {
			switch status {
			case model.QCStatusPending:
				return "Čaka na pregled"
			case model.QCStatusPassed, model.OverallPass:
				return "Brez napak"
			case model.QCStatusDamageFound:
				return "Poškodovano"
			case model.QCStatusDamageAssessment:
				return "Ocena škode"
			default:
				return status
			}
		},
		"actionName": func(action string) string {
			switch action {
			case model.ActivityCheckedOut:
				return "Izdaja"
			case model.ActivityReturned:
				return "Vračilo"
			default:
				return action
			}
		},
		"priorityName": func(p string) string {
			switch p {
			case model.PriorityHigh:
				return "Visoka"
			case model.PriorityMedium:
				return "Srednja"
			case model.PriorityLow:
				return "Nizka"
			default:
				return p
			}
		},
		"date": func(t time.Time) string {
			if t.IsZero() {
				return ""
			}
			return t.Local().Format("2. 1. 2006 15:04")
		},
		"day": func(t time.Time) string {
			return t.Format("2006-01-02")
		},
		"percent": func(v float64) string {
			return fmt.Sprintf("%.1f %%", v)
		},
		"minutes": func(v float64) string {
			return fmt.Sprintf("%.1f min", v)
		},
		"photoPath": func(url string) string {
			return "/photos/" + strings.TrimPrefix(url, store.PhotoURLPrefix)
		},
		"contains": func(list []string, s string) bool {
			return slices.Contains(list, s)
		},
	}
}

// LoadTemplates parses all page templates with the layout.
func LoadTemplates() (*Templates, error) {
	tfs := webembed.TemplatesFS()

	layoutBytes, err := fs.ReadFile(tfs, "layout.html")
	if err != nil {
		return nil, fmt.Errorf("reading layout template: %w", err)
	}

	pages := []string{
		"login.html",
		"dashboard.html",
		"inspection.html",
		"activity.html",
	}

	ts := &Templates{templates: make(map[string]*template.Template)}

	for _, page := range pages {
		pageBytes, err := fs.ReadFile(tfs, page)
		if err != nil {
			return nil, fmt.Errorf("reading template %s: %w", page, err)
		}

		tmpl := template.New(page).Funcs(FuncMap())
		tmpl, err = tmpl.Parse(string(layoutBytes))
		if err != nil {
			return nil, fmt.Errorf("parsing layout for %s: %w", page, err)
		}
		tmpl, err = tmpl.Parse(string(pageBytes))
		if err != nil {
			return nil, fmt.Errorf("parsing template %s: %w", page, err)
		}

		ts.templates[page] = tmpl
	}

	return ts, nil
}

// Render renders a template with the given data.
func (ts *Templates) Render(w http.ResponseWriter, name string, data any) {
	tmpl, ok := ts.templates[name]
	if !ok {
		http.Error(w, "template not found", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := tmpl.ExecuteTemplate(w, "layout", data); err != nil {
		slog.Error("failed to render template", "template", name, "error", err)
	}
}

// PageData is the base data passed to all templates.
type PageData struct {
	Title   string
	User    *auth.Claims
	Error   string
	Success string
	Next    string
}

// Server holds all dependencies for page handlers.
type Server struct {
	DB        *sql.DB
	Templates *Templates
	JWTSecret string
	Dashboard *qc.Dashboard
}
