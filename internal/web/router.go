package web

import (
	"database/sql"
	"log/slog"
	"net/http"

	"github.com/erazemk/pregled/internal/qc"
	"github.com/erazemk/pregled/internal/store"
	webembed "github.com/erazemk/pregled/web"
)

// NewRouter creates the web page router with all page routes registered.
func NewRouter(db *sql.DB, jwtSecret string, dashboard *qc.Dashboard) (http.Handler, error) {
	templates, err := LoadTemplates()
	if err != nil {
		return nil, err
	}

	s := &Server{
		DB:        db,
		Templates: templates,
		JWTSecret: jwtSecret,
		Dashboard: dashboard,
	}

	mux := http.NewServeMux()
	cookieAuth := CookieAuthMiddleware(jwtSecret, db)
	authed := func(h http.HandlerFunc) http.Handler { return cookieAuth(h) }

	// Static assets.
	mux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServer(http.FS(webembed.StaticFS()))))

	// Public routes.
	mux.HandleFunc("GET /login", s.LoginPage)
	mux.HandleFunc("POST /login", s.LoginSubmit)
	mux.HandleFunc("POST /logout", s.Logout)

	// Authenticated routes.
	mux.Handle("GET /{$}", authed(s.DashboardPage))
	mux.Handle("GET /activity", authed(s.ActivityPage))
	mux.Handle("POST /inspect", authed(s.StartInspection))
	mux.Handle("POST /inspect/bulk", authed(s.StartBulkInspection))

	mux.Handle("GET /inspections/{id}", authed(s.InspectionPage))
	mux.Handle("POST /inspections/{id}/results", authed(s.ResultsSubmit))
	mux.Handle("POST /inspections/{id}/apply", authed(s.ApplySubmit))
	mux.Handle("POST /inspections/{id}/photos", authed(s.PhotoSubmit))
	mux.Handle("POST /inspections/{id}/submit", authed(s.InspectionSubmit))
	mux.Handle("POST /inspections/{id}/cancel", authed(s.InspectionCancel))

	mux.Handle("GET /photos/{id}", authed(s.PhotoGet))

	return mux, nil
}

// PhotoGet handles GET /photos/{id} (web route, cookie-authenticated).
func (s *Server) PhotoGet(w http.ResponseWriter, r *http.Request) {
	data, mime, err := store.GetPhoto(r.Context(), s.DB, r.PathValue("id"))
	if err != nil {
		slog.Error("failed to get photo", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	if data == nil {
		http.NotFound(w, r)
		return
	}

	w.Header().Set("Content-Type", mime)
	w.Header().Set("Content-Disposition", "inline")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.Header().Set("Cache-Control", "private, max-age=86400, immutable")
	if _, err := w.Write(data); err != nil {
		slog.Error("failed to write photo response", "error", err)
	}
}
