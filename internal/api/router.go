package api

import (
	"database/sql"
	"net/http"

	"github.com/erazemk/pregled/internal/model"
	"github.com/erazemk/pregled/internal/qc"
	"github.com/erazemk/pregled/internal/store"
)

// Services are the QC components the API drives.
type Services struct {
	Backend   *store.Backend
	Resolver  *qc.Resolver
	Gateway   *qc.Gateway
	Dashboard *qc.Dashboard
}

// NewRouter creates the API router with all endpoints registered.
func NewRouter(db *sql.DB, jwtSecret string, svc Services) http.Handler {
	mux := http.NewServeMux()

	authHandler := &AuthHandler{DB: db, JWTSecret: jwtSecret}
	usersHandler := &UsersHandler{DB: db}
	qcHandler := &QCHandler{
		DB:        db,
		Backend:   svc.Backend,
		Resolver:  svc.Resolver,
		Gateway:   svc.Gateway,
		Dashboard: svc.Dashboard,
	}
	sessions := &SessionsHandler{DB: db, Dashboard: svc.Dashboard}
	tools := &ToolsHandler{DB: db, Dashboard: svc.Dashboard}

	authMW := AuthMiddleware(jwtSecret, db)
	requireAdmin := RequireRole(model.RoleAdmin)
	requireManager := RequireRole(model.RoleManager)
	authed := func(h http.HandlerFunc) http.Handler { return authMW(h) }

	// Public: login.
	mux.HandleFunc("POST /api/auth/login", authHandler.Login)

	// Authenticated routes.
	mux.Handle("GET /api/auth/me", authed(authHandler.Me))
	mux.Handle("PUT /api/auth/password", authed(authHandler.ChangePassword))
	mux.Handle("POST /api/auth/logout", authed(authHandler.Logout))

	// Users (admin only).
	mux.Handle("GET /api/users", authMW(requireAdmin(http.HandlerFunc(usersHandler.List))))
	mux.Handle("POST /api/users", authMW(requireAdmin(http.HandlerFunc(usersHandler.Create))))
	mux.Handle("PUT /api/users/{id}/role", authMW(requireAdmin(http.HandlerFunc(usersHandler.SetRole))))
	mux.Handle("DELETE /api/users/{id}", authMW(requireAdmin(http.HandlerFunc(usersHandler.Delete))))

	// Tool register (all roles read; manager+ changes and moves tools).
	mux.Handle("GET /api/tools", authed(tools.List))
	mux.Handle("POST /api/tools", authMW(requireManager(http.HandlerFunc(tools.Create))))
	mux.Handle("GET /api/tools/{id}", authed(tools.Get))
	mux.Handle("PUT /api/tools/{id}", authMW(requireManager(http.HandlerFunc(tools.Update))))
	mux.Handle("DELETE /api/tools/{id}", authMW(requireManager(http.HandlerFunc(tools.Delete))))
	mux.Handle("POST /api/tools/{id}/checkout", authMW(requireManager(http.HandlerFunc(tools.Checkout))))
	mux.Handle("POST /api/tools/{id}/return", authMW(requireManager(http.HandlerFunc(tools.Return))))
	mux.Handle("GET /api/transfers", authed(tools.Transfers))
	mux.Handle("GET /api/activity", authed(tools.Activity))

	// QC queue and reference data (all roles); registering items is manager+.
	mux.Handle("GET /api/qc/pending", authed(qcHandler.Pending))
	mux.Handle("POST /api/qc/items", authMW(requireManager(http.HandlerFunc(qcHandler.CreateItem))))
	mux.Handle("GET /api/qc/items/{id}", authed(qcHandler.GetItem))
	mux.Handle("GET /api/qc/items/{id}/result", authed(qcHandler.ItemResult))
	mux.Handle("GET /api/qc/categories", authed(qcHandler.Categories))
	mux.Handle("GET /api/qc/checklist/{category}", authed(qcHandler.Checklist))
	mux.Handle("GET /api/qc/statistics", authed(qcHandler.Statistics))
	mux.Handle("GET /api/qc/history", authed(qcHandler.History))

	// Direct submission.
	mux.Handle("POST /api/qc/results", authed(qcHandler.SubmitResult))
	mux.Handle("GET /api/qc/results/{id}", authed(qcHandler.GetResult))
	mux.Handle("POST /api/qc/bulk-results", authed(qcHandler.SubmitBulkResults))
	mux.Handle("POST /api/qc/upload-photo", authed(qcHandler.UploadPhoto))
	mux.Handle("GET /api/qc/photos/{id}", authed(qcHandler.GetPhoto))

	// Inspection sessions.
	mux.Handle("POST /api/qc/sessions", authed(sessions.Start))
	mux.Handle("POST /api/qc/sessions/bulk", authed(sessions.StartBulk))
	mux.Handle("GET /api/qc/sessions/{id}", authed(sessions.Get))
	mux.Handle("DELETE /api/qc/sessions/{id}", authed(sessions.Cancel))
	mux.Handle("PATCH /api/qc/sessions/{id}/results/{checklistItemId}", authed(sessions.SetResult))
	mux.Handle("PATCH /api/qc/sessions/{id}/items/{itemId}/results/{checklistItemId}", authed(sessions.SetItemResult))
	mux.Handle("POST /api/qc/sessions/{id}/apply/{checklistItemId}", authed(sessions.ApplyToAll))
	mux.Handle("PUT /api/qc/sessions/{id}/notes", authed(sessions.SetNotes))
	mux.Handle("POST /api/qc/sessions/{id}/photos/{checklistItemId}", authed(sessions.UploadPhoto))
	mux.Handle("POST /api/qc/sessions/{id}/review", authed(sessions.Review))
	mux.Handle("POST /api/qc/sessions/{id}/submit", authed(sessions.Submit))

	// Damage assessments (manager+).
	mux.Handle("POST /api/qc/damage-assessments", authMW(requireManager(http.HandlerFunc(qcHandler.CreateDamageAssessment))))
	mux.Handle("GET /api/qc/damage-assessments", authed(qcHandler.ListDamageAssessments))

	return mux
}

// NewServices wires the QC components over db.
func NewServices(db *sql.DB, identity qc.IdentityProvider) Services {
	backend := store.NewBackend(db)
	resolver := qc.NewResolver(backend)
	gateway := qc.NewGateway(backend)
	dashboard := qc.NewDashboard(backend, backend, qc.Deps{
		Resolver: resolver,
		Photos:   backend,
		Gateway:  gateway,
		Identity: identity,
	})
	return Services{
		Backend:   backend,
		Resolver:  resolver,
		Gateway:   gateway,
		Dashboard: dashboard,
	}
}
