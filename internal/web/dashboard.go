package web

import (
	"net/http"
	"time"

	"github.com/erazemk/pregled/internal/model"
	"github.com/erazemk/pregled/internal/qc"
	"github.com/erazemk/pregled/internal/store"
)

type dashboardPage struct {
	PageData
	qc.Snapshot
	From string
	To   string
}

// DashboardPage handles GET /. The optional from and to query parameters
// (YYYY-MM-DD) limit the statistics.
func (s *Server) DashboardPage(w http.ResponseWriter, r *http.Request) {
	s.renderDashboard(w, r, "", "")
}

func (s *Server) renderDashboard(w http.ResponseWriter, r *http.Request, errMsg, success string) {
	from, to := r.FormValue("from"), r.FormValue("to")
	dateRange, rangeErr := parseRange(from, to)
	if rangeErr != "" && errMsg == "" {
		errMsg = rangeErr
	}

	// Failures are kept as notices in the snapshot.
	_ = s.Dashboard.Load(r.Context(), dateRange)

	if success == "" && r.URL.Query().Get("done") != "" {
		success = "Pregled je shranjen."
	}

	s.Templates.Render(w, "dashboard.html", &dashboardPage{
		PageData: PageData{
			Title:   "Kontrola kakovosti",
			User:    GetWebClaims(r.Context()),
			Error:   errMsg,
			Success: success,
		},
		Snapshot: s.Dashboard.Snapshot(),
		From:     from,
		To:       to,
	})
}

// StartInspection handles POST /inspect with an item_id field.
func (s *Server) StartInspection(w http.ResponseWriter, r *http.Request) {
	item, err := store.GetQCItem(r.Context(), s.DB, r.FormValue("item_id"))
	if err != nil || item == nil || item.Status != model.QCStatusPending {
		s.renderDashboard(w, r, "Izdelek ne čaka na pregled.", "")
		return
	}

	id, _, err := s.Dashboard.StartSingle(r.Context(), *item)
	if err != nil {
		s.renderDashboard(w, r, "Kontrolnega seznama ni bilo mogoče naložiti: "+err.Error(), "")
		return
	}
	http.Redirect(w, r, "/inspections/"+id, http.StatusSeeOther)
}

// StartBulkInspection handles POST /inspect/bulk with repeated item_id
// fields.
func (s *Server) StartBulkInspection(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		s.renderDashboard(w, r, "Neveljaven obrazec.", "")
		return
	}

	items, err := store.GetQCItems(r.Context(), s.DB, r.PostForm["item_id"])
	if err != nil {
		s.renderDashboard(w, r, err.Error(), "")
		return
	}

	id, _, err := s.Dashboard.StartBulk(r.Context(), items)
	if err != nil {
		msg := "Kontrolnega seznama ni bilo mogoče naložiti: " + err.Error()
		if qc.IsValidation(err) {
			msg = "Izberite vsaj en izdelek za skupinski pregled."
		}
		s.renderDashboard(w, r, msg, "")
		return
	}
	http.Redirect(w, r, "/inspections/"+id, http.StatusSeeOther)
}

// parseRange reads an optional inclusive date range. The second value is a
// user-facing error message.
func parseRange(from, to string) (*model.DateRange, string) {
	if from == "" && to == "" {
		return nil, ""
	}
	f, err1 := time.Parse("2006-01-02", from)
	t, err2 := time.Parse("2006-01-02", to)
	if err1 != nil || err2 != nil || t.Before(f) {
		return nil, "Neveljavno časovno obdobje."
	}
	return &model.DateRange{From: f, To: t}, ""
}
