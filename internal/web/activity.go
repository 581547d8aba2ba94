package web

import (
	"log/slog"
	"net/http"

	"github.com/erazemk/pregled/internal/model"
	"github.com/erazemk/pregled/internal/store"
)

type activityPage struct {
	PageData
	Activity []model.Activity
	Actions  []string
	Action   string
	Search   string
	From     string
	To       string
}

// ActivityPage handles GET /activity: the tool checkout and return log,
// filtered by the optional action, q, from and to parameters.
func (s *Server) ActivityPage(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page := &activityPage{
		PageData: PageData{Title: "Dejavnost", User: GetWebClaims(r.Context())},
		Actions:  []string{model.ActivityCheckedOut, model.ActivityReturned},
		Action:   q.Get("action"),
		Search:   q.Get("q"),
		From:     q.Get("from"),
		To:       q.Get("to"),
	}

	dateRange, rangeErr := parseRange(page.From, page.To)
	if rangeErr != "" {
		page.Error = rangeErr
	}

	activity, err := store.ListActivity(r.Context(), s.DB, model.ActivityFilter{
		Action: page.Action,
		Search: page.Search,
		Range:  dateRange,
	})
	if err != nil {
		slog.Error("failed to list activity", "error", err)
		page.Error = "Dejavnosti ni bilo mogoče naložiti."
	}
	page.Activity = activity

	s.Templates.Render(w, "activity.html", page)
}
