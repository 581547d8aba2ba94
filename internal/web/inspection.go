package web

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/erazemk/pregled/internal/imaging"
	"github.com/erazemk/pregled/internal/qc"
)

type inspectionPage struct {
	PageData
	ID     string
	Single *qc.SessionView
	Bulk   *qc.BulkSessionView
}

// inspection is an open session of either kind.
type inspection struct {
	id     string
	single *qc.Session
	bulk   *qc.BulkSession
}

func (s *Server) lookup(w http.ResponseWriter, r *http.Request) (inspection, bool) {
	id := r.PathValue("id")
	reg := s.Dashboard.Sessions()
	if ss, ok := reg.Single(id); ok {
		return inspection{id: id, single: ss}, true
	}
	if b, ok := reg.Bulk(id); ok {
		return inspection{id: id, bulk: b}, true
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
	return inspection{}, false
}

func (s *Server) renderInspection(w http.ResponseWriter, r *http.Request, in inspection, errMsg string) {
	page := &inspectionPage{
		PageData: PageData{
			Title: "Pregled",
			User:  GetWebClaims(r.Context()),
			Error: errMsg,
		},
		ID: in.id,
	}
	if in.single != nil {
		v := in.single.View()
		page.Single = &v
		page.Title = "Pregled: " + v.Item.ToolName
	} else {
		v := in.bulk.View()
		page.Bulk = &v
		page.Title = "Skupinski pregled: " + v.Category
	}
	s.Templates.Render(w, "inspection.html", page)
}

// InspectionPage handles GET /inspections/{id}.
func (s *Server) InspectionPage(w http.ResponseWriter, r *http.Request) {
	in, ok := s.lookup(w, r)
	if !ok {
		return
	}
	s.renderInspection(w, r, in, "")
}

// ResultsSubmit handles POST /inspections/{id}/results. Checkbox
// pass:<criterion> (or pass:<item>:<criterion> in bulk) marks a criterion
// passed; notes:<criterion> holds per-criterion notes; notes holds the
// inspection notes.
func (s *Server) ResultsSubmit(w http.ResponseWriter, r *http.Request) {
	in, ok := s.lookup(w, r)
	if !ok {
		return
	}
	if err := r.ParseForm(); err != nil {
		s.renderInspection(w, r, in, "Neveljaven obrazec.")
		return
	}

	if err := applyForm(in, r); err != nil {
		s.renderInspection(w, r, in, sessionMessage(err))
		return
	}
	if r.PostForm.Get("review") != "" {
		var err error
		if in.single != nil {
			err = in.single.Review()
		} else {
			err = in.bulk.Review()
		}
		if err != nil {
			s.renderInspection(w, r, in, sessionMessage(err))
			return
		}
	}
	http.Redirect(w, r, "/inspections/"+in.id, http.StatusSeeOther)
}

func applyForm(in inspection, r *http.Request) error {
	form := r.PostForm
	notes := form.Get("notes")

	if in.single != nil {
		for _, c := range in.single.View().Checklist {
			passed := form.Get("pass:"+c.ID) != ""
			criterionNotes := form.Get("notes:" + c.ID)
			if err := in.single.SetResult(c.ID, qc.Patch{Passed: &passed, Notes: &criterionNotes}); err != nil {
				return err
			}
		}
		return in.single.SetNotes(notes)
	}

	v := in.bulk.View()
	for _, it := range v.Items {
		for _, c := range v.Checklist {
			passed := form.Get("pass:"+it.Item.ID+":"+c.ID) != ""
			if err := in.bulk.SetItemResult(it.Item.ID, c.ID, qc.Patch{Passed: &passed}); err != nil {
				return err
			}
		}
	}
	return in.bulk.SetNotes(notes)
}

// ApplySubmit handles POST /inspections/{id}/apply with criterion and
// passed fields, setting the criterion on every item of a bulk inspection.
func (s *Server) ApplySubmit(w http.ResponseWriter, r *http.Request) {
	in, ok := s.lookup(w, r)
	if !ok {
		return
	}
	if in.bulk == nil {
		http.Error(w, "not a bulk inspection", http.StatusBadRequest)
		return
	}

	passed := r.FormValue("passed") == "1"
	if err := in.bulk.ApplyToAll(r.FormValue("criterion"), passed); err != nil {
		s.renderInspection(w, r, in, sessionMessage(err))
		return
	}
	http.Redirect(w, r, "/inspections/"+in.id, http.StatusSeeOther)
}

// PhotoSubmit handles POST /inspections/{id}/photos.
func (s *Server) PhotoSubmit(w http.ResponseWriter, r *http.Request) {
	in, ok := s.lookup(w, r)
	if !ok {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, imaging.MaxUploadBytes+1<<20)
	if err := r.ParseMultipartForm(imaging.MaxUploadBytes); err != nil {
		s.renderInspection(w, r, in, "Fotografija je prevelika ali obrazec ni veljaven.")
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		s.renderInspection(w, r, in, "Izberite fotografijo.")
		return
	}
	defer file.Close()

	criterion := r.FormValue("criterion")
	if in.single != nil {
		_, err = in.single.AttachPhoto(r.Context(), criterion, header.Filename, file)
	} else {
		_, err = in.bulk.AttachItemPhoto(r.Context(), r.FormValue("item_id"), criterion, header.Filename, file)
	}
	if err != nil {
		slog.Warn("photo upload failed", "session", in.id, "criterion", criterion, "error", err)
		s.renderInspection(w, r, in, sessionMessage(err))
		return
	}
	http.Redirect(w, r, "/inspections/"+in.id, http.StatusSeeOther)
}

// InspectionSubmit handles POST /inspections/{id}/submit.
func (s *Server) InspectionSubmit(w http.ResponseWriter, r *http.Request) {
	in, ok := s.lookup(w, r)
	if !ok {
		return
	}

	var err error
	if in.single != nil {
		_, err = in.single.Submit(r.Context())
	} else {
		_, err = in.bulk.SubmitAll(r.Context())
	}
	if err != nil {
		s.renderInspection(w, r, in, sessionMessage(err))
		return
	}
	http.Redirect(w, r, "/?done="+in.id, http.StatusSeeOther)
}

// InspectionCancel handles POST /inspections/{id}/cancel.
func (s *Server) InspectionCancel(w http.ResponseWriter, r *http.Request) {
	if err := s.Dashboard.Sessions().Cancel(r.PathValue("id")); err != nil && !errors.Is(err, qc.ErrSessionNotFound) {
		slog.Warn("failed to cancel inspection", "session", r.PathValue("id"), "error", err)
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// sessionMessage turns an inspection error into a user-facing message.
func sessionMessage(err error) string {
	var subErr *qc.SubmissionError
	switch {
	case errors.Is(err, qc.ErrMissingPhoto):
		return "Naložite obvezne fotografije za neustrezne točke."
	case errors.Is(err, qc.ErrEmptySelection):
		return "Izberite vsaj en izdelek za skupinski pregled."
	case errors.Is(err, qc.ErrUnknownCriterion), errors.Is(err, qc.ErrUnknownItem):
		return "Točka ni del tega pregleda."
	case errors.Is(err, qc.ErrSessionClosed):
		return "Pregled je že zaključen."
	case errors.Is(err, qc.ErrSubmitting):
		return "Pregled se že shranjuje."
	case errors.Is(err, imaging.ErrTooLarge):
		return "Fotografija je prevelika."
	case errors.Is(err, imaging.ErrUnsupported):
		return "Podprti so le JPEG in PNG."
	case errors.As(err, &subErr):
		return "Shranjevanje ni uspelo, poskusite znova."
	}
	return "Napaka: " + strings.TrimSpace(err.Error())
}
