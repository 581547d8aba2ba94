package qc

import (
	"context"
	"fmt"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/erazemk/pregled/internal/model"
)

// Session is the inspection of a single item.
type Session struct {
	deps      Deps
	item      model.QCItem
	checklist *checklist
	startedAt time.Time

	mu        sync.Mutex
	lc        lifecycle
	results   resultSet
	uploading map[string]bool
	notes     string
}

// NewSession resolves the checklist for the item's category and seeds one
// unanswered result per criterion.
func NewSession(ctx context.Context, deps Deps, item model.QCItem) (*Session, error) {
	items, err := deps.Resolver.Checklist(ctx, item.Category)
	if err != nil {
		return nil, err
	}
	c := newChecklist(items)
	return &Session{
		deps:      deps,
		item:      item,
		checklist: c,
		startedAt: deps.now(),
		lc:        lifecycle{state: StateCollecting},
		results:   c.seed(),
		uploading: make(map[string]bool),
	}, nil
}

// Item returns the inspected item.
func (s *Session) Item() model.QCItem {
	return s.item
}

// StartedAt returns when the session was initialized.
func (s *Session) StartedAt() time.Time {
	return s.startedAt
}

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lc.state
}

// SetResult merges a patch into the result of a criterion. A criterion that
// is not in the checklist is ignored.
func (s *Session) SetResult(checklistItemID string, p Patch) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.lc.edit(); err != nil {
		return err
	}
	s.results.patch(s.checklist, checklistItemID, p)
	return nil
}

// SetNotes replaces the free-text notes of the inspection.
func (s *Session) SetNotes(notes string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.lc.edit(); err != nil {
		return err
	}
	s.notes = notes
	return nil
}

// AttachPhoto uploads photo evidence for a criterion and records its URL.
// The criterion shows as uploading meanwhile. Attaching counts as an edit:
// it is refused while submitting and reopens a failed session. If the
// session was closed or began submitting before the upload finished, the
// URL is discarded.
func (s *Session) AttachPhoto(ctx context.Context, checklistItemID, filename string, r io.Reader) (string, error) {
	s.mu.Lock()
	if s.lc.state.Closed() {
		s.mu.Unlock()
		return "", ErrSessionClosed
	}
	if !s.checklist.has(checklistItemID) {
		s.mu.Unlock()
		return "", ErrUnknownCriterion
	}
	if err := s.lc.edit(); err != nil {
		s.mu.Unlock()
		return "", err
	}
	s.uploading[checklistItemID] = true
	s.mu.Unlock()

	url, err := s.deps.Photos.UploadPhoto(ctx, s.item.ID, checklistItemID, filename, r)

	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.uploading, checklistItemID)
	if err != nil {
		return "", fmt.Errorf("uploading photo for %s: %w", checklistItemID, err)
	}
	if err := s.lc.edit(); err != nil {
		return "", err
	}
	s.results.patch(s.checklist, checklistItemID, Patch{PhotoURL: &url})
	return url, nil
}

// CanSubmit reports whether every failed criterion that requires a photo
// has one. Critical criteria are not treated differently.
func (s *Session) CanSubmit() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.results.missingPhotos(s.checklist)) == 0
}

// DeriveStatus returns damage-found if any criterion failed, pass otherwise.
func (s *Session) DeriveStatus() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.results.status()
}

// Review moves the session from collecting to reviewing.
func (s *Session) Review() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lc.review()
}

// Cancel closes the session without submitting.
func (s *Session) Cancel() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lc.cancel()
}

// Submit validates the results, stamps them with the current inspector and
// time, and hands them to the gateway. A failed submission leaves the
// session open so the inspector can submit again.
func (s *Session) Submit(ctx context.Context) (model.Result, error) {
	inspector, err := s.deps.Identity.CurrentInspectorID(ctx)
	if err != nil {
		return model.Result{}, fmt.Errorf("resolving inspector: %w", err)
	}

	s.mu.Lock()
	if s.lc.state.Closed() {
		s.mu.Unlock()
		return model.Result{}, ErrSessionClosed
	}
	if s.lc.state == StateSubmitting {
		s.mu.Unlock()
		return model.Result{}, ErrSubmitting
	}
	if missing := s.results.missingPhotos(s.checklist); len(missing) > 0 {
		s.mu.Unlock()
		return model.Result{}, fmt.Errorf("%w: %v", ErrMissingPhoto, missing)
	}
	result := buildResult(s.item.ID, s.results, s.notes, inspector, s.startedAt, s.deps.now())
	if err := s.lc.beginSubmit(); err != nil {
		s.mu.Unlock()
		return model.Result{}, err
	}
	s.mu.Unlock()

	err = s.deps.Gateway.SubmitOne(ctx, result)

	s.mu.Lock()
	s.lc.finishSubmit(err)
	s.mu.Unlock()
	if err != nil {
		return result, err
	}

	if s.deps.OnComplete != nil {
		s.deps.OnComplete(ctx)
	}
	return result, nil
}

// SessionView is a snapshot of a single-item session for presentation.
type SessionView struct {
	State         State                   `json:"state"`
	Item          model.QCItem            `json:"item"`
	Checklist     []model.ChecklistItem   `json:"checklist"`
	Results       []model.ChecklistResult `json:"results"`
	Uploading     []string                `json:"uploading"`
	MissingPhotos []string                `json:"missing_photos"`
	Notes         string                  `json:"notes,omitempty"`
	OverallStatus string                  `json:"overall_status"`
	CanSubmit     bool                    `json:"can_submit"`
	StartedAt     time.Time               `json:"started_at"`
	LastError     string                  `json:"last_error,omitempty"`
}

// View returns a snapshot of the session.
func (s *Session) View() SessionView {
	s.mu.Lock()
	defer s.mu.Unlock()

	missing := s.results.missingPhotos(s.checklist)
	return SessionView{
		State:         s.lc.state,
		Item:          s.item,
		Checklist:     append([]model.ChecklistItem(nil), s.checklist.items...),
		Results:       s.results.clone(),
		Uploading:     sortedKeys(s.uploading),
		MissingPhotos: nonNil(missing),
		Notes:         s.notes,
		OverallStatus: s.results.status(),
		CanSubmit:     len(missing) == 0,
		StartedAt:     s.startedAt,
		LastError:     s.lc.lastError(),
	}
}

// buildResult assembles the submission of one item.
func buildResult(itemID string, rs resultSet, notes, inspector string, started, now time.Time) model.Result {
	results := rs.clone()
	startedAt := started
	return model.Result{
		ItemID:           itemID,
		ChecklistResults: results,
		OverallStatus:    model.OverallStatus(results),
		InspectorID:      inspector,
		InspectionDate:   now,
		StartedAt:        &startedAt,
		Notes:            notes,
		Photos:           model.PhotoURLs(results),
	}
}

func sortedKeys(m map[string]bool) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
