package qc

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/erazemk/pregled/internal/model"
)

// MajorityCategory returns the category shared by the most items. Ties go
// to the category seen first in the selection.
func MajorityCategory(items []model.QCItem) string {
	counts := make(map[string]int)
	var order []string
	for _, it := range items {
		if counts[it.Category] == 0 {
			order = append(order, it.Category)
		}
		counts[it.Category]++
	}

	best, bestCount := "", 0
	for _, cat := range order {
		if counts[cat] > bestCount {
			best, bestCount = cat, counts[cat]
		}
	}
	return best
}

// BulkSession inspects several items against one shared checklist.
type BulkSession struct {
	deps      Deps
	items     []model.QCItem
	category  string
	checklist *checklist
	startedAt time.Time

	mu        sync.Mutex
	lc        lifecycle
	results   map[string]resultSet
	uploading map[string]bool
	notes     string
}

// NewBulkSession resolves the checklist of the majority category and seeds
// an independent result set for every item, including items of other
// categories.
func NewBulkSession(ctx context.Context, deps Deps, items []model.QCItem) (*BulkSession, error) {
	if len(items) == 0 {
		return nil, ErrEmptySelection
	}

	category := MajorityCategory(items)
	criteria, err := deps.Resolver.Checklist(ctx, category)
	if err != nil {
		return nil, err
	}
	c := newChecklist(criteria)

	selected := make([]model.QCItem, 0, len(items))
	results := make(map[string]resultSet, len(items))
	for _, it := range items {
		if _, dup := results[it.ID]; dup {
			continue
		}
		selected = append(selected, it)
		results[it.ID] = c.seed()
	}

	return &BulkSession{
		deps:      deps,
		items:     selected,
		category:  category,
		checklist: c,
		startedAt: deps.now(),
		lc:        lifecycle{state: StateCollecting},
		results:   results,
		uploading: make(map[string]bool),
	}, nil
}

// Category returns the category whose checklist applies to every item.
func (b *BulkSession) Category() string {
	return b.category
}

// Items returns the selection in order.
func (b *BulkSession) Items() []model.QCItem {
	return append([]model.QCItem(nil), b.items...)
}

// StartedAt returns when the session was initialized.
func (b *BulkSession) StartedAt() time.Time {
	return b.startedAt
}

// State returns the current lifecycle state.
func (b *BulkSession) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.lc.state
}

// ApplyToAll sets passed for one criterion on every item, overwriting any
// per-item value.
func (b *BulkSession) ApplyToAll(checklistItemID string, passed bool) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.lc.edit(); err != nil {
		return err
	}
	p := Patch{Passed: &passed}
	for _, rs := range b.results {
		rs.patch(b.checklist, checklistItemID, p)
	}
	return nil
}

// SetItemResult merges a patch into one item's result. Unknown items and
// criteria are ignored.
func (b *BulkSession) SetItemResult(itemID, checklistItemID string, p Patch) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.lc.edit(); err != nil {
		return err
	}
	if rs, ok := b.results[itemID]; ok {
		rs.patch(b.checklist, checklistItemID, p)
	}
	return nil
}

// SetNotes replaces the notes shared by every item.
func (b *BulkSession) SetNotes(notes string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.lc.edit(); err != nil {
		return err
	}
	b.notes = notes
	return nil
}

// AttachItemPhoto uploads photo evidence for one item's criterion.
func (b *BulkSession) AttachItemPhoto(ctx context.Context, itemID, checklistItemID, filename string, r io.Reader) (string, error) {
	key := itemID + "/" + checklistItemID

	b.mu.Lock()
	if b.lc.state.Closed() {
		b.mu.Unlock()
		return "", ErrSessionClosed
	}
	if _, ok := b.results[itemID]; !ok {
		b.mu.Unlock()
		return "", ErrUnknownItem
	}
	if !b.checklist.has(checklistItemID) {
		b.mu.Unlock()
		return "", ErrUnknownCriterion
	}
	if err := b.lc.edit(); err != nil {
		b.mu.Unlock()
		return "", err
	}
	b.uploading[key] = true
	b.mu.Unlock()

	url, err := b.deps.Photos.UploadPhoto(ctx, itemID, checklistItemID, filename, r)

	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.uploading, key)
	if err != nil {
		return "", fmt.Errorf("uploading photo for %s: %w", key, err)
	}
	if err := b.lc.edit(); err != nil {
		return "", err
	}
	b.results[itemID].patch(b.checklist, checklistItemID, Patch{PhotoURL: &url})
	return url, nil
}

// ItemStatus derives the overall status of one item. The second value is
// false for items outside the selection.
func (b *BulkSession) ItemStatus(itemID string) (string, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	rs, ok := b.results[itemID]
	if !ok {
		return "", false
	}
	return rs.status(), true
}

// BulkSummary counts items by derived status.
type BulkSummary struct {
	Total       int `json:"total"`
	Passed      int `json:"passed"`
	DamageFound int `json:"damage_found"`
}

// Summary counts passing and damaged items.
func (b *BulkSession) Summary() BulkSummary {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.summary()
}

func (b *BulkSession) summary() BulkSummary {
	s := BulkSummary{Total: len(b.items)}
	for _, it := range b.items {
		if b.results[it.ID].status() == model.OverallPass {
			s.Passed++
		} else {
			s.DamageFound++
		}
	}
	return s
}

// MissingPhotos lists, per item, failed criteria that require a photo and
// have none. Submission is not blocked by them.
func (b *BulkSession) MissingPhotos() map[string][]string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.missingPhotos()
}

func (b *BulkSession) missingPhotos() map[string][]string {
	out := make(map[string][]string)
	for _, it := range b.items {
		if m := b.results[it.ID].missingPhotos(b.checklist); len(m) > 0 {
			out[it.ID] = m
		}
	}
	return out
}

// Review moves the session from collecting to reviewing.
func (b *BulkSession) Review() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.lc.review()
}

// Cancel closes the session without submitting.
func (b *BulkSession) Cancel() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.lc.cancel()
}

// SubmitAll builds one result per item, all sharing the notes, and submits
// them as a single batch. The outcome of each item is returned in
// selection order.
func (b *BulkSession) SubmitAll(ctx context.Context) ([]Outcome, error) {
	inspector, err := b.deps.Identity.CurrentInspectorID(ctx)
	if err != nil {
		return nil, fmt.Errorf("resolving inspector: %w", err)
	}

	b.mu.Lock()
	if err := b.lc.beginSubmit(); err != nil {
		b.mu.Unlock()
		return nil, err
	}
	now := b.deps.now()
	batch := make([]model.Result, len(b.items))
	for i, it := range b.items {
		batch[i] = buildResult(it.ID, b.results[it.ID], b.notes, inspector, b.startedAt, now)
	}
	b.mu.Unlock()

	outcomes, err := b.deps.Gateway.SubmitBatch(ctx, batch)

	b.mu.Lock()
	b.lc.finishSubmit(err)
	b.mu.Unlock()
	if err != nil {
		return outcomes, err
	}

	if b.deps.OnComplete != nil {
		b.deps.OnComplete(ctx)
	}
	return outcomes, nil
}

// BulkItemView is one item of a bulk session snapshot.
type BulkItemView struct {
	Item          model.QCItem            `json:"item"`
	Results       []model.ChecklistResult `json:"results"`
	OverallStatus string                  `json:"overall_status"`
	MissingPhotos []string                `json:"missing_photos"`
}

// BulkSessionView is a snapshot of a bulk session for presentation.
type BulkSessionView struct {
	State     State                 `json:"state"`
	Category  string                `json:"category"`
	Checklist []model.ChecklistItem `json:"checklist"`
	Items     []BulkItemView        `json:"items"`
	Uploading []string              `json:"uploading"`
	Notes     string                `json:"notes,omitempty"`
	Summary   BulkSummary           `json:"summary"`
	StartedAt time.Time             `json:"started_at"`
	LastError string                `json:"last_error,omitempty"`
}

// View returns a snapshot of the session.
func (b *BulkSession) View() BulkSessionView {
	b.mu.Lock()
	defer b.mu.Unlock()

	items := make([]BulkItemView, len(b.items))
	for i, it := range b.items {
		rs := b.results[it.ID]
		items[i] = BulkItemView{
			Item:          it,
			Results:       rs.clone(),
			OverallStatus: rs.status(),
			MissingPhotos: nonNil(rs.missingPhotos(b.checklist)),
		}
	}
	return BulkSessionView{
		State:     b.lc.state,
		Category:  b.category,
		Checklist: append([]model.ChecklistItem(nil), b.checklist.items...),
		Items:     items,
		Uploading: sortedKeys(b.uploading),
		Notes:     b.notes,
		Summary:   b.summary(),
		StartedAt: b.startedAt,
		LastError: b.lc.lastError(),
	}
}
