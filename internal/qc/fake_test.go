package qc

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"testing"
	"time"

	"go.uber.org/goleak"

	"github.com/erazemk/pregled/internal/model"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

var errBackend = errors.New("backend unavailable")

var powerTools = []model.ChecklistItem{
	{ID: "pt-001", Category: "Power Tools", Description: "Check power cord and plug for damage", RequiresPhoto: true, IsCritical: true},
	{ID: "pt-002", Category: "Power Tools", Description: "Test motor operation and unusual noises", IsCritical: true},
	{ID: "pt-003", Category: "Power Tools", Description: "Inspect housing for cracks or damage", RequiresPhoto: true, IsCritical: true},
	{ID: "pt-004", Category: "Power Tools", Description: "Check safety guards and switches", IsCritical: true},
	{ID: "pt-005", Category: "Power Tools", Description: "Verify all labels and warnings are intact"},
}

var safetyEquipment = []model.ChecklistItem{
	{ID: "se-001", Category: "Safety Equipment", Description: "Inspect for cuts, tears, or fraying", RequiresPhoto: true, IsCritical: true},
	{ID: "se-002", Category: "Safety Equipment", Description: "Check hardware (buckles, D-rings, etc.)", RequiresPhoto: true, IsCritical: true},
	{ID: "se-003", Category: "Safety Equipment", Description: "Verify certification tags and dates", IsCritical: true},
	{ID: "se-004", Category: "Safety Equipment", Description: "Test all adjustment mechanisms", IsCritical: true},
	{ID: "se-005", Category: "Safety Equipment", Description: "Check for proper cleaning and sanitization"},
}

// fakeBackend implements every source and sink in memory.
type fakeBackend struct {
	mu sync.Mutex

	checklists   map[string][]model.ChecklistItem
	checklistErr error
	fetches      int

	pending    []model.QCItem
	pendingErr error

	stats      model.Statistics
	statsErr   error
	statsRange *model.DateRange

	uploadErr     error
	uploadStarted chan struct{}
	uploadRelease chan struct{}
	uploads       int

	submitErr     error
	submitStarted chan struct{}
	submitRelease chan struct{}
	submitted     []model.Result
	batches       int
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		checklists: map[string][]model.ChecklistItem{
			"Power Tools":      powerTools,
			"Safety Equipment": safetyEquipment,
		},
	}
}

func (f *fakeBackend) Checklist(ctx context.Context, category string) ([]model.ChecklistItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fetches++
	if f.checklistErr != nil {
		return nil, f.checklistErr
	}
	items, ok := f.checklists[category]
	if !ok {
		return []model.ChecklistItem{}, nil
	}
	return items, nil
}

func (f *fakeBackend) PendingItems(ctx context.Context) ([]model.QCItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.pendingErr != nil {
		return nil, f.pendingErr
	}
	return append([]model.QCItem{}, f.pending...), nil
}

func (f *fakeBackend) Statistics(ctx context.Context, dateRange *model.DateRange) (model.Statistics, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.statsRange = dateRange
	if f.statsErr != nil {
		return model.Statistics{}, f.statsErr
	}
	return f.stats, nil
}

func (f *fakeBackend) UploadPhoto(ctx context.Context, itemID, checklistItemID, filename string, r io.Reader) (string, error) {
	if f.uploadStarted != nil {
		f.uploadStarted <- struct{}{}
	}
	if f.uploadRelease != nil {
		<-f.uploadRelease
	}
	if _, err := io.Copy(io.Discard, r); err != nil {
		return "", err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.uploadErr != nil {
		return "", f.uploadErr
	}
	f.uploads++
	return fmt.Sprintf("/api/qc/photos/%s-%s-%d", itemID, checklistItemID, f.uploads), nil
}

func (f *fakeBackend) SubmitResult(ctx context.Context, result model.Result) error {
	return f.SubmitResults(ctx, []model.Result{result})
}

func (f *fakeBackend) SubmitResults(ctx context.Context, results []model.Result) error {
	if f.submitStarted != nil {
		f.submitStarted <- struct{}{}
	}
	if f.submitRelease != nil {
		<-f.submitRelease
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.batches++
	if f.submitErr != nil {
		return f.submitErr
	}
	f.submitted = append(f.submitted, results...)
	return nil
}

func (f *fakeBackend) setSubmitErr(err error) {
	f.mu.Lock()
	f.submitErr = err
	f.mu.Unlock()
}

// testDeps wires deps to the fake with a fixed inspector and a clock that
// advances one minute per call.
func testDeps(f *fakeBackend) Deps {
	var mu sync.Mutex
	clock := time.Date(2025, 3, 14, 9, 0, 0, 0, time.UTC)
	return Deps{
		Resolver: NewResolver(f),
		Photos:   f,
		Gateway:  NewGateway(f),
		Identity: IdentityFunc(func(ctx context.Context) (string, error) {
			return "inspector-7", nil
		}),
		Now: func() time.Time {
			mu.Lock()
			defer mu.Unlock()
			clock = clock.Add(time.Minute)
			return clock
		},
	}
}

func qcItem(id, category string) model.QCItem {
	return model.QCItem{
		ID:         id,
		ToolID:     "tool-" + id,
		ToolName:   "Tool " + id,
		ReturnDate: time.Date(2025, 3, 13, 0, 0, 0, 0, time.UTC),
		Category:   category,
		Status:     model.QCStatusPending,
		Priority:   model.PriorityMedium,
	}
}

func ptr[T any](v T) *T {
	return &v
}
