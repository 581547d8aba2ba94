// Package qc implements the quality-control inspection workflow: resolving
// checklists, collecting per-criterion results for one or many returned
// tools, and submitting the finished results.
package qc

import (
	"context"
	"io"
	"time"

	"github.com/erazemk/pregled/internal/model"
)

// ChecklistSource returns the criteria of a category.
type ChecklistSource interface {
	Checklist(ctx context.Context, category string) ([]model.ChecklistItem, error)
}

// PendingSource lists items awaiting inspection.
type PendingSource interface {
	PendingItems(ctx context.Context) ([]model.QCItem, error)
}

// StatisticsSource aggregates past inspections.
type StatisticsSource interface {
	Statistics(ctx context.Context, dateRange *model.DateRange) (model.Statistics, error)
}

// PhotoStore stores photo evidence and returns a reference to it.
type PhotoStore interface {
	UploadPhoto(ctx context.Context, itemID, checklistItemID, filename string, r io.Reader) (string, error)
}

// ResultSink persists finished results.
type ResultSink interface {
	SubmitResult(ctx context.Context, result model.Result) error
	SubmitResults(ctx context.Context, results []model.Result) error
}

// IdentityProvider names the inspector signing a result.
type IdentityProvider interface {
	CurrentInspectorID(ctx context.Context) (string, error)
}

// IdentityFunc adapts a function to IdentityProvider.
type IdentityFunc func(ctx context.Context) (string, error)

// CurrentInspectorID calls f.
func (f IdentityFunc) CurrentInspectorID(ctx context.Context) (string, error) {
	return f(ctx)
}

// Deps are the collaborators of an inspection session.
type Deps struct {
	Resolver *Resolver
	Photos   PhotoStore
	Gateway  *Gateway
	Identity IdentityProvider

	// Now defaults to time.Now.
	Now func() time.Time

	// OnComplete, if set, runs once after a successful submission.
	OnComplete func(ctx context.Context)
}

func (d Deps) now() time.Time {
	if d.Now != nil {
		return d.Now()
	}
	return time.Now()
}

// Patch is a partial update of one checklist result. Nil fields are kept.
type Patch struct {
	Passed   *bool   `json:"passed,omitempty"`
	Notes    *string `json:"notes,omitempty"`
	PhotoURL *string `json:"photo_url,omitempty"`
}

func (p Patch) apply(r *model.ChecklistResult) {
	if p.Passed != nil {
		r.Passed = *p.Passed
	}
	if p.Notes != nil {
		r.Notes = *p.Notes
	}
	if p.PhotoURL != nil {
		r.PhotoURL = *p.PhotoURL
	}
}
