package qc

import (
	"context"
	"fmt"

	"github.com/erazemk/pregled/internal/model"
)

// Resolver looks up the checklist that applies to a category.
type Resolver struct {
	source ChecklistSource
}

// NewResolver returns a Resolver reading from source.
func NewResolver(source ChecklistSource) *Resolver {
	return &Resolver{source: source}
}

// Checklist returns the ordered criteria of a category. An unknown category
// yields an empty checklist, not an error; errors are fetch failures. The
// returned slice is owned by the caller.
func (r *Resolver) Checklist(ctx context.Context, category string) ([]model.ChecklistItem, error) {
	items, err := r.source.Checklist(ctx, category)
	if err != nil {
		return nil, fmt.Errorf("fetching checklist for %q: %w", category, err)
	}
	out := make([]model.ChecklistItem, len(items))
	copy(out, items)
	return out, nil
}
