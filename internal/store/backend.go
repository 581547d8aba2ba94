package store

import (
	"context"
	"database/sql"
	"fmt"
	"io"

	"github.com/erazemk/pregled/internal/imaging"
	"github.com/erazemk/pregled/internal/model"
)

// Backend exposes the database through the boundaries the QC workflow
// consumes: checklists, pending items, statistics, photos and results.
type Backend struct {
	DB *sql.DB
}

// NewBackend returns a Backend over db.
func NewBackend(db *sql.DB) *Backend {
	return &Backend{DB: db}
}

// Checklist returns the criteria for a category.
func (b *Backend) Checklist(ctx context.Context, category string) ([]model.ChecklistItem, error) {
	return GetChecklist(ctx, b.DB, category)
}

// PendingItems returns items awaiting inspection.
func (b *Backend) PendingItems(ctx context.Context) ([]model.QCItem, error) {
	items, err := ListPendingItems(ctx, b.DB)
	if items == nil && err == nil {
		items = []model.QCItem{}
	}
	return items, err
}

// Statistics aggregates results in an optional date range.
func (b *Backend) Statistics(ctx context.Context, dateRange *model.DateRange) (model.Statistics, error) {
	return GetStatistics(ctx, b.DB, dateRange)
}

// UploadPhoto validates and compresses photo evidence, stores it and
// returns the URL it is served from.
func (b *Backend) UploadPhoto(ctx context.Context, itemID, checklistItemID, filename string, r io.Reader) (string, error) {
	processed, err := imaging.Process(r)
	if err != nil {
		return "", fmt.Errorf("processing photo: %w", err)
	}
	id, err := SavePhoto(ctx, b.DB, itemID, checklistItemID, filename, processed.Data, processed.MIME)
	if err != nil {
		return "", err
	}
	return PhotoURLPrefix + id, nil
}

// SubmitResult stores one result.
func (b *Backend) SubmitResult(ctx context.Context, result model.Result) error {
	_, err := SaveResults(ctx, b.DB, []model.Result{result})
	return err
}

// SubmitResults stores a batch of results atomically.
func (b *Backend) SubmitResults(ctx context.Context, results []model.Result) error {
	_, err := SaveResults(ctx, b.DB, results)
	return err
}
