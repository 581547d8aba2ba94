package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/erazemk/pregled/internal/model"
)

// GetChecklist returns the ordered criteria of a category. An unknown
// category yields an empty slice.
func GetChecklist(ctx context.Context, db *sql.DB, category string) ([]model.ChecklistItem, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT id, category, description, requires_photo, is_critical
		 FROM checklist_items WHERE category = ? ORDER BY position`, category,
	)
	if err != nil {
		return nil, fmt.Errorf("getting checklist: %w", err)
	}
	defer rows.Close()

	checklist := []model.ChecklistItem{}
	for rows.Next() {
		var ci model.ChecklistItem
		if err := rows.Scan(&ci.ID, &ci.Category, &ci.Description, &ci.RequiresPhoto, &ci.IsCritical); err != nil {
			return nil, fmt.Errorf("scanning checklist item: %w", err)
		}
		checklist = append(checklist, ci)
	}
	return checklist, rows.Err()
}

// ListCategories returns every category that has a checklist.
func ListCategories(ctx context.Context, db *sql.DB) ([]string, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT DISTINCT category FROM checklist_items ORDER BY category`,
	)
	if err != nil {
		return nil, fmt.Errorf("listing categories: %w", err)
	}
	defer rows.Close()

	var categories []string
	for rows.Next() {
		var c string
		if err := rows.Scan(&c); err != nil {
			return nil, fmt.Errorf("scanning category: %w", err)
		}
		categories = append(categories, c)
	}
	return categories, rows.Err()
}
