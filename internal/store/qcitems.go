package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/erazemk/pregled/internal/model"
)

const qcItemColumns = `id, tool_id, tool_name, return_date, serial_number, category, last_used_by,
	return_reason, status, priority`

// execer is satisfied by both *sql.DB and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// CreateQCItem registers a returned tool for inspection.
func CreateQCItem(ctx context.Context, db *sql.DB, item model.QCItem) (*model.QCItem, error) {
	if err := insertQCItem(ctx, db, item); err != nil {
		return nil, err
	}
	return GetQCItem(ctx, db, item.ID)
}

func insertQCItem(ctx context.Context, ex execer, item model.QCItem) error {
	if item.Priority == "" {
		item.Priority = model.PriorityMedium
	}
	_, err := ex.ExecContext(ctx,
		`INSERT INTO qc_items (id, tool_id, tool_name, return_date, serial_number, category, last_used_by, return_reason, priority)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		item.ID, item.ToolID, item.ToolName, item.ReturnDate.UTC(), item.SerialNumber, item.Category,
		item.LastUsedBy, item.ReturnReason, item.Priority,
	)
	if err != nil {
		return fmt.Errorf("creating qc item: %w", err)
	}
	return nil
}

// GetQCItem returns an item by ID, or nil if it does not exist.
func GetQCItem(ctx context.Context, db *sql.DB, id string) (*model.QCItem, error) {
	row := db.QueryRowContext(ctx,
		`SELECT `+qcItemColumns+` FROM qc_items WHERE id = ?`, id,
	)
	item, err := scanQCItem(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting qc item: %w", err)
	}
	return item, nil
}

// GetQCItems returns the items with the given IDs in the order asked for.
// Unknown IDs are reported as an error.
func GetQCItems(ctx context.Context, db *sql.DB, ids []string) ([]model.QCItem, error) {
	items := make([]model.QCItem, 0, len(ids))
	for _, id := range ids {
		item, err := GetQCItem(ctx, db, id)
		if err != nil {
			return nil, err
		}
		if item == nil {
			return nil, fmt.Errorf("qc item %s not found", id)
		}
		items = append(items, *item)
	}
	return items, nil
}

// ListPendingItems returns items awaiting inspection, oldest return first.
func ListPendingItems(ctx context.Context, db *sql.DB) ([]model.QCItem, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT `+qcItemColumns+` FROM qc_items WHERE status = ? ORDER BY return_date, id`,
		model.QCStatusPending,
	)
	if err != nil {
		return nil, fmt.Errorf("listing pending items: %w", err)
	}
	defer rows.Close()

	return scanQCItems(rows)
}

// ListHistory returns a page of already inspected items, newest first,
// along with the total number of inspected items.
func ListHistory(ctx context.Context, db *sql.DB, page, limit int) ([]model.QCItem, int, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 20
	}

	var total int
	err := db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM qc_items WHERE status <> ?`, model.QCStatusPending,
	).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("counting history: %w", err)
	}

	rows, err := db.QueryContext(ctx,
		`SELECT `+qcItemColumns+` FROM qc_items WHERE status <> ?
		 ORDER BY updated_at DESC, id LIMIT ? OFFSET ?`,
		model.QCStatusPending, limit, (page-1)*limit,
	)
	if err != nil {
		return nil, 0, fmt.Errorf("listing history: %w", err)
	}
	defer rows.Close()

	items, err := scanQCItems(rows)
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

func setQCItemStatus(ctx context.Context, tx *sql.Tx, id, status string) error {
	res, err := tx.ExecContext(ctx,
		`UPDATE qc_items SET status = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		status, id,
	)
	if err != nil {
		return fmt.Errorf("updating status of %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("qc item %s not found", id)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanQCItem(row rowScanner) (*model.QCItem, error) {
	item := &model.QCItem{}
	var reason sql.NullString
	err := row.Scan(&item.ID, &item.ToolID, &item.ToolName, &item.ReturnDate, &item.SerialNumber,
		&item.Category, &item.LastUsedBy, &reason, &item.Status, &item.Priority)
	if err != nil {
		return nil, err
	}
	item.ReturnReason = reason.String
	return item, nil
}

func scanQCItems(rows *sql.Rows) ([]model.QCItem, error) {
	var items []model.QCItem
	for rows.Next() {
		item, err := scanQCItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning qc item: %w", err)
		}
		items = append(items, *item)
	}
	return items, rows.Err()
}
