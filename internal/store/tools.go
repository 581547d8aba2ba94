package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/erazemk/pregled/internal/model"
)

var (
	// ErrToolNotFound is returned for an unknown or deleted tool.
	ErrToolNotFound = errors.New("tool not found")

	// ErrToolUnavailable is returned when a tool is not in the state a
	// change needs.
	ErrToolUnavailable = errors.New("tool is not available for this change")
)

const toolColumns = `id, name, serial_number, category, description, status, holder, created_at, updated_at, deleted_at`

// CreateTool adds a tool to the register.
func CreateTool(ctx context.Context, db *sql.DB, name, serial, category, description string) (*model.Tool, error) {
	result, err := db.ExecContext(ctx,
		`INSERT INTO tools (name, serial_number, category, description) VALUES (?, ?, ?, ?)`,
		name, serial, category, description,
	)
	if err != nil {
		return nil, fmt.Errorf("creating tool: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("getting tool id: %w", err)
	}

	return GetTool(ctx, db, id)
}

// GetTool returns a tool by ID, deleted or not.
func GetTool(ctx context.Context, db *sql.DB, id int64) (*model.Tool, error) {
	row := db.QueryRowContext(ctx, `SELECT `+toolColumns+` FROM tools WHERE id = ?`, id)
	tool, err := scanTool(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting tool: %w", err)
	}
	return tool, nil
}

// ListTools returns all non-deleted tools, optionally filtered by status
// and category.
func ListTools(ctx context.Context, db *sql.DB, status, category string) ([]model.Tool, error) {
	query := `SELECT ` + toolColumns + ` FROM tools WHERE deleted_at IS NULL`
	var args []any
	if status != "" {
		query += ` AND status = ?`
		args = append(args, status)
	}
	if category != "" {
		query += ` AND category = ?`
		args = append(args, category)
	}
	query += ` ORDER BY name, id`

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing tools: %w", err)
	}
	defer rows.Close()

	var tools []model.Tool
	for rows.Next() {
		tool, err := scanTool(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning tool: %w", err)
		}
		tools = append(tools, *tool)
	}
	return tools, rows.Err()
}

// UpdateTool updates a tool's metadata. Only available, damaged and retired
// tools can be edited; the others are moved by transfers and inspections.
func UpdateTool(ctx context.Context, db *sql.DB, id int64, name, serial, category, description, status string) error {
	res, err := db.ExecContext(ctx,
		`UPDATE tools SET name = ?, serial_number = ?, category = ?, description = ?, status = ?,
		        updated_at = CURRENT_TIMESTAMP
		 WHERE id = ? AND deleted_at IS NULL AND status IN (?, ?, ?)`,
		name, serial, category, description, status, id,
		model.ToolStatusAvailable, model.ToolStatusDamaged, model.ToolStatusRetired,
	)
	if err != nil {
		return fmt.Errorf("updating tool: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return unchangedTool(ctx, db, id)
	}
	return nil
}

// DeleteTool soft-deletes a tool that is not out or in inspection.
func DeleteTool(ctx context.Context, db *sql.DB, id int64) error {
	res, err := db.ExecContext(ctx,
		`UPDATE tools SET deleted_at = CURRENT_TIMESTAMP
		 WHERE id = ? AND deleted_at IS NULL AND status NOT IN (?, ?)`,
		id, model.ToolStatusCheckedOut, model.ToolStatusInQC,
	)
	if err != nil {
		return fmt.Errorf("deleting tool: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return unchangedTool(ctx, db, id)
	}
	return nil
}

// GetToolHistory returns the transfers of a tool, newest first.
func GetToolHistory(ctx context.Context, db *sql.DB, toolID int64) ([]model.Transfer, error) {
	return ListTransfers(ctx, db, toolID)
}

// setToolStatusAfterQC moves a tool out of inspection once its QC item
// has a verdict. Items that do not reference a tool in inspection are left
// alone.
func setToolStatusAfterQC(ctx context.Context, tx *sql.Tx, toolRef, overall string) error {
	_, err := tx.ExecContext(ctx,
		`UPDATE tools SET status = ?, updated_at = CURRENT_TIMESTAMP
		 WHERE CAST(id AS TEXT) = ? AND status = ?`,
		model.ToolStatusFor(overall), toolRef, model.ToolStatusInQC,
	)
	if err != nil {
		return fmt.Errorf("updating tool %s after qc: %w", toolRef, err)
	}
	return nil
}

// unchangedTool explains why an update matched no live tool.
func unchangedTool(ctx context.Context, db *sql.DB, id int64) error {
	var status string
	err := db.QueryRowContext(ctx,
		`SELECT status FROM tools WHERE id = ? AND deleted_at IS NULL`, id,
	).Scan(&status)
	if err == sql.ErrNoRows {
		return fmt.Errorf("%w: %d", ErrToolNotFound, id)
	}
	if err != nil {
		return fmt.Errorf("getting tool: %w", err)
	}
	return fmt.Errorf("%w: tool is %s", ErrToolUnavailable, status)
}

func scanTool(row rowScanner) (*model.Tool, error) {
	var t model.Tool
	var description sql.NullString
	if err := row.Scan(&t.ID, &t.Name, &t.SerialNumber, &t.Category, &description, &t.Status, &t.Holder,
		&t.CreatedAt, &t.UpdatedAt, &t.DeletedAt); err != nil {
		return nil, err
	}
	t.Description = description.String
	return &t, nil
}
