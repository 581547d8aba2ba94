package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	dbpkg "github.com/erazemk/pregled/internal/db"
	"github.com/erazemk/pregled/internal/model"
)

// CheckoutRequest hands a tool to a holder.
type CheckoutRequest struct {
	ToolID int64
	Holder string
	Notes  string
	By     *int64
	At     time.Time
}

// ReturnRequest takes a tool back and queues it for inspection.
type ReturnRequest struct {
	ToolID   int64
	QCItemID string
	Reason   string
	Priority string
	Notes    string
	By       *int64
	At       time.Time
}

const transferSelect = `SELECT t.id, t.tool_id, t.kind, t.holder, t.notes, t.qc_item_id,
	        t.transferred_at, t.transferred_by, tl.name, COALESCE(u.username, '')
	 FROM transfers t
	 JOIN tools tl ON tl.id = t.tool_id
	 LEFT JOIN users u ON u.id = t.transferred_by`

// CheckoutTool marks an available tool as held by req.Holder and records
// the transfer.
func CheckoutTool(ctx context.Context, db *sql.DB, req CheckoutRequest) (*model.Transfer, error) {
	if req.Holder == "" {
		return nil, fmt.Errorf("holder required")
	}
	at := transferTime(req.At)

	var transferID int64
	err := dbpkg.WithTx(ctx, db, "checkout", func(tx *sql.Tx) error {
		if _, err := requireToolStatus(ctx, tx, req.ToolID, model.ToolStatusAvailable); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx,
			`UPDATE tools SET status = ?, holder = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
			model.ToolStatusCheckedOut, req.Holder, req.ToolID,
		); err != nil {
			return fmt.Errorf("checking out tool: %w", err)
		}

		id, err := insertTransfer(ctx, tx, req.ToolID, model.TransferCheckout, req.Holder, req.Notes, "", at, req.By)
		transferID = id
		return err
	})
	if err != nil {
		return nil, err
	}
	return GetTransfer(ctx, db, transferID)
}

// ReturnTool takes a checked-out tool back, moves it into inspection and
// creates its pending QC item in the same transaction.
func ReturnTool(ctx context.Context, db *sql.DB, req ReturnRequest) (*model.Transfer, *model.QCItem, error) {
	at := transferTime(req.At)
	if req.QCItemID == "" {
		req.QCItemID = "qc-" + uuid.NewString()[:8]
	}

	var transferID int64
	err := dbpkg.WithTx(ctx, db, "return", func(tx *sql.Tx) error {
		tool, err := requireToolStatus(ctx, tx, req.ToolID, model.ToolStatusCheckedOut)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx,
			`UPDATE tools SET status = ?, holder = '', updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
			model.ToolStatusInQC, req.ToolID,
		); err != nil {
			return fmt.Errorf("returning tool: %w", err)
		}

		if err := insertQCItem(ctx, tx, model.QCItem{
			ID:           req.QCItemID,
			ToolID:       model.ToolRef(tool.ID),
			ToolName:     tool.Name,
			ReturnDate:   at,
			SerialNumber: tool.SerialNumber,
			Category:     tool.Category,
			LastUsedBy:   tool.Holder,
			ReturnReason: req.Reason,
			Priority:     req.Priority,
		}); err != nil {
			return err
		}

		id, err := insertTransfer(ctx, tx, req.ToolID, model.TransferReturn, tool.Holder, req.Notes, req.QCItemID, at, req.By)
		transferID = id
		return err
	})
	if err != nil {
		return nil, nil, err
	}

	transfer, err := GetTransfer(ctx, db, transferID)
	if err != nil {
		return nil, nil, err
	}
	item, err := GetQCItem(ctx, db, req.QCItemID)
	if err != nil {
		return nil, nil, err
	}
	return transfer, item, nil
}

// GetTransfer returns a transfer by ID.
func GetTransfer(ctx context.Context, db *sql.DB, id int64) (*model.Transfer, error) {
	row := db.QueryRowContext(ctx, transferSelect+` WHERE t.id = ?`, id)
	t, err := scanTransfer(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting transfer: %w", err)
	}
	return t, nil
}

// ListTransfers returns transfers newest first, optionally for one tool.
func ListTransfers(ctx context.Context, db *sql.DB, toolID int64) ([]model.Transfer, error) {
	query := transferSelect
	var args []any
	if toolID > 0 {
		query += ` WHERE t.tool_id = ?`
		args = append(args, toolID)
	}
	query += ` ORDER BY t.transferred_at DESC, t.id DESC`

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing transfers: %w", err)
	}
	defer rows.Close()

	var transfers []model.Transfer
	for rows.Next() {
		t, err := scanTransfer(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning transfer: %w", err)
		}
		transfers = append(transfers, *t)
	}
	return transfers, rows.Err()
}

// ListActivity returns the transfer log as activity entries, newest first.
func ListActivity(ctx context.Context, db *sql.DB, f model.ActivityFilter) ([]model.Activity, error) {
	query := transferSelect + ` WHERE 1=1`
	var args []any

	switch f.Action {
	case "":
	case model.ActivityCheckedOut:
		query += ` AND t.kind = ?`
		args = append(args, model.TransferCheckout)
	case model.ActivityReturned:
		query += ` AND t.kind = ?`
		args = append(args, model.TransferReturn)
	default:
		return []model.Activity{}, nil
	}
	if f.Search != "" {
		like := "%" + strings.ToLower(f.Search) + "%"
		query += ` AND (LOWER(tl.name) LIKE ? OR LOWER(t.holder) LIKE ? OR LOWER(COALESCE(u.username, '')) LIKE ?)`
		args = append(args, like, like, like)
	}
	if f.Range != nil {
		query += ` AND t.transferred_at >= ? AND t.transferred_at < ?`
		args = append(args, f.Range.From.UTC(), f.Range.End().UTC())
	}

	limit := f.Limit
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	query += ` ORDER BY t.transferred_at DESC, t.id DESC LIMIT ?`
	args = append(args, limit)

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing activity: %w", err)
	}
	defer rows.Close()

	activity := []model.Activity{}
	for rows.Next() {
		t, err := scanTransfer(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning activity: %w", err)
		}
		activity = append(activity, model.Activity{
			ID:       t.ID,
			Action:   model.ActivityAction(t.Kind),
			Name:     t.ToolName,
			User:     t.Username,
			Holder:   t.Holder,
			Date:     t.TransferredAt,
			QCItemID: t.QCItemID,
		})
	}
	return activity, rows.Err()
}

// requireToolStatus reads a live tool inside tx and checks that it has the wanted
// status.
func requireToolStatus(ctx context.Context, tx *sql.Tx, id int64, want string) (*model.Tool, error) {
	row := tx.QueryRowContext(ctx,
		`SELECT `+toolColumns+` FROM tools WHERE id = ? AND deleted_at IS NULL`, id,
	)
	tool, err := scanTool(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: %d", ErrToolNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("getting tool: %w", err)
	}
	if tool.Status != want {
		return nil, fmt.Errorf("%w: %s is %s", ErrToolUnavailable, tool.Name, tool.Status)
	}
	return tool, nil
}

func insertTransfer(ctx context.Context, tx *sql.Tx, toolID int64, kind, holder, notes, qcItemID string, at time.Time, by *int64) (int64, error) {
	var itemRef any
	if qcItemID != "" {
		itemRef = qcItemID
	}
	result, err := tx.ExecContext(ctx,
		`INSERT INTO transfers (tool_id, kind, holder, notes, qc_item_id, transferred_at, transferred_by)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		toolID, kind, holder, notes, itemRef, at, by,
	)
	if err != nil {
		return 0, fmt.Errorf("recording transfer: %w", err)
	}
	return result.LastInsertId()
}

func transferTime(at time.Time) time.Time {
	if at.IsZero() {
		at = time.Now()
	}
	return at.UTC()
}

func scanTransfer(row rowScanner) (*model.Transfer, error) {
	var t model.Transfer
	var notes, qcItemID sql.NullString
	if err := row.Scan(&t.ID, &t.ToolID, &t.Kind, &t.Holder, &notes, &qcItemID,
		&t.TransferredAt, &t.TransferredBy, &t.ToolName, &t.Username); err != nil {
		return nil, err
	}
	t.Notes = notes.String
	t.QCItemID = qcItemID.String
	return &t, nil
}
