package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	dbpkg "github.com/erazemk/pregled/internal/db"
	"github.com/erazemk/pregled/internal/model"
)

// SaveResults stores inspection results and moves every inspected item out of
// pending, all in one transaction: either every result is stored or none is.
// Results without an ID get a fresh one; the stored results are returned.
func SaveResults(ctx context.Context, db *sql.DB, results []model.Result) ([]model.Result, error) {
	if len(results) == 0 {
		return nil, fmt.Errorf("no results to save")
	}

	saved := make([]model.Result, 0, len(results))
	err := dbpkg.WithTx(ctx, db, "results", func(tx *sql.Tx) error {
		seen := make(map[string]bool, len(results))
		for _, r := range results {
			if seen[r.ItemID] {
				return fmt.Errorf("duplicate result for item %s", r.ItemID)
			}
			seen[r.ItemID] = true

			if err := insertResult(ctx, tx, &r); err != nil {
				return err
			}
			saved = append(saved, r)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return saved, nil
}

func insertResult(ctx context.Context, tx *sql.Tx, r *model.Result) error {
	var status, toolRef string
	err := tx.QueryRowContext(ctx,
		`SELECT status, tool_id FROM qc_items WHERE id = ?`, r.ItemID,
	).Scan(&status, &toolRef)
	if err == sql.ErrNoRows {
		return fmt.Errorf("qc item %s not found", r.ItemID)
	}
	if err != nil {
		return fmt.Errorf("checking qc item: %w", err)
	}
	if status != model.QCStatusPending {
		return fmt.Errorf("qc item %s is not pending (status %s)", r.ItemID, status)
	}

	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	// The stored verdict is always derived from the checklist results.
	r.OverallStatus = model.OverallStatus(r.ChecklistResults)
	r.Photos = model.PhotoURLs(r.ChecklistResults)
	r.InspectionDate = r.InspectionDate.UTC()

	var startedAt any
	if r.StartedAt != nil {
		startedAt = r.StartedAt.UTC()
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO qc_results (id, item_id, overall_status, inspector_id, inspection_date, started_at, notes)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.ItemID, r.OverallStatus, r.InspectorID, r.InspectionDate, startedAt, r.Notes,
	)
	if err != nil {
		return fmt.Errorf("recording result for %s: %w", r.ItemID, err)
	}

	for pos, cr := range r.ChecklistResults {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO qc_checklist_results (result_id, checklist_item_id, position, passed, notes, photo_url)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			r.ID, cr.ChecklistItemID, pos, cr.Passed, cr.Notes, cr.PhotoURL,
		)
		if err != nil {
			return fmt.Errorf("recording criterion %s for %s: %w", cr.ChecklistItemID, r.ItemID, err)
		}
	}

	if err := setQCItemStatus(ctx, tx, r.ItemID, model.ItemStatusFor(r.OverallStatus)); err != nil {
		return err
	}
	return setToolStatusAfterQC(ctx, tx, toolRef, r.OverallStatus)
}

// GetResult returns a stored result with its checklist results, or nil.
func GetResult(ctx context.Context, db *sql.DB, id string) (*model.Result, error) {
	r := &model.Result{}
	var notes sql.NullString
	var startedAt sql.NullTime
	err := db.QueryRowContext(ctx,
		`SELECT id, item_id, overall_status, inspector_id, inspection_date, started_at, notes
		 FROM qc_results WHERE id = ?`, id,
	).Scan(&r.ID, &r.ItemID, &r.OverallStatus, &r.InspectorID, &r.InspectionDate, &startedAt, &notes)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting result: %w", err)
	}
	r.Notes = notes.String
	if startedAt.Valid {
		t := startedAt.Time
		r.StartedAt = &t
	}

	rows, err := db.QueryContext(ctx,
		`SELECT checklist_item_id, passed, notes, photo_url
		 FROM qc_checklist_results WHERE result_id = ? ORDER BY position`, id,
	)
	if err != nil {
		return nil, fmt.Errorf("getting checklist results: %w", err)
	}
	defer rows.Close()

	r.ChecklistResults = []model.ChecklistResult{}
	for rows.Next() {
		var cr model.ChecklistResult
		var crNotes, photo sql.NullString
		if err := rows.Scan(&cr.ChecklistItemID, &cr.Passed, &crNotes, &photo); err != nil {
			return nil, fmt.Errorf("scanning checklist result: %w", err)
		}
		cr.Notes = crNotes.String
		cr.PhotoURL = photo.String
		r.ChecklistResults = append(r.ChecklistResults, cr)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	r.Photos = model.PhotoURLs(r.ChecklistResults)
	return r, nil
}

// LatestResultID returns the ID of the newest result for an item, or "".
func LatestResultID(ctx context.Context, db *sql.DB, itemID string) (string, error) {
	var id string
	err := db.QueryRowContext(ctx,
		`SELECT id FROM qc_results WHERE item_id = ? ORDER BY inspection_date DESC LIMIT 1`, itemID,
	).Scan(&id)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("getting latest result: %w", err)
	}
	return id, nil
}
