package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	dbpkg "github.com/erazemk/pregled/internal/db"
	"github.com/erazemk/pregled/internal/model"
)

// CreateDamageAssessment records a damage assessment for a failed result
// and moves the inspected item to damage-assessment.
func CreateDamageAssessment(ctx context.Context, db *sql.DB, a model.DamageAssessment) (*model.DamageAssessment, error) {
	err := dbpkg.WithTx(ctx, db, "damage assessment", func(tx *sql.Tx) error {
		var itemID, overall string
		err := tx.QueryRowContext(ctx,
			`SELECT item_id, overall_status FROM qc_results WHERE id = ?`, a.QCResultID,
		).Scan(&itemID, &overall)
		if err == sql.ErrNoRows {
			return fmt.Errorf("qc result %s not found", a.QCResultID)
		}
		if err != nil {
			return fmt.Errorf("checking qc result: %w", err)
		}
		if overall != model.OverallDamageFound {
			return fmt.Errorf("qc result %s found no damage", a.QCResultID)
		}

		a.ID = uuid.NewString()
		if a.Status == "" {
			a.Status = model.AssessmentPending
		}

		_, err = tx.ExecContext(ctx,
			`INSERT INTO damage_assessments
			 (id, qc_result_id, damage_type, severity, repair_estimate, repair_notes, recommended_action, assigned_to, status)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			a.ID, a.QCResultID, a.DamageType, a.Severity, a.RepairEstimate, a.RepairNotes,
			a.RecommendedAction, a.AssignedTo, a.Status,
		)
		if err != nil {
			return fmt.Errorf("creating damage assessment: %w", err)
		}

		return setQCItemStatus(ctx, tx, itemID, model.QCStatusDamageAssessment)
	})
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// ListDamageAssessments returns assessments, optionally filtered by status.
func ListDamageAssessments(ctx context.Context, db *sql.DB, status string) ([]model.DamageAssessment, error) {
	query := `SELECT id, qc_result_id, damage_type, severity, repair_estimate, repair_notes,
	                 recommended_action, assigned_to, status
	          FROM damage_assessments`
	var args []any
	if status != "" {
		query += ` WHERE status = ?`
		args = append(args, status)
	}
	query += ` ORDER BY created_at DESC, id`

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing damage assessments: %w", err)
	}
	defer rows.Close()

	var out []model.DamageAssessment
	for rows.Next() {
		var a model.DamageAssessment
		var estimate sql.NullFloat64
		var notes, assigned sql.NullString
		if err := rows.Scan(&a.ID, &a.QCResultID, &a.DamageType, &a.Severity, &estimate, &notes,
			&a.RecommendedAction, &assigned, &a.Status); err != nil {
			return nil, fmt.Errorf("scanning damage assessment: %w", err)
		}
		if estimate.Valid {
			v := estimate.Float64
			a.RepairEstimate = &v
		}
		a.RepairNotes = notes.String
		a.AssignedTo = assigned.String
		out = append(out, a)
	}
	return out, rows.Err()
}
