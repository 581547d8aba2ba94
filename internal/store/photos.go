package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
)

// PhotoURLPrefix is the API path photos are served from.
const PhotoURLPrefix = "/api/qc/photos/"

// SavePhoto stores processed photo evidence and returns its ID.
func SavePhoto(ctx context.Context, db *sql.DB, itemID, checklistItemID, filename string, data []byte, mime string) (string, error) {
	id := uuid.NewString()
	_, err := db.ExecContext(ctx,
		`INSERT INTO photos (id, item_id, checklist_item_id, filename, mime, data) VALUES (?, ?, ?, ?, ?, ?)`,
		id, itemID, checklistItemID, filename, mime, data,
	)
	if err != nil {
		return "", fmt.Errorf("saving photo: %w", err)
	}
	return id, nil
}

// GetPhoto returns photo data and MIME type. Data is nil if not found.
func GetPhoto(ctx context.Context, db *sql.DB, id string) ([]byte, string, error) {
	var data []byte
	var mime string
	err := db.QueryRowContext(ctx,
		`SELECT data, mime FROM photos WHERE id = ?`, id,
	).Scan(&data, &mime)
	if err == sql.ErrNoRows {
		return nil, "", nil
	}
	if err != nil {
		return nil, "", fmt.Errorf("getting photo: %w", err)
	}
	return data, mime, nil
}
