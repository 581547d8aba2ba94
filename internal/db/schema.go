package db

import (
	"database/sql"
	"fmt"
)

// schema is the full database schema.
const schema = `
CREATE TABLE IF NOT EXISTS users (
    id            INTEGER PRIMARY KEY,
    username      TEXT NOT NULL,
    password_hash TEXT NOT NULL,
    role          TEXT NOT NULL DEFAULT 'inspector' CHECK (role IN ('admin', 'manager', 'inspector')),
    created_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    deleted_at    DATETIME
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_users_username_active
    ON users(username) WHERE deleted_at IS NULL;

CREATE TABLE IF NOT EXISTS settings (
    key   TEXT PRIMARY KEY,
    value TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS revoked_tokens (
    jti        TEXT PRIMARY KEY,
    expires_at DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS tools (
    id            INTEGER PRIMARY KEY,
    name          TEXT NOT NULL,
    serial_number TEXT NOT NULL DEFAULT '',
    category      TEXT NOT NULL,
    description   TEXT,
    status        TEXT NOT NULL DEFAULT 'available'
                  CHECK (status IN ('available', 'checked-out', 'in-qc', 'damaged', 'retired')),
    holder        TEXT NOT NULL DEFAULT '',
    created_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    deleted_at    DATETIME
);

CREATE TABLE IF NOT EXISTS transfers (
    id             INTEGER PRIMARY KEY,
    tool_id        INTEGER NOT NULL REFERENCES tools(id),
    kind           TEXT NOT NULL CHECK (kind IN ('checkout', 'return')),
    holder         TEXT NOT NULL,
    notes          TEXT,
    qc_item_id     TEXT,
    transferred_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    transferred_by INTEGER REFERENCES users(id)
);

CREATE INDEX IF NOT EXISTS idx_transfers_tool ON transfers(tool_id);
CREATE INDEX IF NOT EXISTS idx_transfers_at ON transfers(transferred_at);

CREATE TABLE IF NOT EXISTS qc_items (
    id            TEXT PRIMARY KEY,
    tool_id       TEXT NOT NULL,
    tool_name     TEXT NOT NULL,
    return_date   DATETIME NOT NULL,
    serial_number TEXT NOT NULL DEFAULT '',
    category      TEXT NOT NULL,
    last_used_by  TEXT NOT NULL DEFAULT '',
    return_reason TEXT,
    status        TEXT NOT NULL DEFAULT 'pending'
                  CHECK (status IN ('pending', 'qc-passed', 'damage-found', 'damage-assessment')),
    priority      TEXT NOT NULL DEFAULT 'medium' CHECK (priority IN ('low', 'medium', 'high')),
    updated_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_qc_items_status ON qc_items(status);

CREATE TABLE IF NOT EXISTS checklist_items (
    id             TEXT PRIMARY KEY,
    category       TEXT NOT NULL,
    position       INTEGER NOT NULL,
    description    TEXT NOT NULL,
    requires_photo INTEGER NOT NULL DEFAULT 0,
    is_critical    INTEGER NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_checklist_items_category ON checklist_items(category, position);

CREATE TABLE IF NOT EXISTS qc_results (
    id              TEXT PRIMARY KEY,
    item_id         TEXT NOT NULL REFERENCES qc_items(id),
    overall_status  TEXT NOT NULL CHECK (overall_status IN ('pass', 'damage-found')),
    inspector_id    TEXT NOT NULL,
    inspection_date DATETIME NOT NULL,
    started_at      DATETIME,
    notes           TEXT
);

CREATE INDEX IF NOT EXISTS idx_qc_results_date ON qc_results(inspection_date);

CREATE TABLE IF NOT EXISTS qc_checklist_results (
    result_id         TEXT NOT NULL REFERENCES qc_results(id),
    checklist_item_id TEXT NOT NULL,
    position          INTEGER NOT NULL,
    passed            INTEGER NOT NULL,
    notes             TEXT,
    photo_url         TEXT,
    PRIMARY KEY (result_id, checklist_item_id)
);

CREATE TABLE IF NOT EXISTS photos (
    id                TEXT PRIMARY KEY,
    item_id           TEXT NOT NULL,
    checklist_item_id TEXT NOT NULL,
    filename          TEXT NOT NULL DEFAULT '',
    mime              TEXT NOT NULL,
    data              BLOB NOT NULL,
    created_at        DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS damage_assessments (
    id                 TEXT PRIMARY KEY,
    qc_result_id       TEXT NOT NULL REFERENCES qc_results(id),
    damage_type        TEXT NOT NULL,
    severity           TEXT NOT NULL CHECK (severity IN ('minor', 'moderate', 'severe')),
    repair_estimate    REAL,
    repair_notes       TEXT,
    recommended_action TEXT NOT NULL CHECK (recommended_action IN ('repair', 'replace', 'dispose')),
    assigned_to        TEXT,
    status             TEXT NOT NULL DEFAULT 'pending' CHECK (status IN ('pending', 'in-progress', 'completed')),
    created_at         DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);
`

// EnsureSchema creates all tables and indexes if they don't already exist
// and seeds the built-in checklists.
func EnsureSchema(db *sql.DB) error {
	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("creating schema: %w", err)
	}

	if err := SeedChecklists(db); err != nil {
		return err
	}
	return nil
}
