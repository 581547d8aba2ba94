package db

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"sort"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/erazemk/pregled/internal/model"
)

//go:embed seed.yaml
var builtinSeed []byte

// seedFile is the YAML layout of checklist definitions and demo items.
type seedFile struct {
	Checklists map[string][]model.ChecklistItem `yaml:"checklists"`
	DemoItems  []seedItem                       `yaml:"demo_items"`
}

type seedItem struct {
	ID           string    `yaml:"id"`
	ToolName     string    `yaml:"tool_name"`
	ReturnDate   time.Time `yaml:"return_date"`
	SerialNumber string    `yaml:"serial_number"`
	Category     string    `yaml:"category"`
	LastUsedBy   string    `yaml:"last_used_by"`
	ReturnReason string    `yaml:"return_reason"`
	Priority     string    `yaml:"priority"`
}

func parseSeed(data []byte) (*seedFile, error) {
	var f seedFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing seed: %w", err)
	}
	return &f, nil
}

// SeedChecklists upserts the built-in checklist categories.
func SeedChecklists(db *sql.DB) error {
	return LoadChecklists(db, builtinSeed)
}

// LoadChecklists upserts the checklists of a YAML document. Categories are
// replaced as a whole, so criteria removed from the file disappear.
func LoadChecklists(db *sql.DB, data []byte) error {
	f, err := parseSeed(data)
	if err != nil {
		return err
	}

	categories := make([]string, 0, len(f.Checklists))
	for c := range f.Checklists {
		categories = append(categories, c)
	}
	sort.Strings(categories)

	return WithTx(context.Background(), db, "checklists", func(tx *sql.Tx) error {
		for _, category := range categories {
			if _, err := tx.Exec(`DELETE FROM checklist_items WHERE category = ?`, category); err != nil {
				return fmt.Errorf("clearing checklist %q: %w", category, err)
			}
			for pos, ci := range f.Checklists[category] {
				if ci.ID == "" || ci.Description == "" {
					return fmt.Errorf("checklist %q: criterion %d needs id and description", category, pos+1)
				}
				_, err := tx.Exec(
					`INSERT INTO checklist_items (id, category, position, description, requires_photo, is_critical)
					 VALUES (?, ?, ?, ?, ?, ?)
					 ON CONFLICT (id) DO UPDATE SET category = excluded.category, position = excluded.position,
					     description = excluded.description, requires_photo = excluded.requires_photo,
					     is_critical = excluded.is_critical`,
					ci.ID, category, pos, ci.Description, ci.RequiresPhoto, ci.IsCritical,
				)
				if err != nil {
					return fmt.Errorf("seeding criterion %s: %w", ci.ID, err)
				}
			}
		}
		return nil
	})
}

// SeedDemoItems inserts the demo pending items. Each one gets its tool in
// the register, in inspection, with the return that queued it. Existing
// ids are left alone.
func SeedDemoItems(db *sql.DB) (int, error) {
	f, err := parseSeed(builtinSeed)
	if err != nil {
		return 0, err
	}

	added := 0
	err = WithTx(context.Background(), db, "demo items", func(tx *sql.Tx) error {
		for _, it := range f.DemoItems {
			var exists bool
			if err := tx.QueryRow(`SELECT EXISTS (SELECT 1 FROM qc_items WHERE id = ?)`, it.ID).Scan(&exists); err != nil {
				return fmt.Errorf("checking item %s: %w", it.ID, err)
			}
			if exists {
				continue
			}

			res, err := tx.Exec(
				`INSERT INTO tools (name, serial_number, category, status) VALUES (?, ?, ?, ?)`,
				it.ToolName, it.SerialNumber, it.Category, model.ToolStatusInQC,
			)
			if err != nil {
				return fmt.Errorf("seeding tool for %s: %w", it.ID, err)
			}
			toolID, err := res.LastInsertId()
			if err != nil {
				return fmt.Errorf("getting tool id: %w", err)
			}

			if _, err := tx.Exec(
				`INSERT INTO qc_items
				 (id, tool_id, tool_name, return_date, serial_number, category, last_used_by, return_reason, priority)
				 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
				it.ID, model.ToolRef(toolID), it.ToolName, it.ReturnDate.UTC(), it.SerialNumber, it.Category,
				it.LastUsedBy, it.ReturnReason, it.Priority,
			); err != nil {
				return fmt.Errorf("seeding item %s: %w", it.ID, err)
			}

			if _, err := tx.Exec(
				`INSERT INTO transfers (tool_id, kind, holder, qc_item_id, transferred_at) VALUES (?, ?, ?, ?, ?)`,
				toolID, model.TransferReturn, it.LastUsedBy, it.ID, it.ReturnDate.UTC(),
			); err != nil {
				return fmt.Errorf("seeding return of %s: %w", it.ID, err)
			}
			added++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return added, nil
}
