package db

import "testing"

func TestBuiltinChecklistsSeeded(t *testing.T) {
	database := NewTestDB(t)

	for _, category := range []string{"Power Tools", "Safety Equipment", "Measuring Tools"} {
		var n int
		if err := database.QueryRow(`SELECT COUNT(*) FROM checklist_items WHERE category = ?`, category).Scan(&n); err != nil {
			t.Fatalf("counting %s: %v", category, err)
		}
		if n != 5 {
			t.Errorf("expected 5 criteria for %s, got %d", category, n)
		}
	}
}

func TestEnsureSchemaIdempotent(t *testing.T) {
	database := NewTestDB(t)

	if err := EnsureSchema(database); err != nil {
		t.Fatalf("second EnsureSchema: %v", err)
	}

	var n int
	database.QueryRow(`SELECT COUNT(*) FROM checklist_items`).Scan(&n)
	if n != 15 {
		t.Errorf("expected 15 criteria after reseed, got %d", n)
	}
}

func TestLoadChecklistsReplacesCategory(t *testing.T) {
	database := NewTestDB(t)

	custom := []byte(`
checklists:
  Power Tools:
    - id: pt-100
      description: Check battery contacts
      requires_photo: true
`)
	if err := LoadChecklists(database, custom); err != nil {
		t.Fatalf("LoadChecklists: %v", err)
	}

	var n int
	database.QueryRow(`SELECT COUNT(*) FROM checklist_items WHERE category = 'Power Tools'`).Scan(&n)
	if n != 1 {
		t.Errorf("expected Power Tools to be replaced by 1 criterion, got %d", n)
	}

	database.QueryRow(`SELECT COUNT(*) FROM checklist_items WHERE category = 'Safety Equipment'`).Scan(&n)
	if n != 5 {
		t.Errorf("other categories must be untouched, got %d", n)
	}
}

func TestLoadChecklistsRejectsIncomplete(t *testing.T) {
	database := NewTestDB(t)

	bad := []byte(`
checklists:
  Ladders:
    - id: ld-001
`)
	if err := LoadChecklists(database, bad); err == nil {
		t.Error("expected error for criterion without description")
	}
}

func TestSeedDemoItems(t *testing.T) {
	database := NewTestDB(t)

	added, err := SeedDemoItems(database)
	if err != nil {
		t.Fatalf("SeedDemoItems: %v", err)
	}
	if added != 5 {
		t.Errorf("expected 5 demo items, got %d", added)
	}

	// Every demo item points at a registered tool in inspection.
	var linked int
	err = database.QueryRow(
		`SELECT COUNT(*) FROM qc_items q
		 JOIN tools t ON CAST(t.id AS TEXT) = q.tool_id
		 JOIN transfers tr ON tr.qc_item_id = q.id AND tr.kind = 'return'
		 WHERE t.status = 'in-qc' AND t.name = q.tool_name`,
	).Scan(&linked)
	if err != nil {
		t.Fatalf("counting linked items: %v", err)
	}
	if linked != 5 {
		t.Errorf("expected 5 items linked to tools, got %d", linked)
	}

	added, err = SeedDemoItems(database)
	if err != nil {
		t.Fatalf("second SeedDemoItems: %v", err)
	}
	if added != 0 {
		t.Errorf("expected reseeding to add nothing, got %d", added)
	}

	var tools int
	if err := database.QueryRow(`SELECT COUNT(*) FROM tools`).Scan(&tools); err != nil {
		t.Fatalf("counting tools: %v", err)
	}
	if tools != 5 {
		t.Errorf("expected reseeding to keep 5 tools, got %d", tools)
	}
}
