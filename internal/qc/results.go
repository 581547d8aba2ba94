package qc

import (
	"fmt"

	"github.com/erazemk/pregled/internal/model"
)

// checklist is a fixed set of criteria with an index by criterion ID.
type checklist struct {
	items []model.ChecklistItem
	index map[string]int
}

func newChecklist(items []model.ChecklistItem) *checklist {
	c := &checklist{items: items, index: make(map[string]int, len(items))}
	for i, ci := range items {
		c.index[ci.ID] = i
	}
	return c
}

func (c *checklist) has(id string) bool {
	_, ok := c.index[id]
	return ok
}

// seed returns one unanswered result per criterion.
func (c *checklist) seed() resultSet {
	rs := make(resultSet, len(c.items))
	for i, ci := range c.items {
		rs[i] = model.ChecklistResult{ChecklistItemID: ci.ID}
	}
	return rs
}

// resultSet holds one result per criterion, in checklist order.
type resultSet []model.ChecklistResult

// patch merges p into the result of a criterion. Unknown IDs are ignored.
func (rs resultSet) patch(c *checklist, id string, p Patch) {
	i, ok := c.index[id]
	if !ok {
		return
	}
	p.apply(&rs[i])
}

// missingPhotos lists failed criteria that require a photo and have none.
func (rs resultSet) missingPhotos(c *checklist) []string {
	var missing []string
	for i, r := range rs {
		if !r.Passed && c.items[i].RequiresPhoto && r.PhotoURL == "" {
			missing = append(missing, r.ChecklistItemID)
		}
	}
	return missing
}

func (rs resultSet) status() string {
	return model.OverallStatus(rs)
}

func (rs resultSet) clone() []model.ChecklistResult {
	out := make([]model.ChecklistResult, len(rs))
	copy(out, rs)
	return out
}

// ValidateResults checks results submitted outside a session against the
// checklist of the item's category: every criterion answered exactly once
// and nothing else. With requirePhotos set, failed criteria that require
// photo evidence must carry a photo URL.
func ValidateResults(items []model.ChecklistItem, results []model.ChecklistResult, requirePhotos bool) error {
	c := newChecklist(items)
	rs := c.seed()
	seen := make(map[string]bool, len(results))
	for _, r := range results {
		i, ok := c.index[r.ChecklistItemID]
		if !ok {
			return fmt.Errorf("%w: %q", ErrUnknownCriterion, r.ChecklistItemID)
		}
		if seen[r.ChecklistItemID] {
			return fmt.Errorf("%w: %s", ErrDuplicateCriterion, r.ChecklistItemID)
		}
		seen[r.ChecklistItemID] = true
		rs[i] = r
	}

	var missing []string
	for _, ci := range items {
		if !seen[ci.ID] {
			missing = append(missing, ci.ID)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %v", ErrIncompleteResults, missing)
	}

	if requirePhotos {
		if missing := rs.missingPhotos(c); len(missing) > 0 {
			return fmt.Errorf("%w: %v", ErrMissingPhoto, missing)
		}
	}
	return nil
}
