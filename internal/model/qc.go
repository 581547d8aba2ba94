package model

import "time"

// QCItem is a returned tool waiting for (or done with) quality control.
type QCItem struct {
	ID           string    `json:"id"`
	ToolID       string    `json:"tool_id"`
	ToolName     string    `json:"tool_name"`
	ReturnDate   time.Time `json:"return_date"`
	SerialNumber string    `json:"serial_number"`
	Category     string    `json:"category"`
	LastUsedBy   string    `json:"last_used_by"`
	ReturnReason string    `json:"return_reason,omitempty"`
	Status       string    `json:"status"`
	Priority     string    `json:"priority"`
}

// QC item statuses.
const (
	QCStatusPending          = "pending"
	QCStatusPassed           = "qc-passed"
	QCStatusDamageFound      = "damage-found"
	QCStatusDamageAssessment = "damage-assessment"
)

// Priorities.
const (
	PriorityLow    = "low"
	PriorityMedium = "medium"
	PriorityHigh   = "high"
)

// ValidPriority reports whether p is a known priority.
func ValidPriority(p string) bool {
	return p == PriorityLow || p == PriorityMedium || p == PriorityHigh
}

// ChecklistItem is one inspection criterion of a category.
type ChecklistItem struct {
	ID            string `json:"id" yaml:"id"`
	Category      string `json:"category" yaml:"-"`
	Description   string `json:"description" yaml:"description"`
	RequiresPhoto bool   `json:"requires_photo" yaml:"requires_photo"`
	IsCritical    bool   `json:"is_critical" yaml:"is_critical"`
}

// ChecklistResult is the outcome of one criterion for one item.
// Passed defaults to false, so an unanswered criterion counts as failed.
type ChecklistResult struct {
	ChecklistItemID string `json:"checklist_item_id"`
	Passed          bool   `json:"passed"`
	Notes           string `json:"notes,omitempty"`
	PhotoURL        string `json:"photo_url,omitempty"`
}

// Result is a finished inspection of one item.
type Result struct {
	ID               string            `json:"id,omitempty"`
	ItemID           string            `json:"item_id"`
	ChecklistResults []ChecklistResult `json:"checklist_results"`
	OverallStatus    string            `json:"overall_status"`
	InspectorID      string            `json:"inspector_id"`
	InspectionDate   time.Time         `json:"inspection_date"`
	StartedAt        *time.Time        `json:"started_at,omitempty"`
	Notes            string            `json:"notes,omitempty"`
	Photos           []string          `json:"photos"`
}

// Overall statuses.
const (
	OverallPass        = "pass"
	OverallDamageFound = "damage-found"
)

// OverallStatus derives the verdict: damage-found iff any criterion failed.
func OverallStatus(results []ChecklistResult) string {
	for _, r := range results {
		if !r.Passed {
			return OverallDamageFound
		}
	}
	return OverallPass
}

// PhotoURLs collects the non-empty photo references in checklist order.
func PhotoURLs(results []ChecklistResult) []string {
	photos := []string{}
	for _, r := range results {
		if r.PhotoURL != "" {
			photos = append(photos, r.PhotoURL)
		}
	}
	return photos
}

// ItemStatusFor maps an overall verdict to the resulting item status.
func ItemStatusFor(overall string) string {
	if overall == OverallPass {
		return QCStatusPassed
	}
	return QCStatusDamageFound
}
