package model

// DamageAssessment tracks remediation of an item that failed QC.
type DamageAssessment struct {
	ID                string   `json:"id"`
	QCResultID        string   `json:"qc_result_id"`
	DamageType        string   `json:"damage_type"`
	Severity          string   `json:"severity"`
	RepairEstimate    *float64 `json:"repair_estimate,omitempty"`
	RepairNotes       string   `json:"repair_notes,omitempty"`
	RecommendedAction string   `json:"recommended_action"`
	AssignedTo        string   `json:"assigned_to,omitempty"`
	Status            string   `json:"status"`
}

// Severities.
const (
	SeverityMinor    = "minor"
	SeverityModerate = "moderate"
	SeveritySevere   = "severe"
)

// Recommended actions.
const (
	ActionRepair  = "repair"
	ActionReplace = "replace"
	ActionDispose = "dispose"
)

// Assessment statuses.
const (
	AssessmentPending    = "pending"
	AssessmentInProgress = "in-progress"
	AssessmentCompleted  = "completed"
)

// ValidSeverity reports whether s is a known severity.
func ValidSeverity(s string) bool {
	return s == SeverityMinor || s == SeverityModerate || s == SeveritySevere
}

// ValidAction reports whether a is a known recommended action.
func ValidAction(a string) bool {
	return a == ActionRepair || a == ActionReplace || a == ActionDispose
}

// ValidAssessmentStatus reports whether s is a known assessment status.
func ValidAssessmentStatus(s string) bool {
	return s == AssessmentPending || s == AssessmentInProgress || s == AssessmentCompleted
}
