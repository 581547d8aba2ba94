package model

import (
	"strconv"
	"time"
)

// Tool is one physical tool in the register.
type Tool struct {
	ID           int64      `json:"id"`
	Name         string     `json:"name"`
	SerialNumber string     `json:"serial_number"`
	Category     string     `json:"category"`
	Description  string     `json:"description,omitempty"`
	Status       string     `json:"status"`
	Holder       string     `json:"holder,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
	DeletedAt    *time.Time `json:"deleted_at,omitempty"`
}

// Tool statuses.
const (
	ToolStatusAvailable  = "available"
	ToolStatusCheckedOut = "checked-out"
	ToolStatusInQC       = "in-qc"
	ToolStatusDamaged    = "damaged"
	ToolStatusRetired    = "retired"
)

// ValidToolStatus reports whether s is a known tool status.
func ValidToolStatus(s string) bool {
	switch s {
	case ToolStatusAvailable, ToolStatusCheckedOut, ToolStatusInQC, ToolStatusDamaged, ToolStatusRetired:
		return true
	}
	return false
}

// ToolStatusFor maps an overall QC verdict to the status of the inspected tool.
func ToolStatusFor(overall string) string {
	if overall == OverallPass {
		return ToolStatusAvailable
	}
	return ToolStatusDamaged
}

// ToolRef is the tool ID as a QC item records it.
func ToolRef(id int64) string {
	return strconv.FormatInt(id, 10)
}

// Transfer records a tool leaving the store or coming back.
type Transfer struct {
	ID            int64     `json:"id"`
	ToolID        int64     `json:"tool_id"`
	Kind          string    `json:"kind"`
	Holder        string    `json:"holder"`
	Notes         string    `json:"notes,omitempty"`
	QCItemID      string    `json:"qc_item_id,omitempty"`
	TransferredAt time.Time `json:"transferred_at"`
	TransferredBy *int64    `json:"transferred_by,omitempty"`

	// Joined fields (not always populated).
	ToolName string `json:"tool_name,omitempty"`
	Username string `json:"username,omitempty"`
}

// Transfer kinds.
const (
	TransferCheckout = "checkout"
	TransferReturn   = "return"
)

// Activity is one entry of the tool activity log.
type Activity struct {
	ID       int64     `json:"id"`
	Action   string    `json:"action"`
	Name     string    `json:"name"`
	User     string    `json:"user"`
	Holder   string    `json:"holder"`
	Date     time.Time `json:"date"`
	QCItemID string    `json:"qc_item_id,omitempty"`
}

// Activity actions, as shown in the log.
const (
	ActivityCheckedOut = "Checked Out"
	ActivityReturned   = "Returned"
)

// ActivityAction labels a transfer kind for the activity log.
func ActivityAction(kind string) string {
	if kind == TransferReturn {
		return ActivityReturned
	}
	return ActivityCheckedOut
}

// ActivityFilter narrows the activity log. Zero fields match everything.
type ActivityFilter struct {
	Action string
	Search string
	Range  *DateRange
	Limit  int
}
