package qc

import (
	"errors"
	"fmt"
)

var (
	// ErrEmptySelection is returned when a bulk inspection has no items.
	ErrEmptySelection = errors.New("select at least one item for bulk inspection")

	// ErrMissingPhoto is returned when a failed criterion that requires
	// photo evidence has none.
	ErrMissingPhoto = errors.New("upload required photos for failed checks")

	// ErrUnknownCriterion is returned when a photo or result targets a
	// criterion that is not part of the checklist.
	ErrUnknownCriterion = errors.New("criterion is not part of this checklist")

	// ErrIncompleteResults is returned when a result leaves a checklist
	// criterion unanswered.
	ErrIncompleteResults = errors.New("answer every checklist criterion")

	// ErrDuplicateCriterion is returned when a result answers the same
	// criterion twice.
	ErrDuplicateCriterion = errors.New("criterion answered more than once")

	// ErrUnknownItem is returned when a bulk operation names an item
	// outside the selection.
	ErrUnknownItem = errors.New("item is not part of this inspection")

	// ErrSessionClosed is returned for operations on a completed or
	// cancelled session.
	ErrSessionClosed = errors.New("inspection session is closed")

	// ErrSessionNotFound is returned for an unknown session ID.
	ErrSessionNotFound = errors.New("inspection session not found")

	// ErrSubmitting is returned for edits while a submission is in flight.
	ErrSubmitting = errors.New("inspection is being submitted")
)

// IsValidation reports whether err was rejected before any external call.
func IsValidation(err error) bool {
	return errors.Is(err, ErrEmptySelection) ||
		errors.Is(err, ErrMissingPhoto) ||
		errors.Is(err, ErrUnknownCriterion) ||
		errors.Is(err, ErrIncompleteResults) ||
		errors.Is(err, ErrDuplicateCriterion) ||
		errors.Is(err, ErrUnknownItem)
}

// SubmissionError wraps any failure of the result sink. The cause is not
// classified; the caller decides whether to submit again.
type SubmissionError struct {
	Items int
	Err   error
}

func (e *SubmissionError) Error() string {
	if e.Items == 1 {
		return fmt.Sprintf("submitting qc result: %v", e.Err)
	}
	return fmt.Sprintf("submitting %d qc results: %v", e.Items, e.Err)
}

func (e *SubmissionError) Unwrap() error {
	return e.Err
}
