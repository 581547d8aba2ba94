package qc

// State is the lifecycle state of an inspection session.
type State string

const (
	// StateCollecting: results are being filled in.
	StateCollecting State = "collecting"
	// StateReviewing: the inspector is checking results before submitting,
	// or is back after a failed submission.
	StateReviewing State = "reviewing"
	// StateSubmitting: results are on their way to the sink.
	StateSubmitting State = "submitting"
	// StateComplete: results are stored. Terminal.
	StateComplete State = "complete"
	// StateFailed: the last submission failed.
	StateFailed State = "failed"
	// StateCancelled: the session was closed without submitting. Terminal.
	StateCancelled State = "cancelled"
)

// Closed reports whether the session accepts no further operations.
func (s State) Closed() bool {
	return s == StateComplete || s == StateCancelled
}

// CanTransitionTo checks if a session can move from s to target.
//
// Valid transitions:
//   - collecting -> reviewing
//   - reviewing -> submitting
//   - submitting -> complete | failed
//   - failed -> reviewing
//   - collecting | reviewing | failed -> cancelled
func (s State) CanTransitionTo(target State) bool {
	if target == StateCancelled {
		return s == StateCollecting || s == StateReviewing || s == StateFailed
	}

	switch s {
	case StateCollecting:
		return target == StateReviewing
	case StateReviewing:
		return target == StateSubmitting
	case StateSubmitting:
		return target == StateComplete || target == StateFailed
	case StateFailed:
		return target == StateReviewing
	}
	return false
}

// lifecycle holds the state shared by single and bulk sessions. Callers
// hold the owning session's lock.
type lifecycle struct {
	state   State
	lastErr error
}

func (l *lifecycle) move(target State) {
	if !l.state.CanTransitionTo(target) {
		panic("qc: invalid transition " + string(l.state) + " -> " + string(target))
	}
	l.state = target
}

// edit prepares for a change of results or notes.
func (l *lifecycle) edit() error {
	switch l.state {
	case StateComplete, StateCancelled:
		return ErrSessionClosed
	case StateSubmitting:
		return ErrSubmitting
	case StateFailed:
		l.move(StateReviewing)
	}
	return nil
}

// review moves an open session into reviewing.
func (l *lifecycle) review() error {
	switch l.state {
	case StateCollecting, StateFailed:
		l.move(StateReviewing)
	case StateReviewing:
	case StateSubmitting:
		return ErrSubmitting
	default:
		return ErrSessionClosed
	}
	return nil
}

// beginSubmit moves the session to submitting, passing through reviewing.
func (l *lifecycle) beginSubmit() error {
	if err := l.review(); err != nil {
		return err
	}
	l.move(StateSubmitting)
	return nil
}

// finishSubmit records the outcome of a submission.
func (l *lifecycle) finishSubmit(err error) {
	if err != nil {
		l.lastErr = err
		l.move(StateFailed)
		return
	}
	l.lastErr = nil
	l.move(StateComplete)
}

func (l *lifecycle) cancel() error {
	switch l.state {
	case StateSubmitting:
		return ErrSubmitting
	case StateComplete, StateCancelled:
		return ErrSessionClosed
	}
	l.move(StateCancelled)
	return nil
}

func (l *lifecycle) lastError() string {
	if l.lastErr == nil {
		return ""
	}
	return l.lastErr.Error()
}
