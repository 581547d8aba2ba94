package qc

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/erazemk/pregled/internal/model"
)

// Registry tracks open inspection sessions by ID. A session is removed
// when it completes, is cancelled, or sits idle past the sweep timeout.
type Registry struct {
	deps Deps

	mu       sync.Mutex
	single   map[string]*Session
	bulk     map[string]*BulkSession
	lastUsed map[string]time.Time
}

// NewRegistry returns an empty Registry. deps.OnComplete runs after a
// session is removed on completion.
func NewRegistry(deps Deps) *Registry {
	return &Registry{
		deps:     deps,
		single:   make(map[string]*Session),
		bulk:     make(map[string]*BulkSession),
		lastUsed: make(map[string]time.Time),
	}
}

// sessionDeps returns deps whose completion hook removes session id first.
func (r *Registry) sessionDeps(id string) Deps {
	d := r.deps
	next := r.deps.OnComplete
	d.OnComplete = func(ctx context.Context) {
		r.remove(id)
		if next != nil {
			next(ctx)
		}
	}
	return d
}

// StartSingle opens a session for one item.
func (r *Registry) StartSingle(ctx context.Context, item model.QCItem) (string, *Session, error) {
	id := uuid.NewString()
	s, err := NewSession(ctx, r.sessionDeps(id), item)
	if err != nil {
		return "", nil, err
	}

	r.mu.Lock()
	r.single[id] = s
	r.lastUsed[id] = r.deps.now()
	r.mu.Unlock()
	return id, s, nil
}

// StartBulk opens a session for several items.
func (r *Registry) StartBulk(ctx context.Context, items []model.QCItem) (string, *BulkSession, error) {
	id := uuid.NewString()
	b, err := NewBulkSession(ctx, r.sessionDeps(id), items)
	if err != nil {
		return "", nil, err
	}

	r.mu.Lock()
	r.bulk[id] = b
	r.lastUsed[id] = r.deps.now()
	r.mu.Unlock()
	return id, b, nil
}

// Single returns the single-item session with the given ID and marks it
// as used.
func (r *Registry) Single(id string) (*Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.single[id]
	if ok {
		r.lastUsed[id] = r.deps.now()
	}
	return s, ok
}

// Bulk returns the bulk session with the given ID and marks it as used.
func (r *Registry) Bulk(id string) (*BulkSession, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.bulk[id]
	if ok {
		r.lastUsed[id] = r.deps.now()
	}
	return b, ok
}

// Cancel cancels and removes a session of either kind.
func (r *Registry) Cancel(id string) error {
	if s, ok := r.Single(id); ok {
		if err := s.Cancel(); err != nil {
			return err
		}
		r.remove(id)
		return nil
	}
	if b, ok := r.Bulk(id); ok {
		if err := b.Cancel(); err != nil {
			return err
		}
		r.remove(id)
		return nil
	}
	return ErrSessionNotFound
}

// Len returns the number of open sessions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.single) + len(r.bulk)
}

// Sweep cancels and removes sessions that have not been used for longer
// than idle. Sessions with a submission in flight are kept. It returns the
// number of sessions removed.
func (r *Registry) Sweep(idle time.Duration) int {
	cutoff := r.deps.now().Add(-idle)

	type idleSession struct {
		id     string
		cancel func() error
	}
	var stale []idleSession
	r.mu.Lock()
	for id, used := range r.lastUsed {
		if !used.Before(cutoff) {
			continue
		}
		if s, ok := r.single[id]; ok {
			stale = append(stale, idleSession{id, s.Cancel})
		} else if b, ok := r.bulk[id]; ok {
			stale = append(stale, idleSession{id, b.Cancel})
		}
	}
	r.mu.Unlock()

	removed := 0
	for _, s := range stale {
		if err := s.cancel(); err != nil && !errors.Is(err, ErrSessionClosed) {
			continue
		}
		r.remove(s.id)
		removed++
	}
	return removed
}

// RunSweeper calls Sweep every interval until ctx is done.
func (r *Registry) RunSweeper(ctx context.Context, interval, idle time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := r.Sweep(idle); n > 0 {
				slog.Info("discarded idle qc sessions", "count", n, "idle", idle)
			}
		}
	}
}

func (r *Registry) remove(id string) {
	r.mu.Lock()
	delete(r.single, id)
	delete(r.bulk, id)
	delete(r.lastUsed, id)
	r.mu.Unlock()
}
