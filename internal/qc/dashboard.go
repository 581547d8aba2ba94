package qc

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/erazemk/pregled/internal/model"
)

// Snapshot is what the dashboard last loaded.
type Snapshot struct {
	Pending    []model.QCItem   `json:"pending"`
	Statistics model.Statistics `json:"statistics"`
	Range      *model.DateRange `json:"range,omitempty"`
	Notices    []string         `json:"notices,omitempty"`
	LoadedAt   time.Time        `json:"loaded_at"`
}

// Dashboard keeps the pending queue and statistics current and opens
// inspection sessions. A failed fetch keeps the previous data and leaves a
// notice instead.
type Dashboard struct {
	pending  PendingSource
	stats    StatisticsSource
	sessions *Registry

	mu         sync.RWMutex
	items      []model.QCItem
	statistics model.Statistics
	dateRange  *model.DateRange
	pendingErr error
	statsErr   error
	loadedAt   time.Time
}

// NewDashboard returns a Dashboard whose sessions are built from deps.
// Every completed session refreshes the dashboard.
func NewDashboard(pending PendingSource, stats StatisticsSource, deps Deps) *Dashboard {
	d := &Dashboard{
		pending: pending,
		stats:   stats,
		items:   []model.QCItem{},
	}
	next := deps.OnComplete
	deps.OnComplete = func(ctx context.Context) {
		d.Refresh(ctx)
		if next != nil {
			next(ctx)
		}
	}
	d.sessions = NewRegistry(deps)
	return d
}

// Sessions returns the registry of open sessions.
func (d *Dashboard) Sessions() *Registry {
	return d.sessions
}

// LoadPending fetches the items awaiting inspection.
func (d *Dashboard) LoadPending(ctx context.Context) ([]model.QCItem, error) {
	items, err := d.pending.PendingItems(ctx)

	d.mu.Lock()
	defer d.mu.Unlock()
	if err != nil {
		d.pendingErr = err
		slog.Error("failed to load pending qc items", "error", err)
		return nil, fmt.Errorf("loading pending items: %w", err)
	}
	d.pendingErr = nil
	d.items = items
	d.loadedAt = time.Now()
	return append([]model.QCItem(nil), items...), nil
}

// LoadStatistics fetches statistics for an optional date range. The range
// is remembered for later refreshes.
func (d *Dashboard) LoadStatistics(ctx context.Context, dateRange *model.DateRange) (model.Statistics, error) {
	stats, err := d.stats.Statistics(ctx, dateRange)

	d.mu.Lock()
	defer d.mu.Unlock()
	d.dateRange = dateRange
	if err != nil {
		d.statsErr = err
		slog.Error("failed to load qc statistics", "error", err)
		return model.Statistics{}, fmt.Errorf("loading statistics: %w", err)
	}
	d.statsErr = nil
	d.statistics = stats
	d.loadedAt = time.Now()
	return stats, nil
}

// Load fetches pending items and statistics concurrently. A failure of one
// does not stop the other.
func (d *Dashboard) Load(ctx context.Context, dateRange *model.DateRange) error {
	var g errgroup.Group
	g.Go(func() error {
		_, err := d.LoadPending(ctx)
		return err
	})
	g.Go(func() error {
		_, err := d.LoadStatistics(ctx, dateRange)
		return err
	})
	return g.Wait()
}

// Refresh reloads the dashboard with the last date range. Failures are
// recorded as notices.
func (d *Dashboard) Refresh(ctx context.Context) {
	d.mu.RLock()
	dateRange := d.dateRange
	d.mu.RUnlock()

	_ = d.Load(ctx, dateRange)
}

// StartSingle opens an inspection of one item.
func (d *Dashboard) StartSingle(ctx context.Context, item model.QCItem) (string, *Session, error) {
	return d.sessions.StartSingle(ctx, item)
}

// StartBulk opens an inspection of several items. An empty selection is
// rejected without any fetch.
func (d *Dashboard) StartBulk(ctx context.Context, items []model.QCItem) (string, *BulkSession, error) {
	if len(items) == 0 {
		return "", nil, ErrEmptySelection
	}
	return d.sessions.StartBulk(ctx, items)
}

// Snapshot returns the last loaded data with notices for failed fetches.
func (d *Dashboard) Snapshot() Snapshot {
	d.mu.RLock()
	defer d.mu.RUnlock()

	s := Snapshot{
		Pending:    append([]model.QCItem{}, d.items...),
		Statistics: d.statistics,
		Range:      d.dateRange,
		LoadedAt:   d.loadedAt,
	}
	if d.pendingErr != nil {
		s.Notices = append(s.Notices, "Could not load pending items: "+d.pendingErr.Error())
	}
	if d.statsErr != nil {
		s.Notices = append(s.Notices, "Could not load statistics: "+d.statsErr.Error())
	}
	return s
}
