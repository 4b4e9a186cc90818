package queue

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"torrentstream/queueservice/internal/domain"
	"torrentstream/queueservice/internal/metrics"
)

// Snapshotter runs one refresh cycle for a queue.
type Snapshotter interface {
	Fetch(ctx context.Context, cfg domain.QueueConfig) (Snapshot, error)
}

// Queue holds the client-side state of one resolved queue: the last applied
// snapshot plus filter and sort selections. Filter and sort changes never
// trigger a fetch.
type Queue struct {
	id     string
	cfg    domain.QueueConfig
	source Snapshotter
	logger *slog.Logger

	tokens atomic.Uint64

	mu        sync.Mutex
	state     domain.QueueState
	load      domain.LoadState
	sources   []domain.SourceStatus
	applied   uint64
	updatedAt time.Time
}

func NewQueue(cfg domain.QueueConfig, source Snapshotter, logger *slog.Logger) *Queue {
	if logger == nil {
		logger = slog.Default()
	}
	return &Queue{
		id:     cfg.ID(),
		cfg:    cfg,
		source: source,
		logger: logger,
		state:  domain.NewQueueState(),
		load:   domain.LoadStateLoading,
	}
}

// ID is the handle the queue is addressed by. It is the config's ID unless
// the registry had to qualify it.
func (q *Queue) ID() string {
	return q.id
}

func (q *Queue) Config() domain.QueueConfig {
	return q.cfg
}

// Refresh runs a fetch cycle and applies its result unless a cycle that
// started later has already been applied. It reports whether the result
// was applied.
func (q *Queue) Refresh(ctx context.Context) (bool, error) {
	token := q.tokens.Add(1)
	snapshot, err := q.source.Fetch(ctx, q.cfg)
	if err != nil {
		return false, fmt.Errorf("refresh queue %s: %w", q.ID(), err)
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	if token <= q.applied {
		metrics.CyclesTotal.WithLabelValues(q.ID(), "discarded").Inc()
		q.logger.Debug("stale queue cycle discarded",
			slog.String("queue", q.ID()),
			slog.Uint64("token", token),
			slog.Uint64("applied", q.applied),
		)
		return false, nil
	}

	q.applied = token
	q.state.Items = snapshot.Items
	q.sources = snapshot.Sources
	q.load = snapshot.State
	q.updatedAt = snapshot.FetchedAt
	metrics.CyclesTotal.WithLabelValues(q.ID(), "applied").Inc()
	return true, nil
}

// SetFilters replaces the type and status filters. Empty values mean "all".
func (q *Queue) SetFilters(typeFilter, statusFilter string) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.state.TypeFilter = domain.NormalizeFilter(typeFilter)
	q.state.StatusFilter = domain.NormalizeFilter(statusFilter)
}

// SelectSort selects a sort column. Selecting the current column flips the
// direction, a new column starts ascending.
func (q *Queue) SelectSort(column int) error {
	if column < 0 || column >= ColumnCount {
		return fmt.Errorf("%w: %d", ErrInvalidColumn, column)
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	if q.state.SortIndex == column {
		if q.state.SortDir == domain.SortAsc {
			q.state.SortDir = domain.SortDesc
		} else {
			q.state.SortDir = domain.SortAsc
		}
		return nil
	}
	q.state.SortIndex = column
	q.state.SortDir = domain.SortAsc
	return nil
}

// SetSort sets column and direction directly. A negative column restores
// the merged order.
func (q *Queue) SetSort(column int, dir domain.SortDir) error {
	if column >= ColumnCount {
		return fmt.Errorf("%w: %d", ErrInvalidColumn, column)
	}
	if column < 0 {
		column = -1
	}

	q.mu.Lock()
	defer q.mu.Unlock()
	q.state.SortIndex = column
	q.state.SortDir = domain.NormalizeSortDir(string(dir))
	return nil
}

func (q *Queue) LoadState() domain.LoadState {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.load
}

func (q *Queue) Summary() domain.QueueSummary {
	q.mu.Lock()
	defer q.mu.Unlock()
	return domain.QueueSummary{
		ID:       q.id,
		AppID:    q.cfg.AppID,
		AppName:  q.cfg.AppName,
		Prefix:   q.cfg.Prefix,
		Combined: q.cfg.Combined(),
		Sources:  len(q.cfg.EffectiveSources()),
		State:    q.load,
		Items:    len(q.state.Items),
	}
}

// View renders the current state with filters and sort applied.
func (q *Queue) View() domain.QueueView {
	q.mu.Lock()
	defer q.mu.Unlock()

	combined := q.cfg.Combined()
	items := Apply(q.state.Items, q.state.TypeFilter, q.state.StatusFilter, combined, q.state.SortIndex, q.state.SortDir)
	sources := make([]domain.SourceStatus, len(q.sources))
	copy(sources, q.sources)

	view := domain.QueueView{
		ID:            q.id,
		AppID:         q.cfg.AppID,
		AppName:       q.cfg.AppName,
		Prefix:        q.cfg.Prefix,
		Combined:      combined,
		State:         q.load,
		Items:         items,
		TotalItems:    len(q.state.Items),
		SortIndex:     q.state.SortIndex,
		SortDir:       q.state.SortDir,
		TypeFilter:    q.state.TypeFilter,
		StatusFilter:  q.state.StatusFilter,
		TypeOptions:   TypeOptions(q.cfg, q.state.Items),
		StatusOptions: StatusOptions(),
		Sources:       sources,
		Cycle:         q.applied,
	}
	if !q.updatedAt.IsZero() {
		updatedAt := q.updatedAt
		view.UpdatedAt = &updatedAt
	}
	return view
}
