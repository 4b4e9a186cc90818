package queue

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/semaphore"

	"torrentstream/queueservice/internal/domain"
	"torrentstream/queueservice/internal/metrics"
)

// Snapshot is the merged outcome of one refresh cycle.
type Snapshot struct {
	CycleID   string
	Items     []domain.QueueItem
	Sources   []domain.SourceStatus
	State     domain.LoadState
	FetchedAt time.Time
	ElapsedMS int64
}

// Fetch queries every source of cfg concurrently and waits for all of them
// to settle. Failed sources are reported in Snapshot.Sources and excluded
// from the items; the remaining items keep source order.
func (s *Service) Fetch(ctx context.Context, cfg domain.QueueConfig) (Snapshot, error) {
	sources := cfg.EffectiveSources()
	if len(sources) == 0 || strings.TrimSpace(sources[0].AppID) == "" {
		return Snapshot{}, ErrNoSources
	}

	runCtx := ctx
	if _, hasDeadline := ctx.Deadline(); !hasDeadline && s.timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	cycleID := uuid.NewString()
	runCtx, span := s.tracer.Start(runCtx, "queue.fetch", trace.WithAttributes(
		attribute.String("queue.id", cfg.QualifiedID()),
		attribute.String("queue.cycle", cycleID),
		attribute.Bool("queue.combined", cfg.Combined()),
		attribute.Int("queue.sources", len(sources)),
	))
	defer span.End()

	startedAt := time.Now()
	combined := cfg.Combined()
	statuses := make([]domain.SourceStatus, len(sources))
	results := make([][]domain.QueueItem, len(sources))

	sem := semaphore.NewWeighted(s.maxConcurrent)
	var wg sync.WaitGroup
	for i, source := range sources {
		wg.Add(1)
		go func(index int, current domain.SourceDescriptor) {
			defer wg.Done()

			if err := sem.Acquire(runCtx, 1); err != nil {
				statuses[index] = domain.SourceStatus{
					SourceID:   current.AppID,
					SourceName: current.AppName,
					Error:      "context cancelled",
				}
				return
			}
			defer sem.Release(1)

			results[index], statuses[index] = s.fetchSource(runCtx, combined, current)
		}(i, source)
	}
	wg.Wait()

	snapshot := Snapshot{
		CycleID:   cycleID,
		Items:     make([]domain.QueueItem, 0),
		Sources:   statuses,
		State:     domain.LoadStateUnavailable,
		FetchedAt: time.Now(),
	}
	okCount := 0
	for i, status := range statuses {
		if !status.OK {
			continue
		}
		okCount++
		snapshot.Items = append(snapshot.Items, results[i]...)
	}
	if okCount > 0 {
		snapshot.State = domain.LoadStateReady
	}
	snapshot.ElapsedMS = time.Since(startedAt).Milliseconds()

	span.SetAttributes(
		attribute.Int("queue.sources_ok", okCount),
		attribute.Int("queue.items", len(snapshot.Items)),
	)
	if okCount == 0 {
		span.SetStatus(codes.Error, "all sources failed")
	}
	s.logger.Debug("queue fetched",
		slog.String("queue", cfg.QualifiedID()),
		slog.String("cycle", cycleID),
		slog.Int("sourcesOk", okCount),
		slog.Int("sources", len(sources)),
		slog.Int("items", len(snapshot.Items)),
		slog.Int64("durationMs", snapshot.ElapsedMS),
	)
	return snapshot, nil
}

func (s *Service) fetchSource(ctx context.Context, combined bool, source domain.SourceDescriptor) ([]domain.QueueItem, domain.SourceStatus) {
	status := domain.SourceStatus{
		SourceID:   source.AppID,
		SourceName: source.AppName,
	}

	normalizer, err := s.backends.Resolve(source.Type, source.AppID)
	if err != nil {
		status.Error = err.Error()
		s.logger.Warn("queue source has no backend",
			slog.String("sourceId", source.AppID),
			slog.String("type", source.Type),
			slog.String("error", err.Error()),
		)
		s.recordSourceResult(source.AppID, "", err, 0, 0, time.Now())
		return nil, status
	}
	status.Backend = normalizer.Name()

	startedAt := time.Now()
	records, err := s.fetcher.Fetch(ctx, source)
	latency := time.Since(startedAt)
	status.LatencyMS = latency.Milliseconds()
	if err != nil {
		status.Error = err.Error()
		s.logger.Warn("queue source fetch failed",
			slog.String("sourceId", source.AppID),
			slog.String("backend", status.Backend),
			slog.Int64("durationMs", status.LatencyMS),
			slog.String("error", err.Error()),
		)
		s.recordSourceResult(source.AppID, status.Backend, err, latency, 0, time.Now())
		return nil, status
	}

	sourceCtx := domain.SourceContext{
		Combined:   combined,
		SourceID:   source.AppID,
		SourceName: source.AppName,
	}
	items := make([]domain.QueueItem, 0, len(records))
	for _, record := range records {
		item, ok := normalizer.Normalize(record, sourceCtx)
		if !ok {
			status.Dropped++
			continue
		}
		items = append(items, item)
	}
	if status.Dropped > 0 {
		metrics.DroppedRecordsTotal.WithLabelValues(strings.ToLower(source.AppID)).Add(float64(status.Dropped))
		s.logger.Debug("queue records dropped",
			slog.String("sourceId", source.AppID),
			slog.Int("dropped", status.Dropped),
		)
	}

	status.OK = true
	status.Count = len(items)
	s.recordSourceResult(source.AppID, status.Backend, nil, latency, len(items), time.Now())
	return items, status
}
