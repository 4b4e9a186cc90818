package queue

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"torrentstream/queueservice/internal/domain"
	"torrentstream/queueservice/internal/metrics"
)

type sourceHealth struct {
	backend             string
	consecutiveFailures int
	lastError           string
	lastSuccessAt       time.Time
	lastFailureAt       time.Time
	lastLatency         time.Duration
	lastTimeout         bool
	lastItemCount       int
	totalRequests       int64
	totalFailures       int64
	timeoutCount        int64
}

// recordSourceResult updates diagnostics and metrics for one fetch. A
// failing source is retried on the next cycle like any other.
func (s *Service) recordSourceResult(sourceID, backend string, err error, latency time.Duration, itemCount int, now time.Time) {
	if s == nil {
		return
	}
	name := strings.ToLower(strings.TrimSpace(sourceID))
	if name == "" {
		return
	}

	s.healthMu.Lock()
	defer s.healthMu.Unlock()

	state := s.health[name]
	if state == nil {
		state = &sourceHealth{}
		s.health[name] = state
	}
	if backend != "" {
		state.backend = backend
	}
	state.totalRequests++
	if latency > 0 {
		state.lastLatency = latency
		metrics.SourceRequestDuration.WithLabelValues(name).Observe(latency.Seconds())
	}
	state.lastTimeout = isTimeoutLikeError(err)
	if state.lastTimeout {
		state.timeoutCount++
	}

	if err == nil {
		state.consecutiveFailures = 0
		state.lastError = ""
		state.lastSuccessAt = now
		state.lastItemCount = itemCount
		metrics.SourceRequestsTotal.WithLabelValues(name, "ok").Inc()
		metrics.SourceAvailable.WithLabelValues(name).Set(1)
		metrics.SourceItems.WithLabelValues(name).Set(float64(itemCount))
		return
	}

	state.consecutiveFailures++
	state.totalFailures++
	state.lastFailureAt = now
	state.lastError = err.Error()

	status := "error"
	if state.lastTimeout {
		status = "timeout"
	}
	metrics.SourceRequestsTotal.WithLabelValues(name, status).Inc()
	metrics.SourceAvailable.WithLabelValues(name).Set(0)
}

func isTimeoutLikeError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	value := strings.ToLower(err.Error())
	return strings.Contains(value, "timeout") || strings.Contains(value, "deadline exceeded")
}

// SourceDiagnostics returns the recorded state of every source fetched so
// far, sorted by source id.
func (s *Service) SourceDiagnostics() []domain.SourceDiagnostics {
	s.healthMu.Lock()
	defer s.healthMu.Unlock()

	items := make([]domain.SourceDiagnostics, 0, len(s.health))
	for name, state := range s.health {
		item := domain.SourceDiagnostics{
			SourceID:            name,
			Backend:             state.backend,
			ConsecutiveFailures: state.consecutiveFailures,
			LastError:           state.lastError,
			LastLatencyMS:       state.lastLatency.Milliseconds(),
			LastTimeout:         state.lastTimeout,
			LastItemCount:       state.lastItemCount,
			TotalRequests:       state.totalRequests,
			TotalFailures:       state.totalFailures,
			TimeoutCount:        state.timeoutCount,
		}
		if !state.lastSuccessAt.IsZero() {
			lastSuccessAt := state.lastSuccessAt
			item.LastSuccessAt = &lastSuccessAt
		}
		if !state.lastFailureAt.IsZero() {
			lastFailureAt := state.lastFailureAt
			item.LastFailureAt = &lastFailureAt
		}
		items = append(items, item)
	}

	sort.Slice(items, func(i, j int) bool {
		return items[i].SourceID < items[j].SourceID
	})
	return items
}
