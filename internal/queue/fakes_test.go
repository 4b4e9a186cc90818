package queue

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"torrentstream/queueservice/internal/domain"
)

type fakeResponse struct {
	records string
	err     error
	delay   time.Duration
}

type fakeFetcher struct {
	mu        sync.Mutex
	responses map[string]fakeResponse
	calls     map[string]int
}

func newFakeFetcher(responses map[string]fakeResponse) *fakeFetcher {
	return &fakeFetcher{responses: responses, calls: make(map[string]int)}
}

func (f *fakeFetcher) Fetch(ctx context.Context, source domain.SourceDescriptor) ([]json.RawMessage, error) {
	f.mu.Lock()
	f.calls[source.AppID]++
	response, ok := f.responses[source.AppID]
	f.mu.Unlock()

	if !ok {
		return nil, errors.New("connection refused")
	}
	if response.delay > 0 {
		select {
		case <-time.After(response.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if response.err != nil {
		return nil, response.err
	}
	var records []json.RawMessage
	if err := json.Unmarshal([]byte(response.records), &records); err != nil {
		return nil, err
	}
	return records, nil
}

func (f *fakeFetcher) callCount(appID string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[appID]
}

// gatedSource hands out snapshots per call number and blocks each call
// until its release channel is closed.
type gatedSource struct {
	mu        sync.Mutex
	calls     int
	started   chan int
	release   map[int]chan struct{}
	snapshots map[int]Snapshot
}

func newGatedSource(snapshots map[int]Snapshot) *gatedSource {
	release := make(map[int]chan struct{}, len(snapshots))
	for call := range snapshots {
		release[call] = make(chan struct{})
	}
	return &gatedSource{
		started:   make(chan int, len(snapshots)),
		release:   release,
		snapshots: snapshots,
	}
}

func (g *gatedSource) Fetch(ctx context.Context, _ domain.QueueConfig) (Snapshot, error) {
	g.mu.Lock()
	g.calls++
	call := g.calls
	gate := g.release[call]
	snapshot := g.snapshots[call]
	g.mu.Unlock()

	g.started <- call
	select {
	case <-gate:
	case <-ctx.Done():
		return Snapshot{}, ctx.Err()
	}
	return snapshot, nil
}

type staticSource struct {
	mu       sync.Mutex
	calls    int
	snapshot Snapshot
}

func (s *staticSource) Fetch(_ context.Context, _ domain.QueueConfig) (Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	return s.snapshot, nil
}

func (s *staticSource) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

type memoryStore struct {
	mu      sync.Mutex
	configs []domain.QueueConfig
	listErr error
}

func (m *memoryStore) List(_ context.Context) ([]domain.QueueConfig, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.listErr != nil {
		return nil, m.listErr
	}
	out := make([]domain.QueueConfig, len(m.configs))
	copy(out, m.configs)
	return out, nil
}

func (m *memoryStore) Upsert(_ context.Context, cfg domain.QueueConfig) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, existing := range m.configs {
		if existing.Key() == cfg.Key() {
			m.configs[i] = cfg
			return nil
		}
	}
	m.configs = append(m.configs, cfg)
	return nil
}

func (m *memoryStore) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	kept := m.configs[:0]
	for _, existing := range m.configs {
		if existing.Key() != key {
			kept = append(kept, existing)
		}
	}
	m.configs = kept
	return nil
}
