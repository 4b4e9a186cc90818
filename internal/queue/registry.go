package queue

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"torrentstream/queueservice/internal/domain"
)

// ConfigStore persists queue descriptors managed at runtime. Descriptors are
// keyed by QueueConfig.Key, so two queues sharing a prefix are kept apart.
type ConfigStore interface {
	List(ctx context.Context) ([]domain.QueueConfig, error)
	Upsert(ctx context.Context, cfg domain.QueueConfig) error
	Delete(ctx context.Context, key string) error
}

// Registry owns one Queue per resolved descriptor. Static descriptors come
// from the queue file; stored descriptors are appended after them, so a
// file entry wins over a stored duplicate.
type Registry struct {
	source Snapshotter
	single *domain.QueueConfig
	static []domain.QueueConfig
	store  ConfigStore
	logger *slog.Logger

	refreshLimit int

	mu     sync.RWMutex
	queues map[string]*Queue
	order  []string
}

type RegistryOption func(*Registry)

func WithConfigStore(store ConfigStore) RegistryOption {
	return func(r *Registry) {
		r.store = store
	}
}

func WithRegistryLogger(logger *slog.Logger) RegistryOption {
	return func(r *Registry) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithRefreshLimit bounds how many queues RefreshAll refreshes at once.
func WithRefreshLimit(limit int) RegistryOption {
	return func(r *Registry) {
		if limit > 0 {
			r.refreshLimit = limit
		}
	}
}

func NewRegistry(source Snapshotter, single *domain.QueueConfig, static []domain.QueueConfig, opts ...RegistryOption) *Registry {
	r := &Registry{
		source:       source,
		single:       single,
		static:       static,
		logger:       slog.Default(),
		refreshLimit: 4,
		queues:       make(map[string]*Queue),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Reload re-resolves descriptors from the file and the store. Queues whose
// descriptor did not change keep their state; the returned queues are new
// and have not been fetched yet.
func (r *Registry) Reload(ctx context.Context) ([]*Queue, error) {
	list := make([]domain.QueueConfig, 0, len(r.static))
	list = append(list, r.static...)

	var storeErr error
	if r.store != nil {
		stored, err := r.store.List(ctx)
		if err != nil {
			storeErr = fmt.Errorf("list stored queues: %w", err)
			r.logger.Warn("queue config store unavailable, using file descriptors only",
				slog.String("error", err.Error()),
			)
		} else {
			list = append(list, stored...)
		}
	}
	resolved := ResolveQueues(r.single, list)

	r.mu.Lock()
	defer r.mu.Unlock()

	handles := QueueHandles(resolved)
	next := make(map[string]*Queue, len(resolved))
	order := make([]string, 0, len(resolved))
	var created []*Queue
	for i, cfg := range resolved {
		id := handles[i]
		if id == "" {
			r.logger.Warn("queue ignored, no usable id",
				slog.String("queue", cfg.ID()),
				slog.String("appId", cfg.AppID),
			)
			continue
		}
		if existing, ok := r.queues[id]; ok && sameConfig(existing.Config(), cfg) {
			next[id] = existing
		} else {
			queue := NewQueue(cfg, r.source, r.logger)
			queue.id = id
			next[id] = queue
			created = append(created, queue)
		}
		order = append(order, id)
	}
	r.queues = next
	r.order = order
	return created, storeErr
}

func sameConfig(a, b domain.QueueConfig) bool {
	return a.AppID == b.AppID &&
		a.AppName == b.AppName &&
		a.Prefix == b.Prefix &&
		a.Type == b.Type &&
		slices.Equal(a.Sources, b.Sources)
}

func (r *Registry) Get(id string) (*Queue, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	queue, ok := r.queues[strings.ToLower(strings.TrimSpace(id))]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownQueue, id)
	}
	return queue, nil
}

// Queues returns the queues in resolution order.
func (r *Registry) Queues() []*Queue {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Queue, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.queues[id])
	}
	return out
}

func (r *Registry) List() []domain.QueueSummary {
	queues := r.Queues()
	out := make([]domain.QueueSummary, 0, len(queues))
	for _, queue := range queues {
		out = append(out, queue.Summary())
	}
	return out
}

// RefreshAll runs one cycle for each queue. A failing queue is logged and
// does not stop the others.
func (r *Registry) RefreshAll(ctx context.Context, queues []*Queue) {
	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(r.refreshLimit)
	for _, queue := range queues {
		group.Go(func() error {
			if _, err := queue.Refresh(groupCtx); err != nil {
				r.logger.Warn("queue refresh failed",
					slog.String("queue", queue.ID()),
					slog.String("error", err.Error()),
				)
			}
			return nil
		})
	}
	_ = group.Wait()
}

// StoredConfigs lists the descriptors held by the runtime store.
func (r *Registry) StoredConfigs(ctx context.Context) ([]domain.QueueConfig, error) {
	if r.store == nil {
		return nil, ErrStoreUnavailable
	}
	return r.store.List(ctx)
}

// Upsert stores a descriptor, reloads and fetches any new queue once.
func (r *Registry) Upsert(ctx context.Context, cfg domain.QueueConfig) error {
	if r.store == nil {
		return ErrStoreUnavailable
	}
	if err := ValidateConfig(cfg); err != nil {
		return err
	}
	if err := r.store.Upsert(ctx, normalizeConfig(cfg)); err != nil {
		return fmt.Errorf("store queue config: %w", err)
	}
	return r.reloadAndRefresh(ctx)
}

// Delete removes a stored descriptor and reloads. The id is matched against
// the qualified id ("appid-prefix") first, then the plain id.
func (r *Registry) Delete(ctx context.Context, id string) error {
	if r.store == nil {
		return ErrStoreUnavailable
	}
	id = strings.ToLower(strings.TrimSpace(id))
	if id == "" {
		return ErrInvalidQueueConfig
	}
	stored, err := r.store.List(ctx)
	if err != nil {
		return fmt.Errorf("list stored queues: %w", err)
	}
	key, err := matchStoredKey(stored, id)
	if err != nil {
		return err
	}
	if err := r.store.Delete(ctx, key); err != nil {
		return fmt.Errorf("delete queue config: %w", err)
	}
	return r.reloadAndRefresh(ctx)
}

func matchStoredKey(stored []domain.QueueConfig, id string) (string, error) {
	for _, cfg := range stored {
		if cfg.QualifiedID() == id || cfg.Key() == id {
			return cfg.Key(), nil
		}
	}
	var keys []string
	for _, cfg := range stored {
		if cfg.ID() == id {
			keys = append(keys, cfg.Key())
		}
	}
	switch len(keys) {
	case 0:
		return "", fmt.Errorf("%w: %s", ErrUnknownQueue, id)
	case 1:
		return keys[0], nil
	default:
		return "", fmt.Errorf("%w: id %q matches %d stored queues, use appId-prefix", ErrInvalidQueueConfig, id, len(keys))
	}
}

func (r *Registry) reloadAndRefresh(ctx context.Context) error {
	created, err := r.Reload(ctx)
	if err != nil {
		return err
	}
	r.RefreshAll(ctx, created)
	return nil
}
