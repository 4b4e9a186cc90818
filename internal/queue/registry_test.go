package queue

import (
	"context"
	"errors"
	"strings"
	"testing"

	"torrentstream/queueservice/internal/domain"
)

func TestRegistryReloadKeepsUnchangedQueues(t *testing.T) {
	source := &staticSource{snapshot: snapshotWithTitles(domain.LoadStateReady, "a")}
	store := &memoryStore{configs: []domain.QueueConfig{{AppID: "sabnzbd", Prefix: "sab"}}}
	registry := NewRegistry(source, &domain.QueueConfig{AppID: "qbittorrent", Prefix: "qbt"}, nil, WithConfigStore(store))

	created, err := registry.Reload(context.Background())
	if err != nil {
		t.Fatalf("Reload: %v", err)
	}
	if len(created) != 2 {
		t.Fatalf("expected 2 new queues, got %d", len(created))
	}
	registry.RefreshAll(context.Background(), created)

	qbt, err := registry.Get("QBT")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if qbt.LoadState() != domain.LoadStateReady {
		t.Fatalf("expected refreshed queue, got %q", qbt.LoadState())
	}

	store.configs = append(store.configs, domain.QueueConfig{AppID: "nzbget", Prefix: "nzb"})
	created, err = registry.Reload(context.Background())
	if err != nil {
		t.Fatalf("Reload: %v", err)
	}
	if len(created) != 1 || created[0].ID() != "nzb" {
		t.Fatalf("expected only nzb to be new, got %#v", created)
	}
	again, _ := registry.Get("qbt")
	if again != qbt {
		t.Fatal("unchanged queue must keep its state")
	}

	summaries := registry.List()
	if len(summaries) != 3 || summaries[0].ID != "qbt" || summaries[2].ID != "nzb" {
		t.Fatalf("unexpected summaries: %#v", summaries)
	}
}

func TestRegistryFileEntryWinsOverStoredDuplicate(t *testing.T) {
	store := &memoryStore{configs: []domain.QueueConfig{{AppID: "qbittorrent", AppName: "Stored", Prefix: "qbt"}}}
	registry := NewRegistry(&staticSource{}, nil, []domain.QueueConfig{{AppID: "qbittorrent", AppName: "File", Prefix: "qbt"}}, WithConfigStore(store))
	if _, err := registry.Reload(context.Background()); err != nil {
		t.Fatalf("Reload: %v", err)
	}
	queue, err := registry.Get("qbt")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if queue.Config().AppName != "File" {
		t.Fatalf("expected file descriptor, got %q", queue.Config().AppName)
	}
}

func TestRegistryStoreFailureFallsBackToFile(t *testing.T) {
	store := &memoryStore{listErr: errors.New("redis down")}
	registry := NewRegistry(&staticSource{}, nil, []domain.QueueConfig{{AppID: "qbittorrent"}}, WithConfigStore(store))

	created, err := registry.Reload(context.Background())
	if err == nil {
		t.Fatal("expected store error to be reported")
	}
	if len(created) != 1 {
		t.Fatalf("expected file queue to load, got %d", len(created))
	}
	if _, err := registry.Get("qbittorrent"); err != nil {
		t.Fatalf("expected queue addressed by app id: %v", err)
	}
}

func TestRegistryGetUnknown(t *testing.T) {
	registry := NewRegistry(&staticSource{}, nil, nil)
	if _, err := registry.Get("missing"); !errors.Is(err, ErrUnknownQueue) {
		t.Fatalf("expected ErrUnknownQueue, got %v", err)
	}
}

func TestRegistryUpsertAndDelete(t *testing.T) {
	source := &staticSource{snapshot: snapshotWithTitles(domain.LoadStateReady, "a")}
	store := &memoryStore{}
	registry := NewRegistry(source, nil, nil, WithConfigStore(store))

	if err := registry.Upsert(context.Background(), domain.QueueConfig{Prefix: "bad"}); !errors.Is(err, ErrInvalidQueueConfig) {
		t.Fatalf("expected ErrInvalidQueueConfig, got %v", err)
	}
	if err := registry.Upsert(context.Background(), domain.QueueConfig{AppID: "transmission", Prefix: "tr"}); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	queue, err := registry.Get("tr")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if queue.LoadState() != domain.LoadStateReady || source.callCount() != 1 {
		t.Fatalf("expected new queue to be fetched once, got %q after %d calls", queue.LoadState(), source.callCount())
	}

	if err := registry.Delete(context.Background(), "TR"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := registry.Get("tr"); !errors.Is(err, ErrUnknownQueue) {
		t.Fatalf("expected queue to be gone, got %v", err)
	}
}

func TestRegistryKeepsSamePrefixQueuesApart(t *testing.T) {
	source := &staticSource{snapshot: snapshotWithTitles(domain.LoadStateReady, "a")}
	store := &memoryStore{}
	registry := NewRegistry(source, nil, []domain.QueueConfig{
		{AppID: "transmission"},
	}, WithConfigStore(store))
	ctx := context.Background()

	if err := registry.Upsert(ctx, domain.QueueConfig{AppID: "qbittorrent", Prefix: "downloads"}); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	if _, err := registry.Get("downloads"); err != nil {
		t.Fatalf("a lone prefix should stay addressable: %v", err)
	}
	if err := registry.Upsert(ctx, domain.QueueConfig{AppID: "sabnzbd", Prefix: "Downloads"}); err != nil {
		t.Fatalf("Upsert: %v", err)
	}

	stored, err := registry.StoredConfigs(ctx)
	if err != nil || len(stored) != 2 {
		t.Fatalf("expected both descriptors stored, got %#v %v", stored, err)
	}
	for id, appID := range map[string]string{"qbittorrent-downloads": "qbittorrent", "SABNZBD-downloads": "sabnzbd"} {
		queue, err := registry.Get(id)
		if err != nil {
			t.Fatalf("Get(%q): %v", id, err)
		}
		if queue.Config().AppID != appID || queue.Summary().ID != strings.ToLower(id) {
			t.Fatalf("Get(%q) returned %q as %q", id, queue.Config().AppID, queue.Summary().ID)
		}
	}
	if _, err := registry.Get("downloads"); !errors.Is(err, ErrUnknownQueue) {
		t.Fatalf("shared prefix should not resolve to either queue, got %v", err)
	}
	if got := len(registry.List()); got != 3 {
		t.Fatalf("expected 3 queues, got %d", got)
	}

	if err := registry.Delete(ctx, "downloads"); !errors.Is(err, ErrInvalidQueueConfig) {
		t.Fatalf("expected ambiguous delete to fail, got %v", err)
	}
	if err := registry.Delete(ctx, "sabnzbd-downloads"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	queue, err := registry.Get("downloads")
	if err != nil || queue.Config().AppID != "qbittorrent" {
		t.Fatalf("remaining queue should take the plain prefix back, got %v", err)
	}
	if err := registry.Delete(ctx, "missing"); !errors.Is(err, ErrUnknownQueue) {
		t.Fatalf("expected ErrUnknownQueue, got %v", err)
	}
}

func TestRegistryRejectsReservedQueueIDs(t *testing.T) {
	store := &memoryStore{}
	registry := NewRegistry(&staticSource{}, nil, []domain.QueueConfig{
		{AppID: "transmission", Prefix: "settings"},
		{AppID: "sources"},
	}, WithConfigStore(store))
	ctx := context.Background()

	for _, cfg := range []domain.QueueConfig{
		{AppID: "qbittorrent", Prefix: "Settings"},
		{AppID: "sources"},
	} {
		if err := registry.Upsert(ctx, cfg); !errors.Is(err, ErrInvalidQueueConfig) {
			t.Fatalf("Upsert(%#v): expected ErrInvalidQueueConfig, got %v", cfg, err)
		}
	}
	if _, err := registry.Reload(ctx); err != nil {
		t.Fatalf("Reload: %v", err)
	}
	if _, err := registry.Get("transmission-settings"); err != nil {
		t.Fatalf("file queue on a reserved prefix should be qualified: %v", err)
	}
	if _, err := registry.Get("sources"); !errors.Is(err, ErrUnknownQueue) {
		t.Fatalf("expected reserved id to be skipped, got %v", err)
	}
	if got := len(registry.List()); got != 1 {
		t.Fatalf("expected 1 queue, got %d", got)
	}
}

func TestRegistryWithoutStore(t *testing.T) {
	registry := NewRegistry(&staticSource{}, nil, nil)
	if err := registry.Upsert(context.Background(), domain.QueueConfig{AppID: "x"}); !errors.Is(err, ErrStoreUnavailable) {
		t.Fatalf("expected ErrStoreUnavailable, got %v", err)
	}
	if _, err := registry.StoredConfigs(context.Background()); !errors.Is(err, ErrStoreUnavailable) {
		t.Fatalf("expected ErrStoreUnavailable, got %v", err)
	}
}
