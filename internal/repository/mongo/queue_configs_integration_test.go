package mongorepo

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/mongo/options"

	"torrentstream/queueservice/internal/domain"
)

// testMongoURI returns the MongoDB connection URI for integration tests.
// Defaults to localhost:27017. Set MONGO_TEST_URI to override.
func testMongoURI() string {
	if uri := os.Getenv("MONGO_TEST_URI"); uri != "" {
		return uri
	}
	return "mongodb://localhost:27017"
}

// setupTestRepo connects to MongoDB and returns a repository on a unique
// test database. Calls t.Skip if MongoDB is unreachable.
func setupTestRepo(t *testing.T) (*QueueConfigRepository, func()) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	uri := testMongoURI()
	client, err := Connect(ctx, uri, options.Client().SetConnectTimeout(3*time.Second).SetServerSelectionTimeout(3*time.Second))
	if err != nil {
		t.Skipf("MongoDB not available at %s: %v", uri, err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		t.Skipf("MongoDB ping failed at %s: %v", uri, err)
	}

	dbName := fmt.Sprintf("queue_test_%d", time.Now().UnixNano())
	repo := NewQueueConfigRepository(client, dbName, "queue_configs")

	cleanup := func() {
		ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel2()
		_ = client.Database(dbName).Drop(ctx2)
		_ = client.Disconnect(ctx2)
	}
	return repo, cleanup
}

func TestQueueConfigRepositoryRoundTrip(t *testing.T) {
	repo, cleanup := setupTestRepo(t)
	defer cleanup()
	ctx := context.Background()

	if items, err := repo.List(ctx); err != nil || len(items) != 0 {
		t.Fatalf("expected empty collection, got %#v %v", items, err)
	}

	cfg := domain.QueueConfig{
		AppID:   "downloads",
		AppName: "Downloads",
		Prefix:  "All",
		Sources: []domain.SourceDescriptor{
			{AppID: "transmission", AppName: "Transmission"},
			{AppID: "nzb", AppName: "NZBGet", Type: "nzbget"},
		},
	}
	if err := repo.Upsert(ctx, cfg); err != nil {
		t.Fatalf("Upsert: %v", err)
	}

	stored, err := repo.List(ctx)
	if err != nil || len(stored) != 1 {
		t.Fatalf("List: %#v %v", stored, err)
	}
	if got := stored[0]; got.AppID != "downloads" || got.Prefix != "All" || len(got.Sources) != 2 || got.Sources[1].Type != "nzbget" {
		t.Fatalf("unexpected config: %#v", got)
	}

	cfg.AppName = "Renamed"
	if err := repo.Upsert(ctx, cfg); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	if err := repo.Upsert(ctx, domain.QueueConfig{AppID: "qbittorrent", AppName: "qBittorrent"}); err != nil {
		t.Fatalf("Upsert: %v", err)
	}

	items, err := repo.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(items) != 2 || items[0].AppName != "Renamed" || items[1].AppID != "qbittorrent" {
		t.Fatalf("unexpected list: %#v", items)
	}

	if err := repo.Delete(ctx, "downloads|all"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	items, err = repo.List(ctx)
	if err != nil || len(items) != 1 {
		t.Fatalf("expected one config after delete, got %#v %v", items, err)
	}
}

func TestQueueConfigRepositoryKeepsSamePrefixQueuesApart(t *testing.T) {
	repo, cleanup := setupTestRepo(t)
	defer cleanup()
	ctx := context.Background()

	for _, cfg := range []domain.QueueConfig{
		{AppID: "qbittorrent", Prefix: "downloads"},
		{AppID: "sabnzbd", Prefix: "downloads"},
	} {
		if err := repo.Upsert(ctx, cfg); err != nil {
			t.Fatalf("Upsert: %v", err)
		}
	}
	items, err := repo.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(items) != 2 || items[0].AppID != "qbittorrent" || items[1].AppID != "sabnzbd" {
		t.Fatalf("expected both same-prefix queues, got %#v", items)
	}
}
