package app

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadConfigDefaults(t *testing.T) {
	for _, key := range []string{"HTTP_ADDR", "QUEUE_FETCH_TIMEOUT_SECONDS", "LOG_LEVEL", "QUEUE_SOURCE_URL_TEMPLATE", "QUEUE_MAX_CONCURRENT_SOURCES", "HTTP_RATE_LIMIT_RPS"} {
		t.Setenv(key, "")
	}
	cfg := LoadConfig()
	if cfg.HTTPAddr != ":8091" {
		t.Fatalf("unexpected addr: %q", cfg.HTTPAddr)
	}
	if cfg.FetchTimeout != 10*time.Second {
		t.Fatalf("unexpected timeout: %v", cfg.FetchTimeout)
	}
	if cfg.LogLevel != "info" || cfg.MaxConcurrentSources != 10 || cfg.RateLimitRPS != 50 {
		t.Fatalf("unexpected defaults: %#v", cfg)
	}
	if cfg.SourceURLTemplate != "http://localhost:7575/api/apps/{appId}/queue" {
		t.Fatalf("unexpected template: %q", cfg.SourceURLTemplate)
	}
}

func TestLoadConfigOverrides(t *testing.T) {
	t.Setenv("HTTP_ADDR", ":9999")
	t.Setenv("QUEUE_FETCH_TIMEOUT_SECONDS", "3")
	t.Setenv("LOG_LEVEL", "DEBUG")
	t.Setenv("QUEUE_MAX_CONCURRENT_SOURCES", "-2")
	t.Setenv("MONGO_COLLECTION", "queues")

	cfg := LoadConfig()
	if cfg.HTTPAddr != ":9999" || cfg.FetchTimeout != 3*time.Second || cfg.LogLevel != "debug" {
		t.Fatalf("unexpected overrides: %#v", cfg)
	}
	if cfg.MaxConcurrentSources != 10 {
		t.Fatalf("expected invalid value to fall back, got %d", cfg.MaxConcurrentSources)
	}
	if cfg.MongoCollection != "queues" {
		t.Fatalf("unexpected collection: %q", cfg.MongoCollection)
	}
}

func TestParseQueueFile(t *testing.T) {
	file, err := ParseQueueFile([]byte(`
queue:
  appId: qbittorrent
  appName: qBittorrent
  prefix: qbt
queues:
  - appId: downloads
    appName: Downloads
    prefix: all
    sources:
      - appId: transmission
        appName: Transmission
      - appId: usenet-box
        appName: Usenet
        type: nzbget
`))
	if err != nil {
		t.Fatalf("ParseQueueFile: %v", err)
	}
	if file.Queue == nil || file.Queue.AppID != "qbittorrent" || file.Queue.Prefix != "qbt" {
		t.Fatalf("unexpected single queue: %#v", file.Queue)
	}
	if len(file.Queues) != 1 || len(file.Queues[0].Sources) != 2 {
		t.Fatalf("unexpected queue list: %#v", file.Queues)
	}
	if file.Queues[0].Sources[1].Type != "nzbget" {
		t.Fatalf("expected explicit type, got %q", file.Queues[0].Sources[1].Type)
	}
}

func TestLoadQueueFile(t *testing.T) {
	if file, err := LoadQueueFile(""); err != nil || file.Queue != nil || len(file.Queues) != 0 {
		t.Fatalf("expected empty config for empty path, got %#v %v", file, err)
	}

	path := filepath.Join(t.TempDir(), "queues.yml")
	if err := os.WriteFile(path, []byte("queues:\n  - appId: sabnzbd\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	file, err := LoadQueueFile(path)
	if err != nil {
		t.Fatalf("LoadQueueFile: %v", err)
	}
	if len(file.Queues) != 1 || file.Queues[0].AppID != "sabnzbd" {
		t.Fatalf("unexpected queues: %#v", file.Queues)
	}

	if _, err := LoadQueueFile(filepath.Join(t.TempDir(), "missing.yml")); err == nil {
		t.Fatal("expected error for missing file")
	}
	if _, err := ParseQueueFile([]byte("queues: [")); err == nil {
		t.Fatal("expected parse error")
	}
}
