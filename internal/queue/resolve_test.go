package queue

import (
	"errors"
	"testing"

	"torrentstream/queueservice/internal/domain"
)

func TestResolveQueuesMergesAndDedupes(t *testing.T) {
	single := &domain.QueueConfig{AppID: "qbittorrent", AppName: "qBittorrent", Prefix: "qbt"}
	list := []domain.QueueConfig{
		{AppID: " QBittorrent ", AppName: "Duplicate", Prefix: "QBT"},
		{AppID: "", Prefix: "orphan"},
		{AppID: "sabnzbd", Prefix: "sab"},
		{AppID: "qbittorrent", Prefix: "other"},
	}

	resolved := ResolveQueues(single, list)
	if len(resolved) != 3 {
		t.Fatalf("expected 3 queues, got %d: %#v", len(resolved), resolved)
	}
	if resolved[0].AppName != "qBittorrent" {
		t.Fatalf("expected first occurrence to win, got %q", resolved[0].AppName)
	}
	if resolved[1].AppID != "sabnzbd" || resolved[1].AppName != "sabnzbd" {
		t.Fatalf("expected app name to default to app id, got %#v", resolved[1])
	}
	if resolved[2].Prefix != "other" {
		t.Fatalf("expected distinct prefix to survive, got %#v", resolved[2])
	}
}

func TestResolveQueuesDropsSourcesWithoutAppID(t *testing.T) {
	resolved := ResolveQueues(nil, []domain.QueueConfig{{
		AppID: "downloads",
		Sources: []domain.SourceDescriptor{
			{AppID: "qbittorrent"},
			{AppID: "  ", AppName: "Broken"},
			{AppID: "nzbget", AppName: "NZBGet", Type: " nzbget "},
		},
	}})
	if len(resolved) != 1 {
		t.Fatalf("expected 1 queue, got %d", len(resolved))
	}
	sources := resolved[0].Sources
	if len(sources) != 2 || sources[0].AppName != "qbittorrent" || sources[1].Type != "nzbget" {
		t.Fatalf("unexpected sources: %#v", sources)
	}
	if !resolved[0].Combined() {
		t.Fatal("expected combined queue")
	}
}

func TestResolveQueuesEmpty(t *testing.T) {
	if got := ResolveQueues(nil, nil); len(got) != 0 {
		t.Fatalf("expected no queues, got %#v", got)
	}
	if got := ResolveQueues(&domain.QueueConfig{}, nil); len(got) != 0 {
		t.Fatalf("expected queue without app id to be dropped, got %#v", got)
	}
}

func TestValidateConfig(t *testing.T) {
	if err := ValidateConfig(domain.QueueConfig{Prefix: "x"}); !errors.Is(err, ErrInvalidQueueConfig) {
		t.Fatalf("expected ErrInvalidQueueConfig, got %v", err)
	}
	if err := ValidateConfig(domain.QueueConfig{AppID: "x"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
