package common

import (
	"testing"

	"torrentstream/queueservice/internal/domain"
)

var testRules = []Rule{
	{Keywords: []string{"error"}, Status: domain.StatusError},
	{Keywords: []string{"paused"}, Status: domain.StatusPaused},
	{Keywords: []string{"down"}, Status: domain.StatusDownloading},
}

func TestClassifyFirstMatchWins(t *testing.T) {
	if got := Classify(testRules, "Paused (error)"); got != domain.StatusError {
		t.Fatalf("expected earlier group to win, got %q", got)
	}
	if got := Classify(testRules, "DOWNLOADING"); got != domain.StatusDownloading {
		t.Fatalf("expected case-insensitive match, got %q", got)
	}
}

func TestClassifyDefaultsToQueued(t *testing.T) {
	for _, state := range []string{"", "   ", "something new in v9"} {
		if got := Classify(testRules, state); got != domain.StatusQueued {
			t.Errorf("Classify(%q) = %q, want queued", state, got)
		}
	}
}

func TestTagsAlwaysContainPrimary(t *testing.T) {
	promotions := Promotions{
		Active:      []domain.StatusKey{domain.StatusDownloading},
		Downloading: []domain.StatusKey{domain.StatusQueued},
	}
	keys := Tags(domain.StatusDownloading, promotions, domain.StatusActive, domain.StatusError)
	want := []domain.StatusKey{domain.StatusDownloading, domain.StatusActive, domain.StatusError}
	if len(keys) != len(want) {
		t.Fatalf("unexpected keys: %#v", keys)
	}
	for i := range want {
		if keys[i] != want[i] {
			t.Fatalf("unexpected keys: %#v", keys)
		}
	}

	queued := Tags(domain.StatusQueued, promotions)
	if len(queued) != 2 || queued[0] != domain.StatusQueued || queued[1] != domain.StatusDownloading {
		t.Fatalf("expected downloading alias for queued, got %#v", queued)
	}
}
