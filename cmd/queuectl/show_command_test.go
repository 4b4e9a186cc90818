package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"torrentstream/queueservice/internal/domain"
	"torrentstream/queueservice/internal/queue"
)

const testQueueFile = `queues:
  - appId: transmission
    appName: Transmission
  - appId: downloads
    appName: Downloads
    prefix: all
    sources:
      - appId: transmission
        appName: Transmission
      - appId: sabnzbd
        appName: SABnzbd
  - appId: broken-sabnzbd
    appName: Broken
`

const transmissionPayload = `{"items":[
	{"name":"ubuntu.iso","status":4,"rateDownload":204800,"sizeWhenDone":1073741824,"leftUntilDone":536870912},
	{"name":"debian.iso","status":6,"sizeWhenDone":1073741824,"leftUntilDone":0}
]}`

type cliTestEnv struct {
	configPath string
	sourceURL  string
}

func setupCLITestEnv(t *testing.T) cliTestEnv {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/apps/transmission/queue":
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(transmissionPayload))
		default:
			http.Error(w, "upstream down", http.StatusBadGateway)
		}
	}))
	t.Cleanup(server.Close)

	configPath := filepath.Join(t.TempDir(), "queues.yaml")
	if err := os.WriteFile(configPath, []byte(testQueueFile), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return cliTestEnv{
		configPath: configPath,
		sourceURL:  server.URL + "/api/apps/{appId}/queue",
	}
}

func runCLI(t *testing.T, env cliTestEnv, args ...string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	flags := []string{"--config", env.configPath, "--source-url", env.sourceURL, "--timeout", "5s"}
	cmd.SetArgs(append(flags, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func requireContains(t *testing.T, haystack, needle string) {
	t.Helper()
	if !strings.Contains(haystack, needle) {
		t.Fatalf("expected output to contain %q, got:\n%s", needle, haystack)
	}
}

func TestQueuesCommandListsResolvedQueues(t *testing.T) {
	env := setupCLITestEnv(t)
	out, _, err := runCLI(t, env, "queues")
	if err != nil {
		t.Fatalf("queues: %v", err)
	}
	requireContains(t, out, "transmission")
	requireContains(t, out, "broken-sabnzbd")
	requireContains(t, out, "transmission, sabnzbd (2)")
}

func TestQueuesCommandWithoutConfig(t *testing.T) {
	env := setupCLITestEnv(t)
	env.configPath = ""
	out, _, err := runCLI(t, env, "queues")
	if err != nil {
		t.Fatalf("queues: %v", err)
	}
	requireContains(t, out, "No queues configured")
}

func TestShowRendersItems(t *testing.T) {
	env := setupCLITestEnv(t)
	out, _, err := runCLI(t, env, "show", "transmission")
	if err != nil {
		t.Fatalf("show: %v", err)
	}
	requireContains(t, out, "Transmission: 2 of 2 items")
	requireContains(t, out, "ubuntu.iso")
	requireContains(t, out, "debian.iso")
	requireContains(t, out, "50.0%")
	requireContains(t, out, "1.0 GB")
}

func TestShowSortsDescending(t *testing.T) {
	env := setupCLITestEnv(t)
	out, _, err := runCLI(t, env, "show", "transmission", "--sort", "title", "--desc")
	if err != nil {
		t.Fatalf("show: %v", err)
	}
	if strings.Index(out, "ubuntu.iso") > strings.Index(out, "debian.iso") {
		t.Fatalf("expected ubuntu before debian in descending title order:\n%s", out)
	}

	out, _, err = runCLI(t, env, "show", "transmission", "--sort", "0")
	if err != nil {
		t.Fatalf("show: %v", err)
	}
	if strings.Index(out, "debian.iso") > strings.Index(out, "ubuntu.iso") {
		t.Fatalf("expected debian before ubuntu in ascending title order:\n%s", out)
	}
}

func TestShowFiltersAsJSON(t *testing.T) {
	env := setupCLITestEnv(t)
	out, _, err := runCLI(t, env, "show", "transmission", "--status", "seeding", "--json")
	if err != nil {
		t.Fatalf("show: %v", err)
	}
	var view domain.QueueView
	if err := json.Unmarshal([]byte(out), &view); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(view.Items) != 1 || view.Items[0].Title != "debian.iso" || view.TotalItems != 2 {
		t.Fatalf("unexpected view: %#v", view)
	}
	if view.State != domain.LoadStateReady || view.StatusFilter != "seeding" {
		t.Fatalf("unexpected state or filter: %s %s", view.State, view.StatusFilter)
	}
}

func TestShowCombinedQueueWithFailingSource(t *testing.T) {
	env := setupCLITestEnv(t)
	out, _, err := runCLI(t, env, "show", "all")
	if err != nil {
		t.Fatalf("show: %v", err)
	}
	requireContains(t, out, "Downloads: 2 of 2 items")
	requireContains(t, out, "SABnzbd failed:")
	requireContains(t, out, "ubuntu.iso")
}

func TestShowUnavailableQueue(t *testing.T) {
	env := setupCLITestEnv(t)
	out, _, err := runCLI(t, env, "show", "broken-sabnzbd")
	if err != nil {
		t.Fatalf("show: %v", err)
	}
	requireContains(t, out, "Unable to load Broken queue")
}

func TestShowFilterWithNoMatches(t *testing.T) {
	env := setupCLITestEnv(t)
	out, _, err := runCLI(t, env, "show", "transmission", "--status", "error")
	if err != nil {
		t.Fatalf("show: %v", err)
	}
	requireContains(t, out, "No items match the current filters")
}

func TestShowErrors(t *testing.T) {
	env := setupCLITestEnv(t)
	if _, _, err := runCLI(t, env, "show", "missing"); !errors.Is(err, queue.ErrUnknownQueue) {
		t.Fatalf("expected ErrUnknownQueue, got %v", err)
	}
	if _, _, err := runCLI(t, env, "show", "transmission", "--sort", "size"); !errors.Is(err, queue.ErrInvalidColumn) {
		t.Fatalf("expected ErrInvalidColumn, got %v", err)
	}
	if _, _, err := runCLI(t, env, "show"); err == nil {
		t.Fatal("expected missing argument error")
	}
}

func TestParseSortColumn(t *testing.T) {
	cases := map[string]int{
		"title":    queue.ColumnTitle,
		"timeLeft": queue.ColumnTimeLeft,
		"6":        queue.ColumnProgress,
	}
	for raw, want := range cases {
		got, err := parseSortColumn(raw)
		if err != nil || got != want {
			t.Errorf("parseSortColumn(%q) = %d, %v; want %d", raw, got, err, want)
		}
	}
	if _, err := parseSortColumn("7"); !errors.Is(err, queue.ErrInvalidColumn) {
		t.Fatalf("expected ErrInvalidColumn for 7, got %v", err)
	}
}

func TestBuildQueueRowsQualifiesSharedPrefixes(t *testing.T) {
	rows := buildQueueRows([]domain.QueueConfig{
		{AppID: "qbittorrent", AppName: "qBittorrent", Prefix: "downloads"},
		{AppID: "sabnzbd", AppName: "SABnzbd", Prefix: "downloads"},
		{AppID: "transmission", AppName: "Transmission"},
	})
	want := []string{"qbittorrent-downloads", "sabnzbd-downloads", "transmission"}
	if len(rows) != len(want) {
		t.Fatalf("expected %d rows, got %d", len(want), len(rows))
	}
	for i, id := range want {
		if rows[i][0] != id {
			t.Errorf("row %d id = %q, want %q", i, rows[i][0], id)
		}
	}
}
