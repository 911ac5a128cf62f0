package app

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"go.uber.org/zap"

	"molttown/internal/config"
	"molttown/internal/room"
)

func newTestApp(t *testing.T, mutate func(*config.Config)) (*Application, *httptest.Server) {
	t.Helper()

	cfg := config.DefaultConfig()
	cfg.Model.APIKey = "sk-test"
	if mutate != nil {
		mutate(cfg)
	}

	a, err := New(cfg, zap.NewNop())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if err := a.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	srv := httptest.NewServer(a.httpServer.Handler)
	t.Cleanup(func() {
		srv.Close()
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = a.Stop(ctx)
	})

	return a, srv
}

func getJSON(t *testing.T, url string, into any) int {
	t.Helper()

	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s failed: %v", url, err)
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(into); err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	return resp.StatusCode
}

func TestApplication_Health(t *testing.T) {
	_, srv := newTestApp(t, nil)

	var body map[string]string
	if code := getJSON(t, srv.URL+"/health", &body); code != http.StatusOK {
		t.Fatalf("Status = %d", code)
	}
	if body["status"] != "ok" {
		t.Errorf("Body = %v", body)
	}
}

func TestApplication_StatsShowsSeededGuardians(t *testing.T) {
	_, srv := newTestApp(t, nil)

	var stats room.Stats
	if code := getJSON(t, srv.URL+"/api/stats", &stats); code != http.StatusOK {
		t.Fatalf("Status = %d", code)
	}
	if stats.Agents != 2 {
		t.Errorf("Agents = %d, want the 2 seeded guardians", stats.Agents)
	}
	if stats.Viewers != 0 {
		t.Errorf("Viewers = %d, want 0", stats.Viewers)
	}
}

func TestApplication_TranscriptDisabledReturns404(t *testing.T) {
	_, srv := newTestApp(t, nil)

	var body map[string]string
	if code := getJSON(t, srv.URL+"/api/transcript", &body); code != http.StatusNotFound {
		t.Fatalf("Status = %d, want 404 with archiving off", code)
	}
}

func TestApplication_TranscriptEnabled(t *testing.T) {
	dir := t.TempDir()
	a, srv := newTestApp(t, func(c *config.Config) {
		c.Archive.Path = filepath.Join(dir, "transcript.db")
	})

	if a.transcript == nil {
		t.Fatal("Expected the archive to be open")
	}
	a.transcript.Record("user_message", "anon1", "hello", "", time.Now())

	deadline := time.Now().Add(2 * time.Second)
	var entries []map[string]any
	for time.Now().Before(deadline) {
		if code := getJSON(t, srv.URL+"/api/transcript?limit=10", &entries); code != http.StatusOK {
			t.Fatalf("Status = %d", code)
		}
		if len(entries) == 1 {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	if len(entries) != 1 {
		t.Fatalf("Entries = %d, want 1", len(entries))
	}
	if entries[0]["sender"] != "anon1" {
		t.Errorf("Entry = %v", entries[0])
	}
}

func TestApplication_RejectsInvalidConfig(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Guardians = nil

	if _, err := New(cfg, zap.NewNop()); err == nil {
		t.Error("Expected New to reject a config without guardians")
	}
}
