package daemon

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/jsxforge/internal/config"
	"git.home.luguber.info/inful/jsxforge/internal/history"
	"git.home.luguber.info/inful/jsxforge/internal/pipeline"
)

func testDaemon(t *testing.T) *Daemon {
	t.Helper()
	cfg := config.Default()
	cfg.Project.Root = t.TempDir()
	cfg.Daemon.HistoryDB = ":memory:"

	d, err := New(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = d.store.Close() })
	d.start = time.Now()
	return d
}

func get(t *testing.T, d *Daemon, target string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	d.newAdminServer().Handler.ServeHTTP(rec, req)
	return rec
}

func TestHealthEndpoint(t *testing.T) {
	d := testDaemon(t)
	rec := get(t, d, "/healthz")

	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
	assert.Contains(t, body, "uptime")
}

func TestRunsEndpoint(t *testing.T) {
	d := testDaemon(t)

	rec := get(t, d, "/runs")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, "[]", rec.Body.String())

	rep := pipeline.NewRunReport()
	rep.End = rep.Start.Add(time.Second)
	rep.EmittedFiles = 7
	rep.Outcome = pipeline.OutcomeSuccess
	_, err := d.store.Append(context.Background(), rep)
	require.NoError(t, err)

	rec = get(t, d, "/runs")
	require.Equal(t, http.StatusOK, rec.Code)
	var records []history.Record
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &records))
	require.Len(t, records, 1)
	assert.Equal(t, pipeline.OutcomeSuccess, records[0].Outcome)
	assert.Equal(t, 7, records[0].Report.EmittedFiles)
}

func TestRunsEndpointRejectsBadLimit(t *testing.T) {
	d := testDaemon(t)
	rec := get(t, d, "/runs?limit=bogus")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = get(t, d, "/runs?limit=-3")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	d := testDaemon(t)
	d.recorder.IncRunOutcome("success")

	rec := get(t, d, "/metrics")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "jsxforge_run_outcomes_total")
}

func TestWatcherSkipsExcludedPaths(t *testing.T) {
	cfg := config.Default()
	cfg.Project.Root = t.TempDir()

	sw, err := newSourceWatcher(cfg, func() {})
	require.NoError(t, err)
	defer sw.close()

	assert.True(t, sw.relevant(fsnotify.Event{Name: filepath.Join(sw.root, "app", "root.tsx")}))
	assert.False(t, sw.relevant(fsnotify.Event{Name: filepath.Join(sw.root, "node_modules", "react", "index.js")}))
	assert.False(t, sw.relevant(fsnotify.Event{Name: filepath.Join(sw.root, cfg.Project.StagingDir, "app", "root.jsx")}))
}

func TestWatcherFiresAfterQuietWindow(t *testing.T) {
	cfg := config.Default()
	cfg.Project.Root = t.TempDir()

	fired := make(chan struct{}, 1)
	sw, err := newSourceWatcher(cfg, func() { fired <- struct{}{} })
	require.NoError(t, err)
	defer sw.close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go sw.run(ctx)

	require.NoError(t, os.WriteFile(filepath.Join(cfg.Project.Root, "file.ts"), []byte("export {};"), 0o644))

	select {
	case <-fired:
	case <-time.After(debounceWindow + 3*time.Second):
		t.Fatal("watcher did not fire after source change")
	}
}
