package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"calcscript/internal/core/app"
	"calcscript/internal/core/config"
	"calcscript/internal/core/errors"
	"calcscript/internal/core/watcher"
	"calcscript/internal/data/history"
	"calcscript/internal/server"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, dir string) string {
	t.Helper()
	content := `
[engine]
max_depth = 32

[history]
enabled = true
path = "` + filepath.ToSlash(filepath.Join(dir, "history.db")) + `"
retain = 10

[server]
rate_limit = 100
burst = 100
`
	path := filepath.Join(dir, "calcscript.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestFullPipelineIntegration(t *testing.T) {
	tmpDir := t.TempDir()
	cfg, err := config.Load(writeConfig(t, tmpDir))
	require.NoError(t, err)
	require.Equal(t, 32, cfg.Engine.MaxDepth)

	store, err := history.Open(cfg.History.Path, cfg.History.BusyTimeout)
	require.NoError(t, err)
	defer store.Close()

	recorder := app.NewRecorder(store, 0).WithRetention(cfg.History.Retain)
	interp := app.NewInterpreter(
		app.WithMaxDepth(cfg.Engine.MaxDepth),
		app.WithLogger(quietLogger()),
		app.WithRecorder(recorder),
	)

	ctx := context.Background()
	res, err := interp.Execute(ctx, app.RunRequestFor("pipeline.calc", "price = 20\nqty = 3\ntotal = price * 2 - qty - 5"))
	require.NoError(t, err)
	assert.Equal(t, []string{"price", "qty", "total"}, res.Names)
	// Subtraction groups right: 40 - (3 - 5).
	assert.Equal(t, 42.0, res.Variables["total"])

	_, err = interp.Execute(ctx, app.RunRequestFor("broken.calc", "a = 1; b = missing + 1"))
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.CodeUndefinedVariable))

	closeCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	require.NoError(t, recorder.Close(closeCtx))

	runs, err := store.LoadRuns(ctx, time.Time{}, 0)
	require.NoError(t, err)
	require.Len(t, runs, 2)

	bySource := map[string]history.Run{}
	for _, run := range runs {
		bySource[run.Source] = run
	}
	assert.Equal(t, history.StatusOK, bySource["pipeline.calc"].Status)
	assert.Equal(t, 42.0, bySource["pipeline.calc"].Variables["total"])
	assert.Equal(t, history.StatusError, bySource["broken.calc"].Status)
	assert.Equal(t, string(errors.CodeUndefinedVariable), bySource["broken.calc"].ErrorCode)
	assert.Equal(t, map[string]float64{"a": 1}, bySource["broken.calc"].Variables)
}

func TestServerIntegration(t *testing.T) {
	tmpDir := t.TempDir()
	cfg, err := config.Load(writeConfig(t, tmpDir))
	require.NoError(t, err)

	store, err := history.Open(cfg.History.Path, cfg.History.BusyTimeout)
	require.NoError(t, err)
	defer store.Close()

	interp := app.NewInterpreter(app.WithMaxDepth(cfg.Engine.MaxDepth), app.WithLogger(quietLogger()))
	srv, err := server.New(server.Options{
		RateLimit:   cfg.Server.RateLimit,
		Burst:       cfg.Server.Burst,
		MaxBodySize: cfg.Server.MaxBodySize,
	}, interp, app.NewHealthService(interp, store))
	require.NoError(t, err)

	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()
	defer srv.Stop(context.Background())

	body, err := json.Marshal(map[string]string{"script": "x = " + nested(40)})
	require.NoError(t, err)
	resp, err := http.Post(ts.URL+"/api/run", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out struct {
		OK    bool `json:"ok"`
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.False(t, out.OK)
	assert.Equal(t, string(errors.CodeSyntax), out.Error.Code)
	assert.Contains(t, out.Error.Message, "too deeply nested")

	health, err := http.Get(ts.URL + "/health")
	require.NoError(t, err)
	defer health.Body.Close()
	var status app.HealthStatus
	require.NoError(t, json.NewDecoder(health.Body).Decode(&status))
	assert.Equal(t, "up", status.Status)
	assert.Equal(t, "ok", status.Components["history"])
}

func TestWatcherRerunsChangedScript(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "live.calc")
	require.NoError(t, os.WriteFile(path, []byte("v = 1"), 0o644))

	interp := app.NewInterpreter(app.WithLogger(quietLogger()))
	results := make(chan float64, 4)

	w, err := watcher.New(watcher.Options{Debounce: 20 * time.Millisecond, Include: []string{"*.calc"}}, func(paths []string) {
		for _, p := range paths {
			data, err := os.ReadFile(p)
			if err != nil {
				continue
			}
			res, err := interp.Run(context.Background(), string(data))
			if err == nil {
				results <- res.Variables["v"]
			}
		}
	})
	require.NoError(t, err)
	defer w.Close()
	require.NoError(t, w.Watch([]string{dir}))

	require.NoError(t, os.WriteFile(path, []byte("v = 6 * 7"), 0o644))

	// A truncate and a write may arrive as separate batches.
	deadline := time.After(3 * time.Second)
	for {
		select {
		case v := <-results:
			if v == 42 {
				return
			}
		case <-deadline:
			t.Fatal("timed out waiting for re-run")
		}
	}
}

func nested(depth int) string {
	var b bytes.Buffer
	for i := 0; i < depth; i++ {
		b.WriteByte('(')
	}
	b.WriteByte('1')
	for i := 0; i < depth; i++ {
		b.WriteByte(')')
	}
	return b.String()
}
