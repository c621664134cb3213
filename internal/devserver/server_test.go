package devserver

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wolfeidau/pagepack/internal/bundler"
	"github.com/wolfeidau/pagepack/internal/config"
)

func testConfig(t *testing.T, devServer *config.DevServer) *config.Config {
	t.Helper()

	base := t.TempDir()
	paths := config.NewPathSet(base)
	require.NoError(t, os.MkdirAll(paths.Src, 0o755))
	require.NoError(t, os.MkdirAll(paths.Dist, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(paths.Dist, "index.html"), []byte("<html><body>hello</body></html>"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(paths.Dist, "app.css"), []byte("body{}"), 0o644))

	return &config.Config{
		Mode:      config.ModeDevelopment,
		Paths:     paths,
		Output:    config.Output{Path: paths.Dist, PublicPath: "/"},
		DevServer: devServer,
	}
}

func get(t *testing.T, h http.Handler, target string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(http.MethodGet, target, nil)
	req.Header.Set("Origin", "http://example.com")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestNew_Defaults(t *testing.T) {
	cfg := testConfig(t, &config.DevServer{Open: true, Overlay: config.Overlay{Errors: true}, Listen: "localhost:9000"})

	s := New(cfg)
	assert.Equal(t, "localhost:9000", s.listen)
	assert.True(t, s.open)
	assert.Equal(t, defaultDebounce, s.debounce)

	s = New(cfg, WithListen("127.0.0.1:0"), WithOpen(false))
	assert.Equal(t, "127.0.0.1:0", s.listen)
	assert.False(t, s.open)

	// empty listen flag keeps the configured address
	s = New(cfg, WithListen(""))
	assert.Equal(t, "localhost:9000", s.listen)
}

func TestNew_WithoutDevServerSection(t *testing.T) {
	cfg := testConfig(t, nil)

	s := New(cfg)
	assert.Equal(t, config.DefaultListen, s.listen)
	assert.False(t, s.open)
	assert.True(t, s.overlay.Errors)
	assert.False(t, s.overlay.Warnings)
}

func TestHandler_ServesOutput(t *testing.T) {
	s := New(testConfig(t, nil))

	rec := get(t, s.Handler(), "/")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "hello")
	assert.Equal(t, "no-cache, no-store, must-revalidate", rec.Header().Get("Cache-Control"))
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestHandler_ErrorOverlay(t *testing.T) {
	s := New(testConfig(t, &config.DevServer{Overlay: config.Overlay{Errors: true}}))
	s.record(nil, &bundler.BuildError{Messages: []bundler.Message{
		{Text: `Could not resolve "./missing"`, File: "src/index.js", Line: 3, Column: 7},
	}})

	rec := get(t, s.Handler(), "/")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "Build failed")
	assert.Contains(t, body, "src/index.js:3:7")
	assert.Contains(t, body, "Could not resolve &#34;./missing&#34;")

	// assets still come from disk
	rec = get(t, s.Handler(), "/app.css")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "body{}", rec.Body.String())
}

func TestHandler_PlainErrorOverlay(t *testing.T) {
	s := New(testConfig(t, nil))
	s.record(nil, errors.New("entry point not found"))

	rec := get(t, s.Handler(), "/index.html")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "entry point not found")
}

func TestHandler_ErrorOverlayDisabled(t *testing.T) {
	s := New(testConfig(t, &config.DevServer{Overlay: config.Overlay{Errors: false}}))
	s.record(nil, errors.New("boom"))

	rec := get(t, s.Handler(), "/")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "hello")
}

func TestHandler_WarningOverlay(t *testing.T) {
	warned := &bundler.Result{Warnings: []bundler.Message{{Text: "unused import"}}}

	tests := []struct {
		name     string
		overlay  config.Overlay
		expected string
	}{
		{name: "warnings hidden", overlay: config.Overlay{Errors: true}, expected: "hello"},
		{name: "warnings shown", overlay: config.Overlay{Errors: true, Warnings: true}, expected: "Build finished with warnings"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := New(testConfig(t, &config.DevServer{Overlay: tt.overlay}))
			s.record(warned, nil)

			rec := get(t, s.Handler(), "/")
			assert.Equal(t, http.StatusOK, rec.Code)
			assert.Contains(t, rec.Body.String(), tt.expected)
		})
	}
}

func TestRecord_KeepsLastResult(t *testing.T) {
	s := New(testConfig(t, nil))

	first := &bundler.Result{}
	s.record(first, nil)
	s.record(nil, errors.New("failed"))

	assert.Same(t, first, s.last)
	require.Error(t, s.lastErr)

	s.record(&bundler.Result{}, nil)
	assert.NoError(t, s.lastErr)
}

func TestRebuild_ResolverError(t *testing.T) {
	resolveErr := errors.New("failed to list pages")
	s := New(testConfig(t, nil), WithResolver(func() (*config.Config, error) {
		return nil, resolveErr
	}))

	err := s.Rebuild(context.Background())
	require.ErrorIs(t, err, resolveErr)

	rec := get(t, s.Handler(), "/")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "failed to list pages")
}

func TestIsDocumentRequest(t *testing.T) {
	tests := []struct {
		method string
		target string
		want   bool
	}{
		{http.MethodGet, "/", true},
		{http.MethodGet, "/about.html", true},
		{http.MethodGet, "/about", true},
		{http.MethodHead, "/", true},
		{http.MethodGet, "/assets/js/app.1a2b.js", false},
		{http.MethodPost, "/", false},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.target, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.target, nil)
			assert.Equal(t, tt.want, isDocumentRequest(req))
		})
	}
}

func TestWatch_DebouncesRebuilds(t *testing.T) {
	cfg := testConfig(t, nil)

	calls := make(chan struct{}, 10)
	s := New(cfg, WithDebounce(20*time.Millisecond), WithResolver(func() (*config.Config, error) {
		calls <- struct{}{}
		return nil, errors.New("stop")
	}))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	watcher, err := newWatcher(cfg.Paths.Src)
	require.NoError(t, err)
	defer watcher.Close()

	go s.watch(ctx, watcher)

	for i := range 3 {
		name := filepath.Join(cfg.Paths.Src, "page.html")
		require.NoError(t, os.WriteFile(name, []byte{byte('a' + i)}, 0o644))
	}

	select {
	case <-calls:
	case <-time.After(5 * time.Second):
		t.Fatal("rebuild was not triggered")
	}

	// a burst of writes collapses into a single rebuild
	select {
	case <-calls:
		t.Fatal("unexpected second rebuild")
	case <-time.After(200 * time.Millisecond):
	}
}

func TestRun_OpensBrowserAndStops(t *testing.T) {
	cfg := testConfig(t, &config.DevServer{Open: true, Overlay: config.Overlay{Errors: true}})

	opened := make(chan string, 1)
	s := New(cfg,
		WithListen("127.0.0.1:0"),
		WithResolver(func() (*config.Config, error) { return nil, errors.New("no build") }),
		WithOpener(func(url string) error {
			opened <- url
			return nil
		}),
	)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	var url string
	select {
	case url = <-opened:
	case <-time.After(5 * time.Second):
		t.Fatal("browser was not opened")
	}
	assert.Contains(t, url, "http://127.0.0.1:")

	resp, err := http.Get(url + "/")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("server did not stop")
	}
}
