package devserver

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/pkg/browser"
	"github.com/rs/cors"
	"github.com/rs/zerolog"
	"github.com/wolfeidau/pagepack/internal/bundler"
	"github.com/wolfeidau/pagepack/internal/config"
	httpmiddleware "github.com/wolfeidau/pagepack/internal/http"
	"github.com/wolfeidau/pagepack/internal/logger"
	"github.com/wolfeidau/pagepack/internal/telemetry"
)

const defaultDebounce = 100 * time.Millisecond

// ResolveFunc recomputes the configuration, so pages added while serving are picked up.
type ResolveFunc func() (*config.Config, error)

// Server rebuilds on source changes and serves the output root.
type Server struct {
	cfg      *config.Config
	resolve  ResolveFunc
	listen   string
	open     bool
	overlay  config.Overlay
	debounce time.Duration
	logger   zerolog.Logger
	opener   func(url string) error

	mu      sync.RWMutex
	last    *bundler.Result
	lastErr error
}

type Option func(*Server)

// WithListen overrides the listen address from the configuration.
func WithListen(addr string) Option {
	return func(s *Server) {
		if addr != "" {
			s.listen = addr
		}
	}
}

func WithOpen(open bool) Option {
	return func(s *Server) { s.open = open }
}

func WithResolver(resolve ResolveFunc) Option {
	return func(s *Server) { s.resolve = resolve }
}

func WithLogger(logger zerolog.Logger) Option {
	return func(s *Server) { s.logger = logger }
}

// WithOpener replaces the browser launcher.
func WithOpener(opener func(url string) error) Option {
	return func(s *Server) { s.opener = opener }
}

func WithDebounce(d time.Duration) Option {
	return func(s *Server) { s.debounce = d }
}

// New creates a dev server. Configurations without a dev server section
// serve on the default address with the error overlay and no browser.
func New(cfg *config.Config, opts ...Option) *Server {
	s := &Server{
		cfg:      cfg,
		listen:   config.DefaultListen,
		overlay:  config.Overlay{Errors: true},
		debounce: defaultDebounce,
		logger:   zerolog.Nop(),
		opener:   browser.OpenURL,
	}

	if cfg.DevServer != nil {
		s.listen = cfg.DevServer.Listen
		s.open = cfg.DevServer.Open
		s.overlay = cfg.DevServer.Overlay
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Rebuild runs a fresh build and records the outcome for the overlay.
func (s *Server) Rebuild(ctx context.Context) error {
	cfg := s.cfg
	if s.resolve != nil {
		resolved, err := s.resolve()
		if err != nil {
			s.record(nil, err)
			return err
		}
		cfg = resolved
	}

	result, err := bundler.New(cfg).Build(ctx)
	s.record(result, err)

	if err != nil {
		s.logger.Error().Err(err).Msg("Rebuild failed")
		return err
	}

	return nil
}

func (s *Server) record(result *bundler.Result, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.lastErr = err
	if result != nil {
		s.last = result
	}
}

// Handler serves the output root with the overlay, request logging, no-cache headers and CORS.
func (s *Server) Handler() http.Handler {
	files := http.FileServer(http.Dir(s.cfg.Output.Path))
	counted := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		telemetry.GetMetrics().DevRequestsTotal.Add(r.Context(), 1)
		files.ServeHTTP(w, r)
	})

	return httpmiddleware.Chain(s.overlayHandler(counted),
		cors.AllowAll().Handler,
		httpmiddleware.NoCache(),
		logger.NewHTTPRequests(s.logger).Wrap,
	)
}

// Run builds once, then serves and watches until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	if err := s.Rebuild(ctx); err != nil {
		s.logger.Warn().Msg("Initial build failed, serving the error overlay")
	}

	watcher, err := newWatcher(s.cfg.Paths.Src)
	if err != nil {
		return err
	}
	defer watcher.Close()

	ln, err := net.Listen("tcp", s.listen)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.listen, err)
	}

	srv := configureHTTPServer(s.Handler())
	serveErr := make(chan error, 1)
	go func() {
		serveErr <- srv.Serve(ln)
	}()

	url := "http://" + ln.Addr().String()
	s.logger.Info().Str("url", url).Str("root", s.cfg.Output.Path).Msg("Dev server listening")

	if s.open {
		if err := s.opener(url); err != nil {
			s.logger.Warn().Err(err).Msg("Failed to open browser")
		}
	}

	go s.watch(ctx, watcher)

	select {
	case <-ctx.Done():
	case err := <-serveErr:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// watch debounces filesystem events into rebuilds.
func (s *Server) watch(ctx context.Context, watcher *fsnotify.Watcher) {
	timer := time.NewTimer(s.debounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if event.Op == fsnotify.Chmod {
				continue
			}
			if event.Has(fsnotify.Create) {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					if err := addRecursive(watcher, event.Name); err != nil {
						s.logger.Warn().Err(err).Str("dir", event.Name).Msg("Failed to watch directory")
					}
				}
			}
			s.logger.Debug().Str("file", event.Name).Str("op", event.Op.String()).Msg("Source changed")
			timer.Reset(s.debounce)
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			s.logger.Warn().Err(err).Msg("Watcher error")
		case <-timer.C:
			telemetry.GetMetrics().RebuildsTotal.Add(ctx, 1)
			_ = s.Rebuild(ctx)
		}
	}
}

// newWatcher watches root and every directory below it.
func newWatcher(root string) (*fsnotify.Watcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}

	if err := addRecursive(watcher, root); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", root, err)
	}

	return watcher, nil
}

func addRecursive(watcher *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return watcher.Add(p)
		}
		return nil
	})
}

func configureHTTPServer(handler http.Handler) *http.Server {
	return &http.Server{
		Handler:           handler,
		ReadHeaderTimeout: time.Second,
		ReadTimeout:       time.Minute,
		WriteTimeout:      time.Minute,
		IdleTimeout:       5 * time.Minute,
		MaxHeaderBytes:    8 * 1024, // 8KiB
	}
}
