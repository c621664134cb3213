package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/wolfeidau/pagepack/internal/config"
	"github.com/wolfeidau/pagepack/internal/devserver"
	"github.com/wolfeidau/pagepack/internal/logger"
)

type ServeCmd struct {
	ProjectFlags `embed:""`
	Listen       string `help:"dev server listen address, overrides the project file" default:"" env:"PAGEPACK_LISTEN"`
	NoOpen       bool   `help:"do not open a browser" default:"false"`
}

func (s *ServeCmd) Run(ctx context.Context, globals *Globals) error {
	log := logger.Setup(globals.Debug)

	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	stop := startTelemetry(ctx, globals, log)
	defer stop()

	cfg, err := s.resolve(ctx)
	if err != nil {
		return fmt.Errorf("failed to resolve configuration: %w", err)
	}

	open := cfg.DevServer != nil && cfg.DevServer.Open && !s.NoOpen

	srv := devserver.New(cfg,
		devserver.WithListen(s.Listen),
		devserver.WithOpen(open),
		devserver.WithLogger(log),
		// re-resolve on every rebuild so new pages are picked up
		devserver.WithResolver(func() (*config.Config, error) {
			return s.resolve(ctx)
		}),
	)

	log.Info().Str("version", globals.Version).Str("mode", cfg.Mode.String()).Msg("Starting dev server")

	return srv.Run(ctx)
}
