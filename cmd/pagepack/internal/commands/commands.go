package commands

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"github.com/wolfeidau/pagepack/internal/config"
	"github.com/wolfeidau/pagepack/internal/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

type Globals struct {
	Debug   bool
	Tracing bool
	Version string
}

// ProjectFlags select the project and mode, shared by every command.
type ProjectFlags struct {
	Mode   string `help:"build mode (development or production)" default:"development" env:"PAGEPACK_MODE"`
	Dir    string `help:"project base directory containing src/" default:"." env:"PAGEPACK_DIR"`
	Strict bool   `help:"reject unrecognized build modes" default:"false"`
}

// resolve loads the project file and resolves the build configuration.
func (f ProjectFlags) resolve(ctx context.Context) (*config.Config, error) {
	_, span := telemetry.Tracer().Start(ctx, "config.Resolve", trace.WithAttributes(
		attribute.String("build.mode", f.Mode),
	))
	defer span.End()

	cfg, err := f.load()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	return cfg, nil
}

func (f ProjectFlags) load() (*config.Config, error) {
	base, err := filepath.Abs(f.Dir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve project directory: %w", err)
	}

	project, err := config.LoadProject(base)
	if err != nil {
		return nil, err
	}

	return config.Resolve(config.Options{BaseDir: base, Project: project}, config.Env{Mode: f.Mode, Strict: f.Strict})
}

// startTelemetry initialises OTLP exporters when tracing is enabled and returns the matching stop function.
func startTelemetry(ctx context.Context, globals *Globals, log zerolog.Logger) func() {
	if !globals.Tracing {
		return func() {}
	}

	log.Info().Msg("Tracing is enabled")
	shutdown, err := telemetry.InitTelemetry(ctx, "pagepack", globals.Version)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to initialize telemetry, continuing without metrics")
		return func() {}
	}

	return func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("Failed to shutdown telemetry")
		}
	}
}
