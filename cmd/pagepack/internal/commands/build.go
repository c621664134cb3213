package commands

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"

	"github.com/rs/zerolog"
	"github.com/wolfeidau/pagepack/internal/bundler"
	"github.com/wolfeidau/pagepack/internal/logger"
)

type BuildCmd struct {
	ProjectFlags `embed:""`
}

func (b *BuildCmd) Run(ctx context.Context, globals *Globals) error {
	log := logger.Setup(globals.Debug)

	stop := startTelemetry(ctx, globals, log)
	defer stop()

	cfg, err := b.resolve(ctx)
	if err != nil {
		return fmt.Errorf("failed to resolve configuration: %w", err)
	}

	pipeline := bundler.New(cfg)

	result, err := pipeline.Build(ctx)
	if err != nil {
		return err
	}

	for _, file := range result.Files {
		log.Debug().Str("file", file).Msg("Wrote")
	}

	if err := logEntryScripts(log, pipeline, slices.Sorted(maps.Keys(cfg.Entry))); err != nil {
		return err
	}

	log.Info().
		Str("build_id", result.ID.String()).
		Str("output", cfg.Output.Path).
		Int("files", len(result.Files)).
		Int("warnings", len(result.Warnings)).
		Dur("duration", result.Duration).
		Msg("Build complete")

	return nil
}

// logEntryScripts reports the script load order of each built entry.
func logEntryScripts(log zerolog.Logger, pipeline *bundler.Pipeline, entries []string) error {
	for _, name := range entries {
		scripts, entry, err := pipeline.LoadScripts(name)
		if errors.Is(err, bundler.ErrNoEntry) {
			continue
		}
		if err != nil {
			return fmt.Errorf("failed to load scripts for entry %s: %w", name, err)
		}

		log.Info().
			Str("entry", name).
			Str("script", entry).
			Strs("scripts", scripts).
			Msg("Entry scripts")
	}

	return nil
}
