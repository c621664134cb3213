package bundler

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"regexp"
	"sort"
	"time"

	"github.com/evanw/esbuild/pkg/api"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/wolfeidau/pagepack/internal/config"
	"github.com/wolfeidau/pagepack/internal/telemetry"
	"github.com/wolfeidau/pagepack/internal/util"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// ManifestFile is written to the output root when the configuration asks for a manifest.
const ManifestFile = "manifest.json"

// Result describes a completed build.
type Result struct {
	ID       uuid.UUID
	Mode     config.Mode
	Files    []string
	Warnings []Message
	Manifest *Manifest
	Images   ImageStats
	Duration time.Duration
}

// Build runs the clean, bundle and emit phases with the configured plugins.
func (p *Pipeline) Build(ctx context.Context) (*Result, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	id, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("failed to create build id: %w", err)
	}

	ctx, span := telemetry.Tracer().Start(ctx, "bundler.Build", trace.WithAttributes(
		attribute.String("build.id", id.String()),
		attribute.String("build.mode", p.config.Mode.String()),
	))
	defer span.End()

	metrics := telemetry.GetMetrics()
	attrs := metric.WithAttributes(attribute.String("mode", p.config.Mode.String()))
	metrics.BuildsTotal.Add(ctx, 1, attrs)

	started := time.Now()
	result, err := p.build(ctx, id)
	elapsed := time.Since(started)

	metrics.BuildDuration.Record(ctx, float64(elapsed.Milliseconds()), attrs)

	if err != nil {
		metrics.BuildErrorsTotal.Add(ctx, 1, attrs)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	result.Duration = elapsed
	p.manifest = result.Manifest

	metrics.OutputFilesTotal.Add(ctx, int64(len(result.Files)), attrs)
	metrics.ImagesOptimizedTotal.Add(ctx, int64(result.Images.Optimized), attrs)
	metrics.ImageBytesSaved.Add(ctx, result.Images.BytesSaved, attrs)

	log.Info().
		Str("build_id", id.String()).
		Str("mode", p.config.Mode.String()).
		Int("files", len(result.Files)).
		Int("warnings", len(result.Warnings)).
		Dur("duration", elapsed).
		Msg("Build complete")

	return result, nil
}

func (p *Pipeline) build(ctx context.Context, id uuid.UUID) (*Result, error) {
	cfg := p.config
	dist := cfg.Output.Path

	if cfg.Plugins.Count(config.PluginClean) > 0 {
		if err := clean(dist); err != nil {
			return nil, err
		}
	}

	rules, err := compileRules(cfg.Module.Rules)
	if err != nil {
		return nil, err
	}

	entries, err := resolveEntries(cfg)
	if err != nil {
		return nil, err
	}

	entryPaths := make([]string, 0, len(entries))
	for _, e := range entries {
		entryPaths = append(entryPaths, e.Input)
	}
	log.Info().Strs("entrypoints", entryPaths).Msg("Building assets")

	emitter := newEmitter(cfg.Output.PublicPath)
	opts, err := p.buildOptions(entries, rules, emitter)
	if err != nil {
		return nil, err
	}

	vendorTest, vendorName, err := p.splitVendors(ctx, &opts)
	if err != nil {
		return nil, err
	}

	_, span := telemetry.Tracer().Start(ctx, "esbuild.Build")
	res := api.Build(opts)
	span.End()

	warnings := convertMessages(res.Warnings)
	for _, msg := range warnings {
		log.Warn().Str("warning", msg.String()).Msg("Build warning")
	}

	if len(res.Errors) > 0 {
		for _, msg := range res.Errors {
			log.Error().Str("error", msg.Text).Msg("Build error")
		}
		return nil, &BuildError{Messages: convertMessages(res.Errors)}
	}

	set, err := newOutputSet(cfg, res.Metafile, entries, vendorTest, vendorName)
	if err != nil {
		return nil, err
	}
	outputs, manifest := set.finalize(res.OutputFiles)

	result := &Result{
		ID:       id,
		Mode:     cfg.Mode,
		Warnings: warnings,
		Manifest: manifest,
	}

	var bytesWritten int64
	for _, out := range outputs {
		if err := util.WriteFile(filepath.Join(dist, filepath.FromSlash(out.Path)), out.Contents); err != nil {
			return nil, fmt.Errorf("failed to write %s: %w", out.Path, err)
		}
		bytesWritten += int64(len(out.Contents))
		result.Files = append(result.Files, out.Path)
		log.Debug().Str("file", out.Path).Int("bytes", len(out.Contents)).Msg("Built file")
	}
	telemetry.GetMetrics().OutputBytesTotal.Add(ctx, bytesWritten)

	assets, err := emitter.write(dist)
	if err != nil {
		return nil, err
	}
	result.Files = append(result.Files, assets...)

	if err := p.runPlugins(ctx, result); err != nil {
		return nil, err
	}

	if cfg.Manifest {
		data, err := json.MarshalIndent(manifest, "", "  ")
		if err != nil {
			return nil, err
		}
		if err := util.WriteFile(filepath.Join(dist, ManifestFile), data); err != nil {
			return nil, err
		}
		result.Files = append(result.Files, ManifestFile)
	}

	sort.Strings(result.Files)
	return result, nil
}

// splitVendors adds the virtual vendors entry when third party modules are imported.
func (p *Pipeline) splitVendors(ctx context.Context, opts *api.BuildOptions) (*regexp.Regexp, string, error) {
	group, ok := p.config.VendorGroup()
	if !ok || group.Test == "" {
		return nil, "", nil
	}

	test, err := regexp.Compile(group.Test)
	if err != nil {
		return nil, "", fmt.Errorf("invalid cache group test %q: %w", group.Test, err)
	}

	_, span := telemetry.Tracer().Start(ctx, "bundler.discoverVendors")
	modules, err := discoverVendors(*opts, test)
	span.End()
	if err != nil {
		return nil, "", err
	}

	if len(modules) == 0 {
		return test, group.Name, nil
	}

	log.Debug().Strs("modules", modules).Str("chunk", group.Name).Msg("Splitting vendor modules")

	opts.EntryPoints = append(opts.EntryPoints, vendorEntry)
	opts.Plugins = append([]api.Plugin{vendorPlugin(modules, p.config.Paths.Src)}, opts.Plugins...)

	return test, group.Name, nil
}

// runPlugins runs the plugins that act on the written output, in configuration order.
func (p *Pipeline) runPlugins(ctx context.Context, result *Result) error {
	dist := p.config.Output.Path

	for _, plugin := range p.config.Plugins {
		_, span := telemetry.Tracer().Start(ctx, "plugin."+plugin.PluginName())

		var err error
		switch pl := plugin.(type) {
		case config.HTMLPage:
			if err = renderPage(dist, pl, result.Manifest); err == nil {
				result.Files = append(result.Files, pl.Filename)
			}
		case config.Copy:
			var copied []string
			if copied, err = copyPatterns(dist, pl); err == nil {
				result.Files = append(result.Files, copied...)
			}
		case config.ImageMin:
			result.Images, err = optimizeImages(dist, pl)
		case config.Compression:
			var compressed []string
			if compressed, err = precompress(dist, pl); err == nil {
				result.Files = append(result.Files, compressed...)
			}
		}

		span.End()
		if err != nil {
			return fmt.Errorf("plugin %s: %w", plugin.PluginName(), err)
		}
	}

	return nil
}
