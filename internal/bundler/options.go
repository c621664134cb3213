package bundler

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/evanw/esbuild/pkg/api"
	"github.com/wolfeidau/pagepack/internal/config"
)

var targets = map[string]api.Target{
	"es2015": api.ES2015,
	"es2016": api.ES2016,
	"es2017": api.ES2017,
	"es2018": api.ES2018,
	"es2019": api.ES2019,
	"es2020": api.ES2020,
	"es2021": api.ES2021,
	"es2022": api.ES2022,
	"es2023": api.ES2023,
	"es2024": api.ES2024,
	"esnext": api.ESNext,
}

// assetExtensions fall back to esbuild's file loader when a file stage does not claim the import.
var assetExtensions = []string{".png", ".jpg", ".jpeg", ".svg", ".mpg", ".webp", ".gif", ".woff", ".woff2", ".ttf", ".eot"}

// entryPoint is a named entry resolved to an input file.
type entryPoint struct {
	Name  string
	Input string
}

// resolveEntries maps every configured entry to a file, looking for an index
// file with one of the resolve extensions when the entry is a directory.
func resolveEntries(cfg *config.Config) ([]entryPoint, error) {
	names := make([]string, 0, len(cfg.Entry))
	for name := range cfg.Entry {
		names = append(names, name)
	}
	sort.Strings(names)

	entries := make([]entryPoint, 0, len(names))
	for _, name := range names {
		input, err := resolveEntry(cfg.Entry[name], cfg.Resolve.Extensions)
		if err != nil {
			return nil, fmt.Errorf("entry %q: %w", name, err)
		}
		entries = append(entries, entryPoint{Name: name, Input: input})
	}

	return entries, nil
}

func resolveEntry(entry string, extensions []string) (string, error) {
	info, err := os.Stat(entry)
	if err == nil && !info.IsDir() {
		return entry, nil
	}

	base := entry
	if err == nil {
		base = filepath.Join(entry, "index")
	}

	for _, ext := range extensions {
		candidate := base + ext
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate, nil
		}
	}

	return "", fmt.Errorf("%w: %s", ErrNoEntry, entry)
}

// sourceMapMode picks the esbuild source map mode. A source map plugin wins over the devtool setting.
func sourceMapMode(cfg *config.Config) api.SourceMap {
	if cfg.Plugins.Count(config.PluginSourceMap) > 0 {
		return api.SourceMapLinked
	}

	switch devtool := cfg.Devtool; {
	case devtool == "":
		return api.SourceMapNone
	case strings.Contains(devtool, "eval"), strings.Contains(devtool, "inline"):
		return api.SourceMapInline
	case strings.HasPrefix(devtool, "hidden"):
		return api.SourceMapExternal
	default:
		return api.SourceMapLinked
	}
}

func target(cfg *config.Config, rules []compiledRule) (api.Target, error) {
	if cfg.Target != "" {
		t, ok := targets[strings.ToLower(cfg.Target)]
		if !ok {
			return api.DefaultTarget, fmt.Errorf("unsupported target %q", cfg.Target)
		}
		return t, nil
	}

	for _, rule := range rules {
		if rule.has(config.LoaderBabel) {
			return api.ES2015, nil
		}
	}

	return api.ESNext, nil
}

func loaders(rules []compiledRule) map[string]api.Loader {
	m := map[string]api.Loader{
		".js":   api.LoaderJS,
		".jsx":  api.LoaderJSX,
		".json": api.LoaderJSON,
		".css":  api.LoaderCSS,
	}

	for _, rule := range rules {
		if rule.has(config.LoaderBabel) {
			m[".js"] = api.LoaderJSX
		}
	}

	for _, ext := range assetExtensions {
		m[ext] = api.LoaderFile
	}

	return m
}

func (p *Pipeline) buildOptions(entries []entryPoint, rules []compiledRule, emitter *emitter) (api.BuildOptions, error) {
	cfg := p.config
	isProd := cfg.Mode.IsProduction()

	t, err := target(cfg, rules)
	if err != nil {
		return api.BuildOptions{}, err
	}

	entryNames, chunkNames := intermediateNames(cfg.Output.Filename)

	inputs := make([]string, 0, len(entries))
	for _, entry := range entries {
		inputs = append(inputs, entry.Input)
	}

	return api.BuildOptions{
		EntryPoints:       inputs,
		AbsWorkingDir:     cfg.Paths.Base,
		Bundle:            true,
		Splitting:         true,
		Write:             false,
		Metafile:          true,
		Format:            api.FormatESModule,
		Platform:          api.PlatformBrowser,
		Target:            t,
		Outdir:            cfg.Output.Path,
		EntryNames:        entryNames,
		ChunkNames:        chunkNames,
		AssetNames:        "[name]-[hash]",
		PublicPath:        cfg.Output.PublicPath,
		ResolveExtensions: cfg.Resolve.Extensions,
		Loader:            loaders(rules),
		MinifyWhitespace:  isProd,
		MinifyIdentifiers: isProd,
		MinifySyntax:      isProd,
		TreeShaking:       api.TreeShakingTrue,
		Sourcemap:         sourceMapMode(cfg),
		LogLevel:          api.LogLevelSilent,
		Plugins: []api.Plugin{
			aliasPlugin(cfg.Resolve.Alias),
			stagesPlugin(rules, emitter),
		},
	}, nil
}
