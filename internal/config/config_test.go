package config

import (
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func newProject(t *testing.T, files ...string) string {
	t.Helper()

	base := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(base, "src"), 0o755))
	for _, name := range files {
		require.NoError(t, os.WriteFile(filepath.Join(base, "src", name), []byte("<html></html>"), 0o600))
	}
	return base
}

func TestResolve_UnknownModeFallsBackToDevelopment(t *testing.T) {
	base := newProject(t, "index.html")

	dev, err := Resolve(Options{BaseDir: base}, Env{Mode: "development"})
	require.NoError(t, err)

	for _, mode := range []string{"", "staging", "Production", "prod"} {
		t.Run(mode, func(t *testing.T) {
			cfg, err := Resolve(Options{BaseDir: base}, Env{Mode: mode})
			require.NoError(t, err)
			require.Equal(t, dev, cfg)
		})
	}
}

func TestResolve_StrictRejectsUnknownMode(t *testing.T) {
	base := newProject(t, "index.html")

	_, err := Resolve(Options{BaseDir: base}, Env{Mode: "staging", Strict: true})
	require.ErrorIs(t, err, ErrUnknownMode)

	_, err = Resolve(Options{BaseDir: base}, Env{Mode: "production", Strict: true})
	require.NoError(t, err)
}

func TestResolve_PagesFilteredByExtension(t *testing.T) {
	base := newProject(t, "a.html", "b.html", "notes.txt")
	require.NoError(t, os.MkdirAll(filepath.Join(base, "src", "nested.html"), 0o755))

	pages, err := DiscoverPages(NewPathSet(base))
	require.NoError(t, err)
	require.ElementsMatch(t, []string{"a.html", "b.html"}, pages)

	cfg, err := Resolve(Options{BaseDir: base}, Env{})
	require.NoError(t, err)

	filenames := []string{}
	for _, page := range cfg.Pages() {
		filenames = append(filenames, page.Filename)
		assert.Equal(t, filepath.Join(base, "src", page.Filename), page.Template)
	}
	require.ElementsMatch(t, []string{"a.html", "b.html"}, filenames)
}

func TestResolve_MissingSourceRoot(t *testing.T) {
	base := t.TempDir()

	_, err := Resolve(Options{BaseDir: base}, Env{Mode: "production"})
	require.Error(t, err)
	require.ErrorIs(t, err, fs.ErrNotExist)

	var pathErr *fs.PathError
	require.ErrorAs(t, err, &pathErr)
	require.Equal(t, filepath.Join(base, "src"), pathErr.Path)
}

func TestResolve_ModePlugins(t *testing.T) {
	base := newProject(t, "index.html", "about.html")

	tests := []struct {
		mode      string
		imageMin  int
		sourceMap int
	}{
		{mode: "production", imageMin: 1, sourceMap: 0},
		{mode: "development", imageMin: 0, sourceMap: 1},
	}

	for _, tt := range tests {
		t.Run(tt.mode, func(t *testing.T) {
			cfg, err := Resolve(Options{BaseDir: base}, Env{Mode: tt.mode})
			require.NoError(t, err)

			require.Equal(t, tt.imageMin, cfg.Plugins.Count(PluginImageMin))
			require.Equal(t, tt.sourceMap, cfg.Plugins.Count(PluginSourceMap))
			require.Equal(t, 2, cfg.Plugins.Count(PluginHTMLPage))
			require.Equal(t, 1, cfg.Plugins.Count(PluginCSSExtract))
			require.Equal(t, 1, cfg.Plugins.Count(PluginClean))
			require.Equal(t, 1, cfg.Plugins.Count(PluginCopy))
			require.Zero(t, cfg.Plugins.Count(PluginCompression))
		})
	}
}

func TestResolve_MinifyTiedToMode(t *testing.T) {
	base := newProject(t, "index.html", "about.html", "contact.html")

	prod, err := Resolve(Options{BaseDir: base}, Env{Mode: "production"})
	require.NoError(t, err)
	for _, page := range prod.Pages() {
		require.Equal(t, MinifyOptions{
			CollapseWhitespace:            true,
			RemoveComments:                true,
			RemoveRedundantAttributes:     true,
			RemoveScriptTypeAttributes:    true,
			RemoveStyleLinkTypeAttributes: true,
			UseShortDoctype:               true,
		}, page.Minify)
	}

	dev, err := Resolve(Options{BaseDir: base}, Env{Mode: "development"})
	require.NoError(t, err)
	for _, page := range dev.Pages() {
		require.Equal(t, MinifyOptions{}, page.Minify)
		require.False(t, page.Minify.Enabled())
	}
}

func TestRules_SCSSExtendsCSS(t *testing.T) {
	for _, mode := range []Mode{ModeDevelopment, ModeProduction} {
		t.Run(mode.String(), func(t *testing.T) {
			var css, scss Rule
			for _, rule := range Rules(mode) {
				switch rule.Test {
				case TestCSS:
					css = rule
				case TestSCSS:
					scss = rule
				}
			}

			require.Len(t, scss.Use, len(css.Use)+1)
			require.Equal(t, css.Use, scss.Use[:len(css.Use)])
			require.Equal(t, LoaderSass, scss.Use[len(scss.Use)-1].Loader)
		})
	}
}

func TestRules_PostCSSOnlyInProduction(t *testing.T) {
	loaders := func(mode Mode) []string {
		for _, rule := range Rules(mode) {
			if rule.Test == TestCSS {
				names := []string{}
				for _, stage := range rule.Use {
					names = append(names, stage.Loader)
				}
				return names
			}
		}
		return nil
	}

	require.Equal(t, []string{LoaderStyle, LoaderExtract, LoaderCSS}, loaders(ModeDevelopment))
	require.Equal(t, []string{LoaderStyle, LoaderExtract, LoaderCSS, LoaderPostCSS}, loaders(ModeProduction))
}

func TestResolve_CopyPatternsTolerateMissing(t *testing.T) {
	base := newProject(t)

	cfg, err := Resolve(Options{BaseDir: base}, Env{Mode: "production"})
	require.NoError(t, err)

	var copyPlugin Copy
	for _, p := range cfg.Plugins {
		if c, ok := p.(Copy); ok {
			copyPlugin = c
		}
	}

	require.Len(t, copyPlugin.Patterns, 3)
	require.Equal(t, []CopyPattern{
		{From: filepath.Join(base, "src", "assets", "img"), To: "assets/img", NoErrorOnMissing: true},
		{From: filepath.Join(base, "src", "assets", "fonts"), To: "assets/fonts", NoErrorOnMissing: true},
		{From: filepath.Join(base, "src", "static"), To: "", NoErrorOnMissing: true},
	}, copyPlugin.Patterns)
}

func TestResolve_Idempotent(t *testing.T) {
	base := newProject(t, "index.html", "b.html")

	for _, mode := range []string{"development", "production"} {
		first, err := Resolve(Options{BaseDir: base}, Env{Mode: mode})
		require.NoError(t, err)
		second, err := Resolve(Options{BaseDir: base}, Env{Mode: mode})
		require.NoError(t, err)
		require.Equal(t, first, second)
	}
}

func TestResolve_Shape(t *testing.T) {
	base := newProject(t, "index.html")

	dev, err := Resolve(Options{BaseDir: base}, Env{})
	require.NoError(t, err)
	require.Equal(t, ModeDevelopment, dev.Mode)
	require.Equal(t, "cheap-module-eval-source-map", dev.Devtool)
	require.NotNil(t, dev.DevServer)
	require.True(t, dev.DevServer.Open)
	require.Equal(t, Overlay{Warnings: false, Errors: true}, dev.DevServer.Overlay)
	require.Equal(t, DefaultListen, dev.DevServer.Listen)

	prod, err := Resolve(Options{BaseDir: base}, Env{Mode: "production"})
	require.NoError(t, err)
	require.Empty(t, prod.Devtool)
	require.Nil(t, prod.DevServer)

	require.Equal(t, map[string]string{"app": filepath.Join(base, "src")}, prod.Entry)
	require.Equal(t, "assets/js/[name].[hash:4].js", prod.Output.Filename)
	require.Equal(t, filepath.Join(base, "dist"), prod.Output.Path)
	require.Equal(t, "assets/css/[name].[hash:4].css", prod.CSSFilename())
	require.Equal(t, filepath.Join(base, "src", "js"), prod.Resolve.Alias["@"])
	require.Equal(t, filepath.Join(base, "src"), prod.Resolve.Alias["~"])

	group, ok := prod.VendorGroup()
	require.True(t, ok)
	require.Equal(t, CacheGroup{Name: "vendors", Test: "node_modules", Chunks: "all", Enforce: true}, group)
}

func TestResolve_ProjectCompression(t *testing.T) {
	base := newProject(t, "index.html")
	project := Project{Compress: true}

	prod, err := Resolve(Options{BaseDir: base, Project: project}, Env{Mode: "production"})
	require.NoError(t, err)
	require.Equal(t, 1, prod.Plugins.Count(PluginCompression))
	require.Equal(t, PluginCompression, prod.Plugins[len(prod.Plugins)-1].PluginName())

	dev, err := Resolve(Options{BaseDir: base, Project: project}, Env{Mode: "development"})
	require.NoError(t, err)
	require.Zero(t, dev.Plugins.Count(PluginCompression))
}

func TestPathSet_Validate(t *testing.T) {
	require.NoError(t, NewPathSet("/srv/site").Validate())

	err := PathSet{Src: "/srv/site/src", Dist: "/srv/site/src"}.Validate()
	require.ErrorIs(t, err, ErrInvalidPaths)

	err = PathSet{Src: "/srv/site/dist/src", Dist: "/srv/site/dist"}.Validate()
	require.ErrorIs(t, err, ErrInvalidPaths)
}

func TestLoadProject(t *testing.T) {
	base := t.TempDir()

	project, err := LoadProject(base)
	require.NoError(t, err)
	require.Equal(t, Project{}, project)

	data := "compress: true\nmanifest: true\ntarget: es2020\ndevServer:\n  listen: 127.0.0.1:9000\n"
	require.NoError(t, os.WriteFile(filepath.Join(base, ProjectFile), []byte(data), 0o600))

	project, err = LoadProject(base)
	require.NoError(t, err)
	require.Equal(t, Project{
		Compress:  true,
		Manifest:  true,
		Target:    "es2020",
		DevServer: ProjectDevServer{Listen: "127.0.0.1:9000"},
	}, project)

	require.NoError(t, os.WriteFile(filepath.Join(base, ProjectFile), []byte("compress: ["), 0o600))
	_, err = LoadProject(base)
	require.Error(t, err)
}

func TestConfig_MarshalYAML(t *testing.T) {
	base := newProject(t, "index.html")

	cfg, err := Resolve(Options{BaseDir: base}, Env{Mode: "production"})
	require.NoError(t, err)

	data, err := yaml.Marshal(cfg)
	require.NoError(t, err)

	var doc struct {
		Mode    string `yaml:"mode"`
		Plugins []struct {
			Name string `yaml:"name"`
		} `yaml:"plugins"`
	}
	require.NoError(t, yaml.Unmarshal(data, &doc))
	require.Equal(t, "production", doc.Mode)

	names := []string{}
	for _, p := range doc.Plugins {
		names = append(names, p.Name)
	}
	require.Equal(t, []string{PluginHTMLPage, PluginCSSExtract, PluginClean, PluginCopy, PluginImageMin}, names)
}
