package config

import (
	"github.com/rs/zerolog/log"
)

// DefaultListen is the dev server address used when neither flags nor the project file set one.
const DefaultListen = "localhost:8080"

// Env is the environment descriptor passed to Resolve.
type Env struct {
	Mode string
	// Strict rejects unrecognized modes instead of treating them as development
	Strict bool
}

// Options carries the inputs to Resolve that are not part of the environment.
type Options struct {
	BaseDir string
	Project Project
}

type Output struct {
	Filename   string `yaml:"filename" json:"filename"`
	Path       string `yaml:"path" json:"path"`
	PublicPath string `yaml:"publicPath" json:"publicPath"`
}

// CacheGroup moves modules whose path matches Test into a chunk called Name.
type CacheGroup struct {
	Name    string `yaml:"name" json:"name"`
	Test    string `yaml:"test" json:"test"`
	Chunks  string `yaml:"chunks" json:"chunks"`
	Enforce bool   `yaml:"enforce" json:"enforce"`
}

type SplitChunks struct {
	CacheGroups map[string]CacheGroup `yaml:"cacheGroups" json:"cacheGroups"`
}

type Optimization struct {
	SplitChunks SplitChunks `yaml:"splitChunks" json:"splitChunks"`
}

type Resolution struct {
	Extensions []string          `yaml:"extensions" json:"extensions"`
	Alias      map[string]string `yaml:"alias" json:"alias"`
}

type Module struct {
	Rules []Rule `yaml:"rules" json:"rules"`
}

type Overlay struct {
	Warnings bool `yaml:"warnings" json:"warnings"`
	Errors   bool `yaml:"errors" json:"errors"`
}

type DevServer struct {
	Open    bool    `yaml:"open" json:"open"`
	Overlay Overlay `yaml:"overlay" json:"overlay"`
	Listen  string  `yaml:"listen" json:"listen"`
}

// Config is the complete build configuration handed to the bundler engine.
type Config struct {
	Mode         Mode              `yaml:"mode" json:"mode"`
	Paths        PathSet           `yaml:"paths" json:"paths"`
	Devtool      string            `yaml:"devtool,omitempty" json:"devtool,omitempty"`
	DevServer    *DevServer        `yaml:"devServer,omitempty" json:"devServer,omitempty"`
	Entry        map[string]string `yaml:"entry" json:"entry"`
	Output       Output            `yaml:"output" json:"output"`
	Optimization Optimization      `yaml:"optimization" json:"optimization"`
	Resolve      Resolution        `yaml:"resolve" json:"resolve"`
	Module       Module            `yaml:"module" json:"module"`
	Plugins      Plugins           `yaml:"plugins" json:"plugins"`
	// Target and Manifest come from the project file
	Target   string `yaml:"target,omitempty" json:"target,omitempty"`
	Manifest bool   `yaml:"manifest,omitempty" json:"manifest,omitempty"`
}

// Resolve computes the build configuration. It reads the source root once to
// discover pages and has no other side effects.
func Resolve(opts Options, env Env) (*Config, error) {
	mode, err := ParseMode(env.Mode)
	if err != nil {
		if env.Strict {
			return nil, err
		}
		log.Warn().Err(err).Str("fallback", mode.String()).Msg("Unrecognized mode, using development")
	}

	paths := NewPathSet(opts.BaseDir)
	if err := paths.Validate(); err != nil {
		return nil, err
	}

	pages, err := DiscoverPages(paths)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Mode:  mode,
		Paths: paths,
		Entry: map[string]string{
			"app": paths.Src,
		},
		Output: Output{
			Filename:   paths.Assets + "/js/[name].[hash:4].js",
			Path:       paths.Dist,
			PublicPath: "/",
		},
		Optimization: Optimization{
			SplitChunks: SplitChunks{
				CacheGroups: map[string]CacheGroup{
					"vendor": {
						Name:    "vendors",
						Test:    "node_modules",
						Chunks:  "all",
						Enforce: true,
					},
				},
			},
		},
		Resolve: Resolution{
			Extensions: []string{".js", ".json", ".jsx"},
			Alias: map[string]string{
				"~": paths.Src,
				"@": paths.JS(),
			},
		},
		Module:   Module{Rules: Rules(mode)},
		Plugins:  BuildPlugins(paths, mode, pages, opts.Project),
		Target:   opts.Project.Target,
		Manifest: opts.Project.Manifest,
	}

	if mode.IsDevelopment() {
		cfg.Devtool = "cheap-module-eval-source-map"
		cfg.DevServer = &DevServer{
			Open: true,
			Overlay: Overlay{
				Warnings: false,
				Errors:   true,
			},
			Listen: listenAddr(opts.Project),
		}
	}

	log.Debug().Str("mode", mode.String()).Strs("pages", pages).Int("plugins", len(cfg.Plugins)).Msg("Resolved build configuration")

	return cfg, nil
}

// Pages returns the html page plugins of the configuration.
func (c *Config) Pages() []HTMLPage {
	pages := []HTMLPage{}
	for _, p := range c.Plugins {
		if page, ok := p.(HTMLPage); ok {
			pages = append(pages, page)
		}
	}
	return pages
}

// CSSFilename returns the extracted stylesheet naming pattern.
func (c *Config) CSSFilename() string {
	for _, p := range c.Plugins {
		if extract, ok := p.(CSSExtract); ok {
			return extract.Filename
		}
	}
	return c.Paths.Assets + "/css/[name].[hash:4].css"
}

// VendorGroup returns the cache group that collects third party modules.
func (c *Config) VendorGroup() (CacheGroup, bool) {
	group, ok := c.Optimization.SplitChunks.CacheGroups["vendor"]
	return group, ok
}

func listenAddr(project Project) string {
	if project.DevServer.Listen != "" {
		return project.DevServer.Listen
	}
	return DefaultListen
}
