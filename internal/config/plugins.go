package config

import (
	"encoding/json"
	"path/filepath"
)

// Plugin names, as reported by PluginName.
const (
	PluginHTMLPage    = "html-page"
	PluginCSSExtract  = "css-extract"
	PluginClean       = "clean"
	PluginCopy        = "copy"
	PluginSourceMap   = "source-map"
	PluginImageMin    = "image-min"
	PluginCompression = "compression"
)

// Plugin is a build time extension run by the bundler engine.
type Plugin interface {
	PluginName() string
}

// MinifyOptions controls html page minification. All fields follow the same mode flag.
type MinifyOptions struct {
	CollapseWhitespace            bool `yaml:"collapseWhitespace" json:"collapseWhitespace"`
	RemoveComments                bool `yaml:"removeComments" json:"removeComments"`
	RemoveRedundantAttributes     bool `yaml:"removeRedundantAttributes" json:"removeRedundantAttributes"`
	RemoveScriptTypeAttributes    bool `yaml:"removeScriptTypeAttributes" json:"removeScriptTypeAttributes"`
	RemoveStyleLinkTypeAttributes bool `yaml:"removeStyleLinkTypeAttributes" json:"removeStyleLinkTypeAttributes"`
	UseShortDoctype               bool `yaml:"useShortDoctype" json:"useShortDoctype"`
}

// Enabled reports whether any minification is requested.
func (m MinifyOptions) Enabled() bool {
	return m.CollapseWhitespace || m.RemoveComments || m.RemoveRedundantAttributes ||
		m.RemoveScriptTypeAttributes || m.RemoveStyleLinkTypeAttributes || m.UseShortDoctype
}

// HTMLPage generates one output page from a template, injecting the built scripts and styles.
type HTMLPage struct {
	Template string        `yaml:"template" json:"template"`
	Filename string        `yaml:"filename" json:"filename"`
	Minify   MinifyOptions `yaml:"minify" json:"minify"`
}

// CSSExtract names the extracted stylesheet files.
type CSSExtract struct {
	Filename string `yaml:"filename" json:"filename"`
}

// Clean removes prior output before each build.
type Clean struct{}

// CopyPattern copies a directory tree into the output root.
type CopyPattern struct {
	From string `yaml:"from" json:"from"`
	// To is relative to the output root, empty means the root itself
	To               string `yaml:"to" json:"to"`
	NoErrorOnMissing bool   `yaml:"noErrorOnMissing" json:"noErrorOnMissing"`
}

type Copy struct {
	Patterns []CopyPattern `yaml:"patterns" json:"patterns"`
}

// SourceMap writes one map file per output file, named by Filename where [file] is the output path.
type SourceMap struct {
	Filename string `yaml:"filename" json:"filename"`
}

type GIFOptions struct {
	Interlaced bool `yaml:"interlaced" json:"interlaced"`
}

type JPEGOptions struct {
	Quality     int  `yaml:"quality" json:"quality"`
	Progressive bool `yaml:"progressive" json:"progressive"`
}

type PNGOptions struct {
	OptimizationLevel int `yaml:"optimizationLevel" json:"optimizationLevel"`
}

type SVGOptions struct {
	RemoveViewBox bool `yaml:"removeViewBox" json:"removeViewBox"`
}

// ImageMin optimises emitted images in place.
type ImageMin struct {
	GIF  GIFOptions  `yaml:"gif" json:"gif"`
	JPEG JPEGOptions `yaml:"jpeg" json:"jpeg"`
	PNG  PNGOptions  `yaml:"png" json:"png"`
	SVG  SVGOptions  `yaml:"svg" json:"svg"`
}

// Compression writes precompressed siblings of text assets.
type Compression struct {
	Algorithms []string `yaml:"algorithms" json:"algorithms"`
	Test       string   `yaml:"test" json:"test"`
	// Threshold is the minimum file size in bytes worth compressing
	Threshold int `yaml:"threshold" json:"threshold"`
}

func (HTMLPage) PluginName() string    { return PluginHTMLPage }
func (CSSExtract) PluginName() string  { return PluginCSSExtract }
func (Clean) PluginName() string       { return PluginClean }
func (Copy) PluginName() string        { return PluginCopy }
func (SourceMap) PluginName() string   { return PluginSourceMap }
func (ImageMin) PluginName() string    { return PluginImageMin }
func (Compression) PluginName() string { return PluginCompression }

// Plugins is the ordered plugin list of a Config.
type Plugins []Plugin

type namedPlugin struct {
	Name    string `yaml:"name" json:"name"`
	Options Plugin `yaml:"options" json:"options"`
}

func (p Plugins) named() []namedPlugin {
	out := make([]namedPlugin, 0, len(p))
	for _, plugin := range p {
		out = append(out, namedPlugin{Name: plugin.PluginName(), Options: plugin})
	}
	return out
}

func (p Plugins) MarshalYAML() (any, error) {
	return p.named(), nil
}

func (p Plugins) MarshalJSON() ([]byte, error) {
	return json.Marshal(p.named())
}

// Count returns how many plugins have the given name.
func (p Plugins) Count(name string) int {
	n := 0
	for _, plugin := range p {
		if plugin.PluginName() == name {
			n++
		}
	}
	return n
}

// BuildPlugins assembles the plugin list from fixed sub lists selected by mode.
func BuildPlugins(paths PathSet, mode Mode, pages []string, project Project) Plugins {
	plugins := Plugins{}
	plugins = append(plugins, pagePlugins(paths, mode, pages)...)
	plugins = append(plugins, commonPlugins(paths)...)
	plugins = append(plugins, modePlugins(mode, project)...)
	return plugins
}

func pagePlugins(paths PathSet, mode Mode, pages []string) Plugins {
	isProd := mode.IsProduction()
	plugins := make(Plugins, 0, len(pages))
	for _, page := range pages {
		plugins = append(plugins, HTMLPage{
			Template: filepath.Join(paths.Src, page),
			Filename: page,
			Minify: MinifyOptions{
				CollapseWhitespace:            isProd,
				RemoveComments:                isProd,
				RemoveRedundantAttributes:     isProd,
				RemoveScriptTypeAttributes:    isProd,
				RemoveStyleLinkTypeAttributes: isProd,
				UseShortDoctype:               isProd,
			},
		})
	}
	return plugins
}

func commonPlugins(paths PathSet) Plugins {
	return Plugins{
		CSSExtract{Filename: paths.Assets + "/css/[name].[hash:4].css"},
		Clean{},
		Copy{Patterns: []CopyPattern{
			// images
			{From: paths.SourceAssets("img"), To: paths.Assets + "/img", NoErrorOnMissing: true},
			// fonts
			{From: paths.SourceAssets("fonts"), To: paths.Assets + "/fonts", NoErrorOnMissing: true},
			// static files land in the output root
			{From: paths.Static(), To: "", NoErrorOnMissing: true},
		}},
	}
}

func modePlugins(mode Mode, project Project) Plugins {
	switch {
	case mode.IsDevelopment():
		return Plugins{SourceMap{Filename: "[file].map"}}
	case mode.IsProduction():
		plugins := Plugins{ImageMin{
			GIF:  GIFOptions{Interlaced: true},
			JPEG: JPEGOptions{Quality: 75, Progressive: true},
			PNG:  PNGOptions{OptimizationLevel: 5},
			SVG:  SVGOptions{RemoveViewBox: false},
		}}
		if project.Compress {
			plugins = append(plugins, Compression{
				Algorithms: []string{"gzip", "zstd"},
				Test:       `\.(js|css|html|svg|json)$`,
				Threshold:  1024,
			})
		}
		return plugins
	default:
		return nil
	}
}
