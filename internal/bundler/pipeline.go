package bundler

import (
	"sync"

	"github.com/wolfeidau/pagepack/internal/config"
)

// BuildMetadata is the subset of the esbuild metafile the pipeline reads.
type BuildMetadata struct {
	Inputs  map[string]InputInfo  `json:"inputs"`
	Outputs map[string]OutputInfo `json:"outputs"`
}

type InputInfo struct {
	Imports []ImportInfo `json:"imports"`
}

type OutputInfo struct {
	EntryPoint string                     `json:"entryPoint"`
	CSSBundle  string                     `json:"cssBundle"`
	Imports    []ImportInfo               `json:"imports"`
	Inputs     map[string]OutputInputInfo `json:"inputs"`
}

type OutputInputInfo struct {
	BytesInOutput int `json:"bytesInOutput"`
}

type ImportInfo struct {
	Path     string `json:"path"`
	Kind     string `json:"kind"`
	External bool   `json:"external"`
	Original string `json:"original"`
}

// Manifest maps entry names to the public URLs of their built files.
type Manifest struct {
	Entries map[string]EntryAssets `json:"entries"`
}

type EntryAssets struct {
	Script string `json:"script"`
	// Imports are chunks loaded by Script, in dependency order
	Imports []string `json:"imports,omitempty"`
	Styles  []string `json:"styles,omitempty"`
}

// Pipeline runs builds for one resolved configuration and keeps the last manifest.
type Pipeline struct {
	config   *config.Config
	manifest *Manifest
	mu       sync.RWMutex
}

// New creates a new pipeline for the given configuration
func New(cfg *config.Config) *Pipeline {
	return &Pipeline{
		config: cfg,
	}
}

// LoadScripts returns the ordered list of script URLs needed for the given entry
// and the entry script URL itself
func (p *Pipeline) LoadScripts(entry string) ([]string, string, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.manifest == nil {
		return nil, "", ErrNotBuilt
	}

	assets, ok := p.manifest.Entries[entry]
	if !ok {
		return nil, "", ErrNoEntry
	}

	scripts := append([]string{assets.Script}, assets.Imports...)
	return scripts, assets.Script, nil
}
