package bundler

import (
	"fmt"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/wolfeidau/pagepack/internal/config"
	"github.com/wolfeidau/pagepack/internal/util"
)

// emitter records files claimed by file stages. esbuild invokes plugin
// callbacks concurrently, so all access goes through mu.
type emitter struct {
	publicPath string
	mu         sync.Mutex
	assets     map[string]string // output path -> source path
}

func newEmitter(publicPath string) *emitter {
	return &emitter{
		publicPath: publicPath,
		assets:     map[string]string{},
	}
}

// emit registers src for copying and returns its public URL.
func (e *emitter) emit(src string, opts config.StageOptions) (string, error) {
	pattern := opts.Name
	if pattern == "" {
		pattern = "[name].[ext]"
	}

	ext := strings.TrimPrefix(filepath.Ext(src), ".")
	vars := nameVars{
		Name: strings.TrimSuffix(filepath.Base(src), filepath.Ext(src)),
		Ext:  ext,
		File: filepath.Base(src),
	}

	if hashToken.MatchString(pattern) {
		data, err := os.ReadFile(src)
		if err != nil {
			return "", fmt.Errorf("failed to hash asset: %w", err)
		}
		vars.Hash = contentHash(data)
	}

	rel := path.Join(filepath.ToSlash(opts.OutputPath), expandName(pattern, vars))

	e.mu.Lock()
	e.assets[rel] = src
	e.mu.Unlock()

	return publicURL(e.publicPath, rel), nil
}

// write copies every emitted asset under dist and returns the written paths.
func (e *emitter) write(dist string) ([]string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	written := make([]string, 0, len(e.assets))
	for rel, src := range e.assets {
		if err := util.CopyFile(src, filepath.Join(dist, filepath.FromSlash(rel))); err != nil {
			return nil, fmt.Errorf("failed to emit asset %s: %w", rel, err)
		}
		written = append(written, rel)
	}
	sort.Strings(written)

	return written, nil
}

func publicURL(publicPath, rel string) string {
	if publicPath == "" {
		return rel
	}
	return strings.TrimSuffix(publicPath, "/") + "/" + strings.TrimPrefix(rel, "/")
}
