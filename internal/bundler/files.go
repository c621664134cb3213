package bundler

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"

	"github.com/rs/zerolog/log"
	"github.com/wolfeidau/pagepack/internal/config"
	"github.com/wolfeidau/pagepack/internal/util"
)

// clean removes everything below dist, keeping the directory itself.
func clean(dist string) error {
	entries, err := os.ReadDir(dist)
	if errors.Is(err, fs.ErrNotExist) {
		return os.MkdirAll(dist, 0o755)
	}
	if err != nil {
		return fmt.Errorf("failed to list output directory: %w", err)
	}

	for _, entry := range entries {
		if err := os.RemoveAll(filepath.Join(dist, entry.Name())); err != nil {
			return fmt.Errorf("failed to clean output directory: %w", err)
		}
	}

	log.Debug().Str("dir", dist).Int("removed", len(entries)).Msg("Cleaned output directory")
	return nil
}

// copyPatterns runs every copy pattern and returns the written paths relative to dist.
func copyPatterns(dist string, plugin config.Copy) ([]string, error) {
	written := []string{}

	for _, pattern := range plugin.Patterns {
		info, err := os.Stat(pattern.From)
		if errors.Is(err, fs.ErrNotExist) && pattern.NoErrorOnMissing {
			log.Debug().Str("from", pattern.From).Msg("Copy source missing, skipping")
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to copy %s: %w", pattern.From, err)
		}

		dst := filepath.Join(dist, filepath.FromSlash(pattern.To))

		if !info.IsDir() {
			target := filepath.Join(dst, info.Name())
			if err := util.CopyFile(pattern.From, target); err != nil {
				return nil, err
			}
			written = append(written, path.Join(pattern.To, info.Name()))
			continue
		}

		copied, err := util.CopyDir(pattern.From, dst)
		if err != nil {
			return nil, fmt.Errorf("failed to copy %s: %w", pattern.From, err)
		}
		for _, rel := range copied {
			written = append(written, path.Join(pattern.To, rel))
		}

		log.Debug().Str("from", pattern.From).Str("to", pattern.To).Int("files", len(copied)).Msg("Copied files")
	}

	return written, nil
}
