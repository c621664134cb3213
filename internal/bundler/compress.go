package bundler

import (
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/rs/zerolog/log"
	"github.com/wolfeidau/pagepack/internal/config"
)

var compressedExtensions = map[string]string{
	"gzip": ".gz",
	"zstd": ".zst",
}

// precompress writes a compressed sibling for each matching file under dist
// and returns the written paths relative to dist.
func precompress(dist string, plugin config.Compression) ([]string, error) {
	test, err := regexp.Compile(plugin.Test)
	if err != nil {
		return nil, fmt.Errorf("invalid compression test %q: %w", plugin.Test, err)
	}

	for _, alg := range plugin.Algorithms {
		if _, ok := compressedExtensions[alg]; !ok {
			return nil, fmt.Errorf("unsupported compression algorithm %q", alg)
		}
	}

	written := []string{}
	err = filepath.WalkDir(dist, func(p string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() || !test.MatchString(p) {
			return err
		}

		info, err := d.Info()
		if err != nil {
			return err
		}
		if info.Size() < int64(plugin.Threshold) {
			return nil
		}

		for _, alg := range plugin.Algorithms {
			target := p + compressedExtensions[alg]
			if err := compressFile(p, target, alg); err != nil {
				return err
			}

			rel, _ := filepath.Rel(dist, target)
			written = append(written, filepath.ToSlash(rel))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Debug().Int("files", len(written)).Msg("Precompressed assets")
	return written, nil
}

func compressFile(src, dst, alg string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", src, err)
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", dst, err)
	}

	var enc io.WriteCloser
	switch alg {
	case "gzip":
		enc, err = gzip.NewWriterLevel(out, gzip.BestCompression)
	case "zstd":
		enc, err = zstd.NewWriter(out, zstd.WithEncoderLevel(zstd.SpeedBestCompression))
	}
	if err != nil {
		_ = out.Close()
		os.Remove(dst)
		return fmt.Errorf("failed to create encoder: %w", err)
	}

	if _, err := io.Copy(enc, in); err != nil {
		_ = enc.Close()
		_ = out.Close()
		os.Remove(dst)
		return fmt.Errorf("failed to compress: %w", err)
	}

	// close encoder to flush
	if err := enc.Close(); err != nil {
		_ = out.Close()
		os.Remove(dst)
		return fmt.Errorf("failed to close encoder: %w", err)
	}

	return out.Close()
}
