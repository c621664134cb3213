package bundler

import (
	"bytes"
	"fmt"
	"image/gif"
	"image/jpeg"
	"image/png"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/wolfeidau/pagepack/internal/config"
)

// ImageStats summarises an image optimisation pass.
type ImageStats struct {
	Processed  int
	Optimized  int
	BytesSaved int64
}

type imageOptimizer func(src []byte) ([]byte, error)

// optimizeImages re-encodes every image under dist with the plugin's settings,
// keeping the new version only when it is smaller.
func optimizeImages(dist string, plugin config.ImageMin) (ImageStats, error) {
	var stats ImageStats

	optimizers := map[string]imageOptimizer{
		".jpg":  jpegOptimizer(plugin.JPEG),
		".jpeg": jpegOptimizer(plugin.JPEG),
		".png":  pngOptimizer(plugin.PNG),
		".gif":  gifOptimizer(plugin.GIF),
		".svg":  svgOptimizer(plugin.SVG),
	}

	err := filepath.WalkDir(dist, func(p string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}

		optimize, ok := optimizers[strings.ToLower(filepath.Ext(p))]
		if !ok {
			return nil
		}

		src, err := os.ReadFile(p)
		if err != nil {
			return err
		}
		stats.Processed++

		out, err := optimize(src)
		if err != nil {
			// undecodable images are left untouched
			log.Warn().Err(err).Str("file", p).Msg("Failed to optimize image")
			return nil
		}

		if len(out) >= len(src) {
			return nil
		}

		if err := os.WriteFile(p, out, 0o644); err != nil { //nolint:gosec
			return fmt.Errorf("failed to write optimized image: %w", err)
		}
		stats.Optimized++
		stats.BytesSaved += int64(len(src) - len(out))
		return nil
	})

	return stats, err
}

// jpegOptimizer re-encodes at the configured quality. The standard encoder
// only writes baseline images, so Progressive is not applied.
func jpegOptimizer(opts config.JPEGOptions) imageOptimizer {
	quality := opts.Quality
	if quality <= 0 || quality > 100 {
		quality = jpeg.DefaultQuality
	}

	return func(src []byte) ([]byte, error) {
		img, err := jpeg.Decode(bytes.NewReader(src))
		if err != nil {
			return nil, err
		}
		var buf bytes.Buffer
		if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	}
}

// pngOptimizer maps optipng levels onto the encoder's compression levels.
func pngOptimizer(opts config.PNGOptions) imageOptimizer {
	level := png.DefaultCompression
	switch {
	case opts.OptimizationLevel >= 3:
		level = png.BestCompression
	case opts.OptimizationLevel == 0:
		level = png.BestSpeed
	}

	return func(src []byte) ([]byte, error) {
		img, err := png.Decode(bytes.NewReader(src))
		if err != nil {
			return nil, err
		}
		var buf bytes.Buffer
		enc := png.Encoder{CompressionLevel: level}
		if err := enc.Encode(&buf, img); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	}
}

// gifOptimizer re-encodes every frame. The standard encoder does not write interlaced frames.
func gifOptimizer(_ config.GIFOptions) imageOptimizer {
	return func(src []byte) ([]byte, error) {
		g, err := gif.DecodeAll(bytes.NewReader(src))
		if err != nil {
			return nil, err
		}
		var buf bytes.Buffer
		if err := gif.EncodeAll(&buf, g); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	}
}

// svgOptimizer minifies markup. The minifier never drops the viewBox attribute.
func svgOptimizer(_ config.SVGOptions) imageOptimizer {
	return minifySVG
}
