package bundler

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wolfeidau/pagepack/internal/config"
)

func TestClean(t *testing.T) {
	dist := t.TempDir()
	touch(t, filepath.Join(dist, "assets", "js", "old.js"))
	touch(t, filepath.Join(dist, "index.html"))

	require.NoError(t, clean(dist))

	entries, err := os.ReadDir(dist)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestClean_MissingDirectory(t *testing.T) {
	dist := filepath.Join(t.TempDir(), "dist")

	require.NoError(t, clean(dist))

	info, err := os.Stat(dist)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestCopyPatterns(t *testing.T) {
	src := t.TempDir()
	dist := t.TempDir()
	touch(t, filepath.Join(src, "assets", "img", "dog.jpg"))
	touch(t, filepath.Join(src, "assets", "img", "icons", "star.svg"))
	touch(t, filepath.Join(src, "static", "robots.txt"))

	plugin := config.Copy{Patterns: []config.CopyPattern{
		{From: filepath.Join(src, "assets", "img"), To: "assets/img", NoErrorOnMissing: true},
		{From: filepath.Join(src, "assets", "fonts"), To: "assets/fonts", NoErrorOnMissing: true},
		{From: filepath.Join(src, "static"), To: "", NoErrorOnMissing: true},
	}}

	written, err := copyPatterns(dist, plugin)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{
		"assets/img/dog.jpg",
		"assets/img/icons/star.svg",
		"robots.txt",
	}, written)

	_, err = os.Stat(filepath.Join(dist, "robots.txt"))
	require.NoError(t, err)
	_, err = os.Stat(filepath.Join(dist, "assets", "img", "icons", "star.svg"))
	require.NoError(t, err)
}

func TestCopyPatterns_MissingSource(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "nope")

	written, err := copyPatterns(t.TempDir(), config.Copy{Patterns: []config.CopyPattern{
		{From: missing, To: "x", NoErrorOnMissing: true},
	}})
	require.NoError(t, err)
	assert.Empty(t, written)

	_, err = copyPatterns(t.TempDir(), config.Copy{Patterns: []config.CopyPattern{
		{From: missing, To: "x"},
	}})
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestCopyPatterns_SingleFile(t *testing.T) {
	src := t.TempDir()
	dist := t.TempDir()
	favicon := filepath.Join(src, "favicon.ico")
	touch(t, favicon)

	written, err := copyPatterns(dist, config.Copy{Patterns: []config.CopyPattern{{From: favicon, To: "img"}}})
	require.NoError(t, err)
	assert.Equal(t, []string{"img/favicon.ico"}, written)
}
