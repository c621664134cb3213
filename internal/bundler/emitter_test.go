package bundler

import (
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wolfeidau/pagepack/internal/config"
)

func TestEmitter_EmitAndWrite(t *testing.T) {
	src := t.TempDir()
	font := filepath.Join(src, "icons.woff2")
	img := filepath.Join(src, "dog.jpg")
	require.NoError(t, os.WriteFile(font, []byte("font"), 0o644))
	require.NoError(t, os.WriteFile(img, []byte("jpeg"), 0o644))

	e := newEmitter("/")

	url, err := e.emit(font, config.StageOptions{OutputPath: "fonts", Name: "[name].[ext]"})
	require.NoError(t, err)
	assert.Equal(t, "/fonts/icons.woff2", url)

	url, err = e.emit(img, config.StageOptions{Name: "[name].[ext]"})
	require.NoError(t, err)
	assert.Equal(t, "/dog.jpg", url)

	dist := t.TempDir()
	written, err := e.write(dist)
	require.NoError(t, err)
	assert.Equal(t, []string{"dog.jpg", "fonts/icons.woff2"}, written)

	data, err := os.ReadFile(filepath.Join(dist, "fonts", "icons.woff2"))
	require.NoError(t, err)
	assert.Equal(t, "font", string(data))
}

func TestEmitter_HashedName(t *testing.T) {
	img := filepath.Join(t.TempDir(), "logo.png")
	require.NoError(t, os.WriteFile(img, []byte("png"), 0o644))

	url, err := newEmitter("/").emit(img, config.StageOptions{Name: "img/[name].[hash:8].[ext]"})
	require.NoError(t, err)
	assert.Regexp(t, `^/img/logo\.[0-9a-f]{8}\.png$`, url)
}

func TestEmitter_DefaultName(t *testing.T) {
	img := filepath.Join(t.TempDir(), "cat.gif")
	require.NoError(t, os.WriteFile(img, []byte("gif"), 0o644))

	url, err := newEmitter("").emit(img, config.StageOptions{})
	require.NoError(t, err)
	assert.Equal(t, "cat.gif", url)
}

func TestEmitter_Concurrent(t *testing.T) {
	src := t.TempDir()
	e := newEmitter("/")

	var wg sync.WaitGroup
	for i := range 20 {
		name := filepath.Join(src, string(rune('a'+i))+".png")
		require.NoError(t, os.WriteFile(name, []byte("x"), 0o644))

		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := e.emit(name, config.StageOptions{Name: "[name].[ext]"})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	written, err := e.write(t.TempDir())
	require.NoError(t, err)
	assert.Len(t, written, 20)
}

func TestPublicURL(t *testing.T) {
	assert.Equal(t, "a.png", publicURL("", "a.png"))
	assert.Equal(t, "/fonts/a.woff", publicURL("/", "fonts/a.woff"))
	assert.Equal(t, "https://cdn.example.com/site/a.png", publicURL("https://cdn.example.com/site/", "a.png"))
}
