package bundler

import (
	"fmt"
	"path/filepath"

	"github.com/bep/golibsass/libsass"
)

// compileSass transpiles SCSS to CSS. Imports resolve relative to the file's directory.
func compileSass(path string, src []byte, sourceMap bool) ([]byte, error) {
	transpiler, err := libsass.New(libsass.Options{
		IncludePaths: []string{filepath.Dir(path)},
		OutputStyle:  libsass.ExpandedStyle,
		SourceMapOptions: libsass.SourceMapOptions{
			InputPath:      path,
			Contents:       sourceMap,
			EnableEmbedded: sourceMap,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create sass transpiler: %w", err)
	}

	result, err := transpiler.Execute(string(src))
	if err != nil {
		return nil, fmt.Errorf("failed to compile %s: %w", filepath.Base(path), err)
	}

	return []byte(result.CSS), nil
}
