package config

import (
	"fmt"
	"os"
	"strings"
)

// PageExtension marks files in the source root that become generated pages.
const PageExtension = ".html"

// DiscoverPages lists the source root and returns the names of page files.
// A missing or unreadable source root is returned as a wrapped *fs.PathError.
// Order follows the directory listing and must not be relied upon.
func DiscoverPages(paths PathSet) ([]string, error) {
	entries, err := os.ReadDir(paths.Src)
	if err != nil {
		return nil, fmt.Errorf("failed to list pages: %w", err)
	}

	pages := []string{}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if strings.HasSuffix(entry.Name(), PageExtension) {
			pages = append(pages, entry.Name())
		}
	}

	return pages, nil
}
