package bundler

import (
	"fmt"
	"path"
	"regexp"
	"strconv"
	"strings"

	"github.com/minio/crc64nvme"
)

var hashToken = regexp.MustCompile(`\[(?:content)?hash(?::(\d+))?\]`)

// nameVars are the substitutions available in output naming patterns.
type nameVars struct {
	Name string
	// Ext has no leading dot
	Ext  string
	File string
	Hash string
}

// expandName fills [name], [ext], [file] and [hash] or [hash:N] in pattern.
func expandName(pattern string, vars nameVars) string {
	out := hashToken.ReplaceAllStringFunc(pattern, func(tok string) string {
		m := hashToken.FindStringSubmatch(tok)
		n := len(vars.Hash)
		if m[1] != "" {
			if width, err := strconv.Atoi(m[1]); err == nil && width < n {
				n = width
			}
		}
		return vars.Hash[:n]
	})

	return strings.NewReplacer(
		"[name]", vars.Name,
		"[ext]", vars.Ext,
		"[file]", vars.File,
	).Replace(out)
}

// contentHash computes a CRC64-NVME over the given chunks as 16 hex digits.
func contentHash(chunks ...[]byte) string {
	h := crc64nvme.New()
	for _, chunk := range chunks {
		h.Write(chunk)
	}
	return fmt.Sprintf("%016x", h.Sum64())
}

// splitName splits an esbuild output base name of the form name.hash.ext.
func splitName(p string) (name, ext string) {
	base := path.Base(p)
	ext = path.Ext(base)
	stem := strings.TrimSuffix(base, ext)
	if i := strings.LastIndex(stem, "."); i > 0 {
		stem = stem[:i]
	}
	return stem, strings.TrimPrefix(ext, ".")
}

// intermediateNames converts a final naming pattern into the esbuild entry and chunk patterns.
// Outputs stay in the directory of the final pattern so relative imports between chunks survive renaming.
func intermediateNames(pattern string) (entryNames, chunkNames string) {
	dir := path.Dir(pattern)
	if dir == "." {
		return "[name].[hash]", "[name]-[hash]"
	}
	return dir + "/[name].[hash]", dir + "/[name]-[hash]"
}
