package bundler

import (
	"encoding/json"
	"fmt"
	"path"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/evanw/esbuild/pkg/api"
	"github.com/wolfeidau/pagepack/internal/config"
)

// outputFile is a built file with its final path relative to the output root.
type outputFile struct {
	Path     string
	Contents []byte
}

// outputSet renames esbuild's intermediate outputs to the configured naming patterns.
type outputSet struct {
	cfg        *config.Config
	meta       BuildMetadata
	entryNames map[string]string // metafile entry point -> entry name
	vendorTest *regexp.Regexp
	vendorName string

	hash    string
	renames map[string]string // metafile key -> final path
}

func newOutputSet(cfg *config.Config, metafile string, entries []entryPoint, vendorTest *regexp.Regexp, vendorName string) (*outputSet, error) {
	set := &outputSet{
		cfg:        cfg,
		entryNames: map[string]string{},
		vendorTest: vendorTest,
		vendorName: vendorName,
		renames:    map[string]string{},
	}

	if err := json.Unmarshal([]byte(metafile), &set.meta); err != nil {
		return nil, fmt.Errorf("failed to parse metafile: %w", err)
	}

	// esbuild may report symlink resolved paths, so index both forms
	bases := []string{cfg.Paths.Base}
	if real, err := filepath.EvalSymlinks(cfg.Paths.Base); err == nil && real != cfg.Paths.Base {
		bases = append(bases, real)
	}
	for _, entry := range entries {
		inputs := []string{entry.Input}
		if real, err := filepath.EvalSymlinks(entry.Input); err == nil && real != entry.Input {
			inputs = append(inputs, real)
		}
		for _, base := range bases {
			for _, input := range inputs {
				if rel, err := filepath.Rel(base, input); err == nil {
					set.entryNames[filepath.ToSlash(rel)] = entry.Name
				}
			}
		}
	}

	return set, nil
}

func (s *outputSet) metaKey(abs string) string {
	rel, err := filepath.Rel(s.cfg.Paths.Base, abs)
	if err != nil {
		return filepath.ToSlash(abs)
	}
	return filepath.ToSlash(rel)
}

func (s *outputSet) distRel(abs string) string {
	rel, err := filepath.Rel(s.cfg.Output.Path, abs)
	if err != nil {
		return filepath.ToSlash(abs)
	}
	return filepath.ToSlash(rel)
}

// buildHash hashes every output path and its contents in path order.
func buildHash(files []api.OutputFile) string {
	sorted := make([]api.OutputFile, len(files))
	copy(sorted, files)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Path < sorted[j].Path })

	chunks := make([][]byte, 0, len(sorted)*2)
	for _, f := range sorted {
		chunks = append(chunks, []byte(f.Path), f.Contents)
	}
	return contentHash(chunks...)
}

// isVendorChunk reports whether every module in a chunk matches the vendor pattern.
func (s *outputSet) isVendorChunk(info OutputInfo) bool {
	if s.vendorTest == nil {
		return false
	}
	matched := 0
	for input := range info.Inputs {
		// esbuild helpers such as <runtime> belong to no package
		if strings.HasPrefix(input, "<") {
			continue
		}
		if !s.vendorTest.MatchString(input) {
			return false
		}
		matched++
	}
	return matched > 0
}

func (s *outputSet) sourceMapPattern() string {
	for _, p := range s.cfg.Plugins {
		if sm, ok := p.(config.SourceMap); ok && sm.Filename != "" {
			return sm.Filename
		}
	}
	return "[file].map"
}

// finalize renames, drops and rewrites outputs and builds the manifest.
func (s *outputSet) finalize(files []api.OutputFile) ([]outputFile, *Manifest) {
	s.hash = buildHash(files)

	sorted := make([]api.OutputFile, len(files))
	copy(sorted, files)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Path < sorted[j].Path })

	dropped := map[string]bool{}
	vendorNamed := false

	// stylesheets extracted from an entry take the entry's name
	cssNames := map[string]string{}
	for _, info := range s.meta.Outputs {
		if name, ok := s.entryNames[info.EntryPoint]; ok && info.CSSBundle != "" {
			cssNames[info.CSSBundle] = name
		}
	}

	for _, f := range sorted {
		key := s.metaKey(f.Path)
		if strings.HasSuffix(key, ".map") {
			continue
		}

		old := s.distRel(f.Path)
		info := s.meta.Outputs[key]

		switch ext := path.Ext(old); {
		case isVendorEntry(info.EntryPoint):
			dropped[key] = true
		case ext == ".css":
			name, ok := cssNames[key]
			if !ok {
				name, _ = splitName(old)
			}
			s.renames[key] = expandName(s.cfg.CSSFilename(), nameVars{Name: name, Ext: "css", Hash: s.hash})
		case ext == ".js" && info.EntryPoint != "":
			name, ok := s.entryNames[info.EntryPoint]
			if !ok {
				name, _ = splitName(old)
			}
			s.renames[key] = expandName(s.cfg.Output.Filename, nameVars{Name: name, Ext: "js", Hash: s.hash})
		case ext == ".js" && !vendorNamed && s.isVendorChunk(info):
			vendorNamed = true
			s.renames[key] = expandName(s.cfg.Output.Filename, nameVars{Name: s.vendorName, Ext: "js", Hash: s.hash})
		default:
			s.renames[key] = old
		}
	}

	mapPattern := s.sourceMapPattern()
	for _, f := range sorted {
		key := s.metaKey(f.Path)
		primary, ok := strings.CutSuffix(key, ".map")
		if !ok {
			continue
		}
		if dropped[primary] {
			dropped[key] = true
			continue
		}
		if final, ok := s.renames[primary]; ok {
			s.renames[key] = expandName(mapPattern, nameVars{File: final})
		} else {
			s.renames[key] = s.distRel(f.Path)
		}
	}

	replacer := s.referenceReplacer(sorted)

	out := make([]outputFile, 0, len(sorted))
	for _, f := range sorted {
		key := s.metaKey(f.Path)
		if dropped[key] {
			continue
		}

		contents := f.Contents
		switch path.Ext(key) {
		case ".js", ".css", ".map":
			contents = []byte(replacer.Replace(string(contents)))
		}
		out = append(out, outputFile{Path: s.renames[key], Contents: contents})
	}

	return out, s.manifest()
}

// referenceReplacer rewrites base names of renamed outputs, longest first.
func (s *outputSet) referenceReplacer(files []api.OutputFile) *strings.Replacer {
	type pair struct{ from, to string }
	pairs := []pair{}

	for _, f := range files {
		key := s.metaKey(f.Path)
		final, ok := s.renames[key]
		if !ok {
			continue
		}
		from, to := path.Base(s.distRel(f.Path)), path.Base(final)
		if from != to {
			pairs = append(pairs, pair{from, to})
		}
	}

	sort.Slice(pairs, func(i, j int) bool {
		if len(pairs[i].from) != len(pairs[j].from) {
			return len(pairs[i].from) > len(pairs[j].from)
		}
		return pairs[i].from < pairs[j].from
	})

	args := make([]string, 0, len(pairs)*2)
	for _, p := range pairs {
		args = append(args, p.from, p.to)
	}
	return strings.NewReplacer(args...)
}

func (s *outputSet) manifest() *Manifest {
	publicPath := s.cfg.Output.PublicPath
	manifest := &Manifest{Entries: map[string]EntryAssets{}}

	for key, info := range s.meta.Outputs {
		name, ok := s.entryNames[info.EntryPoint]
		if !ok || path.Ext(key) != ".js" {
			continue
		}

		assets := EntryAssets{Script: publicURL(publicPath, s.renames[key])}

		visited := map[string]bool{key: true}
		s.addDependencies(info, &assets.Imports, visited)

		if info.CSSBundle != "" {
			if final, ok := s.renames[info.CSSBundle]; ok {
				assets.Styles = append(assets.Styles, publicURL(publicPath, final))
			}
		}

		manifest.Entries[name] = assets
	}

	return manifest
}

func (s *outputSet) addDependencies(output OutputInfo, scripts *[]string, visited map[string]bool) {
	for _, imp := range output.Imports {
		if imp.External || visited[imp.Path] || path.Ext(imp.Path) != ".js" {
			continue
		}
		final, ok := s.renames[imp.Path]
		if !ok {
			continue
		}
		visited[imp.Path] = true
		*scripts = append(*scripts, publicURL(s.cfg.Output.PublicPath, final))

		if chunk, exists := s.meta.Outputs[imp.Path]; exists {
			s.addDependencies(chunk, scripts, visited)
		}
	}
}
