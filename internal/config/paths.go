package config

import (
	"fmt"
	"path/filepath"
	"strings"
)

const (
	sourceDirName = "src"
	outputDirName = "dist"
	assetsDirName = "assets"
	staticDirName = "static"
)

// PathSet holds the filesystem locations used by every part of the build.
// It is computed once per Resolve call and passed explicitly to the builders.
type PathSet struct {
	// Base is the project directory all other paths derive from
	Base string `yaml:"base" json:"base"`
	// Src is the source root, scanned for pages and used as the app entry
	Src string `yaml:"src" json:"src"`
	// Dist is the output root
	Dist string `yaml:"dist" json:"dist"`
	// Assets is the asset subdirectory, relative to both Src and Dist
	Assets string `yaml:"assets" json:"assets"`
}

// NewPathSet derives the standard layout from a base directory.
func NewPathSet(base string) PathSet {
	base = filepath.Clean(base)
	return PathSet{
		Base:   base,
		Src:    filepath.Join(base, sourceDirName),
		Dist:   filepath.Join(base, outputDirName),
		Assets: assetsDirName,
	}
}

// Validate checks the output root can never clobber the source root.
func (p PathSet) Validate() error {
	src, dist := filepath.Clean(p.Src), filepath.Clean(p.Dist)
	if src == dist {
		return fmt.Errorf("%w: source and output roots are both %s", ErrInvalidPaths, src)
	}
	if rel, err := filepath.Rel(dist, src); err == nil && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return fmt.Errorf("%w: source root %s is inside output root %s", ErrInvalidPaths, src, dist)
	}
	return nil
}

// SourceAssets returns a directory under the source asset root, e.g. img or fonts.
func (p PathSet) SourceAssets(name string) string {
	return filepath.Join(p.Src, p.Assets, name)
}

// Static returns the directory whose contents are copied to the output root.
func (p PathSet) Static() string {
	return filepath.Join(p.Src, staticDirName)
}

// JS returns the directory targeted by the "@" alias.
func (p PathSet) JS() string {
	return filepath.Join(p.Src, "js")
}
