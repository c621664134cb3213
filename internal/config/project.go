package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// ProjectFile is the optional per project settings file read from the base directory.
const ProjectFile = "pagepack.yaml"

// Project holds settings that extend the resolved configuration.
type Project struct {
	// Compress adds precompressed gzip and zstd siblings in production
	Compress bool `yaml:"compress"`
	// Manifest writes manifest.json describing the built entries
	Manifest bool `yaml:"manifest"`
	// Target is the esbuild language target, e.g. es2020
	Target    string           `yaml:"target"`
	DevServer ProjectDevServer `yaml:"devServer"`
}

type ProjectDevServer struct {
	Listen string `yaml:"listen"`
}

// LoadProject reads ProjectFile from base. A missing file yields the zero Project.
func LoadProject(base string) (Project, error) {
	var project Project

	data, err := os.ReadFile(filepath.Join(base, ProjectFile))
	if errors.Is(err, fs.ErrNotExist) {
		return project, nil
	}
	if err != nil {
		return project, fmt.Errorf("failed to read project file: %w", err)
	}

	if err := yaml.Unmarshal(data, &project); err != nil {
		return project, fmt.Errorf("failed to parse project file: %w", err)
	}

	return project, nil
}
