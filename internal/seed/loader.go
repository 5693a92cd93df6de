// Package seed imports bookmark fixtures from a YAML file at startup.
// Seeding is idempotent per user: owners who already have records are
// skipped.
package seed

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Loader handles loading and parsing of a seed YAML file.
type Loader struct {
	filePath string
}

// NewLoader creates a seed file loader.
func NewLoader(filePath string) *Loader {
	return &Loader{filePath: filePath}
}

// Load reads and parses the seed file.
func (l *Loader) Load() (File, error) {
	data, err := os.ReadFile(l.filePath)
	if err != nil {
		return File{}, fmt.Errorf("failed to read seed file: %w", err)
	}

	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return File{}, fmt.Errorf("failed to parse seed yaml: %w", err)
	}
	return f, nil
}
