// Package manifest writes the component manifest consumed by the ESP-IDF
// component manager.
package manifest

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/meshx/meshx-tools/internal/deps"
)

// DefaultPath is the component manifest of the main component.
const DefaultPath = "main/idf_component.yml"

// Manifest is the document written to disk.
type Manifest struct {
	Dependencies deps.DependencyMap `yaml:"dependencies"`
}

// Encode writes the manifest for dm to w. Keys are sorted.
func Encode(w io.Writer, dm deps.DependencyMap) error {
	if dm == nil {
		dm = deps.DependencyMap{}
	}

	encoder := yaml.NewEncoder(w)
	encoder.SetIndent(2)
	if err := encoder.Encode(Manifest{Dependencies: dm}); err != nil {
		return fmt.Errorf("failed to encode manifest: %w", err)
	}
	return encoder.Close()
}

// Write replaces the manifest at path.
func Write(path string, dm deps.DependencyMap) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create manifest directory: %w", err)
	}

	//nolint:gosec // G304: manifest path is chosen by the user
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create manifest %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	if err := Encode(f, dm); err != nil {
		return err
	}
	return f.Close()
}
