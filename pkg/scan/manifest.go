package scan

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Manifest persists an aggregated scan so later parse runs can resolve
// pattern variables without rescanning.
type Manifest struct {
	Root      string     `yaml:"root"`
	Pattern   string     `yaml:"pattern"`
	CreatedAt time.Time  `yaml:"created_at"`
	Failed    int        `yaml:"failed,omitempty"`
	Variables []Variable `yaml:"variables"`
}

// WriteManifest writes the manifest as YAML at path.
func WriteManifest(path string, manifest Manifest) error {
	data, err := yaml.Marshal(manifest)
	if err != nil {
		return fmt.Errorf("marshal scan manifest: %w", err)
	}

	writeErr := os.WriteFile(path, data, 0o644)
	if writeErr != nil {
		return fmt.Errorf("write scan manifest %s: %w", path, writeErr)
	}

	return nil
}

// ReadManifest loads a manifest written by WriteManifest.
func ReadManifest(path string) (Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Manifest{}, fmt.Errorf("read scan manifest %s: %w", path, err)
	}

	var manifest Manifest

	unmarshalErr := yaml.Unmarshal(data, &manifest)
	if unmarshalErr != nil {
		return Manifest{}, fmt.Errorf("unmarshal scan manifest %s: %w", path, unmarshalErr)
	}

	return manifest, nil
}
