package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Manifest describes a family of program variants: one vertex and one fragment template plus the flags that
// switch their feature blocks.
type Manifest struct {
	Name     string `yaml:"name"`
	Language string `yaml:"language"`

	Vertex   StageTemplate `yaml:"vertex"`
	Fragment StageTemplate `yaml:"fragment"`

	Flags []ManifestFlag `yaml:"flags"`

	// StripPrecision removes GLSL ES precision qualifiers from the synthesized sources.
	StripPrecision bool `yaml:"strip_precision"`
}

// StageTemplate is a stage template given inline or as a path relative to the manifest file.
type StageTemplate struct {
	Path    string `yaml:"path"`
	Source  string `yaml:"source"`
	Profile string `yaml:"profile"`
}

// ManifestFlag is one feature toggle. Stage is "vertex", "fragment" or "both" (the default).
type ManifestFlag struct {
	Name  string `yaml:"name"`
	Stage string `yaml:"stage"`
}

// LoadManifest reads a YAML manifest and resolves template paths relative to its directory, so that Vertex.Source
// and Fragment.Source always hold the template text.
//
// Parameters:
//   - path: the manifest file path
//
// Returns:
//   - *Manifest: the manifest with sources resolved
//   - error: an error if a file cannot be read or the manifest is invalid
func LoadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("manifest: %w", err)
	}
	m, err := ParseManifest(data)
	if err != nil {
		return nil, fmt.Errorf("manifest: %s: %w", path, err)
	}

	dir := filepath.Dir(path)
	for _, st := range []*StageTemplate{&m.Vertex, &m.Fragment} {
		if st.Source != "" || st.Path == "" {
			continue
		}
		src, err := os.ReadFile(filepath.Join(dir, st.Path))
		if err != nil {
			return nil, fmt.Errorf("manifest: %s: %w", path, err)
		}
		st.Source = string(src)
	}
	if m.Vertex.Source == "" || m.Fragment.Source == "" {
		return nil, fmt.Errorf("manifest: %s: vertex and fragment templates are required", path)
	}
	return m, nil
}

// ParseManifest decodes YAML manifest data without touching the file system.
func ParseManifest(data []byte) (*Manifest, error) {
	var m Manifest
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&m); err != nil {
		return nil, err
	}

	if m.Name == "" {
		return nil, fmt.Errorf("name is required")
	}
	seen := make(map[string]bool, len(m.Flags))
	for i := range m.Flags {
		f := &m.Flags[i]
		if f.Name == "" {
			return nil, fmt.Errorf("flag %d has no name", i)
		}
		if seen[f.Name] {
			return nil, fmt.Errorf("flag %q declared twice", f.Name)
		}
		seen[f.Name] = true
		switch f.Stage {
		case "":
			f.Stage = "both"
		case "vertex", "fragment", "both":
		default:
			return nil, fmt.Errorf("flag %q: unknown stage %q", f.Name, f.Stage)
		}
	}
	if len(m.Flags) > 64 {
		return nil, fmt.Errorf("%d flags declared, at most 64 are supported", len(m.Flags))
	}
	return &m, nil
}
