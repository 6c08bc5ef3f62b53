package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Source is one metadata input of the aggregate.
type Source struct {
	Name string `yaml:"name"`
	Path string `yaml:"path"`

	// Verify is the signing certificate (PEM) or its fingerprint. Empty
	// disables signature verification for the source.
	Verify string `yaml:"verify,omitempty"`

	// Pipeline overrides the file level pipeline flags for this source.
	Pipeline *Pipeline `yaml:"pipeline,omitempty"`
}

// Aggregate describes the published aggregate.
type Aggregate struct {
	Name          string `yaml:"name"`
	Publisher     string `yaml:"publisher"`
	CacheDuration string `yaml:"cache_duration"`

	// ValidFor is an xs:duration added to the refresh time to produce
	// validUntil. Empty omits validUntil.
	ValidFor string `yaml:"valid_for,omitempty"`
	Strategy string `yaml:"strategy,omitempty"`
}

// File is the metafed configuration file.
type File struct {
	Version     int       `yaml:"version,omitempty"`
	Pipeline    Pipeline  `yaml:"pipeline"`
	Expiry      Expiry    `yaml:"expiry"`
	Aggregate   Aggregate `yaml:"aggregate"`
	Concurrency int       `yaml:"concurrency"`
	Sources     []Source  `yaml:"sources"`
}

// Default returns a File holding every default value.
func Default() File {
	return File{
		Version:     1,
		Pipeline:    DefaultPipeline(),
		Expiry:      DefaultExpiry(),
		Concurrency: 4,
		Aggregate: Aggregate{
			Name:          "urn:metafed:aggregate",
			CacheDuration: "PT1H",
		},
	}
}

// PipelineFor returns the effective pipeline flags of src.
func (f File) PipelineFor(src Source) Pipeline {
	if src.Pipeline != nil {
		return *src.Pipeline
	}
	return f.Pipeline
}

// Load reads and parses a metafed configuration file. Keys missing from the
// file keep their default values.
func Load(path string) (File, error) {
	cfg := Default()

	data, err := os.ReadFile(filepath.Clean(path)) // #nosec G304 - config path comes from the operator
	if err != nil {
		return cfg, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse config file: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}
