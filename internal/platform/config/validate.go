package config

import (
	"errors"
	"fmt"

	"github.com/sosodev/duration"
)

// Validate reports the first problem that makes f unusable.
//
// Ensures:
//   - at least one source, each with a unique name and a path
//   - every xs:duration value parses
//   - concurrency is positive and the aggregate has a name
func (f File) Validate() error {
	if len(f.Sources) == 0 {
		return errors.New("sources must not be empty")
	}
	seen := make(map[string]bool, len(f.Sources))
	for i, src := range f.Sources {
		if src.Name == "" {
			return fmt.Errorf("sources[%d].name must be set", i)
		}
		if seen[src.Name] {
			return fmt.Errorf("sources[%d].name %q is duplicated", i, src.Name)
		}
		seen[src.Name] = true
		if src.Path == "" {
			return fmt.Errorf("sources[%d].path must be set", i)
		}
	}
	if f.Concurrency < 1 {
		return errors.New("concurrency must be at least 1")
	}
	if f.Aggregate.Name == "" {
		return errors.New("aggregate.name must be set")
	}
	for key, value := range map[string]string{
		"expiry.default_cache_duration": f.Expiry.DefaultCacheDuration,
		"aggregate.cache_duration":      f.Aggregate.CacheDuration,
		"aggregate.valid_for":           f.Aggregate.ValidFor,
	} {
		if value == "" {
			continue
		}
		if _, err := duration.Parse(value); err != nil {
			return fmt.Errorf("invalid %s %q: %w", key, value, err)
		}
	}
	return nil
}
