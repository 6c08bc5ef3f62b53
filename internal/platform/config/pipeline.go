package config

// Pipeline holds the flags that steer metadata parsing.
type Pipeline struct {
	// FailOnError returns every parse error to the caller instead of logging
	// it and producing an empty result.
	FailOnError bool `yaml:"fail_on_error"`

	// FilterInvalid drops schema-invalid entity records individually instead
	// of rejecting the whole document.
	FilterInvalid bool `yaml:"filter_invalid"`

	// Validate turns schema validation on.
	Validate bool `yaml:"validate"`
}

// Expiry controls how expiration hints are derived.
type Expiry struct {
	RespectCacheDuration bool `yaml:"respect_cache_duration"`

	// DefaultCacheDuration is an xs:duration used when a document declares
	// no cacheDuration.
	DefaultCacheDuration string `yaml:"default_cache_duration"`
}

// DefaultPipeline returns the pipeline flags used when nothing is configured.
func DefaultPipeline() Pipeline {
	return Pipeline{
		FailOnError:   false,
		FilterInvalid: true,
		Validate:      true,
	}
}

// DefaultExpiry returns the expiry settings used when nothing is configured.
func DefaultExpiry() Expiry {
	return Expiry{
		RespectCacheDuration: true,
		DefaultCacheDuration: "PT1H",
	}
}
