package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "metafed.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad(t *testing.T) {
	t.Run("missing keys keep defaults", func(t *testing.T) {
		path := writeConfig(t, `
sources:
  - name: edugain
    path: edugain.xml
`)
		cfg, err := Load(path)
		require.NoError(t, err)

		assert.Equal(t, DefaultPipeline(), cfg.Pipeline)
		assert.Equal(t, DefaultExpiry(), cfg.Expiry)
		assert.Equal(t, 4, cfg.Concurrency)
		assert.Equal(t, "urn:metafed:aggregate", cfg.Aggregate.Name)
		require.Len(t, cfg.Sources, 1)
		assert.Equal(t, "edugain.xml", cfg.Sources[0].Path)
	})

	t.Run("explicit values override defaults", func(t *testing.T) {
		path := writeConfig(t, `
pipeline:
  fail_on_error: true
  filter_invalid: false
expiry:
  respect_cache_duration: false
  default_cache_duration: PT6H
aggregate:
  name: https://md.example.org
  publisher: https://example.org
  valid_for: P10D
  strategy: replace_existing
sources:
  - name: local
    path: local.xml
    verify: "sha256:AB:CD"
    pipeline:
      fail_on_error: false
      filter_invalid: true
      validate: false
`)
		cfg, err := Load(path)
		require.NoError(t, err)

		assert.True(t, cfg.Pipeline.FailOnError)
		assert.False(t, cfg.Pipeline.FilterInvalid)
		assert.True(t, cfg.Pipeline.Validate)
		assert.False(t, cfg.Expiry.RespectCacheDuration)
		assert.Equal(t, "PT6H", cfg.Expiry.DefaultCacheDuration)
		assert.Equal(t, "replace_existing", cfg.Aggregate.Strategy)

		effective := cfg.PipelineFor(cfg.Sources[0])
		assert.False(t, effective.Validate)
		assert.False(t, effective.FailOnError)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
		assert.ErrorContains(t, err, "failed to read config file")
	})

	t.Run("malformed yaml", func(t *testing.T) {
		_, err := Load(writeConfig(t, "sources: [unterminated"))
		assert.ErrorContains(t, err, "failed to parse config file")
	})
}

func TestValidate(t *testing.T) {
	valid := func() File {
		cfg := Default()
		cfg.Sources = []Source{{Name: "a", Path: "a.xml"}}
		return cfg
	}

	tests := []struct {
		name    string
		mutate  func(*File)
		wantErr string
	}{
		{name: "valid", mutate: func(*File) {}},
		{name: "no sources", mutate: func(f *File) { f.Sources = nil }, wantErr: "sources must not be empty"},
		{name: "duplicate source", mutate: func(f *File) {
			f.Sources = append(f.Sources, Source{Name: "a", Path: "b.xml"})
		}, wantErr: "is duplicated"},
		{name: "source without path", mutate: func(f *File) { f.Sources[0].Path = "" }, wantErr: "path must be set"},
		{name: "zero concurrency", mutate: func(f *File) { f.Concurrency = 0 }, wantErr: "concurrency"},
		{name: "bad duration", mutate: func(f *File) { f.Expiry.DefaultCacheDuration = "1h" }, wantErr: "expiry.default_cache_duration"},
		{name: "unnamed aggregate", mutate: func(f *File) { f.Aggregate.Name = "" }, wantErr: "aggregate.name"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestFromEnv(t *testing.T) {
	t.Setenv("METAFED_ADDR", ":9090")
	t.Setenv("METAFED_REDIS_URL", "redis://localhost:6379/0")
	t.Setenv("METAFED_REDIS_DIAL_TIMEOUT", "1s")
	t.Setenv("METAFED_REDIS_POOL_SIZE", "not-a-number")

	cfg := FromEnv()

	assert.Equal(t, ":9090", cfg.Addr)
	assert.Equal(t, "metafed.yaml", cfg.ConfigPath)
	assert.Equal(t, "redis://localhost:6379/0", cfg.Redis.URL)
	assert.Equal(t, time.Second, cfg.Redis.DialTimeout)
	assert.Equal(t, 10, cfg.Redis.PoolSize)
}
