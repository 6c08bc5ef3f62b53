package config

import (
	"os"
	"strconv"
	"time"
)

// Server captures HTTP server level configuration.
type Server struct {
	Addr       string
	ConfigPath string
	LogLevel   string
	LogFormat  string
	Redis      RedisConfig
}

// RedisConfig configures the optional Redis publish store. An empty URL
// selects the in-memory store.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// FromEnv builds a Server config from environment variables so main stays lean.
func FromEnv() Server {
	return Server{
		Addr:       envOr("METAFED_ADDR", ":8080"),
		ConfigPath: envOr("METAFED_CONFIG", "metafed.yaml"),
		LogLevel:   envOr("METAFED_LOG_LEVEL", "info"),
		LogFormat:  envOr("METAFED_LOG_FORMAT", "text"),
		Redis: RedisConfig{
			URL:          os.Getenv("METAFED_REDIS_URL"),
			PoolSize:     envInt("METAFED_REDIS_POOL_SIZE", 10),
			MinIdleConns: envInt("METAFED_REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  envDuration("METAFED_REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  envDuration("METAFED_REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: envDuration("METAFED_REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if n, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return n
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if d, err := time.ParseDuration(os.Getenv(key)); err == nil {
		return d
	}
	return fallback
}
