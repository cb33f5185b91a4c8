// Package config loads the application configuration from an optional YAML
// file and GATEHOUSE_-prefixed environment variables, with environment
// variables taking precedence.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

type Config struct {
	Server  ServerConfig  `koanf:"server"`
	Session SessionConfig `koanf:"session"`
	Upload  UploadConfig  `koanf:"upload"`
	Trace   TraceConfig   `koanf:"trace"`
	Metrics MetricsConfig `koanf:"metrics"`
}

type ServerConfig struct {
	Addr string `koanf:"addr"`
}

type SessionConfig struct {
	CookieName string `koanf:"cookie_name"`
	// Lifetime is a Go duration string, e.g. "168h".
	Lifetime string `koanf:"lifetime"`
	// RedisAddr switches session storage from the in-memory store to Redis
	// when non-empty.
	RedisAddr string `koanf:"redis_addr"`
}

type UploadConfig struct {
	// MaxBytes caps in-memory multipart parsing for the non-streaming
	// upload endpoint.
	MaxBytes int64 `koanf:"max_bytes"`
}

type TraceConfig struct {
	Enabled    bool `koanf:"enabled"`
	BufferSize int  `koanf:"buffer_size"`
}

type MetricsConfig struct {
	Enabled bool `koanf:"enabled"`
}

// SessionLifetime parses the configured lifetime.
func (c *Config) SessionLifetime() (time.Duration, error) {
	d, err := time.ParseDuration(c.Session.Lifetime)
	if err != nil {
		return 0, fmt.Errorf("invalid session.lifetime %q: %w", c.Session.Lifetime, err)
	}
	return d, nil
}

// Load reads configuration from path (skipped when empty) and the
// environment.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed loading config file: %w", err)
		}
	}

	if err := k.Load(env.Provider("GATEHOUSE_", ".", func(s string) string {
		s = strings.ToLower(strings.TrimPrefix(s, "GATEHOUSE_"))
		// Keys are section.key with snake_case key names, so only the
		// first underscore separates the section.
		section, key, found := strings.Cut(s, "_")
		if !found {
			return s
		}
		return section + "." + key
	}), nil); err != nil {
		return nil, fmt.Errorf("failed loading environment: %w", err)
	}

	// Default values
	if !k.Exists("server.addr") {
		k.Set("server.addr", ":8080")
	}
	if !k.Exists("session.cookie_name") {
		k.Set("session.cookie_name", "Cookie")
	}
	if !k.Exists("session.lifetime") {
		k.Set("session.lifetime", "168h")
	}
	if !k.Exists("upload.max_bytes") {
		k.Set("upload.max_bytes", int64(32<<20))
	}
	if !k.Exists("trace.buffer_size") {
		k.Set("trace.buffer_size", 1024)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed unmarshaling config: %w", err)
	}

	if _, err := cfg.SessionLifetime(); err != nil {
		return nil, err
	}

	return &cfg, nil
}
