// Package config loads FeedSpine's YAML configuration file into a
// typed, validated struct. Unknown keys are rejected so a typo in the
// file fails loudly at startup instead of silently falling back to a
// default.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/feedspine/feedspine/internal/apperrors"
)

// Config is the root of the configuration file.
type Config struct {
	Storage      StorageConfig      `yaml:"storage" validate:"required"`
	Orchestrator OrchestratorConfig `yaml:"orchestrator"`
	Checkpoints  CheckpointConfig   `yaml:"checkpoints"`
	Resources    ResourceConfig     `yaml:"resources"`
	Feeds        []FeedConfig       `yaml:"feeds" validate:"required,min=1,dive"`
}

// StorageConfig selects and configures the storage backend.
type StorageConfig struct {
	// Backend is "memory" or "postgres".
	Backend string `yaml:"backend" validate:"required,oneof=memory postgres"`

	// DSN is the postgres connection string. Required when Backend is
	// postgres; ignored otherwise.
	DSN string `yaml:"dsn" validate:"required_if=Backend postgres"`
}

// OrchestratorConfig carries the engine-level knobs.
type OrchestratorConfig struct {
	// BufferCapacity bounds each in-flight candidate buffer.
	BufferCapacity int `yaml:"bufferCapacity" validate:"min=1"`

	// MaxConcurrent bounds concurrently fetching adapters in parallel
	// collections. Zero means unbounded.
	MaxConcurrent int `yaml:"maxConcurrent" validate:"min=0"`

	// AdapterTimeoutSeconds bounds one adapter's whole Fetch. Zero
	// disables the timeout.
	AdapterTimeoutSeconds int `yaml:"adapterTimeoutSeconds" validate:"min=0"`
}

// CheckpointConfig configures checkpoint persistence. An empty Dir
// disables checkpoints entirely.
type CheckpointConfig struct {
	Dir             string `yaml:"dir"`
	IntervalRecords int    `yaml:"intervalRecords" validate:"min=1"`
	IntervalSeconds int    `yaml:"intervalSeconds" validate:"min=1"`
}

// ResourceConfig configures the shared resource pool.
type ResourceConfig struct {
	RequestsPerSecond  float64 `yaml:"requestsPerSecond" validate:"min=0"`
	Burst              int     `yaml:"burst" validate:"min=0"`
	MaxConcurrent      int64   `yaml:"maxConcurrent" validate:"min=0"`
	HTTPTimeoutSeconds int     `yaml:"httpTimeoutSeconds" validate:"min=0"`
}

// FeedConfig declares one adapter to register.
type FeedConfig struct {
	Name string `yaml:"name" validate:"required"`

	// Type selects the adapter implementation: "rss" or "jsonfeed".
	Type string `yaml:"type" validate:"required,oneof=rss jsonfeed"`

	URL     string            `yaml:"url" validate:"required,url"`
	Headers map[string]string `yaml:"headers"`
	Params  map[string]string `yaml:"params"`

	// KeyField names the JSON field holding the natural key; jsonfeed
	// adapters only.
	KeyField string `yaml:"keyField" validate:"required_if=Type jsonfeed"`
}

// Default returns a Config with every optional knob at its documented
// default. Load starts from this before decoding the file over it.
func Default() Config {
	return Config{
		Storage: StorageConfig{Backend: "memory"},
		Orchestrator: OrchestratorConfig{
			BufferCapacity: 1000,
		},
		Checkpoints: CheckpointConfig{
			IntervalRecords: 100,
			IntervalSeconds: 60,
		},
	}
}

// AdapterTimeout converts the configured seconds to a Duration.
func (c OrchestratorConfig) AdapterTimeout() time.Duration {
	return time.Duration(c.AdapterTimeoutSeconds) * time.Second
}

// Interval converts the configured seconds to a Duration.
func (c CheckpointConfig) Interval() time.Duration {
	return time.Duration(c.IntervalSeconds) * time.Second
}

// HTTPTimeout converts the configured seconds to a Duration.
func (c ResourceConfig) HTTPTimeout() time.Duration {
	return time.Duration(c.HTTPTimeoutSeconds) * time.Second
}

// Load reads and validates the configuration file at path. Every
// failure mode (unreadable file, malformed YAML, unknown key, failed
// validation) is reported as KindConfigError.
func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, apperrors.Wrapf(err, apperrors.KindConfigError, "reading config file %s", path)
	}
	return Parse(raw)
}

// Parse decodes and validates raw YAML bytes.
func Parse(raw []byte) (*Config, error) {
	cfg := Default()

	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return nil, apperrors.Wrap(err, apperrors.KindConfigError, "decoding config")
	}

	if err := validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func validate(cfg *Config) error {
	v := validator.New()
	if err := v.Struct(cfg); err != nil {
		var fields validator.ValidationErrors
		if errors.As(err, &fields) && len(fields) > 0 {
			first := fields[0]
			return apperrors.Wrapf(err, apperrors.KindConfigError,
				"invalid config: field %s fails %q", first.Namespace(), first.Tag())
		}
		return apperrors.Wrap(err, apperrors.KindConfigError, "invalid config")
	}

	names := make(map[string]bool, len(cfg.Feeds))
	for _, feed := range cfg.Feeds {
		if names[feed.Name] {
			return apperrors.Newf(apperrors.KindConfigError, "duplicate feed name %q", feed.Name)
		}
		names[feed.Name] = true
	}
	return nil
}

// String renders a one-line summary for startup logging, without any
// credential material.
func (c *Config) String() string {
	return fmt.Sprintf("storage=%s feeds=%d bufferCapacity=%d maxConcurrent=%d",
		c.Storage.Backend, len(c.Feeds), c.Orchestrator.BufferCapacity, c.Orchestrator.MaxConcurrent)
}
