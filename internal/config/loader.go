// Package config provides process-wide configuration loading for the
// decomposer. It supports loading from YAML and JSON files with
// environment variable overrides, validation, and default values.
//
// Example usage:
//
//	cfg, err := config.LoadFromFile("config.yaml")
//	if err != nil {
//	    log.Fatalf("failed to load config: %v", err)
//	}
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/numadecomp/numadecomp/internal/errors"
)

const (
	// EnvPrefix is the prefix for environment variables that override
	// file-loaded configuration, e.g. NUMADECOMP_CPU_FRAC_NUMER.
	EnvPrefix = "NUMADECOMP"
)

// Config holds the process-wide tunables for work decomposition.
//
// CPUFracNumer/CPUFracDenom set the fraction of online CPUs (globally and
// per node) that the governor lets all concurrent Run/RunNuma calls hold
// together (default 4/5, mirroring ktask's KTASK_CPUFRAC_NUMER/DENOM). MaxThreads
// caps the absolute worker count per call when the caller passes 0
// (default 4, mirroring KTASK_DEFAULT_MAX_THREADS).
type Config struct {
	CPUFracNumer int `yaml:"cpu_frac_numer" json:"cpu_frac_numer"`
	CPUFracDenom int `yaml:"cpu_frac_denom" json:"cpu_frac_denom"`
	MaxThreads   int `yaml:"max_threads" json:"max_threads"`
}

// Validate checks that the configuration describes a usable governor cap.
// Failures are classified ErrorTypeValidation: a bad config is a static
// mistake that will not start succeeding on retry.
func (c *Config) Validate() error {
	if c.CPUFracNumer <= 0 {
		return validationErr("cpu_frac_numer must be positive, got %d", c.CPUFracNumer)
	}
	if c.CPUFracDenom <= 0 {
		return validationErr("cpu_frac_denom must be positive, got %d", c.CPUFracDenom)
	}
	if c.CPUFracNumer > c.CPUFracDenom {
		return validationErr("cpu_frac_numer (%d) must not exceed cpu_frac_denom (%d)", c.CPUFracNumer, c.CPUFracDenom)
	}
	if c.MaxThreads <= 0 {
		return validationErr("max_threads must be positive, got %d", c.MaxThreads)
	}
	return nil
}

func validationErr(format string, args ...interface{}) error {
	return errors.WrapWithType(errors.ComponentConfig, "validate", errors.ErrorTypeValidation, fmt.Errorf(format, args...))
}

// Default returns the built-in configuration, matching ktask's defaults.
func Default() Config {
	return Config{
		CPUFracNumer: 4,
		CPUFracDenom: 5,
		MaxThreads:   4,
	}
}

// Loader handles configuration loading from various sources.
type Loader struct {
	applyEnvOverrides bool
}

// NewLoader creates a new configuration loader.
func NewLoader() *Loader {
	return &Loader{}
}

// WithEnvOverrides enables environment variable overrides. When enabled,
// variables prefixed with NUMADECOMP_ override values from the loaded file.
func (l *Loader) WithEnvOverrides() *Loader {
	l.applyEnvOverrides = true
	return l
}

// LoadFromFile loads configuration from a file (YAML or JSON), determined
// by the file extension (.yaml, .yml, or .json).
func (l *Loader) LoadFromFile(path string) (*Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, configErr("config file not found: %s", path).WithContext("path", path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, configErr("failed to read config file: %w", err).WithContext("path", path)
	}

	ext := strings.ToLower(filepath.Ext(path))
	format := ""
	switch ext {
	case ".yaml", ".yml":
		format = "yaml"
	case ".json":
		format = "json"
	default:
		return nil, configErr("unsupported config file format: %s (use .yaml, .yml, or .json)", ext).WithContext("path", path)
	}

	return l.LoadFromBytes(data, format)
}

// LoadFromBytes loads configuration from raw bytes, defaulting unset
// fields before parsing and applying overrides.
func (l *Loader) LoadFromBytes(data []byte, format string) (*Config, error) {
	cfg := Default()

	switch strings.ToLower(format) {
	case "yaml", "yml":
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, configErr("failed to parse YAML config: %w", err)
		}
	case "json":
		if err := json.Unmarshal(data, &cfg); err != nil {
			return nil, configErr("failed to parse JSON config: %w", err)
		}
	default:
		return nil, configErr("unsupported format: %s (use 'yaml' or 'json')", format)
	}

	if l.applyEnvOverrides {
		applyEnvironmentOverrides(&cfg)
	}

	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(errors.ComponentConfig, "invalid configuration", err)
	}

	return &cfg, nil
}

func configErr(format string, args ...interface{}) *errors.EngineError {
	return errors.NewEngineError(errors.ComponentConfig, "load", errors.ErrorTypeConfiguration, fmt.Errorf(format, args...))
}

// applyEnvironmentOverrides applies NUMADECOMP_-prefixed environment
// overrides to the config in place.
func applyEnvironmentOverrides(cfg *Config) {
	if v, ok := envInt(EnvPrefix + "_CPU_FRAC_NUMER"); ok {
		cfg.CPUFracNumer = v
	}
	if v, ok := envInt(EnvPrefix + "_CPU_FRAC_DENOM"); ok {
		cfg.CPUFracDenom = v
	}
	if v, ok := envInt(EnvPrefix + "_MAX_THREADS"); ok {
		cfg.MaxThreads = v
	}
}

func envInt(key string) (int, bool) {
	val := os.Getenv(key)
	if val == "" {
		return 0, false
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return 0, false
	}
	return n, true
}

// LoadFromFile is a convenience function that creates a loader and loads
// a config file without environment overrides.
func LoadFromFile(path string) (*Config, error) {
	return NewLoader().LoadFromFile(path)
}

// LoadFromFileWithEnv is a convenience function that creates a loader
// with environment overrides enabled and loads a config file.
func LoadFromFileWithEnv(path string) (*Config, error) {
	return NewLoader().WithEnvOverrides().LoadFromFile(path)
}

// LoadFromBytes is a convenience function that creates a loader and
// loads config from raw bytes.
func LoadFromBytes(data []byte, format string) (*Config, error) {
	return NewLoader().LoadFromBytes(data, format)
}

var (
	processOnce   sync.Once
	processConfig Config
)

// Load returns the process-wide configuration, initializing it from
// defaults plus environment overrides exactly once. Later calls return
// the same value regardless of environment changes.
func Load() Config {
	processOnce.Do(func() {
		processConfig = Default()
		applyEnvironmentOverrides(&processConfig)
	})
	return processConfig
}
