// Package config loads pybundle settings from defaults, project files,
// environment variables and command-line flags.
package config

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/dustin/go-humanize"
)

// ErrInvalidConfig wraps every validation failure.
var ErrInvalidConfig = errors.New("invalid configuration")

// Sentinel validation errors.
var (
	ErrInvalidLogLevel    = fmt.Errorf("%w: logging.level must be one of %s", ErrInvalidConfig, strings.Join(logLevels, ", "))
	ErrInvalidMaxFileSize = fmt.Errorf("%w: discovery.max_file_size must be a positive size", ErrInvalidConfig)
	ErrInvalidCacheSize   = fmt.Errorf("%w: cache.size must be positive", ErrInvalidConfig)
)

var logLevels = []string{"debug", "info", "warn", "error"}

// Config holds all pybundle settings.
// Field tags use mapstructure for viper unmarshalling.
type Config struct {
	Bundle    BundleConfig    `mapstructure:"bundle"`
	Resolve   ResolveConfig   `mapstructure:"resolve"`
	Discovery DiscoveryConfig `mapstructure:"discovery"`
	Cache     CacheConfig     `mapstructure:"cache"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
}

// BundleConfig controls the layout of the generated file.
type BundleConfig struct {
	Header          bool `mapstructure:"header"`
	Footer          bool `mapstructure:"footer"`
	Timestamp       bool `mapstructure:"timestamp"`
	StripMainGuards bool `mapstructure:"strip_main_guards"`
}

// ResolveConfig controls import resolution.
type ResolveConfig struct {
	Strict             bool `mapstructure:"strict"`
	ImplicitRelative   bool `mapstructure:"implicit_relative"`
	IncludeUnreachable bool `mapstructure:"include_unreachable"`
}

// DiscoveryConfig controls which files are considered project modules.
type DiscoveryConfig struct {
	Exclude       []string `mapstructure:"exclude"`
	DetectScripts bool     `mapstructure:"detect_scripts"`
	// MaxFileSize is a byte count or a humanized size such as "4MiB".
	MaxFileSize string `mapstructure:"max_file_size"`
}

// CacheConfig controls the parse cache.
type CacheConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Dir     string `mapstructure:"dir"`
	Size    int    `mapstructure:"size"`
}

// LoggingConfig controls log output.
type LoggingConfig struct {
	Level string `mapstructure:"level"`
	JSON  bool   `mapstructure:"json"`
}

// TelemetryConfig enables OTLP export when an endpoint is set.
type TelemetryConfig struct {
	OTLPEndpoint string `mapstructure:"otlp_endpoint"`
	OTLPInsecure bool   `mapstructure:"otlp_insecure"`
}

// MaxFileSizeBytes parses Discovery.MaxFileSize.
func (c *Config) MaxFileSizeBytes() (int64, error) {
	raw := strings.TrimSpace(c.Discovery.MaxFileSize)
	if raw == "" {
		return 0, nil
	}

	size, err := humanize.ParseBytes(raw)
	if err != nil || size == 0 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidMaxFileSize, raw)
	}

	return int64(size), nil
}

// Validate checks semantic constraints the schema cannot express.
func (c *Config) Validate() error {
	if !slices.Contains(logLevels, strings.ToLower(c.Logging.Level)) {
		return fmt.Errorf("%w: got %q", ErrInvalidLogLevel, c.Logging.Level)
	}

	if c.Cache.Size <= 0 {
		return fmt.Errorf("%w: got %d", ErrInvalidCacheSize, c.Cache.Size)
	}

	_, err := c.MaxFileSizeBytes()

	return err
}
