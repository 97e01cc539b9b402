// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"regexp"
	"slices"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// EnvironmentVariable names the config file when --config is absent.
const EnvironmentVariable = "LIVEPLOT_CONFIG"

// Environment represents the deployment environment.
type Environment string

const (
	Development Environment = "development"
	Staging     Environment = "staging"
	Production  Environment = "production"
)

// Config is the complete liveplot configuration.
type Config struct {
	Environment Environment `yaml:"environment"`

	Dashboard DashboardConfig `yaml:"dashboard"`
	Subscribe SubscribeConfig `yaml:"subscribe"`
	Dispatch  DispatchConfig  `yaml:"dispatch"`
	Logging   LoggingConfig   `yaml:"logging"`

	// Per-environment overrides, applied after the base values.
	Development *Overrides `yaml:"development,omitempty"`
	Staging     *Overrides `yaml:"staging,omitempty"`
	Production  *Overrides `yaml:"production,omitempty"`
}

// Overrides holds the sections an environment may override. Only
// non-empty values replace the base configuration.
type Overrides struct {
	Dashboard *DashboardConfig `yaml:"dashboard,omitempty"`
	Subscribe *SubscribeConfig `yaml:"subscribe,omitempty"`
	Dispatch  *DispatchConfig  `yaml:"dispatch,omitempty"`
	Logging   *LoggingConfig   `yaml:"logging,omitempty"`
}

// DashboardConfig configures the browser dashboard.
type DashboardConfig struct {
	// Host is the bind address. Default: 0.0.0.0
	Host string `yaml:"host"`

	// Port is the HTTP port. Default: 8080
	Port int `yaml:"port"`

	// Columns is the number of plot columns in the page grid.
	// Default: 2
	Columns int `yaml:"columns"`

	// RefreshInterval is how often the dashboard drains pending figure
	// updates, as a Go duration. Default: 1s
	RefreshInterval string `yaml:"refresh_interval"`

	// Title is shown in the page header. Default: Live Plots
	Title string `yaml:"title"`
}

// SubscribeConfig configures the remote document subscription.
type SubscribeConfig struct {
	// Address is the host:port of a document publisher. Empty means
	// documents arrive only in-process.
	Address string `yaml:"address"`

	// Compression requested from the publisher: none, lz4, or zstd.
	// Default: none
	Compression string `yaml:"compression"`

	// MaxBackoff caps the delay between reconnect attempts.
	// Default: 30s
	MaxBackoff string `yaml:"max_backoff"`
}

// DispatchConfig configures document-to-figure dispatch.
type DispatchConfig struct {
	// IgnoreStreams lists descriptor names whose data is never
	// plotted, e.g. "baseline".
	IgnoreStreams []string `yaml:"ignore_streams"`

	// StructuresFile is a JSONC file of structure declarations
	// applied to every run.
	StructuresFile string `yaml:"structures_file"`
}

// LoggingConfig configures the process logger.
type LoggingConfig struct {
	// Level is debug, info, warn, or error. Default: info
	Level string `yaml:"level"`

	// Output is a file receiving a JSON copy of every log record, in
	// addition to stderr.
	Output string `yaml:"output"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Environment: Development,
		Dashboard: DashboardConfig{
			Host:            "0.0.0.0",
			Port:            8080,
			Columns:         2,
			RefreshInterval: "1s",
			Title:           "Live Plots",
		},
		Subscribe: SubscribeConfig{
			Compression: "none",
			MaxBackoff:  "30s",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Resolve loads the file at path, or the file named by
// LIVEPLOT_CONFIG when path is empty, or returns Default when neither
// is set.
func Resolve(path string) (*Config, error) {
	if path != "" {
		return LoadFile(path)
	}
	if os.Getenv(EnvironmentVariable) != "" {
		return Load()
	}
	return Default(), nil
}

// Load loads the file named by LIVEPLOT_CONFIG. Fails if the variable
// is not set.
func Load() (*Config, error) {
	path := os.Getenv(EnvironmentVariable)
	if path == "" {
		return nil, fmt.Errorf("%s environment variable not set; "+
			"set it to the path of your liveplot.yaml config file, or use --config", EnvironmentVariable)
	}
	return LoadFile(path)
}

// LoadFile loads a configuration file over the defaults, applies the
// matching environment section, and expands variables in paths.
func LoadFile(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}

	cfg.applyEnvironmentOverrides()
	cfg.expandVariables()
	return cfg, nil
}

func (c *Config) applyEnvironmentOverrides() {
	var overrides *Overrides
	switch c.Environment {
	case Development:
		overrides = c.Development
	case Staging:
		overrides = c.Staging
	case Production:
		overrides = c.Production
	}
	if overrides == nil {
		return
	}

	if dashboard := overrides.Dashboard; dashboard != nil {
		overrideString(&c.Dashboard.Host, dashboard.Host)
		overrideInt(&c.Dashboard.Port, dashboard.Port)
		overrideInt(&c.Dashboard.Columns, dashboard.Columns)
		overrideString(&c.Dashboard.RefreshInterval, dashboard.RefreshInterval)
		overrideString(&c.Dashboard.Title, dashboard.Title)
	}
	if subscribe := overrides.Subscribe; subscribe != nil {
		overrideString(&c.Subscribe.Address, subscribe.Address)
		overrideString(&c.Subscribe.Compression, subscribe.Compression)
		overrideString(&c.Subscribe.MaxBackoff, subscribe.MaxBackoff)
	}
	if dispatch := overrides.Dispatch; dispatch != nil {
		if dispatch.IgnoreStreams != nil {
			c.Dispatch.IgnoreStreams = dispatch.IgnoreStreams
		}
		overrideString(&c.Dispatch.StructuresFile, dispatch.StructuresFile)
	}
	if logging := overrides.Logging; logging != nil {
		overrideString(&c.Logging.Level, logging.Level)
		overrideString(&c.Logging.Output, logging.Output)
	}
}

func overrideString(target *string, value string) {
	if value != "" {
		*target = value
	}
}

func overrideInt(target *int, value int) {
	if value != 0 {
		*target = value
	}
}

func (c *Config) expandVariables() {
	vars := map[string]string{
		"HOME": os.Getenv("HOME"),
	}
	c.Dispatch.StructuresFile = expandVars(c.Dispatch.StructuresFile, vars)
	c.Logging.Output = expandVars(c.Logging.Output, vars)
}

// varPattern matches ${VAR} and ${VAR:-default}.
var varPattern = regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

func expandVars(s string, vars map[string]string) string {
	return varPattern.ReplaceAllStringFunc(s, func(match string) string {
		parts := varPattern.FindStringSubmatch(match)
		name, defaultValue := parts[1], parts[2]

		// Provided vars first, then the environment.
		if value, ok := vars[name]; ok && value != "" {
			return value
		}
		if value := os.Getenv(name); value != "" {
			return value
		}
		return defaultValue
	})
}

// Compression values for SubscribeConfig.Compression.
var compressions = []string{"none", "lz4", "zstd"}

// Validate checks the configuration for errors, reporting all of them.
func (c *Config) Validate() error {
	var errs []error

	if c.Environment != Development && c.Environment != Staging && c.Environment != Production {
		errs = append(errs, fmt.Errorf("invalid environment: %s", c.Environment))
	}

	if c.Dashboard.Port < 1 || c.Dashboard.Port > 65535 {
		errs = append(errs, fmt.Errorf("dashboard.port must be between 1 and 65535, got %d", c.Dashboard.Port))
	}
	if c.Dashboard.Columns < 1 {
		errs = append(errs, fmt.Errorf("dashboard.columns must be at least 1, got %d", c.Dashboard.Columns))
	}
	if _, err := c.Dashboard.Refresh(); err != nil {
		errs = append(errs, err)
	}

	if !slices.Contains(compressions, c.Subscribe.Compression) {
		errs = append(errs, fmt.Errorf("subscribe.compression must be one of %v, got %q", compressions, c.Subscribe.Compression))
	}
	if _, err := c.Subscribe.Backoff(); err != nil {
		errs = append(errs, err)
	}

	if _, err := c.Logging.SlogLevel(); err != nil {
		errs = append(errs, err)
	}

	return errors.Join(errs...)
}

// Refresh parses RefreshInterval.
func (d DashboardConfig) Refresh() (time.Duration, error) {
	return positiveDuration("dashboard.refresh_interval", d.RefreshInterval)
}

// Backoff parses MaxBackoff.
func (s SubscribeConfig) Backoff() (time.Duration, error) {
	return positiveDuration("subscribe.max_backoff", s.MaxBackoff)
}

func positiveDuration(field, value string) (time.Duration, error) {
	duration, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", field, err)
	}
	if duration <= 0 {
		return 0, fmt.Errorf("%s must be positive, got %s", field, value)
	}
	return duration, nil
}

// SlogLevel parses Level.
func (l LoggingConfig) SlogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.ToLower(l.Level))); err != nil {
		return 0, fmt.Errorf("logging.level: %w", err)
	}
	return level, nil
}
