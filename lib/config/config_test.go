// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "liveplot.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	return path
}

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Environment != Development {
		t.Errorf("expected environment=development, got %s", cfg.Environment)
	}
	if cfg.Dashboard.Host != "0.0.0.0" || cfg.Dashboard.Port != 8080 || cfg.Dashboard.Columns != 2 {
		t.Errorf("unexpected dashboard defaults: %+v", cfg.Dashboard)
	}
	if refresh, err := cfg.Dashboard.Refresh(); err != nil || refresh != time.Second {
		t.Errorf("expected refresh=1s, got %v (%v)", refresh, err)
	}
	if backoff, err := cfg.Subscribe.Backoff(); err != nil || backoff != 30*time.Second {
		t.Errorf("expected max_backoff=30s, got %v (%v)", backoff, err)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
}

func TestLoad_RequiresEnvironmentVariable(t *testing.T) {
	t.Setenv(EnvironmentVariable, "")

	_, err := Load()
	if err == nil {
		t.Fatal("expected error when LIVEPLOT_CONFIG not set, got nil")
	}
	if !strings.HasPrefix(err.Error(), "LIVEPLOT_CONFIG environment variable not set") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestResolve(t *testing.T) {
	t.Setenv(EnvironmentVariable, "")
	cfg, err := Resolve("")
	if err != nil {
		t.Fatalf("Resolve without file: %v", err)
	}
	if !reflect.DeepEqual(cfg, Default()) {
		t.Errorf("expected defaults, got %+v", cfg)
	}

	fromEnvironment := writeConfig(t, "dashboard:\n  port: 9001\n")
	t.Setenv(EnvironmentVariable, fromEnvironment)
	cfg, err = Resolve("")
	if err != nil {
		t.Fatalf("Resolve from environment: %v", err)
	}
	if cfg.Dashboard.Port != 9001 {
		t.Errorf("expected port=9001, got %d", cfg.Dashboard.Port)
	}

	// An explicit path wins over the environment variable.
	explicit := writeConfig(t, "dashboard:\n  port: 9002\n")
	cfg, err = Resolve(explicit)
	if err != nil {
		t.Fatalf("Resolve explicit: %v", err)
	}
	if cfg.Dashboard.Port != 9002 {
		t.Errorf("expected port=9002, got %d", cfg.Dashboard.Port)
	}
}

func TestLoadFile(t *testing.T) {
	path := writeConfig(t, `
environment: staging

dashboard:
  port: 8095
  columns: 3
  refresh_interval: 250ms

subscribe:
  address: daq.beamline:5578
  compression: zstd

dispatch:
  ignore_streams: [baseline, monitor]

logging:
  level: debug
`)

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile failed: %v", err)
	}

	if cfg.Environment != Staging {
		t.Errorf("expected environment=staging, got %s", cfg.Environment)
	}
	if cfg.Dashboard.Port != 8095 || cfg.Dashboard.Columns != 3 {
		t.Errorf("unexpected dashboard: %+v", cfg.Dashboard)
	}
	// Unset values keep their defaults.
	if cfg.Dashboard.Host != "0.0.0.0" {
		t.Errorf("expected default host, got %q", cfg.Dashboard.Host)
	}
	if refresh, _ := cfg.Dashboard.Refresh(); refresh != 250*time.Millisecond {
		t.Errorf("expected refresh=250ms, got %v", refresh)
	}
	if cfg.Subscribe.Address != "daq.beamline:5578" || cfg.Subscribe.Compression != "zstd" {
		t.Errorf("unexpected subscribe: %+v", cfg.Subscribe)
	}
	if !reflect.DeepEqual(cfg.Dispatch.IgnoreStreams, []string{"baseline", "monitor"}) {
		t.Errorf("unexpected ignore_streams: %v", cfg.Dispatch.IgnoreStreams)
	}
	if level, _ := cfg.Logging.SlogLevel(); level != slog.LevelDebug {
		t.Errorf("expected level=debug, got %v", level)
	}
}

func TestLoadFile_EnvironmentOverrides(t *testing.T) {
	path := writeConfig(t, `
environment: production

dashboard:
  port: 8080
  title: Beamline 7

logging:
  level: debug

production:
  dashboard:
    port: 80
  logging:
    level: warn
  dispatch:
    ignore_streams: [baseline]

development:
  dashboard:
    port: 9999
`)

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile failed: %v", err)
	}
	if cfg.Dashboard.Port != 80 {
		t.Errorf("expected production port=80, got %d", cfg.Dashboard.Port)
	}
	if cfg.Dashboard.Title != "Beamline 7" {
		t.Errorf("override without title should keep the base title, got %q", cfg.Dashboard.Title)
	}
	if cfg.Logging.Level != "warn" {
		t.Errorf("expected level=warn, got %s", cfg.Logging.Level)
	}
	if !reflect.DeepEqual(cfg.Dispatch.IgnoreStreams, []string{"baseline"}) {
		t.Errorf("unexpected ignore_streams: %v", cfg.Dispatch.IgnoreStreams)
	}
}

func TestLoadFile_ExpandsVariables(t *testing.T) {
	t.Setenv("HOME", "/home/operator")
	t.Setenv("LIVEPLOT_TEST_LOG_DIR", "")
	path := writeConfig(t, `
dispatch:
  structures_file: ${HOME}/structures.jsonc
logging:
  output: ${LIVEPLOT_TEST_LOG_DIR:-/var/log/liveplot}/liveplot.jsonl
`)

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile failed: %v", err)
	}
	if cfg.Dispatch.StructuresFile != "/home/operator/structures.jsonc" {
		t.Errorf("structures_file = %q", cfg.Dispatch.StructuresFile)
	}
	if cfg.Logging.Output != "/var/log/liveplot/liveplot.jsonl" {
		t.Errorf("output = %q", cfg.Logging.Output)
	}
}

func TestLoadFile_Errors(t *testing.T) {
	if _, err := LoadFile(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected an error for a missing file")
	}
	if _, err := LoadFile(writeConfig(t, "dashboard: [not, a, mapping]\n")); err == nil {
		t.Error("expected an error for malformed YAML")
	}
}

func TestValidate(t *testing.T) {
	cfg := Default()
	cfg.Environment = "qa"
	cfg.Dashboard.Port = 0
	cfg.Dashboard.Columns = 0
	cfg.Dashboard.RefreshInterval = "soon"
	cfg.Subscribe.Compression = "gzip"
	cfg.Subscribe.MaxBackoff = "-1s"
	cfg.Logging.Level = "verbose"

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected validation errors")
	}
	for _, want := range []string{
		"invalid environment",
		"dashboard.port",
		"dashboard.columns",
		"dashboard.refresh_interval",
		"subscribe.compression",
		"subscribe.max_backoff must be positive",
		"logging.level",
	} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("validation error does not mention %q: %v", want, err)
		}
	}
}
