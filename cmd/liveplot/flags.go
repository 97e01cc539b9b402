// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/liveplot/lib/config"
)

const (
	demoInterval = 200 * time.Millisecond
	demoPause    = 5 * time.Second
	demoPoints   = 30
)

// flagOptions holds command-line values. Only flags the operator
// actually set override the configuration file.
type flagOptions struct {
	configPath    string
	plotHost      string
	plotPort      int
	columns       int
	title         string
	refresh       time.Duration
	ignoreStreams []string
	structures    string
	compression   string
	maxBackoff    time.Duration
	logLevel      string
	logOutput     string
	demo          bool
	version       bool
	help          bool
}

func newFlagSet(options *flagOptions) *pflag.FlagSet {
	flagSet := pflag.NewFlagSet("liveplot", pflag.ContinueOnError)
	flagSet.StringVar(&options.configPath, "config", "", "path to liveplot.yaml (default: $"+config.EnvironmentVariable+", then built-in defaults)")
	flagSet.StringVar(&options.plotHost, "plot-host", "", "dashboard listen host (default 0.0.0.0)")
	flagSet.IntVar(&options.plotPort, "plot-port", 0, "dashboard listen port (default 8080)")
	flagSet.IntVar(&options.columns, "columns", 0, "number of plot columns on the page (default 2)")
	flagSet.StringVar(&options.title, "title", "", "dashboard page title")
	flagSet.DurationVar(&options.refresh, "refresh", 0, "minimum interval between dashboard refreshes (default 1s)")
	flagSet.StringArrayVar(&options.ignoreStreams, "ignore-stream", nil, "descriptor name whose events are never plotted (repeatable)")
	flagSet.StringVar(&options.structures, "structures", "", "YAML or JSONC file of operator plot structures")
	flagSet.StringVar(&options.compression, "compression", "", "compression to request from the publisher: none, lz4, zstd")
	flagSet.DurationVar(&options.maxBackoff, "max-backoff", 0, "longest wait between reconnection attempts (default 30s)")
	flagSet.StringVar(&options.logLevel, "log-level", "", "log level: debug, info, warn, error")
	flagSet.StringVar(&options.logOutput, "log-output", "", "also write JSON logs to this file")
	flagSet.BoolVar(&options.demo, "demo", false, "plot synthetic scans generated in-process")
	flagSet.BoolVar(&options.version, "version", false, "print version information and exit")
	flagSet.BoolVarP(&options.help, "help", "h", false, "show help")
	return flagSet
}

// apply copies every flag the operator set onto cfg.
func (options *flagOptions) apply(flagSet *pflag.FlagSet, cfg *config.Config) {
	if flagSet.Changed("plot-host") {
		cfg.Dashboard.Host = options.plotHost
	}
	if flagSet.Changed("plot-port") {
		cfg.Dashboard.Port = options.plotPort
	}
	if flagSet.Changed("columns") {
		cfg.Dashboard.Columns = options.columns
	}
	if flagSet.Changed("title") {
		cfg.Dashboard.Title = options.title
	}
	if flagSet.Changed("refresh") {
		cfg.Dashboard.RefreshInterval = options.refresh.String()
	}
	if flagSet.Changed("ignore-stream") {
		cfg.Dispatch.IgnoreStreams = options.ignoreStreams
	}
	if flagSet.Changed("structures") {
		cfg.Dispatch.StructuresFile = options.structures
	}
	if flagSet.Changed("compression") {
		cfg.Subscribe.Compression = options.compression
	}
	if flagSet.Changed("max-backoff") {
		cfg.Subscribe.MaxBackoff = options.maxBackoff.String()
	}
	if flagSet.Changed("log-level") {
		cfg.Logging.Level = options.logLevel
	}
	if flagSet.Changed("log-output") {
		cfg.Logging.Output = options.logOutput
	}
}

func printHelp(flagSet *pflag.FlagSet) {
	fmt.Fprintf(os.Stderr, `liveplot: live figures for streamed experiment runs

Usage:
  liveplot [flags] [publisher-address]
  liveplot --demo [flags]

Subscribes to the document publisher at publisher-address (host:port)
and serves a dashboard of figures that update as events arrive. Runs
declare their figures in the BLUESKY_LIVE_PLOTS hint of the start document;
anything undeclared falls back to one plot per numeric field.

Examples:
  liveplot 127.0.0.1:5578
  liveplot --plot-port 9000 --ignore-stream baseline 10.0.0.5:5578
  liveplot --config /etc/liveplot.yaml
  liveplot --demo

Flags:
`)
	flagSet.PrintDefaults()
}
