// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// liveplot turns a live stream of experiment documents into figures in
// a browser dashboard.
//
// Documents arrive from a remote publisher (the positional address,
// or subscribe.address in the config file) or, with --demo, from
// synthetic scans run in-process. Each run's figures update as events
// arrive; open http://<plot-host>:<plot-port>/ to watch them.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"strconv"
	"sync"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/pflag"

	"github.com/bureau-foundation/liveplot/lib/clock"
	"github.com/bureau-foundation/liveplot/lib/config"
	"github.com/bureau-foundation/liveplot/lib/dashboard"
	"github.com/bureau-foundation/liveplot/lib/dispatch"
	"github.com/bureau-foundation/liveplot/lib/docstream"
	"github.com/bureau-foundation/liveplot/lib/logging"
	"github.com/bureau-foundation/liveplot/lib/process"
	"github.com/bureau-foundation/liveplot/lib/scansim"
	"github.com/bureau-foundation/liveplot/lib/structure"
	"github.com/bureau-foundation/liveplot/lib/updates"
	"github.com/bureau-foundation/liveplot/lib/version"
)

func main() {
	if err := run(); err != nil {
		process.Fatal(err)
	}
}

func run() error {
	var options flagOptions
	flagSet := newFlagSet(&options)

	// Handle --version before flag parsing to match the other
	// binaries.
	if len(os.Args) > 1 && os.Args[1] == "--version" {
		version.Print("liveplot")
		return nil
	}

	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			printHelp(flagSet)
			return nil
		}
		return err
	}
	if options.help {
		printHelp(flagSet)
		return nil
	}
	if options.version {
		version.Print("liveplot")
		return nil
	}

	args := flagSet.Args()
	if len(args) > 1 {
		return fmt.Errorf("unexpected argument: %s", args[1])
	}

	cfg, err := config.Resolve(options.configPath)
	if err != nil {
		return err
	}
	options.apply(flagSet, cfg)
	if len(args) == 1 {
		cfg.Subscribe.Address = args[0]
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	level, _ := cfg.Logging.SlogLevel()
	logger, closeLog, err := logging.New(logging.Options{Level: level, Output: cfg.Logging.Output})
	if err != nil {
		return err
	}
	defer closeLog()

	var operatorStructures map[structure.Key]structure.Structure
	if cfg.Dispatch.StructuresFile != "" {
		operatorStructures, err = structure.LoadFile(cfg.Dispatch.StructuresFile)
		if err != nil {
			return err
		}
		logger.Info("loaded operator structures",
			"file", cfg.Dispatch.StructuresFile,
			"count", len(operatorStructures),
		)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	channel := updates.New()
	registry.MustRegister(channel)

	engine, err := dispatch.New(dispatch.Config{
		Updates:       channel,
		IgnoreStreams: cfg.Dispatch.IgnoreStreams,
		Structures:    operatorStructures,
		Logger:        logger.With("component", "dispatch"),
	})
	if err != nil {
		return err
	}
	registry.MustRegister(engine)

	refresh, _ := cfg.Dashboard.Refresh()
	board, err := dashboard.New(dashboard.Config{
		Source:          channel,
		RefreshInterval: refresh,
		Columns:         cfg.Dashboard.Columns,
		Title:           cfg.Dashboard.Title,
		Status:          func() any { return engine.Status() },
		Stats:           channel.Stats,
		Gatherer:        registry,
		Logger:          logger.With("component", "dashboard"),
	})
	if err != nil {
		return err
	}
	server := dashboard.NewHTTPServer(dashboard.HTTPServerConfig{
		Address: net.JoinHostPort(cfg.Dashboard.Host, strconv.Itoa(cfg.Dashboard.Port)),
		Handler: board.Handler(),
		Logger:  logger.With("component", "http"),
	})

	var subscriber *docstream.Subscriber
	if cfg.Subscribe.Address != "" {
		compression, _ := docstream.ParseCompression(cfg.Subscribe.Compression)
		maxBackoff, _ := cfg.Subscribe.Backoff()
		subscriber, err = docstream.NewSubscriber(docstream.SubscriberConfig{
			Address:     cfg.Subscribe.Address,
			Compression: compression,
			Handler:     engine.OnDocument,
			MaxBackoff:  maxBackoff,
			Logger:      logger.With("component", "subscriber"),
		})
		if err != nil {
			return err
		}
		registry.MustRegister(subscriber)
	} else if !options.demo {
		logger.Warn("no publisher address given; the dashboard will stay empty (pass an address or --demo)")
	}

	signalContext, stopSignals := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stopSignals()
	ctx, cancel := context.WithCancel(signalContext)
	defer cancel()

	errs := make(chan error, 4)
	var workers sync.WaitGroup
	start := func(name string, work func(context.Context) error) {
		workers.Add(1)
		go func() {
			defer workers.Done()
			if err := work(ctx); err != nil {
				errs <- fmt.Errorf("%s: %w", name, err)
				cancel()
			}
		}()
	}

	start("http server", server.Serve)
	start("dashboard", board.Run)
	if subscriber != nil {
		start("subscriber", subscriber.Run)
	}
	if options.demo {
		start("demo", func(ctx context.Context) error {
			return runDemo(ctx, engine.OnDocument, logger.With("component", "demo"))
		})
	}

	logger.Info("liveplot running",
		"version", version.Info(),
		"dashboard", net.JoinHostPort(cfg.Dashboard.Host, strconv.Itoa(cfg.Dashboard.Port)),
		"publisher", cfg.Subscribe.Address,
		"ignore_streams", cfg.Dispatch.IgnoreStreams,
		"refresh", refresh,
	)

	<-ctx.Done()
	logger.Info("shutting down")
	workers.Wait()
	close(errs)

	var failures []error
	for err := range errs {
		failures = append(failures, err)
	}
	return errors.Join(failures...)
}

// runDemo plays synthetic count and grid scans into handler until ctx
// is cancelled.
func runDemo(ctx context.Context, handler scansim.Handler, logger *slog.Logger) error {
	simulator := scansim.New(scansim.Config{Interval: demoInterval})
	xs := []float64{30, 35, 40, 45, 50, 55, 60, 65, 70}
	ys := []float64{0, 25, 50, 75, 99}
	for {
		if err := simulator.Count(ctx, handler, demoPoints); err != nil {
			return demoResult(ctx, err)
		}
		if err := simulator.Grid(ctx, handler, xs, ys); err != nil {
			return demoResult(ctx, err)
		}
		logger.Debug("demo cycle complete")
		select {
		case <-clock.Real().After(demoPause):
		case <-ctx.Done():
			return nil
		}
	}
}

// demoResult drops the error of a scan aborted by shutdown.
func demoResult(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return nil
	}
	return err
}
