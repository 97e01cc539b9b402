// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// liveplot-sim publishes synthetic scans for liveplot to subscribe to.
//
// Each run is a count scan of a Gaussian detector followed by a grid
// scan of two motors over a simulated MCA, streamed over the document
// protocol to every connected subscriber.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/liveplot/lib/docstream"
	"github.com/bureau-foundation/liveplot/lib/logging"
	"github.com/bureau-foundation/liveplot/lib/process"
	"github.com/bureau-foundation/liveplot/lib/scansim"
	"github.com/bureau-foundation/liveplot/lib/version"
)

func main() {
	if err := run(); err != nil {
		process.Fatal(err)
	}
}

func run() error {
	var (
		listen      string
		runs        int
		points      int
		gridX       int
		gridY       int
		interval    time.Duration
		pageSize    int
		channels    int
		compression string
		wait        int
		logLevel    string
		showVersion bool
		help        bool
	)

	flagSet := pflag.NewFlagSet("liveplot-sim", pflag.ContinueOnError)
	flagSet.StringVar(&listen, "listen", "127.0.0.1:5578", "TCP address to publish documents on")
	flagSet.IntVar(&runs, "runs", 0, "number of count+grid cycles to publish (0 runs until interrupted)")
	flagSet.IntVar(&points, "points", 50, "readings per count scan")
	flagSet.IntVar(&gridX, "grid-x", 9, "motor1 positions per grid scan")
	flagSet.IntVar(&gridY, "grid-y", 5, "motor2 positions per grid scan")
	flagSet.DurationVar(&interval, "interval", 100*time.Millisecond, "time between readings")
	flagSet.IntVar(&pageSize, "page-size", 1, "readings batched per event page (1 sends single events)")
	flagSet.IntVar(&channels, "channels", scansim.DefaultChannels, "MCA channel count")
	flagSet.StringVar(&compression, "compression", "none", "force frame compression for every subscriber: none, lz4, zstd")
	flagSet.IntVar(&wait, "wait-for", 1, "subscribers to wait for before the first run (0 starts immediately)")
	flagSet.StringVar(&logLevel, "log-level", "info", "log level: debug, info, warn, error")
	flagSet.BoolVar(&showVersion, "version", false, "print version information and exit")
	flagSet.BoolVarP(&help, "help", "h", false, "show help")

	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			printHelp(flagSet)
			return nil
		}
		return err
	}
	if help {
		printHelp(flagSet)
		return nil
	}
	if showVersion {
		version.Print("liveplot-sim")
		return nil
	}
	if flagSet.NArg() > 0 {
		return fmt.Errorf("unexpected argument: %s", flagSet.Arg(0))
	}
	if points < 1 || gridX < 1 || gridY < 1 {
		return errors.New("--points, --grid-x and --grid-y must be positive")
	}

	level, err := logging.ParseLevel(logLevel)
	if err != nil {
		return err
	}
	logger, closeLog, err := logging.New(logging.Options{Level: level})
	if err != nil {
		return err
	}
	defer closeLog()

	forced, err := docstream.ParseCompression(compression)
	if err != nil {
		return err
	}

	publisher, err := docstream.NewPublisher(docstream.PublisherConfig{
		Address:     listen,
		Compression: forced,
		Logger:      logger.With("component", "publisher"),
	})
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	serveDone := make(chan error, 1)
	go func() {
		serveDone <- publisher.Serve(ctx)
	}()

	select {
	case <-publisher.Ready():
	case err := <-serveDone:
		return err
	}
	logger.Info("publishing", "address", publisher.Addr().String(), "compression", forced.String())

	simulator := scansim.New(scansim.Config{
		Interval: interval,
		PageSize: pageSize,
		Channels: channels,
	})
	scanErr := publishRuns(ctx, logger, publisher, simulator, cycle{
		runs:   runs,
		points: points,
		xs:     span(30, 70, gridX),
		ys:     span(0, 99, gridY),
		wait:   wait,
	})

	cancel()
	return errors.Join(scanErr, <-serveDone)
}

// cycle describes what publishRuns plays.
type cycle struct {
	runs   int
	points int
	xs, ys []float64
	wait   int
}

func publishRuns(ctx context.Context, logger *slog.Logger, publisher *docstream.Publisher, simulator *scansim.Simulator, c cycle) error {
	if c.wait > 0 {
		logger.Info("waiting for subscribers", "count", c.wait)
		if err := publisher.WaitForSubscribers(ctx, c.wait); err != nil {
			return nil
		}
	}

	for i := 0; c.runs == 0 || i < c.runs; i++ {
		if err := simulator.Count(ctx, publisher.Publish, c.points); err != nil {
			return interrupted(ctx, err)
		}
		if err := simulator.Grid(ctx, publisher.Publish, c.xs, c.ys); err != nil {
			return interrupted(ctx, err)
		}
		logger.Info("cycle published", "cycle", i+1, "subscribers", publisher.Subscribers())
	}
	return nil
}

func interrupted(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return nil
	}
	return err
}

// span returns n evenly spaced values from low to high inclusive.
func span(low, high float64, n int) []float64 {
	if n == 1 {
		return []float64{low}
	}
	values := make([]float64, n)
	step := (high - low) / float64(n-1)
	for i := range values {
		values[i] = low + step*float64(i)
	}
	return values
}

func printHelp(flagSet *pflag.FlagSet) {
	fmt.Fprintf(os.Stderr, `liveplot-sim: publish synthetic scans for liveplot

Usage:
  liveplot-sim [flags]

Waits for a subscriber, then publishes count and grid scans on
--listen. Point liveplot at the same address to watch them.

Examples:
  liveplot-sim
  liveplot-sim --listen 0.0.0.0:5578 --runs 3 --page-size 5
  liveplot-sim --compression zstd --interval 20ms

Flags:
`)
	flagSet.PrintDefaults()
}
