// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package dashboard

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/bureau-foundation/liveplot/lib/clock"
	"github.com/bureau-foundation/liveplot/lib/updates"
)

// Source is the consuming side of the update channel.
type Source interface {
	Drain() []updates.Update
	Pending() bool
	Notify() <-chan struct{}
}

// Config configures a Dashboard.
type Config struct {
	// Source supplies figure updates. Required.
	Source Source

	// Clock drives the refresh ticker. Defaults to the real clock.
	Clock clock.Clock

	// RefreshInterval is the minimum spacing between drains.
	// Defaults to one second.
	RefreshInterval time.Duration

	// Columns is the page grid width. Defaults to 2.
	Columns int

	// Title is shown in the page header. Defaults to "Live Plots".
	Title string

	// Status, when set, contributes the "engine" member of
	// /api/status.
	Status func() any

	// Stats, when set, contributes the "updates" member of
	// /api/status.
	Stats func() updates.Stats

	// Gatherer, when set, is served at /metrics.
	Gatherer prometheus.Gatherer

	Logger *slog.Logger
}

// Dashboard owns the plot board and serves it to browsers.
type Dashboard struct {
	source   Source
	clock    clock.Clock
	refresh  time.Duration
	columns  int
	title    string
	status   func() any
	stats    func() updates.Stats
	gatherer prometheus.Gatherer
	logger   *slog.Logger

	board    *board
	upgrader websocket.Upgrader
}

// New creates a Dashboard. Call Run to start draining updates and
// Handler to serve it.
func New(config Config) (*Dashboard, error) {
	if config.Source == nil {
		return nil, errors.New("dashboard: Source is required")
	}
	if config.RefreshInterval < 0 {
		return nil, errors.New("dashboard: RefreshInterval must not be negative")
	}
	d := &Dashboard{
		source:   config.Source,
		clock:    config.Clock,
		refresh:  config.RefreshInterval,
		columns:  config.Columns,
		title:    config.Title,
		status:   config.Status,
		stats:    config.Stats,
		gatherer: config.Gatherer,
		logger:   config.Logger,
		board:    newBoard(),
	}
	if d.clock == nil {
		d.clock = clock.Real()
	}
	if d.refresh == 0 {
		d.refresh = time.Second
	}
	if d.columns <= 0 {
		d.columns = 2
	}
	if d.title == "" {
		d.title = "Live Plots"
	}
	if d.logger == nil {
		d.logger = slog.New(slog.DiscardHandler)
	}
	return d, nil
}

// Run drains the source until ctx is cancelled. A notification is
// drained at once unless a drain already happened in the current
// refresh interval; the next tick then picks up whatever is pending.
// Returns nil on cancellation.
func (d *Dashboard) Run(ctx context.Context) error {
	ticker := d.clock.NewTicker(d.refresh)
	defer ticker.Stop()

	throttled := false
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			throttled = false
			if d.source.Pending() {
				d.Refresh()
				throttled = true
			}
		case <-d.source.Notify():
			if !throttled {
				d.Refresh()
				throttled = true
			}
		}
	}
}

// Refresh drains the source into the board now. Returns the number of
// plots whose visible state changed.
func (d *Dashboard) Refresh() int {
	drained := d.source.Drain()
	if len(drained) == 0 {
		return 0
	}
	changed := d.board.apply(drained)
	d.logger.Debug("dashboard refreshed", "updates", len(drained), "changed", changed)
	return changed
}

// Plots returns every plot in creation order.
func (d *Dashboard) Plots() []PlotView { return d.board.list() }

// Plot returns the plot with the given id.
func (d *Dashboard) Plot(id string) (PlotView, bool) { return d.board.get(id) }

// Pause stops a plot from changing. Updates keep arriving; the newest
// is shown on Resume.
func (d *Dashboard) Pause(id string) error { return d.board.pause(id) }

// Resume shows the newest figure received while paused.
func (d *Dashboard) Resume(id string) error { return d.board.resume(id) }

// Hide keeps a plot updating but out of the page grid.
func (d *Dashboard) Hide(id string) error { return d.board.hide(id) }

// Show returns a hidden plot to the grid.
func (d *Dashboard) Show(id string) error { return d.board.show(id) }

// Delete removes a plot. New data for the same key creates it again.
func (d *Dashboard) Delete(id string) error { return d.board.remove(id) }
