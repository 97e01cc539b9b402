// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package updates hands figure snapshots from the ingestion side to
// the rendering side.
//
// A [Channel] is a replace-on-key queue: publishing a figure for a key
// that is already pending replaces the pending figure in place, so a
// burst of events for one plot costs the renderer one update, not one
// per event. Intermediate states may be skipped; the renderer always
// converges on the latest.
package updates

import (
	"encoding/json"
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/bureau-foundation/liveplot/lib/figure"
)

// Kinds of Update, matching the structure kinds plus pre-rendered
// figures from run metadata.
const (
	KindScalar    = "scalar"
	KindArray     = "array"
	KindSampleMap = "sample_map"
	KindStatic    = "static"
)

// Update is the latest state of one plot.
type Update struct {
	// Key identifies the plot. Updates with the same key replace each
	// other.
	Key   string
	Title string
	Kind  string

	// Figure is a snapshot owned by the receiver. Nil for static
	// updates.
	Figure *figure.Figure

	// Static holds a pre-rendered figure as JSON, for KindStatic.
	Static json.RawMessage
}

// Stats counts channel activity since creation.
type Stats struct {
	// Published is the number of Publish calls.
	Published uint64
	// Coalesced is the number of published updates that replaced a
	// pending update for the same key before it was drained.
	Coalesced uint64
	// Pending is the number of keys waiting to be drained.
	Pending int
}

// Channel is a single-producer, single-consumer hand-off of updates.
// Publish never blocks. The consumer waits on Notify and calls Drain.
//
// Thread-safe: all methods may be called concurrently.
type Channel struct {
	mu sync.Mutex
	// order holds pending keys in first-published order; pending maps
	// each to its latest update.
	order     []string
	pending   map[string]Update
	published uint64
	coalesced uint64
	notify    chan struct{}
}

// New returns an empty channel.
func New() *Channel {
	return &Channel{
		pending: make(map[string]Update),
		notify:  make(chan struct{}, 1),
	}
}

// Publish queues update, replacing any pending update with the same
// key. A replaced update keeps its position in drain order.
func (c *Channel) Publish(update Update) {
	c.mu.Lock()
	c.published++
	if _, exists := c.pending[update.Key]; exists {
		c.coalesced++
	} else {
		c.order = append(c.order, update.Key)
	}
	c.pending[update.Key] = update
	c.mu.Unlock()

	// Non-blocking signal to the consumer.
	select {
	case c.notify <- struct{}{}:
	default:
	}
}

// Drain removes and returns every pending update in the order their
// keys were first published. Returns nil when nothing is pending.
func (c *Channel) Drain() []Update {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.order) == 0 {
		return nil
	}
	drained := make([]Update, len(c.order))
	for i, key := range c.order {
		drained[i] = c.pending[key]
		delete(c.pending, key)
	}
	c.order = c.order[:0]
	return drained
}

// Pending reports whether any update is waiting to be drained.
func (c *Channel) Pending() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.order) > 0
}

// Notify returns a channel that receives a signal when updates have
// been published since the consumer last received from it. Signals
// coalesce: many publishes between receives produce one signal.
func (c *Channel) Notify() <-chan struct{} {
	return c.notify
}

// Stats returns the channel's counters.
func (c *Channel) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Stats{
		Published: c.published,
		Coalesced: c.coalesced,
		Pending:   len(c.order),
	}
}

var (
	publishedDesc = prometheus.NewDesc(
		"liveplot_updates_published_total",
		"Figure updates published to the rendering side.",
		nil, nil)
	coalescedDesc = prometheus.NewDesc(
		"liveplot_updates_coalesced_total",
		"Figure updates replaced by a newer update for the same plot before rendering.",
		nil, nil)
	pendingDesc = prometheus.NewDesc(
		"liveplot_updates_pending",
		"Plots with an update waiting to be rendered.",
		nil, nil)
)

// Describe implements prometheus.Collector.
func (c *Channel) Describe(descriptions chan<- *prometheus.Desc) {
	descriptions <- publishedDesc
	descriptions <- coalescedDesc
	descriptions <- pendingDesc
}

// Collect implements prometheus.Collector.
func (c *Channel) Collect(metrics chan<- prometheus.Metric) {
	stats := c.Stats()
	metrics <- prometheus.MustNewConstMetric(publishedDesc, prometheus.CounterValue, float64(stats.Published))
	metrics <- prometheus.MustNewConstMetric(coalescedDesc, prometheus.CounterValue, float64(stats.Coalesced))
	metrics <- prometheus.MustNewConstMetric(pendingDesc, prometheus.GaugeValue, float64(stats.Pending))
}
