// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package dispatch

import "github.com/prometheus/client_golang/prometheus"

// metrics are per-engine so tests and multiple engines never share
// registrations. The engine exposes them as a prometheus.Collector.
type metrics struct {
	documents   *prometheus.CounterVec
	dropped     *prometheus.CounterVec
	unplottable prometheus.Counter
	figures     prometheus.Gauge
}

func newMetrics() *metrics {
	return &metrics{
		documents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "liveplot_documents_total",
			Help: "Run documents received, by kind.",
		}, []string{"kind"}),
		dropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "liveplot_events_dropped_total",
			Help: "Events and event pages not routed to any figure, by reason.",
		}, []string{"reason"}),
		unplottable: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "liveplot_unplottable_fields_total",
			Help: "Hinted fields skipped because no figure kind handles their dtype.",
		}),
		figures: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "liveplot_figures",
			Help: "Figures in the current run.",
		}),
	}
}

func (m *metrics) collectors() []prometheus.Collector {
	return []prometheus.Collector{m.documents, m.dropped, m.unplottable, m.figures}
}

// Describe implements prometheus.Collector.
func (e *Engine) Describe(descriptions chan<- *prometheus.Desc) {
	for _, collector := range e.metrics.collectors() {
		collector.Describe(descriptions)
	}
}

// Collect implements prometheus.Collector.
func (e *Engine) Collect(metrics chan<- prometheus.Metric) {
	for _, collector := range e.metrics.collectors() {
		collector.Collect(metrics)
	}
}
