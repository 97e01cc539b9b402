// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package docstream

import "github.com/prometheus/client_golang/prometheus"

var (
	publishedDescription = prometheus.NewDesc(
		"liveplot_stream_documents_published_total",
		"Documents handed to the publisher.",
		nil, nil,
	)
	subscribersDescription = prometheus.NewDesc(
		"liveplot_stream_subscribers",
		"Subscribers currently connected to the publisher.",
		nil, nil,
	)
	droppedDescription = prometheus.NewDesc(
		"liveplot_stream_subscribers_dropped_total",
		"Subscribers disconnected for overflowing their queue.",
		nil, nil,
	)

	receivedDescription = prometheus.NewDesc(
		"liveplot_stream_documents_received_total",
		"Documents decoded from the subscription and passed to the handler.",
		nil, nil,
	)
	skippedDescription = prometheus.NewDesc(
		"liveplot_stream_documents_skipped_total",
		"Frames skipped as undecodable or of an unplotted kind.",
		nil, nil,
	)
	rejectedDescription = prometheus.NewDesc(
		"liveplot_stream_documents_rejected_total",
		"Documents the handler returned an error for.",
		nil, nil,
	)
	reconnectsDescription = prometheus.NewDesc(
		"liveplot_stream_reconnects_total",
		"Reconnect attempts after a stream ended or failed.",
		nil, nil,
	)
	connectedDescription = prometheus.NewDesc(
		"liveplot_stream_connected",
		"1 while the subscription stream is established.",
		nil, nil,
	)
)

func (p *Publisher) Describe(descriptions chan<- *prometheus.Desc) {
	descriptions <- publishedDescription
	descriptions <- subscribersDescription
	descriptions <- droppedDescription
}

func (p *Publisher) Collect(metrics chan<- prometheus.Metric) {
	metrics <- prometheus.MustNewConstMetric(publishedDescription, prometheus.CounterValue, float64(p.published.Load()))
	metrics <- prometheus.MustNewConstMetric(subscribersDescription, prometheus.GaugeValue, float64(p.Subscribers()))
	metrics <- prometheus.MustNewConstMetric(droppedDescription, prometheus.CounterValue, float64(p.dropped.Load()))
}

func (s *Subscriber) Describe(descriptions chan<- *prometheus.Desc) {
	descriptions <- receivedDescription
	descriptions <- skippedDescription
	descriptions <- rejectedDescription
	descriptions <- reconnectsDescription
	descriptions <- connectedDescription
}

func (s *Subscriber) Collect(metrics chan<- prometheus.Metric) {
	connected := 0.0
	if s.Connected() {
		connected = 1
	}
	metrics <- prometheus.MustNewConstMetric(receivedDescription, prometheus.CounterValue, float64(s.received.Load()))
	metrics <- prometheus.MustNewConstMetric(skippedDescription, prometheus.CounterValue, float64(s.skipped.Load()))
	metrics <- prometheus.MustNewConstMetric(rejectedDescription, prometheus.CounterValue, float64(s.rejected.Load()))
	metrics <- prometheus.MustNewConstMetric(reconnectsDescription, prometheus.CounterValue, float64(s.reconnects.Load()))
	metrics <- prometheus.MustNewConstMetric(connectedDescription, prometheus.GaugeValue, connected)
}
