// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package dashboard serves live figures to browsers.
//
// A [Dashboard] drains figure updates from an update channel into a
// board of plots keyed by update key. It drains as soon as it is
// notified, at most once per refresh interval, so ingestion bursts
// reach the browser as one refresh rather than many. Plots are
// addressed by [PlotID], the first 16 hex characters of the BLAKE3
// digest of their key.
//
// Operators can pause, resume, hide, show and delete plots. A paused
// plot keeps receiving figures but does not change until resumed. A
// deleted plot reappears when new data arrives for its key.
//
// HTTP surface (see [Dashboard.Handler]):
//
//	GET    /                         page (plotly.js)
//	GET    /api/plots                every plot
//	GET    /api/plots/{id}           one plot, with a BLAKE3 ETag
//	POST   /api/plots/{id}/{action}  pause, resume, hide, show
//	DELETE /api/plots/{id}           delete
//	GET    /api/stream               websocket of board changes
//	GET    /api/status               board, channel and engine stats
//	GET    /metrics                  prometheus, when configured
//
// Every change to the board advances a version. Stream clients send
// nothing; they receive the full board on connect and then only the
// plots whose version advanced past the last frame they were sent.
// [HTTPServer] binds the handler to a TCP address with graceful
// shutdown.
package dashboard
