// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package version reports the build of a liveplot binary.
//
// [GitCommit], [GitDirty], [BuildTime] and [Version] are injected at
// build time:
//
//	go build -ldflags "-X github.com/bureau-foundation/liveplot/lib/version.GitCommit=$(git rev-parse --short HEAD)" ./cmd/liveplot
//
// Development builds report "unknown" and "0.1.0-dev". [Info] is the
// one-line form shown in the dashboard header; [Print] is what
// --version writes.
package version
