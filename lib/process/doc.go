// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package process holds the entrypoint helpers shared by the liveplot
// binaries: reporting an error that ends the process, before or after
// the structured logger exists.
package process
