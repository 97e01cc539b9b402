// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package clock is the time source for everything in liveplot that
// waits: the dashboard's refresh ticker, the subscriber's reconnect
// backoff, and the simulator's event pacing.
//
// Components take a Clock instead of calling the time package. Real()
// is the standard library; Fake() stands still until the test calls
// Advance. A test that starts a goroutine which will wait on the
// clock calls WaitForTimers first, so Advance never races the
// goroutine's registration:
//
//	fake := clock.Fake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
//	go dashboard.Run(ctx) // registers a ticker
//	fake.WaitForTimers(1)
//	fake.Advance(time.Second) // one refresh
package clock
