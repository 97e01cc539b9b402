// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package testutil holds helpers shared by liveplot's tests.
//
// [RequireReceive], [RequireClosed] and [RequireNoReceive] wrap the
// select-with-timeout pattern so tests never call time.After
// themselves. They are the only place tests wait on the wall clock;
// everything else runs on clock.Fake.
//
// [UniqueID] returns distinct identifiers (run uids, descriptor uids,
// stream names) without reaching for time.Now.
//
// Helpers fail the test with Fatalf rather than returning errors.
package testutil
