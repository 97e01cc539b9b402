// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package testutil

import (
	"fmt"
	"strings"
	"testing"
	"time"
)

// recorder captures Fatalf without stopping the calling goroutine.
type recorder struct {
	failure string
}

func (r *recorder) Helper() {}

func (r *recorder) Fatalf(format string, args ...any) {
	r.failure = fmt.Sprintf(format, args...)
}

func TestRequireReceive(t *testing.T) {
	ch := make(chan int, 1)
	ch <- 42
	if got := RequireReceive(t, ch, time.Second, "value"); got != 42 {
		t.Errorf("got %d, want 42", got)
	}
}

func TestRequireNoReceiveFailsOnValue(t *testing.T) {
	ch := make(chan int, 1)
	ch <- 1
	var r recorder
	RequireNoReceive(&r, ch, time.Millisecond, "idle channel %s", "x")
	if !strings.Contains(r.failure, "unexpected value 1: idle channel x") {
		t.Errorf("failure = %q", r.failure)
	}
}

func TestRequireClosed(t *testing.T) {
	ch := make(chan struct{})
	close(ch)
	RequireClosed(t, ch, time.Second, "closed")

	var r recorder
	RequireClosed(&r, make(chan struct{}), time.Millisecond)
	if !strings.Contains(r.failure, "(no message)") {
		t.Errorf("failure = %q", r.failure)
	}
}

func TestUniqueID(t *testing.T) {
	first, second := UniqueID("run"), UniqueID("run")
	if first == second || !strings.HasPrefix(first, "run-") {
		t.Errorf("UniqueID returned %q then %q", first, second)
	}
}
