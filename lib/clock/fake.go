// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package clock

import (
	"sort"
	"sync"
	"time"
)

// Fake returns a FakeClock reading initial. Time moves only on
// Advance.
func Fake(initial time.Time) *FakeClock {
	clock := &FakeClock{current: initial}
	clock.changed = sync.NewCond(&clock.mu)
	return clock
}

// FakeClock is a deterministic Clock for tests. Safe for concurrent
// use.
type FakeClock struct {
	mu      sync.Mutex
	current time.Time
	waiters []*waiter
	// changed is broadcast whenever a waiter registers, for
	// WaitForTimers.
	changed *sync.Cond
}

// waiter is a pending After or ticker. Tickers have a
// non-zero interval and are rescheduled after each firing.
type waiter struct {
	deadline time.Time
	channel  chan time.Time
	interval time.Duration
	stopped  bool
}

func (c *FakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

func (c *FakeClock) After(d time.Duration) <-chan time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	channel := make(chan time.Time, 1)
	if d <= 0 {
		channel <- c.current
		return channel
	}
	c.addLocked(&waiter{deadline: c.current.Add(d), channel: channel})
	return channel
}

func (c *FakeClock) NewTicker(d time.Duration) *Ticker {
	if d <= 0 {
		panic("clock: non-positive interval for NewTicker")
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	channel := make(chan time.Time, 1)
	ticker := &waiter{deadline: c.current.Add(d), channel: channel, interval: d}
	c.addLocked(ticker)

	return &Ticker{
		C: channel,
		stop: func() {
			c.mu.Lock()
			defer c.mu.Unlock()
			ticker.stopped = true
		},
	}
}

func (c *FakeClock) addLocked(w *waiter) {
	c.waiters = append(c.waiters, w)
	c.changed.Broadcast()
}

// Advance moves the clock forward by d and fires every waiter whose
// deadline has passed, in deadline order. A ticker spanning several
// intervals fires once per interval; ticks that find the channel full
// are dropped, as with time.Ticker.
func (c *FakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.current = c.current.Add(d)

	for {
		var due, pending []*waiter
		for _, w := range c.waiters {
			switch {
			case w.stopped:
			case w.deadline.After(c.current):
				pending = append(pending, w)
			default:
				due = append(due, w)
			}
		}
		if len(due) == 0 {
			c.waiters = pending
			return
		}

		sort.Slice(due, func(i, j int) bool {
			return due[i].deadline.Before(due[j].deadline)
		})
		for _, w := range due {
			select {
			case w.channel <- c.current:
			default:
			}
			if w.interval > 0 {
				w.deadline = w.deadline.Add(w.interval)
				pending = append(pending, w)
			}
		}
		c.waiters = pending
	}
}

// WaitForTimers blocks until at least n waiters are pending.
func (c *FakeClock) WaitForTimers(n int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for c.pendingLocked() < n {
		c.changed.Wait()
	}
}

// PendingCount returns the number of pending waiters.
func (c *FakeClock) PendingCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pendingLocked()
}

func (c *FakeClock) pendingLocked() int {
	count := 0
	for _, w := range c.waiters {
		if !w.stopped {
			count++
		}
	}
	return count
}
