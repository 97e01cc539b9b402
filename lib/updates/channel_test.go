// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package updates

import (
	"strings"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/bureau-foundation/liveplot/lib/figure"
)

func TestDrainEmpty(t *testing.T) {
	channel := New()
	if updates := channel.Drain(); updates != nil {
		t.Fatalf("Drain on empty channel = %v, want nil", updates)
	}
	if channel.Pending() {
		t.Fatal("empty channel reports pending")
	}
}

func TestPublishCoalescesByKey(t *testing.T) {
	channel := New()

	for i := range 10 {
		channel.Publish(Update{Key: "x", Figure: figure.New(string(rune('a' + i)))})
	}
	channel.Publish(Update{Key: "y", Figure: figure.New("y")})

	if !channel.Pending() {
		t.Fatal("Pending = false after Publish")
	}
	updates := channel.Drain()
	if len(updates) != 2 {
		t.Fatalf("got %d updates, want 2", len(updates))
	}
	if updates[0].Key != "x" || updates[0].Figure.Layout.Title.Text != "j" {
		t.Errorf("first update = %q (%q), want x with the last figure", updates[0].Key, updates[0].Figure.Layout.Title.Text)
	}
	if updates[1].Key != "y" {
		t.Errorf("second update = %q, want y", updates[1].Key)
	}

	stats := channel.Stats()
	if stats.Published != 11 || stats.Coalesced != 9 || stats.Pending != 0 {
		t.Errorf("Stats = %+v, want 11 published, 9 coalesced, 0 pending", stats)
	}
}

func TestDrainPreservesFirstPublishedOrder(t *testing.T) {
	channel := New()
	channel.Publish(Update{Key: "b"})
	channel.Publish(Update{Key: "a"})
	channel.Publish(Update{Key: "b"})
	channel.Publish(Update{Key: "c"})

	var keys []string
	for _, update := range channel.Drain() {
		keys = append(keys, update.Key)
	}
	if strings.Join(keys, ",") != "b,a,c" {
		t.Errorf("drain order = %v, want [b a c]", keys)
	}

	// A key drained and published again starts a new position.
	channel.Publish(Update{Key: "c"})
	channel.Publish(Update{Key: "b"})
	keys = keys[:0]
	for _, update := range channel.Drain() {
		keys = append(keys, update.Key)
	}
	if strings.Join(keys, ",") != "c,b" {
		t.Errorf("second drain order = %v, want [c b]", keys)
	}
}

func TestNotifyCoalesces(t *testing.T) {
	channel := New()
	for range 5 {
		channel.Publish(Update{Key: "x"})
	}

	select {
	case <-channel.Notify():
	default:
		t.Fatal("no notification after Publish")
	}
	select {
	case <-channel.Notify():
		t.Fatal("second notification without a new Publish")
	default:
	}

	channel.Drain()
	channel.Publish(Update{Key: "x"})
	select {
	case <-channel.Notify():
	default:
		t.Fatal("no notification after Publish following Drain")
	}
}

func TestConcurrentPublishAndDrain(t *testing.T) {
	channel := New()
	const publishes = 1000

	var waitGroup sync.WaitGroup
	waitGroup.Add(1)
	go func() {
		defer waitGroup.Done()
		for i := range publishes {
			channel.Publish(Update{Key: string(rune('a' + i%4))})
		}
	}()

	done := make(chan struct{})
	drained := 0
	go func() {
		defer close(done)
		for {
			<-channel.Notify()
			drained += len(channel.Drain())
			if channel.Stats().Published == publishes && !channel.Pending() {
				return
			}
		}
	}()

	waitGroup.Wait()
	<-done
	drained += len(channel.Drain())

	if drained == 0 || drained > publishes {
		t.Errorf("drained %d updates, want between 1 and %d", drained, publishes)
	}
	stats := channel.Stats()
	if stats.Published != publishes {
		t.Errorf("Published = %d, want %d", stats.Published, publishes)
	}
	if uint64(drained)+stats.Coalesced != publishes {
		t.Errorf("drained %d + coalesced %d != published %d", drained, stats.Coalesced, publishes)
	}
}

func TestCollector(t *testing.T) {
	channel := New()
	channel.Publish(Update{Key: "x"})
	channel.Publish(Update{Key: "x"})

	registry := prometheus.NewRegistry()
	registry.MustRegister(channel)
	families, err := registry.Gather()
	if err != nil {
		t.Fatalf("Gather: %v", err)
	}

	values := make(map[string]float64)
	for _, family := range families {
		metric := family.GetMetric()[0]
		if counter := metric.GetCounter(); counter != nil {
			values[family.GetName()] = counter.GetValue()
		} else {
			values[family.GetName()] = metric.GetGauge().GetValue()
		}
	}
	want := map[string]float64{
		"liveplot_updates_published_total": 2,
		"liveplot_updates_coalesced_total": 1,
		"liveplot_updates_pending":         1,
	}
	for name, value := range want {
		if values[name] != value {
			t.Errorf("%s = %v, want %v", name, values[name], value)
		}
	}
}
