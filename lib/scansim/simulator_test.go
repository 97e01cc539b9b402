// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package scansim

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/bureau-foundation/liveplot/lib/clock"
	"github.com/bureau-foundation/liveplot/lib/dispatch"
	"github.com/bureau-foundation/liveplot/lib/schema/document"
	"github.com/bureau-foundation/liveplot/lib/structure"
	"github.com/bureau-foundation/liveplot/lib/testutil"
	"github.com/bureau-foundation/liveplot/lib/updates"
)

type recorded struct {
	kind document.Kind
	doc  any
}

type recorder struct {
	documents []recorded
}

func (r *recorder) handle(kind document.Kind, doc any) error {
	r.documents = append(r.documents, recorded{kind, doc})
	return nil
}

func (r *recorder) kinds() []document.Kind {
	kinds := make([]document.Kind, len(r.documents))
	for i, d := range r.documents {
		kinds[i] = d.kind
	}
	return kinds
}

var epoch = time.Unix(1700000000, 0)

func TestCountEmitsCompleteRun(t *testing.T) {
	simulator := New(Config{Clock: clock.Fake(epoch), Channels: 64})
	var r recorder
	if err := simulator.Count(context.Background(), r.handle, 3); err != nil {
		t.Fatalf("Count: %v", err)
	}

	want := []document.Kind{
		document.KindStart,
		document.KindDescriptor, document.KindEvent, // baseline
		document.KindDescriptor, document.KindEvent, document.KindEvent, document.KindEvent,
		document.KindStop,
	}
	got := r.kinds()
	if len(got) != len(want) {
		t.Fatalf("kinds = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("kinds = %v, want %v", got, want)
		}
	}

	start := r.documents[0].doc.(*document.RunStart)
	if start.ScanID == nil || *start.ScanID != 1 || start.PlanName != "count" {
		t.Errorf("run start = %+v", start)
	}
	if start.Time != float64(epoch.Unix()) {
		t.Errorf("run start time = %v, want the clock's", start.Time)
	}

	primary := r.documents[3].doc.(*document.Descriptor)
	if primary.Name != "primary" || primary.RunStart != start.UID {
		t.Errorf("primary descriptor = %+v", primary)
	}
	hinted := primary.HintedFields()
	if len(hinted) != 2 || hinted[0] != "det" || hinted[1] != "mca" {
		t.Errorf("hinted fields = %v, want [det mca]", hinted)
	}

	// The detector peaks in the middle of the run.
	middle := r.documents[5].doc.(*document.Event)
	edge := r.documents[4].doc.(*document.Event)
	if middle.SeqNum != 2 || middle.Data["det"].(float64) <= edge.Data["det"].(float64) {
		t.Errorf("det did not peak mid-run: edge %v, middle %v", edge.Data["det"], middle.Data["det"])
	}
	if spectrum := middle.Data["mca"].([]int64); len(spectrum) != 64 {
		t.Errorf("mca has %d channels, want 64", len(spectrum))
	}

	stop := r.documents[7].doc.(*document.RunStop)
	if stop.ExitStatus != "success" || stop.NumEvents["primary"] != 3 || stop.NumEvents["baseline"] != 1 {
		t.Errorf("run stop = %+v", stop)
	}

	// Scan ids keep counting.
	var second recorder
	simulator.Count(context.Background(), second.handle, 1)
	if id := *second.documents[0].doc.(*document.RunStart).ScanID; id != 2 {
		t.Errorf("second scan id = %d, want 2", id)
	}
}

func TestGridDeclaresStructuresAndPages(t *testing.T) {
	simulator := New(Config{Clock: clock.Fake(epoch), Channels: 32, PageSize: 4})
	var r recorder
	if err := simulator.Grid(context.Background(), r.handle, []float64{0, 50, 100}, []float64{0, 99}); err != nil {
		t.Fatalf("Grid: %v", err)
	}

	want := []document.Kind{
		document.KindStart, document.KindDescriptor,
		document.KindEventPage, document.KindEventPage,
		document.KindStop,
	}
	got := r.kinds()
	if len(got) != len(want) {
		t.Fatalf("kinds = %v, want %v", got, want)
	}

	structures, err := structure.Register(r.documents[0].doc.(*document.RunStart))
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	sampleMap, ok := structures[structure.NewFieldSet("motor1", "motor2", "mca_mean").Key()]
	if !ok || sampleMap.Kind != structure.KindSampleMap || sampleMap.IntensityField != "mca_mean" {
		t.Errorf("sample map not declared: %v", structures)
	}
	if scalar, ok := structures[structure.NewFieldSet("motor1").Key()]; !ok || scalar.PlotAgainst != structure.PlotAgainstTime {
		t.Errorf("motor1 time plot not declared: %v", structures)
	}

	first := r.documents[2].doc.(*document.EventPage)
	second := r.documents[3].doc.(*document.EventPage)
	if first.Len() != 4 || second.Len() != 2 {
		t.Fatalf("page sizes = %d, %d; want 4, 2", first.Len(), second.Len())
	}
	if second.SeqNum[1] != 6 {
		t.Errorf("last seq_num = %d, want 6", second.SeqNum[1])
	}

	// Row order is motor1-major; the spot is brightest at motor1 = 50.
	means := make([]int64, 0, 6)
	for _, page := range []*document.EventPage{first, second} {
		for _, value := range page.Data["mca_mean"] {
			means = append(means, value.(int64))
		}
	}
	if !(means[2] > means[0] && means[2] > means[4]) {
		t.Errorf("mca means %v do not peak at motor1 = 50", means)
	}
}

func TestGridValidatesPositions(t *testing.T) {
	simulator := New(Config{})
	var r recorder
	if err := simulator.Grid(context.Background(), r.handle, nil, []float64{1}); err == nil {
		t.Error("Grid without motor1 positions succeeded")
	}
	if err := simulator.Count(context.Background(), r.handle, 0); err == nil {
		t.Error("Count of zero points succeeded")
	}
	if len(r.documents) != 0 {
		t.Errorf("invalid plans emitted documents: %v", r.kinds())
	}
}

func TestCancelAbortsRun(t *testing.T) {
	fake := clock.Fake(epoch)
	simulator := New(Config{Clock: fake, Interval: time.Second, Channels: 8})

	documents := make(chan recorded, 32)
	handler := func(kind document.Kind, doc any) error {
		documents <- recorded{kind, doc}
		return nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- simulator.Count(ctx, handler, 10) }()

	// First reading after one interval.
	fake.WaitForTimers(1)
	fake.Advance(time.Second)
	fake.WaitForTimers(1)
	cancel()

	err := testutil.RequireReceive(t, done, 5*time.Second, "Count did not return after cancel")
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Count = %v, want context.Canceled", err)
	}

	var last recorded
	close(documents)
	for d := range documents {
		last = d
	}
	stop, ok := last.doc.(*document.RunStop)
	if !ok || stop.ExitStatus != "abort" || stop.NumEvents["primary"] != 1 {
		t.Errorf("last document = %s %+v, want an abort stop after one reading", last.kind, last.doc)
	}
}

func TestGridDrivesDispatchEngine(t *testing.T) {
	channel := updates.New()
	engine, err := dispatch.New(dispatch.Config{Updates: channel, IgnoreStreams: []string{"baseline"}})
	if err != nil {
		t.Fatalf("dispatch.New: %v", err)
	}
	simulator := New(Config{Clock: clock.Fake(epoch), Channels: 16, PageSize: 3})
	if err := simulator.Grid(context.Background(), engine.OnDocument, []float64{40, 50, 60}, []float64{0, 1}); err != nil {
		t.Fatalf("Grid: %v", err)
	}

	kinds := map[string]string{}
	for _, update := range channel.Drain() {
		kinds[update.Key] = update.Kind
	}
	for key, kind := range map[structure.Key]string{
		structure.NewFieldSet("motor1", "motor2", "mca_mean").Key(): updates.KindSampleMap,
		structure.NewFieldSet("motor1").Key():                       updates.KindScalar,
		structure.NewFieldSet("mca").Key():                          updates.KindArray,
	} {
		if kinds[string(key)] != kind {
			t.Errorf("update for %q = %q, want %q (all: %v)", key, kinds[string(key)], kind, kinds)
		}
	}
	if status := engine.Status(); status.State != dispatch.StateIdle || status.Figures != 3 {
		t.Errorf("engine status = %+v", status)
	}
}
