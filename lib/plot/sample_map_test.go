// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package plot

import (
	"bytes"
	"log/slog"
	"reflect"
	"strings"
	"testing"

	"github.com/bureau-foundation/liveplot/lib/schema/document"
	"github.com/bureau-foundation/liveplot/lib/structure"
)

func sampleMapDescriptor() *document.Descriptor {
	return newDescriptor("d1", map[string]document.DataKey{
		"motor1":        number(),
		"motor2":        number(),
		"mca_intensity": number(),
	})
}

func TestSampleMapAccumulatesPointsAndIncludesZero(t *testing.T) {
	builder := mustNew(t, structure.SampleMap(
		[]string{"motor1", "motor2", "mca_intensity"}, "mca_intensity", structure.Viridis))
	builder.RunStart(newRunStart("run", 1))
	builder.Descriptor(sampleMapDescriptor())

	if len(builder.Figure().Data) != 0 {
		t.Fatal("sample map added a trace at descriptor time")
	}

	points := [][3]float64{{0, 0, 5}, {1, 0, 7}, {1, 1, 9}}
	for i, point := range points {
		changed := builder.Event(newEvent("d1", int64(i+1), map[string]any{
			"motor1": point[0], "motor2": point[1], "mca_intensity": point[2],
		}))
		if !changed {
			t.Fatalf("event %d did not change the figure", i+1)
		}
	}

	figure := builder.Figure()
	if len(figure.Data) != 1 {
		t.Fatalf("got %d traces, want 1", len(figure.Data))
	}
	trace := figure.Data[0]
	if trace.Type != "heatmap" || trace.ColorScale != "Viridis" {
		t.Errorf("trace = %+v", trace)
	}
	if !reflect.DeepEqual(trace.X, []any{0.0, 1.0, 1.0}) ||
		!reflect.DeepEqual(trace.Y, []any{0.0, 0.0, 1.0}) ||
		!reflect.DeepEqual(trace.Z, []any{5.0, 7.0, 9.0}) {
		t.Errorf("trace = x %v, y %v, z %v", trace.X, trace.Y, trace.Z)
	}
	if !reflect.DeepEqual(figure.Layout.XAxis.Range, []float64{0, 1}) {
		t.Errorf("x range = %v, want [0 1]", figure.Layout.XAxis.Range)
	}
	if !reflect.DeepEqual(figure.Layout.YAxis.Range, []float64{0, 1}) {
		t.Errorf("y range = %v, want [0 1]", figure.Layout.YAxis.Range)
	}
	if figure.Layout.XAxis.Title.Text != "motor1" || figure.Layout.YAxis.Title.Text != "motor2" {
		t.Errorf("axis titles = %q, %q", figure.Layout.XAxis.Title.Text, figure.Layout.YAxis.Title.Text)
	}
}

func TestSampleMapRangeIncludesZeroForNegativePositions(t *testing.T) {
	builder := mustNew(t, structure.SampleMap([]string{"x", "y", "i"}, "i", structure.Hot))
	builder.RunStart(newRunStart("run", 1))
	builder.Event(newEvent("d1", 1, map[string]any{"x": -2.0, "y": 3.0, "i": 1.0}))
	builder.Event(newEvent("d1", 2, map[string]any{"x": -5.0, "y": 4.0, "i": 1.0}))

	layout := builder.Figure().Layout
	if !reflect.DeepEqual(layout.XAxis.Range, []float64{-5, 0}) {
		t.Errorf("x range = %v, want [-5 0]", layout.XAxis.Range)
	}
	if !reflect.DeepEqual(layout.YAxis.Range, []float64{0, 4}) {
		t.Errorf("y range = %v, want [0 4]", layout.YAxis.Range)
	}
}

func TestSampleMapIgnoresIncompleteEvents(t *testing.T) {
	builder := mustNew(t, structure.SampleMap([]string{"x", "y", "i"}, "i", structure.Viridis))
	builder.RunStart(newRunStart("run", 1))
	if builder.Event(newEvent("d1", 1, map[string]any{"x": 1.0, "y": 2.0})) {
		t.Error("event without intensity reported a change")
	}
	if len(builder.Figure().Data) != 0 {
		t.Error("incomplete event added a trace")
	}
}

func TestSampleMapEventPage(t *testing.T) {
	builder := mustNew(t, structure.SampleMap([]string{"x", "y", "i"}, "i", structure.Viridis))
	builder.RunStart(newRunStart("run", 1))
	page := &document.EventPage{
		Descriptor: "d1",
		SeqNum:     []int64{1, 2},
		Time:       []float64{1, 2},
		Data: map[string][]any{
			"x": {1.0, 2.0},
			"y": {3.0, 4.0},
			"i": {10.0, 20.0},
		},
	}
	if !builder.EventPage(page) {
		t.Fatal("page did not change the figure")
	}
	trace := builder.Figure().Last()
	if !reflect.DeepEqual(trace.Z, []any{10.0, 20.0}) {
		t.Errorf("z = %v", trace.Z)
	}
	if !reflect.DeepEqual(builder.Figure().Layout.XAxis.Range, []float64{0, 2}) {
		t.Errorf("x range = %v", builder.Figure().Layout.XAxis.Range)
	}
}

func TestSampleMapNewRunResetsBounds(t *testing.T) {
	builder := mustNew(t, structure.SampleMap([]string{"x", "y", "i"}, "i", structure.Viridis))
	builder.RunStart(newRunStart("run-1", 1))
	builder.Event(newEvent("d1", 1, map[string]any{"x": 10.0, "y": 10.0, "i": 1.0}))
	builder.RunStart(newRunStart("run-2", 2))
	builder.Event(newEvent("d2", 1, map[string]any{"x": 1.0, "y": 1.0, "i": 1.0}))

	figure := builder.Figure()
	if len(figure.Data) != 2 {
		t.Fatalf("got %d traces, want one per run", len(figure.Data))
	}
	if !reflect.DeepEqual(figure.Layout.XAxis.Range, []float64{0, 1}) {
		t.Errorf("x range = %v, want [0 1]", figure.Layout.XAxis.Range)
	}
}

func TestSampleMapWarnsOnExtraPositions(t *testing.T) {
	var buffer bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buffer, nil))
	s := structure.SampleMap([]string{"a", "b", "c", "i"}, "i", structure.Viridis)
	builder, err := New(s.Names, s, logger)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if !strings.Contains(buffer.String(), "more than two position fields") {
		t.Errorf("no warning logged: %q", buffer.String())
	}
	layout := builder.Figure().Layout
	if layout.XAxis.Title.Text != "a" || layout.YAxis.Title.Text != "b" {
		t.Errorf("axes = %q, %q, want a, b", layout.XAxis.Title.Text, layout.YAxis.Title.Text)
	}
}
