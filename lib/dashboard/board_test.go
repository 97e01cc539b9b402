// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package dashboard

import (
	"encoding/json"
	"errors"
	"slices"
	"testing"

	"github.com/bureau-foundation/liveplot/lib/figure"
	"github.com/bureau-foundation/liveplot/lib/updates"
)

func scalarUpdate(key, title string) updates.Update {
	return updates.Update{
		Key:    key,
		Title:  title,
		Kind:   updates.KindScalar,
		Figure: figure.New(title),
	}
}

func TestPlotID(t *testing.T) {
	id := PlotID("det")
	if len(id) != 16 {
		t.Fatalf("PlotID length = %d, want 16", len(id))
	}
	if PlotID("det") != id {
		t.Error("PlotID is not stable")
	}
	if PlotID("det2") == id {
		t.Error("different keys produced the same id")
	}
}

func TestBoardApplyOrdersAndVersions(t *testing.T) {
	b := newBoard()
	changed := b.apply([]updates.Update{scalarUpdate("det", "det"), scalarUpdate("mca", "mca")})
	if changed != 2 {
		t.Fatalf("apply changed %d plots, want 2", changed)
	}
	b.apply([]updates.Update{scalarUpdate("det", "det v2")})

	views := b.list()
	if len(views) != 2 || views[0].Key != "det" || views[1].Key != "mca" {
		t.Fatalf("unexpected plot order: %+v", views)
	}
	if views[0].Title != "det v2" || views[0].Version != 3 {
		t.Errorf("det = %+v, want title 'det v2' at version 3", views[0])
	}
	if views[1].Version != 2 {
		t.Errorf("mca version = %d, want 2", views[1].Version)
	}
}

func TestBoardPauseHoldsVersionResumePublishesLatest(t *testing.T) {
	b := newBoard()
	b.apply([]updates.Update{scalarUpdate("det", "first")})
	id := PlotID("det")

	if err := b.pause(id); err != nil {
		t.Fatalf("pause: %v", err)
	}
	paused, _ := b.get(id)

	b.apply([]updates.Update{scalarUpdate("det", "second")})
	b.apply([]updates.Update{scalarUpdate("det", "third")})

	held, _ := b.get(id)
	if held.Version != paused.Version || held.Title != "first" {
		t.Fatalf("paused plot changed: %+v", held)
	}

	if err := b.resume(id); err != nil {
		t.Fatalf("resume: %v", err)
	}
	resumed, _ := b.get(id)
	if resumed.Version <= paused.Version {
		t.Errorf("resume did not bump version: %d <= %d", resumed.Version, paused.Version)
	}
	if resumed.Title != "third" || resumed.Paused {
		t.Errorf("resumed plot = %+v, want newest figure unpaused", resumed)
	}
}

func TestBoardHideShow(t *testing.T) {
	b := newBoard()
	b.apply([]updates.Update{scalarUpdate("det", "det")})
	id := PlotID("det")

	if err := b.hide(id); err != nil {
		t.Fatalf("hide: %v", err)
	}
	if view, _ := b.get(id); !view.Hidden {
		t.Fatal("plot not hidden")
	}
	version := b.stats().Version
	if err := b.hide(id); err != nil {
		t.Fatalf("second hide: %v", err)
	}
	if b.stats().Version != version {
		t.Error("hiding a hidden plot advanced the version")
	}
	if err := b.show(id); err != nil {
		t.Fatalf("show: %v", err)
	}
	if view, _ := b.get(id); view.Hidden {
		t.Error("plot still hidden after show")
	}
}

func TestBoardDeleteAndRecreate(t *testing.T) {
	b := newBoard()
	b.apply([]updates.Update{scalarUpdate("det", "det")})
	id := PlotID("det")

	if err := b.remove(id); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if _, ok := b.get(id); ok {
		t.Fatal("removed plot still present")
	}
	if err := b.remove(id); !errors.Is(err, ErrUnknownPlot) {
		t.Errorf("second remove = %v, want ErrUnknownPlot", err)
	}
	if err := b.pause("0000000000000000"); !errors.Is(err, ErrUnknownPlot) {
		t.Errorf("pause unknown = %v, want ErrUnknownPlot", err)
	}

	b.apply([]updates.Update{scalarUpdate("det", "det again")})
	view, ok := b.get(id)
	if !ok || view.Title != "det again" {
		t.Fatalf("new data did not recreate the plot: %+v", view)
	}
}

func TestBoardSince(t *testing.T) {
	b := newBoard()
	b.apply([]updates.Update{scalarUpdate("det", "det"), scalarUpdate("mca", "mca")})

	full, ok := b.since(0, true)
	if !ok || !full.Full || len(full.Plots) != 2 || full.Version != 2 {
		t.Fatalf("full state = %+v", full)
	}
	if _, ok := b.since(full.Version, false); ok {
		t.Error("since(current) reported a change")
	}

	b.apply([]updates.Update{scalarUpdate("mca", "mca v2")})
	b.remove(PlotID("det"))

	delta, ok := b.since(full.Version, false)
	if !ok || delta.Full {
		t.Fatalf("delta = %+v", delta)
	}
	if len(delta.Plots) != 1 || delta.Plots[0].Key != "mca" {
		t.Errorf("delta plots = %+v, want only mca", delta.Plots)
	}
	if !slices.Equal(delta.Removed, []string{PlotID("det")}) {
		t.Errorf("delta removed = %v", delta.Removed)
	}
}

func TestBoardStaticPlot(t *testing.T) {
	b := newBoard()
	static := json.RawMessage(`{"data":[],"layout":{"title":{"text":"alignment"}}}`)
	b.apply([]updates.Update{{Key: "static:alignment", Title: "alignment", Kind: updates.KindStatic, Static: static}})

	view, ok := b.get(PlotID("static:alignment"))
	if !ok || view.Figure != nil || string(view.Static) != string(static) {
		t.Fatalf("static plot = %+v", view)
	}
}
