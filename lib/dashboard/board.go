// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package dashboard

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"slices"
	"sync"

	"github.com/zeebo/blake3"

	"github.com/bureau-foundation/liveplot/lib/figure"
	"github.com/bureau-foundation/liveplot/lib/updates"
)

// ErrUnknownPlot is returned by plot operations on an id the board
// does not hold.
var ErrUnknownPlot = errors.New("unknown plot")

// PlotID returns the dashboard id for an update key: the first 16 hex
// characters of its BLAKE3 digest. Ids are stable across restarts and
// safe to use in URLs and element ids.
func PlotID(key string) string {
	sum := blake3.Sum256([]byte(key))
	return hex.EncodeToString(sum[:8])
}

// PlotView is the client-facing state of one plot.
type PlotView struct {
	ID      string `json:"id"`
	Key     string `json:"key"`
	Title   string `json:"title"`
	Kind    string `json:"kind"`
	Version uint64 `json:"version"`
	Paused  bool   `json:"paused"`
	Hidden  bool   `json:"hidden"`

	// Exactly one of Figure and Static is set.
	Figure *figure.Figure  `json:"figure,omitempty"`
	Static json.RawMessage `json:"static,omitempty"`
}

// StreamMessage is one websocket frame: the plots that changed since
// the client's last version, and the ids removed since then. Full is
// set on the first frame of a connection, which carries every plot.
type StreamMessage struct {
	Version uint64     `json:"version"`
	Full    bool       `json:"full,omitempty"`
	Plots   []PlotView `json:"plots,omitempty"`
	Removed []string   `json:"removed,omitempty"`
}

type plot struct {
	view PlotView

	// held is the newest figure received while paused.
	held *updates.Update
}

// board is the dashboard's plot state. Every mutation takes the one
// mutex; UI callbacks and the refresh loop never hold it for longer
// than a map update.
type board struct {
	mu sync.Mutex

	plots map[string]*plot
	// order holds plot ids in creation order.
	order []string

	// version increases on every visible change. Each plot records
	// the version of its last change, removals likewise.
	version uint64
	removed map[string]uint64

	// changed is closed and replaced whenever version advances.
	changed chan struct{}
}

func newBoard() *board {
	return &board{
		plots:   make(map[string]*plot),
		removed: make(map[string]uint64),
		changed: make(chan struct{}),
	}
}

// bumpLocked advances the version and wakes waiters.
func (b *board) bumpLocked() uint64 {
	b.version++
	close(b.changed)
	b.changed = make(chan struct{})
	return b.version
}

// apply stores drained updates. A paused plot holds the newest figure
// without changing its version. Updates for deleted plots recreate
// them. Returns the number of plots whose version changed.
func (b *board) apply(drained []updates.Update) int {
	b.mu.Lock()
	defer b.mu.Unlock()

	changed := 0
	for i := range drained {
		update := drained[i]
		id := PlotID(update.Key)
		p, exists := b.plots[id]
		if !exists {
			p = &plot{view: PlotView{ID: id, Key: update.Key}}
			b.plots[id] = p
			b.order = append(b.order, id)
			delete(b.removed, id)
		}
		if p.view.Paused {
			p.held = &update
			continue
		}
		setFigure(&p.view, update)
		p.view.Version = b.bumpLocked()
		changed++
	}
	return changed
}

func setFigure(view *PlotView, update updates.Update) {
	view.Title = update.Title
	view.Kind = update.Kind
	view.Figure = update.Figure
	view.Static = update.Static
}

func (b *board) pause(id string) error {
	return b.mutate(id, func(p *plot) bool {
		if p.view.Paused {
			return false
		}
		p.view.Paused = true
		return true
	})
}

// resume publishes the newest figure received while paused.
func (b *board) resume(id string) error {
	return b.mutate(id, func(p *plot) bool {
		if !p.view.Paused {
			return false
		}
		p.view.Paused = false
		if p.held != nil {
			setFigure(&p.view, *p.held)
			p.held = nil
		}
		return true
	})
}

func (b *board) hide(id string) error {
	return b.mutate(id, func(p *plot) bool {
		changed := !p.view.Hidden
		p.view.Hidden = true
		return changed
	})
}

func (b *board) show(id string) error {
	return b.mutate(id, func(p *plot) bool {
		changed := p.view.Hidden
		p.view.Hidden = false
		return changed
	})
}

func (b *board) mutate(id string, change func(*plot) bool) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	p, ok := b.plots[id]
	if !ok {
		return ErrUnknownPlot
	}
	if change(p) {
		p.view.Version = b.bumpLocked()
	}
	return nil
}

func (b *board) remove(id string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.plots[id]; !ok {
		return ErrUnknownPlot
	}
	delete(b.plots, id)
	for i, existing := range b.order {
		if existing == id {
			b.order = append(b.order[:i], b.order[i+1:]...)
			break
		}
	}
	b.removed[id] = b.bumpLocked()
	return nil
}

func (b *board) get(id string) (PlotView, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	p, ok := b.plots[id]
	if !ok {
		return PlotView{}, false
	}
	return p.view, true
}

func (b *board) list() []PlotView {
	b.mu.Lock()
	defer b.mu.Unlock()
	views := make([]PlotView, 0, len(b.order))
	for _, id := range b.order {
		views = append(views, b.plots[id].view)
	}
	return views
}

// wait returns a channel closed at the next version change. Take it
// before reading state so no change is missed between the two.
func (b *board) wait() <-chan struct{} {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.changed
}

// since returns what changed after version seen, or every plot when
// full is set. ok is false when nothing changed.
func (b *board) since(seen uint64, full bool) (message StreamMessage, ok bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	message.Version = b.version
	if full {
		message.Full = true
		message.Plots = make([]PlotView, 0, len(b.order))
		for _, id := range b.order {
			message.Plots = append(message.Plots, b.plots[id].view)
		}
		return message, true
	}
	if b.version <= seen {
		return message, false
	}
	for _, id := range b.order {
		if view := b.plots[id].view; view.Version > seen {
			message.Plots = append(message.Plots, view)
		}
	}
	for id, version := range b.removed {
		if version > seen {
			message.Removed = append(message.Removed, id)
		}
	}
	slices.Sort(message.Removed)
	return message, true
}

type boardStats struct {
	Plots   int    `json:"plots"`
	Paused  int    `json:"paused"`
	Hidden  int    `json:"hidden"`
	Version uint64 `json:"version"`
}

func (b *board) stats() boardStats {
	b.mu.Lock()
	defer b.mu.Unlock()
	stats := boardStats{Plots: len(b.plots), Version: b.version}
	for _, p := range b.plots {
		if p.view.Paused {
			stats.Paused++
		}
		if p.view.Hidden {
			stats.Hidden++
		}
	}
	return stats
}
