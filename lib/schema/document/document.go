// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package document

import (
	"sort"
	"strconv"
)

// Kind identifies a document type on the wire and at the dispatch
// entry point.
type Kind string

const (
	KindStart      Kind = "start"
	KindDescriptor Kind = "descriptor"
	KindEvent      Kind = "event"
	KindEventPage  Kind = "event_page"
	KindStop       Kind = "stop"
)

// ParseKind converts a wire name to a Kind. Returns false for names
// liveplot does not handle (resource, datum, and anything newer), which
// callers skip rather than treat as errors.
func ParseKind(name string) (Kind, bool) {
	switch kind := Kind(name); kind {
	case KindStart, KindDescriptor, KindEvent, KindEventPage, KindStop:
		return kind, true
	}
	return "", false
}

// RunStart opens a run. Hints carries producer-supplied plotting
// metadata; the structure registry is its only reader.
type RunStart struct {
	UID      string         `json:"uid"`
	Time     float64        `json:"time"`
	ScanID   *int64         `json:"scan_id,omitempty"`
	PlanName string         `json:"plan_name,omitempty"`
	Hints    map[string]any `json:"hints,omitempty"`
}

// ScanLabel returns the identifier used to label traces for this run:
// the scan id when the producer sets one, otherwise the uid without
// its first four characters.
func (r *RunStart) ScanLabel() string {
	if r.ScanID != nil {
		return strconv.FormatInt(*r.ScanID, 10)
	}
	if len(r.UID) > 4 {
		return r.UID[4:]
	}
	return r.UID
}

// DataKey describes one field of a stream.
type DataKey struct {
	DType  string `json:"dtype"`
	Shape  []int  `json:"shape,omitempty"`
	Units  string `json:"units,omitempty"`
	Source string `json:"source,omitempty"`
}

// ObjectHint lists the fields of a device the producer considers
// worth showing by default.
type ObjectHint struct {
	Fields []string `json:"fields,omitempty"`
}

// Descriptor declares the data keys of one stream within a run. Name
// is the stream name ("primary", "baseline", ...).
type Descriptor struct {
	UID        string                `json:"uid"`
	RunStart   string                `json:"run_start"`
	Name       string                `json:"name"`
	Time       float64               `json:"time"`
	DataKeys   map[string]DataKey    `json:"data_keys"`
	ObjectKeys map[string][]string   `json:"object_keys,omitempty"`
	Hints      map[string]ObjectHint `json:"hints,omitempty"`
}

// Fields returns the set of declared data-key names.
func (d *Descriptor) Fields() map[string]struct{} {
	fields := make(map[string]struct{}, len(d.DataKeys))
	for name := range d.DataKeys {
		fields[name] = struct{}{}
	}
	return fields
}

// HintedFields returns the fields to plot when no structure names
// them. For each device in object_keys (in name order), the device's
// hinted fields are used if it declares any, otherwise all of its
// fields. A descriptor without object_keys hints every data key, so
// producers that do not describe devices still get plots. Only names
// present in data_keys are returned, without duplicates.
func (d *Descriptor) HintedFields() []string {
	var candidates []string
	if len(d.ObjectKeys) == 0 {
		for name := range d.DataKeys {
			candidates = append(candidates, name)
		}
		sort.Strings(candidates)
	} else {
		objects := make([]string, 0, len(d.ObjectKeys))
		for object := range d.ObjectKeys {
			objects = append(objects, object)
		}
		sort.Strings(objects)
		for _, object := range objects {
			fields := d.Hints[object].Fields
			if len(fields) == 0 {
				fields = d.ObjectKeys[object]
			}
			candidates = append(candidates, fields...)
		}
	}

	seen := make(map[string]struct{}, len(candidates))
	hinted := make([]string, 0, len(candidates))
	for _, name := range candidates {
		if _, declared := d.DataKeys[name]; !declared {
			continue
		}
		if _, duplicate := seen[name]; duplicate {
			continue
		}
		seen[name] = struct{}{}
		hinted = append(hinted, name)
	}
	return hinted
}

// Event is one reading of every field in a stream.
type Event struct {
	UID        string             `json:"uid"`
	Descriptor string             `json:"descriptor"`
	SeqNum     int64              `json:"seq_num"`
	Time       float64            `json:"time"`
	Data       map[string]any     `json:"data"`
	Timestamps map[string]float64 `json:"timestamps,omitempty"`
}

// Has reports whether the event carries a value for every name.
func (e *Event) Has(names []string) bool {
	for _, name := range names {
		if _, ok := e.Data[name]; !ok {
			return false
		}
	}
	return true
}

// EventPage is a column-oriented batch of events from one stream.
// Row i of the page is (UID[i], SeqNum[i], Time[i], Data[*][i]).
type EventPage struct {
	UID        []string             `json:"uid"`
	Descriptor string               `json:"descriptor"`
	SeqNum     []int64              `json:"seq_num"`
	Time       []float64            `json:"time"`
	Data       map[string][]any     `json:"data"`
	Timestamps map[string][]float64 `json:"timestamps,omitempty"`
}

// Len returns the number of rows in the page: the shortest of the
// seq_num, time and data columns, so a ragged page never indexes out
// of range.
func (p *EventPage) Len() int {
	rows := len(p.SeqNum)
	if len(p.Time) < rows {
		rows = len(p.Time)
	}
	for _, column := range p.Data {
		if len(column) < rows {
			rows = len(column)
		}
	}
	return rows
}

// Has reports whether the page carries a column for every name.
func (p *EventPage) Has(names []string) bool {
	for _, name := range names {
		if _, ok := p.Data[name]; !ok {
			return false
		}
	}
	return true
}

// RunStop closes a run.
type RunStop struct {
	UID        string         `json:"uid"`
	RunStart   string         `json:"run_start"`
	Time       float64        `json:"time"`
	ExitStatus string         `json:"exit_status"`
	Reason     string         `json:"reason,omitempty"`
	NumEvents  map[string]int `json:"num_events,omitempty"`
}
