// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package plot

import (
	"fmt"
	"log/slog"

	"github.com/bureau-foundation/liveplot/lib/figure"
	"github.com/bureau-foundation/liveplot/lib/schema/document"
	"github.com/bureau-foundation/liveplot/lib/structure"
)

// array plots one array field. A SLICE view is a line redrawn from
// scratch on every event. A SURFACE view has one row per event: y is
// the event time, x the index within the row, z the values.
// Multi-dimensional values are flattened row-major in both views.
type array struct {
	fields    structure.FieldSet
	structure structure.Structure
	field     string
	logger    *slog.Logger
	figure    *figure.Figure
	run       run

	surface bool
}

func newArray(fields structure.FieldSet, s structure.Structure, logger *slog.Logger) (*array, error) {
	if fields.Len() != 1 {
		return nil, configErrorf(fields, "array plots govern exactly one field")
	}
	switch s.View {
	case structure.ViewSlice, structure.ViewSurface:
	default:
		return nil, configErrorf(fields, "array view %q is not SLICE or SURFACE", s.View)
	}
	field := fields.Names()[0]
	return &array{
		fields:    fields,
		structure: s,
		field:     field,
		logger:    logger,
		figure:    figure.New(field),
		surface:   s.View == structure.ViewSurface,
	}, nil
}

func (a *array) Fields() structure.FieldSet           { return a.fields }
func (a *array) Structure() structure.Structure       { return a.structure }
func (a *array) Figure() *figure.Figure               { return a.figure }
func (a *array) RunStart(runStart *document.RunStart) { a.run.start(runStart) }

func (a *array) Descriptor(descriptor *document.Descriptor) {
	dataKey, ok := descriptor.DataKeys[a.field]
	if !ok || a.run.traced {
		return
	}
	a.addTrace(dataKey)
}

func (a *array) addTrace(dataKey document.DataKey) {
	units := dataKey.Units
	if units == "" {
		units = "value"
	}
	if a.surface {
		a.figure.Layout.XAxis.Title.Text = "Index"
		a.figure.Layout.YAxis.Title.Text = "Time"
		a.figure.AddTrace(figure.Trace{
			Type: figure.TypeSurface,
			Name: a.run.traceName(),
			Z:    []any{},
		})
	} else {
		a.figure.Layout.XAxis.Title.Text = "Index"
		a.figure.Layout.YAxis.Title.Text = units
		a.figure.AddTrace(figure.Trace{
			Type: figure.TypeScatter,
			Mode: "lines",
			Name: a.run.traceName(),
		})
	}
	a.run.traced = true
}

// trace returns the current run's trace, or nil if no descriptor
// declaring the field has arrived in this run.
func (a *array) trace() *figure.Trace {
	if !a.run.traced {
		a.logger.Debug("dropping event: no descriptor in this run declared the field")
		return nil
	}
	return a.figure.Last()
}

// values converts an event value, or returns false if it is not a
// numeric array.
func (a *array) values(value any) ([]any, bool) {
	numbers, ok := document.Floats(value)
	if !ok {
		a.logger.Debug("array value is not a numeric array", "type", fmt.Sprintf("%T", value))
		return nil, false
	}
	row := make([]any, len(numbers))
	for i, number := range numbers {
		row[i] = figure.Number(number)
	}
	return row, true
}

func (a *array) apply(trace *figure.Trace, row []any, time float64) {
	if !a.surface {
		trace.X = indices(len(row))
		trace.Y = row
		return
	}
	if len(row) > len(trace.X) {
		trace.X = indices(len(row))
	}
	trace.Y = append(trace.Y, figure.FormatTime(time))
	trace.Z = append(trace.Z, row)
}

func (a *array) Event(event *document.Event) bool {
	value, ok := event.Data[a.field]
	if !ok {
		return false
	}
	trace := a.trace()
	if trace == nil {
		return false
	}
	row, ok := a.values(value)
	if !ok {
		return false
	}
	a.apply(trace, row, event.Time)
	return true
}

func (a *array) EventPage(page *document.EventPage) bool {
	column, ok := page.Data[a.field]
	if !ok {
		return false
	}
	trace := a.trace()
	if trace == nil {
		return false
	}
	changed := false
	for i := range page.Len() {
		row, ok := a.values(column[i])
		if !ok {
			continue
		}
		a.apply(trace, row, page.Time[i])
		changed = true
	}
	return changed
}
