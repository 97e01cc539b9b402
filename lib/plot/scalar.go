// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package plot

import (
	"log/slog"

	"github.com/bureau-foundation/liveplot/lib/figure"
	"github.com/bureau-foundation/liveplot/lib/schema/document"
	"github.com/bureau-foundation/liveplot/lib/structure"
)

type scalar struct {
	fields    structure.FieldSet
	structure structure.Structure
	field     string
	logger    *slog.Logger
	figure    *figure.Figure
	run       run
}

func newScalar(fields structure.FieldSet, s structure.Structure, logger *slog.Logger) (*scalar, error) {
	if fields.Len() != 1 {
		return nil, configErrorf(fields, "scalar plots govern exactly one field")
	}
	switch s.PlotAgainst {
	case structure.PlotAgainstSeqNum, structure.PlotAgainstTime:
	default:
		return nil, configErrorf(fields, "scalar plot_against %q is not TIME or SEQ_NUM", s.PlotAgainst)
	}
	field := fields.Names()[0]
	return &scalar{
		fields:    fields,
		structure: s,
		field:     field,
		logger:    logger,
		figure:    figure.New(field),
	}, nil
}

func (s *scalar) Fields() structure.FieldSet           { return s.fields }
func (s *scalar) Structure() structure.Structure       { return s.structure }
func (s *scalar) Figure() *figure.Figure               { return s.figure }
func (s *scalar) RunStart(runStart *document.RunStart) { s.run.start(runStart) }

func (s *scalar) Descriptor(descriptor *document.Descriptor) {
	dataKey, ok := descriptor.DataKeys[s.field]
	if !ok || s.run.traced {
		return
	}
	units := dataKey.Units
	if units == "" {
		units = "value"
	}
	s.figure.Layout.YAxis.Title.Text = units
	s.addTrace()
}

func (s *scalar) addTrace() {
	if s.structure.PlotAgainst == structure.PlotAgainstTime {
		s.figure.Layout.XAxis.Title.Text = "Time"
	} else {
		s.figure.Layout.XAxis.Title.Text = "Sequence Number"
	}
	s.figure.AddTrace(figure.Trace{
		Type: figure.TypeScatter,
		Mode: figure.ModeLinesMarkers,
		Name: s.run.traceName(),
	})
	s.run.traced = true
}

// trace returns the current run's trace, or nil if no descriptor
// declaring the field has arrived in this run.
func (s *scalar) trace() *figure.Trace {
	if !s.run.traced {
		s.logger.Debug("dropping event: no descriptor in this run declared the field")
		return nil
	}
	return s.figure.Last()
}

func (s *scalar) x(seqNum int64, time float64) any {
	if s.structure.PlotAgainst == structure.PlotAgainstTime {
		return figure.FormatTime(time)
	}
	return seqNum
}

// y converts a value for plotting. Values that are not numbers plot as
// gaps, so every event still adds exactly one point.
func (s *scalar) y(value any) any {
	number, ok := document.Float(value)
	if !ok {
		s.logger.Debug("non-numeric scalar value", "value", value)
		return nil
	}
	return figure.Number(number)
}

func (s *scalar) Event(event *document.Event) bool {
	value, ok := event.Data[s.field]
	if !ok {
		return false
	}
	trace := s.trace()
	if trace == nil {
		return false
	}
	trace.X = append(trace.X, s.x(event.SeqNum, event.Time))
	trace.Y = append(trace.Y, s.y(value))
	return true
}

func (s *scalar) EventPage(page *document.EventPage) bool {
	column, ok := page.Data[s.field]
	if !ok {
		return false
	}
	rows := page.Len()
	if rows == 0 {
		return false
	}
	trace := s.trace()
	if trace == nil {
		return false
	}
	for i := range rows {
		trace.X = append(trace.X, s.x(page.SeqNum[i], page.Time[i]))
		trace.Y = append(trace.Y, s.y(column[i]))
	}
	return true
}
