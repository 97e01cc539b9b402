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

// Builder incrementally builds one figure from run documents.
//
// Event and EventPage report whether the figure changed. Documents
// that do not carry every governing field are ignored, not errors:
// multi-stream runs routinely send events that touch only some fields.
type Builder interface {
	Fields() structure.FieldSet
	Structure() structure.Structure

	// RunStart captures the run's scan label for trace names. A second
	// call for the same run is a no-op.
	RunStart(*document.RunStart)
	Descriptor(*document.Descriptor)
	Event(*document.Event) bool
	EventPage(*document.EventPage) bool

	// Figure returns the live figure. Callers outside the ingestion
	// side must use Figure().Snapshot().
	Figure() *figure.Figure
}

// ConfigError reports a structure that cannot drive a builder: a
// producer or operator bug, surfaced at construction time.
type ConfigError struct {
	// Fields is the field set the builder was requested for.
	Fields structure.FieldSet
	// Message describes what is wrong.
	Message string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("plot {%s}: %s", e.Fields, e.Message)
}

func configErrorf(fields structure.FieldSet, format string, args ...any) *ConfigError {
	return &ConfigError{Fields: fields, Message: fmt.Sprintf(format, args...)}
}

// New returns the builder for a structure. It fails with a
// *ConfigError when the structure governs different names than fields
// or its parameters are invalid for its kind.
func New(fields structure.FieldSet, s structure.Structure, logger *slog.Logger) (Builder, error) {
	if fields.Len() == 0 {
		return nil, configErrorf(fields, "no fields")
	}
	if !s.Names.Equal(fields) {
		return nil, configErrorf(fields, "structure governs {%s}, not the requested fields", s.Names)
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	logger = logger.With("figure", fields.String(), "kind", string(s.Kind))

	switch s.Kind {
	case structure.KindScalar:
		return newScalar(fields, s, logger)
	case structure.KindArray:
		return newArray(fields, s, logger)
	case structure.KindSampleMap:
		return newSampleMap(fields, s, logger)
	}
	return nil, configErrorf(fields, "unknown structure kind %q", s.Kind)
}

// run is the per-run state every builder keeps: which run it is in,
// the label for that run's trace, and whether the trace exists yet.
type run struct {
	uid    string
	label  string
	traced bool
}

// start switches to a new run. Returns false if uid is the current
// run, in which case nothing changes.
func (r *run) start(runStart *document.RunStart) bool {
	if runStart.UID == r.uid {
		return false
	}
	r.uid = runStart.UID
	r.label = runStart.ScanLabel()
	r.traced = false
	return true
}

func (r *run) traceName() string {
	if r.label == "" {
		return "plan"
	}
	return "plan " + r.label
}

func indices(n int) []any {
	values := make([]any, n)
	for i := range values {
		values[i] = i
	}
	return values
}
