// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package dispatch

import (
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"sort"
	"sync"

	"github.com/bureau-foundation/liveplot/lib/codec"
	"github.com/bureau-foundation/liveplot/lib/plot"
	"github.com/bureau-foundation/liveplot/lib/schema/document"
	"github.com/bureau-foundation/liveplot/lib/structure"
	"github.com/bureau-foundation/liveplot/lib/updates"
)

// State is the engine's position in the run lifecycle.
type State string

const (
	StateIdle      State = "idle"
	StateRunActive State = "run_active"
)

// Publisher receives figure updates. *updates.Channel implements it.
type Publisher interface {
	Publish(updates.Update)
}

// Config holds the engine's setup-time parameters.
type Config struct {
	// Updates receives a snapshot of every changed figure. Required.
	Updates Publisher

	// IgnoreStreams lists descriptor names (e.g. "baseline") whose
	// events are never plotted.
	IgnoreStreams []string

	// Structures are operator-supplied structures applied to every
	// run. A run's own declarations take precedence for the same
	// field set.
	Structures map[structure.Key]structure.Structure

	Logger *slog.Logger
}

// Status summarizes the engine for the dashboard's status endpoint.
type Status struct {
	State              State  `json:"state"`
	RunUID             string `json:"run_uid,omitempty"`
	ScanLabel          string `json:"scan_label,omitempty"`
	Figures            int    `json:"figures"`
	Descriptors        int    `json:"descriptors"`
	IgnoredDescriptors int    `json:"ignored_descriptors"`
}

// Engine is the document-to-figure dispatcher. OnDocument may be
// called from several goroutines; calls are serialized.
type Engine struct {
	updates       Publisher
	ignoreStreams map[string]struct{}
	operator      map[structure.Key]structure.Structure
	logger        *slog.Logger
	metrics       *metrics

	mu    sync.Mutex
	state State
	// runStart is buffered so builders created late in the run still
	// label their traces correctly.
	runStart   *document.RunStart
	structures map[structure.Key]structure.Structure
	builders   map[structure.Key]plot.Builder
	// order is builder creation order, for deterministic routing and
	// publishing.
	order       []structure.Key
	descriptors map[string]map[string]struct{}
	ignored     map[string]struct{}
	// unplottable records fields already warned about this run.
	unplottable map[string]struct{}
}

// New returns an idle engine.
func New(config Config) (*Engine, error) {
	if config.Updates == nil {
		return nil, errors.New("dispatch: Updates is required")
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	ignoreStreams := make(map[string]struct{}, len(config.IgnoreStreams))
	for _, name := range config.IgnoreStreams {
		ignoreStreams[name] = struct{}{}
	}

	engine := &Engine{
		updates:       config.Updates,
		ignoreStreams: ignoreStreams,
		operator:      maps.Clone(config.Structures),
		logger:        logger,
		metrics:       newMetrics(),
		state:         StateIdle,
	}
	engine.reset()
	return engine, nil
}

// reset discards all run-lifetime state. Caller holds mu (or owns the
// engine exclusively).
func (e *Engine) reset() {
	e.structures = make(map[structure.Key]structure.Structure)
	e.builders = make(map[structure.Key]plot.Builder)
	e.order = nil
	e.descriptors = make(map[string]map[string]struct{})
	e.ignored = make(map[string]struct{})
	e.unplottable = make(map[string]struct{})
	e.metrics.figures.Set(0)
}

// OnDocument is the single entry point for run documents. doc may be
// the typed document for kind (value or pointer), raw CBOR bytes, or a
// generic decoded mapping. Unknown kinds are ignored.
//
// A returned error reports a problem with part of the document (a
// malformed structure declaration, or a structure that cannot drive a
// figure); the rest of the document has still been processed.
func (e *Engine) OnDocument(kind document.Kind, doc any) error {
	if _, ok := document.ParseKind(string(kind)); !ok {
		e.logger.Debug("ignoring document of unknown kind", "kind", kind)
		return nil
	}

	typed, err := normalize(kind, doc)
	if err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	e.metrics.documents.WithLabelValues(string(kind)).Inc()
	switch typed := typed.(type) {
	case *document.RunStart:
		return e.handleRunStart(typed)
	case *document.Descriptor:
		return e.handleDescriptor(typed)
	case *document.Event:
		e.handleEvent(typed)
	case *document.EventPage:
		e.handleEventPage(typed)
	case *document.RunStop:
		e.handleRunStop(typed)
	}
	return nil
}

// normalize returns a pointer to the typed document for kind.
func normalize(kind document.Kind, doc any) (any, error) {
	switch typed := doc.(type) {
	case *document.RunStart, *document.Descriptor, *document.Event, *document.EventPage, *document.RunStop:
		if !matches(kind, typed) {
			return nil, fmt.Errorf("%s document has type %T", kind, doc)
		}
		return typed, nil
	case document.RunStart:
		return normalize(kind, &typed)
	case document.Descriptor:
		return normalize(kind, &typed)
	case document.Event:
		return normalize(kind, &typed)
	case document.EventPage:
		return normalize(kind, &typed)
	case document.RunStop:
		return normalize(kind, &typed)
	case []byte:
		return document.Decode(kind, typed)
	case codec.RawMessage:
		return document.Decode(kind, typed)
	case nil:
		return nil, fmt.Errorf("%s document is nil", kind)
	}

	// Generic mappings from dynamic producers: re-decode through the
	// wire codec into the typed document.
	data, err := codec.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("encoding %s document of type %T: %w", kind, doc, err)
	}
	return document.Decode(kind, data)
}

func matches(kind document.Kind, doc any) bool {
	switch doc.(type) {
	case *document.RunStart:
		return kind == document.KindStart
	case *document.Descriptor:
		return kind == document.KindDescriptor
	case *document.Event:
		return kind == document.KindEvent
	case *document.EventPage:
		return kind == document.KindEventPage
	case *document.RunStop:
		return kind == document.KindStop
	}
	return false
}

func (e *Engine) handleRunStart(runStart *document.RunStart) error {
	e.reset()
	e.state = StateRunActive
	e.runStart = runStart

	registered, registerErr := structure.Register(runStart)
	maps.Copy(e.structures, e.operator)
	maps.Copy(e.structures, registered)

	e.logger.Info("run started",
		"run", runStart.UID,
		"scan", runStart.ScanLabel(),
		"plan", runStart.PlanName,
		"structures", len(e.structures),
	)

	var errs []error
	if registerErr != nil {
		e.logger.Warn("run declares malformed structures", "run", runStart.UID, "error", registerErr)
		errs = append(errs, fmt.Errorf("run %s structures: %w", runStart.UID, registerErr))
	}

	static, staticErr := structure.StaticFigures(runStart)
	if staticErr != nil {
		e.logger.Warn("run declares malformed static figures", "run", runStart.UID, "error", staticErr)
		errs = append(errs, fmt.Errorf("run %s static figures: %w", runStart.UID, staticErr))
	}
	names := make([]string, 0, len(static))
	for name := range static {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		e.updates.Publish(updates.Update{
			Key:    "static:" + name,
			Title:  name,
			Kind:   updates.KindStatic,
			Static: static[name],
		})
	}
	return errors.Join(errs...)
}

func (e *Engine) handleDescriptor(descriptor *document.Descriptor) error {
	if _, ignore := e.ignoreStreams[descriptor.Name]; ignore {
		e.ignored[descriptor.UID] = struct{}{}
		e.logger.Info("ignoring stream", "stream", descriptor.Name, "descriptor", descriptor.UID)
		return nil
	}
	if e.state != StateRunActive {
		e.logger.Warn("descriptor outside a run", "descriptor", descriptor.UID, "stream", descriptor.Name)
	}

	fields := descriptor.Fields()
	e.descriptors[descriptor.UID] = fields

	var errs []error
	ordered := structure.Ordered(e.structures)
	claimed := make(map[string]struct{})
	for _, declared := range ordered {
		for _, name := range declared.Names.Names() {
			claimed[name] = struct{}{}
		}
	}

	for _, declared := range ordered {
		if !declared.Names.SubsetOf(fields) {
			continue
		}
		if err := e.ensureBuilder(declared); err != nil {
			errs = append(errs, err)
		}
	}

	for _, name := range descriptor.HintedFields() {
		if _, ok := claimed[name]; ok {
			continue
		}
		if _, exists := e.builders[structure.NewFieldSet(name).Key()]; exists {
			continue
		}
		dataKey := descriptor.DataKeys[name]
		synthesized, ok := structure.Default(name, dataKey)
		if !ok {
			if _, warned := e.unplottable[name]; !warned {
				e.unplottable[name] = struct{}{}
				e.metrics.unplottable.Inc()
				e.logger.Warn("no figure available for field",
					"field", name, "dtype", dataKey.DType, "descriptor", descriptor.UID)
			}
			continue
		}
		if err := e.ensureBuilder(synthesized); err != nil {
			errs = append(errs, err)
		}
	}

	for _, key := range e.order {
		builder := e.builders[key]
		if builder.Fields().SubsetOf(fields) {
			builder.Descriptor(descriptor)
		}
	}
	return errors.Join(errs...)
}

// ensureBuilder creates the builder for a structure unless its field
// set already has one. Later descriptors reuse the existing builder.
func (e *Engine) ensureBuilder(s structure.Structure) error {
	key := s.Key()
	if _, exists := e.builders[key]; exists {
		return nil
	}
	builder, err := plot.New(s.Names, s, e.logger)
	if err != nil {
		e.logger.Error("cannot create figure", "fields", s.Names.String(), "error", err)
		return fmt.Errorf("creating figure: %w", err)
	}
	if e.runStart != nil {
		builder.RunStart(e.runStart)
	}
	e.builders[key] = builder
	e.order = append(e.order, key)
	e.metrics.figures.Set(float64(len(e.builders)))
	e.logger.Debug("created figure", "fields", s.Names.String(), "kind", string(s.Kind))
	return nil
}

// routable reports whether events under descriptor should be routed,
// counting and logging those that should not.
func (e *Engine) routable(descriptor string) bool {
	if _, ignored := e.ignored[descriptor]; ignored {
		e.metrics.dropped.WithLabelValues("ignored_stream").Inc()
		e.logger.Debug("dropping event for ignored stream", "descriptor", descriptor)
		return false
	}
	if _, known := e.descriptors[descriptor]; !known {
		e.metrics.dropped.WithLabelValues("unknown_descriptor").Inc()
		e.logger.Warn("dropping event for unknown descriptor", "descriptor", descriptor)
		return false
	}
	return true
}

func (e *Engine) handleEvent(event *document.Event) {
	if !e.routable(event.Descriptor) {
		return
	}
	declared := e.descriptors[event.Descriptor]
	present := make(map[string]struct{}, len(event.Data))
	for name := range event.Data {
		present[name] = struct{}{}
	}
	for _, key := range e.order {
		builder := e.builders[key]
		if feeds(builder, declared, present) && builder.Event(event) {
			e.publish(builder)
		}
	}
}

func (e *Engine) handleEventPage(page *document.EventPage) {
	if !e.routable(page.Descriptor) {
		return
	}
	declared := e.descriptors[page.Descriptor]
	present := make(map[string]struct{}, len(page.Data))
	for name := range page.Data {
		present[name] = struct{}{}
	}
	for _, key := range e.order {
		builder := e.builders[key]
		if feeds(builder, declared, present) && builder.EventPage(page) {
			e.publish(builder)
		}
	}
}

// feeds reports whether an event may update builder: its descriptor
// must declare every governing field and the event must carry them.
// Extra data under a descriptor that does not declare a field never
// reaches that field's figure.
func feeds(builder plot.Builder, declared, present map[string]struct{}) bool {
	fields := builder.Fields()
	return fields.SubsetOf(declared) && fields.SubsetOf(present)
}

func (e *Engine) handleRunStop(stop *document.RunStop) {
	if e.runStart != nil && stop.RunStart != "" && stop.RunStart != e.runStart.UID {
		e.logger.Warn("stop for a run that is not current", "run", stop.RunStart, "current", e.runStart.UID)
	}
	e.state = StateIdle
	e.logger.Info("run stopped",
		"run", stop.RunStart,
		"exit_status", stop.ExitStatus,
		"reason", stop.Reason,
		"figures", len(e.builders),
	)
}

func (e *Engine) publish(builder plot.Builder) {
	fields := builder.Fields()
	e.updates.Publish(updates.Update{
		Key:    string(fields.Key()),
		Title:  fields.String(),
		Kind:   string(builder.Structure().Kind),
		Figure: builder.Figure().Snapshot(),
	})
}

// Status returns a summary of the engine's current state.
func (e *Engine) Status() Status {
	e.mu.Lock()
	defer e.mu.Unlock()
	status := Status{
		State:              e.state,
		Figures:            len(e.builders),
		Descriptors:        len(e.descriptors),
		IgnoredDescriptors: len(e.ignored),
	}
	if e.runStart != nil {
		status.RunUID = e.runStart.UID
		status.ScanLabel = e.runStart.ScanLabel()
	}
	return status
}
