// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package scansim

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/bureau-foundation/liveplot/lib/clock"
	"github.com/bureau-foundation/liveplot/lib/schema/document"
	"github.com/bureau-foundation/liveplot/lib/structure"
)

// Handler receives each generated document. dispatch.Engine's
// OnDocument and docstream.Publisher's Publish both satisfy it.
type Handler func(kind document.Kind, doc any) error

// DefaultChannels is the MCA channel count when Config.Channels is
// zero.
const DefaultChannels = 1024

// Config configures a Simulator.
type Config struct {
	// Clock supplies timestamps and paces events. Defaults to the
	// real clock.
	Clock clock.Clock

	// Interval is the time between readings. Zero emits a whole scan
	// without waiting.
	Interval time.Duration

	// PageSize, when above 1, batches readings into event pages of
	// up to that many rows.
	PageSize int

	// Channels is the MCA channel count.
	Channels int
}

// Simulator generates scans. Scan ids increase across every plan run
// by the same simulator.
type Simulator struct {
	clock    clock.Clock
	interval time.Duration
	pageSize int
	channels int

	mu     sync.Mutex
	scanID int64
}

// New creates a Simulator.
func New(config Config) *Simulator {
	s := &Simulator{
		clock:    config.Clock,
		interval: config.Interval,
		pageSize: config.PageSize,
		channels: config.Channels,
	}
	if s.clock == nil {
		s.clock = clock.Real()
	}
	if s.channels <= 0 {
		s.channels = DefaultChannels
	}
	return s
}

// Count reads the detector and the MCA points times with the motors
// parked. The detector traces a Gaussian over the run. Structures are
// left to the viewer's defaults.
func (s *Simulator) Count(ctx context.Context, emit Handler, points int) error {
	if points < 1 {
		return fmt.Errorf("count needs at least one point, got %d", points)
	}
	run, err := s.open(emit, "count", nil)
	if err != nil {
		return err
	}

	if err := run.baseline(); err != nil {
		return err
	}
	primary, err := run.describe("primary", map[string]document.DataKey{
		"det":      {DType: "number", Source: "SIM:det", Units: "counts"},
		"mca":      {DType: "array", Shape: []int{s.channels}, Source: "SIM:mca:value"},
		"mca_mean": {DType: "integer", Source: "SIM:mca:mean"},
	}, map[string][]string{
		"det": {"det"},
		"mca": {"mca", "mca_mean"},
	})
	if err != nil {
		return err
	}

	center := float64(points-1) / 2
	width := math.Max(float64(points)/6, 1)
	for i := range points {
		height := gaussian(float64(i), center, width)
		spectrum := Spectrum(motor1Optimum, motor2Optimum, s.channels)
		for channel := range spectrum {
			spectrum[channel] = int64(float64(spectrum[channel]) * height)
		}
		reading := map[string]any{
			"det":      1000 * height,
			"mca":      spectrum,
			"mca_mean": Mean(spectrum),
		}
		if err := run.read(ctx, primary, reading); err != nil {
			return run.abort(ctx, err)
		}
	}
	return run.close()
}

// Grid moves motor1 over xs and, at each x, motor2 over ys, reading
// the MCA at every position. The run declares a sample map of the MCA
// mean over both motors and a time plot of motor1.
func (s *Simulator) Grid(ctx context.Context, emit Handler, xs, ys []float64) error {
	if len(xs) == 0 || len(ys) == 0 {
		return errors.New("grid needs at least one position per motor")
	}
	hints := structure.Hints(
		structure.SampleMap([]string{"motor1", "motor2", "mca_mean"}, "mca_mean", structure.Viridis),
		structure.Scalar("motor1", structure.PlotAgainstTime),
	)
	run, err := s.open(emit, "grid_scan", hints)
	if err != nil {
		return err
	}

	primary, err := run.describe("primary", map[string]document.DataKey{
		"motor1":   {DType: "number", Source: "SIM:motor1", Units: "mm"},
		"motor2":   {DType: "number", Source: "SIM:motor2", Units: "mm"},
		"mca":      {DType: "array", Shape: []int{s.channels}, Source: "SIM:mca:value"},
		"mca_mean": {DType: "integer", Source: "SIM:mca:mean"},
	}, map[string][]string{
		"motor1": {"motor1"},
		"motor2": {"motor2"},
		"mca":    {"mca", "mca_mean"},
	})
	if err != nil {
		return err
	}

	for _, x := range xs {
		for _, y := range ys {
			spectrum := Spectrum(x, y, s.channels)
			reading := map[string]any{
				"motor1":   x,
				"motor2":   y,
				"mca":      spectrum,
				"mca_mean": Mean(spectrum),
			}
			if err := run.read(ctx, primary, reading); err != nil {
				return run.abort(ctx, err)
			}
		}
	}
	return run.close()
}

func (s *Simulator) nextScanID() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scanID++
	return s.scanID
}

func (s *Simulator) now() float64 {
	return float64(s.clock.Now().UnixNano()) / 1e9
}

// run tracks one open run.
type run struct {
	sim  *Simulator
	emit Handler
	uid  string

	// sequence and counts are per descriptor.
	sequence map[string]int64
	counts   map[string]int
	names    map[string]string

	// page buffers readings of pageDescriptor until it is full.
	page           []document.Event
	pageDescriptor string
}

func (s *Simulator) open(emit Handler, plan string, hints map[string]any) (*run, error) {
	scanID := s.nextScanID()
	r := &run{
		sim:      s,
		emit:     emit,
		uid:      uuid.NewString(),
		sequence: make(map[string]int64),
		counts:   make(map[string]int),
		names:    make(map[string]string),
	}
	start := &document.RunStart{
		UID:      r.uid,
		Time:     s.now(),
		ScanID:   &scanID,
		PlanName: plan,
		Hints:    hints,
	}
	if err := emit(document.KindStart, start); err != nil {
		return nil, fmt.Errorf("emitting run start: %w", err)
	}
	return r, nil
}

// describe emits a descriptor hinting every field of each device
// except the MCA mean, which is plotted only when a structure asks
// for it.
func (r *run) describe(name string, dataKeys map[string]document.DataKey, objectKeys map[string][]string) (string, error) {
	hints := make(map[string]document.ObjectHint, len(objectKeys))
	for object, fields := range objectKeys {
		var hinted []string
		for _, field := range fields {
			if field != "mca_mean" {
				hinted = append(hinted, field)
			}
		}
		hints[object] = document.ObjectHint{Fields: hinted}
	}
	descriptor := &document.Descriptor{
		UID:        uuid.NewString(),
		RunStart:   r.uid,
		Name:       name,
		Time:       r.sim.now(),
		DataKeys:   dataKeys,
		ObjectKeys: objectKeys,
		Hints:      hints,
	}
	if err := r.emit(document.KindDescriptor, descriptor); err != nil {
		return "", fmt.Errorf("emitting %s descriptor: %w", name, err)
	}
	r.names[descriptor.UID] = name
	return descriptor.UID, nil
}

// baseline emits a baseline stream with one reading of the motor
// positions.
func (r *run) baseline() error {
	descriptor, err := r.describe("baseline", map[string]document.DataKey{
		"motor1": {DType: "number", Source: "SIM:motor1", Units: "mm"},
		"motor2": {DType: "number", Source: "SIM:motor2", Units: "mm"},
	}, map[string][]string{
		"motor1": {"motor1"},
		"motor2": {"motor2"},
	})
	if err != nil {
		return err
	}
	return r.emitEvent(descriptor, map[string]any{"motor1": motor1Optimum, "motor2": motor2Optimum})
}

// read records one reading, waiting the simulator's interval first.
func (r *run) read(ctx context.Context, descriptor string, data map[string]any) error {
	if r.sim.interval > 0 {
		select {
		case <-r.sim.clock.After(r.sim.interval):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	if r.sim.pageSize <= 1 {
		return r.emitEvent(descriptor, data)
	}
	if r.pageDescriptor != descriptor {
		if err := r.flush(); err != nil {
			return err
		}
		r.pageDescriptor = descriptor
	}
	r.page = append(r.page, r.event(descriptor, data))
	if len(r.page) >= r.sim.pageSize {
		return r.flush()
	}
	return nil
}

func (r *run) event(descriptor string, data map[string]any) document.Event {
	r.sequence[descriptor]++
	r.counts[r.names[descriptor]]++
	now := r.sim.now()
	timestamps := make(map[string]float64, len(data))
	for field := range data {
		timestamps[field] = now
	}
	return document.Event{
		UID:        uuid.NewString(),
		Descriptor: descriptor,
		SeqNum:     r.sequence[descriptor],
		Time:       now,
		Data:       data,
		Timestamps: timestamps,
	}
}

func (r *run) emitEvent(descriptor string, data map[string]any) error {
	event := r.event(descriptor, data)
	if err := r.emit(document.KindEvent, &event); err != nil {
		return fmt.Errorf("emitting event %d: %w", event.SeqNum, err)
	}
	return nil
}

// flush emits buffered readings as one event page.
func (r *run) flush() error {
	if len(r.page) == 0 {
		return nil
	}
	page := &document.EventPage{
		Descriptor: r.pageDescriptor,
		Data:       make(map[string][]any),
		Timestamps: make(map[string][]float64),
	}
	for _, event := range r.page {
		page.UID = append(page.UID, event.UID)
		page.SeqNum = append(page.SeqNum, event.SeqNum)
		page.Time = append(page.Time, event.Time)
		for field, value := range event.Data {
			page.Data[field] = append(page.Data[field], value)
			page.Timestamps[field] = append(page.Timestamps[field], event.Timestamps[field])
		}
	}
	r.page = r.page[:0]
	if err := r.emit(document.KindEventPage, page); err != nil {
		return fmt.Errorf("emitting event page: %w", err)
	}
	return nil
}

func (r *run) close() error {
	if err := r.flush(); err != nil {
		return err
	}
	return r.stop("success", "")
}

// abort closes the run after a failed reading. Cancellation stops the
// run with an abort status and returns the context error.
func (r *run) abort(ctx context.Context, cause error) error {
	if ctx.Err() == nil {
		return cause
	}
	r.page = r.page[:0]
	if err := r.stop("abort", "cancelled"); err != nil {
		return errors.Join(cause, err)
	}
	return cause
}

func (r *run) stop(status, reason string) error {
	stop := &document.RunStop{
		UID:        uuid.NewString(),
		RunStart:   r.uid,
		Time:       r.sim.now(),
		ExitStatus: status,
		Reason:     reason,
		NumEvents:  r.counts,
	}
	if err := r.emit(document.KindStop, stop); err != nil {
		return fmt.Errorf("emitting run stop: %w", err)
	}
	return nil
}
