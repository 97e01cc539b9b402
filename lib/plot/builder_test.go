// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package plot

import (
	"errors"
	"strings"
	"testing"

	"github.com/bureau-foundation/liveplot/lib/schema/document"
	"github.com/bureau-foundation/liveplot/lib/structure"
)

func newRunStart(uid string, scanID int64) *document.RunStart {
	return &document.RunStart{UID: uid, ScanID: &scanID, Time: 1700000000}
}

func newDescriptor(uid string, dataKeys map[string]document.DataKey) *document.Descriptor {
	return &document.Descriptor{UID: uid, RunStart: "run", Name: "primary", DataKeys: dataKeys}
}

func number() document.DataKey { return document.DataKey{DType: "number"} }

func newEvent(descriptor string, seqNum int64, data map[string]any) *document.Event {
	return &document.Event{
		Descriptor: descriptor,
		SeqNum:     seqNum,
		Time:       1700000000 + float64(seqNum),
		Data:       data,
	}
}

func mustNew(t *testing.T, s structure.Structure) Builder {
	t.Helper()
	builder, err := New(s.Names, s, nil)
	if err != nil {
		t.Fatalf("New(%v): %v", s, err)
	}
	return builder
}

func TestNewRejectsMismatchedFields(t *testing.T) {
	_, err := New(structure.NewFieldSet("y"), structure.Scalar("x", structure.PlotAgainstSeqNum), nil)
	var configErr *ConfigError
	if !errors.As(err, &configErr) {
		t.Fatalf("New = %v, want *ConfigError", err)
	}
	if !configErr.Fields.Equal(structure.NewFieldSet("y")) {
		t.Errorf("ConfigError.Fields = %v", configErr.Fields)
	}
	if !strings.Contains(err.Error(), "structure governs {x}") {
		t.Errorf("error = %q", err)
	}
}

func TestNewRejectsInvalidStructures(t *testing.T) {
	tests := []struct {
		name      string
		structure structure.Structure
	}{
		{"unknown kind", structure.Structure{Kind: "histogram", Names: structure.NewFieldSet("x")}},
		{"scalar over two fields", structure.Structure{Kind: structure.KindScalar, Names: structure.NewFieldSet("x", "y"), PlotAgainst: structure.PlotAgainstTime}},
		{"scalar without plot_against", structure.Structure{Kind: structure.KindScalar, Names: structure.NewFieldSet("x")}},
		{"array without view", structure.Structure{Kind: structure.KindArray, Names: structure.NewFieldSet("x")}},
		{"sample map intensity not governed", structure.SampleMap([]string{"a", "b", "c"}, "d", structure.Viridis)},
		{"sample map with one position", structure.SampleMap([]string{"a", "b"}, "b", structure.Viridis)},
		{"empty field set", structure.Structure{Kind: structure.KindScalar, PlotAgainst: structure.PlotAgainstTime}},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			_, err := New(test.structure.Names, test.structure, nil)
			var configErr *ConfigError
			if !errors.As(err, &configErr) {
				t.Fatalf("New = %v, want *ConfigError", err)
			}
		})
	}
}

func TestTraceNameUsesScanLabel(t *testing.T) {
	builder := mustNew(t, structure.Scalar("x", structure.PlotAgainstSeqNum))
	builder.RunStart(&document.RunStart{UID: "abcd1234"})
	builder.Descriptor(newDescriptor("d1", map[string]document.DataKey{"x": number()}))
	if name := builder.Figure().Last().Name; name != "plan 1234" {
		t.Errorf("trace name = %q, want %q", name, "plan 1234")
	}
}
