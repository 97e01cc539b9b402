// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package structure

import (
	"fmt"
	"sort"
	"strings"

	"github.com/bureau-foundation/liveplot/lib/schema/document"
)

// Kind selects the figure builder for a structure.
type Kind string

const (
	KindScalar    Kind = "scalar"
	KindArray     Kind = "array"
	KindSampleMap Kind = "sample_map"
)

// parseKind accepts the snake_case names used on the wire as well as
// the CamelCase class names older producers emit ("SampleMap").
func parseKind(name string) (Kind, error) {
	normalized := strings.ReplaceAll(strings.ToLower(name), "_", "")
	switch normalized {
	case "scalar":
		return KindScalar, nil
	case "array":
		return KindArray, nil
	case "samplemap":
		return KindSampleMap, nil
	}
	return "", fmt.Errorf("unknown structure kind %q", name)
}

// PlotAgainst is the x axis of a scalar figure.
type PlotAgainst string

const (
	PlotAgainstTime   PlotAgainst = "TIME"
	PlotAgainstSeqNum PlotAgainst = "SEQ_NUM"
)

// View selects how an array field is drawn.
type View string

const (
	// ViewSlice draws the latest array as a line, replaced each event.
	ViewSlice View = "SLICE"
	// ViewSurface stacks every event's array into a surface.
	ViewSurface View = "SURFACE"
)

// ColorScale names a plotly color scale for sample-map heatmaps.
type ColorScale string

const (
	Viridis   ColorScale = "Viridis"
	Cividis   ColorScale = "Cividis"
	Plasma    ColorScale = "Plasma"
	Inferno   ColorScale = "Inferno"
	Magma     ColorScale = "Magma"
	Jet       ColorScale = "Jet"
	Hot       ColorScale = "Hot"
	Cool      ColorScale = "Cool"
	Rainbow   ColorScale = "Rainbow"
	Portland  ColorScale = "Portland"
	Electric  ColorScale = "Electric"
	Earth     ColorScale = "Earth"
	Blackbody ColorScale = "Blackbody"
	YlGnBu    ColorScale = "YlGnBu"
	YlOrRd    ColorScale = "YlOrRd"
	Bluered   ColorScale = "Bluered"
	RdBu      ColorScale = "RdBu"
	Picnic    ColorScale = "Picnic"
	Greys     ColorScale = "Greys"
	Greens    ColorScale = "Greens"
	Blues     ColorScale = "Blues"
	Reds      ColorScale = "Reds"
	Purples   ColorScale = "Purples"
	Oranges   ColorScale = "Oranges"
)

var colorScales = []ColorScale{
	Viridis, Cividis, Plasma, Inferno, Magma, Jet, Hot, Cool, Rainbow,
	Portland, Electric, Earth, Blackbody, YlGnBu, YlOrRd, Bluered, RdBu,
	Picnic, Greys, Greens, Blues, Reds, Purples, Oranges,
}

// parseColorScale matches case-insensitively and returns the
// canonical spelling plotly expects.
func parseColorScale(name string) (ColorScale, error) {
	for _, scale := range colorScales {
		if strings.EqualFold(string(scale), name) {
			return scale, nil
		}
	}
	return "", fmt.Errorf("unknown color scale %q", name)
}

// Key identifies a field set in maps. Two field sets with the same
// names have the same key regardless of construction order.
type Key string

// keySeparator cannot appear in a data-key name produced by any sane
// producer, so joined names never collide.
const keySeparator = "\x00"

// FieldSet is an immutable, sorted, deduplicated set of field names.
// The zero value is the empty set.
type FieldSet struct {
	names []string
}

// NewFieldSet builds a field set from names in any order. Empty names
// are dropped.
func NewFieldSet(names ...string) FieldSet {
	sorted := make([]string, 0, len(names))
	for _, name := range names {
		if name != "" {
			sorted = append(sorted, name)
		}
	}
	sort.Strings(sorted)

	unique := sorted[:0]
	for i, name := range sorted {
		if i > 0 && name == sorted[i-1] {
			continue
		}
		unique = append(unique, name)
	}
	return FieldSet{names: unique}
}

// Names returns a copy of the names in sorted order.
func (f FieldSet) Names() []string {
	return append([]string(nil), f.names...)
}

// Len returns the number of names.
func (f FieldSet) Len() int { return len(f.names) }

// Key returns the map key for this set.
func (f FieldSet) Key() Key {
	return Key(strings.Join(f.names, keySeparator))
}

// String returns the names joined with ", " for titles and logs.
func (f FieldSet) String() string {
	return strings.Join(f.names, ", ")
}

// Equal reports whether both sets hold the same names.
func (f FieldSet) Equal(other FieldSet) bool {
	return f.Key() == other.Key()
}

// Contains reports whether name is in the set.
func (f FieldSet) Contains(name string) bool {
	index := sort.SearchStrings(f.names, name)
	return index < len(f.names) && f.names[index] == name
}

// SubsetOf reports whether every name in the set is in fields. The
// empty set is a subset of everything.
func (f FieldSet) SubsetOf(fields map[string]struct{}) bool {
	for _, name := range f.names {
		if _, ok := fields[name]; !ok {
			return false
		}
	}
	return true
}

// Structure is a validated plotting intent. Kind determines which of
// the kind-specific fields are meaningful; the others are zero.
type Structure struct {
	Kind  Kind
	Names FieldSet

	// Scalar.
	PlotAgainst PlotAgainst

	// Array.
	View View

	// SampleMap.
	IntensityField string
	ColorScale     ColorScale
}

// Key returns the key of the governed field set.
func (s Structure) Key() Key { return s.Names.Key() }

func (s Structure) String() string {
	return fmt.Sprintf("%s(%s)", s.Kind, s.Names)
}

// Scalar returns a scalar structure for one field.
func Scalar(name string, against PlotAgainst) Structure {
	return Structure{Kind: KindScalar, Names: NewFieldSet(name), PlotAgainst: against}
}

// Array returns an array structure for one field.
func Array(name string, view View) Structure {
	return Structure{Kind: KindArray, Names: NewFieldSet(name), View: view}
}

// SampleMap returns a sample-map structure over names, coloring by
// the intensity field.
func SampleMap(names []string, intensity string, scale ColorScale) Structure {
	return Structure{
		Kind:           KindSampleMap,
		Names:          NewFieldSet(names...),
		IntensityField: intensity,
		ColorScale:     scale,
	}
}

// Default synthesizes a structure for a field nothing declared, from
// its dtype: numbers plot against sequence number, arrays as a slice.
// Returns false for dtypes liveplot cannot plot (string, boolean,
// object, and anything unknown).
func Default(name string, dataKey document.DataKey) (Structure, bool) {
	switch dataKey.DType {
	case "number", "integer":
		return Scalar(name, PlotAgainstSeqNum), true
	case "array":
		return Array(name, ViewSlice), true
	}
	return Structure{}, false
}

// Ordered returns the structures in classification order: structures
// governing more fields first, ties broken by key. A multi-field
// structure therefore claims its fields before any single-field one.
func Ordered(structures map[Key]Structure) []Structure {
	ordered := make([]Structure, 0, len(structures))
	for _, structure := range structures {
		ordered = append(ordered, structure)
	}
	sort.Slice(ordered, func(i, j int) bool {
		if ordered[i].Names.Len() != ordered[j].Names.Len() {
			return ordered[i].Names.Len() > ordered[j].Names.Len()
		}
		return ordered[i].Key() < ordered[j].Key()
	})
	return ordered
}
