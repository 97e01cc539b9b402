// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package structure

import (
	"errors"
	"fmt"
)

// Declaration is the wire form of a structure, as producers write it
// into RunStart hints and operators write it into structure files.
//
// Kind may be omitted when a kind-specific key makes it unambiguous:
// intensity_data_key implies a sample map, view an array, plot_against
// a scalar. Name is shorthand for a single-element Names.
type Declaration struct {
	Kind  string   `json:"kind,omitempty"`
	Name  string   `json:"name,omitempty"`
	Names []string `json:"names,omitempty"`

	PlotAgainst string `json:"plot_against,omitempty"`

	View string `json:"view,omitempty"`

	IntensityDataKey string `json:"intensity_data_key,omitempty"`
	ColorScale       string `json:"color_scale,omitempty"`
}

func (d Declaration) names() []string {
	if len(d.Names) == 0 && d.Name != "" {
		return []string{d.Name}
	}
	return d.Names
}

func (d Declaration) kind() (Kind, error) {
	if d.Kind != "" {
		return parseKind(d.Kind)
	}
	switch {
	case d.IntensityDataKey != "":
		return KindSampleMap, nil
	case d.View != "":
		return KindArray, nil
	case d.PlotAgainst != "":
		return KindScalar, nil
	}
	return "", errors.New("kind is not set and cannot be inferred (set kind, plot_against, view, or intensity_data_key)")
}

// Structure validates the declaration and returns the structure it
// describes. Scalar and array structures govern exactly one field; a
// sample map governs at least three, one of which is the intensity
// field. Unset parameters take their defaults: SEQ_NUM, SLICE,
// Viridis.
func (d Declaration) Structure() (Structure, error) {
	kind, err := d.kind()
	if err != nil {
		return Structure{}, err
	}

	names := NewFieldSet(d.names()...)
	if names.Len() == 0 {
		return Structure{}, fmt.Errorf("%s structure has no names", kind)
	}

	structure := Structure{Kind: kind, Names: names}
	switch kind {
	case KindScalar:
		if names.Len() != 1 {
			return Structure{}, fmt.Errorf("scalar structure must name exactly one field, got %d (%s)", names.Len(), names)
		}
		switch PlotAgainst(d.PlotAgainst) {
		case "", PlotAgainstSeqNum:
			structure.PlotAgainst = PlotAgainstSeqNum
		case PlotAgainstTime:
			structure.PlotAgainst = PlotAgainstTime
		default:
			return Structure{}, fmt.Errorf("scalar structure %s: unknown plot_against %q (want TIME or SEQ_NUM)", names, d.PlotAgainst)
		}

	case KindArray:
		if names.Len() != 1 {
			return Structure{}, fmt.Errorf("array structure must name exactly one field, got %d (%s)", names.Len(), names)
		}
		switch View(d.View) {
		case "", ViewSlice:
			structure.View = ViewSlice
		case ViewSurface:
			structure.View = ViewSurface
		default:
			return Structure{}, fmt.Errorf("array structure %s: unknown view %q (want SLICE or SURFACE)", names, d.View)
		}

	case KindSampleMap:
		if names.Len() < 3 {
			return Structure{}, fmt.Errorf("sample map structure needs at least three names (x, y, intensity), got %d (%s)", names.Len(), names)
		}
		if d.IntensityDataKey == "" {
			return Structure{}, fmt.Errorf("sample map structure %s: intensity_data_key is required", names)
		}
		if !names.Contains(d.IntensityDataKey) {
			return Structure{}, fmt.Errorf("sample map structure %s: intensity_data_key %q is not one of its names", names, d.IntensityDataKey)
		}
		structure.IntensityField = d.IntensityDataKey
		structure.ColorScale = Viridis
		if d.ColorScale != "" {
			scale, err := parseColorScale(d.ColorScale)
			if err != nil {
				return Structure{}, fmt.Errorf("sample map structure %s: %w", names, err)
			}
			structure.ColorScale = scale
		}
	}
	return structure, nil
}

// DeclarationOf returns the wire form of a structure. Producers use it
// to populate RunStart hints.
func DeclarationOf(structure Structure) Declaration {
	declaration := Declaration{
		Kind:  string(structure.Kind),
		Names: structure.Names.Names(),
	}
	switch structure.Kind {
	case KindScalar:
		declaration.PlotAgainst = string(structure.PlotAgainst)
	case KindArray:
		declaration.View = string(structure.View)
	case KindSampleMap:
		declaration.IntensityDataKey = structure.IntensityField
		declaration.ColorScale = string(structure.ColorScale)
	}
	return declaration
}
