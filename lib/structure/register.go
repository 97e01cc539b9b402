// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package structure

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"

	"github.com/tidwall/jsonc"

	"github.com/bureau-foundation/liveplot/lib/codec"
	"github.com/bureau-foundation/liveplot/lib/schema/document"
)

// Hint keys in RunStart.Hints.
const (
	// LivePlotsHint holds a mapping with STRUCTURES (a list of
	// declarations) and SERIALISED_PLOT (name → pre-rendered figure).
	LivePlotsHint = "BLUESKY_LIVE_PLOTS"

	// LegacyStructuresHint holds a mapping from field name to a
	// declaration. A declaration without names governs the field it
	// is keyed under.
	LegacyStructuresHint = "WEB_PLOT_STRUCTURES"

	structuresKey  = "STRUCTURES"
	staticPlotsKey = "SERIALISED_PLOT"
)

// Register reads the structure declarations in a RunStart's hints and
// returns them keyed by field set. Missing or empty metadata yields an
// empty mapping and no error.
//
// Declarations that fail validation are reported in the returned error
// (one entry per declaration, joined), and every valid declaration is
// still returned. When two declarations govern the same field set the
// later one wins; STRUCTURES entries are applied after legacy ones.
func Register(runStart *document.RunStart) (map[Key]Structure, error) {
	structures := make(map[Key]Structure)
	if runStart == nil || len(runStart.Hints) == 0 {
		return structures, nil
	}

	var errs []error

	if legacy, ok := runStart.Hints[LegacyStructuresHint]; ok && legacy != nil {
		var declarations map[string]Declaration
		if err := convert(legacy, &declarations); err != nil {
			errs = append(errs, fmt.Errorf("hints.%s: %w", LegacyStructuresHint, err))
		}
		fields := make([]string, 0, len(declarations))
		for field := range declarations {
			fields = append(fields, field)
		}
		sort.Strings(fields)
		for _, field := range fields {
			declaration := declarations[field]
			if len(declaration.names()) == 0 {
				declaration.Names = []string{field}
			}
			structure, err := declaration.Structure()
			if err != nil {
				errs = append(errs, fmt.Errorf("hints.%s[%q]: %w", LegacyStructuresHint, field, err))
				continue
			}
			structures[structure.Key()] = structure
		}
	}

	if section := livePlotsSection(runStart, &errs); section != nil {
		if raw, ok := section[structuresKey]; ok && raw != nil {
			var declarations []Declaration
			if err := convert(raw, &declarations); err != nil {
				errs = append(errs, fmt.Errorf("hints.%s.%s: %w", LivePlotsHint, structuresKey, err))
			}
			for index, declaration := range declarations {
				structure, err := declaration.Structure()
				if err != nil {
					errs = append(errs, fmt.Errorf("hints.%s.%s[%d]: %w", LivePlotsHint, structuresKey, index, err))
					continue
				}
				structures[structure.Key()] = structure
			}
		}
	}

	return structures, errors.Join(errs...)
}

// Hints returns RunStart hints declaring structures, in the form
// Register reads back. Producers merge the result into their run
// metadata.
func Hints(structures ...Structure) map[string]any {
	declarations := make([]Declaration, len(structures))
	for i, structure := range structures {
		declarations[i] = DeclarationOf(structure)
	}
	return map[string]any{
		LivePlotsHint: map[string]any{structuresKey: declarations},
	}
}

// StaticFigures reads pre-rendered figures from a RunStart's hints:
// hints.BLUESKY_LIVE_PLOTS.SERIALISED_PLOT, a mapping from figure name
// to either a JSON string or an already-decoded object. Each figure is
// returned as JSON for the dashboard to display unchanged.
func StaticFigures(runStart *document.RunStart) (map[string]json.RawMessage, error) {
	figures := make(map[string]json.RawMessage)
	if runStart == nil || len(runStart.Hints) == 0 {
		return figures, nil
	}

	var errs []error
	section := livePlotsSection(runStart, &errs)
	raw, ok := section[staticPlotsKey]
	if !ok || raw == nil {
		return figures, errors.Join(errs...)
	}
	entries, ok := raw.(map[string]any)
	if !ok {
		errs = append(errs, fmt.Errorf("hints.%s.%s: expected a mapping, got %T", LivePlotsHint, staticPlotsKey, raw))
		return figures, errors.Join(errs...)
	}

	for name, value := range entries {
		switch serialized := value.(type) {
		case string:
			if !json.Valid([]byte(serialized)) {
				errs = append(errs, fmt.Errorf("hints.%s.%s[%q]: not valid JSON", LivePlotsHint, staticPlotsKey, name))
				continue
			}
			figures[name] = json.RawMessage(serialized)
		default:
			encoded, err := json.Marshal(serialized)
			if err != nil {
				errs = append(errs, fmt.Errorf("hints.%s.%s[%q]: %w", LivePlotsHint, staticPlotsKey, name, err))
				continue
			}
			figures[name] = encoded
		}
	}
	return figures, errors.Join(errs...)
}

func livePlotsSection(runStart *document.RunStart, errs *[]error) map[string]any {
	raw, ok := runStart.Hints[LivePlotsHint]
	if !ok || raw == nil {
		return nil
	}
	section, ok := raw.(map[string]any)
	if !ok {
		*errs = append(*errs, fmt.Errorf("hints.%s: expected a mapping, got %T", LivePlotsHint, raw))
		return nil
	}
	return section
}

// convert re-decodes a generic hint value (decoded maps and slices, or
// typed values from an in-process producer) into target.
func convert(value any, target any) error {
	data, err := codec.Marshal(value)
	if err != nil {
		return err
	}
	return codec.Unmarshal(data, target)
}

// Parse reads operator-supplied declarations: a JSON array of
// declarations, with // and /* */ comments and trailing commas
// allowed. Unlike [Register], any invalid declaration fails the whole
// file, since this is setup-time configuration.
func Parse(data []byte) (map[Key]Structure, error) {
	var declarations []Declaration
	if err := json.Unmarshal(jsonc.ToJSON(data), &declarations); err != nil {
		return nil, fmt.Errorf("parsing structures: %w", err)
	}

	structures := make(map[Key]Structure, len(declarations))
	for index, declaration := range declarations {
		structure, err := declaration.Structure()
		if err != nil {
			return nil, fmt.Errorf("structures[%d]: %w", index, err)
		}
		if _, duplicate := structures[structure.Key()]; duplicate {
			return nil, fmt.Errorf("structures[%d]: field set {%s} is declared more than once", index, structure.Names)
		}
		structures[structure.Key()] = structure
	}
	return structures, nil
}

// LoadFile reads and parses a JSONC structures file.
func LoadFile(path string) (map[Key]Structure, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	structures, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return structures, nil
}
