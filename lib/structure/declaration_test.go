// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package structure

import (
	"strings"
	"testing"
)

func TestDeclarationStructure(t *testing.T) {
	tests := []struct {
		name        string
		declaration Declaration
		want        Structure
	}{
		{
			name:        "scalar with explicit kind defaults to SEQ_NUM",
			declaration: Declaration{Kind: "scalar", Names: []string{"temp"}},
			want:        Scalar("temp", PlotAgainstSeqNum),
		},
		{
			name:        "scalar inferred from plot_against",
			declaration: Declaration{Name: "temp", PlotAgainst: "TIME"},
			want:        Scalar("temp", PlotAgainstTime),
		},
		{
			name:        "array inferred from view",
			declaration: Declaration{Names: []string{"mca"}, View: "SURFACE"},
			want:        Array("mca", ViewSurface),
		},
		{
			name:        "array with CamelCase kind defaults to SLICE",
			declaration: Declaration{Kind: "Array", Names: []string{"mca"}},
			want:        Array("mca", ViewSlice),
		},
		{
			name: "sample map inferred from intensity key",
			declaration: Declaration{
				Names:            []string{"motor1", "motor2", "mca_intensity"},
				IntensityDataKey: "mca_intensity",
			},
			want: SampleMap([]string{"motor1", "motor2", "mca_intensity"}, "mca_intensity", Viridis),
		},
		{
			name: "sample map color scale is case-insensitive",
			declaration: Declaration{
				Kind:             "SampleMap",
				Names:            []string{"x", "y", "i"},
				IntensityDataKey: "i",
				ColorScale:       "ylgnbu",
			},
			want: SampleMap([]string{"x", "y", "i"}, "i", YlGnBu),
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			got, err := test.declaration.Structure()
			if err != nil {
				t.Fatalf("Structure: %v", err)
			}
			if got.Kind != test.want.Kind || !got.Names.Equal(test.want.Names) ||
				got.PlotAgainst != test.want.PlotAgainst || got.View != test.want.View ||
				got.IntensityField != test.want.IntensityField || got.ColorScale != test.want.ColorScale {
				t.Errorf("Structure = %+v, want %+v", got, test.want)
			}
		})
	}
}

func TestDeclarationStructureRejectsMalformed(t *testing.T) {
	tests := []struct {
		name        string
		declaration Declaration
		wantError   string
	}{
		{"no kind and nothing to infer from", Declaration{Names: []string{"x"}}, "cannot be inferred"},
		{"unknown kind", Declaration{Kind: "histogram", Names: []string{"x"}}, "unknown structure kind"},
		{"no names", Declaration{Kind: "scalar"}, "has no names"},
		{"scalar over two fields", Declaration{Kind: "scalar", Names: []string{"x", "y"}}, "exactly one field"},
		{"array over two fields", Declaration{View: "SLICE", Names: []string{"x", "y"}}, "exactly one field"},
		{"bad plot_against", Declaration{Name: "x", PlotAgainst: "WALLCLOCK"}, "unknown plot_against"},
		{"bad view", Declaration{Name: "x", View: "VOLUME"}, "unknown view"},
		{"sample map too small", Declaration{Names: []string{"x", "i"}, IntensityDataKey: "i"}, "at least three"},
		{"sample map missing intensity", Declaration{Kind: "sample_map", Names: []string{"x", "y", "i"}}, "intensity_data_key is required"},
		{"sample map intensity not a name", Declaration{Names: []string{"x", "y", "z"}, IntensityDataKey: "i"}, "not one of its names"},
		{"sample map bad color scale", Declaration{Names: []string{"x", "y", "i"}, IntensityDataKey: "i", ColorScale: "Sepia"}, "unknown color scale"},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			_, err := test.declaration.Structure()
			if err == nil {
				t.Fatal("expected an error")
			}
			if !strings.Contains(err.Error(), test.wantError) {
				t.Errorf("error %q does not mention %q", err, test.wantError)
			}
		})
	}
}

func TestDeclarationOfRoundtrips(t *testing.T) {
	for _, structure := range []Structure{
		Scalar("temp", PlotAgainstTime),
		Array("mca", ViewSurface),
		SampleMap([]string{"x", "y", "i"}, "i", Hot),
	} {
		got, err := DeclarationOf(structure).Structure()
		if err != nil {
			t.Fatalf("%v: %v", structure, err)
		}
		if got.Kind != structure.Kind || !got.Names.Equal(structure.Names) ||
			got.PlotAgainst != structure.PlotAgainst || got.View != structure.View ||
			got.IntensityField != structure.IntensityField || got.ColorScale != structure.ColorScale {
			t.Errorf("roundtrip of %+v gave %+v", structure, got)
		}
	}
}
