// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"slices"
	"testing"
)

func TestSpan(t *testing.T) {
	tests := []struct {
		low, high float64
		n         int
		want      []float64
	}{
		{0, 10, 3, []float64{0, 5, 10}},
		{30, 70, 5, []float64{30, 40, 50, 60, 70}},
		{4, 8, 1, []float64{4}},
	}
	for _, test := range tests {
		if got := span(test.low, test.high, test.n); !slices.Equal(got, test.want) {
			t.Errorf("span(%v, %v, %d) = %v, want %v", test.low, test.high, test.n, got, test.want)
		}
	}
}
