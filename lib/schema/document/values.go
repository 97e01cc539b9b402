// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package document

import "math"

// Float converts a scalar event value to float64. Accepts every
// numeric type the codecs and in-process producers generate. Returns
// false for non-numeric values (strings, arrays, nil, booleans).
func Float(value any) (float64, bool) {
	switch number := value.(type) {
	case float64:
		return number, true
	case float32:
		return float64(number), true
	case int:
		return float64(number), true
	case int8:
		return float64(number), true
	case int16:
		return float64(number), true
	case int32:
		return float64(number), true
	case int64:
		return float64(number), true
	case uint:
		return float64(number), true
	case uint8:
		return float64(number), true
	case uint16:
		return float64(number), true
	case uint32:
		return float64(number), true
	case uint64:
		return float64(number), true
	}
	return math.NaN(), false
}

// Floats flattens an array event value into a row-major []float64.
// Nested arrays (images, 2-D spectra) are flattened depth-first.
// Returns false if any element is not numeric or the value is not an
// array.
func Floats(value any) ([]float64, bool) {
	switch array := value.(type) {
	case []float64:
		return append([]float64(nil), array...), true
	case []float32:
		result := make([]float64, len(array))
		for i, element := range array {
			result[i] = float64(element)
		}
		return result, true
	case []int:
		result := make([]float64, len(array))
		for i, element := range array {
			result[i] = float64(element)
		}
		return result, true
	case []int64:
		result := make([]float64, len(array))
		for i, element := range array {
			result[i] = float64(element)
		}
		return result, true
	case []any:
		result := make([]float64, 0, len(array))
		for _, element := range array {
			if number, ok := Float(element); ok {
				result = append(result, number)
				continue
			}
			nested, ok := Floats(element)
			if !ok {
				return nil, false
			}
			result = append(result, nested...)
		}
		return result, true
	case [][]float64:
		var result []float64
		for _, row := range array {
			result = append(result, row...)
		}
		return result, true
	}
	return nil, false
}
