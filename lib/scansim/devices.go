// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package scansim

import "math"

// Simulated MCA response. The peak sits in the centre channel with a
// width of peakWidth channels; its height falls off as each motor
// moves away from its optimum.
const (
	peakHeight = 50_000_000
	peakWidth  = 12

	motor1Optimum = 50.0
	motor1Width   = 10.0
	motor2Optimum = 99.0
	motor2Width   = 800.0
)

// Spectrum returns the MCA reading at the given motor positions.
func Spectrum(motor1, motor2 float64, channels int) []int64 {
	scale := gaussian(motor1, motor1Optimum, motor1Width) * gaussian(motor2, motor2Optimum, motor2Width)
	center := float64(channels / 2)
	spectrum := make([]int64, channels)
	for channel := range spectrum {
		spectrum[channel] = int64(peakHeight * scale * gaussian(float64(channel), center, peakWidth))
	}
	return spectrum
}

// Mean returns the integer mean of a spectrum, as the MCA's mean
// signal reports it.
func Mean(spectrum []int64) int64 {
	if len(spectrum) == 0 {
		return 0
	}
	var sum float64
	for _, count := range spectrum {
		sum += float64(count)
	}
	return int64(sum / float64(len(spectrum)))
}

// gaussian returns the unit-height Gaussian at x.
func gaussian(x, center, width float64) float64 {
	offset := (x - center) / width
	return math.Exp(-0.5 * offset * offset)
}
