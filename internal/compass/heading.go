// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package compass

import (
	"math"
	"strconv"
)

// Heading is the output of one recomputation.
type Heading struct {
	Angle     float64   `json:"angle"`     // degrees in [0, 360), 2 decimals
	Direction Direction `json:"direction"` // compass point of the unrounded angle
}

// Normalize folds degrees from (-360, +inf) into [0, 360).
func Normalize(deg float64) float64 {
	return math.Mod(deg+360.0, 360.0)
}

// Round2 rounds to two decimals, ties to even.
func Round2(v float64) float64 {
	return math.RoundToEven(v*100) / 100
}

// FromAzimuth builds a Heading from an azimuth in radians as returned by
// orientation.Matrix.Angles. The label is taken from the unrounded angle.
func FromAzimuth(rad float64) Heading {
	deg := Normalize(rad * 180.0 / math.Pi)
	angle := Round2(deg)
	if angle >= 360 {
		angle = 0
	}
	return Heading{
		Angle:     angle,
		Direction: Classify(deg),
	}
}

// String renders "<angle> <direction>", e.g. "45.0 NE".
func (h Heading) String() string {
	return FormatAngle(h.Angle) + " " + string(h.Direction)
}

// FormatAngle renders an angle with the shortest exact decimal form, always
// keeping at least one fractional digit: 45 -> "45.0", 12.34 -> "12.34".
func FormatAngle(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64) + formatFrac(v)
}

// Rotation is the angle in degrees a compass rose must be rotated by so that
// its north mark points to magnetic north.
func (h Heading) Rotation() float64 {
	if h.Angle == 0 {
		return 0
	}
	return -h.Angle
}

// formatFrac appends ".0" to whole numbers so angles always read as decimals.
func formatFrac(v float64) string {
	if v == math.Trunc(v) {
		return ".0"
	}
	return ""
}
