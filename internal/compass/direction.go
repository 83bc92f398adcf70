// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package compass turns an azimuth into a heading: an angle in degrees
// clockwise from magnetic north plus one of eight compass-point labels.
package compass

// Direction is one of the eight compass points.
type Direction string

// The eight compass points. The zero value "" means the angle matched no band,
// which only happens for NaN.
const (
	N  Direction = "N"
	NE Direction = "NE"
	E  Direction = "E"
	SE Direction = "SE"
	S  Direction = "S"
	SW Direction = "SW"
	W  Direction = "W"
	NW Direction = "NW"
)

// Directions lists every compass point clockwise from north.
var Directions = []Direction{N, NE, E, SE, S, SW, W, NW}

type band struct {
	dir   Direction
	match func(deg float64) bool
}

// bands are evaluated in this order and every match overwrites the previous
// one, so the last matching band decides the label.
var bands = []band{
	{N, func(a float64) bool { return a >= 350 || a <= 10 }},
	{NW, func(a float64) bool { return a < 350 && a > 280 }},
	{W, func(a float64) bool { return a <= 280 && a > 260 }},
	{SW, func(a float64) bool { return a <= 260 && a > 190 }},
	{S, func(a float64) bool { return a <= 190 && a > 170 }},
	{SE, func(a float64) bool { return a <= 170 && a > 100 }},
	{E, func(a float64) bool { return a <= 100 && a > 80 }},
	{NE, func(a float64) bool { return a <= 80 && a > 10 }},
}

// Classify maps an angle in degrees, expected in [0, 360), to a compass point.
func Classify(deg float64) Direction {
	var dir Direction
	for _, b := range bands {
		if b.match(deg) {
			dir = b.dir
		}
	}
	return dir
}

// Valid reports whether d is one of the eight compass points.
func (d Direction) Valid() bool {
	for _, v := range Directions {
		if d == v {
			return true
		}
	}
	return false
}
