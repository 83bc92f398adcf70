// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package orientation derives device orientation from a gravity vector and a
// geomagnetic vector, both expressed in the device frame.
package orientation

import (
	"math"

	"github.com/golang/geo/r3"
)

// StandardGravity in m/s².
const StandardGravity = 9.80665

// freeFallGravitySquared is the squared acceleration below which the device is
// considered to be in free fall and gravity cannot be trusted.
const freeFallGravitySquared = 0.01 * StandardGravity * StandardGravity

// minFieldNorm is the smallest |E x A| accepted; below it the magnetic field is
// (nearly) parallel to gravity and east cannot be resolved.
const minFieldNorm = 0.1

// Matrix is a row-major 3x3 rotation matrix mapping the device frame to the
// world frame (rows: east, magnetic north, up).
type Matrix [9]float64

// Angles are the Euler angles extracted from a Matrix, in radians.
type Angles struct {
	Azimuth float64 // rotation about -Z, 0 at magnetic north, positive towards east
	Pitch   float64 // rotation about X
	Roll    float64 // rotation about Y
}

// RotationMatrix computes the rotation matrix from the gravity (accelerometer)
// and geomagnetic (magnetometer) vectors. Units do not matter for geomagnetic;
// gravity is expected in m/s². ok is false when the device is in free fall or
// the magnetic field is parallel to gravity; the returned matrix is then zero.
func RotationMatrix(gravity, geomagnetic r3.Vector) (m Matrix, ok bool) {
	if gravity.Norm2() < freeFallGravitySquared {
		return Matrix{}, false
	}

	h := geomagnetic.Cross(gravity)
	normH := h.Norm()
	if normH < minFieldNorm {
		return Matrix{}, false
	}
	h = h.Mul(1 / normH)
	a := gravity.Normalize()
	mn := a.Cross(h)

	return Matrix{
		h.X, h.Y, h.Z,
		mn.X, mn.Y, mn.Z,
		a.X, a.Y, a.Z,
	}, true
}

// Inclination returns the magnetic dip angle in radians: the angle between the
// geomagnetic field and the horizontal plane, positive when the field points
// down into the ground. It needs a matrix produced by RotationMatrix.
func Inclination(m Matrix, geomagnetic r3.Vector) float64 {
	normE := geomagnetic.Norm()
	if normE == 0 {
		return 0
	}
	north := r3.Vector{X: m[3], Y: m[4], Z: m[5]}
	up := r3.Vector{X: m[6], Y: m[7], Z: m[8]}
	c := geomagnetic.Dot(north) / normE
	s := -geomagnetic.Dot(up) / normE
	return math.Atan2(s, c)
}

// Angles extracts azimuth, pitch and roll. A zero matrix yields zero angles.
func (m Matrix) Angles() Angles {
	return Angles{
		Azimuth: math.Atan2(m[1], m[4]),
		Pitch:   math.Asin(-m[7]),
		Roll:    math.Atan2(-m[6], m[8]),
	}
}

// Pose is the orientation in degrees, as shown to operators.
type Pose struct {
	Roll  float64 `json:"roll"`
	Pitch float64 `json:"pitch"`
	Yaw   float64 `json:"yaw"`
}

// Pose converts the angles to degrees. Yaw is the azimuth, not normalized.
func (a Angles) Pose() Pose {
	return Pose{
		Roll:  a.Roll * 180.0 / math.Pi,
		Pitch: a.Pitch * 180.0 / math.Pi,
		Yaw:   a.Azimuth * 180.0 / math.Pi,
	}
}
