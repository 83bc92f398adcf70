// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package sensors

import (
	"context"
	"math"
	"time"

	"github.com/golang/geo/r3"

	"github.com/relabs-tech/inertial_compass/internal/imu"
	"github.com/relabs-tech/inertial_compass/internal/orientation"
)

// Mock geomagnetic field, roughly central Europe: horizontal and vertical
// components in µT.
const (
	mockFieldHorizontal = 22.0
	mockFieldVertical   = -42.0
)

// MockSource simulates a device lying flat and turning clockwise at a fixed
// rate. Every tick produces an accelerometer event followed by a
// magnetometer event.
type MockSource struct {
	RateDegPerSec float64
	Interval      time.Duration

	start time.Time
	now   func() time.Time
}

// NewMockSource creates a mock source that starts facing north.
func NewMockSource(rateDegPerSec float64, interval time.Duration) *MockSource {
	return &MockSource{
		RateDegPerSec: rateDegPerSec,
		Interval:      interval,
		start:         time.Now(),
		now:           time.Now,
	}
}

// HeadingAt returns the simulated heading in degrees after elapsed.
func (m *MockSource) HeadingAt(elapsed time.Duration) float64 {
	return math.Mod(elapsed.Seconds()*m.RateDegPerSec, 360)
}

// Events returns the accelerometer and magnetometer samples for a device
// facing headingDeg degrees clockwise from magnetic north.
func Events(headingDeg float64, ts time.Time) (accel, mag imu.Event) {
	rad := headingDeg * math.Pi / 180
	accel = imu.Event{
		Kind:      imu.Accelerometer,
		Timestamp: ts,
		Values:    r3.Vector{Z: orientation.StandardGravity},
	}
	mag = imu.Event{
		Kind:      imu.Magnetometer,
		Timestamp: ts,
		Values: r3.Vector{
			X: -mockFieldHorizontal * math.Sin(rad),
			Y: mockFieldHorizontal * math.Cos(rad),
			Z: mockFieldVertical,
		},
	}
	return accel, mag
}

// Run emits events every Interval until ctx is cancelled.
func (m *MockSource) Run(ctx context.Context, l imu.Listener) error {
	ticker := time.NewTicker(m.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			t := m.now()
			a, g := Events(m.HeadingAt(t.Sub(m.start)), t)
			l.OnSensorChanged(a)
			l.OnSensorChanged(g)
		}
	}
}
