// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package estimator turns accelerometer and magnetometer events into compass
// headings.
package estimator

import (
	"math"
	"time"

	"github.com/golang/geo/r3"
	"go.uber.org/zap"

	"github.com/relabs-tech/inertial_compass/internal/broadcast"
	"github.com/relabs-tech/inertial_compass/internal/compass"
	"github.com/relabs-tech/inertial_compass/internal/imu"
	"github.com/relabs-tech/inertial_compass/internal/metrics"
	"github.com/relabs-tech/inertial_compass/internal/orientation"
)

// Estimator keeps the latest accelerometer and magnetometer samples and
// recomputes the heading from both whenever either changes. It has no locks:
// OnSensorChanged must not be called concurrently.
type Estimator struct {
	pub     broadcast.Publisher
	log     *zap.SugaredLogger
	metrics *metrics.Collector
	now     func() time.Time

	accel    r3.Vector
	mag      r3.Vector
	rotation orientation.Matrix
}

// Option configures an Estimator.
type Option func(*Estimator)

// WithLogger sets the logger; the default discards everything.
func WithLogger(l *zap.SugaredLogger) Option {
	return func(e *Estimator) { e.log = l }
}

// WithMetrics records events and rejected recomputations in c.
func WithMetrics(c *metrics.Collector) Option {
	return func(e *Estimator) { e.metrics = c }
}

// WithClock overrides time.Now for reading timestamps.
func WithClock(now func() time.Time) Option {
	return func(e *Estimator) { e.now = now }
}

// New returns an Estimator publishing every reading to pub. pub may be nil.
func New(pub broadcast.Publisher, opts ...Option) *Estimator {
	e := &Estimator{
		pub: pub,
		log: zap.NewNop().Sugar(),
		now: time.Now,
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

// OnSensorChanged stores the event's values in the buffer for its kind,
// recomputes the heading from the latest pair and publishes it. Events of
// other kinds are ignored and return ok=false.
func (e *Estimator) OnSensorChanged(ev imu.Event) (r compass.Reading, ok bool) {
	switch ev.Kind {
	case imu.Accelerometer:
		e.accel = ev.Values
	case imu.Magnetometer:
		e.mag = ev.Values
	default:
		e.log.Debugf("ignoring %s event", ev.Kind)
		return compass.Reading{}, false
	}
	e.metrics.ObserveEvent(ev.Kind)

	r = e.recompute()
	if e.pub != nil {
		e.pub.Publish(r)
	}
	return r, true
}

// recompute derives a reading from the stored samples and keeps the matrix
// it was derived from for the next event.
func (e *Estimator) recompute() compass.Reading {
	r, m, ok := Compute(e.accel, e.mag, e.rotation)
	e.rotation = m
	if !ok {
		e.metrics.ObserveRejected()
	}
	r.Time = e.now()

	e.log.Debugf("heading %.2f %s (accel=%v mag=%v)", r.Angle, r.Direction, e.accel, e.mag)
	return r
}

// Compute derives a reading from one accelerometer/magnetometer pair. When
// the pair defines no rotation (free fall, or field parallel to gravity) prev
// is used instead and ok is false; the zero matrix gives azimuth 0. m is the
// matrix the reading was derived from. The reading has no timestamp.
func Compute(accel, mag r3.Vector, prev orientation.Matrix) (r compass.Reading, m orientation.Matrix, ok bool) {
	m, ok = orientation.RotationMatrix(accel, mag)
	if !ok {
		m = prev
	}

	angles := m.Angles()
	return compass.Reading{
		Heading:     compass.FromAzimuth(angles.Azimuth),
		Pose:        angles.Pose(),
		Inclination: orientation.Inclination(m, mag) * 180.0 / math.Pi,
	}, m, ok
}
