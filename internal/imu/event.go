// Package imu holds the sensor event model shared by sources and the estimator.
package imu

import (
	"time"

	"github.com/golang/geo/r3"
)

// Kind identifies which sensor produced an event.
type Kind int

const (
	Unknown Kind = iota
	Accelerometer
	Magnetometer
)

func (k Kind) String() string {
	switch k {
	case Accelerometer:
		return "accelerometer"
	case Magnetometer:
		return "magnetometer"
	default:
		return "unknown"
	}
}

// Event is a single 3-axis reading. Accelerometer values are in m/s²,
// magnetometer values in µT; both in the device frame.
type Event struct {
	Kind      Kind      `json:"kind"`
	Timestamp time.Time `json:"timestamp"`
	Values    r3.Vector `json:"values"`
}

// Listener receives sensor events. Sources call it from a single goroutine,
// one event at a time.
type Listener interface {
	OnSensorChanged(Event)
}

// ListenerFunc adapts a function to a Listener.
type ListenerFunc func(Event)

func (f ListenerFunc) OnSensorChanged(ev Event) { f(ev) }
