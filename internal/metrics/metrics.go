// Package metrics exposes Prometheus collectors for the compass pipeline.
package metrics

import (
	"errors"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/relabs-tech/inertial_compass/internal/compass"
	"github.com/relabs-tech/inertial_compass/internal/imu"
)

// Collector holds the compass metrics. A nil *Collector is a valid no-op.
type Collector struct {
	gatherer prometheus.Gatherer

	SensorEvents     *prometheus.CounterVec
	RotationRejected prometheus.Counter
	HeadingDegrees   prometheus.Gauge
	HeadingUpdates   *prometheus.CounterVec
}

// NewCollector registers the compass metrics against reg, or the default
// registerer when reg is nil.
func NewCollector(reg prometheus.Registerer) (*Collector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	events := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "compass_sensor_events_total",
		Help: "Sensor events consumed by the estimator, by sensor kind.",
	}, []string{"kind"})
	if err := register(reg, events, "compass_sensor_events_total"); err != nil {
		return nil, err
	}

	rejected := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "compass_rotation_rejected_total",
		Help: "Recomputations where no rotation matrix could be derived (free fall or field parallel to gravity).",
	})
	if err := register(reg, rejected, "compass_rotation_rejected_total"); err != nil {
		return nil, err
	}

	heading := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "compass_heading_degrees",
		Help: "Most recent heading angle in degrees from magnetic north.",
	})
	if err := register(reg, heading, "compass_heading_degrees"); err != nil {
		return nil, err
	}

	updates := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "compass_heading_updates_total",
		Help: "Headings published, by compass direction.",
	}, []string{"direction"})
	if err := register(reg, updates, "compass_heading_updates_total"); err != nil {
		return nil, err
	}

	return &Collector{
		gatherer:         gatherer,
		SensorEvents:     events,
		RotationRejected: rejected,
		HeadingDegrees:   heading,
		HeadingUpdates:   updates,
	}, nil
}

// Gatherer returns the gatherer the collector was registered with.
func (c *Collector) Gatherer() prometheus.Gatherer {
	if c == nil {
		return nil
	}
	return c.gatherer
}

// ObserveEvent counts one sensor event.
func (c *Collector) ObserveEvent(k imu.Kind) {
	if c == nil {
		return
	}
	c.SensorEvents.WithLabelValues(k.String()).Inc()
}

// ObserveRejected counts a recomputation that reused the previous matrix.
func (c *Collector) ObserveRejected() {
	if c == nil {
		return
	}
	c.RotationRejected.Inc()
}

// Publish records a published reading. It lets the collector subscribe to a
// broadcast.Broadcaster directly.
func (c *Collector) Publish(r compass.Reading) {
	if c == nil {
		return
	}
	c.HeadingDegrees.Set(r.Angle)
	c.HeadingUpdates.WithLabelValues(string(r.Direction)).Inc()
}

func register(reg prometheus.Registerer, col prometheus.Collector, name string) error {
	if err := reg.Register(col); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			return fmt.Errorf("collector %s already registered: %w", name, err)
		}
		return err
	}
	return nil
}
