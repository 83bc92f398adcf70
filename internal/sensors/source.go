// Package sensors produces accelerometer and magnetometer events from
// hardware or from a simulated device.
package sensors

import (
	"context"
	"errors"
	"time"

	"github.com/golang/geo/r3"
	"go.uber.org/zap"

	"github.com/relabs-tech/inertial_compass/internal/imu"
)

// Source delivers sensor events to a listener until ctx is done. Events are
// delivered one at a time from the goroutine running Run.
type Source interface {
	Run(ctx context.Context, l imu.Listener) error
}

// AccelReader reads one accelerometer sample in m/s².
type AccelReader interface {
	ReadAccel() (r3.Vector, error)
}

// MagReader reads one magnetometer sample in µT.
type MagReader interface {
	Sense() (r3.Vector, error)
}

// HardwareSource polls an accelerometer and a magnetometer on a fixed
// interval. Either reader may be nil when the sensor is absent; that sensor
// then never produces events.
type HardwareSource struct {
	Accel    AccelReader
	Mag      MagReader
	Interval time.Duration
	Logger   *zap.SugaredLogger

	now func() time.Time
}

// Run polls until ctx is cancelled. Read errors are logged and skipped.
func (s *HardwareSource) Run(ctx context.Context, l imu.Listener) error {
	log := s.Logger
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	if s.Accel == nil {
		log.Warn("no accelerometer available, heading will not update from tilt")
	}
	if s.Mag == nil {
		log.Warn("no magnetometer available, heading will stay at north")
	}

	ticker := time.NewTicker(s.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.poll(log, l)
		}
	}
}

func (s *HardwareSource) poll(log *zap.SugaredLogger, l imu.Listener) {
	now := time.Now
	if s.now != nil {
		now = s.now
	}

	if s.Accel != nil {
		if v, err := s.Accel.ReadAccel(); err != nil {
			log.Warnf("accelerometer read error: %v", err)
		} else {
			l.OnSensorChanged(imu.Event{Kind: imu.Accelerometer, Timestamp: now(), Values: v})
		}
	}

	if s.Mag != nil {
		v, err := s.Mag.Sense()
		switch {
		case errors.Is(err, ErrNotReady):
			log.Debug("magnetometer sample not ready")
		case err != nil:
			log.Warnf("magnetometer read error: %v", err)
		default:
			l.OnSensorChanged(imu.Event{Kind: imu.Magnetometer, Timestamp: now(), Values: v})
		}
	}
}
