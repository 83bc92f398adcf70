package estimator

import (
	"math"
	"testing"
	"time"

	"github.com/golang/geo/r3"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.viam.com/test"

	"github.com/relabs-tech/inertial_compass/internal/broadcast"
	"github.com/relabs-tech/inertial_compass/internal/compass"
	"github.com/relabs-tech/inertial_compass/internal/imu"
	"github.com/relabs-tech/inertial_compass/internal/metrics"
	"github.com/relabs-tech/inertial_compass/internal/orientation"
)

var (
	gravity   = r3.Vector{Z: orientation.StandardGravity}
	fieldN    = r3.Vector{Y: 22, Z: -42}
	fieldE    = r3.Vector{X: -22, Z: -42}
	fieldW    = r3.Vector{X: 22, Z: -42}
	fixedTime = time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
)

func accel(v r3.Vector) imu.Event { return imu.Event{Kind: imu.Accelerometer, Values: v} }
func mag(v r3.Vector) imu.Event   { return imu.Event{Kind: imu.Magnetometer, Values: v} }

func newRecorder() (*[]compass.Reading, broadcast.Publisher) {
	var got []compass.Reading
	return &got, broadcast.PublisherFunc(func(r compass.Reading) { got = append(got, r) })
}

func TestPublishesOnEveryEvent(t *testing.T) {
	got, pub := newRecorder()
	e := New(pub, WithClock(func() time.Time { return fixedTime }))

	e.OnSensorChanged(accel(gravity))
	e.OnSensorChanged(mag(fieldE))
	e.OnSensorChanged(mag(fieldW))

	test.That(t, len(*got), test.ShouldEqual, 3)
	// no magnetometer yet: zero matrix, azimuth 0
	test.That(t, (*got)[0].Heading, test.ShouldResemble, compass.Heading{Angle: 0, Direction: compass.N})
	test.That(t, (*got)[1].Angle, test.ShouldAlmostEqual, 90)
	test.That(t, (*got)[1].Direction, test.ShouldEqual, compass.E)
	test.That(t, (*got)[2].Angle, test.ShouldAlmostEqual, 270)
	test.That(t, (*got)[2].Direction, test.ShouldEqual, compass.W)
	test.That(t, (*got)[2].Time, test.ShouldEqual, fixedTime)
}

func TestStaleSampleIsReused(t *testing.T) {
	e := New(nil)
	e.OnSensorChanged(mag(fieldE))
	e.OnSensorChanged(accel(gravity))
	// the magnetometer sample from before is still used
	r, ok := e.OnSensorChanged(accel(gravity.Mul(1.01)))
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, r.Direction, test.ShouldEqual, compass.E)
	test.That(t, e.accel, test.ShouldResemble, gravity.Mul(1.01))
	test.That(t, e.mag, test.ShouldResemble, fieldE)
}

func TestIdempotent(t *testing.T) {
	e := New(nil, WithClock(func() time.Time { return fixedTime }))
	field := r3.Vector{X: -13.7, Y: 5.2, Z: -40.1}
	e.OnSensorChanged(accel(gravity))
	r1, _ := e.OnSensorChanged(mag(field))
	r2, _ := e.OnSensorChanged(mag(field))
	test.That(t, r2, test.ShouldResemble, r1)

	other := New(nil, WithClock(func() time.Time { return fixedTime }))
	other.OnSensorChanged(mag(field))
	rOther, _ := other.OnSensorChanged(accel(gravity))
	test.That(t, rOther, test.ShouldResemble, r1)
}

func TestRejectedMatrixKeepsPreviousHeading(t *testing.T) {
	reg := prometheus.NewRegistry()
	c, err := metrics.NewCollector(reg)
	test.That(t, err, test.ShouldBeNil)

	e := New(nil, WithMetrics(c))
	e.OnSensorChanged(accel(gravity))
	r, _ := e.OnSensorChanged(mag(fieldE))
	test.That(t, r.Direction, test.ShouldEqual, compass.E)

	// free fall: previous rotation is reused
	r, _ = e.OnSensorChanged(accel(r3.Vector{Z: 0.1}))
	test.That(t, r.Angle, test.ShouldAlmostEqual, 90)
	test.That(t, r.Direction, test.ShouldEqual, compass.E)

	test.That(t, testutil.ToFloat64(c.RotationRejected), test.ShouldEqual, 2)
	test.That(t, testutil.ToFloat64(c.SensorEvents.WithLabelValues("accelerometer")), test.ShouldEqual, 2)
}

func TestIgnoresUnknownKind(t *testing.T) {
	got, pub := newRecorder()
	e := New(pub)
	_, ok := e.OnSensorChanged(imu.Event{Kind: imu.Unknown, Values: gravity})
	test.That(t, ok, test.ShouldBeFalse)
	test.That(t, len(*got), test.ShouldEqual, 0)
}

func TestReadingCarriesPoseAndInclination(t *testing.T) {
	e := New(nil)
	e.OnSensorChanged(accel(gravity))
	r, _ := e.OnSensorChanged(mag(fieldN))
	test.That(t, r.Pose.Yaw, test.ShouldAlmostEqual, 0)
	test.That(t, r.Pose.Pitch, test.ShouldAlmostEqual, 0)
	test.That(t, r.Inclination, test.ShouldAlmostEqual, math.Atan2(42, 22)*180/math.Pi, 1e-9)
}

func TestCompute(t *testing.T) {
	r, m, ok := Compute(gravity, fieldN, orientation.Matrix{})
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, r.Heading, test.ShouldResemble, compass.Heading{Angle: 0, Direction: compass.N})
	test.That(t, r.Time.IsZero(), test.ShouldBeTrue)

	// free fall keeps the matrix passed in
	_, east, ok := Compute(gravity, fieldE, orientation.Matrix{})
	test.That(t, ok, test.ShouldBeTrue)
	r, kept, ok := Compute(r3.Vector{}, fieldN, east)
	test.That(t, ok, test.ShouldBeFalse)
	test.That(t, kept, test.ShouldResemble, east)
	test.That(t, r.Direction, test.ShouldEqual, compass.E)
	test.That(t, m, test.ShouldNotResemble, east)

	// nothing to fall back on
	r, _, ok = Compute(r3.Vector{}, fieldN, orientation.Matrix{})
	test.That(t, ok, test.ShouldBeFalse)
	test.That(t, r.Heading, test.ShouldResemble, compass.Heading{Angle: 0, Direction: compass.N})
}

func TestEstimatorMatchesCompute(t *testing.T) {
	e := New(nil, WithClock(func() time.Time { return fixedTime }))
	e.OnSensorChanged(accel(gravity))
	got, _ := e.OnSensorChanged(mag(fieldE))

	want, _, _ := Compute(gravity, fieldE, orientation.Matrix{})
	want.Time = fixedTime
	test.That(t, got, test.ShouldResemble, want)
}
