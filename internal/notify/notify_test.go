package notify

import (
	"errors"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
	"go.viam.com/test"

	"github.com/relabs-tech/inertial_compass/internal/compass"
)

type injectNotifier struct {
	shown     []string
	cancelled int
	showErr   error
}

func (n *injectNotifier) Show(text string) error {
	if n.showErr != nil {
		return n.showErr
	}
	n.shown = append(n.shown, text)
	return nil
}

func (n *injectNotifier) Cancel() error {
	n.cancelled++
	return nil
}

func reading(angle float64, dir compass.Direction) compass.Reading {
	return compass.Reading{Heading: compass.Heading{Angle: angle, Direction: dir}}
}

func TestText(t *testing.T) {
	test.That(t, Text("NE", 45), test.ShouldEqual, "You're currently facing NE at an angle of 45.0°")
	test.That(t, Text(NotAvailable, 0), test.ShouldEqual, "You're currently facing not available at an angle of 0.0°")
}

func TestServiceForegroundCancels(t *testing.T) {
	n := &injectNotifier{}
	s := NewService(n, false, nil)
	test.That(t, s.Start(), test.ShouldBeNil)
	test.That(t, n.shown, test.ShouldResemble, []string{Text(NotAvailable, 0)})

	s.Publish(reading(90, compass.E))
	s.Publish(reading(91, compass.E))
	test.That(t, n.cancelled, test.ShouldEqual, 1)
	test.That(t, len(n.shown), test.ShouldEqual, 1)
}

func TestServiceBackgroundShows(t *testing.T) {
	n := &injectNotifier{}
	s := NewService(n, false, nil)
	test.That(t, s.Background(), test.ShouldBeFalse)

	s.SetBackground(true)
	test.That(t, s.Background(), test.ShouldBeTrue)
	// switching mode alone does not touch the notification
	test.That(t, n.shown, test.ShouldBeEmpty)

	s.Publish(reading(12.34, compass.NE))
	s.Publish(reading(180, compass.S))
	test.That(t, n.shown, test.ShouldResemble, []string{
		"You're currently facing NE at an angle of 12.34°",
		"You're currently facing S at an angle of 180.0°",
	})

	s.SetBackground(false)
	s.Publish(reading(180, compass.S))
	test.That(t, n.cancelled, test.ShouldEqual, 1)
}

func TestServiceStop(t *testing.T) {
	n := &injectNotifier{}
	s := NewService(n, true, nil)
	test.That(t, s.Stop(), test.ShouldBeNil)
	test.That(t, s.Stop(), test.ShouldBeNil)
	test.That(t, n.cancelled, test.ShouldEqual, 1)

	select {
	case <-s.Done():
	default:
		t.Fatal("Done not closed after Stop")
	}

	s.Publish(reading(1, compass.N))
	test.That(t, n.shown, test.ShouldBeEmpty)
}

func TestServiceShowErrorIsLogged(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	n := &injectNotifier{showErr: errors.New("broker gone")}
	s := NewService(n, true, zap.New(core).Sugar())
	s.Publish(reading(1, compass.N))
	test.That(t, logs.Len(), test.ShouldEqual, 1)
	test.That(t, logs.All()[0].Message, test.ShouldContainSubstring, "broker gone")
}

func TestMulti(t *testing.T) {
	a, b := &injectNotifier{}, &injectNotifier{showErr: errors.New("b failed")}
	m := Multi{a, b}
	err := m.Show("x")
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, a.shown, test.ShouldResemble, []string{"x"})
	test.That(t, m.Cancel(), test.ShouldBeNil)
	test.That(t, a.cancelled, test.ShouldEqual, 1)
	test.That(t, b.cancelled, test.ShouldEqual, 1)
}

func TestLogNotifier(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	n := LogNotifier{Logger: zap.New(core).Sugar()}
	test.That(t, n.Show("hello"), test.ShouldBeNil)
	test.That(t, n.Cancel(), test.ShouldBeNil)
	test.That(t, logs.Len(), test.ShouldEqual, 2)
	test.That(t, logs.All()[0].Message, test.ShouldEqual, "notification: hello")
}
