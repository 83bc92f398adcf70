package app

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"go.viam.com/test"

	"github.com/relabs-tech/inertial_compass/internal/compass"
	"github.com/relabs-tech/inertial_compass/internal/config"
	"github.com/relabs-tech/inertial_compass/internal/orientation"
)

func mockConfig() *config.Config {
	cfg := config.Default()
	cfg.Sensors.Mock = true
	cfg.Sensors.SampleIntervalMS = 2
	cfg.Background = true
	return cfg
}

func waitForReading(t *testing.T, p *Producer) compass.Reading {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if r, ok := p.web.Latest(); ok {
			return r
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("no reading produced")
	return compass.Reading{}
}

func TestProducerStopsFromNotification(t *testing.T) {
	p, err := NewProducer(mockConfig(), zap.NewNop(), prometheus.NewRegistry())
	test.That(t, err, test.ShouldBeNil)
	test.That(t, p.display, test.ShouldBeNil)
	test.That(t, p.mqtt, test.ShouldBeNil)

	errc := make(chan error, 1)
	go func() { errc <- p.Run(context.Background()) }()

	r := waitForReading(t, p)
	test.That(t, r.Direction.Valid(), test.ShouldBeTrue)
	test.That(t, p.service.Background(), test.ShouldBeTrue)

	test.That(t, p.service.Stop(), test.ShouldBeNil)
	select {
	case err := <-errc:
		test.That(t, err, test.ShouldBeNil)
	case <-time.After(2 * time.Second):
		t.Fatal("producer did not stop")
	}
}

func TestProducerStopsOnCancel(t *testing.T) {
	p, err := NewProducer(mockConfig(), zap.NewNop(), prometheus.NewRegistry())
	test.That(t, err, test.ShouldBeNil)

	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() { errc <- p.Run(ctx) }()

	waitForReading(t, p)
	cancel()
	test.That(t, <-errc, test.ShouldBeNil)
}

func TestProducerServesHeading(t *testing.T) {
	p, err := NewProducer(mockConfig(), zap.NewNop(), prometheus.NewRegistry())
	test.That(t, err, test.ShouldBeNil)

	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() { errc <- p.Run(ctx) }()
	defer func() {
		cancel()
		test.That(t, <-errc, test.ShouldBeNil)
	}()
	waitForReading(t, p)

	ts := httptest.NewServer(p.web.Handler())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/api/heading")
	test.That(t, err, test.ShouldBeNil)
	resp.Body.Close()
	test.That(t, resp.StatusCode, test.ShouldEqual, http.StatusOK)

	resp, err = http.Get(ts.URL + "/metrics")
	test.That(t, err, test.ShouldBeNil)
	resp.Body.Close()
	test.That(t, resp.StatusCode, test.ShouldEqual, http.StatusOK)
}

func TestProducerRejectsDuplicateMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	_, err := NewProducer(mockConfig(), zap.NewNop(), reg)
	test.That(t, err, test.ShouldBeNil)
	_, err = NewProducer(mockConfig(), zap.NewNop(), reg)
	test.That(t, err, test.ShouldNotBeNil)
}

func TestConsoleLine(t *testing.T) {
	r := compass.Reading{
		Heading:     compass.Heading{Angle: 45, Direction: compass.NE},
		Pose:        orientation.Pose{Roll: 1.5, Pitch: -2},
		Inclination: 60,
	}
	line := ConsoleLine(r)
	test.That(t, line, test.ShouldStartWith, "[HEADING] 45.0 NE")
	test.That(t, line, test.ShouldContainSubstring, "rose= -45.00")
	test.That(t, line, test.ShouldContainSubstring, "INCL= 60.00")
}

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestRunMockConsole(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	var out syncBuffer
	test.That(t, RunMockConsole(ctx, mockConfig(), &out), test.ShouldBeNil)

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	test.That(t, len(lines), test.ShouldBeGreaterThan, 0)
	// the mock starts facing north
	test.That(t, lines[0], test.ShouldStartWith, "[HEADING] ")
	test.That(t, lines[0], test.ShouldContainSubstring, " N ")
}

func TestNewLogger(t *testing.T) {
	_, err := NewLogger(config.LoggingConfig{Level: "debug", Development: true})
	test.That(t, err, test.ShouldBeNil)
	_, err = NewLogger(config.LoggingConfig{Level: "loud"})
	test.That(t, err, test.ShouldNotBeNil)
}
