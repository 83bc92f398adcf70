// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"errors"
	"fmt"
	"io"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/host/v3"

	"github.com/relabs-tech/inertial_compass/internal/broadcast"
	"github.com/relabs-tech/inertial_compass/internal/config"
	"github.com/relabs-tech/inertial_compass/internal/display"
	"github.com/relabs-tech/inertial_compass/internal/estimator"
	"github.com/relabs-tech/inertial_compass/internal/imu"
	"github.com/relabs-tech/inertial_compass/internal/metrics"
	"github.com/relabs-tech/inertial_compass/internal/mqttout"
	"github.com/relabs-tech/inertial_compass/internal/nmeaout"
	"github.com/relabs-tech/inertial_compass/internal/notify"
	"github.com/relabs-tech/inertial_compass/internal/sensors"
	"github.com/relabs-tech/inertial_compass/internal/web"
)

var errStopped = errors.New("stopped from notification")

// Producer wires a sensor source through the estimator to every output.
type Producer struct {
	cfg *config.Config
	log *zap.SugaredLogger

	source    sensors.Source
	estimator *estimator.Estimator
	bus       *broadcast.Broadcaster
	metrics   *metrics.Collector
	service   *notify.Service
	web       *web.Server
	display   *display.Display
	mqtt      mqtt.Client

	closers []io.Closer
}

// NewProducer builds the pipeline described by cfg. Missing sensors, the
// serial port and the OLED are logged and skipped; a broker that cannot be
// reached is an error.
func NewProducer(cfg *config.Config, logger *zap.Logger, reg prometheus.Registerer) (*Producer, error) {
	p := &Producer{
		cfg: cfg,
		log: logger.Sugar().Named("producer"),
		bus: broadcast.New(),
	}

	collector, err := metrics.NewCollector(reg)
	if err != nil {
		return nil, fmt.Errorf("metrics: %w", err)
	}
	p.metrics = collector
	p.bus.Subscribe(collector)

	notifiers := notify.Multi{notify.LogNotifier{Logger: logger.Sugar().Named("notify")}}
	if cfg.MQTT.Enabled {
		client, err := mqttout.Connect(cfg.MQTT.Broker, cfg.MQTT.ClientIDProducer)
		if err != nil {
			return nil, err
		}
		p.mqtt = client
		p.log.Infof("connected to MQTT broker at %s", cfg.MQTT.Broker)

		p.bus.Subscribe(mqttout.NewPublisher(client, cfg.MQTT.TopicHeading, cfg.MQTT.QoS, logger.Sugar().Named("mqtt")))
		notifiers = append(notifiers, mqttout.NotificationSink{
			Client: client,
			Topic:  cfg.MQTT.TopicNotification,
			QoS:    cfg.MQTT.QoS,
		})
	}

	p.service = notify.NewService(notifiers, cfg.Background, logger.Sugar().Named("notify"))
	p.bus.Subscribe(p.service)

	if p.mqtt != nil {
		if err := mqttout.SubscribeBackground(p.mqtt, cfg.MQTT.TopicBackground, cfg.MQTT.QoS,
			p.service.SetBackground, logger.Sugar().Named("mqtt")); err != nil {
			p.Close()
			return nil, err
		}
	}

	p.web = web.NewServer(p.service, collector.Gatherer(), logger.Sugar().Named("web"))
	p.bus.Subscribe(p.web)

	if cfg.NMEA.Enabled {
		port, err := nmeaout.OpenSerial(cfg.NMEA.SerialPort, cfg.NMEA.BaudRate)
		if err != nil {
			p.log.Warnf("NMEA output disabled: %v", err)
		} else {
			p.closers = append(p.closers, port)
			p.bus.Subscribe(nmeaout.NewWriter(port, cfg.NMEA.Talker, logger.Sugar().Named("nmea")))
			p.log.Infof("writing HDM sentences to %s at %d baud", cfg.NMEA.SerialPort, cfg.NMEA.BaudRate)
		}
	}

	if cfg.Display.Enabled {
		dev, closer, err := display.OpenSSD1306(cfg.Display.I2CBus)
		if err != nil {
			p.log.Warnf("display disabled: %v", err)
		} else {
			p.closers = append(p.closers, closer)
			p.display = display.New(dev, cfg.DisplayInterval(), logger.Sugar().Named("display"))
			p.bus.Subscribe(p.display)
		}
	}

	p.estimator = estimator.New(p.bus,
		estimator.WithLogger(logger.Sugar().Named("estimator")),
		estimator.WithMetrics(collector))

	if cfg.Sensors.Mock {
		p.source = sensors.NewMockSource(cfg.Sensors.MockRateDegPerSec, cfg.SampleInterval())
		p.log.Infof("using mock sensors turning at %.1f°/s", cfg.Sensors.MockRateDegPerSec)
	} else {
		p.source = p.hardwareSource(logger.Sugar().Named("sensors"))
	}

	return p, nil
}

func (p *Producer) hardwareSource(log *zap.SugaredLogger) *sensors.HardwareSource {
	sc := p.cfg.Sensors
	src := &sensors.HardwareSource{Interval: p.cfg.SampleInterval(), Logger: log}

	accel, err := sensors.NewMPU9250Accel(log, sc.AccelSPIDevice, sc.AccelCSPin, sc.AccelRange)
	if err != nil {
		log.Warnf("accelerometer unavailable: %v", err)
	} else {
		src.Accel = accel
	}

	if _, err := host.Init(); err != nil {
		log.Warnf("magnetometer unavailable: periph host init: %v", err)
		return src
	}
	bus, err := i2creg.Open(sc.MagI2CBus)
	if err != nil {
		log.Warnf("magnetometer unavailable: open I2C bus %q: %v", sc.MagI2CBus, err)
		return src
	}
	mag, err := sensors.NewQMC5883L(bus, &sensors.QMC5883LOpts{Addr: sc.MagI2CAddr, Range: sc.MagRange})
	if err != nil {
		bus.Close()
		log.Warnf("magnetometer unavailable: %v", err)
		return src
	}
	p.closers = append(p.closers, bus)
	src.Mag = mag
	return src
}

// Run starts the notification and every loop, and returns when ctx is done
// or the notification's stop action fires. Either way resources are
// released and nil is returned.
func (p *Producer) Run(ctx context.Context) (err error) {
	defer func() { err = multierr.Append(err, p.Close()) }()

	if err := p.service.Start(); err != nil {
		p.log.Warnf("%v", err)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return p.source.Run(gctx, imu.ListenerFunc(func(ev imu.Event) {
			p.estimator.OnSensorChanged(ev)
		}))
	})
	if p.cfg.Web.Enabled {
		g.Go(func() error { return p.web.Run(gctx, p.cfg.Web.Addr) })
	}
	if p.display != nil {
		g.Go(func() error { return p.display.Run(gctx) })
	}
	g.Go(func() error {
		select {
		case <-p.service.Done():
			p.log.Info("stop requested")
			return errStopped
		case <-gctx.Done():
			return gctx.Err()
		}
	})

	err = g.Wait()
	if errors.Is(err, errStopped) || errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// Close removes the notification and releases the broker connection and
// any opened devices.
func (p *Producer) Close() error {
	err := p.service.Stop()
	for _, c := range p.closers {
		err = multierr.Append(err, c.Close())
	}
	p.closers = nil
	if p.mqtt != nil {
		p.mqtt.Disconnect(250)
		p.mqtt = nil
	}
	return err
}
