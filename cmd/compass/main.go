// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"github.com/relabs-tech/inertial_compass/internal/app"
	"github.com/relabs-tech/inertial_compass/internal/config"
)

func main() {
	cliApp := &cli.App{
		Name:  "compass",
		Usage: "tilt-compensated compass from an accelerometer and magnetometer",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Value:   "compass.yaml",
				Usage:   "path to the YAML configuration file",
			},
		},
		Commands: []*cli.Command{
			{
				Name:  "run",
				Usage: "read the sensors and publish headings",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "mock", Usage: "simulate a turning device instead of reading hardware"},
					&cli.BoolFlag{Name: "background", Usage: "start with the persistent notification shown"},
				},
				Action: runProducer,
			},
			{
				Name:  "console",
				Usage: "print headings published on the MQTT broker",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "mock", Usage: "print headings from the simulated device, no broker needed"},
				},
				Action: runConsole,
			},
		},
	}

	if err := cliApp.Run(os.Args); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}

func setup(c *cli.Context) (*config.Config, *zap.Logger, error) {
	if err := config.InitGlobal(c.String("config")); err != nil {
		return nil, nil, err
	}
	cfg := config.Get()
	logger, err := app.NewLogger(cfg.Logging)
	if err != nil {
		return nil, nil, err
	}
	return cfg, logger, nil
}

func signalContext(c *cli.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
}

func runProducer(c *cli.Context) error {
	cfg, logger, err := setup(c)
	if err != nil {
		return err
	}
	defer logger.Sync()

	if c.Bool("mock") {
		cfg.Sensors.Mock = true
	}
	if c.IsSet("background") {
		cfg.Background = c.Bool("background")
	}

	logger.Info("starting compass producer")
	p, err := app.NewProducer(cfg, logger, prometheus.DefaultRegisterer)
	if err != nil {
		return err
	}

	ctx, cancel := signalContext(c)
	defer cancel()
	return p.Run(ctx)
}

func runConsole(c *cli.Context) error {
	cfg, logger, err := setup(c)
	if err != nil {
		return err
	}
	defer logger.Sync()

	ctx, cancel := signalContext(c)
	defer cancel()

	if c.Bool("mock") {
		logger.Info("starting compass console (mock)")
		return app.RunMockConsole(ctx, cfg, os.Stdout)
	}
	logger.Info("starting compass console (MQTT subscriber)")
	return app.RunConsoleMQTT(ctx, cfg, logger, os.Stdout)
}
