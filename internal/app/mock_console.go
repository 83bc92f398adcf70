// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/relabs-tech/inertial_compass/internal/broadcast"
	"github.com/relabs-tech/inertial_compass/internal/compass"
	"github.com/relabs-tech/inertial_compass/internal/config"
	"github.com/relabs-tech/inertial_compass/internal/estimator"
	"github.com/relabs-tech/inertial_compass/internal/imu"
	"github.com/relabs-tech/inertial_compass/internal/sensors"
)

// RunMockConsole runs the mock device through the estimator and prints each
// reading, without a broker.
func RunMockConsole(ctx context.Context, cfg *config.Config, out io.Writer) error {
	src := sensors.NewMockSource(cfg.Sensors.MockRateDegPerSec, cfg.SampleInterval())
	est := estimator.New(broadcast.PublisherFunc(func(r compass.Reading) {
		fmt.Fprintln(out, ConsoleLine(r))
	}))

	err := src.Run(ctx, imu.ListenerFunc(func(ev imu.Event) {
		est.OnSensorChanged(ev)
	}))
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return nil
	}
	return err
}
