// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package sensors

import (
	"fmt"

	"github.com/golang/geo/r3"
	"go.uber.org/zap"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/devices/v3/mpu9250"
	"periph.io/x/host/v3"

	"github.com/relabs-tech/inertial_compass/internal/orientation"
)

// accelLSBPerG is the accelerometer sensitivity per full-scale range setting.
var accelLSBPerG = []float64{16384, 8192, 4096, 2048}

// MPU9250Accel reads the accelerometer of an MPU-9250 over SPI.
type MPU9250Accel struct {
	imu     *mpu9250.MPU9250
	lsbPerG float64
}

// NewMPU9250Accel initializes the MPU-9250 on spiDev with chip select csPin
// and sets the accelerometer full-scale range (0=±2g .. 3=±16g).
func NewMPU9250Accel(logger *zap.SugaredLogger, spiDev, csPin string, accelRange byte) (*MPU9250Accel, error) {
	if int(accelRange) >= len(accelLSBPerG) {
		return nil, fmt.Errorf("accelerometer: invalid range %d", accelRange)
	}
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("accelerometer: periph host init: %w", err)
	}

	cs := gpioreg.ByName(csPin)
	if cs == nil {
		return nil, fmt.Errorf("accelerometer: CS pin %q not found", csPin)
	}

	tr, err := mpu9250.NewSpiTransport(spiDev, cs)
	if err != nil {
		return nil, fmt.Errorf("accelerometer: SPI transport (%s): %w", spiDev, err)
	}

	imu, err := mpu9250.New(tr)
	if err != nil {
		return nil, fmt.Errorf("accelerometer: device creation: %w", err)
	}
	if err := imu.Init(); err != nil {
		return nil, fmt.Errorf("accelerometer: initialization: %w", err)
	}
	if err := imu.SetAccelRange(accelRange); err != nil {
		return nil, fmt.Errorf("accelerometer: set range: %w", err)
	}
	logger.Infof("accelerometer range set to %d (±%dg)", accelRange, []int{2, 4, 8, 16}[accelRange])

	return &MPU9250Accel{imu: imu, lsbPerG: accelLSBPerG[accelRange]}, nil
}

// ReadAccel returns the acceleration in m/s².
func (a *MPU9250Accel) ReadAccel() (r3.Vector, error) {
	ax, err := a.imu.GetAccelerationX()
	if err != nil {
		return r3.Vector{}, fmt.Errorf("accelerometer X: %w", err)
	}
	ay, err := a.imu.GetAccelerationY()
	if err != nil {
		return r3.Vector{}, fmt.Errorf("accelerometer Y: %w", err)
	}
	az, err := a.imu.GetAccelerationZ()
	if err != nil {
		return r3.Vector{}, fmt.Errorf("accelerometer Z: %w", err)
	}
	return countsToAccel(ax, ay, az, a.lsbPerG), nil
}

func countsToAccel(ax, ay, az int16, lsbPerG float64) r3.Vector {
	scale := orientation.StandardGravity / lsbPerG
	return r3.Vector{
		X: float64(ax) * scale,
		Y: float64(ay) * scale,
		Z: float64(az) * scale,
	}
}
