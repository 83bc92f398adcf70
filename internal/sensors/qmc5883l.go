// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package sensors

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/golang/geo/r3"
	"periph.io/x/conn/v3/i2c"
)

// QMC5883L register map.
const (
	qmcRegData     = 0x00 // X LSB .. Z MSB
	qmcRegStatus   = 0x06
	qmcRegControl1 = 0x09
	qmcRegControl2 = 0x0A
	qmcRegSetReset = 0x0B
	qmcRegChipID   = 0x0D

	qmcChipID = 0xFF

	qmcStatusDRDY = 0x01
	qmcStatusOVL  = 0x02

	qmcModeContinuous = 0x01
	qmcODR50Hz        = 0x04
	qmcRange2G        = 0x00
	qmcRange8G        = 0x10
	qmcOSR512         = 0x00
	qmcSoftReset      = 0x80
)

// QMC5883LDefaultAddr is the fixed I2C address of the chip.
const QMC5883LDefaultAddr = 0x0D

var (
	// ErrNotReady is returned by Sense when no new sample is available yet.
	ErrNotReady = errors.New("qmc5883l: data not ready")
	// ErrOverflow is returned by Sense when an axis saturated.
	ErrOverflow = errors.New("qmc5883l: measurement overflow")
)

// QMC5883LOpts configures the magnetometer.
type QMC5883LOpts struct {
	Addr uint16
	// Range: 0 = ±2 Gauss, 1 = ±8 Gauss.
	Range byte
}

// QMC5883L is a 3-axis magnetometer on I2C.
type QMC5883L struct {
	dev         i2c.Dev
	lsbPerGauss float64
}

// NewQMC5883L checks the chip ID, resets the chip and starts continuous
// measurement at 50 Hz with 512x oversampling.
func NewQMC5883L(bus i2c.Bus, opts *QMC5883LOpts) (*QMC5883L, error) {
	addr := uint16(QMC5883LDefaultAddr)
	var rng byte
	if opts != nil {
		if opts.Addr != 0 {
			addr = opts.Addr
		}
		rng = opts.Range
	}

	d := &QMC5883L{dev: i2c.Dev{Bus: bus, Addr: addr}}

	id := make([]byte, 1)
	if err := d.dev.Tx([]byte{qmcRegChipID}, id); err != nil {
		return nil, fmt.Errorf("qmc5883l: read chip id: %w", err)
	}
	if id[0] != qmcChipID {
		return nil, fmt.Errorf("qmc5883l: unexpected chip id 0x%02X", id[0])
	}

	if err := d.writeReg(qmcRegControl2, qmcSoftReset); err != nil {
		return nil, fmt.Errorf("qmc5883l: soft reset: %w", err)
	}
	if err := d.writeReg(qmcRegSetReset, 0x01); err != nil {
		return nil, fmt.Errorf("qmc5883l: set/reset period: %w", err)
	}

	ctrl := byte(qmcOSR512 | qmcODR50Hz | qmcModeContinuous)
	switch rng {
	case 0:
		ctrl |= qmcRange2G
		d.lsbPerGauss = 12000
	case 1:
		ctrl |= qmcRange8G
		d.lsbPerGauss = 3000
	default:
		return nil, fmt.Errorf("qmc5883l: invalid range %d", rng)
	}
	if err := d.writeReg(qmcRegControl1, ctrl); err != nil {
		return nil, fmt.Errorf("qmc5883l: control: %w", err)
	}
	return d, nil
}

func (d *QMC5883L) writeReg(reg, val byte) error {
	return d.dev.Tx([]byte{reg, val}, nil)
}

// Sense reads one sample in µT. The status register is read on its own
// first: reading any data register clears DRDY.
func (d *QMC5883L) Sense() (r3.Vector, error) {
	status := make([]byte, 1)
	if err := d.dev.Tx([]byte{qmcRegStatus}, status); err != nil {
		return r3.Vector{}, fmt.Errorf("qmc5883l: read status: %w", err)
	}
	if status[0]&qmcStatusDRDY == 0 {
		return r3.Vector{}, ErrNotReady
	}

	buf := make([]byte, qmcRegStatus-qmcRegData)
	if err := d.dev.Tx([]byte{qmcRegData}, buf); err != nil {
		return r3.Vector{}, fmt.Errorf("qmc5883l: read data: %w", err)
	}
	if status[0]&qmcStatusOVL != 0 {
		return r3.Vector{}, ErrOverflow
	}

	x := int16(binary.LittleEndian.Uint16(buf[0:2]))
	y := int16(binary.LittleEndian.Uint16(buf[2:4]))
	z := int16(binary.LittleEndian.Uint16(buf[4:6]))

	// 1 Gauss = 100 µT
	scale := 100.0 / d.lsbPerGauss
	return r3.Vector{
		X: float64(x) * scale,
		Y: float64(y) * scale,
		Z: float64(z) * scale,
	}, nil
}
