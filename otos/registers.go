// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package otos

import (
	"fmt"
	"math"
)

// I2CAddr is the only I²C address the sensor responds on.
const I2CAddr uint16 = 0x17

// ProductID is the value the product ID register must report.
const ProductID uint8 = 0x5F

// Register addresses. The pose blocks are contiguous and ordered so that
// the 18 and 36 byte bulk reads starting at regPosition are valid.
const (
	regProductID     uint8 = 0x00
	regHwVersion     uint8 = 0x01
	regFwVersion     uint8 = 0x02
	regLinearScalar  uint8 = 0x04
	regAngularScalar uint8 = 0x05
	regIMUCalib      uint8 = 0x06
	regReset         uint8 = 0x07
	regSignalProcess uint8 = 0x0E
	regSelfTest      uint8 = 0x0F
	regOffset        uint8 = 0x10
	regStatus        uint8 = 0x1F
	regPosition      uint8 = 0x20
	regVelocity      uint8 = 0x26
	regAcceleration  uint8 = 0x2C
	regPosStdDev     uint8 = 0x32
	regVelStdDev     uint8 = 0x38
	regAccStdDev     uint8 = 0x3E
)

// Self-test register bits. Start is write-only, the rest are read-only.
const (
	selfTestStart      uint8 = 1 << 0
	selfTestInProgress uint8 = 1 << 1
	selfTestPass       uint8 = 1 << 2
	selfTestFail       uint8 = 1 << 3
)

// Signal process configuration register bits.
const (
	sigProcLUT      uint8 = 1 << 0
	sigProcAcc      uint8 = 1 << 1
	sigProcRot      uint8 = 1 << 2
	sigProcVariance uint8 = 1 << 3
)

// Status register bits.
const (
	statusWarnTilt  uint8 = 1 << 0
	statusWarnTrack uint8 = 1 << 1
	statusErrorPAA  uint8 = 1 << 6
	statusErrorLSM  uint8 = 1 << 7
)

// Conversion factors between physical units.
const (
	meterToInch    = 39.37
	radianToDegree = 180.0 / math.Pi
)

// Scale factors from a raw signed 16 bit register value to the physical
// quantity in native units (meters, radians and their derivatives). The
// full-scale range of each register pair maps to [-32768, 32767].
const (
	// Position is ±10 m.
	int16ToMeter = 10.0 / 32768.0
	// Velocity is ±5 m/s.
	int16ToMps = 5.0 / 32768.0
	// Acceleration is ±16 g.
	int16ToMpss = 16.0 * 9.80665 / 32768.0
	// Heading is ±π rad.
	int16ToRad = math.Pi / 32768.0
	// Angular velocity is ±2000°/s.
	int16ToRps = 2000.0 * math.Pi / 180.0 / 32768.0
	// Angular acceleration is ±π krad/s².
	int16ToRpss = math.Pi * 1000.0 / 32768.0
)

// Linear and angular scalars are stored as a signed per-mille offset from
// unity, so the representable range is [0.872, 1.128). The device clamps
// nothing itself; out of range values are rejected before any bus write.
const (
	MinScalar = 0.872
	MaxScalar = 1.127
)

// Version is a hardware or firmware revision, packed as a major.minor
// nibble pair.
type Version uint8

// Major returns the major revision number.
func (v Version) Major() uint8 { return uint8(v) >> 4 }

// Minor returns the minor revision number.
func (v Version) Minor() uint8 { return uint8(v) & 0x0F }

func (v Version) String() string {
	return fmt.Sprintf("v%d.%d", v.Major(), v.Minor())
}

// SignalProcessConfig selects which steps of the sensor's internal signal
// processing pipeline are active. All stages are enabled after reset;
// disabling stages is mainly useful for calibration and bring-up.
type SignalProcessConfig struct {
	// EnableLUT applies the factory lookup table calibration to the
	// optical flow samples.
	EnableLUT bool
	// EnableAcc feeds accelerometer samples into the tracking filter.
	EnableAcc bool
	// EnableRot rotates IMU and optical samples by the configured offset.
	EnableRot bool
	// EnableVar computes the pose standard deviations.
	EnableVar bool
}

func signalProcessFromByte(b uint8) SignalProcessConfig {
	return SignalProcessConfig{
		EnableLUT: b&sigProcLUT != 0,
		EnableAcc: b&sigProcAcc != 0,
		EnableRot: b&sigProcRot != 0,
		EnableVar: b&sigProcVariance != 0,
	}
}

func (c SignalProcessConfig) toByte() uint8 {
	var b uint8
	if c.EnableLUT {
		b |= sigProcLUT
	}
	if c.EnableAcc {
		b |= sigProcAcc
	}
	if c.EnableRot {
		b |= sigProcRot
	}
	if c.EnableVar {
		b |= sigProcVariance
	}
	return b
}

// Status reports the sensor's warning and error flags. The warnings clear
// themselves once the condition passes; the error flags indicate a
// fatal problem with one of the internal sensors.
type Status struct {
	// WarnTiltAngle is set while the sensor is tilted more than the
	// tracking algorithm tolerates.
	WarnTiltAngle bool
	// WarnOpticalTracking is set while the optical surface tracking is
	// unreliable (bad surface or excessive speed).
	WarnOpticalTracking bool
	// ErrorPAA reports a fault in the optical sensor.
	ErrorPAA bool
	// ErrorLSM reports a fault in the IMU.
	ErrorLSM bool
}

func statusFromByte(b uint8) Status {
	return Status{
		WarnTiltAngle:       b&statusWarnTilt != 0,
		WarnOpticalTracking: b&statusWarnTrack != 0,
		ErrorPAA:            b&statusErrorPAA != 0,
		ErrorLSM:            b&statusErrorLSM != 0,
	}
}
