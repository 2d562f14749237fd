// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package otos

import (
	"encoding/binary"
	"fmt"
	"time"

	"periph.io/x/conn/v3"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/i2c"
)

// LinearUnit selects the unit for the X and Y pose fields.
type LinearUnit int

const (
	Meters LinearUnit = iota
	Inches
)

// AngularUnit selects the unit for the heading pose field.
type AngularUnit int

const (
	Radians AngularUnit = iota
	Degrees
)

// Pose2D is a 2D position, velocity or acceleration sample, or the
// corresponding standard deviation. X and Y are in the configured linear
// unit, H in the configured angular unit.
type Pose2D struct {
	X float64
	Y float64
	H float64
}

// Motion groups the three pose families delivered by the bulk reads.
type Motion struct {
	Pos Pose2D
	Vel Pose2D
	Acc Pose2D
}

// Opts holds the configuration for the device.
type Opts struct {
	// Addr is the I²C address. The sensor only responds on I2CAddr.
	Addr uint16
	// LinearUnit and AngularUnit select the units pose values are
	// reported and accepted in. They can be changed later with
	// SetLinearUnit and SetAngularUnit.
	LinearUnit  LinearUnit
	AngularUnit AngularUnit
	// SDA and SCL, when both supplied together with ForceRecovery, are
	// clocked through a bus recovery sequence before the first transfer.
	// They must be the bus pins while still under GPIO control.
	SDA gpio.PinIO
	SCL gpio.PinIO
	// ForceRecovery runs BusRecovery on SDA/SCL during New.
	ForceRecovery bool
}

// DefaultOpts is the recommended default options.
var DefaultOpts = Opts{
	Addr:        I2CAddr,
	LinearUnit:  Inches,
	AngularUnit: Degrees,
}

// Dev is a handle to an optical tracking odometry sensor.
//
// The driver is fully synchronous and performs no internal locking;
// callers sharing one bus across several devices must serialize access
// themselves.
type Dev struct {
	t           transport
	linearUnit  LinearUnit
	angularUnit AngularUnit
	// Cached multipliers from native register units (meters, radians) to
	// the configured units. Only the unit setters mutate these.
	meterToUnit float64
	radToUnit   float64
}

// New returns a handle using the supplied transfer primitive. The
// connection is verified with a ping and a product ID check.
func New(bus Bus, opts *Opts) (*Dev, error) {
	if opts == nil {
		opts = &DefaultOpts
	}
	if opts.ForceRecovery {
		if opts.SDA == nil || opts.SCL == nil {
			return nil, fmt.Errorf("otos: %w: recovery requested without SDA/SCL pins", ErrInvalidSetting)
		}
		if err := BusRecovery(opts.SDA, opts.SCL); err != nil {
			return nil, fmt.Errorf("otos: bus recovery: %w", err)
		}
	}
	addr := opts.Addr
	if addr == 0 {
		addr = I2CAddr
	}
	d := &Dev{
		t:           transport{bus: bus, addr: addr},
		meterToUnit: 1.0,
		radToUnit:   1.0,
	}
	// Start from native units so the setters compute the multipliers.
	d.SetLinearUnit(opts.LinearUnit)
	d.SetAngularUnit(opts.AngularUnit)
	if err := d.IsConnected(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConnectionFailed, err)
	}
	return d, nil
}

// NewI2C returns a handle to the sensor on the supplied I²C bus.
//
// The default address is otos.I2CAddr.
func NewI2C(b i2c.Bus, opts *Opts) (*Dev, error) {
	return New(NewI2CBus(b), opts)
}

// String implements conn.Resource.
func (d *Dev) String() string {
	if s, ok := d.t.bus.(fmt.Stringer); ok {
		return fmt.Sprintf("otos: %s", s.String())
	}
	return fmt.Sprintf("otos: %#02x", d.t.addr)
}

// Halt implements conn.Resource. The sensor has no stop or low power
// mode, so this is a no-op.
func (d *Dev) Halt() error {
	return nil
}

// IsConnected verifies the device acknowledges its address and that the
// product ID register reports the expected value.
func (d *Dev) IsConnected() error {
	if err := d.t.ping(); err != nil {
		return err
	}
	id, err := d.t.readReg(regProductID)
	if err != nil {
		return err
	}
	if id != ProductID {
		return fmt.Errorf("otos: unexpected product ID %#02x, want %#02x", id, ProductID)
	}
	return nil
}

// GetVersionInfo returns the hardware and firmware revisions.
func (d *Dev) GetVersionInfo() (hw, fw Version, err error) {
	var raw [2]byte
	if _, err = d.t.readRegion(regHwVersion, raw[:]); err != nil {
		return 0, 0, err
	}
	return Version(raw[0]), Version(raw[1]), nil
}

// SelfTest runs the built-in self test. The test takes roughly 20ms; the
// status register is polled up to 10 times at 5ms intervals until the in
// progress flag clears, then the pass flag decides the result.
func (d *Dev) SelfTest() error {
	if err := d.t.writeReg(regSelfTest, selfTestStart); err != nil {
		return err
	}
	var status uint8
	for i := 0; i < 10; i++ {
		time.Sleep(5 * time.Millisecond)
		var err error
		status, err = d.t.readReg(regSelfTest)
		if err != nil {
			return err
		}
		if status&selfTestInProgress == 0 {
			break
		}
	}
	if status&selfTestPass == 0 {
		return ErrSelfTestFailed
	}
	return nil
}

// CalibrateIMU calibrates the IMU by averaging numSamples samples while
// the sensor is completely still. With waitUntilDone, the remaining
// sample register is polled until it reaches zero, at most numSamples
// times with 3ms between attempts; samples take 2.4ms each, so the
// budget is not exhausted in normal operation.
func (d *Dev) CalibrateIMU(numSamples uint8, waitUntilDone bool) error {
	if err := d.t.writeReg(regIMUCalib, numSamples); err != nil {
		return err
	}
	// One sample period for the register to latch the new count.
	time.Sleep(3 * time.Millisecond)
	if !waitUntilDone {
		return nil
	}
	for attempts := numSamples; attempts > 0; attempts-- {
		remaining, err := d.t.readReg(regIMUCalib)
		if err != nil {
			return err
		}
		if remaining == 0 {
			return nil
		}
		time.Sleep(3 * time.Millisecond)
	}
	return ErrCalibrationTimeout
}

// GetIMUCalibrationProgress returns the number of calibration samples
// remaining. Zero means calibration is complete.
func (d *Dev) GetIMUCalibrationProgress() (uint8, error) {
	return d.t.readReg(regIMUCalib)
}

// GetLinearUnit returns the unit used for the X and Y pose fields.
func (d *Dev) GetLinearUnit() LinearUnit {
	return d.linearUnit
}

// SetLinearUnit sets the unit used for the X and Y pose fields. Values
// already stored on the device are not converted. Setting the active
// unit is a no-op.
func (d *Dev) SetLinearUnit(unit LinearUnit) {
	if unit == d.linearUnit {
		return
	}
	d.linearUnit = unit
	if unit == Meters {
		d.meterToUnit = 1.0
	} else {
		d.meterToUnit = meterToInch
	}
}

// GetAngularUnit returns the unit used for the heading pose field.
func (d *Dev) GetAngularUnit() AngularUnit {
	return d.angularUnit
}

// SetAngularUnit sets the unit used for the heading pose field. Values
// already stored on the device are not converted. Setting the active
// unit is a no-op.
func (d *Dev) SetAngularUnit(unit AngularUnit) {
	if unit == d.angularUnit {
		return
	}
	d.angularUnit = unit
	if unit == Radians {
		d.radToUnit = 1.0
	} else {
		d.radToUnit = radianToDegree
	}
}

// GetLinearScalar returns the multiplicative correction applied to
// translation, in the range [MinScalar, MaxScalar].
func (d *Dev) GetLinearScalar() (float64, error) {
	return d.getScalar(regLinearScalar)
}

// SetLinearScalar sets the multiplicative correction applied to
// translation. scalar must be within [MinScalar, MaxScalar]; out of
// range values are rejected without touching the bus. The value is
// stored in steps of 0.1%.
func (d *Dev) SetLinearScalar(scalar float64) error {
	return d.setScalar(regLinearScalar, scalar)
}

// GetAngularScalar returns the multiplicative correction applied to
// rotation, in the range [MinScalar, MaxScalar].
func (d *Dev) GetAngularScalar() (float64, error) {
	return d.getScalar(regAngularScalar)
}

// SetAngularScalar sets the multiplicative correction applied to
// rotation. The same range and quantization as SetLinearScalar apply.
func (d *Dev) SetAngularScalar(scalar float64) error {
	return d.setScalar(regAngularScalar, scalar)
}

func (d *Dev) getScalar(reg uint8) (float64, error) {
	raw, err := d.t.readReg(reg)
	if err != nil {
		return 0, err
	}
	return 1.0 + float64(int8(raw))*0.001, nil
}

func (d *Dev) setScalar(reg uint8, scalar float64) error {
	if scalar < MinScalar || scalar > MaxScalar {
		return fmt.Errorf("otos: scalar %v out of range [%v, %v]: %w", scalar, MinScalar, MaxScalar, ErrInvalidSetting)
	}
	// +0.5 rounds instead of truncating.
	raw := int8((scalar-1.0)*1000 + 0.5)
	return d.t.writeReg(reg, uint8(raw))
}

// ResetTracking resets the tracked pose to the origin and clears the
// accumulated drift. The offset and calibration scalars are unaffected.
func (d *Dev) ResetTracking() error {
	return d.t.writeReg(regReset, 0x01)
}

// GetSignalProcessConfig returns the signal process configuration.
func (d *Dev) GetSignalProcessConfig() (SignalProcessConfig, error) {
	b, err := d.t.readReg(regSignalProcess)
	if err != nil {
		return SignalProcessConfig{}, err
	}
	return signalProcessFromByte(b), nil
}

// SetSignalProcessConfig sets the signal process configuration.
func (d *Dev) SetSignalProcessConfig(config SignalProcessConfig) error {
	return d.t.writeReg(regSignalProcess, config.toByte())
}

// GetStatus returns the sensor's warning and error flags.
func (d *Dev) GetStatus() (Status, error) {
	b, err := d.t.readReg(regStatus)
	if err != nil {
		return Status{}, err
	}
	return statusFromByte(b), nil
}

// GetOffset returns the pose of the sensor relative to the center of the
// robot it is mounted on.
func (d *Dev) GetOffset() (Pose2D, error) {
	return d.readPose(regOffset, int16ToMeter, int16ToRad)
}

// SetOffset sets the pose of the sensor relative to the center of the
// robot. Must be set whenever the sensor is not mounted at the center of
// rotation, otherwise tracking reports the sensor's own pose.
func (d *Dev) SetOffset(pose Pose2D) error {
	return d.writePose(regOffset, pose, int16ToMeter, int16ToRad)
}

// GetPosition returns the current tracked position.
func (d *Dev) GetPosition() (Pose2D, error) {
	return d.readPose(regPosition, int16ToMeter, int16ToRad)
}

// SetPosition teleports the tracked position, for example after the
// robot has been moved by hand.
func (d *Dev) SetPosition(pose Pose2D) error {
	return d.writePose(regPosition, pose, int16ToMeter, int16ToRad)
}

// GetVelocity returns the current velocity.
func (d *Dev) GetVelocity() (Pose2D, error) {
	return d.readPose(regVelocity, int16ToMps, int16ToRps)
}

// GetAcceleration returns the current acceleration.
func (d *Dev) GetAcceleration() (Pose2D, error) {
	return d.readPose(regAcceleration, int16ToMpss, int16ToRpss)
}

// GetPositionStdDev returns the standard deviation of the tracked
// position. These are statistics of the tracking filter, not an accuracy
// measurement.
func (d *Dev) GetPositionStdDev() (Pose2D, error) {
	return d.readPose(regPosStdDev, int16ToMeter, int16ToRad)
}

// GetVelocityStdDev returns the standard deviation of the velocity.
func (d *Dev) GetVelocityStdDev() (Pose2D, error) {
	return d.readPose(regVelStdDev, int16ToMps, int16ToRps)
}

// GetAccelerationStdDev returns the standard deviation of the
// acceleration.
func (d *Dev) GetAccelerationStdDev() (Pose2D, error) {
	return d.readPose(regAccStdDev, int16ToMpss, int16ToRpss)
}

// GetPosVelAcc returns position, velocity and acceleration in a single
// 18 byte transaction, so the three samples reflect one consistent
// instant.
func (d *Dev) GetPosVelAcc() (Motion, error) {
	var raw [18]byte
	if _, err := d.t.readRegion(regPosition, raw[:]); err != nil {
		return Motion{}, err
	}
	return d.regsToMotion(raw[:]), nil
}

// GetPosVelAccStdDev returns the standard deviations of position,
// velocity and acceleration in a single 18 byte transaction.
func (d *Dev) GetPosVelAccStdDev() (Motion, error) {
	var raw [18]byte
	if _, err := d.t.readRegion(regPosStdDev, raw[:]); err != nil {
		return Motion{}, err
	}
	return d.regsToMotion(raw[:]), nil
}

// GetPosVelAccAndStdDev returns position, velocity and acceleration
// together with their standard deviations in a single 36 byte
// transaction.
func (d *Dev) GetPosVelAccAndStdDev() (Motion, Motion, error) {
	var raw [36]byte
	if _, err := d.t.readRegion(regPosition, raw[:]); err != nil {
		return Motion{}, Motion{}, err
	}
	return d.regsToMotion(raw[:18]), d.regsToMotion(raw[18:]), nil
}

func (d *Dev) readPose(reg uint8, rawToXY, rawToH float64) (Pose2D, error) {
	var raw [6]byte
	if _, err := d.t.readRegion(reg, raw[:]); err != nil {
		return Pose2D{}, err
	}
	return d.regsToPose(raw[:], rawToXY, rawToH), nil
}

func (d *Dev) writePose(reg uint8, pose Pose2D, rawToXY, rawToH float64) error {
	var raw [6]byte
	d.poseToRegs(raw[:], pose, rawToXY, rawToH)
	return d.t.writeRegion(reg, raw[:])
}

// regsToMotion decodes three consecutive 6 byte pose blocks.
func (d *Dev) regsToMotion(raw []byte) Motion {
	return Motion{
		Pos: d.regsToPose(raw[0:6], int16ToMeter, int16ToRad),
		Vel: d.regsToPose(raw[6:12], int16ToMps, int16ToRps),
		Acc: d.regsToPose(raw[12:18], int16ToMpss, int16ToRpss),
	}
}

// regsToPose decodes a 6 byte block of three little-endian signed 16 bit
// registers into physical units.
func (d *Dev) regsToPose(raw []byte, rawToXY, rawToH float64) Pose2D {
	rawX := int16(binary.LittleEndian.Uint16(raw[0:2]))
	rawY := int16(binary.LittleEndian.Uint16(raw[2:4]))
	rawH := int16(binary.LittleEndian.Uint16(raw[4:6]))
	return Pose2D{
		X: float64(rawX) * rawToXY * d.meterToUnit,
		Y: float64(rawY) * rawToXY * d.meterToUnit,
		H: float64(rawH) * rawToH * d.radToUnit,
	}
}

// poseToRegs is the inverse of regsToPose. Dividing by the decode
// constants instead of multiplying by their reciprocals makes
// decode-then-encode lossless in native units; the conversion still
// truncates toward zero, matching the device firmware's expectations.
func (d *Dev) poseToRegs(raw []byte, pose Pose2D, rawToXY, rawToH float64) {
	rawX := int16(pose.X / d.meterToUnit / rawToXY)
	rawY := int16(pose.Y / d.meterToUnit / rawToXY)
	rawH := int16(pose.H / d.radToUnit / rawToH)
	binary.LittleEndian.PutUint16(raw[0:2], uint16(rawX))
	binary.LittleEndian.PutUint16(raw[2:4], uint16(rawY))
	binary.LittleEndian.PutUint16(raw[4:6], uint16(rawH))
}

var _ conn.Resource = &Dev{}
var _ fmt.Stringer = &Dev{}
