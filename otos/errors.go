// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package otos

import "errors"

var (
	// ErrBusNotInitialized is returned when no bus was supplied to the
	// driver.
	ErrBusNotInitialized = errors.New("bus not initialized")

	// ErrNilBuffer is returned when a nil buffer is supplied to a region
	// read.
	ErrNilBuffer = errors.New("nil read buffer")

	// ErrUnderRead is returned when the device delivered fewer bytes than
	// requested during a chunked region read.
	ErrUnderRead = errors.New("short read from device")

	// ErrConnectionFailed is returned when the driver fails to connect,
	// either because the device does not acknowledge its address or
	// because the product ID register reports an unexpected value.
	ErrConnectionFailed = errors.New("failed to connect to OTOS")

	// ErrInvalidSetting is returned when a supplied value is outside the
	// range the device accepts.
	ErrInvalidSetting = errors.New("invalid setting")

	// ErrSelfTestFailed is returned when the built-in self test does not
	// report a pass, including when it is still running after the polling
	// budget is exhausted.
	ErrSelfTestFailed = errors.New("self test failed")

	// ErrCalibrationTimeout is returned when the IMU calibration did not
	// finish within the polling budget.
	ErrCalibrationTimeout = errors.New("IMU calibration did not complete")
)
