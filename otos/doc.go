// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package otos controls a SparkFun Qwiic Optical Tracking Odometry Sensor
// over I²C.
//
// The sensor combines an optical flow sensor with an IMU to track the 2D
// pose of a robot relative to where tracking started. The driver exposes
// position, velocity and acceleration together with their standard
// deviations, IMU calibration, self test, unit conversion and the
// tracking scalars, and includes a GPIO level bus recovery sequence for
// buses left stuck by a truncated transfer.
//
// Product page: https://www.sparkfun.com/products/24904
//
// Register map: https://github.com/sparkfun/SparkFun_Qwiic_OTOS_Arduino_Library
package otos
