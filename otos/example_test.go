//go:build examples
// +build examples

// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package otos_test

import (
	"fmt"
	"log"
	"time"

	"github.com/openodometry/devices/otos"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/host/v3"
)

// basic example program for the OTOS using this library.
//
// To execute this as a stand-alone program:
//
// Copy the file example_test.go to a new directory.
// rename the file to main.go
// rename the Example() function to main, and the package to main
//
// execute:
//
//	go mod init mydomain.com/otos
//	go mod tidy
//	go build -o main main.go
//	./main
func Example() {
	fmt.Println("otos example program")
	if _, err := host.Init(); err != nil {
		fmt.Println(err)
	}
	bus, err := i2creg.Open("")
	if err != nil {
		log.Fatal(err)
	}
	dev, err := otos.NewI2C(bus, &otos.DefaultOpts)
	if err != nil {
		log.Fatal(err)
	}

	hw, fw, err := dev.GetVersionInfo()
	if err != nil {
		log.Fatal(err)
	}
	fmt.Printf("hardware %s firmware %s\n", hw, fw)

	// Calibrate while the robot is completely still, then track.
	if err := dev.CalibrateIMU(255, true); err != nil {
		log.Fatal(err)
	}
	if err := dev.ResetTracking(); err != nil {
		log.Fatal(err)
	}

	for i := 0; i < 10; i++ {
		pose, err := dev.GetPosition()
		if err != nil {
			log.Fatal(err)
		}
		fmt.Printf("x=%.3f y=%.3f heading=%.3f\n", pose.X, pose.Y, pose.H)
		time.Sleep(500 * time.Millisecond)
	}
}
