// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package otos

import (
	"time"

	"periph.io/x/conn/v3/gpio"
)

// recoveryClocks is the largest number of SCL pulses needed to clock a
// stuck peer through the rest of its byte plus the acknowledge bit.
const recoveryClocks = 9

// recoveryPeriod is the half period of the recovery clock.
const recoveryPeriod = 5 * time.Microsecond

// pinSequencer latches the first pin error so a recovery sequence can be
// written as straight-line code.
type pinSequencer struct {
	err error
}

func (ps *pinSequencer) in(p gpio.PinIn, pull gpio.Pull) {
	if ps.err != nil {
		return
	}
	ps.err = p.In(pull, gpio.NoEdge)
}

func (ps *pinSequencer) out(p gpio.PinOut, l gpio.Level) {
	if ps.err != nil {
		return
	}
	ps.err = p.Out(l)
}

func (ps *pinSequencer) wait() {
	if ps.err != nil {
		return
	}
	time.Sleep(recoveryPeriod)
}

// BusRecovery clocks a stuck bus free. It must be called while the pins
// are under GPIO control, before the bus peripheral claims them.
//
// SDA is sampled as an input while SCL is pulsed low and high up to nine
// times. A peer left mid-transaction by a truncated transfer keeps SDA
// driven until it has clocked out the rest of its byte; once SDA reads
// high the pulsing stops. A manual stop condition is then generated (SDA
// low to high while SCL is high) to force any half-completed transaction
// closed.
//
// The repair is best effort: only pin-level failures are reported, the
// state of the bus itself is not verified.
func BusRecovery(sda, scl gpio.PinIO) error {
	ps := &pinSequencer{}
	ps.in(sda, gpio.PullUp)
	ps.out(scl, gpio.High)

	for i := 0; i < recoveryClocks; i++ {
		ps.out(scl, gpio.Low)
		ps.wait()
		ps.out(scl, gpio.High)
		ps.wait()
		if ps.err != nil {
			return ps.err
		}
		if sda.Read() == gpio.High {
			break
		}
	}

	// Stop condition: SDA rises while SCL is high.
	ps.out(scl, gpio.Low)
	ps.wait()
	ps.out(sda, gpio.Low)
	ps.wait()
	ps.out(scl, gpio.High)
	ps.wait()
	ps.out(sda, gpio.High)
	ps.wait()
	return ps.err
}
