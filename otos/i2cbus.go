// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package otos

import (
	"fmt"

	"periph.io/x/conn/v3/i2c"
)

// I2CBus adapts a periph i2c.Bus to the Bus capability.
//
// The i2c.Bus API expresses a held write followed by a read as a single
// combined Tx with a repeated start, so a write with hold set is buffered
// and coalesced into the transfer that follows. A read with hold set is
// issued as a plain read instead: the periph API cannot suppress the stop
// condition, and the device's auto-incrementing register pointer carries
// the continuation across the intervening stop. Bus controllers with
// native hold support can implement Bus directly to get strict
// single-transaction framing.
type I2CBus struct {
	bus     i2c.Bus
	pending []byte
}

// NewI2CBus wraps b for use as the driver's transfer primitive.
func NewI2CBus(b i2c.Bus) *I2CBus {
	return &I2CBus{bus: b}
}

// Write implements Bus.
func (b *I2CBus) Write(addr uint16, w []byte, hold bool) (int, error) {
	if hold {
		b.pending = append(b.pending, w...)
		return len(w), nil
	}
	tx := w
	if len(b.pending) != 0 {
		tx = append(b.pending, w...)
		b.pending = nil
	}
	if err := b.bus.Tx(addr, tx, nil); err != nil {
		return 0, err
	}
	return len(w), nil
}

// Read implements Bus.
func (b *I2CBus) Read(addr uint16, r []byte, hold bool) (int, error) {
	w := b.pending
	b.pending = nil
	if err := b.bus.Tx(addr, w, r); err != nil {
		return 0, err
	}
	return len(r), nil
}

func (b *I2CBus) String() string {
	if s, ok := b.bus.(fmt.Stringer); ok {
		return s.String()
	}
	return "i2c"
}
