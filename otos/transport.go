// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package otos

import (
	"fmt"
)

// Bus is the blocking two-wire transfer capability the driver needs from
// its host. hold suppresses the transaction-terminating stop condition so
// that the next call on the same address is seen by the device as a
// continuation of the same logical transaction.
//
// I2CBus adapts a periph i2c.Bus to this interface. A custom
// implementation can be supplied to drive the sensor through a bus
// controller that supports hold natively, or to simulate the device in
// tests.
type Bus interface {
	// Write sends w to the device and returns the number of bytes the
	// device accepted.
	Write(addr uint16, w []byte, hold bool) (int, error)
	// Read fills r from the device and returns the number of bytes the
	// device delivered, which may be short.
	Read(addr uint16, r []byte, hold bool) (int, error)
}

// chunkSize is the largest number of bytes moved by a single transfer
// call. Region reads larger than this are split, holding the bus between
// chunks so the device sees one transaction.
const chunkSize = 32

// transport moves bytes between the driver and the device's register
// space. There is no retry logic at this layer; every failure is
// surfaced to the caller unchanged.
type transport struct {
	bus  Bus
	addr uint16
}

// ping verifies the device acknowledges its address by writing a single
// zero probe byte.
func (t *transport) ping() error {
	if t.bus == nil {
		return ErrBusNotInitialized
	}
	if _, err := t.bus.Write(t.addr, []byte{0}, false); err != nil {
		return fmt.Errorf("otos ping: %w", err)
	}
	return nil
}

// readReg reads a single register. The address write holds the bus so
// the read is the same logical transaction.
func (t *transport) readReg(reg uint8) (uint8, error) {
	if t.bus == nil {
		return 0, ErrBusNotInitialized
	}
	if _, err := t.bus.Write(t.addr, []byte{reg}, true); err != nil {
		return 0, fmt.Errorf("otos read reg %#02x: %w", reg, err)
	}
	var buf [1]byte
	n, err := t.bus.Read(t.addr, buf[:], false)
	if err != nil {
		return 0, fmt.Errorf("otos read reg %#02x: %w", reg, err)
	}
	if n != 1 {
		return 0, fmt.Errorf("otos read reg %#02x: %w", reg, ErrUnderRead)
	}
	return buf[0], nil
}

// writeReg writes a single register as one combined [reg, value]
// transfer.
func (t *transport) writeReg(reg, value uint8) error {
	if t.bus == nil {
		return ErrBusNotInitialized
	}
	n, err := t.bus.Write(t.addr, []byte{reg, value}, false)
	if err != nil {
		return fmt.Errorf("otos write reg %#02x: %w", reg, err)
	}
	if n != 2 {
		return fmt.Errorf("otos write reg %#02x: accepted %d of 2 bytes", reg, n)
	}
	return nil
}

// readRegion reads len(buf) contiguous registers starting at reg. The
// address is written once, then the data is read in chunks of at most
// chunkSize bytes, holding the bus on every chunk but the last. Returns
// the number of bytes actually read; on a short transfer the error is
// ErrUnderRead and buf beyond the returned count is undefined.
func (t *transport) readRegion(reg uint8, buf []byte) (int, error) {
	if t.bus == nil {
		return 0, ErrBusNotInitialized
	}
	if buf == nil {
		return 0, ErrNilBuffer
	}
	if _, err := t.bus.Write(t.addr, []byte{reg}, true); err != nil {
		return 0, fmt.Errorf("otos read region %#02x: %w", reg, err)
	}
	read := 0
	for read < len(buf) {
		chunk := len(buf) - read
		if chunk > chunkSize {
			chunk = chunkSize
		}
		hold := len(buf)-read > chunk
		n, err := t.bus.Read(t.addr, buf[read:read+chunk], hold)
		if err != nil {
			return read, fmt.Errorf("otos read region %#02x: %w", reg, err)
		}
		read += n
		if n < chunk {
			break
		}
	}
	if read != len(buf) {
		return read, fmt.Errorf("otos read region %#02x: got %d of %d bytes: %w", reg, read, len(buf), ErrUnderRead)
	}
	return read, nil
}

// writeRegion writes len(data) contiguous registers starting at reg as a
// single [reg ++ data] transfer. data larger than chunkSize cannot be
// moved in one transaction and is rejected.
func (t *transport) writeRegion(reg uint8, data []byte) error {
	if t.bus == nil {
		return ErrBusNotInitialized
	}
	if len(data) > chunkSize {
		return fmt.Errorf("otos write region %#02x: %d bytes exceeds %d byte limit", reg, len(data), chunkSize)
	}
	buf := make([]byte, 0, 1+len(data))
	buf = append(buf, reg)
	buf = append(buf, data...)
	n, err := t.bus.Write(t.addr, buf, false)
	if err != nil {
		return fmt.Errorf("otos write region %#02x: %w", reg, err)
	}
	if n != len(buf) {
		return fmt.Errorf("otos write region %#02x: accepted %d of %d bytes", reg, n, len(buf))
	}
	return nil
}
