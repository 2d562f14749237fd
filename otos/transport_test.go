// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package otos

import (
	"bytes"
	"errors"
	"testing"
)

// busOp is one recorded transfer on the fake bus.
type busOp struct {
	write bool
	data  []byte // written bytes, or the requested read length for reads
	n     int
	hold  bool
}

// fakeBus implements Bus and records every transfer. Reads are served
// sequentially from readData; once it runs out, reads come back short.
type fakeBus struct {
	ops      []busOp
	readData []byte
	writeErr error
	readErr  error
	// writeAccept, when non-negative, is reported as the number of bytes
	// the device accepted for every write.
	writeAccept int
}

func newFakeBus() *fakeBus {
	return &fakeBus{writeAccept: -1}
}

func (b *fakeBus) Write(addr uint16, w []byte, hold bool) (int, error) {
	if b.writeErr != nil {
		return 0, b.writeErr
	}
	n := len(w)
	if b.writeAccept >= 0 {
		n = b.writeAccept
	}
	b.ops = append(b.ops, busOp{write: true, data: append([]byte(nil), w...), n: n, hold: hold})
	return n, nil
}

func (b *fakeBus) Read(addr uint16, r []byte, hold bool) (int, error) {
	if b.readErr != nil {
		return 0, b.readErr
	}
	n := copy(r, b.readData)
	b.readData = b.readData[n:]
	b.ops = append(b.ops, busOp{data: append([]byte(nil), r[:n]...), n: n, hold: hold})
	return n, nil
}

func (b *fakeBus) reads() int {
	count := 0
	for _, op := range b.ops {
		if !op.write {
			count++
		}
	}
	return count
}

func TestTransportNilBus(t *testing.T) {
	tr := &transport{addr: I2CAddr}
	if err := tr.ping(); !errors.Is(err, ErrBusNotInitialized) {
		t.Errorf("ping: expected ErrBusNotInitialized, got %v", err)
	}
	if _, err := tr.readReg(regProductID); !errors.Is(err, ErrBusNotInitialized) {
		t.Errorf("readReg: expected ErrBusNotInitialized, got %v", err)
	}
	if err := tr.writeReg(regReset, 1); !errors.Is(err, ErrBusNotInitialized) {
		t.Errorf("writeReg: expected ErrBusNotInitialized, got %v", err)
	}
	if _, err := tr.readRegion(regPosition, make([]byte, 6)); !errors.Is(err, ErrBusNotInitialized) {
		t.Errorf("readRegion: expected ErrBusNotInitialized, got %v", err)
	}
	if err := tr.writeRegion(regPosition, make([]byte, 6)); !errors.Is(err, ErrBusNotInitialized) {
		t.Errorf("writeRegion: expected ErrBusNotInitialized, got %v", err)
	}
}

func TestTransportPing(t *testing.T) {
	b := newFakeBus()
	tr := &transport{bus: b, addr: I2CAddr}
	if err := tr.ping(); err != nil {
		t.Fatal(err)
	}
	if len(b.ops) != 1 || !b.ops[0].write || b.ops[0].hold {
		t.Fatalf("unexpected ops: %#v", b.ops)
	}
	if !bytes.Equal(b.ops[0].data, []byte{0}) {
		t.Errorf("ping probe: got %#v", b.ops[0].data)
	}
}

func TestTransportReadReg(t *testing.T) {
	b := newFakeBus()
	b.readData = []byte{0x5F}
	tr := &transport{bus: b, addr: I2CAddr}
	v, err := tr.readReg(regProductID)
	if err != nil {
		t.Fatal(err)
	}
	if v != 0x5F {
		t.Errorf("got %#02x, want 0x5f", v)
	}
	// The address write must hold the bus so the read continues the same
	// transaction.
	if len(b.ops) != 2 || !b.ops[0].write || !b.ops[0].hold || b.ops[1].write || b.ops[1].hold {
		t.Fatalf("unexpected ops: %#v", b.ops)
	}
}

func TestTransportWriteReg(t *testing.T) {
	b := newFakeBus()
	tr := &transport{bus: b, addr: I2CAddr}
	if err := tr.writeReg(regReset, 0x01); err != nil {
		t.Fatal(err)
	}
	if len(b.ops) != 1 || !bytes.Equal(b.ops[0].data, []byte{regReset, 0x01}) || b.ops[0].hold {
		t.Fatalf("unexpected ops: %#v", b.ops)
	}

	// A write the device does not fully accept must fail.
	b = newFakeBus()
	b.writeAccept = 1
	tr = &transport{bus: b, addr: I2CAddr}
	if err := tr.writeReg(regReset, 0x01); err == nil {
		t.Error("expected error on partially accepted write")
	}
}

func TestTransportReadRegionChunking(t *testing.T) {
	b := newFakeBus()
	b.readData = make([]byte, 36)
	for i := range b.readData {
		b.readData[i] = byte(i)
	}
	tr := &transport{bus: b, addr: I2CAddr}

	buf := make([]byte, 36)
	n, err := tr.readRegion(regPosition, buf)
	if err != nil {
		t.Fatal(err)
	}
	if n != 36 {
		t.Fatalf("read %d bytes, want 36", n)
	}
	for i := range buf {
		if buf[i] != byte(i) {
			t.Fatalf("buf[%d] = %#02x", i, buf[i])
		}
	}
	// One held address write, then a held 32 byte chunk, then the final
	// 4 byte chunk releasing the bus.
	if len(b.ops) != 3 {
		t.Fatalf("expected 3 ops, got %#v", b.ops)
	}
	if !b.ops[0].write || !b.ops[0].hold || !bytes.Equal(b.ops[0].data, []byte{regPosition}) {
		t.Errorf("address write: %#v", b.ops[0])
	}
	if b.ops[1].write || b.ops[1].n != chunkSize || !b.ops[1].hold {
		t.Errorf("first chunk: %#v", b.ops[1])
	}
	if b.ops[2].write || b.ops[2].n != 4 || b.ops[2].hold {
		t.Errorf("final chunk: %#v", b.ops[2])
	}
}

func TestTransportReadRegionSingleChunk(t *testing.T) {
	b := newFakeBus()
	b.readData = make([]byte, 6)
	tr := &transport{bus: b, addr: I2CAddr}
	if _, err := tr.readRegion(regPosition, make([]byte, 6)); err != nil {
		t.Fatal(err)
	}
	// A region that fits one chunk must not hold the bus on the read.
	if len(b.ops) != 2 || b.ops[1].hold {
		t.Fatalf("unexpected ops: %#v", b.ops)
	}
}

func TestTransportReadRegionUnderRead(t *testing.T) {
	b := newFakeBus()
	b.readData = make([]byte, 35) // one byte short of the request
	tr := &transport{bus: b, addr: I2CAddr}
	n, err := tr.readRegion(regPosition, make([]byte, 36))
	if !errors.Is(err, ErrUnderRead) {
		t.Fatalf("expected ErrUnderRead, got %v", err)
	}
	if n != 35 {
		t.Errorf("reported %d bytes read, want 35", n)
	}
}

func TestTransportReadRegionNilBuffer(t *testing.T) {
	b := newFakeBus()
	tr := &transport{bus: b, addr: I2CAddr}
	if _, err := tr.readRegion(regPosition, nil); !errors.Is(err, ErrNilBuffer) {
		t.Fatalf("expected ErrNilBuffer, got %v", err)
	}
	if len(b.ops) != 0 {
		t.Errorf("bus touched despite nil buffer: %#v", b.ops)
	}
}

func TestTransportWriteRegion(t *testing.T) {
	b := newFakeBus()
	tr := &transport{bus: b, addr: I2CAddr}
	data := []byte{1, 2, 3, 4, 5, 6}
	if err := tr.writeRegion(regOffset, data); err != nil {
		t.Fatal(err)
	}
	want := append([]byte{regOffset}, data...)
	if len(b.ops) != 1 || !bytes.Equal(b.ops[0].data, want) || b.ops[0].hold {
		t.Fatalf("unexpected ops: %#v", b.ops)
	}

	// Oversized regions cannot be written in one transaction.
	b = newFakeBus()
	tr = &transport{bus: b, addr: I2CAddr}
	if err := tr.writeRegion(regOffset, make([]byte, chunkSize+1)); err == nil {
		t.Error("expected error for oversized region write")
	}
	if len(b.ops) != 0 {
		t.Errorf("bus touched despite oversized region: %#v", b.ops)
	}
}

func TestTransportErrorPropagation(t *testing.T) {
	readErr := errors.New("nak")
	b := newFakeBus()
	b.readErr = readErr
	tr := &transport{bus: b, addr: I2CAddr}
	if _, err := tr.readRegion(regPosition, make([]byte, 6)); !errors.Is(err, readErr) {
		t.Errorf("expected read error to propagate, got %v", err)
	}

	writeErr := errors.New("arbitration lost")
	b = newFakeBus()
	b.writeErr = writeErr
	tr = &transport{bus: b, addr: I2CAddr}
	if err := tr.ping(); !errors.Is(err, writeErr) {
		t.Errorf("expected write error to propagate, got %v", err)
	}
}
