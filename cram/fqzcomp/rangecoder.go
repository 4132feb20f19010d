// Copyright ©2017 The bíogo Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package fqzcomp implements the fqzcomp adaptive quality-score codec: a
// context-modelled binary range coder over quantized quality symbols,
// read position and run-length-of-repeat state (spec §4.J).
package fqzcomp

import (
	"bytes"
	"io"
)

// Binary range coder constants, the same carryless-renormalization shape
// used by LZMA's literal/match probability models (the teacher already
// depends on ulikunitz/xz for LZMA block compression; this codec reuses
// the same arithmetic-coding idiom for per-symbol quality modelling).
const (
	topValue      = 1 << 24
	probBits      = 11
	probMax       = 1 << probBits
	probInitial   = probMax / 2
	moveBits      = 5
)

// rangeEncoder is a byte-oriented carryless binary range encoder.
type rangeEncoder struct {
	low   uint64
	rng   uint32
	cache byte
	cacheSize int64
	out   *bytes.Buffer
}

func newRangeEncoder() *rangeEncoder {
	return &rangeEncoder{rng: 0xffffffff, cache: 0, cacheSize: 1, out: new(bytes.Buffer)}
}

func (e *rangeEncoder) shiftLow() {
	if uint32(e.low>>32) != 0 || e.low < 0xff000000 {
		c := e.cache
		for {
			e.out.WriteByte(c + byte(e.low>>32))
			c = 0xff
			e.cacheSize--
			if e.cacheSize == 0 {
				break
			}
		}
		e.cache = byte(e.low >> 24)
	}
	e.cacheSize++
	e.low = (e.low & 0x00ffffff) << 8
}

// encodeBit encodes bit using and adapts the model at p.
func (e *rangeEncoder) encodeBit(p *uint16, bit int) {
	bound := (e.rng >> probBits) * uint32(*p)
	if bit == 0 {
		e.rng = bound
		*p += uint16((probMax - *p) >> moveBits)
	} else {
		e.low += uint64(bound)
		e.rng -= bound
		*p -= *p >> moveBits
	}
	for e.rng < topValue {
		e.rng <<= 8
		e.shiftLow()
	}
}

// finish flushes the encoder and returns the encoded byte stream.
func (e *rangeEncoder) finish() []byte {
	for i := 0; i < 5; i++ {
		e.shiftLow()
	}
	return e.out.Bytes()
}

// rangeDecoder is the dual of rangeEncoder.
type rangeDecoder struct {
	rng  uint32
	code uint32
	in   io.ByteReader
}

func newRangeDecoder(r io.ByteReader) (*rangeDecoder, error) {
	d := &rangeDecoder{rng: 0xffffffff}
	d.in = r
	// The encoder always emits a leading 0x00 byte (the initial cache),
	// which the decoder discards before priming its code register.
	if _, err := d.in.ReadByte(); err != nil {
		return nil, err
	}
	for i := 0; i < 4; i++ {
		b, err := d.in.ReadByte()
		if err != nil {
			return nil, err
		}
		d.code = d.code<<8 | uint32(b)
	}
	return d, nil
}

func (d *rangeDecoder) decodeBit(p *uint16) (int, error) {
	bound := (d.rng >> probBits) * uint32(*p)
	var bit int
	if d.code < bound {
		d.rng = bound
		*p += uint16((probMax - *p) >> moveBits)
		bit = 0
	} else {
		d.code -= bound
		d.rng -= bound
		*p -= *p >> moveBits
		bit = 1
	}
	for d.rng < topValue {
		b, err := d.in.ReadByte()
		if err != nil {
			return 0, err
		}
		d.code = d.code<<8 | uint32(b)
		d.rng <<= 8
	}
	return bit, nil
}

// byteTree is the 256-leaf binary tree of adaptive bit models used to
// code one byte-valued symbol MSB-first, the same decomposition LZMA
// uses for its literal coder.
type byteTree [256]uint16

func newByteTree() *byteTree {
	var t byteTree
	for i := range t {
		t[i] = probInitial
	}
	return &t
}

func (t *byteTree) encode(e *rangeEncoder, symbol byte) {
	m := 1
	for i := 7; i >= 0; i-- {
		bit := int(symbol>>uint(i)) & 1
		e.encodeBit(&t[m], bit)
		m = m<<1 | bit
	}
}

func (t *byteTree) decode(d *rangeDecoder) (byte, error) {
	m := 1
	for i := 0; i < 8; i++ {
		bit, err := d.decodeBit(&t[m])
		if err != nil {
			return 0, err
		}
		m = m<<1 | bit
	}
	return byte(m - 256), nil
}
