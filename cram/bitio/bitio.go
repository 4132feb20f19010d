// Copyright ©2017 The bíogo Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package bitio provides MSB-first bit streams over byte buffers, as used
// by the CRAM core-data stream and its integer/byte-array codecs (spec
// §4.B).
package bitio

import "github.com/biogo/cram/cram/cramio"

// Reader reads individual bits and fixed-width bitfields, most significant
// bit first, from an in-memory byte buffer.
type Reader struct {
	b       []byte
	bytePos int
	bitPos  uint // 0 is the MSB of b[bytePos]
}

// NewReader returns a Reader over b.
func NewReader(b []byte) *Reader {
	return &Reader{b: b}
}

// ReadBit reads a single bit, returning 0 or 1. It returns
// cramio.ErrTruncated if the buffer is exhausted.
func (r *Reader) ReadBit() (int, error) {
	if r.bytePos >= len(r.b) {
		return 0, cramio.ErrTruncated
	}
	bit := (r.b[r.bytePos] >> (7 - r.bitPos)) & 1
	r.bitPos++
	if r.bitPos == 8 {
		r.bitPos = 0
		r.bytePos++
	}
	return int(bit), nil
}

// ReadBits reads n bits (0 <= n <= 32) and returns them as the low n bits
// of a zero-extended int32.
func (r *Reader) ReadBits(n int) (int32, error) {
	var v int32
	for i := 0; i < n; i++ {
		bit, err := r.ReadBit()
		if err != nil {
			return 0, err
		}
		v = (v << 1) | int32(bit)
	}
	return v, nil
}

// ReadUint32 reads n bits (0 <= n <= 32) into a zero-extended uint32.
func (r *Reader) ReadUint32(n int) (uint32, error) {
	v, err := r.ReadBits(n)
	return uint32(v), err
}

// AlignedBytePos returns the current byte offset and whether the reader
// sits on a byte boundary.
func (r *Reader) AlignedBytePos() (pos int, aligned bool) {
	return r.bytePos, r.bitPos == 0
}

// Writer accumulates bits most significant bit first into a growable byte
// buffer.
type Writer struct {
	buf  []byte
	cur  byte
	nBit uint
}

// NewWriter returns a new, empty Writer.
func NewWriter() *Writer {
	return &Writer{}
}

// WriteBit appends a single bit.
func (w *Writer) WriteBit(bit int) {
	w.cur = (w.cur << 1) | byte(bit&1)
	w.nBit++
	if w.nBit == 8 {
		w.buf = append(w.buf, w.cur)
		w.cur = 0
		w.nBit = 0
	}
}

// WriteU32 appends the low n bits of value (0 <= n <= 32), most
// significant bit first.
func (w *Writer) WriteU32(value uint32, n int) {
	for i := n - 1; i >= 0; i-- {
		w.WriteBit(int((value >> uint(i)) & 1))
	}
}

// WriteBits appends the low n bits of value, treating it as unsigned.
func (w *Writer) WriteBits(value int32, n int) {
	w.WriteU32(uint32(value), n)
}

// Finish pads any partial trailing byte with zero bits and returns the
// accumulated buffer. The Writer remains usable afterward; subsequent
// writes continue to append complete bytes.
func (w *Writer) Finish() []byte {
	if w.nBit != 0 {
		w.buf = append(w.buf, w.cur<<(8-w.nBit))
		w.cur = 0
		w.nBit = 0
	}
	return w.buf
}

// Len returns the number of whole bytes currently flushed plus one for an
// in-progress partial byte, i.e. an upper bound on Finish's eventual
// length.
func (w *Writer) Len() int {
	n := len(w.buf)
	if w.nBit != 0 {
		n++
	}
	return n
}
