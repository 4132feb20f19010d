// Copyright ©2017 The bíogo Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package vlq provides the uint7/sint7 variable-length integer encodings
// introduced in CRAM 4.0. The shape is the same continuation-bit VLQ used
// by protobuf varints, but packed big-endian within each encoded value: the
// most significant 7-bit group is emitted first, and every byte but the
// last has its top bit set to signal continuation.
//
// See the CRAM format specification §4.A.
package vlq

import (
	"errors"
	"io"
)

// ErrOverflow is returned when a uint7/uint7_64 continuation sequence is
// longer than can be represented in the destination width.
var ErrOverflow = errors.New("vlq: integer overflow")

// maxBytes32 and maxBytes64 bound how many continuation bytes are legal
// before decoding fails with ErrOverflow, per spec §4.A.
const (
	maxBytes32 = 5
	maxBytes64 = 10
)

// LenUint64 returns the number of bytes required to encode u as a uint7_64.
func LenUint64(u uint64) int {
	n := 1
	for u >= 0x80 {
		u >>= 7
		n++
	}
	return n
}

// LenUint32 returns the number of bytes required to encode u as a uint7.
func LenUint32(u uint32) int { return LenUint64(uint64(u)) }

// AppendUint64 appends the uint7_64 encoding of u to b and returns the
// extended slice. Groups are emitted most-significant first, so the
// continuation bit marks every byte but the last.
func AppendUint64(b []byte, u uint64) []byte {
	var groups [maxBytes64]byte
	n := 0
	for {
		groups[n] = byte(u & 0x7f)
		u >>= 7
		n++
		if u == 0 {
			break
		}
	}
	for i := n - 1; i > 0; i-- {
		b = append(b, groups[i]|0x80)
	}
	return append(b, groups[0])
}

// AppendUint32 appends the uint7 encoding of u to b and returns the
// extended slice.
func AppendUint32(b []byte, u uint32) []byte {
	return AppendUint64(b, uint64(u))
}

// DecodeUint64 decodes a uint7_64 from b, returning the value, the number
// of bytes consumed, and whether decoding succeeded. A length of zero
// input, or a continuation run exceeding 10 bytes, is reported as not ok.
// Groups arrive most-significant first, so each continuation byte shifts
// the accumulator left before folding in the new low 7 bits.
func DecodeUint64(b []byte) (v uint64, n int, ok bool) {
	for n = 0; n < len(b) && n < maxBytes64; n++ {
		c := b[n]
		v = v<<7 | uint64(c&0x7f)
		if c&0x80 == 0 {
			return v, n + 1, true
		}
	}
	return 0, n, false
}

// DecodeUint32 decodes a uint7 from b in the same fashion as DecodeUint64,
// bounding the continuation run to 5 bytes.
func DecodeUint32(b []byte) (v uint32, n int, ok bool) {
	for n = 0; n < len(b) && n < maxBytes32; n++ {
		c := b[n]
		v = v<<7 | uint32(c&0x7f)
		if c&0x80 == 0 {
			return v, n + 1, true
		}
	}
	return 0, n, false
}

// ZigZagEncode64 maps a signed value onto the unsigned range so that small
// magnitude values, positive or negative, encode to small VLQs.
func ZigZagEncode64(v int64) uint64 {
	return uint64((v << 1) ^ (v >> 63))
}

// ZigZagDecode64 reverses ZigZagEncode64.
func ZigZagDecode64(u uint64) int64 {
	return int64(u>>1) ^ -int64(u&1)
}

// ZigZagEncode32 is the 32-bit analog of ZigZagEncode64.
func ZigZagEncode32(v int32) uint32 {
	return uint32((v << 1) ^ (v >> 31))
}

// ZigZagDecode32 reverses ZigZagEncode32.
func ZigZagDecode32(u uint32) int32 {
	return int32(u>>1) ^ -int32(u&1)
}

// ReadUint64 reads a uint7_64 from r. Groups arrive most-significant
// first, so each continuation byte shifts the accumulator left before
// folding in the new low 7 bits.
func ReadUint64(r io.ByteReader) (uint64, error) {
	var v uint64
	for n := 0; n < maxBytes64; n++ {
		c, err := r.ReadByte()
		if err != nil {
			return 0, err
		}
		v = v<<7 | uint64(c&0x7f)
		if c&0x80 == 0 {
			return v, nil
		}
	}
	return 0, ErrOverflow
}

// ReadUint32 reads a uint7 from r.
func ReadUint32(r io.ByteReader) (uint32, error) {
	var v uint32
	for n := 0; n < maxBytes32; n++ {
		c, err := r.ReadByte()
		if err != nil {
			return 0, err
		}
		v = v<<7 | uint32(c&0x7f)
		if c&0x80 == 0 {
			return v, nil
		}
	}
	return 0, ErrOverflow
}

// ReadSint64 reads a zigzag-encoded sint7_64 from r.
func ReadSint64(r io.ByteReader) (int64, error) {
	u, err := ReadUint64(r)
	if err != nil {
		return 0, err
	}
	return ZigZagDecode64(u), nil
}

// ReadSint32 reads a zigzag-encoded sint7 from r.
func ReadSint32(r io.ByteReader) (int32, error) {
	u, err := ReadUint32(r)
	if err != nil {
		return 0, err
	}
	return ZigZagDecode32(u), nil
}

// WriteUint64 writes u to w as a uint7_64, most-significant group first.
func WriteUint64(w io.ByteWriter, u uint64) error {
	var groups [maxBytes64]byte
	n := 0
	for {
		groups[n] = byte(u & 0x7f)
		u >>= 7
		n++
		if u == 0 {
			break
		}
	}
	for i := n - 1; i > 0; i-- {
		if err := w.WriteByte(groups[i] | 0x80); err != nil {
			return err
		}
	}
	return w.WriteByte(groups[0])
}

// WriteUint32 writes u to w as a uint7.
func WriteUint32(w io.ByteWriter, u uint32) error {
	return WriteUint64(w, uint64(u))
}

// WriteSint64 writes v to w as a zigzag-encoded sint7_64.
func WriteSint64(w io.ByteWriter, v int64) error {
	return WriteUint64(w, ZigZagEncode64(v))
}

// WriteSint32 writes v to w as a zigzag-encoded sint7.
func WriteSint32(w io.ByteWriter, v int32) error {
	return WriteUint32(w, ZigZagEncode32(v))
}
