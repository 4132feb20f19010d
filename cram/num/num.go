// Copyright ©2017 The bíogo Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package num centralises the version-dispatched integer encodings used
// throughout the CRAM format: ITF8/LTF8 below version 4.0, and the uint7/
// sint7 VLQs (package vlq) from version 4.0 onward. Every call site in this
// module goes through these functions rather than inspecting a Version's
// Major/Minor fields directly, so that the 4.0 boundary is handled in one
// place, per spec §9.
package num

import (
	"encoding/binary"
	"io"
	"math/bits"

	"github.com/biogo/cram/cram/cramio"
	"github.com/biogo/cram/cram/vlq"
)

// byteReader adapts an io.Reader to io.ByteReader without requiring
// callers to wrap every reader in a bufio.Reader.
type byteReader struct {
	r   io.Reader
	buf [1]byte
}

func (b *byteReader) ReadByte() (byte, error) {
	_, err := io.ReadFull(b.r, b.buf[:])
	if err != nil {
		if err == io.EOF {
			err = io.ErrUnexpectedEOF
		}
		return 0, err
	}
	return b.buf[0], nil
}

// asByteReader returns r as an io.ByteReader, wrapping it only if
// necessary.
func asByteReader(r io.Reader) io.ByteReader {
	if br, ok := r.(io.ByteReader); ok {
		return br
	}
	return &byteReader{r: r}
}

// ReadITF8 reads a CRAM ITF8-encoded int32 from r.
func ReadITF8(r io.Reader) (int32, error) {
	var buf [5]byte
	if _, err := io.ReadFull(r, buf[:1]); err != nil {
		if err == io.EOF {
			return 0, err
		}
		return 0, io.ErrUnexpectedEOF
	}
	v, n, ok := itf8Decode(buf[:1])
	if ok {
		return v, nil
	}
	if _, err := io.ReadFull(r, buf[1:n]); err != nil {
		return 0, io.ErrUnexpectedEOF
	}
	v, _, ok = itf8Decode(buf[:n])
	if !ok {
		return 0, cramio.Invalidf("num: invalid itf8 stream %#v", buf[:n])
	}
	return v, nil
}

// WriteITF8 writes v to w as a CRAM ITF8 integer.
func WriteITF8(w io.Writer, v int32) error {
	var buf [5]byte
	n := itf8Encode(buf[:], v)
	_, err := w.Write(buf[:n])
	return err
}

// itf8Decode decodes the ITF-8 encoding in b (CRAM format specification
// section 2.3 for versions below 4.0) and returns the int32 value, its
// width in bytes and whether the decoding was successful. If the encoding
// is invalid, the expected length of b and false are returned. If b has
// zero length, zero, zero and false are returned.
func itf8Decode(b []byte) (v int32, n int, ok bool) {
	if len(b) == 0 {
		return 0, 0, false
	}
	n = bits.LeadingZeros8(^(b[0] & 0xf0)) + 1
	if len(b) < n {
		return 0, n, false
	}
	switch n {
	case 1:
		v = int32(b[0])
	case 2:
		v = int32(b[1]) | int32(b[0]&0x3f)<<8
	case 3:
		v = int32(b[2]) | int32(b[1])<<8 | int32(b[0]&0x1f)<<16
	case 4:
		v = int32(b[3]) | int32(b[2])<<8 | int32(b[1])<<16 | int32(b[0]&0x0f)<<24
	case 5:
		v = int32(b[4]&0x0f) | int32(b[3])<<4 | int32(b[2])<<12 | int32(b[1])<<20 | int32(b[0]&0x0f)<<28
	}
	return v, n, true
}

// itf8Encode encodes v as an ITF-8 into b, which must be large enough, and
// returns the number of bytes written.
func itf8Encode(b []byte, v int32) int {
	u := uint32(v)
	switch {
	case u < 0x80:
		b[0] = byte(u)
		return 1
	case u < 0x4000:
		_ = b[1]
		b[0] = byte(u>>8)&0x3f | 0x80
		b[1] = byte(u)
		return 2
	case u < 0x200000:
		_ = b[2]
		b[0] = byte(u>>16)&0x1f | 0xc0
		b[1] = byte(u >> 8)
		b[2] = byte(u)
		return 3
	case u < 0x10000000:
		_ = b[3]
		b[0] = byte(u>>24)&0x0f | 0xe0
		b[1] = byte(u >> 16)
		b[2] = byte(u >> 8)
		b[3] = byte(u)
		return 4
	default:
		_ = b[4]
		b[0] = byte(u>>28) | 0xf0
		b[1] = byte(u >> 20)
		b[2] = byte(u >> 12)
		b[3] = byte(u >> 4)
		b[4] = byte(u)
		return 5
	}
}

// ReadLTF8 reads a CRAM LTF8-encoded int64 from r.
func ReadLTF8(r io.Reader) (int64, error) {
	var buf [9]byte
	if _, err := io.ReadFull(r, buf[:1]); err != nil {
		if err == io.EOF {
			return 0, err
		}
		return 0, io.ErrUnexpectedEOF
	}
	v, n, ok := ltf8Decode(buf[:1])
	if ok {
		return v, nil
	}
	if _, err := io.ReadFull(r, buf[1:n]); err != nil {
		return 0, io.ErrUnexpectedEOF
	}
	v, _, ok = ltf8Decode(buf[:n])
	if !ok {
		return 0, cramio.Invalidf("num: invalid ltf8 stream %#v", buf[:n])
	}
	return v, nil
}

// WriteLTF8 writes v to w as a CRAM LTF8 integer.
func WriteLTF8(w io.Writer, v int64) error {
	var buf [9]byte
	n := ltf8Encode(buf[:], v)
	_, err := w.Write(buf[:n])
	return err
}

var ltf8Pop = [16]byte{
	0:  8,
	1:  7,
	4:  3,
	5:  6,
	6:  1,
	9:  4,
	10: 2,
	11: 5,
	14: 0,
}

// ltf8Nlo returns the number of leading set bits in x.
func ltf8Nlo(x byte) int {
	x = ^x
	x |= x >> 1
	x |= x >> 2
	x |= x >> 4
	x *= 27
	return int(ltf8Pop[x>>4])
}

// ltf8Decode decodes the LTF-8 encoding in b (CRAM format specification
// section 2.3 for versions below 4.0) and returns the int64 value, its
// width in bytes and whether the decoding was successful. If the encoding
// is invalid, the expected length of b and false are returned. If b has
// zero length, zero, zero and false are returned.
func ltf8Decode(b []byte) (v int64, n int, ok bool) {
	if len(b) == 0 {
		return 0, 0, false
	}
	n = ltf8Nlo(b[0]) + 1
	if len(b) < n {
		return 0, n, false
	}
	switch n {
	case 1:
		v = int64(b[0])
	case 2:
		v = int64(b[1]) | int64(b[0]&0x3f)<<8
	case 3:
		v = int64(b[2]) | int64(b[1])<<8 | int64(b[0]&0x1f)<<16
	case 4:
		v = int64(b[3]) | int64(b[2])<<8 | int64(b[1])<<16 | int64(b[0]&0x0f)<<24
	case 5:
		v = int64(b[4]) | int64(b[3])<<8 | int64(b[2])<<16 | int64(b[1])<<24 | int64(b[0]&0x07)<<32
	case 6:
		v = int64(b[5]) | int64(b[4])<<8 | int64(b[3])<<16 | int64(b[2])<<24 | int64(b[1])<<32 | int64(b[0]&0x03)<<40
	case 7:
		v = int64(b[6]) | int64(b[5])<<8 | int64(b[4])<<16 | int64(b[3])<<24 | int64(b[2])<<32 | int64(b[1])<<40 | int64(b[0]&0x01)<<48
	case 8:
		v = int64(b[7]) | int64(b[6])<<8 | int64(b[5])<<16 | int64(b[4])<<24 | int64(b[3])<<32 | int64(b[2])<<40 | int64(b[1])<<48
	case 9:
		v = int64(b[8]) | int64(b[7])<<8 | int64(b[6])<<16 | int64(b[5])<<24 | int64(b[4])<<32 | int64(b[3])<<40 | int64(b[2])<<48 | int64(b[1])<<56
	}
	return v, n, true
}

// ltf8Encode encodes v as an LTF-8 into b, which must be large enough, and
// returns the number of bytes written.
func ltf8Encode(b []byte, v int64) int {
	u := uint64(v)
	switch {
	case u < 0x80:
		b[0] = byte(u)
		return 1
	case u < 0x4000:
		_ = b[1]
		b[0] = byte(u>>8)&0x3f | 0x80
		b[1] = byte(u)
		return 2
	case u < 0x200000:
		_ = b[2]
		b[0] = byte(u>>16)&0x1f | 0xc0
		b[1] = byte(u >> 8)
		b[2] = byte(u)
		return 3
	case u < 0x10000000:
		_ = b[3]
		b[0] = byte(u>>24)&0x0f | 0xe0
		b[1] = byte(u >> 16)
		b[2] = byte(u >> 8)
		b[3] = byte(u)
		return 4
	case u < 0x800000000:
		_ = b[4]
		b[0] = byte(u>>32)&0x07 | 0xf0
		b[1] = byte(u >> 24)
		b[2] = byte(u >> 16)
		b[3] = byte(u >> 8)
		b[4] = byte(u)
		return 5
	case u < 0x40000000000:
		_ = b[5]
		b[0] = byte(u>>40)&0x03 | 0xf8
		b[1] = byte(u >> 32)
		b[2] = byte(u >> 24)
		b[3] = byte(u >> 16)
		b[4] = byte(u >> 8)
		b[5] = byte(u)
		return 6
	case u < 0x2000000000000:
		_ = b[6]
		b[0] = byte(u>>48)&0x01 | 0xfc
		b[1] = byte(u >> 40)
		b[2] = byte(u >> 32)
		b[3] = byte(u >> 24)
		b[4] = byte(u >> 16)
		b[5] = byte(u >> 8)
		b[6] = byte(u)
		return 7
	case u < 0x100000000000000:
		_ = b[7]
		b[0] = 0xfe
		b[1] = byte(u >> 48)
		b[2] = byte(u >> 40)
		b[3] = byte(u >> 32)
		b[4] = byte(u >> 24)
		b[5] = byte(u >> 16)
		b[6] = byte(u >> 8)
		b[7] = byte(u)
		return 8
	default:
		_ = b[8]
		b[0] = 0xff
		b[1] = byte(u >> 56)
		b[2] = byte(u >> 48)
		b[3] = byte(u >> 40)
		b[4] = byte(u >> 32)
		b[5] = byte(u >> 24)
		b[6] = byte(u >> 16)
		b[7] = byte(u >> 8)
		b[8] = byte(u)
		return 9
	}
}

// ReadSignedInt reads an integer using ITF8 on versions below 4.0, and a
// zigzag sint7 on 4.0 and above.
func ReadSignedInt(r io.Reader, v cramio.Version) (int32, error) {
	if v.UsesVLQ() {
		return vlq.ReadSint32(asByteReader(r))
	}
	return ReadITF8(r)
}

// WriteSignedInt is the dual of ReadSignedInt.
func WriteSignedInt(w io.Writer, v cramio.Version, x int32) error {
	if v.UsesVLQ() {
		bw, ok := w.(io.ByteWriter)
		if !ok {
			return writeViaBuffer(w, func(b *bufferWriter) error { return vlq.WriteSint32(b, x) })
		}
		return vlq.WriteSint32(bw, x)
	}
	return WriteITF8(w, x)
}

// ReadHeaderInt reads the container-header flavour of an integer: ITF8 on
// versions below 4.0, or a uint7 bit-cast to int32 on 4.0 and above. This
// is deliberately asymmetric with ReadSignedInt: it is used for the
// container header's reference_sequence_id and embedded-reference block
// id, which v4.0 encodes as an unsigned bit-cast rather than a zigzag
// value (spec §4.A, §9).
func ReadHeaderInt(r io.Reader, v cramio.Version) (int32, error) {
	if v.UsesVLQ() {
		u, err := vlq.ReadUint32(asByteReader(r))
		if err != nil {
			return 0, err
		}
		return int32(u), nil
	}
	return ReadITF8(r)
}

// WriteHeaderInt is the dual of ReadHeaderInt.
func WriteHeaderInt(w io.Writer, v cramio.Version, x int32) error {
	if v.UsesVLQ() {
		bw, ok := w.(io.ByteWriter)
		if !ok {
			return writeViaBuffer(w, func(b *bufferWriter) error { return vlq.WriteUint32(b, uint32(x)) })
		}
		return vlq.WriteUint32(bw, uint32(x))
	}
	return WriteITF8(w, x)
}

// ReadUnsignedInt reads an unsigned quantity: ITF8 on versions below 4.0,
// uint7_64 on 4.0 and above. The result is returned widened to uint64 so
// that values larger than an int32/uint32 maximum, legal on the VLQ path,
// are not silently truncated; callers narrow as required.
func ReadUnsignedInt(r io.Reader, v cramio.Version) (uint64, error) {
	if v.UsesVLQ() {
		return vlq.ReadUint64(asByteReader(r))
	}
	x, err := ReadITF8(r)
	if err != nil {
		return 0, err
	}
	return uint64(uint32(x)), nil
}

// WriteUnsignedInt is the dual of ReadUnsignedInt.
func WriteUnsignedInt(w io.Writer, v cramio.Version, x uint64) error {
	if v.UsesVLQ() {
		bw, ok := w.(io.ByteWriter)
		if !ok {
			return writeViaBuffer(w, func(b *bufferWriter) error { return vlq.WriteUint64(b, x) })
		}
		return vlq.WriteUint64(bw, x)
	}
	if x > 0xffffffff {
		return cramio.Invalidf("num: value %d does not fit ITF8", x)
	}
	return WriteITF8(w, int32(uint32(x)))
}

// ReadLong reads LTF8 on versions below 4.0, uint7_64 (reinterpreted as a
// signed value) on 4.0 and above.
func ReadLong(r io.Reader, v cramio.Version) (int64, error) {
	if v.UsesVLQ() {
		u, err := vlq.ReadUint64(asByteReader(r))
		if err != nil {
			return 0, err
		}
		return int64(u), nil
	}
	return ReadLTF8(r)
}

// WriteLong is the dual of ReadLong.
func WriteLong(w io.Writer, v cramio.Version, x int64) error {
	if v.UsesVLQ() {
		bw, ok := w.(io.ByteWriter)
		if !ok {
			return writeViaBuffer(w, func(b *bufferWriter) error { return vlq.WriteUint64(b, uint64(x)) })
		}
		return vlq.WriteUint64(bw, uint64(x))
	}
	return WriteLTF8(w, x)
}

// ReadPosition reads an alignment position: ITF8 widened to int64 on
// versions below 4.0, uint7_64 on 4.0 and above.
func ReadPosition(r io.Reader, v cramio.Version) (int64, error) {
	if v.UsesVLQ() {
		u, err := vlq.ReadUint64(asByteReader(r))
		if err != nil {
			return 0, err
		}
		return int64(u), nil
	}
	x, err := ReadITF8(r)
	if err != nil {
		return 0, err
	}
	return int64(x), nil
}

// WritePosition is the dual of ReadPosition.
func WritePosition(w io.Writer, v cramio.Version, x int64) error {
	if v.UsesVLQ() {
		bw, ok := w.(io.ByteWriter)
		if !ok {
			return writeViaBuffer(w, func(b *bufferWriter) error { return vlq.WriteUint64(b, uint64(x)) })
		}
		return vlq.WriteUint64(bw, uint64(x))
	}
	if x < -0x80000000 || x > 0x7fffffff {
		return cramio.Invalidf("num: position %d does not fit ITF8", x)
	}
	return WriteITF8(w, int32(x))
}

// bufferWriter is a minimal io.ByteWriter that flushes into an io.Writer;
// it exists only to support writers that do not themselves implement
// io.ByteWriter (e.g. a plain io.Writer wrapping a hash.Hash via
// io.MultiWriter).
type bufferWriter struct {
	w   io.Writer
	buf []byte
}

func (b *bufferWriter) WriteByte(c byte) error {
	b.buf = append(b.buf, c)
	return nil
}

func writeViaBuffer(w io.Writer, fn func(*bufferWriter) error) error {
	b := &bufferWriter{w: w}
	if err := fn(b); err != nil {
		return err
	}
	_, err := w.Write(b.buf)
	return err
}

// ReadInt32LE and WriteInt32LE handle the container header's length field,
// which is a plain little-endian int32 on versions below 4.0 regardless of
// the VLQ boundary (spec §4.D).
func ReadInt32LE(r io.Reader) (int32, error) {
	var buf [4]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		if err == io.EOF {
			return 0, err
		}
		return 0, io.ErrUnexpectedEOF
	}
	return int32(binary.LittleEndian.Uint32(buf[:])), nil
}

func WriteInt32LE(w io.Writer, x int32) error {
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], uint32(x))
	_, err := w.Write(buf[:])
	return err
}
