// Copyright ©2017 The bíogo Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package encoding

import (
	"math/bits"

	"github.com/biogo/cram/cram/bitio"
	"github.com/biogo/cram/cram/cramio"
	"github.com/biogo/cram/cram/huffman"
	"github.com/biogo/cram/cram/num"
	"github.com/biogo/cram/cram/vlq"
)

// Integer is a per-record integer field codec: one of External, Golomb,
// Huffman, Beta, Subexp, GolombRice, Gamma, VarintUnsigned, VarintSigned
// or ConstInt (spec §4.G).
type Integer interface {
	Kind() Kind
	Decode(v cramio.Version, core *bitio.Reader, ext *Externals) (int32, error)
	Encode(v cramio.Version, core *bitio.Writer, ext *Externals, value int32) error
}

// ExternalInt reads/writes the value from the external byte stream
// identified by ContentID, using the version's unsigned integer encoding.
type ExternalInt struct{ ContentID int32 }

func (ExternalInt) Kind() Kind { return KindExternal }

func (e ExternalInt) Decode(v cramio.Version, _ *bitio.Reader, ext *Externals) (int32, error) {
	r := ext.Reader(e.ContentID)
	if r == nil {
		return 0, cramio.Invalidf("encoding: no external stream registered for content id %d", e.ContentID)
	}
	x, err := num.ReadUnsignedInt(r, v)
	return int32(uint32(x)), err
}

func (e ExternalInt) Encode(v cramio.Version, _ *bitio.Writer, ext *Externals, value int32) error {
	return num.WriteUnsignedInt(ext.Writer(e.ContentID), v, uint64(uint32(value)))
}

// Golomb is the Golomb code with parameter m (spec §4.G).
type Golomb struct {
	Offset int32
	M      int32
}

func (Golomb) Kind() Kind { return KindGolomb }

// golombB returns the bit width b = bitlen(m-1) used to split the
// remainder into a short code (b-1 bits, values below threshold) or a long
// code (b bits, values at or above threshold), and the threshold itself.
func golombB(m int32) (b uint, threshold uint32) {
	b = uint(bits.Len32(uint32(m - 1)))
	return b, uint32(1<<b) - uint32(m)
}

func (g Golomb) Decode(_ cramio.Version, core *bitio.Reader, _ *Externals) (int32, error) {
	if g.M <= 0 {
		return 0, cramio.Invalidf("encoding: golomb m must be > 0, got %d", g.M)
	}
	q, err := readUnary(core)
	if err != nil {
		return 0, err
	}
	b, threshold := golombB(g.M)
	var r uint32
	if b == 0 {
		r = 0
	} else {
		rv, err := core.ReadUint32(int(b) - 1)
		if err != nil {
			return 0, err
		}
		if rv < threshold {
			r = rv
		} else {
			extra, err := core.ReadBit()
			if err != nil {
				return 0, err
			}
			r = (rv<<1 | uint32(extra)) - threshold
		}
	}
	n := uint32(q)*uint32(g.M) + r
	return int32(n) - g.Offset, nil
}

func (g Golomb) Encode(_ cramio.Version, core *bitio.Writer, _ *Externals, value int32) error {
	if g.M <= 0 {
		return cramio.Invalidf("encoding: golomb m must be > 0, got %d", g.M)
	}
	n := value + g.Offset
	if n < 0 {
		return cramio.Invalidf("encoding: golomb value %d out of range for offset %d", value, g.Offset)
	}
	un := uint32(n)
	q := un / uint32(g.M)
	r := un % uint32(g.M)
	writeUnary(core, int(q))
	b, threshold := golombB(g.M)
	if b == 0 {
		return nil
	}
	if r < threshold {
		core.WriteU32(r, int(b)-1)
	} else {
		core.WriteU32((r+threshold)>>1, int(b)-1)
		core.WriteBit(int((r + threshold) & 1))
	}
	return nil
}

// GolombRice is the power-of-two special case of Golomb, parameterised by
// log2(m) (spec §4.G).
type GolombRice struct {
	Offset int32
	Log2M  int
}

func (GolombRice) Kind() Kind { return KindGolombRice }

func (g GolombRice) Decode(_ cramio.Version, core *bitio.Reader, _ *Externals) (int32, error) {
	if g.Log2M < 0 || g.Log2M >= 32 {
		return 0, cramio.Invalidf("encoding: golomb-rice log2m out of range: %d", g.Log2M)
	}
	q, err := readUnary(core)
	if err != nil {
		return 0, err
	}
	var r int32
	if g.Log2M > 0 {
		r, err = core.ReadBits(g.Log2M)
		if err != nil {
			return 0, err
		}
	}
	n := uint32(q)<<uint(g.Log2M) | uint32(r)
	return int32(n) - g.Offset, nil
}

func (g GolombRice) Encode(_ cramio.Version, core *bitio.Writer, _ *Externals, value int32) error {
	if g.Log2M < 0 || g.Log2M >= 32 {
		return cramio.Invalidf("encoding: golomb-rice log2m out of range: %d", g.Log2M)
	}
	n := value + g.Offset
	if n < 0 {
		return cramio.Invalidf("encoding: golomb-rice value %d out of range for offset %d", value, g.Offset)
	}
	un := uint32(n)
	q := un >> uint(g.Log2M)
	mask := uint32(1)<<uint(g.Log2M) - 1
	r := un & mask
	writeUnary(core, int(q))
	if g.Log2M > 0 {
		core.WriteU32(r, g.Log2M)
	}
	return nil
}

// Beta is a fixed-width big-endian integer of Len bits (spec §4.G).
type Beta struct {
	Offset int32
	Len    int
}

func (Beta) Kind() Kind { return KindBeta }

func (b Beta) Decode(_ cramio.Version, core *bitio.Reader, _ *Externals) (int32, error) {
	v, err := core.ReadBits(b.Len)
	if err != nil {
		return 0, err
	}
	return v - b.Offset, nil
}

func (b Beta) Encode(_ cramio.Version, core *bitio.Writer, _ *Externals, value int32) error {
	core.WriteBits(value+b.Offset, b.Len)
	return nil
}

// Gamma is Elias gamma coding with an additive offset (spec §4.G).
type Gamma struct {
	Offset int32
}

func (Gamma) Kind() Kind { return KindGamma }

func (g Gamma) Decode(_ cramio.Version, core *bitio.Reader, _ *Externals) (int32, error) {
	n, err := readUnary(core)
	if err != nil {
		return 0, err
	}
	var payload int32
	if n > 0 {
		payload, err = core.ReadBits(n)
		if err != nil {
			return 0, err
		}
	}
	x := (int32(1) << uint(n)) + payload
	return x - g.Offset, nil
}

func (g Gamma) Encode(_ cramio.Version, core *bitio.Writer, _ *Externals, value int32) error {
	x := value + g.Offset
	if x < 1 {
		return cramio.Invalidf("encoding: gamma requires value+offset >= 1, got %d", x)
	}
	n := bits.Len32(uint32(x)) - 1
	writeUnary(core, n)
	if n > 0 {
		core.WriteBits(x-(1<<uint(n)), n)
	}
	return nil
}

// Subexp is grouped exp-Golomb coding (spec §4.G).
type Subexp struct {
	Offset int32
	K      int
}

func (Subexp) Kind() Kind { return KindSubexp }

// Subexp's group index is signalled by a run of one-bits terminated by a
// zero bit (the opposite polarity to Golomb/GolombRice/Gamma's unary
// prefix). Groups 0 and 1 store the value directly in k and k+1 bits
// respectively; groups 2 and above store value-2^k in k+2*group-1 bits, so
// that decode's reconstruction (add back 2^k) is independent of the group
// actually used.
func (s Subexp) Decode(_ cramio.Version, core *bitio.Reader, _ *Externals) (int32, error) {
	if s.K < 0 || s.K >= 32 {
		return 0, cramio.Invalidf("encoding: subexp k out of range: %d", s.K)
	}
	group, err := readOnesUnary(core)
	if err != nil {
		return 0, err
	}
	var n uint32
	if group < 2 {
		v, err := core.ReadBits(s.K + group)
		if err != nil {
			return 0, err
		}
		n = uint32(v)
	} else {
		nbits := s.K + 2*group - 1
		v, err := core.ReadBits(nbits)
		if err != nil {
			return 0, err
		}
		n = uint32(v) + uint32(1)<<uint(s.K)
	}
	return int32(n) - s.Offset, nil
}

func (s Subexp) Encode(_ cramio.Version, core *bitio.Writer, _ *Externals, value int32) error {
	if s.K < 0 || s.K >= 32 {
		return cramio.Invalidf("encoding: subexp k out of range: %d", s.K)
	}
	n := value + s.Offset
	if n < 0 {
		return cramio.Invalidf("encoding: subexp value %d out of range for offset %d", value, s.Offset)
	}
	un := uint32(n)
	switch {
	case un < uint32(1)<<uint(s.K):
		writeOnesUnary(core, 0)
		core.WriteBits(int32(un), s.K)
	case un < uint32(1)<<uint(s.K+1):
		writeOnesUnary(core, 1)
		core.WriteBits(int32(un), s.K+1)
	default:
		extra := un - uint32(1)<<uint(s.K)
		group := 2
		for extra >= uint32(1)<<uint(s.K+2*group-1) {
			group++
			if group > 48 {
				return cramio.Invalidf("encoding: subexp value %d too large", value)
			}
		}
		writeOnesUnary(core, group)
		core.WriteBits(int32(extra), s.K+2*group-1)
	}
	return nil
}

// HuffmanInt wraps a canonical huffman.Codec as an Integer encoding.
type HuffmanInt struct{ Codec *huffman.Codec }

func (HuffmanInt) Kind() Kind { return KindHuffman }

func (h HuffmanInt) Decode(_ cramio.Version, core *bitio.Reader, _ *Externals) (int32, error) {
	return h.Codec.Decode(core)
}

func (h HuffmanInt) Encode(_ cramio.Version, core *bitio.Writer, _ *Externals, value int32) error {
	return h.Codec.Encode(core, value)
}

// VarintUnsigned reads/writes a uint7_64 from the external stream then
// adds/subtracts Offset. Legal only from CRAM 4.0 onward.
type VarintUnsigned struct {
	ContentID int32
	Offset    int64
}

func (VarintUnsigned) Kind() Kind { return KindVarintUnsigned }

func (e VarintUnsigned) Decode(v cramio.Version, _ *bitio.Reader, ext *Externals) (int32, error) {
	if err := checkVersion(e.Kind(), v); err != nil {
		return 0, err
	}
	r := ext.Reader(e.ContentID)
	if r == nil {
		return 0, cramio.Invalidf("encoding: no external stream registered for content id %d", e.ContentID)
	}
	u, err := vlq.ReadUint64(asByteReader(r))
	if err != nil {
		return 0, err
	}
	return int32(int64(u) + e.Offset), nil
}

func (e VarintUnsigned) Encode(v cramio.Version, _ *bitio.Writer, ext *Externals, value int32) error {
	if err := checkVersion(e.Kind(), v); err != nil {
		return err
	}
	u := uint64(int64(value) - e.Offset)
	return vlq.WriteUint64(ext.Writer(e.ContentID), u)
}

// VarintSigned reads/writes a sint7_64 from the external stream then
// adds/subtracts Offset. Legal only from CRAM 4.0 onward.
type VarintSigned struct {
	ContentID int32
	Offset    int64
}

func (VarintSigned) Kind() Kind { return KindVarintSigned }

func (e VarintSigned) Decode(v cramio.Version, _ *bitio.Reader, ext *Externals) (int32, error) {
	if err := checkVersion(e.Kind(), v); err != nil {
		return 0, err
	}
	r := ext.Reader(e.ContentID)
	if r == nil {
		return 0, cramio.Invalidf("encoding: no external stream registered for content id %d", e.ContentID)
	}
	s, err := vlq.ReadSint64(asByteReader(r))
	if err != nil {
		return 0, err
	}
	return int32(s + e.Offset), nil
}

func (e VarintSigned) Encode(v cramio.Version, _ *bitio.Writer, ext *Externals, value int32) error {
	if err := checkVersion(e.Kind(), v); err != nil {
		return err
	}
	s := int64(value) - e.Offset
	return vlq.WriteSint64(ext.Writer(e.ContentID), s)
}

// ConstInt emits no bits and always decodes to Value.
type ConstInt struct{ Value int32 }

func (ConstInt) Kind() Kind { return KindConstInt }

func (c ConstInt) Decode(v cramio.Version, _ *bitio.Reader, _ *Externals) (int32, error) {
	if err := checkVersion(c.Kind(), v); err != nil {
		return 0, err
	}
	return c.Value, nil
}

func (c ConstInt) Encode(v cramio.Version, _ *bitio.Writer, _ *Externals, value int32) error {
	if err := checkVersion(c.Kind(), v); err != nil {
		return err
	}
	if value != c.Value {
		return cramio.Invalidf("encoding: const int mismatch: declared %d, got %d", c.Value, value)
	}
	return nil
}

// readUnary reads zero or more 0 bits terminated by a 1 bit, returning the
// count of zero bits.
func readUnary(r *bitio.Reader) (int, error) {
	n := 0
	for {
		bit, err := r.ReadBit()
		if err != nil {
			return 0, err
		}
		if bit == 1 {
			return n, nil
		}
		n++
	}
}

// writeUnary writes n zero bits followed by a one bit.
func writeUnary(w *bitio.Writer, n int) {
	for i := 0; i < n; i++ {
		w.WriteBit(0)
	}
	w.WriteBit(1)
}

// readOnesUnary reads zero or more 1 bits terminated by a 0 bit, returning
// the count of one bits. This is Subexp's group-index prefix, the
// opposite polarity to readUnary's zero-run used by the other codecs.
func readOnesUnary(r *bitio.Reader) (int, error) {
	n := 0
	for {
		bit, err := r.ReadBit()
		if err != nil {
			return 0, err
		}
		if bit == 0 {
			return n, nil
		}
		n++
	}
}

// writeOnesUnary writes n one bits followed by a terminating zero bit.
func writeOnesUnary(w *bitio.Writer, n int) {
	for i := 0; i < n; i++ {
		w.WriteBit(1)
	}
	w.WriteBit(0)
}
