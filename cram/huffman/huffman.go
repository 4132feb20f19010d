// Copyright ©2017 The bíogo Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package huffman implements the canonical Huffman code used by CRAM's
// Huffman integer and byte encodings (spec §4.F).
//
// Given a symbol alphabet and a parallel array of bit lengths, the
// canonical assignment sorts by (bit length, symbol), then assigns
// successive codes starting at zero, left-shifting by the length delta
// whenever the bit length increases from one symbol to the next.
package huffman

import (
	"sort"

	"github.com/biogo/cram/cram/bitio"
	"github.com/biogo/cram/cram/cramio"
)

// entry is one canonical code assignment.
type entry struct {
	symbol  int32
	bitLen  uint32
	code    uint32
}

// Codec is a built canonical Huffman code over an alphabet of int32
// symbols.
type Codec struct {
	alphabet []int32
	bitLens  []uint32

	byCode []entry // sorted by (bitLen, code), canonical order

	// encode maps symbol -> entry for O(1) lookup on encode.
	encode map[int32]entry
}

// New builds a Codec from the given alphabet and parallel bit lengths.
// len(alphabet) must equal len(bitLens). A single-symbol alphabet with bit
// length 0 is legal: it consumes and emits zero bits.
func New(alphabet []int32, bitLens []uint32) (*Codec, error) {
	if len(alphabet) != len(bitLens) {
		return nil, cramio.Invalidf("huffman: alphabet and bit-length slices differ in size")
	}
	entries := make([]entry, len(alphabet))
	for i := range alphabet {
		entries[i] = entry{symbol: alphabet[i], bitLen: bitLens[i]}
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].bitLen != entries[j].bitLen {
			return entries[i].bitLen < entries[j].bitLen
		}
		return entries[i].symbol < entries[j].symbol
	})

	var code uint32
	var lastLen uint32
	if len(entries) > 0 {
		lastLen = entries[0].bitLen
	}
	for i := range entries {
		if entries[i].bitLen > lastLen {
			code <<= entries[i].bitLen - lastLen
			lastLen = entries[i].bitLen
		}
		entries[i].code = code
		code++
	}

	enc := make(map[int32]entry, len(entries))
	for _, e := range entries {
		enc[e.symbol] = e
	}

	return &Codec{
		alphabet: append([]int32(nil), alphabet...),
		bitLens:  append([]uint32(nil), bitLens...),
		byCode:   entries,
		encode:   enc,
	}, nil
}

// Decode reads one symbol from r. The decoder groups entries by bit
// length (already true of byCode's sort order) and, for each length in
// increasing order, extends an accumulator by the length delta and
// linearly scans that length's (code, symbol) entries for a match.
func (c *Codec) Decode(r *bitio.Reader) (int32, error) {
	if len(c.byCode) == 1 && c.byCode[0].bitLen == 0 {
		return c.byCode[0].symbol, nil
	}

	var acc uint32
	var accLen uint32
	i := 0
	for i < len(c.byCode) {
		// Advance the accumulator to the next distinct bit length.
		targetLen := c.byCode[i].bitLen
		if targetLen > accLen {
			bit, err := r.ReadBits(int(targetLen - accLen))
			if err != nil {
				return 0, err
			}
			acc = (acc << (targetLen - accLen)) | uint32(bit)
			accLen = targetLen
		}
		for i < len(c.byCode) && c.byCode[i].bitLen == targetLen {
			if c.byCode[i].code == acc {
				return c.byCode[i].symbol, nil
			}
			i++
		}
	}
	return 0, cramio.Invalidf("huffman: no matching code for bitstream")
}

// Encode writes the canonical code for symbol to w.
func (c *Codec) Encode(w *bitio.Writer, symbol int32) error {
	e, ok := c.encode[symbol]
	if !ok {
		return cramio.Invalidf("huffman: symbol %d not in alphabet", symbol)
	}
	if e.bitLen == 0 {
		return nil
	}
	w.WriteU32(e.code, int(e.bitLen))
	return nil
}

// Alphabet returns the codec's symbol alphabet, in the order supplied to
// New.
func (c *Codec) Alphabet() []int32 { return c.alphabet }

// BitLens returns the codec's bit lengths, in the order supplied to New,
// parallel to Alphabet.
func (c *Codec) BitLens() []uint32 { return c.bitLens }
