// Copyright ©2017 The bíogo Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package encoding implements the CRAM Encoding<Integer|Byte|ByteArray>
// tagged union: External, Huffman, Golomb and related per-field entropy
// codecs, plus the length-prefixed serialized form used inside the
// compression header (spec §4.G).
package encoding

import "github.com/biogo/cram/cram/cramio"

// Kind is the encoding kind tag used on the wire (spec §6).
type Kind int32

// The full set of encoding kind tags. Kinds 41-44 are legal only from
// CRAM 4.0 onward.
const (
	KindNull           Kind = 0
	KindExternal       Kind = 1
	KindGolomb         Kind = 2
	KindHuffman        Kind = 3
	KindByteArrayLen   Kind = 4
	KindByteArrayStop  Kind = 5
	KindBeta           Kind = 6
	KindSubexp         Kind = 7
	KindGolombRice     Kind = 8
	KindGamma          Kind = 9
	KindVarintUnsigned Kind = 41
	KindVarintSigned   Kind = 42
	KindConstByte      Kind = 43
	KindConstInt       Kind = 44
)

// isV4Only reports whether k is legal only on CRAM 4.0 and above.
func (k Kind) isV4Only() bool {
	switch k {
	case KindVarintUnsigned, KindVarintSigned, KindConstByte, KindConstInt:
		return true
	default:
		return false
	}
}

// checkVersion rejects v4-only kinds when v predates 4.0 (spec §4.G, §8).
func checkVersion(k Kind, v cramio.Version) error {
	if k.isV4Only() && !v.UsesVLQ() {
		return cramio.Unsupportedf("encoding: kind %d is only legal on CRAM 4.0 and above, got %s", k, v)
	}
	return nil
}
