// Copyright ©2017 The bíogo Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package compression

import (
	"io"

	"github.com/cespare/xxhash/v2"

	"github.com/biogo/cram/cram/cramio"
	"github.com/biogo/cram/cram/encoding"
	"github.com/biogo/cram/cram/num"
)

// TagContentID packs a two-letter tag name and its one-byte SAM aux type
// into the stable three-byte value used as a tag's data-series content id
// (spec §4.H: "content_id := hash(TagName, TagType)").
func TagContentID(name [2]byte, typ byte) int32 {
	return int32(name[0])<<16 | int32(name[1])<<8 | int32(typ)
}

// TagEncodings maps a tag's content id (see TagContentID) to the
// ByteArrayLength encoding used to pack that tag's values across a slice.
type TagEncodings map[int32]encoding.ByteArrayLength

// NewTagEncoding builds the canonical encoding for a tag whose content id
// is id: the length sub-encoding is VarintUnsigned from CRAM 4.0 onward
// and External below it; the value sub-encoding is always External (spec
// §4.H).
func NewTagEncoding(id int32, v cramio.Version) encoding.ByteArrayLength {
	var lenEnc encoding.Integer
	if v.UsesVLQ() {
		lenEnc = encoding.VarintUnsigned{ContentID: id}
	} else {
		lenEnc = encoding.ExternalInt{ContentID: id}
	}
	return encoding.ByteArrayLength{
		LenEncoding: lenEnc,
		ValEncoding: encoding.ExternalByte{ContentID: id},
	}
}

// ReadFrom decodes a tag-encodings map: a count, then for each entry a
// content id (signed int) and its ByteArrayLength serialization.
func (t *TagEncodings) ReadFrom(r io.Reader, v cramio.Version) error {
	n, err := num.ReadSignedInt(r, v)
	if err != nil {
		return err
	}
	m := make(TagEncodings, n)
	for i := int32(0); i < n; i++ {
		id, err := num.ReadSignedInt(r, v)
		if err != nil {
			return err
		}
		enc, err := encoding.UnmarshalByteArray(r, v)
		if err != nil {
			return err
		}
		ba, ok := enc.(encoding.ByteArrayLength)
		if !ok {
			return cramio.Invalidf("compression: tag encoding for content id %d is not ByteArrayLength (%T)", id, enc)
		}
		m[id] = ba
	}
	*t = m
	return nil
}

// WriteTo encodes t to w, emitting entries in ascending content-id order
// for reproducible output.
func (t TagEncodings) WriteTo(w io.Writer, v cramio.Version) error {
	ids := make([]int32, 0, len(t))
	for id := range t {
		ids = append(ids, id)
	}
	sortInt32s(ids)
	if err := num.WriteSignedInt(w, v, int32(len(ids))); err != nil {
		return err
	}
	for _, id := range ids {
		if err := num.WriteSignedInt(w, v, id); err != nil {
			return err
		}
		if err := encoding.MarshalByteArray(w, v, t[id]); err != nil {
			return err
		}
	}
	return nil
}

func sortInt32s(s []int32) {
	for i := 1; i < len(s); i++ {
		for j := i; j > 0 && s[j-1] > s[j]; j-- {
			s[j-1], s[j] = s[j], s[j-1]
		}
	}
}

// TagDictionaryBuilder accumulates distinct tag-id-lists for the
// preservation map's TD entry, deduplicating by an xxhash fingerprint of
// each list's bytes rather than an O(n^2) byte-slice comparison across
// every record processed so far (spec §4.H; the dedup strategy itself is
// an implementation choice the spec leaves open, see DESIGN.md).
type TagDictionaryBuilder struct {
	index map[uint64][]int // fingerprint -> candidate indices (collision-checked below)
	lists [][]byte
}

// NewTagDictionaryBuilder returns an empty builder.
func NewTagDictionaryBuilder() *TagDictionaryBuilder {
	return &TagDictionaryBuilder{index: make(map[uint64][]int)}
}

// Add returns the dictionary index for list, appending it as a new entry
// only if an identical list has not been seen before.
func (b *TagDictionaryBuilder) Add(list []byte) int {
	sum := xxhash.Sum64(list)
	for _, idx := range b.index[sum] {
		if string(b.lists[idx]) == string(list) {
			return idx
		}
	}
	idx := len(b.lists)
	b.lists = append(b.lists, append([]byte(nil), list...))
	b.index[sum] = append(b.index[sum], idx)
	return idx
}

// Dictionary returns the accumulated distinct tag-id-lists in assignment
// order, suitable for PreservationMap.TagDictionary.
func (b *TagDictionaryBuilder) Dictionary() [][]byte {
	return b.lists
}
