// Copyright ©2017 The bíogo Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package slice implements the CRAM slice header and the assembly of a
// slice's blocks into external byte streams keyed by content id (spec
// §4.E).
package slice

import (
	"io"

	"github.com/biogo/cram/cram/block"
	"github.com/biogo/cram/cram/cramio"
	"github.com/biogo/cram/cram/num"
)

// NoEmbeddedReference is the value Header.EmbeddedRefID carries when the
// slice has no embedded reference block.
const NoEmbeddedReference int32 = -1

// Header is a CRAM slice header (spec §4.E). It lives in a block of
// content-type slice-header, read separately via the block package and
// decoded from that block's payload by ReadFrom.
type Header struct {
	RefSeqID      int32
	Start         int64
	Span          int64
	RecordCount   int32
	RecordCounter int64
	BlockCount    int32
	BlockIDs      []int32
	EmbeddedRefID int32
	MD5           [16]byte
	Tags          []byte // raw tag-list bytes, content-type specific
}

// HasMD5 reports whether h carries a non-zero reference MD5; the CRAM
// format represents "absent" as the all-zero marker (spec §4.E).
func (h *Header) HasMD5() bool {
	for _, b := range h.MD5 {
		if b != 0 {
			return true
		}
	}
	return false
}

// ReadFrom decodes a slice header from r. ref_seq_id is read as a
// zigzag-signed quantity at v4.0 (not the container header's bitcast
// unsigned convention), per spec §4.E/§9.
func (h *Header) ReadFrom(r io.Reader, v cramio.Version) error {
	refID, err := num.ReadSignedInt(r, v)
	if err != nil {
		return err
	}
	h.RefSeqID = refID

	start, err := num.ReadPosition(r, v)
	if err != nil {
		return err
	}
	h.Start = start

	span, err := num.ReadPosition(r, v)
	if err != nil {
		return err
	}
	h.Span = span

	nrec, err := num.ReadSignedInt(r, v)
	if err != nil {
		return err
	}
	h.RecordCount = nrec

	counter, err := num.ReadLong(r, v)
	if err != nil {
		return err
	}
	h.RecordCounter = counter

	nblk, err := num.ReadSignedInt(r, v)
	if err != nil {
		return err
	}
	h.BlockCount = nblk

	nids, err := num.ReadSignedInt(r, v)
	if err != nil {
		return err
	}
	if nids < 0 {
		return cramio.Invalidf("slice: negative block id count: %d", nids)
	}
	ids := make([]int32, nids)
	for i := range ids {
		ids[i], err = num.ReadSignedInt(r, v)
		if err != nil {
			return err
		}
	}
	h.BlockIDs = ids

	embedded, err := num.ReadHeaderInt(r, v)
	if err != nil {
		return err
	}
	h.EmbeddedRefID = embedded

	if _, err := io.ReadFull(r, h.MD5[:]); err != nil {
		if err == io.EOF {
			err = io.ErrUnexpectedEOF
		}
		return err
	}

	tags, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	h.Tags = tags
	return nil
}

// WriteTo encodes h to w.
func (h *Header) WriteTo(w io.Writer, v cramio.Version) error {
	if err := num.WriteSignedInt(w, v, h.RefSeqID); err != nil {
		return err
	}
	if err := num.WritePosition(w, v, h.Start); err != nil {
		return err
	}
	if err := num.WritePosition(w, v, h.Span); err != nil {
		return err
	}
	if err := num.WriteSignedInt(w, v, h.RecordCount); err != nil {
		return err
	}
	if err := num.WriteLong(w, v, h.RecordCounter); err != nil {
		return err
	}
	if err := num.WriteSignedInt(w, v, h.BlockCount); err != nil {
		return err
	}
	if err := num.WriteSignedInt(w, v, int32(len(h.BlockIDs))); err != nil {
		return err
	}
	for _, id := range h.BlockIDs {
		if err := num.WriteSignedInt(w, v, id); err != nil {
			return err
		}
	}
	if err := num.WriteHeaderInt(w, v, h.EmbeddedRefID); err != nil {
		return err
	}
	if _, err := w.Write(h.MD5[:]); err != nil {
		return err
	}
	_, err := w.Write(h.Tags)
	return err
}

// Slice is a fully assembled slice: its header, the per-content-id
// external data (decompressed), and the core data stream.
type Slice struct {
	Header   Header
	Core     []byte            // decompressed core-data block payload
	External map[int32][]byte  // content id -> decompressed payload
	Embedded []byte            // decompressed embedded-reference bases, if EmbeddedRefID is set
}

// Assemble reads Header.BlockCount blocks from r (one core-data block and
// the rest external-data blocks, per spec §4.E/§4.M) and decompresses
// each into Slice, leaving name-tokenizer and fqzcomp blocks to the
// caller, which has the record-count/length context those codecs need.
//
// It returns the raw (still undecompressed) blocks whose method is
// NameTokenizer or Fqzcomp, keyed by content id, so the caller can invoke
// the nametok/fqzcomp packages directly with that context.
func Assemble(r io.Reader, v cramio.Version, h Header) (*Slice, map[int32]*block.Block, error) {
	s := &Slice{
		Header:   h,
		External: make(map[int32][]byte, h.BlockCount),
	}
	deferred := make(map[int32]*block.Block)

	for i := int32(0); i < h.BlockCount; i++ {
		var b block.Block
		if err := b.ReadFrom(r, v); err != nil {
			return nil, nil, err
		}
		switch b.Method {
		case block.NameTokenizer, block.Fqzcomp:
			deferred[b.ContentID] = &b
			continue
		}
		data, err := b.Decompress()
		if err != nil {
			return nil, nil, err
		}
		switch b.ContentType {
		case block.CoreData:
			s.Core = data
		case block.ExternalData:
			if b.ContentID == h.EmbeddedRefID {
				s.Embedded = data
			} else {
				s.External[b.ContentID] = data
			}
		}
	}
	return s, deferred, nil
}
