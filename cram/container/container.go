// Copyright ©2017 The bíogo Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package container implements the CRAM container header: the framing
// that groups a compression-header block and a run of slices, with
// landmarks locating each slice's first byte (spec §4.D).
package container

import (
	"hash/crc32"
	"io"

	"github.com/biogo/cram/cram/cramio"
	"github.com/biogo/cram/cram/num"
)

// NoReferenceID, UnmappedID and MultipleReferenceID are the special
// reference-sequence-id values a container header's ref_seq_id field may
// carry (spec §3, §9).
const (
	NoReferenceID        int32 = -1
	UnmappedID           int32 = -1
	MultipleReferenceID  int32 = -2
)

// Header is a CRAM container header (spec §4.D).
type Header struct {
	Length          int32
	RefSeqID        int32
	AlignmentStart  int64
	AlignmentSpan   int64
	RecordCount     int32
	RecordCounter   int64
	BaseCount       int64
	BlockCount      int32
	Landmarks       []int32
	CRC32           uint32
}

// eofSentinel is the bit-cast-unsigned value ReadHeaderInt returns for -1
// on the v4.0 wire (0xffffffff truncated to int32 is still -1, so the sentinel
// check below is version independent); kept named for the EOF check only.
const eofSentinel int32 = -1

// eofAlignmentStart is the EOF container's alignment_start field: the
// ASCII bytes "EOF\0" read as a little-endian u32 (spec §3, §4.D).
const eofAlignmentStart int64 = 4542278

// IsEOF reports whether h is the sentinel header carried by the CRAM EOF
// container appended by Close (spec §4.D, on read: check EOF match before
// constructing reference context, since the sentinel values are invalid as
// a reference context).
func (h *Header) IsEOF() bool {
	return h.RefSeqID == eofSentinel && h.AlignmentStart == eofAlignmentStart && h.AlignmentSpan == 0 &&
		h.RecordCount == 0 && h.BlockCount == 1 && len(h.Landmarks) == 0
}

// ReadFrom decodes a container header from r, verifying the CRC32 that
// terminates it from version 3.0 on (v2.x headers carry none). Landmarks are returned as absolute byte offsets from the
// first byte following the header's CRC32 (spec §4.D).
func (h *Header) ReadFrom(r io.Reader, v cramio.Version) error {
	crc := crc32.NewIEEE()
	tee := io.TeeReader(r, crc)

	length, err := readLength(tee, v)
	if err != nil {
		return err
	}
	h.Length = length

	refID, err := num.ReadHeaderInt(tee, v)
	if err != nil {
		return err
	}
	h.RefSeqID = refID

	start, err := num.ReadPosition(tee, v)
	if err != nil {
		return err
	}
	h.AlignmentStart = start

	span, err := num.ReadPosition(tee, v)
	if err != nil {
		return err
	}
	h.AlignmentSpan = span

	nrec, err := num.ReadSignedInt(tee, v)
	if err != nil {
		return err
	}
	h.RecordCount = nrec

	counter, err := num.ReadLong(tee, v)
	if err != nil {
		return err
	}
	h.RecordCounter = counter

	bases, err := num.ReadLong(tee, v)
	if err != nil {
		return err
	}
	h.BaseCount = bases

	nblk, err := num.ReadSignedInt(tee, v)
	if err != nil {
		return err
	}
	h.BlockCount = nblk

	nland, err := num.ReadSignedInt(tee, v)
	if err != nil {
		return err
	}
	if nland < 0 {
		return cramio.Invalidf("container: negative landmark count: %d", nland)
	}
	landmarks := make([]int32, nland)
	for i := range landmarks {
		landmarks[i], err = num.ReadSignedInt(tee, v)
		if err != nil {
			return err
		}
	}
	h.Landmarks = landmarks

	if !v.HasCRC32() {
		return nil
	}
	sum := crc.Sum32()
	var buf [4]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		if err == io.EOF {
			err = io.ErrUnexpectedEOF
		}
		return err
	}
	h.CRC32 = uint32(buf[0]) | uint32(buf[1])<<8 | uint32(buf[2])<<16 | uint32(buf[3])<<24
	if h.CRC32 != sum {
		return cramio.ErrCRCMismatch
	}
	return nil
}

// WriteTo encodes h to w, computing and appending its CRC32 from version
// 3.0 on.
func (h *Header) WriteTo(w io.Writer, v cramio.Version) error {
	crc := crc32.NewIEEE()
	tee := io.MultiWriter(w, crc)

	if err := writeLength(tee, v, h.Length); err != nil {
		return err
	}
	if err := num.WriteHeaderInt(tee, v, h.RefSeqID); err != nil {
		return err
	}
	if err := num.WritePosition(tee, v, h.AlignmentStart); err != nil {
		return err
	}
	if err := num.WritePosition(tee, v, h.AlignmentSpan); err != nil {
		return err
	}
	if err := num.WriteSignedInt(tee, v, h.RecordCount); err != nil {
		return err
	}
	if err := num.WriteLong(tee, v, h.RecordCounter); err != nil {
		return err
	}
	if err := num.WriteLong(tee, v, h.BaseCount); err != nil {
		return err
	}
	if err := num.WriteSignedInt(tee, v, h.BlockCount); err != nil {
		return err
	}
	if err := num.WriteSignedInt(tee, v, int32(len(h.Landmarks))); err != nil {
		return err
	}
	for _, l := range h.Landmarks {
		if err := num.WriteSignedInt(tee, v, l); err != nil {
			return err
		}
	}

	if !v.HasCRC32() {
		return nil
	}
	sum := crc.Sum32()
	var buf [4]byte
	buf[0] = byte(sum)
	buf[1] = byte(sum >> 8)
	buf[2] = byte(sum >> 16)
	buf[3] = byte(sum >> 24)
	_, err := w.Write(buf[:])
	return err
}

// readLength reads the container header's length field: a plain
// little-endian int32 below version 4.0, a uint7 from 4.0 onward (spec
// §4.D).
func readLength(r io.Reader, v cramio.Version) (int32, error) {
	if v.UsesVLQ() {
		x, err := num.ReadUnsignedInt(r, v)
		return int32(uint32(x)), err
	}
	return num.ReadInt32LE(r)
}

func writeLength(w io.Writer, v cramio.Version, x int32) error {
	if v.UsesVLQ() {
		return num.WriteUnsignedInt(w, v, uint64(uint32(x)))
	}
	return num.WriteInt32LE(w, x)
}

// EOFHeader returns the canonical sentinel header appended by Close: a
// single-block, zero-record container with RefSeqID -1 and the "EOF\0"
// alignment_start marker (spec §3).
func EOFHeader(v cramio.Version, blockCount int32, length int32) *Header {
	return &Header{
		Length:         length,
		RefSeqID:       eofSentinel,
		AlignmentStart: eofAlignmentStart,
		AlignmentSpan:  0,
		RecordCount:    0,
		RecordCounter:  0,
		BaseCount:      0,
		BlockCount:     blockCount,
		Landmarks:      nil,
	}
}
