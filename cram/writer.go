// Copyright ©2017 The bíogo Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cram

import (
	"bytes"
	"io"

	"github.com/biogo/cram/cram/block"
	"github.com/biogo/cram/cram/compression"
	"github.com/biogo/cram/cram/container"
	"github.com/biogo/cram/cram/cramio"
	"github.com/biogo/cram/cram/num"
	"github.com/biogo/cram/cram/slice"
	"github.com/biogo/cram/sam"
)

// WriterOptions configures a Writer (spec §4.M).
type WriterOptions struct {
	// Version is the CRAM version to emit. It must be one of the
	// versions cramio.Supported accepts.
	Version cramio.Version
	// ID fills the file definition's 20-byte identifier field; the
	// zero value is a valid, empty id.
	ID [20]byte
}

// SliceData is one slice's header and ordered blocks (core data first,
// then external data), ready to be assembled into a container by
// WriteContainer. BlockCount and BlockIDs are filled in by WriteContainer
// from Blocks and need not be set by the caller (spec §4.E, §4.M).
type SliceData struct {
	Header Header
	Blocks []*block.Block
}

// Header is an alias kept for callers that build a slice.Header directly;
// it is the same type assembled by the slice package on read.
type Header = slice.Header

// Writer writes a CRAM stream: NewWriter emits the file definition and
// file-header container; WriteContainer emits one data container at a
// time; Close appends the terminating EOF container (spec §4.M).
type Writer struct {
	w      io.Writer
	opts   WriterOptions
	closed bool
}

// NewWriter writes the file definition and a file-header container
// carrying h, returning a Writer ready for WriteContainer.
func NewWriter(w io.Writer, h *sam.Header, opts WriterOptions) (*Writer, error) {
	if !cramio.Supported(opts.Version) {
		return nil, cramio.Invalidf("cram: unsupported version %s", opts.Version)
	}
	wr := &Writer{w: w, opts: opts}

	d := definition{Version: opts.Version, ID: opts.ID}
	if err := d.writeTo(w); err != nil {
		return nil, err
	}
	if err := wr.writeFileHeaderContainer(h); err != nil {
		return nil, err
	}
	return wr, nil
}

func (w *Writer) writeFileHeaderContainer(h *sam.Header) error {
	text, err := h.MarshalText()
	if err != nil {
		return err
	}
	var payload bytes.Buffer
	if err := num.WriteUnsignedInt(&payload, w.opts.Version, uint64(len(text))); err != nil {
		return err
	}
	payload.Write(text)

	blk, err := block.New(block.Raw, block.FileHeader, 0, payload.Bytes())
	if err != nil {
		return err
	}
	var body bytes.Buffer
	if err := blk.WriteTo(&body, w.opts.Version); err != nil {
		return err
	}

	ch := container.Header{
		Length:     int32(body.Len()),
		RefSeqID:   container.NoReferenceID,
		BlockCount: 1,
	}
	if err := ch.WriteTo(w.w, w.opts.Version); err != nil {
		return err
	}
	_, err = w.w.Write(body.Bytes())
	return err
}

// WriteContainer assembles comp and the given slices into one container
// and writes it: a compression-header block, followed by each slice's
// header block and data blocks in order, with landmarks recording the
// byte offset of every slice-header block (spec §4.D, §4.M).
func (w *Writer) WriteContainer(comp *compression.Header, slices []SliceData) error {
	var body bytes.Buffer

	var compBuf bytes.Buffer
	if err := comp.WriteTo(&compBuf, w.opts.Version); err != nil {
		return err
	}
	chBlk, err := block.New(block.Raw, block.CompressionHeader, 0, compBuf.Bytes())
	if err != nil {
		return err
	}
	if err := chBlk.WriteTo(&body, w.opts.Version); err != nil {
		return err
	}
	blockCount := int32(1)

	var landmarks []int32
	var recordCount int32
	var recordCounter int64
	var baseCount int64
	refCtx, start, span := aggregateReferenceContext(slices)

	for i := range slices {
		sd := &slices[i]

		var extIDs []int32
		for _, b := range sd.Blocks {
			if b.ContentType == block.ExternalData {
				extIDs = append(extIDs, b.ContentID)
			}
		}
		sd.Header.BlockCount = int32(len(sd.Blocks))
		sd.Header.BlockIDs = extIDs

		landmarks = append(landmarks, int32(body.Len()))

		var hdrBuf bytes.Buffer
		if err := sd.Header.WriteTo(&hdrBuf, w.opts.Version); err != nil {
			return err
		}
		hdrBlk, err := block.New(block.Raw, block.SliceHeader, 0, hdrBuf.Bytes())
		if err != nil {
			return err
		}
		if err := hdrBlk.WriteTo(&body, w.opts.Version); err != nil {
			return err
		}
		blockCount++

		for _, b := range sd.Blocks {
			if err := b.WriteTo(&body, w.opts.Version); err != nil {
				return err
			}
			blockCount++
		}

		recordCount += sd.Header.RecordCount
		recordCounter = sd.Header.RecordCounter
		baseCount += sliceBaseCount(sd.Header)
	}

	ch := container.Header{
		Length:         int32(body.Len()),
		RefSeqID:       refCtx,
		AlignmentStart: start,
		AlignmentSpan:  span,
		RecordCount:    recordCount,
		RecordCounter:  recordCounter,
		BaseCount:      baseCount,
		BlockCount:     blockCount,
		Landmarks:      landmarks,
	}
	if err := ch.WriteTo(w.w, w.opts.Version); err != nil {
		return err
	}
	_, err = w.w.Write(body.Bytes())
	return err
}

// aggregateReferenceContext collapses a container's slices' reference
// contexts to a single value: the common reference id and covering
// interval if every slice agrees, or MultipleReferenceID with a zero
// interval otherwise (spec §4.D, §9).
func aggregateReferenceContext(slices []SliceData) (refID int32, start, span int64) {
	if len(slices) == 0 {
		return container.UnmappedID, 0, 0
	}
	refID = slices[0].Header.RefSeqID
	lo := slices[0].Header.Start
	hi := slices[0].Header.Start + slices[0].Header.Span
	for _, sd := range slices[1:] {
		if sd.Header.RefSeqID != refID {
			return container.MultipleReferenceID, 0, 0
		}
		if sd.Header.Start < lo {
			lo = sd.Header.Start
		}
		if e := sd.Header.Start + sd.Header.Span; e > hi {
			hi = e
		}
	}
	return refID, lo, hi - lo
}

func sliceBaseCount(h slice.Header) int64 {
	return 0 // not tracked at the slice-header level; left for a record-aware caller to fold in.
}

// TryFinish flushes the terminating EOF container if it has not already
// been written, leaving the Writer otherwise unchanged. It is safe to
// call more than once.
func (w *Writer) TryFinish() error {
	if w.closed {
		return nil
	}
	w.closed = true
	return w.writeEOF()
}

// Close always appends the EOF container (spec §3, §4.M).
func (w *Writer) Close() error {
	return w.TryFinish()
}

func (w *Writer) writeEOF() error {
	blk, err := block.New(block.Raw, block.CompressionHeader, 0, nil)
	if err != nil {
		return err
	}
	var body bytes.Buffer
	if err := blk.WriteTo(&body, w.opts.Version); err != nil {
		return err
	}
	h := container.EOFHeader(w.opts.Version, 1, int32(body.Len()))
	if err := h.WriteTo(w.w, w.opts.Version); err != nil {
		return err
	}
	_, err = w.w.Write(body.Bytes())
	return err
}
