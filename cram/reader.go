// Copyright ©2017 The bíogo Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package cram implements reading and writing of the CRAM format: the
// file definition, the file-header container, and the run of containers
// that follow it, each holding a compression header and a sequence of
// slices (spec §4.M, §4.N). It sits above the container, block, slice
// and compression packages the way bam.Reader/bam.Writer sit above bgzf.
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

// Reader reads a CRAM stream: the file definition and file-header
// container are consumed by NewReader; Next/Container/CompressionHeader/
// Slices walk the remaining containers (spec §4.N).
type Reader struct {
	r io.Reader
	v cramio.Version

	header *sam.Header

	cur  container.Header
	comp compression.Header
	body []byte

	err error
}

// NewReader reads the file definition and file-header container from r,
// returning a Reader positioned at the first data container.
func NewReader(r io.Reader) (*Reader, error) {
	var d definition
	if err := d.readFrom(r); err != nil {
		return nil, err
	}
	cr := &Reader{r: r, v: d.Version}

	var fh container.Header
	if err := fh.ReadFrom(r, cr.v); err != nil {
		return nil, err
	}
	body := make([]byte, fh.Length)
	if _, err := io.ReadFull(r, body); err != nil {
		return nil, unexpectedEOF(err)
	}

	var hb block.Block
	br := bytes.NewReader(body)
	if err := hb.ReadFrom(br, cr.v); err != nil {
		return nil, err
	}
	if hb.ContentType != block.FileHeader {
		return nil, cramio.Invalidf("cram: expected file-header block, got content type %d", hb.ContentType)
	}
	data, err := hb.Decompress()
	if err != nil {
		return nil, err
	}

	tr := bytes.NewReader(data)
	n, err := num.ReadUnsignedInt(tr, cr.v)
	if err != nil {
		return nil, err
	}
	text := make([]byte, n)
	if _, err := io.ReadFull(tr, text); err != nil {
		return nil, unexpectedEOF(err)
	}
	h, err := sam.NewHeader(nil, nil)
	if err != nil {
		return nil, err
	}
	if err := h.UnmarshalText(text); err != nil {
		return nil, err
	}
	cr.header = h
	return cr, nil
}

// Header returns the SAM header carried by the file-header container.
func (r *Reader) Header() *sam.Header { return r.header }

// Next advances the Reader to the next data container, returning false
// on reaching the CRAM EOF container or the end of the stream, or on
// error (spec §4.N).
func (r *Reader) Next() bool {
	if r.err != nil {
		return false
	}

	var ch container.Header
	err := ch.ReadFrom(r.r, r.v)
	if err == io.EOF || err == io.ErrUnexpectedEOF {
		r.err = io.EOF
		return false
	}
	if err != nil {
		r.err = err
		return false
	}
	if ch.IsEOF() {
		r.err = io.EOF
		return false
	}

	body := make([]byte, ch.Length)
	if _, err := io.ReadFull(r.r, body); err != nil {
		r.err = unexpectedEOF(err)
		return false
	}

	var chb block.Block
	br := bytes.NewReader(body)
	if err := chb.ReadFrom(br, r.v); err != nil {
		r.err = err
		return false
	}
	raw, err := chb.Decompress()
	if err != nil {
		r.err = err
		return false
	}
	var comp compression.Header
	if err := comp.ReadFrom(bytes.NewReader(raw), r.v); err != nil {
		r.err = err
		return false
	}

	r.cur = ch
	r.comp = comp
	r.body = body
	return true
}

// Container returns the header of the container Next most recently
// advanced to.
func (r *Reader) Container() *container.Header { return &r.cur }

// CompressionHeader returns the current container's compression header.
func (r *Reader) CompressionHeader() *compression.Header { return &r.comp }

// Slices returns an iterator over the current container's slices,
// sub-slicing the container body by landmark (spec §4.N).
func (r *Reader) Slices() *SliceReader {
	return &SliceReader{body: r.body, landmarks: r.cur.Landmarks, v: r.v}
}

// Err returns the first non-EOF error encountered.
func (r *Reader) Err() error {
	if r.err == io.EOF {
		return nil
	}
	return r.err
}

// SliceReader iterates a container's slices in landmark order, pairing
// each landmark with the next (or the end of the container body for the
// last one) to produce the slice's byte range (spec §4.N, §9).
type SliceReader struct {
	body      []byte
	landmarks []int32
	v         cramio.Version
	idx       int

	cur      *slice.Slice
	deferred map[int32]*block.Block
	err      error
}

// Next advances to the next slice.
func (s *SliceReader) Next() bool {
	if s.err != nil || s.idx >= len(s.landmarks) {
		return false
	}
	start := int(s.landmarks[s.idx])
	end := len(s.body)
	if s.idx+1 < len(s.landmarks) {
		end = int(s.landmarks[s.idx+1])
	}
	if end < start {
		end = start
	}
	s.idx++

	r := bytes.NewReader(s.body[start:end])
	var hb block.Block
	if err := hb.ReadFrom(r, s.v); err != nil {
		s.err = err
		return false
	}
	raw, err := hb.Decompress()
	if err != nil {
		s.err = err
		return false
	}
	var sh slice.Header
	if err := sh.ReadFrom(bytes.NewReader(raw), s.v); err != nil {
		s.err = err
		return false
	}
	sl, deferred, err := slice.Assemble(r, s.v, sh)
	if err != nil {
		s.err = err
		return false
	}
	s.cur = sl
	s.deferred = deferred
	return true
}

// Slice returns the slice most recently read by Next.
func (s *SliceReader) Slice() *slice.Slice { return s.cur }

// Deferred returns the current slice's Fqzcomp/NameTokenizer blocks,
// still compressed, keyed by content id: those methods need slice-level
// record-count/length context that only the caller has (spec §4.C, §4.M).
func (s *SliceReader) Deferred() map[int32]*block.Block { return s.deferred }

// Err returns the first error encountered, if any.
func (s *SliceReader) Err() error { return s.err }

func unexpectedEOF(err error) error {
	if err == io.EOF {
		return io.ErrUnexpectedEOF
	}
	return err
}
