// Copyright ©2017 The bíogo Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package query implements the chunk-driven region query iterator: given
// a set of byte-range chunks an index selected for a genomic interval, it
// drives an underlying record source through seek/read/filter, yielding
// only the records that fall inside the query interval (spec §4.I).
//
// The iterator is modelled on bam.Iterator's SetChunk/Next loop (see
// bam/reader.go), generalized into the explicit Seek/Read/Done state
// machine the CRAM specification describes.
package query

import "io"

// VirtualPosition is a compressed-stream virtual offset: the compressed
// byte offset of a block plus an offset of a record within that block's
// uncompressed bytes, the same two-part addressing BGZF-backed indexes
// use to pinpoint a record's start without decompressing everything
// before it.
type VirtualPosition struct {
	Block  int64
	Offset uint16
}

// Compare orders two virtual positions the way their packed-uint64 wire
// form would: by Block, then by Offset.
func (v VirtualPosition) Compare(o VirtualPosition) int {
	switch {
	case v.Block < o.Block:
		return -1
	case v.Block > o.Block:
		return 1
	case v.Offset < o.Offset:
		return -1
	case v.Offset > o.Offset:
		return 1
	default:
		return 0
	}
}

// Chunk is a contiguous byte range an index selected as possibly
// containing records overlapping a query interval (spec §4.I).
type Chunk struct {
	Start VirtualPosition
	End   VirtualPosition
}

// Interval is a 1-based, closed genomic interval.
type Interval struct {
	Start, End int
}

// Overlaps reports whether i and o share at least one position.
func (i Interval) Overlaps(o Interval) bool {
	return i.Start <= o.End && o.Start <= i.End
}

// Record is the minimal view an iterated record must expose to be
// filtered against a reference id and interval (spec §4.I).
type Record interface {
	ReferenceID() int
	Interval() Interval
}

// Source is the record stream the Iterator drives: a seekable reader
// that can report the virtual position it has reached and can be asked
// for the next record.
type Source interface {
	// Seek moves the stream to pos, as a chunk's Start.
	Seek(pos VirtualPosition) error
	// VirtualPosition reports the stream's current position, valid only
	// after a Read call.
	VirtualPosition() VirtualPosition
	// Read returns the next record, or io.EOF when the underlying stream
	// (not merely the current chunk) is exhausted.
	Read() (Record, error)
}

// state is the iterator's current phase (spec §4.I).
type state byte

const (
	stateSeek state = iota
	stateRead
	stateDone
)

// Iterator drives src through every chunk in order, yielding only the
// records whose reference id matches refID and whose interval overlaps
// query (spec §4.I).
type Iterator struct {
	src    Source
	chunks []Chunk

	refID int
	query Interval

	st       state
	chunkEnd VirtualPosition

	rec *Record
	err error
}

// NewIterator returns an Iterator over src restricted to chunks, yielding
// only records on refID overlapping query.
func NewIterator(src Source, chunks []Chunk, refID int, query Interval) *Iterator {
	if len(chunks) == 0 {
		return &Iterator{src: src, st: stateDone, err: io.EOF}
	}
	return &Iterator{src: src, chunks: chunks, refID: refID, query: query, st: stateSeek}
}

// Next advances the iterator to the next matching record. It returns
// false when iteration stops, either because every chunk is exhausted or
// because an error occurred; Err distinguishes the two.
func (it *Iterator) Next() bool {
	for {
		switch it.st {
		case stateDone:
			return false

		case stateSeek:
			if len(it.chunks) == 0 {
				it.st = stateDone
				return false
			}
			c := it.chunks[0]
			it.chunks = it.chunks[1:]
			if err := it.src.Seek(c.Start); err != nil {
				it.err = err
				it.st = stateDone
				return false
			}
			it.chunkEnd = c.End
			it.st = stateRead

		case stateRead:
			rec, err := it.src.Read()
			if err == io.EOF {
				it.st = stateSeek
				continue
			}
			if err != nil {
				it.err = err
				it.st = stateDone
				return false
			}

			// The just-read record is still considered even if it
			// crossed the chunk boundary: the transition to Seek is
			// scheduled for the *next* call, not this one (spec §4.I).
			if it.src.VirtualPosition().Compare(it.chunkEnd) >= 0 {
				it.st = stateSeek
			}

			if rec.ReferenceID() == it.refID && rec.Interval().Overlaps(it.query) {
				it.rec = &rec
				return true
			}
			// Non-matching record: keep pulling from the same state
			// (Seek or Read) until a match or exhaustion.
		}
	}
}

// Record returns the most recently matched record.
func (it *Iterator) Record() Record {
	if it.rec == nil {
		return nil
	}
	return *it.rec
}

// Err returns the first non-EOF error encountered, or nil.
func (it *Iterator) Err() error {
	if it.err == io.EOF {
		return nil
	}
	return it.err
}
