// Copyright ©2017 The bíogo Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package encoding

import (
	"bytes"
	"io"
)

// Externals owns the per-content-id byte streams that External, VarintXxx
// and ByteArrayStop encodings read from and write to. A slice decoder
// registers one reader per content id at the start of decode and the map
// is scoped to that slice's decode (spec §9, "External-stream ownership").
type Externals struct {
	readers map[int32]io.Reader
	writers map[int32]*bytes.Buffer
}

// NewExternalReaders wraps a set of already-decompressed external block
// payloads, keyed by content id, for reading during record decode.
func NewExternalReaders(blocks map[int32][]byte) *Externals {
	e := &Externals{readers: make(map[int32]io.Reader, len(blocks))}
	for id, b := range blocks {
		e.readers[id] = bytes.NewReader(b)
	}
	return e
}

// NewExternalWriters returns an Externals ready to accumulate per-content-id
// output during record encode.
func NewExternalWriters() *Externals {
	return &Externals{writers: make(map[int32]*bytes.Buffer)}
}

// Reader returns the reader registered for id, or nil if none is
// registered (an encoding referencing an unregistered id is a format
// error the caller should surface).
func (e *Externals) Reader(id int32) io.Reader {
	if e == nil {
		return nil
	}
	return e.readers[id]
}

// Writer returns the accumulating buffer for id, creating it on first use.
func (e *Externals) Writer(id int32) *bytes.Buffer {
	b, ok := e.writers[id]
	if !ok {
		b = new(bytes.Buffer)
		e.writers[id] = b
	}
	return b
}

// Bytes finalizes all writers into a plain map, for block assembly.
func (e *Externals) Bytes() map[int32][]byte {
	out := make(map[int32][]byte, len(e.writers))
	for id, b := range e.writers {
		out[id] = b.Bytes()
	}
	return out
}

// ContentIDs reserved for embedded reference bases (spec §4.M, §9): must
// never collide with a data-series or tag content id.
const EmbeddedReferenceContentID int32 = 1<<31 - 1
