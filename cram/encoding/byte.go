// Copyright ©2017 The bíogo Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package encoding

import (
	"io"

	"github.com/biogo/cram/cram/bitio"
	"github.com/biogo/cram/cram/cramio"
	"github.com/biogo/cram/cram/huffman"
)

// Byte is a per-byte field codec: External, Huffman, or (v4-only) Constant
// (spec §4.G).
type Byte interface {
	Kind() Kind
	Decode(v cramio.Version, core *bitio.Reader, ext *Externals) (byte, error)
	Encode(v cramio.Version, core *bitio.Writer, ext *Externals, value byte) error
}

// ExternalByte reads/writes a single raw byte from the external stream
// identified by ContentID.
type ExternalByte struct{ ContentID int32 }

func (ExternalByte) Kind() Kind { return KindExternal }

func (e ExternalByte) Decode(_ cramio.Version, _ *bitio.Reader, ext *Externals) (byte, error) {
	r := ext.Reader(e.ContentID)
	if r == nil {
		return 0, cramio.Invalidf("encoding: no external stream registered for content id %d", e.ContentID)
	}
	var b [1]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		if err == io.EOF {
			err = io.ErrUnexpectedEOF
		}
		return 0, err
	}
	return b[0], nil
}

func (e ExternalByte) Encode(_ cramio.Version, _ *bitio.Writer, ext *Externals, value byte) error {
	return ext.Writer(e.ContentID).WriteByte(value)
}

// HuffmanByte wraps a canonical huffman.Codec (over byte-valued symbols)
// as a Byte encoding.
type HuffmanByte struct{ Codec *huffman.Codec }

func (HuffmanByte) Kind() Kind { return KindHuffman }

func (h HuffmanByte) Decode(_ cramio.Version, core *bitio.Reader, _ *Externals) (byte, error) {
	v, err := h.Codec.Decode(core)
	return byte(v), err
}

func (h HuffmanByte) Encode(_ cramio.Version, core *bitio.Writer, _ *Externals, value byte) error {
	return h.Codec.Encode(core, int32(value))
}

// ConstByte emits no bits and always decodes to Value. Legal only from
// CRAM 4.0 onward (spec §3).
type ConstByte struct{ Value byte }

func (ConstByte) Kind() Kind { return KindConstByte }

func (c ConstByte) Decode(v cramio.Version, _ *bitio.Reader, _ *Externals) (byte, error) {
	if err := checkVersion(c.Kind(), v); err != nil {
		return 0, err
	}
	return c.Value, nil
}

func (c ConstByte) Encode(v cramio.Version, _ *bitio.Writer, _ *Externals, value byte) error {
	if err := checkVersion(c.Kind(), v); err != nil {
		return err
	}
	if value != c.Value {
		return cramio.Invalidf("encoding: const byte mismatch: declared %d, got %d", c.Value, value)
	}
	return nil
}
