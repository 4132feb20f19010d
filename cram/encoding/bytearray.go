// Copyright ©2017 The bíogo Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package encoding

import (
	"io"

	"github.com/biogo/cram/cram/bitio"
	"github.com/biogo/cram/cram/cramio"
)

// ByteArray is a variable-length byte field codec: ByteArrayLength or
// ByteArrayStop (spec §4.G).
type ByteArray interface {
	Kind() Kind
	Decode(v cramio.Version, core *bitio.Reader, ext *Externals) ([]byte, error)
	Encode(v cramio.Version, core *bitio.Writer, ext *Externals, value []byte) error
}

// ByteArrayLength decodes a length with LenEncoding, then that many bytes
// one at a time with ValEncoding.
type ByteArrayLength struct {
	LenEncoding Integer
	ValEncoding Byte
}

func (ByteArrayLength) Kind() Kind { return KindByteArrayLen }

func (b ByteArrayLength) Decode(v cramio.Version, core *bitio.Reader, ext *Externals) ([]byte, error) {
	n, err := b.LenEncoding.Decode(v, core, ext)
	if err != nil {
		return nil, err
	}
	if n < 0 {
		return nil, cramio.Invalidf("encoding: byte array length negative: %d", n)
	}
	out := make([]byte, n)
	for i := range out {
		c, err := b.ValEncoding.Decode(v, core, ext)
		if err != nil {
			return nil, err
		}
		out[i] = c
	}
	return out, nil
}

func (b ByteArrayLength) Encode(v cramio.Version, core *bitio.Writer, ext *Externals, value []byte) error {
	if err := b.LenEncoding.Encode(v, core, ext, int32(len(value))); err != nil {
		return err
	}
	for _, c := range value {
		if err := b.ValEncoding.Encode(v, core, ext, c); err != nil {
			return err
		}
	}
	return nil
}

// ByteArrayStop reads/writes bytes from the external stream identified by
// ContentID until (exclusive of) StopByte.
type ByteArrayStop struct {
	StopByte  byte
	ContentID int32
}

func (ByteArrayStop) Kind() Kind { return KindByteArrayStop }

func (b ByteArrayStop) Decode(_ cramio.Version, _ *bitio.Reader, ext *Externals) ([]byte, error) {
	r := ext.Reader(b.ContentID)
	if r == nil {
		return nil, cramio.Invalidf("encoding: no external stream registered for content id %d", b.ContentID)
	}
	var out []byte
	var c [1]byte
	for {
		_, err := io.ReadFull(r, c[:])
		if err != nil {
			if err == io.EOF {
				err = io.ErrUnexpectedEOF
			}
			return nil, err
		}
		if c[0] == b.StopByte {
			return out, nil
		}
		out = append(out, c[0])
	}
}

func (b ByteArrayStop) Encode(_ cramio.Version, _ *bitio.Writer, ext *Externals, value []byte) error {
	w := ext.Writer(b.ContentID)
	if _, err := w.Write(value); err != nil {
		return err
	}
	return w.WriteByte(b.StopByte)
}
