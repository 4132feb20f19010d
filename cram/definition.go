// Copyright ©2017 The bíogo Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cram

import (
	"bytes"
	"io"

	"github.com/biogo/cram/cram/cramio"
)

// magic is the four-byte CRAM file signature (spec §6).
var magic = [4]byte{'C', 'R', 'A', 'M'}

// definition is a CRAM file definition: the fixed-size header that opens
// every CRAM stream, ahead of the file-header container (spec §4.N, §6).
type definition struct {
	Version cramio.Version
	ID      [20]byte
}

func (d *definition) readFrom(r io.Reader) error {
	var buf [26]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		if err == io.EOF {
			return err
		}
		return io.ErrUnexpectedEOF
	}
	if !bytes.Equal(buf[:4], magic[:]) {
		return cramio.Invalidf("cram: not a cram file: magic bytes %q", buf[:4])
	}
	d.Version = cramio.Version{Major: buf[4], Minor: buf[5]}
	if !cramio.Supported(d.Version) {
		return cramio.Invalidf("cram: unsupported version %s", d.Version)
	}
	copy(d.ID[:], buf[6:26])
	return nil
}

func (d *definition) writeTo(w io.Writer) error {
	var buf [26]byte
	copy(buf[:4], magic[:])
	buf[4] = d.Version.Major
	buf[5] = d.Version.Minor
	copy(buf[6:26], d.ID[:])
	_, err := w.Write(buf[:])
	return err
}
