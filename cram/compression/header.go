// Copyright ©2017 The bíogo Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package compression

import (
	"io"

	"github.com/biogo/cram/cram/cramio"
)

// Header is the CRAM compression header: it lives in the first block of
// each container (content-type compression-header) and governs how every
// slice that follows decodes its records (spec §4.H).
type Header struct {
	Preservation PreservationMap
	DataSeries   Table
	Tags         TagEncodings
}

// NewHeader returns a Header with the canonical default data-series
// table for v and an empty preservation map/tag-encodings map, ready for
// a writer to fill in before the first slice is built.
func NewHeader(v cramio.Version) *Header {
	return &Header{
		DataSeries: *Init(v),
		Tags:       make(TagEncodings),
	}
}

// ReadFrom decodes a compression header from r, in the fixed order
// preservation map, data-series table, tag encodings.
func (h *Header) ReadFrom(r io.Reader, v cramio.Version) error {
	if err := h.Preservation.ReadFrom(r, v); err != nil {
		return err
	}
	if err := h.DataSeries.ReadFrom(r, v); err != nil {
		return err
	}
	return h.Tags.ReadFrom(r, v)
}

// WriteTo encodes h to w.
func (h *Header) WriteTo(w io.Writer, v cramio.Version) error {
	if err := h.Preservation.WriteTo(w, v); err != nil {
		return err
	}
	if err := h.DataSeries.WriteTo(w, v); err != nil {
		return err
	}
	return h.Tags.WriteTo(w, v)
}
