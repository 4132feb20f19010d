// Copyright ©2017 The bíogo Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package compression implements the CRAM compression header: the
// preservation map, the 28-series data-series encoding table, and the
// tag-encodings map (spec §4.H).
package compression

import (
	"bytes"
	"io"

	"github.com/biogo/cram/cram/cramio"
	"github.com/biogo/cram/cram/num"
)

// PreservationMap records the boolean/array preservation flags that apply
// to an entire CRAM file (spec §4.H). Entries are always written in the
// fixed order RN, AP, RR, SM, TD, and on v4.0 QO.
type PreservationMap struct {
	// ReadNamesPreserved (RN) reports whether original read names are
	// stored verbatim rather than regenerated from a naming scheme.
	ReadNamesPreserved bool
	// AlignmentPositionsDelta (AP) reports whether records within a
	// slice are sorted by alignment position, permitting delta coding.
	AlignmentPositionsDelta bool
	// ReferenceRequired (RR) reports whether decoding needs the
	// reference sequence (false when all bases are stored verbatim).
	ReferenceRequired bool
	// SubstitutionMatrix (SM) maps each reference base to the four
	// possible substitution codes used by the BS data series, ordered
	// A, C, G, T, N, each with 4 candidate bases ranked by frequency.
	SubstitutionMatrix [5][4]byte
	// TagDictionary (TD) is the set of distinct tag-id-lists seen
	// across the file, each list being the concatenated 3-byte
	// (name,name,type) encodings for one record's tags, in the order
	// TL indexes into this slice.
	TagDictionary [][]byte
	// QualityOrientation (QO) is present only from CRAM 4.0: true means
	// quality scores are stored in alignment orientation (no reversal
	// needed on read), false means sequencing orientation.
	QualityOrientation bool
}

var preservationKeys = [...]string{"RN", "AP", "RR", "SM", "TD", "QO"}

// ReadFrom decodes a preservation map from r.
func (m *PreservationMap) ReadFrom(r io.Reader, v cramio.Version) error {
	n, err := num.ReadSignedInt(r, v)
	if err != nil {
		return err
	}
	for i := int32(0); i < n; i++ {
		var key [2]byte
		if _, err := io.ReadFull(r, key[:]); err != nil {
			if err == io.EOF {
				err = io.ErrUnexpectedEOF
			}
			return err
		}
		length, err := num.ReadSignedInt(r, v)
		if err != nil {
			return err
		}
		if length < 0 {
			return cramio.Invalidf("compression: negative preservation map entry length: %d", length)
		}
		value := make([]byte, length)
		if _, err := io.ReadFull(r, value); err != nil {
			if err == io.EOF {
				err = io.ErrUnexpectedEOF
			}
			return err
		}
		if err := m.setEntry(string(key[:]), value, v); err != nil {
			return err
		}
	}
	return nil
}

func (m *PreservationMap) setEntry(key string, value []byte, v cramio.Version) error {
	switch key {
	case "RN":
		m.ReadNamesPreserved = value[0] != 0
	case "AP":
		m.AlignmentPositionsDelta = value[0] != 0
	case "RR":
		m.ReferenceRequired = value[0] != 0
	case "SM":
		if len(value) != 20 {
			return cramio.Invalidf("compression: substitution matrix must be 20 bytes, got %d", len(value))
		}
		for i := 0; i < 5; i++ {
			copy(m.SubstitutionMatrix[i][:], value[i*4:i*4+4])
		}
	case "TD":
		dict, err := decodeTagDictionary(value, v)
		if err != nil {
			return err
		}
		m.TagDictionary = dict
	case "QO":
		m.QualityOrientation = value[0] != 0
	default:
		// Forward compatible: an unrecognised key's value was already
		// fully consumed by its length prefix, so simply ignore it.
	}
	return nil
}

// WriteTo encodes m to w in the canonical key order, including QO only
// when v is 4.0 or later.
func (m *PreservationMap) WriteTo(w io.Writer, v cramio.Version) error {
	keys := preservationKeys[:5]
	if v.UsesVLQ() {
		keys = preservationKeys[:6]
	}
	if err := num.WriteSignedInt(w, v, int32(len(keys))); err != nil {
		return err
	}
	for _, key := range keys {
		value, err := m.encodeEntry(key, v)
		if err != nil {
			return err
		}
		if _, err := io.WriteString(w, key); err != nil {
			return err
		}
		if err := num.WriteSignedInt(w, v, int32(len(value))); err != nil {
			return err
		}
		if _, err := w.Write(value); err != nil {
			return err
		}
	}
	return nil
}

func (m *PreservationMap) encodeEntry(key string, v cramio.Version) ([]byte, error) {
	switch key {
	case "RN":
		return []byte{boolByte(m.ReadNamesPreserved)}, nil
	case "AP":
		return []byte{boolByte(m.AlignmentPositionsDelta)}, nil
	case "RR":
		return []byte{boolByte(m.ReferenceRequired)}, nil
	case "SM":
		var out [20]byte
		for i := 0; i < 5; i++ {
			copy(out[i*4:i*4+4], m.SubstitutionMatrix[i][:])
		}
		return out[:], nil
	case "TD":
		return encodeTagDictionary(m.TagDictionary, v)
	case "QO":
		return []byte{boolByte(m.QualityOrientation)}, nil
	default:
		return nil, cramio.Invalidf("compression: unknown preservation map key %q", key)
	}
}

func boolByte(b bool) byte {
	if b {
		return 1
	}
	return 0
}

// decodeTagDictionary splits TD's value into its distinct tag-id-lists:
// a count, then each list as a length-prefixed byte string.
func decodeTagDictionary(value []byte, v cramio.Version) ([][]byte, error) {
	r := bytes.NewReader(value)
	n, err := num.ReadSignedInt(r, v)
	if err != nil {
		return nil, err
	}
	if n < 0 {
		return nil, cramio.Invalidf("compression: negative tag dictionary size: %d", n)
	}
	out := make([][]byte, n)
	for i := range out {
		l, err := num.ReadSignedInt(r, v)
		if err != nil {
			return nil, err
		}
		if l < 0 {
			return nil, cramio.Invalidf("compression: negative tag list length: %d", l)
		}
		list := make([]byte, l)
		if _, err := io.ReadFull(r, list); err != nil {
			if err == io.EOF {
				err = io.ErrUnexpectedEOF
			}
			return nil, err
		}
		out[i] = list
	}
	return out, nil
}

func encodeTagDictionary(dict [][]byte, v cramio.Version) ([]byte, error) {
	var buf bytes.Buffer
	if err := num.WriteSignedInt(&buf, v, int32(len(dict))); err != nil {
		return nil, err
	}
	for _, list := range dict {
		if err := num.WriteSignedInt(&buf, v, int32(len(list))); err != nil {
			return nil, err
		}
		if _, err := buf.Write(list); err != nil {
			return nil, err
		}
	}
	return buf.Bytes(), nil
}
