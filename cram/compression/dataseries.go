// Copyright ©2017 The bíogo Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package compression

import (
	"io"

	"github.com/biogo/cram/cram/cramio"
	"github.com/biogo/cram/cram/encoding"
	"github.com/biogo/cram/cram/num"
)

// SeriesID names one of the 28 CRAM data series (spec §4.H). Its integer
// value doubles as the series' canonical, stable content id.
type SeriesID int32

// The 28 data series, in their canonical content-id order. TC and TN are
// the deprecated per-record tag-count/tag-name-and-type series, retained
// so implementations reading older files can still assign them a slot.
const (
	SeriesBF SeriesID = iota + 1 // BAM bitflags
	SeriesCF                    // Compression bitflags
	SeriesRI                    // Reference ID
	SeriesRL                    // Read length
	SeriesAP                    // In-sequence positions
	SeriesRG                    // Read group
	SeriesMF                    // Next mate bitflags
	SeriesNS                    // Next fragment reference sequence id
	SeriesNP                    // Next mate alignment start
	SeriesTS                    // Template size
	SeriesNF                    // Distance to next fragment
	SeriesTL                    // Tag id list index (into TD)
	SeriesFN                    // Number of read features
	SeriesFP                    // In-read positions
	SeriesRS                    // Reference skip length
	SeriesPD                    // Padding length
	SeriesHC                    // Hard clip length
	SeriesTC                    // Tag count (deprecated)
	SeriesTN                    // Tag name and type (deprecated)
	SeriesFC                    // Read feature codes
	SeriesBA                    // Base codes
	SeriesQS                    // Quality scores
	SeriesBS                    // Base substitution codes
	SeriesRN                    // Read names
	SeriesIN                    // Insertion bases
	SeriesSC                    // Soft-clip bases
	SeriesBB                    // Stretches of bases
	SeriesQQ                    // Stretches of quality scores
)

func (s SeriesID) String() string {
	switch s {
	case SeriesBF:
		return "BF"
	case SeriesCF:
		return "CF"
	case SeriesRI:
		return "RI"
	case SeriesRL:
		return "RL"
	case SeriesAP:
		return "AP"
	case SeriesRG:
		return "RG"
	case SeriesMF:
		return "MF"
	case SeriesNS:
		return "NS"
	case SeriesNP:
		return "NP"
	case SeriesTS:
		return "TS"
	case SeriesNF:
		return "NF"
	case SeriesTL:
		return "TL"
	case SeriesFN:
		return "FN"
	case SeriesFP:
		return "FP"
	case SeriesRS:
		return "RS"
	case SeriesPD:
		return "PD"
	case SeriesHC:
		return "HC"
	case SeriesTC:
		return "TC"
	case SeriesTN:
		return "TN"
	case SeriesFC:
		return "FC"
	case SeriesBA:
		return "BA"
	case SeriesQS:
		return "QS"
	case SeriesBS:
		return "BS"
	case SeriesRN:
		return "RN"
	case SeriesIN:
		return "IN"
	case SeriesSC:
		return "SC"
	case SeriesBB:
		return "BB"
	case SeriesQQ:
		return "QQ"
	default:
		return "??"
	}
}

var integerSeries = []SeriesID{
	SeriesBF, SeriesCF, SeriesRI, SeriesRL, SeriesAP, SeriesRG, SeriesMF,
	SeriesNS, SeriesNP, SeriesTS, SeriesNF, SeriesTL, SeriesFN, SeriesFP,
	SeriesRS, SeriesPD, SeriesHC, SeriesTC, SeriesTN,
}

var byteSeries = []SeriesID{SeriesFC, SeriesBA, SeriesQS, SeriesBS}

var byteArraySeries = []SeriesID{SeriesRN, SeriesIN, SeriesSC, SeriesBB, SeriesQQ}

// signedSeries is the subset of integerSeries whose v4.0 encoding is
// VarintSigned rather than VarintUnsigned: identifiers and fields that can
// be negative (spec §4.H, "signed for ids, starts, and other fields that
// can be negative; unsigned for lengths, counts, codes").
var signedSeries = map[SeriesID]bool{
	SeriesRI: true,
	SeriesAP: true,
	SeriesRG: true,
	SeriesNS: true,
	SeriesNP: true,
	SeriesTS: true,
	SeriesTN: true,
}

// Table holds the 28 data-series encodings that drive per-record decode
// (spec §4.H).
type Table struct {
	Integers   map[SeriesID]encoding.Integer
	Bytes      map[SeriesID]encoding.Byte
	ByteArrays map[SeriesID]encoding.ByteArray
}

// Init builds the canonical default Table for version v: below 4.0 every
// series is External (or ByteArrayStop/ByteArrayLength for byte arrays)
// addressed by its own canonical content id; from 4.0 onward integer
// series switch to VarintUnsigned/VarintSigned per field.
func Init(v cramio.Version) *Table {
	t := &Table{
		Integers:   make(map[SeriesID]encoding.Integer, len(integerSeries)),
		Bytes:      make(map[SeriesID]encoding.Byte, len(byteSeries)),
		ByteArrays: make(map[SeriesID]encoding.ByteArray, len(byteArraySeries)),
	}
	for _, s := range integerSeries {
		id := int32(s)
		if v.UsesVLQ() {
			if signedSeries[s] {
				t.Integers[s] = encoding.VarintSigned{ContentID: id}
			} else {
				t.Integers[s] = encoding.VarintUnsigned{ContentID: id}
			}
		} else {
			t.Integers[s] = encoding.ExternalInt{ContentID: id}
		}
	}
	for _, s := range byteSeries {
		t.Bytes[s] = encoding.ExternalByte{ContentID: int32(s)}
	}
	for _, s := range byteArraySeries {
		id := int32(s)
		if s == SeriesQQ {
			t.ByteArrays[s] = encoding.ByteArrayLength{
				LenEncoding: encoding.ExternalInt{ContentID: id},
				ValEncoding: encoding.ExternalByte{ContentID: id},
			}
			continue
		}
		t.ByteArrays[s] = encoding.ByteArrayStop{StopByte: 0x00, ContentID: id}
	}
	return t
}

// Prune drops any series whose encoding's declared content id is not
// present in usedContentIDs (the union of content ids seen across a
// container's slices). It must be called only on a freshly Init'd table,
// since an encoding decoded from a file may have been reassigned to a
// non-canonical content id and would be incorrectly dropped (spec §4.H).
func (t *Table) Prune(usedContentIDs map[int32]bool) {
	for s, e := range t.Integers {
		if !usedContentIDs[canonicalContentID(s, e)] {
			delete(t.Integers, s)
		}
	}
	for s, e := range t.Bytes {
		if !usedContentIDs[canonicalContentID(s, e)] {
			delete(t.Bytes, s)
		}
	}
	for s, e := range t.ByteArrays {
		if !usedContentIDs[canonicalContentID(s, e)] {
			delete(t.ByteArrays, s)
		}
	}
}

func canonicalContentID(s SeriesID, e interface{}) int32 {
	switch v := e.(type) {
	case encoding.ExternalInt:
		return v.ContentID
	case encoding.VarintUnsigned:
		return v.ContentID
	case encoding.VarintSigned:
		return v.ContentID
	case encoding.ExternalByte:
		return v.ContentID
	case encoding.ByteArrayStop:
		return v.ContentID
	case encoding.ByteArrayLength:
		return canonicalContentID(s, v.ValEncoding)
	default:
		return int32(s)
	}
}

// ReadFrom decodes the 28-entry data-series table: a count, then for each
// entry a 2-byte series key followed by its Encoding serialization.
func (t *Table) ReadFrom(r io.Reader, v cramio.Version) error {
	n, err := num.ReadSignedInt(r, v)
	if err != nil {
		return err
	}
	t.Integers = make(map[SeriesID]encoding.Integer)
	t.Bytes = make(map[SeriesID]encoding.Byte)
	t.ByteArrays = make(map[SeriesID]encoding.ByteArray)
	for i := int32(0); i < n; i++ {
		var key [2]byte
		if _, err := io.ReadFull(r, key[:]); err != nil {
			if err == io.EOF {
				err = io.ErrUnexpectedEOF
			}
			return err
		}
		s := seriesFromKey(string(key[:]))
		if s == 0 {
			return cramio.Invalidf("compression: unknown data series key %q", key)
		}
		switch {
		case isByteArraySeries(s):
			enc, err := encoding.UnmarshalByteArray(r, v)
			if err != nil {
				return err
			}
			t.ByteArrays[s] = enc
		case isByteSeries(s):
			enc, err := encoding.UnmarshalByte(r, v)
			if err != nil {
				return err
			}
			t.Bytes[s] = enc
		default:
			enc, err := encoding.UnmarshalInteger(r, v)
			if err != nil {
				return err
			}
			t.Integers[s] = enc
		}
	}
	return nil
}

// WriteTo encodes t to w.
func (t *Table) WriteTo(w io.Writer, v cramio.Version) error {
	n := int32(len(t.Integers) + len(t.Bytes) + len(t.ByteArrays))
	if err := num.WriteSignedInt(w, v, n); err != nil {
		return err
	}
	for _, s := range integerSeries {
		enc, ok := t.Integers[s]
		if !ok {
			continue
		}
		if err := writeSeriesKey(w, s); err != nil {
			return err
		}
		if err := encoding.MarshalInteger(w, v, enc); err != nil {
			return err
		}
	}
	for _, s := range byteSeries {
		enc, ok := t.Bytes[s]
		if !ok {
			continue
		}
		if err := writeSeriesKey(w, s); err != nil {
			return err
		}
		if err := encoding.MarshalByte(w, v, enc); err != nil {
			return err
		}
	}
	for _, s := range byteArraySeries {
		enc, ok := t.ByteArrays[s]
		if !ok {
			continue
		}
		if err := writeSeriesKey(w, s); err != nil {
			return err
		}
		if err := encoding.MarshalByteArray(w, v, enc); err != nil {
			return err
		}
	}
	return nil
}

func writeSeriesKey(w io.Writer, s SeriesID) error {
	_, err := io.WriteString(w, s.String())
	return err
}

func isByteSeries(s SeriesID) bool {
	for _, x := range byteSeries {
		if x == s {
			return true
		}
	}
	return false
}

func isByteArraySeries(s SeriesID) bool {
	for _, x := range byteArraySeries {
		if x == s {
			return true
		}
	}
	return false
}

func seriesFromKey(key string) SeriesID {
	all := make([]SeriesID, 0, len(integerSeries)+len(byteSeries)+len(byteArraySeries))
	all = append(all, integerSeries...)
	all = append(all, byteSeries...)
	all = append(all, byteArraySeries...)
	for _, s := range all {
		if s.String() == key {
			return s
		}
	}
	return 0
}
