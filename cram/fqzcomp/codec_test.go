// Copyright ©2017 The bíogo Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package fqzcomp

import (
	"bytes"
	"testing"
)

func roundTrip(t *testing.T, lens []int, reverse []bool, quality []byte) []byte {
	t.Helper()
	encoded, err := EncodeStream(lens, reverse, quality)
	if err != nil {
		t.Fatalf("EncodeStream: %v", err)
	}
	decoded, err := DecodeStream(encoded, len(lens))
	if err != nil {
		t.Fatalf("DecodeStream: %v", err)
	}
	if !bytes.Equal(decoded, quality) {
		t.Fatalf("round trip mismatch:\n got: %v\nwant: %v", decoded, quality)
	}
	return encoded
}

func repeatQuality(vals []byte, recLen, nRecs int) ([]int, []byte) {
	lens := make([]int, nRecs)
	quality := make([]byte, 0, recLen*nRecs)
	for i := 0; i < nRecs; i++ {
		lens[i] = recLen
		for j := 0; j < recLen; j++ {
			quality = append(quality, vals[(i+j)%len(vals)])
		}
	}
	return lens, quality
}

func TestEncodeDecodeBasic(t *testing.T) {
	lens, quality := repeatQuality([]byte{30, 35, 40, 20, 10}, 8, 6)
	roundTrip(t, lens, nil, quality)
}

func TestEncodeDecodeWithDoLen(t *testing.T) {
	// Every record the same length should trip DO_LEN.
	lens, quality := repeatQuality([]byte{2, 4, 6, 8, 10, 20, 30}, 12, 20)
	encoded := roundTrip(t, lens, nil, quality)

	params, err := readHeader(bytes.NewReader(encoded))
	if err != nil {
		t.Fatalf("readHeader: %v", err)
	}
	if params.Params[0].Flags&flagDoLen == 0 {
		t.Error("expected DO_LEN to be inferred for uniform-length records")
	}
}

func TestEncodeDecodeWithReverse(t *testing.T) {
	lens, quality := repeatQuality([]byte{5, 10, 15, 20, 25, 30, 35}, 10, 8)
	reverse := make([]bool, len(lens))
	for i := range reverse {
		reverse[i] = i%2 == 0
	}
	encoded := roundTrip(t, lens, reverse, quality)

	params, err := readHeader(bytes.NewReader(encoded))
	if err != nil {
		t.Fatalf("readHeader: %v", err)
	}
	if params.GlobalFlags&flagDoRev == 0 {
		t.Error("expected DO_REV to be set when any record is reverse-stranded")
	}
}

func TestEncodeDecodeWithQMap3Distinct(t *testing.T) {
	lens, quality := repeatQuality([]byte{2, 20, 37}, 15, 10)
	encoded := roundTrip(t, lens, nil, quality)

	params, err := readHeader(bytes.NewReader(encoded))
	if err != nil {
		t.Fatalf("readHeader: %v", err)
	}
	if params.Params[0].Flags&flagHaveQMap == 0 {
		t.Error("expected HAVE_QMAP with only 3 distinct quality values")
	}
	if len(params.Params[0].QMap) != 3 {
		t.Errorf("got qmap of length %d, want 3", len(params.Params[0].QMap))
	}
}

func TestEncodeDecodeWithQMapSingleValue(t *testing.T) {
	lens, quality := repeatQuality([]byte{40}, 20, 5)
	encoded := roundTrip(t, lens, nil, quality)

	params, err := readHeader(bytes.NewReader(encoded))
	if err != nil {
		t.Fatalf("readHeader: %v", err)
	}
	if params.Params[0].Flags&flagHaveQMap == 0 {
		t.Error("expected HAVE_QMAP with a single distinct quality value")
	}
	if params.Params[0].MaxSymbol != 0 {
		t.Errorf("got max symbol %d, want 0", params.Params[0].MaxSymbol)
	}
}

func TestEncodeDecodeWithQMap16Values(t *testing.T) {
	vals := make([]byte, 16)
	for i := range vals {
		vals[i] = byte(i * 2)
	}
	lens, quality := repeatQuality(vals, 25, 10)
	encoded := roundTrip(t, lens, nil, quality)

	params, err := readHeader(bytes.NewReader(encoded))
	if err != nil {
		t.Fatalf("readHeader: %v", err)
	}
	if params.Params[0].Flags&flagHaveQMap == 0 {
		t.Error("expected HAVE_QMAP with exactly 16 distinct quality values")
	}
}

func TestEncodeDecodeWithNoQMap17Values(t *testing.T) {
	vals := make([]byte, 17)
	for i := range vals {
		vals[i] = byte(i * 2)
	}
	lens, quality := repeatQuality(vals, 25, 10)
	encoded := roundTrip(t, lens, nil, quality)

	params, err := readHeader(bytes.NewReader(encoded))
	if err != nil {
		t.Fatalf("readHeader: %v", err)
	}
	if params.Params[0].Flags&flagHaveQMap != 0 {
		t.Error("expected no HAVE_QMAP with 17 distinct quality values (over the 16 cap)")
	}
}

func TestEncodeDecodeWithDedup(t *testing.T) {
	rec := []byte{10, 20, 30, 40, 10}
	var lens []int
	var quality []byte
	for i := 0; i < 20; i++ {
		lens = append(lens, len(rec))
		quality = append(quality, rec...)
	}
	encoded := roundTrip(t, lens, nil, quality)

	params, err := readHeader(bytes.NewReader(encoded))
	if err != nil {
		t.Fatalf("readHeader: %v", err)
	}
	if params.Params[0].Flags&flagDoDedup == 0 {
		t.Error("expected DO_DEDUP when every record after the first repeats the one before it")
	}
}

func buildMultiParamFixture() ([]int, []byte) {
	var lens []int
	var quality []byte
	shortVals := []byte{5, 10, 15, 20, 25}
	for i := 0; i < 15; i++ {
		lens = append(lens, 5)
		for j := 0; j < 5; j++ {
			quality = append(quality, shortVals[(i+j)%len(shortVals)])
		}
	}
	longVals := []byte{2, 4, 6, 8, 10, 12, 14, 16, 18, 20}
	for i := 0; i < 15; i++ {
		lens = append(lens, 20)
		for j := 0; j < 20; j++ {
			quality = append(quality, longVals[(i+j)%len(longVals)])
		}
	}
	return lens, quality
}

func TestEncodeDecodeMultiParam(t *testing.T) {
	lens, quality := buildMultiParamFixture()
	encoded := roundTrip(t, lens, nil, quality)

	params, err := readHeader(bytes.NewReader(encoded))
	if err != nil {
		t.Fatalf("readHeader: %v", err)
	}
	if params.GlobalFlags&flagMultiParam == 0 {
		t.Fatal("expected MULTI_PARAM with 15 short and 15 long records")
	}
	if len(params.Params) != 2 {
		t.Errorf("got %d parameter sets, want 2", len(params.Params))
	}
}

func TestEncodeDecodeMultiParamWithReverse(t *testing.T) {
	lens, quality := buildMultiParamFixture()
	reverse := make([]bool, len(lens))
	for i := range reverse {
		reverse[i] = i%3 == 0
	}
	encoded := roundTrip(t, lens, reverse, quality)

	params, err := readHeader(bytes.NewReader(encoded))
	if err != nil {
		t.Fatalf("readHeader: %v", err)
	}
	if params.GlobalFlags&flagMultiParam == 0 {
		t.Fatal("expected MULTI_PARAM to survive alongside DO_REV")
	}
	if params.GlobalFlags&flagDoRev == 0 {
		t.Error("expected DO_REV alongside MULTI_PARAM")
	}
}

func TestEncodeUniformLengthsNoMultiParam(t *testing.T) {
	lens, quality := repeatQuality([]byte{1, 2, 3, 4, 5}, 10, 40)
	encoded := roundTrip(t, lens, nil, quality)

	params, err := readHeader(bytes.NewReader(encoded))
	if err != nil {
		t.Fatalf("readHeader: %v", err)
	}
	if params.GlobalFlags&flagMultiParam != 0 {
		t.Error("expected no MULTI_PARAM when every record has the same length")
	}
}

func TestEncodeTooFewRecordsNoMultiParam(t *testing.T) {
	lens, quality := repeatQuality([]byte{1, 2, 3}, 5, 6)
	encoded := roundTrip(t, lens, nil, quality)

	params, err := readHeader(bytes.NewReader(encoded))
	if err != nil {
		t.Fatalf("readHeader: %v", err)
	}
	if params.GlobalFlags&flagMultiParam != 0 {
		t.Error("expected no MULTI_PARAM with fewer than 2*minGroupSize records")
	}
}

func TestWriteArrayReadArrayRoundTrip(t *testing.T) {
	cases := [][]byte{
		{5, 5, 5, 2, 2, 2, 2, 7},
		{0, 1, 2, 3, 4, 5},
		{9, 9, 9, 9, 9, 9, 9, 9, 9, 9},
		{1},
	}
	for _, data := range cases {
		var buf bytes.Buffer
		if err := writeArray(&buf, data); err != nil {
			t.Fatalf("writeArray: %v", err)
		}
		got, err := readArray(&buf, len(data))
		if err != nil {
			t.Fatalf("readArray: %v", err)
		}
		if !bytes.Equal(got, data) {
			t.Errorf("got %v, want %v", got, data)
		}
	}
}

func TestWriteArrayReadArrayLongRun(t *testing.T) {
	data := make([]byte, 600)
	for i := range data {
		data[i] = 3
	}
	var buf bytes.Buffer
	if err := writeArray(&buf, data); err != nil {
		t.Fatalf("writeArray: %v", err)
	}
	got, err := readArray(&buf, len(data))
	if err != nil {
		t.Fatalf("readArray: %v", err)
	}
	if !bytes.Equal(got, data) {
		t.Error("long run did not round trip through the 255-chunked extra count")
	}
}
