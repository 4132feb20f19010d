// Copyright ©2017 The bíogo Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package nametok

import (
	"reflect"
	"testing"
)

func roundTrip(t *testing.T, names []string) []string {
	t.Helper()
	data, err := EncodeNames(names)
	if err != nil {
		t.Fatalf("EncodeNames: %v", err)
	}
	got, err := DecodeNames(data)
	if err != nil {
		t.Fatalf("DecodeNames: %v", err)
	}
	if !reflect.DeepEqual(got, names) {
		t.Fatalf("round trip mismatch:\n got: %#v\nwant: %#v", got, names)
	}
	return got
}

func TestRoundTripSimple(t *testing.T) {
	roundTrip(t, []string{"read1", "read2", "read3"})
}

func TestRoundTripEmpty(t *testing.T) {
	roundTrip(t, nil)
}

func TestRoundTripSingleName(t *testing.T) {
	roundTrip(t, []string{"SRR000001.1"})
}

func TestRoundTripMatchToken(t *testing.T) {
	// Names sharing every token but the last exercise matchToken at
	// every position but the final delta.
	roundTrip(t, []string{
		"SRR000001.1/1",
		"SRR000001.1/2",
		"SRR000002.1/2",
	})
}

func TestRoundTripDeltaToken(t *testing.T) {
	// Plain (unpadded) digit runs that climb by a small amount exercise
	// deltaToken against the previous name's digitsToken.
	roundTrip(t, []string{
		"read1",
		"read6",
		"read9",
		"read255",
	})
}

func TestRoundTripDelta0Token(t *testing.T) {
	// Zero-padded digit runs of matching width that climb by a small
	// amount exercise delta0Token against the previous name's
	// paddedDigitsToken, and its chaining against a prior delta0Token.
	roundTrip(t, []string{
		"read0001",
		"read0002",
		"read0004",
		"read0100",
	})
}

func TestRoundTripDupToken(t *testing.T) {
	// Exact repeats of an earlier name exercise dupToken and its
	// back-reference decode path.
	roundTrip(t, []string{
		"pair.1",
		"pair.2",
		"pair.1",
		"pair.1",
		"other",
		"pair.2",
	})
}

func TestRoundTripMixedTokens(t *testing.T) {
	roundTrip(t, []string{
		"machine01:1:1101:1000:2000",
		"machine01:1:1101:1000:2001",
		"machine01:1:1101:1005:1999",
		"machine01:1:1101:1000:2001",
		"machine02:2:2202:0050:0099",
		"machine02:2:2202:0051:0100",
	})
}

func TestRoundTripVaryingTokenCounts(t *testing.T) {
	// Names whose token count differs from the name they are diffed
	// against exercise the positionCount bookkeeping (present/absent
	// previous token) in both classify and reconstruct.
	roundTrip(t, []string{
		"short",
		"short.with.more.parts.1",
		"short",
	})
}

func TestEncodeNamesIsSelfContained(t *testing.T) {
	data, err := EncodeNames([]string{"a1", "a2", "a3"})
	if err != nil {
		t.Fatalf("EncodeNames: %v", err)
	}
	got, err := DecodeNames(append([]byte(nil), data...))
	if err != nil {
		t.Fatalf("DecodeNames: %v", err)
	}
	want := []string{"a1", "a2", "a3"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %#v, want %#v", got, want)
	}
}
