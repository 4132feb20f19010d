// Copyright ©2017 The bíogo Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package feature

import "testing"

func defaultMatrix() [5][4]byte {
	// A row: C,G,T,N as codes 0,1,2,3; C row: A,G,T,N; etc. Any fixed
	// bijection works for the ComputeMDNM tests since they exercise no
	// Substitution features; TestResolveSubstitution relies on the C row's
	// code 2 being T.
	return [5][4]byte{
		{'C', 'G', 'T', 'N'},
		{'A', 'G', 'T', 'N'},
		{'A', 'C', 'T', 'N'},
		{'A', 'C', 'G', 'N'},
		{'A', 'C', 'G', 'T'},
	}
}

func TestComputeMDNMAllMatch(t *testing.T) {
	got, err := ComputeMDNM(nil, []byte("ACGTACGT"), 1, 4, defaultMatrix())
	if err != nil {
		t.Fatal(err)
	}
	if got.MD != "4" || got.NM != 0 {
		t.Errorf("got md=%q nm=%d, want md=%q nm=%d", got.MD, got.NM, "4", 0)
	}
}

func TestComputeMDNMWithDeletion(t *testing.T) {
	features := []Feature{{Kind: Deletion, Pos: 3, Len: 2}}
	got, err := ComputeMDNM(features, []byte("ACGTACGT"), 1, 4, defaultMatrix())
	if err != nil {
		t.Fatal(err)
	}
	if got.MD != "2^GT2" || got.NM != 2 {
		t.Errorf("got md=%q nm=%d, want md=%q nm=%d", got.MD, got.NM, "2^GT2", 2)
	}
}

func TestComputeMDNMWithInsertion(t *testing.T) {
	features := []Feature{{Kind: Insertion, Pos: 3, Bases: []byte("TT")}}
	got, err := ComputeMDNM(features, []byte("ACGTACGT"), 1, 6, defaultMatrix())
	if err != nil {
		t.Fatal(err)
	}
	if got.MD != "4" || got.NM != 2 {
		t.Errorf("got md=%q nm=%d, want md=%q nm=%d", got.MD, got.NM, "4", 2)
	}
}

func TestComputeMDNMWithReadBaseMismatch(t *testing.T) {
	features := []Feature{{Kind: ReadBase, Pos: 2, Base: 'T'}}
	got, err := ComputeMDNM(features, []byte("ACGT"), 1, 4, defaultMatrix())
	if err != nil {
		t.Fatal(err)
	}
	if got.MD != "1C2" || got.NM != 1 {
		t.Errorf("got md=%q nm=%d, want md=%q nm=%d", got.MD, got.NM, "1C2", 1)
	}
}

func TestComputeMDNMCombinedFeatures(t *testing.T) {
	features := []Feature{
		{Kind: Insertion, Pos: 3, Bases: []byte("X")},
		{Kind: Deletion, Pos: 5, Len: 2},
	}
	got, err := ComputeMDNM(features, []byte("ACGTACGT"), 1, 6, defaultMatrix())
	if err != nil {
		t.Fatal(err)
	}
	if got.MD != "3^TA2" || got.NM != 3 {
		t.Errorf("got md=%q nm=%d, want md=%q nm=%d", got.MD, got.NM, "3^TA2", 3)
	}
}

func TestComputeMDNMWithSoftClip(t *testing.T) {
	features := []Feature{{Kind: SoftClip, Pos: 1, Bases: []byte("NN")}}
	got, err := ComputeMDNM(features, []byte("ACGTACGT"), 1, 5, defaultMatrix())
	if err != nil {
		t.Fatal(err)
	}
	if got.MD != "3" || got.NM != 0 {
		t.Errorf("got md=%q nm=%d, want md=%q nm=%d", got.MD, got.NM, "3", 0)
	}
}

func TestComputeMDNMCompanionFeatures(t *testing.T) {
	features := []Feature{
		{Kind: Bases, Pos: 1, Bases: []byte("AC")},
		{Kind: Scores, Pos: 1, Seq: []byte{40, 35}},
	}
	got, err := ComputeMDNM(features, []byte("ACGT"), 1, 4, defaultMatrix())
	if err != nil {
		t.Fatal(err)
	}
	if got.MD != "4" || got.NM != 0 {
		t.Errorf("got md=%q nm=%d, want md=%q nm=%d", got.MD, got.NM, "4", 0)
	}
}

func TestComputeMDNMWithReferenceSkip(t *testing.T) {
	features := []Feature{{Kind: ReferenceSkip, Pos: 3, Len: 3}}
	got, err := ComputeMDNM(features, []byte("ACGTACGT"), 1, 4, defaultMatrix())
	if err != nil {
		t.Fatal(err)
	}
	if got.MD != "4" || got.NM != 0 {
		t.Errorf("got md=%q nm=%d, want md=%q nm=%d", got.MD, got.NM, "4", 0)
	}
}

func TestComputeMDNMWithInsertBase(t *testing.T) {
	features := []Feature{{Kind: InsertBase, Pos: 3, Base: 'X'}}
	got, err := ComputeMDNM(features, []byte("ACGTACGT"), 1, 5, defaultMatrix())
	if err != nil {
		t.Fatal(err)
	}
	if got.MD != "4" || got.NM != 1 {
		t.Errorf("got md=%q nm=%d, want md=%q nm=%d", got.MD, got.NM, "4", 1)
	}
}

func TestResolveSubstitution(t *testing.T) {
	m := defaultMatrix()
	if got := ResolveSubstitution(m, 'C', 2); got != 'T' {
		t.Errorf("ResolveSubstitution(C, 2) = %c, want T", got)
	}
	if got := ResolveSubstitution(m, 'c', 2); got != 'T' {
		t.Errorf("ResolveSubstitution(c, 2) = %c, want T (case-insensitive)", got)
	}
}
