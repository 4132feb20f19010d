// Copyright ©2017 The bíogo Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package feature

import (
	"testing"

	"github.com/biogo/cram/sam"
)

func TestFromCigarSingleBaseMatch(t *testing.T) {
	cig := sam.Cigar{sam.NewCigarOp(sam.CigarMatch, 1)}
	seq := []byte("A")
	qual := []byte{30}
	got := FromCigar(cig, seq, qual, 0)
	if len(got) != 1 || got[0].Kind != ReadBase || got[0].Pos != 1 || got[0].Base != 'A' || got[0].Qual != 30 {
		t.Fatalf("got %+v, want a single ReadBase feature", got)
	}
}

func TestFromCigarMultiBaseMatchEmitsScores(t *testing.T) {
	cig := sam.Cigar{sam.NewCigarOp(sam.CigarMatch, 3)}
	seq := []byte("ACG")
	qual := []byte{10, 20, 30}
	got := FromCigar(cig, seq, qual, 0)
	if len(got) != 2 || got[0].Kind != Bases || got[1].Kind != Scores {
		t.Fatalf("got %+v, want Bases then Scores", got)
	}
}

func TestFromCigarScoresAsArraySuppressesCompanions(t *testing.T) {
	cig := sam.Cigar{sam.NewCigarOp(sam.CigarMatch, 3)}
	seq := []byte("ACG")
	qual := []byte{10, 20, 30}
	got := FromCigar(cig, seq, qual, ScoresAsArray)
	if len(got) != 1 || got[0].Kind != Bases {
		t.Fatalf("got %+v, want only Bases (no Scores) when ScoresAsArray is set", got)
	}
}

func TestFromCigarDeletionAndInsertion(t *testing.T) {
	cig := sam.Cigar{
		sam.NewCigarOp(sam.CigarMatch, 2),
		sam.NewCigarOp(sam.CigarInsertion, 2),
		sam.NewCigarOp(sam.CigarDeletion, 3),
		sam.NewCigarOp(sam.CigarMatch, 2),
	}
	seq := []byte("ACTTGC")
	qual := []byte{1, 2, 3, 4, 5, 6}
	got := FromCigar(cig, seq, qual, 0)

	var kinds []Kind
	for _, f := range got {
		kinds = append(kinds, f.Kind)
	}
	want := []Kind{Bases, Scores, Insertion, Scores, Deletion, Bases, Scores}
	if len(kinds) != len(want) {
		t.Fatalf("got %v, want %v", kinds, want)
	}
	for i := range want {
		if kinds[i] != want[i] {
			t.Errorf("feature %d: got %s, want %s", i, kinds[i], want[i])
		}
	}
}
