// Copyright ©2017 The bíogo Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package feature

import (
	"github.com/biogo/cram/sam"
)

// FromCigar expands a CIGAR alignment against read and quality bytes into
// a Feature list, following the same op-by-op walk an encoder performs
// when turning an alignment record into CRAM's feature representation
// (spec §4.L).
//
// readPos and refPos are both reset to 1 at the start of the read/
// reference respectively; readPos advances through seq/qual, refPos is
// informational only (FromCigar does not consult a reference sequence;
// substitutions the caller already resolved to an explicit base are
// recorded as Substitution features carrying ReadBase).
//
// flags is the record's CRAM flag bitset; when ScoresAsArray is set, every
// companion quality feature this function would otherwise emit is
// omitted, since the read's quality scores are stored as a single
// external array instead.
func FromCigar(cig sam.Cigar, seq, qual []byte, flags uint16) []Feature {
	storeArray := flags&ScoresAsArray != 0
	var features []Feature
	readPos := 1

	for _, op := range cig {
		n := op.Len()
		switch op.Type() {
		case sam.CigarMatch, sam.CigarEqual, sam.CigarMismatch:
			if n == 1 {
				f := Feature{Kind: ReadBase, Pos: readPos, Base: seq[readPos-1]}
				if len(qual) >= readPos {
					f.Qual = qual[readPos-1]
				}
				features = append(features, f)
			} else {
				features = append(features, Feature{Kind: Bases, Pos: readPos, Bases: seq[readPos-1 : readPos-1+n]})
				if !storeArray && len(qual) >= readPos-1+n {
					features = append(features, Feature{Kind: Scores, Pos: readPos, Seq: qual[readPos-1 : readPos-1+n]})
				}
			}
			readPos += n
		case sam.CigarInsertion:
			if n == 1 {
				f := Feature{Kind: InsertBase, Pos: readPos, Base: seq[readPos-1]}
				features = append(features, f)
				if !storeArray && len(qual) >= readPos {
					features = append(features, Feature{Kind: QualityScore, Pos: readPos, Seq: []byte{qual[readPos-1]}})
				}
			} else {
				features = append(features, Feature{Kind: Insertion, Pos: readPos, Bases: seq[readPos-1 : readPos-1+n]})
				if !storeArray && len(qual) >= readPos-1+n {
					features = append(features, Feature{Kind: Scores, Pos: readPos, Seq: qual[readPos-1 : readPos-1+n]})
				}
			}
			readPos += n
		case sam.CigarDeletion:
			features = append(features, Feature{Kind: Deletion, Pos: readPos, Len: n})
		case sam.CigarSkipped:
			features = append(features, Feature{Kind: ReferenceSkip, Pos: readPos, Len: n})
		case sam.CigarSoftClipped:
			features = append(features, Feature{Kind: SoftClip, Pos: readPos, Bases: seq[readPos-1 : readPos-1+n]})
			if !storeArray && len(qual) >= readPos-1+n {
				features = append(features, Feature{Kind: Scores, Pos: readPos, Seq: qual[readPos-1 : readPos-1+n]})
			}
			readPos += n
		case sam.CigarHardClipped:
			features = append(features, Feature{Kind: HardClip, Pos: readPos, Len: n})
		case sam.CigarPadded:
			features = append(features, Feature{Kind: Padding, Pos: readPos, Len: n})
		}
	}
	return features
}
