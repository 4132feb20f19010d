// Copyright ©2017 The bíogo Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package feature implements the CRAM per-record feature model: the
// CIGAR-to-feature expansion a writer performs to record how a read
// differs from its reference, and the reverse MD/NM reconstruction a
// reader performs from a decoded feature list (spec §4.L).
package feature

import "fmt"

// Kind identifies a Feature's tag.
type Kind byte

const (
	Bases Kind = iota
	Scores
	ReadBase
	Substitution
	Insertion
	Deletion
	InsertBase
	QualityScore
	ReferenceSkip
	SoftClip
	Padding
	HardClip
)

func (k Kind) String() string {
	switch k {
	case Bases:
		return "Bases"
	case Scores:
		return "Scores"
	case ReadBase:
		return "ReadBase"
	case Substitution:
		return "Substitution"
	case Insertion:
		return "Insertion"
	case Deletion:
		return "Deletion"
	case InsertBase:
		return "InsertBase"
	case QualityScore:
		return "QualityScore"
	case ReferenceSkip:
		return "ReferenceSkip"
	case SoftClip:
		return "SoftClip"
	case Padding:
		return "Padding"
	case HardClip:
		return "HardClip"
	default:
		return "Unknown"
	}
}

// Feature is one entry of a record's feature list: a sum type tagged by
// Kind, carrying only the fields that kind uses (spec §4.L, §3).
//
// Pos is the 1-based read position the feature applies at. Companion
// features (Scores, QualityScore, HardClip, Padding) may share a position
// with the feature they follow.
type Feature struct {
	Kind Kind
	Pos  int

	Bases []byte // Bases, Insertion, SoftClip
	Seq   []byte // Scores (quality bytes) or QualityScore (single byte in Seq[0])
	Base  byte   // ReadBase, InsertBase
	Qual  byte   // ReadBase
	Code  byte   // Substitution: substitution-matrix code, used when ReadBase is zero
	ReadBase byte // Substitution: explicit read base, used instead of Code when nonzero
	Len   int    // Deletion, ReferenceSkip, Padding, HardClip
}

func (f Feature) String() string {
	return fmt.Sprintf("%s@%d", f.Kind, f.Pos)
}

// ScoresAsArray reports whether the CRAM_FLAG_QUALITY_SCORES_ARE_STORED_AS_ARRAY
// record flag is set; when it is, FromCigar omits every companion
// quality feature, since the whole read's quality scores are stored as a
// single external array instead (spec §4.L).
const ScoresAsArray = 1 << 0
