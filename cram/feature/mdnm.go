// Copyright ©2017 The bíogo Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package feature

import (
	"fmt"
	"strconv"
	"strings"
)

// baseIndex maps an uppercase reference base to its row in a substitution
// matrix (A, C, G, T, N), matching the fixed base ordering the
// preservation map's SM field uses (spec §3, §4.L).
func baseIndex(b byte) int {
	switch b & 0xdf { // uppercase
	case 'A':
		return 0
	case 'C':
		return 1
	case 'G':
		return 2
	case 'T':
		return 3
	default:
		return 4
	}
}

var baseLetters = [5]byte{'A', 'C', 'G', 'T', 'N'}

// ResolveSubstitution maps a reference base and a Substitution feature's
// code through the 5x4 substitution matrix to the base the read actually
// carries, exactly as noodles-cram's substitution_matrix module builds
// and consults its lookup table (spec §4.L, supplemented from
// preservation_map/substitution_matrix behavior).
func ResolveSubstitution(matrix [5][4]byte, refBase byte, code byte) byte {
	if code > 3 {
		return 'N'
	}
	row := baseIndex(refBase)
	return matrix[row][code]
}

// MDNM is the computed MD string and NM edit distance for a record (spec
// §4.L).
type MDNM struct {
	MD string
	NM uint32
}

// ComputeMDNM reconstructs the MD tag and NM edit distance from a
// record's features (must be sorted by position), its reference
// sequence slice (indexed so that referenceSequence[0] is the base at
// alignmentStart), alignmentStart (1-based) and the record's read
// length, resolving Substitution feature codes through matrix (spec
// §4.L).
//
// Companion features (Scores, QualityScore, HardClip, Padding) do not
// advance read or reference position and contribute nothing to MD/NM.
func ComputeMDNM(features []Feature, referenceSequence []byte, alignmentStart int, readLength int, matrix [5][4]byte) (MDNM, error) {
	var md strings.Builder
	var nm uint32
	matchCount := 0
	readPos := 1
	refOffset := 0

	refBaseAt := func(offset int) byte {
		i := alignmentStart - 1 + offset
		if i < 0 || i >= len(referenceSequence) {
			return 'N'
		}
		return referenceSequence[i]
	}

	flushMatches := func() {
		md.WriteString(strconv.Itoa(matchCount))
		matchCount = 0
	}

	for _, f := range features {
		switch f.Kind {
		case Scores, QualityScore, HardClip, Padding:
			continue
		}
		if f.Pos < readPos {
			return MDNM{}, fmt.Errorf("feature: %s position %d precedes current read position %d", f.Kind, f.Pos, readPos)
		}

		switch f.Kind {
		case Substitution:
			matchCount += f.Pos - readPos
			refOffset += f.Pos - readPos

			refBase := refBaseAt(refOffset)
			var readBase byte
			if f.ReadBase != 0 {
				readBase = f.ReadBase
			} else {
				readBase = ResolveSubstitution(matrix, refBase, f.Code)
			}
			_ = readBase // the read base is already implied by the matrix; MD records the reference base

			flushMatches()
			md.WriteByte(upper(refBase))
			nm++

			readPos = f.Pos + 1
			refOffset++

		case ReadBase:
			matchCount += f.Pos - readPos
			refOffset += f.Pos - readPos

			refBase := refBaseAt(refOffset)
			if !eqIgnoreCase(f.Base, refBase) {
				flushMatches()
				md.WriteByte(upper(refBase))
				nm++
			} else {
				matchCount++
			}

			readPos = f.Pos + 1
			refOffset++

		case Bases:
			matchCount += f.Pos - readPos
			refOffset += f.Pos - readPos

			for i, readBase := range f.Bases {
				refBase := refBaseAt(refOffset + i)
				if !eqIgnoreCase(readBase, refBase) {
					flushMatches()
					md.WriteByte(upper(refBase))
					nm++
				} else {
					matchCount++
				}
			}

			readPos = f.Pos + len(f.Bases)
			refOffset += len(f.Bases)

		case Insertion:
			matchCount += f.Pos - readPos
			refOffset += f.Pos - readPos

			nm += uint32(len(f.Bases))
			readPos = f.Pos + len(f.Bases)

		case InsertBase:
			matchCount += f.Pos - readPos
			refOffset += f.Pos - readPos

			nm++
			readPos = f.Pos + 1

		case Deletion:
			matchCount += f.Pos - readPos
			refOffset += f.Pos - readPos

			flushMatches()
			md.WriteByte('^')
			for i := 0; i < f.Len; i++ {
				md.WriteByte(upper(refBaseAt(refOffset + i)))
			}
			nm += uint32(f.Len)
			refOffset += f.Len
			readPos = f.Pos

		case ReferenceSkip:
			matchCount += f.Pos - readPos
			refOffset += f.Pos - readPos

			refOffset += f.Len
			readPos = f.Pos

		case SoftClip:
			matchCount += f.Pos - readPos
			refOffset += f.Pos - readPos

			readPos = f.Pos + len(f.Bases)

		default:
			return MDNM{}, fmt.Errorf("feature: unexpected feature kind %s in MD/NM walk", f.Kind)
		}
	}

	if readPos <= readLength {
		matchCount += readLength - readPos + 1
	}
	flushMatches()

	return MDNM{MD: md.String(), NM: nm}, nil
}

func upper(b byte) byte {
	if b >= 'a' && b <= 'z' {
		return b - ('a' - 'A')
	}
	return b
}

func eqIgnoreCase(a, b byte) bool {
	return upper(a) == upper(b)
}
