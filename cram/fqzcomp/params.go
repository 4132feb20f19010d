// Copyright ©2017 The bíogo Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package fqzcomp

import "sort"

// globalFlags are the stream-wide flags written once per fqzcomp stream.
type globalFlags byte

const (
	flagDoRev globalFlags = 1 << iota
	flagMultiParam
	flagHaveSTab
)

// paramFlags are written once per Parameter.
type paramFlags byte

const (
	flagHavePTab paramFlags = 1 << iota
	flagDoLen
	flagDoDedup
	flagHaveQMap
	flagHaveDTab
	flagHaveQTab
)

// Context bit-field layout and table sizing, fixed by the format rather
// than chosen per stream (spec §4.J).
const (
	qBits  = 9
	qShift = 5
	qLoc   = 7
	sLoc   = 15
	dLoc   = 15
	pLoc   = 0
	pBits  = 7

	dBits        = 3
	minGroupSize = 10
)

// Parameter is one parameter set: the model shape and lookup tables used
// to code every record assigned to it (spec §4.J).
type Parameter struct {
	Context   uint16
	Flags     paramFlags
	MaxSymbol byte

	QTab [256]byte
	PTab [1024]byte
	DTab [256]byte

	// QMap maps model symbol -> original quality value, present only
	// when Flags&flagHaveQMap is set; its inverse is folded in at
	// Parameter-build time since both encode and decode need it.
	QMap        []byte
	InverseQMap [256]byte
}

// Parameters is the full per-stream parameter set: one Parameter per
// group (one, unless MULTI_PARAM grouping applied), plus the selector
// table that routes a record to its group (spec §4.J).
type Parameters struct {
	GlobalFlags     globalFlags
	MaxSel          byte
	STab            [256]byte
	Params          []Parameter
	RecordSelectors []byte // nil unless GlobalFlags has flagMultiParam
}

// InferParameters derives a stream's Parameters from the concatenated
// quality bytes of every record, their lengths and strand flags. It
// first tries splitting records into a short and a long group by median
// length (MULTI_PARAM); if that split is not viable it falls back to a
// single Parameter covering every record (spec §4.J).
func InferParameters(lens []int, reverse []bool, quality []byte) Parameters {
	var gflags globalFlags
	if anyTrue(reverse) {
		gflags |= flagDoRev
	}

	if assignments, nGroups, ok := assignRecordGroups(lens, minGroupSize); ok {
		return buildMultiParameters(lens, quality, gflags, assignments, nGroups)
	}

	param := buildSingleParameter(lens, quality)
	return Parameters{
		GlobalFlags: gflags,
		Params:      []Parameter{param},
	}
}

// assignRecordGroups splits records into a "short" (<= median length) and
// a "long" (> median length) group, provided both groups meet
// minGroupSize; otherwise multi-param grouping is not worth the header
// overhead and the caller falls back to one Parameter.
func assignRecordGroups(lens []int, minGroupSize int) (assignments []byte, nGroups int, ok bool) {
	if len(lens) < minGroupSize*2 {
		return nil, 0, false
	}

	sorted := append([]int(nil), lens...)
	sort.Ints(sorted)
	median := sorted[len(sorted)/2]

	assignments = make([]byte, len(lens))
	var count0, count1 int
	for i, l := range lens {
		if l < median {
			count0++
		} else {
			assignments[i] = 1
			count1++
		}
	}
	if count0 < minGroupSize || count1 < minGroupSize {
		return nil, 0, false
	}
	return assignments, 2, true
}

func buildMultiParameters(lens []int, quality []byte, gflags globalFlags, assignments []byte, nGroups int) Parameters {
	gflags |= flagMultiParam | flagHaveSTab
	maxSel := byte(nGroups - 1)

	var sTab [256]byte
	for i := range sTab {
		sTab[i] = maxSel
	}
	for i := 0; i < nGroups; i++ {
		sTab[i] = byte(i)
	}

	groupLens := make([][]int, nGroups)
	groupQuality := make([][]byte, nGroups)
	offset := 0
	for i, l := range lens {
		g := int(assignments[i])
		groupLens[g] = append(groupLens[g], l)
		groupQuality[g] = append(groupQuality[g], quality[offset:offset+l]...)
		offset += l
	}

	params := make([]Parameter, nGroups)
	for g := 0; g < nGroups; g++ {
		params[g] = buildSingleParameter(groupLens[g], groupQuality[g])
		// Context tags each group's models so that two groups landing on
		// the same rolling quality/position context do not share, and
		// corrupt, each other's adaptive statistics.
		params[g].Context = uint16(g)
	}

	return Parameters{
		GlobalFlags:     gflags,
		MaxSel:          maxSel,
		STab:            sTab,
		Params:          params,
		RecordSelectors: append([]byte(nil), assignments...),
	}
}

// buildSingleParameter infers one Parameter from a (sub-)stream's record
// lengths and concatenated quality bytes (spec §4.J).
func buildSingleParameter(lens []int, quality []byte) Parameter {
	var maxSymbol byte
	var seen [256]bool
	for _, b := range quality {
		seen[b] = true
		if b > maxSymbol {
			maxSymbol = b
		}
	}

	var distinct []byte
	for i := 0; i < 256; i++ {
		if seen[i] {
			distinct = append(distinct, byte(i))
		}
	}

	var qmap []byte
	var inverseQMap [256]byte
	effectiveMaxSymbol := maxSymbol
	haveQMap := len(distinct) > 0 && len(distinct) <= qmapMaxDistinct
	if haveQMap {
		qmap = distinct
		for sym, orig := range qmap {
			inverseQMap[orig] = byte(sym)
		}
		effectiveMaxSymbol = byte(len(distinct) - 1)
	} else {
		for i := range inverseQMap {
			inverseQMap[i] = byte(i)
		}
	}

	dupCount, offset := 0, 0
	for i := 1; i < len(lens); i++ {
		prevLen, curLen := lens[i-1], lens[i]
		prevStart := offset
		offset += prevLen
		curStart := offset
		if prevLen == curLen && curStart+curLen <= len(quality) &&
			bytesEqual(quality[prevStart:prevStart+prevLen], quality[curStart:curStart+curLen]) {
			dupCount++
		}
	}
	dupFraction := 0.0
	if len(lens) > 1 {
		dupFraction = float64(dupCount) / float64(len(lens)-1)
	}

	pShift := 0
	if len(lens) > 0 && lens[0] > 128 {
		pShift = 1
	}
	var pTab [1024]byte
	for i := range pTab {
		v := i >> uint(pShift)
		if v > (1<<pBits)-1 {
			v = (1 << pBits) - 1
		}
		pTab[i] = byte(v)
	}

	flags := flagHavePTab
	uniform := true
	for i := 1; i < len(lens); i++ {
		if lens[i] != lens[i-1] {
			uniform = false
			break
		}
	}
	if uniform {
		flags |= flagDoLen
	}
	if dupFraction > 0.05 {
		flags |= flagDoDedup
	}
	if haveQMap {
		flags |= flagHaveQMap
	}

	var dTab [256]byte
	if len(quality) > 256 {
		for i := range dTab {
			v := i
			if v > (1<<dBits)-1 {
				v = (1 << dBits) - 1
			}
			dTab[i] = byte(v)
		}
		flags |= flagHaveDTab
	}

	qTab := buildQualityTable(effectiveMaxSymbol)
	identity := true
	for i, v := range qTab {
		if v != byte(i) {
			identity = false
			break
		}
	}
	if !identity {
		flags |= flagHaveQTab
	}

	p := Parameter{
		Flags:       flags,
		MaxSymbol:   effectiveMaxSymbol,
		QTab:        qTab,
		PTab:        pTab,
		DTab:        dTab,
		QMap:        qmap,
		InverseQMap: inverseQMap,
	}
	return p
}

const qmapMaxDistinct = 16

// buildQualityTable bins quality value i into min(maxBin, i*maxBin/maxQ),
// a non-decreasing table (required by the RLE2 table encoding) that
// quantizes the context's quality-history contribution down to qBits
// bits (spec §4.J).
func buildQualityTable(maxQ byte) [256]byte {
	var tab [256]byte
	maxBin := (1 << qBits) - 1
	if maxBin > 255 {
		maxBin = 255
	}
	if maxQ == 0 {
		return tab
	}
	for i := range tab {
		bin := i * maxBin / int(maxQ)
		if bin > maxBin {
			bin = maxBin
		}
		tab[i] = byte(bin)
	}
	return tab
}

func bytesEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func anyTrue(bs []bool) bool {
	for _, b := range bs {
		if b {
			return true
		}
	}
	return false
}
