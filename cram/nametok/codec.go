// Copyright ©2017 The bíogo Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package nametok

import (
	"bytes"
	"compress/gzip"
	"encoding/binary"
	"io"
	"strings"

	"github.com/biogo/cram/cram/cramio"
	"github.com/biogo/cram/cram/vlq"
)

// method is the entropy stage applied to each sub-stream's raw bytes. The
// CRAM name tokenizer chooses per-message between rANS Nx16 and an
// adaptive arithmetic coder (AAC) by building the whole stream both ways
// and keeping the smaller; rANS Nx16 and AAC are out of scope here (see
// the block package), so the same measure-both-keep-smaller shape is
// reused over the two methods this package does implement (spec §4.K).
type method byte

const (
	methodRaw method = iota
	methodGzip
)

const numSubStreams = 10

// nameDiff is one name's position in the tokenizer's state machine: either
// a verbatim copy of an earlier name (Dup) or a per-token diff against the
// previous name (Diff), together with the classified token sequence used
// both to emit this name and as the comparison basis for the name after
// it.
type nameDiff struct {
	isDup     bool
	delta     int
	rawTokens []string
	tokens    []Token
}

// buildDiffs classifies every name's raw tokens against the name it is
// compared with: the immediately preceding name by default, or an earlier
// exact duplicate when one exists (spec §4.K).
func buildDiffs(names []string) []nameDiff {
	diffs := make([]nameDiff, len(names))
	seen := make(map[string]int, len(names))
	for i, name := range names {
		if i == 0 {
			raw := splitRawTokens(name)
			tokens := make([]Token, 0, len(raw)+1)
			for _, r := range raw {
				tokens = append(tokens, freshToken(r))
			}
			tokens = append(tokens, endToken{})
			diffs[0] = nameDiff{rawTokens: raw, tokens: tokens}
			continue
		}

		var d nameDiff
		if j, ok := seen[name]; ok {
			d.isDup, d.delta = true, i-j
		} else {
			d.isDup, d.delta = false, 1
		}
		prev := diffs[i-d.delta]

		raw := splitRawTokens(name)
		tokens := make([]Token, 0, len(raw)+1)
		for j, r := range raw {
			havePrev := j < len(prev.rawTokens)
			var prevRaw string
			var prevTok Token
			if havePrev {
				prevRaw, prevTok = prev.rawTokens[j], prev.tokens[j]
			}
			tokens = append(tokens, classifyToken(r, prevRaw, prevTok, havePrev))
		}
		tokens = append(tokens, endToken{})
		d.rawTokens, d.tokens = raw, tokens
		diffs[i] = d

		if _, ok := seen[name]; !ok {
			seen[name] = i
		}
	}
	return diffs
}

// buildPositionWriters lays out one tokenWriter per diff position: index 0
// holds every name's Dup/Diff mode token, and index p (p>=1) holds the
// token at tokens[p-1] for every name that is not itself a duplicate and
// has not yet reached its End token.
func buildPositionWriters(diffs []nameDiff, positionCount int) []*tokenWriter {
	writers := make([]*tokenWriter, positionCount)
	for i := range writers {
		writers[i] = &tokenWriter{}
	}
	for _, d := range diffs {
		if d.isDup {
			writers[0].writeToken(dupToken{delta: d.delta})
		} else {
			writers[0].writeToken(diffToken{delta: d.delta})
		}
	}
	for p := 1; p < positionCount; p++ {
		for _, d := range diffs {
			if d.isDup {
				continue
			}
			if p-1 < len(d.tokens) {
				writers[p].writeToken(d.tokens[p-1])
			}
		}
	}
	return writers
}

// EncodeNames packs names into a self-contained byte stream: DecodeNames
// needs nothing but the returned bytes to recover the original slice
// (spec §4.K).
func EncodeNames(names []string) ([]byte, error) {
	diffs := buildDiffs(names)

	maxPositions := 0
	for _, d := range diffs {
		if len(d.tokens) > maxPositions {
			maxPositions = len(d.tokens)
		}
	}
	positionCount := maxPositions + 1
	writers := buildPositionWriters(diffs, positionCount)

	raw := assembleStream(writers, len(names), positionCount, methodRaw)
	gz := assembleStream(writers, len(names), positionCount, methodGzip)
	if len(gz) < len(raw) {
		return gz, nil
	}
	return raw, nil
}

type dupRef struct {
	pos  int
	data []byte
}

// assembleStream serializes writers under method m: a 9-byte header
// (name count, position count, method), then per position a 16-bit
// presence mask over the 10 sub-streams followed by each present
// sub-stream's content. A tok_dup scan runs ahead of compression: a
// sub-stream byte-identical to an earlier position's is replaced by a
// 5-byte back-reference instead of being re-encoded (spec §4.K).
func assembleStream(writers []*tokenWriter, numNames, positionCount int, m method) []byte {
	var out bytes.Buffer
	var hdr [9]byte
	binary.LittleEndian.PutUint32(hdr[0:4], uint32(numNames))
	binary.LittleEndian.PutUint32(hdr[4:8], uint32(positionCount))
	hdr[8] = byte(m)
	out.Write(hdr[:])

	seen := make([][numSubStreams]dupRef, 0, len(writers))

	for p, w := range writers {
		bufs := w.buffers()
		var mask uint16
		for k, b := range bufs {
			if b.Len() > 0 {
				mask |= 1 << uint(k)
			}
		}
		var maskBytes [2]byte
		binary.LittleEndian.PutUint16(maskBytes[:], mask)
		out.Write(maskBytes[:])

		var row [numSubStreams]dupRef
		for k, b := range bufs {
			if b.Len() == 0 {
				continue
			}
			data := b.Bytes()
			if refPos, refKind, ok := findDuplicateStream(seen, data); ok {
				out.WriteByte(1)
				var posBytes [4]byte
				binary.LittleEndian.PutUint32(posBytes[:], uint32(refPos))
				out.Write(posBytes[:])
				out.WriteByte(byte(refKind))
			} else {
				out.WriteByte(0)
				payload := compressPayload(data, m)
				vlq.WriteUint32(&out, uint32(len(payload)))
				out.Write(payload)
				row[k] = dupRef{pos: p, data: append([]byte(nil), data...)}
			}
		}
		seen = append(seen, row)
	}
	return out.Bytes()
}

func findDuplicateStream(seen [][numSubStreams]dupRef, data []byte) (pos, kind int, ok bool) {
	for p := len(seen) - 1; p >= 0; p-- {
		for k, ref := range seen[p] {
			if ref.data != nil && bytes.Equal(ref.data, data) {
				return ref.pos, k, true
			}
		}
	}
	return 0, 0, false
}

func compressPayload(data []byte, m method) []byte {
	if m == methodRaw {
		return data
	}
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	zw.Write(data)
	zw.Close()
	return buf.Bytes()
}

func decompressPayload(data []byte, m method) ([]byte, error) {
	if m == methodRaw {
		return data, nil
	}
	zr, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer zr.Close()
	return io.ReadAll(zr)
}

func deltaBase(t Token) (uint32, bool) {
	switch v := t.(type) {
	case digitsToken:
		return v.n, true
	case deltaToken:
		return v.n, true
	default:
		return 0, false
	}
}

func delta0Base(t Token) (uint32, bool) {
	switch v := t.(type) {
	case paddedDigitsToken:
		return v.n, true
	case delta0Token:
		return v.n, true
	default:
		return 0, false
	}
}

// DecodeNames reverses EncodeNames.
func DecodeNames(data []byte) ([]string, error) {
	r := bytes.NewReader(data)
	var hdr [9]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return nil, unexpectedEOF(err)
	}
	numNames := int(binary.LittleEndian.Uint32(hdr[0:4]))
	positionCount := int(binary.LittleEndian.Uint32(hdr[4:8]))
	m := method(hdr[8])

	all := make([][numSubStreams][]byte, positionCount)
	for p := 0; p < positionCount; p++ {
		var maskBytes [2]byte
		if _, err := io.ReadFull(r, maskBytes[:]); err != nil {
			return nil, unexpectedEOF(err)
		}
		mask := binary.LittleEndian.Uint16(maskBytes[:])
		for k := 0; k < numSubStreams; k++ {
			if mask&(1<<uint(k)) == 0 {
				continue
			}
			flag, err := r.ReadByte()
			if err != nil {
				return nil, unexpectedEOF(err)
			}
			if flag == 1 {
				var refBuf [4]byte
				if _, err := io.ReadFull(r, refBuf[:]); err != nil {
					return nil, unexpectedEOF(err)
				}
				refPos := int(binary.LittleEndian.Uint32(refBuf[:]))
				refKind, err := r.ReadByte()
				if err != nil {
					return nil, unexpectedEOF(err)
				}
				if refPos < 0 || refPos >= positionCount || int(refKind) >= numSubStreams {
					return nil, cramio.Invalidf("nametok: dup reference (%d,%d) out of range", refPos, refKind)
				}
				all[p][k] = all[refPos][refKind]
				continue
			}
			plen, err := vlq.ReadUint32(r)
			if err != nil {
				return nil, unexpectedEOF(err)
			}
			payload := make([]byte, plen)
			if _, err := io.ReadFull(r, payload); err != nil {
				return nil, unexpectedEOF(err)
			}
			raw, err := decompressPayload(payload, m)
			if err != nil {
				return nil, err
			}
			all[p][k] = raw
		}
	}

	if numNames == 0 {
		return nil, nil
	}

	isDup := make([]bool, numNames)
	delta := make([]int, numNames)
	if len(all[0][0]) != numNames {
		return nil, cramio.Invalidf("nametok: mode stream has %d entries, want %d", len(all[0][0]), numNames)
	}
	dupCursor, diffCursor := 0, 0
	for i := 0; i < numNames; i++ {
		switch Type(all[0][0][i]) {
		case typeDup:
			if dupCursor+4 > len(all[0][5]) {
				return nil, cramio.Invalidf("nametok: truncated dup stream")
			}
			delta[i] = int(binary.LittleEndian.Uint32(all[0][5][dupCursor : dupCursor+4]))
			dupCursor += 4
			isDup[i] = true
		case typeDiff:
			if diffCursor+4 > len(all[0][6]) {
				return nil, cramio.Invalidf("nametok: truncated diff stream")
			}
			delta[i] = int(binary.LittleEndian.Uint32(all[0][6][diffCursor : diffCursor+4]))
			diffCursor += 4
		default:
			return nil, cramio.Invalidf("nametok: unexpected mode token type %d", all[0][0][i])
		}
	}

	tokensByName := make([][]Token, numNames)
	var active []int
	for i, dup := range isDup {
		if !dup {
			active = append(active, i)
		}
	}
	for p := 1; p < positionCount && len(active) > 0; p++ {
		typeBuf := all[p][0]
		if len(typeBuf) != len(active) {
			return nil, cramio.Invalidf("nametok: position %d has %d type entries, want %d", p, len(typeBuf), len(active))
		}
		strBuf, chrBuf, d0Buf, dzBuf := all[p][1], all[p][2], all[p][3], all[p][4]
		digitsBuf, deltaBuf, delta0Buf := all[p][7], all[p][8], all[p][9]
		var strC, chrC, d0C, dzC, digitsC, deltaC, delta0C int

		var next []int
		for idx, nameIdx := range active {
			switch Type(typeBuf[idx]) {
			case typeString:
				end := bytes.IndexByte(strBuf[strC:], 0)
				if end < 0 {
					return nil, cramio.Invalidf("nametok: unterminated string token")
				}
				tokensByName[nameIdx] = append(tokensByName[nameIdx], stringToken{value: string(strBuf[strC : strC+end])})
				strC += end + 1
				next = append(next, nameIdx)
			case typeChar:
				if chrC >= len(chrBuf) {
					return nil, cramio.Invalidf("nametok: truncated char stream")
				}
				tokensByName[nameIdx] = append(tokensByName[nameIdx], charToken{value: chrBuf[chrC]})
				chrC++
				next = append(next, nameIdx)
			case typeDigits0:
				if d0C+4 > len(d0Buf) || dzC >= len(dzBuf) {
					return nil, cramio.Invalidf("nametok: truncated digits0 stream")
				}
				n := binary.LittleEndian.Uint32(d0Buf[d0C : d0C+4])
				d0C += 4
				w := dzBuf[dzC]
				dzC++
				tokensByName[nameIdx] = append(tokensByName[nameIdx], paddedDigitsToken{n: n, width: int(w)})
				next = append(next, nameIdx)
			case typeDigits:
				if digitsC+4 > len(digitsBuf) {
					return nil, cramio.Invalidf("nametok: truncated digits stream")
				}
				n := binary.LittleEndian.Uint32(digitsBuf[digitsC : digitsC+4])
				digitsC += 4
				tokensByName[nameIdx] = append(tokensByName[nameIdx], digitsToken{n: n})
				next = append(next, nameIdx)
			case typeDelta:
				if deltaC >= len(deltaBuf) {
					return nil, cramio.Invalidf("nametok: truncated delta stream")
				}
				tokensByName[nameIdx] = append(tokensByName[nameIdx], deltaToken{delta: deltaBuf[deltaC]})
				deltaC++
				next = append(next, nameIdx)
			case typeDelta0:
				if delta0C >= len(delta0Buf) {
					return nil, cramio.Invalidf("nametok: truncated delta0 stream")
				}
				tokensByName[nameIdx] = append(tokensByName[nameIdx], delta0Token{delta: delta0Buf[delta0C]})
				delta0C++
				next = append(next, nameIdx)
			case typeMatch:
				tokensByName[nameIdx] = append(tokensByName[nameIdx], matchToken{})
				next = append(next, nameIdx)
			case typeEnd:
				tokensByName[nameIdx] = append(tokensByName[nameIdx], endToken{})
			default:
				return nil, cramio.Invalidf("nametok: unexpected token type %d at position %d", typeBuf[idx], p)
			}
		}
		active = next
	}

	names := make([]string, numNames)
	rawByName := make([][]string, numNames)
	resolved := make([][]Token, numNames)

	for i := 0; i < numNames; i++ {
		if isDup[i] {
			j := i - delta[i]
			if j < 0 || j >= i {
				return nil, cramio.Invalidf("nametok: dup delta %d out of range for name %d", delta[i], i)
			}
			names[i] = names[j]
			raw := splitRawTokens(names[i])
			prevRaw, prevTok := rawByName[j], resolved[j]
			tokens := make([]Token, 0, len(raw)+1)
			for p, r := range raw {
				havePrev := p < len(prevRaw)
				var pr string
				var pt Token
				if havePrev {
					pr, pt = prevRaw[p], prevTok[p]
				}
				tokens = append(tokens, classifyToken(r, pr, pt, havePrev))
			}
			tokens = append(tokens, endToken{})
			rawByName[i], resolved[i] = raw, tokens
			continue
		}

		if i == 0 {
			resolved[0] = tokensByName[0]
			raw := make([]string, 0, len(resolved[0]))
			for _, t := range resolved[0] {
				if _, ok := t.(endToken); ok {
					break
				}
				raw = append(raw, tokenRaw(t, "", nil))
			}
			rawByName[0] = raw
			names[0] = strings.Join(raw, "")
			continue
		}

		prevRaw, prevTok := rawByName[i-1], resolved[i-1]
		src := tokensByName[i]
		fixed := make([]Token, len(src))
		raw := make([]string, 0, len(src))
		for p, t := range src {
			if _, ok := t.(endToken); ok {
				fixed[p] = t
				continue
			}
			havePrev := p < len(prevRaw)
			var pr string
			var pt Token
			if havePrev {
				pr, pt = prevRaw[p], prevTok[p]
			}
			switch tt := t.(type) {
			case deltaToken:
				base, ok := deltaBase(pt)
				if !havePrev || !ok {
					return nil, cramio.Invalidf("nametok: delta token at position %d has no numeric previous", p)
				}
				t = deltaToken{n: base + uint32(tt.delta), delta: tt.delta}
			case delta0Token:
				base, ok := delta0Base(pt)
				if !havePrev || !ok {
					return nil, cramio.Invalidf("nametok: delta0 token at position %d has no numeric previous", p)
				}
				t = delta0Token{n: base + uint32(tt.delta), delta: tt.delta}
			}
			fixed[p] = t
			raw = append(raw, tokenRaw(t, pr, pt))
		}
		rawByName[i], resolved[i] = raw, fixed
		names[i] = strings.Join(raw, "")
	}

	return names, nil
}

func unexpectedEOF(err error) error {
	if err == io.EOF {
		return io.ErrUnexpectedEOF
	}
	return err
}
