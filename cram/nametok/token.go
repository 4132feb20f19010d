// Copyright ©2017 The bíogo Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package nametok

import (
	"bytes"
	"encoding/binary"
)

// Type identifies a token's wire shape. Its zero value, typeType, never
// labels a real token; it is reserved for tagging the type sub-stream
// itself when a stream is replayed for a tok_dup scan.
type Type byte

const (
	typeType Type = iota
	typeString
	typeChar
	typeDigits0
	typeDZLen
	typeDup
	typeDiff
	typeDigits
	typeDelta
	typeDelta0
	typeMatch
	typeNop
	typeEnd
)

// Token is one position's contribution to a name's diff against the name
// it is compared against (spec §4.K).
type Token interface {
	kind() Type
}

type stringToken struct{ value string }
type charToken struct{ value byte }
type paddedDigitsToken struct {
	n     uint32
	width int
}
type dupToken struct{ delta int }
type diffToken struct{ delta int }
type digitsToken struct{ n uint32 }
type deltaToken struct {
	n     uint32
	delta byte
}
type delta0Token struct {
	n     uint32
	delta byte
}
type matchToken struct{}
type endToken struct{}

func (stringToken) kind() Type       { return typeString }
func (charToken) kind() Type         { return typeChar }
func (paddedDigitsToken) kind() Type { return typeDigits0 }
func (dupToken) kind() Type          { return typeDup }
func (diffToken) kind() Type         { return typeDiff }
func (digitsToken) kind() Type       { return typeDigits }
func (deltaToken) kind() Type        { return typeDelta }
func (delta0Token) kind() Type       { return typeDelta0 }
func (matchToken) kind() Type        { return typeMatch }
func (endToken) kind() Type          { return typeEnd }

// freshToken classifies a raw token with no usable previous-name reference.
func freshToken(raw string) Token {
	if n, ok := parseDigits0(raw); ok {
		return paddedDigitsToken{n: n, width: len(raw)}
	}
	if n, ok := parseDigits(raw); ok {
		return digitsToken{n: n}
	}
	if len(raw) == 1 {
		return charToken{value: raw[0]}
	}
	return stringToken{value: raw}
}

// classifyToken compares raw against the previous name's token at the same
// position (prevRaw, prevTok, both possibly absent) and picks the
// narrowest representation: an exact Match, a small Delta/Delta0 off the
// previous numeric value, or a fresh classification.
func classifyToken(raw string, prevRaw string, prevTok Token, havePrev bool) Token {
	if havePrev {
		if raw == prevRaw {
			return matchToken{}
		}
		if n, delta, ok := parseDelta(prevTok, raw); ok {
			return deltaToken{n: n, delta: delta}
		}
		if n, delta, ok := parseDelta0(prevRaw, prevTok, raw); ok {
			return delta0Token{n: n, delta: delta}
		}
	}
	return freshToken(raw)
}

func parseDelta(prevTok Token, s string) (n uint32, delta byte, ok bool) {
	var base uint32
	switch t := prevTok.(type) {
	case digitsToken:
		base = t.n
	case deltaToken:
		base = t.n
	default:
		return 0, 0, false
	}
	m, pok := parseDigits(s)
	if !pok || m < base || m-base > 255 {
		return 0, 0, false
	}
	return m, byte(m - base), true
}

func parseDelta0(prevRaw string, prevTok Token, s string) (n uint32, delta byte, ok bool) {
	var base uint32
	switch t := prevTok.(type) {
	case paddedDigitsToken:
		base = t.n
	case delta0Token:
		base = t.n
	default:
		return 0, 0, false
	}
	if len(s) != len(prevRaw) {
		return 0, 0, false
	}
	m, pok := parseDigits(s)
	if !pok || m < base || m-base > 255 {
		return 0, 0, false
	}
	return m, byte(m - base), true
}

// tokenRaw recovers the raw token string a decoded token represents, given
// the same previous-name context classifyToken used to produce it.
func tokenRaw(tok Token, prevRaw string, prevTok Token) string {
	switch t := tok.(type) {
	case stringToken:
		return t.value
	case charToken:
		return string(t.value)
	case paddedDigitsToken:
		return zeroPad(t.n, t.width)
	case digitsToken:
		return zeroPad(t.n, 0)
	case deltaToken:
		return zeroPad(t.n, 0)
	case delta0Token:
		return zeroPad(t.n, len(prevRaw))
	case matchToken:
		return prevRaw
	default:
		return ""
	}
}

// streamSet is the ten named byte buffers a tokenWriter accumulates, in
// their canonical serialization order.
type streamSet struct {
	typ, str, chr, digits0, dzLen, dup, diff, digits, delta, delta0 bytes.Buffer
}

func (s *streamSet) buffers() [10]*bytes.Buffer {
	return [10]*bytes.Buffer{&s.typ, &s.str, &s.chr, &s.digits0, &s.dzLen, &s.dup, &s.diff, &s.digits, &s.delta, &s.delta0}
}

func (s *streamSet) kinds() [10]Type {
	return [10]Type{typeType, typeString, typeChar, typeDigits0, typeDZLen, typeDup, typeDiff, typeDigits, typeDelta, typeDelta0}
}

// tokenWriter accumulates every token written at one diff position (or, for
// position zero, the per-name Dup/Diff mode token) into its streamSet.
type tokenWriter struct {
	streamSet
}

func (w *tokenWriter) writeToken(tok Token) {
	writeU8(&w.typ, byte(tok.kind()))
	switch t := tok.(type) {
	case stringToken:
		w.str.WriteString(t.value)
		w.str.WriteByte(0)
	case charToken:
		w.chr.WriteByte(t.value)
	case paddedDigitsToken:
		writeU32(&w.digits0, t.n)
		writeU8(&w.dzLen, byte(t.width))
	case dupToken:
		writeU32(&w.dup, uint32(t.delta))
	case diffToken:
		writeU32(&w.diff, uint32(t.delta))
	case digitsToken:
		writeU32(&w.digits, t.n)
	case deltaToken:
		writeU8(&w.delta, t.delta)
	case delta0Token:
		writeU8(&w.delta0, t.delta)
	case matchToken, endToken:
		// No payload: the type byte alone records the token.
	}
}

func writeU8(b *bytes.Buffer, v byte) { b.WriteByte(v) }

func writeU32(b *bytes.Buffer, v uint32) {
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], v)
	b.Write(buf[:])
}
