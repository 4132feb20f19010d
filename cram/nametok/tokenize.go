// Copyright ©2017 The bíogo Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package nametok implements the CRAM read-name tokenizer: it splits each
// name into alternating alphanumeric/non-alphanumeric runs, diffs each
// name's tokens against the previous name (or against an earlier
// duplicate), and packs the per-position token stream into ten sub-streams
// for entropy coding (spec §4.K).
package nametok

import "strconv"

func isAlnum(b byte) bool {
	return (b >= '0' && b <= '9') || (b >= 'A' && b <= 'Z') || (b >= 'a' && b <= 'z')
}

// splitRawTokens splits s into maximal runs that alternate between ASCII
// alphanumeric and non-alphanumeric, e.g. "read0012/1" -> ["read0012",
// "/", "1"].
func splitRawTokens(s string) []string {
	var tokens []string
	pos, n := 0, len(s)
	for pos < n {
		start := pos
		for pos < n && isAlnum(s[pos]) {
			pos++
		}
		if pos != start {
			tokens = append(tokens, s[start:pos])
			continue
		}
		for pos < n && !isAlnum(s[pos]) {
			pos++
		}
		if pos != start {
			tokens = append(tokens, s[start:pos])
		}
	}
	return tokens
}

// parseDigits0 reports whether s is a zero-padded decimal run (leading
// '0' followed by only digits, fitting in 32 bits).
func parseDigits0(s string) (uint32, bool) {
	if len(s) == 0 || s[0] != '0' {
		return 0, false
	}
	m, err := strconv.ParseUint(s, 10, 32)
	if err != nil {
		return 0, false
	}
	return uint32(m), true
}

// parseDigits reports whether s is a plain decimal run fitting in 32 bits.
func parseDigits(s string) (uint32, bool) {
	m, err := strconv.ParseUint(s, 10, 32)
	if err != nil {
		return 0, false
	}
	return uint32(m), true
}

func zeroPad(n uint32, width int) string {
	s := strconv.FormatUint(uint64(n), 10)
	for len(s) < width {
		s = "0" + s
	}
	return s
}
