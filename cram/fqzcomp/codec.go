// Copyright ©2017 The bíogo Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package fqzcomp

import (
	"bytes"
	"encoding/binary"
	"io"

	"github.com/biogo/cram/cram/cramio"
)

// version is the stream format identifier written as the first header
// byte; it has no relation to the CRAM container version (spec §4.J).
const version = 5

// models bundles the adaptive state shared across one encode or decode
// pass: a length model, a strand-flag model, a duplicate-flag model, a
// parameter-selector model, and the per-context quality models, lazily
// allocated as new contexts are seen (spec §4.J).
type models struct {
	length [4]*byteTree
	rev    uint16
	dup    uint16
	sel    *byteTree
	qual   map[uint16]*byteTree
}

func newModels() *models {
	m := &models{qual: make(map[uint16]*byteTree), sel: newByteTree()}
	for i := range m.length {
		m.length[i] = newByteTree()
	}
	m.rev = probInitial
	m.dup = probInitial
	return m
}

func (m *models) qualModel(ctx uint16) *byteTree {
	t, ok := m.qual[ctx]
	if !ok {
		t = newByteTree()
		m.qual[ctx] = t
	}
	return t
}

// EncodeStream compresses the concatenated quality bytes of a run of
// records. recordLens gives each record's length in order; reverse marks
// which records are reverse-strand (nil or all-false if none). The
// returned stream is self-contained: DecodeStream needs only the record
// count to reconstruct it.
func EncodeStream(recordLens []int, reverse []bool, quality []byte) ([]byte, error) {
	if reverse == nil {
		reverse = make([]bool, len(recordLens))
	}
	if len(reverse) != len(recordLens) {
		return nil, cramio.Invalidf("fqzcomp: recordLens and reverse length mismatch: %d vs %d", len(recordLens), len(reverse))
	}

	working := quality
	if anyTrue(reverse) {
		working = append([]byte(nil), quality...)
		offset := 0
		for i, l := range recordLens {
			if reverse[i] && l > 1 {
				reverseBytes(working[offset : offset+l])
			}
			offset += l
		}
	}

	params := InferParameters(recordLens, reverse, working)

	var out bytes.Buffer
	if err := writeHeader(&out, params); err != nil {
		return nil, err
	}

	enc := newRangeEncoder()
	m := newModels()

	multiParam := params.GlobalFlags&flagMultiParam != 0
	gDoRev := params.GlobalFlags&flagDoRev != 0
	nGroups := len(params.Params)
	groupLen := make([]int, nGroups)
	groupLenSet := make([]bool, nGroups)

	offset := 0
	for recIdx, recLen := range recordLens {
		x := 0
		if multiParam {
			x = int(params.RecordSelectors[recIdx])
			m.sel.encode(enc, byte(x))
		}
		p := &params.Params[x]

		doLen := p.Flags&flagDoLen != 0
		if doLen && groupLenSet[x] {
			// length not re-encoded; every record of this group shares it.
		} else {
			encodeLength(enc, m, uint32(recLen))
			groupLen[x] = recLen
			groupLenSet[x] = true
		}

		if gDoRev {
			encodeBool(enc, &m.rev, reverse[recIdx])
		}

		doDedup := p.Flags&flagDoDedup != 0
		isDup := doDedup && recIdx > 0 && recLen == recordLens[recIdx-1] &&
			bytesEqual(working[offset-recLen:offset], working[offset:offset+recLen])
		if doDedup {
			encodeBool(enc, &m.dup, isDup)
		}
		if isDup {
			offset += recLen
			continue
		}

		var qlast, delta uint32
		var prevQ byte
		var ctx uint16
		for i := 0; i < recLen; i++ {
			q := working[offset+i]
			qq := p.InverseQMap[q]
			m.qualModel(ctx).encode(enc, qq)
			ctx = nextContext(p, multiParam, x, qq, i, &qlast, &delta, &prevQ)
		}
		offset += recLen
	}

	out.Write(enc.finish())
	return out.Bytes(), nil
}

// DecodeStream reverses EncodeStream, given the number of records the
// stream encodes (known to the caller from the slice's record count;
// without it the stream cannot be unpacked, spec §4.C).
func DecodeStream(data []byte, numRecords int) ([]byte, error) {
	r := bytes.NewReader(data)
	params, err := readHeader(r)
	if err != nil {
		return nil, err
	}

	dec, err := newRangeDecoder(r)
	if err != nil {
		return nil, err
	}
	m := newModels()

	multiParam := params.GlobalFlags&flagMultiParam != 0
	gDoRev := params.GlobalFlags&flagDoRev != 0
	nGroups := len(params.Params)
	groupLen := make([]int, nGroups)
	groupLenSet := make([]bool, nGroups)

	var out []byte
	var recordLens []int
	var reverseFlags []bool

	for recIdx := 0; recIdx < numRecords; recIdx++ {
		x := 0
		if multiParam {
			selByte, err := m.sel.decode(dec)
			if err != nil {
				return nil, err
			}
			x = int(params.STab[selByte])
			if x >= nGroups {
				return nil, cramio.Invalidf("fqzcomp: selector table maps to out-of-range parameter %d", x)
			}
		}
		p := &params.Params[x]

		var recLen uint32
		doLen := p.Flags&flagDoLen != 0
		if doLen && groupLenSet[x] {
			recLen = uint32(groupLen[x])
		} else {
			recLen, err = decodeLength(dec, m)
			if err != nil {
				return nil, err
			}
			groupLen[x] = int(recLen)
			groupLenSet[x] = true
		}
		recordLens = append(recordLens, int(recLen))

		rev := false
		if gDoRev {
			rev, err = decodeBool(dec, &m.rev)
			if err != nil {
				return nil, err
			}
		}
		reverseFlags = append(reverseFlags, rev)

		isDup := false
		if p.Flags&flagDoDedup != 0 {
			isDup, err = decodeBool(dec, &m.dup)
			if err != nil {
				return nil, err
			}
		}
		if isDup {
			// The encoder's duplicate check, like ours, compares bytes in
			// working (pre-unreverse) orientation, so the copy must happen
			// before the final reversal pass below, not after it.
			if len(out) < int(recLen) {
				return nil, cramio.Invalidf("fqzcomp: duplicate record references more bytes than decoded so far")
			}
			out = append(out, out[len(out)-int(recLen):]...)
			continue
		}

		var qlast, delta uint32
		var prevQ byte
		var ctx uint16
		for i := 0; i < int(recLen); i++ {
			qq, err := m.qualModel(ctx).decode(dec)
			if err != nil {
				return nil, err
			}
			q := qq
			if p.Flags&flagHaveQMap != 0 {
				if int(qq) >= len(p.QMap) {
					return nil, cramio.Invalidf("fqzcomp: decoded symbol %d outside qmap of length %d", qq, len(p.QMap))
				}
				q = p.QMap[qq]
			}
			out = append(out, q)
			ctx = nextContext(p, multiParam, x, qq, i, &qlast, &delta, &prevQ)
		}
	}

	// Reversal is applied once, after every record's working-orientation
	// bytes are assembled, rather than per-record during the loop above:
	// a duplicate record's bytes are copied in working orientation too, so
	// unreversing before the copy would desynchronize it from the encoder.
	offset := 0
	for i, l := range recordLens {
		if reverseFlags[i] && l > 1 {
			reverseBytes(out[offset : offset+l])
		}
		offset += l
	}

	return out, nil
}

// nextContext folds the just-coded model symbol qq into the rolling
// state (qlast, delta, prevQ) and returns the 16-bit context for the
// following symbol. Quality history occupies bits [qLoc, qLoc+qBits),
// read position occupies bits [pLoc, pLoc+pBits) and, since those two
// fields already span the full 16 bits between them, the delta and
// selector contributions are folded in as single high bits at dLoc and
// sLoc: they trade a little context precision for the ability to carry
// dedup-run and multi-parameter state at all (spec §4.J).
func nextContext(p *Parameter, multiParam bool, x int, qq byte, pos int, qlast, delta *uint32, prevQ *byte) uint16 {
	*qlast = *qlast<<qShift + uint32(p.QTab[qq])

	posIdx := pos
	if posIdx > len(p.PTab)-1 {
		posIdx = len(p.PTab) - 1
	}
	posVal := uint32(p.PTab[posIdx])

	ctx := (*qlast&((1<<qBits)-1))<<qLoc | (posVal&((1<<pBits)-1))<<pLoc

	if p.Flags&flagHaveDTab != 0 {
		dIdx := *delta
		if dIdx > uint32(len(p.DTab)-1) {
			dIdx = uint32(len(p.DTab) - 1)
		}
		dVal := uint32(p.DTab[dIdx])
		ctx |= (dVal & 1) << dLoc
		if *prevQ != qq {
			*delta++
		}
		*prevQ = qq
	}
	if multiParam {
		ctx |= (uint32(x) & 1) << sLoc
	}
	// p.Context (written into the wire header as the parameter's
	// context:u16 field) is folded in by XOR so that two parameter sets
	// never address the same adaptive quality models even when their
	// qlast/position/delta contributions happen to coincide.
	return uint16((ctx ^ uint32(p.Context)) & 0xffff)
}

func writeHeader(w io.Writer, p Parameters) error {
	if _, err := w.Write([]byte{version, byte(p.GlobalFlags)}); err != nil {
		return err
	}
	if p.GlobalFlags&flagMultiParam != 0 {
		if _, err := w.Write([]byte{byte(len(p.Params))}); err != nil {
			return err
		}
	}
	if p.GlobalFlags&flagHaveSTab != 0 {
		if _, err := w.Write([]byte{p.MaxSel}); err != nil {
			return err
		}
		if err := writeArray(w, p.STab[:]); err != nil {
			return err
		}
	}
	for i := range p.Params {
		if err := writeParameter(w, &p.Params[i]); err != nil {
			return err
		}
	}
	return nil
}

func readHeader(r *bytes.Reader) (Parameters, error) {
	var p Parameters
	var hdr [2]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return p, err
	}
	if hdr[0] != version {
		return p, cramio.Invalidf("fqzcomp: unsupported stream version %d", hdr[0])
	}
	p.GlobalFlags = globalFlags(hdr[1])

	nParams := 1
	if p.GlobalFlags&flagMultiParam != 0 {
		var n [1]byte
		if _, err := io.ReadFull(r, n[:]); err != nil {
			return p, err
		}
		nParams = int(n[0])
	}

	if p.GlobalFlags&flagHaveSTab != 0 {
		var sel [1]byte
		if _, err := io.ReadFull(r, sel[:]); err != nil {
			return p, err
		}
		p.MaxSel = sel[0]
		tab, err := readArray(r, len(p.STab))
		if err != nil {
			return p, err
		}
		copy(p.STab[:], tab)
	}

	p.Params = make([]Parameter, nParams)
	for i := range p.Params {
		param, err := readParameter(r)
		if err != nil {
			return p, err
		}
		p.Params[i] = param
	}
	return p, nil
}

func writeParameter(w io.Writer, p *Parameter) error {
	var ctxBuf [2]byte
	binary.LittleEndian.PutUint16(ctxBuf[:], p.Context)
	if _, err := w.Write(ctxBuf[:]); err != nil {
		return err
	}
	if _, err := w.Write([]byte{
		byte(p.Flags),
		p.MaxSymbol,
		qBits<<4 | qShift,
		qLoc<<4 | sLoc,
		pLoc<<4 | dLoc,
	}); err != nil {
		return err
	}
	if p.Flags&flagHaveQMap != 0 {
		if _, err := w.Write([]byte{byte(len(p.QMap))}); err != nil {
			return err
		}
		if _, err := w.Write(p.QMap); err != nil {
			return err
		}
	}
	if p.Flags&flagHaveQTab != 0 {
		if err := writeArray(w, p.QTab[:]); err != nil {
			return err
		}
	}
	if p.Flags&flagHavePTab != 0 {
		if err := writeArray(w, p.PTab[:]); err != nil {
			return err
		}
	}
	if p.Flags&flagHaveDTab != 0 {
		if err := writeArray(w, p.DTab[:]); err != nil {
			return err
		}
	}
	return nil
}

func readParameter(r *bytes.Reader) (Parameter, error) {
	var p Parameter
	var ctxBuf [2]byte
	if _, err := io.ReadFull(r, ctxBuf[:]); err != nil {
		return p, err
	}
	p.Context = binary.LittleEndian.Uint16(ctxBuf[:])

	var hdr [5]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return p, err
	}
	p.Flags = paramFlags(hdr[0])
	p.MaxSymbol = hdr[1]
	// hdr[2:5] carry the fixed q_bits/q_shift/q_loc/s_loc/p_loc/d_loc
	// nibbles; they are format constants in this implementation and are
	// not read back, matching the reader's compile-time qBits etc.

	if p.Flags&flagHaveQMap != 0 {
		var n [1]byte
		if _, err := io.ReadFull(r, n[:]); err != nil {
			return p, err
		}
		p.QMap = make([]byte, n[0])
		if _, err := io.ReadFull(r, p.QMap); err != nil {
			return p, err
		}
		for sym, orig := range p.QMap {
			p.InverseQMap[orig] = byte(sym)
		}
	} else {
		for i := range p.InverseQMap {
			p.InverseQMap[i] = byte(i)
		}
	}

	if p.Flags&flagHaveQTab != 0 {
		tab, err := readArray(r, len(p.QTab))
		if err != nil {
			return p, err
		}
		copy(p.QTab[:], tab)
	} else {
		for i := range p.QTab {
			p.QTab[i] = byte(i)
		}
	}

	if p.Flags&flagHavePTab != 0 {
		tab, err := readArray(r, len(p.PTab))
		if err != nil {
			return p, err
		}
		copy(p.PTab[:], tab)
	}

	if p.Flags&flagHaveDTab != 0 {
		tab, err := readArray(r, len(p.DTab))
		if err != nil {
			return p, err
		}
		copy(p.DTab[:], tab)
	}

	return p, nil
}

// writeArray run-length encodes a fixed-size table: a lone value is
// written as itself, and a run of two or more repeats is written as the
// value twice followed by the extra repeat count beyond those two,
// chunked in units of 255 for runs that overflow one byte. Unlike the
// source this was modelled on, table length is never written explicitly
// here: every table this codec stores (q_tab, p_tab, d_tab, s_tab) has a
// size fixed by the wire format, so readArray always knows how many
// expanded bytes to stop at.
func writeArray(w io.Writer, data []byte) error {
	buf := make([]byte, 0, len(data))
	i := 0
	for i < len(data) {
		v := data[i]
		j := i + 1
		for j < len(data) && data[j] == v {
			j++
		}
		run := j - i
		if run == 1 {
			buf = append(buf, v)
		} else {
			buf = append(buf, v, v)
			extra := run - 2
			for extra >= 255 {
				buf = append(buf, 255)
				extra -= 255
			}
			buf = append(buf, byte(extra))
		}
		i = j
	}
	_, err := w.Write(buf)
	return err
}

// readArray is the inverse of writeArray: it expands the run-length
// stream read from r until n bytes have been produced.
func readArray(r io.ByteReader, n int) ([]byte, error) {
	out := make([]byte, 0, n)
	var last byte
	haveLast := false
	for len(out) < n {
		b, err := r.ReadByte()
		if err != nil {
			return nil, err
		}
		if haveLast && b == last {
			// b is the run's second explicit occurrence (the encoder only
			// ever repeats a value back-to-back to signal a run), so it
			// counts toward the run itself before the extra-count bytes
			// that follow it are read.
			out = append(out, last)
			total := 0
			for {
				c, err := r.ReadByte()
				if err != nil {
					return nil, err
				}
				total += int(c)
				if c < 255 {
					break
				}
			}
			for k := 0; k < total; k++ {
				out = append(out, last)
			}
			continue
		}
		out = append(out, b)
		last = b
		haveLast = true
	}
	return out, nil
}

func encodeLength(e *rangeEncoder, m *models, n uint32) {
	m.length[0].encode(e, byte(n))
	m.length[1].encode(e, byte(n>>8))
	m.length[2].encode(e, byte(n>>16))
	m.length[3].encode(e, byte(n>>24))
}

func decodeLength(d *rangeDecoder, m *models) (uint32, error) {
	var n uint32
	for i := 0; i < 4; i++ {
		b, err := m.length[i].decode(d)
		if err != nil {
			return 0, err
		}
		n |= uint32(b) << uint(8*i)
	}
	return n, nil
}

func encodeBool(e *rangeEncoder, p *uint16, v bool) {
	bit := 0
	if v {
		bit = 1
	}
	e.encodeBit(p, bit)
}

func decodeBool(d *rangeDecoder, p *uint16) (bool, error) {
	bit, err := d.decodeBit(p)
	return bit != 0, err
}

func reverseBytes(b []byte) {
	for i, j := 0, len(b)-1; i < j; i, j = i+1, j-1 {
		b[i], b[j] = b[j], b[i]
	}
}
