// Copyright ©2017 The bíogo Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package encoding

import (
	"bytes"
	"io"

	"github.com/biogo/cram/cram/cramio"
	"github.com/biogo/cram/cram/huffman"
	"github.com/biogo/cram/cram/num"
	"github.com/biogo/cram/cram/vlq"
)

// MarshalInteger writes enc to w in the tagged-union wire form: kind, then
// a length-prefixed args block (spec §4.G, §6).
func MarshalInteger(w io.Writer, v cramio.Version, enc Integer) error {
	args, err := marshalIntegerArgs(v, enc)
	if err != nil {
		return err
	}
	return writeTagged(w, v, enc.Kind(), args)
}

// UnmarshalInteger reads an Integer encoding from r.
func UnmarshalInteger(r io.Reader, v cramio.Version) (Integer, error) {
	kind, args, err := readTagged(r, v)
	if err != nil {
		return nil, err
	}
	return unmarshalIntegerArgs(v, kind, args)
}

// MarshalByte is the Byte analogue of MarshalInteger.
func MarshalByte(w io.Writer, v cramio.Version, enc Byte) error {
	args, err := marshalByteArgs(v, enc)
	if err != nil {
		return err
	}
	return writeTagged(w, v, enc.Kind(), args)
}

// UnmarshalByte is the Byte analogue of UnmarshalInteger.
func UnmarshalByte(r io.Reader, v cramio.Version) (Byte, error) {
	kind, args, err := readTagged(r, v)
	if err != nil {
		return nil, err
	}
	return unmarshalByteArgs(v, kind, args)
}

// MarshalByteArray is the ByteArray analogue of MarshalInteger.
func MarshalByteArray(w io.Writer, v cramio.Version, enc ByteArray) error {
	args, err := marshalByteArrayArgs(v, enc)
	if err != nil {
		return err
	}
	return writeTagged(w, v, enc.Kind(), args)
}

// UnmarshalByteArray is the ByteArray analogue of UnmarshalInteger.
func UnmarshalByteArray(r io.Reader, v cramio.Version) (ByteArray, error) {
	kind, args, err := readTagged(r, v)
	if err != nil {
		return nil, err
	}
	return unmarshalByteArrayArgs(v, kind, args)
}

// writeTagged emits kind then the length-prefixed args block.
func writeTagged(w io.Writer, v cramio.Version, kind Kind, args []byte) error {
	if err := checkVersion(kind, v); err != nil {
		return err
	}
	if err := num.WriteHeaderInt(w, v, int32(kind)); err != nil {
		return err
	}
	if err := num.WriteHeaderInt(w, v, int32(len(args))); err != nil {
		return err
	}
	_, err := w.Write(args)
	return err
}

// readTagged reads kind and the raw args block (not yet interpreted), so
// that an unrecognised kind can still be skipped (spec §9,
// consume_any_encoding).
func readTagged(r io.Reader, v cramio.Version) (Kind, []byte, error) {
	k, err := num.ReadHeaderInt(r, v)
	if err != nil {
		return 0, nil, err
	}
	n, err := num.ReadHeaderInt(r, v)
	if err != nil {
		return 0, nil, err
	}
	if n < 0 {
		return 0, nil, cramio.Invalidf("encoding: negative args length: %d", n)
	}
	args := make([]byte, n)
	if _, err := io.ReadFull(r, args); err != nil {
		if err == io.EOF {
			err = io.ErrUnexpectedEOF
		}
		return 0, nil, err
	}
	return Kind(k), args, nil
}

func marshalIntegerArgs(v cramio.Version, enc Integer) ([]byte, error) {
	var buf bytes.Buffer
	switch e := enc.(type) {
	case ExternalInt:
		if err := num.WriteUnsignedInt(&buf, v, uint64(uint32(e.ContentID))); err != nil {
			return nil, err
		}
	case Golomb:
		if err := writeSigned2(&buf, v, e.Offset, e.M); err != nil {
			return nil, err
		}
	case GolombRice:
		if err := writeSigned2(&buf, v, e.Offset, int32(e.Log2M)); err != nil {
			return nil, err
		}
	case Beta:
		if err := writeSigned2(&buf, v, e.Offset, int32(e.Len)); err != nil {
			return nil, err
		}
	case Gamma:
		if err := num.WriteSignedInt(&buf, v, e.Offset); err != nil {
			return nil, err
		}
	case Subexp:
		if err := writeSigned2(&buf, v, e.Offset, int32(e.K)); err != nil {
			return nil, err
		}
	case HuffmanInt:
		if err := writeHuffmanParams(&buf, v, e.Codec); err != nil {
			return nil, err
		}
	case VarintUnsigned:
		if err := num.WriteUnsignedInt(&buf, v, uint64(uint32(e.ContentID))); err != nil {
			return nil, err
		}
		if err := vlq.WriteSint64(&buf, e.Offset); err != nil {
			return nil, err
		}
	case VarintSigned:
		if err := num.WriteUnsignedInt(&buf, v, uint64(uint32(e.ContentID))); err != nil {
			return nil, err
		}
		if err := vlq.WriteSint64(&buf, e.Offset); err != nil {
			return nil, err
		}
	case ConstInt:
		if err := num.WriteSignedInt(&buf, v, e.Value); err != nil {
			return nil, err
		}
	default:
		return nil, cramio.Invalidf("encoding: unmarshalable integer encoding %T", enc)
	}
	return buf.Bytes(), nil
}

func unmarshalIntegerArgs(v cramio.Version, kind Kind, args []byte) (Integer, error) {
	r := bytes.NewReader(args)
	switch kind {
	case KindExternal:
		id, err := num.ReadUnsignedInt(r, v)
		return ExternalInt{ContentID: int32(uint32(id))}, err
	case KindGolomb:
		offset, m, err := readSigned2(r, v)
		return Golomb{Offset: offset, M: m}, err
	case KindGolombRice:
		offset, log2m, err := readSigned2(r, v)
		return GolombRice{Offset: offset, Log2M: int(log2m)}, err
	case KindBeta:
		offset, length, err := readSigned2(r, v)
		return Beta{Offset: offset, Len: int(length)}, err
	case KindGamma:
		offset, err := num.ReadSignedInt(r, v)
		return Gamma{Offset: offset}, err
	case KindSubexp:
		offset, k, err := readSigned2(r, v)
		return Subexp{Offset: offset, K: int(k)}, err
	case KindHuffman:
		codec, err := readHuffmanParams(r, v)
		return HuffmanInt{Codec: codec}, err
	case KindVarintUnsigned:
		id, err := num.ReadUnsignedInt(r, v)
		if err != nil {
			return nil, err
		}
		offset, err := vlq.ReadSint64(asByteReader(r))
		return VarintUnsigned{ContentID: int32(uint32(id)), Offset: offset}, err
	case KindVarintSigned:
		id, err := num.ReadUnsignedInt(r, v)
		if err != nil {
			return nil, err
		}
		offset, err := vlq.ReadSint64(asByteReader(r))
		return VarintSigned{ContentID: int32(uint32(id)), Offset: offset}, err
	case KindConstInt:
		value, err := num.ReadSignedInt(r, v)
		return ConstInt{Value: value}, err
	default:
		return nil, cramio.Invalidf("encoding: unknown integer encoding kind %d", kind)
	}
}

func marshalByteArgs(v cramio.Version, enc Byte) ([]byte, error) {
	var buf bytes.Buffer
	switch e := enc.(type) {
	case ExternalByte:
		if err := num.WriteUnsignedInt(&buf, v, uint64(uint32(e.ContentID))); err != nil {
			return nil, err
		}
	case HuffmanByte:
		if err := writeHuffmanParams(&buf, v, e.Codec); err != nil {
			return nil, err
		}
	case ConstByte:
		if err := buf.WriteByte(e.Value); err != nil {
			return nil, err
		}
	default:
		return nil, cramio.Invalidf("encoding: unmarshalable byte encoding %T", enc)
	}
	return buf.Bytes(), nil
}

func unmarshalByteArgs(v cramio.Version, kind Kind, args []byte) (Byte, error) {
	r := bytes.NewReader(args)
	switch kind {
	case KindExternal:
		id, err := num.ReadUnsignedInt(r, v)
		return ExternalByte{ContentID: int32(uint32(id))}, err
	case KindHuffman:
		codec, err := readHuffmanParams(r, v)
		return HuffmanByte{Codec: codec}, err
	case KindConstByte:
		b, err := r.ReadByte()
		return ConstByte{Value: b}, err
	default:
		return nil, cramio.Invalidf("encoding: unknown byte encoding kind %d", kind)
	}
}

func marshalByteArrayArgs(v cramio.Version, enc ByteArray) ([]byte, error) {
	var buf bytes.Buffer
	switch e := enc.(type) {
	case ByteArrayLength:
		if err := MarshalInteger(&buf, v, e.LenEncoding); err != nil {
			return nil, err
		}
		if err := MarshalByte(&buf, v, e.ValEncoding); err != nil {
			return nil, err
		}
	case ByteArrayStop:
		if err := buf.WriteByte(e.StopByte); err != nil {
			return nil, err
		}
		if err := num.WriteUnsignedInt(&buf, v, uint64(uint32(e.ContentID))); err != nil {
			return nil, err
		}
	default:
		return nil, cramio.Invalidf("encoding: unmarshalable byte array encoding %T", enc)
	}
	return buf.Bytes(), nil
}

func unmarshalByteArrayArgs(v cramio.Version, kind Kind, args []byte) (ByteArray, error) {
	r := bytes.NewReader(args)
	switch kind {
	case KindByteArrayLen:
		lenEnc, err := UnmarshalInteger(r, v)
		if err != nil {
			return nil, err
		}
		valEnc, err := UnmarshalByte(r, v)
		if err != nil {
			return nil, err
		}
		return ByteArrayLength{LenEncoding: lenEnc, ValEncoding: valEnc}, nil
	case KindByteArrayStop:
		stop, err := r.ReadByte()
		if err != nil {
			return nil, err
		}
		id, err := num.ReadUnsignedInt(r, v)
		return ByteArrayStop{StopByte: stop, ContentID: int32(uint32(id))}, err
	default:
		return nil, cramio.Invalidf("encoding: unknown byte array encoding kind %d", kind)
	}
}

// writeSigned2 writes two signed-int args in sequence (the common
// offset-then-parameter shape shared by Golomb, GolombRice, Beta and
// Subexp).
func writeSigned2(w io.Writer, v cramio.Version, a, b int32) error {
	if err := num.WriteSignedInt(w, v, a); err != nil {
		return err
	}
	return num.WriteSignedInt(w, v, b)
}

func readSigned2(r io.Reader, v cramio.Version) (a, b int32, err error) {
	a, err = num.ReadSignedInt(r, v)
	if err != nil {
		return 0, 0, err
	}
	b, err = num.ReadSignedInt(r, v)
	return a, b, err
}

// writeHuffmanParams serializes a canonical Huffman codec as
// count-of-symbols, alphabet (signed ints), count-of-lengths, bit lengths
// (unsigned ints), mirroring the upstream ITF8-based huffman params block.
func writeHuffmanParams(w io.Writer, v cramio.Version, c *huffman.Codec) error {
	alphabet := c.Alphabet()
	if err := num.WriteSignedInt(w, v, int32(len(alphabet))); err != nil {
		return err
	}
	for _, s := range alphabet {
		if err := num.WriteSignedInt(w, v, s); err != nil {
			return err
		}
	}
	lens := c.BitLens()
	if err := num.WriteSignedInt(w, v, int32(len(lens))); err != nil {
		return err
	}
	for _, l := range lens {
		if err := num.WriteUnsignedInt(w, v, uint64(l)); err != nil {
			return err
		}
	}
	return nil
}

func readHuffmanParams(r io.Reader, v cramio.Version) (*huffman.Codec, error) {
	na, err := num.ReadSignedInt(r, v)
	if err != nil {
		return nil, err
	}
	if na < 0 {
		return nil, cramio.Invalidf("encoding: negative huffman alphabet size: %d", na)
	}
	alphabet := make([]int32, na)
	for i := range alphabet {
		alphabet[i], err = num.ReadSignedInt(r, v)
		if err != nil {
			return nil, err
		}
	}
	nl, err := num.ReadSignedInt(r, v)
	if err != nil {
		return nil, err
	}
	if nl < 0 {
		return nil, cramio.Invalidf("encoding: negative huffman length count: %d", nl)
	}
	lens := make([]uint32, nl)
	for i := range lens {
		l, err := num.ReadUnsignedInt(r, v)
		if err != nil {
			return nil, err
		}
		lens[i] = uint32(l)
	}
	return huffman.New(alphabet, lens)
}
