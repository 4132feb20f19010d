// Copyright ©2017 The bíogo Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package block implements the CRAM block codec: a length-prefixed,
// optionally-compressed byte payload carrying a method tag, content type,
// content id and, from version 3.0 onward, a CRC32 (spec §4.C).
package block

import (
	"bytes"
	"compress/bzip2"
	"compress/gzip"
	"hash/crc32"
	"io"

	"github.com/ulikunitz/xz/lzma"

	"github.com/biogo/cram/cram/cramio"
	"github.com/biogo/cram/cram/num"
)

// Method is the block compression method tag.
type Method byte

// The block compression methods named in spec §4.C, in wire order.
const (
	Raw Method = iota
	Gzip
	Bzip2
	LZMA
	Rans4x8
	RansNx16
	AAC
	NameTokenizer
	Fqzcomp
)

func (m Method) String() string {
	switch m {
	case Raw:
		return "raw"
	case Gzip:
		return "gzip"
	case Bzip2:
		return "bzip2"
	case LZMA:
		return "lzma"
	case Rans4x8:
		return "rans4x8"
	case RansNx16:
		return "ransNx16"
	case AAC:
		return "aac"
	case NameTokenizer:
		return "name-tokenizer"
	case Fqzcomp:
		return "fqzcomp"
	default:
		return "unknown"
	}
}

// ContentType classifies what a block's payload holds.
type ContentType byte

const (
	FileHeader ContentType = iota
	CompressionHeader
	SliceHeader
	_ // reserved
	ExternalData
	CoreData
)

// Block is one CRAM block (spec §4.C).
type Block struct {
	Method         Method
	ContentType    ContentType
	ContentID      int32
	CompressedSize int32
	RawSize        int32
	Data           []byte // as stored on the wire; compressed unless Method is Raw
	CRC32          uint32
}

// Size returns the number of bytes WriteTo will emit for this block at
// version v, used by the container builder to compute slice landmarks
// before any I/O (spec §4.C).
func (b *Block) Size(v cramio.Version) int {
	var buf bytes.Buffer
	num.WriteSignedInt(&buf, v, b.ContentID)
	idLen := buf.Len()
	buf.Reset()
	num.WriteUnsignedInt(&buf, v, uint64(uint32(b.CompressedSize)))
	szLen := buf.Len()
	buf.Reset()
	num.WriteUnsignedInt(&buf, v, uint64(uint32(b.RawSize)))
	szLen += buf.Len()
	n := 2 + idLen + szLen + len(b.Data)
	if v.HasCRC32() {
		n += 4
	}
	return n
}

// ReadFrom decodes a Block from r, verifying its CRC32 when the version
// requires one.
func (b *Block) ReadFrom(r io.Reader, v cramio.Version) error {
	crc := crc32.NewIEEE()
	var tee io.Reader = r
	if v.HasCRC32() {
		tee = io.TeeReader(r, crc)
	}
	var hdr [2]byte
	if _, err := io.ReadFull(tee, hdr[:]); err != nil {
		if err == io.EOF {
			return err
		}
		return io.ErrUnexpectedEOF
	}
	b.Method = Method(hdr[0])
	b.ContentType = ContentType(hdr[1])

	id, err := num.ReadSignedInt(tee, v)
	if err != nil {
		return err
	}
	b.ContentID = id

	csz, err := num.ReadUnsignedInt(tee, v)
	if err != nil {
		return err
	}
	b.CompressedSize = int32(uint32(csz))

	rsz, err := num.ReadUnsignedInt(tee, v)
	if err != nil {
		return err
	}
	b.RawSize = int32(uint32(rsz))

	if b.Method == Raw && b.CompressedSize != b.RawSize {
		return cramio.Invalidf("block: compressed size (%d) != raw size (%d) for raw method", b.CompressedSize, b.RawSize)
	}

	b.Data = make([]byte, b.CompressedSize)
	if _, err := io.ReadFull(tee, b.Data); err != nil {
		if err == io.EOF {
			err = io.ErrUnexpectedEOF
		}
		return err
	}

	if !v.HasCRC32() {
		return nil
	}
	sum := crc.Sum32()
	var buf [4]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		if err == io.EOF {
			err = io.ErrUnexpectedEOF
		}
		return err
	}
	b.CRC32 = uint32(buf[0]) | uint32(buf[1])<<8 | uint32(buf[2])<<16 | uint32(buf[3])<<24
	if b.CRC32 != sum {
		return cramio.ErrCRCMismatch
	}
	return nil
}

// WriteTo encodes b to w, computing and appending a CRC32 when the
// version requires one.
func (b *Block) WriteTo(w io.Writer, v cramio.Version) error {
	crc := crc32.NewIEEE()
	var tee io.Writer = w
	if v.HasCRC32() {
		tee = io.MultiWriter(w, crc)
	}
	if _, err := tee.Write([]byte{byte(b.Method), byte(b.ContentType)}); err != nil {
		return err
	}
	if err := num.WriteSignedInt(tee, v, b.ContentID); err != nil {
		return err
	}
	if err := num.WriteUnsignedInt(tee, v, uint64(uint32(b.CompressedSize))); err != nil {
		return err
	}
	if err := num.WriteUnsignedInt(tee, v, uint64(uint32(b.RawSize))); err != nil {
		return err
	}
	if _, err := tee.Write(b.Data); err != nil {
		return err
	}
	if !v.HasCRC32() {
		return nil
	}
	sum := crc.Sum32()
	var buf [4]byte
	buf[0] = byte(sum)
	buf[1] = byte(sum >> 8)
	buf[2] = byte(sum >> 16)
	buf[3] = byte(sum >> 24)
	_, err := w.Write(buf[:])
	return err
}

// New builds a Block of the given content type/id from raw payload data,
// compressing it with method and filling in the size fields.
func New(method Method, ct ContentType, contentID int32, raw []byte) (*Block, error) {
	data, err := compress(method, raw)
	if err != nil {
		return nil, err
	}
	return &Block{
		Method:         method,
		ContentType:    ct,
		ContentID:      contentID,
		CompressedSize: int32(len(data)),
		RawSize:        int32(len(raw)),
		Data:           data,
	}, nil
}

// Decompress returns the block's uncompressed payload.
//
// Fqzcomp and NameTokenizer blocks cannot be decompressed in isolation:
// fqzcomp needs the slice's per-record quality-score lengths and
// name-tokenizer needs the slice's record count, both only known to the
// slice assembler, so those methods return cramio.ErrUnsupported here and
// must instead be unpacked via the fqzcomp/nametok packages directly from
// slice code (spec §4.C, §4.M).
func (b *Block) Decompress() ([]byte, error) {
	return decompress(b.Method, b.Data)
}

func compress(method Method, raw []byte) ([]byte, error) {
	switch method {
	case Raw:
		return raw, nil
	case Gzip:
		var buf bytes.Buffer
		gw := gzip.NewWriter(&buf)
		if _, err := gw.Write(raw); err != nil {
			return nil, err
		}
		if err := gw.Close(); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	case LZMA:
		var buf bytes.Buffer
		lw, err := lzma.NewWriter(&buf)
		if err != nil {
			return nil, err
		}
		if _, err := lw.Write(raw); err != nil {
			return nil, err
		}
		if err := lw.Close(); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	case Bzip2:
		// The standard library's bzip2 package is decode-only; CRAM
		// writers that want Bzip2 must supply pre-compressed data.
		return nil, cramio.Unsupportedf("block: bzip2 compression (encode) is unsupported")
	case Rans4x8, RansNx16, AAC:
		return nil, cramio.Unsupportedf("block: %s compression is unsupported", method)
	case NameTokenizer, Fqzcomp:
		return nil, cramio.Unsupportedf("block: %s requires slice-level context; use the nametok/fqzcomp packages directly", method)
	default:
		return nil, cramio.Invalidf("block: unknown compression method %d", method)
	}
}

func decompress(method Method, data []byte) ([]byte, error) {
	switch method {
	case Raw:
		return data, nil
	case Gzip:
		gr, err := gzip.NewReader(bytes.NewReader(data))
		if err != nil {
			return nil, err
		}
		return io.ReadAll(gr)
	case Bzip2:
		return io.ReadAll(bzip2.NewReader(bytes.NewReader(data)))
	case LZMA:
		lr, err := lzma.NewReader(bytes.NewReader(data))
		if err != nil {
			return nil, err
		}
		return io.ReadAll(lr)
	case Rans4x8, RansNx16, AAC:
		// BUG: rANS/AAC decoding is not implemented; data blocks
		// compressed with these methods are returned compressed.
		return data, cramio.Unsupportedf("block: %s decompression is unsupported", method)
	case NameTokenizer, Fqzcomp:
		return data, cramio.Unsupportedf("block: %s requires slice-level context; use the nametok/fqzcomp packages directly", method)
	default:
		return nil, cramio.Invalidf("block: unknown compression method %d", method)
	}
}
