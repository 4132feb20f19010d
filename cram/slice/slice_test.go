// Copyright ©2017 The bíogo Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package slice

import (
	"bytes"
	"testing"

	"github.com/biogo/cram/cram/block"
	"github.com/biogo/cram/cram/cramio"
)

func TestHeaderRoundTrip(t *testing.T) {
	h := Header{
		RefSeqID:      2,
		Start:         10,
		Span:          100,
		RecordCount:   5,
		RecordCounter: 50,
		BlockCount:    2,
		BlockIDs:      []int32{11, 12},
		EmbeddedRefID: NoEmbeddedReference,
		Tags:          []byte{1, 2, 3},
	}
	for _, v := range []cramio.Version{cramio.V2_0, cramio.V3_0, cramio.V4_0} {
		var buf bytes.Buffer
		if err := h.WriteTo(&buf, v); err != nil {
			t.Fatalf("%s: WriteTo: %v", v, err)
		}
		var got Header
		if err := got.ReadFrom(&buf, v); err != nil {
			t.Fatalf("%s: ReadFrom: %v", v, err)
		}
		if got.RefSeqID != h.RefSeqID || got.Start != h.Start || got.Span != h.Span ||
			got.RecordCount != h.RecordCount || got.RecordCounter != h.RecordCounter ||
			got.BlockCount != h.BlockCount || len(got.BlockIDs) != len(h.BlockIDs) {
			t.Errorf("%s: got %+v, want %+v", v, got, h)
		}
	}
}

func TestAssemble(t *testing.T) {
	v := cramio.V3_0
	core, err := block.New(block.Raw, block.CoreData, 0, []byte("core payload"))
	if err != nil {
		t.Fatal(err)
	}
	ext, err := block.New(block.Gzip, block.ExternalData, 5, []byte("external payload, external payload"))
	if err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	if err := core.WriteTo(&buf, v); err != nil {
		t.Fatal(err)
	}
	if err := ext.WriteTo(&buf, v); err != nil {
		t.Fatal(err)
	}

	h := Header{BlockCount: 2, BlockIDs: []int32{5}, EmbeddedRefID: NoEmbeddedReference}
	sl, deferred, err := Assemble(&buf, v, h)
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	if len(deferred) != 0 {
		t.Errorf("expected no deferred blocks, got %d", len(deferred))
	}
	if string(sl.Core) != "core payload" {
		t.Errorf("Core = %q", sl.Core)
	}
	if string(sl.External[5]) != "external payload, external payload" {
		t.Errorf("External[5] = %q", sl.External[5])
	}
}

func TestAssembleDefersFqzcompAndNameTokenizer(t *testing.T) {
	v := cramio.V3_0
	core, err := block.New(block.Raw, block.CoreData, 0, []byte("core"))
	if err != nil {
		t.Fatal(err)
	}
	fqz := &block.Block{
		Method:         block.Fqzcomp,
		ContentType:    block.ExternalData,
		ContentID:      9,
		CompressedSize: 3,
		RawSize:        3,
		Data:           []byte{1, 2, 3},
	}

	var buf bytes.Buffer
	if err := core.WriteTo(&buf, v); err != nil {
		t.Fatal(err)
	}
	if err := fqz.WriteTo(&buf, v); err != nil {
		t.Fatal(err)
	}

	h := Header{BlockCount: 2, BlockIDs: []int32{9}, EmbeddedRefID: NoEmbeddedReference}
	sl, deferred, err := Assemble(&buf, v, h)
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	if _, ok := deferred[9]; !ok {
		t.Fatal("expected content id 9 to be deferred")
	}
	if string(sl.Core) != "core" {
		t.Errorf("Core = %q", sl.Core)
	}
}
