// Copyright ©2017 The bíogo Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package block

import (
	"bytes"
	"testing"

	"github.com/biogo/cram/cram/cramio"
)

func TestRoundTrip(t *testing.T) {
	payload := []byte("a modest CRAM block payload, repeated repeated repeated")
	for _, v := range []cramio.Version{cramio.V2_0, cramio.V3_0, cramio.V4_0} {
		for _, method := range []Method{Raw, Gzip, LZMA} {
			b, err := New(method, ExternalData, 7, payload)
			if err != nil {
				t.Fatalf("%s/%s: New: %v", v, method, err)
			}
			var buf bytes.Buffer
			if err := b.WriteTo(&buf, v); err != nil {
				t.Fatalf("%s/%s: WriteTo: %v", v, method, err)
			}

			var got Block
			if err := got.ReadFrom(&buf, v); err != nil {
				t.Fatalf("%s/%s: ReadFrom: %v", v, method, err)
			}
			data, err := got.Decompress()
			if err != nil {
				t.Fatalf("%s/%s: Decompress: %v", v, method, err)
			}
			if !bytes.Equal(data, payload) {
				t.Errorf("%s/%s: got %q, want %q", v, method, data, payload)
			}
			if got.ContentID != 7 || got.ContentType != ExternalData {
				t.Errorf("%s/%s: got content id/type %d/%d, want 7/%d", v, method, got.ContentID, got.ContentType, ExternalData)
			}
		}
	}
}

func TestSizeMatchesWriteTo(t *testing.T) {
	b, err := New(Raw, CoreData, 0, []byte("0123456789"))
	if err != nil {
		t.Fatal(err)
	}
	for _, v := range []cramio.Version{cramio.V2_0, cramio.V3_0, cramio.V4_0} {
		var buf bytes.Buffer
		if err := b.WriteTo(&buf, v); err != nil {
			t.Fatalf("%s: WriteTo: %v", v, err)
		}
		if got, want := buf.Len(), b.Size(v); got != want {
			t.Errorf("%s: Size() = %d, WriteTo wrote %d", v, want, got)
		}
	}
}

func TestCRCMismatch(t *testing.T) {
	b, err := New(Raw, ExternalData, 1, []byte("payload"))
	if err != nil {
		t.Fatal(err)
	}
	var buf bytes.Buffer
	if err := b.WriteTo(&buf, cramio.V3_0); err != nil {
		t.Fatal(err)
	}
	corrupt := buf.Bytes()
	corrupt[len(corrupt)-1] ^= 0xff
	var got Block
	err = got.ReadFrom(bytes.NewReader(corrupt), cramio.V3_0)
	if err != cramio.ErrCRCMismatch {
		t.Errorf("got err %v, want %v", err, cramio.ErrCRCMismatch)
	}
}
