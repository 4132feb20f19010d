// Copyright ©2017 The bíogo Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package num

import (
	"bytes"
	"testing"

	"github.com/biogo/cram/cram/cramio"
)

func TestITF8RoundTrip(t *testing.T) {
	// Values chosen to cross every ITF8 length boundary (1 through 5
	// bytes) in both directions.
	values := []int32{
		0, 1, 0x7f, 0x80, 0x3fff, 0x4000,
		0x1fffff, 0x200000, 0xfffffff, 0x10000000,
		-1, -1000, 0x7fffffff, -0x80000000,
	}
	for _, v := range values {
		var buf bytes.Buffer
		if err := WriteITF8(&buf, v); err != nil {
			t.Fatalf("WriteITF8(%d): %v", v, err)
		}
		got, err := ReadITF8(&buf)
		if err != nil {
			t.Fatalf("ReadITF8(%d): %v", v, err)
		}
		if got != v {
			t.Errorf("ITF8 round trip: got %d, want %d", got, v)
		}
	}
}

func TestLTF8RoundTrip(t *testing.T) {
	// Values chosen to cross every LTF8 length boundary (1 through 9
	// bytes) in both directions.
	values := []int64{
		0, 1, 0x7f, 0x80, 0x3fff, 0x4000,
		0x1fffff, 0x200000, 0xfffffff, 0x10000000,
		0x7ffffffff, 0x800000000,
		0x3ffffffffff, 0x40000000000,
		0x1ffffffffffff, 0x2000000000000,
		0xffffffffffffff, 0x100000000000000,
		-1, -1000, 0x7fffffffffffffff, -0x8000000000000000,
	}
	for _, v := range values {
		var buf bytes.Buffer
		if err := WriteLTF8(&buf, v); err != nil {
			t.Fatalf("WriteLTF8(%d): %v", v, err)
		}
		got, err := ReadLTF8(&buf)
		if err != nil {
			t.Fatalf("ReadLTF8(%d): %v", v, err)
		}
		if got != v {
			t.Errorf("LTF8 round trip: got %d, want %d", got, v)
		}
	}
}

func TestSignedIntDispatchesOnVersion(t *testing.T) {
	for _, v := range []cramio.Version{cramio.V2_0, cramio.V3_0, cramio.V4_0} {
		var buf bytes.Buffer
		if err := WriteSignedInt(&buf, v, -12345); err != nil {
			t.Fatalf("%s: WriteSignedInt: %v", v, err)
		}
		got, err := ReadSignedInt(&buf, v)
		if err != nil {
			t.Fatalf("%s: ReadSignedInt: %v", v, err)
		}
		if got != -12345 {
			t.Errorf("%s: got %d, want -12345", v, got)
		}
	}
}

func TestUnsignedIntDispatchesOnVersion(t *testing.T) {
	for _, v := range []cramio.Version{cramio.V2_0, cramio.V3_0, cramio.V4_0} {
		var buf bytes.Buffer
		if err := WriteUnsignedInt(&buf, v, 0xdeadbeef); err != nil {
			t.Fatalf("%s: WriteUnsignedInt: %v", v, err)
		}
		got, err := ReadUnsignedInt(&buf, v)
		if err != nil {
			t.Fatalf("%s: ReadUnsignedInt: %v", v, err)
		}
		if got != 0xdeadbeef {
			t.Errorf("%s: got %d, want %d", v, got, uint64(0xdeadbeef))
		}
	}
}

func TestLongDispatchesOnVersion(t *testing.T) {
	for _, v := range []cramio.Version{cramio.V2_0, cramio.V3_0, cramio.V4_0} {
		var buf bytes.Buffer
		if err := WriteLong(&buf, v, -1<<40); err != nil {
			t.Fatalf("%s: WriteLong: %v", v, err)
		}
		got, err := ReadLong(&buf, v)
		if err != nil {
			t.Fatalf("%s: ReadLong: %v", v, err)
		}
		if got != -1<<40 {
			t.Errorf("%s: got %d, want %d", v, got, int64(-1<<40))
		}
	}
}
