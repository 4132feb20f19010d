// Copyright ©2017 The bíogo Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package vlq

import (
	"bytes"
	"testing"
)

func TestUint64RoundTrip(t *testing.T) {
	for _, v := range []uint64{0, 1, 127, 128, 300, 1 << 20, 1<<63 - 1} {
		var buf bytes.Buffer
		if err := WriteUint64(&buf, v); err != nil {
			t.Fatalf("WriteUint64(%d): %v", v, err)
		}
		if n := buf.Len(); n != LenUint64(v) {
			t.Errorf("LenUint64(%d) = %d, wrote %d bytes", v, LenUint64(v), n)
		}
		got, err := ReadUint64(&buf)
		if err != nil {
			t.Fatalf("ReadUint64(%d): %v", v, err)
		}
		if got != v {
			t.Errorf("got %d, want %d", got, v)
		}
	}
}

func TestSint64RoundTripZigZag(t *testing.T) {
	for _, v := range []int64{0, -1, 1, -64, 64, 1 << 40, -(1 << 40)} {
		var buf bytes.Buffer
		if err := WriteSint64(&buf, v); err != nil {
			t.Fatalf("WriteSint64(%d): %v", v, err)
		}
		got, err := ReadSint64(&buf)
		if err != nil {
			t.Fatalf("ReadSint64(%d): %v", v, err)
		}
		if got != v {
			t.Errorf("got %d, want %d", got, v)
		}
	}
}

func TestAppendDecodeUint32(t *testing.T) {
	for _, v := range []uint32{0, 1, 127, 128, 1<<32 - 1} {
		b := AppendUint32(nil, v)
		got, n, ok := DecodeUint32(b)
		if !ok {
			t.Fatalf("DecodeUint32(%v): not ok", b)
		}
		if n != len(b) || got != v {
			t.Errorf("got (%d, %d), want (%d, %d)", got, n, v, len(b))
		}
	}
}

func TestAppendUint64WireFormat(t *testing.T) {
	cases := []struct {
		v    uint64
		want []byte
	}{
		{0, []byte{0x00}},
		{1, []byte{0x01}},
		{127, []byte{0x7f}},
		{128, []byte{0x81, 0x00}},
	}
	for _, c := range cases {
		got := AppendUint64(nil, c.v)
		if !bytes.Equal(got, c.want) {
			t.Errorf("AppendUint64(%d) = %#v, want %#v", c.v, got, c.want)
		}
	}
}

func TestDecodeUint32OverflowsOnTooManyContinuations(t *testing.T) {
	b := bytes.Repeat([]byte{0x80}, 6)
	_, _, ok := DecodeUint32(b)
	if ok {
		t.Error("expected overflow to be reported as not ok")
	}
}
