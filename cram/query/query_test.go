// Copyright ©2017 The bíogo Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package query

import (
	"io"
	"testing"
)

type fakeRecord struct {
	refID int
	iv    Interval
}

func (r fakeRecord) ReferenceID() int  { return r.refID }
func (r fakeRecord) Interval() Interval { return r.iv }

// fakeSource replays a fixed, ordered list of records, tracking a cursor
// set by Seek and reporting increasing virtual positions as it reads.
type fakeSource struct {
	records []fakeRecord
	cursor  int
	pos     VirtualPosition
}

func (s *fakeSource) Seek(pos VirtualPosition) error {
	for i, p := range []VirtualPosition{{}, {Block: 1}, {Block: 2}, {Block: 3}} {
		if p == pos {
			s.cursor = i
		}
	}
	s.pos = pos
	return nil
}

func (s *fakeSource) VirtualPosition() VirtualPosition { return s.pos }

func (s *fakeSource) Read() (Record, error) {
	if s.cursor >= len(s.records) {
		return nil, io.EOF
	}
	r := s.records[s.cursor]
	s.cursor++
	s.pos = VirtualPosition{Block: int64(s.cursor)}
	return r, nil
}

func TestIteratorFiltersByReferenceAndInterval(t *testing.T) {
	src := &fakeSource{records: []fakeRecord{
		{refID: 0, iv: Interval{1, 10}},
		{refID: 1, iv: Interval{1, 10}}, // wrong reference
		{refID: 0, iv: Interval{100, 110}}, // out of interval
		{refID: 0, iv: Interval{5, 15}},
	}}
	chunks := []Chunk{{Start: VirtualPosition{}, End: VirtualPosition{Block: 4}}}
	it := NewIterator(src, chunks, 0, Interval{1, 20})

	var got []Interval
	for it.Next() {
		got = append(got, it.Record().Interval())
	}
	if err := it.Err(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []Interval{{1, 10}, {5, 15}}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("record %d: got %v, want %v", i, got[i], want[i])
		}
	}
}

func TestIteratorEmptyChunksIsDone(t *testing.T) {
	it := NewIterator(&fakeSource{}, nil, 0, Interval{1, 1})
	if it.Next() {
		t.Fatal("Next should return false immediately with no chunks")
	}
	if err := it.Err(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestIteratorAdvancesAcrossChunks(t *testing.T) {
	src := &fakeSource{records: []fakeRecord{
		{refID: 0, iv: Interval{1, 2}},
		{refID: 0, iv: Interval{3, 4}},
	}}
	chunks := []Chunk{
		{Start: VirtualPosition{Block: 0}, End: VirtualPosition{Block: 1}},
		{Start: VirtualPosition{Block: 1}, End: VirtualPosition{Block: 2}},
	}
	it := NewIterator(src, chunks, 0, Interval{1, 10})
	count := 0
	for it.Next() {
		count++
	}
	if count != 2 {
		t.Fatalf("got %d records, want 2", count)
	}
}
