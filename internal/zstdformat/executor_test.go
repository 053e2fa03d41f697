// Copyright 2019 Cosmos Nicolaou. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package zstdformat

import "testing"

// TestResolveOffset exercises every branch of the (OF_raw, LL==0) ->
// (actual offset, updated recent-offsets) mapping, including the
// idx2==3 special case that synthesizes recent[0]-1.
func TestResolveOffset(t *testing.T) {
	cases := []struct {
		name       string
		ofRaw      uint32
		ll         int
		recent     [3]uint32
		wantActual uint32
		wantRecent [3]uint32
	}{
		{
			name:       "literal offset code (>3)",
			ofRaw:      5,
			ll:         1,
			recent:     [3]uint32{1, 4, 8},
			wantActual: 2,
			wantRecent: [3]uint32{2, 1, 4},
		},
		{
			name:       "repeat offset code 2, LL>0 selects recent[1] directly",
			ofRaw:      2,
			ll:         5,
			recent:     [3]uint32{1, 4, 8},
			wantActual: 4,
			wantRecent: [3]uint32{4, 1, 8},
		},
		{
			name:       "repeat offset code 1, LL>0 selects recent[0] unchanged",
			ofRaw:      1,
			ll:         5,
			recent:     [3]uint32{1, 4, 8},
			wantActual: 1,
			wantRecent: [3]uint32{1, 4, 8},
		},
		{
			name:       "repeat offset code 1, LL==0 shifts to recent[1]",
			ofRaw:      1,
			ll:         0,
			recent:     [3]uint32{1, 4, 8},
			wantActual: 4,
			wantRecent: [3]uint32{4, 1, 8},
		},
		{
			name:       "repeat offset code 2, LL==0 shifts to recent[2]",
			ofRaw:      2,
			ll:         0,
			recent:     [3]uint32{1, 4, 8},
			wantActual: 8,
			wantRecent: [3]uint32{8, 1, 4},
		},
		{
			name:       "repeat offset code 3, LL==0 synthesizes recent[0]-1",
			ofRaw:      3,
			ll:         0,
			recent:     [3]uint32{1, 4, 8},
			wantActual: 0,
			wantRecent: [3]uint32{0, 1, 4},
		},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			recent := c.recent
			got, err := resolveOffset(c.ofRaw, c.ll, &recent)
			if err != nil {
				t.Fatal(err)
			}
			if got != c.wantActual {
				t.Fatalf("actual = %d, want %d", got, c.wantActual)
			}
			if recent != c.wantRecent {
				t.Fatalf("recent = %v, want %v", recent, c.wantRecent)
			}
		})
	}
}

func TestResolveOffsetRejectsZeroRecentUnderflow(t *testing.T) {
	recent := [3]uint32{0, 4, 8}
	if _, err := resolveOffset(3, 0, &recent); err == nil {
		t.Fatal("expected an error when recent[0]-1 underflows")
	}
}

// TestExecuteSequencesSelfOverlap: a single sequence with LL=0, an
// offset of 1 byte and a match length greater than the offset must
// replicate the single preceding byte periodically rather than copying
// it only once.
func TestExecuteSequencesSelfOverlap(t *testing.T) {
	db := newDecodeBuffer(1 << 10)
	db.push([]byte{'X'})
	recent := initialRecentOffsets
	seqs := []sequence{{LL: 0, OFRaw: 4, ML: 100}} // OFRaw=4 -> actual offset 1
	if err := executeSequences(seqs, nil, &recent, db); err != nil {
		t.Fatal(err)
	}
	if got := db.totalOutput; got != 101 {
		t.Fatalf("totalOutput = %d, want 101", got)
	}
}
