// Copyright 2019 Cosmos Nicolaou. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package zstdformat

import "testing"

// TestFSEPredefinedTablesAreBijections: an FSE table build assigns
// every one of the 1<<table_log slots to exactly one symbol, and each
// symbol claims the number of slots its normalized count says it
// should (treating -1 as exactly 1 slot).
func TestFSEPredefinedTablesAreBijections(t *testing.T) {
	cases := []struct {
		name     string
		build    func() (*fseTable, error)
		norm     []int32
		tableLog uint
	}{
		{"LL", buildPredefinedLLTable, predefinedLLDistribution, predefinedLLTableLog},
		{"ML", buildPredefinedMLTable, predefinedMLDistribution, predefinedMLTableLog},
		{"OF", buildPredefinedOFTable, predefinedOFDistribution, predefinedOFTableLog},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			table, err := c.build()
			if err != nil {
				t.Fatal(err)
			}
			tableSize := 1 << c.tableLog
			if len(table.entries) != tableSize {
				t.Fatalf("table has %d entries, want %d", len(table.entries), tableSize)
			}
			counts := make(map[uint8]int)
			for _, e := range table.entries {
				counts[e.symbol]++
			}
			for s, n := range c.norm {
				want := int(n)
				if n == -1 {
					want = 1
				}
				if want <= 0 {
					continue
				}
				if got := counts[uint8(s)]; got != want {
					t.Fatalf("symbol %d occupies %d slots, want %d", s, got, want)
				}
			}
		})
	}
}

// TestBuildFSETableRejectsNonTilingDistribution ensures a distribution
// whose counts don't sum to the table size is rejected rather than
// silently truncated or padded.
func TestBuildFSETableRejectsNonTilingDistribution(t *testing.T) {
	// table_log=2 -> tableSize=4, but counts sum to only 2.
	if _, err := buildFSETable(2, []int32{1, 1}); err == nil {
		t.Fatal("expected an error for a distribution that underfills the table")
	}
}

func TestRLEFSETableAlwaysEmitsSameSymbol(t *testing.T) {
	table := rleFSETable(7)
	state := fseState{table: table, state: 0}
	if state.symbol() != 7 {
		t.Fatalf("symbol() = %d, want 7", state.symbol())
	}
}
