// Copyright 2019 Cosmos Nicolaou. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package zstdformat

import "testing"

// TestDecodeOneStreamCanonicalCodes builds the 3-symbol canonical table
// for weights=[2,1,1]: the weight-1 symbols take the longest codes at
// the bottom of the table (symbol 1 = "00", symbol 2 = "01") and the
// weight-2 symbol the 1-bit code "1". The stream encodes [0,1,2,0] as
// the bit sequence 1 00 01 1, packed below a sentinel bit into the
// single byte 0b01100011.
func TestDecodeOneStreamCanonicalCodes(t *testing.T) {
	table, err := buildHuffmanTable([]uint8{2, 1, 1})
	if err != nil {
		t.Fatal(err)
	}
	if table.maxWeight != 2 {
		t.Fatalf("maxWeight = %d, want 2", table.maxWeight)
	}
	rev, err := newReverseBitReader([]byte{0x63})
	if err != nil {
		t.Fatal(err)
	}
	out := make([]byte, 4)
	if err := decodeOneStream(table, &rev, out); err != nil {
		t.Fatal(err)
	}
	want := []byte{0, 1, 2, 0}
	for i := range want {
		if out[i] != want[i] {
			t.Fatalf("out = %v, want %v", out, want)
		}
	}
}

// TestDecodeOneStreamRejectsLeftoverBits: a stream whose code lengths
// do not consume the payload exactly is corrupt in both directions.
func TestDecodeOneStreamRejectsLeftoverBits(t *testing.T) {
	table, err := buildHuffmanTable([]uint8{2, 1, 1})
	if err != nil {
		t.Fatal(err)
	}
	rev, err := newReverseBitReader([]byte{0x63})
	if err != nil {
		t.Fatal(err)
	}
	out := make([]byte, 3) // stream holds 4 symbols
	if err := decodeOneStream(table, &rev, out); err == nil {
		t.Fatal("expected an error for undecoded leftover bits")
	}
}

// TestBuildHuffmanTableRankLayout pins the canonical slot layout: the
// longest codes occupy the lowest indices, and a code's slots all carry
// its length.
func TestBuildHuffmanTableRankLayout(t *testing.T) {
	table, err := buildHuffmanTable([]uint8{2, 1, 1})
	if err != nil {
		t.Fatal(err)
	}
	wantSym := []uint8{1, 2, 0, 0}
	wantLen := []uint8{2, 2, 1, 1}
	for i := range wantSym {
		if table.entries[i].symbol != wantSym[i] || table.entries[i].codeLen != wantLen[i] {
			t.Fatalf("entry %d = %+v, want symbol %d len %d", i, table.entries[i], wantSym[i], wantLen[i])
		}
	}
}

// TestWeightsFromHeaderDirectSingleWeight exercises the implicit last
// weight derivation: a single explicit weight of 1 (one symbol,
// count=1) must deduce a second symbol also of weight 1, since two
// equal-weight symbols are the only way to complete a 1-bit code pair.
func TestWeightsFromHeaderDirectSingleWeight(t *testing.T) {
	// header byte: count=1 (< 128); payload byte: high nibble = weight
	// of symbol 0 = 1, low nibble unused.
	buf := []byte{0x01, 0x10}
	weights, consumed, err := weightsFromHeader(buf)
	if err != nil {
		t.Fatal(err)
	}
	if consumed != 2 {
		t.Fatalf("consumed = %d, want 2", consumed)
	}
	want := []uint8{1, 1}
	if len(weights) != len(want) || weights[0] != want[0] || weights[1] != want[1] {
		t.Fatalf("weights = %v, want %v", weights, want)
	}
}

// TestDecodeFSEWeightsInterleaved decodes a hand-assembled
// FSE-compressed weight stream. The distribution header normalizes
// symbols {0,1} to 16 slots each at table_log 5 (bytes 10 3f); the
// reverse bitstream seeds the even state at 0 and the odd state at 3,
// then carries exactly two more state-transition bits, so the stream
// ends by overreading on the third transition (the even state's
// second) and flushes
// the odd state's pending symbol: [0, 1, 0, 0].
func TestDecodeFSEWeightsInterleaved(t *testing.T) {
	weights, err := decodeFSEWeights([]byte{0x10, 0x3F, 0x0E, 0x10})
	if err != nil {
		t.Fatal(err)
	}
	want := []uint8{0, 1, 0, 0}
	if len(weights) != len(want) {
		t.Fatalf("weights = %v, want %v", weights, want)
	}
	for i := range want {
		if weights[i] != want[i] {
			t.Fatalf("weights = %v, want %v", weights, want)
		}
	}
}

// TestWeightsFromHeaderFSECompressed runs the same stream through the
// full header path (header byte 0x83 = FSE-compressed, 4 payload
// bytes) and checks the implicit last weight: the single explicit
// weight-1 symbol forces wLast=1 to complete the power of two.
func TestWeightsFromHeaderFSECompressed(t *testing.T) {
	buf := []byte{0x83, 0x10, 0x3F, 0x0E, 0x10}
	weights, consumed, err := weightsFromHeader(buf)
	if err != nil {
		t.Fatal(err)
	}
	if consumed != 5 {
		t.Fatalf("consumed = %d, want 5", consumed)
	}
	want := []uint8{0, 1, 0, 0, 1}
	if len(weights) != len(want) {
		t.Fatalf("weights = %v, want %v", weights, want)
	}
	for i := range want {
		if weights[i] != want[i] {
			t.Fatalf("weights = %v, want %v", weights, want)
		}
	}
}

func TestBuildHuffmanTableRejectsNonTilingWeights(t *testing.T) {
	// weight 2 alone claims only half the table (span 2) with no
	// symbol to fill the rest.
	if _, err := buildHuffmanTable([]uint8{2}); err == nil {
		t.Fatal("expected an error for weights that don't tile the table")
	}
}

func TestBuildHuffmanTableRejectsEmptyWeights(t *testing.T) {
	if _, err := buildHuffmanTable(nil); err == nil {
		t.Fatal("expected an error for an empty weight list")
	}
}
