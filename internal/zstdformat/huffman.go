// Copyright 2019 Cosmos Nicolaou. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package zstdformat

import "math/bits"

const maxHuffmanWeightSymbol = 11

// huffEntry is one slot of the flat Huffman lookup table: which literal
// byte a code maps to, and how many bits of the peeked window that code
// actually occupies.
type huffEntry struct {
	symbol  uint8
	codeLen uint8
}

// huffmanTable is a flat decode table of size 1<<maxWeight. A decoder
// peeks maxWeight bits, looks up the entry, emits the symbol and
// advances by codeLen bits; the remaining peeked bits were never part
// of this code and are re-peeked on the next lookup.
type huffmanTable struct {
	maxWeight uint
	entries   []huffEntry
}

// buildHuffmanTable constructs the flat decode table from a per-symbol
// weight list (weight 0 meaning the symbol does not occur). Ranks are
// laid out in ascending weight order, so the longest codes occupy the
// lowest table indices; within a rank, symbols appear in natural
// order, each claiming a contiguous block of 2^(weight-1) slots. This
// is canonical Huffman code assignment flattened into a lookup table
// instead of a tree, mirroring huff0's nextRankStart layout.
func buildHuffmanTable(weights []uint8) (*huffmanTable, error) {
	maxWeight := uint(0)
	for _, w := range weights {
		if uint(w) > maxWeight {
			maxWeight = uint(w)
		}
	}
	if maxWeight == 0 || maxWeight > maxHuffmanWeightSymbol {
		return nil, CorruptionError("invalid Huffman max weight")
	}

	entries := make([]huffEntry, 1<<maxWeight)
	pos := 0
	for w := uint(1); w <= maxWeight; w++ {
		codeLen := maxWeight + 1 - w
		span := 1 << (w - 1)
		for s, sw := range weights {
			if uint(sw) != w {
				continue
			}
			if pos+span > len(entries) {
				return nil, CorruptionError("Huffman weights overflow the table")
			}
			for i := 0; i < span; i++ {
				entries[pos+i] = huffEntry{symbol: uint8(s), codeLen: uint8(codeLen)}
			}
			pos += span
		}
	}
	if pos != len(entries) {
		return nil, CorruptionError("Huffman weights do not tile the table")
	}
	return &huffmanTable{maxWeight: maxWeight, entries: entries}, nil
}

// weightsFromHeader parses the Huffman_Tree_Description that precedes a
// Compressed literals section: either a direct 4-bit-packed weight list
// (header < 128, giving the explicit weight count) or an FSE-compressed
// weight stream (header >= 128, compressed size = header-127, decoded
// with two interleaved FSE states). The last weight is never stored: it
// completes the sum of 2^(weight-1) terms to the next power of two,
// which also fixes the tree's maximum code length.
func weightsFromHeader(buf []byte) ([]uint8, int, error) {
	if len(buf) == 0 {
		return nil, 0, TruncatedInputError("missing Huffman tree header")
	}
	header := buf[0]
	var explicit []uint8
	var consumed int

	if header < 128 {
		count := int(header)
		nbytes := (count + 1) / 2
		if len(buf) < 1+nbytes {
			return nil, 0, TruncatedInputError("truncated direct Huffman weights")
		}
		explicit = make([]uint8, count)
		for i := 0; i < count; i++ {
			b := buf[1+i/2]
			if i%2 == 0 {
				explicit[i] = b >> 4
			} else {
				explicit[i] = b & 0xF
			}
		}
		consumed = 1 + nbytes
	} else {
		size := int(header) - 127
		if len(buf) < 1+size {
			return nil, 0, TruncatedInputError("truncated FSE-compressed Huffman weights")
		}
		var err error
		explicit, err = decodeFSEWeights(buf[1 : 1+size])
		if err != nil {
			return nil, 0, err
		}
		consumed = 1 + size
	}

	sum := uint32(0)
	for _, w := range explicit {
		if w > maxHuffmanWeightSymbol {
			return nil, 0, CorruptionError("Huffman weight out of range")
		}
		if w > 0 {
			sum += 1 << (w - 1)
		}
	}
	if sum == 0 {
		return nil, 0, CorruptionError("Huffman weights empty")
	}
	// The completed sum must reach the next power of two above the
	// explicit total; the gap is the implicit last weight's 2^(wLast-1)
	// share and must itself be a power of two.
	maxWeight := uint(bits.Len32(sum))
	if maxWeight > maxHuffmanWeightSymbol {
		return nil, 0, CorruptionError("Huffman weights overflow table")
	}
	rest := uint32(1)<<maxWeight - sum
	wLast := uint8(bits.Len32(rest))
	if uint32(1)<<(wLast-1) != rest {
		return nil, 0, CorruptionError("Huffman implicit last weight not a power of two")
	}
	return append(explicit, wLast), consumed, nil
}

// decodeFSEWeights decodes an FSE-compressed Huffman weight list: a
// forward-read normalized distribution (table_log <= 6) followed by a
// reverse bitstream driven by two interleaved FSE states. The states
// emit alternately; the stream ends when a state transition reads past
// the start of the stream, at which point the other state's pending
// symbol is flushed and decoding stops.
func decodeFSEWeights(stream []byte) ([]uint8, error) {
	fwd := newBitReader(stream)
	norm, tableLog, err := readFSEDistribution(&fwd, maxHuffmanWeightSymbol, 6)
	if err != nil {
		return nil, err
	}
	table, err := buildFSETable(tableLog, norm)
	if err != nil {
		return nil, err
	}
	byteOff := fwd.alignToByte()
	if byteOff >= len(stream) {
		return nil, CorruptionError("FSE-compressed Huffman weights missing bitstream")
	}
	rev, err := newReverseBitReader(stream[byteOff:])
	if err != nil {
		return nil, err
	}
	even, err := newFSEState(table, &rev)
	if err != nil {
		return nil, err
	}
	odd, err := newFSEState(table, &rev)
	if err != nil {
		return nil, err
	}

	var weights []uint8
	for {
		if len(weights) > 254 {
			return nil, CorruptionError("too many Huffman weights")
		}
		weights = append(weights, even.symbol())
		if even.advancePadded(&rev) {
			weights = append(weights, odd.symbol())
			break
		}
		weights = append(weights, odd.symbol())
		if odd.advancePadded(&rev) {
			weights = append(weights, even.symbol())
			break
		}
	}
	if len(weights) > 255 {
		return nil, CorruptionError("too many Huffman weights")
	}
	return weights, nil
}

// decodeOneStream decodes a single Huffman-coded byte stream of known
// output length using table, peeking maxWeight bits at a time from a
// reverse bitstream. The peeked window is the table index directly:
// codes match in stream order from the window's most significant bit,
// and slots unreachable by a shorter code's padding never collide
// because each code owns a contiguous power-of-two block. The final
// codes of a stream legitimately peek past its start (the window is
// wider than the bits that remain); a stream is valid only if its
// total code lengths consume the payload exactly.
func decodeOneStream(table *huffmanTable, br *reverseBitReader, out []byte) error {
	mw := table.maxWeight
	for i := range out {
		e := table.entries[br.peekBits(mw)]
		out[i] = e.symbol
		br.advance(uint(e.codeLen))
	}
	if br.overrun() > 0 {
		return CorruptionError("Huffman stream exhausted before all literals were decoded")
	}
	if !br.finished() {
		return CorruptionError("Huffman stream not exhausted")
	}
	return nil
}
