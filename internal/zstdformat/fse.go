// Copyright 2019 Cosmos Nicolaou. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package zstdformat

import "math/bits"

// fseEntry is one decode-table slot: which symbol that state emits, how
// many bits to read to step to the next state, and the baseline the
// next state is built from.
type fseEntry struct {
	symbol    uint8
	numBits   uint8
	baseState uint16
}

// fseTable is a fully materialized FSE decoding table: 1<<tableLog
// entries, one per possible decoder state.
type fseTable struct {
	tableLog uint
	entries  []fseEntry
}

// buildFSETable implements the slot-assignment algorithm of RFC 8878
// 4.1.1: symbols with a normalized count of -1 ("less-than-one") claim
// one slot each from the top of the table; remaining symbols spread
// their slots using the fixed zstd step, skipping already-claimed
// slots; each table slot is then assigned the (numBits, baseState) that
// makes consecutive occurrences of the same symbol map to a contiguous,
// non-overlapping range of next-states.
func buildFSETable(tableLog uint, norm []int32) (*fseTable, error) {
	if tableLog == 0 || tableLog > 20 {
		return nil, CorruptionError("invalid FSE table_log")
	}
	tableSize := 1 << tableLog
	highThreshold := tableSize - 1

	symbolTable := make([]uint8, tableSize)
	next := make([]uint32, len(norm))

	for s, c := range norm {
		if c == -1 {
			symbolTable[highThreshold] = uint8(s)
			highThreshold--
			next[s] = 1
		} else if c > 0 {
			next[s] = uint32(c)
		}
	}

	step := (tableSize >> 1) + (tableSize >> 3) + 3
	mask := tableSize - 1
	pos := 0
	for s, c := range norm {
		if c <= 0 {
			continue
		}
		for i := int32(0); i < c; i++ {
			symbolTable[pos] = uint8(s)
			pos = (pos + step) & mask
			for pos > highThreshold {
				pos = (pos + step) & mask
			}
		}
	}
	if pos != 0 {
		return nil, CorruptionError("FSE distribution does not exactly tile the table")
	}

	entries := make([]fseEntry, tableSize)
	for u := 0; u < tableSize; u++ {
		sym := symbolTable[u]
		nextState := next[sym]
		next[sym]++
		nbBits := uint8(int(tableLog) - highBit32(nextState))
		entries[u] = fseEntry{
			symbol:    sym,
			numBits:   nbBits,
			baseState: uint16(uint32(nextState)<<nbBits) - uint16(tableSize),
		}
	}
	return &fseTable{tableLog: tableLog, entries: entries}, nil
}

// highBit32 returns floor(log2(v)); v must be >= 1.
func highBit32(v uint32) int {
	return bits.Len32(v) - 1
}

// fseState is a live FSE decoding cursor over a materialized table.
type fseState struct {
	table *fseTable
	state uint32
}

func newFSEState(t *fseTable, br *reverseBitReader) (fseState, error) {
	v, err := br.getBits(t.tableLog)
	if err != nil {
		return fseState{}, err
	}
	return fseState{table: t, state: v}, nil
}

// symbol returns the symbol encoded by the current state without
// advancing it.
func (s *fseState) symbol() uint8 {
	return s.table.entries[s.state].symbol
}

// advance reads this state's step width from br and moves to the next
// state. Call after consuming any additional bits tied to the emitted
// symbol, per the section ordering the caller is implementing.
func (s *fseState) advance(br *reverseBitReader) error {
	e := s.table.entries[s.state]
	if e.numBits == 0 {
		s.state = uint32(e.baseState)
		return nil
	}
	v, err := br.getBits(uint(e.numBits))
	if err != nil {
		return err
	}
	s.state = uint32(e.baseState) + v
	return nil
}

// advancePadded is advance for streams that terminate by overreading
// into zero padding (the interleaved Huffman-weight stream): it never
// fails, and reports whether the stream start has been read past.
func (s *fseState) advancePadded(br *reverseBitReader) bool {
	e := s.table.entries[s.state]
	v, over := br.getBitsPadded(uint(e.numBits))
	s.state = uint32(e.baseState) + v
	return over
}

// rleFSETable builds a degenerate one-symbol table log-0 table used to
// represent an RLE sequence-compression mode uniformly with the FSE
// machinery: every state emits the same symbol and never advances.
func rleFSETable(symbol uint8) *fseTable {
	return &fseTable{
		tableLog: 0,
		entries:  []fseEntry{{symbol: symbol, numBits: 0, baseState: 0}},
	}
}

// Literals-length code -> (baseline, extra bits), RFC 8878 3.1.1.3.2.1.1.
var llCodeBaseline = [36]uint32{
	0, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15,
	16, 18, 20, 22, 24, 28, 32, 40, 48, 64, 128, 256, 512, 1024, 2048, 4096,
	8192, 16384, 32768, 65536,
}
var llCodeExtraBits = [36]uint8{
	0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0,
	1, 1, 1, 1, 2, 2, 3, 3, 4, 6, 7, 8, 9, 10, 11, 12,
	13, 14, 15, 16,
}

// Match-length code -> (baseline, extra bits), RFC 8878 3.1.1.3.2.1.3.
var mlCodeBaseline = [53]uint32{
	3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15, 16, 17, 18,
	19, 20, 21, 22, 23, 24, 25, 26, 27, 28, 29, 30, 31, 32, 33, 34,
	35, 37, 39, 41, 43, 47, 51, 59, 67, 83, 99, 131, 163, 227, 355, 515,
	771, 1283, 2307, 4355, 8451,
}
var mlCodeExtraBits = [53]uint8{
	0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0,
	0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0,
	1, 1, 1, 1, 2, 2, 3, 3, 4, 4, 5, 5, 6, 7, 8, 9,
	10, 11, 12, 13, 16,
}

// Predefined (default) normalized distributions, RFC 8878 3.1.1.3.2.2.
var predefinedLLDistribution = []int32{
	4, 3, 2, 2, 2, 2, 2, 2, 2, 2, 2, 2, 2, 1, 1, 1,
	2, 2, 2, 2, 2, 2, 2, 2, 2, 3, 2, 1, 1, 1, 1, 1,
	-1, -1, -1, -1,
}

const predefinedLLTableLog = 6

var predefinedMLDistribution = []int32{
	1, 4, 3, 2, 2, 2, 2, 2, 2, 1, 1, 1, 1, 1, 1, 1,
	1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1,
	1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1,
	-1, -1, -1, -1, -1,
}

const predefinedMLTableLog = 6

var predefinedOFDistribution = []int32{
	1, 1, 1, 1, 1, 1, 2, 2, 2, 1, 1, 1, 1, 1, 1, 1,
	1, 1, 1, 1, 1, 1, 1, 1, -1, -1, -1, -1, -1,
}

const predefinedOFTableLog = 5

func buildPredefinedLLTable() (*fseTable, error) {
	return buildFSETable(predefinedLLTableLog, predefinedLLDistribution)
}

func buildPredefinedMLTable() (*fseTable, error) {
	return buildFSETable(predefinedMLTableLog, predefinedMLDistribution)
}

func buildPredefinedOFTable() (*fseTable, error) {
	return buildFSETable(predefinedOFTableLog, predefinedOFDistribution)
}

// readFSEDistribution parses a normalized distribution from a forward
// bitstream (RFC 8878 4.1.1): a 4-bit accuracy log giving table_log,
// then a sequence of signed counts. Each count is read with a width
// that shrinks as the remaining probability budget shrinks (the
// "decreasing the bit count as a function of the remaining budget"
// trick used throughout zstd's header encoding), and a count of zero
// introduces a 2-bit run length (extendable by all-ones, à la UTF-8
// continuation bytes) of further zero-probability symbols.
func readFSEDistribution(br *bitReader, maxSymbol int, maxTableLog uint) ([]int32, uint, error) {
	accuracyLog, err := br.getBits(4)
	if err != nil {
		return nil, 0, err
	}
	tableLog := uint(accuracyLog) + 5
	if tableLog > maxTableLog {
		return nil, 0, CorruptionError("FSE table_log exceeds maximum")
	}

	norm := make([]int32, maxSymbol+1)
	remaining := int32(1<<tableLog) + 1
	threshold := int32(1 << tableLog)
	nbBits := tableLog + 1
	symbol := 0

	for remaining > 1 && symbol <= maxSymbol {
		max := 2*threshold - 1 - remaining
		small, err := br.getBits(nbBits - 1)
		if err != nil {
			return nil, 0, err
		}
		var count int32
		if int32(small) < max {
			count = int32(small)
		} else {
			extra, err := br.getBits(1)
			if err != nil {
				return nil, 0, err
			}
			count = int32(small) | int32(extra)<<(nbBits-1)
			if count >= threshold {
				count -= max
			}
		}
		count--
		if count < 0 {
			remaining += count // subtracts abs(count) == 1
		} else {
			remaining -= count
		}
		norm[symbol] = count
		symbol++

		if count == 0 {
			// a run of further zero-probability symbols follows,
			// encoded as repeated 2-bit chunks; a chunk of 3 means
			// "at least 3 more, keep reading".
			for symbol <= maxSymbol {
				run, err := br.getBits(2)
				if err != nil {
					return nil, 0, err
				}
				if run != 3 {
					symbol += int(run)
					break
				}
				symbol += 3
			}
		}

		for remaining < threshold {
			nbBits--
			threshold >>= 1
		}
	}
	if remaining != 1 {
		return nil, 0, CorruptionError("FSE distribution does not exhaust its probability budget")
	}
	return norm, tableLog, nil
}
