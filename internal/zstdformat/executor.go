// Copyright 2019 Cosmos Nicolaou. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package zstdformat

// initialRecentOffsets is the recent-offsets history every frame starts
// with, per RFC 8878 3.1.1.5.
var initialRecentOffsets = [3]uint32{1, 4, 8}

// resolveOffset maps a decoded (offset_code, literals_length==0) pair
// to an actual match offset and the updated recent-offsets history.
// Offset codes 1, 2 and 3 address the history directly except when the
// literals length of the current sequence is zero, in which case the
// addressed slot shifts by one and code 3 instead synthesizes
// recent[0]-1, the single most error-prone rule in the format.
func resolveOffset(ofRaw uint32, ll int, recent *[3]uint32) (uint32, error) {
	if ofRaw > 3 {
		actual := ofRaw - 3
		shiftRecentIn(recent, actual)
		return actual, nil
	}

	idx := int(ofRaw) - 1
	if ll > 0 {
		actual := recent[idx]
		rotateToFront(recent, idx)
		return actual, nil
	}

	idx2 := idx + 1
	if idx2 == 3 {
		if recent[0] < 1 {
			return 0, CorruptionError("recent-offset history underflow")
		}
		actual := recent[0] - 1
		shiftRecentIn(recent, actual)
		return actual, nil
	}
	actual := recent[idx2]
	rotateToFront(recent, idx2)
	return actual, nil
}

// shiftRecentIn prepends a newly computed offset, pushing the other two
// down and dropping the oldest.
func shiftRecentIn(recent *[3]uint32, v uint32) {
	recent[2] = recent[1]
	recent[1] = recent[0]
	recent[0] = v
}

// rotateToFront moves recent[idx] to the front, preserving the relative
// order of the remaining entries.
func rotateToFront(recent *[3]uint32, idx int) {
	v := recent[idx]
	for i := idx; i > 0; i-- {
		recent[i] = recent[i-1]
	}
	recent[0] = v
}

// executeSequences applies decoded sequences to db, consuming literals
// from the regenerated literals buffer and resolving each sequence's
// offset against recent. After the last sequence, whatever tail of
// literals remains unconsumed is appended verbatim: the common case
// for the final sequence of a block, whose match is often followed by a
// handful of trailing literal bytes with no further match to anchor on.
func executeSequences(seqs []sequence, literals []byte, recent *[3]uint32, db *decodeBuffer) error {
	pos := 0
	for _, s := range seqs {
		if s.LL < 0 || pos+s.LL > len(literals) {
			return CorruptionError("literals length exceeds literals buffer")
		}
		actual, err := resolveOffset(s.OFRaw, s.LL, recent)
		if err != nil {
			return err
		}
		if s.LL > 0 {
			db.push(literals[pos : pos+s.LL])
			pos += s.LL
		}
		if s.ML > 0 {
			if err := db.repeat(int(actual), s.ML); err != nil {
				return err
			}
		}
	}
	if pos < len(literals) {
		db.push(literals[pos:])
	}
	return nil
}
