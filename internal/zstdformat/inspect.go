// Copyright 2019 Cosmos Nicolaou. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package zstdformat

import "io"

// BlockInfo describes one block's header without decoding its content,
// mirroring the (much cheaper, because length-prefixed) zstd analogue
// of pbzip2's Scanner/CompressedBlock walk.
type BlockInfo struct {
	Type      string
	Size      int
	LastBlock bool
}

// FrameInfo describes one frame's header and the headers of every
// block it contains, again without running any entropy decode.
type FrameInfo struct {
	Skippable        bool
	SkippableMagic   uint32
	SkippablePayload int
	WindowSize       int
	HasContentSize   bool
	ContentSize      uint64
	HasChecksum      bool
	Blocks           []BlockInfo
}

var blockTypeNames = [4]string{"raw", "rle", "compressed", "reserved"}

// ScanAll walks every frame and block header in r without decoding any
// entropy-coded content, returning a structural report. It exists for
// the same reason pbzip2's bz2-stats debug command does: a cheap sanity
// check over a stream that never has to materialize output.
func ScanAll(r io.Reader) ([]FrameInfo, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	var frames []FrameInfo
	for len(data) > 0 {
		fi, n, err := scanOneFrame(data)
		if err != nil {
			return frames, err
		}
		frames = append(frames, fi)
		data = data[n:]
	}
	return frames, nil
}

func scanOneFrame(data []byte) (FrameInfo, int, error) {
	if len(data) < 4 {
		return FrameInfo{}, 0, TruncatedInputError("short frame magic")
	}
	magic := leUint32(data)
	if magic >= skippableMagicLow && magic <= skippableMagicHigh {
		if len(data) < 8 {
			return FrameInfo{}, 0, TruncatedInputError("short skippable frame header")
		}
		size := int(leUint32(data[4:8]))
		total := 8 + size
		if len(data) < total {
			return FrameInfo{}, 0, TruncatedInputError("truncated skippable frame")
		}
		return FrameInfo{Skippable: true, SkippableMagic: magic, SkippablePayload: size}, total, nil
	}
	if magic != zstdMagic {
		return FrameInfo{}, 0, ErrMagicMismatch
	}
	if len(data) < 5 {
		return FrameInfo{}, 0, TruncatedInputError("short frame header")
	}
	descriptor := data[4]
	fcsFlag := descriptor >> 6
	singleSegment := descriptor&0x20 != 0
	checksumFlag := descriptor&0x04 != 0
	dictFlag := descriptor & 0x3

	dictSizes := [4]int{0, 1, 2, 4}
	dictSize := dictSizes[dictFlag]
	fcsSizes := [4]int{0, 2, 4, 8}
	fcsSize := fcsSizes[fcsFlag]
	if fcsFlag == 0 && singleSegment {
		fcsSize = 1
	}

	headerLen := 5
	if !singleSegment {
		headerLen++
	}
	headerLen += dictSize + fcsSize
	if len(data) < headerLen {
		return FrameInfo{}, 0, TruncatedInputError("truncated frame header")
	}

	off := 5
	windowSize := 0
	if !singleSegment {
		wd := data[off]
		off++
		windowLog := 10 + uint(wd>>3)
		windowBase := 1 << windowLog
		windowSize = windowBase + (windowBase/8)*int(wd&0x7)
	}
	off += dictSize

	var fcs uint64
	for i := 0; i < fcsSize; i++ {
		fcs |= uint64(data[off]) << (8 * uint(i))
		off++
	}
	if fcsSize == 2 {
		fcs += 256
	}
	if singleSegment {
		windowSize = int(fcs)
	}

	fi := FrameInfo{
		WindowSize:     windowSize,
		HasContentSize: fcsSize > 0,
		ContentSize:    fcs,
		HasChecksum:    checksumFlag,
	}

	pos := headerLen
	for {
		if len(data) < pos+3 {
			return fi, 0, TruncatedInputError("truncated block header")
		}
		hdr, err := parseBlockHeader(data[pos:])
		if err != nil {
			return fi, 0, err
		}
		pos += 3
		if len(data) < pos+hdr.contentSize() {
			return fi, 0, TruncatedInputError("truncated block body")
		}
		pos += hdr.contentSize()
		fi.Blocks = append(fi.Blocks, BlockInfo{
			Type:      blockTypeNames[hdr.blockType],
			Size:      hdr.blockSize,
			LastBlock: hdr.lastBlock,
		})
		if hdr.lastBlock {
			break
		}
	}
	if checksumFlag {
		if len(data) < pos+4 {
			return fi, 0, TruncatedInputError("truncated checksum trailer")
		}
		pos += 4
	}
	return fi, pos, nil
}
