// Copyright 2019 Cosmos Nicolaou. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package zstdformat

import (
	"io"

	"github.com/cespare/xxhash/v2"
)

const (
	zstdMagic            = 0xFD2FB528
	skippableMagicLow    = 0x184D2A50
	skippableMagicHigh   = 0x184D2A5F
	minWindowSize        = 8 << 10
	maxBlockSize         = 128 << 10
	DefaultMaxWindowSize = 8 << 20
)

// Progress reports what, if anything, an Advance call accomplished.
type Progress int

const (
	// NeedsMoreInput means Advance consumed everything it could from
	// the bytes fed so far and is waiting on the caller for more.
	NeedsMoreInput Progress = iota
	// MadeProgress means the frame header was parsed or one or more
	// blocks were decoded and written to the sink; more input may or
	// may not be needed to finish.
	MadeProgress
	// Finished means the frame (including its optional checksum) is
	// fully decoded; further Advance calls are no-ops.
	Finished
)

// Options configures a FrameDecoder, mirroring the knobs the zstd
// package's DOptions expose: a resource ceiling, whether to verify the
// optional content checksum, whether to reject frames that set a
// reserved header bit, and an optional hook for skippable-frame
// payloads that would otherwise be silently discarded.
type Options struct {
	MaxWindowSize         int
	VerifyChecksum        bool
	RejectReservedBits    bool
	SkippableFrameHandler func(magic uint32, payload []byte)
}

// DefaultOptions returns the configuration used when no options are
// given: an 8 MiB window ceiling, checksum verification on, reserved
// header bits rejected.
func DefaultOptions() Options {
	return Options{
		MaxWindowSize:      DefaultMaxWindowSize,
		VerifyChecksum:     true,
		RejectReservedBits: true,
	}
}

type frameReadState int

const (
	stateReadingFrameHeader frameReadState = iota
	stateReadingBlockHeader
	stateReadingBlockContent
	stateReadingChecksum
	stateFinished
)

// FrameDecoder decodes exactly one zstd frame (or one skippable frame)
// from a sequence of input chunks fed via Write, driving output to a
// caller-supplied sink as blocks complete. It never blocks: Advance
// returns NeedsMoreInput instead of suspending, matching the pull
// pipeline described for the core engine.
type FrameDecoder struct {
	opts    Options
	pending []byte
	state   frameReadState

	curHeader   blockHeader
	windowSize  int
	hasChecksum bool
	hasFCS      bool
	fcs         uint64

	bs     blockState
	hasher *xxhash.Digest
}

// NewFrameDecoder creates a FrameDecoder ready to parse a new frame
// header from the first bytes written to it.
func NewFrameDecoder(opts Options) *FrameDecoder {
	return &FrameDecoder{opts: opts}
}

// Write buffers more input. It never fails; the bytes are simply added
// to the pending accumulation buffer for the next Advance call.
func (fd *FrameDecoder) Write(p []byte) (int, error) {
	fd.pending = append(fd.pending, p...)
	return len(p), nil
}

// Done reports whether this instance has completed its frame.
func (fd *FrameDecoder) Done() bool {
	return fd.state == stateFinished
}

// Unconsumed returns the bytes written but not yet consumed; once Done
// reports true, these belong to whatever frame follows.
func (fd *FrameDecoder) Unconsumed() []byte {
	return fd.pending
}

// Advance decodes as many complete blocks as the buffered input allows,
// writing decoded bytes to sink, until it either runs out of input,
// hits an error, or finishes the frame.
func (fd *FrameDecoder) Advance(sink io.Writer) (Progress, error) {
	madeProgress := false
	for {
		switch fd.state {
		case stateReadingFrameHeader:
			ok, err := fd.tryParseFrameHeader()
			if err != nil {
				fd.state = stateFinished
				return Finished, err
			}
			if !ok {
				if madeProgress {
					return MadeProgress, nil
				}
				return NeedsMoreInput, nil
			}
			madeProgress = true
			if fd.state == stateFinished {
				return Finished, nil
			}

		case stateReadingBlockHeader:
			if len(fd.pending) < 3 {
				if madeProgress {
					return MadeProgress, nil
				}
				return NeedsMoreInput, nil
			}
			hdr, err := parseBlockHeader(fd.pending)
			if err != nil {
				fd.state = stateFinished
				return Finished, err
			}
			if max := fd.maxBlockSize(); hdr.blockSize > max {
				fd.state = stateFinished
				return Finished, CorruptionError("block size exceeds block maximum size")
			}
			fd.pending = fd.pending[3:]
			fd.curHeader = hdr
			fd.state = stateReadingBlockContent

		case stateReadingBlockContent:
			contentSize := fd.curHeader.contentSize()
			if len(fd.pending) < contentSize {
				if madeProgress {
					return MadeProgress, nil
				}
				return NeedsMoreInput, nil
			}
			body := fd.pending[:contentSize]
			fd.pending = fd.pending[contentSize:]

			effSink := sink
			if fd.hasher != nil {
				effSink = io.MultiWriter(sink, fd.hasher)
			}

			if err := decodeBlock(fd.curHeader, body, &fd.bs); err != nil {
				fd.state = stateFinished
				return Finished, err
			}
			if err := fd.bs.db.drainTo(effSink); err != nil {
				fd.state = stateFinished
				return Finished, err
			}
			madeProgress = true

			if fd.curHeader.lastBlock {
				if err := fd.bs.db.drainAll(effSink); err != nil {
					fd.state = stateFinished
					return Finished, err
				}
				if fd.hasFCS && fd.bs.db.totalOutput != fd.fcs {
					fd.state = stateFinished
					return Finished, CorruptionError("decoded size disagrees with frame header content size")
				}
				fd.state = stateReadingChecksum
			} else {
				fd.state = stateReadingBlockHeader
			}

		case stateReadingChecksum:
			if !fd.hasChecksum {
				fd.state = stateFinished
				return Finished, nil
			}
			if len(fd.pending) < 4 {
				if madeProgress {
					return MadeProgress, nil
				}
				return NeedsMoreInput, nil
			}
			got := uint32(fd.pending[0]) | uint32(fd.pending[1])<<8 |
				uint32(fd.pending[2])<<16 | uint32(fd.pending[3])<<24
			fd.pending = fd.pending[4:]
			fd.state = stateFinished
			if fd.hasher != nil {
				want := uint32(fd.hasher.Sum64())
				if got != want {
					return Finished, ChecksumMismatchError{Got: got, Want: want}
				}
			}
			return Finished, nil

		case stateFinished:
			return Finished, nil
		}
	}
}

// tryParseFrameHeader attempts to parse a complete frame or skippable
// frame header from the front of fd.pending. It returns ok==false,
// err==nil when more bytes are needed and leaves fd.pending untouched
// in that case; headers are never partially consumed.
func (fd *FrameDecoder) tryParseFrameHeader() (bool, error) {
	if len(fd.pending) < 4 {
		return false, nil
	}
	magic := leUint32(fd.pending)

	if magic >= skippableMagicLow && magic <= skippableMagicHigh {
		if len(fd.pending) < 8 {
			return false, nil
		}
		size := int(leUint32(fd.pending[4:8]))
		total := 8 + size
		if len(fd.pending) < total {
			return false, nil
		}
		if fd.opts.SkippableFrameHandler != nil {
			fd.opts.SkippableFrameHandler(magic, fd.pending[8:total])
		}
		fd.pending = fd.pending[total:]
		fd.state = stateFinished
		return true, nil
	}

	if magic != zstdMagic {
		return false, ErrMagicMismatch
	}
	if len(fd.pending) < 5 {
		return false, nil
	}
	descriptor := fd.pending[4]
	fcsFlag := descriptor >> 6
	singleSegment := descriptor&0x20 != 0
	reserved := descriptor&0x08 != 0
	checksumFlag := descriptor&0x04 != 0
	dictFlag := descriptor & 0x3

	if reserved && fd.opts.RejectReservedBits {
		return false, ErrReservedBitSet
	}

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

	if len(fd.pending) < headerLen {
		return false, nil
	}

	off := 5
	var windowSize uint64
	if !singleSegment {
		wd := fd.pending[off]
		off++
		windowLog := 10 + uint(wd>>3)
		windowBase := uint64(1) << windowLog
		windowAdd := (windowBase / 8) * uint64(wd&0x7)
		windowSize = windowBase + windowAdd
	}

	var dictID uint32
	for i := 0; i < dictSize; i++ {
		dictID |= uint32(fd.pending[off]) << (8 * uint(i))
		off++
	}
	if dictID != 0 {
		return false, ErrDictionaryUnsupported
	}

	var fcs uint64
	for i := 0; i < fcsSize; i++ {
		fcs |= uint64(fd.pending[off]) << (8 * uint(i))
		off++
	}
	if fcsSize == 2 {
		fcs += 256
	}

	if singleSegment {
		windowSize = fcs
	}
	if !singleSegment && windowSize < minWindowSize {
		return false, ErrWindowTooSmall
	}
	if windowSize > uint64(fd.opts.MaxWindowSize) {
		return false, ErrWindowSizeExceeded
	}

	fd.pending = fd.pending[headerLen:]
	fd.windowSize = int(windowSize)
	fd.hasChecksum = checksumFlag
	fd.hasFCS = fcsSize > 0
	fd.fcs = fcs

	fd.bs = blockState{db: newDecodeBuffer(fd.windowSize), recent: initialRecentOffsets}
	if fd.hasChecksum && fd.opts.VerifyChecksum {
		fd.hasher = xxhash.New()
	}
	fd.state = stateReadingBlockHeader
	return true, nil
}

// maxBlockSize returns this frame's Block_Maximum_Size: the smaller of
// the window size and 128 KiB. It bounds a block's compressed size and,
// for RLE blocks, the regenerated size carried in the header.
func (fd *FrameDecoder) maxBlockSize() int {
	if fd.windowSize < maxBlockSize {
		return fd.windowSize
	}
	return maxBlockSize
}

func leUint32(b []byte) uint32 {
	return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24
}
