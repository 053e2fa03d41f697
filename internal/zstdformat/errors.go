// Copyright 2019 Cosmos Nicolaou. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

// Package zstdformat implements the core zstd block/frame decompression
// engine: bit readers, FSE and Huffman table construction, literals and
// sequences section parsing, and sequence execution against a sliding
// window output buffer.
package zstdformat

// CorruptionError is returned when the input bitstream violates a
// structural invariant of the zstd format: a bad magic number, an
// out-of-range FSE/Huffman table, a bitstream that under/overruns, an
// out-of-range match offset, and so on.
type CorruptionError string

func (e CorruptionError) Error() string {
	return "zstd data corrupt: " + string(e)
}

// UnsupportedError is returned for well-formed input that this decoder
// chooses not to support: a non-zero dictionary ID, a window or content
// size that exceeds the configured limit.
type UnsupportedError string

func (e UnsupportedError) Error() string {
	return "zstd feature unsupported: " + string(e)
}

// TruncatedInputError is returned when fewer bytes are available than
// are needed to make progress. It is the only recoverable error kind:
// the caller should feed more input and retry.
type TruncatedInputError string

func (e TruncatedInputError) Error() string {
	return "zstd input truncated: " + string(e)
}

// ChecksumMismatchError is returned when the frame's trailing xxh64
// checksum does not match the decoded content.
type ChecksumMismatchError struct {
	Got, Want uint32
}

func (e ChecksumMismatchError) Error() string {
	return "zstd checksum mismatch"
}

// SinkWriteError wraps an error returned by the output sink.
type SinkWriteError struct {
	Err error
}

func (e SinkWriteError) Error() string {
	return "zstd sink write failed: " + e.Err.Error()
}

func (e SinkWriteError) Unwrap() error {
	return e.Err
}

// Sentinel corruption/unsupported values, named in the style of
// klauspost/compress/zstd's Err* sentinels.
var (
	ErrMagicMismatch         = CorruptionError("bad magic number")
	ErrReservedBitSet        = CorruptionError("reserved bit set in frame header")
	ErrReservedBlockType     = CorruptionError("reserved block type")
	ErrWindowTooSmall        = CorruptionError("window size below minimum")
	ErrDictionaryUnsupported = UnsupportedError("non-zero dictionary ID")
	ErrWindowSizeExceeded    = UnsupportedError("window size exceeds configured maximum")
	ErrFrameSizeExceeded     = UnsupportedError("decoded size exceeds configured maximum")
)
