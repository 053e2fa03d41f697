// Copyright 2019 Cosmos Nicolaou. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package zstd

import "github.com/cosnicolaou/zstd/internal/zstdformat"

// The error kinds a Decoder can return, re-exported from the core engine
// so that callers never need to import internal/zstdformat directly.
// Each is its own named type rather than a single sentinel so that
// callers can type-switch on errors.As when they need per-section
// context, matching the style of klauspost/compress/zstd's Err*
// sentinels and the standard library's bzip2.StructuralError.
type (
	// CorruptionError reports a structural violation of the zstd format.
	CorruptionError = zstdformat.CorruptionError
	// UnsupportedError reports well-formed input this decoder declines
	// to handle: a non-zero dictionary ID, or a size exceeding a
	// configured resource limit.
	UnsupportedError = zstdformat.UnsupportedError
	// ChecksumMismatchError reports that the frame's xxh64 trailer did
	// not match the decoded content.
	ChecksumMismatchError = zstdformat.ChecksumMismatchError
	// SinkWriteError wraps a failure from the caller-supplied sink.
	SinkWriteError = zstdformat.SinkWriteError
	// TruncatedInputError reports that fewer bytes were available than
	// are needed to make progress; DecodeAll and a Read against an
	// io.Reader that hits EOF mid-frame both surface this kind.
	TruncatedInputError = zstdformat.TruncatedInputError
)

var (
	// ErrMagicMismatch is returned when the input does not begin with
	// the zstd frame magic number or a skippable-frame magic number.
	ErrMagicMismatch = zstdformat.ErrMagicMismatch
	// ErrDictionaryUnsupported is returned when a frame header carries
	// a non-zero Dictionary_ID; dictionary decoding is out of scope.
	ErrDictionaryUnsupported = zstdformat.ErrDictionaryUnsupported
	// ErrWindowSizeExceeded is returned when a frame's window size
	// exceeds the configured MaxWindowSize.
	ErrWindowSizeExceeded = zstdformat.ErrWindowSizeExceeded
	// ErrFrameSizeExceeded is returned when the total number of bytes a
	// Decoder has decoded exceeds the limit set by WithMaxDecodedSize.
	// The Frame_Content_Size field of a frame header is not compared
	// against that limit.
	ErrFrameSizeExceeded = zstdformat.ErrFrameSizeExceeded
)
