// Copyright 2019 Cosmos Nicolaou. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package zstd

import "github.com/cosnicolaou/zstd/internal/zstdformat"

// decoderOpts accumulates the options passed to NewReader, mirroring
// pbzip2's decompressorOpts/readerOpts accumulator structs.
type decoderOpts struct {
	maxWindowSize         int
	verifyChecksum        bool
	rejectReservedBits    bool
	maxDecodedSize        int64
	skippableFrameHandler func(magic uint32, payload []byte)
}

// DOption configures a Decoder, following the functional-options
// convention used throughout this codebase (pbzip2's DecompressorOption,
// ScannerOption) and named after klauspost/compress/zstd's DOption type.
type DOption func(*decoderOpts)

// WithMaxWindowSize caps the window size a frame header may request. A
// frame whose window exceeds this is rejected with
// ErrWindowSizeExceeded before any block is decoded. Defaults to 8 MiB.
func WithMaxWindowSize(n int) DOption {
	return func(o *decoderOpts) {
		o.maxWindowSize = n
	}
}

// WithVerifyChecksum controls whether a frame's optional xxh64 content
// checksum is verified against the decoded output. Defaults to true.
func WithVerifyChecksum(v bool) DOption {
	return func(o *decoderOpts) {
		o.verifyChecksum = v
	}
}

// WithRejectReservedBits controls whether a set reserved bit in the
// frame header descriptor is treated as corruption. Defaults to true;
// callers decoding frames from an untrusted future encoder version may
// set this false to tolerate bits this decoder doesn't yet understand.
func WithRejectReservedBits(v bool) DOption {
	return func(o *decoderOpts) {
		o.rejectReservedBits = v
	}
}

// WithMaxDecodedSize caps the total number of bytes a single Decoder
// will emit across all frames in its input before failing with
// ErrFrameSizeExceeded. Zero (the default) means unbounded.
func WithMaxDecodedSize(n int64) DOption {
	return func(o *decoderOpts) {
		o.maxDecodedSize = n
	}
}

// WithSkippableFrameHandler registers a callback invoked with the magic
// number and payload of every skippable frame encountered, instead of
// silently discarding it.
func WithSkippableFrameHandler(fn func(magic uint32, payload []byte)) DOption {
	return func(o *decoderOpts) {
		o.skippableFrameHandler = fn
	}
}

func defaultDecoderOpts() decoderOpts {
	d := zstdformat.DefaultOptions()
	return decoderOpts{
		maxWindowSize:      d.MaxWindowSize,
		verifyChecksum:     d.VerifyChecksum,
		rejectReservedBits: d.RejectReservedBits,
	}
}

func (o decoderOpts) engineOptions() zstdformat.Options {
	return zstdformat.Options{
		MaxWindowSize:         o.maxWindowSize,
		VerifyChecksum:        o.verifyChecksum,
		RejectReservedBits:    o.rejectReservedBits,
		SkippableFrameHandler: o.skippableFrameHandler,
	}
}
