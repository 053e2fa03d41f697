// Copyright 2019 Cosmos Nicolaou. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package zstd

import (
	"io"

	"github.com/cosnicolaou/zstd/internal/zstdformat"
)

// BlockReport describes one block's header: its type, its Block_Size
// field (the content size on the wire for raw and compressed blocks,
// the regenerated size for RLE blocks, whose wire content is a single
// byte), and whether it is the last block of its frame.
type BlockReport = zstdformat.BlockInfo

// FrameReport describes one frame's header and the headers of every
// block it contains. It is produced without running any entropy
// decode, so it can be obtained cheaply even for frames this package
// would otherwise reject (an oversized window, for instance).
type FrameReport = zstdformat.FrameInfo

// Inspect performs a structural walk of every frame and block header
// in r, without decompressing any block content. It is the basis for
// the zstdcat inspect subcommand and is useful on its own for quickly
// sanity-checking a stream (block count, window size, checksum
// presence) before committing to a full decode.
func Inspect(r io.Reader) ([]FrameReport, error) {
	return zstdformat.ScanAll(r)
}
