// Copyright 2019 Cosmos Nicolaou. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package zstdformat

import "io"

// decodeBuffer is the sliding window sitting on top of a ringBuffer. It
// accumulates decompressed bytes, drains all but the trailing
// windowSize of them to a sink, and serves the "repeat last N from M
// bytes back" primitive that sequence execution needs for matches.
type decodeBuffer struct {
	ring        ringBuffer
	totalOutput uint64 // bytes ever appended
	readOffset  uint64 // bytes ever drained to the sink
	windowSize  int
}

func newDecodeBuffer(windowSize int) *decodeBuffer {
	return &decodeBuffer{
		ring:       newRingBuffer(windowSize),
		windowSize: windowSize,
	}
}

// push appends literal bytes, growing capacity until it covers
// windowSize.
func (d *decodeBuffer) push(p []byte) {
	d.ring.extend(p)
	d.totalOutput += uint64(len(p))
}

// repeat appends length bytes copied from offset bytes back in the
// output stream (1-based: offset==1 repeats the immediately preceding
// byte). An offset greater than windowSize or greater than the total
// bytes produced so far is a Corruption error in the caller's eyes;
// repeat itself enforces both bounds.
func (d *decodeBuffer) repeat(offset, length int) error {
	if offset < 1 || uint64(offset) > d.totalOutput {
		return CorruptionError("match offset exceeds total output")
	}
	if offset > d.windowSize {
		return CorruptionError("match offset exceeds window size")
	}
	liveLen := d.ring.len()
	start := liveLen - offset
	if start < 0 {
		return CorruptionError("match offset exceeds retained window")
	}
	d.ring.extendFromWithin(start, length)
	d.totalOutput += uint64(length)
	return nil
}

// drainTo writes all bytes except the trailing windowSize of them to
// sink, advancing the read cursor. It is called after every block.
func (d *decodeBuffer) drainTo(sink io.Writer) error {
	retain := d.windowSize
	avail := d.ring.len()
	n := avail - retain
	if n <= 0 {
		return nil
	}
	a, b := d.ring.drainFirstN(n)
	if len(a) > 0 {
		if _, err := sink.Write(a); err != nil {
			return SinkWriteError{Err: err}
		}
	}
	if len(b) > 0 {
		if _, err := sink.Write(b); err != nil {
			return SinkWriteError{Err: err}
		}
	}
	d.readOffset += uint64(n)
	return nil
}

// drainAll flushes every remaining buffered byte to sink; called once a
// frame has produced its final block.
func (d *decodeBuffer) drainAll(sink io.Writer) error {
	n := d.ring.len()
	if n == 0 {
		return nil
	}
	a, b := d.ring.drainFirstN(n)
	if len(a) > 0 {
		if _, err := sink.Write(a); err != nil {
			return SinkWriteError{Err: err}
		}
	}
	if len(b) > 0 {
		if _, err := sink.Write(b); err != nil {
			return SinkWriteError{Err: err}
		}
	}
	d.readOffset += uint64(n)
	return nil
}
