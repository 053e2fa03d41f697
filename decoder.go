// Copyright 2019 Cosmos Nicolaou. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

// Package zstd decompresses zstd-framed data (RFC 8478). A zstd
// frame's blocks cannot be decoded independently of one another (each
// carries forward entropy tables and a sliding-window match history),
// so the decoder is a synchronous, single-threaded pull pipeline: Read
// performs no I/O or computation beyond what is needed to produce the
// bytes it was asked for.
package zstd

import (
	"bytes"
	"io"

	"github.com/cosnicolaou/zstd/internal/zstdformat"
)

const readChunkSize = 64 << 10

// countingWriter tallies bytes written through it without copying them
// anywhere; used alongside io.MultiWriter to track a Decoder's running
// output total for WithMaxDecodedSize enforcement.
type countingWriter struct {
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	c.n += int64(len(p))
	return len(p), nil
}

// Decoder adapts the core per-frame zstdformat.FrameDecoder pull API
// into an io.Reader over a stream of one or more concatenated frames,
// entirely synchronously and with no background goroutine.
type Decoder struct {
	r    io.Reader
	opts decoderOpts

	fd       *zstdformat.FrameDecoder
	out      countingBuffer
	leftover []byte
	chunk    []byte

	totalProduced int64
	err           error
	readErr       error
}

// countingBuffer is a minimal growable byte queue: Advance writes
// decoded bytes to it, Read drains them in FIFO order. It exists so
// Decoder.Read doesn't need to copy through an intermediate io.Pipe,
// which would require the background goroutine this package avoids.
type countingBuffer struct {
	buf []byte
	off int
}

func (b *countingBuffer) Write(p []byte) (int, error) {
	b.buf = append(b.buf, p...)
	return len(p), nil
}

func (b *countingBuffer) Len() int { return len(b.buf) - b.off }

func (b *countingBuffer) Read(p []byte) (int, error) {
	if b.Len() == 0 {
		return 0, io.EOF
	}
	n := copy(p, b.buf[b.off:])
	b.off += n
	if b.off == len(b.buf) {
		b.buf = b.buf[:0]
		b.off = 0
	}
	return n, nil
}

// NewReader returns an io.Reader that decompresses the zstd frame(s)
// read from r.
func NewReader(r io.Reader, opts ...DOption) *Decoder {
	o := defaultDecoderOpts()
	for _, fn := range opts {
		fn(&o)
	}
	return &Decoder{r: r, opts: o, chunk: make([]byte, readChunkSize)}
}

// Read implements io.Reader, decoding just enough of the underlying
// stream to satisfy the request.
func (d *Decoder) Read(p []byte) (int, error) {
	for d.out.Len() == 0 && d.err == nil {
		d.step()
	}
	if d.out.Len() > 0 {
		return d.out.Read(p)
	}
	return 0, d.err
}

// step performs one unit of pipeline work: starting a new frame if
// none is active, feeding it more input if it asked for some, or
// transitioning past a finished frame to the next one.
func (d *Decoder) step() {
	if d.fd == nil {
		if len(d.leftover) == 0 && !d.fill() {
			d.err = d.readErr
			if d.err == nil {
				d.err = io.EOF
			}
			return
		}
		if len(d.leftover) == 0 {
			d.err = io.EOF
			return
		}
		d.fd = zstdformat.NewFrameDecoder(d.opts.engineOptions())
		d.fd.Write(d.leftover)
		d.leftover = nil
	}

	var cw countingWriter
	sink := io.MultiWriter(&d.out, &cw)
	progress, err := d.fd.Advance(sink)
	d.totalProduced += cw.n
	if d.opts.maxDecodedSize > 0 && d.totalProduced > d.opts.maxDecodedSize {
		// Drop the bytes past the limit so Read never returns more than
		// maxDecodedSize in total.
		excess := int(d.totalProduced - d.opts.maxDecodedSize)
		d.out.buf = d.out.buf[:len(d.out.buf)-excess]
		d.err = ErrFrameSizeExceeded
		return
	}
	if err != nil {
		d.err = err
		return
	}

	switch progress {
	case zstdformat.Finished:
		d.leftover = append([]byte(nil), d.fd.Unconsumed()...)
		d.fd = nil
	case zstdformat.NeedsMoreInput:
		if !d.fill() {
			d.err = d.readErr
			if d.err == nil {
				d.err = zstdformat.TruncatedInputError("unexpected end of input mid-frame")
			}
		}
	case zstdformat.MadeProgress:
	}
}

// fill reads one chunk from the underlying reader, routing it to the
// active frame decoder if there is one, or to leftover (awaiting the
// next frame) otherwise. It reports whether any bytes were read; a
// non-EOF read error is stashed for step to surface.
func (d *Decoder) fill() bool {
	n, err := d.r.Read(d.chunk)
	if n > 0 {
		if d.fd != nil {
			d.fd.Write(d.chunk[:n])
		} else {
			d.leftover = append(d.leftover, d.chunk[:n]...)
		}
	}
	if err != nil && err != io.EOF {
		d.readErr = err
	}
	return n > 0
}

// DecodeAll decompresses src, which must hold one or more complete
// concatenated zstd frames, and returns the resulting bytes. It is a
// convenience wrapper around NewReader for callers who already have
// the whole input in memory.
func DecodeAll(src []byte, opts ...DOption) ([]byte, error) {
	r := NewReader(bytes.NewReader(src), opts...)
	return io.ReadAll(r)
}
