// Copyright 2019 Cosmos Nicolaou. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package zstd

import (
	"bytes"
	"testing"
	"testing/iotest"

	"github.com/cespare/xxhash/v2"
)

// rawFrame builds a single-segment, single raw-block frame around
// content, optionally appending an xxh64 content checksum.
func rawFrame(content []byte, withChecksum bool) []byte {
	var buf bytes.Buffer
	buf.Write([]byte{0x28, 0xB5, 0x2F, 0xFD})
	descriptor := byte(0x20) // single_segment, fcsFlag=0
	if withChecksum {
		descriptor |= 0x04
	}
	buf.WriteByte(descriptor)
	buf.WriteByte(byte(len(content)))
	size := len(content)
	hdr := size<<3 | 0<<1 | 1
	buf.WriteByte(byte(hdr))
	buf.WriteByte(byte(hdr >> 8))
	buf.WriteByte(byte(hdr >> 16))
	buf.Write(content)
	if withChecksum {
		sum := xxhash.Sum64(content)
		var c [4]byte
		c[0] = byte(sum)
		c[1] = byte(sum >> 8)
		c[2] = byte(sum >> 16)
		c[3] = byte(sum >> 24)
		buf.Write(c[:])
	}
	return buf.Bytes()
}

func TestDecodeAllRawFrame(t *testing.T) {
	got, err := DecodeAll(rawFrame([]byte("hello world"), false))
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "hello world" {
		t.Fatalf("got %q, want %q", got, "hello world")
	}
}

func TestDecodeAllVerifiesChecksum(t *testing.T) {
	got, err := DecodeAll(rawFrame([]byte("checksum me"), true))
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "checksum me" {
		t.Fatalf("got %q, want %q", got, "checksum me")
	}
}

func TestDecodeAllRejectsChecksumMismatch(t *testing.T) {
	data := rawFrame([]byte("checksum me"), true)
	// Flip the last checksum byte.
	data[len(data)-1] ^= 0xFF
	if _, err := DecodeAll(data); err == nil {
		t.Fatal("expected a checksum mismatch error")
	} else if _, ok := err.(ChecksumMismatchError); !ok {
		t.Fatalf("err = %T, want ChecksumMismatchError", err)
	}
}

func TestDecodeAllConcatenatedFrames(t *testing.T) {
	data := append(rawFrame([]byte("foo"), false), rawFrame([]byte("bar"), false)...)
	got, err := DecodeAll(data)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "foobar" {
		t.Fatalf("got %q, want %q", got, "foobar")
	}
}

func TestNewReaderHandlesChunkedInput(t *testing.T) {
	data := rawFrame([]byte("a slightly longer message body"), true)
	r := NewReader(iotest.OneByteReader(bytes.NewReader(data)))
	var out bytes.Buffer
	buf := make([]byte, 4)
	for {
		n, err := r.Read(buf)
		out.Write(buf[:n])
		if err != nil {
			break
		}
	}
	if out.String() != "a slightly longer message body" {
		t.Fatalf("got %q", out.String())
	}
}

func TestWithMaxWindowSizeRejectsOversizedFrame(t *testing.T) {
	var buf bytes.Buffer
	buf.Write([]byte{0x28, 0xB5, 0x2F, 0xFD})
	buf.WriteByte(0x00) // not single-segment, fcsFlag=0, dictFlag=0
	// windowLog=13 (wd top bits = 13-10 = 3), no extra bits -> windowSize=8192.
	buf.WriteByte(0x18)
	data := buf.Bytes()

	_, err := DecodeAll(data, WithMaxWindowSize(4096))
	if err != ErrWindowSizeExceeded {
		t.Fatalf("err = %v, want ErrWindowSizeExceeded", err)
	}
}

func TestWithMaxDecodedSizeStopsLargeOutput(t *testing.T) {
	data := rawFrame(bytes.Repeat([]byte("x"), 64), false)
	_, err := DecodeAll(data, WithMaxDecodedSize(8))
	if err != ErrFrameSizeExceeded {
		t.Fatalf("err = %v, want ErrFrameSizeExceeded", err)
	}
}

func TestWithSkippableFrameHandlerInvoked(t *testing.T) {
	var buf bytes.Buffer
	buf.Write([]byte{0x50, 0x2A, 0x4D, 0x18})
	payload := []byte("skip me")
	buf.Write([]byte{byte(len(payload)), 0x00, 0x00, 0x00})
	buf.Write(payload)
	buf.Write(rawFrame([]byte("after"), false))

	var captured []byte
	got, err := DecodeAll(buf.Bytes(), WithSkippableFrameHandler(func(magic uint32, p []byte) {
		captured = append([]byte(nil), p...)
	}))
	if err != nil {
		t.Fatal(err)
	}
	if string(captured) != "skip me" {
		t.Fatalf("captured = %q, want %q", captured, "skip me")
	}
	if string(got) != "after" {
		t.Fatalf("got = %q, want %q", got, "after")
	}
}
