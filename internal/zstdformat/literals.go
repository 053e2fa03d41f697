// Copyright 2019 Cosmos Nicolaou. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package zstdformat

type literalsBlockType uint8

const (
	literalsRaw literalsBlockType = iota
	literalsRLE
	literalsCompressed
	literalsTreeless
)

// literalsHeader is the parsed result of a Literals_Section_Header: the
// block type, how many bytes the header itself occupies, the
// regenerated (decompressed) size, and, for Compressed/Treeless, the
// compressed payload size and whether the payload is split across four
// interleaved Huffman streams.
type literalsHeader struct {
	blockType       literalsBlockType
	headerSize      int
	regeneratedSize int
	compressedSize  int
	fourStreams     bool
}

func parseLiteralsHeader(buf []byte) (literalsHeader, error) {
	if len(buf) < 1 {
		return literalsHeader{}, TruncatedInputError("missing literals section header")
	}
	b0 := buf[0]
	blockType := literalsBlockType(b0 & 0x3)
	sizeFormat := (b0 >> 2) & 0x3

	switch blockType {
	case literalsRaw, literalsRLE:
		if sizeFormat&1 == 0 {
			return literalsHeader{blockType: blockType, headerSize: 1, regeneratedSize: int(b0 >> 3)}, nil
		}
		if len(buf) < 2 {
			return literalsHeader{}, TruncatedInputError("truncated literals section header")
		}
		size := (int(b0) >> 4) | (int(buf[1]) << 4)
		return literalsHeader{blockType: blockType, headerSize: 2, regeneratedSize: size}, nil

	case literalsCompressed, literalsTreeless:
		var headerSize int
		fourStreams := sizeFormat != 0
		switch sizeFormat {
		case 0, 1:
			headerSize = 3
		case 2:
			headerSize = 4
		case 3:
			headerSize = 5
		}
		if len(buf) < headerSize {
			return literalsHeader{}, TruncatedInputError("truncated literals section header")
		}
		fieldBits := uint((headerSize*8 - 4) / 2)
		br := newBitReader(buf[:headerSize])
		if _, err := br.getBits(4); err != nil {
			return literalsHeader{}, err
		}
		regen, err := br.getBits(fieldBits)
		if err != nil {
			return literalsHeader{}, err
		}
		comp, err := br.getBits(fieldBits)
		if err != nil {
			return literalsHeader{}, err
		}
		return literalsHeader{
			blockType:       blockType,
			headerSize:      headerSize,
			regeneratedSize: int(regen),
			compressedSize:  int(comp),
			fourStreams:     fourStreams,
		}, nil

	default:
		return literalsHeader{}, CorruptionError("invalid literals block type")
	}
}

// decodeLiteralsSection parses and fully decodes a Literals_Section
// starting at buf[0], returning the regenerated literals, the number of
// bytes consumed (header + payload), and any error. lastHuffman is the
// frame's carried-across-blocks Huffman table: Compressed sections
// replace it, Treeless sections require it to already be set.
func decodeLiteralsSection(buf []byte, lastHuffman **huffmanTable) ([]byte, int, error) {
	hdr, err := parseLiteralsHeader(buf)
	if err != nil {
		return nil, 0, err
	}

	switch hdr.blockType {
	case literalsRaw:
		total := hdr.headerSize + hdr.regeneratedSize
		if len(buf) < total {
			return nil, 0, TruncatedInputError("truncated raw literals")
		}
		out := make([]byte, hdr.regeneratedSize)
		copy(out, buf[hdr.headerSize:total])
		return out, total, nil

	case literalsRLE:
		total := hdr.headerSize + 1
		if len(buf) < total {
			return nil, 0, TruncatedInputError("truncated RLE literals")
		}
		out := make([]byte, hdr.regeneratedSize)
		b := buf[hdr.headerSize]
		for i := range out {
			out[i] = b
		}
		return out, total, nil

	case literalsCompressed, literalsTreeless:
		total := hdr.headerSize + hdr.compressedSize
		if len(buf) < total {
			return nil, 0, TruncatedInputError("truncated compressed literals")
		}
		payload := buf[hdr.headerSize:total]

		var table *huffmanTable
		if hdr.blockType == literalsCompressed {
			weights, consumed, err := weightsFromHeader(payload)
			if err != nil {
				return nil, 0, err
			}
			table, err = buildHuffmanTable(weights)
			if err != nil {
				return nil, 0, err
			}
			payload = payload[consumed:]
			*lastHuffman = table
		} else {
			if *lastHuffman == nil {
				return nil, 0, CorruptionError("treeless literals with no prior Huffman table")
			}
			table = *lastHuffman
		}

		out := make([]byte, hdr.regeneratedSize)
		if !hdr.fourStreams {
			rev, err := newReverseBitReader(payload)
			if err != nil {
				if hdr.regeneratedSize == 0 {
					return out, total, nil
				}
				return nil, 0, err
			}
			if err := decodeOneStream(table, &rev, out); err != nil {
				return nil, 0, err
			}
			return out, total, nil
		}

		if len(payload) < 6 {
			return nil, 0, TruncatedInputError("missing four-stream jump table")
		}
		s1 := int(payload[0]) | int(payload[1])<<8
		s2 := int(payload[2]) | int(payload[3])<<8
		s3 := int(payload[4]) | int(payload[5])<<8
		rest := payload[6:]
		if s1+s2+s3 > len(rest) {
			return nil, 0, CorruptionError("four-stream jump table exceeds payload")
		}
		s4 := len(rest) - s1 - s2 - s3
		if s1 == 0 || s2 == 0 || s3 == 0 || s4 == 0 {
			return nil, 0, CorruptionError("zero-length literals stream")
		}
		streamBytes := [4][]byte{rest[:s1], rest[s1 : s1+s2], rest[s1+s2 : s1+s2+s3], rest[s1+s2+s3:]}

		quarter := (hdr.regeneratedSize + 3) / 4
		outLens := [4]int{quarter, quarter, quarter, hdr.regeneratedSize - 3*quarter}
		if outLens[3] < 0 {
			return nil, 0, CorruptionError("four-stream literals size mismatch")
		}
		off := 0
		for i := 0; i < 4; i++ {
			dst := out[off : off+outLens[i]]
			off += outLens[i]
			if outLens[i] == 0 {
				continue
			}
			rev, err := newReverseBitReader(streamBytes[i])
			if err != nil {
				return nil, 0, err
			}
			if err := decodeOneStream(table, &rev, dst); err != nil {
				return nil, 0, err
			}
		}
		return out, total, nil
	}

	return nil, 0, CorruptionError("invalid literals block type")
}
