// Copyright 2026 The Treelite-Go Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package treelite

import (
	"encoding/binary"

	"github.com/cespare/xxhash/v2"
	"github.com/cockroachdb/errors"
	"github.com/golang/snappy"
	"github.com/klauspost/compress/zstd"
)

// The serialized model format is:
//
//	+--------------------------- header (32 bytes) ---------------------------+
//	| magic (8) | version (4) | byte-order mark (4) | compression (1)            |
//	| checksum type (1) | reserved (2) | body length (8)                         |
//	+-------------------------------------------------------------------------+
//	| body (body length bytes, compressed with the codec named in the header) |
//	+-------------------------------------------------------------------------+
//	| trailer: checksum of the stored body (8)                                |
//	+-------------------------------------------------------------------------+
//
// All fixed-width integers are little-endian. The uncompressed body holds the
// model metadata followed by each tree; see encodeBody.
const (
	formatMagic   = "\x89TRLITE\n"
	formatVersion = 1
	byteOrderMark = 0x01020304

	headerLen  = 32
	trailerLen = 8

	magicOffset       = 0
	versionOffset     = 8
	bomOffset         = 12
	compressionOffset = 16
	checksumOffset    = 17
	reservedOffset    = 18
	bodyLenOffset     = 24
)

// Node kind tags in the body.
const (
	tagNumericalTest   = 1
	tagCategoricalTest = 2
	tagLeaf            = 3
	tagLeafVector      = 4
)

// Metadata flag bits.
const (
	flagAverageTreeOutput = 1 << 0
	knownFlags            = flagAverageTreeOutput
)

// header is the decoded form of the fixed-size header.
type header struct {
	version     uint32
	compression Compression
	checksum    ChecksumType
	bodyLen     uint64
}

func (h header) encode(buf []byte) {
	copy(buf[magicOffset:], formatMagic)
	binary.LittleEndian.PutUint32(buf[versionOffset:], h.version)
	binary.LittleEndian.PutUint32(buf[bomOffset:], byteOrderMark)
	buf[compressionOffset] = byte(h.compression)
	buf[checksumOffset] = byte(h.checksum)
	binary.LittleEndian.PutUint16(buf[reservedOffset:], 0)
	binary.LittleEndian.PutUint64(buf[bodyLenOffset:], h.bodyLen)
}

// readHeader decodes and checks the header at the start of data.
func readHeader(data []byte) (header, error) {
	if len(data) < headerLen {
		return header{}, truncatedErrorf("treelite: %d bytes is too short for the %d byte header",
			len(data), headerLen)
	}
	if string(data[magicOffset:magicOffset+len(formatMagic)]) != formatMagic {
		return header{}, corruptionErrorf("treelite: bad magic number %q", data[:len(formatMagic)])
	}
	h := header{
		version:     binary.LittleEndian.Uint32(data[versionOffset:]),
		compression: Compression(data[compressionOffset]),
		checksum:    ChecksumType(data[checksumOffset]),
		bodyLen:     binary.LittleEndian.Uint64(data[bodyLenOffset:]),
	}
	if bom := binary.LittleEndian.Uint32(data[bomOffset:]); bom != byteOrderMark {
		return header{}, corruptionErrorf("treelite: byte-order mark %#08x does not match %#08x",
			errors.Safe(bom), errors.Safe(byteOrderMark))
	}
	if h.version != formatVersion {
		return header{}, corruptionErrorf("treelite: unsupported format version %d", errors.Safe(h.version))
	}
	if h.compression >= nCompression {
		return header{}, corruptionErrorf("treelite: unknown compression %d", errors.Safe(uint8(h.compression)))
	}
	if h.checksum >= nChecksumType {
		return header{}, corruptionErrorf("treelite: unknown checksum type %d", errors.Safe(uint8(h.checksum)))
	}
	if r := binary.LittleEndian.Uint16(data[reservedOffset:]); r != 0 {
		return header{}, corruptionErrorf("treelite: reserved header bits %#04x are set", errors.Safe(r))
	}
	return h, nil
}

// checksum computes the trailer value for the stored body.
func checksum(t ChecksumType, body []byte) uint64 {
	switch t {
	case ChecksumTypeXXHash64:
		return xxhash.Sum64(body)
	default:
		return 0
	}
}

// compress encodes body with codec c.
func compress(c Compression, body []byte) ([]byte, error) {
	switch c {
	case NoCompression:
		return body, nil
	case SnappyCompression:
		return snappy.Encode(nil, body), nil
	case ZstdCompression:
		enc, err := zstd.NewWriter(nil, zstd.WithEncoderConcurrency(1))
		if err != nil {
			return nil, err
		}
		defer enc.Close()
		return enc.EncodeAll(body, nil), nil
	default:
		return nil, errors.AssertionFailedf("treelite: unknown compression %d", errors.Safe(uint8(c)))
	}
}

// decompress decodes a stored body. Failures are corruption: the checksum, if
// any, has already been verified.
func decompress(c Compression, stored []byte) ([]byte, error) {
	switch c {
	case NoCompression:
		return stored, nil
	case SnappyCompression:
		n, err := snappy.DecodedLen(stored)
		if err != nil {
			return nil, errors.Mark(errors.Wrap(err, "treelite: snappy body"), ErrCorruptFormat)
		}
		body, err := snappy.Decode(make([]byte, n), stored)
		if err != nil {
			return nil, errors.Mark(errors.Wrap(err, "treelite: snappy body"), ErrCorruptFormat)
		}
		return body, nil
	case ZstdCompression:
		dec, err := zstd.NewReader(nil, zstd.WithDecoderConcurrency(1))
		if err != nil {
			return nil, err
		}
		defer dec.Close()
		body, err := dec.DecodeAll(stored, nil)
		if err != nil {
			return nil, errors.Mark(errors.Wrap(err, "treelite: zstd body"), ErrCorruptFormat)
		}
		return body, nil
	default:
		return nil, corruptionErrorf("treelite: unknown compression %d", errors.Safe(uint8(c)))
	}
}
