// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package docstream

import (
	"errors"
	"fmt"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Compression identifies how a frame payload is compressed. A stream
// negotiates one algorithm, but each frame carries its own tag: a
// document that does not shrink travels uncompressed.
type Compression uint8

const (
	// CompressionNone sends encoded envelopes as-is.
	CompressionNone Compression = 0

	// CompressionLZ4 uses LZ4 block compression. Cheap enough for
	// every event of a fast scan.
	CompressionLZ4 Compression = 1

	// CompressionZstd uses zstd at the default level. Better ratios
	// on large array data (detector images, MCA spectra) over slow
	// links.
	CompressionZstd Compression = 2
)

// String returns the configuration name of the algorithm.
func (c Compression) String() string {
	switch c {
	case CompressionNone:
		return "none"
	case CompressionLZ4:
		return "lz4"
	case CompressionZstd:
		return "zstd"
	default:
		return fmt.Sprintf("unknown(%d)", c)
	}
}

// ParseCompression parses none, lz4, or zstd. The empty string means
// none.
func ParseCompression(name string) (Compression, error) {
	switch name {
	case "", "none":
		return CompressionNone, nil
	case "lz4":
		return CompressionLZ4, nil
	case "zstd":
		return CompressionZstd, nil
	default:
		return 0, fmt.Errorf("unknown compression %q", name)
	}
}

// maxDocumentSize bounds the decompressed size of one document.
const maxDocumentSize = 64 * 1024 * 1024

var errIncompressible = errors.New("payload does not compress")

// compress returns data compressed with c. Returns errIncompressible
// when the result would not be smaller than data.
func compress(data []byte, c Compression) ([]byte, error) {
	switch c {
	case CompressionNone:
		return data, nil
	case CompressionLZ4:
		destination := make([]byte, lz4.CompressBlockBound(len(data)))
		written, err := lz4.CompressBlock(data, destination, nil)
		if err != nil {
			return nil, fmt.Errorf("lz4 compress: %w", err)
		}
		// CompressBlock returns 0 for incompressible input.
		if written == 0 || written >= len(data) {
			return nil, errIncompressible
		}
		return destination[:written], nil
	case CompressionZstd:
		compressed := zstdEncoder.EncodeAll(data, nil)
		if len(compressed) >= len(data) {
			return nil, errIncompressible
		}
		return compressed, nil
	default:
		return nil, fmt.Errorf("unsupported compression %s", c)
	}
}

// decompress reverses compress. size is the original length and must
// match exactly.
func decompress(data []byte, c Compression, size int) ([]byte, error) {
	if size < 0 || size > maxDocumentSize {
		return nil, fmt.Errorf("document size %d out of range", size)
	}
	switch c {
	case CompressionNone:
		if len(data) != size {
			return nil, fmt.Errorf("uncompressed frame: size %d does not match expected %d", len(data), size)
		}
		return data, nil
	case CompressionLZ4:
		destination := make([]byte, size)
		read, err := lz4.UncompressBlock(data, destination)
		if err != nil {
			return nil, fmt.Errorf("lz4 decompress: %w", err)
		}
		if read != size {
			return nil, fmt.Errorf("lz4 decompress: got %d bytes, expected %d", read, size)
		}
		return destination, nil
	case CompressionZstd:
		result, err := zstdDecoder.DecodeAll(data, make([]byte, 0, size))
		if err != nil {
			return nil, fmt.Errorf("zstd decompress: %w", err)
		}
		if len(result) != size {
			return nil, fmt.Errorf("zstd decompress: got %d bytes, expected %d", len(result), size)
		}
		return result, nil
	default:
		return nil, fmt.Errorf("unsupported compression %s", c)
	}
}

// zstd.Encoder and zstd.Decoder are safe for concurrent use through
// EncodeAll and DecodeAll, so every stream shares one of each.
var (
	zstdEncoder *zstd.Encoder
	zstdDecoder *zstd.Decoder
)

func init() {
	var err error
	zstdEncoder, err = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		panic("docstream: zstd encoder initialization failed: " + err.Error())
	}
	zstdDecoder, err = zstd.NewReader(nil, zstd.WithDecoderMaxMemory(maxDocumentSize))
	if err != nil {
		panic("docstream: zstd decoder initialization failed: " + err.Error())
	}
}
