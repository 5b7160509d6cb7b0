// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package reconcile

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/cristalhq/base64"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Compression selects how chunk values are compressed before base64
// encoding. Chunk hashes are always computed over the raw bytes, so
// the setting never affects deduplication, and chunks retained across
// a change of setting keep their original encoding.
type Compression uint8

const (
	// CompressionNone stores the standard base64 of the raw chunk.
	CompressionNone Compression = iota

	// CompressionLZ4 uses LZ4 block compression.
	CompressionLZ4

	// CompressionZstd uses zstd at the default level. Update blobs of
	// text-heavy documents compress well with it.
	CompressionZstd
)

func (c Compression) String() string {
	switch c {
	case CompressionNone:
		return "none"
	case CompressionLZ4:
		return "lz4"
	case CompressionZstd:
		return "zstd"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(c))
	}
}

func (c Compression) valid() bool {
	return c <= CompressionZstd
}

// ParseCompression parses "none", "lz4" or "zstd". The empty string
// means none.
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

// errIncompressible is returned by the compressors when the output
// would not be smaller than the input.
var errIncompressible = errors.New("data is incompressible")

// maxChunkValueLength bounds the declared raw length of a compressed
// chunk value so a corrupt entry cannot force a huge allocation.
const maxChunkValueLength = 64 << 20

var (
	zstdEncoder *zstd.Encoder
	zstdDecoder *zstd.Decoder
)

func init() {
	var err error
	zstdEncoder, err = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		panic("reconcile: zstd encoder initialization failed: " + err.Error())
	}
	zstdDecoder, err = zstd.NewReader(nil)
	if err != nil {
		panic("reconcile: zstd decoder initialization failed: " + err.Error())
	}
}

// encodeChunkValue renders raw chunk bytes as a store value. The
// uncompressed form is plain standard base64; compressed forms are
// "<tag>:<raw length>:<base64>". The base64 alphabet has no ':', which
// keeps the two forms distinguishable. Data that does not shrink is
// stored uncompressed.
func encodeChunkValue(raw []byte, compression Compression) []byte {
	var compressed []byte
	var err error
	switch compression {
	case CompressionLZ4:
		compressed, err = compressLZ4(raw)
	case CompressionZstd:
		compressed, err = compressZstd(raw)
	default:
		err = errIncompressible
	}
	if err != nil {
		return []byte(base64.StdEncoding.EncodeToString(raw))
	}
	return []byte(compression.String() + ":" + strconv.Itoa(len(raw)) + ":" +
		base64.StdEncoding.EncodeToString(compressed))
}

// decodeChunkValue reverses encodeChunkValue.
func decodeChunkValue(value []byte) ([]byte, error) {
	text := string(value)
	tag, rest, tagged := strings.Cut(text, ":")
	if !tagged {
		raw, err := base64.StdEncoding.DecodeString(text)
		if err != nil {
			return nil, fmt.Errorf("decoding base64: %w", err)
		}
		return raw, nil
	}

	lengthText, payload, ok := strings.Cut(rest, ":")
	if !ok {
		return nil, fmt.Errorf("compressed value has no length field")
	}
	rawLength, err := strconv.Atoi(lengthText)
	if err != nil || rawLength < 0 || rawLength > maxChunkValueLength {
		return nil, fmt.Errorf("invalid raw length %q", lengthText)
	}
	compressed, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, fmt.Errorf("decoding base64: %w", err)
	}

	compression, err := ParseCompression(tag)
	if err != nil || compression == CompressionNone {
		return nil, fmt.Errorf("unknown compression tag %q", tag)
	}
	switch compression {
	case CompressionLZ4:
		return decompressLZ4(compressed, rawLength)
	default:
		return decompressZstd(compressed, rawLength)
	}
}

func compressLZ4(data []byte) ([]byte, error) {
	destination := make([]byte, lz4.CompressBlockBound(len(data)))
	written, err := lz4.CompressBlock(data, destination, nil)
	if err != nil {
		return nil, fmt.Errorf("lz4 compress: %w", err)
	}
	// CompressBlock reports 0 for incompressible input.
	if written == 0 || written >= len(data) {
		return nil, errIncompressible
	}
	return destination[:written], nil
}

func decompressLZ4(compressed []byte, rawLength int) ([]byte, error) {
	destination := make([]byte, rawLength)
	read, err := lz4.UncompressBlock(compressed, destination)
	if err != nil {
		return nil, fmt.Errorf("lz4 decompress: %w", err)
	}
	if read != rawLength {
		return nil, fmt.Errorf("lz4 decompress: got %d bytes, expected %d", read, rawLength)
	}
	return destination, nil
}

func compressZstd(data []byte) ([]byte, error) {
	compressed := zstdEncoder.EncodeAll(data, nil)
	if len(compressed) >= len(data) {
		return nil, errIncompressible
	}
	return compressed, nil
}

func decompressZstd(compressed []byte, rawLength int) ([]byte, error) {
	result, err := zstdDecoder.DecodeAll(compressed, make([]byte, 0, rawLength))
	if err != nil {
		return nil, fmt.Errorf("zstd decompress: %w", err)
	}
	if len(result) != rawLength {
		return nil, fmt.Errorf("zstd decompress: got %d bytes, expected %d", len(result), rawLength)
	}
	return result, nil
}
