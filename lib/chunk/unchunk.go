// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package chunk

import (
	"errors"
	"fmt"
)

// ErrMissingChunk is returned (wrapped) by [Unchunk] when the hash
// list names a chunk the chunk set does not contain. It means the
// chunk set read from storage is incomplete or does not belong to the
// manifest: an isolation failure in the store or a garbage collection
// bug. The data cannot be rebuilt.
var ErrMissingChunk = errors.New("chunk missing from chunk set")

// ErrLengthMismatch is returned (wrapped) by [Unchunk] when the chunks
// do not add up to the declared total length.
var ErrLengthMismatch = errors.New("reconstructed length does not match declared length")

// Unchunk rebuilds a source from its chunks. It appends the bytes of
// each hash in sourceHashes, in order, into a buffer of totalLength
// bytes. It never returns partial data: a missing chunk or a length
// mismatch is an error.
//
// The returned slice is newly allocated and does not alias any chunk.
func Unchunk(chunksByHash map[Hash][]byte, sourceHashes []Hash, totalLength int) ([]byte, error) {
	if totalLength < 0 {
		return nil, fmt.Errorf("%w: negative length %d", ErrLengthMismatch, totalLength)
	}

	output := make([]byte, 0, totalLength)
	for position, hash := range sourceHashes {
		data, ok := chunksByHash[hash]
		if !ok {
			return nil, fmt.Errorf("%w: %s at position %d of %d",
				ErrMissingChunk, hash, position, len(sourceHashes))
		}
		if len(output)+len(data) > totalLength {
			return nil, fmt.Errorf("%w: chunk %d of %d overruns declared length %d",
				ErrLengthMismatch, position, len(sourceHashes), totalLength)
		}
		output = append(output, data...)
	}

	if len(output) != totalLength {
		return nil, fmt.Errorf("%w: rebuilt %d bytes, declared %d",
			ErrLengthMismatch, len(output), totalLength)
	}
	return output, nil
}
