// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package chunk

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// hashBatchSize is the number of chunks one hashing goroutine handles.
// Chunks average around a kilobyte, far too little work to justify a
// goroutine each.
const hashBatchSize = 64

// Result is the output of [Chunk].
type Result struct {
	// ChunksByHash maps each distinct chunk hash to the chunk's bytes.
	// Identical chunks within the source share one entry. The byte
	// slices alias the source passed to Chunk.
	ChunksByHash map[Hash][]byte

	// SourceHashes lists one hash per chunk in source order.
	// Duplicates appear once per occurrence. This sequence, not
	// ChunksByHash, carries the ordering needed to rebuild the source.
	SourceHashes []Hash
}

// Chunk splits source into content-defined chunks and hashes them.
//
// Boundaries are computed first, in a single synchronous pass. Hashing
// then runs on up to GOMAXPROCS goroutines, each writing only its own
// slots of the hash list, so the result is identical for any
// scheduling. The function is pure: equal inputs give deep-equal
// results. An empty source gives an empty map and an empty list.
//
// Chunk returns an error wrapping [ErrInvalidParams] before doing any
// work if params fail validation, and ctx.Err() if ctx is cancelled
// while hashing.
func Chunk(ctx context.Context, params Params, source []byte) (*Result, error) {
	spans, err := Spans(params, source)
	if err != nil {
		return nil, err
	}

	hashes := make([]Hash, len(spans))
	if err := hashSpans(ctx, source, spans, hashes); err != nil {
		return nil, err
	}

	chunksByHash := make(map[Hash][]byte, len(spans))
	for i, span := range spans {
		chunksByHash[hashes[i]] = source[span.Offset:span.End()]
	}
	return &Result{
		ChunksByHash: chunksByHash,
		SourceHashes: hashes,
	}, nil
}

// hashSpans fills hashes[i] with the hash of spans[i].
func hashSpans(ctx context.Context, source []byte, spans []Span, hashes []Hash) error {
	hashRange := func(first, last int) {
		for i := first; i < last; i++ {
			hashes[i] = HashChunk(source[spans[i].Offset:spans[i].End()])
		}
	}

	if len(spans) <= hashBatchSize {
		if err := ctx.Err(); err != nil {
			return err
		}
		hashRange(0, len(spans))
		return nil
	}

	group, groupContext := errgroup.WithContext(ctx)
	group.SetLimit(runtime.GOMAXPROCS(0))
	for first := 0; first < len(spans); first += hashBatchSize {
		last := min(first+hashBatchSize, len(spans))
		group.Go(func() error {
			if err := groupContext.Err(); err != nil {
				return err
			}
			hashRange(first, last)
			return nil
		})
	}
	return group.Wait()
}
