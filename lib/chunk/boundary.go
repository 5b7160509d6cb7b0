// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package chunk

import (
	"github.com/chmduquesne/rollinghash/buzhash64"
)

// WindowSize is the width of the rolling hash window in bytes. A
// boundary decision depends on exactly this many preceding bytes.
const WindowSize = 64

// rollingHashSeed seeds the buzhash byte table. It is a protocol
// constant: a different table moves every boundary.
const rollingHashSeed = 0x79646f63

// rollingTable is the buzhash64 byte table, generated once. It is
// copied into each hasher and never modified.
var rollingTable = buzhash64.GenerateHashes(rollingHashSeed)

// initialWindow primes the rolling hash at the start of a source, so
// the first WindowSize positions see a zero-padded window rather than
// an empty one.
var initialWindow = make([]byte, WindowSize)

// Span locates one chunk within its source.
type Span struct {
	Offset int
	Length int
}

// End returns the exclusive end offset of the span.
func (s Span) End() int {
	return s.Offset + s.Length
}

// Chunker walks a byte slice and yields content-defined chunk spans.
// Create one with [NewChunker] and call [Chunker.Next] until it
// reports false.
//
// The rolling hash is carried across chunk boundaries instead of being
// reset, which is what makes boundaries a function of local content:
// the hash at any offset covers the WindowSize bytes before it no
// matter where the previous chunk ended. The price is that every byte
// must be rolled; there is no skip-ahead over the first Min bytes of a
// chunk.
type Chunker struct {
	params   Params
	interval uint64
	data     []byte
	position int
	hash     *buzhash64.Buzhash64
}

// NewChunker returns a chunker over data. The data slice is not
// copied; the caller must not modify it while iterating.
func NewChunker(params Params, data []byte) (*Chunker, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	hash := buzhash64.NewFromUint64Array(rollingTable)
	hash.Write(initialWindow)
	return &Chunker{
		params:   params,
		interval: params.boundaryInterval(),
		data:     data,
		hash:     hash,
	}, nil
}

// Next returns the span of the next chunk, or false when the input is
// exhausted. An empty input yields no spans.
func (c *Chunker) Next() (Span, bool) {
	if c.position >= len(c.data) {
		return Span{}, false
	}
	start := c.position
	c.position = c.findBoundary(start)
	return Span{Offset: start, Length: c.position - start}, true
}

// findBoundary rolls forward from start and returns the exclusive end
// of the chunk beginning there. A boundary needs at least Min bytes in
// the chunk and a rolling sum divisible by the interval. With no such
// position within Max bytes the chunk is cut at Max; at the end of the
// data the remainder becomes the final chunk.
func (c *Chunker) findBoundary(start int) int {
	limit := min(len(c.data), start+c.params.Max)
	minimumEnd := start + c.params.Min

	for position := start; position < limit; position++ {
		c.hash.Roll(c.data[position])
		end := position + 1
		if end >= minimumEnd && c.interval != 0 && c.hash.Sum64()%c.interval == 0 {
			return end
		}
	}
	return limit
}

// Spans returns the chunk spans of source in order. The spans tile the
// source exactly: the first starts at 0, each starts where the
// previous ends, and the last ends at len(source).
func Spans(params Params, source []byte) ([]Span, error) {
	chunker, err := NewChunker(params, source)
	if err != nil {
		return nil, err
	}
	spans := make([]Span, 0, len(source)/params.Average+1)
	for {
		span, ok := chunker.Next()
		if !ok {
			return spans, nil
		}
		spans = append(spans, span)
	}
}
