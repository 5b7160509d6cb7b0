// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package chunk

import (
	"errors"
	"fmt"
	"math"
)

// Default chunking parameters. Changing any of them moves chunk
// boundaries, which turns every stored chunk of every document into
// garbage on its next write. Existing manifests stay readable because
// reconstruction does not depend on the parameters.
const (
	// DefaultAverageSize is the target mean chunk length.
	DefaultAverageSize = 1024

	// DefaultMinSize is the shortest chunk the boundary detector will
	// produce. Only the final chunk of a source may be shorter.
	DefaultMinSize = 256

	// DefaultMaxSize is the longest chunk. A boundary is forced at
	// this length regardless of the rolling hash.
	DefaultMaxSize = 2048
)

// ErrInvalidParams is returned (wrapped) when a [Params] value fails
// validation.
var ErrInvalidParams = errors.New("invalid chunk parameters")

// Params are the size targets for content-defined chunking, all in
// bytes.
type Params struct {
	// Average is the target mean length of all chunks except the
	// last. The boundary probability past Min is calibrated so that
	// Min plus the expected tail, truncated at Max, lands on Average.
	Average int `yaml:"average" json:"average"`

	// Min is the minimum chunk length, except for the final chunk.
	Min int `yaml:"min" json:"min"`

	// Max is the maximum chunk length, including the final chunk.
	Max int `yaml:"max" json:"max"`
}

// DefaultParams returns the standard parameters used for document
// updates.
func DefaultParams() Params {
	return Params{
		Average: DefaultAverageSize,
		Min:     DefaultMinSize,
		Max:     DefaultMaxSize,
	}
}

// Validate reports whether the parameters describe a usable chunker:
// Min must be positive, Min <= Max, and Average within [Min, Max].
func (p Params) Validate() error {
	switch {
	case p.Min < 1:
		return fmt.Errorf("%w: min size %d must be at least 1", ErrInvalidParams, p.Min)
	case p.Min > p.Max:
		return fmt.Errorf("%w: min size %d exceeds max size %d", ErrInvalidParams, p.Min, p.Max)
	case p.Average < p.Min || p.Average > p.Max:
		return fmt.Errorf("%w: average size %d outside [%d, %d]", ErrInvalidParams, p.Average, p.Min, p.Max)
	}
	return nil
}

// String formats the parameters as avg/min/max for logs.
func (p Params) String() string {
	return fmt.Sprintf("avg=%d min=%d max=%d", p.Average, p.Min, p.Max)
}

// boundaryInterval is the modulus of the boundary condition, chosen
// so that the expected chunk length equals Average. Each position from
// Min to Max-1 ends the chunk with probability 1/interval, and a chunk
// that reaches Max is cut there, so the expectation is
// Min + expectedTail(interval). Zero means the rolling hash never cuts
// and every chunk but the last is exactly Max bytes long.
func (p Params) boundaryInterval() uint64 {
	target := float64(p.Average - p.Min)
	span := p.Max - p.Min
	if target <= 0 {
		return 1
	}
	if p.Average >= p.Max {
		return 0
	}

	// expectedTail rises monotonically from 0 at interval 1 toward
	// span, so the smallest interval reaching target is found by
	// doubling an upper bound and bisecting.
	low, high := uint64(1), uint64(2)
	for expectedTail(high, span) < target {
		low, high = high, high*2
		if high >= 1<<62 {
			return high
		}
	}
	for high-low > 1 {
		middle := low + (high-low)/2
		if expectedTail(middle, span) < target {
			low = middle
		} else {
			high = middle
		}
	}
	if target-expectedTail(low, span) < expectedTail(high, span)-target {
		return low
	}
	return high
}

// expectedTail is the expected number of bytes past Min in a chunk,
// given the boundary interval and span = Max - Min candidate cut
// positions. With q = 1 - 1/interval it is the sum of q^k for k in
// [1, span], which is (interval-1)(1-q^span).
func expectedTail(interval uint64, span int) float64 {
	if interval <= 1 {
		return 0
	}
	i := float64(interval)
	survive := math.Exp(float64(span) * math.Log1p(-1/i))
	return (i - 1) * (1 - survive)
}
