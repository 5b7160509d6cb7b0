// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package crdt declares the CRDT engine the reconciler merges updates
// with. The reconciler never looks inside an update: it only asks the
// engine to merge byte blobs, and to load a blob into a [Document] when
// a [Validator] needs to inspect or rewrite the merged state.
//
// A Yjs binding implements [Engine] with mergeUpdates, applyUpdate and
// encodeStateAsUpdate. Package oplog is a small engine with the same
// algebra for tests and the command line.
package crdt

// Engine merges and loads encoded updates.
type Engine interface {
	// Merge combines updates into one update equivalent to applying all
	// of them. The result must not depend on argument order, and
	// merging an update already contained in another must not change
	// the result.
	Merge(updates ...[]byte) ([]byte, error)

	// Load builds a document from an encoded update.
	Load(update []byte) (Document, error)
}

// Document is a loaded CRDT document.
type Document interface {
	// Encode returns the full state of the document as a single update.
	Encode() ([]byte, error)
}

// Validator inspects a merged document before it is persisted. It may
// modify the document; the re-encoded state is what gets stored. A
// non-nil error aborts the write.
type Validator func(Document) error
