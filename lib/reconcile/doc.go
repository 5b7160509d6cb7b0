// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package reconcile stores CRDT document updates in a transactional
// key/value store.
//
// The authoritative state of a document is a single update blob. It is
// not stored as one value: [Reconciler.SetServerUpdate] splits it with
// package chunk and stores a manifest plus one entry per distinct
// chunk,
//
//	<namespace>/<doc>/manifest       CBOR {chunkHashes, length}
//	<namespace>/<doc>/chunk/<hash>   chunk bytes, base64 (optionally compressed)
//	<namespace>/<doc>/client         base64 update (client-side optimistic state)
//
// Writing a new version of the blob rewrites only the chunks that
// changed. Chunks the new manifest no longer references are deleted in
// the same transaction, so a committed state never carries garbage and
// never references a chunk that is absent.
//
// [Reconciler.UpdateYJS] is the mutator clients call with a base64
// update. On the authoritative replica it merges the update into the
// stored state with the configured [crdt.Engine], optionally runs a
// [crdt.Validator] over the merged document, and stores the result.
// On a client replica it merges into the unchunked client slot, which
// the authority's replay later supersedes.
//
// All reads and writes of one operation go through the caller's
// transaction. The reconciler holds no state between calls and adds no
// locking; atomicity and isolation are the store's.
package reconcile
