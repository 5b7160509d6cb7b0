// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package kv defines the transactional key/value store the document
// reconciler persists into.
//
// The store is the authority on isolation and atomicity. The
// reconciler issues every read and write of one operation through a
// single [WriteTx] and relies on [Store.Update] to make the writes
// visible together or not at all. It holds no locks and runs no retry
// loops of its own; a store that detects a conflict aborts the
// transaction and the caller retries from a fresh read.
//
// Keys are strings and are ordered bytewise. Values are opaque bytes;
// the reconciler stores base64 text for chunk data and CBOR for
// manifests.
//
// Two implementations live in subpackages: [memkv] keeps everything in
// memory and delivers committed diffs to watchers, and [sqlitekv]
// persists to a SQLite database.
//
// [memkv]: github.com/bureau-foundation/ydocsync/lib/kv/memkv
// [sqlitekv]: github.com/bureau-foundation/ydocsync/lib/kv/sqlitekv
package kv
