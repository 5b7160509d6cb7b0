// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package chunk splits byte blobs into content-defined chunks and
// reassembles them. It is the leaf of the document sync pipeline: the
// reconciler stores each chunk under a key derived from its hash, so a
// new version of a blob that shares most of its bytes with the old one
// reuses most of the old keys.
//
// The package has two layers:
//
//   - Boundary detection: a buzhash64 rolling hash over a 64-byte
//     trailing window decides where chunks end. The hash is primed
//     once at the start of the source and never reset, so a boundary
//     decision depends only on the 64 bytes of content before it (plus
//     the [Params] minimum and maximum). An insertion or deletion
//     perturbs boundaries near the edit and nowhere else.
//
//   - Hashing: each chunk is identified by the first [HashSize] bytes
//     of a chunk-domain BLAKE3 keyed digest. Boundaries are fixed
//     before hashing starts, so hashes are computed concurrently
//     without affecting the output.
//
// [Chunk] and [Unchunk] are the two entry points and are exact
// inverses: Unchunk(Chunk(s).ChunksByHash, Chunk(s).SourceHashes,
// len(s)) == s for every source and every valid [Params]. Neither
// function performs I/O or keeps state between calls.
//
// The package depends on no other ydocsync packages.
package chunk
