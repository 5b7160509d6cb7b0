// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package reconcile

import (
	"context"
	"fmt"
	"strings"

	"github.com/bureau-foundation/ydocsync/lib/chunk"
	"github.com/bureau-foundation/ydocsync/lib/kv"
)

// Stats summarizes one SetServerUpdate.
type Stats struct {
	// Chunks is the number of chunks in the new update, counting
	// repeats.
	Chunks int
	// Written is the number of distinct chunks newly stored.
	Written int
	// Retained is the number of distinct chunks the previous manifest
	// already referenced.
	Retained int
	// Deleted is the number of chunks the new manifest dropped.
	Deleted int
}

// SetServerUpdate replaces the document's server state with update.
//
// Chunks shared with the previous state are left in place, new chunks
// are written, and chunks the new state no longer references are
// deleted, all through tx. If the caller's transaction aborts, none of
// it is visible.
func (r *Reconciler) SetServerUpdate(ctx context.Context, tx kv.WriteTx, name string, update []byte) error {
	_, err := r.SetServerUpdateStats(ctx, tx, name, update)
	return err
}

// SetServerUpdateStats is SetServerUpdate returning what it changed.
func (r *Reconciler) SetServerUpdateStats(ctx context.Context, tx kv.WriteTx, name string, update []byte) (Stats, error) {
	if err := ValidateName(name); err != nil {
		return Stats{}, err
	}

	previous, found, err := r.readManifest(ctx, tx, name)
	if err != nil {
		return Stats{}, err
	}
	previousHashes := map[chunk.Hash]struct{}{}
	if found {
		previousHashes = previous.hashSet()
	}

	result, err := chunk.Chunk(ctx, r.params, update)
	if err != nil {
		return Stats{}, fmt.Errorf("reconcile: chunking %q: %w", name, err)
	}

	stats := Stats{Chunks: len(result.SourceHashes)}

	// Walk in source order so writes are issued deterministically.
	seen := make(map[chunk.Hash]struct{}, len(result.ChunksByHash))
	for _, hash := range result.SourceHashes {
		if _, done := seen[hash]; done {
			continue
		}
		seen[hash] = struct{}{}
		if _, retained := previousHashes[hash]; retained {
			stats.Retained++
			continue
		}
		value := encodeChunkValue(result.ChunksByHash[hash], r.compression)
		if err := tx.Set(ctx, r.keys.Chunk(name, hash), value); err != nil {
			return Stats{}, fmt.Errorf("reconcile: writing chunk %s of %q: %w", hash, name, err)
		}
		stats.Written++
	}

	if found {
		for _, hash := range previous.ChunkHashes {
			if _, kept := seen[hash]; kept {
				continue
			}
			// Mark so a hash repeated in the old manifest is deleted once.
			seen[hash] = struct{}{}
			if err := tx.Delete(ctx, r.keys.Chunk(name, hash)); err != nil {
				return Stats{}, fmt.Errorf("reconcile: deleting chunk %s of %q: %w", hash, name, err)
			}
			stats.Deleted++
		}
	}

	manifest := &Manifest{ChunkHashes: result.SourceHashes, Length: len(update)}
	if err := r.writeManifest(ctx, tx, name, manifest); err != nil {
		return Stats{}, err
	}

	r.logger.Debug("server update stored",
		"document", name,
		"bytes", len(update),
		"chunks", stats.Chunks,
		"written", stats.Written,
		"retained", stats.Retained,
		"deleted", stats.Deleted,
	)
	return stats, nil
}

// ServerUpdate reconstructs the document's server state. It returns
// false if the document has none. A manifest that references a chunk
// the store does not hold, or a chunk entry that cannot be decoded, is
// an integrity error; errors.Is matches chunk.ErrMissingChunk,
// chunk.ErrLengthMismatch or ErrCorruptChunk.
func (r *Reconciler) ServerUpdate(ctx context.Context, tx kv.ReadTx, name string) ([]byte, bool, error) {
	if err := ValidateName(name); err != nil {
		return nil, false, err
	}

	manifest, found, err := r.readManifest(ctx, tx, name)
	if err != nil || !found {
		return nil, false, err
	}

	prefix := r.keys.ChunkPrefix(name)
	entries, err := tx.Scan(ctx, prefix)
	if err != nil {
		return nil, false, fmt.Errorf("reconcile: scanning chunks of %q: %w", name, err)
	}

	wanted := manifest.hashSet()
	chunksByHash := make(map[chunk.Hash][]byte, len(wanted))
	for _, entry := range entries {
		hash, err := chunk.ParseHash(strings.TrimPrefix(entry.Key, prefix))
		if err != nil {
			return nil, false, fmt.Errorf("reconcile: %w: key %q: %w", ErrCorruptChunk, entry.Key, err)
		}
		if _, ok := wanted[hash]; !ok {
			continue
		}
		raw, err := decodeChunkValue(entry.Value)
		if err != nil {
			return nil, false, fmt.Errorf("reconcile: %w: key %q: %w", ErrCorruptChunk, entry.Key, err)
		}
		chunksByHash[hash] = raw
	}

	update, err := chunk.Unchunk(chunksByHash, manifest.ChunkHashes, manifest.Length)
	if err != nil {
		return nil, false, fmt.Errorf("reconcile: reconstructing %q: %w", name, err)
	}
	return update, true, nil
}
