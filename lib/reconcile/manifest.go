// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package reconcile

import (
	"context"
	"fmt"

	"github.com/bureau-foundation/ydocsync/lib/chunk"
	"github.com/bureau-foundation/ydocsync/lib/codec"
	"github.com/bureau-foundation/ydocsync/lib/kv"
)

// Manifest describes how to rebuild a chunked update: the chunk hashes
// in order (a hash appears once per occurrence) and the total length.
type Manifest struct {
	ChunkHashes []chunk.Hash `cbor:"chunkHashes" json:"chunkHashes"`
	Length      int          `cbor:"length"      json:"length"`
}

// hashSet returns the distinct hashes of the manifest.
func (m *Manifest) hashSet() map[chunk.Hash]struct{} {
	set := make(map[chunk.Hash]struct{}, len(m.ChunkHashes))
	for _, hash := range m.ChunkHashes {
		set[hash] = struct{}{}
	}
	return set
}

// ReadManifest returns the document's manifest, or false if the
// document has no server state.
func (r *Reconciler) ReadManifest(ctx context.Context, tx kv.ReadTx, name string) (*Manifest, bool, error) {
	if err := ValidateName(name); err != nil {
		return nil, false, err
	}
	return r.readManifest(ctx, tx, name)
}

func (r *Reconciler) readManifest(ctx context.Context, tx kv.ReadTx, name string) (*Manifest, bool, error) {
	encoded, found, err := tx.Get(ctx, r.keys.Manifest(name))
	if err != nil {
		return nil, false, fmt.Errorf("reconcile: reading manifest of %q: %w", name, err)
	}
	if !found {
		return nil, false, nil
	}
	var manifest Manifest
	if err := codec.Unmarshal(encoded, &manifest); err != nil {
		return nil, false, fmt.Errorf("reconcile: %w: %q: %w", ErrCorruptManifest, name, err)
	}
	if manifest.Length < 0 {
		return nil, false, fmt.Errorf("reconcile: %w: %q: negative length %d", ErrCorruptManifest, name, manifest.Length)
	}
	return &manifest, true, nil
}

func (r *Reconciler) writeManifest(ctx context.Context, tx kv.WriteTx, name string, manifest *Manifest) error {
	encoded, err := codec.Marshal(manifest)
	if err != nil {
		return fmt.Errorf("reconcile: encoding manifest of %q: %w", name, err)
	}
	if err := tx.Set(ctx, r.keys.Manifest(name), encoded); err != nil {
		return fmt.Errorf("reconcile: writing manifest of %q: %w", name, err)
	}
	return nil
}
