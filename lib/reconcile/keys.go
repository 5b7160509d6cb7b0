// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package reconcile

import (
	"fmt"
	"strings"

	"github.com/bureau-foundation/ydocsync/lib/chunk"
)

// Keys builds the store keys for documents in one namespace.
type Keys struct {
	Namespace string
}

// DocumentPrefix is the prefix shared by every key of the document.
func (k Keys) DocumentPrefix(name string) string {
	return k.Namespace + "/" + name + "/"
}

// Manifest is the key of the document's manifest.
func (k Keys) Manifest(name string) string {
	return k.DocumentPrefix(name) + "manifest"
}

// ChunkPrefix is the prefix of the document's chunk entries.
func (k Keys) ChunkPrefix(name string) string {
	return k.DocumentPrefix(name) + "chunk/"
}

// Chunk is the key of one chunk of the document.
func (k Keys) Chunk(name string, hash chunk.Hash) string {
	return k.ChunkPrefix(name) + hash.String()
}

// Client is the key of the document's client-side update slot.
func (k Keys) Client(name string) string {
	return k.DocumentPrefix(name) + "client"
}

// ValidateName rejects names that would make one document's keys a
// prefix of another's.
func ValidateName(name string) error {
	if name == "" {
		return fmt.Errorf("%w: empty", ErrInvalidName)
	}
	if strings.Contains(name, "/") {
		return fmt.Errorf("%w: %q contains \"/\"", ErrInvalidName, name)
	}
	return nil
}
