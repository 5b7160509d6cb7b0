// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package chunk

import (
	"fmt"

	"github.com/cristalhq/base64"
	"github.com/zeebo/blake3"
)

// HashSize is the length of a chunk hash in bytes. 72 bits keeps the
// birthday-bound collision probability near 1e-12 for 100,000 chunks
// (a 100 MB document at 1 KB per chunk): n^2 / 2^73. Changing it
// changes every chunk key.
const HashSize = 9

// hashTextSize is the length of a hash in its text form. HashSize is a
// multiple of 3, so the base64 form carries no padding.
const hashTextSize = HashSize / 3 * 4

// Hash identifies a chunk by content: the first HashSize bytes of the
// chunk-domain BLAKE3 keyed digest of the chunk's bytes. Two chunks
// with equal hashes are assumed to have equal bytes; nothing in the
// system re-verifies this.
type Hash [HashSize]byte

// chunkDomainKey is the BLAKE3 key for chunk hashing. The ASCII
// domain name is zero-padded to 32 bytes so it is readable in hex
// dumps. Changing it invalidates every stored chunk key.
var chunkDomainKey = [32]byte{
	'y', 'd', 'o', 'c', 's', 'y', 'n', 'c', '.', 'c', 'h', 'u', 'n', 'k', 0, 0,
	0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0,
}

// HashChunk computes the chunk hash of data.
func HashChunk(data []byte) Hash {
	// NewKeyed only fails for a key that is not 32 bytes, which the
	// array type rules out.
	hasher, err := blake3.NewKeyed(chunkDomainKey[:])
	if err != nil {
		panic("chunk: BLAKE3 keyed hash initialization failed: " + err.Error())
	}
	hasher.Write(data)
	var digest [32]byte
	hasher.Sum(digest[:0])

	var hash Hash
	copy(hash[:], digest[:HashSize])
	return hash
}

// String returns the URL-safe base64 form of the hash. It is 12
// characters long and safe to embed in a "/"-separated key.
func (h Hash) String() string {
	return base64.URLEncoding.EncodeToString(h[:])
}

// MarshalText implements encoding.TextMarshaler so hashes serialize as
// strings in CBOR and JSON manifests.
func (h Hash) MarshalText() ([]byte, error) {
	return []byte(h.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (h *Hash) UnmarshalText(text []byte) error {
	parsed, err := ParseHash(string(text))
	if err != nil {
		return err
	}
	*h = parsed
	return nil
}

// ParseHash parses the text form produced by [Hash.String].
func ParseHash(text string) (Hash, error) {
	var hash Hash
	if len(text) != hashTextSize {
		return hash, fmt.Errorf("chunk hash %q is %d characters, want %d", text, len(text), hashTextSize)
	}
	decoded, err := base64.URLEncoding.DecodeString(text)
	if err != nil {
		return hash, fmt.Errorf("parsing chunk hash %q: %w", text, err)
	}
	if len(decoded) != HashSize {
		return hash, fmt.Errorf("chunk hash %q decodes to %d bytes, want %d", text, len(decoded), HashSize)
	}
	copy(hash[:], decoded)
	return hash, nil
}
