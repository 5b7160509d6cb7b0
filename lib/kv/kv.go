// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package kv

import (
	"context"
	"fmt"
)

// Entry is one key/value pair returned by [ReadTx.Scan].
type Entry struct {
	Key   string
	Value []byte
}

// ReadTx reads from a consistent snapshot of the store. Inside
// [Store.Update] reads also observe the transaction's own writes.
type ReadTx interface {
	// Get returns the value stored under key and whether it exists.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Scan returns every entry whose key starts with prefix, in key
	// order. An empty prefix scans the whole store.
	Scan(ctx context.Context, prefix string) ([]Entry, error)
}

// WriteTx is a read-write transaction.
type WriteTx interface {
	ReadTx

	// Set stores value under key, replacing any existing value.
	Set(ctx context.Context, key string, value []byte) error

	// Delete removes key. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error

	// Authoritative reports whether the transaction runs on the
	// authoritative replica rather than as a client-side optimistic
	// prediction that the authority will later replay.
	Authoritative() bool
}

// Store runs transactions.
type Store interface {
	// View runs fn against a read-only snapshot.
	View(ctx context.Context, fn func(ReadTx) error) error

	// Update runs fn in a read-write transaction. If fn returns nil
	// the writes commit atomically; otherwise none of them become
	// visible and fn's error is returned.
	Update(ctx context.Context, fn func(WriteTx) error) error
}

// Op is the kind of a committed [Change].
type Op uint8

const (
	// OpAdd is a Set of a key that did not exist.
	OpAdd Op = iota + 1
	// OpChange is a Set of an existing key.
	OpChange
	// OpDelete is a Delete of an existing key.
	OpDelete
)

func (op Op) String() string {
	switch op {
	case OpAdd:
		return "add"
	case OpChange:
		return "change"
	case OpDelete:
		return "del"
	default:
		return fmt.Sprintf("op(%d)", uint8(op))
	}
}

// Change is one entry of a committed diff. OldValue is nil for
// [OpAdd]; NewValue is nil for [OpDelete].
type Change struct {
	Op       Op
	Key      string
	OldValue []byte
	NewValue []byte
}

// PrefixEnd returns the smallest key greater than every key with the
// given prefix, for use as an exclusive scan bound. It returns "" when
// no such key exists (an empty prefix or one made only of 0xff bytes),
// meaning the scan is unbounded above.
func PrefixEnd(prefix string) string {
	end := []byte(prefix)
	for i := len(end) - 1; i >= 0; i-- {
		if end[i] < 0xff {
			end[i]++
			return string(end[:i+1])
		}
	}
	return ""
}
