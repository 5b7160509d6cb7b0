// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package oplog is a grow-only operation-log CRDT implementing
// [crdt.Engine].
//
// A document is a set of operations. Each operation is identified by
// the client that issued it and that client's clock, and either sets a
// key to a value or deletes it. An update is the CBOR encoding of a
// set of operations sorted by (client, clock), so merging updates is
// set union: associative, commutative and idempotent, the same algebra
// as Yjs update merging.
//
// The visible value of a key is the operation with the highest
// (clock, client) pair touching it. Clocks are Lamport clocks: a
// document assigns a new operation a clock one past the highest clock
// it has seen.
package oplog

import (
	"errors"
	"fmt"
	"sort"

	"github.com/bureau-foundation/ydocsync/lib/codec"
	"github.com/bureau-foundation/ydocsync/lib/crdt"
)

// ErrConflict is returned when two updates contain different
// operations with the same identifier. Well-behaved clients never
// reuse a (client, clock) pair.
var ErrConflict = errors.New("oplog: conflicting operations")

// ID identifies an operation.
type ID struct {
	Client uint64
	Clock  uint64
}

func (id ID) less(other ID) bool {
	if id.Client != other.Client {
		return id.Client < other.Client
	}
	return id.Clock < other.Clock
}

// supersedes reports whether an operation with this ID wins over one
// with other when both touch the same key.
func (id ID) supersedes(other ID) bool {
	if id.Clock != other.Clock {
		return id.Clock > other.Clock
	}
	return id.Client > other.Client
}

// Op is one operation.
type Op struct {
	Client  uint64 `cbor:"client"`
	Clock   uint64 `cbor:"clock"`
	Key     string `cbor:"key"`
	Value   string `cbor:"value,omitempty"`
	Deleted bool   `cbor:"deleted,omitempty"`
}

// ID returns the operation's identifier.
func (op Op) ID() ID {
	return ID{Client: op.Client, Clock: op.Clock}
}

type update struct {
	Ops []Op `cbor:"ops"`
}

// NewUpdate encodes ops as an update. Duplicate operations collapse;
// conflicting ones are an error.
func NewUpdate(ops ...Op) ([]byte, error) {
	set := make(map[ID]Op, len(ops))
	if err := addOps(set, ops); err != nil {
		return nil, err
	}
	return encode(set)
}

// Engine implements [crdt.Engine]. The zero value is ready to use.
type Engine struct{}

var (
	_ crdt.Engine   = Engine{}
	_ crdt.Document = (*Document)(nil)
)

// Merge returns the union of updates. An empty or nil update is the
// empty set.
func (Engine) Merge(updates ...[]byte) ([]byte, error) {
	set := make(map[ID]Op)
	for i, encoded := range updates {
		ops, err := decode(encoded)
		if err != nil {
			return nil, fmt.Errorf("oplog: update %d: %w", i, err)
		}
		if err := addOps(set, ops); err != nil {
			return nil, err
		}
	}
	return encode(set)
}

// Load decodes an update into a [Document].
func (Engine) Load(encoded []byte) (crdt.Document, error) {
	document, err := Load(encoded)
	if err != nil {
		return nil, err
	}
	return document, nil
}

// Load decodes an update into a *Document.
func Load(encoded []byte) (*Document, error) {
	ops, err := decode(encoded)
	if err != nil {
		return nil, fmt.Errorf("oplog: %w", err)
	}
	document := &Document{ops: make(map[ID]Op, len(ops))}
	if err := document.apply(ops); err != nil {
		return nil, err
	}
	return document, nil
}

func decode(encoded []byte) ([]Op, error) {
	if len(encoded) == 0 {
		return nil, nil
	}
	var decoded update
	if err := codec.Unmarshal(encoded, &decoded); err != nil {
		return nil, fmt.Errorf("decoding update: %w", err)
	}
	return decoded.Ops, nil
}

func encode(set map[ID]Op) ([]byte, error) {
	ops := make([]Op, 0, len(set))
	for _, op := range set {
		ops = append(ops, op)
	}
	sort.Slice(ops, func(i, j int) bool { return ops[i].ID().less(ops[j].ID()) })
	encoded, err := codec.Marshal(update{Ops: ops})
	if err != nil {
		return nil, fmt.Errorf("oplog: encoding update: %w", err)
	}
	return encoded, nil
}

func addOps(set map[ID]Op, ops []Op) error {
	for _, op := range ops {
		id := op.ID()
		if existing, ok := set[id]; ok {
			if existing != op {
				return fmt.Errorf("%w: client %d clock %d", ErrConflict, id.Client, id.Clock)
			}
			continue
		}
		set[id] = op
	}
	return nil
}
