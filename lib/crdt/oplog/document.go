// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package oplog

import (
	"sort"
)

// Document is a loaded operation set with a last-writer-wins view of
// its keys. It is not safe for concurrent use.
type Document struct {
	ops   map[ID]Op
	clock uint64
}

// NewDocument returns an empty document.
func NewDocument() *Document {
	return &Document{ops: make(map[ID]Op)}
}

func (d *Document) apply(ops []Op) error {
	if err := addOps(d.ops, ops); err != nil {
		return err
	}
	for _, op := range ops {
		d.clock = max(d.clock, op.Clock)
	}
	return nil
}

// Set records client setting key to value and returns the operation.
func (d *Document) Set(client uint64, key, value string) Op {
	return d.record(Op{Client: client, Key: key, Value: value})
}

// Delete records client deleting key and returns the operation.
func (d *Document) Delete(client uint64, key string) Op {
	return d.record(Op{Client: client, Key: key, Deleted: true})
}

func (d *Document) record(op Op) Op {
	d.clock++
	op.Clock = d.clock
	d.ops[op.ID()] = op
	return op
}

// Get returns the visible value of key.
func (d *Document) Get(key string) (string, bool) {
	winner, ok := d.winners()[key]
	if !ok || winner.Deleted {
		return "", false
	}
	return winner.Value, true
}

// Keys returns the keys with a visible value, sorted.
func (d *Document) Keys() []string {
	var keys []string
	for key, winner := range d.winners() {
		if !winner.Deleted {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	return keys
}

// Ops returns every operation sorted by (client, clock).
func (d *Document) Ops() []Op {
	ops := make([]Op, 0, len(d.ops))
	for _, op := range d.ops {
		ops = append(ops, op)
	}
	sort.Slice(ops, func(i, j int) bool { return ops[i].ID().less(ops[j].ID()) })
	return ops
}

// Encode implements [crdt.Document].
func (d *Document) Encode() ([]byte, error) {
	return encode(d.ops)
}

func (d *Document) winners() map[string]Op {
	winners := make(map[string]Op)
	for id, op := range d.ops {
		current, ok := winners[op.Key]
		if !ok || id.supersedes(current.ID()) {
			winners[op.Key] = op
		}
	}
	return winners
}
