// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package memkv is an in-memory [kv.Store].
//
// Committed data lives in a copy-on-write B-tree. A transaction works
// on a lazy clone of the committed tree, so readers see a fixed
// snapshot for their whole transaction and a writer's uncommitted
// changes are invisible to everyone else. Commit swaps the tree
// pointer, which makes all of a transaction's writes visible at once.
// Writers are serialized.
//
// After each commit the store delivers the transaction's diff to
// watchers registered with [Store.Watch], in commit order. This mirrors
// the watch API of the replicated stores the reconciler targets and is
// how tests observe exactly which keys an operation touched.
package memkv

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"sort"
	"strings"
	"sync"

	"github.com/google/btree"

	"github.com/bureau-foundation/ydocsync/lib/kv"
)

// treeDegree is the B-tree branching factor.
const treeDegree = 16

// errTxDone is returned by transaction methods called after the
// transaction's function has returned.
var errTxDone = errors.New("memkv: transaction already finished")

var errReadOnly = errors.New("memkv: write in read-only transaction")

type item struct {
	key   string
	value []byte
}

func itemLess(a, b item) bool {
	return a.key < b.key
}

// Options configures a [Store].
type Options struct {
	// Authoritative is reported by every write transaction's
	// Authoritative method. A server-side store sets it; a store
	// standing in for a client's optimistic cache leaves it false.
	Authoritative bool

	// Logger receives commit and watch diagnostics at debug level. If
	// nil, logging is discarded.
	Logger *slog.Logger
}

// WatchFunc receives the committed changes under a watched prefix,
// sorted by key. It runs on the committing goroutine after the commit
// is visible and must not start a write transaction on the same
// store.
type WatchFunc func(changes []kv.Change)

type watcher struct {
	prefix string
	fn     WatchFunc
}

// Store is an in-memory transactional key/value store. It is safe for
// concurrent use.
type Store struct {
	authoritative bool
	logger        *slog.Logger

	// writeMutex serializes Update calls, including watcher delivery,
	// so watchers observe commits in order.
	writeMutex sync.Mutex

	// mutex guards tree (cloning mutates the source tree's
	// copy-on-write context) and watchers.
	mutex       sync.Mutex
	tree        *btree.BTreeG[item]
	watchers    map[uint64]watcher
	nextWatcher uint64
}

// New returns an empty store.
func New(options Options) *Store {
	logger := options.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Store{
		authoritative: options.Authoritative,
		logger:        logger,
		tree:          btree.NewG(treeDegree, itemLess),
		watchers:      make(map[uint64]watcher),
	}
}

var _ kv.Store = (*Store)(nil)

// snapshot returns a private lazy copy of the committed tree.
func (s *Store) snapshot() *btree.BTreeG[item] {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.tree.Clone()
}

// View runs fn against a snapshot of the committed data.
func (s *Store) View(ctx context.Context, fn func(kv.ReadTx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	tx := &transaction{tree: s.snapshot()}
	defer tx.finish()
	return fn(tx)
}

// Update runs fn in a serialized read-write transaction and commits
// its writes if fn returns nil.
func (s *Store) Update(ctx context.Context, fn func(kv.WriteTx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.writeMutex.Lock()
	defer s.writeMutex.Unlock()

	tx := &transaction{
		tree:          s.snapshot(),
		authoritative: s.authoritative,
		originals:     make(map[string]original),
	}
	err := fn(tx)
	tx.finish()
	if err != nil {
		return err
	}

	changes := tx.changes()

	s.mutex.Lock()
	s.tree = tx.tree
	watchers := make([]watcher, 0, len(s.watchers))
	for _, w := range s.watchers {
		watchers = append(watchers, w)
	}
	s.mutex.Unlock()

	s.logger.Debug("memkv commit", "changes", len(changes))
	for _, w := range watchers {
		if matched := filterPrefix(changes, w.prefix); len(matched) > 0 {
			w.fn(matched)
		}
	}
	return nil
}

// Watch registers fn to receive every future committed change whose
// key starts with prefix. The returned function unregisters it.
func (s *Store) Watch(prefix string, fn WatchFunc) (cancel func()) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	id := s.nextWatcher
	s.nextWatcher++
	s.watchers[id] = watcher{prefix: prefix, fn: fn}
	return func() {
		s.mutex.Lock()
		defer s.mutex.Unlock()
		delete(s.watchers, id)
	}
}

// Len returns the number of committed keys.
func (s *Store) Len() int {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.tree.Len()
}

func filterPrefix(changes []kv.Change, prefix string) []kv.Change {
	if prefix == "" {
		return changes
	}
	var matched []kv.Change
	for _, change := range changes {
		if strings.HasPrefix(change.Key, prefix) {
			matched = append(matched, change)
		}
	}
	return matched
}

// original is the committed state of a key before the transaction
// first wrote it.
type original struct {
	value   []byte
	existed bool
}

type transaction struct {
	tree          *btree.BTreeG[item]
	authoritative bool
	done          bool

	// originals is nil for read-only transactions.
	originals map[string]original
}

func (tx *transaction) finish() {
	tx.done = true
}

func (tx *transaction) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if tx.done {
		return nil, false, errTxDone
	}
	found, ok := tx.tree.Get(item{key: key})
	if !ok {
		return nil, false, nil
	}
	return bytes.Clone(found.value), true, nil
}

func (tx *transaction) Scan(ctx context.Context, prefix string) ([]kv.Entry, error) {
	if tx.done {
		return nil, errTxDone
	}
	var entries []kv.Entry
	collect := func(found item) bool {
		entries = append(entries, kv.Entry{Key: found.key, Value: bytes.Clone(found.value)})
		return true
	}
	if end := kv.PrefixEnd(prefix); end != "" {
		tx.tree.AscendRange(item{key: prefix}, item{key: end}, collect)
	} else {
		tx.tree.AscendGreaterOrEqual(item{key: prefix}, collect)
	}
	return entries, nil
}

func (tx *transaction) Set(ctx context.Context, key string, value []byte) error {
	if err := tx.checkWrite(); err != nil {
		return err
	}
	previous, existed := tx.tree.ReplaceOrInsert(item{key: key, value: bytes.Clone(value)})
	tx.remember(key, previous.value, existed)
	return nil
}

func (tx *transaction) Delete(ctx context.Context, key string) error {
	if err := tx.checkWrite(); err != nil {
		return err
	}
	previous, existed := tx.tree.Delete(item{key: key})
	tx.remember(key, previous.value, existed)
	return nil
}

func (tx *transaction) checkWrite() error {
	if tx.done {
		return errTxDone
	}
	if tx.originals == nil {
		return errReadOnly
	}
	return nil
}

func (tx *transaction) Authoritative() bool {
	return tx.authoritative
}

// remember records the pre-transaction state of key on its first
// write.
func (tx *transaction) remember(key string, value []byte, existed bool) {
	if _, seen := tx.originals[key]; seen {
		return
	}
	tx.originals[key] = original{value: value, existed: existed}
}

// changes computes the net diff of the transaction against the
// snapshot it started from, sorted by key. Keys written back to their
// original value and keys created then deleted are omitted.
func (tx *transaction) changes() []kv.Change {
	changes := make([]kv.Change, 0, len(tx.originals))
	for key, before := range tx.originals {
		after, exists := tx.tree.Get(item{key: key})
		switch {
		case !before.existed && exists:
			changes = append(changes, kv.Change{Op: kv.OpAdd, Key: key, NewValue: after.value})
		case before.existed && !exists:
			changes = append(changes, kv.Change{Op: kv.OpDelete, Key: key, OldValue: before.value})
		case before.existed && exists && !bytes.Equal(before.value, after.value):
			changes = append(changes, kv.Change{Op: kv.OpChange, Key: key, OldValue: before.value, NewValue: after.value})
		}
	}
	sort.Slice(changes, func(i, j int) bool { return changes[i].Key < changes[j].Key })
	return changes
}
