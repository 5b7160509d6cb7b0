// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package reconcile

import (
	"context"
	"errors"
	"testing"

	"github.com/cristalhq/base64"
	"github.com/google/go-cmp/cmp"

	"github.com/bureau-foundation/ydocsync/lib/crdt"
	"github.com/bureau-foundation/ydocsync/lib/crdt/oplog"
	"github.com/bureau-foundation/ydocsync/lib/kv"
	"github.com/bureau-foundation/ydocsync/lib/kv/memkv"
)

func encodedUpdate(t *testing.T, ops ...oplog.Op) string {
	t.Helper()
	update, err := oplog.NewUpdate(ops...)
	if err != nil {
		t.Fatalf("NewUpdate: %v", err)
	}
	return base64.StdEncoding.EncodeToString(update)
}

func updateYJS(store kv.Store, reconciler *Reconciler, args UpdateArgs) error {
	return store.Update(context.Background(), func(tx kv.WriteTx) error {
		return reconciler.UpdateYJS(context.Background(), tx, args)
	})
}

func loadServerDocument(t *testing.T, store kv.Store, reconciler *Reconciler, name string) *oplog.Document {
	t.Helper()
	update, found, err := serverUpdate(t, store, reconciler, name)
	if err != nil || !found {
		t.Fatalf("ServerUpdate(%q) = found %v, err %v", name, found, err)
	}
	document, err := oplog.Load(update)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	return document
}

func TestUpdateYJSMergesIntoServerState(t *testing.T) {
	store := memkv.New(memkv.Options{Authoritative: true})
	reconciler := newTestReconciler(t, Config{})

	first := UpdateArgs{Name: "doc", Update: encodedUpdate(t, oplog.Op{Client: 1, Clock: 1, Key: "title", Value: "draft"})}
	second := UpdateArgs{Name: "doc", Update: encodedUpdate(t, oplog.Op{Client: 2, Clock: 1, Key: "body", Value: "hello"})}

	for _, args := range []UpdateArgs{first, second} {
		if err := updateYJS(store, reconciler, args); err != nil {
			t.Fatalf("UpdateYJS: %v", err)
		}
	}

	document := loadServerDocument(t, store, reconciler, "doc")
	if diff := cmp.Diff([]string{"body", "title"}, document.Keys()); diff != "" {
		t.Errorf("merged keys (-want +got):\n%s", diff)
	}
	if keys := scanKeys(t, store, reconciler.Keys().Client("doc")); len(keys) != 0 {
		t.Errorf("authoritative update wrote the client slot: %v", keys)
	}
}

func TestUpdateYJSIsIdempotent(t *testing.T) {
	store := memkv.New(memkv.Options{Authoritative: true})
	reconciler := newTestReconciler(t, Config{})
	args := UpdateArgs{Name: "doc", Update: encodedUpdate(t,
		oplog.Op{Client: 1, Clock: 1, Key: "a", Value: "1"},
		oplog.Op{Client: 1, Clock: 2, Key: "b", Value: "2"},
	)}

	if err := updateYJS(store, reconciler, args); err != nil {
		t.Fatalf("UpdateYJS: %v", err)
	}
	before, _, _ := serverUpdate(t, store, reconciler, "doc")

	var changes []kv.Change
	cancel := store.Watch("", func(committed []kv.Change) { changes = append(changes, committed...) })
	defer cancel()

	if err := updateYJS(store, reconciler, args); err != nil {
		t.Fatalf("UpdateYJS again: %v", err)
	}
	after, _, _ := serverUpdate(t, store, reconciler, "doc")
	if diff := cmp.Diff(before, after); diff != "" {
		t.Errorf("reapplying an update changed the state (-before +after):\n%s", diff)
	}
	if len(changes) != 0 {
		t.Errorf("reapplying an update committed changes: %v", changes)
	}
}

func TestUpdateYJSValidator(t *testing.T) {
	errForbidden := errors.New("forbidden key")
	validator := func(document crdt.Document) error {
		doc := document.(*oplog.Document)
		if _, ok := doc.Get("forbidden"); ok {
			return errForbidden
		}
		if _, ok := doc.Get("secret"); ok {
			doc.Delete(0, "secret")
		}
		return nil
	}
	store := memkv.New(memkv.Options{Authoritative: true})
	reconciler := newTestReconciler(t, Config{Validator: validator})

	err := updateYJS(store, reconciler, UpdateArgs{Name: "doc", Update: encodedUpdate(t,
		oplog.Op{Client: 1, Clock: 1, Key: "public", Value: "ok"},
		oplog.Op{Client: 1, Clock: 2, Key: "secret", Value: "hunter2"},
	)})
	if err != nil {
		t.Fatalf("UpdateYJS: %v", err)
	}
	document := loadServerDocument(t, store, reconciler, "doc")
	if diff := cmp.Diff([]string{"public"}, document.Keys()); diff != "" {
		t.Errorf("keys after validator rewrite (-want +got):\n%s", diff)
	}

	before := scanKeys(t, store, "")
	err = updateYJS(store, reconciler, UpdateArgs{Name: "doc", Update: encodedUpdate(t,
		oplog.Op{Client: 2, Clock: 7, Key: "forbidden", Value: "x"},
	)})
	if !errors.Is(err, errForbidden) {
		t.Fatalf("UpdateYJS returned %v, want the validator's error", err)
	}
	if diff := cmp.Diff(before, scanKeys(t, store, "")); diff != "" {
		t.Errorf("rejected update changed keys (-before +after):\n%s", diff)
	}
}

func TestUpdateYJSClientSlot(t *testing.T) {
	store := memkv.New(memkv.Options{Authoritative: false})
	reconciler := newTestReconciler(t, Config{})

	for _, op := range []oplog.Op{
		{Client: 3, Clock: 1, Key: "x", Value: "1"},
		{Client: 3, Clock: 2, Key: "y", Value: "2"},
	} {
		if err := updateYJS(store, reconciler, UpdateArgs{Name: "doc", Update: encodedUpdate(t, op)}); err != nil {
			t.Fatalf("UpdateYJS: %v", err)
		}
	}

	if keys := scanKeys(t, store, ""); len(keys) != 1 || keys[0] != reconciler.Keys().Client("doc") {
		t.Fatalf("client replica wrote %v, want only the client slot", keys)
	}

	var update []byte
	err := store.View(context.Background(), func(tx kv.ReadTx) error {
		var err error
		update, _, err = reconciler.ClientUpdate(context.Background(), tx, "doc")
		return err
	})
	if err != nil {
		t.Fatalf("ClientUpdate: %v", err)
	}
	document, err := oplog.Load(update)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if diff := cmp.Diff([]string{"x", "y"}, document.Keys()); diff != "" {
		t.Errorf("client slot keys (-want +got):\n%s", diff)
	}
}

func TestUpdateYJSRejectsBadInput(t *testing.T) {
	store := memkv.New(memkv.Options{Authoritative: true})
	reconciler := newTestReconciler(t, Config{})

	if err := updateYJS(store, reconciler, UpdateArgs{Name: "doc", Update: "not base64!"}); !errors.Is(err, ErrInvalidUpdate) {
		t.Errorf("invalid base64 returned %v, want ErrInvalidUpdate", err)
	}
	if err := updateYJS(store, reconciler, UpdateArgs{Name: "a/b", Update: ""}); !errors.Is(err, ErrInvalidName) {
		t.Errorf("invalid name returned %v, want ErrInvalidName", err)
	}
	if store.Len() != 0 {
		t.Errorf("rejected updates wrote %d keys", store.Len())
	}
}
