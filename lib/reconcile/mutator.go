// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package reconcile

import (
	"context"
	"fmt"

	"github.com/cristalhq/base64"

	"github.com/bureau-foundation/ydocsync/lib/kv"
)

// UpdateArgs are the arguments of the UpdateYJS mutator as clients
// send them.
type UpdateArgs struct {
	// Name is the document name.
	Name string `json:"name"`
	// Update is a base64-encoded CRDT update.
	Update string `json:"update"`
}

// UpdateYJS applies a client's update to the document.
//
// On an authoritative transaction the update is merged into the
// server state (or stored as-is if there is none), passed through the
// validator if one is configured, and stored chunked. On a
// non-authoritative transaction it is merged into the client slot
// unchunked. Nothing is written until merging and validation succeed.
func (r *Reconciler) UpdateYJS(ctx context.Context, tx kv.WriteTx, args UpdateArgs) error {
	if err := ValidateName(args.Name); err != nil {
		return err
	}
	incoming, err := base64.StdEncoding.DecodeString(args.Update)
	if err != nil {
		return fmt.Errorf("reconcile: %w: %w", ErrInvalidUpdate, err)
	}

	if !tx.Authoritative() {
		return r.mergeClientUpdate(ctx, tx, args.Name, incoming)
	}

	existing, found, err := r.ServerUpdate(ctx, tx, args.Name)
	if err != nil {
		return err
	}
	merged := incoming
	if found {
		merged, err = r.engine.Merge(existing, incoming)
		if err != nil {
			return fmt.Errorf("reconcile: merging update into %q: %w", args.Name, err)
		}
	}

	if r.validator != nil {
		merged, err = r.validate(merged)
		if err != nil {
			return fmt.Errorf("reconcile: validating %q: %w", args.Name, err)
		}
	}

	return r.SetServerUpdate(ctx, tx, args.Name, merged)
}

func (r *Reconciler) validate(update []byte) ([]byte, error) {
	document, err := r.engine.Load(update)
	if err != nil {
		return nil, err
	}
	if err := r.validator(document); err != nil {
		return nil, err
	}
	return document.Encode()
}

func (r *Reconciler) mergeClientUpdate(ctx context.Context, tx kv.WriteTx, name string, incoming []byte) error {
	existing, found, err := r.ClientUpdate(ctx, tx, name)
	if err != nil {
		return err
	}
	merged := incoming
	if found {
		merged, err = r.engine.Merge(existing, incoming)
		if err != nil {
			return fmt.Errorf("reconcile: merging client update into %q: %w", name, err)
		}
	}
	value := base64.StdEncoding.EncodeToString(merged)
	if err := tx.Set(ctx, r.keys.Client(name), []byte(value)); err != nil {
		return fmt.Errorf("reconcile: writing client update of %q: %w", name, err)
	}
	return nil
}

// ClientUpdate returns the document's client-side update slot, or
// false if it is empty.
func (r *Reconciler) ClientUpdate(ctx context.Context, tx kv.ReadTx, name string) ([]byte, bool, error) {
	if err := ValidateName(name); err != nil {
		return nil, false, err
	}
	value, found, err := tx.Get(ctx, r.keys.Client(name))
	if err != nil {
		return nil, false, fmt.Errorf("reconcile: reading client update of %q: %w", name, err)
	}
	if !found {
		return nil, false, nil
	}
	update, err := base64.StdEncoding.DecodeString(string(value))
	if err != nil {
		return nil, false, fmt.Errorf("reconcile: decoding client update of %q: %w", name, err)
	}
	return update, true, nil
}
