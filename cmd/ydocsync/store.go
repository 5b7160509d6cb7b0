// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/cristalhq/base64"

	"github.com/bureau-foundation/ydocsync/lib/crdt/oplog"
	"github.com/bureau-foundation/ydocsync/lib/kv"
	"github.com/bureau-foundation/ydocsync/lib/kv/sqlitekv"
	"github.com/bureau-foundation/ydocsync/lib/reconcile"
)

// session is an open store with a reconciler configured for it.
type session struct {
	store      *sqlitekv.Store
	reconciler *reconcile.Reconciler
	logger     *slog.Logger
}

func openSession(ctx context.Context, flags *storeFlags) (*session, error) {
	cfg, err := flags.load()
	if err != nil {
		return nil, err
	}
	logger, err := newLogger(cfg.Log)
	if err != nil {
		return nil, err
	}
	if err := cfg.EnsureStoreDir(); err != nil {
		return nil, err
	}

	reconcileConfig, err := cfg.ReconcilerConfig()
	if err != nil {
		return nil, err
	}
	reconcileConfig.Engine = oplog.Engine{}
	reconcileConfig.Logger = logger
	reconciler, err := reconcile.New(reconcileConfig)
	if err != nil {
		return nil, err
	}

	store, err := sqlitekv.Open(ctx, sqlitekv.Config{
		Path:          cfg.Store.Path,
		PoolSize:      cfg.Store.PoolSize,
		Durable:       cfg.Store.Durable,
		Authoritative: true,
		Logger:        logger,
	})
	if err != nil {
		return nil, err
	}
	return &session{store: store, reconciler: reconciler, logger: logger}, nil
}

func (s *session) close() {
	if err := s.store.Close(); err != nil {
		s.logger.Error("closing store", "error", err)
	}
}

func runPut(ctx context.Context, args []string, stdin io.Reader, stdout io.Writer) error {
	flagSet := newFlagSet("put")
	var flags storeFlags
	flags.add(flagSet)
	if done, err := parseFlags(flagSet, args); done || err != nil {
		return err
	}
	if flagSet.NArg() != 2 {
		return fmt.Errorf("usage: ydocsync put [flags] DOC FILE")
	}
	name := flagSet.Arg(0)
	update, err := readInput(flagSet.Arg(1), stdin)
	if err != nil {
		return err
	}

	session, err := openSession(ctx, &flags)
	if err != nil {
		return err
	}
	defer session.close()

	var stats reconcile.Stats
	err = session.store.Update(ctx, func(tx kv.WriteTx) error {
		var err error
		stats, err = session.reconciler.SetServerUpdateStats(ctx, tx, name, update)
		return err
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(stdout, "%s: %d bytes, %d chunks, %d written, %d retained, %d deleted\n",
		name, len(update), stats.Chunks, stats.Written, stats.Retained, stats.Deleted)
	return nil
}

func runGet(ctx context.Context, args []string, stdin io.Reader, stdout io.Writer) error {
	flagSet := newFlagSet("get")
	var flags storeFlags
	var showKeys bool
	flags.add(flagSet)
	flagSet.BoolVar(&showKeys, "keys", false, "decode the update as an operation log and print key=value lines")
	if done, err := parseFlags(flagSet, args); done || err != nil {
		return err
	}
	if flagSet.NArg() != 1 {
		return fmt.Errorf("usage: ydocsync get [flags] DOC")
	}
	name := flagSet.Arg(0)

	session, err := openSession(ctx, &flags)
	if err != nil {
		return err
	}
	defer session.close()

	var update []byte
	var found bool
	err = session.store.View(ctx, func(tx kv.ReadTx) error {
		var err error
		update, found, err = session.reconciler.ServerUpdate(ctx, tx, name)
		return err
	})
	if err != nil {
		return err
	}
	if !found {
		return fmt.Errorf("document %q has no server state", name)
	}

	if !showKeys {
		_, err := stdout.Write(update)
		return err
	}
	document, err := oplog.Load(update)
	if err != nil {
		return err
	}
	for _, key := range document.Keys() {
		value, _ := document.Get(key)
		fmt.Fprintf(stdout, "%s=%s\n", key, value)
	}
	return nil
}

func runApply(ctx context.Context, args []string, stdin io.Reader, stdout io.Writer) error {
	flagSet := newFlagSet("apply")
	var flags storeFlags
	var client uint64
	var deletes []string
	flags.add(flagSet)
	flagSet.Uint64Var(&client, "client", 1, "client ID recorded on the operations")
	flagSet.StringSliceVar(&deletes, "delete", nil, "keys to delete")
	if done, err := parseFlags(flagSet, args); done || err != nil {
		return err
	}
	if flagSet.NArg() < 1 {
		return fmt.Errorf("usage: ydocsync apply [flags] DOC KEY=VALUE...")
	}
	name := flagSet.Arg(0)

	type assignment struct{ key, value string }
	var assignments []assignment
	for _, argument := range flagSet.Args()[1:] {
		key, value, ok := strings.Cut(argument, "=")
		if !ok || key == "" {
			return fmt.Errorf("expected KEY=VALUE, got %q", argument)
		}
		assignments = append(assignments, assignment{key, value})
	}
	if len(assignments) == 0 && len(deletes) == 0 {
		return fmt.Errorf("nothing to apply")
	}

	session, err := openSession(ctx, &flags)
	if err != nil {
		return err
	}
	defer session.close()

	return session.store.Update(ctx, func(tx kv.WriteTx) error {
		// Build the edit on top of the current state so its clocks
		// follow every operation already stored.
		current, _, err := session.reconciler.ServerUpdate(ctx, tx, name)
		if err != nil {
			return err
		}
		document, err := oplog.Load(current)
		if err != nil {
			return err
		}
		var ops []oplog.Op
		for _, a := range assignments {
			ops = append(ops, document.Set(client, a.key, a.value))
		}
		for _, key := range deletes {
			ops = append(ops, document.Delete(client, key))
		}
		update, err := oplog.NewUpdate(ops...)
		if err != nil {
			return err
		}

		err = session.reconciler.UpdateYJS(ctx, tx, reconcile.UpdateArgs{
			Name:   name,
			Update: base64.StdEncoding.EncodeToString(update),
		})
		if err != nil {
			return err
		}
		fmt.Fprintf(stdout, "%s: applied %d operations\n", name, len(ops))
		return nil
	})
}

func runInspect(ctx context.Context, args []string, stdin io.Reader, stdout io.Writer) error {
	flagSet := newFlagSet("inspect")
	var flags storeFlags
	flags.add(flagSet)
	if done, err := parseFlags(flagSet, args); done || err != nil {
		return err
	}
	if flagSet.NArg() > 1 {
		return fmt.Errorf("usage: ydocsync inspect [flags] [DOC]")
	}

	session, err := openSession(ctx, &flags)
	if err != nil {
		return err
	}
	defer session.close()

	keys := session.reconciler.Keys()
	prefix := keys.Namespace + "/"
	if flagSet.NArg() == 1 {
		if err := reconcile.ValidateName(flagSet.Arg(0)); err != nil {
			return err
		}
		prefix = keys.DocumentPrefix(flagSet.Arg(0))
	}

	return session.store.View(ctx, func(tx kv.ReadTx) error {
		entries, err := tx.Scan(ctx, prefix)
		if err != nil {
			return err
		}
		total := 0
		for _, entry := range entries {
			fmt.Fprintf(stdout, "%-48s %8d\n", entry.Key, len(entry.Value))
			total += len(entry.Value)
		}
		fmt.Fprintf(stdout, "%d keys, %d bytes\n", len(entries), total)
		return nil
	})
}
