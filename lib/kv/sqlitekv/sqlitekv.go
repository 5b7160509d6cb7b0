// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package sqlitekv is a [kv.Store] persisted in a single SQLite table.
//
// View runs in a deferred transaction and Update in an immediate one,
// so a writer holds the database write lock from its first statement
// and SQLite's WAL snapshot gives readers a consistent view. Keys are
// TEXT with the default BINARY collation, which orders them the same
// way Go compares strings.
package sqlitekv

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"

	"github.com/bureau-foundation/ydocsync/lib/kv"
	"github.com/bureau-foundation/ydocsync/lib/sqlitepool"
)

const schema = `
CREATE TABLE IF NOT EXISTS kv (
	key   TEXT PRIMARY KEY,
	value BLOB
) WITHOUT ROWID;
`

var errTxDone = errors.New("sqlitekv: transaction already finished")

// Config configures [Open].
type Config struct {
	// Path is the database file.
	Path string

	// PoolSize is passed to [sqlitepool.Config].
	PoolSize int

	// Durable selects synchronous=FULL.
	Durable bool

	// Authoritative is reported by write transactions.
	Authoritative bool

	// Logger receives pool diagnostics. Nil discards them.
	Logger *slog.Logger
}

// Store is a SQLite-backed key/value store. It is safe for concurrent
// use.
type Store struct {
	pool          *sqlitepool.Pool
	authoritative bool
	logger        *slog.Logger
}

// Open opens or creates the database at cfg.Path and makes sure the
// schema exists.
func Open(ctx context.Context, cfg Config) (*Store, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	pool, err := sqlitepool.Open(sqlitepool.Config{
		Path:     cfg.Path,
		PoolSize: cfg.PoolSize,
		Durable:  cfg.Durable,
		Logger:   logger,
		OnConnect: func(conn *sqlite.Conn) error {
			return sqlitex.ExecuteScript(conn, schema, nil)
		},
	})
	if err != nil {
		return nil, fmt.Errorf("sqlitekv: %w", err)
	}

	// Take one connection now so a bad path or schema fails here rather
	// than on the first transaction.
	conn, err := pool.Take(ctx)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("sqlitekv: %w", err)
	}
	pool.Put(conn)

	return &Store{
		pool:          pool,
		authoritative: cfg.Authoritative,
		logger:        logger,
	}, nil
}

// Close closes the underlying pool.
func (s *Store) Close() error {
	return s.pool.Close()
}

// View implements [kv.Store].
func (s *Store) View(ctx context.Context, fn func(kv.ReadTx) error) error {
	return s.pool.Read(ctx, func(conn *sqlite.Conn) error {
		tx := &transaction{conn: conn}
		defer tx.finish()
		return fn(tx)
	})
}

// Update implements [kv.Store].
func (s *Store) Update(ctx context.Context, fn func(kv.WriteTx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.pool.Write(ctx, func(conn *sqlite.Conn) error {
		tx := &transaction{conn: conn, writable: true, authoritative: s.authoritative}
		defer tx.finish()
		return fn(tx)
	})
}

type transaction struct {
	conn          *sqlite.Conn
	writable      bool
	authoritative bool
	done          bool
}

func (tx *transaction) finish() {
	tx.done = true
}

func (tx *transaction) check(ctx context.Context) error {
	if tx.done {
		return errTxDone
	}
	return ctx.Err()
}

func (tx *transaction) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if err := tx.check(ctx); err != nil {
		return nil, false, err
	}
	var value []byte
	found := false
	err := sqlitex.Execute(tx.conn, "SELECT value FROM kv WHERE key = ?", &sqlitex.ExecOptions{
		Args: []any{key},
		ResultFunc: func(stmt *sqlite.Stmt) error {
			value = columnBytes(stmt, 0)
			found = true
			return nil
		},
	})
	if err != nil {
		return nil, false, fmt.Errorf("sqlitekv: get %q: %w", key, err)
	}
	return value, found, nil
}

func (tx *transaction) Scan(ctx context.Context, prefix string) ([]kv.Entry, error) {
	if err := tx.check(ctx); err != nil {
		return nil, err
	}
	query := "SELECT key, value FROM kv WHERE key >= ? ORDER BY key"
	args := []any{prefix}
	if end := kv.PrefixEnd(prefix); end != "" {
		query = "SELECT key, value FROM kv WHERE key >= ? AND key < ? ORDER BY key"
		args = append(args, end)
	}

	var entries []kv.Entry
	err := sqlitex.Execute(tx.conn, query, &sqlitex.ExecOptions{
		Args: args,
		ResultFunc: func(stmt *sqlite.Stmt) error {
			entries = append(entries, kv.Entry{
				Key:   stmt.ColumnText(0),
				Value: columnBytes(stmt, 1),
			})
			return nil
		},
	})
	if err != nil {
		return nil, fmt.Errorf("sqlitekv: scan %q: %w", prefix, err)
	}
	return entries, nil
}

func (tx *transaction) Set(ctx context.Context, key string, value []byte) error {
	if err := tx.check(ctx); err != nil {
		return err
	}
	if !tx.writable {
		return fmt.Errorf("sqlitekv: set %q in read-only transaction", key)
	}
	err := sqlitex.Execute(tx.conn,
		"INSERT INTO kv (key, value) VALUES (?, ?) ON CONFLICT (key) DO UPDATE SET value = excluded.value",
		&sqlitex.ExecOptions{Args: []any{key, value}},
	)
	if err != nil {
		return fmt.Errorf("sqlitekv: set %q: %w", key, err)
	}
	return nil
}

func (tx *transaction) Delete(ctx context.Context, key string) error {
	if err := tx.check(ctx); err != nil {
		return err
	}
	if !tx.writable {
		return fmt.Errorf("sqlitekv: delete %q in read-only transaction", key)
	}
	err := sqlitex.Execute(tx.conn, "DELETE FROM kv WHERE key = ?", &sqlitex.ExecOptions{
		Args: []any{key},
	})
	if err != nil {
		return fmt.Errorf("sqlitekv: delete %q: %w", key, err)
	}
	return nil
}

func (tx *transaction) Authoritative() bool {
	return tx.authoritative
}

// columnBytes copies a BLOB column. The statement's buffer is only
// valid until the next step. An empty value may be bound as NULL;
// both read back as an empty non-nil slice.
func columnBytes(stmt *sqlite.Stmt, column int) []byte {
	value := make([]byte, stmt.ColumnLen(column))
	stmt.ColumnBytes(column, value)
	return value
}
