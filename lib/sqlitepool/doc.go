// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package sqlitepool opens SQLite databases with the settings every
// ydocsync store expects.
//
// It wraps zombiezen.com/go/sqlite's sqlitex.Pool. Callers either
// [Pool.Take] a connection and [Pool.Put] it back, or use
// [Pool.Read] and [Pool.Write], which borrow a connection and run a
// function inside a transaction. Connections are not safe for
// concurrent use; each goroutine holds its own.
//
// # Pragmas
//
// Every connection is initialized with:
//
//   - journal_mode=WAL: readers see a consistent snapshot while a
//     writer commits.
//   - synchronous: NORMAL by default, FULL when [Config.Durable] is
//     set. Document state is the source of truth, so deployments that
//     cannot replay client updates after a power failure should set it.
//   - busy_timeout=5000: wait for the write lock instead of returning
//     SQLITE_BUSY.
//   - cache_size=-8192: 8 MB page cache per connection.
//   - temp_store=MEMORY.
//
// # Usage
//
//	pool, err := sqlitepool.Open(sqlitepool.Config{
//	    Path:      "/var/lib/ydocsync/docs.db",
//	    Logger:    logger,
//	    OnConnect: createSchema,
//	})
//	if err != nil {
//	    return err
//	}
//	defer pool.Close()
//
//	err = pool.Write(ctx, func(conn *sqlite.Conn) error {
//	    return sqlitex.Execute(conn, "INSERT ...", nil)
//	})
package sqlitepool
