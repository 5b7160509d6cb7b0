// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package sqlitepool_test

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"

	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"

	"github.com/bureau-foundation/ydocsync/lib/sqlitepool"
)

const numbersSchema = `CREATE TABLE IF NOT EXISTS numbers (value INTEGER NOT NULL);`

func openTestPool(t *testing.T, cfg sqlitepool.Config) *sqlitepool.Pool {
	t.Helper()
	cfg.Path = filepath.Join(t.TempDir(), "test.db")
	if cfg.PoolSize == 0 {
		cfg.PoolSize = 4
	}
	pool, err := sqlitepool.Open(cfg)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() {
		if err := pool.Close(); err != nil {
			t.Errorf("Close: %v", err)
		}
	})
	return pool
}

func createNumbers(conn *sqlite.Conn) error {
	return sqlitex.ExecuteScript(conn, numbersSchema, nil)
}

func pragmaInt(t *testing.T, conn *sqlite.Conn, pragma string) int {
	t.Helper()
	var value int
	err := sqlitex.Execute(conn, "PRAGMA "+pragma, &sqlitex.ExecOptions{
		ResultFunc: func(stmt *sqlite.Stmt) error {
			value = stmt.ColumnInt(0)
			return nil
		},
	})
	if err != nil {
		t.Fatalf("PRAGMA %s: %v", pragma, err)
	}
	return value
}

func sumNumbers(conn *sqlite.Conn) (int64, error) {
	var sum int64
	err := sqlitex.Execute(conn, "SELECT value FROM numbers", &sqlitex.ExecOptions{
		ResultFunc: func(stmt *sqlite.Stmt) error {
			sum += stmt.ColumnInt64(0)
			return nil
		},
	})
	return sum, err
}

func TestPragmas(t *testing.T) {
	for _, test := range []struct {
		name        string
		durable     bool
		synchronous int
	}{
		{name: "normal", durable: false, synchronous: 1},
		{name: "durable", durable: true, synchronous: 2},
	} {
		t.Run(test.name, func(t *testing.T) {
			pool := openTestPool(t, sqlitepool.Config{Durable: test.durable})

			conn, err := pool.Take(context.Background())
			if err != nil {
				t.Fatalf("Take: %v", err)
			}
			defer pool.Put(conn)

			var journalMode string
			err = sqlitex.Execute(conn, "PRAGMA journal_mode", &sqlitex.ExecOptions{
				ResultFunc: func(stmt *sqlite.Stmt) error {
					journalMode = stmt.ColumnText(0)
					return nil
				},
			})
			if err != nil {
				t.Fatalf("PRAGMA journal_mode: %v", err)
			}
			if journalMode != "wal" {
				t.Errorf("journal_mode = %q, want wal", journalMode)
			}
			if got := pragmaInt(t, conn, "synchronous"); got != test.synchronous {
				t.Errorf("synchronous = %d, want %d", got, test.synchronous)
			}
			if got := pragmaInt(t, conn, "busy_timeout"); got != 5000 {
				t.Errorf("busy_timeout = %d, want 5000", got)
			}
		})
	}
}

func TestOnConnect(t *testing.T) {
	var called bool
	pool := openTestPool(t, sqlitepool.Config{
		OnConnect: func(conn *sqlite.Conn) error {
			called = true
			return createNumbers(conn)
		},
	})

	err := pool.Write(context.Background(), func(conn *sqlite.Conn) error {
		return sqlitex.Execute(conn, "INSERT INTO numbers (value) VALUES (?)", &sqlitex.ExecOptions{
			Args: []any{7},
		})
	})
	if err != nil {
		t.Fatalf("Write: %v", err)
	}
	if !called {
		t.Error("OnConnect was not called")
	}
}

func TestWriteCommitsOrRollsBack(t *testing.T) {
	pool := openTestPool(t, sqlitepool.Config{OnConnect: createNumbers})
	ctx := context.Background()

	err := pool.Write(ctx, func(conn *sqlite.Conn) error {
		return sqlitex.ExecuteScript(conn, "INSERT INTO numbers (value) VALUES (1), (2);", nil)
	})
	if err != nil {
		t.Fatalf("Write: %v", err)
	}

	failure := errors.New("abandon")
	err = pool.Write(ctx, func(conn *sqlite.Conn) error {
		if err := sqlitex.ExecuteScript(conn, "INSERT INTO numbers (value) VALUES (100);", nil); err != nil {
			return err
		}
		return failure
	})
	if !errors.Is(err, failure) {
		t.Fatalf("Write returned %v, want the function's error", err)
	}

	var sum int64
	err = pool.Read(ctx, func(conn *sqlite.Conn) error {
		var err error
		sum, err = sumNumbers(conn)
		return err
	})
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if sum != 3 {
		t.Errorf("sum = %d after rolled-back write, want 3", sum)
	}
}

func TestConcurrentReads(t *testing.T) {
	pool := openTestPool(t, sqlitepool.Config{PoolSize: 8, OnConnect: createNumbers})

	err := pool.Write(context.Background(), func(conn *sqlite.Conn) error {
		return sqlitex.ExecuteScript(conn, "INSERT INTO numbers (value) VALUES (1), (2), (3), (4), (5);", nil)
	})
	if err != nil {
		t.Fatalf("Write: %v", err)
	}

	const goroutineCount = 8
	var waitGroup sync.WaitGroup
	failures := make(chan error, goroutineCount)

	for range goroutineCount {
		waitGroup.Add(1)
		go func() {
			defer waitGroup.Done()
			err := pool.Read(context.Background(), func(conn *sqlite.Conn) error {
				sum, err := sumNumbers(conn)
				if err != nil {
					return err
				}
				if sum != 15 {
					return fmt.Errorf("sum = %d, want 15", sum)
				}
				return nil
			})
			if err != nil {
				failures <- err
			}
		}()
	}

	waitGroup.Wait()
	close(failures)
	for err := range failures {
		t.Error(err)
	}
}

func TestEmptyPathRejected(t *testing.T) {
	if _, err := sqlitepool.Open(sqlitepool.Config{}); err == nil {
		t.Fatal("expected error for empty Path")
	}
}
