// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package sqlitepool opens the kiosk's local SQLite databases.
//
// It wraps zombiezen.com/go/sqlite's sqlitex.Pool with the pragmas a
// kiosk needs and a small ordered migration list tracked through
// PRAGMA user_version. Callers [Pool.Take] a connection, do their work
// and [Pool.Put] it back. Connections are not safe for concurrent use.
//
// # Pragmas
//
//   - journal_mode=WAL: the TUI can list entries while a scan is being
//     recorded.
//   - synchronous=FULL: kiosks lose power without warning, and an
//     audit row that vanished on reboot is worse than a slower commit.
//   - busy_timeout=5000: wait for the write lock instead of failing
//     with SQLITE_BUSY.
//   - temp_store=MEMORY.
//
// # Usage
//
//	pool, err := sqlitepool.Open(sqlitepool.Config{
//	    Path:       path,
//	    Logger:     logger,
//	    Migrations: []string{schemaV1, schemaV2},
//	})
//	if err != nil {
//	    return err
//	}
//	defer pool.Close()
//
//	conn, err := pool.Take(ctx)
//	if err != nil {
//	    return err
//	}
//	defer pool.Put(conn)
package sqlitepool
