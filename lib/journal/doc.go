// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package journal keeps a local audit trail of validation attempts.
//
// Every finished attempt, valid or not, becomes one row in a SQLite
// database opened through lib/sqlitepool. The raw QR token is never
// stored: rows carry a BLAKE3 digest of it, which is enough to spot a
// card scanned twice without keeping anything a third party could
// replay. The server's decoded answer is kept as CBOR next to the
// columns the operator filters on.
//
// [Journal.Export] writes a portable CBOR sequence (a header followed
// by one item per entry) optionally compressed with lz4 or zstd and
// optionally encrypted to age recipients. [ReadExport] reverses the
// layers, detecting compression and encryption from the stream itself.
//
// A *Journal satisfies validation.Recorder.
package journal
