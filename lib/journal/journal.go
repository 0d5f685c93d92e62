// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package journal

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/zeebo/blake3"
	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"

	"github.com/lpbme/club-validator/lib/clock"
	"github.com/lpbme/club-validator/lib/codec"
	"github.com/lpbme/club-validator/lib/sqlitepool"
	"github.com/lpbme/club-validator/lib/validation"
)

var migrations = []string{
	`CREATE TABLE entries (
		id            TEXT PRIMARY KEY,
		recorded_at   INTEGER NOT NULL,
		outcome       TEXT NOT NULL,
		reason        TEXT NOT NULL,
		resource_id   INTEGER NOT NULL,
		village_id    TEXT NOT NULL,
		village_name  TEXT NOT NULL,
		resource_name TEXT NOT NULL,
		adults        INTEGER NOT NULL,
		minors        INTEGER NOT NULL,
		discount      REAL,
		http_status   INTEGER NOT NULL,
		request_id    TEXT NOT NULL,
		token_digest  TEXT NOT NULL,
		response      BLOB
	);
	CREATE INDEX entries_recorded_at ON entries (recorded_at);`,
	`CREATE INDEX entries_token_digest ON entries (token_digest);`,
}

const entryColumns = `id, recorded_at, outcome, reason, resource_id, village_id,
	village_name, resource_name, adults, minors, discount, http_status,
	request_id, token_digest, response`

// Entry is one recorded attempt.
type Entry struct {
	ID           string             `cbor:"id" json:"id"`
	RecordedAt   time.Time          `cbor:"recorded_at" json:"recorded_at"`
	Outcome      validation.Outcome `cbor:"outcome" json:"outcome"`
	Reason       string             `cbor:"reason,omitempty" json:"reason,omitempty"`
	ResourceID   int64              `cbor:"resource_id" json:"resource_id"`
	VillageID    string             `cbor:"village_id,omitempty" json:"village_id,omitempty"`
	VillageName  string             `cbor:"village_name,omitempty" json:"village_name,omitempty"`
	ResourceName string             `cbor:"resource_name,omitempty" json:"resource_name,omitempty"`
	Adults       int                `cbor:"adults" json:"adults"`
	Minors       int                `cbor:"minors" json:"minors"`

	// Discount is nil when the server reported none.
	Discount *float64 `cbor:"discount,omitempty" json:"discount,omitempty"`

	HTTPStatus  int    `cbor:"http_status,omitempty" json:"http_status,omitempty"`
	RequestID   string `cbor:"request_id,omitempty" json:"request_id,omitempty"`
	TokenDigest string `cbor:"token_digest" json:"token_digest"`

	// Response is the decoded server body, nil for local rejections
	// and transport failures.
	Response map[string]any `cbor:"response,omitempty" json:"response,omitempty"`
}

// Filter selects entries for List, Summarize and Export. The zero
// Filter selects everything.
type Filter struct {
	// Since and Until bound RecordedAt as [Since, Until). Zero values
	// leave the bound open.
	Since time.Time
	Until time.Time

	// Outcome restricts to one outcome when non-empty.
	Outcome validation.Outcome

	// TokenDigest restricts to one card.
	TokenDigest string

	// Limit caps the number of entries, newest first. Zero means no
	// limit. Summarize ignores it.
	Limit int
}

// Summary counts entries by outcome. Adults and Minors add up the
// companions of VALID entries only.
type Summary struct {
	Total   int `json:"total"`
	Valid   int `json:"valid"`
	Invalid int `json:"invalid"`
	Error   int `json:"error"`
	Adults  int `json:"adults"`
	Minors  int `json:"minors"`
}

// Config configures Open.
type Config struct {
	Path   string
	Clock  clock.Clock
	Logger *slog.Logger
}

// Journal is a SQLite-backed attempt log. Safe for concurrent use.
type Journal struct {
	pool   *sqlitepool.Pool
	clock  clock.Clock
	logger *slog.Logger
}

// Open opens or creates the journal at cfg.Path.
func Open(ctx context.Context, cfg Config) (*Journal, error) {
	if cfg.Path == "" {
		return nil, errors.New("journal: Path is required")
	}
	if cfg.Clock == nil {
		cfg.Clock = clock.Real()
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.DiscardHandler)
	}

	pool, err := sqlitepool.Open(ctx, sqlitepool.Config{
		Path:       cfg.Path,
		Migrations: migrations,
		Logger:     cfg.Logger,
	})
	if err != nil {
		return nil, fmt.Errorf("journal: %w", err)
	}
	return &Journal{pool: pool, clock: cfg.Clock, logger: cfg.Logger}, nil
}

// Close closes the database.
func (j *Journal) Close() error {
	return j.pool.Close()
}

// TokenDigest returns the hex BLAKE3-256 digest under which a token is
// recorded.
func TokenDigest(token string) string {
	sum := blake3.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// RecordAttempt appends one attempt.
func (j *Journal) RecordAttempt(ctx context.Context, attempt validation.Attempt) error {
	result := attempt.Result
	entry := Entry{
		ID:           uuid.NewString(),
		RecordedAt:   result.At,
		Outcome:      result.Outcome,
		Reason:       result.Reason,
		ResourceID:   attempt.ResourceID,
		VillageID:    result.VillageID,
		VillageName:  result.VillageName,
		ResourceName: result.ResourceName,
		Adults:       result.Adults,
		Minors:       result.Minors,
		HTTPStatus:   result.HTTPStatus,
		TokenDigest:  TokenDigest(attempt.Token),
	}
	if entry.RecordedAt.IsZero() {
		entry.RecordedAt = j.clock.Now()
	}
	if result.HasDiscount {
		discount := result.Discount
		entry.Discount = &discount
	}
	if attempt.Response != nil {
		entry.RequestID = attempt.Response.RequestID
		if len(attempt.Response.Body) > 0 {
			entry.Response, _ = codec.FromJSON(attempt.Response.Body).(map[string]any)
		}
	}
	return j.insert(ctx, entry)
}

func (j *Journal) insert(ctx context.Context, entry Entry) error {
	var response any
	if entry.Response != nil {
		encoded, err := codec.Marshal(entry.Response)
		if err != nil {
			return fmt.Errorf("journal: encoding response: %w", err)
		}
		response = encoded
	}
	var discount any
	if entry.Discount != nil {
		discount = *entry.Discount
	}

	conn, err := j.pool.Take(ctx)
	if err != nil {
		return fmt.Errorf("journal: %w", err)
	}
	defer j.pool.Put(conn)

	err = sqlitex.Execute(conn, `INSERT INTO entries (`+entryColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`, &sqlitex.ExecOptions{
		Args: []any{
			entry.ID,
			entry.RecordedAt.UnixNano(),
			string(entry.Outcome),
			entry.Reason,
			entry.ResourceID,
			entry.VillageID,
			entry.VillageName,
			entry.ResourceName,
			entry.Adults,
			entry.Minors,
			discount,
			entry.HTTPStatus,
			entry.RequestID,
			entry.TokenDigest,
			response,
		},
	})
	if err != nil {
		return fmt.Errorf("journal: inserting entry: %w", err)
	}
	j.logger.Debug("attempt recorded",
		"id", entry.ID,
		"outcome", entry.Outcome,
		"resource_id", entry.ResourceID,
	)
	return nil
}

// List returns the entries selected by filter, newest first.
func (j *Journal) List(ctx context.Context, filter Filter) ([]Entry, error) {
	var entries []Entry
	err := j.each(ctx, filter, func(entry Entry) error {
		entries = append(entries, entry)
		return nil
	})
	return entries, err
}

// Summarize counts the entries selected by filter.
func (j *Journal) Summarize(ctx context.Context, filter Filter) (Summary, error) {
	where, args := filter.where()
	conn, err := j.pool.Take(ctx)
	if err != nil {
		return Summary{}, fmt.Errorf("journal: %w", err)
	}
	defer j.pool.Put(conn)

	var summary Summary
	err = sqlitex.Execute(conn, `SELECT outcome, COUNT(*), SUM(adults), SUM(minors)
		FROM entries`+where+` GROUP BY outcome`, &sqlitex.ExecOptions{
		Args: args,
		ResultFunc: func(stmt *sqlite.Stmt) error {
			count := stmt.ColumnInt(1)
			summary.Total += count
			switch validation.Outcome(stmt.ColumnText(0)) {
			case validation.Valid:
				summary.Valid += count
				summary.Adults += stmt.ColumnInt(2)
				summary.Minors += stmt.ColumnInt(3)
			case validation.Invalid:
				summary.Invalid += count
			default:
				summary.Error += count
			}
			return nil
		},
	})
	if err != nil {
		return Summary{}, fmt.Errorf("journal: summarizing: %w", err)
	}
	return summary, nil
}

// Tally summarizes entries already in memory, such as those read back
// from an export. It counts exactly as Summarize does.
func Tally(entries []Entry) Summary {
	var summary Summary
	for _, entry := range entries {
		summary.Total++
		switch entry.Outcome {
		case validation.Valid:
			summary.Valid++
			summary.Adults += entry.Adults
			summary.Minors += entry.Minors
		case validation.Invalid:
			summary.Invalid++
		default:
			summary.Error++
		}
	}
	return summary
}

// each streams the selected entries to visit, newest first. The
// connection is held for the whole scan.
func (j *Journal) each(ctx context.Context, filter Filter, visit func(Entry) error) error {
	where, args := filter.where()
	limit := -1
	if filter.Limit > 0 {
		limit = filter.Limit
	}
	args = append(args, limit)

	conn, err := j.pool.Take(ctx)
	if err != nil {
		return fmt.Errorf("journal: %w", err)
	}
	defer j.pool.Put(conn)

	err = sqlitex.Execute(conn, `SELECT `+entryColumns+` FROM entries`+where+`
		ORDER BY recorded_at DESC, id LIMIT ?`, &sqlitex.ExecOptions{
		Args: args,
		ResultFunc: func(stmt *sqlite.Stmt) error {
			if err := ctx.Err(); err != nil {
				return err
			}
			entry, err := scanEntry(stmt)
			if err != nil {
				return err
			}
			return visit(entry)
		},
	})
	if err != nil {
		return fmt.Errorf("journal: listing entries: %w", err)
	}
	return nil
}

func (f Filter) where() (string, []any) {
	var clauses []string
	var args []any
	if !f.Since.IsZero() {
		clauses = append(clauses, "recorded_at >= ?")
		args = append(args, f.Since.UnixNano())
	}
	if !f.Until.IsZero() {
		clauses = append(clauses, "recorded_at < ?")
		args = append(args, f.Until.UnixNano())
	}
	if f.Outcome != "" {
		clauses = append(clauses, "outcome = ?")
		args = append(args, string(f.Outcome))
	}
	if f.TokenDigest != "" {
		clauses = append(clauses, "token_digest = ?")
		args = append(args, f.TokenDigest)
	}
	if len(clauses) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

func scanEntry(stmt *sqlite.Stmt) (Entry, error) {
	entry := Entry{
		ID:           stmt.ColumnText(0),
		RecordedAt:   time.Unix(0, stmt.ColumnInt64(1)),
		Outcome:      validation.Outcome(stmt.ColumnText(2)),
		Reason:       stmt.ColumnText(3),
		ResourceID:   stmt.ColumnInt64(4),
		VillageID:    stmt.ColumnText(5),
		VillageName:  stmt.ColumnText(6),
		ResourceName: stmt.ColumnText(7),
		Adults:       stmt.ColumnInt(8),
		Minors:       stmt.ColumnInt(9),
		HTTPStatus:   stmt.ColumnInt(11),
		RequestID:    stmt.ColumnText(12),
		TokenDigest:  stmt.ColumnText(13),
	}
	if stmt.ColumnType(10) != sqlite.TypeNull {
		discount := stmt.ColumnFloat(10)
		entry.Discount = &discount
	}
	if stmt.ColumnType(14) != sqlite.TypeNull {
		raw := make([]byte, stmt.ColumnLen(14))
		stmt.ColumnBytes(14, raw)
		if err := codec.Unmarshal(raw, &entry.Response); err != nil {
			return Entry{}, fmt.Errorf("journal: entry %s: decoding response: %w", entry.ID, err)
		}
	}
	return entry, nil
}
