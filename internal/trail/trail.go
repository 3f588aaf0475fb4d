// Package trail provides the append-only audit trail.
//
// Every consequential step of an audit run - inputs loaded, results
// computed, artifacts exported - is recorded as an event in SQLite. Events
// form a SHA-256 hash chain: each event's hash covers its own payload and
// the previous event's hash, so any retroactive edit breaks verification
// from that point forward. The trail is append-only by construction; there
// is no update or delete path.
package trail

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

//go:embed schema.sql
var schemaSQL string

// Trail is an append-only, hash-chained event log backed by SQLite.
type Trail struct {
	db *sql.DB

	// now is the clock; overridable in tests for deterministic chains.
	now func() time.Time
}

// Open creates or opens the trail database at path. Use ":memory:" for an
// ephemeral trail in tests.
//
// The database is configured with:
//   - WAL mode for concurrent read access
//   - NORMAL synchronous mode (balance durability/performance)
//   - 5-second busy timeout for lock contention
//
// Idempotent - safe to call on an existing trail.
func Open(path string) (*Trail, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open trail database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to trail database: %w", err)
	}

	// SQLite supports one writer at a time; a single connection avoids
	// SQLITE_BUSY on the append path.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}

	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply trail schema: %w", err)
	}

	return &Trail{db: db, now: time.Now}, nil
}

// Close closes the underlying database.
func (t *Trail) Close() error {
	if t.db == nil {
		return nil
	}
	return t.db.Close()
}

// Event is one audit-trail record.
type Event struct {
	// Seq is the chain position, assigned on append.
	Seq int64

	// RunID groups the events of one audit invocation.
	RunID string

	// RecordedAt is the RFC 3339 UTC timestamp, assigned on append.
	RecordedAt string

	// Actor identifies who or what performed the action.
	Actor string

	// Action is the verb ("audit", "export", "ingest", ...).
	Action string

	// RecordType and RecordID identify the touched artifact.
	RecordType string
	RecordID   string

	// Payload is the canonical-JSON detail blob (typically a digest of
	// the artifact, never the artifact itself).
	Payload string

	// PrevHash and ThisHash are the chain links.
	PrevHash string
	ThisHash string
}

// Append records an event at the end of the chain and returns it with Seq,
// RecordedAt, PrevHash and ThisHash filled in.
//
// The head read and the insert run in one transaction, so concurrent
// appenders cannot link to the same predecessor and fork the chain.
func (t *Trail) Append(ctx context.Context, ev Event) (Event, error) {
	tx, err := t.db.BeginTx(ctx, nil)
	if err != nil {
		return Event{}, fmt.Errorf("append trail event: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	prev, err := lastHash(ctx, tx)
	if err != nil {
		return Event{}, fmt.Errorf("append trail event: %w", err)
	}

	ev.RecordedAt = t.now().UTC().Format(time.RFC3339Nano)
	ev.PrevHash = prev
	ev.ThisHash, err = eventHash(ev)
	if err != nil {
		return Event{}, fmt.Errorf("append trail event: %w", err)
	}

	res, err := tx.ExecContext(ctx, `
		INSERT INTO trail_events
		(run_id, recorded_at, actor, action, record_type, record_id, payload, prev_hash, this_hash)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		ev.RunID,
		ev.RecordedAt,
		ev.Actor,
		ev.Action,
		ev.RecordType,
		ev.RecordID,
		ev.Payload,
		ev.PrevHash,
		ev.ThisHash,
	)
	if err != nil {
		return Event{}, fmt.Errorf("append trail event: %w", err)
	}

	ev.Seq, err = res.LastInsertId()
	if err != nil {
		return Event{}, fmt.Errorf("append trail event: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return Event{}, fmt.Errorf("append trail event: commit: %w", err)
	}
	return ev, nil
}

// Events returns the full chain in append order.
func (t *Trail) Events(ctx context.Context) ([]Event, error) {
	rows, err := t.db.QueryContext(ctx, `
		SELECT seq, run_id, recorded_at, actor, action, record_type, record_id, payload, prev_hash, this_hash
		FROM trail_events
		ORDER BY seq
	`)
	if err != nil {
		return nil, fmt.Errorf("read trail events: %w", err)
	}
	defer rows.Close()

	var out []Event
	for rows.Next() {
		var ev Event
		if err := rows.Scan(
			&ev.Seq, &ev.RunID, &ev.RecordedAt, &ev.Actor, &ev.Action,
			&ev.RecordType, &ev.RecordID, &ev.Payload, &ev.PrevHash, &ev.ThisHash,
		); err != nil {
			return nil, fmt.Errorf("read trail events: %w", err)
		}
		out = append(out, ev)
	}
	return out, rows.Err()
}

// lastHash returns the most recent this_hash, or "" for an empty chain.
func lastHash(ctx context.Context, tx *sql.Tx) (string, error) {
	var h string
	err := tx.QueryRowContext(ctx,
		"SELECT this_hash FROM trail_events ORDER BY seq DESC LIMIT 1",
	).Scan(&h)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return h, nil
}
