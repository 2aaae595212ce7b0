package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/abhisek/ecoloop/internal/events"
)

// sequenceCounter manages the global monotonic sequence number assigned to
// every logged event, so events of all types and users share one order.
// The mutex serializes within the process; the RETURNING clause makes the
// increment atomic at the database level.
type sequenceCounter struct {
	mu sync.Mutex
}

// newSequenceCounter creates a counter and ensures the tracking table exists.
func newSequenceCounter(db *sql.DB) (*sequenceCounter, error) {
	_, err := db.Exec(`CREATE TABLE IF NOT EXISTS global_sequence (
		id INTEGER PRIMARY KEY CHECK (id = 1),
		next_val INTEGER NOT NULL DEFAULT 1
	)`)
	if err != nil {
		return nil, fmt.Errorf("create sequence table: %w", err)
	}

	_, err = db.Exec(`INSERT OR IGNORE INTO global_sequence (id, next_val) VALUES (1, 1)`)
	if err != nil {
		return nil, fmt.Errorf("seed sequence: %w", err)
	}

	return &sequenceCounter{}, nil
}

// Next atomically returns the next sequence number and increments the
// counter as part of q's transaction.
func (sc *sequenceCounter) Next(ctx context.Context, q queryRower) (int64, error) {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	var seq int64
	err := q.QueryRowContext(ctx,
		`UPDATE global_sequence SET next_val = next_val + 1 WHERE id = 1 RETURNING next_val - 1`,
	).Scan(&seq)
	if err != nil {
		return 0, fmt.Errorf("next sequence: %w", err)
	}
	return seq, nil
}

// QueryOpts configures event queries with filtering and pagination.
type QueryOpts struct {
	UserID string      // empty = all users
	Type   events.Type // empty = all types
	Limit  int         // max results (0 = unlimited)
	After  int64       // sequence > After
}

// EventRecord is one logged event.
type EventRecord struct {
	Sequence   int64
	OccurredAt time.Time
	Event      events.Event
}

// EventRepo is an append-only log of progression events. It implements
// events.Sink.
type EventRepo struct {
	db  *sql.DB
	seq *sequenceCounter

	// Now stamps appended events. Defaults to time.Now.
	Now func() time.Time
}

// Publish appends e to the log.
func (r *EventRepo) Publish(ctx context.Context, e events.Event) error {
	now := time.Now
	if r.Now != nil {
		now = r.Now
	}
	env, err := events.Encode(e, now())
	if err != nil {
		return err
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	seq, err := r.seq.Next(ctx, tx)
	if err != nil {
		return err
	}
	_, err = tx.ExecContext(ctx,
		`INSERT INTO events(sequence, type, user_id, level_id, occurred_at, payload) VALUES(?,?,?,?,?,?)`,
		seq, string(env.Type), e.User(), e.Level(), env.OccurredAt.Format(timeLayout), string(env.Payload),
	)
	if err != nil {
		return fmt.Errorf("insert event: %w", err)
	}
	return tx.Commit()
}

// Query returns logged events in sequence order.
func (r *EventRepo) Query(ctx context.Context, opts QueryOpts) ([]EventRecord, error) {
	var (
		where []string
		args  []any
	)
	where = append(where, "sequence > ?")
	args = append(args, opts.After)
	if opts.UserID != "" {
		where = append(where, "user_id = ?")
		args = append(args, opts.UserID)
	}
	if opts.Type != "" {
		where = append(where, "type = ?")
		args = append(args, string(opts.Type))
	}

	query := `SELECT sequence, type, occurred_at, payload FROM events WHERE ` +
		strings.Join(where, " AND ") + ` ORDER BY sequence ASC`
	if opts.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, opts.Limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	var out []EventRecord
	for rows.Next() {
		var (
			rec        EventRecord
			typ        string
			occurredAt string
			payload    string
		)
		if err := rows.Scan(&rec.Sequence, &typ, &occurredAt, &payload); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		rec.OccurredAt, err = time.Parse(timeLayout, occurredAt)
		if err != nil {
			return nil, fmt.Errorf("parse occurred_at: %w", err)
		}
		rec.Event, err = events.Decode(events.Envelope{
			Type:       events.Type(typ),
			OccurredAt: rec.OccurredAt,
			Payload:    json.RawMessage(payload),
		})
		if err != nil {
			return nil, fmt.Errorf("event %d: %w", rec.Sequence, err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}
