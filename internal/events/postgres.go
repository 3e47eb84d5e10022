package events

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/lib/pq"

	txcontext "mintpress/pkg/platform/tx"
)

// PostgresLog stores events in ledger_events. Append joins the caller's
// transaction when one is in the context, which is how the ledger store
// gets outbox semantics.
type PostgresLog struct {
	db *sql.DB
}

// NewPostgresLog constructs a PostgreSQL-backed Log and Outbox.
func NewPostgresLog(db *sql.DB) *PostgresLog {
	return &PostgresLog{db: db}
}

// Append assigns the next sequence number from the events counter row. The
// row lock orders appends by commit, so subscribers paging by seq never skip.
func (l *PostgresLog) Append(ctx context.Context, event Event) (Event, error) {
	exec := txcontext.ExecutorFrom(ctx, l.db)
	var seq uint64
	err := exec.QueryRowContext(ctx,
		`UPDATE ledger_counters SET value = value + 1 WHERE name = 'events' RETURNING value`,
	).Scan(&seq)
	if err != nil {
		return Event{}, fmt.Errorf("next event seq: %w", err)
	}
	event.Seq = seq
	payload, err := json.Marshal(event)
	if err != nil {
		return Event{}, fmt.Errorf("marshal event: %w", err)
	}
	_, err = exec.ExecContext(ctx, `
		INSERT INTO ledger_events (seq, id, type, payload, occurred_at)
		VALUES ($1, $2, $3, $4, $5)
	`, seq, event.ID, string(event.Type), payload, event.OccurredAt)
	if err != nil {
		return Event{}, fmt.Errorf("insert event: %w", err)
	}
	return event, nil
}

func (l *PostgresLog) List(ctx context.Context, afterSeq uint64, limit int) ([]Event, error) {
	rows, err := l.db.QueryContext(ctx, `
		SELECT payload FROM ledger_events
		WHERE seq > $1
		ORDER BY seq
		LIMIT $2
	`, afterSeq, limit)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()
	return scanEvents(rows)
}

func (l *PostgresLog) Unpublished(ctx context.Context, limit int) ([]Event, error) {
	rows, err := l.db.QueryContext(ctx, `
		SELECT payload FROM ledger_events
		WHERE published_at IS NULL
		ORDER BY seq
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("query unpublished events: %w", err)
	}
	defer rows.Close()
	return scanEvents(rows)
}

func (l *PostgresLog) MarkPublished(ctx context.Context, seqs []uint64) error {
	if len(seqs) == 0 {
		return nil
	}
	ids := make([]int64, len(seqs))
	for i, s := range seqs {
		ids[i] = int64(s)
	}
	_, err := l.db.ExecContext(ctx,
		`UPDATE ledger_events SET published_at = now() WHERE seq = ANY($1) AND published_at IS NULL`,
		pq.Array(ids),
	)
	if err != nil {
		return fmt.Errorf("mark events published: %w", err)
	}
	return nil
}

func scanEvents(rows *sql.Rows) ([]Event, error) {
	out := []Event{}
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		var e Event
		if err := json.Unmarshal(payload, &e); err != nil {
			return nil, fmt.Errorf("decode event: %w", err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate events: %w", err)
	}
	return out, nil
}
