package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/edumag/edumag/internal/session"
)

var _ session.Recorder = (*DB)(nil)

// RecordSession stores a finished session. A record without an ID is
// given a fresh one.
func (db *DB) RecordSession(ctx context.Context, rec session.Record) error {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	_, err := db.ExecContext(ctx,
		`INSERT INTO sessions (session_id, kind, started_unix, ended_unix, score, detail)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.Kind.String(), rec.Started.UnixNano(), rec.Ended.UnixNano(), rec.Score, rec.Detail,
	)
	if err != nil {
		return fmt.Errorf("failed to record session %s: %w", rec.ID, err)
	}
	return nil
}

// RecentSessions returns up to limit sessions, most recently ended first.
func (db *DB) RecentSessions(ctx context.Context, limit int) ([]session.Record, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := db.QueryContext(ctx,
		`SELECT session_id, kind, started_unix, ended_unix, score, detail
		 FROM sessions
		 ORDER BY ended_unix DESC, rowid DESC
		 LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query sessions: %w", err)
	}
	defer rows.Close()

	var out []session.Record
	for rows.Next() {
		var (
			rec            session.Record
			kind           string
			started, ended int64
		)
		if err := rows.Scan(&rec.ID, &kind, &started, &ended, &rec.Score, &rec.Detail); err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}
		if rec.Kind, err = session.ParseKind(kind); err != nil {
			return nil, fmt.Errorf("session %s: %w", rec.ID, err)
		}
		rec.Started = time.Unix(0, started).UTC()
		rec.Ended = time.Unix(0, ended).UTC()
		out = append(out, rec)
	}
	return out, rows.Err()
}

// BestScore returns the highest score recorded for kind, and false when
// no session of that kind has been played.
func (db *DB) BestScore(ctx context.Context, kind session.Kind) (int, bool, error) {
	var best sql.NullInt64
	err := db.QueryRowContext(ctx,
		`SELECT MAX(score) FROM sessions WHERE kind = ?`, kind.String()).Scan(&best)
	if err != nil {
		return 0, false, fmt.Errorf("failed to query best score: %w", err)
	}
	return int(best.Int64), best.Valid, nil
}
