package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/flemzord/promowatch/internal/history"
)

// timeLayout is the stored timestamp format. UTC with fixed precision so
// lexicographic ordering matches chronological ordering.
const timeLayout = "2006-01-02T15:04:05.000Z"

// dispatchStore implements history.Store backed by SQLite.
type dispatchStore struct {
	db *sql.DB
}

// Record inserts a dispatch entry. DispatchedAt defaults to now when zero.
func (s *dispatchStore) Record(ctx context.Context, e history.Entry) error {
	at := e.DispatchedAt
	if at.IsZero() {
		at = time.Now()
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO dispatches (keyword, chat_id, chat_title, message_id, dispatched_at)
		 VALUES (?, ?, ?, ?, ?)`,
		e.Keyword, e.ChatID, e.ChatTitle, e.MessageID, at.UTC().Format(timeLayout),
	)
	if err != nil {
		return fmt.Errorf("sqlite: record dispatch: %w", err)
	}
	return nil
}

// Recent returns up to limit entries, newest first.
func (s *dispatchStore) Recent(ctx context.Context, limit int) ([]history.Entry, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, keyword, chat_id, chat_title, message_id, dispatched_at
		 FROM dispatches
		 ORDER BY id DESC
		 LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("sqlite: query recent dispatches: %w", err)
	}
	defer rows.Close()

	var entries []history.Entry
	for rows.Next() {
		var e history.Entry
		var at string
		if err := rows.Scan(&e.ID, &e.Keyword, &e.ChatID, &e.ChatTitle, &e.MessageID, &at); err != nil {
			return nil, fmt.Errorf("sqlite: scan dispatch row: %w", err)
		}
		e.DispatchedAt, err = time.Parse(timeLayout, at)
		if err != nil {
			return nil, fmt.Errorf("sqlite: parse dispatched_at %q: %w", at, err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterate dispatch rows: %w", err)
	}
	return entries, nil
}

// CountByKeyword aggregates dispatches since the given time, ordered by
// descending count.
func (s *dispatchStore) CountByKeyword(ctx context.Context, since time.Time) ([]history.KeywordCount, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT keyword, COUNT(*) AS n
		 FROM dispatches
		 WHERE dispatched_at >= ?
		 GROUP BY keyword
		 ORDER BY n DESC, keyword ASC`,
		since.UTC().Format(timeLayout))
	if err != nil {
		return nil, fmt.Errorf("sqlite: count dispatches: %w", err)
	}
	defer rows.Close()

	var counts []history.KeywordCount
	for rows.Next() {
		var kc history.KeywordCount
		if err := rows.Scan(&kc.Keyword, &kc.Count); err != nil {
			return nil, fmt.Errorf("sqlite: scan count row: %w", err)
		}
		counts = append(counts, kc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterate count rows: %w", err)
	}
	return counts, nil
}
