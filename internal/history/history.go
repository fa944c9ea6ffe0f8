// Package history defines the dispatch-history contract. The SQLite-backed
// implementation lives in modules/history/sqlite.
package history

import (
	"context"
	"time"
)

// Entry records one dispatched notification.
type Entry struct {
	ID           int64     `json:"id"`
	Keyword      string    `json:"keyword"`
	ChatID       int64     `json:"chat_id"`
	ChatTitle    string    `json:"chat_title,omitempty"`
	MessageID    int64     `json:"message_id"`
	DispatchedAt time.Time `json:"dispatched_at"`
}

// KeywordCount is an aggregate of dispatches per keyword.
type KeywordCount struct {
	Keyword string `json:"keyword"`
	Count   int64  `json:"count"`
}

// Store persists dispatch history. Implementations must be safe for
// concurrent use; writes are best-effort from the pipeline's perspective
// and must never block dispatching.
type Store interface {
	// Record inserts a dispatch entry. DispatchedAt defaults to now when zero.
	Record(ctx context.Context, e Entry) error

	// Recent returns up to limit entries, newest first.
	Recent(ctx context.Context, limit int) ([]Entry, error)

	// CountByKeyword aggregates dispatches since the given time,
	// ordered by descending count.
	CountByKeyword(ctx context.Context, since time.Time) ([]KeywordCount, error)
}
