package storage

import (
	"context"
	"time"

	"leetbot/internal/catalog"
)

// Config configures the sqlite store.
type Config struct {
	Path        string
	BusyTimeout time.Duration // 0 means default
}

// Store is the persistence API used by the selector and the app.
//
// MarkSent and RecordBatch are the individual ledger operations;
// CommitBatch runs both (three sent rows + the batch row) in a single
// transaction and is the only write path the daily cycle uses.
type Store interface {
	// AddProblem inserts p if its leetcode_id is unseen and returns the
	// local row id. Re-adding an existing leetcode_id is a no-op that
	// returns the existing id; the stored title/url are not touched.
	AddProblem(ctx context.Context, p catalog.Problem) (int64, error)

	// UnsentProblems returns every problem of the tier with no sent record.
	UnsentProblems(ctx context.Context, tier catalog.Tier) ([]catalog.Problem, error)

	// MarkSent appends a sent record. It is not self-idempotent; callers
	// guarantee a problem is marked at most once.
	MarkSent(ctx context.Context, problemID int64, tier catalog.Tier, day catalog.Day) error

	// RecordBatch upserts the daily batch row for day.
	RecordBatch(ctx context.Context, day catalog.Day, easyID, mediumID, hardID int64) error

	// CommitBatch marks all three problems sent and records the batch row
	// atomically. Either everything lands or nothing does.
	CommitBatch(ctx context.Context, b *catalog.Batch) error

	// BatchSentOn reports whether a batch row exists for day.
	BatchSentOn(ctx context.Context, day catalog.Day) (bool, error)

	// CountByTier and SentCountByTier feed the stats report.
	CountByTier(ctx context.Context) (map[catalog.Tier]int, error)
	SentCountByTier(ctx context.Context) (map[catalog.Tier]int, error)

	Close() error
}
