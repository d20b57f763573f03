package storage

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite"

	"leetbot/internal/catalog"
	logx "leetbot/pkg/logx"
)

//go:embed migrations.sql
var migrationsFS embed.FS

type sqliteStore struct {
	db  *sql.DB
	log logx.Logger
}

// Open opens (or creates) the sqlite catalog store at cfg.Path and runs
// migrations.
func Open(cfg Config, log logx.Logger) (Store, error) {
	if strings.TrimSpace(cfg.Path) == "" {
		return nil, errors.New("sqlite path is required")
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	if dir := filepath.Dir(cfg.Path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}

	db, err := sql.Open("sqlite", cfg.Path)
	if err != nil {
		return nil, err
	}
	// SQLite prefers a small number of concurrent writers.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	st := &sqliteStore{db: db, log: log}

	// Basic pragmas.
	if cfg.BusyTimeout > 0 {
		ms := cfg.BusyTimeout.Milliseconds()
		_, _ = db.Exec(fmt.Sprintf("PRAGMA busy_timeout = %d", ms))
	}
	_, _ = db.Exec("PRAGMA journal_mode = WAL")
	_, _ = db.Exec("PRAGMA synchronous = NORMAL")

	if err := st.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return st, nil
}

func (s *sqliteStore) migrate(ctx context.Context) error {
	b, err := migrationsFS.ReadFile("migrations.sql")
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, string(b))
	return err
}

func (s *sqliteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *sqliteStore) AddProblem(ctx context.Context, p catalog.Problem) (int64, error) {
	// Duplicates are expected: a refresh re-fetches the whole catalog.
	// DO NOTHING keeps first-write-wins for title/url.
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO problems(leetcode_id, title, tier, url) VALUES(?,?,?,?)
		 ON CONFLICT(leetcode_id) DO NOTHING`,
		p.LeetCodeID, p.Title, string(p.Tier), p.URL,
	)
	if err != nil {
		return 0, err
	}
	if n, err := res.RowsAffected(); err == nil && n > 0 {
		return res.LastInsertId()
	}
	var id int64
	err = s.db.QueryRowContext(ctx,
		`SELECT id FROM problems WHERE leetcode_id = ?`, p.LeetCodeID,
	).Scan(&id)
	if err != nil {
		return 0, err
	}
	return id, nil
}

func (s *sqliteStore) UnsentProblems(ctx context.Context, tier catalog.Tier) ([]catalog.Problem, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT p.id, p.leetcode_id, p.title, p.tier, p.url
		 FROM problems p
		 LEFT JOIN sent_problems sp ON p.id = sp.problem_id
		 WHERE p.tier = ? AND sp.id IS NULL
		 ORDER BY p.id`,
		string(tier),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []catalog.Problem
	for rows.Next() {
		var p catalog.Problem
		var t string
		if err := rows.Scan(&p.ID, &p.LeetCodeID, &p.Title, &t, &p.URL); err != nil {
			return nil, err
		}
		p.Tier = catalog.Tier(t)
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *sqliteStore) MarkSent(ctx context.Context, problemID int64, tier catalog.Tier, day catalog.Day) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO sent_problems(problem_id, sent_on, tier) VALUES(?,?,?)`,
		problemID, string(day), string(tier),
	)
	return err
}

func (s *sqliteStore) RecordBatch(ctx context.Context, day catalog.Day, easyID, mediumID, hardID int64) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO daily_batches(sent_on, easy_id, medium_id, hard_id) VALUES(?,?,?,?)
		 ON CONFLICT(sent_on) DO UPDATE SET
		   easy_id=excluded.easy_id, medium_id=excluded.medium_id, hard_id=excluded.hard_id`,
		string(day), easyID, mediumID, hardID,
	)
	return err
}

func (s *sqliteStore) CommitBatch(ctx context.Context, b *catalog.Batch) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	for tier, p := range map[catalog.Tier]catalog.Problem{
		catalog.TierEasy:   b.Easy,
		catalog.TierMedium: b.Medium,
		catalog.TierHard:   b.Hard,
	} {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO sent_problems(problem_id, sent_on, tier) VALUES(?,?,?)`,
			p.ID, string(b.Day), string(tier),
		); err != nil {
			return err
		}
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO daily_batches(sent_on, easy_id, medium_id, hard_id) VALUES(?,?,?,?)
		 ON CONFLICT(sent_on) DO UPDATE SET
		   easy_id=excluded.easy_id, medium_id=excluded.medium_id, hard_id=excluded.hard_id`,
		string(b.Day), b.Easy.ID, b.Medium.ID, b.Hard.ID,
	); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *sqliteStore) BatchSentOn(ctx context.Context, day catalog.Day) (bool, error) {
	var id int64
	err := s.db.QueryRowContext(ctx,
		`SELECT id FROM daily_batches WHERE sent_on = ?`, string(day),
	).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (s *sqliteStore) CountByTier(ctx context.Context) (map[catalog.Tier]int, error) {
	return s.countGrouped(ctx, `SELECT tier, COUNT(*) FROM problems GROUP BY tier`)
}

func (s *sqliteStore) SentCountByTier(ctx context.Context) (map[catalog.Tier]int, error) {
	return s.countGrouped(ctx, `SELECT tier, COUNT(*) FROM sent_problems GROUP BY tier`)
}

func (s *sqliteStore) countGrouped(ctx context.Context, q string) (map[catalog.Tier]int, error) {
	rows, err := s.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := map[catalog.Tier]int{}
	for rows.Next() {
		var tier string
		var n int
		if err := rows.Scan(&tier, &n); err != nil {
			return nil, err
		}
		out[catalog.Tier(tier)] = n
	}
	return out, rows.Err()
}
