package out

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"engagectl/internal/modules/engagement/domain"
	"engagectl/internal/platform/sqlitedb"
	"engagectl/internal/platform/tx"
)

const timeLayout = "2006-01-02T15:04:05.000Z07:00"

// SQLiteRunStore keeps one row per run and one row per action outcome. Runs
// appear as soon as their first outcome is recorded and are finalized by SaveRun.
type SQLiteRunStore struct {
	db *sql.DB
	tx tx.Manager
}

func NewSQLiteRunStore(dbPath string) (*SQLiteRunStore, error) {
	db, err := sqlitedb.Open(dbPath)
	if err != nil {
		return nil, err
	}
	store := &SQLiteRunStore{db: db, tx: tx.NewSQLManager(db)}
	if err := store.ensureSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

func (s *SQLiteRunStore) ensureSchema(ctx context.Context) error {
	const ddl = `
CREATE TABLE IF NOT EXISTS runs (
  run_id TEXT PRIMARY KEY,
  session TEXT NOT NULL,
  target TEXT NOT NULL,
  actions TEXT NOT NULL,
  state TEXT NOT NULL,
  started_at TEXT NOT NULL,
  finished_at TEXT,
  succeeded INTEGER NOT NULL DEFAULT 0,
  failed INTEGER NOT NULL DEFAULT 0,
  skipped INTEGER NOT NULL DEFAULT 0,
  error TEXT
);
CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at DESC);
CREATE TABLE IF NOT EXISTS outcomes (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  run_id TEXT NOT NULL,
  session TEXT NOT NULL,
  kind TEXT NOT NULL,
  target TEXT NOT NULL,
  ok INTEGER NOT NULL,
  elapsed_ms INTEGER NOT NULL,
  error TEXT,
  at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_outcomes_run ON outcomes(run_id, id);
`
	if _, err := s.db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("create run tables: %w", err)
	}
	return nil
}

func (s *SQLiteRunStore) Record(ctx context.Context, outcome domain.Outcome) error {
	succeeded, failed := 0, 0
	if outcome.OK {
		succeeded = 1
	} else {
		failed = 1
	}
	return s.tx.Within(ctx, func(ctx context.Context, tx *sql.Tx) error {
		const placeholder = `
INSERT INTO runs (run_id, session, target, actions, state, started_at)
VALUES (?, ?, ?, '', ?, ?)
ON CONFLICT(run_id) DO NOTHING;
`
		if _, err := tx.ExecContext(ctx, placeholder, outcome.RunID, outcome.Session, outcome.Target, domain.StateRunning.String(), formatTime(outcome.At)); err != nil {
			return fmt.Errorf("insert run placeholder: %w", err)
		}
		const insert = `
INSERT INTO outcomes (run_id, session, kind, target, ok, elapsed_ms, error, at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?);
`
		if _, err := tx.ExecContext(ctx, insert,
			outcome.RunID,
			outcome.Session,
			string(outcome.Kind),
			outcome.Target,
			succeeded,
			outcome.Elapsed.Milliseconds(),
			outcome.Error,
			formatTime(outcome.At),
		); err != nil {
			return fmt.Errorf("insert outcome: %w", err)
		}
		const bump = `UPDATE runs SET succeeded = succeeded + ?, failed = failed + ? WHERE run_id = ? AND state = ?;`
		if _, err := tx.ExecContext(ctx, bump, succeeded, failed, outcome.RunID, domain.StateRunning.String()); err != nil {
			return fmt.Errorf("update run counters: %w", err)
		}
		return nil
	})
}

func (s *SQLiteRunStore) SaveRun(ctx context.Context, summary domain.RunSummary) error {
	const stmt = `
INSERT INTO runs (run_id, session, target, actions, state, started_at, finished_at, succeeded, failed, skipped, error)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(run_id) DO UPDATE SET
  session=excluded.session,
  target=excluded.target,
  actions=excluded.actions,
  state=excluded.state,
  started_at=excluded.started_at,
  finished_at=excluded.finished_at,
  succeeded=excluded.succeeded,
  failed=excluded.failed,
  skipped=excluded.skipped,
  error=excluded.error;
`
	kinds := make([]string, 0, len(summary.Actions))
	for _, kind := range summary.Actions {
		kinds = append(kinds, string(kind))
	}
	_, err := s.db.ExecContext(ctx, stmt,
		summary.RunID,
		summary.Session,
		summary.Target,
		strings.Join(kinds, ","),
		summary.State.String(),
		formatTime(summary.StartedAt),
		formatTime(summary.FinishedAt),
		summary.Succeeded,
		summary.Failed,
		summary.Skipped,
		summary.Error,
	)
	if err != nil {
		return fmt.Errorf("save run: %w", err)
	}
	return nil
}

func (s *SQLiteRunStore) Close() error {
	return s.db.Close()
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}
