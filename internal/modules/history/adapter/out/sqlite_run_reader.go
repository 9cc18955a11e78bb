package out

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"engagectl/internal/modules/history/domain"
	apperrors "engagectl/internal/platform/errors"
	"engagectl/internal/platform/sqlitedb"
)

const timeLayout = "2006-01-02T15:04:05.000Z07:00"

// SQLiteRunReader reads the runs and outcomes tables written by the
// engagement run store. It never creates or alters them.
type SQLiteRunReader struct {
	db *sql.DB
}

func NewSQLiteRunReader(dbPath string) (*SQLiteRunReader, error) {
	db, err := sqlitedb.Open(dbPath)
	if err != nil {
		return nil, err
	}
	return &SQLiteRunReader{db: db}, nil
}

func (r *SQLiteRunReader) CountRuns(ctx context.Context) (int, error) {
	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM runs`).Scan(&total); err != nil {
		return 0, fmt.Errorf("count runs: %w", err)
	}
	return total, nil
}

const runColumns = `run_id, session, target, actions, state, started_at, COALESCE(finished_at, ''), succeeded, failed, skipped, COALESCE(error, '')`

func (r *SQLiteRunReader) ListRuns(ctx context.Context, limit, offset int) ([]domain.Run, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+runColumns+` FROM runs ORDER BY started_at DESC, run_id DESC LIMIT ? OFFSET ?`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	out := []domain.Run{}
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return out, nil
}

func (r *SQLiteRunReader) GetRun(ctx context.Context, runID string) (domain.Run, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE run_id = ?`, runID)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Run{}, fmt.Errorf("%w: run %s", apperrors.ErrNotFound, runID)
	}
	return run, err
}

func (r *SQLiteRunReader) ListOutcomes(ctx context.Context, runID string) ([]domain.Outcome, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT kind, target, ok, elapsed_ms, COALESCE(error, ''), at
FROM outcomes
WHERE run_id = ?
ORDER BY id ASC`, runID)
	if err != nil {
		return nil, fmt.Errorf("query outcomes: %w", err)
	}
	defer rows.Close()

	out := []domain.Outcome{}
	for rows.Next() {
		var (
			item      domain.Outcome
			ok        int
			elapsedMS int64
			at        string
		)
		if err := rows.Scan(&item.Kind, &item.Target, &ok, &elapsedMS, &item.Error, &at); err != nil {
			return nil, fmt.Errorf("scan outcome: %w", err)
		}
		item.OK = ok == 1
		item.Elapsed = time.Duration(elapsedMS) * time.Millisecond
		item.At = parseTime(at)
		out = append(out, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate outcomes: %w", err)
	}
	return out, nil
}

func (r *SQLiteRunReader) Close() error {
	return r.db.Close()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (domain.Run, error) {
	var (
		run                 domain.Run
		actions             string
		startedAt, finished string
	)
	err := row.Scan(&run.RunID, &run.Session, &run.Target, &actions, &run.State, &startedAt, &finished, &run.Succeeded, &run.Failed, &run.Skipped, &run.Error)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Run{}, err
		}
		return domain.Run{}, fmt.Errorf("scan run: %w", err)
	}
	if actions != "" {
		run.Actions = strings.Split(actions, ",")
	}
	run.StartedAt = parseTime(startedAt)
	run.FinishedAt = parseTime(finished)
	return run, nil
}

func parseTime(raw string) time.Time {
	if raw == "" {
		return time.Time{}
	}
	parsed, err := time.Parse(timeLayout, raw)
	if err != nil {
		return time.Time{}
	}
	return parsed
}
