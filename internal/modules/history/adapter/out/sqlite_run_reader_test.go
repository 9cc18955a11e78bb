package out_test

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	engagementout "engagectl/internal/modules/engagement/adapter/out"
	engagementdomain "engagectl/internal/modules/engagement/domain"
	historyout "engagectl/internal/modules/history/adapter/out"
	apperrors "engagectl/internal/platform/errors"
)

func TestSQLiteRunReaderReadsRunStoreTables(t *testing.T) {
	t.Parallel()
	dbPath := filepath.Join(t.TempDir(), "engagectl.db")
	store, err := engagementout.NewSQLiteRunStore(dbPath)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	defer store.Close()

	ctx := context.Background()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		started := base.Add(time.Duration(i) * time.Hour)
		summary := engagementdomain.RunSummary{
			RunID:      fmt.Sprintf("run-%d", i),
			Session:    "live",
			Target:     "stream-1",
			Actions:    []engagementdomain.ActionKind{engagementdomain.ActionLike, engagementdomain.ActionReaction},
			State:      engagementdomain.StateCompleted,
			StartedAt:  started,
			FinishedAt: started.Add(time.Minute),
			Succeeded:  i,
		}
		if err := store.SaveRun(ctx, summary); err != nil {
			t.Fatalf("save run: %v", err)
		}
	}
	if err := store.Record(ctx, engagementdomain.Outcome{RunID: "run-1", Session: "live", Kind: engagementdomain.ActionLike, Target: "stream-1", OK: true, Elapsed: 15 * time.Millisecond, At: base}); err != nil {
		t.Fatalf("record: %v", err)
	}
	if err := store.Record(ctx, engagementdomain.Outcome{RunID: "run-1", Session: "live", Kind: engagementdomain.ActionReaction, Target: "stream-1", Error: "timeout", At: base.Add(time.Second)}); err != nil {
		t.Fatalf("record: %v", err)
	}

	reader, err := historyout.NewSQLiteRunReader(dbPath)
	if err != nil {
		t.Fatalf("open reader: %v", err)
	}
	defer reader.Close()

	total, err := reader.CountRuns(ctx)
	if err != nil || total != 3 {
		t.Fatalf("count runs: total=%d err=%v", total, err)
	}
	runs, err := reader.ListRuns(ctx, 2, 0)
	if err != nil {
		t.Fatalf("list runs: %v", err)
	}
	if len(runs) != 2 || runs[0].RunID != "run-2" || runs[1].RunID != "run-1" {
		t.Fatalf("expected newest first, got %+v", runs)
	}
	if len(runs[0].Actions) != 2 || runs[0].Actions[1] != "reaction" || !runs[0].FinishedAt.Equal(base.Add(2*time.Hour+time.Minute)) {
		t.Fatalf("unexpected run fields: %+v", runs[0])
	}

	outcomes, err := reader.ListOutcomes(ctx, "run-1")
	if err != nil {
		t.Fatalf("list outcomes: %v", err)
	}
	if len(outcomes) != 2 || !outcomes[0].OK || outcomes[0].Elapsed != 15*time.Millisecond || outcomes[1].OK || outcomes[1].Error != "timeout" {
		t.Fatalf("unexpected outcomes: %+v", outcomes)
	}

	if _, err := reader.GetRun(ctx, "missing"); !errors.Is(err, apperrors.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
