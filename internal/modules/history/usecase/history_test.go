package usecase_test

import (
	"context"
	"testing"
	"time"

	"engagectl/internal/modules/history/domain"
	"engagectl/internal/modules/history/service"
	"engagectl/internal/modules/history/usecase"
)

type oneRunReader struct {
	run domain.Run
}

func (r oneRunReader) CountRuns(context.Context) (int, error) { return 1, nil }
func (r oneRunReader) ListRuns(context.Context, int, int) ([]domain.Run, error) {
	return []domain.Run{r.run}, nil
}
func (r oneRunReader) GetRun(context.Context, string) (domain.Run, error) { return r.run, nil }
func (r oneRunReader) ListOutcomes(context.Context, string) ([]domain.Outcome, error) {
	return []domain.Outcome{{Kind: "visit", OK: true, Elapsed: time.Second}}, nil
}

func TestUsecaseMapsRunsAndDurations(t *testing.T) {
	t.Parallel()
	started := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	finished := oneRunReader{run: domain.Run{RunID: "r1", State: "completed", StartedAt: started, FinishedAt: started.Add(90 * time.Second)}}
	uc := usecase.NewInteractor(service.NewHistoryService(finished))

	page, err := uc.ListRuns(context.Background(), 1)
	if err != nil {
		t.Fatalf("list runs: %v", err)
	}
	if page.Page != 1 || len(page.Runs) != 1 || page.Runs[0].Duration != 90*time.Second {
		t.Fatalf("unexpected page: %+v", page)
	}

	live := oneRunReader{run: domain.Run{RunID: "r2", State: "running", StartedAt: started}}
	run, err := usecase.NewInteractor(service.NewHistoryService(live)).GetRun(context.Background(), "r2")
	if err != nil {
		t.Fatalf("get run: %v", err)
	}
	if run.Duration != 0 {
		t.Fatalf("unfinished run must not report a duration: %+v", run)
	}

	outcomes, err := uc.ListOutcomes(context.Background(), "r1")
	if err != nil || len(outcomes) != 1 || outcomes[0].Kind != "visit" {
		t.Fatalf("unexpected outcomes: %+v err=%v", outcomes, err)
	}
}
