package out

import (
	"context"

	"engagectl/internal/modules/history/domain"
)

type RunReader interface {
	CountRuns(ctx context.Context) (int, error)
	ListRuns(ctx context.Context, limit, offset int) ([]domain.Run, error)
	GetRun(ctx context.Context, runID string) (domain.Run, error)
	ListOutcomes(ctx context.Context, runID string) ([]domain.Outcome, error)
}
