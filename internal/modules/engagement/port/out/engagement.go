package out

import (
	"context"
	"time"

	"engagectl/internal/modules/engagement/domain"
)

// ActionExecutor performs one action against a target. The loop imposes no
// timeout; implementations apply their own.
type ActionExecutor interface {
	Execute(ctx context.Context, kind domain.ActionKind, target string) (time.Duration, error)
}

type OutcomeRecorder interface {
	Record(ctx context.Context, outcome domain.Outcome) error
}

type RunStore interface {
	SaveRun(ctx context.Context, summary domain.RunSummary) error
}

type ReportStore interface {
	SaveReport(ctx context.Context, summary domain.RunSummary) (string, error)
}
