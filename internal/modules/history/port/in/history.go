package in

import (
	"context"

	"engagectl/internal/modules/history/dto"
)

type Usecase interface {
	ListRuns(ctx context.Context, page int) (dto.RunPage, error)
	GetRun(ctx context.Context, runID string) (dto.RunOutput, error)
	ListOutcomes(ctx context.Context, runID string) ([]dto.OutcomeOutput, error)
}
