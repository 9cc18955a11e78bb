package in

import (
	"context"

	historydto "engagectl/internal/modules/history/dto"
	historyin "engagectl/internal/modules/history/port/in"
)

type CLIHandler struct {
	usecase historyin.Usecase
}

func NewCLIHandler(usecase historyin.Usecase) CLIHandler {
	return CLIHandler{usecase: usecase}
}

func (h CLIHandler) Runs(ctx context.Context, page int) (historydto.RunPage, error) {
	return h.usecase.ListRuns(ctx, page)
}

func (h CLIHandler) Run(ctx context.Context, runID string) (historydto.RunOutput, error) {
	return h.usecase.GetRun(ctx, runID)
}

func (h CLIHandler) Outcomes(ctx context.Context, runID string) ([]historydto.OutcomeOutput, error) {
	return h.usecase.ListOutcomes(ctx, runID)
}
