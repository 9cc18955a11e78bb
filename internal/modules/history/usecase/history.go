package usecase

import (
	"context"

	"engagectl/internal/modules/history/domain"
	historydto "engagectl/internal/modules/history/dto"
	historyin "engagectl/internal/modules/history/port/in"
	"engagectl/internal/modules/history/service"
)

type Interactor struct {
	svc *service.HistoryService
}

func NewInteractor(svc *service.HistoryService) historyin.Usecase {
	return &Interactor{svc: svc}
}

func (i *Interactor) ListRuns(ctx context.Context, page int) (historydto.RunPage, error) {
	p, err := i.svc.ListRuns(ctx, page)
	if err != nil {
		return historydto.RunPage{}, err
	}
	out := historydto.RunPage{Page: p.Number, Pages: p.Pages, Total: p.Total, Runs: make([]historydto.RunOutput, 0, len(p.Runs))}
	for _, run := range p.Runs {
		out.Runs = append(out.Runs, toRunOutput(run))
	}
	return out, nil
}

func (i *Interactor) GetRun(ctx context.Context, runID string) (historydto.RunOutput, error) {
	run, err := i.svc.GetRun(ctx, runID)
	if err != nil {
		return historydto.RunOutput{}, err
	}
	return toRunOutput(run), nil
}

func (i *Interactor) ListOutcomes(ctx context.Context, runID string) ([]historydto.OutcomeOutput, error) {
	outcomes, err := i.svc.ListOutcomes(ctx, runID)
	if err != nil {
		return nil, err
	}
	out := make([]historydto.OutcomeOutput, 0, len(outcomes))
	for _, o := range outcomes {
		out = append(out, historydto.OutcomeOutput{Kind: o.Kind, Target: o.Target, OK: o.OK, Elapsed: o.Elapsed, Error: o.Error, At: o.At})
	}
	return out, nil
}

func toRunOutput(run domain.Run) historydto.RunOutput {
	out := historydto.RunOutput{
		RunID:      run.RunID,
		Session:    run.Session,
		Target:     run.Target,
		Actions:    run.Actions,
		State:      run.State,
		StartedAt:  run.StartedAt,
		FinishedAt: run.FinishedAt,
		Succeeded:  run.Succeeded,
		Failed:     run.Failed,
		Skipped:    run.Skipped,
		Error:      run.Error,
	}
	if run.Finished() {
		out.Duration = run.FinishedAt.Sub(run.StartedAt)
	}
	return out
}
