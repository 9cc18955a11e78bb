package service

import (
	"context"
	"fmt"
	"strings"

	"engagectl/internal/modules/history/domain"
	historyout "engagectl/internal/modules/history/port/out"
	apperrors "engagectl/internal/platform/errors"
)

type HistoryService struct {
	reader historyout.RunReader
}

func NewHistoryService(reader historyout.RunReader) *HistoryService {
	return &HistoryService{reader: reader}
}

// Page is one page of runs, newest first.
type Page struct {
	Number int
	Pages  int
	Total  int
	Runs   []domain.Run
}

func (s *HistoryService) ListRuns(ctx context.Context, page int) (Page, error) {
	if page < 1 {
		return Page{}, fmt.Errorf("%w: page must be >= 1", apperrors.ErrInvalidInput)
	}
	total, err := s.reader.CountRuns(ctx)
	if err != nil {
		return Page{}, err
	}
	pages := domain.Pages(total)
	if page > pages {
		return Page{}, fmt.Errorf("%w: page %d of %d", apperrors.ErrNotFound, page, pages)
	}
	runs, err := s.reader.ListRuns(ctx, domain.PageSize, (page-1)*domain.PageSize)
	if err != nil {
		return Page{}, err
	}
	return Page{Number: page, Pages: pages, Total: total, Runs: runs}, nil
}

func (s *HistoryService) GetRun(ctx context.Context, runID string) (domain.Run, error) {
	runID = strings.TrimSpace(runID)
	if runID == "" {
		return domain.Run{}, fmt.Errorf("%w: run id is required", apperrors.ErrInvalidInput)
	}
	return s.reader.GetRun(ctx, runID)
}

func (s *HistoryService) ListOutcomes(ctx context.Context, runID string) ([]domain.Outcome, error) {
	run, err := s.GetRun(ctx, runID)
	if err != nil {
		return nil, err
	}
	return s.reader.ListOutcomes(ctx, run.RunID)
}
