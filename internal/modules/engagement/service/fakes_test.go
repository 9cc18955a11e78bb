package service_test

import (
	"context"
	"fmt"
	"sync"
	"time"

	"engagectl/internal/modules/engagement/domain"
)

type fixedRand struct {
	f float64
}

func (r fixedRand) Float64() float64 { return r.f }
func (fixedRand) IntN(int) int       { return 0 }
func (fixedRand) Int64N(int64) int64 { return 0 }

// stepTime is a Clock and Sleeper whose time only moves when slept on.
type stepTime struct {
	mu  sync.Mutex
	now time.Time
}

func newStepTime() *stepTime {
	return &stepTime{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (s *stepTime) Now() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.now
}

func (s *stepTime) Sleep(ctx context.Context, d time.Duration) error {
	s.mu.Lock()
	s.now = s.now.Add(d)
	s.mu.Unlock()
	return ctx.Err()
}

type fakeExecutor struct {
	mu      sync.Mutex
	calls   int
	kinds   []domain.ActionKind
	failOn  func(call int) error
	entered chan struct{}
	release chan struct{}
	ctxErrs []error
}

func (f *fakeExecutor) Execute(ctx context.Context, kind domain.ActionKind, _ string) (time.Duration, error) {
	f.mu.Lock()
	f.calls++
	call := f.calls
	f.kinds = append(f.kinds, kind)
	f.mu.Unlock()

	if f.entered != nil {
		select {
		case f.entered <- struct{}{}:
		default:
		}
	}
	if f.release != nil {
		<-f.release
	}
	f.mu.Lock()
	f.ctxErrs = append(f.ctxErrs, ctx.Err())
	f.mu.Unlock()
	if f.failOn != nil {
		if err := f.failOn(call); err != nil {
			return time.Millisecond, err
		}
	}
	return time.Millisecond, nil
}

func (f *fakeExecutor) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type panicExecutor struct{}

func (panicExecutor) Execute(context.Context, domain.ActionKind, string) (time.Duration, error) {
	panic("driver crashed")
}

type fakeRecorder struct {
	mu       sync.Mutex
	outcomes []domain.Outcome
	err      error
}

func (f *fakeRecorder) Record(_ context.Context, outcome domain.Outcome) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.outcomes = append(f.outcomes, outcome)
	return f.err
}

func (f *fakeRecorder) Outcomes() []domain.Outcome {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]domain.Outcome(nil), f.outcomes...)
}

type fakeRunStore struct {
	mu      sync.Mutex
	runs    []domain.RunSummary
	reports []domain.RunSummary
}

func (f *fakeRunStore) SaveRun(_ context.Context, summary domain.RunSummary) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.runs = append(f.runs, summary)
	return nil
}

func (f *fakeRunStore) SaveReport(_ context.Context, summary domain.RunSummary) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reports = append(f.reports, summary)
	return fmt.Sprintf("/reports/%s.md", summary.Session), nil
}

func (f *fakeRunStore) Runs() []domain.RunSummary {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]domain.RunSummary(nil), f.runs...)
}

func instantConfig(reps int, kinds ...domain.ActionKind) domain.SessionConfig {
	if len(kinds) == 0 {
		kinds = []domain.ActionKind{domain.ActionLike}
	}
	return domain.SessionConfig{
		Target:      "stream-1",
		Duration:    time.Hour,
		Repetitions: reps,
		Profile:     domain.IntensityProfile{DelayMin: 0, DelayMax: 0, Chance: 1},
		Actions:     kinds,
	}
}
