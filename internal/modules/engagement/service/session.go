package service

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"engagectl/internal/modules/engagement/domain"
	"engagectl/internal/platform/clock"
	apperrors "engagectl/internal/platform/errors"
)

// Session wraps one loop execution. Its state only moves forward; a session
// that left Idle is never started again.
type Session struct {
	name  string
	runID string
	loop  *Loop
	clock clock.Clock

	mu         sync.Mutex
	state      domain.SessionState
	cfg        domain.SessionConfig
	startedAt  time.Time
	finishedAt time.Time
	result     RunResult
	cancel     context.CancelFunc
	done       chan struct{}

	actions atomic.Int64
}

func NewSession(name, runID string, loop *Loop, clk clock.Clock) *Session {
	if clk == nil {
		clk = clock.SystemClock{}
	}
	return &Session{
		name:  name,
		runID: runID,
		loop:  loop,
		clock: clk,
		state: domain.StateIdle,
		done:  make(chan struct{}),
	}
}

// Start launches the loop on its own goroutine and returns without waiting.
func (s *Session) Start(cfg domain.SessionConfig) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != domain.StateIdle {
		return fmt.Errorf("%w: %s is %s", apperrors.ErrAlreadyRunning, s.name, s.state)
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	ctx, cancel := context.WithCancel(context.Background())
	s.cfg = cfg.Clone()
	s.cancel = cancel
	s.state = domain.StateRunning
	s.startedAt = s.clock.Now()

	counter := &s.actions
	req := RunRequest{
		Name:     s.name,
		RunID:    s.runID,
		Config:   s.cfg,
		OnAction: func() { counter.Add(1) },
	}
	go func() {
		result := s.loop.Run(ctx, req)
		cancel()
		s.finish(result)
	}()
	return nil
}

func (s *Session) finish(result RunResult) {
	s.mu.Lock()
	s.state = result.State
	s.result = result
	s.finishedAt = s.clock.Now()
	s.mu.Unlock()
	close(s.done)
}

// Stop signals cancellation and returns immediately. It is a no-op on a
// terminal session. A session that never started moves straight to Stopped.
func (s *Session) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch s.state {
	case domain.StateIdle:
		s.state = domain.StateStopped
		s.finishedAt = s.clock.Now()
		close(s.done)
	case domain.StateRunning:
		s.cancel()
	}
}

func (s *Session) Name() string  { return s.name }
func (s *Session) RunID() string { return s.runID }

func (s *Session) State() domain.SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Session) ActionCount() int {
	return int(s.actions.Load())
}

// Done is closed once the session is terminal.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// Wait blocks until the session is terminal or ctx is done.
func (s *Session) Wait(ctx context.Context) error {
	select {
	case <-s.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Session) Info() domain.SessionInfo {
	s.mu.Lock()
	defer s.mu.Unlock()
	info := domain.SessionInfo{
		Name:        s.name,
		RunID:       s.runID,
		Target:      s.cfg.Target,
		State:       s.state,
		ActionCount: int(s.actions.Load()),
		StartedAt:   s.startedAt,
		FinishedAt:  s.finishedAt,
	}
	if s.result.Err != nil {
		info.Error = s.result.Err.Error()
	}
	return info
}

func (s *Session) Summary() domain.RunSummary {
	s.mu.Lock()
	defer s.mu.Unlock()
	summary := domain.RunSummary{
		RunID:      s.runID,
		Session:    s.name,
		Target:     s.cfg.Target,
		Actions:    append([]domain.ActionKind(nil), s.cfg.Actions...),
		State:      s.state,
		StartedAt:  s.startedAt,
		FinishedAt: s.finishedAt,
		Succeeded:  s.result.Succeeded,
		Failed:     s.result.Failed,
		Skipped:    s.result.Skipped,
	}
	if s.result.Err != nil {
		summary.Error = s.result.Err.Error()
	}
	return summary
}
