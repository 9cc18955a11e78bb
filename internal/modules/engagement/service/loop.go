package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"engagectl/internal/modules/engagement/domain"
	engagementout "engagectl/internal/modules/engagement/port/out"
	"engagectl/internal/platform/clock"
	apperrors "engagectl/internal/platform/errors"
	"engagectl/internal/platform/logging"
	"engagectl/internal/platform/logsink"
	"engagectl/internal/platform/metrics"
)

type LoopDeps struct {
	Executor engagementout.ActionExecutor
	Recorder engagementout.OutcomeRecorder
	Sink     *logsink.Sink
	Clock    clock.Clock
	Sleeper  clock.Sleeper
	Rand     domain.RandSource
	Logger   logging.Logger
}

// Loop runs the tick cycle of a single session. One Loop is shared by every
// session; all per-run state lives on the stack of Run.
type Loop struct {
	executor engagementout.ActionExecutor
	recorder engagementout.OutcomeRecorder
	sink     *logsink.Sink
	clock    clock.Clock
	sleeper  clock.Sleeper
	rand     domain.RandSource
	logger   logging.Logger
}

func NewLoop(deps LoopDeps) *Loop {
	l := &Loop{
		executor: deps.Executor,
		recorder: deps.Recorder,
		sink:     deps.Sink,
		clock:    deps.Clock,
		sleeper:  deps.Sleeper,
		rand:     deps.Rand,
		logger:   deps.Logger,
	}
	if l.clock == nil {
		l.clock = clock.SystemClock{}
	}
	if l.sleeper == nil {
		l.sleeper = clock.SystemClock{}
	}
	if l.rand == nil {
		l.rand = domain.DefaultRand
	}
	if l.logger == nil {
		l.logger = logging.NoOpLogger{}
	}
	return l
}

type RunRequest struct {
	Name   string
	RunID  string
	Config domain.SessionConfig
	// OnAction is called after every successful action.
	OnAction func()
}

type RunResult struct {
	State     domain.SessionState
	Succeeded int
	Failed    int
	Skipped   int
	Err       error
}

// Run executes ticks until the duration or repetition bound is exhausted, ctx
// is cancelled, or an unrecoverable action error occurs. ctx is only observed
// between ticks and during the sleep; an action in flight always finishes.
func (l *Loop) Run(ctx context.Context, req RunRequest) (result RunResult) {
	cfg := req.Config
	defer func() {
		if r := recover(); r != nil {
			result.State = domain.StateFailed
			result.Err = fmt.Errorf("%w: %v", apperrors.ErrLoopFailure, r)
			l.logger.Error("engagement loop panicked", "session", req.Name, "panic", r)
		}
		l.publishResult(req.Name, result)
	}()

	l.publish(logsink.Info, req.Name, "started on %s (%s, %d kinds, chance %.2f)", cfg.Target, cfg.Duration, len(cfg.Actions), cfg.Profile.Chance)
	start := l.clock.Now()
	consecutiveFailures := 0
	for {
		if ctx.Err() != nil {
			result.State = domain.StateStopped
			return result
		}
		if l.clock.Now().Sub(start) >= cfg.Duration {
			result.State = domain.StateCompleted
			return result
		}
		if cfg.Repetitions > 0 && result.Succeeded+result.Failed >= cfg.Repetitions {
			result.State = domain.StateCompleted
			return result
		}

		if l.rand.Float64() > cfg.Profile.Chance {
			result.Skipped++
			metrics.RecordSkip()
			l.sleep(ctx, cfg.Profile)
			continue
		}

		kind := cfg.Actions[l.rand.IntN(len(cfg.Actions))]
		elapsed, err := l.executor.Execute(context.WithoutCancel(ctx), kind, cfg.Target)
		outcome := domain.Outcome{
			RunID:   req.RunID,
			Session: req.Name,
			Kind:    kind,
			Target:  cfg.Target,
			OK:      err == nil,
			Elapsed: elapsed,
			At:      l.clock.Now(),
		}
		metrics.RecordAction(string(kind), err == nil)
		if err == nil {
			consecutiveFailures = 0
			result.Succeeded++
			if req.OnAction != nil {
				req.OnAction()
			}
			l.publish(logsink.Success, req.Name, "%s ok in %s", kind, elapsed.Round(time.Millisecond))
		} else {
			consecutiveFailures++
			result.Failed++
			outcome.Error = err.Error()
			l.publish(logsink.Warning, req.Name, "%s failed: %v", kind, err)
		}
		l.record(ctx, outcome)

		if err != nil {
			if errors.Is(err, domain.ErrFatalAction) {
				result.State = domain.StateFailed
				result.Err = fmt.Errorf("%s: %w", kind, err)
				return result
			}
			if cfg.AbortAfterFailures > 0 && consecutiveFailures >= cfg.AbortAfterFailures {
				result.State = domain.StateFailed
				result.Err = fmt.Errorf("%w: %d consecutive action failures", apperrors.ErrLoopFailure, consecutiveFailures)
				return result
			}
		}
		l.sleep(ctx, cfg.Profile)
	}
}

// sleep returns early on cancellation; the next boundary check reports it.
func (l *Loop) sleep(ctx context.Context, profile domain.IntensityProfile) {
	_ = l.sleeper.Sleep(ctx, profile.NextDelayFrom(l.rand))
}

func (l *Loop) record(ctx context.Context, outcome domain.Outcome) {
	if l.recorder == nil {
		return
	}
	if err := l.recorder.Record(context.WithoutCancel(ctx), outcome); err != nil {
		l.logger.Warn("record outcome", "session", outcome.Session, "error", err)
		l.publish(logsink.Warning, outcome.Session, "record outcome: %v", err)
	}
}

func (l *Loop) publishResult(name string, result RunResult) {
	switch result.State {
	case domain.StateCompleted:
		l.publish(logsink.Success, name, "completed: %d ok, %d failed, %d skipped", result.Succeeded, result.Failed, result.Skipped)
	case domain.StateStopped:
		l.publish(logsink.Info, name, "stopped: %d ok, %d failed, %d skipped", result.Succeeded, result.Failed, result.Skipped)
	case domain.StateFailed:
		l.publish(logsink.Error, name, "failed: %v", result.Err)
	}
}

// publish drops the event once the sink is closed.
func (l *Loop) publish(severity logsink.Severity, session, format string, args ...any) {
	if l.sink == nil {
		return
	}
	_ = l.sink.Publishf(severity, session, format, args...)
}
