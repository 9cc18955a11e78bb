package out

import (
	"context"
	"fmt"
	"time"

	"engagectl/internal/modules/engagement/domain"
	engagementout "engagectl/internal/modules/engagement/port/out"
	"engagectl/internal/platform/clock"
)

type latency struct {
	min time.Duration
	max time.Duration
}

var simulatedLatency = map[domain.ActionKind]latency{
	domain.ActionVisit:    {min: 2 * time.Second, max: 5 * time.Second},
	domain.ActionWatch:    {min: 5 * time.Second, max: 10 * time.Second},
	domain.ActionLike:     {min: 500 * time.Millisecond, max: 1500 * time.Millisecond},
	domain.ActionComment:  {min: 1 * time.Second, max: 3 * time.Second},
	domain.ActionShare:    {min: 1 * time.Second, max: 2 * time.Second},
	domain.ActionReaction: {min: 300 * time.Millisecond, max: 800 * time.Millisecond},
}

// SimulatedExecutor pretends to perform actions. It only sleeps for a
// kind-specific latency and fails at the configured rate; it never touches the
// network.
type SimulatedExecutor struct {
	sleeper     clock.Sleeper
	rand        domain.RandSource
	failureRate float64
	speed       float64
}

func NewSimulatedExecutor(sleeper clock.Sleeper, rand domain.RandSource, failureRate, speed float64) engagementout.ActionExecutor {
	if sleeper == nil {
		sleeper = clock.SystemClock{}
	}
	if rand == nil {
		rand = domain.DefaultRand
	}
	if speed <= 0 {
		speed = 1
	}
	return &SimulatedExecutor{sleeper: sleeper, rand: rand, failureRate: failureRate, speed: speed}
}

func (e *SimulatedExecutor) Execute(ctx context.Context, kind domain.ActionKind, target string) (time.Duration, error) {
	bounds, ok := simulatedLatency[kind]
	if !ok {
		return 0, fmt.Errorf("%w: simulated executor has no %s action", domain.ErrFatalAction, kind)
	}
	profile := domain.IntensityProfile{
		DelayMin: time.Duration(float64(bounds.min) / e.speed),
		DelayMax: time.Duration(float64(bounds.max) / e.speed),
	}
	elapsed := profile.NextDelayFrom(e.rand)
	if err := e.sleeper.Sleep(ctx, elapsed); err != nil {
		return 0, fmt.Errorf("simulated %s on %s: %w", kind, target, err)
	}
	if e.rand.Float64() < e.failureRate {
		return elapsed, fmt.Errorf("simulated %s on %s: target did not respond", kind, target)
	}
	return elapsed, nil
}
