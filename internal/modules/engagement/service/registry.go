package service

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"sync"

	"engagectl/internal/modules/engagement/domain"
	engagementout "engagectl/internal/modules/engagement/port/out"
	"engagectl/internal/platform/clock"
	apperrors "engagectl/internal/platform/errors"
	"engagectl/internal/platform/id"
	"engagectl/internal/platform/logging"
	"engagectl/internal/platform/logsink"
	"engagectl/internal/platform/metrics"
	"engagectl/internal/platform/slug"
)

type RegistryDeps struct {
	Loop    *Loop
	Sink    *logsink.Sink
	Clock   clock.Clock
	IDs     id.Generator
	Runs    engagementout.RunStore
	Reports engagementout.ReportStore
	Logger  logging.Logger
}

// entry is settled once its session is terminal and the run is persisted.
type entry struct {
	session *Session
	settled chan struct{}
}

type Diagnostics struct {
	Active  int
	Pending int
	Dropped uint64
}

// Registry owns every session by name. The lock guards the maps only; loops
// and persistence run outside it.
type Registry struct {
	loop    *Loop
	sink    *logsink.Sink
	clock   clock.Clock
	ids     id.Generator
	runs    engagementout.RunStore
	reports engagementout.ReportStore
	logger  logging.Logger

	mu       sync.Mutex
	closed   bool
	active   map[string]*entry
	finished []domain.SessionInfo
	watchers sync.WaitGroup
}

// maxFinished bounds how many exited sessions List keeps showing.
const maxFinished = 32

func NewRegistry(deps RegistryDeps) *Registry {
	r := &Registry{
		loop:     deps.Loop,
		sink:     deps.Sink,
		clock:    deps.Clock,
		ids:      deps.IDs,
		runs:     deps.Runs,
		reports:  deps.Reports,
		logger:   deps.Logger,
		active:   map[string]*entry{},
	}
	if r.clock == nil {
		r.clock = clock.SystemClock{}
	}
	if r.ids == nil {
		r.ids = id.ULID{}
	}
	if r.logger == nil {
		r.logger = logging.NoOpLogger{}
	}
	return r
}

// StartSession launches a session under name and returns without waiting.
func (r *Registry) StartSession(name string, cfg domain.SessionConfig) (domain.SessionInfo, error) {
	if !slug.Valid(name) {
		return domain.SessionInfo{}, fmt.Errorf("%w: session name %q must be lowercase letters, digits and dashes (try %q)", apperrors.ErrInvalidConfig, name, slug.Make(name))
	}
	if err := cfg.Validate(); err != nil {
		return domain.SessionInfo{}, err
	}

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return domain.SessionInfo{}, fmt.Errorf("%w: session %s", apperrors.ErrShuttingDown, name)
	}
	if existing, ok := r.active[name]; ok && !existing.session.State().IsTerminal() {
		r.mu.Unlock()
		return domain.SessionInfo{}, fmt.Errorf("%w: %s", apperrors.ErrNameInUse, name)
	}
	session := NewSession(name, r.ids.New(), r.loop, r.clock)
	if err := session.Start(cfg); err != nil {
		r.mu.Unlock()
		return domain.SessionInfo{}, err
	}
	e := &entry{session: session, settled: make(chan struct{})}
	r.active[name] = e
	r.forgetLocked(name)
	r.watchers.Add(1)
	r.mu.Unlock()

	metrics.RecordSessionStart()
	r.logger.Info("session started", "session", name, "run_id", session.RunID(), "target", cfg.Target)
	go r.watch(e)
	return session.Info(), nil
}

// StopSession signals cancellation and returns immediately. A session whose
// loop already exited has no entry left to stop.
func (r *Registry) StopSession(name string) error {
	r.mu.Lock()
	e, ok := r.active[name]
	r.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: session %s", apperrors.ErrNotFound, name)
	}
	e.session.Stop()
	r.publish(logsink.Info, name, "stop requested")
	return nil
}

func (r *Registry) StopAll() {
	r.mu.Lock()
	sessions := make([]*Session, 0, len(r.active))
	for _, e := range r.active {
		sessions = append(sessions, e.session)
	}
	r.mu.Unlock()
	for _, session := range sessions {
		session.Stop()
	}
	if len(sessions) > 0 {
		r.publish(logsink.Info, "", "stop requested for %d sessions", len(sessions))
	}
}

// List returns a snapshot sorted by name: live entries plus the final view of
// sessions that already exited.
func (r *Registry) List() []domain.SessionInfo {
	r.mu.Lock()
	out := make([]domain.SessionInfo, 0, len(r.active)+len(r.finished))
	for _, e := range r.active {
		out = append(out, e.session.Info())
	}
	out = append(out, r.finished...)
	r.mu.Unlock()
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Wait blocks until the named session is terminal and its run is persisted.
func (r *Registry) Wait(ctx context.Context, name string) error {
	r.mu.Lock()
	e, ok := r.active[name]
	done := r.finishedLocked(name)
	r.mu.Unlock()
	if !ok {
		if done {
			return nil
		}
		return fmt.Errorf("%w: session %s", apperrors.ErrNotFound, name)
	}
	select {
	case <-e.settled:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Shutdown refuses further starts, stops every session and waits until all of
// them are persisted.
func (r *Registry) Shutdown(ctx context.Context) error {
	r.mu.Lock()
	r.closed = true
	r.mu.Unlock()
	r.StopAll()
	idle := make(chan struct{})
	go func() {
		r.watchers.Wait()
		close(idle)
	}()
	select {
	case <-idle:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("shutdown: %w", ctx.Err())
	}
}

func (r *Registry) Diagnostics() Diagnostics {
	diag := Diagnostics{}
	r.mu.Lock()
	for _, e := range r.active {
		if !e.session.State().IsTerminal() {
			diag.Active++
		}
	}
	r.mu.Unlock()
	if r.sink != nil {
		diag.Pending = r.sink.Len()
		diag.Dropped = r.sink.Dropped()
	}
	return diag
}

func (r *Registry) watch(e *entry) {
	defer r.watchers.Done()
	defer close(e.settled)
	session := e.session
	<-session.Done()
	summary := session.Summary()
	metrics.RecordSessionFinish(summary.State.String())
	r.persist(summary)

	info := session.Info()
	r.mu.Lock()
	if r.active[session.Name()] == e {
		delete(r.active, session.Name())
		r.finished = append(r.finished, info)
		if len(r.finished) > maxFinished {
			r.finished = slices.Delete(r.finished, 0, len(r.finished)-maxFinished)
		}
	}
	r.mu.Unlock()
	r.logger.Info("session finished", "session", summary.Session, "run_id", summary.RunID, "state", summary.State.String())
}

func (r *Registry) finishedLocked(name string) bool {
	for _, info := range r.finished {
		if info.Name == name {
			return true
		}
	}
	return false
}

func (r *Registry) forgetLocked(name string) {
	kept := r.finished[:0]
	for _, info := range r.finished {
		if info.Name != name {
			kept = append(kept, info)
		}
	}
	r.finished = kept
}

func (r *Registry) persist(summary domain.RunSummary) {
	ctx := context.Background()
	if r.runs != nil {
		if err := r.runs.SaveRun(ctx, summary); err != nil {
			r.logger.Warn("save run", "session", summary.Session, "error", err)
			r.publish(logsink.Warning, summary.Session, "save run: %v", err)
		}
	}
	if r.reports != nil {
		path, err := r.reports.SaveReport(ctx, summary)
		if err != nil {
			r.logger.Warn("save report", "session", summary.Session, "error", err)
			r.publish(logsink.Warning, summary.Session, "save report: %v", err)
			return
		}
		r.publish(logsink.Info, summary.Session, "report written to %s", path)
	}
}

func (r *Registry) publish(severity logsink.Severity, session, format string, args ...any) {
	if r.sink == nil {
		return
	}
	_ = r.sink.Publishf(severity, session, format, args...)
}
