package domain

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	apperrors "engagectl/internal/platform/errors"
)

const SchemaVersion = 1

// ErrFatalAction marks an action error the loop must not continue past.
var ErrFatalAction = errors.New("unrecoverable action error")

type ActionKind string

const (
	ActionVisit    ActionKind = "visit"
	ActionWatch    ActionKind = "watch"
	ActionLike     ActionKind = "like"
	ActionComment  ActionKind = "comment"
	ActionShare    ActionKind = "share"
	ActionReaction ActionKind = "reaction"
)

var AllActionKinds = []ActionKind{ActionVisit, ActionWatch, ActionLike, ActionComment, ActionShare, ActionReaction}

func (k ActionKind) Validate() error {
	for _, known := range AllActionKinds {
		if k == known {
			return nil
		}
	}
	return fmt.Errorf("unknown action kind: %s", k)
}

func ParseActionKinds(raw []string) ([]ActionKind, error) {
	out := make([]ActionKind, 0, len(raw))
	for _, item := range raw {
		kind := ActionKind(strings.ToLower(strings.TrimSpace(item)))
		if err := kind.Validate(); err != nil {
			return nil, fmt.Errorf("%w: %v", apperrors.ErrInvalidConfig, err)
		}
		out = append(out, kind)
	}
	return out, nil
}

// SessionConfig is supplied by the caller and never mutated once a session starts.
// Repetitions of zero leaves the run bounded by Duration only.
type SessionConfig struct {
	Target             string
	Duration           time.Duration
	Repetitions        int
	Profile            IntensityProfile
	Actions            []ActionKind
	AbortAfterFailures int
}

func (c SessionConfig) Validate() error {
	if strings.TrimSpace(c.Target) == "" {
		return fmt.Errorf("%w: target is required", apperrors.ErrInvalidConfig)
	}
	if c.Duration < 0 {
		return fmt.Errorf("%w: duration must not be negative", apperrors.ErrInvalidConfig)
	}
	if c.Repetitions < 0 {
		return fmt.Errorf("%w: repetitions must not be negative", apperrors.ErrInvalidConfig)
	}
	if c.AbortAfterFailures < 0 {
		return fmt.Errorf("%w: abort_after_failures must not be negative", apperrors.ErrInvalidConfig)
	}
	if err := c.Profile.Validate(); err != nil {
		return fmt.Errorf("%w: %w", apperrors.ErrInvalidConfig, err)
	}
	if len(c.Actions) == 0 {
		return fmt.Errorf("%w: at least one action kind is required", apperrors.ErrInvalidConfig)
	}
	seen := map[ActionKind]struct{}{}
	for _, kind := range c.Actions {
		if err := kind.Validate(); err != nil {
			return fmt.Errorf("%w: %v", apperrors.ErrInvalidConfig, err)
		}
		if _, ok := seen[kind]; ok {
			return fmt.Errorf("%w: duplicate action kind: %s", apperrors.ErrInvalidConfig, kind)
		}
		seen[kind] = struct{}{}
	}
	return nil
}

// Clone returns a copy that shares no slices with c.
func (c SessionConfig) Clone() SessionConfig {
	c.Actions = append([]ActionKind(nil), c.Actions...)
	return c
}

type SessionState int

const (
	StateIdle SessionState = iota
	StateRunning
	StateCompleted
	StateStopped
	StateFailed
)

var stateNames = map[SessionState]string{
	StateIdle:      "idle",
	StateRunning:   "running",
	StateCompleted: "completed",
	StateStopped:   "stopped",
	StateFailed:    "failed",
}

var stateFromName = map[string]SessionState{
	"idle":      StateIdle,
	"running":   StateRunning,
	"completed": StateCompleted,
	"stopped":   StateStopped,
	"failed":    StateFailed,
}

func (s SessionState) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return "unknown"
}

func ParseSessionState(raw string) (SessionState, error) {
	if s, ok := stateFromName[raw]; ok {
		return s, nil
	}
	return StateIdle, fmt.Errorf("unknown session state: %s", raw)
}

// IsTerminal reports whether no transition can leave s.
func (s SessionState) IsTerminal() bool {
	return s == StateCompleted || s == StateStopped || s == StateFailed
}

func (s SessionState) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

func (s *SessionState) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	parsed, err := ParseSessionState(raw)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// Outcome is one tick that invoked the action capability.
type Outcome struct {
	RunID   string
	Session string
	Kind    ActionKind
	Target  string
	OK      bool
	Elapsed time.Duration
	Error   string
	At      time.Time
}

// SessionInfo is a point-in-time view of one registry entry.
type SessionInfo struct {
	Name        string
	RunID       string
	Target      string
	State       SessionState
	ActionCount int
	StartedAt   time.Time
	FinishedAt  time.Time
	Error       string
}

// RunSummary is what gets persisted once a session reaches a terminal state.
type RunSummary struct {
	RunID      string
	Session    string
	Target     string
	Actions    []ActionKind
	State      SessionState
	StartedAt  time.Time
	FinishedAt time.Time
	Succeeded  int
	Failed     int
	Skipped    int
	Error      string
}
