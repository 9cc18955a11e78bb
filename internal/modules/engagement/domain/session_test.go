package domain

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	apperrors "engagectl/internal/platform/errors"
)

func validConfig() SessionConfig {
	return SessionConfig{
		Target:   "stream-1",
		Duration: time.Minute,
		Profile:  IntensityProfile{DelayMin: 0, DelayMax: time.Second, Chance: 0.5},
		Actions:  []ActionKind{ActionLike, ActionComment},
	}
}

func TestSessionConfigValidation(t *testing.T) {
	t.Parallel()
	if err := validConfig().Validate(); err != nil {
		t.Fatalf("valid config rejected: %v", err)
	}
	cases := map[string]func(*SessionConfig){
		"empty target":      func(c *SessionConfig) { c.Target = " " },
		"negative duration": func(c *SessionConfig) { c.Duration = -time.Second },
		"negative reps":     func(c *SessionConfig) { c.Repetitions = -1 },
		"no actions":        func(c *SessionConfig) { c.Actions = nil },
		"unknown action":    func(c *SessionConfig) { c.Actions = []ActionKind{"dance"} },
		"duplicate action":  func(c *SessionConfig) { c.Actions = []ActionKind{ActionLike, ActionLike} },
		"bad profile":       func(c *SessionConfig) { c.Profile.Chance = 2 },
		"negative abort":    func(c *SessionConfig) { c.AbortAfterFailures = -1 },
	}
	for name, mutate := range cases {
		cfg := validConfig()
		mutate(&cfg)
		if err := cfg.Validate(); !errors.Is(err, apperrors.ErrInvalidConfig) {
			t.Fatalf("%s: expected invalid config, got %v", name, err)
		}
	}
	cfg := validConfig()
	cfg.Profile.DelayMin = 2 * time.Second
	if err := cfg.Validate(); !errors.Is(err, apperrors.ErrInvalidProfile) {
		t.Fatalf("profile error should stay visible through config error, got %v", err)
	}
}

func TestCloneDoesNotShareActions(t *testing.T) {
	t.Parallel()
	cfg := validConfig()
	clone := cfg.Clone()
	cfg.Actions[0] = ActionShare
	if clone.Actions[0] != ActionLike {
		t.Fatalf("clone shares action slice")
	}
}

func TestParseActionKinds(t *testing.T) {
	t.Parallel()
	kinds, err := ParseActionKinds([]string{" Like", "share"})
	if err != nil {
		t.Fatalf("parse kinds: %v", err)
	}
	if len(kinds) != 2 || kinds[0] != ActionLike || kinds[1] != ActionShare {
		t.Fatalf("unexpected kinds: %v", kinds)
	}
	if _, err := ParseActionKinds([]string{"poke"}); !errors.Is(err, apperrors.ErrInvalidConfig) {
		t.Fatalf("expected invalid config, got %v", err)
	}
}

func TestSessionStateTerminalAndJSON(t *testing.T) {
	t.Parallel()
	for _, s := range []SessionState{StateCompleted, StateStopped, StateFailed} {
		if !s.IsTerminal() {
			t.Fatalf("%s should be terminal", s)
		}
	}
	for _, s := range []SessionState{StateIdle, StateRunning} {
		if s.IsTerminal() {
			t.Fatalf("%s should not be terminal", s)
		}
	}
	raw, err := json.Marshal(StateStopped)
	if err != nil {
		t.Fatalf("marshal state: %v", err)
	}
	if string(raw) != `"stopped"` {
		t.Fatalf("unexpected json: %s", raw)
	}
	var parsed SessionState
	if err := json.Unmarshal([]byte(`"failed"`), &parsed); err != nil || parsed != StateFailed {
		t.Fatalf("unmarshal state: %v %v", parsed, err)
	}
	if err := json.Unmarshal([]byte(`"zombie"`), &parsed); err == nil {
		t.Fatalf("unknown state must fail")
	}
}
