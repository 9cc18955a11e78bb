package dto

import "time"

// StartInput describes one session. When Preset is set, zero-valued fields
// inherit from the preset.
type StartInput struct {
	Name               string
	Preset             string
	Target             string
	Duration           time.Duration
	Repetitions        int
	Intensity          string
	Actions            []string
	AbortAfterFailures int
}

type StartOutput struct {
	Name      string
	RunID     string
	Target    string
	StartedAt time.Time
}

type SessionOutput struct {
	Name        string
	RunID       string
	Target      string
	State       string
	Terminal    bool
	ActionCount int
	StartedAt   time.Time
	FinishedAt  time.Time
	Error       string
}

type DiagnosticsOutput struct {
	Active  int
	Pending int
	Dropped uint64
}

type PresetOutput struct {
	Name        string
	Target      string
	Duration    time.Duration
	Repetitions int
	Intensity   string
	DelayMin    time.Duration
	DelayMax    time.Duration
	Chance      float64
	Actions     []string
}

type ProfileOutput struct {
	Name     string
	DelayMin time.Duration
	DelayMax time.Duration
	Chance   float64
}
