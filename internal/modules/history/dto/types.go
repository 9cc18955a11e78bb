package dto

import "time"

type RunOutput struct {
	RunID      string
	Session    string
	Target     string
	Actions    []string
	State      string
	StartedAt  time.Time
	FinishedAt time.Time
	Duration   time.Duration
	Succeeded  int
	Failed     int
	Skipped    int
	Error      string
}

type RunPage struct {
	Page  int
	Pages int
	Total int
	Runs  []RunOutput
}

type OutcomeOutput struct {
	Kind    string
	Target  string
	OK      bool
	Elapsed time.Duration
	Error   string
	At      time.Time
}
