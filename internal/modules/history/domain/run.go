package domain

import "time"

// PageSize is the number of runs shown per history page.
const PageSize = 20

type Run struct {
	RunID      string
	Session    string
	Target     string
	Actions    []string
	State      string
	StartedAt  time.Time
	FinishedAt time.Time
	Succeeded  int
	Failed     int
	Skipped    int
	Error      string
}

// Finished reports whether the run has a final summary. Runs of a process that
// died mid-session keep their live "running" row.
func (r Run) Finished() bool {
	return !r.FinishedAt.IsZero()
}

type Outcome struct {
	Kind    string
	Target  string
	OK      bool
	Elapsed time.Duration
	Error   string
	At      time.Time
}

// Pages returns how many pages total items fill, never less than one.
func Pages(total int) int {
	if total <= 0 {
		return 1
	}
	return (total + PageSize - 1) / PageSize
}
