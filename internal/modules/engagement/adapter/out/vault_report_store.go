package out

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"engagectl/internal/modules/engagement/domain"
	engagementout "engagectl/internal/modules/engagement/port/out"
	"engagectl/internal/platform/markdown"
)

// ReportFrontmatter is the YAML header of a run report.
type ReportFrontmatter struct {
	SchemaVersion   int       `yaml:"schema_version"`
	RunID           string    `yaml:"run_id"`
	Session         string    `yaml:"session"`
	Target          string    `yaml:"target"`
	Actions         []string  `yaml:"actions"`
	State           string    `yaml:"state"`
	StartedAt       time.Time `yaml:"started_at"`
	FinishedAt      time.Time `yaml:"finished_at"`
	DurationSeconds int       `yaml:"duration_seconds"`
	Succeeded       int       `yaml:"succeeded"`
	Failed          int       `yaml:"failed"`
	Skipped         int       `yaml:"skipped"`
	Error           string    `yaml:"error,omitempty"`
}

type VaultReportStore struct {
	reportsDir string
}

func NewVaultReportStore(reportsDir string) engagementout.ReportStore {
	return &VaultReportStore{reportsDir: reportsDir}
}

// SaveReport writes <reports>/YYYY/MM/DD/HHMMSS-<session>.md with the run
// summary as YAML frontmatter.
func (s *VaultReportStore) SaveReport(_ context.Context, summary domain.RunSummary) (string, error) {
	date := summary.StartedAt.UTC()
	if date.IsZero() {
		date = summary.FinishedAt.UTC()
	}
	dir := filepath.Join(s.reportsDir, date.Format("2006"), date.Format("01"), date.Format("02"))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create report dir: %w", err)
	}
	path := filepath.Join(dir, fmt.Sprintf("%s-%s.md", date.Format("150405"), summary.Session))

	kinds := make([]string, 0, len(summary.Actions))
	for _, kind := range summary.Actions {
		kinds = append(kinds, string(kind))
	}
	duration := summary.FinishedAt.Sub(summary.StartedAt)
	if duration < 0 {
		duration = 0
	}
	meta := ReportFrontmatter{
		SchemaVersion:   domain.SchemaVersion,
		RunID:           summary.RunID,
		Session:         summary.Session,
		Target:          summary.Target,
		Actions:         kinds,
		State:           summary.State.String(),
		StartedAt:       summary.StartedAt.UTC(),
		FinishedAt:      summary.FinishedAt.UTC(),
		DurationSeconds: int(duration.Seconds()),
		Succeeded:       summary.Succeeded,
		Failed:          summary.Failed,
		Skipped:         summary.Skipped,
		Error:           summary.Error,
	}

	var body strings.Builder
	fmt.Fprintf(&body, "# Run %s\n\n", summary.Session)
	fmt.Fprintf(&body, "- Target: %s\n", summary.Target)
	fmt.Fprintf(&body, "- State: %s\n", summary.State)
	fmt.Fprintf(&body, "- Duration: %s\n\n", duration.Round(time.Second))
	body.WriteString("## Actions\n\n")
	fmt.Fprintf(&body, "| succeeded | failed | skipped |\n|---|---|---|\n| %d | %d | %d |\n", summary.Succeeded, summary.Failed, summary.Skipped)
	if summary.Error != "" {
		fmt.Fprintf(&body, "\n## Error\n\n%s\n", summary.Error)
	}

	rendered, err := markdown.Render(meta, body.String())
	if err != nil {
		return "", err
	}
	if err := os.WriteFile(path, rendered, 0o644); err != nil {
		return "", fmt.Errorf("write run report: %w", err)
	}
	return path, nil
}
