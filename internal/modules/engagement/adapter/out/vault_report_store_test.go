package out_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	engagementout "engagectl/internal/modules/engagement/adapter/out"
	"engagectl/internal/modules/engagement/domain"
	"engagectl/internal/platform/markdown"
)

func TestVaultReportStoreWritesFrontmatter(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	store := engagementout.NewVaultReportStore(dir)
	started := time.Date(2026, 3, 1, 9, 30, 15, 0, time.UTC)
	summary := domain.RunSummary{
		RunID:      "01HRUN",
		Session:    "live",
		Target:     "stream-1",
		Actions:    []domain.ActionKind{domain.ActionLike, domain.ActionComment},
		State:      domain.StateFailed,
		StartedAt:  started,
		FinishedAt: started.Add(90 * time.Second),
		Succeeded:  4,
		Failed:     3,
		Skipped:    2,
		Error:      "3 consecutive failures",
	}

	path, err := store.SaveReport(context.Background(), summary)
	if err != nil {
		t.Fatalf("save report: %v", err)
	}
	if want := filepath.Join(dir, "2026", "03", "01", "093015-live.md"); path != want {
		t.Fatalf("expected %s, got %s", want, path)
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read report: %v", err)
	}
	var meta engagementout.ReportFrontmatter
	body, err := markdown.Decode(raw, &meta)
	if err != nil {
		t.Fatalf("decode frontmatter: %v", err)
	}
	if meta.RunID != "01HRUN" || meta.State != "failed" || meta.DurationSeconds != 90 || !meta.StartedAt.Equal(started) {
		t.Fatalf("unexpected meta: %+v", meta)
	}
	if meta.Succeeded != 4 || meta.Failed != 3 || meta.Skipped != 2 || strings.Join(meta.Actions, ",") != "like,comment" {
		t.Fatalf("unexpected counters: %+v", meta)
	}
	if !strings.HasPrefix(string(raw), "---\nschema_version: 1\nrun_id: 01HRUN\n") {
		t.Fatalf("frontmatter keys out of order:\n%s", raw)
	}
	if !strings.Contains(body, "3 consecutive failures") {
		t.Fatalf("expected error section in body: %s", body)
	}
}
