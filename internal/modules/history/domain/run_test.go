package domain_test

import (
	"testing"
	"time"

	"engagectl/internal/modules/history/domain"
)

func TestPages(t *testing.T) {
	t.Parallel()
	cases := map[int]int{0: 1, 1: 1, 20: 1, 21: 2, 40: 2, 41: 3}
	for total, want := range cases {
		if got := domain.Pages(total); got != want {
			t.Fatalf("Pages(%d) = %d, want %d", total, got, want)
		}
	}
}

func TestRunFinished(t *testing.T) {
	t.Parallel()
	if (domain.Run{}).Finished() {
		t.Fatalf("run without finish time must not be finished")
	}
	if !(domain.Run{FinishedAt: time.Now()}).Finished() {
		t.Fatalf("expected finished run")
	}
}
