package usecase_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"engagectl/internal/modules/engagement/domain"
	engagementdto "engagectl/internal/modules/engagement/dto"
	engagementin "engagectl/internal/modules/engagement/port/in"
	"engagectl/internal/modules/engagement/service"
	"engagectl/internal/modules/engagement/usecase"
	"engagectl/internal/platform/config"
	apperrors "engagectl/internal/platform/errors"
	"engagectl/internal/platform/logsink"
)

type okExecutor struct{}

func (okExecutor) Execute(context.Context, domain.ActionKind, string) (time.Duration, error) {
	return time.Millisecond, nil
}

func newInteractor(t *testing.T) engagementin.Usecase {
	t.Helper()
	sink := logsink.New(100)
	loop := service.NewLoop(service.LoopDeps{Executor: okExecutor{}, Sink: sink})
	registry := service.NewRegistry(service.RegistryDeps{Loop: loop, Sink: sink})
	always := 1.0
	presets := map[string]config.SessionPreset{
		"website": {
			Target:      "https://example.com",
			Duration:    time.Hour,
			Repetitions: 2,
			Intensity:   "high",
			DelayMin:    0,
			DelayMax:    time.Millisecond,
			Chance:      &always,
			Actions:     []string{"visit"},
		},
		"live": {
			Target:    "stream-1",
			Duration:  0,
			Intensity: "low",
			Actions:   []string{"like", "comment", "reaction"},
		},
	}
	uc := usecase.NewInteractor(registry, presets)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = uc.Shutdown(ctx)
	})
	return uc
}

func TestPresetsResolveIntensityAndOverrides(t *testing.T) {
	t.Parallel()
	uc := newInteractor(t)

	presets, err := uc.Presets(context.Background())
	if err != nil {
		t.Fatalf("presets: %v", err)
	}
	if len(presets) != 2 || presets[0].Name != "live" || presets[1].Name != "website" {
		t.Fatalf("unexpected presets: %+v", presets)
	}
	live := presets[0]
	if live.DelayMin != 20*time.Second || live.DelayMax != 40*time.Second || live.Chance != 0.3 {
		t.Fatalf("live should use the low profile: %+v", live)
	}
	site := presets[1]
	if site.DelayMax != time.Millisecond || site.Chance != 1 {
		t.Fatalf("website overrides not applied: %+v", site)
	}
}

func TestStartPresetRunsToCompletion(t *testing.T) {
	t.Parallel()
	uc := newInteractor(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	started, err := uc.StartPresets(ctx, []string{"website"})
	if err != nil {
		t.Fatalf("start preset: %v", err)
	}
	if len(started) != 1 || started[0].Name != "website" || started[0].RunID == "" {
		t.Fatalf("unexpected start output: %+v", started)
	}
	if err := uc.Wait(ctx, "website"); err != nil {
		t.Fatalf("wait: %v", err)
	}
	sessions, err := uc.List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if sessions[0].State != "completed" || !sessions[0].Terminal || sessions[0].ActionCount != 2 {
		t.Fatalf("unexpected session: %+v", sessions[0])
	}
}

func TestStartAllPresetsWhenNoneNamed(t *testing.T) {
	t.Parallel()
	uc := newInteractor(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	started, err := uc.StartPresets(ctx, nil)
	if err != nil {
		t.Fatalf("start all: %v", err)
	}
	if len(started) != 2 {
		t.Fatalf("expected both presets started, got %d", len(started))
	}
	for _, s := range started {
		if err := uc.Wait(ctx, s.Name); err != nil {
			t.Fatalf("wait %s: %v", s.Name, err)
		}
	}
}

func TestStartRejectsUnknownPresetAndBadOverrides(t *testing.T) {
	t.Parallel()
	uc := newInteractor(t)
	ctx := context.Background()

	if _, err := uc.Start(ctx, engagementdto.StartInput{Preset: "radio"}); !errors.Is(err, apperrors.ErrNotFound) {
		t.Fatalf("expected unknown preset, got %v", err)
	}
	if _, err := uc.Start(ctx, engagementdto.StartInput{Name: "x", Target: "t", Duration: time.Second, Intensity: "extreme", Actions: []string{"like"}}); !errors.Is(err, apperrors.ErrInvalidConfig) {
		t.Fatalf("expected invalid config for unknown intensity, got %v", err)
	}
	if _, err := uc.Start(ctx, engagementdto.StartInput{Name: "x", Target: "t", Duration: time.Second}); !errors.Is(err, apperrors.ErrInvalidConfig) {
		t.Fatalf("expected invalid config without actions, got %v", err)
	}
	if err := uc.Stop(ctx, "x"); !errors.Is(err, apperrors.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestStartWithoutPresetUsesExplicitFields(t *testing.T) {
	t.Parallel()
	uc := newInteractor(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	out, err := uc.Start(ctx, engagementdto.StartInput{
		Name:     "adhoc",
		Target:   "video-9",
		Duration: 0,
		Actions:  []string{"watch"},
	})
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if out.Target != "video-9" {
		t.Fatalf("unexpected output: %+v", out)
	}
	if err := uc.Wait(ctx, "adhoc"); err != nil {
		t.Fatalf("wait: %v", err)
	}
	if diag := uc.Diagnostics(ctx); diag.Active != 0 {
		t.Fatalf("expected no active sessions, got %+v", diag)
	}
	if profiles := uc.Profiles(ctx); len(profiles) != 3 || profiles[1].Name != "medium" {
		t.Fatalf("unexpected profiles: %+v", profiles)
	}
}
