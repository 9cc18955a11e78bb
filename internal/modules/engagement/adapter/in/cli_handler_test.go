package in_test

import (
	"context"
	"errors"
	"testing"
	"time"

	engagementin "engagectl/internal/modules/engagement/adapter/in"
	engagementdto "engagectl/internal/modules/engagement/dto"
	apperrors "engagectl/internal/platform/errors"
)

type fakeUsecase struct {
	started []engagementdto.StartInput
	presets [][]string
}

func (f *fakeUsecase) Start(_ context.Context, input engagementdto.StartInput) (engagementdto.StartOutput, error) {
	f.started = append(f.started, input)
	return engagementdto.StartOutput{Name: input.Name}, nil
}
func (f *fakeUsecase) StartPresets(_ context.Context, names []string) ([]engagementdto.StartOutput, error) {
	f.presets = append(f.presets, names)
	return nil, nil
}
func (f *fakeUsecase) Stop(context.Context, string) error { return nil }
func (f *fakeUsecase) StopAll(context.Context)            {}
func (f *fakeUsecase) List(context.Context) ([]engagementdto.SessionOutput, error) {
	return nil, nil
}
func (f *fakeUsecase) Wait(context.Context, string) error { return nil }
func (f *fakeUsecase) Shutdown(context.Context) error     { return nil }
func (f *fakeUsecase) Diagnostics(context.Context) engagementdto.DiagnosticsOutput {
	return engagementdto.DiagnosticsOutput{}
}
func (f *fakeUsecase) Presets(context.Context) ([]engagementdto.PresetOutput, error) {
	return nil, nil
}
func (f *fakeUsecase) Profiles(context.Context) []engagementdto.ProfileOutput { return nil }

func TestRunWithoutFlagsStartsPresets(t *testing.T) {
	t.Parallel()
	uc := &fakeUsecase{}
	handler := engagementin.NewCLIHandler(uc)
	if _, err := handler.Run(context.Background(), []string{"live", "video"}, engagementin.StartFlags{}); err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(uc.presets) != 1 || len(uc.presets[0]) != 2 || len(uc.started) != 0 {
		t.Fatalf("expected one StartPresets call, got presets=%v started=%v", uc.presets, uc.started)
	}
}

func TestRunWithFlagsOverridesSinglePreset(t *testing.T) {
	t.Parallel()
	uc := &fakeUsecase{}
	handler := engagementin.NewCLIHandler(uc)
	flags := engagementin.StartFlags{Name: " live-2 ", Target: "stream-9", Duration: time.Minute, Intensity: "high"}
	out, err := handler.Run(context.Background(), []string{"live"}, flags)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(out) != 1 || len(uc.started) != 1 {
		t.Fatalf("expected a single start, got %v", uc.started)
	}
	got := uc.started[0]
	if got.Name != "live-2" || got.Preset != "live" || got.Target != "stream-9" || got.Duration != time.Minute || got.Intensity != "high" {
		t.Fatalf("unexpected start input: %+v", got)
	}

	_, err = handler.Run(context.Background(), []string{"live", "video"}, flags)
	if !errors.Is(err, apperrors.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for flags over many presets, got %v", err)
	}
}

func TestStartAsKeepsPresetAndRenames(t *testing.T) {
	t.Parallel()
	uc := &fakeUsecase{}
	handler := engagementin.NewCLIHandler(uc)
	if _, err := handler.StartAs(context.Background(), "live", " live-b "); err != nil {
		t.Fatalf("start as: %v", err)
	}
	if len(uc.started) != 1 || uc.started[0].Preset != "live" || uc.started[0].Name != "live-b" {
		t.Fatalf("unexpected start input: %+v", uc.started)
	}
}
