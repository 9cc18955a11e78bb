package in

import (
	"context"
	"fmt"
	"strings"
	"time"

	engagementdto "engagectl/internal/modules/engagement/dto"
	engagementin "engagectl/internal/modules/engagement/port/in"
	apperrors "engagectl/internal/platform/errors"
)

type CLIHandler struct {
	usecase engagementin.Usecase
}

func NewCLIHandler(usecase engagementin.Usecase) CLIHandler {
	return CLIHandler{usecase: usecase}
}

// StartFlags mirrors the run command's flags; zero values fall back to the preset.
type StartFlags struct {
	Name        string
	Target      string
	Duration    time.Duration
	Repetitions int
	Intensity   string
	Actions     []string
	AbortAfter  int
}

func (f StartFlags) empty() bool {
	return f.Name == "" && f.Target == "" && f.Duration == 0 && f.Repetitions == 0 &&
		f.Intensity == "" && len(f.Actions) == 0 && f.AbortAfter == 0
}

// Run starts the given presets. With a single preset (or none and explicit
// flags), the flags override the preset's fields.
func (h CLIHandler) Run(ctx context.Context, presets []string, flags StartFlags) ([]engagementdto.StartOutput, error) {
	if flags.empty() {
		return h.usecase.StartPresets(ctx, presets)
	}
	if len(presets) > 1 {
		return nil, fmt.Errorf("%w: session flags apply to a single preset", apperrors.ErrInvalidInput)
	}
	preset := ""
	if len(presets) > 0 {
		preset = presets[0]
	}
	out, err := h.usecase.Start(ctx, engagementdto.StartInput{
		Name:               strings.TrimSpace(flags.Name),
		Preset:             preset,
		Target:             strings.TrimSpace(flags.Target),
		Duration:           flags.Duration,
		Repetitions:        flags.Repetitions,
		Intensity:          strings.TrimSpace(flags.Intensity),
		Actions:            flags.Actions,
		AbortAfterFailures: flags.AbortAfter,
	})
	if err != nil {
		return nil, err
	}
	return []engagementdto.StartOutput{out}, nil
}

// StartPresets starts the named presets, or all of them when names is empty.
func (h CLIHandler) StartPresets(ctx context.Context, names []string) ([]engagementdto.StartOutput, error) {
	return h.usecase.StartPresets(ctx, names)
}

// StartAs starts a preset under another session name, so one preset can run twice.
func (h CLIHandler) StartAs(ctx context.Context, preset, name string) (engagementdto.StartOutput, error) {
	return h.usecase.Start(ctx, engagementdto.StartInput{Name: strings.TrimSpace(name), Preset: preset})
}

func (h CLIHandler) Stop(ctx context.Context, name string) error {
	return h.usecase.Stop(ctx, name)
}

func (h CLIHandler) StopAll(ctx context.Context) {
	h.usecase.StopAll(ctx)
}

func (h CLIHandler) List(ctx context.Context) ([]engagementdto.SessionOutput, error) {
	return h.usecase.List(ctx)
}

func (h CLIHandler) Wait(ctx context.Context, name string) error {
	return h.usecase.Wait(ctx, name)
}

func (h CLIHandler) Shutdown(ctx context.Context) error {
	return h.usecase.Shutdown(ctx)
}

func (h CLIHandler) Diagnostics(ctx context.Context) engagementdto.DiagnosticsOutput {
	return h.usecase.Diagnostics(ctx)
}

func (h CLIHandler) Presets(ctx context.Context) ([]engagementdto.PresetOutput, error) {
	return h.usecase.Presets(ctx)
}

func (h CLIHandler) Profiles(ctx context.Context) []engagementdto.ProfileOutput {
	return h.usecase.Profiles(ctx)
}
