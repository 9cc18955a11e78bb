package usecase

import (
	"context"
	"fmt"
	"sort"

	"engagectl/internal/modules/engagement/domain"
	engagementdto "engagectl/internal/modules/engagement/dto"
	engagementin "engagectl/internal/modules/engagement/port/in"
	"engagectl/internal/modules/engagement/service"
	"engagectl/internal/platform/config"
	apperrors "engagectl/internal/platform/errors"
)

type Interactor struct {
	registry *service.Registry
	presets  map[string]config.SessionPreset
}

func NewInteractor(registry *service.Registry, presets map[string]config.SessionPreset) engagementin.Usecase {
	return &Interactor{registry: registry, presets: presets}
}

func (i *Interactor) Start(_ context.Context, input engagementdto.StartInput) (engagementdto.StartOutput, error) {
	name := input.Name
	if name == "" {
		name = input.Preset
	}
	cfg, err := i.resolve(input)
	if err != nil {
		return engagementdto.StartOutput{}, err
	}
	info, err := i.registry.StartSession(name, cfg)
	if err != nil {
		return engagementdto.StartOutput{}, err
	}
	return engagementdto.StartOutput{Name: info.Name, RunID: info.RunID, Target: info.Target, StartedAt: info.StartedAt}, nil
}

// StartPresets starts one session per preset, named after it. An empty list
// means every configured preset. It stops at the first failure.
func (i *Interactor) StartPresets(ctx context.Context, names []string) ([]engagementdto.StartOutput, error) {
	if len(names) == 0 {
		names = i.presetNames()
	}
	if len(names) == 0 {
		return nil, fmt.Errorf("%w: no session presets configured", apperrors.ErrInvalidInput)
	}
	out := make([]engagementdto.StartOutput, 0, len(names))
	for _, name := range names {
		started, err := i.Start(ctx, engagementdto.StartInput{Name: name, Preset: name})
		if err != nil {
			return out, fmt.Errorf("start %s: %w", name, err)
		}
		out = append(out, started)
	}
	return out, nil
}

func (i *Interactor) Stop(_ context.Context, name string) error {
	return i.registry.StopSession(name)
}

func (i *Interactor) StopAll(_ context.Context) {
	i.registry.StopAll()
}

func (i *Interactor) List(_ context.Context) ([]engagementdto.SessionOutput, error) {
	infos := i.registry.List()
	out := make([]engagementdto.SessionOutput, 0, len(infos))
	for _, info := range infos {
		out = append(out, engagementdto.SessionOutput{
			Name:        info.Name,
			RunID:       info.RunID,
			Target:      info.Target,
			State:       info.State.String(),
			Terminal:    info.State.IsTerminal(),
			ActionCount: info.ActionCount,
			StartedAt:   info.StartedAt,
			FinishedAt:  info.FinishedAt,
			Error:       info.Error,
		})
	}
	return out, nil
}

func (i *Interactor) Wait(ctx context.Context, name string) error {
	return i.registry.Wait(ctx, name)
}

func (i *Interactor) Shutdown(ctx context.Context) error {
	return i.registry.Shutdown(ctx)
}

func (i *Interactor) Diagnostics(_ context.Context) engagementdto.DiagnosticsOutput {
	diag := i.registry.Diagnostics()
	return engagementdto.DiagnosticsOutput{Active: diag.Active, Pending: diag.Pending, Dropped: diag.Dropped}
}

func (i *Interactor) Presets(_ context.Context) ([]engagementdto.PresetOutput, error) {
	out := make([]engagementdto.PresetOutput, 0, len(i.presets))
	for _, name := range i.presetNames() {
		cfg, err := i.resolve(engagementdto.StartInput{Preset: name})
		if err != nil {
			return nil, fmt.Errorf("preset %s: %w", name, err)
		}
		actions := make([]string, 0, len(cfg.Actions))
		for _, kind := range cfg.Actions {
			actions = append(actions, string(kind))
		}
		out = append(out, engagementdto.PresetOutput{
			Name:        name,
			Target:      cfg.Target,
			Duration:    cfg.Duration,
			Repetitions: cfg.Repetitions,
			Intensity:   i.presets[name].Intensity,
			DelayMin:    cfg.Profile.DelayMin,
			DelayMax:    cfg.Profile.DelayMax,
			Chance:      cfg.Profile.Chance,
			Actions:     actions,
		})
	}
	return out, nil
}

func (i *Interactor) Profiles(_ context.Context) []engagementdto.ProfileOutput {
	names := domain.PresetNames()
	out := make([]engagementdto.ProfileOutput, 0, len(names))
	for _, name := range names {
		p, _ := domain.Preset(name)
		out = append(out, engagementdto.ProfileOutput{Name: name, DelayMin: p.DelayMin, DelayMax: p.DelayMax, Chance: p.Chance})
	}
	return out
}

// resolve layers explicit input over the named preset and validates the result.
func (i *Interactor) resolve(input engagementdto.StartInput) (domain.SessionConfig, error) {
	preset := config.SessionPreset{Intensity: "medium"}
	if input.Preset != "" {
		p, ok := i.presets[input.Preset]
		if !ok {
			return domain.SessionConfig{}, fmt.Errorf("%w: session preset %s", apperrors.ErrNotFound, input.Preset)
		}
		preset = p
	}
	if input.Target != "" {
		preset.Target = input.Target
	}
	if input.Duration != 0 {
		preset.Duration = input.Duration
	}
	if input.Repetitions != 0 {
		preset.Repetitions = input.Repetitions
	}
	if input.AbortAfterFailures != 0 {
		preset.AbortAfterFailures = input.AbortAfterFailures
	}
	if len(input.Actions) > 0 {
		preset.Actions = input.Actions
	}
	if input.Intensity != "" {
		// An explicit intensity replaces the preset's overrides too.
		preset.Intensity = input.Intensity
		preset.DelayMin, preset.DelayMax, preset.Chance = 0, 0, nil
	}

	profile, err := profileFor(preset)
	if err != nil {
		return domain.SessionConfig{}, fmt.Errorf("%w: %w", apperrors.ErrInvalidConfig, err)
	}
	actions, err := domain.ParseActionKinds(preset.Actions)
	if err != nil {
		return domain.SessionConfig{}, err
	}
	cfg := domain.SessionConfig{
		Target:             preset.Target,
		Duration:           preset.Duration,
		Repetitions:        preset.Repetitions,
		Profile:            profile,
		Actions:            actions,
		AbortAfterFailures: preset.AbortAfterFailures,
	}
	if err := cfg.Validate(); err != nil {
		return domain.SessionConfig{}, err
	}
	return cfg, nil
}

func profileFor(preset config.SessionPreset) (domain.IntensityProfile, error) {
	intensity := preset.Intensity
	if intensity == "" {
		intensity = "medium"
	}
	profile, err := domain.Preset(intensity)
	if err != nil {
		return domain.IntensityProfile{}, err
	}
	if preset.DelayMin != 0 || preset.DelayMax != 0 {
		profile.DelayMin = preset.DelayMin
		profile.DelayMax = preset.DelayMax
	}
	if preset.Chance != nil {
		profile.Chance = *preset.Chance
	}
	return profile, profile.Validate()
}

func (i *Interactor) presetNames() []string {
	names := make([]string, 0, len(i.presets))
	for name := range i.presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
