package in

import (
	"context"

	"engagectl/internal/modules/engagement/dto"
)

type Usecase interface {
	Start(ctx context.Context, input dto.StartInput) (dto.StartOutput, error)
	StartPresets(ctx context.Context, names []string) ([]dto.StartOutput, error)
	Stop(ctx context.Context, name string) error
	StopAll(ctx context.Context)
	List(ctx context.Context) ([]dto.SessionOutput, error)
	Wait(ctx context.Context, name string) error
	Shutdown(ctx context.Context) error
	Diagnostics(ctx context.Context) dto.DiagnosticsOutput
	Presets(ctx context.Context) ([]dto.PresetOutput, error)
	Profiles(ctx context.Context) []dto.ProfileOutput
}
