package in

import (
	"context"

	"engagectl/internal/modules/plugin/dto"
	pluginin "engagectl/internal/modules/plugin/port/in"
)

type CLIHandler struct {
	usecase pluginin.Usecase
}

func NewCLIHandler(usecase pluginin.Usecase) CLIHandler {
	return CLIHandler{usecase: usecase}
}

func (h CLIHandler) List(ctx context.Context) ([]dto.PluginInfo, error) {
	return h.usecase.List(ctx)
}

func (h CLIHandler) Doctor(ctx context.Context) ([]dto.DoctorResult, error) {
	return h.usecase.Doctor(ctx)
}

func (h CLIHandler) ListActions(ctx context.Context, pluginName string) ([]dto.ActionInfo, error) {
	return h.usecase.ListActions(ctx, pluginName)
}

// Try performs a single action outside any session, for checking a plugin by hand.
func (h CLIHandler) Try(ctx context.Context, pluginName, kind, target string, dryRun bool) (dto.ExecuteOutput, error) {
	return h.usecase.Execute(ctx, dto.ExecuteInput{PluginName: pluginName, Kind: kind, Target: target, DryRun: dryRun})
}
