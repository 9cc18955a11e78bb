package usecase

import (
	"context"
	"fmt"
	"strings"

	"engagectl/internal/modules/plugin/dto"
	pluginin "engagectl/internal/modules/plugin/port/in"
	"engagectl/internal/modules/plugin/service"
	apperrors "engagectl/internal/platform/errors"
)

type Interactor struct {
	svc *service.PluginService
}

func NewInteractor(svc *service.PluginService) pluginin.Usecase {
	return &Interactor{svc: svc}
}

func (i *Interactor) List(ctx context.Context) ([]dto.PluginInfo, error) {
	return i.svc.List(ctx)
}

func (i *Interactor) Doctor(ctx context.Context) ([]dto.DoctorResult, error) {
	return i.svc.Doctor(ctx)
}

func (i *Interactor) ListActions(ctx context.Context, pluginName string) ([]dto.ActionInfo, error) {
	pluginName = strings.TrimSpace(pluginName)
	if pluginName == "" {
		return nil, fmt.Errorf("%w: plugin name is required", apperrors.ErrInvalidInput)
	}
	return i.svc.ListActions(ctx, pluginName)
}

// Execute normalizes the request before it reaches the plugin: names and
// targets are trimmed and action kinds are matched lower-case.
func (i *Interactor) Execute(ctx context.Context, input dto.ExecuteInput) (dto.ExecuteOutput, error) {
	input.PluginName = strings.TrimSpace(input.PluginName)
	input.Kind = strings.ToLower(strings.TrimSpace(input.Kind))
	input.Target = strings.TrimSpace(input.Target)
	if input.PluginName == "" {
		return dto.ExecuteOutput{}, fmt.Errorf("%w: plugin name is required", apperrors.ErrInvalidInput)
	}
	return i.svc.Execute(ctx, input)
}
