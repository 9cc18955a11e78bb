package out

import (
	"context"
	"errors"
	"fmt"
	"time"

	"engagectl/internal/modules/engagement/domain"
	engagementout "engagectl/internal/modules/engagement/port/out"
	plugindto "engagectl/internal/modules/plugin/dto"
	pluginin "engagectl/internal/modules/plugin/port/in"
	apperrors "engagectl/internal/platform/errors"
)

// PluginExecutor performs actions through an out-of-process plugin. A plugin
// that cannot be reached, or that reports a fatal failure, ends the session.
type PluginExecutor struct {
	plugins    pluginin.Usecase
	pluginName string
}

func NewPluginExecutor(plugins pluginin.Usecase, pluginName string) engagementout.ActionExecutor {
	return &PluginExecutor{plugins: plugins, pluginName: pluginName}
}

func (e *PluginExecutor) Execute(ctx context.Context, kind domain.ActionKind, target string) (time.Duration, error) {
	out, err := e.plugins.Execute(ctx, plugindto.ExecuteInput{
		PluginName: e.pluginName,
		Kind:       string(kind),
		Target:     target,
	})
	if err != nil {
		if errors.Is(err, apperrors.ErrUnavailable) {
			return 0, fmt.Errorf("%w: %w", domain.ErrFatalAction, err)
		}
		return 0, fmt.Errorf("plugin %s: %w", e.pluginName, err)
	}
	if out.OK {
		return out.Elapsed, nil
	}
	if out.Fatal {
		return out.Elapsed, fmt.Errorf("%w: plugin %s: %s", domain.ErrFatalAction, e.pluginName, out.Error)
	}
	return out.Elapsed, fmt.Errorf("plugin %s: %s", e.pluginName, out.Error)
}
