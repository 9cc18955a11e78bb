package out_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	engagementout "engagectl/internal/modules/engagement/adapter/out"
	"engagectl/internal/modules/engagement/domain"
	plugindto "engagectl/internal/modules/plugin/dto"
	apperrors "engagectl/internal/platform/errors"
)

type fakePlugins struct {
	out   plugindto.ExecuteOutput
	err   error
	input plugindto.ExecuteInput
}

func (f *fakePlugins) List(context.Context) ([]plugindto.PluginInfo, error) { return nil, nil }
func (f *fakePlugins) Doctor(context.Context) ([]plugindto.DoctorResult, error) {
	return nil, nil
}
func (f *fakePlugins) ListActions(context.Context, string) ([]plugindto.ActionInfo, error) {
	return nil, nil
}
func (f *fakePlugins) Execute(_ context.Context, input plugindto.ExecuteInput) (plugindto.ExecuteOutput, error) {
	f.input = input
	return f.out, f.err
}

func TestPluginExecutorMapsOutcomes(t *testing.T) {
	t.Parallel()
	cases := []struct {
		name    string
		out     plugindto.ExecuteOutput
		err     error
		wantErr bool
		fatal   bool
	}{
		{name: "ok", out: plugindto.ExecuteOutput{OK: true, Elapsed: 30 * time.Millisecond}},
		{name: "in-band failure", out: plugindto.ExecuteOutput{Error: "rate limited"}, wantErr: true},
		{name: "fatal failure", out: plugindto.ExecuteOutput{Error: "banned", Fatal: true}, wantErr: true, fatal: true},
		{name: "unavailable", err: fmt.Errorf("%w: disabled", apperrors.ErrUnavailable), wantErr: true, fatal: true},
		{name: "transport error", err: errors.New("connection reset"), wantErr: true},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			plugins := &fakePlugins{out: tc.out, err: tc.err}
			exec := engagementout.NewPluginExecutor(plugins, "simulated")
			elapsed, err := exec.Execute(context.Background(), domain.ActionLike, "stream-1")
			if plugins.input.PluginName != "simulated" || plugins.input.Kind != "like" || plugins.input.Target != "stream-1" {
				t.Fatalf("unexpected plugin input: %+v", plugins.input)
			}
			if tc.wantErr != (err != nil) {
				t.Fatalf("wantErr=%v, got %v", tc.wantErr, err)
			}
			if errors.Is(err, domain.ErrFatalAction) != tc.fatal {
				t.Fatalf("fatal=%v, got %v", tc.fatal, err)
			}
			if !tc.wantErr && elapsed != tc.out.Elapsed {
				t.Fatalf("expected elapsed %s, got %s", tc.out.Elapsed, elapsed)
			}
		})
	}
}
