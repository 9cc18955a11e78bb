package main

import (
	"context"
	"fmt"
	"math/rand/v2"
	"time"

	pluginrpc "engagectl/internal/modules/plugin/adapter/out/rpc"

	"github.com/hashicorp/go-plugin"
)

type action struct {
	description string
	timeout     time.Duration
	min         time.Duration
	max         time.Duration
}

// Latencies are kept short; the plugin exists to exercise the host boundary,
// not to pace a session.
var actions = map[string]action{
	"visit":    {description: "Loads the target page", timeout: 5 * time.Second, min: 50 * time.Millisecond, max: 200 * time.Millisecond},
	"watch":    {description: "Plays the target video", timeout: 10 * time.Second, min: 100 * time.Millisecond, max: 400 * time.Millisecond},
	"like":     {description: "Likes the target", timeout: 2 * time.Second, min: 10 * time.Millisecond, max: 60 * time.Millisecond},
	"comment":  {description: "Posts a comment", timeout: 3 * time.Second, min: 20 * time.Millisecond, max: 120 * time.Millisecond},
	"share":    {description: "Shares the target", timeout: 2 * time.Second, min: 20 * time.Millisecond, max: 80 * time.Millisecond},
	"reaction": {description: "Sends a live reaction", timeout: time.Second, min: 5 * time.Millisecond, max: 30 * time.Millisecond},
}

var order = []string{"visit", "watch", "like", "comment", "share", "reaction"}

type server struct{}

func (s *server) GetMetadata(_ context.Context, _ *pluginrpc.Empty) (*pluginrpc.Metadata, error) {
	return &pluginrpc.Metadata{
		Name:         "simulated",
		Version:      "1.0.0",
		Capabilities: []string{"action", "dry_run"},
	}, nil
}

func (s *server) ListActions(_ context.Context, _ *pluginrpc.Empty) (*pluginrpc.ListActionsResponse, error) {
	out := make([]pluginrpc.ActionDescriptor, 0, len(order))
	for _, kind := range order {
		a := actions[kind]
		out = append(out, pluginrpc.ActionDescriptor{Kind: kind, Description: a.description, TimeoutMS: int32(a.timeout.Milliseconds())})
	}
	return &pluginrpc.ListActionsResponse{Actions: out}, nil
}

func (s *server) Execute(ctx context.Context, in *pluginrpc.ExecuteRequest) (*pluginrpc.ExecuteResponse, error) {
	a, ok := actions[in.Kind]
	if !ok {
		return &pluginrpc.ExecuteResponse{OK: false, Fatal: true, Error: fmt.Sprintf("unknown action: %s", in.Kind)}, nil
	}
	if in.DryRun {
		return &pluginrpc.ExecuteResponse{OK: true}, nil
	}
	elapsed := a.min + time.Duration(rand.Int64N(int64(a.max-a.min)+1))
	timer := time.NewTimer(elapsed)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-timer.C:
	}
	return &pluginrpc.ExecuteResponse{ElapsedMS: elapsed.Milliseconds(), OK: true}, nil
}

func main() {
	plugin.Serve(&plugin.ServeConfig{
		HandshakeConfig: pluginrpc.HandshakeConfig,
		Plugins:         pluginrpc.PluginMap(&server{}),
		GRPCServer:      plugin.DefaultGRPCServer,
	})
}
