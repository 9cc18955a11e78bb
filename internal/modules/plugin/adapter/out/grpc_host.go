package out

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"sync"
	"time"

	pluginrpc "engagectl/internal/modules/plugin/adapter/out/rpc"
	"engagectl/internal/modules/plugin/domain"
	pluginout "engagectl/internal/modules/plugin/port/out"

	hclog "github.com/hashicorp/go-hclog"
	"github.com/hashicorp/go-plugin"
)

const (
	defaultStartTimeout = 3 * time.Second
	defaultCallTimeout  = 5 * time.Second
)

// GRPCHost keeps one plugin process per binary alive across calls, so every
// tick of every session reuses it. Close kills them all.
type GRPCHost struct {
	mu      sync.Mutex
	clients map[string]*plugin.Client
}

func NewGRPCHost() pluginout.Host {
	return &GRPCHost{clients: map[string]*plugin.Client{}}
}

func (h *GRPCHost) CheckLifecycle(ctx context.Context, manifest domain.Manifest) error {
	client, err := h.connect(manifest)
	if err != nil {
		return err
	}
	callCtx, cancel := h.callContext(ctx, defaultCallTimeout)
	defer cancel()
	if _, err := client.GetMetadata(callCtx); err != nil {
		h.evict(manifest.Binary)
		return fmt.Errorf("get metadata: %w", err)
	}
	return nil
}

func (h *GRPCHost) GetMetadata(ctx context.Context, manifest domain.Manifest) (domain.Metadata, error) {
	client, err := h.connect(manifest)
	if err != nil {
		return domain.Metadata{}, err
	}
	callCtx, cancel := h.callContext(ctx, defaultCallTimeout)
	defer cancel()

	meta, err := client.GetMetadata(callCtx)
	if err != nil {
		return domain.Metadata{}, fmt.Errorf("get metadata: %w", err)
	}
	capabilities := make([]domain.Capability, 0, len(meta.Capabilities))
	for _, capability := range meta.Capabilities {
		capabilities = append(capabilities, domain.Capability(capability))
	}
	return domain.Metadata{Name: meta.Name, Version: meta.Version, Capabilities: capabilities}, nil
}

func (h *GRPCHost) ListActions(ctx context.Context, manifest domain.Manifest) ([]domain.ActionDescriptor, error) {
	client, err := h.connect(manifest)
	if err != nil {
		return nil, err
	}
	callCtx, cancel := h.callContext(ctx, defaultCallTimeout)
	defer cancel()

	response, err := client.ListActions(callCtx)
	if err != nil {
		return nil, fmt.Errorf("list actions: %w", err)
	}
	out := make([]domain.ActionDescriptor, 0, len(response.Actions))
	for _, action := range response.Actions {
		out = append(out, domain.ActionDescriptor{
			Kind:        action.Kind,
			Description: action.Description,
			TimeoutMS:   int(action.TimeoutMS),
		})
	}
	return out, nil
}

func (h *GRPCHost) Execute(ctx context.Context, manifest domain.Manifest, input domain.ActionRequest) (domain.ActionResult, error) {
	client, err := h.connect(manifest)
	if err != nil {
		return domain.ActionResult{}, err
	}
	callCtx, cancel := h.callContext(ctx, timeoutFor(input, defaultCallTimeout))
	defer cancel()
	response, err := client.Execute(callCtx, &pluginrpc.ExecuteRequest{
		Kind:   input.Kind,
		Target: input.Target,
		DryRun: input.DryRun,
	})
	if err != nil {
		if errors.Is(callCtx.Err(), context.DeadlineExceeded) {
			return domain.ActionResult{}, fmt.Errorf("%w: action %s", domain.ErrPluginTimeout, input.Kind)
		}
		h.evict(manifest.Binary)
		return domain.ActionResult{}, fmt.Errorf("execute action: %w", err)
	}
	return domain.ActionResult{
		Elapsed: time.Duration(response.ElapsedMS) * time.Millisecond,
		OK:      response.OK,
		Error:   response.Error,
		Fatal:   response.Fatal,
	}, nil
}

func (h *GRPCHost) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	for binary, client := range h.clients {
		client.Kill()
		delete(h.clients, binary)
	}
	return nil
}

func (h *GRPCHost) connect(manifest domain.Manifest) (pluginrpc.ActionPluginClient, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	client, ok := h.clients[manifest.Binary]
	if ok && client.Exited() {
		client.Kill()
		delete(h.clients, manifest.Binary)
		ok = false
	}
	if !ok {
		client = plugin.NewClient(&plugin.ClientConfig{
			HandshakeConfig:  pluginrpc.HandshakeConfig,
			AllowedProtocols: []plugin.Protocol{plugin.ProtocolGRPC},
			Plugins:          pluginrpc.PluginMap(nil),
			Cmd:              exec.Command(manifest.Binary),
			Managed:          true,
			StartTimeout:     defaultStartTimeout,
			Logger:           hclog.New(&hclog.LoggerOptions{Output: io.Discard, Level: hclog.NoLevel}),
		})
		h.clients[manifest.Binary] = client
	}

	rpcClient, err := client.Client()
	if err != nil {
		client.Kill()
		delete(h.clients, manifest.Binary)
		return nil, fmt.Errorf("start plugin client: %w", err)
	}
	raw, err := rpcClient.Dispense(pluginrpc.PluginMapKey)
	if err != nil {
		client.Kill()
		delete(h.clients, manifest.Binary)
		return nil, fmt.Errorf("dispense plugin: %w", err)
	}
	typed, ok := raw.(pluginrpc.ActionPluginClient)
	if !ok {
		client.Kill()
		delete(h.clients, manifest.Binary)
		return nil, fmt.Errorf("plugin rpc client type mismatch")
	}
	return typed, nil
}

func (h *GRPCHost) evict(binary string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if client, ok := h.clients[binary]; ok {
		client.Kill()
		delete(h.clients, binary)
	}
}

func timeoutFor(input domain.ActionRequest, fallback time.Duration) time.Duration {
	if input.Timeout > 0 {
		return input.Timeout
	}
	return fallback
}

func (h *GRPCHost) callContext(parent context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if _, ok := parent.Deadline(); ok {
		return context.WithCancel(parent)
	}
	return context.WithTimeout(parent, timeout)
}
