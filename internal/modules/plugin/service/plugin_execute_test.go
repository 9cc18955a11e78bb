package service_test

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"engagectl/internal/modules/plugin/domain"
	"engagectl/internal/modules/plugin/dto"
	"engagectl/internal/modules/plugin/service"
	apperrors "engagectl/internal/platform/errors"
)

type fakeStore struct {
	manifests []domain.Manifest
}

func (s fakeStore) Load(context.Context) ([]domain.Manifest, error) {
	return s.manifests, nil
}

type fakeHost struct {
	mu         sync.Mutex
	actions    []domain.ActionDescriptor
	lifecycles int
	requests   []domain.ActionRequest
	result     domain.ActionResult
}

func (h *fakeHost) CheckLifecycle(context.Context, domain.Manifest) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.lifecycles++
	return nil
}
func (h *fakeHost) GetMetadata(context.Context, domain.Manifest) (domain.Metadata, error) {
	return domain.Metadata{Name: "fake", Version: "1"}, nil
}
func (h *fakeHost) ListActions(context.Context, domain.Manifest) ([]domain.ActionDescriptor, error) {
	return h.actions, nil
}
func (h *fakeHost) Execute(_ context.Context, _ domain.Manifest, req domain.ActionRequest) (domain.ActionResult, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.requests = append(h.requests, req)
	return h.result, nil
}
func (h *fakeHost) Close() error { return nil }

func TestExecuteRejectsDisabledPlugin(t *testing.T) {
	t.Parallel()
	manifest := manifestWithBinary(t, false, []domain.Capability{domain.CapabilityAction})
	svc := service.NewPluginService(fakeStore{manifests: []domain.Manifest{manifest}}, &fakeHost{})
	_, err := svc.Execute(context.Background(), dto.ExecuteInput{PluginName: manifest.Name, Kind: "like", Target: "t"})
	if !errors.Is(err, domain.ErrPluginDisabled) || !errors.Is(err, apperrors.ErrUnavailable) {
		t.Fatalf("expected unavailable disabled plugin, got %v", err)
	}
}

func TestExecuteRejectsMissingCapabilities(t *testing.T) {
	t.Parallel()
	manifest := manifestWithBinary(t, true, []domain.Capability{domain.CapabilityDryRun})
	svc := service.NewPluginService(fakeStore{manifests: []domain.Manifest{manifest}}, &fakeHost{})
	_, err := svc.Execute(context.Background(), dto.ExecuteInput{PluginName: manifest.Name, Kind: "like", Target: "t"})
	if !errors.Is(err, domain.ErrCapabilityMissing) {
		t.Fatalf("expected ErrCapabilityMissing, got %v", err)
	}

	actionOnly := manifestWithBinary(t, true, []domain.Capability{domain.CapabilityAction})
	host := &fakeHost{actions: []domain.ActionDescriptor{{Kind: "like"}}}
	svc = service.NewPluginService(fakeStore{manifests: []domain.Manifest{actionOnly}}, host)
	_, err = svc.Execute(context.Background(), dto.ExecuteInput{PluginName: actionOnly.Name, Kind: "like", Target: "t", DryRun: true})
	if !errors.Is(err, domain.ErrCapabilityMissing) {
		t.Fatalf("expected dry run capability error, got %v", err)
	}
}

func TestExecuteRejectsUnknownPluginAndAction(t *testing.T) {
	t.Parallel()
	manifest := manifestWithBinary(t, true, []domain.Capability{domain.CapabilityAction})
	svc := service.NewPluginService(fakeStore{manifests: []domain.Manifest{manifest}}, &fakeHost{actions: []domain.ActionDescriptor{{Kind: "share"}}})

	_, err := svc.Execute(context.Background(), dto.ExecuteInput{PluginName: "missing", Kind: "like", Target: "t"})
	if !errors.Is(err, apperrors.ErrNotFound) || !errors.Is(err, apperrors.ErrUnavailable) {
		t.Fatalf("expected unavailable not found, got %v", err)
	}
	_, err = svc.Execute(context.Background(), dto.ExecuteInput{PluginName: manifest.Name, Kind: "like", Target: "t"})
	if !errors.Is(err, domain.ErrActionNotSupported) {
		t.Fatalf("expected ErrActionNotSupported, got %v", err)
	}
}

func TestExecuteSuccessCachesVerification(t *testing.T) {
	t.Parallel()
	manifest := manifestWithBinary(t, true, []domain.Capability{domain.CapabilityAction})
	host := &fakeHost{
		actions: []domain.ActionDescriptor{{Kind: "like", TimeoutMS: 1500}},
		result:  domain.ActionResult{Elapsed: 40 * time.Millisecond, OK: true},
	}
	svc := service.NewPluginService(fakeStore{manifests: []domain.Manifest{manifest}}, host)

	for i := 0; i < 3; i++ {
		out, err := svc.Execute(context.Background(), dto.ExecuteInput{PluginName: manifest.Name, Kind: "like", Target: "stream-1"})
		if err != nil {
			t.Fatalf("execute: %v", err)
		}
		if !out.OK || out.Elapsed != 40*time.Millisecond {
			t.Fatalf("unexpected output: %+v", out)
		}
	}
	if host.lifecycles != 1 {
		t.Fatalf("expected one lifecycle check, got %d", host.lifecycles)
	}
	if len(host.requests) != 3 || host.requests[0].Timeout != 1500*time.Millisecond || host.requests[0].Target != "stream-1" {
		t.Fatalf("unexpected requests: %+v", host.requests)
	}
}

func manifestWithBinary(t *testing.T, enabled bool, capabilities []domain.Capability) domain.Manifest {
	t.Helper()
	binPath := filepath.Join(t.TempDir(), "plugin-bin")
	if err := os.WriteFile(binPath, []byte("binary"), 0o755); err != nil {
		t.Fatalf("write binary: %v", err)
	}
	hash := sha256.Sum256([]byte("binary"))
	return domain.Manifest{
		Name:         "demo",
		Version:      "1.0.0",
		Binary:       binPath,
		SHA256:       hex.EncodeToString(hash[:]),
		Enabled:      enabled,
		Capabilities: capabilities,
	}
}
