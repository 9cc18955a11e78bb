package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"engagectl/internal/modules/plugin/domain"
	"engagectl/internal/modules/plugin/dto"
	pluginout "engagectl/internal/modules/plugin/port/out"
	apperrors "engagectl/internal/platform/errors"
)

// runnable is a manifest that passed checksum and lifecycle checks, with the
// actions its plugin advertised.
type runnable struct {
	manifest domain.Manifest
	actions  []domain.ActionDescriptor
}

type PluginService struct {
	store pluginout.ManifestStore
	host  pluginout.Host

	mu    sync.Mutex
	ready map[string]runnable
}

func NewPluginService(store pluginout.ManifestStore, host pluginout.Host) *PluginService {
	return &PluginService{store: store, host: host, ready: map[string]runnable{}}
}

func (s *PluginService) List(ctx context.Context) ([]dto.PluginInfo, error) {
	manifests, err := s.loadValidated(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]dto.PluginInfo, 0, len(manifests))
	for _, m := range manifests {
		caps := make([]string, 0, len(m.Capabilities))
		for _, c := range m.Capabilities {
			caps = append(caps, string(c))
		}
		out = append(out, dto.PluginInfo{Name: m.Name, Version: m.Version, Enabled: m.Enabled, Binary: m.Binary, Capabilities: caps})
	}
	return out, nil
}

// doctorParallelism bounds how many plugin processes Doctor starts at once.
const doctorParallelism = 4

// Doctor checks every manifest: binary present, checksum, and for enabled
// plugins a lifecycle round trip plus the advertised actions. Results keep
// manifest order.
func (s *PluginService) Doctor(ctx context.Context) ([]dto.DoctorResult, error) {
	manifests, err := s.store.Load(ctx)
	if err != nil {
		return nil, err
	}
	results := make([]dto.DoctorResult, len(manifests))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(doctorParallelism)
	for i, m := range manifests {
		g.Go(func() error {
			results[i] = s.diagnose(gctx, m)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func (s *PluginService) diagnose(ctx context.Context, m domain.Manifest) dto.DoctorResult {
	result := dto.DoctorResult{Name: m.Name}
	if err := m.Validate(); err != nil {
		result.Error = err.Error()
		return result
	}
	if !fileExists(m.Binary) {
		result.Error = fmt.Sprintf("binary does not exist: %s", m.Binary)
		return result
	}
	result.BinaryReachable = true
	if err := checksumMatches(m.Binary, m.SHA256); err != nil {
		result.Error = "checksum mismatch"
		return result
	}
	result.ChecksumValid = true
	if !m.Enabled || s.host == nil {
		return result
	}
	if err := s.host.CheckLifecycle(ctx, m); err != nil {
		result.Error = err.Error()
		return result
	}
	result.LifecycleOK = true
	actions, err := s.host.ListActions(ctx, m)
	if err != nil {
		result.Error = err.Error()
		return result
	}
	for _, action := range actions {
		result.Actions = append(result.Actions, action.Kind)
	}
	return result
}

func (s *PluginService) ListActions(ctx context.Context, pluginName string) ([]dto.ActionInfo, error) {
	r, err := s.getRunnable(ctx, pluginName)
	if err != nil {
		return nil, err
	}
	out := make([]dto.ActionInfo, 0, len(r.actions))
	for _, action := range r.actions {
		out = append(out, dto.ActionInfo{Kind: action.Kind, Description: action.Description, TimeoutMS: action.TimeoutMS})
	}
	return out, nil
}

// Execute performs one action through the plugin. Errors that no retry can fix
// wrap apperrors.ErrUnavailable.
func (s *PluginService) Execute(ctx context.Context, input dto.ExecuteInput) (dto.ExecuteOutput, error) {
	r, err := s.getRunnable(ctx, input.PluginName)
	if err != nil {
		return dto.ExecuteOutput{}, err
	}
	if input.DryRun && !r.manifest.HasCapability(domain.CapabilityDryRun) {
		return dto.ExecuteOutput{}, fmt.Errorf("%w: %w: %s", apperrors.ErrUnavailable, domain.ErrCapabilityMissing, domain.CapabilityDryRun)
	}
	action, err := requireAction(r.actions, input.Kind)
	if err != nil {
		return dto.ExecuteOutput{}, fmt.Errorf("%w: %w", apperrors.ErrUnavailable, err)
	}
	req := domain.ActionRequest{
		Kind:    input.Kind,
		Target:  input.Target,
		DryRun:  input.DryRun,
		Timeout: time.Duration(action.TimeoutMS) * time.Millisecond,
	}
	if err := req.Validate(); err != nil {
		return dto.ExecuteOutput{}, fmt.Errorf("%w: %v", apperrors.ErrInvalidInput, err)
	}

	result, err := s.host.Execute(ctx, r.manifest, req)
	if err != nil {
		return dto.ExecuteOutput{}, err
	}
	return dto.ExecuteOutput{
		PluginName: input.PluginName,
		Kind:       input.Kind,
		Elapsed:    result.Elapsed,
		OK:         result.OK,
		Error:      result.Error,
		Fatal:      result.Fatal,
	}, nil
}

func (s *PluginService) loadValidated(ctx context.Context) ([]domain.Manifest, error) {
	manifests, err := s.store.Load(ctx)
	if err != nil {
		return nil, err
	}
	seenNames := map[string]struct{}{}
	for _, manifest := range manifests {
		if err := manifest.Validate(); err != nil {
			return nil, err
		}
		if _, ok := seenNames[manifest.Name]; ok {
			return nil, fmt.Errorf("duplicate plugin name: %s", manifest.Name)
		}
		seenNames[manifest.Name] = struct{}{}
	}
	return manifests, nil
}

// getRunnable verifies a plugin once per process and caches the result.
func (s *PluginService) getRunnable(ctx context.Context, pluginName string) (runnable, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r, ok := s.ready[pluginName]; ok {
		return r, nil
	}

	manifests, err := s.loadValidated(ctx)
	if err != nil {
		return runnable{}, err
	}
	manifest := domain.Manifest{}
	found := false
	for _, item := range manifests {
		if item.Name == pluginName {
			manifest = item
			found = true
			break
		}
	}
	if !found {
		return runnable{}, fmt.Errorf("%w: %w: plugin %q", apperrors.ErrUnavailable, apperrors.ErrNotFound, pluginName)
	}
	if !manifest.Enabled {
		return runnable{}, fmt.Errorf("%w: %w: %s", apperrors.ErrUnavailable, domain.ErrPluginDisabled, pluginName)
	}
	if !manifest.HasCapability(domain.CapabilityAction) {
		return runnable{}, fmt.Errorf("%w: %w: %s", apperrors.ErrUnavailable, domain.ErrCapabilityMissing, domain.CapabilityAction)
	}
	if err := checksumMatches(manifest.Binary, manifest.SHA256); err != nil {
		return runnable{}, fmt.Errorf("%w: %w", apperrors.ErrUnavailable, err)
	}
	if s.host == nil {
		return runnable{}, fmt.Errorf("%w: plugin host is not configured", apperrors.ErrUnavailable)
	}
	if err := s.host.CheckLifecycle(ctx, manifest); err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			return runnable{}, fmt.Errorf("%w: %s", domain.ErrPluginTimeout, pluginName)
		}
		return runnable{}, err
	}
	actions, err := s.host.ListActions(ctx, manifest)
	if err != nil {
		return runnable{}, err
	}
	for _, action := range actions {
		if err := action.Validate(); err != nil {
			return runnable{}, fmt.Errorf("%w: %v", apperrors.ErrUnavailable, err)
		}
	}
	r := runnable{manifest: manifest, actions: actions}
	s.ready[pluginName] = r
	return r, nil
}

func requireAction(actions []domain.ActionDescriptor, kind string) (domain.ActionDescriptor, error) {
	for _, action := range actions {
		if action.Kind == kind {
			return action, nil
		}
	}
	return domain.ActionDescriptor{}, fmt.Errorf("%w: %s", domain.ErrActionNotSupported, kind)
}

func checksumMatches(path string, expected string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open plugin binary: %w", err)
	}
	defer f.Close()
	hash := sha256.New()
	if _, err := io.Copy(hash, f); err != nil {
		return fmt.Errorf("hash plugin binary: %w", err)
	}
	if actual := hex.EncodeToString(hash.Sum(nil)); actual != expected {
		return fmt.Errorf("%w: %s", domain.ErrChecksumMismatch, filepath.Base(path))
	}
	return nil
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
