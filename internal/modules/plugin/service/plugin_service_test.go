package service_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"gopkg.in/yaml.v3"

	pluginout "engagectl/internal/modules/plugin/adapter/out"
	"engagectl/internal/modules/plugin/domain"
	"engagectl/internal/modules/plugin/service"
)

func TestDoctorReportsEachManifest(t *testing.T) {
	t.Parallel()
	actionCaps := []domain.Capability{domain.CapabilityAction}

	healthy := manifestWithBinary(t, true, actionCaps)
	healthy.Name = "healthy"
	disabled := manifestWithBinary(t, false, actionCaps)
	disabled.Name = "disabled"
	mismatch := manifestWithBinary(t, true, actionCaps)
	mismatch.Name = "mismatch"
	mismatch.SHA256 = strings.Repeat("0", 64)
	missing := manifestWithBinary(t, true, actionCaps)
	missing.Name = "missing"
	missing.Binary = filepath.Join(t.TempDir(), "gone")

	dataDir := t.TempDir()
	raw, err := yaml.Marshal(map[string]any{"plugins": []domain.Manifest{missing, healthy, mismatch, disabled}})
	if err != nil {
		t.Fatalf("marshal manifests: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dataDir, pluginout.ManifestFileName), raw, 0o644); err != nil {
		t.Fatalf("write manifests: %v", err)
	}

	host := &fakeHost{actions: []domain.ActionDescriptor{{Kind: "like", TimeoutMS: 1000}, {Kind: "comment", TimeoutMS: 3000}}}
	svc := service.NewPluginService(pluginout.NewFileManifestStore(dataDir), host)
	results, err := svc.Doctor(context.Background())
	if err != nil {
		t.Fatalf("doctor: %v", err)
	}
	if len(results) != 4 {
		t.Fatalf("expected four results, got %d", len(results))
	}
	byName := map[string]int{}
	for i, r := range results {
		byName[r.Name] = i
	}

	ok := results[byName["healthy"]]
	if !ok.BinaryReachable || !ok.ChecksumValid || !ok.LifecycleOK || ok.Error != "" {
		t.Fatalf("healthy plugin reported %+v", ok)
	}
	if strings.Join(ok.Actions, ",") != "like,comment" {
		t.Fatalf("healthy actions = %v", ok.Actions)
	}
	if r := results[byName["disabled"]]; !r.ChecksumValid || r.LifecycleOK {
		t.Fatalf("disabled plugin must not be started: %+v", r)
	}
	if r := results[byName["mismatch"]]; r.ChecksumValid || r.Error != "checksum mismatch" {
		t.Fatalf("expected checksum mismatch, got %+v", r)
	}
	if r := results[byName["missing"]]; r.BinaryReachable || !strings.Contains(r.Error, "does not exist") {
		t.Fatalf("expected missing binary, got %+v", r)
	}
	if host.lifecycles != 1 {
		t.Fatalf("lifecycle checks = %d, want 1", host.lifecycles)
	}
}

func TestListRejectsDuplicateNames(t *testing.T) {
	t.Parallel()
	first := manifestWithBinary(t, true, []domain.Capability{domain.CapabilityAction})
	second := manifestWithBinary(t, true, []domain.Capability{domain.CapabilityAction})
	svc := service.NewPluginService(fakeStore{manifests: []domain.Manifest{first, second}}, &fakeHost{})
	if _, err := svc.List(context.Background()); err == nil || !strings.Contains(err.Error(), "duplicate plugin name") {
		t.Fatalf("expected duplicate name error, got %v", err)
	}
}
