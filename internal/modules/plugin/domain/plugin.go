package domain

import (
	"errors"
	"fmt"
	"regexp"
	"time"
)

type Capability string

const (
	// CapabilityAction plugins can perform engagement actions.
	CapabilityAction Capability = "action"
	// CapabilityDryRun plugins accept requests that must not reach the target.
	CapabilityDryRun Capability = "dry_run"
)

var (
	ErrPluginDisabled     = errors.New("plugin is disabled")
	ErrChecksumMismatch   = errors.New("plugin checksum mismatch")
	ErrCapabilityMissing  = errors.New("plugin capability missing")
	ErrActionNotSupported = errors.New("plugin action not supported")
	ErrPluginTimeout      = errors.New("plugin timeout")
)

var sha256Pattern = regexp.MustCompile(`^[a-f0-9]{64}$`)

type Manifest struct {
	Name         string       `yaml:"name"`
	Version      string       `yaml:"version"`
	Binary       string       `yaml:"binary"`
	SHA256       string       `yaml:"sha256"`
	Enabled      bool         `yaml:"enabled"`
	Capabilities []Capability `yaml:"capabilities"`
}

func (m Manifest) Validate() error {
	if m.Name == "" {
		return fmt.Errorf("plugin name is required")
	}
	if m.Version == "" {
		return fmt.Errorf("plugin version is required")
	}
	if m.Binary == "" {
		return fmt.Errorf("plugin binary path is required")
	}
	if !sha256Pattern.MatchString(m.SHA256) {
		return fmt.Errorf("plugin sha256 must be lowercase 64-char hex")
	}
	if len(m.Capabilities) == 0 {
		return fmt.Errorf("plugin capabilities are required")
	}
	seen := map[Capability]struct{}{}
	for _, capability := range m.Capabilities {
		if err := capability.Validate(); err != nil {
			return err
		}
		if _, ok := seen[capability]; ok {
			return fmt.Errorf("duplicate capability: %s", capability)
		}
		seen[capability] = struct{}{}
	}
	return nil
}

func (c Capability) Validate() error {
	switch c {
	case CapabilityAction, CapabilityDryRun:
		return nil
	default:
		return fmt.Errorf("unknown capability: %s", c)
	}
}

func (m Manifest) HasCapability(capability Capability) bool {
	for _, c := range m.Capabilities {
		if c == capability {
			return true
		}
	}
	return false
}

// ActionDescriptor is one action kind a plugin can perform.
type ActionDescriptor struct {
	Kind        string
	Description string
	TimeoutMS   int
}

func (d ActionDescriptor) Validate() error {
	if d.Kind == "" {
		return fmt.Errorf("action kind is required")
	}
	if d.TimeoutMS < 0 {
		return fmt.Errorf("action %s timeout must not be negative", d.Kind)
	}
	return nil
}

type Metadata struct {
	Name         string
	Version      string
	Capabilities []Capability
}

type ActionRequest struct {
	Kind    string
	Target  string
	DryRun  bool
	Timeout time.Duration
}

func (r ActionRequest) Validate() error {
	if r.Kind == "" {
		return fmt.Errorf("action kind is required")
	}
	if r.Target == "" {
		return fmt.Errorf("action target is required")
	}
	return nil
}

// ActionResult reports a completed call. A plugin-side failure is a result
// with OK false, not a transport error; Fatal asks the caller to stop.
type ActionResult struct {
	Elapsed time.Duration
	OK      bool
	Error   string
	Fatal   bool
}
