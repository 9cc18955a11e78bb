package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"gopkg.in/yaml.v3"
)

const FileName = "engagectl.yaml"

type Config struct {
	DataDir         string                   `yaml:"-"`
	DBPath          string                   `yaml:"db_path"`
	ReportsDir      string                   `yaml:"reports_dir"`
	Log             LogConfig                `yaml:"log"`
	Sink            SinkConfig               `yaml:"sink"`
	Executor        ExecutorConfig           `yaml:"executor"`
	Metrics         MetricsConfig            `yaml:"metrics"`
	ShutdownTimeout time.Duration            `yaml:"shutdown_timeout"`
	Sessions        map[string]SessionPreset `yaml:"sessions"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

type SinkConfig struct {
	Capacity int `yaml:"capacity"`
}

type ExecutorConfig struct {
	Kind        string  `yaml:"kind"`
	Plugin      string  `yaml:"plugin,omitempty"`
	FailureRate float64 `yaml:"failure_rate"`
	Speed       float64 `yaml:"speed"`
}

type MetricsConfig struct {
	Addr string `yaml:"addr"`
}

// SessionPreset is a named session template. Zero delay/chance fields fall
// back to the named intensity.
type SessionPreset struct {
	Target             string        `yaml:"target"`
	Duration           time.Duration `yaml:"duration"`
	Repetitions        int           `yaml:"repetitions"`
	Intensity          string        `yaml:"intensity"`
	DelayMin           time.Duration `yaml:"delay_min,omitempty"`
	DelayMax           time.Duration `yaml:"delay_max,omitempty"`
	Chance             *float64      `yaml:"chance,omitempty"`
	Actions            []string      `yaml:"actions"`
	AbortAfterFailures int           `yaml:"abort_after_failures,omitempty"`
}

const (
	ExecutorSimulated = "simulated"
	ExecutorPlugin    = "plugin"
)

func Default(dataDir string) Config {
	always := 1.0
	return Config{
		DataDir:    dataDir,
		DBPath:     filepath.Join(dataDir, ".engagectl", "engagectl.db"),
		ReportsDir: filepath.Join(dataDir, "runs"),
		Log:        LogConfig{Level: "info", Format: "text"},
		Sink:       SinkConfig{Capacity: 1000},
		Executor: ExecutorConfig{
			Kind:        ExecutorSimulated,
			FailureRate: 0.05,
			Speed:       1,
		},
		ShutdownTimeout: 10 * time.Second,
		Sessions: map[string]SessionPreset{
			"website": {
				Target:      "https://example.com",
				Duration:    30 * time.Minute,
				Repetitions: 100,
				Intensity:   "medium",
				DelayMin:    5 * time.Second,
				DelayMax:    15 * time.Second,
				Chance:      &always,
				Actions:     []string{"visit"},
			},
			"video": {
				Target:      "example-video",
				Duration:    time.Hour,
				Repetitions: 30,
				Intensity:   "medium",
				DelayMin:    5 * time.Second,
				DelayMax:    15 * time.Second,
				Chance:      &always,
				Actions:     []string{"watch"},
			},
			"live": {
				Target:    "example-stream",
				Duration:  2 * time.Hour,
				Intensity: "medium",
				Actions:   []string{"like", "comment", "reaction"},
			},
		},
	}
}

// Load returns defaults overlaid with the YAML file at path. An empty path
// means <dataDir>/engagectl.yaml, which may be absent.
func Load(dataDir, path string) (Config, error) {
	if dataDir == "" {
		return Config{}, fmt.Errorf("data dir is required")
	}
	cfg := Default(dataDir)
	explicit := path != ""
	if !explicit {
		path = filepath.Join(dataDir, FileName)
	}
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		// Presets in the file replace the defaults instead of merging into them.
		cfg.Sessions = nil
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("decode config %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist) && !explicit:
	default:
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	cfg.DataDir = dataDir
	cfg.DBPath = resolve(dataDir, cfg.DBPath)
	cfg.ReportsDir = resolve(dataDir, cfg.ReportsDir)
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if c.Sink.Capacity <= 0 {
		return fmt.Errorf("sink capacity must be positive")
	}
	switch c.Executor.Kind {
	case ExecutorSimulated:
	case ExecutorPlugin:
		if c.Executor.Plugin == "" {
			return fmt.Errorf("executor plugin name is required for plugin executor")
		}
	default:
		return fmt.Errorf("unknown executor kind: %s", c.Executor.Kind)
	}
	if c.Executor.FailureRate < 0 || c.Executor.FailureRate > 1 {
		return fmt.Errorf("executor failure rate must be within [0,1]")
	}
	if c.Executor.Speed <= 0 {
		return fmt.Errorf("executor speed must be positive")
	}
	if c.ShutdownTimeout < 0 {
		return fmt.Errorf("shutdown timeout must not be negative")
	}
	return nil
}

// PresetNames returns the configured session preset names in sorted order.
func (c Config) PresetNames() []string {
	names := make([]string, 0, len(c.Sessions))
	for name := range c.Sessions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Write stores cfg as YAML at path, refusing to overwrite an existing file.
func Write(path string, cfg Config) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config already exists: %s", path)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	out := cfg
	out.DBPath = relative(cfg.DataDir, cfg.DBPath)
	out.ReportsDir = relative(cfg.DataDir, cfg.ReportsDir)
	raw, err := yaml.Marshal(out)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

func resolve(base, path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(base, path)
}

func relative(base, path string) string {
	rel, err := filepath.Rel(base, path)
	if err != nil {
		return path
	}
	return rel
}
