package dto

import "time"

type PluginInfo struct {
	Name         string
	Version      string
	Enabled      bool
	Binary       string
	Capabilities []string
}

type DoctorResult struct {
	Name            string
	ChecksumValid   bool
	BinaryReachable bool
	LifecycleOK     bool
	Actions         []string
	Error           string
}

type ActionInfo struct {
	Kind        string
	Description string
	TimeoutMS   int
}

type ExecuteInput struct {
	PluginName string
	Kind       string
	Target     string
	DryRun     bool
}

type ExecuteOutput struct {
	PluginName string
	Kind       string
	Elapsed    time.Duration
	OK         bool
	Error      string
	Fatal      bool
}
