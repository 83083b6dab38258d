// Package config loads hexe's YAML configuration file the way agentd
// does: unmarshal into a struct tree, then fill defaults field-by-field.
package config

import (
	"os"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Instance InstanceConfig `yaml:"instance"`
	Paths    PathsConfig    `yaml:"paths"`
	Session  SessionConfig  `yaml:"session"`
	Pod      PodConfig      `yaml:"pod"`
	Debug    DebugConfig    `yaml:"debug"`
}

// InstanceConfig names the running hexe instance, for users who run more
// than one SES on a host (distinct socket dirs, distinct state dirs).
type InstanceConfig struct {
	Name string `yaml:"name"`
}

type PathsConfig struct {
	RuntimeDir    string `yaml:"runtime_dir"`
	StateDir      string `yaml:"state_dir"`
	PodBinaryPath string `yaml:"pod_binary_path"`
}

type SessionConfig struct {
	DefaultShell   string `yaml:"default_shell"`
	TickIntervalMs int    `yaml:"tick_interval_ms"`
	MaxClients     int    `yaml:"max_clients"`
}

type PodConfig struct {
	BacklogBytes     int `yaml:"backlog_bytes"`
	SpillMaxBytes    int `yaml:"spill_max_bytes"`
	ResizeCoalesceMs int `yaml:"resize_coalesce_ms"`
}

// DebugConfig controls SES's optional loopback-only inspection surface:
// Prometheus /metrics and the websocket event feed share this one
// listener. Off by default; never carries C1-C5 wire traffic.
type DebugConfig struct {
	Listen string `yaml:"listen"`
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	fillDefaults(&cfg)
	return &cfg, nil
}

// Default returns the config an unconfigured hexe instance runs with: no
// file on disk, every field at its built-in default (runtime dir /tmp/hexe,
// state dir /var/lib/hexe).
func Default() *Config {
	cfg := &Config{}
	fillDefaults(cfg)
	return cfg
}

func fillDefaults(cfg *Config) {
	if cfg.Paths.RuntimeDir == "" {
		cfg.Paths.RuntimeDir = "/tmp/hexe"
	}
	if cfg.Paths.StateDir == "" {
		cfg.Paths.StateDir = "/var/lib/hexe"
	}
	if cfg.Paths.PodBinaryPath == "" {
		cfg.Paths.PodBinaryPath = "hexe-pod"
	}
	if cfg.Session.DefaultShell == "" {
		cfg.Session.DefaultShell = "/bin/bash"
	}
	if cfg.Session.TickIntervalMs == 0 {
		cfg.Session.TickIntervalMs = 1000
	}
	if cfg.Session.MaxClients == 0 {
		cfg.Session.MaxClients = 64
	}
	if cfg.Pod.BacklogBytes == 0 {
		cfg.Pod.BacklogBytes = 1 << 20
	}
	if cfg.Pod.SpillMaxBytes == 0 {
		cfg.Pod.SpillMaxBytes = 16 << 20
	}
	if cfg.Pod.ResizeCoalesceMs == 0 {
		cfg.Pod.ResizeCoalesceMs = 50
	}

	// Instance name disambiguates socket/state directories for users
	// running more than one hexe on a host; the environment always wins,
	// matching agentd's AGENTD_CONTROL_PLANE_TOKEN override pattern.
	if env := os.Getenv("HEXE_INSTANCE"); env != "" {
		cfg.Instance.Name = env
	}
	if cfg.Instance.Name == "" {
		cfg.Instance.Name = "default"
	}
}
