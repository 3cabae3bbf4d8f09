package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Server configures the language server process itself, as opposed to the
// per-user linting Settings.
type Server struct {
	// BinDir holds the bundled jxabuild and jxarun scripts.
	BinDir            string    `yaml:"binDir"`
	ScratchDir        string    `yaml:"scratchDir" validate:"required"`
	OSACompile        string    `yaml:"osacompile" validate:"required"`
	OSAScript         string    `yaml:"osascript" validate:"required"`
	MaxConcurrentRuns int       `yaml:"maxConcurrentRuns" validate:"gte=1,lte=64"`
	LogLevel          string    `yaml:"logLevel" validate:"oneof=error warn info debug trace"`
	Defaults          Layer     `yaml:"defaults"`
	Telemetry         Telemetry `yaml:"telemetry"`
}

type Telemetry struct {
	Exporter string `yaml:"exporter" validate:"oneof=none prometheus stdout"`
	// Addr is the listen address of the Prometheus endpoint.
	Addr string `yaml:"addr" validate:"required_if=Exporter prometheus"`
	// File receives stdout exporter output. Empty means stderr.
	File string `yaml:"file"`
}

// DefaultServer returns the configuration used when no file is given.
func DefaultServer() Server {
	binDir := ""
	if exe, err := os.Executable(); err == nil {
		binDir = filepath.Join(filepath.Dir(exe), "..", "libexec", "jxalsp")
	}
	return Server{
		BinDir:            binDir,
		ScratchDir:        filepath.Join(os.TempDir(), "jxalsp"),
		OSACompile:        "/usr/bin/osacompile",
		OSAScript:         "/usr/bin/osascript",
		MaxConcurrentRuns: 4,
		LogLevel:          "info",
		Telemetry:         Telemetry{Exporter: "none"},
	}
}

// LoadServer reads the YAML file at path over the defaults. An empty path
// returns the defaults.
func LoadServer(path string) (Server, error) {
	cfg := DefaultServer()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Server{}, fmt.Errorf("config file %s does not exist", path)
		}
		return Server{}, fmt.Errorf("reading config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Server{}, fmt.Errorf("%s: failed to parse YAML: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return Server{}, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

func (s Server) Validate() error {
	if err := validate.Struct(s); err != nil {
		return fmt.Errorf("invalid server config: %w", err)
	}
	return nil
}

// JXABuild is the path of the bundled compile wrapper.
func (s Server) JXABuild() string {
	return filepath.Join(s.BinDir, "jxabuild")
}

// JXARun is the path of the bundled script runner.
func (s Server) JXARun() string {
	return filepath.Join(s.BinDir, "jxarun")
}
