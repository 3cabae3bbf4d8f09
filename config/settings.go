// Package config holds the linting settings a user controls from the editor
// and the workspace, and the server's own process configuration.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/BurntSushi/toml"
	"github.com/go-playground/validator/v10"
)

// Mode controls when documents are linted.
type Mode string

const (
	ModeOff      Mode = "off"
	ModeOnChange Mode = "onChange"
	ModeOnSave   Mode = "onSave"
)

// WorkspaceFile is the settings file read from the workspace root.
const WorkspaceFile = ".jxa.toml"

// Settings are the effective linting settings.
type Settings struct {
	Mode         Mode   `json:"mode" validate:"oneof=off onChange onSave"`
	HideInfo     bool   `json:"hideInfo"`
	ESLintBinary string `json:"eslintBinary"`
}

// Layer is one source of settings. Nil fields are inherited from the layer
// below.
type Layer struct {
	Mode         *Mode   `json:"mode,omitempty" toml:"mode" yaml:"mode,omitempty" validate:"omitempty,oneof=off onChange onSave"`
	HideInfo     *bool   `json:"hideInfo,omitempty" toml:"hide-info" yaml:"hideInfo,omitempty"`
	ESLintBinary *string `json:"eslintBinary,omitempty" toml:"eslint-binary" yaml:"eslintBinary,omitempty"`
}

var validate = validator.New()

// Defaults returns the settings used when no layer sets a value.
func Defaults() Settings {
	return Settings{Mode: ModeOnChange}
}

// Merge applies layers over base in order, so later layers win.
func Merge(base Settings, layers ...Layer) Settings {
	out := base
	for _, l := range layers {
		if l.Mode != nil {
			out.Mode = *l.Mode
		}
		if l.HideInfo != nil {
			out.HideInfo = *l.HideInfo
		}
		if l.ESLintBinary != nil {
			out.ESLintBinary = *l.ESLintBinary
		}
	}
	return out
}

func (s Settings) Validate() error {
	if err := validate.Struct(s); err != nil {
		return fmt.Errorf("invalid settings: %w", err)
	}
	return nil
}

func (l Layer) Validate() error {
	if err := validate.Struct(l); err != nil {
		return fmt.Errorf("invalid settings: %w", err)
	}
	return nil
}

// DecodeGlobal extracts the layer under "jxa.linting" from the settings
// object sent with workspace/didChangeConfiguration. Settings for other
// tools are ignored.
func DecodeGlobal(raw json.RawMessage) (Layer, error) {
	var envelope struct {
		JXA *struct {
			Linting json.RawMessage `json:"linting"`
		} `json:"jxa"`
	}
	if len(raw) == 0 || string(raw) == "null" {
		return Layer{}, nil
	}
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return Layer{}, fmt.Errorf("decoding configuration: %w", err)
	}
	if envelope.JXA == nil {
		return Layer{}, nil
	}
	return DecodeSection(envelope.JXA.Linting)
}

// DecodeSection decodes the "jxa.linting" section itself, as returned by a
// workspace/configuration request.
func DecodeSection(raw json.RawMessage) (Layer, error) {
	var l Layer
	if len(raw) == 0 || string(raw) == "null" {
		return l, nil
	}
	if err := json.Unmarshal(raw, &l); err != nil {
		return Layer{}, fmt.Errorf("decoding jxa.linting: %w", err)
	}
	return l, l.Validate()
}

// LoadWorkspace reads the [linting] table of the workspace settings file in
// root. A missing file is an empty layer. The keys that were not recognized
// are returned so callers can report stale settings.
func LoadWorkspace(root string) (Layer, []string, error) {
	if root == "" {
		return Layer{}, nil, nil
	}
	path := filepath.Join(root, WorkspaceFile)
	var file struct {
		Linting Layer `toml:"linting"`
	}
	meta, err := toml.DecodeFile(path, &file)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Layer{}, nil, nil
		}
		return Layer{}, nil, fmt.Errorf("%s: failed to parse TOML: %w", path, err)
	}
	var unknown []string
	for _, key := range meta.Undecoded() {
		unknown = append(unknown, key.String())
	}
	sort.Strings(unknown)
	if err := file.Linting.Validate(); err != nil {
		return Layer{}, unknown, fmt.Errorf("%s: %w", path, err)
	}
	return file.Linting, unknown, nil
}
