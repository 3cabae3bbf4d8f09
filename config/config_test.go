package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/hexops/autogold/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr[T any](v T) *T { return &v }

func TestMergeLayers(t *testing.T) {
	global := Layer{Mode: ptr(ModeOnSave), HideInfo: ptr(true)}
	workspace := Layer{Mode: ptr(ModeOff), ESLintBinary: ptr("/opt/eslint")}

	got := Merge(Defaults(), global, workspace)
	assert.Equal(t, Settings{Mode: ModeOff, HideInfo: true, ESLintBinary: "/opt/eslint"}, got)

	assert.Equal(t, Settings{Mode: ModeOnChange}, Merge(Defaults()))
}

func TestDecodeGlobal(t *testing.T) {
	l, err := DecodeGlobal(json.RawMessage(`{"jxa": {"linting": {"mode": "onSave", "hideInfo": true}}, "other": 1}`))
	require.NoError(t, err)
	require.NotNil(t, l.Mode)
	assert.Equal(t, ModeOnSave, *l.Mode)
	assert.True(t, *l.HideInfo)
	assert.Nil(t, l.ESLintBinary)

	l, err = DecodeGlobal(json.RawMessage(`{"typescript": {}}`))
	require.NoError(t, err)
	assert.Equal(t, Layer{}, l)

	l, err = DecodeGlobal(nil)
	require.NoError(t, err)
	assert.Equal(t, Layer{}, l)

	_, err = DecodeGlobal(json.RawMessage(`{"jxa": {"linting": {"mode": "always"}}}`))
	assert.Error(t, err)
}

func TestLoadWorkspace(t *testing.T) {
	root := t.TempDir()

	l, unknown, err := LoadWorkspace(root)
	require.NoError(t, err)
	assert.Equal(t, Layer{}, l)
	assert.Empty(t, unknown)

	require.NoError(t, os.WriteFile(filepath.Join(root, WorkspaceFile), []byte(`
[linting]
mode = "onSave"
eslint-binary = "node_modules/.bin/eslint"
eslint-path = "obsolete"
`), 0o644))

	l, unknown, err = LoadWorkspace(root)
	require.NoError(t, err)
	assert.Equal(t, ModeOnSave, *l.Mode)
	assert.Equal(t, "node_modules/.bin/eslint", *l.ESLintBinary)
	autogold.Expect([]string{"linting.eslint-path"}).Equal(t, unknown)
}

func TestLoadWorkspaceInvalid(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, WorkspaceFile), []byte("[linting]\nmode = \"sometimes\"\n"), 0o644))
	_, _, err := LoadWorkspace(root)
	assert.Error(t, err)
}

func TestLoadServer(t *testing.T) {
	cfg, err := LoadServer("")
	require.NoError(t, err)
	assert.Equal(t, 4, cfg.MaxConcurrentRuns)
	assert.Equal(t, "none", cfg.Telemetry.Exporter)

	path := filepath.Join(t.TempDir(), "jxalsp.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
binDir: /opt/jxalsp/bin
maxConcurrentRuns: 2
logLevel: debug
defaults:
  mode: onSave
telemetry:
  exporter: prometheus
  addr: 127.0.0.1:9464
`), 0o644))
	cfg, err = LoadServer(path)
	require.NoError(t, err)
	assert.Equal(t, "/opt/jxalsp/bin/jxabuild", cfg.JXABuild())
	assert.Equal(t, "/opt/jxalsp/bin/jxarun", cfg.JXARun())
	assert.Equal(t, 2, cfg.MaxConcurrentRuns)
	assert.Equal(t, ModeOnSave, *cfg.Defaults.Mode)
	assert.Equal(t, "/usr/bin/osacompile", cfg.OSACompile)

	require.NoError(t, os.WriteFile(path, []byte("telemetry:\n  exporter: prometheus\n"), 0o644))
	_, err = LoadServer(path)
	assert.Error(t, err)

	_, err = LoadServer(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
