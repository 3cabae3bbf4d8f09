package server

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/corymhall/jxalsp/config"
	"github.com/corymhall/jxalsp/debug"
	"github.com/corymhall/jxalsp/provider"
)

// View is the workspace folder the server was started for and the settings
// layered over it.
type View struct {
	root string

	mu sync.Mutex
	// defaults come from the server configuration file.
	defaults  config.Layer
	global    config.Layer
	workspace config.Layer
}

func NewView(root string, defaults config.Layer) *View {
	return &View{root: root, defaults: defaults}
}

func (v *View) Root() string {
	return v.root
}

// Workspace returns the workspace with the settings currently in effect.
func (v *View) Workspace() provider.Workspace {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.workspaceLocked()
}

func (v *View) workspaceLocked() provider.Workspace {
	return provider.Workspace{
		Root:     v.root,
		Settings: config.Merge(config.Defaults(), v.defaults, v.global, v.workspace),
	}
}

// SetGlobal replaces the editor's settings layer. It returns the settings in
// effect before and after.
func (v *View) SetGlobal(l config.Layer) (before, after config.Settings) {
	v.mu.Lock()
	defer v.mu.Unlock()
	before = v.workspaceLocked().Settings
	v.global = l
	return before, v.workspaceLocked().Settings
}

// LoadWorkspaceFile rereads the settings file at the workspace root. On
// error the previous workspace layer stays in effect.
func (v *View) LoadWorkspaceFile(ctx context.Context) (before, after config.Settings, err error) {
	if v.root == "" {
		s := v.Workspace().Settings
		return s, s, nil
	}
	layer, unknown, err := config.LoadWorkspace(v.root)
	if len(unknown) > 0 {
		debug.Warning.Log(ctx, "ignoring unknown settings", slog.String("file", config.WorkspaceFile), slog.Any("keys", unknown))
	}

	v.mu.Lock()
	defer v.mu.Unlock()
	before = v.workspaceLocked().Settings
	if err != nil {
		return before, before, fmt.Errorf("loading %s: %w", config.WorkspaceFile, err)
	}
	v.workspace = layer
	return before, v.workspaceLocked().Settings, nil
}
