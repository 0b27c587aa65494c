package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	sloggger "github.com/gigaz-dev/walker/cmd/walker/log"
	"github.com/gigaz-dev/walker/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func configRoot(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	walker := "logSaveDirectory: " + filepath.Join(root, "logs") + "\nrouteStorePath: routes.db\n"
	require.NoError(t, os.WriteFile(filepath.Join(root, "walker.yaml"), []byte(walker), 0o644))
	require.NoError(t, os.MkdirAll(filepath.Join(root, "template"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "template", "config.yaml"), []byte("enabled: true\n"), 0o644))
	t.Cleanup(sloggger.FlushAndClose)
	return root
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

const routeJSON = `// patrol loop
[
  {"x": 5, "y": 100, "z": 0, "label": "start"},
  {"x": -52, "y": 102, "z": -18, "waitMs": 500}
]`

func TestRouteCommands(t *testing.T) {
	root := configRoot(t)
	file := filepath.Join(t.TempDir(), "loop.json")
	require.NoError(t, os.WriteFile(file, []byte(routeJSON), 0o644))

	out, err := execute(t, "--config", root, "route", "check", file)
	require.NoError(t, err)
	assert.Equal(t, "1. start (5, 100, 0)\n2. waypoint 2 (-52, 102, -18)\n", out)

	out, err = execute(t, "--config", root, "route", "import", "loop", file)
	require.NoError(t, err)
	assert.Equal(t, "saved route loop with 2 waypoints\n", out)
	assert.FileExists(t, filepath.Join(root, "routes.db"))

	out, err = execute(t, "--config", root, "route", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "NAME")
	assert.Contains(t, out, "loop")

	out, err = execute(t, "--config", root, "route", "show", "loop")
	require.NoError(t, err)
	assert.Contains(t, out, `"label": "start"`)
	assert.Contains(t, out, `"waitMs": 500`)

	_, err = execute(t, "--config", root, "route", "show", "missing")
	assert.Error(t, err)
}

func TestRouteCheckRejectsMalformed(t *testing.T) {
	root := configRoot(t)
	file := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(file, []byte(`[{"x": 1, "y": 2}]`), 0o644))

	_, err := execute(t, "--config", root, "route", "check", file)
	assert.Error(t, err)
}

func TestInitCreatesProfile(t *testing.T) {
	root := configRoot(t)

	out, err := execute(t, "--config", root, "init", "alpha")
	require.NoError(t, err)
	assert.Contains(t, out, filepath.Join(root, "alpha", "config.yaml"))

	cfg, ok := config.GetProfile("alpha")
	require.True(t, ok)
	assert.True(t, cfg.Enabled)
	assert.Equal(t, "alpha", cfg.Username)

	_, err = execute(t, "--config", root, "init", "alpha")
	assert.ErrorIs(t, err, config.ErrProfileExists)
}

func TestRunNeedsEnabledProfiles(t *testing.T) {
	root := configRoot(t)

	_, err := execute(t, "--config", root, "run")
	assert.Error(t, err)

	_, err = execute(t, "--config", root, "run", "nobody")
	assert.ErrorIs(t, err, config.ErrUnknownProfile)
}
