package bot

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gigaz-dev/walker/cmd/walker/log"
	"github.com/gigaz-dev/walker/internal/config"
	"github.com/gigaz-dev/walker/internal/route"
	"github.com/gigaz-dev/walker/internal/route/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func loadProfiles(t *testing.T, profiles map[string]string) {
	t.Helper()
	root := t.TempDir()
	walker := "logSaveDirectory: " + filepath.Join(root, "logs") + "\n"
	require.NoError(t, os.WriteFile(filepath.Join(root, "walker.yaml"), []byte(walker), 0o644))
	for name, body := range profiles {
		require.NoError(t, os.MkdirAll(filepath.Join(root, name), 0o755))
		require.NoError(t, os.WriteFile(filepath.Join(root, name, "config.yaml"), []byte(body), 0o644))
	}
	require.NoError(t, config.Load(root))
	t.Cleanup(log.FlushAndClose)
}

const dryProfile = `
enabled: true
username: dry
auth:
  method: static
  accessToken: offline
reconnectDelay: 1h
connector:
  kind: sim
route:
  source: inline
  waypoints:
    - {x: 5, y: 100, z: 0}
    - {x: -52, y: 102, z: -18, label: second point}
`

func TestManagerRunsSimulatedProfile(t *testing.T) {
	loadProfiles(t, map[string]string{"dry": dryProfile, "idle": "enabled: false\n"})
	mng := NewSupervisorManager(slog.New(slog.NewTextHandler(io.Discard, nil)), nil)

	var spawned []string
	mng.SetSessionHook(func(name string, s *Session) { spawned = append(spawned, name+"/"+s.Username) })

	assert.Equal(t, []string{"dry", "idle"}, mng.AvailableSupervisors())
	assert.Equal(t, []string{"dry"}, mng.EnabledSupervisors())

	errCh := make(chan error, 1)
	go func() { errCh <- mng.Start(context.Background(), "dry") }()

	require.Eventually(t, func() bool { return mng.Status("dry").RoutesCompleted == 1 }, 5*time.Second, 5*time.Millisecond)
	assert.Equal(t, []string{"dry"}, mng.Running())
	assert.Equal(t, "Active", mng.Status("dry").State)
	assert.Error(t, mng.Start(context.Background(), "dry"))

	mng.Stop("dry")
	select {
	case err := <-errCh:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("supervisor did not stop")
	}

	assert.Empty(t, mng.Running())
	assert.Equal(t, "Stopped", mng.Status("dry").State)
	assert.Equal(t, []string{"dry/dry"}, spawned)

	all := mng.StatusAll()
	assert.Len(t, all, 2)
}

func TestManagerRejectsBadProfiles(t *testing.T) {
	loadProfiles(t, map[string]string{
		"stored":    "route:\n  source: store\n  name: loop\n",
		"gesture":   "movement:\n  recovery: cartwheel\n",
		"connector": "connector:\n  kind: carrier-pigeon\n",
	})
	mng := NewSupervisorManager(slog.New(slog.NewTextHandler(io.Discard, nil)), nil)
	ctx := context.Background()

	assert.ErrorIs(t, mng.Start(ctx, "missing"), config.ErrUnknownProfile)
	assert.Error(t, mng.Start(ctx, "stored"))
	assert.Error(t, mng.Start(ctx, "gesture"))
	assert.Error(t, mng.Start(ctx, "connector"))
	assert.Empty(t, mng.Running())
}

func TestManagerRouteSources(t *testing.T) {
	db, err := store.Open(filepath.Join(t.TempDir(), "routes.db"))
	require.NoError(t, err)
	defer db.Close()
	require.NoError(t, db.SaveRoute(context.Background(), "loop", route.Default()))

	loadProfiles(t, map[string]string{
		"stored": "route:\n  source: store\n  name: loop\n",
		"broken": "route:\n  source: inline\n  waypoints:\n    - {x: 1, y: 2}\n",
		"stock":  "{}\n",
	})
	mng := NewSupervisorManager(slog.New(slog.NewTextHandler(io.Discard, nil)), db)
	ctx := context.Background()

	for name, wantErr := range map[string]bool{"stored": false, "broken": true, "stock": false} {
		cfg, ok := config.GetProfile(name)
		require.True(t, ok)
		src, err := mng.routeSource(cfg)
		require.NoError(t, err, name)

		r, err := src.Load(ctx)
		if wantErr {
			assert.ErrorIs(t, err, route.ErrMalformedRoute, name)
			continue
		}
		require.NoError(t, err, name)
		assert.Equal(t, route.Default().Waypoints(), r.Waypoints(), name)
	}
}

func TestManagerLaunchAndWait(t *testing.T) {
	loadProfiles(t, map[string]string{"dry": dryProfile})
	mng := NewSupervisorManager(slog.New(slog.NewTextHandler(io.Discard, nil)), nil)

	assert.ErrorIs(t, mng.Launch(context.Background(), "missing"), config.ErrUnknownProfile)
	require.NoError(t, mng.Launch(context.Background(), "dry"))
	require.Eventually(t, func() bool { return mng.Status("dry").RoutesCompleted == 1 }, 5*time.Second, 5*time.Millisecond)

	mng.StopAll()
	mng.Wait()
	assert.Empty(t, mng.Running())
}
