package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/gigaz-dev/walker/internal/game"
	"github.com/gigaz-dev/walker/internal/route"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "walker.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestSaveAndLoadRoute(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	slow := game.RetryPolicy{MaxAttempts: 5, AttemptDelay: time.Second}
	r := route.Default()
	r[2].Policy = &slow

	require.NoError(t, db.SaveRoute(ctx, "spawn-loop", r))

	got, err := db.LoadRoute(ctx, "spawn-loop")
	require.NoError(t, err)
	assert.Equal(t, r, got)
}

func TestSaveRouteReplaces(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	require.NoError(t, db.SaveRoute(ctx, "r", route.Default()))
	require.NoError(t, db.SaveRoute(ctx, "r", route.FromWaypoints(game.NewWaypoint(1, 2, 3))))

	got, err := db.LoadRoute(ctx, "r")
	require.NoError(t, err)
	assert.Equal(t, []game.Waypoint{game.NewWaypoint(1, 2, 3)}, got.Waypoints())
}

func TestEmptyRouteRoundTrip(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	require.NoError(t, db.SaveRoute(ctx, "idle", route.Route{}))
	got, err := db.LoadRoute(ctx, "idle")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestListAndDelete(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	require.NoError(t, db.SaveRoute(ctx, "b", route.Default()))
	require.NoError(t, db.SaveRoute(ctx, "a", route.FromWaypoints(game.NewWaypoint(0, 64, 0))))

	infos, err := db.ListRoutes(ctx)
	require.NoError(t, err)
	require.Len(t, infos, 2)
	assert.Equal(t, "a", infos[0].Name)
	assert.Equal(t, 1, infos[0].Legs)
	assert.Equal(t, 3, infos[1].Legs)

	require.NoError(t, db.DeleteRoute(ctx, "b"))
	assert.ErrorIs(t, db.DeleteRoute(ctx, "b"), ErrRouteNotFound)

	_, err = db.LoadRoute(ctx, "b")
	assert.ErrorIs(t, err, ErrRouteNotFound)
}

func TestSourceMissingRouteIsMalformed(t *testing.T) {
	db := testDB(t)
	_, err := Source{DB: db, Name: "ghost"}.Load(context.Background())
	assert.ErrorIs(t, err, route.ErrMalformedRoute)
}
