package sim

import (
	"context"
	"testing"
	"time"

	"github.com/gigaz-dev/walker/internal/game"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func recv(t *testing.T, c game.Connection) (game.ConnectionEvent, bool) {
	t.Helper()
	select {
	case ev, ok := <-c.Events():
		return ev, ok
	case <-time.After(2 * time.Second):
		t.Fatal("no event from the simulated world")
		return game.ConnectionEvent{}, false
	}
}

func TestSimSpawnsAndMoves(t *testing.T) {
	blocked := game.NewWaypoint(-52, 102, -18)
	w := &World{Blocked: []game.Waypoint{blocked}}
	conn, err := w.Connect(context.Background(), "localhost", 25565, game.Credentials{ProfileName: "dry"})
	require.NoError(t, err)
	defer conn.Close()

	ev, ok := recv(t, conn)
	require.True(t, ok)
	assert.Equal(t, game.EventSpawned, ev.Kind)
	assert.Equal(t, "dry", conn.Username())

	goal := game.NewWaypoint(5, 100, 0)
	require.NoError(t, conn.Locomotion().Goto(context.Background(), goal))
	assert.Equal(t, goal, conn.(*Conn).Position())

	assert.ErrorIs(t, conn.Locomotion().Goto(context.Background(), blocked), game.ErrNoPath)
}

func TestSimDisconnects(t *testing.T) {
	w := &World{SpawnDelay: time.Millisecond, DisconnectAfter: 5 * time.Millisecond}
	conn, err := w.Connect(context.Background(), "localhost", 25565, game.Credentials{})
	require.NoError(t, err)

	ev, _ := recv(t, conn)
	assert.Equal(t, game.EventSpawned, ev.Kind)
	ev, _ = recv(t, conn)
	assert.Equal(t, game.Disconnected("simulated disconnect"), ev)
	_, ok := recv(t, conn)
	assert.False(t, ok)

	assert.NoError(t, conn.Close())
	assert.Error(t, conn.Locomotion().Goto(context.Background(), game.NewWaypoint(0, 0, 0)))
}

func TestSimCloseBeforeSpawn(t *testing.T) {
	w := &World{SpawnDelay: time.Hour}
	conn, err := w.Connect(context.Background(), "localhost", 25565, game.Credentials{})
	require.NoError(t, err)

	require.NoError(t, conn.Close())
	_, ok := <-conn.Events()
	assert.False(t, ok)
}
