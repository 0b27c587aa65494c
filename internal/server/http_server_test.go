package server

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gigaz-dev/walker/internal/bot"
	"github.com/gigaz-dev/walker/internal/event"
	"github.com/gigaz-dev/walker/internal/game"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticStatus map[string]bot.Stats

func (s staticStatus) StatusAll() map[string]bot.Stats { return s }

func newTestServer(t *testing.T) (*HttpServer, *httptest.Server) {
	t.Helper()
	status := staticStatus{
		"alpha": {SupervisorName: "alpha", State: "Active", Username: "gigaZ_", SessionsStarted: 2},
		"beta":  {SupervisorName: "beta", State: "Stopped"},
	}
	s := New(slog.New(slog.NewTextHandler(io.Discard, nil)), status)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(done)
	}()

	ts := httptest.NewServer(s.Handler())
	t.Cleanup(func() {
		ts.Close()
		cancel()
		<-done
	})
	return s, ts
}

func TestStatusSnapshot(t *testing.T) {
	s, ts := newTestServer(t)
	s.AttachSession("alpha", &bot.Session{ID: "abc", Username: "gigaZ_"})

	resp, err := http.Get(ts.URL + "/status")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var data StatusData
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&data))
	assert.Equal(t, "Active", data.Supervisors["alpha"].State)
	assert.Equal(t, 2, data.Supervisors["alpha"].SessionsStarted)
	assert.Equal(t, "abc", data.Sessions["alpha"].ID)
	assert.NotContains(t, data.Sessions, "beta")
}

func TestSupervisorStatus(t *testing.T) {
	_, ts := newTestServer(t)

	resp, err := http.Get(ts.URL + "/status/beta")
	require.NoError(t, err)
	var stats bot.Stats
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&stats))
	resp.Body.Close()
	assert.Equal(t, "Stopped", stats.State)

	resp, err = http.Get(ts.URL + "/status/gamma")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestIndexListsSupervisors(t *testing.T) {
	_, ts := newTestServer(t)

	resp, err := http.Get(ts.URL + "/")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	page := string(body)
	assert.Contains(t, page, "alpha")
	assert.Contains(t, page, "gigaZ_")
	assert.Less(t, strings.Index(page, "alpha"), strings.Index(page, "beta"))
}

func TestEventsAreBroadcast(t *testing.T) {
	s, ts := newTestServer(t)

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()
	require.Eventually(t, func() bool { return s.wsServer.Clients() == 1 }, 2*time.Second, 5*time.Millisecond)

	evt := event.WaypointReached(event.Text("alpha", "Reached second point"), 1, "second point", game.NewWaypoint(-52, 102, -18))
	require.NoError(t, s.Handle(context.Background(), evt))

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var got event.Payload
	require.NoError(t, conn.ReadJSON(&got))
	assert.Equal(t, "waypoint_reached", got.Type)
	assert.Equal(t, "alpha", got.Supervisor)
	assert.Equal(t, "Reached second point", got.Message)
	assert.Equal(t, "second point", got.Data["label"])
	assert.EqualValues(t, 1, got.Data["index"])
}

func TestHandleAfterHubStopped(t *testing.T) {
	s := New(slog.New(slog.NewTextHandler(io.Discard, nil)), staticStatus{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	s.Run(ctx)

	assert.ErrorIs(t, s.Handle(context.Background(), event.Text("alpha", "dropped")), errHubStopped)
}

func TestStopBeforeListen(t *testing.T) {
	s := New(slog.New(slog.NewTextHandler(io.Discard, nil)), staticStatus{})
	require.NoError(t, s.Stop())

	errCh := make(chan error, 1)
	go func() { errCh <- s.Listen("127.0.0.1", 0) }()

	select {
	case err := <-errCh:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Listen kept serving after Stop")
	}
}

func TestStopEndsListen(t *testing.T) {
	s := New(slog.New(slog.NewTextHandler(io.Discard, nil)), staticStatus{})

	errCh := make(chan error, 1)
	go func() { errCh <- s.Listen("127.0.0.1", 0) }()
	require.NoError(t, s.Stop())

	select {
	case err := <-errCh:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Listen did not return")
	}
}
