package bot

import (
	"testing"

	"github.com/gigaz-dev/walker/internal/game"
	"github.com/stretchr/testify/assert"
)

func TestTransitionTable(t *testing.T) {
	tests := []struct {
		state     game.SessionState
		kind      game.EventKind
		wantState game.SessionState
		wantAct   sessionAction
	}{
		{game.StateConnecting, game.EventSpawned, game.StateActive, actionStartRoute},
		{game.StateActive, game.EventSpawned, game.StateActive, actionNone},
		{game.StateConnecting, game.EventDisconnected, game.StateTerminated, actionTerminate},
		{game.StateConnecting, game.EventKicked, game.StateTerminated, actionTerminate},
		{game.StateActive, game.EventDisconnected, game.StateTerminated, actionTerminate},
		{game.StateActive, game.EventError, game.StateTerminated, actionTerminate},
		{game.StateActive, game.EventKicked, game.StateTerminated, actionTerminate},
		{game.StateActive, game.EventChat, game.StateActive, actionEchoChat},
		{game.StateConnecting, game.EventPing, game.StateConnecting, actionObservePing},
		{game.StateTerminated, game.EventSpawned, game.StateTerminated, actionNone},
		{game.StateTerminated, game.EventKicked, game.StateTerminated, actionNone},
	}
	for _, tt := range tests {
		t.Run(tt.state.String()+"/"+tt.kind.String(), func(t *testing.T) {
			state, act := transition(tt.state, tt.kind)
			assert.Equal(t, tt.wantState, state)
			assert.Equal(t, tt.wantAct, act)
		})
	}
}

func TestTransitionIsTotal(t *testing.T) {
	states := []game.SessionState{game.StateConnecting, game.StateActive, game.StateTerminated}
	for _, s := range states {
		for _, k := range append(game.AllEventKinds(), game.EventKind(99)) {
			next, act := transition(s, k)
			assert.Contains(t, states, next, "%s/%s", s, k)
			if act == actionTerminate {
				assert.Equal(t, game.StateTerminated, next)
			}
			if s == game.StateTerminated {
				assert.Equal(t, actionNone, act)
			}
		}
	}
}

func TestEveryTerminalCauseTakesTheSamePath(t *testing.T) {
	for _, ev := range []game.ConnectionEvent{game.Disconnected("server full"), game.ConnError(assert.AnError), game.Kicked("afk")} {
		next, act := transition(game.StateActive, ev.Kind)
		assert.Equal(t, game.StateTerminated, next)
		assert.Equal(t, actionTerminate, act)
		assert.True(t, ev.Terminal())
	}
}
