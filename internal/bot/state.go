package bot

import "github.com/gigaz-dev/walker/internal/game"

type sessionAction int

const (
	actionNone sessionAction = iota
	actionStartRoute
	actionTerminate
	actionEchoChat
	actionObservePing
)

func (a sessionAction) String() string {
	switch a {
	case actionStartRoute:
		return "start-route"
	case actionTerminate:
		return "terminate"
	case actionEchoChat:
		return "echo-chat"
	case actionObservePing:
		return "observe-ping"
	default:
		return "none"
	}
}

// transition is the whole session state machine. It is defined for every
// state and event kind; pairs it has no rule for keep the state and do nothing.
// A second spawn while active (respawn after death) does not restart the route.
func transition(state game.SessionState, kind game.EventKind) (game.SessionState, sessionAction) {
	if state == game.StateTerminated {
		return state, actionNone
	}

	switch kind {
	case game.EventSpawned:
		if state == game.StateConnecting {
			return game.StateActive, actionStartRoute
		}
		return state, actionNone
	case game.EventDisconnected, game.EventError, game.EventKicked:
		return game.StateTerminated, actionTerminate
	case game.EventChat:
		return state, actionEchoChat
	case game.EventPing:
		return state, actionObservePing
	default:
		return state, actionNone
	}
}
