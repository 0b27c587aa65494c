package bridge

import (
	"errors"
	"fmt"
	"strings"

	"github.com/gigaz-dev/walker/internal/game"
)

// command is one request to the sidecar. Every command but quit carries an
// id that the matching reply echoes.
type command struct {
	ID          int64    `json:"id,omitempty"`
	Op          string   `json:"op"`
	Host        string   `json:"host,omitempty"`
	Port        int      `json:"port,omitempty"`
	Username    string   `json:"username,omitempty"`
	AccessToken string   `json:"accessToken,omitempty"`
	X           *float64 `json:"x,omitempty"`
	Y           *float64 `json:"y,omitempty"`
	Z           *float64 `json:"z,omitempty"`
	Name        string   `json:"name,omitempty"`
	On          *bool    `json:"on,omitempty"`
}

const (
	opConnect = "connect"
	opGoto    = "goto"
	opControl = "control"
	opQuit    = "quit"
)

func gotoCommand(wp game.Waypoint) command {
	x, y, z := wp.X, wp.Y, wp.Z
	return command{Op: opGoto, X: &x, Y: &y, Z: &z}
}

func controlCommand(c game.Control, on bool) command {
	return command{Op: opControl, Name: string(c), On: &on}
}

type replyError struct {
	Name    string `json:"name"`
	Message string `json:"message"`
}

// inbound is either a reply (ID set) or an event (Event set).
type inbound struct {
	ID      *int64      `json:"id"`
	OK      bool        `json:"ok"`
	Error   *replyError `json:"error"`
	Event   string      `json:"event"`
	Reason  string      `json:"reason"`
	Message string      `json:"message"`
	User    string      `json:"user"`
	Ping    int         `json:"ping"`
}

// asError maps a failed reply onto the movement sentinels where it can.
func (e *replyError) asError() error {
	if e == nil {
		return errors.New("request failed")
	}
	switch {
	case e.Name == "NoPath":
		return fmt.Errorf("%w: %s", game.ErrNoPath, e.Message)
	case strings.Contains(e.Message, "Goal is unreachable"):
		return fmt.Errorf("%w: %s", game.ErrUnreachable, e.Message)
	case e.Name != "":
		return fmt.Errorf("%s: %s", e.Name, e.Message)
	default:
		return errors.New(e.Message)
	}
}

func (in inbound) connectionEvent() (game.ConnectionEvent, bool) {
	switch in.Event {
	case "spawn":
		return game.Spawned(), true
	case "end":
		reason := in.Reason
		if reason == "" {
			reason = "server closed the connection"
		}
		return game.Disconnected(reason), true
	case "error":
		return game.ConnError(errors.New(in.Message)), true
	case "kicked":
		return game.Kicked(in.Reason), true
	case "chat":
		return game.Chat(in.User, in.Message), true
	case "ping":
		return game.Ping(in.Ping), true
	default:
		return game.ConnectionEvent{}, false
	}
}
