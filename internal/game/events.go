package game

import "fmt"

type SessionState int

const (
	StateConnecting SessionState = iota
	StateActive
	StateTerminated
)

func (s SessionState) String() string {
	switch s {
	case StateConnecting:
		return "Connecting"
	case StateActive:
		return "Active"
	case StateTerminated:
		return "Terminated"
	default:
		return fmt.Sprintf("SessionState(%d)", int(s))
	}
}

type EventKind int

const (
	EventSpawned EventKind = iota
	EventDisconnected
	EventError
	EventKicked
	EventChat
	EventPing
)

var eventKindNames = map[EventKind]string{
	EventSpawned:      "spawned",
	EventDisconnected: "disconnected",
	EventError:        "error",
	EventKicked:       "kicked",
	EventChat:         "chat",
	EventPing:         "ping",
}

func (k EventKind) String() string {
	if n, ok := eventKindNames[k]; ok {
		return n
	}
	return fmt.Sprintf("EventKind(%d)", int(k))
}

// AllEventKinds lists every notification a connection can emit.
func AllEventKinds() []EventKind {
	return []EventKind{EventSpawned, EventDisconnected, EventError, EventKicked, EventChat, EventPing}
}

// ConnectionEvent is a lifecycle notification delivered on a connection's
// event channel.
type ConnectionEvent struct {
	Kind    EventKind
	Reason  string
	Err     error
	User    string
	Message string
	PingMs  int
}

func Spawned() ConnectionEvent { return ConnectionEvent{Kind: EventSpawned} }

func Disconnected(reason string) ConnectionEvent {
	return ConnectionEvent{Kind: EventDisconnected, Reason: reason}
}

func ConnError(err error) ConnectionEvent {
	return ConnectionEvent{Kind: EventError, Err: err}
}

func Kicked(reason string) ConnectionEvent {
	return ConnectionEvent{Kind: EventKicked, Reason: reason}
}

func Chat(user, message string) ConnectionEvent {
	return ConnectionEvent{Kind: EventChat, User: user, Message: message}
}

func Ping(ms int) ConnectionEvent { return ConnectionEvent{Kind: EventPing, PingMs: ms} }

// Terminal reports whether the event ends the session.
func (e ConnectionEvent) Terminal() bool {
	switch e.Kind {
	case EventDisconnected, EventError, EventKicked:
		return true
	}
	return false
}

// Describe renders the termination cause for diagnostics.
func (e ConnectionEvent) Describe() string {
	switch e.Kind {
	case EventError:
		if e.Err != nil {
			return "error: " + e.Err.Error()
		}
		return "error"
	case EventDisconnected, EventKicked:
		if e.Reason == "" {
			return e.Kind.String()
		}
		return e.Kind.String() + ": " + e.Reason
	case EventChat:
		return fmt.Sprintf("chat <%s> %s", e.User, e.Message)
	case EventPing:
		return fmt.Sprintf("ping %dms", e.PingMs)
	default:
		return e.Kind.String()
	}
}
