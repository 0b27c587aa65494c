package game

import (
	"context"
	"errors"
	"strings"
)

var (
	ErrNoPath      = errors.New("no path to goal")
	ErrUnreachable = errors.New("goal is unreachable")
)

type Control string

const (
	ControlJump    Control = "jump"
	ControlForward Control = "forward"
	ControlBack    Control = "back"
	ControlLeft    Control = "left"
	ControlRight   Control = "right"
	ControlSneak   Control = "sneak"
	ControlSprint  Control = "sprint"
)

// Locomotion is the single movement capability a connected client exposes.
// Goto blocks until the goal is reached or the pathfinder gives up.
type Locomotion interface {
	Goto(ctx context.Context, goal Waypoint) error
	SetControl(name Control, on bool) error
}

type Connection interface {
	Events() <-chan ConnectionEvent
	Locomotion() Locomotion
	Username() string
	// Close destroys the connection. Pending locomotion calls fail and the
	// event channel is closed shortly after.
	Close() error
}

type Connector interface {
	Connect(ctx context.Context, host string, port int, creds Credentials) (Connection, error)
}

type Credentials struct {
	AccessToken string
	ProfileName string
}

type TokenSource interface {
	Token(ctx context.Context, userID, cacheDir string) (Credentials, error)
}

type FailureKind int

const (
	FailureOther FailureKind = iota
	FailureNoPath
	FailureUnreachable
)

func (k FailureKind) String() string {
	switch k {
	case FailureNoPath:
		return "NoPath"
	case FailureUnreachable:
		return "Unreachable"
	default:
		return "OtherError"
	}
}

// MovementOutcome is the result of one movement attempt.
type MovementOutcome struct {
	Arrived bool
	Kind    FailureKind
	Err     error
}

func Arrived() MovementOutcome {
	return MovementOutcome{Arrived: true}
}

func Failed(err error) MovementOutcome {
	return MovementOutcome{Kind: ClassifyMoveError(err), Err: err}
}

func (o MovementOutcome) String() string {
	if o.Arrived {
		return "Arrived"
	}
	if o.Err == nil {
		return "Failed(" + o.Kind.String() + ")"
	}
	return "Failed(" + o.Kind.String() + ": " + o.Err.Error() + ")"
}

// ClassifyMoveError maps a locomotion error onto a failure kind. Typed
// sentinels win; bridges that only forward text are matched on the
// pathfinder's wording.
func ClassifyMoveError(err error) FailureKind {
	switch {
	case err == nil:
		return FailureOther
	case errors.Is(err, ErrNoPath):
		return FailureNoPath
	case errors.Is(err, ErrUnreachable):
		return FailureUnreachable
	}

	msg := err.Error()
	switch {
	case strings.Contains(msg, "NoPath"):
		return FailureNoPath
	case strings.Contains(msg, "Goal is unreachable"):
		return FailureUnreachable
	}
	return FailureOther
}
