package event

import "github.com/gigaz-dev/walker/internal/game"

type RouteStartedEvent struct {
	BaseEvent
	Legs int
}

func RouteStarted(be BaseEvent, legs int) RouteStartedEvent {
	return RouteStartedEvent{BaseEvent: be, Legs: legs}
}

type MovementAttemptEvent struct {
	BaseEvent
	Label       string
	Goal        game.Waypoint
	Attempt     int
	MaxAttempts int
	Outcome     game.MovementOutcome
}

func MovementAttempt(be BaseEvent, label string, goal game.Waypoint, attempt, maxAttempts int, outcome game.MovementOutcome) MovementAttemptEvent {
	return MovementAttemptEvent{
		BaseEvent:   be,
		Label:       label,
		Goal:        goal,
		Attempt:     attempt,
		MaxAttempts: maxAttempts,
		Outcome:     outcome,
	}
}

type WaypointReachedEvent struct {
	BaseEvent
	Index int
	Label string
	Goal  game.Waypoint
}

func WaypointReached(be BaseEvent, index int, label string, goal game.Waypoint) WaypointReachedEvent {
	return WaypointReachedEvent{BaseEvent: be, Index: index, Label: label, Goal: goal}
}

type RouteFinishReason string

const (
	RouteCompleted RouteFinishReason = "completed"
	RouteAborted   RouteFinishReason = "aborted"
	RouteFailed    RouteFinishReason = "failed"
)

type RouteFinishedEvent struct {
	BaseEvent
	Reason RouteFinishReason
	// Index is the leg the route stopped at; -1 when it completed.
	Index int
}

func RouteFinished(be BaseEvent, reason RouteFinishReason, index int) RouteFinishedEvent {
	return RouteFinishedEvent{BaseEvent: be, Reason: reason, Index: index}
}
