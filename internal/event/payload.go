package event

import (
	"encoding/json"
	"time"
)

// Payload is the wire form of an event for the viewer and the message brokers.
type Payload struct {
	Type       string         `json:"type"`
	Supervisor string         `json:"supervisor"`
	Message    string         `json:"message"`
	Time       time.Time      `json:"time"`
	Data       map[string]any `json:"data,omitempty"`
}

// TypeName is the stable name of an event kind, used in topics and payloads.
func TypeName(e Event) string {
	switch e.(type) {
	case SessionStartedEvent:
		return "session_started"
	case SessionTerminatedEvent:
		return "session_terminated"
	case RouteStartedEvent:
		return "route_started"
	case MovementAttemptEvent:
		return "movement_attempt"
	case WaypointReachedEvent:
		return "waypoint_reached"
	case RouteFinishedEvent:
		return "route_finished"
	case ChatReceivedEvent:
		return "chat"
	case NgrokTunnelEvent:
		return "ngrok_tunnel"
	default:
		return "text"
	}
}

func ToPayload(e Event) Payload {
	p := Payload{
		Type:       TypeName(e),
		Supervisor: e.Supervisor(),
		Message:    e.Message(),
		Time:       e.OccurredAt(),
	}
	switch evt := e.(type) {
	case SessionStartedEvent:
		p.Data = map[string]any{"sessionId": evt.SessionID, "username": evt.Username}
	case SessionTerminatedEvent:
		p.Data = map[string]any{"sessionId": evt.SessionID, "reason": evt.Reason}
	case RouteStartedEvent:
		p.Data = map[string]any{"legs": evt.Legs}
	case MovementAttemptEvent:
		p.Data = map[string]any{
			"label":       evt.Label,
			"goal":        evt.Goal,
			"attempt":     evt.Attempt,
			"maxAttempts": evt.MaxAttempts,
			"arrived":     evt.Outcome.Arrived,
		}
		if !evt.Outcome.Arrived {
			p.Data["failure"] = evt.Outcome.Kind.String()
			if evt.Outcome.Err != nil {
				p.Data["error"] = evt.Outcome.Err.Error()
			}
		}
	case WaypointReachedEvent:
		p.Data = map[string]any{"index": evt.Index, "label": evt.Label, "goal": evt.Goal}
	case RouteFinishedEvent:
		p.Data = map[string]any{"reason": string(evt.Reason), "index": evt.Index}
	case ChatReceivedEvent:
		p.Data = map[string]any{"user": evt.User, "text": evt.Text}
	case NgrokTunnelEvent:
		p.Data = map[string]any{"url": evt.URL}
	}
	return p
}

func Marshal(e Event) ([]byte, error) {
	return json.Marshal(ToPayload(e))
}
