package event

type SessionStartedEvent struct {
	BaseEvent
	SessionID string
	Username  string
}

func SessionStarted(be BaseEvent, sessionID, username string) SessionStartedEvent {
	return SessionStartedEvent{BaseEvent: be, SessionID: sessionID, Username: username}
}

type SessionTerminatedEvent struct {
	BaseEvent
	SessionID string
	Reason    string
}

func SessionTerminated(be BaseEvent, sessionID, reason string) SessionTerminatedEvent {
	return SessionTerminatedEvent{BaseEvent: be, SessionID: sessionID, Reason: reason}
}

type ChatReceivedEvent struct {
	BaseEvent
	User string
	Text string
}

func ChatReceived(be BaseEvent, user, text string) ChatReceivedEvent {
	return ChatReceivedEvent{BaseEvent: be, User: user, Text: text}
}

type NgrokTunnelEvent struct {
	BaseEvent
	URL string
}

func NgrokTunnel(url string) NgrokTunnelEvent {
	return NgrokTunnelEvent{BaseEvent: Text("", "Viewer tunnel available at "+url), URL: url}
}
