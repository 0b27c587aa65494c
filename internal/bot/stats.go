package bot

import "time"

// Stats is a point-in-time snapshot of a supervisor, served by the viewer and
// the remote commands.
type Stats struct {
	SupervisorName   string    `json:"supervisor"`
	State            string    `json:"state"`
	StartedAt        time.Time `json:"startedAt"`
	SessionID        string    `json:"sessionId,omitempty"`
	Username         string    `json:"username,omitempty"`
	ActiveSince      time.Time `json:"activeSince,omitempty"`
	SessionsStarted  int       `json:"sessionsStarted"`
	Terminations     int       `json:"terminations"`
	ConnectFailures  int       `json:"connectFailures"`
	LastTermination  string    `json:"lastTermination,omitempty"`
	LastTerminatedAt time.Time `json:"lastTerminatedAt,omitempty"`
	RoutesCompleted  int       `json:"routesCompleted"`
	RoutesAborted    int       `json:"routesAborted"`
	RoutesFailed     int       `json:"routesFailed"`
	LastRoute        string    `json:"lastRoute,omitempty"`
}

func (s *SessionSupervisor) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stats
}
