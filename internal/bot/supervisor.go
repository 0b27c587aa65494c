package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gigaz-dev/walker/internal/action"
	"github.com/gigaz-dev/walker/internal/action/step"
	"github.com/gigaz-dev/walker/internal/event"
	"github.com/gigaz-dev/walker/internal/game"
	"github.com/gigaz-dev/walker/internal/health"
	"github.com/gigaz-dev/walker/internal/route"
	"github.com/gigaz-dev/walker/internal/utils"
)

var ErrAlreadyRunning = errors.New("supervisor is already running")

type Supervisor interface {
	Name() string
	Start(ctx context.Context) error
	Stop()
	State() game.SessionState
	Stats() Stats
}

type Options struct {
	UserID   string
	CacheDir string
	Host     string
	Port     int
	// ReconnectDelay is waited after every termination, including failed connects.
	ReconnectDelay time.Duration
	// SpawnTimeout bounds the wait for the first spawn, zero waits forever.
	SpawnTimeout time.Duration
	Policy       game.RetryPolicy
}

// Deps are the collaborators a supervisor drives. Tokens, Connector and
// Route are required.
type Deps struct {
	Tokens    game.TokenSource
	Connector game.Connector
	Route     route.Source
	Sleeper   utils.Sleeper
	Recovery  step.Recovery
	Send      event.Sender
	Ping      *health.PingMonitor
	// OnSpawn runs once per session right after the client enters the world.
	OnSpawn func(name string, s *Session)
	Now     func() time.Time
}

// SessionSupervisor keeps one client connected for as long as its context
// lives: connect, wait for spawn, run the route, and after any termination
// wait ReconnectDelay and start over with a fresh session.
type SessionSupervisor struct {
	name   string
	logger *slog.Logger
	opts   Options
	deps   Deps

	mu       sync.Mutex
	cancelFn context.CancelFunc
	running  bool
	state    game.SessionState
	current  *Session
	stats    Stats
}

func NewSessionSupervisor(name string, logger *slog.Logger, opts Options, deps Deps) (*SessionSupervisor, error) {
	if deps.Tokens == nil || deps.Connector == nil || deps.Route == nil {
		return nil, errors.New("token source, connector and route source are required")
	}
	if deps.Sleeper == nil {
		deps.Sleeper = utils.RealSleeper
	}
	if deps.Recovery == nil {
		deps.Recovery = step.JumpForward(step.DefaultGestureHold)
	}
	if deps.Send == nil {
		deps.Send = event.Send
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if opts.ReconnectDelay < 0 {
		opts.ReconnectDelay = 0
	}
	if err := opts.Policy.Validate(); err != nil {
		logger.Warn("Invalid retry policy, clamping", slog.Any("error", err))
		opts.Policy = opts.Policy.Clamped()
	}

	return &SessionSupervisor{
		name:   name,
		logger: logger,
		opts:   opts,
		deps:   deps,
		state:  game.StateTerminated,
		stats:  Stats{SupervisorName: name, State: game.StateTerminated.String()},
	}, nil
}

func (s *SessionSupervisor) Name() string { return s.name }

// Start blocks until ctx is cancelled or Stop is called. Session failures
// never end it; they only lead to the next reconnect.
func (s *SessionSupervisor) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrAlreadyRunning, s.name)
	}
	ctx, cancel := context.WithCancel(ctx)
	s.cancelFn = cancel
	s.running = true
	s.stats.StartedAt = s.deps.Now()
	s.mu.Unlock()

	defer func() {
		cancel()
		s.mu.Lock()
		s.running = false
		s.state = game.StateTerminated
		s.stats.State = game.StateTerminated.String()
		s.mu.Unlock()
	}()

	s.logger.Info("Starting supervisor", slog.String("host", s.opts.Host), slog.Int("port", s.opts.Port))
	for {
		reason, sessionID := s.runSession(ctx)
		if ctx.Err() != nil {
			s.logger.Info("Supervisor stopped")
			return nil
		}

		s.setState(game.StateTerminated)
		s.recordTermination(reason)
		s.logger.Warn(fmt.Sprintf("Session ended (%s), reconnecting in %s", reason, s.opts.ReconnectDelay))
		s.deps.Send(event.SessionTerminated(event.Text(s.name, "Session ended: "+reason), sessionID, reason))

		if err := s.deps.Sleeper.Sleep(ctx, s.opts.ReconnectDelay); err != nil {
			s.logger.Info("Supervisor stopped while waiting to reconnect")
			return nil
		}
	}
}

// runSession drives one lifecycle and returns why it ended.
func (s *SessionSupervisor) runSession(ctx context.Context) (reason, sessionID string) {
	s.setState(game.StateConnecting)

	s.logger.Info("Acquiring credentials", slog.String("user", s.opts.UserID))
	creds, err := s.deps.Tokens.Token(ctx, s.opts.UserID, s.opts.CacheDir)
	if err != nil {
		s.countConnectFailure()
		return "authentication failed: " + err.Error(), ""
	}
	s.logger.Info("Credentials acquired", slog.String("profile", creds.ProfileName))

	conn, err := s.deps.Connector.Connect(ctx, s.opts.Host, s.opts.Port, creds)
	if err != nil {
		s.countConnectFailure()
		return "connect failed: " + err.Error(), ""
	}

	fallback := creds.ProfileName
	if fallback == "" {
		fallback = s.opts.UserID
	}
	sess := newSession(conn, fallback, s.deps.Now())
	s.mu.Lock()
	s.current = sess
	s.stats.SessionID = sess.ID
	s.stats.Username = sess.Username
	s.mu.Unlock()
	if s.deps.Ping != nil {
		s.deps.Ping.Reset()
	}

	defer func() {
		if err := sess.end(); err != nil {
			s.logger.Debug("Error closing connection", slog.Any("error", err))
		}
		s.mu.Lock()
		s.current = nil
		s.mu.Unlock()
	}()

	var spawnDeadline <-chan time.Time
	if s.opts.SpawnTimeout > 0 {
		t := time.NewTimer(s.opts.SpawnTimeout)
		defer t.Stop()
		spawnDeadline = t.C
	}

	events := conn.Events()
	for {
		var ev game.ConnectionEvent
		select {
		case <-ctx.Done():
			return "shutdown", sess.ID
		case <-spawnDeadline:
			return fmt.Sprintf("no spawn within %s", s.opts.SpawnTimeout), sess.ID
		case e, ok := <-events:
			if !ok {
				e = game.Disconnected("connection closed")
			}
			ev = e
		}

		next, act := transition(s.State(), ev.Kind)
		s.setState(next)

		switch act {
		case actionStartRoute:
			spawnDeadline = nil
			s.onSpawn(ctx, sess)
		case actionTerminate:
			return ev.Describe(), sess.ID
		case actionEchoChat:
			if ev.User == sess.Username {
				continue
			}
			s.logger.Info(fmt.Sprintf("%s: %s", ev.User, ev.Message))
			s.deps.Send(event.ChatReceived(event.Text(s.name, ev.User+": "+ev.Message), ev.User, ev.Message))
		case actionObservePing:
			if s.deps.Ping != nil && s.deps.Ping.Observe(ev.PingMs) {
				return fmt.Sprintf("sustained high ping (%dms)", ev.PingMs), sess.ID
			}
		}
	}
}

func (s *SessionSupervisor) onSpawn(ctx context.Context, sess *Session) {
	s.logger.Info("Client spawned", slog.String("username", sess.Username), slog.String("session", sess.ID))
	s.mu.Lock()
	s.stats.SessionsStarted++
	s.stats.ActiveSince = sess.StartedAt
	s.mu.Unlock()
	s.deps.Send(event.SessionStarted(event.Text(s.name, "Logged in as "+sess.Username), sess.ID, sess.Username))

	if s.deps.OnSpawn != nil {
		s.deps.OnSpawn(s.name, sess)
	}

	mover := action.NewMover(s.name, s.logger,
		action.WithSleeper(s.deps.Sleeper),
		action.WithRecovery(s.deps.Recovery),
		action.WithPolicy(s.opts.Policy),
		action.WithEventSender(s.deps.Send),
	)
	loco := sess.Locomotion()
	sess.run(ctx, func(ctx context.Context) {
		res := mover.RunRouteFrom(ctx, loco, s.deps.Route)
		s.recordRoute(res)
	})
}

// Stop ends the supervisor loop; the current session is torn down on the way out.
func (s *SessionSupervisor) Stop() {
	s.mu.Lock()
	cancel := s.cancelFn
	s.mu.Unlock()
	if cancel != nil {
		s.logger.Info("Stopping supervisor")
		cancel()
	}
}

func (s *SessionSupervisor) State() game.SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *SessionSupervisor) setState(state game.SessionState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != state {
		s.logger.Debug("Session state changed", slog.String("from", s.state.String()), slog.String("to", state.String()))
	}
	s.state = state
	s.stats.State = state.String()
}

func (s *SessionSupervisor) countConnectFailure() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stats.ConnectFailures++
}

func (s *SessionSupervisor) recordTermination(reason string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stats.Terminations++
	s.stats.LastTermination = reason
	s.stats.LastTerminatedAt = s.deps.Now()
	s.stats.SessionID = ""
	s.stats.ActiveSince = time.Time{}
}

func (s *SessionSupervisor) recordRoute(res action.Result) {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch res.Kind {
	case action.ResultCompleted:
		s.stats.RoutesCompleted++
	case action.ResultAborted:
		s.stats.RoutesAborted++
	default:
		s.stats.RoutesFailed++
	}
	s.stats.LastRoute = res.String()
}
