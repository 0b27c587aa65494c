package bot

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/gigaz-dev/walker/cmd/walker/log"
	"github.com/gigaz-dev/walker/internal/action/step"
	"github.com/gigaz-dev/walker/internal/auth"
	"github.com/gigaz-dev/walker/internal/client/bridge"
	"github.com/gigaz-dev/walker/internal/client/sim"
	"github.com/gigaz-dev/walker/internal/config"
	"github.com/gigaz-dev/walker/internal/game"
	"github.com/gigaz-dev/walker/internal/health"
	"github.com/gigaz-dev/walker/internal/route"
	"github.com/gigaz-dev/walker/internal/route/store"
)

type SupervisorManager struct {
	logger      *slog.Logger
	mu          sync.RWMutex // protects supervisors and onSpawn
	supervisors map[string]Supervisor
	routes      *store.DB
	onSpawn     func(name string, s *Session)
	launched    sync.WaitGroup
}

// NewSupervisorManager builds supervisors from the loaded profiles. routes
// may be nil when no profile reads from the route store.
func NewSupervisorManager(logger *slog.Logger, routes *store.DB) *SupervisorManager {
	return &SupervisorManager{
		logger:      logger,
		supervisors: make(map[string]Supervisor),
		routes:      routes,
	}
}

// SetSessionHook installs a callback run on every spawn of every supervisor.
func (mng *SupervisorManager) SetSessionHook(fn func(name string, s *Session)) {
	mng.mu.Lock()
	defer mng.mu.Unlock()
	mng.onSpawn = fn
}

func (mng *SupervisorManager) AvailableSupervisors() []string {
	return config.ProfileNames()
}

// EnabledSupervisors lists the profiles marked enabled.
func (mng *SupervisorManager) EnabledSupervisors() []string {
	var names []string
	for name, cfg := range config.GetProfiles() {
		if cfg.Enabled {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// Start builds the named supervisor from its profile and runs it until ctx
// ends or Stop is called. It blocks for the lifetime of the supervisor.
func (mng *SupervisorManager) Start(ctx context.Context, supervisorName string) error {
	mng.mu.RLock()
	_, exists := mng.supervisors[supervisorName]
	mng.mu.RUnlock()
	if exists {
		return fmt.Errorf("supervisor %s is already running", supervisorName)
	}

	supervisorLogger, err := log.NewLogger(config.Walker.Debug.Log, config.Walker.LogSaveDirectory, supervisorName)
	if err != nil {
		return err
	}

	supervisor, err := mng.buildSupervisor(supervisorName, supervisorLogger)
	if err != nil {
		return err
	}

	mng.mu.Lock()
	if _, alreadyRunning := mng.supervisors[supervisorName]; alreadyRunning {
		mng.mu.Unlock()
		return fmt.Errorf("supervisor %s is already running", supervisorName)
	}
	mng.supervisors[supervisorName] = supervisor
	mng.mu.Unlock()

	defer func() {
		mng.mu.Lock()
		if mng.supervisors[supervisorName] == supervisor {
			delete(mng.supervisors, supervisorName)
		}
		mng.mu.Unlock()
	}()

	if err := supervisor.Start(ctx); err != nil {
		mng.logger.Error(fmt.Sprintf("error running supervisor %s: %s", supervisorName, err.Error()))
		return err
	}
	return nil
}

// Launch runs Start in the background, for callers that cannot block such as
// chat commands. Wait joins every launched supervisor.
func (mng *SupervisorManager) Launch(ctx context.Context, supervisorName string) error {
	if _, found := config.GetProfile(supervisorName); !found {
		return fmt.Errorf("%w: %s", config.ErrUnknownProfile, supervisorName)
	}

	mng.launched.Add(1)
	go func() {
		defer mng.launched.Done()
		if err := mng.Start(ctx, supervisorName); err != nil {
			mng.logger.Error("Supervisor exited with error",
				slog.String("supervisor", supervisorName),
				slog.Any("error", err))
		}
	}()
	return nil
}

func (mng *SupervisorManager) Wait() {
	mng.launched.Wait()
}

func (mng *SupervisorManager) StopAll() {
	mng.mu.RLock()
	snapshot := make([]Supervisor, 0, len(mng.supervisors))
	for _, s := range mng.supervisors {
		snapshot = append(snapshot, s)
	}
	mng.mu.RUnlock()

	for _, s := range snapshot {
		s.Stop()
	}
}

func (mng *SupervisorManager) Stop(supervisor string) {
	mng.mu.RLock()
	s, found := mng.supervisors[supervisor]
	mng.mu.RUnlock()
	if !found {
		return
	}

	mng.logger.Info("Stopping supervisor instance", slog.String("supervisor", supervisor))
	s.Stop()
}

func (mng *SupervisorManager) Running() []string {
	mng.mu.RLock()
	defer mng.mu.RUnlock()
	names := make([]string, 0, len(mng.supervisors))
	for name := range mng.supervisors {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (mng *SupervisorManager) Status(supervisorName string) Stats {
	mng.mu.RLock()
	sup, found := mng.supervisors[supervisorName]
	mng.mu.RUnlock()
	if found {
		return sup.Stats()
	}
	return Stats{SupervisorName: supervisorName, State: "Stopped"}
}

// StatusAll reports every known profile, running or not.
func (mng *SupervisorManager) StatusAll() map[string]Stats {
	out := make(map[string]Stats)
	for _, name := range mng.AvailableSupervisors() {
		out[name] = mng.Status(name)
	}
	for _, name := range mng.Running() {
		out[name] = mng.Status(name)
	}
	return out
}

func (mng *SupervisorManager) buildSupervisor(supervisorName string, logger *slog.Logger) (Supervisor, error) {
	cfg, found := config.GetProfile(supervisorName)
	if !found {
		return nil, fmt.Errorf("%w: %s", config.ErrUnknownProfile, supervisorName)
	}

	recovery, err := step.RecoveryByName(cfg.Movement.Recovery, cfg.Movement.GestureHold)
	if err != nil {
		return nil, err
	}
	src, err := mng.routeSource(cfg)
	if err != nil {
		return nil, err
	}

	var tokens game.TokenSource = auth.FileCache{}
	if cfg.Auth.Method == config.AuthStatic {
		tokens = auth.Static{AccessToken: cfg.Auth.AccessToken, ProfileName: cfg.Username}
	}

	var connector game.Connector
	switch cfg.Connector.Kind {
	case config.ConnectorSim:
		connector = &sim.World{
			SpawnDelay:      cfg.Connector.Sim.SpawnDelay,
			Blocked:         cfg.Connector.Sim.Blocked,
			DisconnectAfter: cfg.Connector.Sim.DisconnectAfter,
			Logger:          logger,
		}
	case config.ConnectorBridge:
		connector = bridge.NewConnector(cfg.Connector.BridgeURL, logger)
	default:
		return nil, fmt.Errorf("unknown connector %q", cfg.Connector.Kind)
	}

	var pm *health.PingMonitor
	if config.Walker.PingMonitor.Enabled {
		pm = health.NewPingMonitor(logger, config.Walker.PingMonitor.HighPingThreshold,
			time.Duration(config.Walker.PingMonitor.SustainedDuration)*time.Second)
	}

	mng.mu.RLock()
	onSpawn := mng.onSpawn
	mng.mu.RUnlock()

	sup, err := NewSessionSupervisor(supervisorName, logger,
		Options{
			UserID:         cfg.Username,
			CacheDir:       cfg.Auth.CacheDir,
			Host:           cfg.Server.Host,
			Port:           cfg.Server.Port,
			ReconnectDelay: cfg.ReconnectDelay,
			SpawnTimeout:   cfg.SpawnWait(),
			Policy:         cfg.RetryPolicy(),
		},
		Deps{
			Tokens:    tokens,
			Connector: connector,
			Route:     src,
			Recovery:  recovery,
			Ping:      pm,
			OnSpawn:   onSpawn,
		},
	)
	if err != nil {
		return nil, err
	}
	return sup, nil
}

func (mng *SupervisorManager) routeSource(cfg *config.ProfileCfg) (route.Source, error) {
	switch cfg.Route.Source {
	case config.RouteDefault:
		return route.Inline(route.Default()), nil
	case config.RouteInline:
		r, err := route.FromRecords(cfg.Route.Waypoints)
		if err != nil {
			// surfaced on every session as a failed route, never guessed around
			return route.SourceFunc(func(context.Context) (route.Route, error) { return nil, err }), nil
		}
		return route.Inline(r), nil
	case config.RouteFile:
		return route.FileSource{Path: cfg.Route.File}, nil
	case config.RouteStore:
		if mng.routes == nil {
			return nil, fmt.Errorf("profile %s reads route %q from the store, but no route store is open", cfg.ConfigFolderName, cfg.Route.Name)
		}
		return store.Source{DB: mng.routes, Name: cfg.Route.Name}, nil
	default:
		return nil, fmt.Errorf("unknown route source %q", cfg.Route.Source)
	}
}
