// Package sim is an in-memory world for dry runs: the client spawns after a
// delay, walks instantly to any goal not marked blocked, and can be told to
// drop the connection after a while.
package sim

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gigaz-dev/walker/internal/game"
	"github.com/gigaz-dev/walker/internal/utils"
)

type World struct {
	SpawnDelay time.Duration
	// Blocked goals always fail with game.ErrNoPath.
	Blocked []game.Waypoint
	// DisconnectAfter, when positive, ends every session that long after spawn.
	DisconnectAfter time.Duration
	MoveTime        time.Duration
	Logger          *slog.Logger
}

func (w *World) Connect(ctx context.Context, host string, port int, creds game.Credentials) (game.Connection, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	logger := w.Logger
	if logger == nil {
		logger = slog.Default()
	}
	c := &Conn{
		world:    w,
		logger:   logger,
		username: creds.ProfileName,
		events:   make(chan game.ConnectionEvent, 16),
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
	logger.Debug("Simulated connection opened", slog.String("host", fmt.Sprintf("%s:%d", host, port)))
	go c.lifecycle()
	return c, nil
}

type Conn struct {
	world    *World
	logger   *slog.Logger
	username string

	mu       sync.Mutex
	position game.Waypoint
	controls map[game.Control]bool

	events    chan game.ConnectionEvent
	stop      chan struct{}
	done      chan struct{}
	closeOnce sync.Once
}

func (c *Conn) lifecycle() {
	defer close(c.done)
	defer close(c.events)

	if !c.wait(c.world.SpawnDelay) {
		return
	}
	c.events <- game.Spawned()

	if c.world.DisconnectAfter <= 0 {
		<-c.stop
		return
	}
	if !c.wait(c.world.DisconnectAfter) {
		return
	}
	c.events <- game.Disconnected("simulated disconnect")
}

func (c *Conn) wait(d time.Duration) bool {
	if d <= 0 {
		return true
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-c.stop:
		return false
	case <-t.C:
		return true
	}
}

func (c *Conn) Events() <-chan game.ConnectionEvent { return c.events }
func (c *Conn) Locomotion() game.Locomotion        { return c }
func (c *Conn) Username() string                   { return c.username }

func (c *Conn) Goto(ctx context.Context, goal game.Waypoint) error {
	select {
	case <-c.done:
		return fmt.Errorf("simulated connection closed")
	default:
	}
	for _, b := range c.world.Blocked {
		if b == goal {
			return fmt.Errorf("%w: %s is blocked", game.ErrNoPath, goal)
		}
	}
	if err := utils.SleepContext(ctx, c.world.MoveTime); err != nil {
		return err
	}
	c.mu.Lock()
	c.position = goal
	c.mu.Unlock()
	return nil
}

func (c *Conn) SetControl(ctl game.Control, on bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.controls == nil {
		c.controls = make(map[game.Control]bool)
	}
	c.controls[ctl] = on
	return nil
}

func (c *Conn) Position() game.Waypoint {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.position
}

func (c *Conn) Close() error {
	c.closeOnce.Do(func() { close(c.stop) })
	<-c.done
	return nil
}
