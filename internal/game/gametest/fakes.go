// Package gametest provides scripted collaborators for exercising the bot
// without a live server.
package gametest

import (
	"context"
	"errors"
	"sync"

	"github.com/gigaz-dev/walker/internal/game"
)

type ControlCall struct {
	Control game.Control
	On      bool
}

// Locomotion answers Goto from a per-goal script. Goals without a script
// are reached on the first try; a script's last entry repeats forever.
type Locomotion struct {
	mu       sync.Mutex
	results  map[game.Waypoint][]error
	gotos    []game.Waypoint
	controls []ControlCall
	// OnGoto, when set, runs at the start of every Goto.
	OnGoto func(ctx context.Context, goal game.Waypoint)
}

func NewLocomotion() *Locomotion {
	return &Locomotion{results: make(map[game.Waypoint][]error)}
}

// Script sets the answers for successive Goto calls to goal; nil means arrived.
func (l *Locomotion) Script(goal game.Waypoint, results ...error) *Locomotion {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.results[goal] = results
	return l
}

func (l *Locomotion) FailAlways(goal game.Waypoint, err error) *Locomotion {
	return l.Script(goal, err)
}

func (l *Locomotion) Goto(ctx context.Context, goal game.Waypoint) error {
	if l.OnGoto != nil {
		l.OnGoto(ctx, goal)
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.gotos = append(l.gotos, goal)
	script := l.results[goal]
	if len(script) == 0 {
		return nil
	}
	res := script[0]
	if len(script) > 1 {
		l.results[goal] = script[1:]
	}
	return res
}

func (l *Locomotion) SetControl(c game.Control, on bool) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.controls = append(l.controls, ControlCall{Control: c, On: on})
	return nil
}

func (l *Locomotion) Gotos() []game.Waypoint {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]game.Waypoint(nil), l.gotos...)
}

func (l *Locomotion) GotoCount(goal game.Waypoint) int {
	n := 0
	for _, g := range l.Gotos() {
		if g == goal {
			n++
		}
	}
	return n
}

func (l *Locomotion) Controls() []ControlCall {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]ControlCall(nil), l.controls...)
}

// Connection is an in-memory connection whose events are pushed by the test.
type Connection struct {
	Loco *Locomotion
	User string

	mu       sync.Mutex
	events   chan game.ConnectionEvent
	closed   bool
	closeCnt int
}

func NewConnection(user string) *Connection {
	return &Connection{
		Loco:   NewLocomotion(),
		User:   user,
		events: make(chan game.ConnectionEvent, 32),
	}
}

// Emit delivers ev unless the connection is already closed.
func (c *Connection) Emit(ev game.ConnectionEvent) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	c.events <- ev
	return true
}

func (c *Connection) Events() <-chan game.ConnectionEvent { return c.events }
func (c *Connection) Locomotion() game.Locomotion        { return c.Loco }
func (c *Connection) Username() string                   { return c.User }

func (c *Connection) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closeCnt++
	if !c.closed {
		c.closed = true
		close(c.events)
	}
	return nil
}

func (c *Connection) Closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// Connector hands out connections built by Dial, one per Connect call.
type Connector struct {
	Dial func(attempt int) (*Connection, error)

	mu    sync.Mutex
	calls int
	conns []*Connection
	hosts []string
}

func (c *Connector) Connect(ctx context.Context, host string, port int, creds game.Credentials) (game.Connection, error) {
	c.mu.Lock()
	c.calls++
	attempt := c.calls
	c.hosts = append(c.hosts, host)
	c.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if c.Dial == nil {
		return nil, errors.New("gametest: no Dial configured")
	}
	conn, err := c.Dial(attempt)
	if err != nil {
		return nil, err
	}
	c.mu.Lock()
	c.conns = append(c.conns, conn)
	c.mu.Unlock()
	return conn, nil
}

func (c *Connector) Calls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}

func (c *Connector) Connections() []*Connection {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]*Connection(nil), c.conns...)
}

// TokenSource counts calls and fails the ones listed in Errs (1-based).
type TokenSource struct {
	Creds game.Credentials
	Errs  map[int]error
	// OnCall runs after the counter moves, with the call number.
	OnCall func(call int)

	mu    sync.Mutex
	calls int
	users []string
}

func (t *TokenSource) Token(ctx context.Context, userID, cacheDir string) (game.Credentials, error) {
	t.mu.Lock()
	t.calls++
	call := t.calls
	t.users = append(t.users, userID)
	t.mu.Unlock()

	if t.OnCall != nil {
		t.OnCall(call)
	}
	if err := ctx.Err(); err != nil {
		return game.Credentials{}, err
	}
	if err, ok := t.Errs[call]; ok {
		return game.Credentials{}, err
	}
	return t.Creds, nil
}

func (t *TokenSource) Calls() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.calls
}

func (t *TokenSource) Users() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]string(nil), t.users...)
}
