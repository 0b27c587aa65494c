// Package bridge connects to a game client sidecar over a websocket. The
// sidecar owns the protocol, the pathfinder and the world; this side only
// sends commands and relays the events it reports.
package bridge

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gigaz-dev/walker/internal/game"
	"github.com/gorilla/websocket"
)

var ErrClosed = errors.New("bridge connection closed")

const (
	eventBuffer  = 64
	writeTimeout = 10 * time.Second
)

type Connector struct {
	URL    string
	Dialer *websocket.Dialer
	Logger *slog.Logger
}

func NewConnector(url string, logger *slog.Logger) *Connector {
	return &Connector{URL: url, Dialer: websocket.DefaultDialer, Logger: logger}
}

// Connect dials the sidecar and asks it to join host:port. The returned
// connection already has its read pump running.
func (c *Connector) Connect(ctx context.Context, host string, port int, creds game.Credentials) (game.Connection, error) {
	dialer := c.Dialer
	if dialer == nil {
		dialer = websocket.DefaultDialer
	}
	ws, _, err := dialer.DialContext(ctx, c.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("error dialing bridge %s: %w", c.URL, err)
	}

	conn := newConn(ws, creds.ProfileName, c.Logger)
	go conn.readPump()

	err = conn.call(ctx, command{
		Op:          opConnect,
		Host:        host,
		Port:        port,
		Username:    creds.ProfileName,
		AccessToken: creds.AccessToken,
	})
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("error joining %s:%d: %w", host, port, err)
	}
	return conn, nil
}

type reply struct {
	ok  bool
	err *replyError
}

type Conn struct {
	ws       *websocket.Conn
	logger   *slog.Logger
	username string

	writeMu sync.Mutex

	mu      sync.Mutex
	nextID  int64
	pending map[int64]chan reply

	events    chan game.ConnectionEvent
	closing   chan struct{}
	pumpDone  chan struct{}
	closeOnce sync.Once
}

func newConn(ws *websocket.Conn, username string, logger *slog.Logger) *Conn {
	if logger == nil {
		logger = slog.Default()
	}
	return &Conn{
		ws:       ws,
		logger:   logger,
		username: username,
		pending:  make(map[int64]chan reply),
		events:   make(chan game.ConnectionEvent, eventBuffer),
		closing:  make(chan struct{}),
		pumpDone: make(chan struct{}),
	}
}

func (c *Conn) Events() <-chan game.ConnectionEvent { return c.events }
func (c *Conn) Locomotion() game.Locomotion        { return c }
func (c *Conn) Username() string                   { return c.username }

func (c *Conn) Goto(ctx context.Context, goal game.Waypoint) error {
	return c.call(ctx, gotoCommand(goal))
}

func (c *Conn) SetControl(ctl game.Control, on bool) error {
	return c.call(context.Background(), controlCommand(ctl, on))
}

// Close asks the sidecar to quit, drops the socket and waits for the read
// pump, which closes the event channel on its way out.
func (c *Conn) Close() error {
	var err error
	c.closeOnce.Do(func() {
		_ = c.write(command{Op: opQuit})
		close(c.closing)
		err = c.ws.Close()
	})
	<-c.pumpDone
	return err
}

func (c *Conn) call(ctx context.Context, cmd command) error {
	c.mu.Lock()
	c.nextID++
	cmd.ID = c.nextID
	ch := make(chan reply, 1)
	c.pending[cmd.ID] = ch
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		delete(c.pending, cmd.ID)
		c.mu.Unlock()
	}()

	if err := c.write(cmd); err != nil {
		return err
	}

	select {
	case r := <-ch:
		if r.ok {
			return nil
		}
		return r.err.asError()
	case <-c.pumpDone:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *Conn) write(cmd command) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	select {
	case <-c.closing:
		return ErrClosed
	default:
	}
	_ = c.ws.SetWriteDeadline(time.Now().Add(writeTimeout))
	if err := c.ws.WriteJSON(cmd); err != nil {
		return fmt.Errorf("error writing %s command: %w", cmd.Op, err)
	}
	return nil
}

func (c *Conn) readPump() {
	defer close(c.pumpDone)
	defer close(c.events)

	for {
		var in inbound
		if err := c.ws.ReadJSON(&in); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Debug("Bridge read error", slog.Any("error", err))
			}
			c.deliver(game.Disconnected("bridge closed"))
			return
		}

		if in.ID != nil {
			c.mu.Lock()
			ch, ok := c.pending[*in.ID]
			c.mu.Unlock()
			if ok {
				select {
				case ch <- reply{ok: in.OK, err: in.Error}:
				default:
				}
			}
			continue
		}

		ev, ok := in.connectionEvent()
		if !ok {
			c.logger.Debug("Ignoring unknown bridge event", slog.String("event", in.Event))
			continue
		}
		c.deliver(ev)
	}
}

func (c *Conn) deliver(ev game.ConnectionEvent) {
	select {
	case c.events <- ev:
	case <-c.closing:
	}
}
