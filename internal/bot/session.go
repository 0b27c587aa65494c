package bot

import (
	"context"
	"sync"
	"time"

	"github.com/gigaz-dev/walker/internal/game"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// Session is one connect-to-termination lifecycle. A new record is built for
// every connection; once terminated its handles are closed and never reused.
type Session struct {
	ID        string
	StartedAt time.Time
	Username  string

	conn game.Connection

	mu     sync.Mutex
	cancel context.CancelFunc
	group  *errgroup.Group
	ended  bool
}

func newSession(conn game.Connection, fallbackUser string, now time.Time) *Session {
	user := conn.Username()
	if user == "" {
		user = fallbackUser
	}
	return &Session{
		ID:        uuid.NewString(),
		StartedAt: now,
		Username:  user,
		conn:      conn,
	}
}

// Locomotion is the movement capability of the session's connection.
func (s *Session) Locomotion() game.Locomotion { return s.conn.Locomotion() }

// run starts fn as the session's only background task.
func (s *Session) run(ctx context.Context, fn func(ctx context.Context)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ended || s.group != nil {
		return
	}
	ctx, s.cancel = context.WithCancel(ctx)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		fn(gctx)
		return nil
	})
	s.group = g
}

// end closes the connection first so a pending movement resolves, then stops
// and joins the background task. It is safe to call more than once.
func (s *Session) end() error {
	s.mu.Lock()
	if s.ended {
		s.mu.Unlock()
		return nil
	}
	s.ended = true
	cancel, g := s.cancel, s.group
	s.mu.Unlock()

	err := s.conn.Close()
	if cancel != nil {
		cancel()
	}
	if g != nil {
		_ = g.Wait()
	}
	return err
}
