package event

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

type Event interface {
	Supervisor() string
	Message() string
	OccurredAt() time.Time
}

type BaseEvent struct {
	supervisor string
	message    string
	occurredAt time.Time
}

func (b BaseEvent) Supervisor() string    { return b.supervisor }
func (b BaseEvent) Message() string       { return b.message }
func (b BaseEvent) OccurredAt() time.Time { return b.occurredAt }

func Text(supervisor string, message string) BaseEvent {
	return BaseEvent{
		supervisor: supervisor,
		message:    message,
		occurredAt: time.Now(),
	}
}

type Handler func(ctx context.Context, e Event) error

// Listener fans every sent event out to the registered handlers.
type Listener struct {
	mu       sync.RWMutex
	handlers []Handler
	logger   *slog.Logger
}

const queueSize = 256

var queue = make(chan Event, queueSize)

func NewListener(logger *slog.Logger) *Listener {
	return &Listener{logger: logger}
}

func (l *Listener) Register(h Handler) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.handlers = append(l.handlers, h)
}

// Listen dispatches queued events until ctx is done. A failing handler is
// logged and does not stop the others.
func (l *Listener) Listen(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case e := <-queue:
			l.Dispatch(ctx, e)
		}
	}
}

func (l *Listener) Dispatch(ctx context.Context, e Event) {
	l.mu.RLock()
	handlers := make([]Handler, len(l.handlers))
	copy(handlers, l.handlers)
	l.mu.RUnlock()

	for _, h := range handlers {
		if err := h(ctx, e); err != nil {
			l.logger.Error("error running event handler",
				slog.String("supervisor", e.Supervisor()),
				slog.String("event", e.Message()),
				slog.Any("error", err))
		}
	}
}

// Send queues an event for the process listener. Events are observability
// only, so when nobody drains the queue the event is dropped instead of
// blocking the bot.
func Send(e Event) {
	select {
	case queue <- e:
	default:
	}
}

// Sender is the function signature components use to publish events.
type Sender func(Event)
