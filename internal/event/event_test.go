package event

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListenerFanOut(t *testing.T) {
	l := NewListener(slog.New(slog.NewTextHandler(io.Discard, nil)))

	var mu sync.Mutex
	var got []string
	l.Register(func(_ context.Context, e Event) error {
		mu.Lock()
		defer mu.Unlock()
		got = append(got, "a:"+e.Message())
		return errors.New("ignored")
	})
	l.Register(func(_ context.Context, e Event) error {
		mu.Lock()
		defer mu.Unlock()
		got = append(got, "b:"+e.Message())
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_ = l.Listen(ctx)
		close(done)
	}()

	Send(SessionStarted(Text("alpha", "Session started"), "id-1", "gigaZ_"))

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(got) == 2
	}, time.Second, 5*time.Millisecond)
	cancel()
	<-done

	assert.Equal(t, []string{"a:Session started", "b:Session started"}, got)
}

func TestSendNeverBlocks(t *testing.T) {
	done := make(chan struct{})
	go func() {
		for i := 0; i < queueSize*2; i++ {
			Send(Text("alpha", "spam"))
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Send blocked with nobody listening")
	}

	// drain so other tests start from an empty queue
	for {
		select {
		case <-queue:
		default:
			return
		}
	}
}
