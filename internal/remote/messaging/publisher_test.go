package messaging

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"testing"

	"github.com/gigaz-dev/walker/internal/event"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type message struct {
	topic   string
	payload []byte
}

type fakeTransport struct {
	sent   []message
	closed bool
}

func (f *fakeTransport) publish(_ context.Context, topic string, payload []byte) error {
	f.sent = append(f.sent, message{topic: topic, payload: payload})
	return nil
}

func (f *fakeTransport) close() { f.closed = true }

func newTestPublisher(backend string) (*Publisher, *fakeTransport) {
	p := NewPublisher(Config{Backend: backend, TopicPrefix: "walker", Brokers: []string{"localhost:1883"}},
		slog.New(slog.NewTextHandler(io.Discard, nil)))
	ft := &fakeTransport{}
	p.transport = ft
	return p, ft
}

func TestTopics(t *testing.T) {
	mq, _ := newTestPublisher(BackendMQTT)
	assert.Equal(t, "walker/alpha/session_started", mq.Topic("alpha", "session_started"))
	assert.Equal(t, "walker/walker/text", mq.Topic("", "text"))
	assert.Equal(t, "walker/bad_name_/chat", mq.Topic("bad/name#", "chat"))

	kf, _ := newTestPublisher(BackendKafka)
	assert.Equal(t, "walker.alpha.route_finished", kf.Topic("alpha", "route_finished"))
	assert.Equal(t, "walker.caf_.chat", kf.Topic("café", "chat"))

	bare := NewPublisher(Config{Backend: BackendMQTT}, nil)
	assert.Equal(t, "alpha/chat", bare.Topic("alpha", "chat"))
}

func TestHandlePublishesPayload(t *testing.T) {
	p, ft := newTestPublisher(BackendMQTT)

	e := event.SessionTerminated(event.Text("alpha", "Session ended: kicked: idle"), "id-7", "kicked: idle")
	require.NoError(t, p.Handle(context.Background(), e))
	require.Len(t, ft.sent, 1)
	assert.Equal(t, "walker/alpha/session_terminated", ft.sent[0].topic)

	var got event.Payload
	require.NoError(t, json.Unmarshal(ft.sent[0].payload, &got))
	assert.Equal(t, "session_terminated", got.Type)
	assert.Equal(t, "kicked: idle", got.Data["reason"])
	assert.Equal(t, "id-7", got.Data["sessionId"])

	p.Close()
	assert.True(t, ft.closed)
	assert.Error(t, p.Handle(context.Background(), e))
}

func TestConnectRejectsBadConfig(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	assert.Error(t, NewPublisher(Config{Backend: BackendKafka}, logger).Connect())
	assert.Error(t, NewPublisher(Config{Backend: "amqp", Brokers: []string{"localhost"}}, logger).Connect())

	p := NewPublisher(Config{Backend: BackendKafka, Brokers: []string{"localhost:9092"}}, logger)
	require.NoError(t, p.Connect())
	p.Close()
}
