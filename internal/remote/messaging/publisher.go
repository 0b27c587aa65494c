package messaging

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/gigaz-dev/walker/internal/event"
	kafkago "github.com/segmentio/kafka-go"
)

const (
	BackendMQTT  = "mqtt"
	BackendKafka = "kafka"
)

type Config struct {
	Backend     string
	Brokers     []string
	TopicPrefix string
	ClientID    string
}

type transport interface {
	publish(ctx context.Context, topic string, payload []byte) error
	close()
}

// Publisher exports every event as JSON to a broker, one topic per
// supervisor and event type.
type Publisher struct {
	mu        sync.RWMutex
	cfg       Config
	transport transport
	logger    *slog.Logger
}

func NewPublisher(cfg Config, logger *slog.Logger) *Publisher {
	return &Publisher{cfg: cfg, logger: logger}
}

// Connect opens the broker connection for the configured backend.
func (p *Publisher) Connect() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if len(p.cfg.Brokers) == 0 {
		return fmt.Errorf("%s: no brokers configured", p.cfg.Backend)
	}

	switch p.cfg.Backend {
	case BackendMQTT:
		t, err := connectMQTT(p.cfg)
		if err != nil {
			return err
		}
		p.transport = t
	case BackendKafka:
		p.transport = newKafka(p.cfg)
	default:
		return fmt.Errorf("unknown messaging backend: %s", p.cfg.Backend)
	}

	p.logger.Info("Publishing events",
		slog.String("backend", p.cfg.Backend),
		slog.Any("brokers", p.cfg.Brokers),
		slog.String("prefix", p.cfg.TopicPrefix))
	return nil
}

// Topic is where events of type eventType from supervisor are published.
// Kafka topic names cannot hold slashes, so its levels are joined with dots.
func (p *Publisher) Topic(supervisor, eventType string) string {
	if supervisor == "" {
		supervisor = "walker"
	}
	sep := "/"
	if p.cfg.Backend == BackendKafka {
		sep = "."
	}

	levels := []string{supervisor, eventType}
	if p.cfg.TopicPrefix != "" {
		levels = append([]string{p.cfg.TopicPrefix}, levels...)
	}
	for i, l := range levels {
		levels[i] = topicLevel(l, p.cfg.Backend)
	}
	return strings.Join(levels, sep)
}

func topicLevel(s, backend string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r == '/' || r == '+' || r == '#' || r == ' ':
			return '_'
		case backend == BackendKafka && !(r == '-' || r == '_' || r == '.' ||
			(r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')):
			return '_'
		}
		return r
	}, s)
}

// Handle is an event.Handler.
func (p *Publisher) Handle(ctx context.Context, e event.Event) error {
	data, err := event.Marshal(e)
	if err != nil {
		return fmt.Errorf("encode %s event: %w", event.TypeName(e), err)
	}

	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.transport == nil {
		return fmt.Errorf("%s publisher not connected", p.cfg.Backend)
	}
	return p.transport.publish(ctx, p.Topic(e.Supervisor(), event.TypeName(e)), data)
}

func (p *Publisher) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.transport != nil {
		p.transport.close()
		p.transport = nil
	}
}

type mqttTransport struct {
	client mqtt.Client
}

func connectMQTT(cfg Config) (*mqttTransport, error) {
	opts := mqtt.NewClientOptions().
		SetClientID(cfg.ClientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5 * time.Second)
	for _, b := range cfg.Brokers {
		if !strings.Contains(b, "://") {
			b = "tcp://" + b
		}
		opts.AddBroker(b)
	}

	client := mqtt.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(10 * time.Second) {
		// connect keeps retrying in the background
		return &mqttTransport{client: client}, nil
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("mqtt connect: %w", err)
	}
	return &mqttTransport{client: client}, nil
}

func (t *mqttTransport) publish(ctx context.Context, topic string, payload []byte) error {
	if !t.client.IsConnectionOpen() {
		return fmt.Errorf("mqtt not connected")
	}
	token := t.client.Publish(topic, 1, false, payload)
	select {
	case <-token.Done():
		return token.Error()
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (t *mqttTransport) close() {
	t.client.Disconnect(1000)
}

type kafkaTransport struct {
	writer *kafkago.Writer
}

func newKafka(cfg Config) *kafkaTransport {
	return &kafkaTransport{writer: &kafkago.Writer{
		Addr:                   kafkago.TCP(cfg.Brokers...),
		Balancer:               &kafkago.LeastBytes{},
		RequiredAcks:           kafkago.RequireOne,
		AllowAutoTopicCreation: true,
	}}
}

func (t *kafkaTransport) publish(ctx context.Context, topic string, payload []byte) error {
	return t.writer.WriteMessages(ctx, kafkago.Message{Topic: topic, Value: payload})
}

func (t *kafkaTransport) close() {
	t.writer.Close()
}
