package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// ErrBrokerUnreachable is returned by Start when the first connect does not
// complete in time. The client keeps retrying in the background.
var ErrBrokerUnreachable = errors.New("mqtt broker unreachable")

// Handler consumes one raw payload from the bus.
type Handler interface {
	Handle(ctx context.Context, topic string, payload []byte)
}

// SubscriberConfig configures the MQTT subscriber.
type SubscriberConfig struct {
	Broker   string
	Topic    string
	ClientID string
}

// Subscriber listens on an MQTT topic and hands payloads to a Handler.
type Subscriber struct {
	cfg     SubscriberConfig
	handler Handler
	logger  *slog.Logger
	client  mqtt.Client
	ctx     context.Context

	connectTimeout time.Duration
}

// NewSubscriber creates a Subscriber. Nothing connects until Start.
func NewSubscriber(cfg SubscriberConfig, handler Handler, logger *slog.Logger) *Subscriber {
	if logger == nil {
		logger = slog.Default()
	}
	return &Subscriber{
		cfg:            cfg,
		handler:        handler,
		logger:         logger,
		ctx:            context.Background(),
		connectTimeout: 10 * time.Second,
	}
}

// Start connects to the broker and subscribes. The subscription is renewed on
// every reconnect. Payloads are handled with ctx until Stop.
// Stop must be called even when Start returns ErrBrokerUnreachable.
func (s *Subscriber) Start(ctx context.Context) error {
	s.ctx = ctx

	opts := mqtt.NewClientOptions().
		AddBroker(s.cfg.Broker).
		SetClientID(s.cfg.ClientID).
		SetCleanSession(true).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5 * time.Second).
		SetOnConnectHandler(s.onConnect).
		SetConnectionLostHandler(func(_ mqtt.Client, err error) {
			s.logger.Warn("MQTT connection lost", "error", err, "broker", s.cfg.Broker)
		})

	s.client = mqtt.NewClient(opts)
	token := s.client.Connect()
	if !token.WaitTimeout(s.connectTimeout) {
		s.logger.Warn("MQTT broker not reachable yet, retrying in background", "broker", s.cfg.Broker)
		return fmt.Errorf("%w: %s", ErrBrokerUnreachable, s.cfg.Broker)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("connect to mqtt broker: %w", err)
	}
	return nil
}

func (s *Subscriber) onConnect(c mqtt.Client) {
	token := c.Subscribe(s.cfg.Topic, 1, s.onMessage)
	if !token.WaitTimeout(10 * time.Second) {
		s.logger.Error("MQTT subscribe timed out", "topic", s.cfg.Topic)
		return
	}
	if err := token.Error(); err != nil {
		s.logger.Error("MQTT subscribe failed", "error", err, "topic", s.cfg.Topic)
		return
	}
	s.logger.Info("Subscribed to sensor topic", "broker", s.cfg.Broker, "topic", s.cfg.Topic)
}

func (s *Subscriber) onMessage(_ mqtt.Client, msg mqtt.Message) {
	if s.ctx.Err() != nil {
		return
	}
	s.handler.Handle(s.ctx, msg.Topic(), msg.Payload())
}

// Stop disconnects from the broker.
func (s *Subscriber) Stop() {
	if s.client == nil {
		return
	}
	s.client.Disconnect(250)
	s.logger.Info("MQTT subscriber stopped", "broker", s.cfg.Broker)
}
