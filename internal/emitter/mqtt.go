package emitter

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/e7canasta/surface-player/internal/config"
	"github.com/e7canasta/surface-player/internal/eventbus"
)

// SubscriberID is the eventbus subscription used by the emitter
const SubscriberID = "mqtt-emitter"

const eventBuffer = 64

// Encode serializes ev with the configured encoding ("json" or "msgpack")
func Encode(ev eventbus.Event, encoding string) ([]byte, error) {
	switch encoding {
	case "", "json":
		return json.Marshal(ev)
	case "msgpack":
		return msgpack.Marshal(ev)
	default:
		return nil, fmt.Errorf("emitter: unknown encoding '%s'", encoding)
	}
}

// publisher is the part of mqtt.Client the emitter uses
type publisher interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
}

// Stats contains emitter counters
type Stats struct {
	Connected bool
	Published map[string]uint64
	Errors    uint64
}

// MQTTEmitter publishes playback events to an MQTT broker
type MQTTEmitter struct {
	cfg    config.MQTTConfig
	client mqtt.Client
	pub    publisher

	mu        sync.RWMutex
	published map[string]uint64
	errors    uint64
	connected bool
}

// NewMQTTEmitter creates a disconnected emitter
func NewMQTTEmitter(cfg config.MQTTConfig) (*MQTTEmitter, error) {
	if cfg.Broker == "" {
		return nil, fmt.Errorf("emitter: mqtt broker is required")
	}
	if _, err := Encode(eventbus.Event{}, cfg.Encoding); err != nil {
		return nil, err
	}
	return &MQTTEmitter{cfg: cfg, published: make(map[string]uint64)}, nil
}

// Connect establishes the broker connection
func (e *MQTTEmitter) Connect(ctx context.Context) error {
	broker := e.cfg.Broker
	if !strings.Contains(broker, "://") {
		broker = "tcp://" + broker
	}

	opts := mqtt.NewClientOptions()
	opts.AddBroker(broker)
	opts.SetClientID(e.cfg.ClientID)
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(2 * time.Second)
	opts.SetMaxReconnectInterval(30 * time.Second)

	opts.OnConnect = func(c mqtt.Client) {
		e.setConnected(true)
		slog.Info("emitter: mqtt connection established",
			"broker", broker,
			"client_id", e.cfg.ClientID,
		)
	}
	opts.OnConnectionLost = func(c mqtt.Client, err error) {
		e.setConnected(false)
		slog.Warn("emitter: mqtt connection lost, will auto-reconnect",
			"error", err,
			"broker", broker,
		)
	}

	e.client = mqtt.NewClient(opts)
	e.pub = e.client

	slog.Info("emitter: connecting to mqtt broker", "broker", broker)

	token := e.client.Connect()
	select {
	case <-token.Done():
	case <-time.After(5 * time.Second):
		return fmt.Errorf("emitter: mqtt connection timeout")
	case <-ctx.Done():
		return ctx.Err()
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("emitter: mqtt connection failed: %w", err)
	}

	e.setConnected(true)
	return nil
}

// Run forwards events from bus until ctx is cancelled
func (e *MQTTEmitter) Run(ctx context.Context, bus *eventbus.Bus) error {
	events := make(chan eventbus.Event, eventBuffer)
	if err := bus.Subscribe(SubscriberID, events); err != nil {
		return fmt.Errorf("emitter: subscribe: %w", err)
	}
	defer bus.Unsubscribe(SubscriberID)

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev := <-events:
			if err := e.Publish(ev); err != nil {
				slog.Warn("emitter: failed to publish event", "type", ev.Type, "error", err)
			}
		}
	}
}

// Publish sends one event to <topic>/<event type>
func (e *MQTTEmitter) Publish(ev eventbus.Event) error {
	if !e.isConnected() || e.pub == nil {
		e.countError()
		return fmt.Errorf("emitter: mqtt not connected")
	}

	topic := fmt.Sprintf("%s/%s", e.cfg.Topic, ev.Type)

	payload, err := Encode(ev, e.cfg.Encoding)
	if err != nil {
		e.countError()
		return fmt.Errorf("emitter: failed to encode event: %w", err)
	}

	token := e.pub.Publish(topic, e.cfg.QoS, false, payload)
	if !token.WaitTimeout(2 * time.Second) {
		e.countError()
		return fmt.Errorf("emitter: publish timeout")
	}
	if err := token.Error(); err != nil {
		e.countError()
		return fmt.Errorf("emitter: publish failed: %w", err)
	}

	e.mu.Lock()
	e.published[topic]++
	e.mu.Unlock()

	slog.Debug("emitter: event published",
		"topic", topic,
		"qos", e.cfg.QoS,
		"size", len(payload),
	)
	return nil
}

// Disconnect closes the broker connection
func (e *MQTTEmitter) Disconnect() {
	if e.client != nil && e.client.IsConnected() {
		e.client.Disconnect(250)
		slog.Info("emitter: mqtt disconnected")
	}
	e.setConnected(false)
}

// Stats returns emitter statistics
func (e *MQTTEmitter) Stats() Stats {
	e.mu.RLock()
	defer e.mu.RUnlock()

	published := make(map[string]uint64, len(e.published))
	for k, v := range e.published {
		published[k] = v
	}
	return Stats{Connected: e.connected, Published: published, Errors: e.errors}
}

func (e *MQTTEmitter) isConnected() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.connected
}

func (e *MQTTEmitter) setConnected(v bool) {
	e.mu.Lock()
	e.connected = v
	e.mu.Unlock()
}

func (e *MQTTEmitter) countError() {
	e.mu.Lock()
	e.errors++
	e.mu.Unlock()
}
