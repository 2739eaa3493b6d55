// Package action delivers detected events to the outside world.
package action

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/soocke/bleedscan-go/domain/bleed"
	"github.com/soocke/bleedscan-go/domain/metrics"
)

const (
	connectTimeout = 5 * time.Second
	publishTimeout = 5 * time.Second
)

// Publisher delivers events of a session.
type Publisher interface {
	Publish(ctx context.Context, sessionID, source string, ev bleed.Event) error
	Close() error
}

// Payload is the JSON message published for one event.
type Payload struct {
	SessionID string      `json:"session_id"`
	Source    string      `json:"source"`
	Variant   string      `json:"variant"`
	Event     bleed.Event `json:"event"`
	SentAt    time.Time   `json:"sent_at"`
}

// NewPayload builds the message for ev. The variant is derived from the event metric.
func NewPayload(sessionID, source string, ev bleed.Event, now time.Time) Payload {
	variant := "unknown"
	if v, ok := metrics.VariantForMetric(ev.Metric); ok {
		variant = v.String()
	}
	return Payload{SessionID: sessionID, Source: source, Variant: variant, Event: ev, SentAt: now.UTC()}
}

// Topic returns the publish topic for a payload under base.
func Topic(base string, p Payload) string {
	return strings.TrimRight(base, "/") + "/" + p.Variant
}

// LogPublisher writes events to the logger. Used when no broker is configured.
type LogPublisher struct {
	logger *slog.Logger
}

func NewLogPublisher(logger *slog.Logger) *LogPublisher { return &LogPublisher{logger: logger} }

func (p *LogPublisher) Publish(_ context.Context, sessionID, source string, ev bleed.Event) error {
	if p.logger != nil {
		p.logger.Info("bleed event",
			"session", sessionID,
			"source", source,
			"metric", ev.Metric,
			"start_sec", ev.Start,
			"end_sec", ev.End,
			"peak", ev.Peak,
		)
	}
	return nil
}

func (p *LogPublisher) Close() error { return nil }

// MQTTOptions configures an MQTTPublisher.
type MQTTOptions struct {
	Broker   string
	Topic    string
	ClientID string
	QoS      byte

	// ConnectTimeout bounds the initial connect; zero uses 5s.
	ConnectTimeout time.Duration
}

// MQTTPublisher publishes events as JSON to a broker.
type MQTTPublisher struct {
	opts   MQTTOptions
	client mqtt.Client
	logger *slog.Logger

	mu        sync.RWMutex
	connected bool
	published uint64
	failed    uint64
}

// PublishStats counts publish outcomes.
type PublishStats struct {
	Connected bool
	Published uint64
	Failed    uint64
}

var newClient = mqtt.NewClient

// NewMQTTPublisher connects to the broker. Broker may omit the scheme, in which case
// tcp:// is assumed.
func NewMQTTPublisher(o MQTTOptions, logger *slog.Logger) (*MQTTPublisher, error) {
	p := &MQTTPublisher{opts: o, logger: logger}
	broker := o.Broker
	if !strings.Contains(broker, "://") {
		broker = "tcp://" + broker
	}
	co := mqtt.NewClientOptions()
	co.AddBroker(broker)
	co.SetClientID(o.ClientID)
	co.SetAutoReconnect(true)
	co.SetConnectRetry(true)
	co.SetConnectRetryInterval(2 * time.Second)
	co.SetMaxReconnectInterval(30 * time.Second)
	co.OnConnect = func(mqtt.Client) {
		p.setConnected(true)
		if logger != nil {
			logger.Info("mqtt connected", "broker", broker, "client_id", o.ClientID)
		}
	}
	co.OnConnectionLost = func(_ mqtt.Client, err error) {
		p.setConnected(false)
		if logger != nil {
			logger.Warn("mqtt connection lost", "broker", broker, "error", err)
		}
	}
	timeout := o.ConnectTimeout
	if timeout <= 0 {
		timeout = connectTimeout
	}
	p.client = newClient(co)
	token := p.client.Connect()
	if !token.WaitTimeout(timeout) {
		// stop the background connect retries
		p.client.Disconnect(0)
		return nil, fmt.Errorf("mqtt connect to %s: timeout", broker)
	}
	if err := token.Error(); err != nil {
		p.client.Disconnect(0)
		return nil, fmt.Errorf("mqtt connect to %s: %w", broker, err)
	}
	p.setConnected(true)
	return p, nil
}

func (p *MQTTPublisher) setConnected(v bool) {
	p.mu.Lock()
	p.connected = v
	p.mu.Unlock()
}

func (p *MQTTPublisher) fail(err error) error {
	p.mu.Lock()
	p.failed++
	p.mu.Unlock()
	return err
}

// Publish sends one event. It fails when the client is disconnected or the broker does
// not acknowledge within the publish timeout.
func (p *MQTTPublisher) Publish(ctx context.Context, sessionID, source string, ev bleed.Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p.mu.RLock()
	connected := p.connected
	p.mu.RUnlock()
	if !connected {
		return p.fail(fmt.Errorf("mqtt not connected"))
	}
	msg := NewPayload(sessionID, source, ev, time.Now())
	body, err := json.Marshal(msg)
	if err != nil {
		return p.fail(fmt.Errorf("marshal event: %w", err))
	}
	topic := Topic(p.opts.Topic, msg)
	token := p.client.Publish(topic, p.opts.QoS, false, body)
	if !token.WaitTimeout(publishTimeout) {
		return p.fail(fmt.Errorf("publish to %s: timeout", topic))
	}
	if err := token.Error(); err != nil {
		return p.fail(fmt.Errorf("publish to %s: %w", topic, err))
	}
	p.mu.Lock()
	p.published++
	p.mu.Unlock()
	if p.logger != nil {
		p.logger.Debug("event published", "topic", topic, "qos", p.opts.QoS, "size", len(body))
	}
	return nil
}

// Stats returns a snapshot of publish counters.
func (p *MQTTPublisher) Stats() PublishStats {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return PublishStats{Connected: p.connected, Published: p.published, Failed: p.failed}
}

// Close disconnects with a short grace period.
func (p *MQTTPublisher) Close() error {
	if p.client != nil && p.client.IsConnected() {
		p.client.Disconnect(250)
	}
	p.setConnected(false)
	if p.logger != nil {
		s := p.Stats()
		p.logger.Info("mqtt closed", "published", s.Published, "failed", s.Failed)
	}
	return nil
}

// PublishAll sends every event, returning the first error after attempting them all.
func PublishAll(ctx context.Context, p Publisher, sessionID, source string, events []bleed.Event) error {
	var first error
	for _, ev := range events {
		if err := p.Publish(ctx, sessionID, source, ev); err != nil && first == nil {
			first = err
		}
	}
	return first
}
