package events

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"cleantech-console/common/mqtt"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Event announces a successful mutation made through the console.
type Event struct {
	ID        string    `json:"id"`
	Origin    string    `json:"origin"`
	SessionID string    `json:"sessionId"`
	UserID    int       `json:"userId"`
	Screen    string    `json:"screen"`
	Action    string    `json:"action"`
	IDs       []int     `json:"ids,omitempty"`
	At        time.Time `json:"at"`
}

type Publisher interface {
	Publish(ctx context.Context, e Event) error
}

// Broker is the part of the MQTT client the bus needs.
type Broker interface {
	Publish(topic string, qos byte, retained bool, payload []byte) error
	Subscribe(topic string, qos byte, handler mqtt.MessageHandler) error
}

// Bus publishes events to "{prefix}/{screen}" and delivers events of other
// replicas to subscribers.
type Bus struct {
	broker Broker
	prefix string
	qos    byte
	origin string
	logger *zap.Logger
}

func NewBus(broker Broker, prefix string, qos byte, origin string, logger *zap.Logger) *Bus {
	return &Bus{
		broker: broker,
		prefix: strings.TrimSuffix(prefix, "/"),
		qos:    qos,
		origin: origin,
		logger: logger,
	}
}

func (b *Bus) Origin() string { return b.origin }

func (b *Bus) Publish(ctx context.Context, e Event) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.At.IsZero() {
		e.At = time.Now().UTC()
	}
	e.Origin = b.origin

	payload, err := json.Marshal(e)
	if err != nil {
		return err
	}
	topic := b.prefix + "/" + e.Screen
	if err := b.broker.Publish(topic, b.qos, false, payload); err != nil {
		return err
	}
	b.logger.Debug("published mutation event",
		zap.String("topic", topic),
		zap.String("action", e.Action),
		zap.Ints("ids", e.IDs),
	)
	return nil
}

// Subscribe calls handle for every event published by another replica.
func (b *Bus) Subscribe(handle func(Event)) error {
	return b.broker.Subscribe(b.prefix+"/+", b.qos, func(topic string, payload []byte) error {
		var e Event
		if err := json.Unmarshal(payload, &e); err != nil {
			return fmt.Errorf("decode event on %s: %w", topic, err)
		}
		if e.Origin == b.origin {
			return nil
		}
		handle(e)
		return nil
	})
}

// Nop drops every event. It is used when no broker is configured.
type Nop struct{}

func (Nop) Publish(context.Context, Event) error { return nil }

// TopicMatches reports whether topic matches an MQTT filter with "+" and
// "#" wildcards.
func TopicMatches(filter, topic string) bool {
	f := strings.Split(filter, "/")
	t := strings.Split(topic, "/")
	for i := range f {
		if f[i] == "#" {
			return true
		}
		if i >= len(t) || (f[i] != "+" && f[i] != t[i]) {
			return false
		}
	}
	return len(f) == len(t)
}
