package events

import (
	"context"
	"errors"
	"sync"
	"time"

	"cleantech-console/common/mqtt"
	commonredis "cleantech-console/common/redis"

	"go.uber.org/zap"
)

// StreamBroker carries events over a Redis stream for deployments without
// an MQTT broker. Every replica reads through its own consumer group, so
// each one sees every event.
type StreamBroker struct {
	client   *commonredis.Client
	stream   string
	group    string
	consumer string
	maxLen   int64
	block    time.Duration
	logger   *zap.Logger

	ctx        context.Context
	cancel     context.CancelFunc
	wg         sync.WaitGroup
	subscribed bool
	closeOnce  sync.Once
}

// NewStreamBroker builds a broker on stream. group must be unique per
// replica; it is destroyed again on Close. The stream keeps at most maxLen
// entries (0 means unbounded).
func NewStreamBroker(client *commonredis.Client, stream, group string, maxLen int64, logger *zap.Logger) *StreamBroker {
	ctx, cancel := context.WithCancel(context.Background())
	return &StreamBroker{
		client:   client,
		stream:   stream,
		group:    group,
		consumer: group,
		maxLen:   maxLen,
		block:    2 * time.Second,
		logger:   logger,
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Publish appends the payload with its topic. qos and retained do not apply
// to streams.
func (b *StreamBroker) Publish(topic string, _ byte, _ bool, payload []byte) error {
	_, err := commonredis.PublishToStream(b.ctx, b.client, b.stream, b.maxLen, map[string]interface{}{
		"topic":   topic,
		"payload": payload,
	})
	return err
}

// Subscribe starts a reader that calls handler for entries whose topic
// matches filter. Entries are acknowledged whether or not the handler fails.
func (b *StreamBroker) Subscribe(filter string, _ byte, handler mqtt.MessageHandler) error {
	if err := commonredis.CreateConsumerGroup(b.ctx, b.client, b.stream, b.group); err != nil {
		return err
	}
	b.subscribed = true
	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		b.read(filter, handler)
	}()
	return nil
}

func (b *StreamBroker) read(filter string, handler mqtt.MessageHandler) {
	for {
		msgs, err := commonredis.ReadFromStream(b.ctx, b.client, b.stream, b.group, b.consumer, 50, b.block)
		if err != nil {
			if b.ctx.Err() != nil || errors.Is(err, context.Canceled) {
				return
			}
			b.logger.Warn("event stream read failed", zap.String("stream", b.stream), zap.Error(err))
			select {
			case <-b.ctx.Done():
				return
			case <-time.After(time.Second):
			}
			continue
		}

		ids := make([]string, 0, len(msgs))
		for _, m := range msgs {
			ids = append(ids, m.ID)
			topic, _ := m.Values["topic"].(string)
			payload, _ := m.Values["payload"].(string)
			if !TopicMatches(filter, topic) {
				continue
			}
			if err := handler(topic, []byte(payload)); err != nil {
				b.logger.Warn("event stream handler failed", zap.String("topic", topic), zap.Error(err))
			}
		}
		if err := commonredis.AckStream(b.ctx, b.client, b.stream, b.group, ids...); err != nil && b.ctx.Err() == nil {
			b.logger.Warn("event stream ack failed", zap.String("stream", b.stream), zap.Error(err))
		}
	}
}

// Close stops the readers, waits for them to return and destroys the
// consumer group so it does not outlive the replica.
func (b *StreamBroker) Close() {
	b.closeOnce.Do(func() {
		b.cancel()
		b.wg.Wait()
		if !b.subscribed {
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := commonredis.DestroyConsumerGroup(ctx, b.client, b.stream, b.group); err != nil {
			b.logger.Warn("failed to destroy event stream group", zap.String("stream", b.stream), zap.String("group", b.group), zap.Error(err))
		}
	})
}
