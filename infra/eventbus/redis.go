package eventbus

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/amirasaad/fxengine/pkg/eventbus"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// RedisEventBusConfig tunes the Redis Streams transport.
type RedisEventBusConfig struct {
	Group            string
	Block            time.Duration
	DLQRetryInterval time.Duration
	DLQBatchSize     int64
}

// DefaultRedisEventBusConfig returns the default Redis transport settings.
func DefaultRedisEventBusConfig() *RedisEventBusConfig {
	return &RedisEventBusConfig{
		Group:            "fxengine",
		Block:            time.Second,
		DLQRetryInterval: 5 * time.Minute,
		DLQBatchSize:     10,
	}
}

func (c *RedisEventBusConfig) withDefaults() *RedisEventBusConfig {
	d := DefaultRedisEventBusConfig()
	if c == nil {
		return d
	}
	out := *c
	if out.Group == "" {
		out.Group = d.Group
	}
	if out.Block <= 0 {
		out.Block = d.Block
	}
	if out.DLQRetryInterval <= 0 {
		out.DLQRetryInterval = d.DLQRetryInterval
	}
	if out.DLQBatchSize <= 0 {
		out.DLQBatchSize = d.DLQBatchSize
	}
	return &out
}

// RedisEventBus publishes each event type to its own Redis stream and
// consumes it through a consumer group. Messages whose handlers fail are
// copied to a DLQ stream and acknowledged.
type RedisEventBus struct {
	client    redis.UniversalClient
	config    *RedisEventBusConfig
	factories map[string]func() eventbus.Event
	logger    *slog.Logger

	mu        sync.RWMutex
	handlers  map[eventbus.EventType][]eventbus.HandlerFunc
	consumers map[eventbus.EventType]struct{}

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewWithRedis connects to url (e.g. "redis://localhost:6379/0") and returns
// a bus with a running DLQ retry worker.
func NewWithRedis(url string, logger *slog.Logger, config *RedisEventBusConfig) (*RedisEventBus, error) {
	if url == "" {
		return nil, fmt.Errorf("redis event bus: url is required")
	}
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("redis event bus: invalid URL: %w", err)
	}
	client := redis.NewClient(opt)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis event bus: connection failed: %w", err)
	}
	bus := NewWithRedisClient(client, logger, config)
	bus.startDLQRetryWorker()
	return bus, nil
}

// NewWithRedisClient wraps an existing client. No background worker is
// started until a handler is registered.
func NewWithRedisClient(client redis.UniversalClient, logger *slog.Logger, config *RedisEventBusConfig) *RedisEventBus {
	if logger == nil {
		logger = slog.Default()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &RedisEventBus{
		client:    client,
		config:    config.withDefaults(),
		factories: eventbus.Factories,
		logger:    logger.With("component", "redis-event-bus"),
		handlers:  make(map[eventbus.EventType][]eventbus.HandlerFunc),
		consumers: make(map[eventbus.EventType]struct{}),
		ctx:       ctx,
		cancel:    cancel,
	}
}

// Emit publishes an event to its stream.
func (b *RedisEventBus) Emit(ctx context.Context, event eventbus.Event) error {
	data, err := encodeEnvelope(event)
	if err != nil {
		b.logger.Error("failed to encode event", "error", err, "type", event.Type())
		return fmt.Errorf("redis event bus: %w", err)
	}
	stream := streamNameFor(eventbus.EventType(event.Type()))
	if err := b.client.XAdd(ctx, &redis.XAddArgs{
		Stream: stream,
		Values: map[string]any{"event": string(data)},
	}).Err(); err != nil {
		b.logger.Error("failed to emit event", "error", err, "type", event.Type())
		return fmt.Errorf("redis event bus: emit failed: %w", err)
	}
	b.logger.Debug("event emitted", "type", event.Type(), "stream", stream)
	return nil
}

// Register adds a handler and starts one consumer per event type.
func (b *RedisEventBus) Register(eventType eventbus.EventType, handler eventbus.HandlerFunc) {
	b.mu.Lock()
	b.handlers[eventType] = append(b.handlers[eventType], handler)
	_, running := b.consumers[eventType]
	b.consumers[eventType] = struct{}{}
	b.mu.Unlock()
	if running {
		return
	}

	stream := streamNameFor(eventType)
	err := b.client.XGroupCreateMkStream(b.ctx, stream, b.config.Group, "0").Err()
	if err != nil && !strings.Contains(err.Error(), "BUSYGROUP") {
		b.logger.Error("failed to create consumer group", "error", err, "stream", stream)
	}
	consumer := fmt.Sprintf("%s:%s", consumerNameFor(eventType), uuid.NewString()[:8])
	b.logger.Info("registering handler", "event_type", eventType, "consumer", consumer)

	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		b.consume(eventType, stream, consumer)
	}()
}

func (b *RedisEventBus) consume(eventType eventbus.EventType, stream, consumer string) {
	for {
		if b.ctx.Err() != nil {
			return
		}
		res, err := b.client.XReadGroup(b.ctx, &redis.XReadGroupArgs{
			Group:    b.config.Group,
			Consumer: consumer,
			Streams:  []string{stream, ">"},
			Count:    10,
			Block:    b.config.Block,
		}).Result()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				continue
			}
			if b.ctx.Err() != nil {
				return
			}
			b.logger.Error("error reading from stream", "error", err, "consumer", consumer)
			select {
			case <-b.ctx.Done():
				return
			case <-time.After(time.Second):
			}
			continue
		}
		for _, s := range res {
			for _, msg := range s.Messages {
				b.handleMessage(eventType, stream, msg)
			}
		}
	}
}

func (b *RedisEventBus) handleMessage(eventType eventbus.EventType, stream string, msg redis.XMessage) {
	ctx := b.ctx
	raw, _ := msg.Values["event"].(string)
	evt, _, err := decodeEnvelope([]byte(raw), b.factories)
	if err != nil {
		b.logger.Error("failed to decode message", "error", err, "msg_id", msg.ID)
		b.pushToDLQ(ctx, eventType, msg.Values)
	} else {
		b.mu.RLock()
		handlers := append([]eventbus.HandlerFunc(nil), b.handlers[eventType]...)
		b.mu.RUnlock()
		ok := true
		for _, h := range handlers {
			if !runHandler(ctx, b.logger, h, evt) {
				ok = false
			}
		}
		if !ok {
			b.pushToDLQ(ctx, eventType, msg.Values)
		}
	}
	if err := b.client.XAck(ctx, stream, b.config.Group, msg.ID).Err(); err != nil {
		b.logger.Error("failed to acknowledge message", "error", err, "msg_id", msg.ID)
	}
}

// pushToDLQ copies the raw message to the event type's DLQ stream.
func (b *RedisEventBus) pushToDLQ(ctx context.Context, eventType eventbus.EventType, values map[string]any) {
	dlq := dlqStreamName(eventType)
	if err := b.client.XAdd(ctx, &redis.XAddArgs{Stream: dlq, Values: values}).Err(); err != nil {
		b.logger.Error("failed to push to DLQ", "error", err, "stream", dlq)
		return
	}
	b.logger.Warn("event pushed to DLQ", "stream", dlq)
}

func (b *RedisEventBus) startDLQRetryWorker() {
	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		ticker := time.NewTicker(b.config.DLQRetryInterval)
		defer ticker.Stop()
		for {
			select {
			case <-b.ctx.Done():
				return
			case <-ticker.C:
				b.processAllDLQs(b.ctx)
			}
		}
	}()
}

// processAllDLQs republishes up to DLQBatchSize decodable messages from each
// registered type's DLQ back to its main stream.
func (b *RedisEventBus) processAllDLQs(ctx context.Context) {
	b.mu.RLock()
	types := make([]eventbus.EventType, 0, len(b.consumers))
	for t := range b.consumers {
		types = append(types, t)
	}
	b.mu.RUnlock()

	for _, eventType := range types {
		dlq := dlqStreamName(eventType)
		msgs, err := b.client.XRangeN(ctx, dlq, "-", "+", b.config.DLQBatchSize).Result()
		if err != nil {
			b.logger.Error("failed to read DLQ", "error", err, "stream", dlq)
			continue
		}
		for _, msg := range msgs {
			raw, _ := msg.Values["event"].(string)
			if _, _, err := decodeEnvelope([]byte(raw), b.factories); err != nil {
				continue
			}
			if err := b.client.XAdd(ctx, &redis.XAddArgs{
				Stream: streamNameFor(eventType),
				Values: msg.Values,
			}).Err(); err != nil {
				b.logger.Error("failed to republish DLQ message", "error", err, "stream", dlq)
				return
			}
			b.client.XDel(ctx, dlq, msg.ID)
		}
	}
}

// Close stops the consumers and the DLQ worker. The client is left open.
func (b *RedisEventBus) Close() error {
	b.cancel()
	b.wg.Wait()
	return nil
}

func streamNameFor(eventType eventbus.EventType) string { return nameFor("events", eventType) }

func dlqStreamName(eventType eventbus.EventType) string { return nameFor("dlq", eventType) }

func consumerNameFor(eventType eventbus.EventType) string { return nameFor("consumer", eventType) }

var _ eventbus.Bus = (*RedisEventBus)(nil)
