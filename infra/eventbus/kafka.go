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
	"github.com/segmentio/kafka-go"
	"golang.org/x/sync/errgroup"
)

const (
	defaultTopicPrefix = "fxengine.events"
	defaultGroupID     = "fxengine"
	consumerBackoff    = 500 * time.Millisecond
)

// KafkaEventBusConfig holds configuration for the Kafka event bus.
type KafkaEventBusConfig struct {
	GroupID          string
	TopicPrefix      string
	DLQRetryInterval time.Duration
	DLQBatchSize     int
	SASLUsername     string
	SASLPassword     string
	TLSEnabled       bool
	TLSCAFile        string
	TLSCertFile      string
	TLSKeyFile       string
	TLSSkipVerify    bool
}

// DefaultKafkaEventBusConfig returns default configuration for KafkaEventBus.
func DefaultKafkaEventBusConfig() *KafkaEventBusConfig {
	return (*KafkaEventBusConfig)(nil).withDefaults()
}

func (c *KafkaEventBusConfig) withDefaults() *KafkaEventBusConfig {
	var out KafkaEventBusConfig
	if c != nil {
		out = *c
	}
	if out.GroupID == "" {
		out.GroupID = defaultGroupID
	}
	if out.TopicPrefix = strings.TrimSpace(out.TopicPrefix); out.TopicPrefix == "" {
		out.TopicPrefix = defaultTopicPrefix
	}
	if out.DLQBatchSize <= 0 {
		out.DLQBatchSize = 10
	}
	if out.DLQRetryInterval <= 0 {
		out.DLQRetryInterval = 5 * time.Minute
	}
	return &out
}

// messageWriter is the part of *kafka.Writer the bus uses.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaEventBus publishes each event type to its own topic and consumes them
// through a consumer group. Messages are keyed by currency pair so quotes for
// one pair stay ordered within a partition. Failed deliveries go to a
// per-type DLQ topic that a background worker republishes periodically.
type KafkaEventBus struct {
	conn   *kafkaConn
	writer messageWriter
	cfg    *KafkaEventBusConfig
	log    *slog.Logger

	mu       sync.RWMutex
	handlers map[eventbus.EventType][]eventbus.HandlerFunc
	readers  map[eventbus.EventType]*kafka.Reader

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewWithKafka creates a new Kafka-backed event bus.
// brokers: comma-separated list, e.g. "localhost:9092,localhost:9093".
func NewWithKafka(brokers string, logger *slog.Logger, config *KafkaEventBusConfig) (*KafkaEventBus, error) {
	addrs := parseBrokers(brokers)
	if len(addrs) == 0 {
		return nil, errors.New("kafka event bus: brokers are required")
	}
	config = config.withDefaults()
	if logger == nil {
		logger = slog.Default()
	}

	conn, err := newKafkaConn(addrs, config)
	if err != nil {
		return nil, err
	}
	bus := newKafkaBus(conn, conn.writer(), logger, config)
	if err := conn.ping(bus.ctx); err != nil {
		_ = bus.Close()
		return nil, err
	}

	bus.startDLQRetryWorker()
	bus.log.Info("Kafka event bus initialized",
		"group_id", config.GroupID,
		"brokers", addrs,
		"topic_prefix", config.TopicPrefix,
		"dlq_retry_interval", config.DLQRetryInterval,
		"tls_enabled", conn.dialer.TLS != nil,
		"sasl_enabled", conn.dialer.SASLMechanism != nil,
	)
	return bus, nil
}

func newKafkaBus(conn *kafkaConn, writer messageWriter, logger *slog.Logger, config *KafkaEventBusConfig) *KafkaEventBus {
	ctx, cancel := context.WithCancel(context.Background())
	return &KafkaEventBus{
		conn:     conn,
		writer:   writer,
		cfg:      config,
		log:      logger.With("bus", "kafka"),
		handlers: make(map[eventbus.EventType][]eventbus.HandlerFunc),
		readers:  make(map[eventbus.EventType]*kafka.Reader),
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Close stops the consumers and the DLQ worker, then closes the writer.
func (b *KafkaEventBus) Close() error {
	if b == nil {
		return nil
	}
	b.cancel()

	b.mu.Lock()
	for _, r := range b.readers {
		_ = r.Close()
	}
	b.mu.Unlock()
	b.wg.Wait()

	if b.writer == nil {
		return nil
	}
	return b.writer.Close()
}

// Register adds a handler and starts the consumer for its topic on first use.
func (b *KafkaEventBus) Register(eventType eventbus.EventType, handler eventbus.HandlerFunc) {
	b.mu.Lock()
	b.handlers[eventType] = append(b.handlers[eventType], handler)
	_, running := b.readers[eventType]
	b.mu.Unlock()

	if !running {
		b.startConsumer(eventType)
	}
}

// Emit publishes an event to its topic.
func (b *KafkaEventBus) Emit(ctx context.Context, event eventbus.Event) error {
	if b == nil || b.writer == nil {
		return errors.New("kafka event bus: writer not initialized")
	}
	payload, err := encodeEnvelope(event)
	if err != nil {
		return fmt.Errorf("kafka event bus: %w", err)
	}
	eventType := eventbus.EventType(event.Type())
	topic := topicNameFor(b.cfg.TopicPrefix, eventType)
	if err := b.conn.ensureTopic(ctx, topic); err != nil {
		return err
	}
	return b.write(ctx, topic, partitionKey(event), payload)
}

func (b *KafkaEventBus) write(ctx context.Context, topic string, key, value []byte) error {
	err := b.writer.WriteMessages(ctx, kafka.Message{Topic: topic, Key: key, Value: value, Time: time.Now()})
	if err != nil {
		return fmt.Errorf("kafka event bus: publish to %s: %w", topic, err)
	}
	return nil
}

// partitionKey keys rate and arbitrage events by pair, anything else by type.
func partitionKey(event eventbus.Event) []byte {
	switch e := event.(type) {
	case *eventbus.RateQuoteRefreshed:
		return []byte(e.From + ":" + e.To)
	case *eventbus.ArbitrageOpportunityDetected:
		return []byte(e.Pair)
	default:
		return []byte(event.Type())
	}
}

func (b *KafkaEventBus) startConsumer(eventType eventbus.EventType) {
	topic := topicNameFor(b.cfg.TopicPrefix, eventType)
	if err := b.conn.ensureTopic(b.ctx, topic); err != nil {
		b.log.Error("kafka ensure topic error", "error", err, "event_type", eventType)
		return
	}

	b.mu.Lock()
	if _, exists := b.readers[eventType]; exists {
		b.mu.Unlock()
		return
	}
	reader := b.conn.reader(b.cfg.GroupID, topic, time.Second)
	b.readers[eventType] = reader
	b.mu.Unlock()

	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		b.consume(eventType, reader)
	}()
}

func (b *KafkaEventBus) consume(eventType eventbus.EventType, reader *kafka.Reader) {
	for {
		msg, err := reader.FetchMessage(b.ctx)
		if err != nil {
			if b.ctx.Err() != nil {
				return
			}
			b.log.Error("kafka consume error", "error", err, "event_type", eventType)
			if !sleepCtx(b.ctx, consumerBackoff) {
				return
			}
			continue
		}

		commit, err := b.processMessage(b.ctx, eventType, msg)
		switch {
		case commit:
			if err := reader.CommitMessages(b.ctx, msg); err != nil {
				b.log.Error("kafka commit error", "error", err, "topic", msg.Topic, "offset", msg.Offset)
			}
		case err != nil:
			b.log.Error("kafka message not processed, will be redelivered",
				"error", err, "topic", msg.Topic, "offset", msg.Offset)
			if !sleepCtx(b.ctx, consumerBackoff) {
				return
			}
		}
	}
}

// processMessage decodes and dispatches one message. It reports whether the
// offset may be committed: undecodable messages and messages without
// handlers are dropped, failed deliveries are committed once parked in the DLQ.
func (b *KafkaEventBus) processMessage(
	ctx context.Context,
	expected eventbus.EventType,
	msg kafka.Message,
) (commit bool, err error) {
	evt, typ, err := decodeEnvelope(msg.Value, eventbus.Factories)
	if err != nil {
		b.log.Error("dropping undecodable message", "error", err, "topic", msg.Topic, "offset", msg.Offset)
		return true, nil
	}
	eventType := eventbus.EventType(typ)
	if expected != "" && eventType != expected {
		b.log.Warn("envelope type mismatch for topic", "expected", expected, "actual", eventType, "topic", msg.Topic)
	}

	handlers := b.handlersFor(eventType)
	if len(handlers) == 0 {
		b.log.Warn("no handlers registered for event type", "event_type", eventType, "topic", msg.Topic)
		return true, nil
	}
	if dispatchAll(ctx, b.log, evt, handlers) {
		return true, nil
	}

	dlq := dlqTopicNameFor(b.cfg.TopicPrefix, eventType)
	if err := b.conn.ensureTopic(ctx, dlq); err != nil {
		return false, err
	}
	if err := b.write(ctx, dlq, msg.Key, msg.Value); err != nil {
		return false, err
	}
	b.log.Warn("message sent to DLQ", "event_type", eventType, "dlq_topic", dlq)
	return true, nil
}

func (b *KafkaEventBus) handlersFor(eventType eventbus.EventType) []eventbus.HandlerFunc {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return append([]eventbus.HandlerFunc(nil), b.handlers[eventType]...)
}

func (b *KafkaEventBus) registeredTypes() []eventbus.EventType {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]eventbus.EventType, 0, len(b.handlers))
	for t := range b.handlers {
		out = append(out, t)
	}
	return out
}

func (b *KafkaEventBus) startDLQRetryWorker() {
	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		ticker := time.NewTicker(b.cfg.DLQRetryInterval)
		defer ticker.Stop()
		for {
			select {
			case <-b.ctx.Done():
				return
			case <-ticker.C:
				for _, eventType := range b.registeredTypes() {
					b.retryDLQ(eventType)
				}
			}
		}
	}()
}

// retryDLQ moves up to DLQBatchSize messages from the DLQ topic back to the
// event's main topic, keeping their keys.
func (b *KafkaEventBus) retryDLQ(eventType eventbus.EventType) {
	reader := b.conn.reader(b.cfg.GroupID+"-dlq-retry", dlqTopicNameFor(b.cfg.TopicPrefix, eventType), 250*time.Millisecond)
	defer func() { _ = reader.Close() }()

	topic := topicNameFor(b.cfg.TopicPrefix, eventType)
	for range b.cfg.DLQBatchSize {
		fetchCtx, cancel := context.WithTimeout(b.ctx, 500*time.Millisecond)
		msg, err := reader.FetchMessage(fetchCtx)
		cancel()
		if err != nil {
			return
		}
		if err := b.write(b.ctx, topic, msg.Key, msg.Value); err != nil {
			b.log.Error("failed to republish DLQ message", "error", err, "event_type", eventType)
			return
		}
		_ = reader.CommitMessages(b.ctx, msg)
	}
}

var errHandlerFailed = errors.New("event handler failed")

// dispatchAll runs handlers concurrently and reports whether all succeeded.
func dispatchAll(ctx context.Context, logger *slog.Logger, evt eventbus.Event, handlers []eventbus.HandlerFunc) bool {
	var g errgroup.Group
	for _, h := range handlers {
		g.Go(func() error {
			if !runHandler(ctx, logger, h, evt) {
				return errHandlerFailed
			}
			return nil
		})
	}
	return g.Wait() == nil
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

func topicNameFor(prefix string, eventType eventbus.EventType) string {
	return topicName(prefix, "", eventType)
}

func dlqTopicNameFor(prefix string, eventType eventbus.EventType) string {
	return topicName(prefix, "dlq.", eventType)
}

func topicName(prefix, infix string, eventType eventbus.EventType) string {
	if prefix = strings.TrimSpace(prefix); prefix == "" {
		prefix = defaultTopicPrefix
	}
	return prefix + "." + infix + strings.ToLower(eventType.String())
}

var _ eventbus.Bus = (*KafkaEventBus)(nil)
