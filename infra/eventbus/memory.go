package eventbus

import (
	"context"
	"log/slog"
	"sync"

	"github.com/amirasaad/fxengine/pkg/eventbus"
)

// MemoryEventBus dispatches events synchronously to in-process handlers and
// keeps every published event for inspection.
type MemoryEventBus struct {
	handlers  map[eventbus.EventType][]eventbus.HandlerFunc
	mu        sync.RWMutex
	logger    *slog.Logger
	published []eventbus.Event
}

// NewWithMemory creates a synchronous in-memory event bus.
func NewWithMemory(logger *slog.Logger) *MemoryEventBus {
	if logger == nil {
		logger = slog.Default()
	}
	return &MemoryEventBus{
		handlers:  make(map[eventbus.EventType][]eventbus.HandlerFunc),
		logger:    logger.With("bus", "memory"),
		published: make([]eventbus.Event, 0),
	}
}

// Register registers a handler for a specific event type.
func (b *MemoryEventBus) Register(eventType eventbus.EventType, handler eventbus.HandlerFunc) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[eventType] = append(b.handlers[eventType], handler)
}

// Emit records the event and runs its handlers in order. Handler errors are
// logged, never returned.
func (b *MemoryEventBus) Emit(ctx context.Context, event eventbus.Event) error {
	b.mu.Lock()
	b.published = append(b.published, event)
	handlers := append([]eventbus.HandlerFunc(nil), b.handlers[eventbus.EventType(event.Type())]...)
	b.mu.Unlock()

	for _, handler := range handlers {
		runHandler(ctx, b.logger, handler, event)
	}
	return nil
}

// ClearPublished clears the list of published events.
func (b *MemoryEventBus) ClearPublished() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.published = make([]eventbus.Event, 0)
}

// Published returns a copy of the events published so far.
func (b *MemoryEventBus) Published() []eventbus.Event {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return append([]eventbus.Event(nil), b.published...)
}

var _ eventbus.Bus = (*MemoryEventBus)(nil)

type queued struct {
	ctx   context.Context
	event eventbus.Event
}

// MemoryAsyncEventBus queues events and dispatches them on a background
// goroutine, so Emit never waits for handlers.
type MemoryAsyncEventBus struct {
	handlers map[eventbus.EventType][]eventbus.HandlerFunc
	mu       sync.RWMutex
	eventCh  chan queued
	done     chan struct{}
	once     sync.Once
	wg       sync.WaitGroup
	log      *slog.Logger
}

// NewWithMemoryAsync creates an asynchronous in-memory event bus with the
// given queue size (100 when not positive).
func NewWithMemoryAsync(logger *slog.Logger, queueSize int) *MemoryAsyncEventBus {
	if logger == nil {
		logger = slog.Default()
	}
	if queueSize <= 0 {
		queueSize = 100
	}
	b := &MemoryAsyncEventBus{
		handlers: make(map[eventbus.EventType][]eventbus.HandlerFunc),
		eventCh:  make(chan queued, queueSize),
		done:     make(chan struct{}),
		log:      logger.With("event-bus", "memory"),
	}
	b.wg.Add(1)
	go b.process()
	return b
}

func (b *MemoryAsyncEventBus) Register(eventType eventbus.EventType, handler eventbus.HandlerFunc) {
	b.mu.Lock()
	b.handlers[eventType] = append(b.handlers[eventType], handler)
	b.mu.Unlock()
}

// Emit enqueues the event. It blocks only while the queue is full and gives
// up when ctx is done.
func (b *MemoryAsyncEventBus) Emit(ctx context.Context, event eventbus.Event) error {
	select {
	case <-b.done:
		return context.Canceled
	default:
	}
	// Handlers run after the caller returned, so they must not inherit its
	// cancellation.
	hctx := context.WithoutCancel(ctx)
	select {
	case b.eventCh <- queued{ctx: hctx, event: event}:
		return nil
	case <-b.done:
		return context.Canceled
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops the dispatcher after draining queued events.
func (b *MemoryAsyncEventBus) Close() error {
	b.once.Do(func() { close(b.done) })
	b.wg.Wait()
	return nil
}

func (b *MemoryAsyncEventBus) process() {
	defer b.wg.Done()
	for {
		select {
		case w := <-b.eventCh:
			b.dispatch(w)
		case <-b.done:
			for {
				select {
				case w := <-b.eventCh:
					b.dispatch(w)
				default:
					return
				}
			}
		}
	}
}

func (b *MemoryAsyncEventBus) dispatch(w queued) {
	b.mu.RLock()
	handlers := append([]eventbus.HandlerFunc{}, b.handlers[eventbus.EventType(w.event.Type())]...)
	b.mu.RUnlock()
	for _, handler := range handlers {
		runHandler(w.ctx, b.log, handler, w.event)
	}
}

var _ eventbus.Bus = (*MemoryAsyncEventBus)(nil)

// runHandler calls handler, logging errors and recovering panics. It reports
// whether the handler succeeded.
func runHandler(ctx context.Context, logger *slog.Logger, handler eventbus.HandlerFunc, event eventbus.Event) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("panic recovered in event handler", "type", event.Type(), "panic", r)
			ok = false
		}
	}()
	if err := handler(ctx, event); err != nil {
		logger.Error("failed to process event", "type", event.Type(), "error", err)
		return false
	}
	return true
}
