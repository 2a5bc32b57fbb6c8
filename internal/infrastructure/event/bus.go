package event

import (
	"context"
	"fmt"
	"sync"

	"github.com/energyadmin/backend/internal/domain/shared"
	"go.uber.org/zap"
)

const (
	// DefaultQueueSize bounds the number of events waiting for dispatch
	DefaultQueueSize = 1024
	// DefaultWorkers keeps dispatch in publish order
	DefaultWorkers = 1
)

// InMemoryEventBus implements EventBus with a buffered queue drained by
// worker goroutines. Publish only enqueues, so slow handlers never delay the
// lead mutation that produced the event. Handler failures are logged and
// never reach the publisher.
type InMemoryEventBus struct {
	registry  *HandlerRegistry
	logger    *zap.Logger
	queue     chan envelope
	workers   int
	queueSize int

	mu      sync.RWMutex
	running bool
	stopped bool
	quit    chan struct{}
	wg      sync.WaitGroup
}

type envelope struct {
	ctx   context.Context
	event shared.DomainEvent
}

// InMemoryEventBusOption configures an InMemoryEventBus
type InMemoryEventBusOption func(*InMemoryEventBus)

// WithQueueSize sets the queue capacity. Events published while the queue is
// full are dropped.
func WithQueueSize(size int) InMemoryEventBusOption {
	return func(b *InMemoryEventBus) {
		if size > 0 {
			b.queueSize = size
		}
	}
}

// WithWorkers sets the number of dispatch goroutines. More than one worker
// gives up publish ordering across events.
func WithWorkers(n int) InMemoryEventBusOption {
	return func(b *InMemoryEventBus) {
		if n > 0 {
			b.workers = n
		}
	}
}

// NewInMemoryEventBus creates a new in-memory event bus. Events published
// before Start are queued and dispatched once the workers run.
func NewInMemoryEventBus(logger *zap.Logger, opts ...InMemoryEventBusOption) *InMemoryEventBus {
	if logger == nil {
		logger = zap.NewNop()
	}
	b := &InMemoryEventBus{
		registry:  NewHandlerRegistry(),
		logger:    logger.Named("event_bus"),
		workers:   DefaultWorkers,
		queueSize: DefaultQueueSize,
	}
	for _, opt := range opts {
		opt(b)
	}
	b.queue = make(chan envelope, b.queueSize)
	return b
}

// Publish enqueues events for dispatch and returns without waiting for
// handlers. The caller's cancellation does not reach the handlers.
func (b *InMemoryEventBus) Publish(ctx context.Context, events ...shared.DomainEvent) error {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.stopped {
		b.logger.Warn("event bus stopped, dropping events", zap.Int("count", len(events)))
		return nil
	}

	detached := context.WithoutCancel(ctx)
	for i, event := range events {
		select {
		case b.queue <- envelope{ctx: detached, event: event}:
		default:
			b.logger.Error("event queue full, dropping events",
				zap.String("event_type", event.EventType()),
				zap.String("aggregate_id", event.AggregateID().String()),
				zap.Int("dropped", len(events)-i),
				zap.Int("queue_size", b.queueSize),
			)
			return nil
		}
	}
	return nil
}

// Subscribe registers a handler. Without explicit event types the handler's
// own EventTypes are used; an empty list subscribes to everything.
func (b *InMemoryEventBus) Subscribe(handler shared.EventHandler, eventTypes ...string) {
	if len(eventTypes) == 0 {
		eventTypes = handler.EventTypes()
	}
	b.registry.Register(handler, eventTypes...)
	b.logger.Debug("handler subscribed", zap.Strings("event_types", eventTypes))
}

// Unsubscribe removes a handler
func (b *InMemoryEventBus) Unsubscribe(handler shared.EventHandler) {
	b.registry.Unregister(handler)
}

// Start launches the dispatch workers. Starting a running bus is a no-op.
func (b *InMemoryEventBus) Start(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.running {
		return nil
	}
	b.running = true
	b.stopped = false
	b.quit = make(chan struct{})

	for i := 0; i < b.workers; i++ {
		b.wg.Add(1)
		go b.run(b.quit)
	}

	b.logger.Info("event bus started",
		zap.Int("handlers", b.registry.Count()),
		zap.Int("workers", b.workers),
		zap.Int("queue_size", b.queueSize),
	)
	return nil
}

// Stop rejects new events, lets the workers drain the queue and waits for
// them until ctx is done.
func (b *InMemoryEventBus) Stop(ctx context.Context) error {
	b.mu.Lock()
	b.stopped = true
	if !b.running {
		b.mu.Unlock()
		return nil
	}
	b.running = false
	close(b.quit)
	b.mu.Unlock()

	done := make(chan struct{})
	go func() {
		b.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		b.logger.Info("event bus stopped")
		return nil
	case <-ctx.Done():
		return fmt.Errorf("event bus stop: %w", ctx.Err())
	}
}

// Pending reports the number of queued events not yet picked up by a worker
func (b *InMemoryEventBus) Pending() int {
	return len(b.queue)
}

func (b *InMemoryEventBus) run(quit <-chan struct{}) {
	defer b.wg.Done()
	for {
		select {
		case env := <-b.queue:
			b.dispatch(env)
		case <-quit:
			for {
				select {
				case env := <-b.queue:
					b.dispatch(env)
				default:
					return
				}
			}
		}
	}
}

func (b *InMemoryEventBus) dispatch(env envelope) {
	event := env.event
	for _, handler := range b.registry.GetHandlers(event.EventType()) {
		if err := b.dispatchToHandler(env.ctx, handler, event); err != nil {
			b.logger.Error("handler failed to process event",
				zap.String("event_type", event.EventType()),
				zap.String("event_id", event.EventID().String()),
				zap.String("aggregate_id", event.AggregateID().String()),
				zap.Error(err),
			)
		}
	}
}

// dispatchToHandler calls the handler and converts a panic into an error
func (b *InMemoryEventBus) dispatchToHandler(ctx context.Context, handler shared.EventHandler, event shared.DomainEvent) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panicked: %v", r)
		}
	}()
	return handler.Handle(ctx, event)
}

// Ensure InMemoryEventBus implements EventBus
var _ shared.EventBus = (*InMemoryEventBus)(nil)
