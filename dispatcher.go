package certstream

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
)

// Handler consumes decoded events. Handle may block or do further I/O.
// A returned error is reported but never stops delivery to other handlers.
type Handler interface {
	Handle(ctx context.Context, ev Event) error
}

// HandlerFunc adapts an ordinary function to a Handler.
type HandlerFunc func(ctx context.Context, ev Event) error

// Handle calls f(ctx, ev).
func (f HandlerFunc) Handle(ctx context.Context, ev Event) error {
	return f(ctx, ev)
}

// Dispatcher delivers events to registered handlers in registration order.
// It is safe for concurrent use; registering while a dispatch is in flight
// does not affect that dispatch.
type Dispatcher struct {
	logger  *slog.Logger
	onError func(error)

	mu       sync.RWMutex
	handlers []Handler
}

// NewDispatcher creates an empty dispatcher. onError receives every
// *HandlerError and may be nil.
func NewDispatcher(logger *slog.Logger, onError func(error)) *Dispatcher {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Dispatcher{
		logger:  logger,
		onError: onError,
	}
}

// Register appends h and returns it unchanged.
func (d *Dispatcher) Register(h Handler) Handler {
	d.mu.Lock()
	d.handlers = append(d.handlers, h)
	d.mu.Unlock()
	return h
}

// Len returns the number of registered handlers.
func (d *Dispatcher) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.handlers)
}

// Dispatch passes ev to every handler. Heartbeats are dropped.
func (d *Dispatcher) Dispatch(ctx context.Context, ev Event) {
	if ev.IsHeartbeat() {
		return
	}

	d.mu.RLock()
	handlers := d.handlers[:len(d.handlers):len(d.handlers)]
	d.mu.RUnlock()

	for i, h := range handlers {
		if err := d.invoke(ctx, h, ev); err != nil {
			herr := &HandlerError{Index: i, MessageType: ev.MessageType(), Err: err}
			d.logger.Warn("handler failed",
				slog.Int("handler", i),
				slog.String("message_type", herr.MessageType),
				slog.Any("error", err),
			)
			if d.onError != nil {
				d.onError(herr)
			}
		}
	}
}

// invoke calls a single handler, converting a panic into an error.
func (d *Dispatcher) invoke(ctx context.Context, h Handler, ev Event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return h.Handle(ctx, ev)
}
