package certstream

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// Client subscribes to a feed and delivers decoded events to registered
// handlers, reconnecting on failure. It is safe for concurrent use by
// multiple goroutines.
type Client struct {
	id         string
	cfg        clientConfig
	logger     *slog.Logger
	manager    *ConnectionManager
	dispatcher *Dispatcher

	mu      sync.Mutex
	running bool
	cancel  context.CancelCauseFunc
	done    chan struct{}
}

// New creates a Client. Nothing is dialed until Start or Run.
func New(opts ...ClientOption) *Client {
	cfg := defaultClientConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	id := uuid.New().String()
	logger := cfg.logger.With(slog.String("client_id", id))

	dial := cfg.dial
	if dial == nil {
		dial = dialer(cfg.dialOpts)
	}

	c := &Client{
		id:     id,
		cfg:    cfg,
		logger: logger,
	}
	c.dispatcher = NewDispatcher(logger, c.reportError)
	c.manager = NewConnectionManager(ManagerConfig{
		Endpoint:       cfg.endpoint,
		Dial:           dial,
		ConnectTimeout: cfg.connectTimeout,
		Backoff:        cfg.backoff,
		Logger:         logger,
		OnError:        cfg.onError,
		OnReceive:      cfg.onReceive,
		OnStateChange:  cfg.onStateChange,
	})

	return c
}

// ID returns the client's unique identifier, used in log records.
func (c *Client) ID() string {
	return c.id
}

// Endpoint returns the feed URL.
func (c *Client) Endpoint() string {
	return c.manager.Endpoint()
}

// State returns the connection lifecycle state.
func (c *Client) State() State {
	return c.manager.State()
}

// Listen registers h and returns it.
func (c *Client) Listen(h Handler) Handler {
	return c.dispatcher.Register(h)
}

// ListenFunc registers fn as a handler.
func (c *Client) ListenFunc(fn func(ctx context.Context, ev Event) error) Handler {
	return c.dispatcher.Register(HandlerFunc(fn))
}

// Start connects and delivers events until ctx ends, Stop is called, or,
// with reconnect false, the first session ends. It returns nil after Stop,
// the context's cause when ctx ends, and the session's terminal error in
// single-run mode (nil for a clean close).
//
// In-flight handlers see their context cancelled on stop and are waited
// for before Start returns.
func (c *Client) Start(ctx context.Context, reconnect bool) error {
	c.mu.Lock()
	if c.running {
		c.mu.Unlock()
		return ErrRunning
	}
	runCtx, cancel := context.WithCancelCause(ctx)
	done := make(chan struct{})
	c.running = true
	c.cancel = cancel
	c.done = done
	c.mu.Unlock()

	c.logger.Info("client starting",
		slog.String("endpoint", c.Endpoint()),
		slog.Bool("reconnect", reconnect),
		slog.String("dispatch", c.cfg.mode.String()),
	)

	var group errgroup.Group
	deliver := c.dispatcher.Dispatch
	if c.cfg.mode == DispatchConcurrent {
		group.SetLimit(c.cfg.maxInFlight)
		deliver = func(ctx context.Context, ev Event) {
			if ev.IsHeartbeat() {
				return
			}
			group.Go(func() error {
				c.dispatcher.Dispatch(ctx, ev)
				return nil
			})
		}
	}

	err := c.manager.Loop(runCtx, reconnect, deliver)
	cancel(ErrStopped)
	_ = group.Wait()

	c.mu.Lock()
	c.running = false
	c.cancel = nil
	c.done = nil
	c.mu.Unlock()
	close(done)

	if errors.Is(err, ErrStopped) {
		err = nil
	}
	c.logger.Info("client stopped", slog.Any("error", err))
	return err
}

// Run calls Start with the context the client was created with and blocks
// until it returns.
func (c *Client) Run(reconnect bool) error {
	return c.Start(c.cfg.ctx, reconnect)
}

// Stop ends a running Start, closing the live session, and waits for it to
// return or for ctx to end. Handlers must not call Stop synchronously with
// an unbounded ctx, since Start waits for them.
func (c *Client) Stop(ctx context.Context) error {
	c.mu.Lock()
	cancel, done := c.cancel, c.done
	c.mu.Unlock()

	if cancel == nil {
		return nil
	}

	cancel(ErrStopped)
	if err := c.manager.Close(); err != nil {
		c.logger.Debug("session close", slog.Any("error", err))
	}

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// reportError forwards handler failures to the OnError hook.
func (c *Client) reportError(err error) {
	if c.cfg.onError != nil {
		c.cfg.onError(err)
	}
}
