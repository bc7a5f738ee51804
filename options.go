package certstream

import (
	"context"
	"log/slog"
	"time"
)

// DefaultEndpoint is the public certstream feed.
const DefaultEndpoint = "wss://certstream.calidog.io/"

// Defaults for client configuration.
const (
	DefaultConnectTimeout = 10 * time.Second
	DefaultMaxInFlight    = 64
)

// DispatchMode selects how events are handed to the dispatcher.
type DispatchMode int

const (
	// DispatchConcurrent dispatches each event on its own goroutine,
	// started in arrival order. Completion order across events is not
	// guaranteed. At most MaxInFlight dispatches run at once; beyond that
	// the receive loop waits.
	DispatchConcurrent DispatchMode = iota

	// DispatchSequential finishes dispatching an event before reading the
	// next frame.
	DispatchSequential
)

func (m DispatchMode) String() string {
	if m == DispatchSequential {
		return "sequential"
	}
	return "concurrent"
}

// ClientOption configures a Client.
type ClientOption func(*clientConfig)

type clientConfig struct {
	endpoint       string
	ctx            context.Context
	logger         *slog.Logger
	dial           DialFunc
	dialOpts       *DialOptions
	connectTimeout time.Duration
	backoff        Backoff
	mode           DispatchMode
	maxInFlight    int
	onError        func(error)
	onReceive      func(Message)
	onStateChange  func(State)
}

func defaultClientConfig() clientConfig {
	return clientConfig{
		endpoint:       DefaultEndpoint,
		ctx:            context.Background(),
		logger:         slog.New(slog.DiscardHandler),
		connectTimeout: DefaultConnectTimeout,
		backoff:        DefaultBackoff(),
		mode:           DispatchConcurrent,
		maxInFlight:    DefaultMaxInFlight,
	}
}

// WithEndpoint sets the feed URL.
func WithEndpoint(url string) ClientOption {
	return func(c *clientConfig) {
		if url != "" {
			c.endpoint = url
		}
	}
}

// WithContext sets the context the client runs under. Run uses it directly;
// Stop cancels a context derived from it.
func WithContext(ctx context.Context) ClientOption {
	return func(c *clientConfig) {
		if ctx != nil {
			c.ctx = ctx
		}
	}
}

// WithLogger sets a structured logger for the client.
func WithLogger(logger *slog.Logger) ClientOption {
	return func(c *clientConfig) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithDialer replaces the WebSocket dialer, e.g. with an in-memory
// transport.
func WithDialer(fn DialFunc) ClientOption {
	return func(c *clientConfig) {
		c.dial = fn
	}
}

// WithDialOptions configures the default WebSocket dialer.
func WithDialOptions(opts *DialOptions) ClientOption {
	return func(c *clientConfig) {
		c.dialOpts = opts
	}
}

// WithConnectTimeout bounds each connection attempt. Zero disables the
// bound.
func WithConnectTimeout(d time.Duration) ClientOption {
	return func(c *clientConfig) {
		c.connectTimeout = d
	}
}

// WithBackoff sets the reconnect delay bounds. The delay doubles after
// every failed cycle.
func WithBackoff(floor, ceiling time.Duration) ClientOption {
	return func(c *clientConfig) {
		if floor <= 0 || ceiling < floor {
			return
		}
		c.backoff.Floor = floor
		c.backoff.Ceiling = ceiling
	}
}

// WithDispatchMode selects concurrent or sequential dispatch.
func WithDispatchMode(mode DispatchMode) ClientOption {
	return func(c *clientConfig) {
		c.mode = mode
	}
}

// WithMaxInFlight bounds concurrent dispatches in DispatchConcurrent mode.
func WithMaxInFlight(n int) ClientOption {
	return func(c *clientConfig) {
		if n > 0 {
			c.maxInFlight = n
		}
	}
}

// WithOnError sets a callback receiving every recovered error: connect
// failures and session errors that lead to a reconnect, decode errors and
// handler errors. It may be called from several goroutines at once.
func WithOnError(fn func(error)) ClientOption {
	return func(c *clientConfig) {
		c.onError = fn
	}
}

// WithOnReceive sets a callback invoked for each inbound message before it
// is decoded.
func WithOnReceive(fn func(Message)) ClientOption {
	return func(c *clientConfig) {
		c.onReceive = fn
	}
}

// WithOnStateChange sets a callback invoked on every lifecycle transition.
func WithOnStateChange(fn func(State)) ClientOption {
	return func(c *clientConfig) {
		c.onStateChange = fn
	}
}
