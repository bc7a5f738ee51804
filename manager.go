package certstream

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// ManagerConfig configures a ConnectionManager.
type ManagerConfig struct {
	Endpoint       string        // Feed URL
	Dial           DialFunc      // Opens transports; nil uses Dial with default options
	ConnectTimeout time.Duration // Bound on each connect attempt; 0 = none
	Backoff        Backoff       // Reconnect delays
	Logger         *slog.Logger

	OnError       func(error)   // Recovered errors (connect, session, decode)
	OnReceive     func(Message) // Every inbound message, before decoding
	OnStateChange func(State)
}

// CycleResult describes one connect-through-disconnect attempt.
type CycleResult struct {
	SessionID    string // Empty if the connect failed
	Delivered    int    // Text frames decoded and delivered
	DecodeErrors int    // Text frames that failed to decode
	CloseCode    int    // Peer close code, if the peer closed
	Err          error  // nil on a clean close
}

// Healthy reports whether the cycle delivered at least one event.
func (r CycleResult) Healthy() bool {
	return r.Delivered > 0
}

// ConnectionManager owns the single live session for one endpoint and
// runs the connect, receive and reconnect cycle.
type ConnectionManager struct {
	cfg    ManagerConfig
	logger *slog.Logger

	// wait sleeps between cycles; replaced in tests.
	wait func(ctx context.Context, d time.Duration) error

	state atomic.Int32

	mu      sync.Mutex
	session *Session
}

// NewConnectionManager creates a manager in StateIdle.
func NewConnectionManager(cfg ManagerConfig) *ConnectionManager {
	if cfg.Endpoint == "" {
		cfg.Endpoint = DefaultEndpoint
	}
	if cfg.Dial == nil {
		cfg.Dial = dialer(nil)
	}
	if cfg.Backoff.Floor <= 0 || cfg.Backoff.Ceiling < cfg.Backoff.Floor {
		cfg.Backoff = DefaultBackoff()
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	return &ConnectionManager{
		cfg:    cfg,
		logger: logger.With(slog.String("endpoint", cfg.Endpoint)),
		wait:   sleepContext,
	}
}

// Endpoint returns the feed URL.
func (m *ConnectionManager) Endpoint() string {
	return m.cfg.Endpoint
}

// State returns the current lifecycle state.
func (m *ConnectionManager) State() State {
	return State(m.state.Load())
}

func (m *ConnectionManager) setState(s State) {
	if State(m.state.Swap(int32(s))) == s {
		return
	}
	if m.cfg.OnStateChange != nil {
		m.cfg.OnStateChange(s)
	}
}

// Session returns the live session, or nil.
func (m *ConnectionManager) Session() *Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.session
}

// Connect opens a new session, closing any previous one first.
func (m *ConnectionManager) Connect(ctx context.Context) (*Session, error) {
	m.closeSession()
	m.setState(StateConnecting)

	dialCtx := ctx
	if m.cfg.ConnectTimeout > 0 {
		var cancel context.CancelFunc
		dialCtx, cancel = context.WithTimeout(ctx, m.cfg.ConnectTimeout)
		defer cancel()
	}

	m.logger.Debug("connecting")
	transport, err := m.cfg.Dial(dialCtx, m.cfg.Endpoint)
	if err != nil {
		var connErr *ConnectError
		if !errors.As(err, &connErr) {
			err = &ConnectError{URL: m.cfg.Endpoint, Err: err}
		}
		return nil, err
	}

	sess := newSession(m.cfg.Endpoint, transport)
	m.mu.Lock()
	m.session = sess
	m.mu.Unlock()

	return sess, nil
}

// Close closes the live session, if any. A RunCycle reading from it ends
// with a SessionError.
func (m *ConnectionManager) Close() error {
	return m.closeSession()
}

func (m *ConnectionManager) closeSession() error {
	m.mu.Lock()
	sess := m.session
	m.session = nil
	m.mu.Unlock()

	if sess == nil {
		return nil
	}
	return sess.Close()
}

// release closes sess and clears it if it is still the live session.
func (m *ConnectionManager) release(sess *Session) {
	m.mu.Lock()
	if m.session == sess {
		m.session = nil
	}
	m.mu.Unlock()

	if err := sess.Close(); err != nil {
		m.logger.Debug("session close", slog.String("session_id", sess.ID()), slog.Any("error", err))
	}
}

// RunCycle connects and reads until the session ends. Every decoded text
// frame is passed to deliver in arrival order. A frame that fails to decode
// is reported and skipped. Close and binary frames end the cycle with a nil
// Err; read failures end it with a *SessionError.
func (m *ConnectionManager) RunCycle(ctx context.Context, deliver func(context.Context, Event)) CycleResult {
	var res CycleResult

	sess, err := m.Connect(ctx)
	if err != nil {
		m.setState(StateFailed)
		res.Err = err
		return res
	}
	defer m.release(sess)

	res.SessionID = sess.ID()
	logger := m.logger.With(slog.String("session_id", sess.ID()))
	logger.Info("session opened")
	m.setState(StateStreaming)

	for msg := range sess.Messages(ctx) {
		if m.cfg.OnReceive != nil {
			m.cfg.OnReceive(msg)
		}

		switch msg.Kind {
		case MessageText:
			ev, err := DecodeEvent(msg.Data)
			if err != nil {
				res.DecodeErrors++
				m.report(&DecodeError{SessionID: sess.ID(), Payload: msg.Data, Err: err})
				continue
			}
			logger.Debug("received event", slog.String("message_type", ev.MessageType()))
			res.Delivered++
			deliver(ctx, ev)

		case MessageBinary:
			logger.Info("session ended by binary frame", slog.Int("bytes", len(msg.Data)))
			m.setState(StateClosed)
			return res

		case MessageClose:
			res.CloseCode = msg.CloseCode
			logger.Info("session closed by peer",
				slog.Int("code", msg.CloseCode),
				slog.String("reason", msg.CloseReason),
			)
			m.setState(StateClosed)
			return res

		case MessageError:
			res.Err = &SessionError{Op: "read", SessionID: sess.ID(), Err: msg.Err}
			logger.Info("session failed", slog.Any("error", msg.Err))
			m.setState(StateFailed)
			return res
		}
	}

	m.setState(StateClosed)
	return res
}

// Loop runs cycles until ctx ends. With reconnect false it runs exactly one
// cycle and returns that cycle's error. Otherwise cycle errors are reported
// and the next cycle starts after the backoff delay.
func (m *ConnectionManager) Loop(ctx context.Context, reconnect bool, deliver func(context.Context, Event)) error {
	defer m.setState(StateStopped)

	delay := m.cfg.Backoff.Floor
	failures := 0
	for {
		res := m.RunCycle(ctx, deliver)
		if ctx.Err() != nil {
			return context.Cause(ctx)
		}
		if !reconnect {
			return res.Err
		}

		if res.Err != nil {
			m.report(res.Err)
		}
		if res.Healthy() {
			failures = 0
		} else {
			failures++
		}

		wait, next := m.cfg.Backoff.Next(delay, res.Healthy())
		m.logger.Info("reconnecting",
			slog.Duration("delay", wait),
			slog.Int("failures", failures),
		)
		if err := m.wait(ctx, wait); err != nil {
			return context.Cause(ctx)
		}
		delay = next
	}
}

func (m *ConnectionManager) report(err error) {
	m.logger.Warn("recovered error", slog.Any("error", err))
	if m.cfg.OnError != nil {
		m.cfg.OnError(err)
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
