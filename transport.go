package certstream

import (
	"context"
	"errors"
	"net/http"
	"sync"

	"github.com/coder/websocket"
)

// DefaultReadLimit bounds a single inbound frame. Certificate updates
// routinely exceed the websocket library's 32KiB default.
const DefaultReadLimit = 32 * 1024 * 1024

// MessageKind discriminates inbound messages.
type MessageKind int

const (
	MessageText MessageKind = iota + 1
	MessageBinary
	MessageClose
	MessageError
)

func (k MessageKind) String() string {
	switch k {
	case MessageText:
		return "text"
	case MessageBinary:
		return "binary"
	case MessageClose:
		return "close"
	case MessageError:
		return "error"
	default:
		return "unknown"
	}
}

// Message is a single inbound frame. It is consumed immediately and
// never retained by the client.
type Message struct {
	Kind MessageKind
	Data []byte

	// Set for MessageClose.
	CloseCode   int
	CloseReason string

	// Set for MessageError.
	Err error
}

// Transport provides the primitives the client needs from a live
// connection. Receive blocks until the next frame arrives. A peer close is
// reported as a MessageClose message, not as an error.
type Transport interface {
	Receive(ctx context.Context) (Message, error)
	Close() error
}

// DialFunc opens a Transport to endpoint.
type DialFunc func(ctx context.Context, endpoint string) (Transport, error)

// DialOptions configures the WebSocket connection.
type DialOptions struct {
	// HTTPHeader specifies additional HTTP headers to send during handshake.
	HTTPHeader http.Header

	// HTTPClient is the HTTP client used for the handshake.
	// If nil, http.DefaultClient is used.
	HTTPClient *http.Client

	// ReadLimit is the maximum frame size in bytes.
	// Zero means DefaultReadLimit.
	ReadLimit int64
}

// Dial connects to a feed endpoint and returns a Transport.
func Dial(ctx context.Context, url string, opts *DialOptions) (Transport, error) {
	dialOpts := &websocket.DialOptions{}
	readLimit := int64(DefaultReadLimit)
	if opts != nil {
		if opts.HTTPHeader != nil {
			dialOpts.HTTPHeader = opts.HTTPHeader.Clone()
		}
		if opts.HTTPClient != nil {
			dialOpts.HTTPClient = opts.HTTPClient
		}
		if opts.ReadLimit > 0 {
			readLimit = opts.ReadLimit
		}
	}

	conn, _, err := websocket.Dial(ctx, url, dialOpts)
	if err != nil {
		return nil, &ConnectError{URL: url, Err: err}
	}
	conn.SetReadLimit(readLimit)

	return &wsTransport{conn: conn}, nil
}

// dialer adapts Dial to a DialFunc with fixed options.
func dialer(opts *DialOptions) DialFunc {
	return func(ctx context.Context, endpoint string) (Transport, error) {
		return Dial(ctx, endpoint, opts)
	}
}

// wsTransport implements Transport over WebSocket.
type wsTransport struct {
	conn   *websocket.Conn
	mu     sync.Mutex
	closed bool
}

// Receive reads the next frame from the server.
func (t *wsTransport) Receive(ctx context.Context) (Message, error) {
	typ, data, err := t.conn.Read(ctx)
	if err != nil {
		t.mu.Lock()
		closed := t.closed
		t.mu.Unlock()
		if closed {
			return Message{}, ErrClosed
		}

		var closeErr websocket.CloseError
		if errors.As(err, &closeErr) {
			return Message{
				Kind:        MessageClose,
				CloseCode:   int(closeErr.Code),
				CloseReason: closeErr.Reason,
			}, nil
		}
		return Message{}, err
	}

	if typ == websocket.MessageBinary {
		return Message{Kind: MessageBinary, Data: data}, nil
	}
	return Message{Kind: MessageText, Data: data}, nil
}

// Close closes the transport.
func (t *wsTransport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return nil
	}
	t.closed = true

	return t.conn.Close(websocket.StatusNormalClosure, "")
}
