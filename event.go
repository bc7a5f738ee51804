package certstream

import (
	"bytes"
	"encoding/json"
)

// Message types seen on the feed.
const (
	TypeHeartbeat         = "heartbeat"
	TypeCertificateUpdate = "certificate_update"
)

// Event is a decoded feed message.
type Event map[string]any

// MessageType returns the message_type envelope field, or "" when it is
// absent or not a string.
func (e Event) MessageType() string {
	t, _ := e["message_type"].(string)
	return t
}

// IsHeartbeat reports whether the event is a liveness ping.
func (e Event) IsHeartbeat() bool {
	return e.MessageType() == TypeHeartbeat
}

// Data returns the data object carried by the envelope, if any.
func (e Event) Data() (map[string]any, bool) {
	d, ok := e["data"].(map[string]any)
	return d, ok
}

// DecodeEvent parses a text frame. The payload must be a single JSON object.
func DecodeEvent(payload []byte) (Event, error) {
	trimmed := bytes.TrimSpace(payload)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		if !json.Valid(trimmed) {
			var v any
			return nil, json.Unmarshal(trimmed, &v)
		}
		return nil, ErrNotObject
	}

	var ev Event
	if err := json.Unmarshal(trimmed, &ev); err != nil {
		return nil, err
	}
	return ev, nil
}
