package certstream

import (
	"errors"
	"testing"
)

func TestDecodeEvent(t *testing.T) {
	ev, err := DecodeEvent([]byte(`{"message_type":"certificate_update","data":{"cert_index":42}}`))
	if err != nil {
		t.Fatalf("DecodeEvent error: %v", err)
	}

	if ev.MessageType() != TypeCertificateUpdate {
		t.Errorf("MessageType() = %s", ev.MessageType())
	}
	data, ok := ev.Data()
	if !ok {
		t.Fatal("Data() ok = false")
	}
	if data["cert_index"] != float64(42) {
		t.Errorf("cert_index = %v, want 42", data["cert_index"])
	}
}

func TestDecodeEvent_Invalid(t *testing.T) {
	tests := []struct {
		name      string
		payload   string
		notObject bool
	}{
		{"empty", "", false},
		{"whitespace", "   ", false},
		{"truncated", `{"message_type":`, false},
		{"plain text", "hello", false},
		{"array", `[{"message_type":"x"}]`, true},
		{"string", `"heartbeat"`, true},
		{"number", `1`, true},
		{"null", `null`, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev, err := DecodeEvent([]byte(tt.payload))
			if err == nil {
				t.Fatalf("DecodeEvent(%q) = %v, want error", tt.payload, ev)
			}
			if errors.Is(err, ErrNotObject) != tt.notObject {
				t.Errorf("errors.Is(err, ErrNotObject) = %v, want %v (err: %v)", !tt.notObject, tt.notObject, err)
			}
		})
	}
}

func TestDecodeEvent_SurroundingWhitespace(t *testing.T) {
	ev, err := DecodeEvent([]byte("\n  {\"message_type\":\"heartbeat\"}\n"))
	if err != nil {
		t.Fatalf("DecodeEvent error: %v", err)
	}
	if !ev.IsHeartbeat() {
		t.Error("IsHeartbeat() = false")
	}
}

func TestEvent_MessageType(t *testing.T) {
	tests := []struct {
		name  string
		event Event
		want  string
	}{
		{"present", Event{"message_type": "heartbeat"}, "heartbeat"},
		{"absent", Event{"data": map[string]any{}}, ""},
		{"not a string", Event{"message_type": 3.0}, ""},
		{"nil event", nil, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.event.MessageType(); got != tt.want {
				t.Errorf("MessageType() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestEvent_Data_Missing(t *testing.T) {
	if _, ok := (Event{"data": "not an object"}).Data(); ok {
		t.Error("Data() ok = true for non-object data")
	}
	if _, ok := (Event{}).Data(); ok {
		t.Error("Data() ok = true for missing data")
	}
}
