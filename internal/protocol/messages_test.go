package protocol

import (
	"errors"
	"strconv"
	"testing"
)

func TestParseClientMessageUserMessage(t *testing.T) {
	raw := []byte(`{"type":"user_message","session_id":"s1","message":"headache since morning","duration":"6 hours","severity":4,"ts_ms":123}`)
	msg, err := ParseClientMessage(raw)
	if err != nil {
		t.Fatalf("ParseClientMessage() error = %v", err)
	}

	um, ok := msg.(UserMessage)
	if !ok {
		t.Fatalf("message type = %T, want UserMessage", msg)
	}
	if um.SessionID != "s1" || um.Message != "headache since morning" {
		t.Fatalf("unexpected user message: %+v", um)
	}
	if um.Severity == nil || *um.Severity != 4 {
		t.Fatalf("severity = %v, want 4", um.Severity)
	}
}

func TestParseClientMessageRejectsUnknownType(t *testing.T) {
	_, err := ParseClientMessage([]byte(`{"type":"wat"}`))
	if !errors.Is(err, ErrUnsupportedType) {
		t.Fatalf("error = %v, want ErrUnsupportedType", err)
	}
}

func TestParseClientMessageControl(t *testing.T) {
	raw := []byte(`{"type":"client_control","session_id":"s1","action":"end_session"}`)
	msg, err := ParseClientMessage(raw)
	if err != nil {
		t.Fatalf("ParseClientMessage() error = %v", err)
	}

	control, ok := msg.(ClientControl)
	if !ok {
		t.Fatalf("message type = %T, want ClientControl", msg)
	}
	if control.SessionID != "s1" || control.Action != "end_session" {
		t.Fatalf("unexpected client control: %+v", control)
	}
}

func TestParseClientMessageRejectsEmptyMessage(t *testing.T) {
	_, err := ParseClientMessage([]byte(`{"type":"user_message","session_id":"s1","message":""}`))
	if err == nil {
		t.Fatalf("expected validation error")
	}
}

func TestParseClientMessageRejectsSeverityOutOfRange(t *testing.T) {
	for _, severity := range []int{0, 11, -3} {
		raw := []byte(`{"type":"user_message","session_id":"s1","message":"pain","severity":` + strconv.Itoa(severity) + `}`)
		if _, err := ParseClientMessage(raw); err == nil {
			t.Fatalf("severity %d accepted, want validation error", severity)
		}
	}
}

func BenchmarkParseClientMessageUserMessage(b *testing.B) {
	raw := []byte(`{"type":"user_message","session_id":"s1","message":"persistent cough and mild fever for two days","severity":3,"ts_ms":123456}`)
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		msg, err := ParseClientMessage(raw)
		if err != nil {
			b.Fatalf("ParseClientMessage() error = %v", err)
		}
		if _, ok := msg.(UserMessage); !ok {
			b.Fatalf("message type = %T, want UserMessage", msg)
		}
	}
}
