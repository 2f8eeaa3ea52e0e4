package protocol

import (
	"errors"
	"testing"
)

func TestParseClientMessage(t *testing.T) {
	raw := []byte(`{"type":"client_message","user_id":"u1","display_name":"Ada","text":"!chat hi"}`)
	msg, err := ParseClientMessage(raw)
	if err != nil {
		t.Fatalf("ParseClientMessage() error = %v", err)
	}
	if msg.UserID != "u1" || msg.DisplayName != "Ada" || msg.Text != "!chat hi" {
		t.Fatalf("unexpected message: %+v", msg)
	}
}

func TestParseClientMessageDefaultsDisplayName(t *testing.T) {
	raw := []byte(`{"type":"client_message","user_id":"u1","text":"hello"}`)
	msg, err := ParseClientMessage(raw)
	if err != nil {
		t.Fatalf("ParseClientMessage() error = %v", err)
	}
	if msg.DisplayName != "u1" {
		t.Fatalf("DisplayName = %q, want fallback to user_id", msg.DisplayName)
	}
}

func TestParseClientMessageRejectsMissingUser(t *testing.T) {
	raw := []byte(`{"type":"client_message","text":"hello"}`)
	if _, err := ParseClientMessage(raw); err == nil {
		t.Fatalf("ParseClientMessage() should reject missing user_id")
	}
}

func TestParseClientMessageUnsupportedType(t *testing.T) {
	raw := []byte(`{"type":"assistant_reply","text":"nope"}`)
	_, err := ParseClientMessage(raw)
	if !errors.Is(err, ErrUnsupportedType) {
		t.Fatalf("ParseClientMessage() error = %v, want ErrUnsupportedType", err)
	}
}
