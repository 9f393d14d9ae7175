package protocol

import (
	"errors"
	"testing"
)

func TestParseClientMessageControl(t *testing.T) {
	raw := []byte(`{"type":"client_control","action":"mark_read","notice_id":"n1"}`)
	msg, err := ParseClientMessage(raw)
	if err != nil {
		t.Fatalf("ParseClientMessage() error = %v", err)
	}

	control, ok := msg.(ClientControl)
	if !ok {
		t.Fatalf("message type = %T, want ClientControl", msg)
	}
	if control.Action != ActionMarkRead || control.NoticeID != "n1" {
		t.Fatalf("unexpected client control: %+v", control)
	}
}

func TestParseClientMessageRemoveNeedsNoticeID(t *testing.T) {
	if _, err := ParseClientMessage([]byte(`{"type":"client_control","action":"remove"}`)); err == nil {
		t.Fatalf("ParseClientMessage(remove without id) error = nil, want error")
	}
	msg, err := ParseClientMessage([]byte(`{"type":"client_control","action":"remove","notice_id":"n2"}`))
	if err != nil {
		t.Fatalf("ParseClientMessage() error = %v", err)
	}
	if control := msg.(ClientControl); control.Action != ActionRemove || control.NoticeID != "n2" {
		t.Fatalf("unexpected client control: %+v", control)
	}
}

func TestParseClientMessageRejectsUnknownType(t *testing.T) {
	_, err := ParseClientMessage([]byte(`{"type":"wat"}`))
	if !errors.Is(err, ErrUnsupportedType) {
		t.Fatalf("error = %v, want ErrUnsupportedType", err)
	}
}

func TestParseClientMessageRejectsBadAction(t *testing.T) {
	if _, err := ParseClientMessage([]byte(`{"type":"client_control","action":"explode"}`)); err == nil {
		t.Fatalf("ParseClientMessage(bad action) error = nil, want error")
	}
	if _, err := ParseClientMessage([]byte(`not json`)); err == nil {
		t.Fatalf("ParseClientMessage(garbage) error = nil, want error")
	}
}
