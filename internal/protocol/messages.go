package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// MessageType identifies websocket payload variants on the notifications stream.
type MessageType string

const (
	TypeClientControl MessageType = "client_control"
	TypeNotice        MessageType = "notice"
	TypeStatsChanged  MessageType = "stats_changed"
	TypePlaybackState MessageType = "playback_state"
	TypeSystemEvent   MessageType = "system_event"
	TypeErrorEvent    MessageType = "error_event"
)

// Client control actions.
const (
	ActionMarkRead = "mark_read"
	ActionRemove   = "remove"
	ActionClear    = "clear"
	ActionPing     = "ping"
)

var ErrUnsupportedType = errors.New("unsupported message type")

type Envelope struct {
	Type MessageType `json:"type"`
}

type ClientControl struct {
	Type     MessageType `json:"type"`
	Action   string      `json:"action"`
	NoticeID string      `json:"notice_id,omitempty"`
}

type Notice struct {
	Type      MessageType `json:"type"`
	ID        string      `json:"id"`
	Title     string      `json:"title"`
	Message   string      `json:"message"`
	Variant   string      `json:"variant"`
	Read      bool        `json:"read"`
	Timestamp time.Time   `json:"timestamp"`
	Unread    int         `json:"unread"`
}

type StatsChanged struct {
	Type MessageType `json:"type"`
	Kind string      `json:"kind"`
}

type PlaybackState struct {
	Type      MessageType `json:"type"`
	Playing   bool        `json:"playing"`
	SessionID string      `json:"session_id,omitempty"`
	Ref       string      `json:"ref,omitempty"`
	Reason    string      `json:"reason,omitempty"`
}

type SystemEvent struct {
	Type   MessageType `json:"type"`
	Code   string      `json:"code"`
	Detail string      `json:"detail,omitempty"`
}

type ErrorEvent struct {
	Type   MessageType `json:"type"`
	Code   string      `json:"code"`
	Detail string      `json:"detail"`
}

func ParseClientMessage(raw []byte) (any, error) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("invalid envelope: %w", err)
	}

	switch env.Type {
	case TypeClientControl:
		var msg ClientControl
		if err := json.Unmarshal(raw, &msg); err != nil {
			return nil, err
		}
		switch msg.Action {
		case ActionMarkRead, ActionClear, ActionPing:
		case ActionRemove:
			if msg.NoticeID == "" {
				return nil, fmt.Errorf("client_control remove requires notice_id")
			}
		default:
			return nil, fmt.Errorf("invalid client_control action %q", msg.Action)
		}
		return msg, nil
	default:
		return nil, ErrUnsupportedType
	}
}
