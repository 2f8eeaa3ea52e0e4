// Package protocol defines the websocket envelopes exchanged with chat
// clients.
package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// MessageType identifies websocket payload variants.
type MessageType string

const (
	TypeClientMessage  MessageType = "client_message"
	TypeAssistantReply MessageType = "assistant_reply"
	TypeTypingEvent    MessageType = "typing_event"
	TypeReactionEvent  MessageType = "reaction_event"
	TypeErrorEvent     MessageType = "error_event"
)

var ErrUnsupportedType = errors.New("unsupported message type")

type Envelope struct {
	Type MessageType `json:"type"`
}

// ClientMessage is one inbound chat message with the sender's identity.
type ClientMessage struct {
	Type        MessageType `json:"type"`
	UserID      string      `json:"user_id"`
	DisplayName string      `json:"display_name"`
	Text        string      `json:"text"`
}

// AssistantReply carries the bot's answer to a specific user.
type AssistantReply struct {
	Type   MessageType `json:"type"`
	TurnID string      `json:"turn_id"`
	UserID string      `json:"user_id"`
	Text   string      `json:"text"`
}

// TypingEvent signals that the bot is working on a reply.
type TypingEvent struct {
	Type   MessageType `json:"type"`
	UserID string      `json:"user_id"`
	Active bool        `json:"active"`
}

// ReactionEvent is the marker acknowledging a stored memory command.
type ReactionEvent struct {
	Type   MessageType `json:"type"`
	UserID string      `json:"user_id"`
	Emoji  string      `json:"emoji"`
}

type ErrorEvent struct {
	Type   MessageType `json:"type"`
	Code   string      `json:"code"`
	Detail string      `json:"detail"`
}

// ParseClientMessage decodes and validates one inbound frame.
func ParseClientMessage(raw []byte) (ClientMessage, error) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return ClientMessage{}, fmt.Errorf("invalid envelope: %w", err)
	}

	switch env.Type {
	case TypeClientMessage:
		var msg ClientMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			return ClientMessage{}, err
		}
		if strings.TrimSpace(msg.UserID) == "" {
			return ClientMessage{}, errors.New("invalid client_message: missing user_id")
		}
		if strings.TrimSpace(msg.DisplayName) == "" {
			msg.DisplayName = msg.UserID
		}
		return msg, nil
	default:
		return ClientMessage{}, ErrUnsupportedType
	}
}
