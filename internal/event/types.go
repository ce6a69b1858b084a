package event

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Event is implemented by every decoded gateway event.
type Event interface {
	// Path returns the dotted classification path of the event's shape.
	Path() string
}

// EventBase carries the fields shared by every resolved event.
type EventBase struct {
	SelfID    string `json:"self_id"`
	PostType  string `json:"post_type"`
	Time      int64  `json:"time,omitempty"`
	MessageID string `json:"message_id,omitempty"`
}

// MetaEvent reports connection lifecycle and heartbeat acknowledgments.
type MetaEvent struct {
	EventBase
	MetaEventType string `json:"meta_event_type"`
	SubType       string `json:"sub_type,omitempty"`
	SessionID     string `json:"session_id,omitempty"`
}

func (e *MetaEvent) Path() string {
	path := "meta_event"
	if e.MetaEventType != "" {
		path += "." + e.MetaEventType
	}
	if e.SubType != "" {
		path += "." + e.SubType
	}
	return path
}

// MessageEvent is the base shape for chat messages.
type MessageEvent struct {
	EventBase
	MessageType string         `json:"message_type"`
	SubType     string         `json:"sub_type"`
	GroupID     string         `json:"group_id,omitempty"`
	UserID      string         `json:"user_id"`
	Content     string         `json:"content"`
	Detail      map[string]any `json:"event,omitempty"`
}

func (e *MessageEvent) Path() string { return "message" }

func (e *MessageEvent) validate() error {
	if e.MessageType == "" {
		return errors.New("missing message_type")
	}
	if e.SubType == "" {
		return errors.New("missing sub_type")
	}
	if e.UserID == "" {
		return errors.New("missing user_id")
	}
	return nil
}

// PrivateMessageEvent is a direct message to the bot.
type PrivateMessageEvent struct {
	MessageEvent
}

func (e *PrivateMessageEvent) Path() string { return "message.private" }

func (e *PrivateMessageEvent) validate() error {
	if err := e.MessageEvent.validate(); err != nil {
		return err
	}
	if e.MessageType != "private" {
		return fmt.Errorf("message_type %q is not private", e.MessageType)
	}
	return nil
}

// ChannelMessageEvent is a message in a server channel.
type ChannelMessageEvent struct {
	MessageEvent
}

func (e *ChannelMessageEvent) Path() string { return "message.group" }

func (e *ChannelMessageEvent) validate() error {
	if err := e.MessageEvent.validate(); err != nil {
		return err
	}
	if e.MessageType != "group" {
		return fmt.Errorf("message_type %q is not group", e.MessageType)
	}
	return nil
}

// NoticeEvent is a system notice (reactions, channel updates, member
// changes). Message holds the templated content as an opaque value.
type NoticeEvent struct {
	EventBase
	NoticeType string         `json:"notice_type"`
	GroupID    string         `json:"group_id,omitempty"`
	UserID     string         `json:"user_id"`
	Message    any            `json:"message,omitempty"`
	Extra      map[string]any `json:"extra,omitempty"`
}

func (e *NoticeEvent) Path() string { return "notice" }

func (e *NoticeEvent) validate() error {
	if e.NoticeType == "" {
		return errors.New("missing notice_type")
	}
	return nil
}

// RawEvent is the minimal fallback shape, built from the original envelope
// when no registered model accepts the payload.
type RawEvent struct {
	Signal int            `json:"s"`
	SN     int64          `json:"sn,omitempty"`
	Data   map[string]any `json:"d"`
}

func (e *RawEvent) Path() string { return "" }

// MessageSegment is one opaque unit of templated message content.
type MessageSegment struct {
	Type    string `json:"type"`
	Content string `json:"content"`
}

// Templater builds an opaque message value from plain text. It stands in for
// the message-formatting layer, which owns richer segment kinds.
type Templater interface {
	FromText(text string) any
}

// textTemplater is the default Templater: a single plain-text segment.
type textTemplater struct{}

func (textTemplater) FromText(text string) any {
	return []MessageSegment{{Type: "text", Content: text}}
}

// decodeInto maps a normalized payload onto a typed shape via JSON.
func decodeInto(data map[string]any, v any) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("decode payload: %w", err)
	}
	return nil
}
