package event

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/zhixinliu/kook-bridge/internal/protocol"
)

// Resolver maps decoded EVENT payloads onto typed events.
type Resolver struct {
	registry  *Registry
	templater Templater
	logger    *slog.Logger
}

// NewResolver creates a resolver over the given registry. A nil templater
// falls back to plain-text segments.
func NewResolver(registry *Registry, templater Templater, logger *slog.Logger) *Resolver {
	if templater == nil {
		templater = textTemplater{}
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Resolver{
		registry:  registry,
		templater: templater,
		logger:    logger,
	}
}

// MetaConnect builds the lifecycle meta event for a successful handshake.
func (r *Resolver) MetaConnect(payload map[string]any) *MetaEvent {
	sessionID, _ := payload["session_id"].(string)
	return &MetaEvent{
		EventBase:     EventBase{PostType: "meta_event"},
		MetaEventType: "lifecycle",
		SubType:       "connect",
		SessionID:     sessionID,
	}
}

// MetaHeartbeat builds the heartbeat-acknowledgment meta event for a PONG.
func (r *Resolver) MetaHeartbeat() *MetaEvent {
	return &MetaEvent{
		EventBase:     EventBase{PostType: "meta_event"},
		MetaEventType: "heartbeat",
	}
}

// Resolve normalizes an EVENT frame's payload, looks up candidate models for
// its dotted path, and returns the first shape that parses. When every
// candidate rejects the payload (or none is registered) it falls back to the
// minimal raw shape. A returned error means the frame is undecodable and
// must be dropped; it never ends the connection.
func (r *Resolver) Resolve(frame protocol.Frame, selfID string) (Event, error) {
	payload := frame.Payload

	data := make(map[string]any, len(payload)+8)
	for k, v := range payload {
		data[k] = v
	}

	extra, _ := payload["extra"].(map[string]any)

	data["self_id"] = selfID
	data["group_id"] = payload["target_id"]
	data["time"] = payload["msg_timestamp"]

	userID, _ := payload["author_id"].(string)
	if userID == "1" {
		userID = "SYSTEM"
	}
	data["user_id"] = userID

	typeCode, _ := intField(payload["type"])
	if typeCode == sysEventType {
		data["post_type"] = "notice"

		var noticeType string
		if extra != nil {
			noticeType, _ = extra["type"].(string)
		}
		if noticeType == "" {
			return nil, fmt.Errorf("system notice without extra.type")
		}
		data["notice_type"] = noticeType

		content, _ := payload["content"].(string)
		data["message"] = r.templater.FromText(content)
	} else {
		data["post_type"] = "message"

		code, ok := 0, false
		if extra != nil {
			code, ok = intField(extra["type"])
		}
		if !ok {
			return nil, fmt.Errorf("message without numeric extra.type")
		}
		subType, ok := subTypeName(code)
		if !ok {
			return nil, fmt.Errorf("unknown message sub-type %d", code)
		}
		data["sub_type"] = subType

		channelType, _ := payload["channel_type"].(string)
		if channelType == "" {
			return nil, fmt.Errorf("message without channel_type")
		}
		messageType := strings.ToLower(channelType)
		if messageType == "person" {
			messageType = "private"
		}
		data["message_type"] = messageType

		// The nested event field is the extra object enriched with the
		// raw content.
		detail := make(map[string]any, len(extra)+1)
		for k, v := range extra {
			detail[k] = v
		}
		detail["content"] = payload["content"]
		data["event"] = detail
	}

	data["message_id"] = payload["msg_id"]

	path := dottedPath(data)
	for _, m := range r.registry.Lookup(path) {
		ev, err := m.Parse(data)
		if err != nil {
			r.logger.Debug("event model rejected payload",
				"model", m.Path,
				"path", path,
				"error", err,
			)
			continue
		}
		return ev, nil
	}

	return &RawEvent{Signal: int(frame.Signal), SN: frame.SN, Data: payload}, nil
}

// dottedPath builds post_type[.detail_type][.sub_type] from a normalized
// payload; the detail type lives under the "<post_type>_type" key.
func dottedPath(data map[string]any) string {
	postType, _ := data["post_type"].(string)
	path := postType
	if detail, _ := data[postType+"_type"].(string); detail != "" {
		path += "." + detail
	}
	if subType, _ := data["sub_type"].(string); subType != "" {
		path += "." + subType
	}
	return path
}

// intField extracts an integer from a decoded JSON value.
func intField(v any) (int, bool) {
	switch n := v.(type) {
	case float64:
		return int(n), true
	case int:
		return n, true
	case int64:
		return int(n), true
	}
	return 0, false
}
