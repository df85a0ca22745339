package gateway

import (
	"encoding/json"
	"fmt"
)

// EventType 是入站信封的类型判别字段。闭合集合：已知三种 + Unknown，
// 不在集合内的类型对前向兼容而言只是忽略，不是错误。
type EventType string

const (
	EventTyping         EventType = "Typing"
	EventUpdatePresence EventType = "UpdatePresence"
	EventMarkAsRead     EventType = "MarkAsRead"
	EventUnknown        EventType = ""
)

// 出站事件名
const (
	OutUserTyping           = "UserTyping"
	OutUserPresence         = "UserPresence"
	OutMessageStatusUpdated = "MessageStatusUpdated"
)

// Envelope 是一条入站逻辑消息的外层：类型判别 + 动态负载。
// Data 保持原始 map，由各 handler 用 tools/decode 解到自己的结构。
type Envelope struct {
	Type string         `json:"type"`
	Data map[string]any `json:"data"`
}

func ParseEnvelope(raw []byte) (*Envelope, error) {
	env := &Envelope{}
	if err := json.Unmarshal(raw, env); err != nil {
		return nil, fmt.Errorf("unmarshal envelope failed: %w", err)
	}
	return env, nil
}

// Kind maps the wire discriminator onto the closed union.
func (e *Envelope) Kind() (EventType, bool) {
	switch EventType(e.Type) {
	case EventTyping, EventUpdatePresence, EventMarkAsRead:
		return EventType(e.Type), true
	default:
		return EventUnknown, false
	}
}
