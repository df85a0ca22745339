package store

import (
	"context"
	"time"

	"StayChat/module/chat/model"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// 网关是常驻组件，持久化资源不是：每个入站事件打开一个 Scope，
// 用完即关，网关层不缓存任何 repo 实例。

type ConversationRepo interface {
	// Find returns (nil, nil) when the conversation does not exist.
	Find(ctx context.Context, conversationID string) (*model.Conversation, error)
}

type MessageRepo interface {
	// Find returns (nil, nil) when the message does not exist.
	Find(ctx context.Context, id primitive.ObjectID) (*model.ChatMessage, error)
	MarkRead(ctx context.Context, id primitive.ObjectID, at time.Time) error
}

// Scope is one unit of work. Commit makes the writes durable; Close
// discards anything uncommitted and releases the underlying session.
type Scope interface {
	Conversations() ConversationRepo
	Messages() MessageRepo
	Commit(ctx context.Context) error
	Close(ctx context.Context)
}

type Factory interface {
	Open(ctx context.Context) (Scope, error)
}
