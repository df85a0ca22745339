package model

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	MsgTableName = "msg" // 集合名
)

// 消息状态流转：sent -> delivered -> read
const (
	MsgStatusSent      = "sent"
	MsgStatusDelivered = "delivered"
	MsgStatusRead      = "read"
)

// 内容类型（1=文本,2=图片,3=预订卡片,4=系统提示）
const (
	ContentTypeText    = 1
	ContentTypeImage   = 2
	ContentTypeBooking = 3
	ContentTypeSystem  = 4
)

// ChatMessage 是一条会话消息的主干数据。写入由 REST 历史服务负责，
// 网关只读取并更新已读状态。
type ChatMessage struct {
	ID             primitive.ObjectID `bson:"_id"`
	ConversationID string             `bson:"conversation_id"`
	SenderID       string             `bson:"sender_id"`       // 发送者ID
	RecipientID    string             `bson:"recipient_id"`    // 单聊对端ID
	ContentType    int32              `bson:"content_type"`    // 业务枚举
	Content        string             `bson:"content"`         // 内容（小体量直接存字符串）
	Status         string             `bson:"status"`          // sent/delivered/read
	SendTime       int64              `bson:"send_time"`       // 发送时间(Unix ms)
	ReadAt         *time.Time         `bson:"read_at,omitempty"` // 已读时间（read 状态才有）
	Ex             string             `bson:"ex"`              // 预留扩展(JSON)
}

func (*ChatMessage) TableName() string { return MsgTableName }
