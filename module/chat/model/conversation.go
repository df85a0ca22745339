package model

import (
	"time"
)

// 会话类型（1=订单前咨询，2=订单内沟通，3=系统通知）
const (
	ConversationTypeInquiry = 1
	ConversationTypeBooking = 2
	ConversationTypeSystem  = 3
)

// Conversation 表示一条房源会话（房客 <-> 房东），挂在某个房源/订单下
type Conversation struct {
	ConversationID   string `bson:"conversation_id"`   // 会话ID（规则：<property_id>:<guest_id>，创建时拼接生成）
	ConversationType int32  `bson:"conversation_type"` // 会话类型
	PropertyID       string `bson:"property_id"`       // 房源ID
	BookingID        string `bson:"booking_id,omitempty"` // 订单ID（订单内沟通才有）

	GuestID string `bson:"guest_id"` // 房客ID
	HostID  string `bson:"host_id"`  // 房东ID
	// 参与者全集（含 guest/host 以及 co-host），投递时以此为准
	ParticipantIDs []string `bson:"participant_ids"`

	IsArchived bool   `bson:"is_archived"` // 是否归档（归档会话不再接收实时事件之外的处理）
	Ex         string `bson:"ex"`          // 预留扩展字段(JSON)

	CreateTime time.Time `bson:"create_time"`
	UpdateTime time.Time `bson:"update_time"`
}

func (*Conversation) TableName() string {
	return "conversation"
}

// Participants returns the full participant set; older documents written
// before co-host support may carry only guest_id/host_id.
func (c *Conversation) Participants() []string {
	if len(c.ParticipantIDs) > 0 {
		return c.ParticipantIDs
	}
	out := make([]string, 0, 2)
	if c.GuestID != "" {
		out = append(out, c.GuestID)
	}
	if c.HostID != "" {
		out = append(out, c.HostID)
	}
	return out
}
