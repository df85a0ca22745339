package handlers

import (
	"context"
	"time"

	"StayChat/service/gateway"
	"StayChat/tools/decode"
	"StayChat/tools/errs"
)

type PresencePayload struct {
	Status string `json:"status"`
}

type PresenceHandler struct{ ctx *Context }

func NewPresenceHandler(ctx *Context) gateway.Handler { return &PresenceHandler{ctx: ctx} }

func (h *PresenceHandler) Type() gateway.EventType { return gateway.EventUpdatePresence }

// Handle 向除发送者外的所有在线用户广播状态。纯广播，不落库；
// lastSeen 由服务端取当前时间，不信任客户端。
func (h *PresenceHandler) Handle(_ context.Context, sender *gateway.Conn, data map[string]any) error {
	p, err := decode.DecodeMap[PresencePayload](data)
	if err != nil {
		return errs.ErrPayloadDecode.WrapMsg("presence", "err", err)
	}

	lastSeen := time.Now().UnixMilli()

	// 发送时刻的在线快照；之后上线的用户收不到这条，符合预期
	for _, uid := range h.ctx.Roster.AllConnectedUserIDs() {
		if uid == sender.UserID {
			continue
		}
		h.ctx.Delivery.SendEvent(uid, gateway.OutUserPresence, map[string]any{
			"userId":   sender.UserID,
			"status":   p.Status,
			"lastSeen": lastSeen,
		})
	}
	return nil
}
