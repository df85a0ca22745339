package handlers

import (
	"context"

	"StayChat/logger"
	"StayChat/service/gateway"
	"StayChat/tools/decode"
	"StayChat/tools/errs"
)

type TypingPayload struct {
	ConversationID string `json:"conversationId"`
	IsTyping       bool   `json:"isTyping"`
}

type TypingHandler struct{ ctx *Context }

func NewTypingHandler(ctx *Context) gateway.Handler { return &TypingHandler{ctx: ctx} }

func (h *TypingHandler) Type() gateway.EventType { return gateway.EventTyping }

// Handle 把输入状态转给会话内除发送者之外的所有参与者。
// 会话不存在只记日志，不算错误。
func (h *TypingHandler) Handle(ctx context.Context, sender *gateway.Conn, data map[string]any) error {
	p, err := decode.DecodeMap[TypingPayload](data)
	if err != nil {
		return errs.ErrPayloadDecode.WrapMsg("typing", "err", err)
	}
	if p.ConversationID == "" {
		return errs.ErrArgs.WrapMsg("conversationId empty")
	}

	sc, err := h.ctx.Scopes.Open(ctx)
	if err != nil {
		return err
	}
	defer sc.Close(ctx)

	conv, err := sc.Conversations().Find(ctx, p.ConversationID)
	if err != nil {
		return err
	}
	if conv == nil {
		logger.Warnf("[typing] conversation not found id=%s user=%s", p.ConversationID, sender.UserID)
		return nil
	}

	for _, uid := range conv.Participants() {
		if uid == sender.UserID {
			continue // 发送者不回显
		}
		h.ctx.Delivery.SendEvent(uid, gateway.OutUserTyping, map[string]any{
			"conversationId": p.ConversationID,
			"userId":         sender.UserID,
			"isTyping":       p.IsTyping,
		})
	}
	return nil
}
