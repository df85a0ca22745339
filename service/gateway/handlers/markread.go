package handlers

import (
	"context"
	"strings"
	"time"

	"StayChat/logger"
	"StayChat/module/chat/model"
	"StayChat/service/gateway"
	"StayChat/service/storage"
	"StayChat/tools/decode"
	"StayChat/tools/errs"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type MarkAsReadPayload struct {
	ConversationID string   `json:"conversationId"`
	MessageIDs     []string `json:"messageIds"`
}

type MarkAsReadHandler struct{ ctx *Context }

func NewMarkAsReadHandler(ctx *Context) gateway.Handler { return &MarkAsReadHandler{ctx: ctx} }

func (h *MarkAsReadHandler) Type() gateway.EventType { return gateway.EventMarkAsRead }

// Handle 逐条把消息置为已读并独立提交，然后只通知消息的原发送者。
// 解析不了的ID静默丢弃；全部丢弃后无事可做，直接返回。
func (h *MarkAsReadHandler) Handle(ctx context.Context, sender *gateway.Conn, data map[string]any) error {
	p, err := decode.DecodeMap[MarkAsReadPayload](data)
	if err != nil {
		return errs.ErrPayloadDecode.WrapMsg("markread", "err", err)
	}
	if p.ConversationID == "" {
		return errs.ErrArgs.WrapMsg("conversationId empty")
	}

	ids := parseMessageIDs(p.MessageIDs)
	if len(ids) == 0 {
		return nil
	}

	now := time.Now().UTC()
	for _, oid := range ids {
		// 单条失败不影响其余消息
		if merr := h.markOne(ctx, sender, oid, now); merr != nil {
			logger.Warnf("[markread] message=%s user=%s err=%v", oid.Hex(), sender.UserID, merr)
		}
	}

	// 未读缓存清零；缓存失败只记日志，不影响已提交的更新
	if cerr := storage.ClearUnread(ctx, p.ConversationID, sender.UserID); cerr != nil {
		logger.Warnf("[markread] clear unread conversation=%s user=%s err=%v", p.ConversationID, sender.UserID, cerr)
	}
	return nil
}

// markOne 一条消息一个独立的持久化 Scope，提交成功才投递回执。
func (h *MarkAsReadHandler) markOne(ctx context.Context, sender *gateway.Conn, oid primitive.ObjectID, now time.Time) error {
	sc, err := h.ctx.Scopes.Open(ctx)
	if err != nil {
		return err
	}
	defer sc.Close(ctx)

	msg, err := sc.Messages().Find(ctx, oid)
	if err != nil {
		return err
	}
	if msg == nil {
		// 不存在：跳过，无错误
		return nil
	}

	if err := sc.Messages().MarkRead(ctx, oid, now); err != nil {
		return err
	}
	if err := sc.Commit(ctx); err != nil {
		return err
	}

	// 只通知原发送者；发起人自己不收回执
	if msg.SenderID != "" && msg.SenderID != sender.UserID {
		h.ctx.Delivery.SendEvent(msg.SenderID, gateway.OutMessageStatusUpdated, map[string]any{
			"messageId":      oid.Hex(),
			"conversationId": msg.ConversationID,
			"status":         model.MsgStatusRead,
		})
	}
	return nil
}

// 保持 set 语义：去重 + 丢弃解析失败的
func parseMessageIDs(raw []string) []primitive.ObjectID {
	seen := make(map[primitive.ObjectID]struct{}, len(raw))
	out := make([]primitive.ObjectID, 0, len(raw))
	for _, s := range raw {
		oid, err := primitive.ObjectIDFromHex(strings.TrimSpace(s))
		if err != nil {
			continue
		}
		if _, dup := seen[oid]; dup {
			continue
		}
		seen[oid] = struct{}{}
		out = append(out, oid)
	}
	return out
}
