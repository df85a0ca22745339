package storage

import (
	"context"

	redismgr "StayChat/service/storage/redis"

	"github.com/pkg/errors"
	goredis "github.com/redis/go-redis/v9"
)

// unread key: im:unread:<conversation>
// hash field 是用户ID，值为该用户在会话内的未读数。
// 计数由 REST 历史服务在写入消息时累加，网关在标记已读时清零。
func unreadKey(conversationID string) string { return "im:unread:" + conversationID }

// ClearUnread resets the reader's unread counter for one conversation.
func ClearUnread(ctx context.Context, conversationID, userID string) error {
	rdb := redismgr.GetRedis()
	if rdb == nil {
		return errors.New("redis not initialized")
	}
	return rdb.HDel(ctx, unreadKey(conversationID), userID).Err()
}

// UnreadCount reads the unread counter; 0 when the field does not exist.
func UnreadCount(ctx context.Context, conversationID, userID string) (int64, error) {
	rdb := redismgr.GetRedis()
	if rdb == nil {
		return 0, errors.New("redis not initialized")
	}
	n, err := rdb.HGet(ctx, unreadKey(conversationID), userID).Int64()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return 0, nil
		}
		return 0, err
	}
	return n, nil
}
