package global

import (
	"context"
	"os"

	"StayChat/logger"
	"StayChat/service/events"
	"StayChat/service/mgo"
	redis "StayChat/service/storage/redis"
	ids "StayChat/tools/ids"
)

// 网关节点配置
type GatewayConfig struct {
	NodeID string
	Port   int
	WSPath string
}

var MessageGatewayConfig = GatewayConfig{
	NodeID: "chat_gw_01",
	Port:   8080,
	WSPath: "/ws/chat", // 唯一的升级路径
}

func GetJwtSecret() []byte {
	if s := os.Getenv("JWT_SECRET"); s != "" {
		return []byte(s)
	}
	return []byte("mN9b1f8zPq+W2xjX/45sKcVd0TfyoG+3Hp5Z8q9Rj1o=")
}

func ConfigIds() {
	ids.SetNodeID(100)
}

func ConfigRedis() {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		addr = "127.0.0.1:6379"
	}
	config := redis.Config{
		Addr: addr, Password: os.Getenv("REDIS_PASSWORD"), DB: 0, PoolSize: 20,
	}
	if err := redis.InitRedis(config); err != nil {
		// 未读缓存是旁路能力，起不来不拦启动
		logger.Warnf("[global] redis init failed: %v", err)
	}
}

func ConfigMgo(ctx context.Context) error {
	uri := os.Getenv("MONGO_URI")
	if uri == "" {
		uri = "mongodb://localhost:27017"
	}
	cfg := &mgo.Config{
		Uri:         uri,
		Database:    "staychat",
		MaxPoolSize: 20,
		Username:    os.Getenv("MONGO_USER"),
		Password:    os.Getenv("MONGO_PASSWORD"),
		MaxRetry:    3,
	}
	return mgo.Init(ctx, cfg)
}

// ConfigNats 连接平台事件总线；连不上返回 nil，网关照常工作。
func ConfigNats() *events.Publisher {
	url := os.Getenv("NATS_URL")
	if url == "" {
		url = "nats://127.0.0.1:4222"
	}
	p, err := events.Connect(url)
	if err != nil {
		logger.Warnf("[global] nats bridge unavailable: %v", err)
		return nil
	}
	return p
}
