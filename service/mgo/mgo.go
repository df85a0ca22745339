package mgo

import (
	"context"
	"sync"
	"time"

	"StayChat/logger"
	"StayChat/tools/errs"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Config represents the MongoDB configuration.
type Config struct {
	Uri         string
	Database    string
	Username    string
	Password    string
	AuthSource  string
	MaxPoolSize int
	MaxRetry    int // 连接重试次数（<=0 按 1 次处理）
}

type Manager struct {
	mu     sync.RWMutex
	client *mongo.Client
	db     *mongo.Database
}

var globalMgr Manager

// 将 Config 应用到 ClientOptions
func applyConfigToOptions(cfg *Config) (*options.ClientOptions, error) {
	if cfg.Uri == "" {
		return nil, errs.New("mongo uri is required")
	}
	opts := options.Client().ApplyURI(cfg.Uri)

	if cfg.MaxPoolSize > 0 {
		opts.SetMaxPoolSize(uint64(cfg.MaxPoolSize))
	}

	// 认证：若单独给了用户名/密码/来源，以代码优先覆盖 URI 中的认证（如有）
	if cfg.Username != "" {
		cred := options.Credential{
			Username:   cfg.Username,
			Password:   cfg.Password,
			AuthSource: cfg.AuthSource,
		}
		opts.SetAuth(cred)
	}
	return opts, nil
}

// Init 连接并 ping，带指数退避重试；成功后全局可用。
func Init(ctx context.Context, cfg *Config) error {
	opts, err := applyConfigToOptions(cfg)
	if err != nil {
		return err
	}

	retry := cfg.MaxRetry
	if retry <= 0 {
		retry = 1
	}

	backoff := 200 * time.Millisecond
	const maxBackoff = 5 * time.Second

	var lastErr error
	for i := 0; i < retry; i++ {
		cctx, cancel := context.WithTimeout(ctx, 10*time.Second)
		cli, err := mongo.Connect(cctx, opts)
		if err == nil {
			err = cli.Ping(cctx, nil)
		}
		cancel()

		if err == nil {
			globalMgr.mu.Lock()
			globalMgr.client = cli
			globalMgr.db = cli.Database(cfg.Database)
			globalMgr.mu.Unlock()
			logger.Infof("[mgo] connected database=%s", cfg.Database)
			return nil
		}
		lastErr = err
		logger.Warnf("[mgo] connect attempt %d/%d failed: %v", i+1, retry, err)

		timer := time.NewTimer(backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
		if backoff < maxBackoff {
			backoff *= 2
		}
	}
	return errs.WrapMsg(lastErr, "mongo connect", "uri", cfg.Uri)
}

// GetDB 获取数据库句柄；mongo 是网关的硬依赖，未初始化直接 panic
func GetDB() *mongo.Database {
	globalMgr.mu.RLock()
	defer globalMgr.mu.RUnlock()
	if globalMgr.db == nil {
		panic("mongo not initialized, call mgo.Init first")
	}
	return globalMgr.db
}

func Close(ctx context.Context) error {
	globalMgr.mu.Lock()
	defer globalMgr.mu.Unlock()
	if globalMgr.client == nil {
		return nil
	}
	err := globalMgr.client.Disconnect(ctx)
	globalMgr.client = nil
	globalMgr.db = nil
	return err
}
