package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"StayChat/global"
	"StayChat/logger"
	"StayChat/module/chat/store"
	"StayChat/service/gateway"
	"StayChat/service/gateway/handlers"
	"StayChat/tools/security"

	"github.com/gin-gonic/gin"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	global.ConfigIds()
	global.ConfigRedis()
	if err := global.ConfigMgo(ctx); err != nil {
		logger.Errorf("[main] mongo init failed: %v", err)
		os.Exit(1)
	}
	bus := global.ConfigNats()

	// 1) Prepare parameters
	cfg := global.MessageGatewayConfig
	if v := os.Getenv("GATEWAY_ID"); v != "" {
		cfg.NodeID = v
	}
	if v := os.Getenv("GATEWAY_PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			cfg.Port = p
		}
	}

	// 2) Create gateway instance
	reg := gateway.NewRegistry()
	sender := gateway.NewSender(reg, bus)
	srv := gateway.NewServer(gateway.Options{
		NodeID: cfg.NodeID,
		JWT:    security.DefaultOptions(global.GetJwtSecret()),
	}, reg, sender)

	// 3) Wire handlers
	hctx := &handlers.Context{
		Delivery: srv.Delivery(),
		Scopes:   store.NewMongoFactory(),
		Roster:   reg,
	}
	srv.Register(handlers.NewTypingHandler(hctx))
	srv.Register(handlers.NewPresenceHandler(hctx))
	srv.Register(handlers.NewMarkAsReadHandler(hctx))

	// 4) HTTP surface: 一条升级路径 + 健康检查，其余请求不经过网关
	r := gin.Default()
	r.GET(cfg.WSPath, srv.HandleWS)
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "node": cfg.NodeID, "conns": reg.Len()})
	})

	httpSrv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: r,
	}

	go func() {
		logger.Infof("[main] gateway %s listening on :%d path=%s", cfg.NodeID, cfg.Port, cfg.WSPath)
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Errorf("[main] http server: %v", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Infof("[main] shutting down")

	srv.Close()
	_ = httpSrv.Shutdown(context.Background())
	bus.Close()
	logger.Sync()
}
