package gateway

import (
	"context"
	"io"
	"net"
	"net/http"
	"time"

	"StayChat/logger"
	"StayChat/tools/errs"
	"StayChat/tools/safe"
	"StayChat/tools/security"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

// ---- 常量参数（建议值） ----
const (
	readChunkSize  = 8 * 1024  // 帧重组缓冲块
	maxMessageSize = 64 * 1024 // 单条逻辑消息上限

	pingInterval = 25 * time.Second
	pongWait     = 75 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  readChunkSize,
	WriteBufferSize: readChunkSize,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// HandleWS 是聊天升级路径的入口：先鉴权后升级。
// token 缺失/无效 => 401（不升级）；token 合法但 sub 不可用 => 400。
func (s *Server) HandleWS(c *gin.Context) {
	token := c.Query("access_token")
	if token == "" {
		token = c.Query("token")
	}
	if token == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, errs.ErrTokenMissing)
		return
	}

	claims, err := security.Verify(s.opts.JWT, token)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, errs.ErrTokenInvalid.WithDetail(err.Error()))
		return
	}

	userID, err := claims.UserID()
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, errs.ErrTokenSubject.WithDetail(err.Error()))
		return
	}

	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// 常见：非 WebSocket 请求/握手失败
		logger.Warnf("[ws] upgrade failed user=%s err=%v", userID, err)
		return
	}

	conn := s.reg.Add(userID, ws)
	logger.Infof("[ws] connected user=%s conn=%s remote=%s", userID, conn.ID, ws.RemoteAddr())

	s.readLoop(conn)
}

// readLoop 每连接一个。只在 Close 帧、传输错误或停机时退出；
// 单条消息的任何失败都消化在循环内。
func (s *Server) readLoop(conn *Conn) {
	ws := conn.ws
	ws.SetReadLimit(maxMessageSize)
	_ = ws.SetReadDeadline(time.Now().Add(pongWait))
	ws.SetPongHandler(func(string) error {
		return ws.SetReadDeadline(time.Now().Add(pongWait))
	})

	stopPing := make(chan struct{})
	safe.SafeGo(func() { s.pingLoop(conn, stopPing) })

	defer func() {
		close(stopPing)
		s.reg.Remove(conn.UserID, conn.ID)
		conn.CloseQuiet()
		logger.Infof("[ws] disconnected user=%s conn=%s", conn.UserID, conn.ID)
	}()

	for {
		mt, rd, rerr := ws.NextReader()
		if rerr != nil {
			if websocket.IsCloseError(rerr,
				websocket.CloseNormalClosure,
				websocket.CloseGoingAway,
				websocket.CloseNoStatusReceived,
			) {
				logger.Infof("[ws] peer closed user=%s conn=%s", conn.UserID, conn.ID)
			} else if ne, ok := rerr.(net.Error); ok && ne.Timeout() {
				logger.Warnf("[ws] read timeout user=%s conn=%s err=%v", conn.UserID, conn.ID, rerr)
			} else {
				logger.Warnf("[ws] read err user=%s conn=%s err=%v", conn.UserID, conn.ID, rerr)
			}
			return
		}

		if mt != websocket.TextMessage {
			// 二进制帧不在协议内，忽略
			continue
		}

		data, rerr := readMessage(rd)
		if rerr != nil {
			// 读半截失败是传输层问题，按断开处理
			logger.Warnf("[ws] reassemble err user=%s conn=%s err=%v", conn.UserID, conn.ID, rerr)
			return
		}

		env, perr := ParseEnvelope(data)
		if perr != nil {
			// 坏 JSON 不断连；只打印简短样本
			sample := data
			if len(sample) > 256 {
				sample = sample[:256]
			}
			logger.Warnf("[ws] bad envelope user=%s err=%v sample=%q", conn.UserID, perr, sample)
			continue
		}

		if _, known := env.Kind(); !known {
			logger.Warnf("[ws] unknown type user=%s type=%q", conn.UserID, env.Type)
			continue
		}
		if env.Data == nil {
			logger.Warnf("[ws] missing data user=%s type=%s", conn.UserID, env.Type)
			continue
		}

		if herr := s.disp.Dispatch(context.Background(), conn, env); herr != nil {
			logger.Errorf("[ws] handle failed user=%s type=%s err=%v", conn.UserID, env.Type, herr)
		}
	}
}

// readMessage 以 8KB 块把分片累积成一条完整逻辑消息。
// 上限由 SetReadLimit 兜底。
func readMessage(r io.Reader) ([]byte, error) {
	buf := make([]byte, 0, readChunkSize)
	chunk := make([]byte, readChunkSize)
	for {
		n, err := r.Read(chunk)
		buf = append(buf, chunk[:n]...)
		if err == io.EOF {
			return buf, nil
		}
		if err != nil {
			return nil, err
		}
	}
}

func (s *Server) pingLoop(conn *Conn, stop <-chan struct{}) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			if err := conn.writeControl(websocket.PingMessage, []byte("ping")); err != nil {
				logger.Warnf("[ws] ping err user=%s conn=%s err=%v", conn.UserID, conn.ID, err)
				conn.CloseQuiet() // 读循环随即退出并摘除
				return
			}
		}
	}
}
