package gateway

import (
	"net"
	"sync"
	"sync/atomic"
	"time"

	"StayChat/tools/errs"
	"StayChat/tools/ids"

	"github.com/gorilla/websocket"
)

const writeWait = 10 * time.Second

// Conn 是一条已登记的 WebSocket 连接。由 Registry 独占持有：
// 握手成功时创建，关闭后不复用，重连一律换新对象。
type Conn struct {
	ID          string
	UserID      string
	ConnectedAt time.Time

	ws     *websocket.Conn
	sendMu sync.Mutex // 同一物理连接的写必须串行
	closed atomic.Bool
}

func newConn(userID string, ws *websocket.Conn) *Conn {
	return &Conn{
		ID:          ids.GenerateString(),
		UserID:      userID,
		ConnectedAt: time.Now(),
		ws:          ws,
	}
}

// WriteText writes one text frame with a deadline. Concurrent callers
// serialize on the send mutex so payloads never interleave.
func (c *Conn) WriteText(data []byte) error {
	if c.Closed() {
		return errs.New("connection closed", "conn_id", c.ID)
	}
	c.sendMu.Lock()
	defer c.sendMu.Unlock()
	if c.ws == nil {
		return errs.New("nil conn")
	}
	if err := c.ws.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return c.ws.WriteMessage(websocket.TextMessage, data)
}

func (c *Conn) writeControl(messageType int, data []byte) error {
	if c.ws == nil {
		return errs.New("nil conn")
	}
	return c.ws.WriteControl(messageType, data, time.Now().Add(writeWait))
}

// CloseQuiet tears down the transport once; repeated calls are no-ops.
func (c *Conn) CloseQuiet() {
	if c.closed.CompareAndSwap(false, true) && c.ws != nil {
		_ = c.ws.Close()
	}
}

// closeGraceful 先发 Close 帧再断开（服务端主动下线用）
func (c *Conn) closeGraceful() {
	if c.ws != nil && !c.Closed() {
		msg := websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutdown")
		_ = c.writeControl(websocket.CloseMessage, msg)
	}
	c.CloseQuiet()
}

func (c *Conn) Closed() bool { return c.closed.Load() }

func (c *Conn) RemoteAddr() net.Addr {
	if c.ws == nil {
		return nil
	}
	return c.ws.RemoteAddr()
}
