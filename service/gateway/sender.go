package gateway

import (
	"encoding/json"

	"StayChat/logger"
	"StayChat/service/events"
)

// Delivery 把命名事件写给某个用户的全部在线连接。投递是
// fire-and-forget：没有离线队列也没有重试，返回值只是
// “有几条连接真的收到了”，调用方可以无视。
type Delivery interface {
	SendEvent(targetUserID, event string, fields map[string]any) int
}

type Sender struct {
	reg *Registry
	bus *events.Publisher // 可为 nil（平台总线未配置）
}

func NewSender(reg *Registry, bus *events.Publisher) *Sender {
	return &Sender{reg: reg, bus: bus}
}

// SendEvent serializes {event: name, ...fields} once and writes it as a
// single text frame to every live connection of the target user. Zero
// live connections is a silent no-op.
func (s *Sender) SendEvent(targetUserID, event string, fields map[string]any) int {
	payload := make(map[string]any, len(fields)+1)
	for k, v := range fields {
		payload[k] = v
	}
	payload["event"] = event

	data, err := json.Marshal(payload)
	if err != nil {
		logger.Errorf("[sender] marshal event=%s err=%v", event, err)
		return 0
	}

	delivered := 0
	for _, c := range s.reg.ConnectionsFor(targetUserID) {
		if werr := c.WriteText(data); werr != nil {
			logger.Warnf("[sender] write failed user=%s conn=%s err=%v", targetUserID, c.ID, werr)
			// 死连接：关掉让读循环去摘除
			c.CloseQuiet()
			continue
		}
		delivered++
	}

	// 镜像到平台总线（与用户投递无关，失败只记日志）
	if berr := s.bus.PublishEvent(event, targetUserID, data); berr != nil {
		logger.Warnf("[sender] bus mirror failed event=%s err=%v", event, berr)
	}
	return delivered
}
