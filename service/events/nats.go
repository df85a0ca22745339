package events

import (
	"encoding/json"
	"time"

	"StayChat/logger"
	"StayChat/tools/errs"

	"github.com/nats-io/nats.go"
)

// 网关投递的每个事件同时镜像到平台总线，供报表/通知等下游服务消费。
// 总线不参与用户投递，挂了也不影响网关。

const subjectPrefix = "chat.events."

type Publisher struct {
	nc *nats.Conn
}

// Connect dials the platform NATS. A failed dial is reported to the
// caller; the gateway is expected to keep running without the bridge.
func Connect(url string) (*Publisher, error) {
	nc, err := nats.Connect(url,
		nats.Name("staychat-gateway"),
		nats.Timeout(3*time.Second),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return nil, errs.WrapMsg(err, "nats connect", "url", url)
	}
	return &Publisher{nc: nc}, nil
}

type busEvent struct {
	Event  string          `json:"event"`
	Target string          `json:"target"`
	TS     int64           `json:"ts"`
	Data   json.RawMessage `json:"data"`
}

// PublishEvent mirrors one delivered gateway event onto the bus.
// Safe on a nil receiver so callers don't need a bridge-configured check.
func (p *Publisher) PublishEvent(event, targetUserID string, payload []byte) error {
	if p == nil || p.nc == nil {
		return nil
	}
	body, err := json.Marshal(busEvent{
		Event:  event,
		Target: targetUserID,
		TS:     time.Now().UnixMilli(),
		Data:   payload,
	})
	if err != nil {
		return errs.WrapMsg(err, "marshal bus event", "event", event)
	}
	return p.nc.Publish(subjectPrefix+event, body)
}

func (p *Publisher) Close() {
	if p == nil || p.nc == nil {
		return
	}
	if err := p.nc.Drain(); err != nil {
		logger.Warnf("[events] drain: %v", err)
	}
}
