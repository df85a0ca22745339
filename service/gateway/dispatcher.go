package gateway

import (
	"context"

	"StayChat/tools/errs"
	"StayChat/tools/safe"
)

type Handler interface {
	Type() EventType
	Handle(ctx context.Context, sender *Conn, data map[string]any) error
}

type Dispatcher struct {
	handlers map[EventType]Handler
}

func NewDispatcher() *Dispatcher {
	return &Dispatcher{handlers: make(map[EventType]Handler)}
}

func (d *Dispatcher) Register(h Handler) { d.handlers[h.Type()] = h }

// Dispatch runs the handler for one message. A handler panic is turned
// into an error here so it can never take the receive loop down.
func (d *Dispatcher) Dispatch(ctx context.Context, sender *Conn, env *Envelope) (err error) {
	h, ok := d.handlers[EventType(env.Type)]
	if !ok {
		return errs.New("no handler for type", "type", env.Type)
	}
	defer safe.Recover(&err)
	return h.Handle(ctx, sender, env.Data)
}
