package gateway

import (
	"StayChat/logger"
	"StayChat/tools/security"
)

type Options struct {
	NodeID string
	JWT    security.Options
}

// Server ties the registry, dispatcher and delivery together. Handlers
// are registered by the caller (main), the server itself stays free of
// domain logic.
type Server struct {
	opts   Options
	reg    *Registry
	sender *Sender
	disp   *Dispatcher
}

func NewServer(opts Options, reg *Registry, sender *Sender) *Server {
	return &Server{
		opts:   opts,
		reg:    reg,
		sender: sender,
		disp:   NewDispatcher(),
	}
}

func (s *Server) Registry() *Registry { return s.reg }
func (s *Server) Delivery() Delivery  { return s.sender }

func (s *Server) Register(h Handler) { s.disp.Register(h) }

// Close 服务停机：优雅关闭全部连接
func (s *Server) Close() {
	n := s.reg.Len()
	s.reg.CloseAll()
	logger.Infof("[gateway] closed node=%s conns=%d", s.opts.NodeID, n)
}
