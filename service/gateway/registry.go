package gateway

import (
	"hash/fnv"
	"sync"

	"github.com/gorilla/websocket"
)

// Roster is the read-only slice of the registry handlers need for
// broadcast targeting.
type Roster interface {
	AllConnectedUserIDs() []string
}

// 按用户哈希分片，避免一把全局锁把不相关用户的操作串起来。
const shardCount = 16

type regShard struct {
	mu     sync.RWMutex
	byUser map[string]map[string]*Conn // user -> conn_id -> conn
	byConn map[string]*Conn            // conn_id -> conn
}

// Registry 是 user -> 在线连接 的内存目录。一个用户可同时持有多条
// 连接（多端）；连接对象只在这里登记，别处不持有。
type Registry struct {
	shards [shardCount]*regShard
}

func NewRegistry() *Registry {
	r := &Registry{}
	for i := range r.shards {
		r.shards[i] = &regShard{
			byUser: make(map[string]map[string]*Conn),
			byConn: make(map[string]*Conn),
		}
	}
	return r
}

func (r *Registry) shardFor(userID string) *regShard {
	h := fnv.New32a()
	_, _ = h.Write([]byte(userID))
	return r.shards[h.Sum32()%shardCount]
}

// Add registers a fresh connection for the user and returns it.
func (r *Registry) Add(userID string, ws *websocket.Conn) *Conn {
	c := newConn(userID, ws)
	s := r.shardFor(userID)
	s.mu.Lock()
	defer s.mu.Unlock()

	m := s.byUser[userID]
	if m == nil {
		m = make(map[string]*Conn)
		s.byUser[userID] = m
	}
	m[c.ID] = c
	s.byConn[c.ID] = c
	return c
}

// Remove drops exactly that connection; removing an already-removed
// connection is a no-op. Other connections of the same user stay put.
func (r *Registry) Remove(userID, connID string) {
	if userID == "" || connID == "" {
		return
	}
	s := r.shardFor(userID)
	s.mu.Lock()
	defer s.mu.Unlock()

	if m := s.byUser[userID]; m != nil {
		delete(m, connID)
		if len(m) == 0 {
			delete(s.byUser, userID)
		}
	}
	delete(s.byConn, connID)
}

// ConnectionsFor returns a point-in-time copy, safe to iterate while
// other goroutines mutate the registry.
func (r *Registry) ConnectionsFor(userID string) []*Conn {
	s := r.shardFor(userID)
	s.mu.RLock()
	defer s.mu.RUnlock()

	m := s.byUser[userID]
	if len(m) == 0 {
		return nil
	}
	out := make([]*Conn, 0, len(m))
	for _, c := range m {
		out = append(out, c)
	}
	return out
}

// AllConnectedUserIDs returns a snapshot of users with at least one
// live connection.
func (r *Registry) AllConnectedUserIDs() []string {
	out := make([]string, 0, 64)
	for _, s := range r.shards {
		s.mu.RLock()
		for uid := range s.byUser {
			out = append(out, uid)
		}
		s.mu.RUnlock()
	}
	return out
}

// Len 当前连接总数（统计/调试用）
func (r *Registry) Len() int {
	n := 0
	for _, s := range r.shards {
		s.mu.RLock()
		n += len(s.byConn)
		s.mu.RUnlock()
	}
	return n
}

// CloseAll gracefully closes every connection. Read loops then fall out
// and deregister themselves; Remove being idempotent makes that safe.
func (r *Registry) CloseAll() {
	for _, s := range r.shards {
		s.mu.RLock()
		conns := make([]*Conn, 0, len(s.byConn))
		for _, c := range s.byConn {
			conns = append(conns, c)
		}
		s.mu.RUnlock()
		// 持锁期间不关 socket
		for _, c := range conns {
			c.closeGraceful()
		}
	}
}
