package gateway_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"StayChat/module/chat/model"
	"StayChat/module/chat/store"
	"StayChat/service/gateway"
	"StayChat/service/gateway/handlers"
	"StayChat/tools/security"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

var testJWT = security.DefaultOptions([]byte("unit-test-secret"))

// ===== fakes（socket 测试只需要会话查找） =====

type testFactory struct {
	convs map[string]*model.Conversation
}

func (f *testFactory) Open(context.Context) (store.Scope, error) { return &testScope{f: f}, nil }

type testScope struct{ f *testFactory }

func (s *testScope) Conversations() store.ConversationRepo { return s.f }
func (s *testScope) Messages() store.MessageRepo           { return nil }
func (s *testScope) Commit(context.Context) error          { return nil }
func (s *testScope) Close(context.Context)                 {}

func (f *testFactory) Find(_ context.Context, id string) (*model.Conversation, error) {
	return f.convs[id], nil
}

// ===== helpers =====

type testGateway struct {
	http   *httptest.Server
	srv    *gateway.Server
	reg    *gateway.Registry
	sender *gateway.Sender
}

func newTestGateway(t *testing.T, convs map[string]*model.Conversation) *testGateway {
	t.Helper()
	gin.SetMode(gin.TestMode)

	reg := gateway.NewRegistry()
	sender := gateway.NewSender(reg, nil)
	srv := gateway.NewServer(gateway.Options{NodeID: "gw-test", JWT: testJWT}, reg, sender)

	hctx := &handlers.Context{
		Delivery: srv.Delivery(),
		Scopes:   &testFactory{convs: convs},
		Roster:   reg,
	}
	srv.Register(handlers.NewTypingHandler(hctx))
	srv.Register(handlers.NewPresenceHandler(hctx))

	r := gin.New()
	r.GET("/ws/chat", srv.HandleWS)

	ts := httptest.NewServer(r)
	t.Cleanup(func() {
		srv.Close()
		ts.Close()
	})
	return &testGateway{http: ts, srv: srv, reg: reg, sender: sender}
}

func (g *testGateway) wsURL(query string) string {
	return "ws" + strings.TrimPrefix(g.http.URL, "http") + "/ws/chat" + query
}

func (g *testGateway) dial(t *testing.T, userID string) *websocket.Conn {
	t.Helper()
	token, _, err := security.Generate(testJWT, userID, nil)
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}
	c, _, err := websocket.DefaultDialer.Dial(g.wsURL("?access_token="+token), nil)
	if err != nil {
		t.Fatalf("dial as %s: %v", userID, err)
	}
	t.Cleanup(func() { _ = c.Close() })

	waitFor(t, func() bool { return containsUser(g.reg.AllConnectedUserIDs(), userID) })
	return c
}

func containsUser(ids []string, user string) bool {
	for _, id := range ids {
		if id == user {
			return true
		}
	}
	return false
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("condition not met within deadline")
}

func readEvent(t *testing.T, c *websocket.Conn) map[string]any {
	t.Helper()
	_ = c.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := c.ReadMessage()
	if err != nil {
		t.Fatalf("read event: %v", err)
	}
	var out map[string]any
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatalf("event not valid JSON: %v (%q)", err, data)
	}
	return out
}

func expectSilence(t *testing.T, c *websocket.Conn) {
	t.Helper()
	_ = c.SetReadDeadline(time.Now().Add(300 * time.Millisecond))
	if _, data, err := c.ReadMessage(); err == nil {
		t.Fatalf("expected no frame, got %q", data)
	}
}

// ===== tests =====

func TestHandshakeRejects(t *testing.T) {
	g := newTestGateway(t, nil)

	cases := []struct {
		name   string
		query  string
		status int
	}{
		{"missing token", "", http.StatusUnauthorized},
		{"garbage token", "?token=garbage", http.StatusUnauthorized},
		{"wrong secret", "?access_token=" + badToken(t), http.StatusUnauthorized},
		{"empty subject", "?access_token=" + emptySubjectToken(t), http.StatusBadRequest},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, resp, err := websocket.DefaultDialer.Dial(g.wsURL(tc.query), nil)
			if err == nil {
				t.Fatal("handshake must fail")
			}
			if resp == nil || resp.StatusCode != tc.status {
				t.Fatalf("expected %d, got %+v", tc.status, resp)
			}
		})
	}

	if n := g.reg.Len(); n != 0 {
		t.Fatalf("rejected handshakes must not register connections, got %d", n)
	}
}

func badToken(t *testing.T) string {
	t.Helper()
	other := security.DefaultOptions([]byte("some-other-secret"))
	tok, _, err := security.Generate(other, "u1", nil)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	return tok
}

func emptySubjectToken(t *testing.T) string {
	t.Helper()
	tok, _, err := security.Generate(testJWT, "", nil)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	return tok
}

func TestConnectAndCloseLifecycle(t *testing.T) {
	g := newTestGateway(t, nil)

	c := g.dial(t, "u1")
	if !containsUser(g.reg.AllConnectedUserIDs(), "u1") {
		t.Fatal("u1 must appear after handshake")
	}

	// 正常关闭握手
	_ = c.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	_ = c.Close()

	waitFor(t, func() bool { return !containsUser(g.reg.AllConnectedUserIDs(), "u1") })
}

func TestTypingScenario(t *testing.T) {
	convs := map[string]*model.Conversation{
		"C": {ConversationID: "C", ParticipantIDs: []string{"U1", "U2"}},
	}
	g := newTestGateway(t, convs)

	c1 := g.dial(t, "U1")
	c2 := g.dial(t, "U2")

	err := c1.WriteMessage(websocket.TextMessage,
		[]byte(`{"type":"Typing","data":{"conversationId":"C","isTyping":true}}`))
	if err != nil {
		t.Fatalf("write: %v", err)
	}

	ev := readEvent(t, c2)
	if ev["event"] != "UserTyping" || ev["conversationId"] != "C" ||
		ev["userId"] != "U1" || ev["isTyping"] != true {
		t.Fatalf("unexpected event: %+v", ev)
	}

	// 恰好一条，而且发送者没有回显
	expectSilence(t, c2)
	expectSilence(t, c1)
}

func TestMalformedInputKeepsConnection(t *testing.T) {
	convs := map[string]*model.Conversation{
		"C": {ConversationID: "C", ParticipantIDs: []string{"U1", "U2"}},
	}
	g := newTestGateway(t, convs)

	c1 := g.dial(t, "U1")
	c2 := g.dial(t, "U2")

	// 坏 JSON、未知类型、缺 data —— 都不应断连
	for _, bad := range []string{
		`this is not json {{{`,
		`{"type":"VideoCall","data":{}}`,
		`{"type":"Typing"}`,
	} {
		if err := c1.WriteMessage(websocket.TextMessage, []byte(bad)); err != nil {
			t.Fatalf("write %q: %v", bad, err)
		}
	}

	// 之后的合法消息照常处理
	err := c1.WriteMessage(websocket.TextMessage,
		[]byte(`{"type":"Typing","data":{"conversationId":"C","isTyping":false}}`))
	if err != nil {
		t.Fatalf("write valid: %v", err)
	}

	ev := readEvent(t, c2)
	if ev["event"] != "UserTyping" || ev["isTyping"] != false {
		t.Fatalf("valid message after garbage not processed: %+v", ev)
	}
	if !containsUser(g.reg.AllConnectedUserIDs(), "U1") {
		t.Fatal("malformed input must not drop the connection")
	}
}

func TestPresenceRoundTrip(t *testing.T) {
	g := newTestGateway(t, nil)

	c1 := g.dial(t, "U1")
	c2 := g.dial(t, "U2")
	c3 := g.dial(t, "U3")

	err := c1.WriteMessage(websocket.TextMessage,
		[]byte(`{"type":"UpdatePresence","data":{"status":"online"}}`))
	if err != nil {
		t.Fatalf("write: %v", err)
	}

	for _, c := range []*websocket.Conn{c2, c3} {
		ev := readEvent(t, c)
		if ev["event"] != "UserPresence" || ev["userId"] != "U1" || ev["status"] != "online" {
			t.Fatalf("unexpected presence event: %+v", ev)
		}
		if _, ok := ev["lastSeen"].(float64); !ok {
			t.Fatalf("lastSeen missing: %+v", ev)
		}
	}
	expectSilence(t, c1)
}

func TestSendEventNoConnections(t *testing.T) {
	g := newTestGateway(t, nil)

	if n := g.sender.SendEvent("nobody-home", "UserPresence", map[string]any{"status": "online"}); n != 0 {
		t.Fatalf("expected 0 deliveries, got %d", n)
	}
}

func TestConcurrentSendSameConnection(t *testing.T) {
	g := newTestGateway(t, nil)
	c := g.dial(t, "U1")

	// 大负载更容易暴露交错写
	blobA := strings.Repeat("a", 16*1024)
	blobB := strings.Repeat("b", 16*1024)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		g.sender.SendEvent("U1", "UserPresence", map[string]any{"blob": blobA})
	}()
	go func() {
		defer wg.Done()
		g.sender.SendEvent("U1", "UserPresence", map[string]any{"blob": blobB})
	}()
	wg.Wait()

	seen := map[string]bool{}
	for i := 0; i < 2; i++ {
		ev := readEvent(t, c)
		blob, _ := ev["blob"].(string)
		switch blob {
		case blobA:
			seen["a"] = true
		case blobB:
			seen["b"] = true
		default:
			t.Fatalf("frame %d corrupted: event=%v len=%d", i, ev["event"], len(blob))
		}
	}
	if !seen["a"] || !seen["b"] {
		t.Fatalf("both payloads must arrive intact: %+v", seen)
	}
}

func TestMultiDeviceFanout(t *testing.T) {
	g := newTestGateway(t, nil)

	d1 := g.dial(t, "U1")
	d2 := g.dial(t, "U1") // 同一用户第二个终端
	waitFor(t, func() bool { return len(g.reg.ConnectionsFor("U1")) == 2 })

	n := g.sender.SendEvent("U1", "UserPresence", map[string]any{"status": "online"})
	if n != 2 {
		t.Fatalf("expected delivery to both devices, got %d", n)
	}
	for i, c := range []*websocket.Conn{d1, d2} {
		ev := readEvent(t, c)
		if ev["event"] != "UserPresence" {
			t.Fatalf("device %d got %+v", i, ev)
		}
	}
}
