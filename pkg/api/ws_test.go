package api

import (
	"encoding/json"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"global-relay/pkg/model"
)

func dialNotify(t *testing.T, env *testEnv, wallet string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(env.srv.URL, "http") + "/api/v1/ws?wallet=" + wallet
	c, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial notify ws: %v", err)
	}
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestNotifyOnRelay(t *testing.T) {
	env := newTestEnv(t)
	a, _ := signedManifest(t, "A1")
	b, _ := signedManifest(t, "B1")
	env.register(t, a)
	env.register(t, b)

	c := dialNotify(t, env, b.Wallet)
	body := RelayRequest{Target: "B1", Lane: laneRef(3), Payload: json.RawMessage(`{"cpu":0.2}`)}
	if code := env.do(t, http.MethodPost, "/api/v1/relay", a.Wallet, body, nil); code != http.StatusOK {
		t.Fatalf("relay: status %d", code)
	}

	_ = c.SetReadDeadline(time.Now().Add(2 * time.Second))
	var nudge NotifyMessage
	if err := c.ReadJSON(&nudge); err != nil {
		t.Fatalf("read nudge: %v", err)
	}
	if nudge.Type != "relay_notify" || nudge.Lane != model.LaneTelemetry {
		t.Fatalf("nudge = %+v", nudge)
	}

	// the nudge is advisory; the message itself still arrives via poll
	var mr MessagesResponse
	env.do(t, http.MethodGet, "/api/v1/messages", b.Wallet, nil, &mr)
	if len(mr.Messages) != 1 {
		t.Fatalf("poll after nudge returned %d messages, want 1", len(mr.Messages))
	}
}

func TestNotifyRequiresRegistration(t *testing.T) {
	env := newTestEnv(t)
	url := "ws" + strings.TrimPrefix(env.srv.URL, "http") + "/api/v1/ws?wallet=0xCC00000000000000000000000000000000000003"
	if _, _, err := websocket.DefaultDialer.Dial(url, nil); err == nil {
		t.Fatal("unregistered wallet must not get a notify socket")
	}
}

func TestNotifySocketClosedOnUnregister(t *testing.T) {
	env := newTestEnv(t)
	b, _ := signedManifest(t, "B1")
	env.register(t, b)

	c := dialNotify(t, env, b.Wallet)
	env.do(t, http.MethodPost, "/api/v1/unregister", b.Wallet, nil, &UnregisterResponse{})

	_ = c.SetReadDeadline(time.Now().Add(2 * time.Second))
	if _, _, err := c.NextReader(); err == nil {
		t.Fatal("socket should be closed after unregister")
	}
}
