package api

import (
	"log"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"global-relay/pkg/model"
	"global-relay/pkg/store"
)

// NotifyMessage is the nudge pushed to a node when a relay message lands in
// its mailbox. Delivery is best-effort; polling remains the source of truth.
type NotifyMessage struct {
	Type string     `json:"type"`
	Lane model.Lane `json:"lane"`
}

// NotifyHub maintains notify sockets keyed by node ID.
type NotifyHub struct {
	upgrader websocket.Upgrader
	mu       sync.RWMutex
	conns    map[string]*websocket.Conn
}

func NewNotifyHub() *NotifyHub {
	return &NotifyHub{
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		conns: map[string]*websocket.Conn{},
	}
}

// Handle upgrades a notify socket for a registered wallet; expects ?wallet=0x...
func (h *NotifyHub) Handle(dir store.Directory) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		wallet := r.URL.Query().Get("wallet")
		if wallet == "" {
			writeError(w, http.StatusBadRequest, "wallet is required")
			return
		}
		m, ok, err := dir.ResolveWallet(wallet)
		if err != nil || !ok {
			writeError(w, http.StatusForbidden, "sender not registered in global network")
			return
		}
		c, err := h.upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Printf("ws upgrade failed node=%s err=%v", m.NodeID, err)
			return
		}
		h.mu.Lock()
		if old, ok := h.conns[m.NodeID]; ok {
			_ = old.Close()
		}
		h.conns[m.NodeID] = c
		h.mu.Unlock()
		log.Printf("notify ws connected: %s", m.NodeID)
		go h.readLoop(m.NodeID, c)
	}
}

// Notify nudges a node if it holds an open socket; silently a no-op otherwise.
func (h *NotifyHub) Notify(nodeID string, lane model.Lane) {
	h.mu.RLock()
	c := h.conns[nodeID]
	h.mu.RUnlock()
	if c == nil {
		return
	}
	if err := c.WriteJSON(NotifyMessage{Type: "relay_notify", Lane: lane}); err != nil {
		log.Printf("notify ws send to %s failed: %v", nodeID, err)
		h.Close(nodeID)
	}
}

// Close drops a node's notify socket, if any. Called on unregister and evict.
func (h *NotifyHub) Close(nodeID string) {
	h.mu.Lock()
	c := h.conns[nodeID]
	delete(h.conns, nodeID)
	h.mu.Unlock()
	if c != nil {
		_ = c.Close()
	}
}

// readLoop discards inbound frames; the socket is one-way. Its job is to
// detect the peer going away and unregister the connection.
func (h *NotifyHub) readLoop(nodeID string, c *websocket.Conn) {
	defer func() {
		_ = c.Close()
		h.mu.Lock()
		if h.conns[nodeID] == c {
			delete(h.conns, nodeID)
		}
		h.mu.Unlock()
		log.Printf("notify ws disconnected: %s", nodeID)
	}()
	for {
		if _, _, err := c.NextReader(); err != nil {
			return
		}
	}
}
