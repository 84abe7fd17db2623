package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"global-relay/pkg/auth"
	"global-relay/pkg/db"
	"global-relay/pkg/model"
	"global-relay/pkg/relay"
	"global-relay/pkg/store"
)

var (
	walletShape    = regexp.MustCompile(`^0x[0-9a-fA-F]{40}$`)
	signatureShape = regexp.MustCompile(`^(0x)?[0-9a-fA-F]{130}$`)
)

const sessionTokenTTL = time.Hour

// RegisterRoutes wires the HTTP handlers on the provided mux.
func RegisterRoutes(mux *http.ServeMux, dir store.Directory, verifier *auth.WalletVerifier, counters *relay.Counters, hub *NotifyHub, mirror *db.AuditLog) {
	mux.HandleFunc("/", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("global relay"))
	})

	mux.HandleFunc("/api/v1/register", withRecover(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		var m model.NodeManifest
		if err := json.NewDecoder(r.Body).Decode(&m); err != nil {
			writeError(w, http.StatusBadRequest, "invalid payload")
			return
		}
		if m.NodeID == "" || m.Wallet == "" || m.Signature == "" {
			writeError(w, http.StatusBadRequest, "nodeId, wallet, and signature are required")
			return
		}
		if !walletShape.MatchString(m.Wallet) {
			writeError(w, http.StatusBadRequest, "malformed wallet address")
			return
		}
		if !signatureShape.MatchString(m.Signature) {
			writeError(w, http.StatusBadRequest, "malformed signature")
			return
		}
		if !strings.HasPrefix(m.FoundationLaneVersion, "1.") {
			writeError(w, http.StatusBadRequest, "incompatible foundation lane version")
			return
		}
		if len(m.NodeID) > model.MaxNodeIDLen || len(m.Endpoint) > model.MaxEndpointLen {
			writeError(w, http.StatusBadRequest, "field length exceeds maximum")
			return
		}
		if err := verifier.Verify(m.NodeID, m.Wallet, m.Timestamp, m.Signature); err != nil {
			writeError(w, http.StatusForbidden, err.Error())
			return
		}

		now := time.Now().UnixMilli()
		m.LastSeen = now
		if err := dir.PutManifest(m); err != nil {
			writeError(w, http.StatusInternalServerError, "failed to store manifest")
			return
		}
		recordAudit(dir, mirror, m.Wallet, "register", m.NodeID, "manifest admitted")
		total, _ := dir.NodeCount()
		log.Printf("registered node %s wallet=%s endpoint=%s peers=%d", m.NodeID, m.Wallet, m.Endpoint, total-1)

		token, err := auth.GenerateToken(m.Wallet, sessionTokenTTL)
		if err != nil {
			token = "" // header auth still works
		}
		writeJSON(w, http.StatusOK, RegisterResponse{
			OK:              true,
			NodeID:          m.NodeID,
			RegisteredAt:    now,
			PeersAvailable:  total - 1,
			FoundationLanes: model.FoundationLanes,
			Token:           token,
		})
	}))

	mux.HandleFunc("/api/v1/unregister", withRecover(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		wallet := walletFromRequest(r)
		removed, err := dir.RemoveByWallet(wallet)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "failed to unregister")
			return
		}
		for _, id := range removed {
			hub.Close(id)
			recordAudit(dir, mirror, wallet, "unregister", id, "")
		}
		writeJSON(w, http.StatusOK, UnregisterResponse{
			OK:      true,
			Message: fmt.Sprintf("%d registration(s) removed", len(removed)),
		})
	}))

	mux.HandleFunc("/api/v1/peers", withRecover(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		wallet := strings.ToLower(walletFromRequest(r))
		all, err := dir.ListManifests()
		if err != nil {
			writeError(w, http.StatusInternalServerError, "failed to list peers")
			return
		}
		peers := make([]model.NodeManifest, 0, len(all))
		for _, m := range all {
			if strings.ToLower(m.Wallet) == wallet {
				continue
			}
			peers = append(peers, m.Redacted())
		}
		writeJSON(w, http.StatusOK, PeersResponse{
			OK:                    true,
			Peers:                 peers,
			Total:                 len(peers),
			FoundationLaneVersion: model.FoundationLaneVersion,
		})
	}))

	mux.HandleFunc("/api/v1/relay", withRecover(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		var req RelayRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid payload")
			return
		}
		if len(req.Payload) > model.MaxPayloadBytes {
			writeError(w, http.StatusBadRequest, "payload exceeds maximum size")
			return
		}
		if req.Target == "" || req.Lane == nil {
			writeError(w, http.StatusBadRequest, "target and lane are required")
			return
		}
		lane := model.Lane(*req.Lane)
		if !lane.Valid() {
			writeError(w, http.StatusBadRequest, "global relay only supports foundation lanes (0-3); custom lanes must use direct peer connection")
			return
		}
		if _, ok, err := dir.GetManifest(req.Target); err != nil {
			writeError(w, http.StatusInternalServerError, "failed to resolve target")
			return
		} else if !ok {
			writeError(w, http.StatusNotFound, "target node not found")
			return
		}
		sender, ok, err := dir.ResolveWallet(walletFromRequest(r))
		if err != nil {
			writeError(w, http.StatusInternalServerError, "failed to resolve sender")
			return
		}
		if !ok {
			writeError(w, http.StatusForbidden, "sender not registered in global network")
			return
		}

		msg := model.RelayMessage{
			ID:        uuid.NewString(),
			Target:    req.Target,
			Lane:      lane,
			Payload:   req.Payload,
			From:      sender.NodeID,
			Timestamp: time.Now().UnixMilli(),
		}
		dropped, err := dir.Enqueue(req.Target, msg)
		if errors.Is(err, store.ErrUnknownNode) {
			// target evicted between the lookup and the enqueue
			writeError(w, http.StatusNotFound, "target node not found")
			return
		}
		if err != nil {
			writeError(w, http.StatusInternalServerError, "failed to enqueue message")
			return
		}
		if dropped {
			counters.AddDrop()
		}
		counters.AddRelay()
		hub.Notify(req.Target, lane)
		writeJSON(w, http.StatusOK, RelayResponse{
			OK:        true,
			Relayed:   true,
			ID:        msg.ID,
			Lane:      lane,
			Timestamp: msg.Timestamp,
		})
	}))

	mux.HandleFunc("/api/v1/messages", withRecover(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		m, ok, err := dir.ResolveWallet(walletFromRequest(r))
		if err != nil {
			writeError(w, http.StatusInternalServerError, "failed to resolve wallet")
			return
		}
		if !ok {
			// idle polling by an unregistered client is tolerated silently
			writeJSON(w, http.StatusOK, MessagesResponse{OK: true, Messages: []model.RelayMessage{}})
			return
		}
		msgs, err := dir.Drain(m.NodeID, time.Now().UnixMilli())
		if err != nil {
			if errors.Is(err, store.ErrUnknownNode) {
				writeJSON(w, http.StatusOK, MessagesResponse{OK: true, Messages: []model.RelayMessage{}})
				return
			}
			writeError(w, http.StatusInternalServerError, "failed to drain mailbox")
			return
		}
		writeJSON(w, http.StatusOK, MessagesResponse{OK: true, Messages: msgs})
	}))

	mux.HandleFunc("/api/v1/stats", withRecover(func(w http.ResponseWriter, _ *http.Request) {
		nodes, _ := dir.NodeCount()
		writeJSON(w, http.StatusOK, StatsResponse{
			OK:                    true,
			Nodes:                 nodes,
			Relays:                counters.Relays(),
			Dropped:               counters.Dropped(),
			Uptime:                counters.UptimeSeconds(),
			FoundationLaneVersion: model.FoundationLaneVersion,
			FoundationLanes:       model.FoundationLanes,
		})
	}))

	mux.HandleFunc("/api/v1/health", withRecover(func(w http.ResponseWriter, _ *http.Request) {
		nodes, _ := dir.NodeCount()
		writeJSON(w, http.StatusOK, HealthResponse{OK: true, Status: "healthy", Nodes: nodes})
	}))

	mux.HandleFunc("/api/v1/audit", withRecover(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		entries, err := dir.ListAudit(50)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "failed to list audit")
			return
		}
		writeJSON(w, http.StatusOK, entries)
	}))

	mux.HandleFunc("/api/v1/ws", hub.Handle(dir))
}

func recordAudit(dir store.Directory, mirror *db.AuditLog, actor, action, target, detail string) {
	e := model.AuditEntry{
		ID:        uuid.NewString(),
		Actor:     actor,
		Action:    action,
		Target:    target,
		Detail:    detail,
		Timestamp: time.Now(),
	}
	_ = dir.AppendAudit(e)
	mirror.Append(e)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("failed to write response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{OK: false, Error: msg})
}

// withRecover keeps an unexpected panic from tearing down the connection
// without a response; the caller gets a generic 500 and the detail is logged.
func withRecover(h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				log.Printf("handler panic on %s: %v", r.URL.Path, rec)
				writeError(w, http.StatusInternalServerError, "internal error")
			}
		}()
		h(w, r)
	}
}
