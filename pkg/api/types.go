package api

import (
	"encoding/json"

	"global-relay/pkg/model"
)

// RelayRequest is the body of a relay call. Lane is a pointer so a missing
// lane is distinguishable from lane 0.
type RelayRequest struct {
	Target  string          `json:"target"`
	Lane    *int            `json:"lane"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

type RegisterResponse struct {
	OK              bool                  `json:"ok"`
	NodeID          string                `json:"nodeId"`
	RegisteredAt    int64                 `json:"registeredAt"`
	PeersAvailable  int                   `json:"peersAvailable"`
	FoundationLanes map[string]model.Lane `json:"foundationLanes"`
	Token           string                `json:"token,omitempty"`
}

type UnregisterResponse struct {
	OK      bool   `json:"ok"`
	Message string `json:"message"`
}

type PeersResponse struct {
	OK                    bool                 `json:"ok"`
	Peers                 []model.NodeManifest `json:"peers"`
	Total                 int                  `json:"total"`
	FoundationLaneVersion string               `json:"foundationLaneVersion"`
}

type RelayResponse struct {
	OK        bool       `json:"ok"`
	Relayed   bool       `json:"relayed"`
	ID        string     `json:"id"`
	Lane      model.Lane `json:"lane"`
	Timestamp int64      `json:"timestamp"`
}

type MessagesResponse struct {
	OK       bool                 `json:"ok"`
	Messages []model.RelayMessage `json:"messages"`
}

type StatsResponse struct {
	OK                    bool                  `json:"ok"`
	Nodes                 int                   `json:"nodes"`
	Relays                int64                 `json:"relays"`
	Dropped               int64                 `json:"dropped"`
	Uptime                int64                 `json:"uptime"`
	FoundationLaneVersion string                `json:"foundationLaneVersion"`
	FoundationLanes       map[string]model.Lane `json:"foundationLanes"`
}

type HealthResponse struct {
	OK     bool   `json:"ok"`
	Status string `json:"status"`
	Nodes  int    `json:"nodes"`
}

type errorResponse struct {
	OK    bool   `json:"ok"`
	Error string `json:"error"`
}
