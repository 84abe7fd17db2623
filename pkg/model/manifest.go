package model

// Limits enforced when admitting a manifest into the directory.
const (
	MaxNodeIDLen   = 64
	MaxEndpointLen = 256
)

// FoundationLaneVersion is the protocol version this relay speaks. Only
// manifests advertising a 1.x version are admitted.
const FoundationLaneVersion = "1.0.0"

// NodeManifest is the signed self-description a node submits to register
// its presence in the global network.
type NodeManifest struct {
	NodeID                string   `json:"nodeId"`
	Wallet                string   `json:"wallet"`
	Signature             string   `json:"signature"`
	FoundationLaneVersion string   `json:"foundationLaneVersion"`
	CustomLanes           []string `json:"customLanes,omitempty"` // advertised for discovery, never relayed
	Capabilities          []string `json:"capabilities,omitempty"`
	Endpoint              string   `json:"endpoint,omitempty"`
	Timestamp             int64    `json:"timestamp"`          // client clock, unix milliseconds
	LastSeen              int64    `json:"lastSeen,omitempty"` // server-assigned, unix milliseconds
}

// Liveness returns the manifest's freshest liveness stamp: LastSeen when the
// server has touched it, otherwise the original client timestamp.
func (m NodeManifest) Liveness() int64 {
	if m.LastSeen > 0 {
		return m.LastSeen
	}
	return m.Timestamp
}

// Redacted returns a copy safe to hand to other peers: the registration
// signature is stripped so it cannot be re-broadcast.
func (m NodeManifest) Redacted() NodeManifest {
	m.Signature = "[redacted]"
	return m
}
