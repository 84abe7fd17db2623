package store

import (
	"errors"

	"global-relay/pkg/model"
)

// ErrUnknownNode is returned when an operation targets a nodeId with no
// registered manifest.
var ErrUnknownNode = errors.New("target node not found")

// Directory is the storage layer for the rendezvous state: manifests keyed by
// nodeId plus one bounded mailbox per node. The default implementation is
// in-memory; a Consul KV variant exists behind the consul build tag for
// deployments that need the state to outlive the process.
type Directory interface {
	// PutManifest inserts or overwrites the manifest keyed by its NodeID.
	PutManifest(m model.NodeManifest) error
	GetManifest(nodeID string) (model.NodeManifest, bool, error)
	ListManifests() ([]model.NodeManifest, error)
	// ResolveWallet finds a manifest owned by the wallet (case-insensitive).
	ResolveWallet(wallet string) (model.NodeManifest, bool, error)
	// RemoveByWallet deletes every manifest and mailbox owned by the wallet
	// and returns the removed node IDs. Removing nothing is not an error.
	RemoveByWallet(wallet string) ([]string, error)
	// Enqueue appends to the node's mailbox, creating it lazily. When the
	// mailbox is full the oldest entry is dropped first; the return value
	// reports whether that happened.
	Enqueue(nodeID string, msg model.RelayMessage) (dropped bool, err error)
	// Drain empties the node's mailbox, returns its full contents, and
	// refreshes the node's liveness stamp. All-or-nothing.
	Drain(nodeID string, seen int64) ([]model.RelayMessage, error)
	// Sweep evicts every manifest (and mailbox) whose liveness stamp is
	// older than cutoff, returning the evicted node IDs.
	Sweep(cutoff int64) ([]string, error)
	NodeCount() (int, error)
	AppendAudit(entry model.AuditEntry) error
	ListAudit(limit int) ([]model.AuditEntry, error)
}

// NewMemory constructs the in-memory implementation without importing it directly.
func NewMemory() Directory {
	return NewMemoryDirectory()
}
