package store

import (
	"strings"
	"sync"

	"global-relay/pkg/model"
)

const auditRingCap = 512

// MemoryDirectory is the default single-process Directory: plain maps behind
// one RWMutex. Request handlers and the liveness sweeper share the same lock,
// so an eviction can never race a concurrent register or relay.
type MemoryDirectory struct {
	mu        sync.RWMutex
	manifests map[string]model.NodeManifest
	mailboxes map[string][]model.RelayMessage
	audit     []model.AuditEntry
}

func NewMemoryDirectory() *MemoryDirectory {
	return &MemoryDirectory{
		manifests: make(map[string]model.NodeManifest),
		mailboxes: make(map[string][]model.RelayMessage),
	}
}

func (d *MemoryDirectory) PutManifest(m model.NodeManifest) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.manifests[m.NodeID] = m
	return nil
}

func (d *MemoryDirectory) GetManifest(nodeID string) (model.NodeManifest, bool, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	m, ok := d.manifests[nodeID]
	return m, ok, nil
}

func (d *MemoryDirectory) ListManifests() ([]model.NodeManifest, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]model.NodeManifest, 0, len(d.manifests))
	for _, m := range d.manifests {
		out = append(out, m)
	}
	return out, nil
}

// ResolveWallet scans for a manifest owned by the wallet. Linear on purpose:
// a wallet may own several node IDs, so there is no unique index to keep.
func (d *MemoryDirectory) ResolveWallet(wallet string) (model.NodeManifest, bool, error) {
	w := strings.ToLower(wallet)
	d.mu.RLock()
	defer d.mu.RUnlock()
	for _, m := range d.manifests {
		if strings.ToLower(m.Wallet) == w {
			return m, true, nil
		}
	}
	return model.NodeManifest{}, false, nil
}

func (d *MemoryDirectory) RemoveByWallet(wallet string) ([]string, error) {
	w := strings.ToLower(wallet)
	d.mu.Lock()
	defer d.mu.Unlock()
	var removed []string
	for id, m := range d.manifests {
		if strings.ToLower(m.Wallet) == w {
			delete(d.manifests, id)
			delete(d.mailboxes, id)
			removed = append(removed, id)
		}
	}
	return removed, nil
}

func (d *MemoryDirectory) Enqueue(nodeID string, msg model.RelayMessage) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.manifests[nodeID]; !ok {
		return false, ErrUnknownNode
	}
	box := d.mailboxes[nodeID]
	dropped := false
	if len(box) >= model.MailboxCap {
		box = box[len(box)-model.MailboxCap+1:]
		dropped = true
	}
	d.mailboxes[nodeID] = append(box, msg)
	return dropped, nil
}

func (d *MemoryDirectory) Drain(nodeID string, seen int64) ([]model.RelayMessage, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	m, ok := d.manifests[nodeID]
	if !ok {
		return nil, ErrUnknownNode
	}
	m.LastSeen = seen
	d.manifests[nodeID] = m
	box := d.mailboxes[nodeID]
	delete(d.mailboxes, nodeID)
	out := make([]model.RelayMessage, 0, len(box))
	out = append(out, box...)
	return out, nil
}

func (d *MemoryDirectory) Sweep(cutoff int64) ([]string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	var evicted []string
	for id, m := range d.manifests {
		if m.Liveness() < cutoff {
			delete(d.manifests, id)
			delete(d.mailboxes, id)
			evicted = append(evicted, id)
		}
	}
	return evicted, nil
}

func (d *MemoryDirectory) NodeCount() (int, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.manifests), nil
}

func (d *MemoryDirectory) AppendAudit(entry model.AuditEntry) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.audit = append(d.audit, entry)
	if len(d.audit) > auditRingCap {
		d.audit = d.audit[len(d.audit)-auditRingCap:]
	}
	return nil
}

func (d *MemoryDirectory) ListAudit(limit int) ([]model.AuditEntry, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if limit <= 0 || limit > len(d.audit) {
		limit = len(d.audit)
	}
	out := make([]model.AuditEntry, 0, limit)
	start := len(d.audit) - limit
	for i := start; i < len(d.audit); i++ {
		out = append(out, d.audit[i])
	}
	return out, nil
}

// Ping reports readiness for health/info endpoints.
func (d *MemoryDirectory) Ping() error { return nil }
